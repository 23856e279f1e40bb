package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/JeffBrines/RealEstateInsightsPub/internal/models"
)

const sheetName = "Properties"

// WriteXLSX writes a single-sheet workbook. Numeric fields are stored as
// numbers so spreadsheet formulas work on them.
func (e *Exporter) WriteXLSX(w io.Writer, records []models.Property) error {
	columns := e.resolveColumns(records)

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(columns))
	for i, h := range e.headers(columns) {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := make([]interface{}, len(columns))
	for i := range records {
		for j, col := range columns {
			row[j] = xlsxValue(&records[i], col)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func xlsxValue(p *models.Property, f models.Field) interface{} {
	if models.FieldKinds[f] == models.KindNumber {
		if v, ok := p.NumberField(f); ok {
			return v
		}
		return nil
	}
	return p.TextField(f)
}
