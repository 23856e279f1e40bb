// Package export writes record sets back out as delimited text, Excel
// workbooks or GeoJSON. CSV headers are the column table's export headers,
// so an exported file maps back onto the same fields when re-ingested.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/JeffBrines/RealEstateInsightsPub/internal/mapping"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/models"
)

// Format names an output encoding.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatXLSX    Format = "xlsx"
	FormatGeoJSON Format = "geojson"
)

// ParseFormat accepts a format name case-insensitively; empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatXLSX, FormatGeoJSON:
		return f, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ContentType is the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatGeoJSON:
		return "application/geo+json"
	}
	return "text/csv; charset=utf-8"
}

// Extension is the file extension for f, without the dot.
func (f Format) Extension() string { return string(f) }

// Options selects the columns to write. Nil Columns means the id followed
// by every canonical field that has a value in at least one record.
type Options struct {
	Columns []models.Field
	Table   *mapping.Table
}

// Exporter encodes records.
type Exporter struct {
	table   *mapping.Table
	columns []models.Field
}

// New resolves the options. Unknown column names are rejected.
func New(opts Options) (*Exporter, error) {
	table := opts.Table
	if table == nil {
		table = mapping.Default()
	}
	for _, f := range opts.Columns {
		if f != models.FieldID && !f.IsCanonical() {
			return nil, fmt.Errorf("unknown column %q", f)
		}
	}
	return &Exporter{table: table, columns: opts.Columns}, nil
}

// ParseColumns splits a comma-separated column list.
func ParseColumns(s string) []models.Field {
	var fields []models.Field
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			fields = append(fields, models.Field(part))
		}
	}
	return fields
}

// Write encodes records in format f.
func (e *Exporter) Write(w io.Writer, f Format, records []models.Property) error {
	switch f {
	case FormatCSV:
		return e.WriteCSV(w, records)
	case FormatXLSX:
		return e.WriteXLSX(w, records)
	case FormatGeoJSON:
		return e.WriteGeoJSON(w, records)
	}
	return fmt.Errorf("unsupported export format %q", f)
}

// WriteCSV writes a header row and one row per record.
func (e *Exporter) WriteCSV(w io.Writer, records []models.Property) error {
	columns := e.resolveColumns(records)
	cw := csv.NewWriter(w)

	if err := cw.Write(e.headers(columns)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	row := make([]string, len(columns))
	for i := range records {
		for j, f := range columns {
			row[j] = Cell(&records[i], f)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func (e *Exporter) headers(columns []models.Field) []string {
	headers := make([]string, len(columns))
	for i, f := range columns {
		if f == models.FieldID {
			headers[i] = "ID"
			continue
		}
		headers[i] = e.table.Header(f)
	}
	return headers
}

func (e *Exporter) resolveColumns(records []models.Property) []models.Field {
	if len(e.columns) > 0 {
		return e.columns
	}
	columns := []models.Field{models.FieldID}
	for _, f := range e.table.Fields() {
		for i := range records {
			if Cell(&records[i], f) != "" {
				columns = append(columns, f)
				break
			}
		}
	}
	return columns
}

// Cell formats one field of p the way ingestion reads it back. Absent
// values are empty.
func Cell(p *models.Property, f models.Field) string {
	if models.FieldKinds[f] == models.KindNumber {
		v, ok := p.NumberField(f)
		if !ok {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return p.TextField(f)
}
