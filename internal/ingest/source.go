package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// rowSource yields raw rows, header first. Read returns io.EOF when done.
type rowSource interface {
	Read() ([]string, error)
	// Line is the 1-based source line of the last row read
	Line() int
}

type csvSource struct {
	r *csv.Reader
}

func newCSVSource(data []byte, delim rune) *csvSource {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return &csvSource{r: r}
}

func (s *csvSource) Read() ([]string, error) { return s.r.Read() }

func (s *csvSource) Line() int {
	line, _ := s.r.FieldPos(0)
	return line
}

var zipMagic = []byte("PK\x03\x04")

// IsWorkbook reports whether data looks like an .xlsx container.
func IsWorkbook(data []byte) bool {
	return bytes.HasPrefix(data, zipMagic)
}

type sheetSource struct {
	rows [][]string
	next int
}

// openSheet loads the first sheet that has any non-blank cell. Cells keep
// their display formatting so dates come through as text.
func openSheet(data []byte) (*sheetSource, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &Error{Kind: ErrUnreadableFile, Reason: fmt.Sprintf("open workbook: %v", err)}
	}
	defer func() { _ = f.Close() }()

	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			continue
		}
		for len(rows) > 0 && !hasNonBlank(rows[0]) {
			rows = rows[1:]
		}
		if len(rows) > 0 {
			return &sheetSource{rows: trimCells(rows)}, nil
		}
	}
	return nil, &Error{Kind: ErrNoHeaders, Reason: "workbook has no non-empty sheet"}
}

func (s *sheetSource) Read() ([]string, error) {
	if s.next >= len(s.rows) {
		return nil, io.EOF
	}
	s.next++
	return s.rows[s.next-1], nil
}

func (s *sheetSource) Line() int { return s.next }

func trimCells(rows [][]string) [][]string {
	for _, row := range rows {
		for i, c := range row {
			row[i] = strings.TrimSpace(c)
		}
	}
	return rows
}
