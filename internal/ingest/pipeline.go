package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/JeffBrines/RealEstateInsightsPub/internal/mapping"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/models"
)

// File-level failures. Each is user-presentable; *Error wraps one of them
// with the specifics of the file.
var (
	ErrUnreadableFile      = errors.New("file is corrupt or not readable as delimited text")
	ErrNoHeaders           = errors.New("file has no header row")
	ErrNoRecognizedColumns = errors.New("no recognizable real-estate columns")
	ErrNoValidRecords      = errors.New("no rows survived validation")
)

// Error is a file-level ingestion failure.
type Error struct {
	Kind        error
	Reason      string
	Diagnostics []string
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Kind }

// Result is the outcome of one ingestion run.
type Result struct {
	Records      []models.Property
	Headers      []string
	Mapping      models.ColumnMapping
	Delimiter    rune // zero for workbooks
	Diagnostics  []string
	RowsRead     int
	RowsRejected int
}

// Pipeline turns raw delimited bytes into canonical records.
type Pipeline struct {
	table  *mapping.Table
	opts   Options
	logger *logrus.Logger
}

// NewPipeline creates a pipeline. A nil table uses the embedded column
// table and a nil logger logs JSON to stdout.
func NewPipeline(table *mapping.Table, opts Options, logger *logrus.Logger) *Pipeline {
	if table == nil {
		table = mapping.Default()
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}
	return &Pipeline{table: table, opts: opts.withDefaults(), logger: logger}
}

// Process runs the pipeline with the embedded column table and defaults.
func Process(ctx context.Context, data []byte) (*Result, error) {
	return NewPipeline(nil, DefaultOptions(), nil).Process(ctx, data)
}

const cancelCheckInterval = 1000

var utf8BOM = []byte("\xef\xbb\xbf")

// Process reads the header row, detects the column mapping and transforms
// every data row. Rejected rows are counted and described in the bounded
// diagnostics; the run fails only on file-level defects. Excel workbooks
// are read from their first non-empty sheet.
func (p *Pipeline) Process(ctx context.Context, data []byte) (*Result, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &Error{Kind: ErrNoHeaders, Reason: "file is empty"}
	}

	var (
		src   rowSource
		delim rune
	)
	if IsWorkbook(data) {
		sheet, err := openSheet(data)
		if err != nil {
			return nil, err
		}
		src = sheet
	} else {
		if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
			return nil, &Error{Kind: ErrUnreadableFile, Reason: "content is binary or not UTF-8 text"}
		}
		delim = SniffDelimiter(data)
		src = newCSVSource(data, delim)
	}

	headers, err := src.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &Error{Kind: ErrNoHeaders, Reason: "file has no rows"}
		}
		return nil, &Error{Kind: ErrUnreadableFile, Reason: err.Error()}
	}
	if !hasNonBlank(headers) {
		return nil, &Error{Kind: ErrNoHeaders, Reason: "header row is blank"}
	}

	result := &Result{
		Headers:   headers,
		Mapping:   p.table.Detect(headers),
		Delimiter: delim,
	}
	if !result.Mapping.HasAny(models.PriceFields...) {
		return nil, &Error{
			Kind:   ErrNoRecognizedColumns,
			Reason: fmt.Sprintf("no price column among headers %s", quoteAll(headers)),
		}
	}
	result.Diagnostics = append(result.Diagnostics, p.mappingWarnings(result.Mapping)...)

	p.logger.WithFields(logrus.Fields{
		"columns":   len(headers),
		"mapped":    len(result.Mapping),
		"delimiter": string(delim),
	}).Debug("Detected column mapping")

	transformer := NewTransformer(result.Mapping, p.opts)
	seen := make(map[string]struct{})
	row := make(Row, len(headers))
	rowErrors := rowLog{max: p.opts.MaxDiagnostics}

	for {
		if result.RowsRead%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		record, err := src.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, &Error{Kind: ErrUnreadableFile, Reason: err.Error()}
			}
			result.RowsRead++
			result.RowsRejected++
			rowErrors.add("line %d: malformed row: %v", parseErr.Line, parseErr.Err)
			continue
		}
		if !hasNonBlank(record) {
			continue
		}
		result.RowsRead++

		clear(row)
		for i, h := range headers {
			if i >= len(record) {
				break
			}
			if _, dup := row[h]; !dup {
				row[h] = record[i]
			}
		}

		prop, err := transformer.Transform(row)
		if err != nil {
			result.RowsRejected++
			rowErrors.add("line %d: %v", src.Line(), err)
			continue
		}
		for {
			if _, dup := seen[prop.ID]; !dup {
				break
			}
			prop.ID = p.opts.NewID()
		}
		seen[prop.ID] = struct{}{}
		result.Records = append(result.Records, prop)
	}

	result.Diagnostics = append(result.Diagnostics, rowErrors.lines()...)

	if len(result.Records) == 0 {
		reason := "file has no data rows"
		if result.RowsRead > 0 {
			reason = fmt.Sprintf("none of the %d data rows had a positive price", result.RowsRead)
		}
		return nil, &Error{Kind: ErrNoValidRecords, Reason: reason, Diagnostics: result.Diagnostics}
	}

	p.logger.WithFields(logrus.Fields{
		"rows":     result.RowsRead,
		"records":  len(result.Records),
		"rejected": result.RowsRejected,
	}).Info("Ingested file")
	return result, nil
}

func (p *Pipeline) mappingWarnings(m models.ColumnMapping) []string {
	var warnings []string
	if !m.Has(models.FieldSqft) {
		warnings = append(warnings, fmt.Sprintf("could not detect size columns; square footage defaults to %g", p.opts.DefaultSqft))
	}
	if !m.Has(models.FieldBeds) {
		warnings = append(warnings, "could not detect a bedroom column; bedrooms default to 0")
	}
	if !m.Has(models.FieldBaths) {
		warnings = append(warnings, "could not detect a bathroom column; bathrooms default to 0")
	}
	if !m.Has(models.FieldStatus) {
		warnings = append(warnings, "could not detect a status column; every record is Unknown")
	}
	if !m.HasAny(models.FieldListDate, models.FieldSaleDate) {
		warnings = append(warnings, "could not detect date columns; date filters will exclude every record")
	}
	return warnings
}

// rowLog keeps the first max row errors and only counts the rest.
type rowLog struct {
	max     int
	kept    []string
	dropped int
}

func (l *rowLog) add(format string, args ...any) {
	if len(l.kept) >= l.max {
		l.dropped++
		return
	}
	l.kept = append(l.kept, fmt.Sprintf(format, args...))
}

func (l *rowLog) lines() []string {
	if l.dropped == 0 {
		return l.kept
	}
	return append(l.kept, fmt.Sprintf("... and %d more rows skipped", l.dropped))
}

var candidateDelimiters = []rune{',', ';', '\t', '|'}

// SniffDelimiter picks the candidate that occurs most often, outside of
// quotes, on the first line. Comma wins ties and empty input.
func SniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}

	counts := make(map[rune]int, len(candidateDelimiters))
	inQuotes := false
	for _, r := range string(line) {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[r]++
		}
	}

	best, bestCount := ',', counts[',']
	for _, d := range candidateDelimiters[1:] {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return best
}

func hasNonBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return true
		}
	}
	return false
}

func quoteAll(headers []string) string {
	quoted := make([]string, len(headers))
	for i, h := range headers {
		quoted[i] = fmt.Sprintf("%q", h)
	}
	return strings.Join(quoted, ", ")
}
