package mapping

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/JeffBrines/RealEstateInsightsPub/config"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/models"
)

// Column is one compiled entry of the canonical column table.
type Column struct {
	Field   models.Field
	Header  string
	Aliases []string
	Pattern *regexp.Regexp
	Exclude *regexp.Regexp
}

// Table is an immutable, ordered column table. Column order is the field
// iteration order of the pattern pass.
type Table struct {
	Version int
	columns []Column
	aliases map[string]models.Field
	byField map[models.Field]int
}

type tableFile struct {
	Version int `yaml:"version"`
	Fields  []struct {
		Field   string   `yaml:"field"`
		Header  string   `yaml:"header"`
		Aliases []string `yaml:"aliases"`
		Pattern string   `yaml:"pattern"`
		Exclude string   `yaml:"exclude"`
	} `yaml:"fields"`
}

// LoadTable decodes and validates a YAML column table.
func LoadTable(r io.Reader) (*Table, error) {
	var file tableFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode column table: %w", err)
	}
	if len(file.Fields) == 0 {
		return nil, fmt.Errorf("column table has no fields")
	}

	t := &Table{
		Version: file.Version,
		columns: make([]Column, 0, len(file.Fields)),
		aliases: make(map[string]models.Field),
		byField: make(map[models.Field]int),
	}
	for _, entry := range file.Fields {
		field := models.Field(entry.Field)
		if !field.IsCanonical() {
			return nil, fmt.Errorf("unknown field %q in column table", entry.Field)
		}
		if _, dup := t.byField[field]; dup {
			return nil, fmt.Errorf("field %q listed twice in column table", field)
		}
		if entry.Header == "" {
			return nil, fmt.Errorf("field %q has no export header", field)
		}
		if entry.Pattern == "" {
			return nil, fmt.Errorf("field %q has no pattern", field)
		}

		col := Column{Field: field, Header: entry.Header}
		var err error
		if col.Pattern, err = regexp.Compile(entry.Pattern); err != nil {
			return nil, fmt.Errorf("field %q: invalid pattern: %w", field, err)
		}
		if entry.Exclude != "" {
			if col.Exclude, err = regexp.Compile(entry.Exclude); err != nil {
				return nil, fmt.Errorf("field %q: invalid exclude pattern: %w", field, err)
			}
		}

		col.Aliases = append([]string{entry.Header}, entry.Aliases...)
		for _, alias := range col.Aliases {
			if owner, taken := t.aliases[alias]; taken {
				return nil, fmt.Errorf("alias %q claimed by both %q and %q", alias, owner, field)
			}
			t.aliases[alias] = field
		}

		t.byField[field] = len(t.columns)
		t.columns = append(t.columns, col)
	}
	return t, nil
}

var defaultTable = sync.OnceValue(func() *Table {
	t, err := LoadTable(bytes.NewReader(config.ColumnTable))
	if err != nil {
		panic(fmt.Sprintf("embedded column table is invalid: %v", err))
	}
	return t
})

// Default returns the embedded column table.
func Default() *Table {
	return defaultTable()
}

// Columns returns the table entries in iteration order.
func (t *Table) Columns() []Column {
	return append([]Column(nil), t.columns...)
}

// Fields returns the canonical fields in iteration order.
func (t *Table) Fields() []models.Field {
	out := make([]models.Field, len(t.columns))
	for i, c := range t.columns {
		out[i] = c.Field
	}
	return out
}

// Header returns the export header of f, or the field name when the table
// does not know it.
func (t *Table) Header(f models.Field) string {
	if i, ok := t.byField[f]; ok {
		return t.columns[i].Header
	}
	return string(f)
}
