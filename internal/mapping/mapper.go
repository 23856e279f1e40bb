// Package mapping detects which source header supplies each canonical
// property field.
package mapping

import (
	"strings"

	"github.com/JeffBrines/RealEstateInsightsPub/internal/models"
)

// Detect maps headers with the embedded column table.
func Detect(headers []string) models.ColumnMapping {
	return Default().Detect(headers)
}

// Detect runs the exact-alias pass and then the pattern pass. A field is
// never remapped and a header is consumed by at most one field.
func (t *Table) Detect(headers []string) models.ColumnMapping {
	mapping := make(models.ColumnMapping)
	used := make([]bool, len(headers))

	for i, h := range headers {
		field, ok := t.aliases[h]
		if !ok || mapping.Has(field) {
			continue
		}
		mapping[field] = h
		used[i] = true
	}

	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = NormalizeHeader(h)
	}

	for _, col := range t.columns {
		if mapping.Has(col.Field) {
			continue
		}
		for i, n := range normalized {
			if used[i] || n == "" {
				continue
			}
			if !col.Pattern.MatchString(n) {
				continue
			}
			if col.Exclude != nil && col.Exclude.MatchString(n) {
				continue
			}
			mapping[col.Field] = headers[i]
			used[i] = true
			break
		}
	}
	return mapping
}

// NormalizeHeader lower-cases and trims h, turns underscores into spaces
// and collapses runs of whitespace.
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.ReplaceAll(h, "_", " "))
	return strings.Join(strings.Fields(h), " ")
}

// Unmapped returns the headers no field claimed, in input order.
func Unmapped(headers []string, mapping models.ColumnMapping) []string {
	claimed := make(map[string]bool, len(mapping))
	for _, h := range mapping {
		claimed[h] = true
	}
	var out []string
	for _, h := range headers {
		if !claimed[h] {
			out = append(out, h)
		}
	}
	return out
}
