package filter

import (
	"cmp"
	"slices"
	"strings"

	"github.com/JeffBrines/RealEstateInsightsPub/internal/models"
)

// Sort returns a copy of records ordered by field. Records without a value
// for the field go last in either direction; ties keep input order.
func Sort(records []models.Property, field models.Field, desc bool) []models.Property {
	out := slices.Clone(records)
	if field == "" {
		return out
	}
	kind, ok := models.FieldKinds[field]
	if !ok {
		return out
	}

	slices.SortStableFunc(out, func(a, b models.Property) int {
		var (
			c          int
			aHas, bHas bool
		)
		if kind == models.KindNumber {
			var av, bv float64
			av, aHas = a.NumberField(field)
			bv, bHas = b.NumberField(field)
			c = cmp.Compare(av, bv)
		} else {
			av, bv := a.TextField(field), b.TextField(field)
			aHas, bHas = av != "", bv != ""
			c = strings.Compare(strings.ToLower(av), strings.ToLower(bv))
		}
		switch {
		case aHas && !bHas:
			return -1
		case !aHas && bHas:
			return 1
		case !aHas && !bHas:
			return 0
		}
		if desc {
			return -c
		}
		return c
	})
	return out
}
