// Package filter narrows a record set by a FilterSpec. Every populated
// dimension of the filter must hold; unpopulated dimensions are ignored.
package filter

import (
	"strings"

	"github.com/JeffBrines/RealEstateInsightsPub/internal/coerce"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/models"
)

// Matcher is a compiled FilterSpec. Compile once, match many.
type Matcher struct {
	dateFrom, dateTo string
	hasDate          bool

	minPrice, maxPrice *float64
	city               string
	zip                string
	minBeds, minBaths  *float64
	types              []string
	status             models.Status
	hasStatus          bool
	// set when the status bound names no known variant
	matchNone bool
}

// Compile normalizes the filter bounds. Date bounds that do not parse as a
// date are ignored. A status that names no known variant matches nothing;
// only the literal "Unknown" selects records with an unrecognized status.
func Compile(spec models.FilterSpec) *Matcher {
	m := &Matcher{
		minPrice: spec.MinPrice,
		maxPrice: spec.MaxPrice,
		city:     strings.TrimSpace(spec.City),
		zip:      strings.TrimSpace(spec.ZipCode),
		minBeds:  spec.MinBeds,
		minBaths: spec.MinBaths,
	}
	if from, ok := coerce.Date(spec.DateFrom); ok {
		m.dateFrom = from
		m.hasDate = true
	}
	if to, ok := coerce.Date(spec.DateTo); ok {
		m.dateTo = to
		m.hasDate = true
	}
	for _, t := range spec.PropertyTypes {
		if t = strings.TrimSpace(t); t != "" {
			m.types = append(m.types, t)
		}
	}
	if s := strings.TrimSpace(spec.Status); s != "" {
		m.hasStatus = true
		m.status = models.ParseStatus(s)
		m.matchNone = m.status == models.StatusUnknown && !strings.EqualFold(s, string(models.StatusUnknown))
	}
	return m
}

// Match reports whether p satisfies every populated dimension.
func (m *Matcher) Match(p *models.Property) bool {
	if m.matchNone {
		return false
	}
	if m.hasDate {
		// ISO dates compare correctly as strings
		d := p.EffectiveDate()
		if d == "" {
			return false
		}
		if m.dateFrom != "" && d < m.dateFrom {
			return false
		}
		if m.dateTo != "" && d > m.dateTo {
			return false
		}
	}
	if m.minPrice != nil && p.Price < *m.minPrice {
		return false
	}
	if m.maxPrice != nil && p.Price > *m.maxPrice {
		return false
	}
	if m.city != "" && !containsFold(p.City, m.city) {
		return false
	}
	if m.zip != "" && p.ZipCode != m.zip {
		return false
	}
	if m.minBeds != nil && p.Beds < *m.minBeds {
		return false
	}
	if m.minBaths != nil && p.Baths < *m.minBaths {
		return false
	}
	if len(m.types) > 0 && !m.hasType(p.PropertyType) {
		return false
	}
	if m.hasStatus && p.Status != m.status {
		return false
	}
	return true
}

// hasType is exact membership; types are stored as the upload spelled them.
func (m *Matcher) hasType(t string) bool {
	for _, want := range m.types {
		if t == want {
			return true
		}
	}
	return false
}

// Apply returns the records matching spec in their original order. The
// input slice is never modified.
func Apply(records []models.Property, spec models.FilterSpec) []models.Property {
	return Compile(spec).Filter(records)
}

// Filter returns the matching records in their original order.
func (m *Matcher) Filter(records []models.Property) []models.Property {
	out := make([]models.Property, 0, len(records))
	for i := range records {
		if m.Match(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}

func containsFold(s, substr string) bool {
	if len(substr) > len(s) {
		return false
	}
	for i := 0; i+len(substr) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(substr)], substr) {
			return true
		}
	}
	return false
}
