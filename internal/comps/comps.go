// Package comps selects sold properties comparable to a subject property.
package comps

import (
	"cmp"
	"math"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/JeffBrines/RealEstateInsightsPub/internal/models"
)

// Selection defaults.
const (
	DefaultSqftTolerance  = 0.2
	DefaultBedsTolerance  = 1.0
	DefaultBathsTolerance = 1.0
	DefaultMaxResults     = 10
)

// Criteria bounds how far a candidate may differ from the subject.
// A nil tolerance takes the default and an explicit 0 means an exact
// match. A zero MaxResults takes the default.
type Criteria struct {
	SqftTolerance  *float64 `json:"sqftTolerance,omitempty"`
	BedsTolerance  *float64 `json:"bedsTolerance,omitempty"`
	BathsTolerance *float64 `json:"bathsTolerance,omitempty"`
	MaxResults     int      `json:"maxResults,omitempty"`
	// Only used when the subject has coordinates
	RadiusKm float64 `json:"radiusKm,omitempty"`
}

// DefaultCriteria is a 20% size band, ±1 bed, ±1 bath and 10 results.
func DefaultCriteria() Criteria {
	return Criteria{}.withDefaults()
}

func (c Criteria) withDefaults() Criteria {
	if c.SqftTolerance == nil || *c.SqftTolerance < 0 {
		v := DefaultSqftTolerance
		c.SqftTolerance = &v
	}
	if c.BedsTolerance == nil {
		v := DefaultBedsTolerance
		c.BedsTolerance = &v
	}
	if c.BathsTolerance == nil {
		v := DefaultBathsTolerance
		c.BathsTolerance = &v
	}
	if c.MaxResults <= 0 {
		c.MaxResults = DefaultMaxResults
	}
	return c
}

// FindComparables returns sold records from pool that match the subject
// within criteria, closest living area first. An empty result means there
// are not enough comparables; it is not an error.
func FindComparables(subject models.Subject, pool []models.Property, criteria Criteria) []models.Property {
	c := criteria.withDefaults()
	if subject.Sqft <= 0 {
		return []models.Property{}
	}

	band := subject.Sqft * *c.SqftTolerance
	useRadius := c.RadiusKm > 0 && subject.Latitude != nil && subject.Longitude != nil
	var origin orb.Point
	if useRadius {
		origin = orb.Point{*subject.Longitude, *subject.Latitude}
	}

	out := make([]models.Property, 0, c.MaxResults)
	for i := range pool {
		p := &pool[i]
		if !p.Status.IsSold() {
			continue
		}
		if math.Abs(p.Sqft-subject.Sqft) > band {
			continue
		}
		if math.Abs(p.Beds-subject.Beds) > *c.BedsTolerance {
			continue
		}
		if math.Abs(p.Baths-subject.Baths) > *c.BathsTolerance {
			continue
		}
		if subject.ZipCode != "" && p.ZipCode != subject.ZipCode {
			continue
		}
		if useRadius {
			if !p.HasCoordinates() {
				continue
			}
			if geo.Distance(origin, orb.Point{*p.Longitude, *p.Latitude}) > c.RadiusKm*1000 {
				continue
			}
		}
		out = append(out, *p)
	}

	slices.SortStableFunc(out, func(a, b models.Property) int {
		return cmp.Compare(math.Abs(a.Sqft-subject.Sqft), math.Abs(b.Sqft-subject.Sqft))
	})
	if len(out) > c.MaxResults {
		out = out[:c.MaxResults]
	}
	return out
}
