package stats

import (
	"fmt"
	"slices"

	"github.com/JeffBrines/RealEstateInsightsPub/internal/models"
)

const maxSummaryValues = 25

// PriceRange is the lowest and highest price in a set.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DateRange spans the effective dates in a set.
type DateRange struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// Summary is the compact description of a record set handed to the
// language model instead of the full records.
type Summary struct {
	Count         int            `json:"count"`
	PriceRange    PriceRange     `json:"priceRange"`
	MedianPrice   float64        `json:"medianPrice"`
	AveragePrice  float64        `json:"averagePrice"`
	AvgSqft       float64        `json:"avgSqft"`
	Statuses      map[string]int `json:"statusDistribution"`
	Bedrooms      map[string]int `json:"bedroomDistribution"`
	Cities        []string       `json:"cities"`
	PropertyTypes []string       `json:"propertyTypes"`
	Dates         DateRange      `json:"dateRange"`
}

// Summarize builds the Summary. Distinct cities and types are sorted and
// capped.
func Summarize(records []models.Property) Summary {
	s := Summary{
		Count:    len(records),
		Statuses: make(map[string]int),
		Bedrooms: make(map[string]int),
	}
	if len(records) == 0 {
		return s
	}

	prices := make([]float64, 0, len(records))
	sqft := make([]float64, 0, len(records))
	cities := make(map[string]struct{})
	types := make(map[string]struct{})

	s.PriceRange = PriceRange{Min: records[0].Price, Max: records[0].Price}
	for i := range records {
		p := &records[i]
		prices = append(prices, p.Price)
		sqft = append(sqft, p.Sqft)
		s.PriceRange.Min = min(s.PriceRange.Min, p.Price)
		s.PriceRange.Max = max(s.PriceRange.Max, p.Price)
		s.Statuses[string(p.Status)]++
		s.Bedrooms[bedroomBucket(p.Beds)]++
		cities[p.City] = struct{}{}
		types[p.PropertyType] = struct{}{}

		if d := p.EffectiveDate(); d != "" {
			if s.Dates.From == "" || d < s.Dates.From {
				s.Dates.From = d
			}
			if d > s.Dates.To {
				s.Dates.To = d
			}
		}
	}

	s.MedianPrice = Median(prices)
	s.AveragePrice = Average(prices)
	s.AvgSqft = Average(sqft)
	s.Cities = sortedKeys(cities)
	s.PropertyTypes = sortedKeys(types)
	return s
}

func bedroomBucket(beds float64) string {
	if beds >= 5 {
		return "5+"
	}
	return fmt.Sprintf("%d", int(beds))
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	if len(keys) > maxSummaryValues {
		keys = keys[:maxSummaryValues]
	}
	return keys
}
