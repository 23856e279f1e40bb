package comps

import (
	"github.com/JeffBrines/RealEstateInsightsPub/internal/models"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/stats"
)

// Summary condenses a comparable set into a valuation.
type Summary struct {
	Count              int     `json:"count"`
	AveragePrice       float64 `json:"averagePrice"`
	MedianPrice        float64 `json:"medianPrice"`
	MedianPricePerSqft float64 `json:"medianPricePerSqft"`
	LowPrice           float64 `json:"lowPrice"`
	HighPrice          float64 `json:"highPrice"`
	// Median price per sqft applied to the subject's size
	SuggestedValue float64 `json:"suggestedValue"`
}

// Summarize values the subject from its comparables. With no comparables
// every figure is zero.
func Summarize(subject models.Subject, comparables []models.Property) Summary {
	s := Summary{Count: len(comparables)}
	if len(comparables) == 0 {
		return s
	}

	prices := make([]float64, len(comparables))
	perSqft := make([]float64, len(comparables))
	s.LowPrice, s.HighPrice = comparables[0].Price, comparables[0].Price
	for i := range comparables {
		p := &comparables[i]
		prices[i] = p.Price
		perSqft[i] = p.PricePerSqft()
		s.LowPrice = min(s.LowPrice, p.Price)
		s.HighPrice = max(s.HighPrice, p.Price)
	}

	s.AveragePrice = stats.Average(prices)
	s.MedianPrice = stats.Median(prices)
	s.MedianPricePerSqft = stats.Median(perSqft)
	s.SuggestedValue = s.MedianPricePerSqft * subject.Sqft
	return s
}
