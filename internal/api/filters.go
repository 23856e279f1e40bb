package api

import (
	"strings"

	"github.com/JeffBrines/RealEstateInsightsPub/internal/models"
)

// FilterQuery is the filter carried in query parameters.
type FilterQuery struct {
	StartDate string   `form:"startDate"`
	EndDate   string   `form:"endDate"`
	MinPrice  *float64 `form:"minPrice"`
	MaxPrice  *float64 `form:"maxPrice"`
	City      string   `form:"city"`
	Zip       string   `form:"zip"`
	MinBeds   *float64 `form:"minBeds"`
	MinBaths  *float64 `form:"minBaths"`
	// Comma separated
	Types  string `form:"types"`
	Status string `form:"status"`
}

// Spec converts the query into a filter spec.
func (q FilterQuery) Spec() models.FilterSpec {
	spec := models.FilterSpec{
		DateFrom: strings.TrimSpace(q.StartDate),
		DateTo:   strings.TrimSpace(q.EndDate),
		MinPrice: q.MinPrice,
		MaxPrice: q.MaxPrice,
		City:     strings.TrimSpace(q.City),
		ZipCode:  strings.TrimSpace(q.Zip),
		MinBeds:  q.MinBeds,
		MinBaths: q.MinBaths,
		Status:   strings.TrimSpace(q.Status),
	}
	for _, t := range strings.Split(q.Types, ",") {
		if t = strings.TrimSpace(t); t != "" {
			spec.PropertyTypes = append(spec.PropertyTypes, t)
		}
	}
	return spec
}
