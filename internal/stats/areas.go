package stats

import (
	"cmp"
	"slices"

	"github.com/JeffBrines/RealEstateInsightsPub/internal/models"
)

// ByArea groups records by zip code. Records without a zip are skipped.
// Results are ordered by zip.
func ByArea(records []models.Property) []models.AreaStats {
	type bucket struct {
		prices, perSqft []float64
		sold            int
	}
	buckets := make(map[string]*bucket)
	for i := range records {
		p := &records[i]
		if p.ZipCode == "" {
			continue
		}
		b, ok := buckets[p.ZipCode]
		if !ok {
			b = &bucket{}
			buckets[p.ZipCode] = b
		}
		b.prices = append(b.prices, p.Price)
		b.perSqft = append(b.perSqft, p.PricePerSqft())
		if p.Status.IsSold() {
			b.sold++
		}
	}

	areas := make([]models.AreaStats, 0, len(buckets))
	for zip, b := range buckets {
		areas = append(areas, models.AreaStats{
			ZipCode:         zip,
			PropertyCount:   len(b.prices),
			SoldCount:       b.sold,
			AveragePrice:    Average(b.prices),
			MedianPrice:     Median(b.prices),
			AvgPricePerSqft: Average(b.perSqft),
		})
	}
	slices.SortFunc(areas, func(a, b models.AreaStats) int { return cmp.Compare(a.ZipCode, b.ZipCode) })
	return areas
}

// MonthlyTrend aggregates closed sales by sale month, oldest first.
// Sold records without a sale date are skipped.
func MonthlyTrend(records []models.Property) []models.TrendPoint {
	type bucket struct{ prices, perSqft []float64 }
	buckets := make(map[string]*bucket)
	for i := range records {
		p := &records[i]
		if !p.Status.IsSold() || len(p.SaleDate) < 7 {
			continue
		}
		month := p.SaleDate[:7]
		b, ok := buckets[month]
		if !ok {
			b = &bucket{}
			buckets[month] = b
		}
		b.prices = append(b.prices, p.Price)
		b.perSqft = append(b.perSqft, p.PricePerSqft())
	}

	trend := make([]models.TrendPoint, 0, len(buckets))
	for month, b := range buckets {
		trend = append(trend, models.TrendPoint{
			Month:           month,
			SoldCount:       len(b.prices),
			MedianSalePrice: Median(b.prices),
			AvgPricePerSqft: Average(b.perSqft),
		})
	}
	slices.SortFunc(trend, func(a, b models.TrendPoint) int { return cmp.Compare(a.Month, b.Month) })
	return trend
}
