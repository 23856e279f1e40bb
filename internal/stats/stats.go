// Package stats computes market statistics over record subsets. Every
// function is total: empty input yields zero values, never an error.
package stats

import (
	"slices"
	"time"

	"github.com/JeffBrines/RealEstateInsightsPub/internal/models"
)

// Median sorts a copy of xs. Even lengths average the two middle values.
func Median(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	sorted := slices.Clone(xs)
	slices.Sort(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Average is the arithmetic mean, 0 for empty input.
func Average(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Compute derives the KPI set from records. now fixes the calendar month
// used by the new-listings and sold-this-month counts.
func Compute(records []models.Property, now time.Time) models.KPIData {
	kpi := models.KPIData{TotalProperties: len(records)}
	if len(records) == 0 {
		return kpi
	}

	month := now.Format("2006-01")

	var (
		salePrices, listPrices []float64
		saleToList, perSqft    []float64
		doms                   []float64
		active, soldThisMonth  int
		cashSales, knownTerms  int
	)
	for i := range records {
		p := &records[i]

		if lp := p.EffectiveListPrice(); lp > 0 {
			listPrices = append(listPrices, lp)
		}
		if p.Sqft > 0 {
			perSqft = append(perSqft, p.PricePerSqft())
		}
		if p.DaysOnMarket != nil {
			doms = append(doms, float64(*p.DaysOnMarket))
		}
		if inMonth(p.ListDate, month) {
			kpi.NewListingsCount++
		}

		switch {
		case p.Status.IsActive():
			active++
		case p.Status.IsSold():
			kpi.ClosedSalesCount++
			if p.Price > 0 {
				salePrices = append(salePrices, p.Price)
			}
			if p.SalePrice != nil && p.ListPrice != nil && *p.ListPrice > 0 {
				saleToList = append(saleToList, *p.SalePrice / *p.ListPrice)
			}
			if inMonth(p.SaleDate, month) {
				soldThisMonth++
			}
			if cash, known := p.IsCashSale(); known {
				knownTerms++
				if cash {
					cashSales++
				}
			}
		}
	}

	kpi.MedianSalePrice = Median(salePrices)
	kpi.AverageSalePrice = Average(salePrices)
	kpi.MedianListPrice = Median(listPrices)
	kpi.AverageListPrice = Average(listPrices)
	kpi.SaleToListRatio = Average(saleToList)
	kpi.PricePerSqft = Average(perSqft)
	kpi.AverageDaysOnMarket = Average(doms)
	kpi.MedianDaysOnMarket = Median(doms)
	kpi.MonthsOfInventory = float64(active) / float64(max(soldThisMonth, 1))
	kpi.AbsorptionRate = float64(kpi.ClosedSalesCount) / float64(len(records)) * 100
	if knownTerms > 0 {
		ratio := float64(cashSales) / float64(knownTerms)
		kpi.CashVsFinancedRatio = &ratio
	}
	return kpi
}

// inMonth reports whether an ISO date falls in month (YYYY-MM).
func inMonth(date, month string) bool {
	return len(date) >= len(month) && date[:len(month)] == month
}
