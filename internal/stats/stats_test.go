package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JeffBrines/RealEstateInsightsPub/internal/models"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

var now = time.Date(2024, time.March, 18, 12, 0, 0, 0, time.UTC)

func TestMedian(t *testing.T) {
	tests := []struct {
		name     string
		input    []float64
		expected float64
	}{
		{"Empty", nil, 0},
		{"Single", []float64{7}, 7},
		{"Odd unsorted", []float64{400000, 200000, 250000}, 250000},
		{"Even takes mean of middles", []float64{4, 1, 3, 2}, 2.5},
		{"Duplicates", []float64{5, 5, 1}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Median(tt.input))
		})
	}
}

func TestMedian_DoesNotReorderInput(t *testing.T) {
	xs := []float64{3, 1, 2}
	Median(xs)
	assert.Equal(t, []float64{3, 1, 2}, xs)
}

func TestAverage(t *testing.T) {
	assert.Equal(t, 0.0, Average(nil))
	assert.Equal(t, 2.0, Average([]float64{1, 2, 3}))
	assert.InDelta(t, 283333.33, Average([]float64{200000, 250000, 400000}), 0.01)
}

func TestCompute_Empty(t *testing.T) {
	assert.Equal(t, models.KPIData{}, Compute(nil, now))
}

func TestCompute_SoldPrices(t *testing.T) {
	records := []models.Property{
		{Price: 200000, Sqft: 1000, Status: models.StatusSold},
		{Price: 250000, Sqft: 1000, Status: models.StatusSold},
		{Price: 400000, Sqft: 2000, Status: models.StatusSold},
	}

	kpi := Compute(records, now)
	assert.Equal(t, 250000.0, kpi.MedianSalePrice)
	assert.InDelta(t, 283333.33, kpi.AverageSalePrice, 0.01)
	assert.Equal(t, 3, kpi.ClosedSalesCount)
	assert.Equal(t, 100.0, kpi.AbsorptionRate)
	assert.Equal(t, 3, kpi.TotalProperties)
	assert.InDelta(t, 216.67, kpi.PricePerSqft, 0.01)
	assert.Nil(t, kpi.CashVsFinancedRatio)
}

func TestCompute_MonthsOfInventoryFloor(t *testing.T) {
	records := make([]models.Property, 10)
	for i := range records {
		records[i] = models.Property{Price: 300000, Sqft: 1500, Status: models.StatusActive}
	}

	kpi := Compute(records, now)
	assert.Equal(t, 10.0, kpi.MonthsOfInventory)
	assert.Equal(t, 0.0, kpi.AbsorptionRate)
}

func TestCompute_FullSet(t *testing.T) {
	records := []models.Property{
		{Price: 500000, ListPrice: fptr(480000), SalePrice: fptr(500000), Sqft: 2000, Status: models.StatusSold,
			SaleDate: "2024-03-02", ListDate: "2024-02-01", DaysOnMarket: iptr(30), Financing: "Cash"},
		{Price: 300000, ListPrice: fptr(320000), SalePrice: fptr(300000), Sqft: 1500, Status: models.StatusSold,
			SaleDate: "2024-02-20", ListDate: "2024-01-05", DaysOnMarket: iptr(46), Financing: "Conventional"},
		{Price: 250000, Sqft: 1000, Status: models.StatusSold, SaleDate: "2024-03-10", DaysOnMarket: iptr(10)},
		{Price: 450000, ListPrice: fptr(450000), Sqft: 1800, Status: models.StatusActive, ListDate: "2024-03-01"},
		{Price: 350000, Sqft: 1400, Status: models.StatusActive, ListDate: "2024-03-15"},
		{Price: 390000, Sqft: 1300, Status: models.StatusPending, ListDate: "2023-03-15"},
	}

	kpi := Compute(records, now)

	assert.Equal(t, 300000.0, kpi.MedianSalePrice)
	assert.InDelta(t, 350000.0, kpi.AverageSalePrice, 0.001)
	// effective list prices: 480000 320000 250000 450000 350000 390000
	assert.Equal(t, 370000.0, kpi.MedianListPrice)
	assert.InDelta(t, 373333.33, kpi.AverageListPrice, 0.01)
	assert.InDelta(t, (500000.0/480000+300000.0/320000)/2, kpi.SaleToListRatio, 1e-9)
	assert.InDelta(t, 28.67, kpi.AverageDaysOnMarket, 0.01)
	assert.Equal(t, 30.0, kpi.MedianDaysOnMarket)
	assert.Equal(t, 3, kpi.ClosedSalesCount)
	assert.Equal(t, 2, kpi.NewListingsCount)
	// two active listings over two sales this month
	assert.Equal(t, 1.0, kpi.MonthsOfInventory)
	assert.Equal(t, 50.0, kpi.AbsorptionRate)
	require.NotNil(t, kpi.CashVsFinancedRatio)
	assert.Equal(t, 0.5, *kpi.CashVsFinancedRatio)
	assert.Equal(t, 6, kpi.TotalProperties)
}

func TestCompute_SaleToListNeedsExplicitPair(t *testing.T) {
	records := []models.Property{
		{Price: 500000, ListPrice: fptr(400000), Sqft: 1000, Status: models.StatusSold},
	}
	// salePrice missing, so no ratio even though price is set
	assert.Equal(t, 0.0, Compute(records, now).SaleToListRatio)
}

func TestCompute_Deterministic(t *testing.T) {
	records := []models.Property{
		{Price: 1, Sqft: 1, Status: models.StatusSold, SaleDate: "2024-03-01"},
		{Price: 2, Sqft: 1, Status: models.StatusActive, ListDate: "2024-03-01"},
	}
	assert.Equal(t, Compute(records, now), Compute(records, now))
}
