package models

// Property is the canonical record produced by ingestion. Optional numeric
// fields are pointers; optional text and dates are empty when absent.
// Dates are ISO calendar dates (YYYY-MM-DD).
type Property struct {
	ID            string   `json:"id"`
	Address       string   `json:"address"`
	City          string   `json:"city"`
	State         string   `json:"state,omitempty"`
	ZipCode       string   `json:"zipCode,omitempty"`
	Price         float64  `json:"price"`
	ListPrice     *float64 `json:"listPrice,omitempty"`
	SalePrice     *float64 `json:"salePrice,omitempty"`
	Beds          float64  `json:"beds"`
	Baths         float64  `json:"baths"`
	Sqft          float64  `json:"sqft"`
	LotSize       *float64 `json:"lotSize,omitempty"`
	YearBuilt     *int     `json:"yearBuilt,omitempty"`
	PropertyType  string   `json:"propertyType"`
	Status        Status   `json:"status"`
	DaysOnMarket  *int     `json:"daysOnMarket,omitempty"`
	ListDate      string   `json:"listDate,omitempty"`
	SaleDate      string   `json:"saleDate,omitempty"`
	HOAFees       *float64 `json:"hoaFees,omitempty"`
	EstimatedRent *float64 `json:"estimatedRent,omitempty"`
	PhotoURLs     []string `json:"photoUrls,omitempty"`
	Financing     string   `json:"financing,omitempty"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
}

// EffectiveListPrice returns the list price when known, otherwise the price.
func (p *Property) EffectiveListPrice() float64 {
	if p.ListPrice != nil {
		return *p.ListPrice
	}
	return p.Price
}

// EffectiveDate is the date used for range filtering: sale date when
// present, else list date.
func (p *Property) EffectiveDate() string {
	if p.SaleDate != "" {
		return p.SaleDate
	}
	return p.ListDate
}

// PricePerSqft is always defined because sqft is never zero after ingestion.
func (p *Property) PricePerSqft() float64 {
	if p.Sqft <= 0 {
		return 0
	}
	return p.Price / p.Sqft
}

// HasCoordinates reports whether the record can be placed on a map.
func (p *Property) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// IsCashSale reports the financing kind. known is false when the record
// carries no financing information.
func (p *Property) IsCashSale() (cash bool, known bool) {
	if p.Financing == "" {
		return false, false
	}
	return IsCashTerms(p.Financing), true
}

// Subject describes the property being valued when selecting comparables.
type Subject struct {
	Sqft      float64  `json:"sqft" binding:"required"`
	Beds      float64  `json:"beds"`
	Baths     float64  `json:"baths"`
	ZipCode   string   `json:"zipCode,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// KPIData is the fixed statistic set computed over a record subset.
// SaleToListRatio is a ratio (0..1+); AbsorptionRate is already a percentage.
// CashVsFinancedRatio is nil when the source carries no financing data.
type KPIData struct {
	MedianSalePrice     float64  `json:"medianSalePrice"`
	AverageSalePrice    float64  `json:"averageSalePrice"`
	MedianListPrice     float64  `json:"medianListPrice"`
	AverageListPrice    float64  `json:"averageListPrice"`
	SaleToListRatio     float64  `json:"saleToListRatio"`
	PricePerSqft        float64  `json:"pricePerSqft"`
	AverageDaysOnMarket float64  `json:"averageDaysOnMarket"`
	MedianDaysOnMarket  float64  `json:"medianDaysOnMarket"`
	ClosedSalesCount    int      `json:"closedSalesCount"`
	NewListingsCount    int      `json:"newListingsCount"`
	MonthsOfInventory   float64  `json:"monthsOfInventory"`
	AbsorptionRate      float64  `json:"absorptionRate"`
	CashVsFinancedRatio *float64 `json:"cashVsFinancedRatio"`
	TotalProperties     int      `json:"totalProperties"`
}

// AreaStats aggregates one zip code.
type AreaStats struct {
	ZipCode         string  `json:"zipCode"`
	PropertyCount   int     `json:"propertyCount"`
	SoldCount       int     `json:"soldCount"`
	AveragePrice    float64 `json:"averagePrice"`
	MedianPrice     float64 `json:"medianPrice"`
	AvgPricePerSqft float64 `json:"avgPricePerSqft"`
}

// TrendPoint aggregates closed sales for one calendar month (YYYY-MM).
type TrendPoint struct {
	Month           string  `json:"month"`
	SoldCount       int     `json:"soldCount"`
	MedianSalePrice float64 `json:"medianSalePrice"`
	AvgPricePerSqft float64 `json:"avgPricePerSqft"`
}
