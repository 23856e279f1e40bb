package ingest

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JeffBrines/RealEstateInsightsPub/internal/coerce"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/models"
)

// ErrRowRejected marks a row the transformer refused. The wrapped message
// is a human-readable reason for diagnostics only.
var ErrRowRejected = errors.New("row rejected")

// Defaults used by the lenient acceptance policy.
const (
	DefaultSqft         = 1000.0
	DefaultPropertyType = "Single Family"
	DefaultAddress      = "Unknown Address"
	DefaultCity         = "Unknown"
)

// Options tunes the transformer and the pipeline.
type Options struct {
	// Placeholder living area so price per sqft stays defined
	DefaultSqft float64

	DefaultPropertyType string
	DefaultAddress      string
	DefaultCity         string

	// Row-level diagnostics kept per file
	MaxDiagnostics int

	// NewID generates record ids; uuid.NewString when nil
	NewID func() string
}

// DefaultOptions returns the lenient policy defaults.
func DefaultOptions() Options {
	return Options{
		DefaultSqft:         DefaultSqft,
		DefaultPropertyType: DefaultPropertyType,
		DefaultAddress:      DefaultAddress,
		DefaultCity:         DefaultCity,
		MaxDiagnostics:      10,
		NewID:               uuid.NewString,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.DefaultSqft <= 0 {
		o.DefaultSqft = d.DefaultSqft
	}
	if o.DefaultPropertyType == "" {
		o.DefaultPropertyType = d.DefaultPropertyType
	}
	if o.DefaultAddress == "" {
		o.DefaultAddress = d.DefaultAddress
	}
	if o.DefaultCity == "" {
		o.DefaultCity = d.DefaultCity
	}
	if o.MaxDiagnostics <= 0 {
		o.MaxDiagnostics = d.MaxDiagnostics
	}
	if o.NewID == nil {
		o.NewID = d.NewID
	}
	return o
}

// Row is one raw data row keyed by source header.
type Row map[string]string

// Transformer applies the lenient acceptance policy: a row is kept when
// any price-like field is a positive number; every other missing field
// falls back to a default.
type Transformer struct {
	mapping models.ColumnMapping
	opts    Options
}

// NewTransformer binds a mapping and options.
func NewTransformer(mapping models.ColumnMapping, opts Options) *Transformer {
	return &Transformer{mapping: mapping, opts: opts.withDefaults()}
}

// TransformRow transforms a single row with default options.
func TransformRow(row Row, mapping models.ColumnMapping) (models.Property, error) {
	return NewTransformer(mapping, DefaultOptions()).Transform(row)
}

// Transform produces a canonical record or an ErrRowRejected error.
func (t *Transformer) Transform(row Row) (models.Property, error) {
	var p models.Property

	p.Status = models.ParseStatus(t.cell(row, models.FieldStatus))

	price, hasPrice := t.positive(row, models.FieldPrice)
	sale, hasSale := t.positive(row, models.FieldSalePrice)
	list, hasList := t.positive(row, models.FieldListPrice)

	switch {
	case hasPrice:
		p.Price = price
	case hasSale && p.Status.IsSold():
		p.Price = sale
	case hasList:
		p.Price = list
	case hasSale:
		p.Price = sale
	default:
		return models.Property{}, fmt.Errorf("%w: no positive value in %s", ErrRowRejected, t.priceColumns())
	}
	if hasList {
		p.ListPrice = &list
	}
	// Only explicit columns populate these; sale-to-list needs the real pair
	if hasSale {
		p.SalePrice = &sale
	}

	p.Address = t.textOr(row, models.FieldAddress, t.opts.DefaultAddress)
	p.City = t.textOr(row, models.FieldCity, t.opts.DefaultCity)
	p.State, _ = coerce.Text(t.cell(row, models.FieldState))
	p.ZipCode, _ = coerce.Text(t.cell(row, models.FieldZipCode))
	p.PropertyType = t.textOr(row, models.FieldPropertyType, t.opts.DefaultPropertyType)

	p.Beds = t.nonNegative(row, models.FieldBeds)
	p.Baths = t.nonNegative(row, models.FieldBaths)
	p.Sqft = t.opts.DefaultSqft
	if sqft, ok := t.positive(row, models.FieldSqft); ok {
		p.Sqft = sqft
	}
	if lot, ok := t.positive(row, models.FieldLotSize); ok {
		p.LotSize = &lot
	}
	if year, ok := coerce.Int(t.cell(row, models.FieldYearBuilt)); ok && year > 0 {
		p.YearBuilt = &year
	}

	p.ListDate, _ = coerce.Date(t.cell(row, models.FieldListDate))
	p.SaleDate, _ = coerce.Date(t.cell(row, models.FieldSaleDate))
	if dom, ok := coerce.Int(t.cell(row, models.FieldDaysOnMarket)); ok && dom >= 0 {
		p.DaysOnMarket = &dom
	} else if dom, ok := daysBetween(p.ListDate, p.SaleDate); ok {
		p.DaysOnMarket = &dom
	}

	if hoa, ok := coerce.Number(t.cell(row, models.FieldHOAFees)); ok && hoa >= 0 {
		p.HOAFees = &hoa
	}
	if rent, ok := t.positive(row, models.FieldEstimatedRent); ok {
		p.EstimatedRent = &rent
	}
	p.PhotoURLs = splitURLs(t.cell(row, models.FieldPhotoURLs))
	p.Financing, _ = coerce.Text(t.cell(row, models.FieldFinancing))

	if lat, ok := coerce.Number(t.cell(row, models.FieldLatitude)); ok && lat >= -90 && lat <= 90 {
		if lng, ok := coerce.Number(t.cell(row, models.FieldLongitude)); ok && lng >= -180 && lng <= 180 {
			p.Latitude = &lat
			p.Longitude = &lng
		}
	}

	p.ID = t.opts.NewID()
	return p, nil
}

func (t *Transformer) cell(row Row, f models.Field) string {
	h, ok := t.mapping[f]
	if !ok {
		return ""
	}
	return row[h]
}

func (t *Transformer) positive(row Row, f models.Field) (float64, bool) {
	v, ok := coerce.Number(t.cell(row, f))
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}

func (t *Transformer) nonNegative(row Row, f models.Field) float64 {
	v, ok := coerce.Number(t.cell(row, f))
	if !ok || v < 0 {
		return 0
	}
	return v
}

func (t *Transformer) textOr(row Row, f models.Field, fallback string) string {
	if s, ok := coerce.Text(t.cell(row, f)); ok {
		return s
	}
	return fallback
}

func (t *Transformer) priceColumns() string {
	var cols []string
	for _, f := range models.PriceFields {
		if h, ok := t.mapping[f]; ok {
			cols = append(cols, fmt.Sprintf("%q", h))
		}
	}
	if len(cols) == 0 {
		return "any price column"
	}
	return strings.Join(cols, ", ")
}

// daysBetween returns the whole days from list to sale date.
func daysBetween(listDate, saleDate string) (int, bool) {
	if listDate == "" || saleDate == "" {
		return 0, false
	}
	from, err := time.Parse(coerce.ISODate, listDate)
	if err != nil {
		return 0, false
	}
	to, err := time.Parse(coerce.ISODate, saleDate)
	if err != nil || to.Before(from) {
		return 0, false
	}
	return int(to.Sub(from).Hours() / 24), true
}

func splitURLs(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		switch r {
		case ',', ';', '|', ' ', '\n', '\t':
			return true
		}
		return false
	})
	var urls []string
	for _, part := range parts {
		if strings.HasPrefix(part, "http://") || strings.HasPrefix(part, "https://") {
			urls = append(urls, part)
		}
	}
	return urls
}
