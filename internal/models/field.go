package models

// Field names a canonical, coercible Property attribute.
type Field string

const (
	FieldListPrice     Field = "listPrice"
	FieldSalePrice     Field = "salePrice"
	FieldPrice         Field = "price"
	FieldAddress       Field = "address"
	FieldCity          Field = "city"
	FieldState         Field = "state"
	FieldZipCode       Field = "zipCode"
	FieldBeds          Field = "beds"
	FieldBaths         Field = "baths"
	FieldSqft          Field = "sqft"
	FieldLotSize       Field = "lotSize"
	FieldYearBuilt     Field = "yearBuilt"
	FieldPropertyType  Field = "propertyType"
	FieldStatus        Field = "status"
	FieldDaysOnMarket  Field = "daysOnMarket"
	FieldListDate      Field = "listDate"
	FieldSaleDate      Field = "saleDate"
	FieldHOAFees       Field = "hoaFees"
	FieldEstimatedRent Field = "estimatedRent"
	FieldPhotoURLs     Field = "photoUrls"
	FieldFinancing     Field = "financing"
	FieldLatitude      Field = "latitude"
	FieldLongitude     Field = "longitude"
)

// FieldID is not coercible; it only appears in exports.
const FieldID Field = "id"

// Kind is the coercion applied to a field's cells.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindDate
)

// FieldKinds gives the coercion kind of every canonical field.
var FieldKinds = map[Field]Kind{
	FieldListPrice:     KindNumber,
	FieldSalePrice:     KindNumber,
	FieldPrice:         KindNumber,
	FieldAddress:       KindText,
	FieldCity:          KindText,
	FieldState:         KindText,
	FieldZipCode:       KindText,
	FieldBeds:          KindNumber,
	FieldBaths:         KindNumber,
	FieldSqft:          KindNumber,
	FieldLotSize:       KindNumber,
	FieldYearBuilt:     KindNumber,
	FieldPropertyType:  KindText,
	FieldStatus:        KindText,
	FieldDaysOnMarket:  KindNumber,
	FieldListDate:      KindDate,
	FieldSaleDate:      KindDate,
	FieldHOAFees:       KindNumber,
	FieldEstimatedRent: KindNumber,
	FieldPhotoURLs:     KindText,
	FieldFinancing:     KindText,
	FieldLatitude:      KindNumber,
	FieldLongitude:     KindNumber,
}

// IsCanonical reports whether f is one of the coercible fields.
func (f Field) IsCanonical() bool {
	_, ok := FieldKinds[f]
	return ok
}

// PriceFields are the fields any of which can make a row acceptable.
var PriceFields = []Field{FieldPrice, FieldSalePrice, FieldListPrice}

// ColumnMapping maps a canonical field to the literal source header that
// supplies it. Unmapped fields are absent.
type ColumnMapping map[Field]string

// Has reports whether f is mapped.
func (m ColumnMapping) Has(f Field) bool {
	_, ok := m[f]
	return ok
}

// HasAny reports whether at least one of fs is mapped.
func (m ColumnMapping) HasAny(fs ...Field) bool {
	for _, f := range fs {
		if m.Has(f) {
			return true
		}
	}
	return false
}
