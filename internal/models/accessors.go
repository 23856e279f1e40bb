package models

import "strings"

// NumberField returns a numeric field by name. ok is false for absent
// optional values and for non-numeric fields.
func (p *Property) NumberField(f Field) (float64, bool) {
	switch f {
	case FieldPrice:
		return p.Price, true
	case FieldListPrice:
		return deref(p.ListPrice)
	case FieldSalePrice:
		return deref(p.SalePrice)
	case FieldBeds:
		return p.Beds, true
	case FieldBaths:
		return p.Baths, true
	case FieldSqft:
		return p.Sqft, true
	case FieldLotSize:
		return deref(p.LotSize)
	case FieldYearBuilt:
		if p.YearBuilt == nil {
			return 0, false
		}
		return float64(*p.YearBuilt), true
	case FieldDaysOnMarket:
		if p.DaysOnMarket == nil {
			return 0, false
		}
		return float64(*p.DaysOnMarket), true
	case FieldHOAFees:
		return deref(p.HOAFees)
	case FieldEstimatedRent:
		return deref(p.EstimatedRent)
	case FieldLatitude:
		return deref(p.Latitude)
	case FieldLongitude:
		return deref(p.Longitude)
	}
	return 0, false
}

// TextField returns a text or date field by name. Photo URLs are joined
// with "|".
func (p *Property) TextField(f Field) string {
	switch f {
	case FieldID:
		return p.ID
	case FieldAddress:
		return p.Address
	case FieldCity:
		return p.City
	case FieldState:
		return p.State
	case FieldZipCode:
		return p.ZipCode
	case FieldPropertyType:
		return p.PropertyType
	case FieldStatus:
		return string(p.Status)
	case FieldListDate:
		return p.ListDate
	case FieldSaleDate:
		return p.SaleDate
	case FieldFinancing:
		return p.Financing
	case FieldPhotoURLs:
		return strings.Join(p.PhotoURLs, "|")
	}
	return ""
}

func deref(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}
