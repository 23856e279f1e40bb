package models

// FilterSpec is the structured filter applied to a record set. Every field
// is optional; an unset field imposes no constraint. Date bounds are
// inclusive ISO dates.
type FilterSpec struct {
	DateFrom      string   `json:"dateFrom,omitempty"`
	DateTo        string   `json:"dateTo,omitempty"`
	MinPrice      *float64 `json:"minPrice,omitempty"`
	MaxPrice      *float64 `json:"maxPrice,omitempty"`
	City          string   `json:"city,omitempty"`
	ZipCode       string   `json:"zipCode,omitempty"`
	MinBeds       *float64 `json:"minBeds,omitempty"`
	MinBaths      *float64 `json:"minBaths,omitempty"`
	PropertyTypes []string `json:"propertyTypes,omitempty"`
	Status        string   `json:"status,omitempty"`
}

// IsEmpty reports whether the filter constrains nothing.
func (f *FilterSpec) IsEmpty() bool {
	if f == nil {
		return true
	}
	return f.DateFrom == "" && f.DateTo == "" &&
		f.MinPrice == nil && f.MaxPrice == nil &&
		f.City == "" && f.ZipCode == "" &&
		f.MinBeds == nil && f.MinBaths == nil &&
		len(f.PropertyTypes) == 0 && f.Status == ""
}

// Merge returns a copy of f with every populated field of patch applied.
func (f FilterSpec) Merge(patch FilterSpec) FilterSpec {
	out := f
	if patch.DateFrom != "" {
		out.DateFrom = patch.DateFrom
	}
	if patch.DateTo != "" {
		out.DateTo = patch.DateTo
	}
	if patch.MinPrice != nil {
		out.MinPrice = patch.MinPrice
	}
	if patch.MaxPrice != nil {
		out.MaxPrice = patch.MaxPrice
	}
	if patch.City != "" {
		out.City = patch.City
	}
	if patch.ZipCode != "" {
		out.ZipCode = patch.ZipCode
	}
	if patch.MinBeds != nil {
		out.MinBeds = patch.MinBeds
	}
	if patch.MinBaths != nil {
		out.MinBaths = patch.MinBaths
	}
	if len(patch.PropertyTypes) > 0 {
		out.PropertyTypes = append([]string(nil), patch.PropertyTypes...)
	}
	if patch.Status != "" {
		out.Status = patch.Status
	}
	return out
}
