package models

import "strings"

// Status is the closed set of listing states every record is normalized to.
type Status string

const (
	StatusActive    Status = "Active"
	StatusSold      Status = "Sold"
	StatusPending   Status = "Pending"
	StatusWithdrawn Status = "Withdrawn"
	StatusUnknown   Status = "Unknown"
)

// Statuses lists every variant in display order.
var Statuses = []Status{StatusActive, StatusPending, StatusSold, StatusWithdrawn, StatusUnknown}

// statusAliases maps lower-cased vendor spellings and MLS short codes onto
// exactly one variant.
var statusAliases = map[string]Status{
	"active":                 StatusActive,
	"a":                      StatusActive,
	"act":                    StatusActive,
	"new":                    StatusActive,
	"new listing":            StatusActive,
	"for sale":               StatusActive,
	"available":              StatusActive,
	"listed":                 StatusActive,
	"coming soon":            StatusActive,
	"back on market":         StatusActive,
	"bom":                    StatusActive,
	"price change":           StatusActive,
	"sold":                   StatusSold,
	"s":                      StatusSold,
	"sld":                    StatusSold,
	"closed":                 StatusSold,
	"closed sale":            StatusSold,
	"c":                      StatusSold,
	"cls":                    StatusSold,
	"pending":                StatusPending,
	"p":                      StatusPending,
	"pnd":                    StatusPending,
	"pend":                   StatusPending,
	"under contract":         StatusPending,
	"uc":                     StatusPending,
	"u":                      StatusPending,
	"contingent":             StatusPending,
	"ct":                     StatusPending,
	"active under contract":  StatusPending,
	"auc":                    StatusPending,
	"option pending":         StatusPending,
	"pending sale":           StatusPending,
	"withdrawn":              StatusWithdrawn,
	"w":                      StatusWithdrawn,
	"wd":                     StatusWithdrawn,
	"expired":                StatusWithdrawn,
	"x":                      StatusWithdrawn,
	"exp":                    StatusWithdrawn,
	"cancelled":              StatusWithdrawn,
	"canceled":               StatusWithdrawn,
	"terminated":             StatusWithdrawn,
	"t":                      StatusWithdrawn,
	"off market":             StatusWithdrawn,
	"temporarily off market": StatusWithdrawn,
}

// ParseStatus normalizes a raw status cell. Unrecognized input is Unknown.
func ParseStatus(raw string) Status {
	key := strings.ToLower(strings.Join(strings.Fields(raw), " "))
	key = strings.Trim(key, ".")
	if key == "" {
		return StatusUnknown
	}
	if s, ok := statusAliases[key]; ok {
		return s
	}
	for _, s := range Statuses {
		if strings.EqualFold(key, string(s)) {
			return s
		}
	}
	return StatusUnknown
}

// IsSold reports membership in the closed/sold family.
func (s Status) IsSold() bool { return s == StatusSold }

// IsActive reports membership in the active family.
func (s Status) IsActive() bool { return s == StatusActive }

// Valid reports whether s is one of the enumerated variants.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}
