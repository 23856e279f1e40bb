// Package coerce turns raw CSV cells into typed values. Every function is
// total: malformed input yields "absent" (ok == false), never an error.
package coerce

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/JeffBrines/RealEstateInsightsPub/internal/models"
)

// ISODate is the normalized date layout.
const ISODate = "2006-01-02"

// Value is the result of Coerce. Present is false for absent values.
type Value struct {
	Kind    models.Kind
	Present bool
	Number  float64
	Text    string
}

// Coerce converts raw according to kind. Dates are carried in Text as
// YYYY-MM-DD.
func Coerce(raw string, kind models.Kind) Value {
	v := Value{Kind: kind}
	switch kind {
	case models.KindNumber:
		v.Number, v.Present = Number(raw)
	case models.KindDate:
		v.Text, v.Present = Date(raw)
	default:
		v.Text, v.Present = Text(raw)
	}
	return v
}

// Number strips currency symbols, thousands separators and whitespace and
// parses the remainder. Non-finite results are absent.
func Number(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case '$', ',', ' ', '\t', '\u00a0':
			return -1
		}
		return r
	}, s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Int coerces a number and rounds it to the nearest integer.
func Int(raw string) (int, bool) {
	f, ok := Number(raw)
	if !ok || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(math.Round(f)), true
}

// Date parses a calendar date in any layout dateparse recognizes and
// normalizes it to YYYY-MM-DD, dropping time and zone. Ambiguous numeric
// dates read month first, as US MLS exports write them.
func Date(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return "", false
	}
	return t.Format(ISODate), true
}

// Text trims raw; empty is absent.
func Text(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	return s, s != ""
}
