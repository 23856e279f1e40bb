package models

import "strings"

var cashTerms = []string{"cash", "all cash", "cash only"}

// IsCashTerms classifies a free-text financing cell. Anything that is not
// a cash term (conventional, fha, va, usda, seller carry, ...) counts as
// financed.
func IsCashTerms(terms string) bool {
	t := strings.ToLower(strings.TrimSpace(terms))
	for _, c := range cashTerms {
		if t == c {
			return true
		}
	}
	return strings.HasPrefix(t, "cash") && !strings.Contains(t, "out")
}
