package assistant

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/dustin/go-humanize"

	"github.com/JeffBrines/RealEstateInsightsPub/internal/filter"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/models"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/stats"
)

type intent int

const (
	intentOverview intent = iota
	intentDaysOnMarket
	intentPricePerSqft
	intentInventory
	intentSaleToList
	intentCash
	intentCheapest
	intentPriciest
	intentMedian
	intentAverage
	intentCount
	intentAreas
)

// intentKeywords is checked in order; the first intent with a keyword
// starting a word of the question wins.
var intentKeywords = []struct {
	intent   intent
	keywords []string
}{
	{intentDaysOnMarket, []string{"days on market", "dom", "how long", "how fast", "how quickly"}},
	{intentPricePerSqft, []string{"per sq", "per square", "ppsf", "sqft", "square foot", "square feet"}},
	{intentInventory, []string{"inventory", "absorption", "supply", "buyer s market", "seller s market"}},
	{intentSaleToList, []string{"sale to list", "list to sale", "asking", "negotiat"}},
	{intentCash, []string{"cash", "financ"}},
	{intentCheapest, []string{"cheapest", "lowest", "least expensive"}},
	{intentPriciest, []string{"most expensive", "highest", "priciest"}},
	{intentMedian, []string{"median"}},
	{intentAverage, []string{"average", "avg", "mean", "typical"}},
	{intentCount, []string{"how many", "count", "number of", "total"}},
	{intentAreas, []string{"which cities", "what cities", "which areas", "what areas", "zip codes", "neighborhoods"}},
}

var (
	bedsPattern     = regexp.MustCompile(`(\d+)\s*\+?\s*(?:bed|br\b|bd\b)`)
	bathsPattern    = regexp.MustCompile(`(\d+(?:\.5)?)\s*\+?\s*(?:bath|ba\b)`)
	maxPricePattern = regexp.MustCompile(`(?:under|below|less than|cheaper than|up to|at most)\s*\$?\s*(\d[\d,]*(?:\.\d+)?)\s*(k|m|million|thousand)?\b(\s*(?:sq|square|bed|bath))?`)
	minPricePattern = regexp.MustCompile(`(?:over|above|more than|at least)\s*\$?\s*(\d[\d,]*(?:\.\d+)?)\s*(k|m|million|thousand)?\b(\s*(?:sq|square|bed|bath))?`)
	yearPattern     = regexp.MustCompile(`\b(in|during|since)\s+((?:19|20)\d{2})\b`)
	zipPattern      = regexp.MustCompile(`\b(\d{5})\b`)
)

// Fallback answers questions from locally computed statistics. The same
// question over the same records always yields the same answer.
type Fallback struct {
	now func() time.Time
}

// NewFallback returns a fallback answerer. A nil clock uses time.Now.
func NewFallback(now func() time.Time) *Fallback {
	if now == nil {
		now = time.Now
	}
	return &Fallback{now: now}
}

// Answer applies the active filters plus any filters inferred from the
// question, then answers from the matching records.
func (f *Fallback) Answer(query string, records []models.Property, active *models.FilterSpec) Answer {
	q := normalizeQuery(query)

	inferred := inferFilters(q, records)
	spec := models.FilterSpec{}
	if active != nil {
		spec = *active
	}
	spec = spec.Merge(inferred)
	subset := filter.Apply(records, spec)
	kpi := stats.Compute(subset, f.now())

	ans := Answer{Source: SourceFallback, Data: map[string]any{"count": len(subset)}}
	if !inferred.IsEmpty() {
		ans.Filters = &inferred
	}

	if len(subset) == 0 {
		ans.Answer = "No properties match that question with the current filters."
		return ans
	}

	switch detectIntent(q) {
	case intentDaysOnMarket:
		ans.Data["averageDaysOnMarket"] = round1(kpi.AverageDaysOnMarket)
		ans.Data["medianDaysOnMarket"] = kpi.MedianDaysOnMarket
		ans.Answer = fmt.Sprintf("Across %s, homes spent an average of %.1f days on market (median %g).",
			plural(len(subset), "property", "properties"), kpi.AverageDaysOnMarket, kpi.MedianDaysOnMarket)
	case intentPricePerSqft:
		ans.Data["pricePerSqft"] = round1(kpi.PricePerSqft)
		ans.Answer = fmt.Sprintf("The average price per square foot across %s is %s.",
			plural(len(subset), "property", "properties"), money(kpi.PricePerSqft))
	case intentInventory:
		ans.Data["monthsOfInventory"] = round1(kpi.MonthsOfInventory)
		ans.Data["absorptionRate"] = round1(kpi.AbsorptionRate)
		ans.Answer = fmt.Sprintf("There are %.1f months of inventory and an absorption rate of %.1f%%. %s",
			kpi.MonthsOfInventory, kpi.AbsorptionRate, marketBalance(kpi.MonthsOfInventory))
	case intentSaleToList:
		if kpi.SaleToListRatio == 0 {
			ans.Answer = "Sale-to-list ratio is unavailable: no sold records carry both a list and a sale price."
			break
		}
		ans.Data["saleToListRatio"] = round3(kpi.SaleToListRatio)
		ans.Answer = fmt.Sprintf("Sold homes closed at %.1f%% of list price on average.", kpi.SaleToListRatio*100)
	case intentCash:
		if kpi.CashVsFinancedRatio == nil {
			ans.Answer = "Cash versus financed share is unavailable: the data has no financing column."
			break
		}
		ans.Data["cashVsFinancedRatio"] = round3(*kpi.CashVsFinancedRatio)
		ans.Answer = fmt.Sprintf("%.1f%% of sales with known financing were cash.", *kpi.CashVsFinancedRatio*100)
	case intentCheapest:
		p := extreme(subset, false)
		ans.Data["property"] = p
		ans.Answer = fmt.Sprintf("The lowest priced property is %s in %s at %s.", p.Address, p.City, money(p.Price))
	case intentPriciest:
		p := extreme(subset, true)
		ans.Data["property"] = p
		ans.Answer = fmt.Sprintf("The highest priced property is %s in %s at %s.", p.Address, p.City, money(p.Price))
	case intentMedian:
		ans.Data["medianSalePrice"] = kpi.MedianSalePrice
		ans.Data["medianListPrice"] = kpi.MedianListPrice
		ans.Answer = fmt.Sprintf("The median sale price is %s and the median list price is %s.",
			money(kpi.MedianSalePrice), money(kpi.MedianListPrice))
	case intentAverage:
		ans.Data["averageSalePrice"] = math.Round(kpi.AverageSalePrice)
		ans.Data["averageListPrice"] = math.Round(kpi.AverageListPrice)
		ans.Answer = fmt.Sprintf("The average sale price is %s and the average list price is %s.",
			money(kpi.AverageSalePrice), money(kpi.AverageListPrice))
	case intentCount:
		ans.Data["closedSalesCount"] = kpi.ClosedSalesCount
		ans.Answer = fmt.Sprintf("%s match, %d of them sold.",
			capitalize(plural(len(subset), "property", "properties")), kpi.ClosedSalesCount)
	case intentAreas:
		areas := stats.ByArea(subset)
		ans.Data["areas"] = areas
		summary := stats.Summarize(subset)
		ans.Answer = fmt.Sprintf("The data covers %s across %s.",
			plural(len(summary.Cities), "city", "cities"), plural(len(areas), "zip code", "zip codes"))
		if len(summary.Cities) > 0 {
			ans.Answer += " Cities: " + strings.Join(summary.Cities, ", ") + "."
		}
	default:
		ans.Data["kpis"] = kpi
		ans.Answer = fmt.Sprintf("%s match. Median sale price %s, average %.1f days on market, %.1f months of inventory.",
			capitalize(plural(len(subset), "property", "properties")), money(kpi.MedianSalePrice),
			kpi.AverageDaysOnMarket, kpi.MonthsOfInventory)
	}
	return ans
}

// normalizeQuery lowercases, turns punctuation into spaces and pads the
// result with spaces. Separators inside numbers ("450,000", "2.5") stay.
func normalizeQuery(query string) string {
	runes := []rune(query)
	var b strings.Builder
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '$', r == '+':
			b.WriteRune(unicode.ToLower(r))
		case (r == '.' || r == ',') && i > 0 && i+1 < len(runes) &&
			unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return " " + strings.Join(strings.Fields(b.String()), " ") + " "
}

func detectIntent(q string) intent {
	for _, entry := range intentKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(q, " "+kw) {
				return entry.intent
			}
		}
	}
	return intentOverview
}

func inferFilters(q string, records []models.Property) models.FilterSpec {
	var spec models.FilterSpec

	if m := bedsPattern.FindStringSubmatch(q); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			spec.MinBeds = &v
		}
	}
	if m := bathsPattern.FindStringSubmatch(q); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			spec.MinBaths = &v
		}
	}
	if v, ok := priceBound(maxPricePattern, q); ok {
		spec.MaxPrice = &v
	}
	if v, ok := priceBound(minPricePattern, q); ok {
		spec.MinPrice = &v
	}
	if m := yearPattern.FindStringSubmatch(q); m != nil {
		spec.DateFrom = m[2] + "-01-01"
		if m[1] != "since" {
			spec.DateTo = m[2] + "-12-31"
		}
	}

	switch statuses := mentionedStatuses(q); len(statuses) {
	case 1:
		spec.Status = string(statuses[0])
	}

	cities, zips, types := distinctValues(records)
	for _, city := range cities {
		if strings.Contains(q, " "+strings.ToLower(city)+" ") {
			spec.City = city
			break
		}
	}
	for _, m := range zipPattern.FindAllStringSubmatch(q, -1) {
		if slices.Contains(zips, m[1]) {
			spec.ZipCode = m[1]
			break
		}
	}
	for _, t := range types {
		if strings.Contains(q, " "+strings.ToLower(t)) {
			spec.PropertyTypes = append(spec.PropertyTypes, t)
		}
	}
	return spec
}

// priceBound reads an amount such as "$450,000", "450k" or "1.2m". Sizes
// and room counts are not prices, nor is anything under 1000.
func priceBound(re *regexp.Regexp, q string) (float64, bool) {
	m := re.FindStringSubmatch(q)
	if m == nil || m[3] != "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	switch m[2] {
	case "k", "thousand":
		v *= 1_000
	case "m", "million":
		v *= 1_000_000
	}
	if v < 1000 {
		return 0, false
	}
	return v, true
}

var statusWords = []struct {
	status models.Status
	words  []string
}{
	{models.StatusSold, []string{"sold", "closed", "sales"}},
	{models.StatusActive, []string{"active", "for sale", "listed", "on the market"}},
	{models.StatusPending, []string{"pending", "under contract"}},
	{models.StatusWithdrawn, []string{"withdrawn", "expired", "cancelled"}},
}

func mentionedStatuses(q string) []models.Status {
	var found []models.Status
	for _, sw := range statusWords {
		for _, w := range sw.words {
			if strings.Contains(q, " "+w+" ") {
				found = append(found, sw.status)
				break
			}
		}
	}
	return found
}

// distinctValues returns sorted distinct cities, zips and property types,
// longest first for cities and types so "north austin" beats "austin".
func distinctValues(records []models.Property) (cities, zips, types []string) {
	seen := make(map[string]struct{})
	add := func(dst *[]string, kind, v string) {
		if v == "" {
			return
		}
		key := kind + "\x00" + strings.ToLower(v)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		*dst = append(*dst, v)
	}
	for i := range records {
		if records[i].City != "Unknown" {
			add(&cities, "c", records[i].City)
		}
		add(&zips, "z", records[i].ZipCode)
		add(&types, "t", records[i].PropertyType)
	}
	byLength := func(a, b string) int {
		if len(a) != len(b) {
			return len(b) - len(a)
		}
		return strings.Compare(a, b)
	}
	slices.SortFunc(cities, byLength)
	slices.SortFunc(types, byLength)
	slices.Sort(zips)
	return cities, zips, types
}

func extreme(records []models.Property, highest bool) models.Property {
	best := records[0]
	for _, p := range records[1:] {
		if (highest && p.Price > best.Price) || (!highest && p.Price < best.Price) {
			best = p
		}
	}
	return best
}

func marketBalance(months float64) string {
	switch {
	case months < 4:
		return "That points to a seller's market."
	case months > 6:
		return "That points to a buyer's market."
	}
	return "That is a balanced market."
}

func money(v float64) string {
	if math.Abs(v) < 1000 {
		return "$" + strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
	}
	return "$" + humanize.Comma(int64(math.Round(v)))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return humanize.Comma(int64(n)) + " " + many
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
