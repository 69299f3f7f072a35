package memory

import (
	"sort"
	"strings"
	"time"
)

// DefaultMaxQueryLen bounds queries accepted by the extractor, in bytes.
const DefaultMaxQueryLen = 2000

// Observation is one candidate preference update emitted by the extractor.
// For the budget domain Value is the sensitivity label and Category the
// product category it was observed in; for the temporal domain Value is the
// time-of-day bucket and Category the product category tag.
type Observation struct {
	Domain   Domain
	Value    string
	Category string
}

// keyword tables. Multiple keywords map to the same value (synonyms); a
// match emits at most one observation per value.
var dietaryKeywords = map[string][]string{
	"gluten-free": {"gluten-free", "gluten free", "celiac"},
	"vegan":       {"vegan", "plant-based", "no animal products"},
	"vegetarian":  {"vegetarian", "veggie", "no meat"},
	"keto":        {"keto", "ketogenic", "low-carb", "low carb"},
	"paleo":       {"paleo", "paleolithic", "caveman diet"},
	"dairy-free":  {"dairy-free", "dairy free", "lactose-free", "no dairy"},
}

var qualityKeywords = map[string][]string{
	"organic":     {"organic", "pesticide-free", "chemical-free"},
	"grass-fed":   {"grass-fed", "grass fed", "pasture-raised"},
	"non-gmo":     {"non-gmo", "non gmo", "gmo-free"},
	"free-range":  {"free-range", "free range", "cage-free"},
	"sustainable": {"sustainable", "eco-friendly", "environmentally friendly"},
	"local":       {"local", "locally sourced", "farm-fresh", "farmers market"},
}

var storeKeywords = map[string][]string{
	"walmart":     {"walmart"},
	"target":      {"target"},
	"kroger":      {"kroger"},
	"aldi":        {"aldi"},
	"lidl":        {"lidl"},
	"costco":      {"costco"},
	"whole-foods": {"whole foods", "wholefoods"},
	"trader-joes": {"trader joe"},
}

var budgetKeywords = []string{"affordable", "cheap", "budget", "inexpensive"}

// BudgetConscious is the sensitivity label recorded for budget observations.
const BudgetConscious = "budget-conscious"

// Extractor performs a pure lexical scan of a query. It holds no state; the
// temporal domain is the only input beyond the query text itself.
type Extractor struct {
	MaxQueryLen int
}

// NewExtractor returns an Extractor with the default query length limit.
func NewExtractor() *Extractor {
	return &Extractor{MaxQueryLen: DefaultMaxQueryLen}
}

// Extract scans query and returns candidate observations. Over-length
// queries yield no candidates and ErrQueryTooLong; callers treat that as an
// empty candidate set, not a failure.
func (e *Extractor) Extract(query string, now time.Time) ([]Observation, error) {
	limit := e.MaxQueryLen
	if limit <= 0 {
		limit = DefaultMaxQueryLen
	}
	if len(query) > limit {
		return nil, ErrQueryTooLong
	}

	q := strings.ToLower(query)
	var obs []Observation

	for _, value := range sortedKeys(dietaryKeywords) {
		if matchesAny(q, dietaryKeywords[value]) {
			obs = append(obs, Observation{Domain: DomainDietary, Value: value})
		}
	}
	for _, value := range sortedKeys(qualityKeywords) {
		if matchesAny(q, qualityKeywords[value]) {
			obs = append(obs, Observation{Domain: DomainQuality, Value: value})
		}
	}
	for _, value := range sortedKeys(storeKeywords) {
		if matchesAny(q, storeKeywords[value]) {
			obs = append(obs, Observation{Domain: DomainStore, Value: value})
		}
	}

	if matchesAny(q, budgetKeywords) {
		obs = append(obs, Observation{
			Domain:   DomainBudget,
			Value:    BudgetConscious,
			Category: productCategory(q),
		})
	}

	if bucket := TimeBucket(now.Hour()); bucket != "" {
		if tag := timeCategoryTag(q); tag != "" {
			obs = append(obs, Observation{Domain: DomainTemporal, Value: bucket, Category: tag})
		}
	}

	return obs, nil
}

// TimeBucket maps an hour of day to its bucket label. Hours outside the
// defined windows (0–5) map to "".
func TimeBucket(hour int) string {
	switch {
	case hour >= 6 && hour <= 10:
		return "morning"
	case hour >= 11 && hour <= 14:
		return "midday"
	case hour >= 15 && hour <= 19:
		return "evening"
	case hour >= 20 && hour <= 23:
		return "night"
	}
	return ""
}

// productCategory picks the budget category a query refers to.
func productCategory(q string) string {
	switch {
	case strings.Contains(q, "bread") || strings.Contains(q, "pasta"):
		return "carbohydrates"
	case strings.Contains(q, "milk") || strings.Contains(q, "dairy"):
		return "dairy"
	}
	return "general"
}

// timeCategoryTag extracts the product category tag recorded against a time
// bucket, or "" when the query mentions no tracked category.
func timeCategoryTag(q string) string {
	switch {
	case strings.Contains(q, "bread") || strings.Contains(q, "pasta"):
		return "carbohydrates"
	case strings.Contains(q, "milk") || strings.Contains(q, "cheese"):
		return "dairy"
	}
	return ""
}

// sortedKeys keeps extraction order deterministic across map iterations.
func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func matchesAny(q string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}
