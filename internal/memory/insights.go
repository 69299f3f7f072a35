package memory

import (
	"fmt"
	"strings"
)

// Fixed confidences per insight rule.
const (
	patternConfidence        = 0.80
	recommendationConfidence = 0.90
	temporalConfidence       = 0.70
	budgetConfidence         = 0.85
)

// recentPatternWindow bounds how many recent pattern-log entries the pattern
// rule inspects.
const recentPatternWindow = 5

// Generator derives ephemeral insights from a profile and the recent
// pattern log. All rules are evaluated on every call; none short-circuits
// the others.
type Generator struct {
	clock Clock
}

// NewGenerator returns a Generator on the real clock.
func NewGenerator() *Generator {
	return &Generator{clock: realClock{}}
}

// NewGeneratorWithClock returns a Generator with a custom clock (for testing).
func NewGeneratorWithClock(clock Clock) *Generator {
	return &Generator{clock: clock}
}

// Generate runs every insight rule against the profile and the most-recent
// pattern entries (most-recent-first). Deterministic given its inputs except
// for the wall-clock-derived temporal rule.
func (g *Generator) Generate(p Preferences, recent []Pattern) []Insight {
	var insights []Insight

	if in, ok := g.patternInsight(p, recent); ok {
		insights = append(insights, in)
	}
	if in, ok := g.recommendationInsight(p); ok {
		insights = append(insights, in)
	}
	if in, ok := g.temporalInsight(); ok {
		insights = append(insights, in)
	}
	if in, ok := g.budgetInsight(p); ok {
		insights = append(insights, in)
	}

	return insights
}

// patternInsight fires after three interactions when the recent pattern log
// shows at least two distinct query types.
func (g *Generator) patternInsight(p Preferences, recent []Pattern) (Insight, bool) {
	if p.InteractionCount < 3 {
		return Insight{}, false
	}
	if len(recent) > recentPatternWindow {
		recent = recent[:recentPatternWindow]
	}

	var types []string
	distinct := make(map[string]bool)
	for _, pat := range recent {
		types = append(types, pat.QueryType)
		distinct[pat.QueryType] = true
	}
	if len(distinct) < 2 {
		return Insight{}, false
	}

	// Distinct types in first-seen order, for a stable description.
	var ordered []string
	seen := make(map[string]bool)
	for _, t := range types {
		if !seen[t] {
			seen[t] = true
			ordered = append(ordered, t)
		}
	}

	return Insight{
		Kind:           KindPattern,
		Confidence:     patternConfidence,
		Description:    fmt.Sprintf("Cross-category shopping pattern detected: %s", strings.Join(ordered, ", ")),
		Evidence:       []string{fmt.Sprintf("Recent searches: %s", strings.Join(types, ", "))},
		Recommendation: "Consider bundling related items in future recommendations",
	}, true
}

// recommendationInsight aggregates one evidence line per matched condition.
func (g *Generator) recommendationInsight(p Preferences) (Insight, bool) {
	if len(p.DietaryRestrictions) == 0 && len(p.PreferredStores) == 0 {
		return Insight{}, false
	}

	var evidence []string
	if containsString(p.DietaryRestrictions, "gluten-free") {
		evidence = append(evidence, "Consider suggesting gluten-free alternatives automatically")
	}
	if containsString(p.QualityPreferences, "organic") {
		evidence = append(evidence, "Prioritize organic options in search results")
	}
	if top := MostFrequentStore(p.PreferredStores); top != "" {
		evidence = append(evidence, fmt.Sprintf("Focus searches on %s for better personalization", top))
	}
	if len(evidence) == 0 {
		return Insight{}, false
	}

	return Insight{
		Kind:           KindRecommendation,
		Confidence:     recommendationConfidence,
		Description:    "Proactive recommendation opportunities identified",
		Evidence:       evidence,
		Recommendation: "Implement proactive filtering and suggestions",
	}, true
}

// temporalInsight predicts the shopping context from the current hour.
// Outside the defined buckets (0–5 local time) no insight is produced.
func (g *Generator) temporalInsight() (Insight, bool) {
	now := g.clock.Now()
	var label string
	switch TimeBucket(now.Hour()) {
	case "morning":
		label = "morning breakfast planning"
	case "midday":
		label = "lunch preparation"
	case "evening":
		label = "dinner planning"
	case "night":
		label = "next-day meal prep"
	default:
		return Insight{}, false
	}

	return Insight{
		Kind:            KindPrediction,
		Confidence:      temporalConfidence,
		Description:     fmt.Sprintf("Temporal pattern: user shopping during %s time", label),
		Evidence:        []string{fmt.Sprintf("Current time: %d:00 on %s", now.Hour(), now.Weekday())},
		Recommendation:  fmt.Sprintf("Tailor recommendations for %s", label),
		TemporalContext: label,
	}, true
}

// budgetInsight fires when any category carries an explicitly price-focused
// sensitivity label. Labels recorded by the merge step ("budget-conscious")
// do not qualify; only labels supplied externally, e.g. via the config
// tools, can trigger this rule.
func (g *Generator) budgetInsight(p Preferences) (Insight, bool) {
	var categories []string
	for _, category := range p.BudgetOrder {
		label := strings.ToLower(p.BudgetRanges[category])
		if strings.Contains(label, "affordable") || strings.Contains(label, "cheap") {
			categories = append(categories, category)
		}
	}
	if len(categories) == 0 {
		return Insight{}, false
	}

	return Insight{
		Kind:           KindPattern,
		Confidence:     budgetConfidence,
		Description:    fmt.Sprintf("Budget-conscious pattern in categories: %s", strings.Join(categories, ", ")),
		Evidence:       []string{fmt.Sprintf("Budget sensitivity in %d categories", len(categories))},
		Recommendation: "Prioritize value options and highlight cost savings",
	}, true
}

// MostFrequentStore returns the store with the highest raw occurrence count
// in the stored sequence, ties broken by first occurrence. Returns "" for an
// empty sequence.
func MostFrequentStore(stores []string) string {
	if len(stores) == 0 {
		return ""
	}
	counts := make(map[string]int, len(stores))
	for _, s := range stores {
		counts[s]++
	}
	best := ""
	bestCount := 0
	for _, s := range stores {
		if counts[s] > bestCount {
			best = s
			bestCount = counts[s]
		}
	}
	return best
}
