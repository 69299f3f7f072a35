package memory

import (
	"fmt"
	"sort"
	"strings"
)

// Rendering limits for the injected context block.
const (
	maxRenderedStores   = 3
	maxRenderedBudgets  = 2
	maxRenderedInsights = 2
)

// BuildContext renders the profile and insights into a bounded plain-text
// block for prompt injection. The main summary is pipe-delimited; proactive
// recommendation and timing lines follow, one per qualifying insight.
func BuildContext(p Preferences, insights []Insight, query string) string {
	p.normalize()
	var parts []string

	if len(p.DietaryRestrictions) > 0 {
		parts = append(parts, "DIETARY: "+strings.Join(p.DietaryRestrictions, ", "))
	}
	if len(p.QualityPreferences) > 0 {
		parts = append(parts, "QUALITY: "+strings.Join(p.QualityPreferences, ", "))
	}
	if stores := uniqueStores(p.PreferredStores, maxRenderedStores); len(stores) > 0 {
		parts = append(parts, "STORES: "+strings.Join(stores, ", "))
	}
	if len(p.BudgetOrder) > 0 {
		var items []string
		for _, category := range p.BudgetOrder {
			if len(items) == maxRenderedBudgets {
				break
			}
			items = append(items, fmt.Sprintf("%s:%s", category, p.BudgetRanges[category]))
		}
		parts = append(parts, "BUDGET: "+strings.Join(items, ", "))
	}

	if summaries := topInsightSummaries(insights); len(summaries) > 0 {
		parts = append(parts, "INSIGHTS: "+strings.Join(summaries, " | "))
	}

	if p.InteractionCount > 0 {
		parts = append(parts, fmt.Sprintf("HISTORY: %d interactions", p.InteractionCount))
	}

	var sb strings.Builder
	sb.WriteString(strings.Join(parts, " | "))

	for _, in := range insights {
		if in.Recommendation != "" && in.Actionable() {
			sb.WriteString("\nPROACTIVE: " + in.Recommendation)
		}
		if in.TemporalContext != "" {
			sb.WriteString("\nTIMING: " + in.TemporalContext)
		}
	}

	return sb.String()
}

// uniqueStores de-duplicates preserving first occurrence, capped at limit.
func uniqueStores(stores []string, limit int) []string {
	seen := make(map[string]bool, len(stores))
	var out []string
	for _, s := range stores {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}
	return out
}

// topInsightSummaries picks the strongest actionable insights, confidence
// descending with ties kept in insertion order.
func topInsightSummaries(insights []Insight) []string {
	var actionable []Insight
	for _, in := range insights {
		if in.Actionable() {
			actionable = append(actionable, in)
		}
	}
	sort.SliceStable(actionable, func(i, j int) bool {
		return actionable[i].Confidence > actionable[j].Confidence
	})
	if len(actionable) > maxRenderedInsights {
		actionable = actionable[:maxRenderedInsights]
	}

	var summaries []string
	for _, in := range actionable {
		summaries = append(summaries, fmt.Sprintf("%s: %s", in.Kind, in.Description))
	}
	return summaries
}
