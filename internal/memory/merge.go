package memory

import (
	"fmt"
	"strings"
	"time"
)

// confidencePolicy holds the per-domain scoring parameters: the score a value
// gets on first observation, the fixed bump for a repeat observation, and the
// ceiling repeated observations converge to.
type confidencePolicy struct {
	seed      float64
	increment float64
	ceiling   float64
}

var confidencePolicies = map[Domain]confidencePolicy{
	DomainDietary:  {seed: 0.80, increment: 0.10, ceiling: 0.95},
	DomainQuality:  {seed: 0.75, increment: 0.10, ceiling: 0.90},
	DomainStore:    {seed: 0.70, increment: 0.10, ceiling: 0.90},
	DomainBudget:   {seed: 0.80, increment: 0.10, ceiling: 0.95},
	DomainTemporal: {seed: 0.70, increment: 0.10, ceiling: 0.90},
}

// successBoost is the extra confidence applied when a dietary keyword appears
// in both the query and a success-indicating response.
const successBoost = 0.05

func confidenceKey(d Domain, value string) string {
	return fmt.Sprintf("%s_%s", d, value)
}

// Merge folds candidate observations into p, mutating it in place. Each
// distinct candidate contributes at most one confidence increment per call,
// so callers must invoke Merge exactly once per turn. After all candidates
// are applied it runs conflict validation, applies the cross-domain budget
// rule, and advances the interaction counter. The returned notes describe
// resolved conflicts; they are for logging only and never persisted.
func Merge(p *Preferences, candidates []Observation, now time.Time) []string {
	p.normalize()

	for _, obs := range dedupe(candidates) {
		switch obs.Domain {
		case DomainDietary:
			applyListValue(p, &p.DietaryRestrictions, obs)
		case DomainQuality:
			applyListValue(p, &p.QualityPreferences, obs)
		case DomainStore:
			// Stores keep duplicates: repetition carries frequency.
			p.PreferredStores = append(p.PreferredStores, obs.Value)
			bumpConfidence(p, obs.Domain, obs.Value)
		case DomainBudget:
			category := obs.Category
			if category == "" {
				category = "general"
			}
			if _, ok := p.BudgetRanges[category]; !ok {
				p.BudgetRanges[category] = obs.Value
				p.BudgetOrder = append(p.BudgetOrder, category)
			}
			bumpConfidence(p, obs.Domain, obs.Value)
		case DomainTemporal:
			if obs.Category != "" {
				p.TimePatterns[obs.Value] = append(p.TimePatterns[obs.Value], obs.Category)
			}
			bumpConfidence(p, obs.Domain, obs.Value)
		}
		// Unrecognized domains are discarded silently; the extractor is the
		// only producer and the merge must stay robust to its bugs.
	}

	generalizeBudget(p)
	notes := Validate(p)

	p.InteractionCount++
	p.LastUpdated = now
	return notes
}

// applyListValue appends a new value to a set-like list and seeds its
// confidence, or bumps confidence when already present.
func applyListValue(p *Preferences, list *[]string, obs Observation) {
	if !containsString(*list, obs.Value) {
		*list = append(*list, obs.Value)
	}
	bumpConfidence(p, obs.Domain, obs.Value)
}

// bumpConfidence seeds an unseen value at the domain seed, or raises a known
// value by the domain increment up to its ceiling.
func bumpConfidence(p *Preferences, d Domain, value string) {
	policy := confidencePolicies[d]
	key := confidenceKey(d, value)
	current, ok := p.ConfidenceScores[key]
	if !ok {
		p.ConfidenceScores[key] = policy.seed
		return
	}
	p.ConfidenceScores[key] = min(policy.ceiling, current+policy.increment)
}

// generalizeBudget applies the cross-domain rule: budget-conscious in two or
// more distinct categories implies store-wide budget consciousness.
func generalizeBudget(p *Preferences) {
	count := 0
	for category, label := range p.BudgetRanges {
		if category != "general" && label == BudgetConscious {
			count++
		}
	}
	if count >= 2 {
		if _, ok := p.BudgetRanges["general"]; !ok {
			p.BudgetOrder = append(p.BudgetOrder, "general")
		}
		p.BudgetRanges["general"] = BudgetConscious
	}
}

// Validate restores the record invariants: mutually exclusive dietary pairs
// resolve toward the more restrictive label, and confidence values are
// clamped into [0,1] regardless of what the extractor produced. Returns
// human-readable resolution notes.
func Validate(p *Preferences) []string {
	p.normalize()
	var notes []string

	if containsString(p.DietaryRestrictions, "vegan") && containsString(p.DietaryRestrictions, "vegetarian") {
		p.DietaryRestrictions = removeString(p.DietaryRestrictions, "vegetarian")
		delete(p.ConfidenceScores, confidenceKey(DomainDietary, "vegetarian"))
		notes = append(notes, "resolved vegan/vegetarian conflict: kept vegan")
	}

	for key, score := range p.ConfidenceScores {
		if score > 1.0 {
			p.ConfidenceScores[key] = 1.0
		} else if score < 0.0 {
			p.ConfidenceScores[key] = 0.0
		}
	}

	return notes
}

// applySuccessBoost raises dietary confidence when the restriction was
// mentioned in the query and the response indicates a successful outcome.
func applySuccessBoost(p *Preferences, queryLower, responseLower string) {
	if !matchesAny(responseLower, successKeywords) {
		return
	}
	policy := confidencePolicies[DomainDietary]
	for _, restriction := range p.DietaryRestrictions {
		if !mentionsRestriction(queryLower, restriction) {
			continue
		}
		key := confidenceKey(DomainDietary, restriction)
		current, ok := p.ConfidenceScores[key]
		if !ok {
			current = policy.seed
		}
		p.ConfidenceScores[key] = min(policy.ceiling, current+successBoost)
	}
}

// successKeywords mark a response as a positive outcome.
var successKeywords = []string{"found", "here are", "available", "options"}

func mentionsRestriction(queryLower, restriction string) bool {
	if strings.Contains(queryLower, restriction) {
		return true
	}
	spaced := strings.ReplaceAll(restriction, "-", " ")
	return spaced != restriction && strings.Contains(queryLower, spaced)
}

func dedupe(candidates []Observation) []Observation {
	seen := make(map[Observation]bool, len(candidates))
	out := candidates[:0:0]
	for _, c := range candidates {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
