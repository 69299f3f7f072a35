package catalog

import (
	"strings"

	"github.com/cartwise/cartwise/internal/memory"
)

// Reranker re-scores search results using what the assistant has learned
// about the user.
type Reranker interface {
	Rerank(prefs memory.Preferences, results []ScoredPromotion) []ScoredPromotion
}

// NewReranker returns a PreferenceReranker if enabled, NoOpReranker otherwise.
func NewReranker(enabled bool) Reranker {
	if !enabled {
		return &NoOpReranker{}
	}
	return &PreferenceReranker{}
}

// Boost weights applied on top of the lexical score. Dietary matches
// outrank store and budget matches so restriction-safe products surface
// first.
const (
	dietaryBoost = 0.6
	qualityBoost = 0.4
	storeBoost   = 0.3
	budgetBoost  = 0.2
)

// PreferenceReranker boosts promotions that match the user's learned
// dietary restrictions, quality preferences, preferred stores, and budget
// sensitivity. Only preferences above the confidence floor participate.
type PreferenceReranker struct{}

const confidenceFloor = 0.7

// Rerank applies preference boosts and re-sorts by score descending.
// Results are never dropped; an unmatched promotion keeps its lexical score.
func (r *PreferenceReranker) Rerank(prefs memory.Preferences, results []ScoredPromotion) []ScoredPromotion {
	if len(results) == 0 {
		return results
	}

	topStore := memory.MostFrequentStore(prefs.PreferredStores)
	budgetConscious := len(prefs.BudgetRanges) > 0

	for i := range results {
		p := &results[i]
		promoText := strings.ToLower(p.Promotion.Product + " " + p.Promotion.Description + " " + strings.Join(DecodeTags(p.Promotion.Tags), " "))

		for _, d := range prefs.DietaryRestrictions {
			if prefs.ConfidenceScores[scoreKey(memory.DomainDietary, d)] < confidenceFloor {
				continue
			}
			if strings.Contains(promoText, strings.ToLower(d)) {
				p.Score += dietaryBoost
			}
		}
		for _, q := range prefs.QualityPreferences {
			if prefs.ConfidenceScores[scoreKey(memory.DomainQuality, q)] < confidenceFloor {
				continue
			}
			if strings.Contains(promoText, strings.ToLower(q)) {
				p.Score += qualityBoost
			}
		}
		if topStore != "" && strings.EqualFold(p.Promotion.Store, topStore) {
			p.Score += storeBoost
		}
		if budgetConscious && p.Promotion.PriceCents > 0 && p.Promotion.PriceCents < cheapThresholdCents {
			p.Score += budgetBoost
		}
	}

	sortByScore(results)
	return results
}

// cheapThresholdCents marks a promotion as budget-friendly.
const cheapThresholdCents = 500

// scoreKey mirrors the confidence-score key format the learner writes.
func scoreKey(d memory.Domain, value string) string {
	return string(d) + "_" + value
}

// NoOpReranker passes results through unchanged. Used when personalization
// is disabled.
type NoOpReranker struct{}

func (n *NoOpReranker) Rerank(_ memory.Preferences, results []ScoredPromotion) []ScoredPromotion {
	return results
}
