package memory

import "time"

// Domain identifies a category of learned preference.
type Domain string

const (
	DomainDietary  Domain = "dietary"
	DomainQuality  Domain = "quality"
	DomainTemporal Domain = "temporal"
	DomainBudget   Domain = "budget"
	DomainStore    Domain = "store"
)

// Preferences is the persisted per-user preference record. The store owns it;
// the learner borrows it for one turn and writes back a new version.
type Preferences struct {
	DietaryRestrictions []string            `json:"dietary_restrictions"`
	QualityPreferences  []string            `json:"quality_preferences"`
	PreferredStores     []string            `json:"preferred_stores"` // duplicates carry frequency
	BudgetRanges        map[string]string   `json:"budget_ranges"`    // category → sensitivity label
	BudgetOrder         []string            `json:"budget_order"`     // insertion order of BudgetRanges keys
	TimePatterns        map[string][]string `json:"time_patterns"`    // time bucket → category tags
	ConfidenceScores    map[string]float64  `json:"confidence_scores"`
	InteractionCount    int                 `json:"interaction_count"`
	LastUpdated         time.Time           `json:"last_updated"`
}

// NewPreferences returns an empty record with all collections allocated.
func NewPreferences() Preferences {
	return Preferences{
		BudgetRanges:     make(map[string]string),
		TimePatterns:     make(map[string][]string),
		ConfidenceScores: make(map[string]float64),
	}
}

// Clone returns a deep copy so a turn can mutate locally and persist atomically.
func (p Preferences) Clone() Preferences {
	cp := p
	cp.DietaryRestrictions = append([]string(nil), p.DietaryRestrictions...)
	cp.QualityPreferences = append([]string(nil), p.QualityPreferences...)
	cp.PreferredStores = append([]string(nil), p.PreferredStores...)
	cp.BudgetOrder = append([]string(nil), p.BudgetOrder...)
	cp.BudgetRanges = make(map[string]string, len(p.BudgetRanges))
	for k, v := range p.BudgetRanges {
		cp.BudgetRanges[k] = v
	}
	cp.TimePatterns = make(map[string][]string, len(p.TimePatterns))
	for k, v := range p.TimePatterns {
		cp.TimePatterns[k] = append([]string(nil), v...)
	}
	cp.ConfidenceScores = make(map[string]float64, len(p.ConfidenceScores))
	for k, v := range p.ConfidenceScores {
		cp.ConfidenceScores[k] = v
	}
	return cp
}

// normalize allocates nil collections and repairs BudgetOrder after a load
// from storage, so merge and render code never checks for nil maps.
func (p *Preferences) normalize() {
	if p.BudgetRanges == nil {
		p.BudgetRanges = make(map[string]string)
	}
	if p.TimePatterns == nil {
		p.TimePatterns = make(map[string][]string)
	}
	if p.ConfidenceScores == nil {
		p.ConfidenceScores = make(map[string]float64)
	}
	// Entries written by an older record may be missing from the order slice.
	seen := make(map[string]bool, len(p.BudgetOrder))
	for _, k := range p.BudgetOrder {
		seen[k] = true
	}
	for k := range p.BudgetRanges {
		if !seen[k] {
			p.BudgetOrder = append(p.BudgetOrder, k)
		}
	}
}

// InsightKind classifies a generated insight.
type InsightKind string

const (
	KindPattern        InsightKind = "pattern"
	KindRecommendation InsightKind = "recommendation"
	KindPrediction     InsightKind = "prediction"
)

// Insight is an ephemeral judgment derived from a profile each turn.
// Insights are never persisted.
type Insight struct {
	Kind            InsightKind
	Confidence      float64
	Description     string
	Evidence        []string
	Recommendation  string
	TemporalContext string
}

// Actionable reports whether the insight is strong enough for proactive
// prompt injection.
func (i Insight) Actionable() bool { return i.Confidence >= actionableThreshold }

const actionableThreshold = 0.8

// Pattern is one append-only shopping-pattern log entry, written at the end
// of a turn and never mutated afterward.
type Pattern struct {
	QueryType         string    `json:"query_type"`
	Frequency         int       `json:"frequency"`
	SuccessRate       float64   `json:"success_rate"`
	LastUsed          time.Time `json:"last_used"`
	SeasonalRelevance []string  `json:"seasonal_relevance"`
	TimeRelevance     []string  `json:"time_relevance"`
}

// Clock abstracts wall-clock time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
