package memory

import (
	"math"
	"testing"
	"time"
)

var mergeNow = time.Date(2025, time.March, 10, 15, 0, 0, 0, time.UTC)

func TestMerge_SeedsConfidenceForNewValues(t *testing.T) {
	p := NewPreferences()
	Merge(&p, []Observation{{Domain: DomainDietary, Value: "vegan"}}, mergeNow)

	if !containsString(p.DietaryRestrictions, "vegan") {
		t.Fatalf("vegan not added: %v", p.DietaryRestrictions)
	}
	if got := p.ConfidenceScores["dietary_vegan"]; got != 0.80 {
		t.Errorf("seed confidence = %v, want 0.80", got)
	}
	if p.InteractionCount != 1 {
		t.Errorf("interaction count = %d, want 1", p.InteractionCount)
	}
	if !p.LastUpdated.Equal(mergeNow) {
		t.Errorf("last updated = %v, want %v", p.LastUpdated, mergeNow)
	}
}

func TestMerge_SingleIncrementPerCall(t *testing.T) {
	p := NewPreferences()
	Merge(&p, []Observation{{Domain: DomainDietary, Value: "vegan"}}, mergeNow)

	// The same candidate repeated within one call must not double count.
	dup := []Observation{
		{Domain: DomainDietary, Value: "vegan"},
		{Domain: DomainDietary, Value: "vegan"},
	}
	Merge(&p, dup, mergeNow)

	want := 0.90 // 0.80 seed + one 0.10 increment
	if got := p.ConfidenceScores["dietary_vegan"]; math.Abs(got-want) > 1e-9 {
		t.Errorf("confidence = %v, want %v", got, want)
	}
	if len(p.DietaryRestrictions) != 1 {
		t.Errorf("vegan re-added: %v", p.DietaryRestrictions)
	}
}

func TestMerge_ConfidenceCeiling(t *testing.T) {
	p := NewPreferences()
	for range 20 {
		Merge(&p, []Observation{{Domain: DomainDietary, Value: "keto"}}, mergeNow)
	}
	if got := p.ConfidenceScores["dietary_keto"]; got != 0.95 {
		t.Errorf("dietary confidence = %v, want ceiling 0.95", got)
	}

	q := NewPreferences()
	for range 20 {
		Merge(&q, []Observation{{Domain: DomainQuality, Value: "organic"}}, mergeNow)
	}
	if got := q.ConfidenceScores["quality_organic"]; got != 0.90 {
		t.Errorf("quality confidence = %v, want ceiling 0.90", got)
	}
}

func TestMerge_VeganVegetarianConflict(t *testing.T) {
	p := NewPreferences()
	p.DietaryRestrictions = []string{"vegan", "vegetarian"}
	p.ConfidenceScores["dietary_vegan"] = 0.8
	p.ConfidenceScores["dietary_vegetarian"] = 0.8

	notes := Merge(&p, nil, mergeNow)

	if containsString(p.DietaryRestrictions, "vegetarian") {
		t.Errorf("vegetarian not removed: %v", p.DietaryRestrictions)
	}
	if !containsString(p.DietaryRestrictions, "vegan") {
		t.Errorf("vegan removed: %v", p.DietaryRestrictions)
	}
	if _, ok := p.ConfidenceScores["dietary_vegetarian"]; ok {
		t.Error("vegetarian confidence entry not removed")
	}
	if len(notes) == 0 {
		t.Error("expected a resolution note")
	}
}

func TestMerge_StoresKeepDuplicates(t *testing.T) {
	p := NewPreferences()
	Merge(&p, []Observation{{Domain: DomainStore, Value: "aldi"}}, mergeNow)
	Merge(&p, []Observation{{Domain: DomainStore, Value: "aldi"}}, mergeNow)

	if len(p.PreferredStores) != 2 {
		t.Errorf("stores = %v, want two aldi entries (frequency by repetition)", p.PreferredStores)
	}
	want := 0.80 // 0.70 seed + one increment
	if got := p.ConfidenceScores["store_aldi"]; math.Abs(got-want) > 1e-9 {
		t.Errorf("store confidence = %v, want %v", got, want)
	}
}

func TestMerge_BudgetGeneralization(t *testing.T) {
	p := NewPreferences()
	Merge(&p, []Observation{{Domain: DomainBudget, Value: BudgetConscious, Category: "dairy"}}, mergeNow)

	if _, ok := p.BudgetRanges["general"]; ok {
		t.Error("general entry set after a single category")
	}

	Merge(&p, []Observation{{Domain: DomainBudget, Value: BudgetConscious, Category: "carbohydrates"}}, mergeNow)

	if got := p.BudgetRanges["general"]; got != BudgetConscious {
		t.Errorf(`BudgetRanges["general"] = %q, want %q`, got, BudgetConscious)
	}
	// Insertion order preserved for rendering: dairy, carbohydrates, general.
	want := []string{"dairy", "carbohydrates", "general"}
	if len(p.BudgetOrder) != len(want) {
		t.Fatalf("budget order = %v, want %v", p.BudgetOrder, want)
	}
	for i, k := range want {
		if p.BudgetOrder[i] != k {
			t.Errorf("budget order[%d] = %q, want %q", i, p.BudgetOrder[i], k)
		}
	}
}

func TestMerge_TimePatterns(t *testing.T) {
	p := NewPreferences()
	Merge(&p, []Observation{{Domain: DomainTemporal, Value: "evening", Category: "dairy"}}, mergeNow)

	got := p.TimePatterns["evening"]
	if len(got) != 1 || got[0] != "dairy" {
		t.Errorf("time patterns = %v, want [dairy] under evening", p.TimePatterns)
	}
}

func TestValidate_ClampsConfidence(t *testing.T) {
	p := NewPreferences()
	p.ConfidenceScores["dietary_vegan"] = 1.7
	p.ConfidenceScores["quality_local"] = -0.3

	Validate(&p)

	if got := p.ConfidenceScores["dietary_vegan"]; got != 1.0 {
		t.Errorf("over-range confidence = %v, want 1.0", got)
	}
	if got := p.ConfidenceScores["quality_local"]; got != 0.0 {
		t.Errorf("under-range confidence = %v, want 0.0", got)
	}
}

func TestApplySuccessBoost(t *testing.T) {
	p := NewPreferences()
	p.DietaryRestrictions = []string{"gluten-free"}
	p.ConfidenceScores["dietary_gluten-free"] = 0.80

	applySuccessBoost(&p, "any gluten-free bread?", "here are some options")

	want := 0.85
	if got := p.ConfidenceScores["dietary_gluten-free"]; math.Abs(got-want) > 1e-9 {
		t.Errorf("confidence after boost = %v, want %v", got, want)
	}

	// No success keyword in the response: no boost.
	applySuccessBoost(&p, "any gluten-free bread?", "sorry, nothing matched")
	if got := p.ConfidenceScores["dietary_gluten-free"]; math.Abs(got-want) > 1e-9 {
		t.Errorf("confidence changed without success keywords: %v", got)
	}

	// Restriction not mentioned in the query: no boost.
	applySuccessBoost(&p, "cheap milk", "found several")
	if got := p.ConfidenceScores["dietary_gluten-free"]; math.Abs(got-want) > 1e-9 {
		t.Errorf("confidence changed without a query mention: %v", got)
	}
}
