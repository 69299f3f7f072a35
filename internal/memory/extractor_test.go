package memory

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// 3pm: inside the "evening" bucket.
var extractNow = time.Date(2025, time.March, 10, 15, 0, 0, 0, time.UTC)

func extract(t *testing.T, query string) []Observation {
	t.Helper()
	obs, err := NewExtractor().Extract(query, extractNow)
	if err != nil {
		t.Fatalf("Extract(%q) error: %v", query, err)
	}
	return obs
}

func hasObservation(obs []Observation, d Domain, value string) bool {
	for _, o := range obs {
		if o.Domain == d && o.Value == value {
			return true
		}
	}
	return false
}

func TestExtract_Dietary(t *testing.T) {
	obs := extract(t, "I need organic gluten-free bread")

	if !hasObservation(obs, DomainDietary, "gluten-free") {
		t.Errorf("expected gluten-free dietary observation, got %v", obs)
	}
	if !hasObservation(obs, DomainQuality, "organic") {
		t.Errorf("expected organic quality observation, got %v", obs)
	}
}

func TestExtract_SynonymsDoNotDoubleCount(t *testing.T) {
	obs := extract(t, "gluten-free gluten free celiac friendly snacks")

	count := 0
	for _, o := range obs {
		if o.Domain == DomainDietary && o.Value == "gluten-free" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly 1 gluten-free observation, got %d", count)
	}
}

func TestExtract_CaseInsensitive(t *testing.T) {
	obs := extract(t, "VEGAN cheese from WALMART")

	if !hasObservation(obs, DomainDietary, "vegan") {
		t.Errorf("expected vegan observation, got %v", obs)
	}
	if !hasObservation(obs, DomainStore, "walmart") {
		t.Errorf("expected walmart observation, got %v", obs)
	}
}

func TestExtract_BudgetCategory(t *testing.T) {
	tests := []struct {
		query    string
		category string
	}{
		{"cheap bread please", "carbohydrates"},
		{"affordable milk", "dairy"},
		{"budget snacks", "general"},
	}
	for _, tt := range tests {
		obs := extract(t, tt.query)
		found := false
		for _, o := range obs {
			if o.Domain == DomainBudget {
				found = true
				if o.Value != BudgetConscious {
					t.Errorf("%q: budget value = %q, want %q", tt.query, o.Value, BudgetConscious)
				}
				if o.Category != tt.category {
					t.Errorf("%q: budget category = %q, want %q", tt.query, o.Category, tt.category)
				}
			}
		}
		if !found {
			t.Errorf("%q: no budget observation", tt.query)
		}
	}
}

func TestExtract_TemporalBucket(t *testing.T) {
	morning := time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)
	obs, err := NewExtractor().Extract("milk for breakfast", morning)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}

	found := false
	for _, o := range obs {
		if o.Domain == DomainTemporal {
			found = true
			if o.Value != "morning" {
				t.Errorf("temporal bucket = %q, want morning", o.Value)
			}
			if o.Category != "dairy" {
				t.Errorf("temporal category = %q, want dairy", o.Category)
			}
		}
	}
	if !found {
		t.Error("expected a temporal observation at 8:00 for a dairy query")
	}

	// 3am is outside every bucket.
	lateNight := time.Date(2025, time.March, 10, 3, 0, 0, 0, time.UTC)
	obs, _ = NewExtractor().Extract("milk for breakfast", lateNight)
	for _, o := range obs {
		if o.Domain == DomainTemporal {
			t.Errorf("unexpected temporal observation at 3:00: %v", o)
		}
	}
}

func TestExtract_QueryTooLong(t *testing.T) {
	long := strings.Repeat("organic ", 1000)
	obs, err := NewExtractor().Extract(long, extractNow)
	if !errors.Is(err, ErrQueryTooLong) {
		t.Fatalf("expected ErrQueryTooLong, got %v", err)
	}
	if len(obs) != 0 {
		t.Errorf("expected no candidates for over-length query, got %d", len(obs))
	}
}

func TestExtract_NoMatches(t *testing.T) {
	obs := extract(t, "hello there")
	for _, o := range obs {
		if o.Domain != DomainTemporal {
			t.Errorf("unexpected observation for neutral query: %v", o)
		}
	}
}

func TestTimeBucket(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{6, "morning"}, {10, "morning"},
		{11, "midday"}, {14, "midday"},
		{15, "evening"}, {19, "evening"},
		{20, "night"}, {23, "night"},
		{0, ""}, {5, ""},
	}
	for _, tt := range tests {
		if got := TimeBucket(tt.hour); got != tt.want {
			t.Errorf("TimeBucket(%d) = %q, want %q", tt.hour, got, tt.want)
		}
	}
}
