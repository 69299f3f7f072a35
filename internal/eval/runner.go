package eval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cartwise/cartwise/internal/memory"
)

// evalTime is the fixed wall-clock used for every run, chosen inside the
// evening bucket so the temporal rules behave identically across runs.
var evalTime = time.Date(2026, time.March, 2, 17, 0, 0, 0, time.UTC)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// ScenarioResult is the outcome of one scenario, with one failure string per
// unmet expectation.
type ScenarioResult struct {
	Name     string
	Failures []string
}

// Passed reports whether every expectation held.
func (r ScenarioResult) Passed() bool { return len(r.Failures) == 0 }

// Report aggregates the scenario results of one run.
type Report struct {
	Results []ScenarioResult
}

// PassedCount returns the number of scenarios with no failures.
func (r Report) PassedCount() int {
	n := 0
	for _, res := range r.Results {
		if res.Passed() {
			n++
		}
	}
	return n
}

// Accuracy returns the fraction of scenarios that passed, 0 for an empty run.
func (r Report) Accuracy() float64 {
	if len(r.Results) == 0 {
		return 0
	}
	return float64(r.PassedCount()) / float64(len(r.Results))
}

// Summary renders a line per scenario plus a totals line.
func (r Report) Summary() string {
	var sb strings.Builder
	for _, res := range r.Results {
		if res.Passed() {
			fmt.Fprintf(&sb, "PASS %s\n", res.Name)
			continue
		}
		fmt.Fprintf(&sb, "FAIL %s\n", res.Name)
		for _, f := range res.Failures {
			fmt.Fprintf(&sb, "  - %s\n", f)
		}
	}
	fmt.Fprintf(&sb, "passed %d/%d (%.0f%%)\n", r.PassedCount(), len(r.Results), r.Accuracy()*100)
	return sb.String()
}

// Run executes each scenario against a fresh in-memory store and scores it.
func Run(ctx context.Context, scenarios []Scenario) (Report, error) {
	var report Report
	for _, sc := range scenarios {
		res, err := runScenario(ctx, sc)
		if err != nil {
			return report, fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
		report.Results = append(report.Results, res)
	}
	return report, nil
}

func runScenario(ctx context.Context, sc Scenario) (ScenarioResult, error) {
	store := newMemStore()
	learner := memory.NewLearnerWithClock(store, memory.DefaultConfig(), fixedClock{t: evalTime})
	userID := "eval-" + sc.Name

	var lastQuery string
	for i, turn := range sc.Turns {
		if _, err := learner.Learn(ctx, userID, turn.Query, turn.Response); err != nil {
			return ScenarioResult{}, fmt.Errorf("turn %d: %w", i+1, err)
		}
		lastQuery = turn.Query
	}

	prefs, insights, rendered, err := learner.Context(ctx, userID, lastQuery)
	if err != nil {
		return ScenarioResult{}, fmt.Errorf("building context: %w", err)
	}
	patterns, err := store.RecentPatterns(ctx, userID, 1)
	if err != nil {
		return ScenarioResult{}, fmt.Errorf("reading patterns: %w", err)
	}

	return ScenarioResult{
		Name:     sc.Name,
		Failures: checkExpectation(sc.Expect, prefs, insights, rendered, patterns),
	}, nil
}

func checkExpectation(ex Expectation, prefs memory.Preferences, insights []memory.Insight, rendered string, patterns []memory.Pattern) []string {
	var failures []string
	fail := func(format string, args ...any) {
		failures = append(failures, fmt.Sprintf(format, args...))
	}

	for _, want := range ex.Dietary {
		if !containsString(prefs.DietaryRestrictions, want) {
			fail("dietary restriction %q not learned (got %v)", want, prefs.DietaryRestrictions)
		}
	}
	for _, want := range ex.Quality {
		if !containsString(prefs.QualityPreferences, want) {
			fail("quality preference %q not learned (got %v)", want, prefs.QualityPreferences)
		}
	}
	for _, want := range ex.Stores {
		if !containsString(prefs.PreferredStores, want) {
			fail("store %q not learned (got %v)", want, prefs.PreferredStores)
		}
	}
	if ex.TopStore != "" {
		if got := memory.MostFrequentStore(prefs.PreferredStores); got != ex.TopStore {
			fail("top store = %q, want %q", got, ex.TopStore)
		}
	}
	for _, want := range ex.BudgetCategories {
		if _, ok := prefs.BudgetRanges[want]; !ok {
			fail("budget category %q not recorded (got %v)", want, prefs.BudgetOrder)
		}
	}
	for key, floor := range ex.MinConfidence {
		got, ok := prefs.ConfidenceScores[key]
		if !ok {
			fail("no confidence score for %q", key)
			continue
		}
		if got < floor {
			fail("confidence %q = %.2f, want >= %.2f", key, got, floor)
		}
	}
	for _, want := range ex.InsightKinds {
		if !hasInsightKind(insights, want) {
			fail("no %s insight generated", want)
		}
	}
	if ex.LastQueryType != "" {
		if len(patterns) == 0 {
			fail("no pattern entries recorded")
		} else if got := patterns[0].QueryType; got != ex.LastQueryType {
			fail("last query type = %q, want %q", got, ex.LastQueryType)
		}
	}
	for _, want := range ex.ContextContains {
		if !strings.Contains(rendered, want) {
			fail("context missing %q (got %q)", want, rendered)
		}
	}

	return failures
}

func hasInsightKind(insights []memory.Insight, kind memory.InsightKind) bool {
	for _, in := range insights {
		if in.Kind == kind {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// memStore is the in-memory memory.Store scenarios run against.
type memStore struct {
	prefs    map[string]memory.Preferences
	patterns map[string][]memory.Pattern
}

func newMemStore() *memStore {
	return &memStore{
		prefs:    make(map[string]memory.Preferences),
		patterns: make(map[string][]memory.Pattern),
	}
}

func (s *memStore) GetPreferences(_ context.Context, userID string) (memory.Preferences, bool, error) {
	p, ok := s.prefs[userID]
	if !ok {
		return memory.NewPreferences(), false, nil
	}
	return p.Clone(), true, nil
}

func (s *memStore) PutPreferences(_ context.Context, userID string, p memory.Preferences) error {
	s.prefs[userID] = p.Clone()
	return nil
}

func (s *memStore) AppendPattern(_ context.Context, userID string, pat memory.Pattern) error {
	s.patterns[userID] = append(s.patterns[userID], pat)
	return nil
}

func (s *memStore) RecentPatterns(_ context.Context, userID string, limit int) ([]memory.Pattern, error) {
	all := s.patterns[userID]
	var out []memory.Pattern
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}
