package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Store is the persistence boundary the learner depends on. Implemented by
// storage.Store. Reads and writes are the only suspension points in a turn;
// per-user isolation is last-write-wins.
type Store interface {
	// GetPreferences returns the stored record and true, or a zero value and
	// false when the user has no record yet.
	GetPreferences(ctx context.Context, userID string) (Preferences, bool, error)
	PutPreferences(ctx context.Context, userID string, p Preferences) error
	AppendPattern(ctx context.Context, userID string, pat Pattern) error
	// RecentPatterns returns up to limit entries, most-recent-first.
	RecentPatterns(ctx context.Context, userID string, limit int) ([]Pattern, error)
}

// Config carries the memory feature flags and tunables. The zero value is
// not useful; construct with DefaultConfig.
type Config struct {
	// LearningEnabled gates the per-turn profile update. When off, Learn is
	// a no-op that returns the stored record unchanged.
	LearningEnabled bool
	// InsightsEnabled gates insight generation during context building.
	InsightsEnabled bool
	// MaxQueryLen bounds queries accepted by the extractor, in bytes.
	MaxQueryLen int
}

// DefaultConfig returns the documented defaults: all features on.
func DefaultConfig() Config {
	return Config{
		LearningEnabled: true,
		InsightsEnabled: true,
		MaxQueryLen:     DefaultMaxQueryLen,
	}
}

// Learner runs the per-turn memory operations: context building before the
// supervisor responds, and the learning step after.
type Learner struct {
	store     Store
	clock     Clock
	extractor *Extractor
	generator *Generator
	cfg       Config
	logger    *slog.Logger
}

// NewLearner creates a Learner on the real clock.
func NewLearner(store Store, cfg Config) *Learner {
	return newLearner(store, cfg, realClock{})
}

// NewLearnerWithClock creates a Learner with a custom clock (for testing).
func NewLearnerWithClock(store Store, cfg Config, clock Clock) *Learner {
	return newLearner(store, cfg, clock)
}

func newLearner(store Store, cfg Config, clock Clock) *Learner {
	if cfg.MaxQueryLen <= 0 {
		cfg.MaxQueryLen = DefaultMaxQueryLen
	}
	return &Learner{
		store:     store,
		clock:     clock,
		extractor: &Extractor{MaxQueryLen: cfg.MaxQueryLen},
		generator: NewGeneratorWithClock(clock),
		cfg:       cfg,
		logger:    slog.Default(),
	}
}

// Context loads the profile, generates insights, and renders the injection
// block for the current query. On a store failure it returns defaults plus
// ErrStoreUnavailable so the caller can proceed with an empty profile.
func (l *Learner) Context(ctx context.Context, userID, query string) (Preferences, []Insight, string, error) {
	prefs, ok, err := l.store.GetPreferences(ctx, userID)
	if err != nil {
		return NewPreferences(), nil, "", fmt.Errorf("loading preferences for %q: %w", userID, errors.Join(ErrStoreUnavailable, err))
	}
	if !ok {
		prefs = NewPreferences()
	}

	var insights []Insight
	if l.cfg.InsightsEnabled {
		recent, err := l.store.RecentPatterns(ctx, userID, recentPatternWindow)
		if err != nil {
			l.logger.Warn("reading recent patterns failed, generating insights without them", "user_id", userID, "error", err)
		}
		insights = l.generator.Generate(prefs, recent)
	}

	return prefs, insights, BuildContext(prefs, insights, query), nil
}

// Learn runs the turn-level learning step: load, extract, merge into a local
// copy, boost confidence on successful outcomes, persist, then append one
// pattern-log entry. The profile write is atomic — a failure anywhere before
// it leaves the stored record untouched, and no pattern entry is appended
// after a failed write.
func (l *Learner) Learn(ctx context.Context, userID, query, response string) (Preferences, error) {
	prefs, ok, err := l.store.GetPreferences(ctx, userID)
	if err != nil {
		return NewPreferences(), fmt.Errorf("loading preferences for %q: %w", userID, errors.Join(ErrStoreUnavailable, err))
	}
	if !ok {
		prefs = NewPreferences()
	}
	if !l.cfg.LearningEnabled {
		return prefs, nil
	}

	now := l.clock.Now()
	updated := prefs.Clone()

	candidates, err := l.extractor.Extract(query, now)
	if err != nil {
		// Over-length or malformed queries degrade to an empty candidate set.
		l.logger.Info("extraction produced no candidates", "user_id", userID, "error", err)
	}

	notes := Merge(&updated, candidates, now)
	for _, note := range notes {
		l.logger.Info("memory conflict resolved", "user_id", userID, "note", note)
	}

	applySuccessBoost(&updated, strings.ToLower(query), strings.ToLower(response))

	if err := l.store.PutPreferences(ctx, userID, updated); err != nil {
		return prefs, fmt.Errorf("persisting preferences for %q: %w", userID, errors.Join(ErrStoreUnavailable, err))
	}

	pat := classifyPattern(query, now)
	if err := l.store.AppendPattern(ctx, userID, pat); err != nil {
		// Preferences are already durable; the pattern log is best-effort.
		l.logger.Warn("appending shopping pattern failed", "user_id", userID, "error", err)
	}

	l.logger.Debug("learning step complete",
		"user_id", userID,
		"interactions", updated.InteractionCount,
		"candidates", len(candidates),
		"query_type", pat.QueryType,
	)
	return updated, nil
}

// classifyPattern assigns the coarse query-type tag for the pattern log.
// The first matching rule wins; "general_search" is the fallback.
func classifyPattern(query string, now time.Time) Pattern {
	q := strings.ToLower(query)
	queryType := "general_search"
	switch {
	case matchesAny(q, []string{"bread", "pasta", "rice"}):
		queryType = "carbohydrate_search"
	case matchesAny(q, []string{"milk", "cheese", "yogurt"}):
		queryType = "dairy_search"
	case strings.Contains(q, "organic"):
		queryType = "organic_search"
	case matchesAny(q, []string{"affordable", "cheap", "budget"}):
		queryType = "budget_search"
	}

	return Pattern{
		QueryType:         queryType,
		Frequency:         1,
		SuccessRate:       1.0,
		LastUsed:          now,
		SeasonalRelevance: []string{strings.ToLower(now.Month().String())},
		TimeRelevance:     []string{fmt.Sprintf("%d:00", now.Hour())},
	}
}
