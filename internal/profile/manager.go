package profile

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ConfigStore defines the storage operations the Manager needs.
// Implemented by storage.Store.
type ConfigStore interface {
	SetUserConfigKey(userID, key, value string) error
	GetAllUserConfigKeys(userID string) (map[string]string, error)
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type cacheEntry struct {
	cfg      UserConfig
	cachedAt time.Time
}

// Manager provides cached, structured access to per-user configuration
// stored as flat key-value rows.
type Manager struct {
	store ConfigStore
	clock Clock
	ttl   time.Duration

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// NewManager creates a Manager with a 60-second cache TTL.
func NewManager(store ConfigStore) *Manager {
	return NewManagerWithClock(store, realClock{}, 60*time.Second)
}

// NewManagerWithClock creates a Manager with a custom clock (for testing).
func NewManagerWithClock(store ConfigStore, clock Clock, ttl time.Duration) *Manager {
	return &Manager{
		store: store,
		clock: clock,
		ttl:   ttl,
		cache: make(map[string]cacheEntry),
	}
}

// Get reads the user's configuration from storage (or cache), falling back
// to defaults for any unset field.
func (m *Manager) Get(userID string) (UserConfig, error) {
	m.mu.RLock()
	if entry, ok := m.cache[userID]; ok && m.clock.Now().Before(entry.cachedAt.Add(m.ttl)) {
		cfg := entry.cfg
		m.mu.RUnlock()
		return cfg, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.cache[userID]; ok && m.clock.Now().Before(entry.cachedAt.Add(m.ttl)) {
		return entry.cfg, nil
	}

	keys, err := m.store.GetAllUserConfigKeys(userID)
	if err != nil {
		return UserConfig{}, fmt.Errorf("loading config for %q: %w", userID, err)
	}

	cfg := buildConfig(keys)
	m.cache[userID] = cacheEntry{cfg: cfg, cachedAt: m.clock.Now()}
	return cfg, nil
}

// Set persists one configuration field and invalidates the user's cache
// entry. List fields take a JSON array; household_size takes an integer.
func (m *Manager) Set(userID, key, value string) error {
	if !validKeys[key] {
		return fmt.Errorf("unknown config key %q", key)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.SetUserConfigKey(userID, key, value); err != nil {
		return fmt.Errorf("setting config key %q for %q: %w", key, userID, err)
	}
	delete(m.cache, userID)
	return nil
}

// Summary returns a compact plain-text rendering of the configuration for
// prompt injection.
func (m *Manager) Summary(userID string) (string, error) {
	cfg, err := m.Get(userID)
	if err != nil {
		return "", fmt.Errorf("summarizing config: %w", err)
	}

	var parts []string
	if cfg.Name != "" {
		parts = append(parts, fmt.Sprintf("Customer: %s.", cfg.Name))
	}
	parts = append(parts, fmt.Sprintf("Location: %s (language %s).", cfg.CountryCode, cfg.LanguageCode))
	if len(cfg.DietaryRestrictions) > 0 {
		parts = append(parts, fmt.Sprintf("Dietary: %s.", strings.Join(cfg.DietaryRestrictions, ", ")))
	}
	parts = append(parts, fmt.Sprintf("Budget level: %s.", cfg.BudgetLevel))
	if cfg.HouseholdSize > 1 {
		parts = append(parts, fmt.Sprintf("Household of %d.", cfg.HouseholdSize))
	}
	parts = append(parts, fmt.Sprintf("Store preference: %s.", cfg.StorePreference))

	return strings.Join(parts, " "), nil
}

var validKeys = map[string]bool{
	"name":                 true,
	"country_code":         true,
	"language_code":        true,
	"dietary_restrictions": true,
	"budget_level":         true,
	"household_size":       true,
	"store_preference":     true,
	"store_websites":       true,
}

// buildConfig assembles a UserConfig from flat key-value pairs, starting
// from defaults so partial configurations stay usable.
func buildConfig(keys map[string]string) UserConfig {
	cfg := DefaultUserConfig()

	if v, ok := keys["name"]; ok {
		cfg.Name = v
	}
	if v, ok := keys["country_code"]; ok && v != "" {
		cfg.CountryCode = v
	}
	if v, ok := keys["language_code"]; ok && v != "" {
		cfg.LanguageCode = v
	}
	if v, ok := keys["budget_level"]; ok && v != "" {
		cfg.BudgetLevel = v
	}
	if v, ok := keys["store_preference"]; ok && v != "" {
		cfg.StorePreference = v
	}
	if v, ok := keys["household_size"]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HouseholdSize = n
		} else {
			slog.Warn("malformed household_size, keeping default", "value", v)
		}
	}
	unmarshalListKey(keys, "dietary_restrictions", &cfg.DietaryRestrictions)
	unmarshalListKey(keys, "store_websites", &cfg.StoreWebsites)

	return cfg
}

// unmarshalListKey unmarshals a JSON array from keys into target, logging a
// warning if the value is present but malformed.
func unmarshalListKey(keys map[string]string, key string, target *[]string) {
	v, ok := keys[key]
	if !ok {
		return
	}
	if err := json.Unmarshal([]byte(v), target); err != nil {
		slog.Warn("malformed config key, skipping", "key", key, "error", err)
	}
}
