package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cartwise/cartwise/internal/memory"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database with methods for preferences, the shopping
// pattern log, user configuration, interactions, promotions, and jobs.
// It implements memory.Store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "cartwise.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Single connection avoids "database is locked" under the worker +
	// HTTP handler mix; WAL keeps readers cheap.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA journal_mode=WAL"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %q: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%d_", &version); err != nil {
			return fmt.Errorf("parsing migration version from %q: %w", entry.Name(), err)
		}

		var applied int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&applied); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if applied > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}
	return nil
}

// --- Preferences (memory.Store) ---

// GetPreferences loads the stored preference record. The second return is
// false when the user has no record yet.
func (s *Store) GetPreferences(ctx context.Context, userID string) (memory.Preferences, bool, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, "SELECT doc FROM user_preferences WHERE user_id = ?", userID).Scan(&doc)
	if err == sql.ErrNoRows {
		return memory.Preferences{}, false, nil
	}
	if err != nil {
		return memory.Preferences{}, false, err
	}

	var p memory.Preferences
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return memory.Preferences{}, false, fmt.Errorf("decoding preferences for %q: %w", userID, err)
	}
	return p, true, nil
}

// PutPreferences upserts the full preference record in one statement, so a
// turn's write is atomic.
func (s *Store) PutPreferences(ctx context.Context, userID string, p memory.Preferences) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding preferences for %q: %w", userID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_preferences (user_id, doc, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		userID, string(doc), time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// --- Shopping pattern log ---

// AppendPattern appends one pattern entry with the next per-user sequence
// number. Entries are never updated afterward.
func (s *Store) AppendPattern(ctx context.Context, userID string, pat memory.Pattern) error {
	doc, err := json.Marshal(pat)
	if err != nil {
		return fmt.Errorf("encoding pattern: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO shopping_patterns (user_id, seq, doc, created_at)
		VALUES (?, (SELECT COALESCE(MAX(seq), -1) + 1 FROM shopping_patterns WHERE user_id = ?), ?, ?)`,
		userID, userID, string(doc), time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// RecentPatterns returns up to limit entries for the user, most-recent-first.
func (s *Store) RecentPatterns(ctx context.Context, userID string, limit int) ([]memory.Pattern, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc FROM shopping_patterns WHERE user_id = ? ORDER BY seq DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patterns []memory.Pattern
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var p memory.Pattern
		if err := json.Unmarshal([]byte(doc), &p); err != nil {
			return nil, fmt.Errorf("decoding pattern: %w", err)
		}
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}

// --- User configuration ---

func (s *Store) SetUserConfigKey(userID, key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO user_config (user_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		userID, key, value, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetUserConfigKey(userID, key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM user_config WHERE user_id = ? AND key = ?", userID, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

func (s *Store) GetAllUserConfigKeys(userID string) (map[string]string, error) {
	rows, err := s.db.Query("SELECT key, value FROM user_config WHERE user_id = ?", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		result[k] = v
	}
	return result, rows.Err()
}

// --- Interactions ---

func (s *Store) SaveInteraction(i Interaction) error {
	routed := i.RoutedAgents
	if routed == "" {
		routed = "[]"
	}
	_, err := s.db.Exec(`
		INSERT INTO interactions (id, user_id, created_at, user_query, rendered_context, response, routed_agents)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		i.ID, i.UserID, i.CreatedAt.UTC().Format(time.RFC3339),
		i.UserQuery, i.RenderedContext, i.Response, routed,
	)
	return err
}

func (s *Store) GetRecentInteractions(userID string, limit int) ([]Interaction, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, created_at, user_query, rendered_context, response, routed_agents
		FROM interactions WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Interaction
	for rows.Next() {
		var i Interaction
		var createdAt string
		if err := rows.Scan(&i.ID, &i.UserID, &createdAt, &i.UserQuery, &i.RenderedContext, &i.Response, &i.RoutedAgents); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		i.CreatedAt = t
		results = append(results, i)
	}
	return results, rows.Err()
}

// --- Promotions ---

func (s *Store) SavePromotion(p Promotion) error {
	tags := p.Tags
	if tags == "" {
		tags = "[]"
	}
	_, err := s.db.Exec(`
		INSERT INTO promotions (id, store, product, description, price_cents, currency, tags, starts_at, ends_at, created_at, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Store, p.Product, p.Description, p.PriceCents, p.Currency, tags,
		formatOptionalTime(p.StartsAt), formatOptionalTime(p.EndsAt),
		p.CreatedAt.UTC().Format(time.RFC3339), p.Source,
	)
	return err
}

// ListPromotions returns promotions, newest first. Pass store == "" for all
// stores.
func (s *Store) ListPromotions(store string, limit int) ([]Promotion, error) {
	query := `SELECT id, store, product, description, price_cents, currency, tags, starts_at, ends_at, created_at, source
		FROM promotions`
	args := []any{}
	if store != "" {
		query += " WHERE store = ?"
		args = append(args, store)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Promotion
	for rows.Next() {
		var p Promotion
		var startsAt, endsAt, createdAt string
		if err := rows.Scan(&p.ID, &p.Store, &p.Product, &p.Description, &p.PriceCents, &p.Currency, &p.Tags, &startsAt, &endsAt, &createdAt, &p.Source); err != nil {
			return nil, err
		}
		p.StartsAt = parseOptionalTime(startsAt)
		p.EndsAt = parseOptionalTime(endsAt)
		if p.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

func formatOptionalTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseOptionalTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// --- Jobs ---

func (s *Store) EnqueueJob(job Job) error {
	now := time.Now().UTC().Format(time.RFC3339)
	runAfter := now
	if !job.RunAfter.IsZero() {
		runAfter = job.RunAfter.UTC().Format(time.RFC3339)
	}
	maxAttempts := job.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 3
	}
	_, err := s.db.Exec(`
		INSERT INTO jobs (id, type, payload_json, status, attempts, max_attempts, run_after, created_at, updated_at)
		VALUES (?, ?, ?, 'pending', 0, ?, ?, ?, ?)`,
		job.ID, job.Type, job.PayloadJSON, maxAttempts, runAfter, now, now,
	)
	return err
}

// ClaimNextJob transactionally claims the oldest runnable pending job of one
// of the given types, or returns nil when none is due.
func (s *Store) ClaimNextJob(types []string) (*Job, error) {
	if len(types) == 0 {
		return nil, nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	placeholders := strings.Repeat(",?", len(types)-1)
	query := `SELECT id, type, payload_json, status, attempts, max_attempts, run_after, created_at, last_error
		FROM jobs
		WHERE status = 'pending' AND run_after <= ? AND type IN (?` + placeholders + `)
		ORDER BY run_after ASC, created_at ASC
		LIMIT 1`

	args := make([]any, 0, len(types)+1)
	args = append(args, now)
	for _, t := range types {
		args = append(args, t)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning claim transaction: %w", err)
	}

	var j Job
	var runAfter, createdAt string
	var lastError sql.NullString
	err = tx.QueryRow(query, args...).Scan(
		&j.ID, &j.Type, &j.PayloadJSON, &j.Status, &j.Attempts, &j.MaxAttempts,
		&runAfter, &createdAt, &lastError,
	)
	if err == sql.ErrNoRows {
		tx.Rollback()
		return nil, nil
	}
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("selecting next job: %w", err)
	}

	res, err := tx.Exec(`UPDATE jobs SET status = 'running', updated_at = ? WHERE id = ? AND status = 'pending'`, now, j.ID)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("updating job status: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil || n != 1 {
		tx.Rollback()
		if err != nil {
			return nil, fmt.Errorf("checking claimed rows: %w", err)
		}
		return nil, nil
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing claim: %w", err)
	}

	j.Status = "running"
	j.LastError = lastError.String
	if j.RunAfter, err = time.Parse(time.RFC3339, runAfter); err != nil {
		return nil, fmt.Errorf("parsing run_after for job %s: %w", j.ID, err)
	}
	if j.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at for job %s: %w", j.ID, err)
	}
	j.UpdatedAt, _ = time.Parse(time.RFC3339, now)
	return &j, nil
}

func (s *Store) CompleteJob(id string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(`UPDATE jobs SET status = 'completed', updated_at = ? WHERE id = ?`, now, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}

// FailJob records a failure, re-queuing with exponential backoff until the
// attempt budget is spent.
func (s *Store) FailJob(id string, errMsg string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning fail transaction: %w", err)
	}
	defer tx.Rollback()

	var attempts, maxAttempts int
	err = tx.QueryRow(`SELECT attempts, max_attempts FROM jobs WHERE id = ?`, id).Scan(&attempts, &maxAttempts)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	attempts++

	if attempts >= maxAttempts {
		_, err = tx.Exec(`UPDATE jobs SET status = 'failed', attempts = ?, last_error = ?, updated_at = ? WHERE id = ?`,
			attempts, errMsg, now.Format(time.RFC3339), id)
	} else {
		backoff := time.Duration(math.Pow(2, float64(attempts))) * time.Second
		_, err = tx.Exec(`UPDATE jobs SET status = 'pending', attempts = ?, last_error = ?, run_after = ?, updated_at = ? WHERE id = ?`,
			attempts, errMsg, now.Add(backoff).Format(time.RFC3339), now.Format(time.RFC3339), id)
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}
