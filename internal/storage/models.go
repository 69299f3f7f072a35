package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Interaction is one completed assistant turn: the query, the memory context
// that was injected, and the final response.
type Interaction struct {
	ID              string
	UserID          string
	CreatedAt       time.Time
	UserQuery       string
	RenderedContext string
	Response        string
	RoutedAgents    string // JSON array stored as text
}

// Promotion is a store offer in the local catalog, fed by flyer ingestion or
// the MCP add_promotion tool.
type Promotion struct {
	ID          string
	Store       string
	Product     string
	Description string
	PriceCents  int
	Currency    string
	Tags        string // JSON array stored as text
	StartsAt    time.Time
	EndsAt      time.Time
	CreatedAt   time.Time
	Source      string
}

// Job is one queued ingestion task. Types: "receipt_ingest", "flyer_ingest".
type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // "pending", "running", "completed", "failed"
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}
