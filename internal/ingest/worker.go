package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cartwise/cartwise/internal/memory"
	"github.com/cartwise/cartwise/internal/storage"
)

const (
	JobTypeReceipt = "receipt_ingest"
	JobTypeFlyer   = "flyer_ingest"
)

// JobStore abstracts the job queue operations.
type JobStore interface {
	ClaimNextJob(types []string) (*storage.Job, error)
	CompleteJob(id string) error
	FailJob(id string, errMsg string) error
}

// PromotionSaver persists promotions parsed from flyers.
type PromotionSaver interface {
	SavePromotion(p storage.Promotion) error
}

// Learner runs one learning pass per receipt item line.
type Learner interface {
	Learn(ctx context.Context, userID, query, response string) (memory.Preferences, error)
}

// Worker processes receipt and flyer ingestion jobs from the SQLite job
// queue.
type Worker struct {
	store   JobStore
	promos  PromotionSaver
	learner Learner
	poll    time.Duration
	clock   memory.Clock
	logger  *slog.Logger
}

// NewWorker creates a Worker with the given dependencies.
// If pollInterval is <= 0, it defaults to 500ms.
func NewWorker(store JobStore, promos PromotionSaver, learner Learner, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		store:   store,
		promos:  promos,
		learner: learner,
		poll:    pollInterval,
		clock:   realClock{},
		logger:  slog.Default(),
	}
}

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes a single job.
// Returns true if a job was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob([]string{JobTypeReceipt, JobTypeFlyer})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	if err := w.processJob(ctx, job); err != nil {
		w.logger.Warn("job failed", "job_id", job.ID, "type", job.Type, "error", err)
		if failErr := w.store.FailJob(job.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", failErr)
		}
		return true, nil
	}

	if err := w.store.CompleteJob(job.ID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	return true, nil
}

// ReceiptPayload is the payload of a receipt_ingest job.
type ReceiptPayload struct {
	UserID string `json:"user_id"`
	Path   string `json:"path"`
}

// FlyerPayload is the payload of a flyer_ingest job.
type FlyerPayload struct {
	Store string `json:"store"`
	Path  string `json:"path"`
}

func (w *Worker) processJob(ctx context.Context, job *storage.Job) error {
	switch job.Type {
	case JobTypeReceipt:
		return w.processReceipt(ctx, job)
	case JobTypeFlyer:
		return w.processFlyer(job)
	default:
		return fmt.Errorf("unknown job type %q", job.Type)
	}
}

func (w *Worker) processReceipt(ctx context.Context, job *storage.Job) error {
	var payload ReceiptPayload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}
	if payload.UserID == "" {
		return fmt.Errorf("receipt job missing user_id")
	}

	items, err := ExtractReceiptItems(payload.Path)
	if err != nil {
		return err
	}

	// Each purchased item runs through the learner as its own observation.
	// An item that fails leaves earlier items learned; the job is retried
	// and re-learning an item only re-bumps confidence toward its ceiling.
	for _, item := range items {
		if _, err := w.learner.Learn(ctx, payload.UserID, item, ""); err != nil {
			return fmt.Errorf("learning receipt item %q: %w", item, err)
		}
	}

	w.logger.Info("receipt ingested", "user_id", payload.UserID, "items", len(items))
	return nil
}

func (w *Worker) processFlyer(job *storage.Job) error {
	var payload FlyerPayload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}
	if payload.Store == "" {
		return fmt.Errorf("flyer job missing store")
	}

	f, err := os.Open(payload.Path)
	if err != nil {
		return fmt.Errorf("opening flyer %s: %w", payload.Path, err)
	}
	defer f.Close()

	promos, err := ParseFlyer(f, payload.Store, w.clock.Now())
	if err != nil {
		return err
	}

	for _, p := range promos {
		if err := w.promos.SavePromotion(p); err != nil {
			return fmt.Errorf("saving promotion %q: %w", p.Product, err)
		}
	}

	w.logger.Info("flyer ingested", "store", payload.Store, "promotions", len(promos))
	return nil
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
