package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cartwise/cartwise/internal/ingest"
	"github.com/cartwise/cartwise/internal/memory"
	"github.com/cartwise/cartwise/internal/profile"
	"github.com/cartwise/cartwise/internal/storage"
	"github.com/cartwise/cartwise/internal/supervisor"
)

const maxRequestBodySize = 1 << 20 // 1MB

// DefaultUserID is used when a request does not carry a user id.
const DefaultUserID = "default"

// Responder answers chat requests. Implemented by supervisor.Supervisor.
type Responder interface {
	Respond(ctx context.Context, userID, query string) (supervisor.Reply, error)
}

// ContextBuilder renders the memory context for a user and query.
// Implemented by memory.Learner.
type ContextBuilder interface {
	Context(ctx context.Context, userID, query string) (memory.Preferences, []memory.Insight, string, error)
}

// JobQueue enqueues ingestion jobs. Implemented by storage.Store.
type JobQueue interface {
	EnqueueJob(job storage.Job) error
}

type AppDeps struct {
	Responder Responder
	Learner   ContextBuilder
	Profile   *profile.Manager
	Jobs      JobQueue
	Token     string
}

// NewAppHandler builds the HTTP API router.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/v1/chat", handleChat(deps))
		r.Post("/v1/receipts", handleReceipt(deps))
		r.Post("/v1/flyers", handleFlyer(deps))
		r.Get("/v1/users/{id}/config", handleGetConfig(deps))
		r.Put("/v1/users/{id}/config", handlePutConfig(deps))
		r.Get("/v1/users/{id}/context", handleGetContext(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type chatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type chatResponse struct {
	Response     string   `json:"response"`
	RoutedAgents []string `json:"routed_agents"`
	Context      string   `json:"context,omitempty"`
}

func handleChat(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Message == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "message is required")
			return
		}
		if req.UserID == "" {
			req.UserID = DefaultUserID
		}

		reply, err := deps.Responder.Respond(r.Context(), req.UserID, req.Message)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "responding failed: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatResponse{
			Response:     reply.Response,
			RoutedAgents: reply.RoutedAgents,
			Context:      reply.Context,
		})
	}
}

func handleReceipt(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var payload ingest.ReceiptPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if payload.Path == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "path is required")
			return
		}
		if payload.UserID == "" {
			payload.UserID = DefaultUserID
		}

		enqueueJob(w, deps.Jobs, ingest.JobTypeReceipt, payload)
	}
}

func handleFlyer(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var payload ingest.FlyerPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if payload.Store == "" || payload.Path == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "store and path are required")
			return
		}

		enqueueJob(w, deps.Jobs, ingest.JobTypeFlyer, payload)
	}
}

func enqueueJob(w http.ResponseWriter, jobs JobQueue, jobType string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "failed to create job payload: %v", err)
		return
	}
	job := storage.Job{
		ID:          uuid.NewString(),
		Type:        jobType,
		PayloadJSON: string(body),
	}
	if err := jobs.EnqueueJob(job); err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "failed to enqueue job: %v", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"id":     job.ID,
		"status": "queued",
	})
}

func handleGetConfig(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "id")

		cfg, err := deps.Profile.Get(userID)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get config: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(cfg)
	}
}

func handlePutConfig(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "id")
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var fields map[string]string
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		for key, value := range fields {
			if err := deps.Profile.Set(userID, key, value); err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "failed to set %q: %v", key, err)
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "updated"})
	}
}

type contextResponse struct {
	Context  string        `json:"context"`
	Insights []insightView `json:"insights"`
}

type insightView struct {
	Kind            string  `json:"kind"`
	Confidence      float64 `json:"confidence"`
	Description     string  `json:"description"`
	Recommendation  string  `json:"recommendation,omitempty"`
	TemporalContext string  `json:"temporal_context,omitempty"`
}

func handleGetContext(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "id")
		query := r.URL.Query().Get("query")

		_, insights, rendered, err := deps.Learner.Context(r.Context(), userID, query)
		if err != nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "memory unavailable: %v", err)
			return
		}

		views := make([]insightView, len(insights))
		for i, in := range insights {
			views[i] = insightView{
				Kind:            string(in.Kind),
				Confidence:      in.Confidence,
				Description:     in.Description,
				Recommendation:  in.Recommendation,
				TemporalContext: in.TemporalContext,
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(contextResponse{Context: rendered, Insights: views})
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
