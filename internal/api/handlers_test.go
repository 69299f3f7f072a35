package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/cartwise/cartwise/internal/ingest"
	"github.com/cartwise/cartwise/internal/memory"
	"github.com/cartwise/cartwise/internal/profile"
	"github.com/cartwise/cartwise/internal/storage"
	"github.com/cartwise/cartwise/internal/supervisor"
)

// --- mocks ---

type mockResponder struct {
	reply supervisor.Reply
	err   error

	gotUserID string
	gotQuery  string
}

func (m *mockResponder) Respond(_ context.Context, userID, query string) (supervisor.Reply, error) {
	m.gotUserID = userID
	m.gotQuery = query
	return m.reply, m.err
}

type mockContextBuilder struct {
	insights []memory.Insight
	rendered string
	err      error
}

func (m *mockContextBuilder) Context(_ context.Context, _, _ string) (memory.Preferences, []memory.Insight, string, error) {
	if m.err != nil {
		return memory.NewPreferences(), nil, "", m.err
	}
	return memory.NewPreferences(), m.insights, m.rendered, nil
}

type mockJobQueue struct {
	jobs []storage.Job
	err  error
}

func (m *mockJobQueue) EnqueueJob(job storage.Job) error {
	if m.err != nil {
		return m.err
	}
	m.jobs = append(m.jobs, job)
	return nil
}

type mockConfigStore struct {
	mu   sync.Mutex
	data map[string]map[string]string
}

func (m *mockConfigStore) SetUserConfigKey(userID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string]map[string]string)
	}
	if m.data[userID] == nil {
		m.data[userID] = make(map[string]string)
	}
	m.data[userID][key] = value
	return nil
}

func (m *mockConfigStore) GetAllUserConfigKeys(userID string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make(map[string]string, len(m.data[userID]))
	for k, v := range m.data[userID] {
		cp[k] = v
	}
	return cp, nil
}

func newTestDeps() AppDeps {
	return AppDeps{
		Responder: &mockResponder{reply: supervisor.Reply{Response: "ok"}},
		Learner:   &mockContextBuilder{},
		Profile:   profile.NewManager(&mockConfigStore{}),
		Jobs:      &mockJobQueue{},
	}
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// --- tests ---

func TestChat(t *testing.T) {
	deps := newTestDeps()
	responder := &mockResponder{reply: supervisor.Reply{
		Response:     "Based on your aldi preference, milk is $2.99.",
		RoutedAgents: []string{"promotions_research_agent"},
		Context:      "DIETARY: vegan",
	}}
	deps.Responder = responder
	h := NewAppHandler(deps)

	rec := doJSON(t, h, http.MethodPost, "/v1/chat", `{"user_id":"u1","message":"milk deals"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp chatResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if !strings.Contains(resp.Response, "milk is $2.99") {
		t.Errorf("response = %q", resp.Response)
	}
	if len(resp.RoutedAgents) != 1 {
		t.Errorf("routed = %v", resp.RoutedAgents)
	}
	if responder.gotUserID != "u1" || responder.gotQuery != "milk deals" {
		t.Errorf("responder got %q/%q", responder.gotUserID, responder.gotQuery)
	}
}

func TestChat_DefaultsUserID(t *testing.T) {
	deps := newTestDeps()
	responder := deps.Responder.(*mockResponder)
	h := NewAppHandler(deps)

	rec := doJSON(t, h, http.MethodPost, "/v1/chat", `{"message":"hello"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if responder.gotUserID != DefaultUserID {
		t.Errorf("user id = %q, want %q", responder.gotUserID, DefaultUserID)
	}
}

func TestChat_Validation(t *testing.T) {
	h := NewAppHandler(newTestDeps())

	if rec := doJSON(t, h, http.MethodPost, "/v1/chat", `{"user_id":"u1"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing message: status = %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodPost, "/v1/chat", `not json`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad json: status = %d", rec.Code)
	}
}

func TestChat_ResponderError(t *testing.T) {
	deps := newTestDeps()
	deps.Responder = &mockResponder{err: errors.New("llm down")}
	h := NewAppHandler(deps)

	rec := doJSON(t, h, http.MethodPost, "/v1/chat", `{"message":"hi"}`)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestReceiptEnqueue(t *testing.T) {
	deps := newTestDeps()
	jobs := deps.Jobs.(*mockJobQueue)
	h := NewAppHandler(deps)

	rec := doJSON(t, h, http.MethodPost, "/v1/receipts", `{"user_id":"u1","path":"/data/receipt.pdf"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(jobs.jobs) != 1 {
		t.Fatalf("enqueued %d jobs", len(jobs.jobs))
	}
	job := jobs.jobs[0]
	if job.Type != ingest.JobTypeReceipt {
		t.Errorf("job type = %q", job.Type)
	}
	var payload ingest.ReceiptPayload
	json.Unmarshal([]byte(job.PayloadJSON), &payload)
	if payload.UserID != "u1" || payload.Path != "/data/receipt.pdf" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestReceiptEnqueue_RequiresPath(t *testing.T) {
	h := NewAppHandler(newTestDeps())
	rec := doJSON(t, h, http.MethodPost, "/v1/receipts", `{"user_id":"u1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestFlyerEnqueue(t *testing.T) {
	deps := newTestDeps()
	jobs := deps.Jobs.(*mockJobQueue)
	h := NewAppHandler(deps)

	rec := doJSON(t, h, http.MethodPost, "/v1/flyers", `{"store":"aldi","path":"/data/flyer.html"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(jobs.jobs) != 1 || jobs.jobs[0].Type != ingest.JobTypeFlyer {
		t.Errorf("jobs = %+v", jobs.jobs)
	}
}

func TestFlyerEnqueue_QueueError(t *testing.T) {
	deps := newTestDeps()
	deps.Jobs = &mockJobQueue{err: errors.New("db locked")}
	h := NewAppHandler(deps)

	rec := doJSON(t, h, http.MethodPost, "/v1/flyers", `{"store":"aldi","path":"/x.html"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestUserConfigRoundTrip(t *testing.T) {
	h := NewAppHandler(newTestDeps())

	rec := doJSON(t, h, http.MethodPut, "/v1/users/u1/config", `{"country_code":"DE","store_preference":"aldi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/users/u1/config", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var cfg profile.UserConfig
	json.Unmarshal(rec.Body.Bytes(), &cfg)
	if cfg.CountryCode != "DE" || cfg.StorePreference != "aldi" {
		t.Errorf("config = %+v", cfg)
	}
}

func TestPutConfig_UnknownKey(t *testing.T) {
	h := NewAppHandler(newTestDeps())
	rec := doJSON(t, h, http.MethodPut, "/v1/users/u1/config", `{"favourite_color":"green"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestGetContext(t *testing.T) {
	deps := newTestDeps()
	deps.Learner = &mockContextBuilder{
		rendered: "DIETARY: vegan",
		insights: []memory.Insight{{
			Kind:        memory.KindRecommendation,
			Confidence:  0.9,
			Description: "User prefers organic products",
		}},
	}
	h := NewAppHandler(deps)

	rec := doJSON(t, h, http.MethodGet, "/v1/users/u1/context?query=milk", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp contextResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Context != "DIETARY: vegan" {
		t.Errorf("context = %q", resp.Context)
	}
	if len(resp.Insights) != 1 || resp.Insights[0].Kind != "recommendation" {
		t.Errorf("insights = %+v", resp.Insights)
	}
}

func TestGetContext_StoreUnavailable(t *testing.T) {
	deps := newTestDeps()
	deps.Learner = &mockContextBuilder{err: memory.ErrStoreUnavailable}
	h := NewAppHandler(deps)

	rec := doJSON(t, h, http.MethodGet, "/v1/users/u1/context", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestHealthSkipsAuth(t *testing.T) {
	deps := newTestDeps()
	deps.Token = "secret"
	h := NewAppHandler(deps)

	rec := doJSON(t, h, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}
}

func TestBearerAuth(t *testing.T) {
	deps := newTestDeps()
	deps.Token = "secret"
	h := NewAppHandler(deps)

	rec := doJSON(t, h, http.MethodPost, "/v1/chat", `{"message":"hi"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("authenticated status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d", rec.Code)
	}
}

func TestBearerAuth_EmptyTokenDisablesAuth(t *testing.T) {
	h := NewAppHandler(newTestDeps())
	rec := doJSON(t, h, http.MethodPost, "/v1/chat", `{"message":"hi"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}
