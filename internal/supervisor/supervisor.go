package supervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cartwise/cartwise/internal/agents"
	"github.com/cartwise/cartwise/internal/llm"
	"github.com/cartwise/cartwise/internal/memory"
	"github.com/cartwise/cartwise/internal/profile"
	"github.com/cartwise/cartwise/internal/storage"
)

const systemPromptTemplate = `Today's date is {today}.

You are the Grocery Shopping Assistant orchestrating a team of specialized AI agents to help users with grocery shopping.

IMPORTANT: Your current store preference is: {store_preference}

Store Preference Rules:
- If store preference is a specific store, prioritize and highlight results from that store FIRST
- If store preference is "any", present results from all stores
- ALWAYS start your response with "Based on your {store_preference} preference..."
- If the preferred store has limited results, supplement with other stores but clearly indicate this

You receive the user's request together with a customer profile, learned shopping preferences, and findings from your research agents. Compose one final answer from those findings. Respect dietary restrictions from the profile and the learned preferences, and explicitly acknowledge the store preference in every response.`

// InteractionStore records completed turns. Implemented by storage.Store.
type InteractionStore interface {
	SaveInteraction(i storage.Interaction) error
}

// Reply is one completed assistant turn.
type Reply struct {
	Response     string
	RoutedAgents []string
	Context      string
}

// Supervisor runs one turn end to end: enrich, route, fan out to
// sub-agents, synthesize, record, learn.
type Supervisor struct {
	profiles *profile.Manager
	learner  *memory.Learner
	agents   map[agents.Name]agents.Agent
	llm      agents.Completer
	model    string
	store    InteractionStore
	clock    memory.Clock
}

func New(profiles *profile.Manager, learner *memory.Learner, subAgents []agents.Agent, completer agents.Completer, model string, store InteractionStore) *Supervisor {
	byName := make(map[agents.Name]agents.Agent, len(subAgents))
	for _, a := range subAgents {
		byName[a.Name()] = a
	}
	return &Supervisor{
		profiles: profiles,
		learner:  learner,
		agents:   byName,
		llm:      completer,
		model:    model,
		store:    store,
		clock:    realClock{},
	}
}

// Respond handles one user query. Enrichment failures (profile, memory,
// individual sub-agents) degrade gracefully; only a failed final synthesis
// fails the turn. The learning step runs last and never fails the response.
func (s *Supervisor) Respond(ctx context.Context, userID, query string) (Reply, error) {
	cfg, err := s.profiles.Get(userID)
	if err != nil {
		slog.Warn("profile unavailable, using defaults", "user", userID, "error", err)
		cfg = profile.DefaultUserConfig()
	}
	summary, err := s.profiles.Summary(userID)
	if err != nil {
		summary = ""
	}

	prefs, _, memCtx, err := s.learner.Context(ctx, userID, query)
	if err != nil {
		slog.Warn("memory context degraded", "user", userID, "error", err)
	}

	names := agents.RouteQuery(query)
	results := s.fanOut(ctx, names, agents.Request{
		Query:         query,
		Config:        cfg,
		Prefs:         prefs,
		MemoryContext: memCtx,
	})

	response, err := s.synthesize(ctx, cfg, query, summary, memCtx, results)
	if err != nil {
		return Reply{}, fmt.Errorf("synthesizing response: %w", err)
	}

	routed := make([]string, len(names))
	for i, n := range names {
		routed[i] = string(n)
	}
	s.record(userID, query, memCtx, response, routed)

	if _, err := s.learner.Learn(ctx, userID, query, response); err != nil {
		slog.Warn("learning step failed", "user", userID, "error", err)
	}

	return Reply{Response: response, RoutedAgents: routed, Context: memCtx}, nil
}

// fanOut runs the routed sub-agents concurrently. A failed agent is
// logged and dropped; the turn continues with whatever findings arrived.
func (s *Supervisor) fanOut(ctx context.Context, names []agents.Name, req agents.Request) []agents.Result {
	results := make([]agents.Result, len(names))
	ok := make([]bool, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		agent, exists := s.agents[name]
		if !exists {
			slog.Warn("no agent registered for route", "agent", name)
			continue
		}
		g.Go(func() error {
			res, err := agent.Run(gctx, req)
			if err != nil {
				slog.Warn("sub-agent failed", "agent", name, "error", err)
				return nil
			}
			results[i] = res
			ok[i] = true
			return nil
		})
	}
	g.Wait()

	out := make([]agents.Result, 0, len(names))
	for i := range results {
		if ok[i] {
			out = append(out, results[i])
		}
	}
	return out
}

func (s *Supervisor) synthesize(ctx context.Context, cfg profile.UserConfig, query, summary, memCtx string, results []agents.Result) (string, error) {
	system := strings.NewReplacer(
		"{today}", s.clock.Now().Format("2006-01-02"),
		"{store_preference}", cfg.StorePreference,
	).Replace(systemPromptTemplate)

	var b strings.Builder
	b.WriteString("Request: " + query + "\n")
	if summary != "" {
		b.WriteString("\nCUSTOMER PROFILE:\n" + summary + "\n")
	}
	if memCtx != "" {
		b.WriteString("\nLEARNED PREFERENCES:\n" + memCtx + "\n")
	}
	if len(results) == 0 {
		b.WriteString("\nNo agent findings are available. Answer from the profile and preferences, and say what you could not check.\n")
	}
	for _, r := range results {
		fmt.Fprintf(&b, "\nFINDINGS (%s):\n%s\n", r.Agent, r.Findings)
	}

	return s.llm.Complete(ctx, s.model, []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: b.String()},
	})
}

// record persists the turn transcript. Best effort.
func (s *Supervisor) record(userID, query, memCtx, response string, routed []string) {
	routedJSON, _ := json.Marshal(routed)
	err := s.store.SaveInteraction(storage.Interaction{
		ID:              uuid.NewString(),
		UserID:          userID,
		CreatedAt:       s.clock.Now().UTC(),
		UserQuery:       query,
		RenderedContext: memCtx,
		Response:        response,
		RoutedAgents:    string(routedJSON),
	})
	if err != nil {
		slog.Warn("saving interaction failed", "user", userID, "error", err)
	}
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
