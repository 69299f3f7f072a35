package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cartwise/cartwise/internal/catalog"
	"github.com/cartwise/cartwise/internal/llm"
	"github.com/cartwise/cartwise/internal/memory"
)

const evidenceTopK = 8

// PromotionsAgent researches current deals. It searches the local promotion
// catalog, reranks hits by the user's learned preferences, and asks its
// model to summarize the evidence into deal findings.
type PromotionsAgent struct {
	searcher *catalog.Searcher
	reranker catalog.Reranker
	llm      Completer
	model    string
	clock    memory.Clock
}

func NewPromotionsAgent(searcher *catalog.Searcher, reranker catalog.Reranker, completer Completer, model string) *PromotionsAgent {
	return &PromotionsAgent{
		searcher: searcher,
		reranker: reranker,
		llm:      completer,
		model:    model,
		clock:    realClock{},
	}
}

func (a *PromotionsAgent) Name() Name { return PromotionsAgentName }

func (a *PromotionsAgent) Run(ctx context.Context, req Request) (Result, error) {
	storeFilter := ""
	if req.Config.StorePreference != "any" {
		storeFilter = req.Config.StorePreference
	}

	hits, err := a.searcher.Search(req.Query, storeFilter, evidenceTopK)
	if err != nil {
		return Result{}, fmt.Errorf("searching promotions: %w", err)
	}
	// A store-filtered search with no hits falls back to all stores, so the
	// user still sees deals when their preferred store has none.
	if len(hits) == 0 && storeFilter != "" {
		hits, err = a.searcher.Search(req.Query, "", evidenceTopK)
		if err != nil {
			return Result{}, fmt.Errorf("searching promotions: %w", err)
		}
	}
	hits = a.reranker.Rerank(req.Prefs, hits)

	if len(hits) == 0 {
		return Result{
			Agent:    a.Name(),
			Findings: "No current promotions match the request.",
		}, nil
	}

	now := a.clock.Now()
	prompt := renderPrompt(promotionsSystemPrompt, req.Config, now)
	user := "Request: " + req.Query + "\n\nCATALOG EVIDENCE:\n" + formatEvidence(hits, now)
	if req.MemoryContext != "" {
		user += "\n\nLEARNED PREFERENCES:\n" + req.MemoryContext
	}

	findings, err := a.llm.Complete(ctx, a.model, []llm.Message{
		{Role: "system", Content: prompt},
		{Role: "user", Content: user},
	})
	if err != nil {
		return Result{}, fmt.Errorf("promotions agent completion: %w", err)
	}
	return Result{Agent: a.Name(), Findings: findings}, nil
}

// formatEvidence renders scored promotions as one line each for prompt
// injection.
func formatEvidence(hits []catalog.ScoredPromotion, now time.Time) string {
	var b strings.Builder
	for _, h := range hits {
		p := h.Promotion
		fmt.Fprintf(&b, "- [%s] %s", p.Store, p.Product)
		if p.Description != "" {
			fmt.Fprintf(&b, ": %s", p.Description)
		}
		if p.PriceCents > 0 {
			fmt.Fprintf(&b, " (%.2f %s)", float64(p.PriceCents)/100, p.Currency)
		}
		if !p.EndsAt.IsZero() {
			fmt.Fprintf(&b, " ends %s", p.EndsAt.Format("2006-01-02"))
			if p.EndsAt.Before(now) {
				b.WriteString(" (expired)")
			}
		}
		if tags := catalog.DecodeTags(p.Tags); len(tags) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(tags, ", "))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
