package agents

import (
	"context"
	"fmt"

	"github.com/cartwise/cartwise/internal/catalog"
	"github.com/cartwise/cartwise/internal/llm"
	"github.com/cartwise/cartwise/internal/memory"
)

// SearchAgent researches products and prices. Like the promotions agent it
// draws on the local catalog, but its prompt asks for product findings
// rather than deal hunting, and it never filters by store so price
// comparison across stores stays possible.
type SearchAgent struct {
	searcher *catalog.Searcher
	reranker catalog.Reranker
	llm      Completer
	model    string
	clock    memory.Clock
}

func NewSearchAgent(searcher *catalog.Searcher, reranker catalog.Reranker, completer Completer, model string) *SearchAgent {
	return &SearchAgent{
		searcher: searcher,
		reranker: reranker,
		llm:      completer,
		model:    model,
		clock:    realClock{},
	}
}

func (a *SearchAgent) Name() Name { return SearchAgentName }

func (a *SearchAgent) Run(ctx context.Context, req Request) (Result, error) {
	hits, err := a.searcher.Search(req.Query, "", evidenceTopK)
	if err != nil {
		return Result{}, fmt.Errorf("searching catalog: %w", err)
	}
	hits = a.reranker.Rerank(req.Prefs, hits)

	if len(hits) == 0 {
		return Result{
			Agent:    a.Name(),
			Findings: "No catalog entries match the request.",
		}, nil
	}

	now := a.clock.Now()
	prompt := renderPrompt(searchSystemPrompt, req.Config, now)
	user := "Request: " + req.Query + "\n\nCATALOG EVIDENCE:\n" + formatEvidence(hits, now)
	if req.MemoryContext != "" {
		user += "\n\nLEARNED PREFERENCES:\n" + req.MemoryContext
	}

	findings, err := a.llm.Complete(ctx, a.model, []llm.Message{
		{Role: "system", Content: prompt},
		{Role: "user", Content: user},
	})
	if err != nil {
		return Result{}, fmt.Errorf("search agent completion: %w", err)
	}
	return Result{Agent: a.Name(), Findings: findings}, nil
}
