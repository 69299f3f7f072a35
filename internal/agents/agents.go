package agents

import (
	"context"

	"github.com/cartwise/cartwise/internal/llm"
	"github.com/cartwise/cartwise/internal/memory"
	"github.com/cartwise/cartwise/internal/profile"
)

// Name identifies a sub-agent.
type Name string

const (
	PromotionsAgentName Name = "promotions_research_agent"
	SearchAgentName     Name = "grocery_search_agent"
)

// Completer is the LLM surface agents need. Implemented by llm.Client.
type Completer interface {
	Complete(ctx context.Context, model string, messages []llm.Message) (string, error)
}

// Request is one research task handed to a sub-agent by the supervisor.
type Request struct {
	Query         string
	Config        profile.UserConfig
	Prefs         memory.Preferences
	MemoryContext string
}

// Result is a sub-agent's findings, returned to the supervisor for
// synthesis.
type Result struct {
	Agent    Name
	Findings string
}

// Agent is one specialized research sub-agent.
type Agent interface {
	Name() Name
	Run(ctx context.Context, req Request) (Result, error)
}
