package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/cartwise/cartwise/internal/profile"
	"github.com/cartwise/cartwise/internal/storage"
)

// PromotionWriter persists promotions added via MCP. Implemented by
// storage.Store.
type PromotionWriter interface {
	SavePromotion(p storage.Promotion) error
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Learner    ContextBuilder
	Profile    *profile.Manager
	Promotions PromotionWriter
}

// NewMCPServer creates an MCP server with all cartwise tools and resources
// registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"cartwise",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("cartwise — grocery shopping assistant with per-user learned preferences."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("grocery_context",
			mcp.WithDescription("Render the learned shopping-preference context for a user and query, ready for prompt injection."),
			mcp.WithString("user_id", mcp.Description("User id (default: \"default\")")),
			mcp.WithString("query", mcp.Description("The shopping query the context is for"), mcp.Required()),
		),
		mcpGroceryContext(deps),
	)

	s.AddTool(
		mcp.NewTool("set_user_config",
			mcp.WithDescription("Update one static user configuration field (country_code, dietary_restrictions, store_preference, ...)."),
			mcp.WithString("user_id", mcp.Description("User id (default: \"default\")")),
			mcp.WithString("key", mcp.Description("Config field key"), mcp.Required()),
			mcp.WithString("value", mcp.Description("Value to set; list fields take a JSON array"), mcp.Required()),
		),
		mcpSetUserConfig(deps),
	)

	s.AddTool(
		mcp.NewTool("list_insights",
			mcp.WithDescription("List the insights currently derivable from a user's learned shopping profile."),
			mcp.WithString("user_id", mcp.Description("User id (default: \"default\")")),
		),
		mcpListInsights(deps),
	)

	s.AddTool(
		mcp.NewTool("add_promotion",
			mcp.WithDescription("Add a promotion to the local catalog."),
			mcp.WithString("store", mcp.Description("Store name"), mcp.Required()),
			mcp.WithString("product", mcp.Description("Product name"), mcp.Required()),
			mcp.WithString("description", mcp.Description("Promotion details")),
			mcp.WithNumber("price_cents", mcp.Description("Promotional price in cents")),
			mcp.WithString("currency", mcp.Description("Currency code (default USD)")),
			mcp.WithArray("tags", mcp.Description("Tags such as organic, vegan, dairy")),
			mcp.WithString("ends", mcp.Description("End date, 2006-01-02")),
		),
		mcpAddPromotion(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"user://default/profile",
			"Default User Profile",
			mcp.WithResourceDescription("Static configuration of the default user as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProfile(deps),
	)

	return s
}

func mcpGroceryContext(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}
		userID := req.GetString("user_id", DefaultUserID)

		_, _, rendered, err := deps.Learner.Context(ctx, userID, query)
		if err != nil {
			return mcpError(fmt.Sprintf("building context failed: %v", err)), nil
		}
		if rendered == "" {
			return mcpText("No learned preferences yet for this user."), nil
		}
		return mcpText(rendered), nil
	}
}

func mcpSetUserConfig(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return mcpError("key is required"), nil
		}
		value, err := req.RequireString("value")
		if err != nil {
			return mcpError("value is required"), nil
		}
		userID := req.GetString("user_id", DefaultUserID)

		if err := deps.Profile.Set(userID, key, value); err != nil {
			return mcpError(fmt.Sprintf("failed to set config: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Set %s = %s for %s", key, value, userID)), nil
	}
}

func mcpListInsights(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID := req.GetString("user_id", DefaultUserID)

		_, insights, _, err := deps.Learner.Context(ctx, userID, "")
		if err != nil {
			return mcpError(fmt.Sprintf("loading insights failed: %v", err)), nil
		}
		if len(insights) == 0 {
			return mcpText("[]"), nil
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
		b, err := json.Marshal(views)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal insights: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpAddPromotion(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		store, err := req.RequireString("store")
		if err != nil {
			return mcpError("store is required"), nil
		}
		product, err := req.RequireString("product")
		if err != nil {
			return mcpError("product is required"), nil
		}

		p := storage.Promotion{
			ID:          uuid.NewString(),
			Store:       store,
			Product:     product,
			Description: req.GetString("description", ""),
			PriceCents:  req.GetInt("price_cents", 0),
			Currency:    req.GetString("currency", "USD"),
			CreatedAt:   time.Now().UTC(),
			Source:      "mcp",
		}

		if tags := req.GetStringSlice("tags", nil); len(tags) > 0 {
			b, err := json.Marshal(tags)
			if err != nil {
				return mcpError(fmt.Sprintf("failed to marshal tags: %v", err)), nil
			}
			p.Tags = string(b)
		}
		if ends := req.GetString("ends", ""); ends != "" {
			t, err := time.Parse("2006-01-02", ends)
			if err != nil {
				return mcpError(fmt.Sprintf("invalid end date %q: expected 2006-01-02", ends)), nil
			}
			p.EndsAt = t
		}

		if err := deps.Promotions.SavePromotion(p); err != nil {
			return mcpError(fmt.Sprintf("failed to save promotion: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Stored promotion %s", p.ID)), nil
	}
}

func mcpResourceProfile(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		cfg, err := deps.Profile.Get(DefaultUserID)
		if err != nil {
			return nil, fmt.Errorf("failed to get user config: %w", err)
		}

		b, err := json.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal user config: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
