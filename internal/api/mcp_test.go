package api

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/cartwise/cartwise/internal/memory"
	"github.com/cartwise/cartwise/internal/profile"
	"github.com/cartwise/cartwise/internal/storage"
)

// --- helpers ---

type mockPromotionWriter struct {
	saved []storage.Promotion
}

func (m *mockPromotionWriter) SavePromotion(p storage.Promotion) error {
	m.saved = append(m.saved, p)
	return nil
}

func newTestMCPDeps() (MCPDeps, *mockPromotionWriter) {
	promos := &mockPromotionWriter{}
	return MCPDeps{
		Learner:    &mockContextBuilder{rendered: "DIETARY: vegan"},
		Profile:    profile.NewManager(&mockConfigStore{}),
		Promotions: promos,
	}, promos
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// --- tests ---

func TestMCPGroceryContext(t *testing.T) {
	deps, _ := newTestMCPDeps()
	handler := mcpGroceryContext(deps)

	result, err := handler(context.Background(), makeCallToolRequest("grocery_context", map[string]interface{}{
		"query": "milk",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}
	if got := toolText(t, result); got != "DIETARY: vegan" {
		t.Errorf("context = %q", got)
	}
}

func TestMCPGroceryContext_RequiresQuery(t *testing.T) {
	deps, _ := newTestMCPDeps()
	handler := mcpGroceryContext(deps)

	result, _ := handler(context.Background(), makeCallToolRequest("grocery_context", nil))
	if !result.IsError {
		t.Error("expected error for missing query")
	}
}

func TestMCPGroceryContext_EmptyProfile(t *testing.T) {
	deps, _ := newTestMCPDeps()
	deps.Learner = &mockContextBuilder{rendered: ""}
	handler := mcpGroceryContext(deps)

	result, _ := handler(context.Background(), makeCallToolRequest("grocery_context", map[string]interface{}{
		"query": "milk",
	}))
	if result.IsError {
		t.Fatal("empty profile should not be an error")
	}
	if got := toolText(t, result); !strings.Contains(got, "No learned preferences") {
		t.Errorf("text = %q", got)
	}
}

func TestMCPSetUserConfig(t *testing.T) {
	deps, _ := newTestMCPDeps()
	handler := mcpSetUserConfig(deps)

	result, err := handler(context.Background(), makeCallToolRequest("set_user_config", map[string]interface{}{
		"user_id": "u1",
		"key":     "store_preference",
		"value":   "aldi",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}

	cfg, err := deps.Profile.Get("u1")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StorePreference != "aldi" {
		t.Errorf("store preference = %q", cfg.StorePreference)
	}
}

func TestMCPSetUserConfig_UnknownKey(t *testing.T) {
	deps, _ := newTestMCPDeps()
	handler := mcpSetUserConfig(deps)

	result, _ := handler(context.Background(), makeCallToolRequest("set_user_config", map[string]interface{}{
		"key":   "favourite_color",
		"value": "green",
	}))
	if !result.IsError {
		t.Error("expected error for unknown key")
	}
}

func TestMCPListInsights(t *testing.T) {
	deps, _ := newTestMCPDeps()
	deps.Learner = &mockContextBuilder{insights: []memory.Insight{
		{Kind: memory.KindPattern, Confidence: 0.8, Description: "Regular shopper with consistent preferences"},
	}}
	handler := mcpListInsights(deps)

	result, err := handler(context.Background(), makeCallToolRequest("list_insights", nil))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var views []insightView
	if err := json.Unmarshal([]byte(toolText(t, result)), &views); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(views) != 1 || views[0].Kind != "pattern" {
		t.Errorf("views = %+v", views)
	}
}

func TestMCPListInsights_Empty(t *testing.T) {
	deps, _ := newTestMCPDeps()
	handler := mcpListInsights(deps)

	result, _ := handler(context.Background(), makeCallToolRequest("list_insights", nil))
	if got := toolText(t, result); got != "[]" {
		t.Errorf("text = %q", got)
	}
}

func TestMCPAddPromotion(t *testing.T) {
	deps, promos := newTestMCPDeps()
	handler := mcpAddPromotion(deps)

	result, err := handler(context.Background(), makeCallToolRequest("add_promotion", map[string]interface{}{
		"store":       "aldi",
		"product":     "Oat Milk",
		"description": "2 for 1",
		"price_cents": 349,
		"tags":        []interface{}{"vegan", "dairy-free"},
		"ends":        "2026-09-15",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}

	if len(promos.saved) != 1 {
		t.Fatalf("saved %d promotions", len(promos.saved))
	}
	p := promos.saved[0]
	if p.Store != "aldi" || p.Product != "Oat Milk" || p.PriceCents != 349 {
		t.Errorf("promotion = %+v", p)
	}
	if p.Tags != `["vegan","dairy-free"]` {
		t.Errorf("tags = %q", p.Tags)
	}
	if p.EndsAt.Year() != 2026 || p.EndsAt.Month() != 9 {
		t.Errorf("ends = %v", p.EndsAt)
	}
	if p.Source != "mcp" {
		t.Errorf("source = %q", p.Source)
	}
}

func TestMCPAddPromotion_Validation(t *testing.T) {
	deps, _ := newTestMCPDeps()
	handler := mcpAddPromotion(deps)

	result, _ := handler(context.Background(), makeCallToolRequest("add_promotion", map[string]interface{}{
		"product": "Milk",
	}))
	if !result.IsError {
		t.Error("expected error for missing store")
	}

	result, _ = handler(context.Background(), makeCallToolRequest("add_promotion", map[string]interface{}{
		"store":   "aldi",
		"product": "Milk",
		"ends":    "next week",
	}))
	if !result.IsError {
		t.Error("expected error for bad end date")
	}
}

func TestMCPResourceProfile(t *testing.T) {
	deps, _ := newTestMCPDeps()
	deps.Profile.Set(DefaultUserID, "store_preference", "costco")
	handler := mcpResourceProfile(deps)

	contents, err := handler(context.Background(), mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{URI: "user://default/profile"},
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("got %d contents", len(contents))
	}
	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	var cfg profile.UserConfig
	if err := json.Unmarshal([]byte(text.Text), &cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cfg.StorePreference != "costco" {
		t.Errorf("store preference = %q", cfg.StorePreference)
	}
}
