package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "CARTWISE_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.mcp_port", typ: kInt, env: "CARTWISE_SERVER_MCP_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.MCPPort = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.MCPPort },
	},
	{
		key: "llm.base_url", typ: kString, env: "CARTWISE_LLM_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.LLM.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.BaseURL },
	},
	{
		key: "llm.supervisor_model", typ: kString, env: "CARTWISE_LLM_SUPERVISOR_MODEL",
		apply:   func(cfg *Config, v any) { cfg.LLM.SupervisorModel = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.SupervisorModel },
	},
	{
		key: "llm.promotions_model", typ: kString, env: "CARTWISE_LLM_PROMOTIONS_MODEL",
		apply:   func(cfg *Config, v any) { cfg.LLM.PromotionsModel = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.PromotionsModel },
	},
	{
		key: "llm.search_model", typ: kString, env: "CARTWISE_LLM_SEARCH_MODEL",
		apply:   func(cfg *Config, v any) { cfg.LLM.SearchModel = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.SearchModel },
	},
	{
		key: "llm.openrouter_api_key", typ: kString, env: "CARTWISE_OPENROUTER_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.LLM.OpenRouterAPIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.OpenRouterAPIKey },
	},
	{
		key: "storage.data_dir", typ: kString, env: "CARTWISE_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "memory.learning_enabled", typ: kBool, env: "CARTWISE_MEMORY_LEARNING_ENABLED",
		apply:   func(cfg *Config, v any) { cfg.Memory.LearningEnabled = v.(bool) },
		extract: func(cfg Config) any { return cfg.Memory.LearningEnabled },
	},
	{
		key: "memory.insights_enabled", typ: kBool, env: "CARTWISE_MEMORY_INSIGHTS_ENABLED",
		apply:   func(cfg *Config, v any) { cfg.Memory.InsightsEnabled = v.(bool) },
		extract: func(cfg Config) any { return cfg.Memory.InsightsEnabled },
	},
	{
		key: "memory.max_query_len", typ: kInt, env: "CARTWISE_MEMORY_MAX_QUERY_LEN",
		apply:   func(cfg *Config, v any) { cfg.Memory.MaxQueryLen = v.(int) },
		extract: func(cfg Config) any { return cfg.Memory.MaxQueryLen },
	},
	{
		key: "catalog.reranking_enabled", typ: kBool, env: "CARTWISE_CATALOG_RERANKING_ENABLED",
		apply:   func(cfg *Config, v any) { cfg.Catalog.RerankingEnabled = v.(bool) },
		extract: func(cfg Config) any { return cfg.Catalog.RerankingEnabled },
	},
	{
		key: "ingest.poll_interval", typ: kString, env: "CARTWISE_INGEST_POLL_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.Ingest.PollInterval = v.(string) },
		extract: func(cfg Config) any { return cfg.Ingest.PollInterval },
	},
	{
		key: "api.auth_token", typ: kString, env: "CARTWISE_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.API.AuthToken = v.(string) },
		extract: func(cfg Config) any { return cfg.API.AuthToken },
	},
	{
		key: "log.level", typ: kString, env: "CARTWISE_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
