package config

import (
	"fmt"
)

type Config struct {
	Server  ServerConfig
	LLM     LLMConfig
	Storage StorageConfig
	Memory  MemoryConfig
	Catalog CatalogConfig
	Ingest  IngestConfig
	API     APIConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port    int
	MCPPort int
}

type LLMConfig struct {
	BaseURL          string
	SupervisorModel  string
	PromotionsModel  string
	SearchModel      string
	OpenRouterAPIKey string
}

type StorageConfig struct {
	DataDir string
}

type MemoryConfig struct {
	LearningEnabled bool
	InsightsEnabled bool
	MaxQueryLen     int
}

type CatalogConfig struct {
	RerankingEnabled bool
}

type IngestConfig struct {
	PollInterval string
}

type APIConfig struct {
	AuthToken string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:    4600,
			MCPPort: 4601,
		},
		LLM: LLMConfig{
			BaseURL:         "https://openrouter.ai/api/v1",
			SupervisorModel: "openai/gpt-4.1",
			PromotionsModel: "openai/gpt-4.1-mini",
			SearchModel:     "openai/gpt-4.1",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Memory: MemoryConfig{
			LearningEnabled: true,
			InsightsEnabled: true,
			MaxQueryLen:     2000,
		},
		Catalog: CatalogConfig{
			RerankingEnabled: true,
		},
		Ingest: IngestConfig{
			PollInterval: "500ms",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/cartwise/config.json, then applies CARTWISE_* environment
// overrides. Secrets (the OpenRouter API key and the API auth token) come
// from environment variables only.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.LLM.OpenRouterAPIKey == "" {
		return Config{}, fmt.Errorf("missing required config: OpenRouter API key. " +
			"Set it via environment variable CARTWISE_OPENROUTER_API_KEY")
	}

	return cfg, nil
}
