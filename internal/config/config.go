package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

type Config struct {
	Server     ServerConfig
	Gemini     GeminiConfig
	OpenRouter OpenRouterConfig
	Ollama     OllamaConfig
	Storage    StorageConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port    int
	MCPPort int
}

// GeminiConfig configures the fast multimodal provider and the preferred
// embedding provider. An empty APIKey means the provider is unavailable.
type GeminiConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	EmbedModel string
}

// OpenRouterConfig configures the deep-reasoning provider. An empty APIKey
// means the provider is unavailable.
type OpenRouterConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// OllamaConfig configures the secondary (local) embedding provider.
type OllamaConfig struct {
	BaseURL    string
	EmbedModel string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:    4800,
			MCPPort: 4801,
		},
		Gemini: GeminiConfig{
			BaseURL:    "https://generativelanguage.googleapis.com",
			Model:      "gemini-2.0-flash",
			EmbedModel: "text-embedding-004",
		},
		OpenRouter: OpenRouterConfig{
			BaseURL: "https://openrouter.ai/api/v1",
			Model:   "anthropic/claude-sonnet-4",
		},
		Ollama: OllamaConfig{
			BaseURL:    "http://localhost:11434",
			EmbedModel: "nomic-embed-text",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "casebook-data"
		}
	}
	return filepath.Join(dir, "casebook")
}

func configFilePath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".config")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "casebook", "config.json")
}

// Load reads configuration from the JSON config file (if present) and applies
// CASEBOOK_* environment overrides. Missing provider credentials are not an
// error: each provider reports itself unavailable and the router/gateway
// fall back per policy. A configuration with no providers at all only fails
// at route time (NoProviderConfigured).
func Load() (Config, error) {
	return loadFrom(configFilePath())
}

func loadFrom(path string) (Config, error) {
	cfg := defaults()

	if err := applyFile(&cfg, path); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)

	return cfg, nil
}

// fileConfig is the flat JSON shape of the config file.
type fileConfig struct {
	Port             *int    `json:"port"`
	MCPPort          *int    `json:"mcp_port"`
	GeminiAPIKey     *string `json:"gemini_api_key"`
	GeminiModel      *string `json:"gemini_model"`
	GeminiEmbedModel *string `json:"gemini_embed_model"`
	OpenRouterAPIKey *string `json:"openrouter_api_key"`
	OpenRouterModel  *string `json:"openrouter_model"`
	OllamaURL        *string `json:"ollama_url"`
	OllamaEmbedModel *string `json:"ollama_embed_model"`
	DataDir          *string `json:"data_dir"`
	LogLevel         *string `json:"log_level"`
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if fc.Port != nil {
		cfg.Server.Port = *fc.Port
	}
	if fc.MCPPort != nil {
		cfg.Server.MCPPort = *fc.MCPPort
	}
	if fc.GeminiAPIKey != nil {
		cfg.Gemini.APIKey = *fc.GeminiAPIKey
	}
	if fc.GeminiModel != nil {
		cfg.Gemini.Model = *fc.GeminiModel
	}
	if fc.GeminiEmbedModel != nil {
		cfg.Gemini.EmbedModel = *fc.GeminiEmbedModel
	}
	if fc.OpenRouterAPIKey != nil {
		cfg.OpenRouter.APIKey = *fc.OpenRouterAPIKey
	}
	if fc.OpenRouterModel != nil {
		cfg.OpenRouter.Model = *fc.OpenRouterModel
	}
	if fc.OllamaURL != nil {
		cfg.Ollama.BaseURL = *fc.OllamaURL
	}
	if fc.OllamaEmbedModel != nil {
		cfg.Ollama.EmbedModel = *fc.OllamaEmbedModel
	}
	if fc.DataDir != nil {
		cfg.Storage.DataDir = *fc.DataDir
	}
	if fc.LogLevel != nil {
		cfg.Log.Level = *fc.LogLevel
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CASEBOOK_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("CASEBOOK_MCP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.MCPPort = p
		}
	}
	if v := os.Getenv("CASEBOOK_GEMINI_API_KEY"); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := os.Getenv("CASEBOOK_GEMINI_MODEL"); v != "" {
		cfg.Gemini.Model = v
	}
	if v := os.Getenv("CASEBOOK_GEMINI_EMBED_MODEL"); v != "" {
		cfg.Gemini.EmbedModel = v
	}
	if v := os.Getenv("CASEBOOK_OPENROUTER_API_KEY"); v != "" {
		cfg.OpenRouter.APIKey = v
	}
	if v := os.Getenv("CASEBOOK_OPENROUTER_MODEL"); v != "" {
		cfg.OpenRouter.Model = v
	}
	if v := os.Getenv("CASEBOOK_OLLAMA_URL"); v != "" {
		cfg.Ollama.BaseURL = v
	}
	if v := os.Getenv("CASEBOOK_OLLAMA_EMBED_MODEL"); v != "" {
		cfg.Ollama.EmbedModel = v
	}
	if v := os.Getenv("CASEBOOK_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("CASEBOOK_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}
