package engine

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quorumlabs/council/pkg/router"
)

// Default stage bounds, used when the config leaves them unset.
const (
	DefaultStageTimeout = 90 * time.Second
	DefaultMinResults   = 3
)

// Config is the top-level council configuration.
type Config struct {
	DefaultRouter string         `yaml:"default_router"`
	Models        []string       `yaml:"models"`
	SystemPrompt  string         `yaml:"system_prompt"`
	Backends      BackendsConfig `yaml:"backends"`
	Stage         StageConfig    `yaml:"stage"`
	Tools         ToolsConfig    `yaml:"tools"`
	Export        ExportConfig   `yaml:"export"`
}

// BackendsConfig holds per-backend connection settings.
type BackendsConfig struct {
	OpenRouter OpenRouterConfig `yaml:"openrouter"`
	Ollama     OllamaConfig     `yaml:"ollama"`
}

// OpenRouterConfig configures the hosted multi-modal backend.
type OpenRouterConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"` //nolint:gosec // configuration field, not a hardcoded secret
}

// OllamaConfig configures the local text-only backend.
type OllamaConfig struct {
	BaseURL string `yaml:"base_url"`
}

// StageConfig bounds a scatter-gather stage. Timeout is soft: it only
// releases the stage once MinResults answers have arrived.
type StageConfig struct {
	Timeout    time.Duration `yaml:"timeout"`
	MinResults int           `yaml:"min_results"`
}

// ToolsConfig configures the tool gate's providers.
type ToolsConfig struct {
	Tavily     SearchAPIConfig `yaml:"tavily"`
	Exa        SearchAPIConfig `yaml:"exa"`
	Browser    BrowserConfig   `yaml:"browser"`
	MCPServers []MCPConfig     `yaml:"mcp_servers"`
}

// SearchAPIConfig configures one hosted search API. An empty APIKey disables
// the provider.
type SearchAPIConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"` //nolint:gosec // configuration field, not a hardcoded secret
}

// BrowserConfig enables the headless-Chrome search fallback.
type BrowserConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MCPConfig describes an MCP server to connect to. Command spawns a local
// subprocess; URL connects over SSE. Exactly one must be set.
type MCPConfig struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	URL     string   `yaml:"url"`
}

// ExportConfig configures the post-session document upload. An empty
// Endpoint disables export.
type ExportConfig struct {
	Endpoint string `yaml:"endpoint"`
	Token    string `yaml:"token"` //nolint:gosec // configuration field, not a hardcoded secret
	FolderID string `yaml:"folder_id"`
}

// LoadConfig reads a YAML file and returns a Config.
// Environment variables referenced as ${VAR} or $VAR in the YAML are expanded
// before parsing. This allows API keys and other secrets to be kept in
// environment variables (e.g. loaded from a .env file) rather than committed
// in the config.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if err != nil {
		return Config{}, fmt.Errorf("engine: load config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("engine: parse config: %w", err)
	}

	cfg.applyDefaults()

	return cfg, nil
}

// applyDefaults fills unset stage bounds and the default router.
func (c *Config) applyDefaults() {
	if c.DefaultRouter == "" {
		c.DefaultRouter = string(router.OpenRouter)
	}
	if c.Stage.Timeout <= 0 {
		c.Stage.Timeout = DefaultStageTimeout
	}
	if c.Stage.MinResults == 0 {
		c.Stage.MinResults = DefaultMinResults
	}
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	if _, err := router.Parse(c.DefaultRouter); err != nil {
		return fmt.Errorf("engine: config: default_router: %w", err)
	}

	if len(c.Models) == 0 {
		return fmt.Errorf("engine: config: at least one model is required")
	}

	modelNames := make(map[string]struct{}, len(c.Models))
	for _, m := range c.Models {
		if m == "" {
			return fmt.Errorf("engine: config: model name is required")
		}
		if _, dup := modelNames[m]; dup {
			return fmt.Errorf("engine: config: duplicate model %q", m)
		}
		modelNames[m] = struct{}{}
	}

	if c.Stage.MinResults > len(c.Models) {
		return fmt.Errorf("engine: config: stage min_results %d exceeds model count %d",
			c.Stage.MinResults, len(c.Models))
	}

	mcpNames := make(map[string]struct{}, len(c.Tools.MCPServers))
	for _, m := range c.Tools.MCPServers {
		if m.Name == "" {
			return fmt.Errorf("engine: config: mcp server name is required")
		}
		if m.Command == "" && m.URL == "" {
			return fmt.Errorf("engine: config: mcp server %q: command or url is required", m.Name)
		}
		if m.Command != "" && m.URL != "" {
			return fmt.Errorf("engine: config: mcp server %q: command and url are mutually exclusive", m.Name)
		}
		if _, dup := mcpNames[m.Name]; dup {
			return fmt.Errorf("engine: config: duplicate mcp server name %q", m.Name)
		}
		mcpNames[m.Name] = struct{}{}
	}

	return nil
}
