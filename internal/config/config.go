// Package config provides the configuration schema, loader, and provider
// registry for the chatcli conversational engine.
package config

import (
	"log/slog"
	"time"

	"github.com/gazolla/chatcli/internal/mcp"
	"github.com/gazolla/chatcli/internal/reasoning"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level maps l to its slog level. Unknown or empty values map to info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config is the root configuration structure for chatcli.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Engine    EngineConfig    `yaml:"engine"`
	MCP       MCPConfig       `yaml:"mcp"`
}

// ServerConfig holds the ops HTTP listener and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the ops HTTP server (health, status,
	// metrics) listens on (e.g., ":8080"). Empty disables the ops server.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// ProvidersConfig declares the LLM backends: one primary plus ordered
// fallbacks tried when the primary fails or its circuit breaker is open.
type ProvidersConfig struct {
	LLM       ProviderEntry   `yaml:"llm"`
	Fallbacks []ProviderEntry `yaml:"fallbacks"`
}

// ProviderEntry is the configuration block shared by all LLM backends.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "openai",
	// "anthropic", "ollama").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gpt-4o").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by
	// the standard fields above.
	Options map[string]any `yaml:"options"`
}

// EngineConfig tunes the reasoning strategy.
type EngineConfig struct {
	// Strategy selects the reasoning variant: single-shot, reflection, or
	// stepwise. Empty defaults to single-shot.
	Strategy reasoning.Kind `yaml:"strategy"`

	// MaxIterations bounds the reflection loop. Zero means the strategy
	// default (3).
	MaxIterations int `yaml:"max_iterations"`

	// ScoreThreshold is the evaluation score at which reflection stops
	// improving, in (0, 1]. Zero means the strategy default (0.6).
	ScoreThreshold float64 `yaml:"score_threshold"`

	// Temperature is passed through to the LLM provider.
	Temperature float64 `yaml:"temperature"`

	// MaxTokens caps completion length. Zero means provider default.
	MaxTokens int `yaml:"max_tokens"`

	// RequestTimeout bounds one full ProcessQuery call, covering every model
	// round trip and tool execution it performs. Zero means the engine
	// default (30s).
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// StrategyKind returns the configured strategy, defaulting to single-shot.
func (e EngineConfig) StrategyKind() reasoning.Kind {
	if e.Strategy == "" {
		return reasoning.KindSingleShot
	}
	return e.Strategy
}

// MCPConfig holds the list of Model Context Protocol servers to connect to.
type MCPConfig struct {
	Servers []MCPServerConfig `yaml:"servers"`
}

// MCPServerConfig describes how to connect to a single MCP tool server and
// how the runtime should treat it.
type MCPServerConfig struct {
	// Name is a unique identifier for this server. It becomes the namespace
	// prefix of every tool the server contributes.
	Name string `yaml:"name"`

	// Transport specifies the connection mechanism.
	Transport mcp.Transport `yaml:"transport"`

	// Command is the executable (with optional arguments) launched when
	// Transport is "stdio". Ignored for streamable-http transport.
	Command string `yaml:"command"`

	// URL is the MCP endpoint address used when Transport is
	// "streamable-http". Ignored for stdio transport.
	URL string `yaml:"url"`

	// Env holds additional environment variables injected into the
	// subprocess when Transport is "stdio". May be nil.
	Env map[string]string `yaml:"env"`

	// Requires lists runtime preconditions ("node", "docker", "network",
	// "env:NAME"). Servers with unmet requirements are disabled by the
	// requirement pass instead of failing to connect.
	Requires []string `yaml:"requires"`

	// Priority classifies the server's importance: high, medium, low. Empty
	// means unclassified.
	Priority string `yaml:"priority"`

	// Enabled toggles the server. Unset means enabled.
	Enabled *bool `yaml:"enabled"`

	// Description is free text about what the server offers. Scanned by the
	// policy advisor for regional and relevance hints.
	Description string `yaml:"description"`
}

// IsEnabled resolves the Enabled tri-state (unset means true).
func (s MCPServerConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// ToServerConfig converts the YAML block into the catalog's server config.
func (s MCPServerConfig) ToServerConfig() mcp.ServerConfig {
	reqs := make([]mcp.Requirement, 0, len(s.Requires))
	for _, r := range s.Requires {
		reqs = append(reqs, mcp.Requirement(r))
	}
	return mcp.ServerConfig{
		Name:        s.Name,
		Transport:   s.Transport,
		Command:     s.Command,
		URL:         s.URL,
		Env:         s.Env,
		Requires:    reqs,
		Priority:    mcp.ParsePriority(s.Priority),
		Enabled:     s.IsEnabled(),
		Description: s.Description,
	}
}

// ServerConfigs converts every configured server, carrying the resolved
// Enabled flag. Run [ApplyRequirements] first so unmet requirements have
// already disabled their servers.
func (c *Config) ServerConfigs() []mcp.ServerConfig {
	out := make([]mcp.ServerConfig, 0, len(c.MCP.Servers))
	for _, s := range c.MCP.Servers {
		out = append(out, s.ToServerConfig())
	}
	return out
}
