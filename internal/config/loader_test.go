package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/gazolla/chatcli/internal/config"
	"github.com/gazolla/chatcli/internal/mcp"
	"github.com/gazolla/chatcli/internal/reasoning"
)

func TestLoadFromReader_FullConfig(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  listen_addr: ":8080"
  log_level: debug
providers:
  llm:
    name: openai
    api_key: sk-test
    model: gpt-4o
  fallbacks:
    - name: ollama
      base_url: http://localhost:11434
      model: llama3
engine:
  strategy: reflection
  max_iterations: 5
  score_threshold: 0.8
  temperature: 0.3
  request_timeout: 90s
mcp:
  servers:
    - name: weather
      transport: streamable-http
      url: https://mcp.example.com/mcp
      priority: high
      requires: [network]
    - name: filesystem
      transport: stdio
      command: "npx -y @modelcontextprotocol/server-filesystem /tmp"
      priority: low
      requires: [node]
      enabled: false
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("listen_addr: got %q", cfg.Server.ListenAddr)
	}
	if cfg.Providers.LLM.Model != "gpt-4o" {
		t.Errorf("llm model: got %q", cfg.Providers.LLM.Model)
	}
	if len(cfg.Providers.Fallbacks) != 1 || cfg.Providers.Fallbacks[0].Name != "ollama" {
		t.Errorf("fallbacks: got %+v", cfg.Providers.Fallbacks)
	}
	if cfg.Engine.StrategyKind() != reasoning.KindReflection {
		t.Errorf("strategy: got %q", cfg.Engine.StrategyKind())
	}
	if cfg.Engine.RequestTimeout != 90*time.Second {
		t.Errorf("request_timeout: got %v", cfg.Engine.RequestTimeout)
	}
	if len(cfg.MCP.Servers) != 2 {
		t.Fatalf("servers: got %d, want 2", len(cfg.MCP.Servers))
	}
	if !cfg.MCP.Servers[0].IsEnabled() {
		t.Error("weather should default to enabled")
	}
	if cfg.MCP.Servers[1].IsEnabled() {
		t.Error("filesystem should be disabled")
	}
}

func TestLoadFromReader_RejectsUnknownFields(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  llm:
    name: openai
    modle: gpt-4o
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
	if !strings.Contains(err.Error(), "modle") {
		t.Errorf("error should name the unknown field, got: %v", err)
	}
}

func TestValidate_MissingLLMName(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: info
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for missing providers.llm.name, got nil")
	}
	if !strings.Contains(err.Error(), "providers.llm.name") {
		t.Errorf("error should mention providers.llm.name, got: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
providers:
  llm:
    name: openai
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_InvalidStrategy(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  llm:
    name: openai
engine:
  strategy: recursive
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid strategy, got nil")
	}
	if !strings.Contains(err.Error(), "engine.strategy") {
		t.Errorf("error should mention engine.strategy, got: %v", err)
	}
}

func TestValidate_ScoreThresholdOutOfRange(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  llm:
    name: openai
engine:
  score_threshold: 1.5
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for out-of-range score_threshold, got nil")
	}
	if !strings.Contains(err.Error(), "score_threshold") {
		t.Errorf("error should mention score_threshold, got: %v", err)
	}
}

func TestValidate_DuplicateServerNames(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  llm:
    name: openai
mcp:
  servers:
    - name: weather
      transport: streamable-http
      url: https://a
    - name: weather
      transport: streamable-http
      url: https://b
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for duplicate server names, got nil")
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("error should mention duplicate, got: %v", err)
	}
}

func TestValidate_StdioRequiresCommand(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  llm:
    name: openai
mcp:
  servers:
    - name: filesystem
      transport: stdio
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for stdio server without command, got nil")
	}
	if !strings.Contains(err.Error(), "command") {
		t.Errorf("error should mention command, got: %v", err)
	}
}

func TestValidate_HTTPRequiresURL(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  llm:
    name: openai
mcp:
  servers:
    - name: weather
      transport: streamable-http
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for streamable-http server without url, got nil")
	}
	if !strings.Contains(err.Error(), "url") {
		t.Errorf("error should mention url, got: %v", err)
	}
}

func TestValidate_InvalidRequirement(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  llm:
    name: openai
mcp:
  servers:
    - name: weather
      transport: streamable-http
      url: https://a
      requires: [python, "env:"]
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid requirements, got nil")
	}
	if !strings.Contains(err.Error(), `"python"`) {
		t.Errorf("error should name the invalid requirement, got: %v", err)
	}
	if !strings.Contains(err.Error(), `"env:"`) {
		t.Errorf("error should reject an empty env requirement, got: %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
engine:
  max_iterations: -1
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	for _, want := range []string{"log_level", "providers.llm.name", "max_iterations"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error should mention %s, got: %v", want, err)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := config.Load("/nonexistent/chatcli.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestToServerConfig(t *testing.T) {
	t.Parallel()
	disabled := false
	sc := config.MCPServerConfig{
		Name:      "weather",
		Transport: mcp.TransportStreamableHTTP,
		URL:       "https://mcp.example.com/mcp",
		Requires:  []string{"network"},
		Priority:  "high",
		Enabled:   &disabled,
	}.ToServerConfig()
	if sc.Name != "weather" || sc.URL != "https://mcp.example.com/mcp" {
		t.Errorf("unexpected conversion: %+v", sc)
	}
	if sc.Priority != mcp.PriorityHigh {
		t.Errorf("priority: got %v, want high", sc.Priority)
	}
	if sc.Enabled {
		t.Error("expected Enabled=false to carry over")
	}
	if len(sc.Requires) != 1 || sc.Requires[0] != mcp.RequireNetwork {
		t.Errorf("requires: got %+v", sc.Requires)
	}
}
