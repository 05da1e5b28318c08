package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/gazolla/chatcli/internal/mcp"
)

// ValidLLMProviderNames lists the known LLM backend names. Used by [Validate]
// to warn about unrecognised provider names without rejecting them, since
// third-party registrations are allowed.
var ValidLLMProviderNames = []string{
	"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Unknown YAML fields are rejected to surface typos early.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm.name is required"))
	} else {
		validateProviderName(cfg.Providers.LLM.Name)
	}
	for i, entry := range cfg.Providers.Fallbacks {
		if entry.Name == "" {
			errs = append(errs, fmt.Errorf("providers.fallbacks[%d].name is required", i))
			continue
		}
		validateProviderName(entry.Name)
	}

	if cfg.Engine.Strategy != "" && !cfg.Engine.Strategy.IsValid() {
		errs = append(errs, fmt.Errorf("engine.strategy %q is invalid; valid values: single-shot, reflection, stepwise", cfg.Engine.Strategy))
	}
	if cfg.Engine.MaxIterations < 0 {
		errs = append(errs, fmt.Errorf("engine.max_iterations %d must not be negative", cfg.Engine.MaxIterations))
	}
	if cfg.Engine.ScoreThreshold < 0 || cfg.Engine.ScoreThreshold > 1 {
		errs = append(errs, fmt.Errorf("engine.score_threshold %.2f is out of range [0, 1]", cfg.Engine.ScoreThreshold))
	}
	if cfg.Engine.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("engine.request_timeout %v must not be negative", cfg.Engine.RequestTimeout))
	}

	serverNamesSeen := make(map[string]int, len(cfg.MCP.Servers))
	for i, srv := range cfg.MCP.Servers {
		prefix := fmt.Sprintf("mcp.servers[%d]", i)
		if srv.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		} else {
			if prev, ok := serverNamesSeen[srv.Name]; ok {
				errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of mcp.servers[%d]", prefix, srv.Name, prev))
			}
			serverNamesSeen[srv.Name] = i
		}
		if srv.Transport != "" && !srv.Transport.IsValid() {
			errs = append(errs, fmt.Errorf("%s.transport %q is invalid; valid values: stdio, streamable-http", prefix, srv.Transport))
		}
		if srv.Transport == mcp.TransportStdio && srv.Command == "" {
			errs = append(errs, fmt.Errorf("%s.command is required when transport is stdio", prefix))
		}
		if srv.Transport == mcp.TransportStreamableHTTP && srv.URL == "" {
			errs = append(errs, fmt.Errorf("%s.url is required when transport is streamable-http", prefix))
		}
		if srv.Priority != "" && mcp.ParsePriority(srv.Priority) == mcp.PriorityUnclassified &&
			srv.Priority != "unclassified" {
			slog.Warn("unknown server priority treated as unclassified",
				"server", srv.Name, "priority", srv.Priority)
		}
		for _, req := range srv.Requires {
			if !validRequirement(req) {
				errs = append(errs, fmt.Errorf("%s.requires %q is invalid; valid values: node, docker, network, env:NAME", prefix, req))
			}
		}
	}

	return errors.Join(errs...)
}

// validRequirement reports whether req is a recognised requirement form.
func validRequirement(req string) bool {
	switch mcp.Requirement(req) {
	case mcp.RequireNode, mcp.RequireDocker, mcp.RequireNetwork:
		return true
	}
	return len(req) > len(mcp.RequireEnvPrefix) && req[:len(mcp.RequireEnvPrefix)] == mcp.RequireEnvPrefix
}

// validateProviderName logs a warning if name is not in the known LLM
// provider list.
func validateProviderName(name string) {
	if slices.Contains(ValidLLMProviderNames, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"name", name,
		"known", ValidLLMProviderNames,
	)
}
