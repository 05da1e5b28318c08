package config_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/gazolla/chatcli/internal/config"
	"github.com/gazolla/chatcli/internal/mcp"
)

// fakeChecker builds a RequirementChecker where only the named binaries and
// env vars exist.
func fakeChecker(binaries []string, env map[string]string, online bool) config.RequirementChecker {
	return config.RequirementChecker{
		LookPath: func(file string) (string, error) {
			if slices.Contains(binaries, file) {
				return "/usr/bin/" + file, nil
			}
			return "", errors.New("not found")
		},
		Getenv: func(key string) string { return env[key] },
		Online: func() bool { return online },
	}
}

func TestApplyRequirements_AllMet(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{
		MCP: config.MCPConfig{
			Servers: []config.MCPServerConfig{
				{Name: "filesystem", Transport: mcp.TransportStdio, Command: "npx mcp-fs", Requires: []string{"node"}},
				{Name: "weather", Transport: mcp.TransportStreamableHTTP, URL: "https://a", Requires: []string{"network"}},
			},
		},
	}
	disabled := config.ApplyRequirements(cfg, fakeChecker([]string{"node"}, nil, true))
	if len(disabled) != 0 {
		t.Errorf("expected no disabled servers, got %v", disabled)
	}
	for _, srv := range cfg.MCP.Servers {
		if !srv.IsEnabled() {
			t.Errorf("server %s should remain enabled", srv.Name)
		}
	}
}

func TestApplyRequirements_MissingBinary(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{
		MCP: config.MCPConfig{
			Servers: []config.MCPServerConfig{
				{Name: "filesystem", Transport: mcp.TransportStdio, Command: "npx mcp-fs", Requires: []string{"node"}},
				{Name: "containers", Transport: mcp.TransportStdio, Command: "mcp-docker", Requires: []string{"docker"}},
			},
		},
	}
	disabled := config.ApplyRequirements(cfg, fakeChecker([]string{"node"}, nil, true))
	if !slices.Equal(disabled, []string{"containers"}) {
		t.Errorf("expected [containers] disabled, got %v", disabled)
	}
	if !cfg.MCP.Servers[0].IsEnabled() {
		t.Error("filesystem should remain enabled")
	}
	if cfg.MCP.Servers[1].IsEnabled() {
		t.Error("containers should be disabled")
	}
}

func TestApplyRequirements_EnvVar(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{
		MCP: config.MCPConfig{
			Servers: []config.MCPServerConfig{
				{Name: "github", Transport: mcp.TransportStdio, Command: "mcp-github", Requires: []string{"env:GITHUB_TOKEN"}},
				{Name: "jira", Transport: mcp.TransportStdio, Command: "mcp-jira", Requires: []string{"env:JIRA_TOKEN"}},
			},
		},
	}
	checker := fakeChecker(nil, map[string]string{"GITHUB_TOKEN": "ghp_x"}, true)
	disabled := config.ApplyRequirements(cfg, checker)
	if !slices.Equal(disabled, []string{"jira"}) {
		t.Errorf("expected [jira] disabled, got %v", disabled)
	}
}

func TestApplyRequirements_Offline(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{
		MCP: config.MCPConfig{
			Servers: []config.MCPServerConfig{
				{Name: "weather", Transport: mcp.TransportStreamableHTTP, URL: "https://a", Requires: []string{"network"}},
			},
		},
	}
	disabled := config.ApplyRequirements(cfg, fakeChecker(nil, nil, false))
	if !slices.Equal(disabled, []string{"weather"}) {
		t.Errorf("expected [weather] disabled, got %v", disabled)
	}
}

func TestApplyRequirements_SkipsAlreadyDisabled(t *testing.T) {
	t.Parallel()
	off := false
	cfg := &config.Config{
		MCP: config.MCPConfig{
			Servers: []config.MCPServerConfig{
				{Name: "containers", Transport: mcp.TransportStdio, Command: "mcp-docker", Requires: []string{"docker"}, Enabled: &off},
			},
		},
	}
	disabled := config.ApplyRequirements(cfg, fakeChecker(nil, nil, true))
	if len(disabled) != 0 {
		t.Errorf("already-disabled servers should not be reported, got %v", disabled)
	}
}

func TestDefaultChecker(t *testing.T) {
	t.Parallel()
	c := config.DefaultChecker()
	if c.LookPath == nil || c.Getenv == nil || c.Online == nil {
		t.Fatal("DefaultChecker should populate all lookups")
	}
	if !c.Online() {
		t.Error("default checker should assume the network is up")
	}
}
