package config

import (
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/gazolla/chatcli/internal/mcp"
)

// RequirementChecker resolves server runtime preconditions. The lookup
// functions are injectable so the pass is testable without touching the host.
type RequirementChecker struct {
	// LookPath resolves an executable name on PATH.
	LookPath func(file string) (string, error)

	// Getenv reads an environment variable.
	Getenv func(key string) string

	// Online reports outbound network reachability. The default assumes the
	// network is up; connection failures are handled per-server later.
	Online func() bool
}

// DefaultChecker returns a checker backed by the host environment.
func DefaultChecker() RequirementChecker {
	return RequirementChecker{
		LookPath: exec.LookPath,
		Getenv:   os.Getenv,
		Online:   func() bool { return true },
	}
}

// satisfied reports whether a single requirement is met, with a reason when
// it is not.
func (c RequirementChecker) satisfied(req mcp.Requirement) (bool, string) {
	switch req {
	case mcp.RequireNode:
		if _, err := c.LookPath("node"); err != nil {
			return false, "node not found on PATH"
		}
	case mcp.RequireDocker:
		if _, err := c.LookPath("docker"); err != nil {
			return false, "docker not found on PATH"
		}
	case mcp.RequireNetwork:
		if c.Online != nil && !c.Online() {
			return false, "network unreachable"
		}
	default:
		if name, ok := strings.CutPrefix(string(req), mcp.RequireEnvPrefix); ok {
			if c.Getenv(name) == "" {
				return false, "environment variable " + name + " is not set"
			}
		}
	}
	return true, ""
}

// ApplyRequirements checks every enabled server's requirements and disables
// the ones whose preconditions are unmet, so that connection attempts are
// never made against servers that cannot work. Returns the names of the
// servers it disabled.
func ApplyRequirements(cfg *Config, checker RequirementChecker) []string {
	var disabled []string
	off := false

	for i := range cfg.MCP.Servers {
		srv := &cfg.MCP.Servers[i]
		if !srv.IsEnabled() {
			continue
		}
		for _, req := range srv.Requires {
			ok, reason := checker.satisfied(mcp.Requirement(req))
			if ok {
				continue
			}
			slog.Warn("disabling server with unmet requirement",
				"server", srv.Name, "requirement", req, "reason", reason)
			srv.Enabled = &off
			disabled = append(disabled, srv.Name)
			break
		}
	}
	return disabled
}
