package config

import (
	"maps"
	"slices"
)

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	ServersChanged  bool         // true if any MCP server was added, removed, or modified
	ServerChanges   []ServerDiff // per-server diffs
	LogLevelChanged bool
	NewLogLevel     LogLevel
	StrategyChanged bool
	NewStrategy     string
}

// ServerDiff describes what changed for a single MCP server between two configs.
type ServerDiff struct {
	Name     string
	Modified bool
	Added    bool
	Removed  bool
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	// Log level
	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	// Reasoning strategy
	if old.Engine.Strategy != new.Engine.Strategy {
		d.StrategyChanged = true
		d.NewStrategy = string(new.Engine.Strategy)
	}

	// Build server lookup maps keyed by name.
	oldServers := make(map[string]*MCPServerConfig, len(old.MCP.Servers))
	for i := range old.MCP.Servers {
		oldServers[old.MCP.Servers[i].Name] = &old.MCP.Servers[i]
	}
	newServers := make(map[string]*MCPServerConfig, len(new.MCP.Servers))
	for i := range new.MCP.Servers {
		newServers[new.MCP.Servers[i].Name] = &new.MCP.Servers[i]
	}

	// Detect modified and removed servers.
	for name, oldSrv := range oldServers {
		newSrv, exists := newServers[name]
		if !exists {
			d.ServerChanges = append(d.ServerChanges, ServerDiff{
				Name:    name,
				Removed: true,
			})
			d.ServersChanged = true
			continue
		}
		if serverModified(oldSrv, newSrv) {
			d.ServerChanges = append(d.ServerChanges, ServerDiff{
				Name:     name,
				Modified: true,
			})
			d.ServersChanged = true
		}
	}

	// Detect added servers.
	for name := range newServers {
		if _, exists := oldServers[name]; !exists {
			d.ServerChanges = append(d.ServerChanges, ServerDiff{
				Name:  name,
				Added: true,
			})
			d.ServersChanged = true
		}
	}

	return d
}

// serverModified compares two server configs with the same name.
func serverModified(old, new *MCPServerConfig) bool {
	if old.Transport != new.Transport ||
		old.Command != new.Command ||
		old.URL != new.URL ||
		old.Priority != new.Priority ||
		old.IsEnabled() != new.IsEnabled() {
		return true
	}
	if !maps.Equal(old.Env, new.Env) {
		return true
	}
	return !slices.Equal(old.Requires, new.Requires)
}
