// Package mcp defines the shared types and the Catalog interface for the
// tool-server layer.
//
// A Catalog manages connections to one or more MCP tool servers, maintains the
// registry of discovered tools under their namespaced "{server}_{tool}"
// identities, and routes tool calls to the owning server. The executor and the
// policy advisor consume it read-only by reference; the catalog exclusively
// owns the underlying connections.
//
// Lifecycle:
//
//  1. Call [Catalog.ConnectAll] once at startup with the configured server
//     descriptors. Connection failures are per-server; one unreachable server
//     never blocks the rest.
//  2. Use [Catalog.Resolve] / [Catalog.Lookup] / [Catalog.Search] to navigate
//     the registry and [Catalog.Call] to execute tools.
//  3. Call [Catalog.Close] to release all connections.
//
// All methods must be safe for concurrent use.
package mcp

import "context"

// Catalog is the registry of reachable tool servers and their tools.
//
// Implementations must be safe for concurrent use.
type Catalog interface {
	// ConnectAll attempts to connect every enabled server whose requirements
	// are satisfied, discovering tools on each successful handshake. A failure
	// connecting one server marks that server StatusError and moves on; the
	// returned error joins the per-server failures (nil when every attempted
	// server connected).
	ConnectAll(ctx context.Context, servers []ServerConfig) error

	// Resolve maps a tool name to its namespaced identity. A name that is
	// already a registered namespaced key is returned unchanged, so Resolve is
	// idempotent. Otherwise the registered tools are searched for an exact
	// simple-name match. Returns false when no tool matches.
	Resolve(name string) (string, bool)

	// Lookup returns the ToolSpec registered under the namespaced name.
	Lookup(namespaced string) (ToolSpec, bool)

	// ServerOf returns the name of the server owning the namespaced tool.
	ServerOf(namespaced string) (string, bool)

	// Search returns every ToolSpec whose name or description contains the
	// keyword (case-insensitive substring match).
	Search(keyword string) []ToolSpec

	// Tools returns all currently registered ToolSpecs.
	Tools() []ToolSpec

	// Descriptor returns the ServerConfig the named server was built from.
	Descriptor(server string) (ServerConfig, bool)

	// Status returns the connection status of the named server. Unknown
	// servers report StatusDisconnected.
	Status(server string) ServerStatus

	// Available reports whether the namespaced tool is registered and its
	// owning server is currently connected.
	Available(namespaced string) bool

	// Call executes the namespaced tool on its owning server. A non-nil
	// *ToolResult is returned on success even when [ToolResult.IsError] is
	// true (application-level error). A Go error is returned only on transport
	// or protocol failure.
	Call(ctx context.Context, namespaced string, args map[string]any) (*ToolResult, error)

	// Close shuts down all server connections and clears the registry.
	Close() error
}
