package mcp

import (
	"strings"
)

// Transport selects the connection mechanism for a tool server.
type Transport string

const (
	// TransportStdio spawns a subprocess and communicates over stdin/stdout.
	TransportStdio Transport = "stdio"

	// TransportStreamableHTTP communicates via the MCP Streamable HTTP
	// protocol (HTTP with server-sent event streaming).
	TransportStreamableHTTP Transport = "streamable-http"
)

// IsValid reports whether t is a recognised transport.
func (t Transport) IsValid() bool {
	return t == TransportStdio || t == TransportStreamableHTTP
}

// Priority classifies how important a tool server is to the runtime.
// The order is total: higher numeric weight means higher priority.
type Priority int

const (
	// PriorityUnclassified is the zero value for servers without an explicit
	// priority class.
	PriorityUnclassified Priority = iota

	// PriorityLow marks optional, nice-to-have servers.
	PriorityLow

	// PriorityMedium marks generally useful servers.
	PriorityMedium

	// PriorityHigh marks servers the runtime leans on for most queries.
	PriorityHigh
)

// String returns the human-readable name of the priority class.
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return "unclassified"
	}
}

// ParsePriority maps a configuration string to a Priority. Unknown values
// fall back to PriorityUnclassified.
func ParsePriority(s string) Priority {
	switch strings.ToLower(s) {
	case "high":
		return PriorityHigh
	case "medium":
		return PriorityMedium
	case "low":
		return PriorityLow
	default:
		return PriorityUnclassified
	}
}

// Requirement names a runtime precondition a tool server needs before it can
// be started. Checked once during the configuration dependency pass; servers
// with unmet requirements are disabled rather than connected.
type Requirement string

const (
	// RequireNode means the server needs a JavaScript runtime on PATH.
	RequireNode Requirement = "node"

	// RequireDocker means the server needs a container runtime on PATH.
	RequireDocker Requirement = "docker"

	// RequireNetwork means the server needs outbound network reachability.
	RequireNetwork Requirement = "network"

	// RequireEnvPrefix marks requirements of the form "env:NAME", satisfied
	// when the named environment variable is non-empty.
	RequireEnvPrefix = "env:"
)

// ServerStatus is the lifecycle state of a server connection.
type ServerStatus int

const (
	// StatusDisconnected means no connection attempt has succeeded yet, or the
	// server was explicitly disconnected.
	StatusDisconnected ServerStatus = iota

	// StatusConnected means the handshake succeeded and tools were discovered.
	StatusConnected

	// StatusError means the last connection attempt failed.
	StatusError
)

// String returns the human-readable name of the status.
func (s ServerStatus) String() string {
	switch s {
	case StatusConnected:
		return "connected"
	case StatusError:
		return "error"
	default:
		return "disconnected"
	}
}

// ServerConfig describes a single tool server: how to reach it and how the
// runtime should treat it. Built once from configuration at startup; only the
// Enabled flag is mutated afterwards (by the dependency-check pass).
type ServerConfig struct {
	// Name is the unique identifier for this server. It becomes the prefix of
	// every tool the server exposes ("{name}_{tool}").
	Name string

	// Transport specifies the connection mechanism.
	Transport Transport

	// Command is the executable path (and optional arguments) used when
	// Transport is stdio. Ignored otherwise.
	Command string

	// URL is the endpoint address used when Transport is streamable-http.
	// Ignored for stdio.
	URL string

	// Env holds additional environment variables injected into the server
	// process when Transport is stdio. May be nil.
	Env map[string]string

	// Requires lists runtime preconditions checked before connecting.
	Requires []Requirement

	// Priority is the server's importance class.
	Priority Priority

	// Enabled gates whether the catalog attempts to connect at all. Flipped to
	// false when a requirement is unmet.
	Enabled bool

	// Description is free-form operator text about what the server offers.
	// PolicyAdvisor mines it for regional and topical hints.
	Description string
}

// ParamSpec describes a single parameter of a tool's input schema.
type ParamSpec struct {
	// Type is the JSON Schema type ("string", "number", ...).
	Type string

	// Description is the human-readable parameter description.
	Description string

	// Required reports whether the parameter must be supplied.
	Required bool
}

// ToolSpec is the immutable record of one discovered tool. Created during
// server discovery and replaced wholesale on rediscovery, never mutated.
type ToolSpec struct {
	// Name is the namespaced identity "{server}_{tool}". This exact string
	// appears in execution logs, cache keys, and suggestions, and must not be
	// altered by any layer above the catalog.
	Name string

	// SimpleName is the tool's name as the owning server declared it.
	SimpleName string

	// Server is the owning server's name.
	Server string

	// Description is the tool's human description.
	Description string

	// Parameters maps parameter name to its spec.
	Parameters map[string]ParamSpec

	// RawSchema is the tool's full JSON Schema as reported by the server,
	// forwarded verbatim to LLM providers that take a schema object.
	RawSchema map[string]any
}

// ToolResult holds the outcome of a single tool execution.
type ToolResult struct {
	// Content is the tool's textual output, typically JSON or human-readable
	// text ready for insertion into an LLM context window.
	Content string

	// IsError indicates that the tool returned an application-level error (as
	// opposed to a transport or protocol failure returned via the Go error
	// return value). When IsError is true, Content carries the error message.
	IsError bool

	// DurationMs is the wall-clock time in milliseconds from dispatch until
	// the full response was received.
	DurationMs int64
}

// NamespacedName builds the canonical "{server}_{tool}" identity.
func NamespacedName(server, tool string) string {
	return server + "_" + tool
}
