// Package mock provides an in-memory test double for the [mcp.Catalog]
// interface.
//
// [Catalog] serves tools from plain maps instead of live server connections
// and records every Call invocation for assertion in tests. It is safe for
// concurrent use via an internal [sync.Mutex].
//
// Typical usage:
//
//	c := mock.NewCatalog()
//	c.AddServer(mcp.ServerConfig{Name: "weather", Priority: mcp.PriorityHigh}, mcp.StatusConnected)
//	c.AddTool(mcp.ToolSpec{Name: "weather_get-forecast", SimpleName: "get-forecast", Server: "weather"})
//	c.CallResults["weather_get-forecast"] = &mcp.ToolResult{Content: `{"temp": 21}`}
//
//	// inject c into the system under test …
//
//	if got := c.CallCount("weather_get-forecast"); got != 1 {
//	    t.Errorf("expected 1 call, got %d", got)
//	}
package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gazolla/chatcli/internal/mcp"
)

// ToolCall records a single Call invocation.
type ToolCall struct {
	// Name is the namespaced tool identity that was called.
	Name string

	// Args is the argument map passed to Call.
	Args map[string]any
}

// Catalog is a configurable test double for [mcp.Catalog].
type Catalog struct {
	mu sync.Mutex

	tools    map[string]mcp.ToolSpec
	servers  map[string]mcp.ServerConfig
	statuses map[string]mcp.ServerStatus
	calls    []ToolCall

	// CallResults maps a namespaced tool name to the result Call returns for
	// it. Tools without an entry return a generic success result.
	CallResults map[string]*mcp.ToolResult

	// CallErrs maps a namespaced tool name to an error Call returns for it.
	CallErrs map[string]error

	// CallFn, when non-nil, overrides CallResults/CallErrs entirely.
	CallFn func(ctx context.Context, namespaced string, args map[string]any) (*mcp.ToolResult, error)

	// ConnectAllErr is returned by ConnectAll when non-nil.
	ConnectAllErr error
}

// Compile-time check: Catalog must implement mcp.Catalog.
var _ mcp.Catalog = (*Catalog)(nil)

// NewCatalog returns an empty mock catalog ready for AddServer/AddTool.
func NewCatalog() *Catalog {
	return &Catalog{
		tools:       make(map[string]mcp.ToolSpec),
		servers:     make(map[string]mcp.ServerConfig),
		statuses:    make(map[string]mcp.ServerStatus),
		CallResults: make(map[string]*mcp.ToolResult),
		CallErrs:    make(map[string]error),
	}
}

// AddServer registers a server descriptor with the given status.
func (c *Catalog) AddServer(cfg mcp.ServerConfig, status mcp.ServerStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.servers[cfg.Name] = cfg
	c.statuses[cfg.Name] = status
}

// AddTool registers a tool spec. The owning server should be added first so
// that Available and Status behave consistently.
func (c *Catalog) AddTool(spec mcp.ToolSpec) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tools[spec.Name] = spec
}

// SetStatus changes a server's reported status.
func (c *Catalog) SetStatus(server string, status mcp.ServerStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[server] = status
}

// Calls returns a copy of all recorded Call invocations in order.
func (c *Catalog) Calls() []ToolCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ToolCall, len(c.calls))
	copy(out, c.calls)
	return out
}

// CallCount returns how many times the namespaced tool was called.
func (c *Catalog) CallCount(namespaced string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.calls {
		if call.Name == namespaced {
			n++
		}
	}
	return n
}

// ConnectAll implements [mcp.Catalog]. It records the descriptors as
// connected servers without performing any I/O.
func (c *Catalog) ConnectAll(_ context.Context, servers []mcp.ServerConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cfg := range servers {
		c.servers[cfg.Name] = cfg
		c.statuses[cfg.Name] = mcp.StatusConnected
	}
	return c.ConnectAllErr
}

// Resolve implements [mcp.Catalog].
func (c *Catalog) Resolve(name string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tools[name]; ok {
		return name, true
	}
	for ns, spec := range c.tools {
		if spec.SimpleName == name {
			return ns, true
		}
	}
	return "", false
}

// Lookup implements [mcp.Catalog].
func (c *Catalog) Lookup(namespaced string) (mcp.ToolSpec, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	spec, ok := c.tools[namespaced]
	return spec, ok
}

// ServerOf implements [mcp.Catalog].
func (c *Catalog) ServerOf(namespaced string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	spec, ok := c.tools[namespaced]
	if !ok {
		return "", false
	}
	return spec.Server, true
}

// Search implements [mcp.Catalog].
func (c *Catalog) Search(keyword string) []mcp.ToolSpec {
	kw := strings.ToLower(keyword)
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []mcp.ToolSpec
	for _, spec := range c.tools {
		if strings.Contains(strings.ToLower(spec.Name), kw) ||
			strings.Contains(strings.ToLower(spec.Description), kw) {
			out = append(out, spec)
		}
	}
	return out
}

// Tools implements [mcp.Catalog].
func (c *Catalog) Tools() []mcp.ToolSpec {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]mcp.ToolSpec, 0, len(c.tools))
	for _, spec := range c.tools {
		out = append(out, spec)
	}
	return out
}

// Descriptor implements [mcp.Catalog].
func (c *Catalog) Descriptor(server string) (mcp.ServerConfig, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cfg, ok := c.servers[server]
	return cfg, ok
}

// Status implements [mcp.Catalog].
func (c *Catalog) Status(server string) mcp.ServerStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statuses[server]
}

// Available implements [mcp.Catalog].
func (c *Catalog) Available(namespaced string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	spec, ok := c.tools[namespaced]
	if !ok {
		return false
	}
	return c.statuses[spec.Server] == mcp.StatusConnected
}

// Call implements [mcp.Catalog].
func (c *Catalog) Call(ctx context.Context, namespaced string, args map[string]any) (*mcp.ToolResult, error) {
	c.mu.Lock()
	c.calls = append(c.calls, ToolCall{Name: namespaced, Args: args})
	fn := c.CallFn
	res := c.CallResults[namespaced]
	err := c.CallErrs[namespaced]
	_, known := c.tools[namespaced]
	c.mu.Unlock()

	if fn != nil {
		return fn(ctx, namespaced, args)
	}
	if err != nil {
		return nil, err
	}
	if res != nil {
		return res, nil
	}
	if !known {
		return nil, fmt.Errorf("mock: tool %q not found", namespaced)
	}
	return &mcp.ToolResult{Content: "ok"}, nil
}

// Close implements [mcp.Catalog].
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for name := range c.statuses {
		c.statuses[name] = mcp.StatusDisconnected
	}
	return nil
}
