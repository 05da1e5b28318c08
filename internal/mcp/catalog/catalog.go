// Package catalog provides the concrete [mcp.Catalog] implementation.
//
// It connects to tool servers via stdio or streamable-HTTP transports using
// the official MCP Go SDK (github.com/modelcontextprotocol/go-sdk), discovers
// each server's tool list, and maintains a concurrent-safe registry keyed by
// the namespaced "{server}_{tool}" identity.
//
// Typical usage:
//
//	c := catalog.New()
//	_ = c.ConnectAll(ctx, cfg.Servers) // partial failures logged, not fatal
//	ns, ok := c.Resolve("get-forecast") // → "weather_get-forecast"
//	res, err := c.Call(ctx, ns, map[string]any{"latitude": 40.7, "longitude": -74.0})
//	defer c.Close()
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/gazolla/chatcli/internal/mcp"
)

// connectConcurrency bounds how many server handshakes run at once during
// ConnectAll.
const connectConcurrency = 4

// serverConn holds the live state for one configured server.
type serverConn struct {
	cfg     mcp.ServerConfig
	session *mcpsdk.ClientSession // nil unless status == StatusConnected
	status  mcp.ServerStatus
}

// Catalog is the concrete [mcp.Catalog] backed by the official MCP Go SDK.
//
// The zero value is NOT usable; create instances with [New].
type Catalog struct {
	mu      sync.RWMutex
	tools   map[string]mcp.ToolSpec // key: namespaced "{server}_{tool}"
	servers map[string]*serverConn  // key: server name

	// client is reused across all server connections. The official SDK allows
	// a single Client to manage multiple sessions concurrently.
	client *mcpsdk.Client
}

// Compile-time check: Catalog must implement mcp.Catalog.
var _ mcp.Catalog = (*Catalog)(nil)

// New creates and returns a ready-to-use Catalog.
func New() *Catalog {
	client := mcpsdk.NewClient(
		&mcpsdk.Implementation{Name: "chatcli-catalog", Version: "1.0.0"},
		nil,
	)
	return &Catalog{
		tools:   make(map[string]mcp.ToolSpec),
		servers: make(map[string]*serverConn),
		client:  client,
	}
}

// ConnectAll implements [mcp.Catalog]. Enabled servers are connected with
// bounded concurrency; each failure marks only its own server StatusError.
func (c *Catalog) ConnectAll(ctx context.Context, servers []mcp.ServerConfig) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(connectConcurrency)

	var (
		errMu sync.Mutex
		errs  []error
	)

	for _, cfg := range servers {
		if !cfg.Enabled {
			slog.Info("skipping disabled server", "server", cfg.Name)
			continue
		}
		g.Go(func() error {
			if err := c.Connect(gctx, cfg); err != nil {
				slog.Warn("server connection failed", "server", cfg.Name, "err", err)
				errMu.Lock()
				errs = append(errs, err)
				errMu.Unlock()
			}
			// Never abort the group: partial availability is the expected
			// steady state.
			return nil
		})
	}

	_ = g.Wait()
	return errors.Join(errs...)
}

// Connect establishes a session to the server described by cfg and imports its
// tool list into the registry. If a server with the same Name is already
// registered, the old connection is closed and its tools are replaced
// wholesale.
func (c *Catalog) Connect(ctx context.Context, cfg mcp.ServerConfig) error {
	if cfg.Name == "" {
		return fmt.Errorf("catalog: server config must have a non-empty name")
	}
	if !cfg.Transport.IsValid() {
		return c.markError(cfg, fmt.Errorf("catalog: unknown transport %q for server %q", cfg.Transport, cfg.Name))
	}

	var transport mcpsdk.Transport

	switch cfg.Transport {
	case mcp.TransportStdio:
		executable, args := splitCommand(cfg.Command)
		if executable == "" {
			return c.markError(cfg, fmt.Errorf("catalog: stdio server %q requires a non-empty Command", cfg.Name))
		}
		cmd := exec.CommandContext(ctx, executable, args...)
		for k, v := range cfg.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
		transport = &mcpsdk.CommandTransport{Command: cmd}

	case mcp.TransportStreamableHTTP:
		if cfg.URL == "" {
			return c.markError(cfg, fmt.Errorf("catalog: streamable-http server %q requires a non-empty URL", cfg.Name))
		}
		transport = &mcpsdk.StreamableClientTransport{Endpoint: cfg.URL}
	}

	session, err := c.client.Connect(ctx, transport, nil)
	if err != nil {
		return c.markError(cfg, fmt.Errorf("catalog: connect to server %q: %w", cfg.Name, err))
	}

	return c.discover(ctx, cfg, session)
}

// ConnectSession imports tools from an already-established SDK transport.
// Used by tests to wire in-memory server fixtures without spawning processes.
func (c *Catalog) ConnectSession(ctx context.Context, cfg mcp.ServerConfig, transport mcpsdk.Transport) error {
	session, err := c.client.Connect(ctx, transport, nil)
	if err != nil {
		return c.markError(cfg, fmt.Errorf("catalog: connect to server %q: %w", cfg.Name, err))
	}
	return c.discover(ctx, cfg, session)
}

// markError records a failed connection attempt for cfg and returns err.
func (c *Catalog) markError(cfg mcp.ServerConfig, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.servers[cfg.Name]; ok && old.session != nil {
		_ = old.session.Close()
	}
	c.servers[cfg.Name] = &serverConn{cfg: cfg, status: mcp.StatusError}
	return err
}

// discover lists the server's tools and rebuilds its registry slice wholesale.
func (c *Catalog) discover(ctx context.Context, cfg mcp.ServerConfig, session *mcpsdk.ClientSession) error {
	var discovered []mcpsdk.Tool
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			_ = session.Close()
			return c.markError(cfg, fmt.Errorf("catalog: list tools for server %q: %w", cfg.Name, err))
		}
		discovered = append(discovered, *tool)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Replace any previous registration for this server wholesale.
	if old, ok := c.servers[cfg.Name]; ok && old.session != nil {
		_ = old.session.Close()
	}
	for name, t := range c.tools {
		if t.Server == cfg.Name {
			delete(c.tools, name)
		}
	}

	c.servers[cfg.Name] = &serverConn{cfg: cfg, session: session, status: mcp.StatusConnected}

	for _, t := range discovered {
		spec := buildToolSpec(t, cfg.Name)
		c.tools[spec.Name] = spec
	}

	slog.Info("server connected", "server", cfg.Name, "tools", len(discovered))
	return nil
}

// buildToolSpec converts an official SDK Tool into a registry ToolSpec under
// the namespaced "{server}_{tool}" identity.
func buildToolSpec(t mcpsdk.Tool, server string) mcp.ToolSpec {
	raw := schemaToMap(t.InputSchema)
	return mcp.ToolSpec{
		Name:        mcp.NamespacedName(server, t.Name),
		SimpleName:  t.Name,
		Server:      server,
		Description: t.Description,
		Parameters:  paramsFromSchema(raw),
		RawSchema:   raw,
	}
}

// paramsFromSchema flattens a JSON Schema object into per-parameter specs.
func paramsFromSchema(schema map[string]any) map[string]mcp.ParamSpec {
	props, _ := schema["properties"].(map[string]any)
	if len(props) == 0 {
		return nil
	}

	required := map[string]bool{}
	if reqList, ok := schema["required"].([]any); ok {
		for _, r := range reqList {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	}

	params := make(map[string]mcp.ParamSpec, len(props))
	for name, v := range props {
		spec := mcp.ParamSpec{Required: required[name]}
		if prop, ok := v.(map[string]any); ok {
			spec.Type, _ = prop["type"].(string)
			spec.Description, _ = prop["description"].(string)
		}
		params[name] = spec
	}
	return params
}

// schemaToMap converts any schema value to a map[string]any via a JSON
// round-trip (the SDK's schema type does not expose its fields directly).
func schemaToMap(schema any) map[string]any {
	if schema == nil {
		return map[string]any{"type": "object"}
	}
	if m, ok := schema.(map[string]any); ok {
		return m
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{"type": "object"}
	}
	return m
}

// Resolve implements [mcp.Catalog].
func (c *Catalog) Resolve(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.tools[name]; ok {
		return name, true
	}
	// Exact simple-name match after the server delimiter. No fuzzy matching.
	for ns, spec := range c.tools {
		if spec.SimpleName == name {
			return ns, true
		}
	}
	return "", false
}

// Lookup implements [mcp.Catalog].
func (c *Catalog) Lookup(namespaced string) (mcp.ToolSpec, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	spec, ok := c.tools[namespaced]
	return spec, ok
}

// ServerOf implements [mcp.Catalog].
func (c *Catalog) ServerOf(namespaced string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	spec, ok := c.tools[namespaced]
	if !ok {
		return "", false
	}
	return spec.Server, true
}

// Search implements [mcp.Catalog]. The match is a case-insensitive substring
// check against each tool's namespaced name and description.
func (c *Catalog) Search(keyword string) []mcp.ToolSpec {
	kw := strings.ToLower(keyword)
	if kw == "" {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

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
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]mcp.ToolSpec, 0, len(c.tools))
	for _, spec := range c.tools {
		out = append(out, spec)
	}
	return out
}

// Descriptor implements [mcp.Catalog].
func (c *Catalog) Descriptor(server string) (mcp.ServerConfig, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	conn, ok := c.servers[server]
	if !ok {
		return mcp.ServerConfig{}, false
	}
	return conn.cfg, true
}

// Status implements [mcp.Catalog].
func (c *Catalog) Status(server string) mcp.ServerStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	conn, ok := c.servers[server]
	if !ok {
		return mcp.StatusDisconnected
	}
	return conn.status
}

// Available implements [mcp.Catalog].
func (c *Catalog) Available(namespaced string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	spec, ok := c.tools[namespaced]
	if !ok {
		return false
	}
	conn, ok := c.servers[spec.Server]
	return ok && conn.status == mcp.StatusConnected
}

// Call implements [mcp.Catalog].
func (c *Catalog) Call(ctx context.Context, namespaced string, args map[string]any) (*mcp.ToolResult, error) {
	c.mu.RLock()
	spec, ok := c.tools[namespaced]
	var conn *serverConn
	if ok {
		conn = c.servers[spec.Server]
	}
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("catalog: tool %q not found", namespaced)
	}
	if conn == nil || conn.session == nil || conn.status != mcp.StatusConnected {
		return nil, fmt.Errorf("catalog: server %q for tool %q is not connected", spec.Server, namespaced)
	}

	// The server knows the tool by its simple name; the namespace prefix is a
	// catalog-level convention.
	callResult, err := conn.session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      spec.SimpleName,
		Arguments: args,
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: call to tool %q failed: %w", namespaced, err)
	}

	var sb strings.Builder
	for _, content := range callResult.Content {
		if tc, ok := content.(*mcpsdk.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}

	return &mcp.ToolResult{
		Content: sb.String(),
		IsError: callResult.IsError,
	}, nil
}

// Disconnect closes the named server's session and marks it disconnected.
// Its tools stay registered so that Resolve keeps working, but Available
// reports false until the server reconnects.
func (c *Catalog) Disconnect(server string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, ok := c.servers[server]
	if !ok {
		return fmt.Errorf("catalog: unknown server %q", server)
	}
	var err error
	if conn.session != nil {
		err = conn.session.Close()
		conn.session = nil
	}
	conn.status = mcp.StatusDisconnected
	return err
}

// Close implements [mcp.Catalog].
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for name, conn := range c.servers {
		if conn.session == nil {
			continue
		}
		if err := conn.session.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("catalog: close server %q: %w", name, err)
		}
		conn.session = nil
		conn.status = mcp.StatusDisconnected
	}
	c.tools = make(map[string]mcp.ToolSpec)
	return firstErr
}

// splitCommand splits a command string into executable and arguments.
// e.g. "/bin/foo --bar baz" → ("/bin/foo", ["--bar", "baz"]).
func splitCommand(command string) (executable string, args []string) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return "", nil
	}
	return parts[0], parts[1:]
}
