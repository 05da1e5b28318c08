package catalog

import (
	"context"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gazolla/chatcli/internal/mcp"
)

// fixtureTool describes one tool served by the in-memory test server.
type fixtureTool struct {
	name        string
	description string
	schema      map[string]any
	result      string
	isError     bool
}

// startFixture runs an in-memory tool server and imports it into c under cfg.
func startFixture(t *testing.T, c *Catalog, cfg mcp.ServerConfig, tools []fixtureTool) {
	t.Helper()
	ctx := context.Background()

	server := mcpsdk.NewServer(
		&mcpsdk.Implementation{Name: cfg.Name, Version: "0.1.0"},
		&mcpsdk.ServerOptions{HasTools: true},
	)
	for _, ft := range tools {
		schema := ft.schema
		if schema == nil {
			schema = map[string]any{"type": "object"}
		}
		result, isError := ft.result, ft.isError
		server.AddTool(
			&mcpsdk.Tool{Name: ft.name, Description: ft.description, InputSchema: schema},
			func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
				return &mcpsdk.CallToolResult{
					Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: result}},
					IsError: isError,
				}, nil
			},
		)
	}

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()
	if _, err := server.Connect(ctx, serverTransport, nil); err != nil {
		t.Fatalf("fixture server connect: %v", err)
	}
	if err := c.ConnectSession(ctx, cfg, clientTransport); err != nil {
		t.Fatalf("ConnectSession(%q): %v", cfg.Name, err)
	}
}

func weatherFixture(t *testing.T, c *Catalog) {
	t.Helper()
	startFixture(t, c, mcp.ServerConfig{Name: "weather", Priority: mcp.PriorityHigh, Enabled: true}, []fixtureTool{{
		name:        "get-forecast",
		description: "Get the weather forecast for coordinates",
		schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"latitude":  map[string]any{"type": "number", "description": "Latitude"},
				"longitude": map[string]any{"type": "number", "description": "Longitude"},
			},
			"required": []any{"latitude", "longitude"},
		},
		result: `{"temp_c": 21}`,
	}})
}

func TestConnectSessionDiscoversTools(t *testing.T) {
	c := New()
	defer c.Close()
	weatherFixture(t, c)

	if got := c.Status("weather"); got != mcp.StatusConnected {
		t.Fatalf("Status = %v, want connected", got)
	}

	spec, ok := c.Lookup("weather_get-forecast")
	if !ok {
		t.Fatal("tool not registered under namespaced name")
	}
	if spec.SimpleName != "get-forecast" {
		t.Errorf("SimpleName = %q", spec.SimpleName)
	}
	if spec.Server != "weather" {
		t.Errorf("Server = %q", spec.Server)
	}
	if !spec.Parameters["latitude"].Required {
		t.Error("latitude not marked required")
	}
	if spec.Parameters["latitude"].Type != "number" {
		t.Errorf("latitude type = %q", spec.Parameters["latitude"].Type)
	}
	if spec.RawSchema == nil {
		t.Error("RawSchema is nil")
	}
}

func TestResolve(t *testing.T) {
	c := New()
	defer c.Close()
	weatherFixture(t, c)
	startFixture(t, c, mcp.ServerConfig{Name: "filesystem", Enabled: true}, []fixtureTool{{
		name:        "write_file",
		description: "Write a file",
		result:      "ok",
	}})

	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"namespaced stays as-is", "weather_get-forecast", "weather_get-forecast", true},
		{"simple name resolves", "get-forecast", "weather_get-forecast", true},
		{"simple name with underscore", "write_file", "filesystem_write_file", true},
		{"unknown tool", "get-tides", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.Resolve(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Resolve(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}

	// Resolving an already-resolved name is the identity.
	first, _ := c.Resolve("get-forecast")
	second, ok := c.Resolve(first)
	if !ok || second != first {
		t.Errorf("Resolve not idempotent: %q → %q", first, second)
	}
}

func TestCallRoutesToServer(t *testing.T) {
	c := New()
	defer c.Close()
	weatherFixture(t, c)

	res, err := c.Call(context.Background(), "weather_get-forecast", map[string]any{
		"latitude": 40.7, "longitude": -74.0,
	})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if res.IsError {
		t.Error("IsError = true")
	}
	if res.Content != `{"temp_c": 21}` {
		t.Errorf("Content = %q", res.Content)
	}
}

func TestCallToolError(t *testing.T) {
	c := New()
	defer c.Close()
	startFixture(t, c, mcp.ServerConfig{Name: "flaky", Enabled: true}, []fixtureTool{{
		name: "always-fails", description: "fails", result: "boom", isError: true,
	}})

	res, err := c.Call(context.Background(), "flaky_always-fails", nil)
	if err != nil {
		t.Fatalf("tool-level errors must come back in the result, got %v", err)
	}
	if !res.IsError {
		t.Error("IsError = false, want true")
	}
	if res.Content != "boom" {
		t.Errorf("Content = %q", res.Content)
	}
}

func TestCallUnknownTool(t *testing.T) {
	c := New()
	defer c.Close()
	if _, err := c.Call(context.Background(), "nope_nothing", nil); err == nil {
		t.Fatal("expected error for unknown tool")
	}
}

func TestDisconnectKeepsRegistration(t *testing.T) {
	c := New()
	defer c.Close()
	weatherFixture(t, c)

	if err := c.Disconnect("weather"); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if c.Available("weather_get-forecast") {
		t.Error("Available = true after disconnect")
	}
	if got := c.Status("weather"); got != mcp.StatusDisconnected {
		t.Errorf("Status = %v", got)
	}
	// The registration survives so name resolution still works.
	if _, ok := c.Resolve("get-forecast"); !ok {
		t.Error("Resolve failed after disconnect")
	}
	if _, err := c.Call(context.Background(), "weather_get-forecast", nil); err == nil {
		t.Error("Call must fail against a disconnected server")
	}
}

func TestReconnectReplacesToolsWholesale(t *testing.T) {
	c := New()
	defer c.Close()
	startFixture(t, c, mcp.ServerConfig{Name: "files", Enabled: true}, []fixtureTool{
		{name: "read_file", description: "Read a file", result: "data"},
		{name: "delete_file", description: "Delete a file", result: "gone"},
	})

	// The server comes back with a different tool surface.
	startFixture(t, c, mcp.ServerConfig{Name: "files", Enabled: true}, []fixtureTool{
		{name: "read_file", description: "Read a file", result: "data"},
	})

	if _, ok := c.Lookup("files_read_file"); !ok {
		t.Error("surviving tool missing after rediscovery")
	}
	if _, ok := c.Lookup("files_delete_file"); ok {
		t.Error("stale tool still registered after rediscovery")
	}
}

func TestSearch(t *testing.T) {
	c := New()
	defer c.Close()
	weatherFixture(t, c)

	if got := c.Search("forecast"); len(got) != 1 {
		t.Errorf("Search(forecast) = %d results, want 1", len(got))
	}
	// Case-insensitive, matches descriptions too.
	if got := c.Search("WEATHER"); len(got) != 1 {
		t.Errorf("Search(WEATHER) = %d results, want 1", len(got))
	}
	if got := c.Search("tides"); len(got) != 0 {
		t.Errorf("Search(tides) = %d results, want 0", len(got))
	}
	if got := c.Search(""); got != nil {
		t.Errorf("Search(\"\") = %v, want nil", got)
	}
}

func TestConnectAllSkipsDisabledServers(t *testing.T) {
	c := New()
	defer c.Close()

	err := c.ConnectAll(context.Background(), []mcp.ServerConfig{
		{Name: "disabled-one", Transport: mcp.TransportStdio, Command: "nonexistent-binary", Enabled: false},
	})
	if err != nil {
		t.Fatalf("ConnectAll() error = %v", err)
	}
	if got := c.Status("disabled-one"); got != mcp.StatusDisconnected {
		t.Errorf("disabled server status = %v, want disconnected", got)
	}
}

func TestConnectRejectsInvalidConfig(t *testing.T) {
	c := New()
	defer c.Close()
	ctx := context.Background()

	if err := c.Connect(ctx, mcp.ServerConfig{Transport: mcp.TransportStdio, Command: "foo"}); err == nil {
		t.Error("expected error for empty server name")
	}
	if err := c.Connect(ctx, mcp.ServerConfig{Name: "x", Transport: "websocket"}); err == nil {
		t.Error("expected error for unknown transport")
	}
	if err := c.Connect(ctx, mcp.ServerConfig{Name: "x", Transport: mcp.TransportStdio}); err == nil {
		t.Error("expected error for stdio without command")
	}
	if err := c.Connect(ctx, mcp.ServerConfig{Name: "x", Transport: mcp.TransportStreamableHTTP}); err == nil {
		t.Error("expected error for streamable-http without URL")
	}
	if got := c.Status("x"); got != mcp.StatusError {
		t.Errorf("failed server status = %v, want error", got)
	}
}

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		in       string
		wantExe  string
		wantArgs int
	}{
		{"npx -y @modelcontextprotocol/server-filesystem /tmp", "npx", 3},
		{"docker run --rm myimage", "docker", 3},
		{"serve", "serve", 0},
		{"", "", 0},
		{"   ", "", 0},
	}
	for _, tt := range tests {
		exe, args := splitCommand(tt.in)
		if exe != tt.wantExe || len(args) != tt.wantArgs {
			t.Errorf("splitCommand(%q) = (%q, %d args), want (%q, %d)", tt.in, exe, len(args), tt.wantExe, tt.wantArgs)
		}
	}
}
