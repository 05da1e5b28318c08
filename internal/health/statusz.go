package health

import "net/http"

// ServerInfo is one tool server's entry in the /statusz response.
type ServerInfo struct {
	// Name is the server's configured name.
	Name string `json:"name"`

	// Status is the connection state: "connected", "disconnected", or "error".
	Status string `json:"status"`

	// Tools is the number of tools the server currently contributes.
	Tools int `json:"tools"`
}

// StatusSnapshot is the /statusz response body.
type StatusSnapshot struct {
	// Strategy is the active reasoning strategy kind.
	Strategy string `json:"strategy"`

	// Servers lists every configured tool server with its connection state.
	Servers []ServerInfo `json:"servers"`

	// Breakers maps provider names to circuit-breaker states
	// ("closed", "open", "half-open").
	Breakers map[string]string `json:"breakers,omitempty"`
}

// SetStatusSource registers the snapshot function backing /statusz. Call it
// during wiring, before [Handler.Register]; a nil source leaves the route
// unregistered.
func (h *Handler) SetStatusSource(fn func() StatusSnapshot) {
	h.status = fn
}

// Statusz returns a point-in-time snapshot of the runtime: tool-server
// connection states, tool counts, and provider breaker states.
func (h *Handler) Statusz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.status())
}
