// Package policy derives adaptive operating parameters from catalog metadata
// instead of hardcoded rules: retry budgets from server priority, default
// timezones from server descriptions, query complexity and tool relevance
// from token overlap and entity detection.
//
// The Advisor's methods are pure functions over the catalog's current state
// except for two small memoizing caches (parameter schemas and the entity
// types a tool supports), both dropped by [Advisor.ClearCache].
//
// The scoring and matching rules here are deliberately approximate keyword
// heuristics. They are documented behavior, not classifiers — do not "fix"
// the scoring without revisiting every caller's thresholds.
package policy

import (
	"strings"
	"sync"

	"github.com/gazolla/chatcli/internal/mcp"
)

// Retry budgets by server priority class.
const (
	retriesHigh    = 5
	retriesMedium  = 3
	retriesLow     = 2
	retriesDefault = 2
)

// minTokenLen is the shortest query/description token considered meaningful
// for overlap scoring.
const minTokenLen = 4

// Complexity summarises how demanding a query looks before any model call.
type Complexity struct {
	// ToolCount is the number of registered tools sharing a meaningful token
	// with the query.
	ToolCount int

	// RequiresMultipleServers is true when the matching tools span more than
	// one server.
	RequiresMultipleServers bool

	// IsComplex is true when more than one tool matches, multiple servers are
	// involved, or the query contains more than one detected entity type.
	IsComplex bool
}

// Advisor derives adaptive parameters from an [mcp.Catalog].
//
// Safe for concurrent use.
type Advisor struct {
	catalog mcp.Catalog

	mu          sync.Mutex
	schemaCache map[string]map[string]mcp.ParamSpec
	entityCache map[string][]EntityType
}

// New creates an Advisor over the given catalog.
func New(catalog mcp.Catalog) *Advisor {
	return &Advisor{
		catalog:     catalog,
		schemaCache: make(map[string]map[string]mcp.ParamSpec),
		entityCache: make(map[string][]EntityType),
	}
}

// ClearCache drops the memoized schema and entity-support caches. Call after
// a rediscovery pass replaces tool specs.
func (a *Advisor) ClearCache() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.schemaCache = make(map[string]map[string]mcp.ParamSpec)
	a.entityCache = make(map[string][]EntityType)
}

// OptimalRetries maps the owning server's priority class to a retry budget:
// high 5, medium 3, low 2, unclassified 2. Tools whose server cannot be
// resolved fall back to 2.
func (a *Advisor) OptimalRetries(tool string) int {
	cfg, ok := a.descriptorFor(tool)
	if !ok {
		return retriesDefault
	}
	switch cfg.Priority {
	case mcp.PriorityHigh:
		return retriesHigh
	case mcp.PriorityMedium:
		return retriesMedium
	case mcp.PriorityLow:
		return retriesLow
	default:
		return retriesDefault
	}
}

// DefaultTimezone picks a timezone for time-sensitive tool arguments. An
// explicit TZ/TIMEZONE environment override on the owning server wins; next
// the server description is scanned for regional hints; UTC is the fallback.
func (a *Advisor) DefaultTimezone(tool string) string {
	cfg, ok := a.descriptorFor(tool)
	if !ok {
		return "UTC"
	}

	for _, key := range []string{"TZ", "TIMEZONE"} {
		if tz := cfg.Env[key]; tz != "" {
			return tz
		}
	}

	desc := strings.ToLower(cfg.Description)
	switch {
	case strings.Contains(desc, "brazil"), strings.Contains(desc, "brasil"):
		return "America/Sao_Paulo"
	case strings.Contains(desc, "europe"):
		return "Europe/London"
	case strings.Contains(desc, "asia"):
		return "Asia/Tokyo"
	}
	return "UTC"
}

// QueryComplexity scans every connected server's discovered tools for shared
// meaningful tokens with the query and classifies the query accordingly.
func (a *Advisor) QueryComplexity(query string) Complexity {
	tokens := meaningfulTokens(query)

	servers := map[string]bool{}
	toolCount := 0
	for _, spec := range a.catalog.Tools() {
		if a.catalog.Status(spec.Server) != mcp.StatusConnected {
			continue
		}
		if sharesToken(tokens, spec) {
			toolCount++
			servers[spec.Server] = true
		}
	}

	multiServer := len(servers) > 1
	entities := DetectEntities(query)

	return Complexity{
		ToolCount:               toolCount,
		RequiresMultipleServers: multiServer,
		IsComplex:               toolCount > 1 || multiServer || len(entities) > 1,
	}
}

// OptimalChainLength bounds how many sequential tool invocations a reasoning
// strategy may chain for one query.
func (a *Advisor) OptimalChainLength(query string) int {
	c := a.QueryComplexity(query)
	switch {
	case c.RequiresMultipleServers:
		return 5
	case c.ToolCount > 2:
		return 4
	case c.ToolCount > 1:
		return 3
	default:
		return 2
	}
}

// ToolRelevance scores how relevant the named tool is to the query, in
// [0, 1]. The score is a weighted sum of description token overlap (exact
// match 0.3, substring 0.1 per pair), server description overlap (0.4), and
// 0.2 per entity type both detected in the query and supported by the tool's
// parameter names, capped at 1.0.
func (a *Advisor) ToolRelevance(query, tool string) float64 {
	ns, ok := a.catalog.Resolve(tool)
	if !ok {
		return 0
	}
	spec, ok := a.catalog.Lookup(ns)
	if !ok {
		return 0
	}

	queryTokens := meaningfulTokens(query)
	descTokens := meaningfulTokens(spec.Description)

	score := 0.0
	for _, qt := range queryTokens {
		for _, dt := range descTokens {
			if qt == dt {
				score += 0.3
			} else if strings.Contains(dt, qt) || strings.Contains(qt, dt) {
				score += 0.1
			}
		}
	}

	if cfg, ok := a.catalog.Descriptor(spec.Server); ok {
		serverTokens := meaningfulTokens(cfg.Description)
		for _, qt := range queryTokens {
			matched := false
			for _, st := range serverTokens {
				if qt == st {
					score += 0.4
					matched = true
					break
				}
			}
			if matched {
				break
			}
		}
	}

	supported := a.supportedEntities(ns)
	for _, et := range DetectEntities(query) {
		for _, s := range supported {
			if et == s {
				score += 0.2
				break
			}
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// IsValidationError reports whether message looks like an argument mismatch
// for the named tool: any of the tool's parameter names (required ones
// included) appearing verbatim in the message counts as a match. Without a
// schema it falls back to generic validation keywords.
func (a *Advisor) IsValidationError(message, tool string) bool {
	schema := a.schemaFor(tool)
	if len(schema) > 0 {
		for name := range schema {
			if strings.Contains(message, name) {
				return true
			}
		}
		// A schema is authoritative: a message naming none of its fields
		// is not a validation failure, whatever keywords it contains.
		return false
	}
	lower := strings.ToLower(message)
	return strings.Contains(lower, "validation") ||
		strings.Contains(lower, "required") ||
		strings.Contains(lower, "invalid")
}

// schemaFor returns the tool's parameter schema, memoized per namespaced name.
func (a *Advisor) schemaFor(tool string) map[string]mcp.ParamSpec {
	ns, ok := a.catalog.Resolve(tool)
	if !ok {
		return nil
	}

	a.mu.Lock()
	if cached, ok := a.schemaCache[ns]; ok {
		a.mu.Unlock()
		return cached
	}
	a.mu.Unlock()

	spec, ok := a.catalog.Lookup(ns)
	if !ok {
		return nil
	}

	a.mu.Lock()
	a.schemaCache[ns] = spec.Parameters
	a.mu.Unlock()
	return spec.Parameters
}

// supportedEntities infers which entity types a tool can consume from its
// parameter-name patterns, memoized per namespaced name.
func (a *Advisor) supportedEntities(ns string) []EntityType {
	a.mu.Lock()
	if cached, ok := a.entityCache[ns]; ok {
		a.mu.Unlock()
		return cached
	}
	a.mu.Unlock()

	spec, ok := a.catalog.Lookup(ns)
	if !ok {
		return nil
	}

	seen := map[EntityType]bool{}
	var out []EntityType
	add := func(et EntityType) {
		if !seen[et] {
			seen[et] = true
			out = append(out, et)
		}
	}

	for name := range spec.Parameters {
		lower := strings.ToLower(name)
		switch {
		case strings.Contains(lower, "url"):
			add(EntityURL)
		case strings.Contains(lower, "file"), strings.Contains(lower, "path"):
			add(EntityFile)
		case strings.Contains(lower, "location"), strings.Contains(lower, "latitude"),
			strings.Contains(lower, "longitude"), strings.Contains(lower, "city"):
			add(EntityLocation)
		case strings.Contains(lower, "time"), strings.Contains(lower, "date"),
			strings.Contains(lower, "timezone"):
			add(EntityTime)
		case strings.Contains(lower, "email"), strings.Contains(lower, "mail"):
			add(EntityEmail)
		case strings.Contains(lower, "number"), strings.Contains(lower, "amount"),
			strings.Contains(lower, "count"):
			add(EntityNumber)
		}
	}

	a.mu.Lock()
	a.entityCache[ns] = out
	a.mu.Unlock()
	return out
}

// descriptorFor resolves a tool name to its owning server's descriptor.
func (a *Advisor) descriptorFor(tool string) (mcp.ServerConfig, bool) {
	ns, ok := a.catalog.Resolve(tool)
	if !ok {
		return mcp.ServerConfig{}, false
	}
	server, ok := a.catalog.ServerOf(ns)
	if !ok {
		return mcp.ServerConfig{}, false
	}
	return a.catalog.Descriptor(server)
}

// meaningfulTokens lower-cases and splits text on non-alphanumeric runes,
// keeping only tokens longer than three characters.
func meaningfulTokens(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) >= minTokenLen {
			out = append(out, f)
		}
	}
	return out
}

// sharesToken reports whether any query token appears as a substring of the
// tool's name or description.
func sharesToken(tokens []string, spec mcp.ToolSpec) bool {
	name := strings.ToLower(spec.Name)
	desc := strings.ToLower(spec.Description)
	for _, t := range tokens {
		if strings.Contains(name, t) || strings.Contains(desc, t) {
			return true
		}
	}
	return false
}
