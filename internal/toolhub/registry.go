package toolhub

import (
	"sort"
	"strings"
	"sync"
)

var capabilityKeywords = map[string][]string{
	"search":   {"search", "find", "query", "lookup"},
	"web":      {"web", "internet", "online"},
	"research": {"research", "investigate"},
	"calculate": {"calculate", "compute", "math", "arithmetic"},
	"time":     {"time", "clock", "date", "now", "current"},
	"weather":  {"weather", "forecast", "climate"},
	"document": {"document", "file", "pdf", "docx", "xlsx"},
	"pdf":      {"pdf", "portable document"},
	"extract":  {"extract", "parse"},
	"analyze":  {"analyze", "analysis", "summary", "summarize"},
	"map":      {"map", "location", "geography"},
	"history":  {"history", "conversation", "previous"},
}

// ExtractCapabilities derives capability tags from a tool's name and
// description when the tool doesn't declare its own, mirroring
// _extract_capabilities_from_description's keyword-scan fallback.
func ExtractCapabilities(name, description string) []string {
	text := strings.ToLower(description + " " + name)
	found := map[string]struct{}{}
	for cap, keywords := range capabilityKeywords {
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				found[cap] = struct{}{}
				break
			}
		}
	}
	if len(found) == 0 {
		lower := strings.ToLower(name)
		switch {
		case strings.Contains(lower, "search"):
			found["search"] = struct{}{}
		case strings.Contains(lower, "calc"):
			found["calculate"] = struct{}{}
		case strings.Contains(lower, "time"):
			found["time"] = struct{}{}
		case strings.Contains(lower, "weather"):
			found["weather"] = struct{}{}
		case strings.Contains(lower, "pdf"):
			found["pdf"] = struct{}{}
			found["document"] = struct{}{}
			found["extract"] = struct{}{}
		}
	}
	out := make([]string, 0, len(found))
	for c := range found {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Hub is the registry plus dispatcher: candidates indexed by name and by
// capability, a mutex-guarded last-success cache, and the execution logic
// in execute.go/synthesize.go/score.go.
type Hub struct {
	mu sync.RWMutex

	byName       map[string][]*Candidate
	byCapability map[string][]*Candidate

	successMu   sync.Mutex
	lastSuccess map[string]int // name -> index into byName[name]

	timeout func() (seconds float64) // resolved lazily via config, cached by caller
}

// New builds an empty Hub. timeoutFn resolves the per-call tool timeout
// (seconds), typically config.Config.Tools.Timeout wrapped in a cache.
func New(timeoutFn func() float64) *Hub {
	return &Hub{
		byName:       make(map[string][]*Candidate),
		byCapability: make(map[string][]*Candidate),
		lastSuccess:  make(map[string]int),
		timeout:      timeoutFn,
	}
}

// Register adds a candidate to the by-name and by-capability indices,
// deriving capabilities from the description when none are declared.
// Registration is startup-time only; the indices are read-only afterward.
func (h *Hub) Register(c Candidate) {
	if len(c.Capabilities) == 0 {
		c.Capabilities = ExtractCapabilities(c.Name, c.Tool.Description())
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	cp := c
	arr := append(h.byName[c.Name], &cp)
	sort.SliceStable(arr, func(i, j int) bool { return arr[i].Priority < arr[j].Priority })
	h.byName[c.Name] = arr

	for _, cap := range cp.Capabilities {
		cap = strings.ToLower(strings.TrimSpace(cap))
		if cap == "" {
			continue
		}
		h.byCapability[cap] = append(h.byCapability[cap], &cp)
	}
}

// HasTool reports whether any candidate is registered under name.
func (h *Hub) HasTool(name string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byName[name]) > 0
}

// FindByCapability returns the de-duplicated candidate set for a capability.
func (h *Hub) FindByCapability(capability string) []*Candidate {
	h.mu.RLock()
	defer h.mu.RUnlock()
	cands := h.byCapability[strings.ToLower(strings.TrimSpace(capability))]
	seen := make(map[string]struct{}, len(cands))
	out := make([]*Candidate, 0, len(cands))
	for _, c := range cands {
		key := c.Name + "|" + string(c.Source)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Capabilities lists every distinct capability tag known to the hub, used
// by the orchestrator's capability self-description fast-path.
func (h *Hub) Capabilities() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.byCapability))
	for c := range h.byCapability {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// ToolNames lists every distinct registered tool name, used by
// PlanningAgent to build its tool-inventory prompt section.
func (h *Hub) ToolNames() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.byName))
	for n := range h.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Descriptions returns name -> first-registered candidate's description,
// used by the same prompt-building step.
func (h *Hub) Descriptions() map[string]string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]string, len(h.byName))
	for n, cands := range h.byName {
		if len(cands) > 0 {
			out[n] = cands[0].Tool.Description()
		}
	}
	return out
}

func (h *Hub) candidatesByName(name string) []*Candidate {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Candidate, len(h.byName[name]))
	copy(out, h.byName[name])
	return out
}

func (h *Hub) getLastSuccess(name string) (int, bool) {
	h.successMu.Lock()
	defer h.successMu.Unlock()
	idx, ok := h.lastSuccess[name]
	return idx, ok
}

func (h *Hub) setLastSuccess(name string, idx int) {
	h.successMu.Lock()
	defer h.successMu.Unlock()
	h.lastSuccess[name] = idx
}

// suggestSimilarCapabilities returns up to 3 known capability tags whose
// name contains, or is contained by, the unmatched capability.
func (h *Hub) suggestSimilarCapabilities(capability string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	lower := strings.ToLower(capability)
	var out []string
	for c := range h.byCapability {
		if strings.Contains(lower, c) || strings.Contains(c, lower) {
			out = append(out, c)
			if len(out) == 3 {
				break
			}
		}
	}
	sort.Strings(out)
	return out
}
