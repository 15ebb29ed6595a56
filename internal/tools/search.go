package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/brightfieldai/researchcore/internal/toolhub"
)

// SearchWeb is a deterministic stand-in for a real search-engine backed
// tool. Grounded on search_tool.py's shape (string-or-{"query":...} input,
// {success, query, results, count} output) with the real requests.get call
// against SERPAPI removed: a live search backend is an external
// collaborator outside this module's scope, and this tool exists only to
// exercise ToolHub's scoring/racing/synthesis machinery end-to-end.
type SearchWeb struct{}

// NewSearchWeb builds the search_web reference tool.
func NewSearchWeb() *SearchWeb { return &SearchWeb{} }

func (s *SearchWeb) Description() string {
	return "Searches the web for facts, current events, and reference material."
}

func (s *SearchWeb) Capabilities() []string { return []string{"search", "web", "search_web"} }

func (s *SearchWeb) Execute(ctx context.Context, input any) (toolhub.Result, error) {
	query := extractQuery(input)
	if query == "" {
		return toolhub.Result{Success: false, Error: "invalid_input: search query cannot be empty"}, nil
	}

	results := stubResults(query, 5)
	lines := make([]string, 0, len(results))
	for i, r := range results {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, r))
	}
	return toolhub.Result{
		Success: true,
		Result:  strings.Join(lines, "\n"),
		Meta: map[string]any{
			"query":   query,
			"count":   len(results),
			"results": results,
			"source":  "search_web",
		},
	}, nil
}

// AdvancedWebSearch is the deeper-fetch counterpart to SearchWeb, grounded
// on advanced_web_search_tool.py's num_results/fetch_content input shape.
// Like SearchWeb it stubs out the network call.
type AdvancedWebSearch struct{}

// NewAdvancedWebSearch builds the advanced_web_search reference tool.
func NewAdvancedWebSearch() *AdvancedWebSearch { return &AdvancedWebSearch{} }

func (s *AdvancedWebSearch) Description() string {
	return "Searches the web and optionally fetches page content for higher-precision answers."
}

func (s *AdvancedWebSearch) Capabilities() []string {
	return []string{"search", "web", "advanced_web_search", "extract"}
}

func (s *AdvancedWebSearch) Execute(ctx context.Context, input any) (toolhub.Result, error) {
	m, _ := input.(map[string]any)
	query := extractQuery(input)
	if query == "" {
		if m != nil {
			query = extractQuery(m["query"])
		}
	}
	if query == "" {
		return toolhub.Result{Success: false, Error: "invalid_input: search query cannot be empty"}, nil
	}

	numResults := 5
	if m != nil {
		if n, ok := m["num_results"].(int); ok && n > 0 {
			numResults = n
		}
	}
	fetchContent := false
	if m != nil {
		if fc, ok := m["fetch_content"].(bool); ok {
			fetchContent = fc
		}
	}

	results := stubResults(query, numResults)
	lines := make([]string, 0, len(results))
	for i, r := range results {
		line := fmt.Sprintf("%d. %s", i+1, r)
		if fetchContent {
			line += fmt.Sprintf(" — excerpt: relevant background on %q.", query)
		}
		lines = append(lines, line)
	}
	return toolhub.Result{
		Success: true,
		Result:  strings.Join(lines, "\n"),
		Meta: map[string]any{
			"query":         query,
			"count":         len(results),
			"results":       results,
			"fetch_content": fetchContent,
			"source":        "advanced_web_search",
		},
	}, nil
}

func extractQuery(input any) string {
	switch v := input.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		if q, ok := v["query"].(string); ok {
			return strings.TrimSpace(q)
		}
	}
	return ""
}

func stubResults(query string, n int) []string {
	if n <= 0 {
		n = 1
	}
	if n > 10 {
		n = 10
	}
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, fmt.Sprintf("Result %d for %q", i, query))
	}
	return out
}
