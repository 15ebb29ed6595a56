package toolhub

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const llmSynthesisTimeout = 10 * time.Second

// synthesize merges successful candidate results into one. Grounded on
// _synthesize_results: skip LLM entirely when the caller passed no LLM,
// fall back to simple merge on total-length/count thresholds or on LLM
// timeout/error.
func (h *Hub) synthesize(ctx context.Context, successful []Result, toolName string, input any, llm LLM) Result {
	if len(successful) == 0 {
		return Result{Success: false, Error: "no_results_to_synthesize"}
	}
	if len(successful) == 1 {
		return successful[0]
	}

	totalLen := 0
	for _, r := range successful {
		totalLen += len(resultText(r))
	}
	if totalLen > 2000 || len(successful) > 3 {
		return simpleMerge(successful)
	}

	if llm == nil {
		return simpleMerge(successful)
	}

	prompt := buildSynthesisPrompt(successful, toolName, input)
	ctx, cancel := context.WithTimeout(ctx, llmSynthesisTimeout)
	defer cancel()

	out, err := llm.Generate(ctx, prompt, GenerateOptions{Temperature: 0, MaxTokens: 512, Timeout: llmSynthesisTimeout})
	if err != nil || strings.TrimSpace(out) == "" {
		return simpleMerge(successful)
	}

	sources := make([]string, len(successful))
	for i, r := range successful {
		sources[i] = sourceOf(r)
	}
	return Result{
		Success: true,
		Result:  strings.TrimSpace(out),
		Meta: map[string]any{
			"synthesized":  true,
			"source_count": len(successful),
			"sources":      sources,
		},
	}
}

func sourceOf(r Result) string {
	if r.Meta == nil {
		return "unknown"
	}
	if s, ok := r.Meta["source"].(string); ok {
		return s
	}
	return "unknown"
}

func perSourceBudget(toolName string, numResults int) int {
	lower := strings.ToLower(toolName)
	switch {
	case strings.Contains(lower, "calculate") || strings.Contains(lower, "calc"):
		return 100
	case strings.Contains(lower, "search") || strings.Contains(lower, "web"):
		if numResults <= 2 {
			return 300
		}
		return 200
	case strings.Contains(lower, "extract") || strings.Contains(lower, "pdf") || strings.Contains(lower, "document"):
		return 300
	default:
		return 250
	}
}

func truncateWithMarker(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

func buildSynthesisPrompt(successful []Result, toolName string, input any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an information synthesis expert. Combine the following tool results into one accurate, complete answer.\n\n")
	fmt.Fprintf(&b, "Original query: %s\n\n", truncateWithMarker(fmt.Sprintf("%v", input), 200))
	b.WriteString("Tool results:\n")
	budget := perSourceBudget(toolName, len(successful))
	for i, r := range successful {
		fmt.Fprintf(&b, "Result %d (%s):\n%s\n", i+1, sourceOf(r), truncateWithMarker(resultText(r), budget))
	}
	b.WriteString("\nRequirements:\n")
	b.WriteString("1. Combine all results and extract the key information.\n")
	b.WriteString("2. Merge information that agrees across results.\n")
	b.WriteString("3. Note any conflicts between results.\n")
	b.WriteString("4. Integrate complementary information.\n")
	b.WriteString("5. Produce one clear, accurate answer, with no reasoning steps shown.\n")
	return b.String()
}

func simpleMerge(successful []Result) Result {
	parts := make([]string, len(successful))
	sources := make([]string, len(successful))
	for i, r := range successful {
		sources[i] = sourceOf(r)
		parts[i] = fmt.Sprintf("[source %d (%s)]: %s", i+1, sources[i], truncateWithMarker(resultText(r), 300))
	}
	return Result{
		Success: true,
		Result:  strings.Join(parts, "\n\n"),
		Meta: map[string]any{
			"synthesized":      true,
			"synthesis_method": "simple_merge",
			"source_count":     len(successful),
			"sources":          sources,
		},
	}
}
