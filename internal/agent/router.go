package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/brightfieldai/researchcore/internal/logging"
	"github.com/brightfieldai/researchcore/internal/toolhub"
)

// TaskRouter is an optional, stateless pre-flight classifier: one LLM call
// asking whether the question needs tools at all, and if so which
// capability/attribute tags ToolHub should score candidates against.
// Extraction of the LLM's JSON reply is tolerant of surrounding prose or
// markdown fencing, and any parse or call failure defaults to "use tools"
// rather than blocking the question.
type TaskRouter struct{}

// NewTaskRouter builds a TaskRouter. It carries no state.
func NewTaskRouter() *TaskRouter { return &TaskRouter{} }

type routerRawOutput struct {
	UseTools       any    `json:"use_tools"`
	CapabilityTags any    `json:"capability_tags"`
	AttributeTags  any    `json:"attribute_tags"`
	AdaptCarriers  any    `json:"adapt_carriers"`
}

// Route classifies question with a single LLM call. On any failure —
// empty question, no LLM, unparseable response — it returns
// toolhub.DefaultTaskContext(), matching route_task's error-tolerant
// default.
func (r *TaskRouter) Route(ctx context.Context, llm LLM, question string, toolNames []string) toolhub.TaskContext {
	if strings.TrimSpace(question) == "" || llm == nil {
		return toolhub.DefaultTaskContext()
	}

	prompt := buildRouterPrompt(question, toolNames)
	out, err := llm.Generate(ctx, prompt, GenerateOptions{Temperature: 0, MaxTokens: 512, Timeout: defaultGenerateTimeout})
	if err != nil || strings.TrimSpace(out) == "" {
		logging.FromContext(ctx).Debug("task_router: llm call failed or empty, using default", "error", err)
		return toolhub.DefaultTaskContext()
	}

	raw, ok := extractRouterJSON(out)
	if !ok {
		logging.FromContext(ctx).Debug("task_router: no parseable JSON in response")
		return toolhub.DefaultTaskContext()
	}

	return buildTaskContext(raw)
}

func buildRouterPrompt(question string, toolNames []string) string {
	return fmt.Sprintf(
		"Classify the following question. Respond with a single JSON object:\n"+
			`{"use_tools": true, "capability_tags": [], "attribute_tags": {"timeliness": "medium", "reliability": "medium", "cost_sensitivity": "medium"}, "adapt_carriers": ["tools", "skills", "mcps"]}`+
			"\n\nKnown tools: %s\n\nQuestion: %s\n",
		strings.Join(toolNames, ", "), question,
	)
}

var routerJSONPattern = regexp.MustCompile(`(?s)\{.*\}`)

func extractRouterJSON(text string) (routerRawOutput, bool) {
	match := routerJSONPattern.FindString(text)
	if match == "" {
		return routerRawOutput{}, false
	}
	var raw routerRawOutput
	if err := json.Unmarshal([]byte(match), &raw); err != nil {
		return routerRawOutput{}, false
	}
	return raw, true
}

func buildTaskContext(raw routerRawOutput) toolhub.TaskContext {
	ctx := toolhub.DefaultTaskContext()

	if b, ok := raw.UseTools.(bool); ok {
		ctx.UseTools = b
	}

	if tags, ok := raw.CapabilityTags.([]any); ok {
		out := make([]string, 0, len(tags))
		for _, t := range tags {
			if s, ok := t.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		ctx.CapabilityTags = out
	}

	if attrs, ok := raw.AttributeTags.(map[string]any); ok {
		ctx.AttributeTags = toolhub.AttributeTags{
			Timeliness:      stringOr(attrs["timeliness"], ctx.AttributeTags.Timeliness),
			Reliability:     stringOr(attrs["reliability"], ctx.AttributeTags.Reliability),
			CostSensitivity: stringOr(attrs["cost_sensitivity"], ctx.AttributeTags.CostSensitivity),
		}
	}

	if carriers, ok := raw.AdaptCarriers.([]any); ok {
		out := make([]string, 0, len(carriers))
		for _, c := range carriers {
			if s, ok := c.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			ctx.AdaptCarriers = out
		}
	}

	return ctx
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return fallback
}
