package agent

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/brightfieldai/researchcore/internal/apperr"
	"github.com/brightfieldai/researchcore/internal/logging"
	"github.com/brightfieldai/researchcore/internal/retry"
	"github.com/brightfieldai/researchcore/internal/toolhub"
	"github.com/brightfieldai/researchcore/internal/trace"
)

// maxToolResultLengths caps how many characters of a tool's result are kept
// in the step context passed to later steps, per tool.
var maxToolResultLengths = map[string]int{
	"calculate":                 100,
	"get_time":                  200,
	"search_web":                500,
	"advanced_web_search":       800,
	"get_conversation_history":  1000,
}

const defaultMaxToolResultLength = 500

// ExecutionAgent runs one Step at a time: direct LLM reasoning when
// tool_type is "none", otherwise tool dispatch through ToolHub with
// capability-based fallback and retry.
type ExecutionAgent struct {
	hub        *toolhub.Hub
	llm        LLM
	maxRetries int
}

// NewExecutionAgent builds an ExecutionAgent. hub may be nil in tests that
// only exercise direct reasoning.
func NewExecutionAgent(hub *toolhub.Hub, llm LLM, maxRetries int) *ExecutionAgent {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &ExecutionAgent{hub: hub, llm: llm, maxRetries: maxRetries}
}

// ExecuteStep runs one step against exec. Any internal error is converted to
// a failed StepResult rather than propagated, so one bad step never aborts
// the workflow run outright.
func (a *ExecutionAgent) ExecuteStep(ctx context.Context, tr trace.Tracer, step Step, exec ExecContext) StepResult {
	if tr == nil {
		tr = trace.NullTracer{}
	}
	ctx = tr.OnStepStart(ctx, step.ID, step.Description, step.ToolType)

	var result StepResult
	if step.ToolType == "none" {
		result = a.directReason(ctx, tr, step, exec)
	} else {
		result = a.executeWithTool(ctx, tr, step, exec)
	}

	preview := fmt.Sprintf("%v", result.Result)
	var stepErr error
	if result.Error != "" {
		stepErr = errors.New(result.Error)
	}
	tr.OnStepEnd(ctx, step.ID, result.Success, preview, stepErr, result.Method)
	return result
}

func (a *ExecutionAgent) directReason(ctx context.Context, tr trace.Tracer, step Step, exec ExecContext) StepResult {
	ctx = tr.OnReasoningStart(ctx, step.ID, step.Description)

	if a.llm == nil {
		tr.OnReasoningEnd(ctx, step.ID, false, "", errors.New("llm unavailable"))
		return StepResult{StepID: step.ID, Success: false, Error: "llm unavailable", Method: "direct_reasoning"}
	}

	contextInfo := formatStepResultsContext(exec.StepResults)
	desc := resolveTemplate(step.Description, exec.StepResults)
	prompt := fmt.Sprintf("Answer the following directly, with no visible reasoning steps:\n%s\n\nPrior step results you may use as reference:\n%s", desc, contextInfo)

	out, err := a.llm.Generate(ctx, prompt, GenerateOptions{Temperature: 0.3, MaxTokens: 512, Timeout: defaultGenerateTimeout})
	if err != nil || strings.TrimSpace(out) == "" {
		msg := "empty reasoning result"
		if err != nil {
			msg = err.Error()
		}
		tr.OnReasoningEnd(ctx, step.ID, false, "", errors.New(msg))
		return StepResult{StepID: step.ID, Success: false, Error: msg, Method: "direct_reasoning"}
	}

	trimmed := strings.TrimSpace(out)
	tr.OnReasoningEnd(ctx, step.ID, true, trimmed, nil)
	return StepResult{StepID: step.ID, Success: true, Result: trimmed, Method: "direct_reasoning"}
}

func (a *ExecutionAgent) executeWithTool(ctx context.Context, tr trace.Tracer, step Step, exec ExecContext) StepResult {
	if a.hub == nil {
		return a.directReason(ctx, tr, step, exec)
	}

	input := prepareToolInput(step, exec.StepResults)
	if step.ToolType == "calculate" && strings.TrimSpace(fmt.Sprintf("%v", input)) == "" {
		logging.FromContext(ctx).Warn("execution: empty calculator input, falling back to direct reasoning", "step_id", step.ID)
		return a.directReason(ctx, tr, step, exec)
	}

	ctx = tr.OnToolCallStart(ctx, step.ID, step.ToolType, fmt.Sprintf("%v", input))

	var res toolhub.Result
	if a.hub.HasTool(step.ToolType) {
		res = a.dispatchWithRetry(ctx, step.ToolType, input, exec.TaskCtx, false)
	} else if cap := inferCapability(step); cap != "" {
		res = a.dispatchWithRetry(ctx, cap, input, exec.TaskCtx, true)
	} else {
		res = toolhub.Result{Success: false, Error: fmt.Sprintf("tool_not_found: %s", step.ToolType)}
	}

	formatted := formatToolResult(res, step.ToolType)

	var callErr error
	if res.Error != "" {
		callErr = errors.New(res.Error)
	}
	tr.OnToolCallEnd(ctx, step.ID, step.ToolType, res.Success, formatted, callErr)

	if !res.Success {
		logging.FromContext(ctx).Warn("execution: tool call failed, falling back to direct reasoning", "step_id", step.ID, "tool_type", step.ToolType, "error", res.Error)
		return a.directReason(ctx, tr, step, exec)
	}

	return StepResult{
		StepID:  step.ID,
		Success: true,
		Result:  formatted,
		Method:  "toolhub_" + step.ToolType,
		Meta:    res.Meta,
	}
}

// dispatchWithRetry retries a single ToolHub call up to maxRetries times
// with exponential backoff, never retrying terminal errors.
func (a *ExecutionAgent) dispatchWithRetry(ctx context.Context, name string, input any, taskCtx *toolhub.TaskContext, byCapability bool) toolhub.Result {
	var last toolhub.Result
	policy := retry.DefaultPolicy(a.maxRetries + 1)
	_ = retry.Do(ctx, policy, apperr.IsTerminal, func(ctx context.Context) error {
		if byCapability {
			last = a.hub.ExecuteByCapability(ctx, name, input, taskCtx, a.llm)
		} else {
			last = a.hub.Execute(ctx, name, input, taskCtx, a.llm)
		}
		if last.Success {
			return nil
		}
		if isInvalidInputError(last.Error) {
			return apperr.Tool(apperr.KindToolInvalidInput, "dispatch", errors.New(last.Error))
		}
		return apperr.Tool(apperr.KindToolExecution, "dispatch", errors.New(last.Error))
	})
	return last
}

func isInvalidInputError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "invalid_input") || strings.Contains(lower, "auth")
}

var templatePattern = regexp.MustCompile(`\{step_(\d+)_result\}`)

// resolveTemplate substitutes {step_<k>_result} placeholders from
// step_results[k-1].
func resolveTemplate(description string, results []StepResult) string {
	return templatePattern.ReplaceAllStringFunc(description, func(m string) string {
		groups := templatePattern.FindStringSubmatch(m)
		idx, err := strconv.Atoi(groups[1])
		if err != nil || idx < 1 || idx > len(results) {
			return m
		}
		r := results[idx-1]
		if !r.Success {
			return m
		}
		return fmt.Sprintf("%v", r.Result)
	})
}

func formatStepResultsContext(results []StepResult) string {
	var lines []string
	for i, r := range results {
		if r.Success {
			lines = append(lines, fmt.Sprintf("step %d result: %v", i+1, r.Result))
		}
	}
	return strings.Join(lines, "\n")
}

var mathExprPattern = regexp.MustCompile(`[0-9+\-*/().\s]+`)
var dateLikePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
var pureMathPattern = regexp.MustCompile(`^[0-9+\-*/().\s]+$`)
var searchVerbPattern = regexp.MustCompile(`(?i)(search|find|query|lookup|搜索|查找|检索)\s*[:：]?\s*`)

// prepareToolInput extracts tool input from the step description using the
// type-specific heuristics of _prepare_tool_input.
func prepareToolInput(step Step, results []StepResult) any {
	desc := resolveTemplate(step.Description, results)

	switch step.ToolType {
	case "calculate":
		matches := mathExprPattern.FindAllString(desc, -1)
		var longest string
		for _, m := range matches {
			m = strings.TrimSpace(m)
			if len(m) > len(longest) {
				longest = m
			}
		}
		if len(longest) > 2 {
			return longest
		}
		for i := len(results) - 1; i >= 0; i-- {
			r := results[i]
			if !r.Success {
				continue
			}
			text := strings.TrimSpace(fmt.Sprintf("%v", r.Result))
			if dateLikePattern.MatchString(text) {
				continue
			}
			if pureMathPattern.MatchString(text) {
				return truncateRunes(text, 100)
			}
		}
		return ""

	case "search_web", "advanced_web_search":
		keywords := strings.TrimSpace(searchVerbPattern.ReplaceAllString(desc, ""))
		if keywords == "" {
			for i := len(results) - 1; i >= 0; i-- {
				r := results[i]
				if !r.Success {
					continue
				}
				val := strings.TrimSpace(fmt.Sprintf("%v", r.Result))
				if len(val) > 10 {
					keywords = truncateRunes(val, 300)
					break
				}
			}
		}
		if keywords == "" {
			keywords = desc
		}
		if step.ToolType == "search_web" {
			return keywords
		}
		lower := strings.ToLower(desc)
		fetch := false
		for _, kw := range []string{"exact", "extract", "precise", "according to the article", "from the page"} {
			if strings.Contains(lower, kw) {
				fetch = true
				break
			}
		}
		return map[string]any{"query": keywords, "num_results": 5, "fetch_content": fetch}

	case "get_time":
		return desc

	case "get_conversation_history":
		lower := strings.ToLower(desc)
		switch {
		case strings.Contains(lower, "last") || strings.Contains(lower, "最后") || strings.Contains(lower, "最近"):
			if strings.Contains(lower, "user") || strings.Contains(lower, "用户") {
				return "last_user"
			}
			return "last"
		case strings.Contains(lower, "all") || strings.Contains(lower, "全部") || strings.Contains(lower, "所有"):
			return "all"
		default:
			return "10"
		}

	default:
		for i := len(results) - 1; i >= 0; i-- {
			if results[i].Success {
				return truncateRunes(fmt.Sprintf("%v", results[i].Result), 200)
			}
		}
		return desc
	}
}

// inferCapability maps a step's description/tool_type to a ToolHub
// capability tag when the exact tool name isn't registered, mirroring
// _infer_capability_from_step.
func inferCapability(step Step) string {
	desc := strings.ToLower(step.Description)
	toolType := strings.ToLower(step.ToolType)

	switch {
	case strings.Contains(desc, "search") || strings.Contains(desc, "find") || toolType == "search_web" || toolType == "search":
		return "search"
	case strings.Contains(desc, "calculate") || strings.Contains(desc, "math") || toolType == "calculate" || toolType == "calc":
		return "calculate"
	case strings.Contains(desc, "time") || strings.Contains(desc, "date") || toolType == "get_time" || toolType == "time":
		return "time"
	case strings.Contains(desc, "weather") || strings.Contains(desc, "forecast"):
		return "weather"
	case strings.Contains(desc, "pdf") || strings.Contains(toolType, "pdf"):
		return "pdf"
	case strings.Contains(desc, "document") || strings.Contains(desc, "docx") || strings.Contains(desc, "xlsx"):
		return "document"
	case strings.Contains(desc, "history") || strings.Contains(desc, "conversation") || toolType == "get_conversation_history" || toolType == "history":
		return "history"
	case strings.Contains(desc, "file") || strings.Contains(desc, "folder") || strings.Contains(desc, "directory"):
		return "filesystem"
	case strings.Contains(desc, "map") || strings.Contains(desc, "location"):
		return "map"
	default:
		return ""
	}
}

var sentenceBoundary = regexp.MustCompile(`[.\n]`)

// formatToolResult applies the per-tool-type length budget, truncating at
// the nearest sentence/newline boundary when possible.
func formatToolResult(res toolhub.Result, toolType string) string {
	if !res.Success {
		return res.Error
	}
	text := resultToText(res, toolType)
	max, ok := maxToolResultLengths[toolType]
	if !ok {
		max = defaultMaxToolResultLength
	}
	return truncateAtBoundary(text, max)
}

func resultToText(res toolhub.Result, toolType string) string {
	switch toolType {
	case "search_web", "advanced_web_search":
		if m, ok := res.Result.(map[string]any); ok {
			if results, ok := m["results"].([]any); ok && len(results) > 0 {
				var lines []string
				for i, r := range results {
					if i >= 3 {
						break
					}
					if rm, ok := r.(map[string]any); ok {
						lines = append(lines, fmt.Sprintf("%v: %v", rm["title"], rm["snippet"]))
					}
				}
				return strings.Join(lines, "\n")
			}
		}
		if s, ok := res.Result.(string); ok && s != "" {
			return s
		}
		return "no relevant results found"
	default:
		return fmt.Sprintf("%v", res.Result)
	}
}

func truncateAtBoundary(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := max - 10
	if cut < 0 {
		cut = 0
	}
	window := text[:cut]
	boundary := -1
	if idx := strings.LastIndexAny(window, ".\n"); idx > int(float64(max)*0.7) {
		boundary = idx
	}
	if boundary >= 0 {
		return text[:boundary+1] + "...(truncated)"
	}
	return window + "...(truncated)"
}

func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
