package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/brightfieldai/researchcore/internal/logging"
	"github.com/brightfieldai/researchcore/internal/trace"
)

// coreTools are always listed in full in the decomposition prompt, mirroring
// _build_decomposition_prompt's CORE_TOOLS set.
var coreTools = []string{"none", "search_web", "advanced_web_search", "calculate", "get_time", "get_conversation_history"}

const maxOtherToolsInPrompt = 10

// PlanningAgent decomposes a question into a Plan via a single LLM call,
// falling back to a single-step plan on any parse or validation failure.
type PlanningAgent struct {
	llm            LLM
	availableTools []string
}

// NewPlanningAgent builds a PlanningAgent. llm may be nil only in tests that
// never call Decompose's LLM path.
func NewPlanningAgent(llm LLM) *PlanningAgent {
	return &PlanningAgent{llm: llm, availableTools: append([]string{}, coreTools...)}
}

// SetAvailableTools injects the current ToolHub tool inventory, always
// including "none".
func (p *PlanningAgent) SetAvailableTools(names []string) {
	set := map[string]struct{}{"none": {}}
	for _, n := range names {
		set[n] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	p.availableTools = out
}

// Decompose turns question into a validated Plan. tr may be nil (treated as
// a no-op tracer).
func (p *PlanningAgent) Decompose(ctx context.Context, tr trace.Tracer, question string) (Plan, error) {
	if tr == nil {
		tr = trace.NullTracer{}
	}
	ctx = tr.OnPlanningStart(ctx, question)

	prompt := p.buildPrompt(question)

	if p.llm == nil {
		logging.FromContext(ctx).Warn("planning: no llm configured, using default decomposition")
		plan := singleStepPlan(question)
		tr.OnPlanningEnd(ctx, len(plan.Steps), true, nil)
		return plan, nil
	}

	raw, err := p.llm.Generate(ctx, prompt, GenerateOptions{Temperature: 0.2, MaxTokens: 1024, Timeout: defaultGenerateTimeout})
	if err != nil {
		logging.FromContext(ctx).Warn("planning: llm call failed, falling back", "error", err)
		plan := singleStepPlan(question)
		tr.OnPlanningEnd(ctx, len(plan.Steps), true, nil)
		return plan, nil
	}

	plan, ok := parsePlan(raw)
	if !ok || len(plan.Steps) == 0 {
		logging.FromContext(ctx).Warn("planning: unparseable or empty plan, falling back")
		plan = singleStepPlan(question)
		tr.OnPlanningEnd(ctx, len(plan.Steps), true, nil)
		return plan, nil
	}

	plan = p.validate(ctx, plan)
	tr.OnPlanningEnd(ctx, len(plan.Steps), true, nil)
	return plan, nil
}

func (p *PlanningAgent) buildPrompt(question string) string {
	available := p.availableTools
	if len(available) == 0 {
		available = coreTools
	}
	coreSet := make(map[string]struct{}, len(coreTools))
	for _, t := range coreTools {
		coreSet[t] = struct{}{}
	}
	var core, other []string
	for _, t := range available {
		if _, ok := coreSet[t]; ok {
			core = append(core, t)
		} else {
			other = append(other, t)
		}
	}
	var toolsList string
	if len(other) > maxOtherToolsInPrompt {
		shown := other[:maxOtherToolsInPrompt]
		toolsList = strings.Join(append(core, shown...), ", ")
		toolsList += fmt.Sprintf(" (%d more available)", len(other)-maxOtherToolsInPrompt)
	} else {
		toolsList = strings.Join(available, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Decompose the following question into an ordered list of executable steps.\n\n")
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	fmt.Fprintf(&b, "Available tools: %s\n\n", toolsList)
	b.WriteString("Respond with a single JSON object of the shape:\n")
	b.WriteString(`{"steps":[{"id":1,"description":"...","tool_type":"none","dependencies":[]}],"parallel_groups":[],"total_estimated_time":0}` + "\n")
	b.WriteString("Step ids start at 1 and increase by 1 with no gaps. Each dependency must reference a smaller id. Use tool_type \"none\" for steps answered by direct reasoning.\n")
	return b.String()
}

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)
var trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// parsePlan tolerates markdown code fences and trailing commas, matching
// _parse_plan's lenient extraction.
func parsePlan(raw string) (Plan, bool) {
	text := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	match := jsonObjectPattern.FindString(text)
	if match == "" {
		return Plan{}, false
	}
	match = trailingCommaPattern.ReplaceAllString(match, "$1")

	var plan Plan
	if err := json.Unmarshal([]byte(match), &plan); err != nil {
		return Plan{}, false
	}
	return plan, true
}

func singleStepPlan(question string) Plan {
	return Plan{Steps: []Step{{ID: 1, Description: question, ToolType: "none", Dependencies: []int{}}}}
}

// validate enforces unique step IDs (a zero ID takes its 1-based position,
// later duplicates are dropped, gaps are kept), acyclic dependencies (every
// dependency references a smaller id), and known tool types; unknown tool
// types are rewritten to "none".
func (p *PlanningAgent) validate(ctx context.Context, plan Plan) Plan {
	known := make(map[string]struct{}, len(p.availableTools)+1)
	known["none"] = struct{}{}
	for _, t := range p.availableTools {
		known[t] = struct{}{}
	}

	seen := make(map[int]struct{}, len(plan.Steps))
	valid := make([]Step, 0, len(plan.Steps))
	for i, s := range plan.Steps {
		if s.ID == 0 {
			s.ID = i + 1
		}
		if _, dup := seen[s.ID]; dup {
			continue
		}
		seen[s.ID] = struct{}{}

		var deps []int
		for _, d := range s.Dependencies {
			if d < s.ID {
				deps = append(deps, d)
			}
		}
		s.Dependencies = deps

		if _, ok := known[s.ToolType]; !ok {
			logging.FromContext(ctx).Warn("planning: unknown tool_type, rewriting to none", "tool_type", s.ToolType, "step_id", s.ID)
			s.ToolType = "none"
		}
		valid = append(valid, s)
	}
	if len(valid) == 0 {
		return singleStepPlan("")
	}

	sort.SliceStable(valid, func(i, j int) bool { return valid[i].ID < valid[j].ID })
	plan.Steps = valid
	return plan
}
