package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brightfieldai/researchcore/internal/agent"
	"github.com/brightfieldai/researchcore/internal/logging"
	"github.com/brightfieldai/researchcore/internal/toolhub"
	"github.com/brightfieldai/researchcore/internal/trace"
)

// Engine wires the three agents into the planning → execution → verification
// (looped) → synthesis state machine described in langgraph_workflow.py.
type Engine struct {
	planner  *agent.PlanningAgent
	executor *agent.ExecutionAgent
	verifier *agent.VerificationAgent

	synthesisLLM    agent.LLM
	useLLMSynthesis bool
}

// New builds an Engine. synthesisLLM may be nil, in which case the synthesis
// node always falls back to the last successful step result.
func New(planner *agent.PlanningAgent, executor *agent.ExecutionAgent, verifier *agent.VerificationAgent, synthesisLLM agent.LLM, useLLMSynthesis bool) *Engine {
	return &Engine{
		planner:         planner,
		executor:        executor,
		verifier:        verifier,
		synthesisLLM:    synthesisLLM,
		useLLMSynthesis: useLLMSynthesis,
	}
}

// Run executes the full state machine for one question and returns the
// synthesized result. A panic during step execution is recovered and
// recorded as a failed step; other node failures degrade the answer instead
// of propagating.
func (e *Engine) Run(ctx context.Context, question string, taskCtx *toolhub.TaskContext, tr trace.Tracer) Result {
	if tr == nil {
		tr = trace.NullTracer{}
	}
	start := time.Now()

	state := &State{Question: question, TaskCtx: taskCtx}
	state.Plan = e.planningNode(ctx, tr, state)

	for state.CurrentStep < len(state.Plan.Steps) {
		e.executionNode(ctx, tr, state)
		e.verificationNode(ctx, tr, state)
	}

	result := e.synthesisNode(ctx, tr, state)
	result.ExecutionTime = time.Since(start)
	return result
}

func (e *Engine) planningNode(ctx context.Context, tr trace.Tracer, state *State) agent.Plan {
	plan, err := e.planner.Decompose(ctx, tr, state.Question)
	if err != nil || len(plan.Steps) == 0 {
		logging.FromContext(ctx).Warn("planning produced no steps, falling back to single-step plan", "error", err)
		plan = agent.Plan{Steps: []agent.Step{{ID: 1, ToolType: "none", Description: state.Question}}}
	}
	return plan
}

func (e *Engine) executionNode(ctx context.Context, tr trace.Tracer, state *State) {
	step := state.Plan.Steps[state.CurrentStep]
	execCtx := agent.ExecContext{StepResults: state.StepResults, TaskCtx: state.TaskCtx, Ctx: ctx}

	result := e.safeExecuteStep(ctx, tr, step, execCtx)
	state.StepResults = append(state.StepResults, result)
	state.CurrentStep++
}

// safeExecuteStep guards against a panic inside a tool/LLM call turning into
// a process crash, converting it into a failed StepResult instead.
func (e *Engine) safeExecuteStep(ctx context.Context, tr trace.Tracer, step agent.Step, execCtx agent.ExecContext) agent.StepResult {
	var result agent.StepResult
	func() {
		defer func() {
			if r := recover(); r != nil {
				result = agent.StepResult{StepID: step.ID, Success: false, Error: fmt.Sprintf("panic: %v", r)}
			}
		}()
		result = e.executor.ExecuteStep(ctx, tr, step, execCtx)
	}()
	return result
}

func (e *Engine) verificationNode(ctx context.Context, tr trace.Tracer, state *State) {
	if len(state.StepResults) == 0 {
		return
	}
	last := state.StepResults[len(state.StepResults)-1]
	prior := state.StepResults[:len(state.StepResults)-1]

	verdict := e.verifier.Verify(ctx, tr, last, prior)
	state.Findings = append(state.Findings, VerificationFinding{
		StepID:     verdict.StepID,
		Verified:   verdict.Verified,
		Confidence: verdict.Confidence,
		Issues:     verdict.Issues,
	})
}

func (e *Engine) synthesisNode(ctx context.Context, tr trace.Tracer, state *State) Result {
	ctx = tr.OnSynthesisStart(ctx, len(state.StepResults))

	for i := len(state.StepResults) - 1; i >= 0; i-- {
		r := state.StepResults[i]
		if !r.Success {
			continue
		}
		if text, ok := nonEmptyText(r.Result); ok {
			if e.useLLMSynthesis && e.synthesisLLM != nil {
				if synthesized, ok := e.llmSynthesize(ctx, state); ok {
					tr.OnSynthesisEnd(ctx, true, preview(synthesized), nil)
					return Result{Success: true, Answer: synthesized, Plan: state.Plan, StepResults: state.StepResults, Findings: state.Findings, Synthesized: true}
				}
			}
			tr.OnSynthesisEnd(ctx, true, preview(text), nil)
			return Result{Success: true, Answer: text, Plan: state.Plan, StepResults: state.StepResults, Findings: state.Findings}
		}
	}

	const fallback = "Unable to produce an answer"
	err := fmt.Errorf("no successful step produced a usable result")
	tr.OnSynthesisEnd(ctx, false, "", err)
	return Result{Success: false, Answer: fallback, Plan: state.Plan, StepResults: state.StepResults, Findings: state.Findings, Errors: []string{err.Error()}}
}

func (e *Engine) llmSynthesize(ctx context.Context, state *State) (string, bool) {
	prompt := buildSynthesisPrompt(state.Question, state.StepResults)
	out, err := e.synthesisLLM.Generate(ctx, prompt, agent.GenerateOptions{})
	if err != nil || strings.TrimSpace(out) == "" {
		return "", false
	}
	return strings.TrimSpace(out), true
}

func buildSynthesisPrompt(question string, results []agent.StepResult) string {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nStep results:\n")
	for _, r := range results {
		status := "failed"
		if r.Success {
			status = "ok"
		}
		fmt.Fprintf(&b, "- step %d (%s): %v\n", r.StepID, status, r.Result)
	}
	b.WriteString("\nWrite one clear answer to the question using these results. Do not show your reasoning.")
	return b.String()
}

func nonEmptyText(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		if v == nil {
			return "", false
		}
		s = fmt.Sprintf("%v", v)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}

func preview(s string) string {
	const max = 200
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
