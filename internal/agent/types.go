// Package agent implements the three worker agents the workflow engine
// composes: PlanningAgent decomposes a question into a Plan, ExecutionAgent
// runs each Step (direct reasoning or tool dispatch), and VerificationAgent
// scores each StepResult's consistency and logical plausibility. TaskRouter
// is a stateless, optional pre-flight classifier feeding ToolHub's scoring.
package agent

import (
	"context"
	"time"

	"github.com/brightfieldai/researchcore/internal/toolhub"
)

// LLM is the shared text-completion collaborator. It is the same narrow
// interface toolhub.LLM declares; PlanningAgent, ExecutionAgent, and
// TaskRouter all talk to the LLM through it so the workflow engine only
// needs to construct and pass around one implementation.
type LLM = toolhub.LLM

// GenerateOptions forwards toolhub.GenerateOptions so callers don't need to
// import toolhub just to build a request.
type GenerateOptions = toolhub.GenerateOptions

// Step is one unit of a Plan. ToolType "none" means direct LLM reasoning;
// any other value names a tool or capability for ExecutionAgent to dispatch.
type Step struct {
	ID            int    `json:"id"`
	Description   string `json:"description"`
	ToolType      string `json:"tool_type"`
	Dependencies  []int  `json:"dependencies"`
	Complexity    int    `json:"complexity,omitempty"`
	EstimatedTime int    `json:"estimated_time,omitempty"`
}

// Plan is PlanningAgent's output: an ordered, validated step list.
type Plan struct {
	Steps               []Step  `json:"steps"`
	ParallelGroups      [][]int `json:"parallel_groups,omitempty"`
	TotalEstimatedTime  int     `json:"total_estimated_time,omitempty"`
}

// StepResult is ExecutionAgent's output for one step.
type StepResult struct {
	StepID    int            `json:"step_id"`
	Success   bool           `json:"success"`
	Result    any            `json:"result,omitempty"`
	Method    string         `json:"method,omitempty"`
	Error     string         `json:"error,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// VerificationResult is VerificationAgent's output for one StepResult.
// Verification never blocks or retries a step; it only records findings
// for the trace and the final response.
type VerificationResult struct {
	StepID     int      `json:"step_id"`
	Verified   bool     `json:"verified"`
	Confidence float64  `json:"confidence"`
	Issues     []string `json:"issues,omitempty"`
}

// ExecContext is the read-only view ExecutionAgent and VerificationAgent get
// of the in-flight request: prior results in execution order, the optional
// task classification, and the request's context.
type ExecContext struct {
	StepResults []StepResult
	TaskCtx     *toolhub.TaskContext
	Ctx         context.Context
}

const defaultGenerateTimeout = 30 * time.Second
