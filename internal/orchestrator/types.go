// Package orchestrator implements ProcessTask, the single entry point that
// takes a raw question to a final answer: fast-path shortcuts, conversation
// memory, request-level caching, trace injection, optional task routing,
// and the workflow engine. Every component it depends on is constructed
// once at startup and held by reference, never re-created per request.
package orchestrator

import (
	"time"

	"github.com/brightfieldai/researchcore/internal/agent"
	"github.com/brightfieldai/researchcore/internal/trace"
	"github.com/brightfieldai/researchcore/internal/workflow"
)

// Response is ProcessTask's result: a success flag, the answer (if any),
// any errors, and optionally the plan, step results, findings, and trace
// that produced it.
type Response struct {
	Success    bool            `json:"success"`
	Answer     string          `json:"answer,omitempty"`
	Reasoning  string          `json:"reasoning,omitempty"`
	Confidence float64         `json:"confidence,omitempty"`
	Errors     []string        `json:"errors,omitempty"`
	Trace      *trace.Snapshot `json:"trace,omitempty"`

	Plan        agent.Plan                     `json:"plan,omitempty"`
	StepResults []agent.StepResult              `json:"step_results,omitempty"`
	Findings    []workflow.VerificationFinding  `json:"findings,omitempty"`

	ExecutionTime time.Duration `json:"execution_time,omitempty"`
}
