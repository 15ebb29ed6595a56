// Package workflow implements the four-node planning/execution/verification/
// synthesis state machine that drives one task through the agent pipeline,
// as a straight loop rather than a general graph executor: planning once,
// then execution/verification alternating per step, then synthesis.
package workflow

import (
	"time"

	"github.com/brightfieldai/researchcore/internal/agent"
	"github.com/brightfieldai/researchcore/internal/toolhub"
)

// Phase names the four nodes of the state machine.
type Phase string

const (
	PhasePlanning     Phase = "planning"
	PhaseExecution    Phase = "execution"
	PhaseVerification Phase = "verification"
	PhaseSynthesis    Phase = "synthesis"
)

// VerificationFinding is the per-step record the verification node appends
// to State.Findings; it never blocks progress.
type VerificationFinding struct {
	StepID     int
	Verified   bool
	Confidence float64
	Issues     []string
}

// State is the mutable record threaded through every node.
type State struct {
	Question    string
	Plan        agent.Plan
	StepResults []agent.StepResult
	Findings    []VerificationFinding
	CurrentStep int
	TaskCtx     *toolhub.TaskContext
}

// Result is what Run returns: the final answer plus enough of the
// intermediate state for the orchestrator's "detailed" response mode.
type Result struct {
	Success       bool
	Answer        string
	Plan          agent.Plan
	StepResults   []agent.StepResult
	Findings      []VerificationFinding
	Errors        []string
	ExecutionTime time.Duration
	Synthesized   bool
}
