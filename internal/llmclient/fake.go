// Package llmclient provides the concrete LLM collaborator implementations
// the process wires at startup: a deterministic Fake used as the default
// so the service is runnable without any external model endpoint, and an
// HTTP-based client for an OpenAI-compatible chat/completions API. Both
// implementations satisfy toolhub.LLM/agent.LLM so the rest of the
// pipeline has something to call regardless of which is configured.
package llmclient

import (
	"context"
	"strings"

	"github.com/brightfieldai/researchcore/internal/toolhub"
)

// Fake is a deterministic, canned-response LLM collaborator. It never
// contacts a network and never errors, so it is safe as the zero-config
// default for `researchcore serve` and for exercising the pipeline in
// integration tests without a real model.
//
// It recognizes two prompt shapes: TaskRouter classification requests and
// PlanningAgent plan requests, answering each with a fixed JSON reply.
// Every other prompt (direct reasoning, synthesis, ...) gets a generic echo
// of its first line.
type Fake struct{}

// NewFake builds the deterministic default LLM collaborator.
func NewFake() *Fake { return &Fake{} }

func (f *Fake) Generate(ctx context.Context, prompt string, opts toolhub.GenerateOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	lower := strings.ToLower(prompt)

	switch {
	case strings.Contains(lower, `"use_tools"`):
		return `{"use_tools": true, "capability_tags": [], "attribute_tags": {"timeliness": "medium", "reliability": "medium", "cost_sensitivity": "medium"}, "adapt_carriers": ["tools", "skills", "mcps"]}`, nil
	case strings.Contains(lower, "respond with a json plan") || strings.Contains(lower, `"steps"`):
		return `{"steps": [{"id": 1, "description": "` + escapeJSON(firstLine(prompt)) + `", "tool_type": "none", "dependencies": []}]}`, nil
	default:
		return "Based on the available information: " + firstLine(prompt), nil
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

func escapeJSON(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}
