package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyFailedStepIsUnverified(t *testing.T) {
	v := NewVerificationAgent()
	out := v.Verify(context.Background(), nil, StepResult{StepID: 1, Success: false}, nil)
	assert.False(t, out.Verified)
	assert.Equal(t, 0.0, out.Confidence)
}

func TestVerifySuccessfulStepBaseConfidence(t *testing.T) {
	v := NewVerificationAgent()
	out := v.Verify(context.Background(), nil, StepResult{StepID: 1, Success: true, Result: "Paris"}, nil)
	assert.True(t, out.Verified)
	assert.GreaterOrEqual(t, out.Confidence, 0.7)
}

func TestVerifyFlagsSuspectDuplicate(t *testing.T) {
	v := NewVerificationAgent()
	prior := []StepResult{{StepID: 1, Success: true, Result: "the quick brown fox jumps over"}}
	out := v.Verify(context.Background(), nil, StepResult{StepID: 2, Success: true, Result: "the quick brown fox jumps over"}, prior)
	assert.Contains(t, out.Issues, "suspect duplicate of a prior result")
}

func TestVerifyRejectsAbsurdMagnitude(t *testing.T) {
	v := NewVerificationAgent()
	out := v.Verify(context.Background(), nil, StepResult{StepID: 1, Success: true, Result: "9999999999999999999"}, nil)
	assert.Contains(t, out.Issues, "logic check failed")
}

func TestVerifyBonusForMultipleSources(t *testing.T) {
	v := NewVerificationAgent()
	withSources := v.Verify(context.Background(), nil, StepResult{StepID: 1, Success: true, Result: "x", Meta: map[string]any{"sources": []string{"a", "b"}}}, nil)
	withoutSources := v.Verify(context.Background(), nil, StepResult{StepID: 1, Success: true, Result: "x"}, nil)
	assert.Greater(t, withSources.Confidence, withoutSources.Confidence)
}

func TestVerifyConfidenceCapsAtOne(t *testing.T) {
	v := NewVerificationAgent()
	out := v.Verify(context.Background(), nil, StepResult{StepID: 1, Success: true, Result: "x", Meta: map[string]any{"sources": []string{"a", "b"}}}, nil)
	assert.LessOrEqual(t, out.Confidence, 1.0)
}
