package trace

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanningLifecycleRecordsEvents(t *testing.T) {
	tc := New(Config{MaxEvents: 10, MaxPreview: 500}, "req1", nil)
	ctx := tc.OnPlanningStart(context.Background(), "what is 2+2")
	tc.OnPlanningEnd(ctx, 3, true, nil)

	snap := tc.Snapshot()
	require.Len(t, snap.Events, 2)
	assert.Equal(t, "planning_start", snap.Events[0].Phase)
	assert.Equal(t, "planning_end", snap.Events[1].Phase)
	assert.Equal(t, 3, snap.Events[1].Extra["steps_count"])
	require.NotNil(t, snap.Events[1].Success)
	assert.True(t, *snap.Events[1].Success)
}

func TestStepAndToolCallEvents(t *testing.T) {
	tc := New(Config{MaxEvents: 10, MaxPreview: 500}, "req2", nil)
	ctx := context.Background()

	ctx = tc.OnStepStart(ctx, 1, "search for x", "search")
	ctx = tc.OnToolCallStart(ctx, 1, "search", "x")
	tc.OnToolCallEnd(ctx, 1, "search", true, "result", nil)
	tc.OnStepEnd(ctx, 1, true, "result", nil, "tool")

	snap := tc.Snapshot()
	require.Len(t, snap.Events, 4)
	assert.Equal(t, "step_start", snap.Events[0].Phase)
	assert.Equal(t, "tool_call", snap.Events[1].Phase)
	assert.Equal(t, "tool_call", snap.Events[2].Phase)
	assert.Equal(t, "step_end", snap.Events[3].Phase)
	assert.Equal(t, "tool", snap.Events[3].Extra["method"])
}

func TestEventsTruncatedAtMaxPreview(t *testing.T) {
	tc := New(Config{MaxEvents: 10, MaxPreview: 5}, "req3", nil)
	tc.OnPlanningStart(context.Background(), "this is a long question")
	snap := tc.Snapshot()
	assert.Equal(t, "this ...", snap.Events[0].InputPreview)
}

func TestRingBufferStopsAtMaxEvents(t *testing.T) {
	tc := New(Config{MaxEvents: 2, MaxPreview: 500}, "req4", nil)
	tc.OnVerificationStart(context.Background(), 1)
	tc.OnVerificationEnd(context.Background(), 1, true, 0.9)
	tc.OnVerificationStart(context.Background(), 2) // dropped, buffer full

	snap := tc.Snapshot()
	assert.Len(t, snap.Events, 2)
}

func TestSynthesisEndCarriesError(t *testing.T) {
	tc := New(Config{MaxEvents: 10, MaxPreview: 500}, "req5", nil)
	ctx := tc.OnSynthesisStart(context.Background(), 2)
	tc.OnSynthesisEnd(ctx, false, "", errors.New("llm timeout"))

	snap := tc.Snapshot()
	require.Len(t, snap.Events, 2)
	assert.Equal(t, "llm timeout", snap.Events[1].Error)
}

func TestNullTracerRecordsNothing(t *testing.T) {
	var nt NullTracer
	ctx := nt.OnPlanningStart(context.Background(), "hi")
	nt.OnPlanningEnd(ctx, 0, true, nil)
	snap := nt.Snapshot()
	assert.Empty(t, snap.Events)
}
