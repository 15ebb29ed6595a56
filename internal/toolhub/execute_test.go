package toolhub

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteReturnsToolNotFound(t *testing.T) {
	h := New(nil)
	res := h.Execute(context.Background(), "missing", "x", nil, nil)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "tool_not_found")
}

func TestExecuteSingleCandidateFastPath(t *testing.T) {
	h := New(nil)
	h.Register(Candidate{Name: "calc", Source: SourceTools, Tool: &fakeTool{
		fn: func(ctx context.Context, input any) (Result, error) {
			return Result{Success: true, Result: "4"}, nil
		},
	}})
	res := h.Execute(context.Background(), "calc", "2+2", nil, nil)
	assert.True(t, res.Success)
	assert.Equal(t, "4", res.Result)
	idx, ok := h.getLastSuccess("calc")
	require.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestCallCandidateDrainsOnTimeout(t *testing.T) {
	h := New(func() float64 { return 0.02 })
	var finished atomic.Bool
	cand := &Candidate{Name: "slow", Source: SourceTools, Tool: &fakeTool{
		fn: func(ctx context.Context, input any) (Result, error) {
			time.Sleep(100 * time.Millisecond)
			finished.Store(true)
			return Result{Success: true}, nil
		},
	}}
	res := h.callCandidate(context.Background(), cand, nil)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "tool_timeout_after")
	assert.True(t, finished.Load(), "callCandidate must await the goroutine before returning")
}

func TestRunBatchCancelsSiblingsAfterFirstSuccess(t *testing.T) {
	h := New(func() float64 { return 5 })
	var secondRan atomic.Bool
	fast := &Candidate{Name: "fast", Source: SourceTools, Tool: &fakeTool{
		fn: func(ctx context.Context, input any) (Result, error) {
			return Result{Success: true, Result: "fast"}, nil
		},
	}}
	slow := &Candidate{Name: "slow", Source: SourceTools, Tool: &fakeTool{
		fn: func(ctx context.Context, input any) (Result, error) {
			select {
			case <-time.After(200 * time.Millisecond):
				secondRan.Store(true)
				return Result{Success: true, Result: "slow"}, nil
			case <-ctx.Done():
				return Result{Success: false, Error: "cancelled"}, nil
			}
		},
	}}
	results := h.runBatch(context.Background(), []*Candidate{fast, slow}, nil, false)
	require.Contains(t, results, 0)
	assert.True(t, results[0].Success)
	assert.False(t, secondRan.Load())
}

func TestExecuteByCapabilityReturnsSuggestionsWhenUnknown(t *testing.T) {
	h := New(nil)
	h.Register(Candidate{Name: "a", Source: SourceTools, Tool: &fakeTool{}, Capabilities: []string{"search"}})
	res := h.ExecuteByCapability(context.Background(), "searching", nil, nil, nil)
	assert.False(t, res.Success)
	assert.Equal(t, "no_match", res.Error)
	assert.Contains(t, res.Meta["suggestions"], "search")
}

func TestExecuteFallsThroughToRemainingCandidatesOnFailure(t *testing.T) {
	h := New(func() float64 { return 1 })
	h.Register(Candidate{Name: "x", Source: SourceTools, Priority: 0, Tool: &fakeTool{
		fn: func(ctx context.Context, input any) (Result, error) {
			return Result{Success: false, Error: "boom"}, nil
		},
	}})
	h.Register(Candidate{Name: "x", Source: SourceSkills, Priority: 1, Tool: &fakeTool{
		fn: func(ctx context.Context, input any) (Result, error) {
			return Result{Success: true, Result: "recovered"}, nil
		},
	}})
	res := h.Execute(context.Background(), "x", nil, nil, nil)
	assert.True(t, res.Success)
	assert.Equal(t, "recovered", res.Result)
}
