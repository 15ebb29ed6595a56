package toolhub

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	out string
	err error
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	return f.out, f.err
}

func TestSynthesizeNoResults(t *testing.T) {
	h := New(nil)
	res := h.synthesize(context.Background(), nil, "tool", "q", nil)
	assert.False(t, res.Success)
	assert.Equal(t, "no_results_to_synthesize", res.Error)
}

func TestSynthesizeSingleResultPassesThrough(t *testing.T) {
	h := New(nil)
	only := Result{Success: true, Result: "42"}
	res := h.synthesize(context.Background(), []Result{only}, "calc", "q", nil)
	assert.Equal(t, only, res)
}

func TestSynthesizeWithoutLLMFallsBackToSimpleMerge(t *testing.T) {
	h := New(nil)
	results := []Result{
		{Success: true, Result: "first answer", Meta: map[string]any{"source": "tools"}},
		{Success: true, Result: "second answer", Meta: map[string]any{"source": "skills"}},
	}
	res := h.synthesize(context.Background(), results, "search_web", "q", nil)
	require.True(t, res.Success)
	assert.Equal(t, "simple_merge", res.Meta["synthesis_method"])
	assert.Contains(t, res.Result, "first answer")
	assert.Contains(t, res.Result, "second answer")
}

func TestSynthesizeUsesLLMWhenShortEnough(t *testing.T) {
	h := New(nil)
	llm := &fakeLLM{out: "combined answer"}
	results := []Result{
		{Success: true, Result: "a", Meta: map[string]any{"source": "tools"}},
		{Success: true, Result: "b", Meta: map[string]any{"source": "skills"}},
	}
	res := h.synthesize(context.Background(), results, "search_web", "q", llm)
	require.True(t, res.Success)
	assert.Equal(t, "combined answer", res.Result)
	assert.Equal(t, true, res.Meta["synthesized"])
}

func TestSynthesizeSkipsLLMWhenTotalLengthExceedsThreshold(t *testing.T) {
	h := New(nil)
	llm := &fakeLLM{out: "should not be used"}
	big := strings.Repeat("x", 1100)
	results := []Result{
		{Success: true, Result: big, Meta: map[string]any{"source": "tools"}},
		{Success: true, Result: big, Meta: map[string]any{"source": "skills"}},
	}
	res := h.synthesize(context.Background(), results, "search_web", "q", llm)
	require.True(t, res.Success)
	assert.Equal(t, "simple_merge", res.Meta["synthesis_method"])
}

func TestSynthesizeFallsBackOnLLMError(t *testing.T) {
	h := New(nil)
	llm := &fakeLLM{err: assert.AnError}
	results := []Result{
		{Success: true, Result: "a", Meta: map[string]any{"source": "tools"}},
		{Success: true, Result: "b", Meta: map[string]any{"source": "skills"}},
	}
	res := h.synthesize(context.Background(), results, "search_web", "q", llm)
	require.True(t, res.Success)
	assert.Equal(t, "simple_merge", res.Meta["synthesis_method"])
}

func TestPerSourceBudgetVariesByToolName(t *testing.T) {
	assert.Equal(t, 100, perSourceBudget("calculate", 2))
	assert.Equal(t, 300, perSourceBudget("search_web", 2))
	assert.Equal(t, 200, perSourceBudget("search_web", 4))
	assert.Equal(t, 250, perSourceBudget("something_else", 2))
}
