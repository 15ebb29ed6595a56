package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteReturnsDefaultOnEmptyQuestion(t *testing.T) {
	r := NewTaskRouter()
	ctx := r.Route(context.Background(), &seqLLM{responses: []string{"ignored"}}, "  ", nil)
	assert.True(t, ctx.UseTools)
	assert.Empty(t, ctx.CapabilityTags)
}

func TestRouteReturnsDefaultWhenLLMNil(t *testing.T) {
	r := NewTaskRouter()
	ctx := r.Route(context.Background(), nil, "what's the weather", nil)
	assert.True(t, ctx.UseTools)
}

func TestRouteParsesValidJSON(t *testing.T) {
	r := NewTaskRouter()
	llm := &seqLLM{responses: []string{`{"use_tools": true, "capability_tags": ["search", "web"], "attribute_tags": {"timeliness": "high", "reliability": "medium", "cost_sensitivity": "low"}, "adapt_carriers": ["tools"]}`}}
	ctx := r.Route(context.Background(), llm, "what's happening in the news today", []string{"search_web"})
	assert.True(t, ctx.UseTools)
	assert.Equal(t, []string{"search", "web"}, ctx.CapabilityTags)
	assert.Equal(t, "high", ctx.AttributeTags.Timeliness)
	assert.Equal(t, []string{"tools"}, ctx.AdaptCarriers)
}

func TestRouteFallsBackOnUnparseableResponse(t *testing.T) {
	r := NewTaskRouter()
	llm := &seqLLM{responses: []string{"not json at all"}}
	ctx := r.Route(context.Background(), llm, "hello", nil)
	assert.True(t, ctx.UseTools)
	assert.Empty(t, ctx.CapabilityTags)
}

func TestRouteFallsBackOnLLMError(t *testing.T) {
	r := NewTaskRouter()
	llm := &seqLLM{errs: []error{errBoom}}
	ctx := r.Route(context.Background(), llm, "hello", nil)
	assert.True(t, ctx.UseTools)
}
