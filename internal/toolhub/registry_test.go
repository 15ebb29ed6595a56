package toolhub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTool struct {
	desc string
	caps []string
	fn   func(ctx context.Context, input any) (Result, error)
}

func (f *fakeTool) Execute(ctx context.Context, input any) (Result, error) {
	if f.fn != nil {
		return f.fn(ctx, input)
	}
	return Result{Success: true, Result: "ok"}, nil
}
func (f *fakeTool) Capabilities() []string { return f.caps }
func (f *fakeTool) Description() string    { return f.desc }

func TestExtractCapabilitiesFromDescription(t *testing.T) {
	caps := ExtractCapabilities("search_web", "Search the web for current information")
	assert.Contains(t, caps, "search")
	assert.Contains(t, caps, "web")
}

func TestExtractCapabilitiesFallsBackToName(t *testing.T) {
	caps := ExtractCapabilities("pdf_reader", "")
	assert.Contains(t, caps, "pdf")
	assert.Contains(t, caps, "document")
}

func TestRegisterDerivesCapabilitiesWhenUnset(t *testing.T) {
	h := New(nil)
	h.Register(Candidate{Name: "calculator", Source: SourceTools, Tool: &fakeTool{desc: "compute arithmetic"}})
	assert.True(t, h.HasTool("calculator"))
	assert.Contains(t, h.Capabilities(), "calculate")
}

func TestFindByCapabilityDeduplicates(t *testing.T) {
	h := New(nil)
	tool := &fakeTool{desc: "", caps: []string{"search"}}
	h.Register(Candidate{Name: "web_search", Source: SourceTools, Tool: tool, Capabilities: []string{"search"}})
	h.Register(Candidate{Name: "web_search", Source: SourceTools, Tool: tool, Capabilities: []string{"search"}})
	found := h.FindByCapability("search")
	require.Len(t, found, 1)
}

func TestSuggestSimilarCapabilities(t *testing.T) {
	h := New(nil)
	h.Register(Candidate{Name: "a", Source: SourceTools, Tool: &fakeTool{}, Capabilities: []string{"search"}})
	h.Register(Candidate{Name: "b", Source: SourceTools, Tool: &fakeTool{}, Capabilities: []string{"weather"}})
	suggestions := h.suggestSimilarCapabilities("searching")
	assert.Contains(t, suggestions, "search")
}

func TestLastSuccessRoundTrip(t *testing.T) {
	h := New(nil)
	_, ok := h.getLastSuccess("x")
	assert.False(t, ok)
	h.setLastSuccess("x", 2)
	idx, ok := h.getLastSuccess("x")
	require.True(t, ok)
	assert.Equal(t, 2, idx)
}
