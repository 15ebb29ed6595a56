package toolhub

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJaccardOverlap(t *testing.T) {
	assert.Equal(t, 0.0, jaccard(nil, []string{"search"}))
	assert.InDelta(t, 1.0/3.0, jaccard([]string{"search", "web"}, []string{"web", "research"}), 1e-9)
}

func TestCostOfOrdering(t *testing.T) {
	assert.Greater(t, costOf(SourceTools), costOf(SourceSkills))
	assert.Greater(t, costOf(SourceSkills), costOf(SourceMCPs))
}

func TestAttributeMatchFavorsLocalUnderHighReliability(t *testing.T) {
	attrs := AttributeTags{Reliability: LevelHigh, Timeliness: LevelMedium, CostSensitivity: LevelMedium}
	assert.Greater(t, attributeMatch(SourceTools, attrs), attributeMatch(SourceMCPs, attrs))
}

func TestRankByTaskContextExcludesZeroOverlap(t *testing.T) {
	cands := []*Candidate{
		{Name: "a", Source: SourceTools, Priority: 0, Capabilities: []string{"weather"}},
		{Name: "b", Source: SourceTools, Priority: 0, Capabilities: []string{"search"}},
	}
	taskCtx := TaskContext{CapabilityTags: []string{"search"}}
	ranked := rankByTaskContext(cands, taskCtx, -1)
	assert.Len(t, ranked, 1)
	assert.Equal(t, "b", ranked[0].Name)
}

func TestRankByPriorityPromotesLastSuccess(t *testing.T) {
	cands := []*Candidate{
		{Name: "a", Priority: 0},
		{Name: "b", Priority: 1},
	}
	ranked := rankByPriority(cands, 1)
	assert.Equal(t, "b", ranked[0].Name)
}

func TestLengthScoreCurve(t *testing.T) {
	assert.Less(t, lengthScore("short"), lengthScore(string(make([]byte, 400))))
	assert.Less(t, lengthScore(string(make([]byte, 3000))), lengthScore(string(make([]byte, 500))))
}

func TestPickBestSkipsTooShortResults(t *testing.T) {
	cands := []*Candidate{{Priority: 0}, {Priority: 1}}
	results := map[int]Result{
		0: {Success: true, Result: "ok"},
		1: {Success: true, Result: "a longer and more substantial answer body here"},
	}
	idx := pickBest(results, cands)
	assert.Equal(t, 1, idx)
}

func TestPickBestReturnsNegativeOneWhenNoneQualify(t *testing.T) {
	results := map[int]Result{0: {Success: false}}
	idx := pickBest(results, []*Candidate{{}})
	assert.Equal(t, -1, idx)
}
