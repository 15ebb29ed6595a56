package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecomposeFallsBackWhenLLMNil(t *testing.T) {
	p := NewPlanningAgent(nil)
	plan, err := p.Decompose(context.Background(), nil, "what time is it?")
	require.NoError(t, err)
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "none", plan.Steps[0].ToolType)
}

func TestDecomposeParsesValidPlan(t *testing.T) {
	llm := &seqLLM{responses: []string{`{"steps":[{"id":1,"description":"search","tool_type":"search_web","dependencies":[]},{"id":2,"description":"answer","tool_type":"none","dependencies":[1]}]}`}}
	p := NewPlanningAgent(llm)
	p.SetAvailableTools([]string{"search_web", "calculate"})
	plan, err := p.Decompose(context.Background(), nil, "find something and summarize")
	require.NoError(t, err)
	require.Len(t, plan.Steps, 2)
	assert.Equal(t, "search_web", plan.Steps[0].ToolType)
}

func TestDecomposeTolerantOfFencesAndTrailingCommas(t *testing.T) {
	llm := &seqLLM{responses: []string{"```json\n{\"steps\":[{\"id\":1,\"description\":\"x\",\"tool_type\":\"none\",\"dependencies\":[],}],}\n```"}}
	p := NewPlanningAgent(llm)
	plan, err := p.Decompose(context.Background(), nil, "q")
	require.NoError(t, err)
	require.Len(t, plan.Steps, 1)
}

func TestDecomposeFallsBackOnEmptySteps(t *testing.T) {
	llm := &seqLLM{responses: []string{`{"steps":[]}`}}
	p := NewPlanningAgent(llm)
	plan, err := p.Decompose(context.Background(), nil, "q")
	require.NoError(t, err)
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "none", plan.Steps[0].ToolType)
}

func TestValidateRewritesUnknownToolType(t *testing.T) {
	p := NewPlanningAgent(nil)
	p.SetAvailableTools([]string{"calculate"})
	plan := Plan{Steps: []Step{{ID: 1, ToolType: "mystery_tool"}}}
	out := p.validate(context.Background(), plan)
	assert.Equal(t, "none", out.Steps[0].ToolType)
}

func TestValidateDropsDuplicateIDs(t *testing.T) {
	p := NewPlanningAgent(nil)
	plan := Plan{Steps: []Step{{ID: 1, ToolType: "none"}, {ID: 1, ToolType: "none"}, {ID: 2, ToolType: "none"}}}
	out := p.validate(context.Background(), plan)
	require.Len(t, out.Steps, 2)
}

func TestValidateDropsForwardDependencies(t *testing.T) {
	p := NewPlanningAgent(nil)
	plan := Plan{Steps: []Step{{ID: 1, ToolType: "none", Dependencies: []int{2}}, {ID: 2, ToolType: "none"}}}
	out := p.validate(context.Background(), plan)
	assert.Empty(t, out.Steps[0].Dependencies)
}

func TestSetAvailableToolsAlwaysIncludesNone(t *testing.T) {
	p := NewPlanningAgent(nil)
	p.SetAvailableTools([]string{"calculate"})
	assert.Contains(t, p.availableTools, "none")
	assert.Contains(t, p.availableTools, "calculate")
}
