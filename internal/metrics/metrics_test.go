package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountersSnapshot(t *testing.T) {
	c := New(nil)
	c.RequestStarted()
	c.RequestStarted()
	c.RequestFailed("timeout")
	c.ToolCall(context.Background(), "calculator", "local", true)
	c.ToolCall(context.Background(), "calculator", "local", false)
	c.LLMCall(context.Background(), true)
	c.CacheHit()
	c.CacheMiss()

	snap := c.Snapshot()
	assert.Equal(t, int64(2), snap.RequestsTotal)
	assert.Equal(t, int64(1), snap.RequestsFailed)
	assert.Equal(t, int64(2), snap.ToolCallsTotal)
	assert.Equal(t, int64(1), snap.ToolCallsFailed)
	assert.Equal(t, int64(1), snap.LLMCallsTotal)
	assert.Equal(t, int64(1), snap.CacheHits)
	assert.Equal(t, int64(1), snap.CacheMisses)
	assert.Equal(t, int64(1), snap.ErrorsByKind["timeout"])
}

func TestRecordErrorAccumulatesByKind(t *testing.T) {
	c := New(nil)
	c.RecordError("plan")
	c.RecordError("plan")
	c.RecordError("internal")
	snap := c.Snapshot()
	assert.Equal(t, int64(2), snap.ErrorsByKind["plan"])
	assert.Equal(t, int64(1), snap.ErrorsByKind["internal"])
}
