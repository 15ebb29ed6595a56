// Package metrics tracks atomic counters for requests, tool calls, LLM
// calls, and errors-by-kind, and mirrors the tool-call and LLM-call counts
// into OpenTelemetry/Prometheus instruments when an otel mirror is attached.
package metrics

import (
	"context"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Counters is an atomic-counter set (errors-by-kind behind a mutex) safe for
// concurrent use from every component in the pipeline.
type Counters struct {
	requestsTotal   atomic.Int64
	requestsFailed  atomic.Int64
	toolCallsTotal  atomic.Int64
	toolCallsFailed atomic.Int64
	llmCallsTotal   atomic.Int64
	llmCallsFailed  atomic.Int64
	cacheHits       atomic.Int64
	cacheMisses     atomic.Int64

	mu          sync.Mutex
	errorsByKind map[string]int64

	otel *otelInstruments
}

// New builds a Counters. otelReg may be nil (observability disabled).
func New(otelReg *otelInstruments) *Counters {
	return &Counters{
		errorsByKind: make(map[string]int64),
		otel:         otelReg,
	}
}

func (c *Counters) RequestStarted() { c.requestsTotal.Add(1) }

func (c *Counters) RequestFailed(kind string) {
	c.requestsFailed.Add(1)
	c.recordErrorKind(kind)
}

func (c *Counters) ToolCall(ctx context.Context, name, source string, success bool) {
	c.toolCallsTotal.Add(1)
	if !success {
		c.toolCallsFailed.Add(1)
	}
	if c.otel != nil {
		c.otel.recordToolCall(ctx, name, source, success)
	}
}

func (c *Counters) LLMCall(ctx context.Context, success bool) {
	c.llmCallsTotal.Add(1)
	if !success {
		c.llmCallsFailed.Add(1)
	}
	if c.otel != nil {
		c.otel.recordLLMCall(ctx, success)
	}
}

func (c *Counters) CacheHit()  { c.cacheHits.Add(1) }
func (c *Counters) CacheMiss() { c.cacheMisses.Add(1) }

func (c *Counters) recordErrorKind(kind string) {
	c.mu.Lock()
	c.errorsByKind[kind]++
	c.mu.Unlock()
}

// RecordError is the public entry point callers use with an apperr.Kind.
func (c *Counters) RecordError(kind string) { c.recordErrorKind(kind) }

// Snapshot is a point-in-time, JSON-able view of all counters, returned by
// GET /health.
type Snapshot struct {
	RequestsTotal   int64            `json:"requests_total"`
	RequestsFailed  int64            `json:"requests_failed"`
	ToolCallsTotal  int64            `json:"tool_calls_total"`
	ToolCallsFailed int64            `json:"tool_calls_failed"`
	LLMCallsTotal   int64            `json:"llm_calls_total"`
	LLMCallsFailed  int64            `json:"llm_calls_failed"`
	CacheHits       int64            `json:"cache_hits"`
	CacheMisses     int64            `json:"cache_misses"`
	ErrorsByKind    map[string]int64 `json:"errors_by_kind"`
}

func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	byKind := make(map[string]int64, len(c.errorsByKind))
	for k, v := range c.errorsByKind {
		byKind[k] = v
	}
	c.mu.Unlock()

	return Snapshot{
		RequestsTotal:   c.requestsTotal.Load(),
		RequestsFailed:  c.requestsFailed.Load(),
		ToolCallsTotal:  c.toolCallsTotal.Load(),
		ToolCallsFailed: c.toolCallsFailed.Load(),
		LLMCallsTotal:   c.llmCallsTotal.Load(),
		LLMCallsFailed:  c.llmCallsFailed.Load(),
		CacheHits:       c.cacheHits.Load(),
		CacheMisses:     c.cacheMisses.Load(),
		ErrorsByKind:    byKind,
	}
}

// otelInstruments holds the OTel metric instruments mirroring Counters.
// Constructed by NewOTelInstruments from the meter of internal/trace's
// Provider.
type otelInstruments struct {
	toolCalls metric.Int64Counter
	llmCalls  metric.Int64Counter
}

// NewOTelInstruments builds the otel-backed mirror from a meter. Returns nil
// on instrument-creation failure so callers can fall back to atomic-only.
func NewOTelInstruments(meter metric.Meter) *otelInstruments {
	toolCalls, err := meter.Int64Counter("researchcore_tool_calls_total")
	if err != nil {
		return nil
	}
	llmCalls, err := meter.Int64Counter("researchcore_llm_calls_total")
	if err != nil {
		return nil
	}
	return &otelInstruments{toolCalls: toolCalls, llmCalls: llmCalls}
}

func (o *otelInstruments) recordToolCall(ctx context.Context, name, source string, success bool) {
	o.toolCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", name),
		attribute.String("source", source),
		attribute.Bool("success", success),
	))
}

func (o *otelInstruments) recordLLMCall(ctx context.Context, success bool) {
	o.llmCalls.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}
