// Package trace implements the per-request TraceContext: a bounded buffer
// of phase-tagged events capturing planning, step execution, tool calls,
// reasoning, verification, and synthesis. Once the buffer is full, later
// events are dropped.
//
// A disabled Tracer is a distinct zero-cost implementation (NullTracer),
// not a bool check scattered through call sites.
package trace

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Event is one recorded phase transition. Fields other than Phase are
// optional and omitted from JSON when zero-valued (omitempty tags).
type Event struct {
	Phase         string         `json:"phase"`
	StepID        *int           `json:"step_id,omitempty"`
	ToolType      string         `json:"tool_type,omitempty"`
	InputPreview  string         `json:"input_preview,omitempty"`
	OutputPreview string         `json:"output_preview,omitempty"`
	DurationMS    *float64       `json:"duration_ms,omitempty"`
	Success       *bool          `json:"success,omitempty"`
	Error         string         `json:"error,omitempty"`
	Extra         map[string]any `json:"extra,omitempty"`
}

// Snapshot is the serializable form returned with a response when
// include_in_response is set.
type Snapshot struct {
	RequestID  string  `json:"request_id"`
	Events     []Event `json:"events"`
	EventCount int     `json:"events_count"`
}

// Tracer is the interface every workflow phase and tool call records
// through. Implementations: *Context (active) and NullTracer (disabled).
type Tracer interface {
	OnPlanningStart(ctx context.Context, questionPreview string) context.Context
	OnPlanningEnd(ctx context.Context, stepsCount int, success bool, err error)

	OnStepStart(ctx context.Context, stepID int, description, toolType string) context.Context
	OnStepEnd(ctx context.Context, stepID int, success bool, resultPreview string, err error, method string)

	OnToolCallStart(ctx context.Context, stepID int, toolType string, input string) context.Context
	OnToolCallEnd(ctx context.Context, stepID int, toolType string, success bool, resultPreview string, err error)

	OnReasoningStart(ctx context.Context, stepID int, description string) context.Context
	OnReasoningEnd(ctx context.Context, stepID int, success bool, resultPreview string, err error)

	OnSynthesisStart(ctx context.Context, stepResultsCount int) context.Context
	OnSynthesisEnd(ctx context.Context, success bool, answerPreview string, err error)

	OnVerificationStart(ctx context.Context, stepID int) context.Context
	OnVerificationEnd(ctx context.Context, stepID int, verified bool, confidence float64)

	Snapshot() Snapshot
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func ptrBool(b bool) *bool          { return &b }
func ptrFloat(f float64) *float64   { return &f }
func ptrInt(i int) *int             { return &i }

// Context is the active Tracer: a bounded event buffer plus an optional
// OpenTelemetry span per phase when a real tracer is configured.
type Context struct {
	mu         sync.Mutex
	requestID  string
	maxEvents  int
	maxPreview int
	events     []Event
	timers     map[string]time.Time

	otelTracer oteltrace.Tracer // nil when observability has no span exporter
}

// Config controls TraceContext construction.
type Config struct {
	MaxEvents  int
	MaxPreview int
}

// New builds an active TraceContext. requestID is generated if empty.
// otelTracer may be nil — spans are then skipped but events still recorded.
func New(cfg Config, requestID string, otelTracer oteltrace.Tracer) *Context {
	if requestID == "" {
		requestID = uuid.New().String()[:8]
	}
	if cfg.MaxEvents <= 0 {
		cfg.MaxEvents = 200
	}
	if cfg.MaxPreview <= 0 {
		cfg.MaxPreview = 500
	}
	return &Context{
		requestID:  requestID,
		maxEvents:  cfg.MaxEvents,
		maxPreview: cfg.MaxPreview,
		timers:     make(map[string]time.Time),
		otelTracer: otelTracer,
	}
}

func (c *Context) emit(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) >= c.maxEvents {
		return
	}
	c.events = append(c.events, e)
}

func (c *Context) startTimer(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timers[key] = time.Now()
}

func (c *Context) popTimer(key string) float64 {
	c.mu.Lock()
	t0, ok := c.timers[key]
	if ok {
		delete(c.timers, key)
	}
	c.mu.Unlock()
	if !ok {
		return 0
	}
	return float64(time.Since(t0).Microseconds()) / 1000.0
}

func (c *Context) startSpan(ctx context.Context, name string) context.Context {
	if c.otelTracer == nil {
		return ctx
	}
	spanCtx, span := c.otelTracer.Start(ctx, name)
	return context.WithValue(spanCtx, spanKey{}, span)
}

func (c *Context) endSpan(ctx context.Context, err error) {
	span, ok := ctx.Value(spanKey{}).(oteltrace.Span)
	if !ok || span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}

type spanKey struct{}

func (c *Context) OnPlanningStart(ctx context.Context, questionPreview string) context.Context {
	c.startTimer("planning")
	c.emit(Event{Phase: "planning_start", InputPreview: truncate(questionPreview, c.maxPreview)})
	return c.startSpan(ctx, "planning")
}

func (c *Context) OnPlanningEnd(ctx context.Context, stepsCount int, success bool, err error) {
	d := c.popTimer("planning")
	c.emit(Event{
		Phase:      "planning_end",
		DurationMS: ptrFloat(d),
		Success:    ptrBool(success),
		Error:      errString(err),
		Extra:      map[string]any{"steps_count": stepsCount},
	})
	c.endSpan(ctx, err)
}

func (c *Context) OnStepStart(ctx context.Context, stepID int, description, toolType string) context.Context {
	c.startTimer(stepKey(stepID))
	c.emit(Event{
		Phase:        "step_start",
		StepID:       ptrInt(stepID),
		ToolType:     toolType,
		InputPreview: truncate(description, c.maxPreview),
	})
	return c.startSpan(ctx, "step")
}

func (c *Context) OnStepEnd(ctx context.Context, stepID int, success bool, resultPreview string, err error, method string) {
	d := c.popTimer(stepKey(stepID))
	extra := map[string]any{}
	if method != "" {
		extra["method"] = method
	}
	c.emit(Event{
		Phase:         "step_end",
		StepID:        ptrInt(stepID),
		OutputPreview: truncate(resultPreview, c.maxPreview),
		DurationMS:    ptrFloat(d),
		Success:       ptrBool(success),
		Error:         errString(err),
		Extra:         extra,
	})
	c.endSpan(ctx, err)
}

func (c *Context) OnToolCallStart(ctx context.Context, stepID int, toolType string, input string) context.Context {
	c.startTimer(toolKey(stepID, toolType))
	c.emit(Event{
		Phase:        "tool_call",
		StepID:       ptrInt(stepID),
		ToolType:     toolType,
		InputPreview: truncate(input, c.maxPreview),
		Extra:        map[string]any{"status": "start"},
	})
	return c.startSpan(ctx, "tool_call:"+toolType)
}

func (c *Context) OnToolCallEnd(ctx context.Context, stepID int, toolType string, success bool, resultPreview string, err error) {
	d := c.popTimer(toolKey(stepID, toolType))
	c.emit(Event{
		Phase:         "tool_call",
		StepID:        ptrInt(stepID),
		ToolType:      toolType,
		OutputPreview: truncate(resultPreview, c.maxPreview),
		DurationMS:    ptrFloat(d),
		Success:       ptrBool(success),
		Error:         errString(err),
		Extra:         map[string]any{"status": "end"},
	})
	c.endSpan(ctx, err)
}

func (c *Context) OnReasoningStart(ctx context.Context, stepID int, description string) context.Context {
	key := reasoningKey(stepID)
	c.startTimer(key)
	c.emit(Event{
		Phase:        "reasoning",
		StepID:       ptrInt(stepID),
		InputPreview: truncate(description, c.maxPreview),
		Extra:        map[string]any{"status": "start"},
	})
	return c.startSpan(ctx, "reasoning")
}

func (c *Context) OnReasoningEnd(ctx context.Context, stepID int, success bool, resultPreview string, err error) {
	d := c.popTimer(reasoningKey(stepID))
	c.emit(Event{
		Phase:         "reasoning",
		StepID:        ptrInt(stepID),
		OutputPreview: truncate(resultPreview, c.maxPreview),
		DurationMS:    ptrFloat(d),
		Success:       ptrBool(success),
		Error:         errString(err),
		Extra:         map[string]any{"status": "end"},
	})
	c.endSpan(ctx, err)
}

func (c *Context) OnSynthesisStart(ctx context.Context, stepResultsCount int) context.Context {
	c.startTimer("synthesis")
	c.emit(Event{Phase: "evidence_synthesis", Extra: map[string]any{"step_results_count": stepResultsCount}})
	return c.startSpan(ctx, "evidence_synthesis")
}

func (c *Context) OnSynthesisEnd(ctx context.Context, success bool, answerPreview string, err error) {
	d := c.popTimer("synthesis")
	c.emit(Event{
		Phase:         "evidence_synthesis",
		OutputPreview: truncate(answerPreview, c.maxPreview),
		DurationMS:    ptrFloat(d),
		Success:       ptrBool(success),
		Error:         errString(err),
		Extra:         map[string]any{"status": "end"},
	})
	c.endSpan(ctx, err)
}

func (c *Context) OnVerificationStart(ctx context.Context, stepID int) context.Context {
	c.startTimer(verifyKey(stepID))
	c.emit(Event{Phase: "verification", StepID: ptrInt(stepID), Extra: map[string]any{"status": "start"}})
	return c.startSpan(ctx, "verification")
}

func (c *Context) OnVerificationEnd(ctx context.Context, stepID int, verified bool, confidence float64) {
	d := c.popTimer(verifyKey(stepID))
	c.emit(Event{
		Phase:      "verification",
		StepID:     ptrInt(stepID),
		DurationMS: ptrFloat(d),
		Success:    ptrBool(verified),
		Extra:      map[string]any{"status": "end", "confidence": confidence},
	})
	c.endSpan(ctx, nil)
}

func (c *Context) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	events := make([]Event, len(c.events))
	copy(events, c.events)
	return Snapshot{RequestID: c.requestID, Events: events, EventCount: len(events)}
}

func stepKey(stepID int) string            { return "step_" + strconv.Itoa(stepID) }
func toolKey(stepID int, t string) string  { return "tool_" + strconv.Itoa(stepID) + "_" + t }
func reasoningKey(stepID int) string       { return "reasoning_" + strconv.Itoa(stepID) }
func verifyKey(stepID int) string          { return "verify_" + strconv.Itoa(stepID) }
