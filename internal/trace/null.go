package trace

import "context"

// NullTracer is the zero-cost Tracer used when observability is disabled.
// Every method is a no-op; it exists so call sites never branch on whether
// tracing is active.
type NullTracer struct{}

var _ Tracer = NullTracer{}

func (NullTracer) OnPlanningStart(ctx context.Context, _ string) context.Context { return ctx }
func (NullTracer) OnPlanningEnd(context.Context, int, bool, error)               {}

func (NullTracer) OnStepStart(ctx context.Context, _ int, _, _ string) context.Context { return ctx }
func (NullTracer) OnStepEnd(context.Context, int, bool, string, error, string)         {}

func (NullTracer) OnToolCallStart(ctx context.Context, _ int, _, _ string) context.Context {
	return ctx
}
func (NullTracer) OnToolCallEnd(context.Context, int, string, bool, string, error) {}

func (NullTracer) OnReasoningStart(ctx context.Context, _ int, _ string) context.Context { return ctx }
func (NullTracer) OnReasoningEnd(context.Context, int, bool, string, error)              {}

func (NullTracer) OnSynthesisStart(ctx context.Context, _ int) context.Context { return ctx }
func (NullTracer) OnSynthesisEnd(context.Context, bool, string, error)         {}

func (NullTracer) OnVerificationStart(ctx context.Context, _ int) context.Context { return ctx }
func (NullTracer) OnVerificationEnd(context.Context, int, bool, float64)          {}

func (NullTracer) Snapshot() Snapshot {
	return Snapshot{Events: []Event{}}
}
