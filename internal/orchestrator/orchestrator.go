package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brightfieldai/researchcore/internal/agent"
	"github.com/brightfieldai/researchcore/internal/apperr"
	"github.com/brightfieldai/researchcore/internal/cache"
	"github.com/brightfieldai/researchcore/internal/config"
	"github.com/brightfieldai/researchcore/internal/logging"
	"github.com/brightfieldai/researchcore/internal/memory"
	"github.com/brightfieldai/researchcore/internal/metrics"
	"github.com/brightfieldai/researchcore/internal/toolhub"
	"github.com/brightfieldai/researchcore/internal/trace"
	"github.com/brightfieldai/researchcore/internal/workflow"
	"golang.org/x/sync/singleflight"
)

// Orchestrator is the single process_task entry point: fast-path shortcuts,
// memory sequencing, request-level caching, trace injection, optional task
// routing, and the workflow engine run.
type Orchestrator struct {
	cfg *config.Config

	memory *memory.Memory
	hub    *toolhub.Hub
	engine *workflow.Engine
	router *agent.TaskRouter
	llm    agent.LLM

	responseCache *cache.LRUTTL[Response]
	inflight      singleflight.Group
	metrics       *metrics.Counters

	traceBuilder func(requestID string) trace.Tracer
}

// New builds an Orchestrator from already-constructed components. traceBuilder
// builds a Tracer for one request (real when cfg.Observability.Enabled, a
// trace.NullTracer otherwise); callers typically pass a closure over an otel
// tracer resolved once at startup.
func New(cfg *config.Config, mem *memory.Memory, hub *toolhub.Hub, engine *workflow.Engine, router *agent.TaskRouter, llm agent.LLM, counters *metrics.Counters, traceBuilder func(requestID string) trace.Tracer) *Orchestrator {
	if traceBuilder == nil {
		traceBuilder = func(string) trace.Tracer { return trace.NullTracer{} }
	}
	cacheTTL := cfg.Performance.CacheTTL
	return &Orchestrator{
		cfg:           cfg,
		memory:        mem,
		hub:           hub,
		engine:        engine,
		router:        router,
		llm:           llm,
		responseCache: cache.New[Response](1000, cacheTTL),
		metrics:       counters,
		traceBuilder:  traceBuilder,
	}
}

// maxQuestionLength is the longest question accepted, measured after
// trimming surrounding whitespace.
const maxQuestionLength = 5000

// ProcessTask runs one question through the full pipeline: validation, the
// greeting/capability/history-meta fast path, memory sequencing, the
// request-level cache, task routing, and finally the workflow engine.
func (o *Orchestrator) ProcessTask(ctx context.Context, question string, requestID string) Response {
	if o.metrics != nil {
		o.metrics.RequestStarted()
	}

	if err := validateQuestion(question); err != nil {
		if o.metrics != nil {
			o.metrics.RequestFailed(string(err.Kind()))
		}
		return Response{Success: false, Errors: []string{"invalid input"}}
	}

	if fast := o.fastPath(question); fast != nil {
		o.memory.Append(memory.RoleUser, question, nil)
		o.memory.Append(memory.RoleAssistant, fast.Answer, map[string]any{"confidence": fast.Confidence})
		return *fast
	}

	ctx, cancel := o.withOverallTimeout(ctx)
	defer cancel()

	o.memory.CreateSnapshot()
	o.memory.Append(memory.RoleUser, question, nil)
	defer o.memory.ClearSnapshot()

	lower := strings.ToLower(strings.TrimSpace(question))
	cacheEligible := isCacheEligible(lower)
	key := fingerprint(question)

	if o.cfg.Performance.CacheEnabled && cacheEligible {
		if cached, ok := o.responseCache.Get(key); ok {
			if o.metrics != nil {
				o.metrics.CacheHit()
			}
			o.memory.Append(memory.RoleAssistant, cached.Answer, map[string]any{"confidence": cached.Confidence})
			return cached
		}
		if o.metrics != nil {
			o.metrics.CacheMiss()
		}
	}

	tr := o.traceBuilder(requestID)

	resp := o.answer(ctx, question, key, cacheEligible, tr)
	return o.finalize(ctx, question, key, cacheEligible, resp, tr)
}

// answer runs task routing and the workflow engine to produce a Response.
// For cache-eligible questions it is de-duplicated through inflight: if two
// requests for the same fingerprint arrive concurrently before either has
// populated the response cache, only one actually invokes the LLM/workflow
// and both share its result, rather than each repeating the same work.
//
// The leader's ctx is the one actually used for the shared call, so a
// follower whose own deadline is longer than the leader's can still observe
// a timeout the leader hit first. Acceptable here: all callers share the
// same cfg.Task.Timeout, so deadlines rarely diverge in practice.
func (o *Orchestrator) answer(ctx context.Context, question, key string, cacheEligible bool, tr trace.Tracer) Response {
	run := func() (any, error) {
		var taskCtx *toolhub.TaskContext
		if o.cfg.Tools.UseTaskRouter && o.router != nil {
			tc := o.router.Route(ctx, o.llm, question, o.hub.ToolNames())
			if !tc.UseTools {
				answer, err := o.directAnswer(ctx, question)
				resp := Response{Success: err == nil, Answer: answer}
				if err != nil {
					resp.Errors = []string{err.Error()}
				}
				return resp, nil
			}
			taskCtx = &tc
		}

		result := o.runWorkflow(ctx, question, taskCtx, tr)
		resp := toResponse(result)
		if !resp.Success && ctx.Err() == context.DeadlineExceeded {
			resp = Response{Success: false, Errors: []string{"timeout"}}
		}
		return resp, nil
	}

	if !cacheEligible {
		v, _ := run()
		return v.(Response)
	}
	v, _, _ := o.inflight.Do(key, run)
	return v.(Response)
}

// runWorkflow recovers from a panic anywhere in the engine run, converting it
// into a failed Response per the "never crash the process" failure policy.
func (o *Orchestrator) runWorkflow(ctx context.Context, question string, taskCtx *toolhub.TaskContext, tr trace.Tracer) workflow.Result {
	var result workflow.Result
	func() {
		defer func() {
			if r := recover(); r != nil {
				logging.FromContext(ctx).Error("workflow run panicked", "question", question, "recover", r)
				result = workflow.Result{Success: false, Errors: []string{fmt.Sprintf("panic: %v", r)}}
			}
		}()
		result = o.engine.Run(ctx, question, taskCtx, tr)
	}()
	return result
}

func (o *Orchestrator) directAnswer(ctx context.Context, question string) (string, error) {
	if o.llm == nil {
		return "", apperr.LLM(apperr.KindLLMConnection, "orchestrator.directAnswer", errNoLLM)
	}
	return o.llm.Generate(ctx, question, agent.GenerateOptions{})
}

var errNoLLM = errors.New("no LLM configured")

// validateQuestion rejects a question that is empty or too long once
// surrounding whitespace is trimmed. Surfaces as apperr.KindInput, which
// httpapi maps to HTTP 400.
func validateQuestion(question string) apperr.Error {
	trimmed := strings.TrimSpace(question)
	if trimmed == "" {
		return apperr.Input("orchestrator.ProcessTask", "question must not be empty")
	}
	if len(trimmed) > maxQuestionLength {
		return apperr.Input("orchestrator.ProcessTask", "question exceeds maximum length")
	}
	return nil
}

// finalize appends the assistant turn to memory, writes the request cache,
// attaches the trace snapshot if configured, and returns the response the
// caller should send back — the caller must use this return value, since
// Trace attachment happens here.
func (o *Orchestrator) finalize(ctx context.Context, question, key string, cacheEligible bool, resp Response, tr trace.Tracer) Response {
	if resp.Success && resp.Answer != "" {
		o.memory.Append(memory.RoleAssistant, resp.Answer, map[string]any{"confidence": resp.Confidence})
		if o.cfg.Performance.CacheEnabled && cacheEligible {
			o.responseCache.Set(key, resp)
		}
	} else if o.metrics != nil {
		o.metrics.RequestFailed("workflow")
		logging.FromContext(ctx).Warn("task processing failed", "question", question, "errors", resp.Errors)
	}

	if o.cfg.Observability.IncludeInResponse {
		snap := tr.Snapshot()
		resp.Trace = &snap
	}
	return resp
}

func (o *Orchestrator) withOverallTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := o.cfg.Task.Timeout
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

func toResponse(result workflow.Result) Response {
	resp := Response{
		Success:       result.Success,
		Answer:        result.Answer,
		Errors:        result.Errors,
		Plan:          result.Plan,
		StepResults:   result.StepResults,
		Findings:      result.Findings,
		ExecutionTime: result.ExecutionTime,
	}
	if result.Success {
		resp.Confidence = lastConfidence(result.Findings)
	}
	return resp
}

func lastConfidence(findings []workflow.VerificationFinding) float64 {
	if len(findings) == 0 {
		return 0
	}
	return findings[len(findings)-1].Confidence
}
