package toolhub

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// LLM is the narrow synthesis-time collaborator the hub needs: a single
// text completion call. Passing nil disables LLM synthesis (simple merge
// only), matching the original's "no llm_client means skip synthesis"
// strict-mode rule.
type LLM interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// GenerateOptions mirrors the shared LLM collaborator options used across
// planning, execution, and synthesis calls.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

func shouldSynthesize(name, capability string, numCandidates int) bool {
	if numCandidates <= 1 {
		return false
	}
	if numCandidates == 2 {
		return true
	}
	text := strings.ToLower(name + " " + capability)
	for _, kw := range []string{"calculate", "calc", "math"} {
		if strings.Contains(text, kw) {
			return false
		}
	}
	for _, kw := range []string{"search", "find", "query", "web"} {
		if strings.Contains(text, kw) {
			return true
		}
	}
	for _, kw := range []string{"extract", "parse", "pdf", "document"} {
		if strings.Contains(text, kw) {
			return true
		}
	}
	for _, kw := range []string{"time", "date", "clock"} {
		if strings.Contains(text, kw) {
			return false
		}
	}
	return numCandidates > 1
}

func (h *Hub) toolTimeout() time.Duration {
	seconds := 10.0
	if h.timeout != nil {
		seconds = h.timeout()
	}
	return time.Duration(seconds * float64(time.Second))
}

// callCandidate invokes one candidate with a bounded timeout, cancelling and
// awaiting the underlying call on timeout so no goroutine outlives the
// caller (spec §5's no-leak invariant).
func (h *Hub) callCandidate(ctx context.Context, c *Candidate, input any) Result {
	ctx, cancel := context.WithTimeout(ctx, h.toolTimeout())
	defer cancel()

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := c.Tool.Execute(ctx, input)
		done <- outcome{res, err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return Result{Success: false, Error: o.err.Error(), Meta: map[string]any{"source": string(c.Source)}}
		}
		if o.res.Meta == nil {
			o.res.Meta = map[string]any{}
		}
		o.res.Meta["source"] = string(c.Source)
		return o.res
	case <-ctx.Done():
		<-done // await the goroutine's own return so it never outlives us
		return Result{
			Success: false,
			Error:   fmt.Sprintf("tool_timeout_after_%s", h.toolTimeout()),
			Meta:    map[string]any{"source": string(c.Source)},
		}
	}
}

// runBatch launches candidates concurrently. If synthesize is true it awaits
// all of them; otherwise it returns as soon as one succeeds, cancelling and
// awaiting the rest before returning.
func (h *Hub) runBatch(ctx context.Context, batch []*Candidate, input any, synthesize bool) map[int]Result {
	results := make(map[int]Result, len(batch))

	if synthesize {
		var wg sync.WaitGroup
		var mu sync.Mutex
		wg.Add(len(batch))
		for i, c := range batch {
			go func(i int, c *Candidate) {
				defer wg.Done()
				r := h.callCandidate(ctx, c, input)
				mu.Lock()
				results[i] = r
				mu.Unlock()
			}(i, c)
		}
		wg.Wait()
		return results
	}

	batchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type indexed struct {
		i int
		r Result
	}
	out := make(chan indexed, len(batch))
	var wg sync.WaitGroup
	wg.Add(len(batch))
	for i, c := range batch {
		go func(i int, c *Candidate) {
			defer wg.Done()
			out <- indexed{i, h.callCandidate(batchCtx, c, input)}
		}(i, c)
	}
	go func() { wg.Wait(); close(out) }()

	for ix := range out {
		results[ix.i] = ix.r
		if ix.r.Success {
			cancel() // sibling calls observe cancellation via batchCtx
			for range out {
				// drain remaining results so callCandidate goroutines can exit
			}
			return results
		}
	}
	return results
}

// Execute dispatches a call by tool name, with candidate racing/synthesis
// and cross-candidate fallback. taskCtx may be nil to fall back to priority
// ordering.
func (h *Hub) Execute(ctx context.Context, name string, input any, taskCtx *TaskContext, llm LLM) Result {
	cands := h.candidatesByName(name)
	if len(cands) == 0 {
		return Result{Success: false, Error: fmt.Sprintf("tool_not_found: %s", name)}
	}

	if len(cands) == 1 {
		res := h.callCandidate(ctx, cands[0], input)
		if res.Success {
			h.setLastSuccess(name, 0)
		}
		return res
	}

	lastIdx, hasLast := h.getLastSuccess(name)
	var ordered []*Candidate
	if taskCtx != nil {
		li := -1
		if hasLast && lastIdx < len(cands) {
			li = lastIdx
		}
		ordered = rankByTaskContext(cands, *taskCtx, li)
		if len(ordered) == 0 {
			ordered = rankByPriority(cands, li)
		}
	} else {
		li := -1
		if hasLast {
			li = lastIdx
		}
		ordered = rankByPriority(cands, li)
	}

	synth := shouldSynthesize(name, "", len(ordered))
	batchSize := 3
	if synth && len(ordered) <= 2 {
		batchSize = len(ordered)
	}
	if batchSize > len(ordered) {
		batchSize = len(ordered)
	}
	first := ordered[:batchSize]

	results := h.runBatch(ctx, first, input, synth)

	if synth {
		var successful []Result
		var successIdx []int
		for i := range first {
			if r, ok := results[i]; ok && r.Success {
				successful = append(successful, r)
				successIdx = append(successIdx, i)
			}
		}
		merged := h.synthesize(ctx, successful, name, input, llm)
		if merged.Success && len(successIdx) > 0 {
			h.setLastSuccess(name, indexOf(cands, first[successIdx[0]]))
		}
		if merged.Success || len(ordered) == batchSize {
			return merged
		}
	} else {
		if idx := pickBest(results, first); idx >= 0 {
			h.setLastSuccess(name, indexOf(cands, first[idx]))
			return results[idx]
		}
	}

	remaining := ordered[batchSize:]
	var errs []string
	for _, c := range remaining {
		r := h.callCandidate(ctx, c, input)
		if r.Success {
			h.setLastSuccess(name, indexOf(cands, c))
			return r
		}
		errs = append(errs, fmt.Sprintf("%s(%s): %s", c.Name, c.Source, r.Error))
	}

	return Result{
		Success: false,
		Error:   "all_candidates_failed",
		Meta:    map[string]any{"name": name, "errors": capErrs(errs)},
	}
}

// ExecuteByCapability dispatches by capability tag rather than name. Unknown
// capabilities return suggestions instead of crashing.
func (h *Hub) ExecuteByCapability(ctx context.Context, capability string, input any, taskCtx *TaskContext, llm LLM) Result {
	cands := h.FindByCapability(capability)
	if len(cands) == 0 {
		return Result{
			Success: false,
			Error:   "no_match",
			Meta:    map[string]any{"suggestions": h.suggestSimilarCapabilities(capability)},
		}
	}

	var ordered []*Candidate
	if taskCtx != nil {
		ordered = rankByTaskContext(cands, *taskCtx, -1)
	}
	if len(ordered) == 0 {
		ordered = rankByPriority(cands, -1)
	}

	synth := shouldSynthesize(capability, capability, len(ordered))
	batchSize := 3
	if synth && len(ordered) <= 2 {
		batchSize = len(ordered)
	}
	if batchSize > len(ordered) {
		batchSize = len(ordered)
	}
	first := ordered[:batchSize]

	results := h.runBatch(ctx, first, input, synth)

	if synth {
		var successful []Result
		for i := range first {
			if r, ok := results[i]; ok && r.Success {
				successful = append(successful, r)
			}
		}
		merged := h.synthesize(ctx, successful, capability, input, llm)
		if merged.Success || len(ordered) == batchSize {
			return merged
		}
	} else if idx := pickBest(results, first); idx >= 0 {
		return results[idx]
	}

	remaining := ordered[batchSize:]
	var errs []string
	for _, c := range remaining {
		r := h.callCandidate(ctx, c, input)
		if r.Success {
			return r
		}
		errs = append(errs, fmt.Sprintf("%s(%s): %s", c.Name, c.Source, r.Error))
	}

	return Result{
		Success: false,
		Error:   "all_capability_tools_failed",
		Meta:    map[string]any{"capability": capability, "errors": capErrs(errs)},
	}
}

func indexOf(cands []*Candidate, target *Candidate) int {
	for i, c := range cands {
		if c == target {
			return i
		}
	}
	return -1
}

func capErrs(errs []string) []string {
	if len(errs) > 5 {
		return errs[:5]
	}
	return errs
}
