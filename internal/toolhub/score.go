package toolhub

import (
	"fmt"
	"sort"
	"strings"
)

// costOf ranks candidate sources by invocation cost: local tools are
// cheapest to invoke, MCPs most expensive, normalized to [0,1] against a
// base of 9.
func costOf(source Source) float64 {
	switch source {
	case SourceTools:
		return 9.0 / 9.0
	case SourceSkills:
		return 7.0 / 9.0
	case SourceMCPs:
		return 4.0 / 9.0
	default:
		return 0
	}
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, v := range a {
		setA[strings.ToLower(v)] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, v := range b {
		setB[strings.ToLower(v)] = struct{}{}
	}
	inter := 0
	for v := range setA {
		if _, ok := setB[v]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// attributeMatch scores how well a candidate's source matches the task's
// soft attribute preferences: high reliability/timeliness favor local and
// skill sources; high cost sensitivity demotes mcps.
func attributeMatch(source Source, attrs AttributeTags) float64 {
	score := 0.0
	max := 0.0

	max++
	if attrs.Reliability == LevelHigh && (source == SourceTools || source == SourceSkills) {
		score++
	}
	max++
	if attrs.Timeliness == LevelHigh && (source == SourceTools || source == SourceSkills) {
		score++
	}
	max++
	if attrs.CostSensitivity == LevelHigh && source != SourceMCPs {
		score++
	}
	if max == 0 {
		return 0
	}
	return score / max
}

// rankByTaskContext scores and orders candidates when a TaskContext is
// present: when the task carries capability tags, candidates with zero
// capability overlap are excluded outright. Ties are broken by (priority,
// source, name) ascending.
func rankByTaskContext(cands []*Candidate, taskCtx TaskContext, lastSuccessIdx int) []*Candidate {
	type scored struct {
		c     *Candidate
		score float64
	}
	var out []scored
	for _, c := range cands {
		fit := jaccard(c.Capabilities, taskCtx.CapabilityTags)
		if len(taskCtx.CapabilityTags) > 0 && fit == 0 {
			continue
		}
		cost := costOf(c.Source)
		attr := attributeMatch(c.Source, taskCtx.AttributeTags)
		recency := 0.0
		if lastSuccessIdx >= 0 && cands[lastSuccessIdx] == c {
			recency = 1.0
		}
		score := 0.5*fit + 0.25*cost + 0.25*attr + recency
		out = append(out, scored{c: c, score: score})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		if out[i].c.Priority != out[j].c.Priority {
			return out[i].c.Priority < out[j].c.Priority
		}
		if out[i].c.Source != out[j].c.Source {
			return out[i].c.Source < out[j].c.Source
		}
		return out[i].c.Name < out[j].c.Name
	})
	ranked := make([]*Candidate, len(out))
	for i, s := range out {
		ranked[i] = s.c
	}
	return ranked
}

// rankByPriority orders candidates when no TaskContext is present: the last
// successful candidate for this name/capability goes first, then ascending
// (priority, source, name).
func rankByPriority(cands []*Candidate, lastSuccessIdx int) []*Candidate {
	order := make([]int, len(cands))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := cands[order[i]], cands[order[j]]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.Name < b.Name
	})
	if lastSuccessIdx >= 0 && lastSuccessIdx < len(cands) {
		reordered := []int{lastSuccessIdx}
		for _, idx := range order {
			if idx != lastSuccessIdx {
				reordered = append(reordered, idx)
			}
		}
		order = reordered
	}
	ranked := make([]*Candidate, len(order))
	for i, idx := range order {
		ranked[i] = cands[idx]
	}
	return ranked
}

// resultText renders a Result's payload as the text scoring/formatting
// operate on.
func resultText(r Result) string {
	if s, ok := r.Result.(string); ok {
		return strings.TrimSpace(s)
	}
	if r.Result == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%v", r.Result))
}

// lengthScore implements the length component of the pick-best score,
// rewarding results that are substantial but not bloated.
func lengthScore(text string) float64 {
	n := len(text)
	switch {
	case n < 10:
		return 0.3
	case n <= 500:
		return float64(n) / 500.0
	case n <= 2000:
		return 0.8 - float64(n-500)/1500.0*0.3
	default:
		decay := float64(n-2000) / 5000.0
		if decay > 0.5 {
			decay = 0.5
		}
		return 0.5 * (1.0 - decay)
	}
}

// qualityScore rewards structured (map-shaped) results, more so when they
// carry one of the conventional payload keys.
func qualityScore(r Result) float64 {
	m, ok := r.Result.(map[string]any)
	if !ok {
		return 0
	}
	for _, k := range []string{"results", "data", "content", "items"} {
		if _, ok := m[k]; ok {
			return 0.3
		}
	}
	return 0.2
}

func priorityScore(priority int) float64 {
	return 1 - float64(priority)/3
}

// pickBest scores every successful candidate result and returns the index
// of the winner, or -1 if none qualifies.
func pickBest(results map[int]Result, cands []*Candidate) int {
	best := -1
	bestScore := -1.0
	for idx, res := range results {
		if !res.Success {
			continue
		}
		text := resultText(res)
		if len(text) < 3 {
			continue
		}
		score := 0.5*lengthScore(text) + 0.2*qualityScore(res) + 0.3*priorityScore(cands[idx].Priority)
		if score > bestScore {
			bestScore = score
			best = idx
		}
	}
	return best
}
