package agent

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/brightfieldai/researchcore/internal/trace"
)

const (
	baseConfidence           = 0.7
	consistencyBonus         = 0.1
	logicBonus               = 0.1
	multiSourceBonus         = 0.1
	consistencyDuplicateHigh = 0.9
	consistencyDriftLow      = 0.05
	logicMagnitudeLimit      = 1e15
)

// VerificationAgent scores a StepResult's consistency against prior
// successful results and its logical plausibility. It never fails a step —
// it only records findings.
type VerificationAgent struct{}

// NewVerificationAgent builds a VerificationAgent. It is stateless.
func NewVerificationAgent() *VerificationAgent { return &VerificationAgent{} }

// Verify checks result against prior and returns a VerificationResult.
func (v *VerificationAgent) Verify(ctx context.Context, tr trace.Tracer, result StepResult, prior []StepResult) VerificationResult {
	if tr == nil {
		tr = trace.NullTracer{}
	}
	tr.OnVerificationStart(ctx, result.StepID)

	out := VerificationResult{StepID: result.StepID}
	if !result.Success {
		tr.OnVerificationEnd(ctx, result.StepID, false, 0)
		return out
	}

	out.Verified = true
	confidence := baseConfidence

	consistent, issue := checkConsistency(result, prior)
	if consistent {
		confidence += consistencyBonus
	} else {
		out.Issues = append(out.Issues, issue)
	}

	if logicOK := checkLogic(result); logicOK {
		confidence += logicBonus
	} else {
		out.Issues = append(out.Issues, "logic check failed")
	}

	if sourceCount(result) >= 2 {
		confidence += multiSourceBonus
	}

	if confidence > 1.0 {
		confidence = 1.0
	}
	out.Confidence = confidence

	tr.OnVerificationEnd(ctx, result.StepID, out.Verified, out.Confidence)
	return out
}

// checkConsistency flags suspect duplicates (similarity > 0.9) or suspect
// drift (similarity < 0.05) against the most similar prior successful
// result.
func checkConsistency(result StepResult, prior []StepResult) (bool, string) {
	text := strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", result.Result)))
	maxSim := -1.0
	for _, p := range prior {
		if !p.Success {
			continue
		}
		other := strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", p.Result)))
		sim := jaccardWords(text, other)
		if sim > maxSim {
			maxSim = sim
		}
	}
	if maxSim < 0 {
		return true, ""
	}
	if maxSim > consistencyDuplicateHigh {
		return false, "suspect duplicate of a prior result"
	}
	if maxSim < consistencyDriftLow {
		return false, "suspect drift from prior results"
	}
	return true, ""
}

func jaccardWords(a, b string) float64 {
	setA := map[string]struct{}{}
	for _, w := range strings.Fields(a) {
		setA[w] = struct{}{}
	}
	setB := map[string]struct{}{}
	for _, w := range strings.Fields(b) {
		setB[w] = struct{}{}
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	inter := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

var numberPattern = regexp.MustCompile(`-?\d+\.?\d*`)
var datePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
var timePattern = regexp.MustCompile(`\d{1,2}:\d{2}(:\d{2})?`)

// checkLogic rejects absurd numeric magnitudes, requires a recognizable
// date/time pattern when one looks intended, and non-whitespace text.
func checkLogic(result StepResult) bool {
	text := strings.TrimSpace(fmt.Sprintf("%v", result.Result))
	if text == "" {
		return false
	}

	for _, numStr := range numberPattern.FindAllString(text, -1) {
		n, err := strconv.ParseFloat(numStr, 64)
		if err != nil {
			continue
		}
		if n < 0 {
			n = -n
		}
		if n > logicMagnitudeLimit {
			return false
		}
	}

	looksLikeTimestamp := strings.Contains(strings.ToLower(result.Method), "time") || strings.Contains(strings.ToLower(fmt.Sprintf("%v", result.Meta["tool_type"])), "time")
	if looksLikeTimestamp && !datePattern.MatchString(text) && !timePattern.MatchString(text) {
		return false
	}

	return true
}

func sourceCount(result StepResult) int {
	if result.Meta == nil {
		return 0
	}
	sources, ok := result.Meta["sources"].([]string)
	if ok {
		return len(sources)
	}
	if anySlice, ok := result.Meta["sources"].([]any); ok {
		return len(anySlice)
	}
	return 0
}
