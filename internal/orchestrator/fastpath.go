package orchestrator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/brightfieldai/researchcore/internal/memory"
)

var (
	greetingWordPattern = regexp.MustCompile(`(?i)\b(hi|hello|hey)\b`)

	capabilityKeywords = []string{
		"what can you do", "what are you capable of", "what are your capabilities",
		"what do you do", "your capabilities",
	}

	historyKeywords = []string{
		"what did i ask", "what did i say", "last question", "my last question",
		"previous question", "what i asked", "what i just asked",
	}
)

const maxGreetingLength = 16

// isSimpleGreeting mirrors _is_simple_greeting: whole-word match on a fixed
// vocabulary, gated by a short length guard so "hi" inside a longer
// sentence (or inside another word) never triggers it.
func isSimpleGreeting(text string) bool {
	if len(text) > maxGreetingLength {
		return false
	}
	return greetingWordPattern.MatchString(text)
}

func isCapabilityQuery(lower string) bool {
	for _, k := range capabilityKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func isHistoryMetaQuery(lower string) bool {
	for _, k := range historyKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// fastPath returns a canned response for greeting/capability/history-meta
// questions, or nil if the question needs the full pipeline.
func (o *Orchestrator) fastPath(question string) *Response {
	text := strings.TrimSpace(question)
	if text == "" {
		return nil
	}
	lower := strings.ToLower(text)

	switch {
	case isSimpleGreeting(text):
		return &Response{
			Success:    true,
			Answer:     systemDescription,
			Confidence: 0.9,
			Reasoning:  "fast path: greeting",
		}
	case isCapabilityQuery(lower):
		return &Response{
			Success:    true,
			Answer:     o.buildCapabilityAnswer(),
			Confidence: 0.95,
			Reasoning:  "fast path: capability self-description",
		}
	case isHistoryMetaQuery(lower):
		return &Response{
			Success:    true,
			Answer:     o.buildHistoryMetaAnswer(),
			Confidence: 0.95,
			Reasoning:  "fast path: conversation history meta-query",
		}
	default:
		return nil
	}
}

const systemDescription = "I am a multi-agent research assistant. I can break down complex questions, " +
	"call search, calculation, clock, and conversation-history tools, and produce a synthesized answer."

func (o *Orchestrator) buildCapabilityAnswer() string {
	caps := o.hub.Capabilities()
	if len(caps) == 0 {
		return systemDescription
	}
	return "I can " + strings.Join(caps, ", ") + " using my registered tools, and combine the results into a single answer."
}

// buildHistoryMetaAnswer reads Memory without a snapshot, since no task is
// yet in flight when the fast path runs.
func (o *Orchestrator) buildHistoryMetaAnswer() string {
	entries := o.memory.All(false)
	var userTurns []memory.Entry
	for _, e := range entries {
		if e.Role == memory.RoleUser {
			userTurns = append(userTurns, e)
		}
	}
	if len(userTurns) == 0 {
		return "You have not asked me anything yet."
	}
	last := userTurns[len(userTurns)-1]
	return fmt.Sprintf("Your last question was: %q. You have asked %d question(s) so far.", last.Content, len(userTurns))
}
