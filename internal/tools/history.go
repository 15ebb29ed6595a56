package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/brightfieldai/researchcore/internal/memory"
	"github.com/brightfieldai/researchcore/internal/toolhub"
)

// timeSemanticKeywords marks queries that mean "before the current request
// was processed"; get_conversation_history reads the memory snapshot for
// these instead of the live, possibly-already-appended-to log.
var timeSemanticKeywords = []string{"last", "previous", "before", "earlier", "just now", "prior"}

// ConversationHistory answers get_conversation_history queries against a
// Memory log. Grounded on conversation_history_tool.py's query classification
// (last / last_user / all / last_N / bare digit / default-10), reworked
// around Memory's Recent/All/LastByRole snapshot-aware accessors.
type ConversationHistory struct {
	mem *memory.Memory
}

// NewConversationHistory builds a ConversationHistory tool over mem. mem may
// be nil, in which case every query reports failure.
func NewConversationHistory(mem *memory.Memory) *ConversationHistory {
	return &ConversationHistory{mem: mem}
}

func (h *ConversationHistory) Description() string {
	return "Retrieves prior turns from the conversation history: the last message, the last user message, all history, or the last N messages."
}

func (h *ConversationHistory) Capabilities() []string {
	return []string{"get_conversation_history", "history", "memory"}
}

func (h *ConversationHistory) Execute(ctx context.Context, input any) (toolhub.Result, error) {
	if h.mem == nil {
		return toolhub.Result{Success: false, Error: "conversation memory not configured"}, nil
	}

	query, _ := input.(string)
	lower := strings.ToLower(strings.TrimSpace(query))
	useSnapshot := containsAny(lower, timeSemanticKeywords)

	switch {
	case lower == "last" || lower == "last message":
		return h.lastMessage(useSnapshot), nil
	case lower == "last_user" || lower == "last user":
		return h.lastUserMessage(useSnapshot), nil
	case lower == "all":
		return h.allMessages(useSnapshot), nil
	case strings.HasPrefix(lower, "last_"):
		n, err := strconv.Atoi(strings.TrimPrefix(lower, "last_"))
		if err != nil {
			n = 10
		}
		return h.recentMessages(n, useSnapshot), nil
	default:
		if n, err := strconv.Atoi(lower); err == nil {
			return h.recentMessages(n, useSnapshot), nil
		}
		return h.recentMessages(10, useSnapshot), nil
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func (h *ConversationHistory) lastMessage(useSnapshot bool) toolhub.Result {
	entries := h.mem.Recent(1, useSnapshot)
	if len(entries) == 0 {
		return toolhub.Result{Success: true, Result: nil, Meta: map[string]any{"formatted": "conversation history is empty"}}
	}
	e := entries[len(entries)-1]
	return toolhub.Result{
		Success: true,
		Result:  e.Content,
		Meta: map[string]any{
			"role":      e.Role,
			"timestamp": e.Timestamp,
			"formatted": fmt.Sprintf("[%s]: %s", e.Role, e.Content),
		},
	}
}

func (h *ConversationHistory) lastUserMessage(useSnapshot bool) toolhub.Result {
	e, ok := h.mem.LastByRole(memory.RoleUser, useSnapshot)
	if !ok {
		return toolhub.Result{Success: true, Result: nil, Meta: map[string]any{"formatted": "no user message found"}}
	}
	return toolhub.Result{
		Success: true,
		Result:  e.Content,
		Meta: map[string]any{
			"role":      memory.RoleUser,
			"timestamp": e.Timestamp,
			"formatted": "user question: " + e.Content,
		},
	}
}

func (h *ConversationHistory) allMessages(useSnapshot bool) toolhub.Result {
	return h.formatMessages(h.mem.All(useSnapshot))
}

func (h *ConversationHistory) recentMessages(n int, useSnapshot bool) toolhub.Result {
	return h.formatMessages(h.mem.Recent(n, useSnapshot))
}

func (h *ConversationHistory) formatMessages(entries []memory.Entry) toolhub.Result {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("[%s]: %s", e.Role, e.Content))
	}
	formatted := "conversation history is empty"
	if len(lines) > 0 {
		formatted = strings.Join(lines, "\n")
	}
	return toolhub.Result{
		Success: true,
		Result:  formatted,
		Meta: map[string]any{
			"count":     len(entries),
			"formatted": formatted,
		},
	}
}
