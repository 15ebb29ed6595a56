package orchestrator

import "strings"

// cacheSkipKeywords marks questions whose answer depends on the current
// moment or on conversation history; caching them would serve a stale or
// simply wrong answer on a later, unrelated request.
var cacheSkipKeywords = []string{
	"now", "today", "time", "just", "previous", "current time", "what time",
	"last message", "conversation history", "what did i ask", "last question",
	"previous question", "utc", "timezone",
}

func isCacheEligible(lower string) bool {
	for _, k := range cacheSkipKeywords {
		if strings.Contains(lower, k) {
			return false
		}
	}
	return true
}

// fingerprint is the cache key: lowercased, trimmed question text.
func fingerprint(question string) string {
	return strings.ToLower(strings.TrimSpace(question))
}
