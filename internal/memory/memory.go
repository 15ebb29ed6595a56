// Package memory implements the request-scoped conversation log: a bounded
// FIFO of entries plus a point-in-time snapshot mechanism so tools can
// answer "previous"/"just now" queries against the history as it stood
// before the current task started, even while new entries are appended
// during processing. It holds no state beyond the current process's
// lifetime.
package memory

import (
	"sync"
	"time"

	"github.com/brightfieldai/researchcore/internal/apperr"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Entry is one conversation turn.
type Entry struct {
	Role      string
	Content   string
	Metadata  map[string]any
	Timestamp time.Time
}

// Memory is a capacity-bounded FIFO log of Entry with an optional snapshot
// of the sequence taken at task-start time. Safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	capacity int
	entries  []Entry
	snapshot []Entry // nil when no snapshot is active
}

// New builds a Memory bounded to capacity entries (spec default 100).
func New(capacity int) *Memory {
	if capacity <= 0 {
		capacity = 100
	}
	return &Memory{capacity: capacity}
}

// Append pushes an entry, dropping the oldest if the log is at capacity.
func (m *Memory) Append(role, content string, metadata map[string]any) Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := Entry{Role: role, Content: content, Metadata: metadata, Timestamp: time.Now()}
	m.entries = append(m.entries, e)
	if len(m.entries) > m.capacity {
		m.entries = m.entries[len(m.entries)-m.capacity:]
	}
	return e
}

// CreateSnapshot captures the current sequence. At most one snapshot is
// active at a time; a second call overwrites the first.
func (m *Memory) CreateSnapshot() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = append([]Entry(nil), m.entries...)
}

// ClearSnapshot releases the active snapshot, if any.
func (m *Memory) ClearSnapshot() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = nil
}

// HasSnapshot reports whether a snapshot is currently active.
func (m *Memory) HasSnapshot() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot != nil
}

// Recent returns the last n entries from the snapshot (if useSnapshot and
// one is active) or from the live log otherwise.
func (m *Memory) Recent(n int, useSnapshot bool) []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	source := m.entries
	if useSnapshot && m.snapshot != nil {
		source = m.snapshot
	}
	if n <= 0 || len(source) == 0 {
		return []Entry{}
	}
	start := len(source) - n
	if start < 0 {
		start = 0
	}
	out := make([]Entry, len(source[start:]))
	copy(out, source[start:])
	return out
}

// All returns the full sequence from the snapshot (if useSnapshot and one
// is active) or the live log otherwise.
func (m *Memory) All(useSnapshot bool) []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	source := m.entries
	if useSnapshot && m.snapshot != nil {
		source = m.snapshot
	}
	out := make([]Entry, len(source))
	copy(out, source)
	return out
}

// LastByRole returns the most recent entry with the given role from the
// chosen view, used to answer "what did I just say" style history queries.
func (m *Memory) LastByRole(role string, useSnapshot bool) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	source := m.entries
	if useSnapshot && m.snapshot != nil {
		source = m.snapshot
	}
	for i := len(source) - 1; i >= 0; i-- {
		if source[i].Role == role {
			return source[i], true
		}
	}
	return Entry{}, false
}

// Len returns the number of entries in the live log.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// errNotFound is returned by lookups that expect a match, kept as an
// apperr.Error so callers can classify it alongside other pipeline errors.
func errNotFound(op string) error {
	return apperr.Input(op, "no matching memory entry")
}
