package ai

import "sync"

// DefaultHistoryLimit is the number of turns kept per conversation (five user/assistant exchanges)
const DefaultHistoryLimit = 10

// HistoryStore manages the bounded, ordered turn history of each conversation. Histories live only as long as the
// process.
type HistoryStore interface {
	// Get returns the history of a conversation, oldest turn first. The result is empty if nothing is recorded.
	Get(conversationID int64) []Turn
	// Append adds turns to the end of a conversation's history and discards the oldest turns beyond the limit
	Append(conversationID int64, turns ...Turn)
	// Reset forgets a conversation's history. Resetting an unknown conversation is a no-op.
	Reset(conversationID int64)
}

// MemoryHistoryStore implements HistoryStore with an in-memory map. The mutex only protects the map itself; callers
// that read, call the model, then append are not serialized against each other.
type MemoryHistoryStore struct {
	mu      sync.RWMutex
	limit   int
	history map[int64][]Turn
}

// NewMemoryHistoryStore creates a store keeping at most limit turns per conversation. A non-positive limit selects
// DefaultHistoryLimit.
func NewMemoryHistoryStore(limit int) *MemoryHistoryStore {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &MemoryHistoryStore{
		limit:   limit,
		history: make(map[int64][]Turn),
	}
}

func (s *MemoryHistoryStore) Get(conversationID int64) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.history[conversationID]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

func (s *MemoryHistoryStore) Append(conversationID int64, turns ...Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.history[conversationID], turns...)
	if len(history) > s.limit {
		// Copy so the discarded prefix can be collected
		trimmed := make([]Turn, s.limit)
		copy(trimmed, history[len(history)-s.limit:])
		history = trimmed
	}
	s.history[conversationID] = history
}

func (s *MemoryHistoryStore) Reset(conversationID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.history, conversationID)
}

// Len returns the number of turns recorded for a conversation
func (s *MemoryHistoryStore) Len(conversationID int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.history[conversationID])
}
