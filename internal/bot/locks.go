package bot

import "sync"

// conversationLocks hands out one mutex per conversation, discarding it when no flow holds or waits for it
type conversationLocks struct {
	mu    sync.Mutex
	locks map[int64]*conversationLock
}

type conversationLock struct {
	sync.Mutex
	refs int
}

func newConversationLocks() *conversationLocks {
	return &conversationLocks{locks: make(map[int64]*conversationLock)}
}

// Lock blocks until the conversation is free and returns the function releasing it
func (cl *conversationLocks) Lock(conversationID int64) func() {
	cl.mu.Lock()
	l, ok := cl.locks[conversationID]
	if !ok {
		l = &conversationLock{}
		cl.locks[conversationID] = l
	}
	l.refs++
	cl.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()

		cl.mu.Lock()
		defer cl.mu.Unlock()
		l.refs--
		if l.refs == 0 {
			delete(cl.locks, conversationID)
		}
	}
}

func (cl *conversationLocks) size() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.locks)
}
