// Package dedupe remembers recently seen keys so redelivered events are processed once.
package dedupe

import (
	"container/list"
	"sync"
	"time"
)

type entry[K comparable] struct {
	seenAt  time.Time
	element *list.Element
}

// Cache is a size-bounded set of keys whose membership expires after a TTL. When full, the least recently marked
// key is evicted.
type Cache[K comparable] struct {
	mu      sync.Mutex
	entries map[K]*entry[K]
	order   *list.List // Keys, least recently marked first
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
	stopped  chan struct{}
}

// New creates a cache and starts a goroutine sweeping expired keys every sweepInterval. Close stops it.
func New[K comparable](ttl time.Duration, maxSize int, sweepInterval time.Duration) *Cache[K] {
	c := newCache[K](ttl, maxSize, time.Now)
	go c.sweepLoop(sweepInterval)
	return c
}

func newCache[K comparable](ttl time.Duration, maxSize int, now func() time.Time) *Cache[K] {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Cache[K]{
		entries: make(map[K]*entry[K]),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     now,
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Seen reports whether key was marked within the TTL, and marks it. Checking and marking happen atomically, so
// of two concurrent calls with the same key exactly one returns false.
func (c *Cache[K]) Seen(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if e, ok := c.entries[key]; ok {
		fresh := now.Sub(e.seenAt) < c.ttl
		e.seenAt = now
		c.order.MoveToBack(e.element)
		return fresh
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
	}
	c.entries[key] = &entry[K]{seenAt: now, element: c.order.PushBack(key)}
	return false
}

// Len returns the number of keys held, expired or not
func (c *Cache[K]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[K]) evictOldestLocked() {
	front := c.order.Front()
	if front == nil {
		return
	}
	c.order.Remove(front)
	delete(c.entries, front.Value.(K))
}

func (c *Cache[K]) sweepLoop(interval time.Duration) {
	defer close(c.stopped)
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}

// sweep drops expired keys. Keys are ordered by mark time, so it stops at the first fresh one.
func (c *Cache[K]) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for front := c.order.Front(); front != nil; front = c.order.Front() {
		key := front.Value.(K)
		if now.Sub(c.entries[key].seenAt) < c.ttl {
			return
		}
		c.order.Remove(front)
		delete(c.entries, key)
	}
}

// Close stops the sweeping goroutine and waits for it to exit. It is safe to call multiple times.
func (c *Cache[K]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.stopped
}
