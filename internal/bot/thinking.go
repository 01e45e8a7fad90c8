package bot

import (
	"context"
	"sync"
	"time"
)

// DefaultThinkingInterval is how often the placeholder is rewritten
const DefaultThinkingInterval = 3 * time.Second

// ThinkingIndicator rewrites a placeholder message with a cycle of progress phrases while a completion is pending
type ThinkingIndicator struct {
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// StartThinking starts rewriting placeholder every interval, cycling through phrases. Edit failures are ignored,
// since the placeholder may already be gone. The caller must call Stop before removing or replacing the placeholder.
func StartThinking(ctx context.Context, messenger Messenger, placeholder MessageRef, phrases []string, interval time.Duration) *ThinkingIndicator {
	if interval <= 0 {
		interval = DefaultThinkingInterval
	}
	loopCtx, cancel := context.WithCancel(ctx)
	ti := &ThinkingIndicator{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go ti.run(ctx, loopCtx, messenger, placeholder, phrases, interval)
	return ti
}

// run edits with the caller's context so that Stop never aborts an edit already in flight
func (ti *ThinkingIndicator) run(editCtx, loopCtx context.Context, messenger Messenger, placeholder MessageRef, phrases []string, interval time.Duration) {
	defer close(ti.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for stage := 0; ; stage++ {
		select {
		case <-loopCtx.Done():
			return
		case <-ticker.C:
		}
		// Both channels may have been ready; cancellation wins
		if loopCtx.Err() != nil {
			return
		}
		if len(phrases) == 0 {
			continue
		}
		_ = messenger.EditText(editCtx, placeholder, phrases[stage%len(phrases)], FormatHTML)
	}
}

// Stop cancels the indicator and waits for its loop to exit. Once Stop returns no further edit will be attempted.
// It is safe to call multiple times.
func (ti *ThinkingIndicator) Stop() {
	ti.stopOnce.Do(ti.cancel)
	<-ti.done
}

// Done is closed when the indicator has stopped
func (ti *ThinkingIndicator) Done() <-chan struct{} {
	return ti.done
}
