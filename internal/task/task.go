// Package task provides one-shot delayed jobs. Jobs are held in memory only: anything still pending when the process
// exits is lost.
package task

import (
	"context"
	"errors"
)

// ErrSchedulerClosed is returned when scheduling on a scheduler that has been closed
var ErrSchedulerClosed = errors.New("scheduler is closed")

// Job is a unit of deferred work
type Job struct {
	// ID identifies the job in logs. Assigned by the scheduler if empty.
	ID string
	// Name describes the job in logs, e.g. "follow-up"
	Name string
	// ConversationID is the conversation the job acts on, for logging
	ConversationID int64
	// Run performs the work. It receives the scheduler's context, which is cancelled when the scheduler closes.
	Run func(ctx context.Context) error
}
