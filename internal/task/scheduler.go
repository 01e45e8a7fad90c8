package task

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Scheduler runs each submitted job exactly once after its delay. There is no way to cancel an individual job; Close
// drops every job that has not fired yet.
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
	running sync.WaitGroup
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger.Named("scheduler"),
		pending: make(map[string]*time.Timer),
	}
}

// Schedule submits job to run once after delay and returns its ID
func (s *Scheduler) Schedule(job Job, delay time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrSchedulerClosed
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	s.pending[job.ID] = time.AfterFunc(delay, func() { s.fire(job) })

	s.logger.Info("job scheduled",
		zap.String("job_id", job.ID),
		zap.String("job", job.Name),
		zap.Int64("conversation_id", job.ConversationID),
		zap.Duration("delay", delay),
	)
	return job.ID, nil
}

func (s *Scheduler) fire(job Job) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	delete(s.pending, job.ID)
	s.running.Add(1)
	s.mu.Unlock()
	defer s.running.Done()

	logger := s.logger.With(
		zap.String("job_id", job.ID),
		zap.String("job", job.Name),
		zap.Int64("conversation_id", job.ConversationID),
	)
	if err := job.Run(s.ctx); err != nil {
		logger.Error("job failed", zap.Error(err))
		return
	}
	logger.Info("job completed")
}

// Pending returns the number of jobs that have not fired yet
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close drops all pending jobs, cancels the context of running jobs and waits for them to return. It is safe to call
// multiple times.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	dropped := 0
	for id, timer := range s.pending {
		if timer.Stop() {
			dropped++
		}
		delete(s.pending, id)
	}
	s.mu.Unlock()

	if dropped > 0 {
		s.logger.Warn("dropping pending jobs", zap.Int("dropped_jobs", dropped))
	}

	s.cancel()
	s.running.Wait()
}
