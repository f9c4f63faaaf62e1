package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cristiandgm/chatbot-shopify-ventas/internal/model"
	"github.com/cristiandgm/chatbot-shopify-ventas/pkg/logger"
)

// Scheduler hands a reconciliation job to the background. Schedule must not
// block on the job itself.
type Scheduler interface {
	Schedule(ctx context.Context, job model.ReconcileJob) error
}

// JobFunc runs one job.
type JobFunc func(ctx context.Context, job model.ReconcileJob) error

// InlineScheduler runs jobs in goroutines of this process, each with its
// own deadline detached from the request that scheduled it.
type InlineScheduler struct {
	run     JobFunc
	timeout time.Duration
	logger  *logger.Logger
	wg      sync.WaitGroup
}

// NewInlineScheduler creates a scheduler executing run.
func NewInlineScheduler(run JobFunc, timeout time.Duration, log *logger.Logger) *InlineScheduler {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &InlineScheduler{run: run, timeout: timeout, logger: log.Named("scheduler")}
}

// Schedule implements Scheduler.
func (s *InlineScheduler) Schedule(ctx context.Context, job model.ReconcileJob) error {
	jobCtx := context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("memory job panicked",
					zap.String("job_id", job.ID),
					zap.String("customer_id", job.CustomerID),
					zap.Any("panic", r),
				)
			}
		}()

		runCtx, cancel := context.WithTimeout(jobCtx, s.timeout)
		defer cancel()

		if err := s.run(runCtx, job); err != nil {
			s.logger.Warn("memory job failed",
				zap.String("job_id", job.ID),
				zap.String("customer_id", job.CustomerID),
				zap.Error(err),
			)
		}
	}()

	return nil
}

// Wait blocks until running jobs finish or ctx is done.
func (s *InlineScheduler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for memory jobs: %w", ctx.Err())
	}
}
