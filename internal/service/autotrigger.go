package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kursadbilgin/ndr-engine/internal/observability"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	minTriggerWorkers   = 1
	defaultTriggerQueue = 256
	triggerTaskTimeout  = 30 * time.Second
)

// TriggerFunc runs the automatic outreach flow for one NDR.
type TriggerFunc func(ctx context.Context, ndrID string) error

// AutoTriggerExecutor runs automatic outreach tasks on a bounded queue.
// Submission never blocks the webhook path; tasks beyond capacity are
// dropped.
type AutoTriggerExecutor struct {
	tasks   chan string
	workers int
	run     TriggerFunc
	logger  *zap.Logger
	metrics *observability.Metrics
}

func NewAutoTriggerExecutor(workers int, queueSize int, run TriggerFunc, logger *zap.Logger) (*AutoTriggerExecutor, error) {
	if run == nil {
		return nil, fmt.Errorf("trigger func is required")
	}
	if workers < minTriggerWorkers {
		workers = minTriggerWorkers
	}
	if queueSize <= 0 {
		queueSize = defaultTriggerQueue
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AutoTriggerExecutor{
		tasks:   make(chan string, queueSize),
		workers: workers,
		run:     run,
		logger:  logger,
	}, nil
}

func (e *AutoTriggerExecutor) SetMetrics(metrics *observability.Metrics) {
	if e == nil {
		return
	}
	e.metrics = metrics
}

// Start runs the worker pool until context cancellation. Queued tasks
// are abandoned on shutdown; they are rediscovered through open NDRs,
// not replayed.
func (e *AutoTriggerExecutor) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < e.workers; i++ {
		workerID := i + 1

		g.Go(func() error {
			e.logger.Info("auto trigger worker started", zap.Int("workerId", workerID))

			for {
				select {
				case <-groupCtx.Done():
					e.logger.Info("auto trigger worker stopped", zap.Int("workerId", workerID))
					return nil
				case ndrID := <-e.tasks:
					e.metrics.SetAutoTriggerQueueDepth(len(e.tasks))
					e.process(groupCtx, ndrID)
				}
			}
		})
	}

	return g.Wait()
}

// Submit queues one NDR for automatic outreach. Returns false when the
// queue is full and the task was dropped.
func (e *AutoTriggerExecutor) Submit(ndrID string) bool {
	if e == nil {
		return false
	}

	select {
	case e.tasks <- ndrID:
		e.metrics.SetAutoTriggerQueueDepth(len(e.tasks))
		return true
	default:
		e.metrics.IncOutreachSkipped("queue_full")
		return false
	}
}

func (e *AutoTriggerExecutor) process(ctx context.Context, ndrID string) {
	taskCtx, cancel := context.WithTimeout(ctx, triggerTaskTimeout)
	defer cancel()

	if err := e.run(taskCtx, ndrID); err != nil {
		e.logger.Error("auto outreach task failed",
			zap.String("ndrId", ndrID),
			zap.Error(err),
		)
	}
}
