package worker

import (
	"context"
	"sync"
	"time"

	"github.com/athlink/sponsorledger/internal/observability"
	"github.com/athlink/sponsorledger/internal/service"
	"go.uber.org/zap"
)

// PayoutWorker drains pending withdrawals in the background. It polls at a
// fixed interval and pushes each claimed batch through the payout gateway.
// Safe for concurrent instances thanks to FOR UPDATE SKIP LOCKED claiming.
type PayoutWorker struct {
	withdrawals  *service.WithdrawalService
	pollInterval time.Duration
	batchSize    int32
	stopCh       chan struct{}
	stopOnce     sync.Once
}

func NewPayoutWorker(withdrawals *service.WithdrawalService) *PayoutWorker {
	return &PayoutWorker{
		withdrawals:  withdrawals,
		pollInterval: 10 * time.Second,
		batchSize:    10,
		stopCh:       make(chan struct{}),
	}
}

// WithPollInterval sets the poll interval for the worker.
func (w *PayoutWorker) WithPollInterval(interval time.Duration) *PayoutWorker {
	if interval > 0 {
		w.pollInterval = interval
	}
	return w
}

// WithBatchSize sets the batch size for the worker.
func (w *PayoutWorker) WithBatchSize(size int32) *PayoutWorker {
	if size > 0 {
		w.batchSize = size
	}
	return w
}

// Start blocks and processes batches until Stop is called or the context is
// canceled.
func (w *PayoutWorker) Start(ctx context.Context) {
	zap.L().Info("payout worker starting",
		zap.Duration("interval", w.pollInterval),
		zap.Int32("batch", w.batchSize),
	)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("payout worker context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("payout worker stop signal received")
			return
		case <-ticker.C:
			w.processBatch(ctx)
		}
	}
}

// Stop signals the worker to stop.
func (w *PayoutWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *PayoutWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

// ProcessOnce processes a single batch immediately. Useful for tests and
// manual triggering.
func (w *PayoutWorker) ProcessOnce(ctx context.Context) error {
	return w.withdrawals.ProcessPending(ctx, w.batchSize)
}

func (w *PayoutWorker) processBatch(ctx context.Context) {
	if err := w.withdrawals.ProcessPending(ctx, w.batchSize); err != nil {
		observability.IncrementWorkerRun("payout", "failed")
		zap.L().Error("payout batch failed", zap.Error(err))
		return
	}
	observability.IncrementWorkerRun("payout", "success")
}
