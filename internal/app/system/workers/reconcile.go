// internal/app/system/workers/reconcile.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/orghub/internal/app/system/auditlog"
	"github.com/dalemusser/orghub/internal/app/system/membership"
	"github.com/dalemusser/orghub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// RunRecorder persists reconciler reports.
type RunRecorder interface {
	Save(ctx context.Context, run membership.Report) error
}

// Reconcile is a background worker that periodically runs the bulk
// reconciler, stores each report and writes an audit entry for it.
type Reconcile struct {
	reconciler *membership.Reconciler
	runs       RunRecorder
	audit      *auditlog.Logger
	log        *zap.Logger
	interval   time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	started  bool
}

// NewReconcile creates a reconcile worker.
//
// Parameters:
//   - reconciler: the bulk reconciler to run
//   - runs: where reports are saved (may be nil)
//   - audit: audit logger for run summaries (may be nil)
//   - logger: zap logger for logging
//   - interval: time between runs; zero or negative disables the worker
func NewReconcile(reconciler *membership.Reconciler, runs RunRecorder, audit *auditlog.Logger, logger *zap.Logger, interval time.Duration) *Reconcile {
	return &Reconcile{
		reconciler: reconciler,
		runs:       runs,
		audit:      audit,
		log:        logger,
		interval:   interval,
		stopCh:     make(chan struct{}),
	}
}

// Start begins the background loop. It is a no-op when the interval is
// not positive.
func (w *Reconcile) Start() {
	if w.interval <= 0 {
		w.log.Info("reconcile worker disabled")
		return
	}
	w.started = true
	w.wg.Add(1)
	go w.run()
	w.log.Info("reconcile worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for an in-flight run to finish.
func (w *Reconcile) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	if w.started {
		w.log.Info("reconcile worker stopped")
	}
}

func (w *Reconcile) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

// sweep runs once under the sweep timeout, cancelled early by Stop.
func (w *Reconcile) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Sweep())
	defer cancel()

	go func() {
		select {
		case <-w.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	_, _ = w.RunOnce(ctx, false)
}

// RunOnce runs the reconciler (or only verifies when verifyOnly is set),
// records the report and returns it.
func (w *Reconcile) RunOnce(ctx context.Context, verifyOnly bool) (membership.Report, error) {
	var (
		rep membership.Report
		err error
	)
	if verifyOnly {
		rep, err = w.reconciler.Verify(ctx)
	} else {
		rep, err = w.reconciler.Run(ctx)
	}
	if err != nil {
		w.log.Error("reconcile run aborted", zap.String("run_id", rep.ID), zap.Error(err))
	}

	// Partial reports are still worth keeping.
	if rep.ID != "" {
		w.record(ctx, rep)
	}
	return rep, err
}

func (w *Reconcile) record(ctx context.Context, rep membership.Report) {
	// The sweep context may already be spent.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Store())
	defer cancel()

	if w.runs != nil {
		if err := w.runs.Save(saveCtx, rep); err != nil {
			w.log.Error("failed to save reconcile report", zap.String("run_id", rep.ID), zap.Error(err))
		}
	}
	w.audit.ReconcileCompleted(saveCtx, rep)
}
