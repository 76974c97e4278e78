package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sitepulse/sitepulse/internal/ingest"
)

// Daemon runs analysis cycles on a schedule, with verdict-watcher wakeups
// between polls. It runs until its context is cancelled.
type Daemon struct {
	analyzer *Analyzer
	watcher  *ingest.Watcher
	interval time.Duration
	log      *zap.Logger
}

// NewDaemon wraps an analyzer in a poll loop. The watcher is optional; nil
// means poll-only operation.
func NewDaemon(analyzer *Analyzer, watcher *ingest.Watcher, interval time.Duration, log *zap.Logger) *Daemon {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		// time.NewTicker panics on non-positive intervals
		interval = time.Minute
	}
	return &Daemon{
		analyzer: analyzer,
		watcher:  watcher,
		interval: interval,
		log:      log,
	}
}

// Run analyzes the portfolio immediately, then on every poll tick and
// verdict wakeup until the context is cancelled. Cancellation is a clean
// shutdown, not an error.
func (d *Daemon) Run(ctx context.Context) error {
	var wakeups <-chan string
	if d.watcher != nil {
		if err := d.watcher.Start(ctx); err != nil {
			return fmt.Errorf("starting verdict watcher: %w", err)
		}
		defer d.watcher.Stop()
		wakeups = d.watcher.C()
	}

	d.log.Info("daemon started",
		zap.Duration("poll_interval", d.interval),
		zap.Int("projects", len(d.analyzer.cfg.Projects)))

	d.runAll(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info("daemon stopping")
			return nil
		case <-ticker.C:
			d.runAll(ctx)
		case projectID := <-wakeups:
			d.log.Info("fresh verdict arrived",
				zap.String("project", projectID))
			d.runOne(ctx, projectID)
		}
	}
}

func (d *Daemon) runAll(ctx context.Context) {
	results, err := d.analyzer.AnalyzeAll(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		d.log.Error("analysis cycle had failures", zap.Error(err))
	}
	for _, res := range results {
		d.logResult(res)
	}
}

func (d *Daemon) runOne(ctx context.Context, projectID string) {
	res, err := d.analyzer.AnalyzeProject(ctx, projectID)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			d.log.Error("analysis failed",
				zap.String("project", projectID),
				zap.Error(err))
		}
		return
	}
	d.logResult(res)
}

func (d *Daemon) logResult(res *CycleResult) {
	if res.Skipped {
		d.log.Warn("cycle skipped",
			zap.String("project", res.Project.ID),
			zap.String("reason", res.SkipReason))
		return
	}
	d.log.Info("cycle complete",
		zap.String("project", res.Project.ID),
		zap.Float64("true_progress_percent", res.Fused.TrueProgressPercent),
		zap.Time("predicted_completion", res.Fused.PredictedCompletion),
		zap.String("variance_alert", res.Fused.VarianceAlert.String()),
		zap.Float64("confidence", res.Fused.ConfidenceScore),
		zap.Float64("cpi", res.Fused.CostPerformanceIndex))
}
