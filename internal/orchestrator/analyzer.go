// Package orchestrator drives analysis cycles: fetch both progress views,
// fuse them, persist the outcome. It owns the per-project engine sets and
// the daemon loop; the engines themselves never see a source or a store.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sitepulse/sitepulse/internal/config"
	"github.com/sitepulse/sitepulse/internal/engine"
	"github.com/sitepulse/sitepulse/internal/fusion"
	"github.com/sitepulse/sitepulse/internal/ingest"
	"github.com/sitepulse/sitepulse/internal/progress"
	"github.com/sitepulse/sitepulse/internal/storage"
)

// Analyzer runs analysis cycles for the configured portfolio.
type Analyzer struct {
	cfg      *config.Config
	registry *engine.Registry
	digital  ingest.DigitalSource
	physical ingest.PhysicalSource
	store    storage.Store
	log      *zap.Logger
}

// New builds an analyzer with one engine set per configured project.
func New(cfg *config.Config, digital ingest.DigitalSource, physical ingest.PhysicalSource, store storage.Store, log *zap.Logger) (*Analyzer, error) {
	if log == nil {
		log = zap.NewNop()
	}

	registry := engine.NewRegistry()
	for _, p := range cfg.Projects {
		set, err := engine.NewSet(p.ID, cfg.VelocityConfig(), cfg.FusionConfig())
		if err != nil {
			return nil, fmt.Errorf("building engines for project %s: %w", p.ID, err)
		}
		if err := registry.Register(set); err != nil {
			return nil, err
		}
	}

	return &Analyzer{
		cfg:      cfg,
		registry: registry,
		digital:  digital,
		physical: physical,
		store:    store,
		log:      log,
	}, nil
}

// Registry exposes the per-project engine sets.
func (a *Analyzer) Registry() *engine.Registry {
	return a.registry
}

// CycleResult is the outcome of one analysis cycle for one project. A
// skipped cycle carries only the project and the reason.
type CycleResult struct {
	Project      config.Project
	Digital      *progress.Digital
	Physical     *progress.Physical
	Fused        *progress.Fused
	EngineHealth map[string]map[string]float64
	Skipped      bool
	SkipReason   string
}

// AnalyzeProject runs one cycle for one project. A source reporting no
// usable data skips the cycle rather than failing it; bad configuration
// and storage trouble are real errors.
func (a *Analyzer) AnalyzeProject(ctx context.Context, projectID string) (*CycleResult, error) {
	project, ok := a.cfg.Project(projectID)
	if !ok {
		return nil, fmt.Errorf("project %q is not configured", projectID)
	}
	set, ok := a.registry.Get(projectID)
	if !ok {
		return nil, fmt.Errorf("project %q has no engine set", projectID)
	}

	var (
		digital  *progress.Digital
		physical *progress.Physical
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		digital, err = a.digital.FetchDigital(gctx, *project)
		return err
	})
	g.Go(func() error {
		var err error
		physical, err = a.physical.FetchPhysical(gctx, *project)
		return err
	})
	if err := g.Wait(); err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return nil, cerr
		}
		a.log.Warn("skipping cycle",
			zap.String("project", projectID),
			zap.Error(err))
		return &CycleResult{
			Project:    *project,
			Skipped:    true,
			SkipReason: err.Error(),
		}, nil
	}

	prev, err := a.store.LatestCycle(ctx, projectID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("loading previous cycle: %w", err)
	}

	fused, err := set.Fusion().Fuse(*digital, *physical, project.TargetDate, fusion.Budget{
		Total:      project.Budget,
		ActualCost: project.ActualCost,
	})
	if err != nil {
		return nil, fmt.Errorf("fusing project %s: %w", projectID, err)
	}

	now := time.Now()
	cycle := &storage.Cycle{
		ProjectID: projectID,
		RunAt:     now,
		Digital:   *digital,
		Physical:  *physical,
		Fused:     fused,
	}
	if err := a.store.SaveCycle(ctx, cycle); err != nil {
		return nil, fmt.Errorf("saving cycle: %w", err)
	}

	// Engine history moves only once the cycle is durable. A failed save
	// retried on the next poll then cannot count the same pass twice.
	set.Fusion().RecordFusion(*digital, *physical)
	if err := set.Velocity().RecordObservation(now, digital.Fraction()); err != nil {
		return nil, fmt.Errorf("recording velocity observation: %w", err)
	}

	// Completion closes the calibration loop: the standing prediction is
	// scored against the date completion was actually observed.
	if prev != nil && fused.TrueProgressPercent >= 100 && prev.Fused.TrueProgressPercent < 100 {
		set.Fusion().RecordECDOutcome(prev.Fused.PredictedCompletion, now)
		a.log.Info("project completion observed",
			zap.String("project", projectID),
			zap.Time("predicted", prev.Fused.PredictedCompletion))
	}

	return &CycleResult{
		Project:      *project,
		Digital:      digital,
		Physical:     physical,
		Fused:        &fused,
		EngineHealth: set.HealthReport(),
	}, nil
}

// AnalyzeAll runs a cycle for every configured project, in configuration
// order. One project's failure does not stop the rest; failures come back
// joined after all projects have run.
func (a *Analyzer) AnalyzeAll(ctx context.Context) ([]*CycleResult, error) {
	results := make([]*CycleResult, 0, len(a.cfg.Projects))
	var errs []error

	for _, p := range a.cfg.Projects {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := a.AnalyzeProject(ctx, p.ID)
		if err != nil {
			a.log.Error("analysis failed",
				zap.String("project", p.ID),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("project %s: %w", p.ID, err))
			continue
		}
		results = append(results, res)
	}

	return results, errors.Join(errs...)
}

// WarmFromStore replays stored digital observations into the velocity
// engines so a restart does not zero the portfolio's velocity. Fusion
// history stays process-lifetime; replaying fused outputs would
// double-count calibration.
func (a *Analyzer) WarmFromStore(ctx context.Context) error {
	for _, p := range a.cfg.Projects {
		set, ok := a.registry.Get(p.ID)
		if !ok {
			continue
		}

		cycles, err := a.store.ListCycles(ctx, p.ID, a.cfg.VelocityWindow)
		if err != nil {
			return fmt.Errorf("loading cycles for %s: %w", p.ID, err)
		}

		// Stored newest first; the engine wants them in time order
		for i := len(cycles) - 1; i >= 0; i-- {
			c := cycles[i]
			if err := set.Velocity().RecordObservation(c.RunAt, c.Digital.Fraction()); err != nil {
				a.log.Warn("skipping stored observation",
					zap.String("project", p.ID),
					zap.String("cycle", c.ID),
					zap.Error(err))
			}
		}
		if len(cycles) > 0 {
			a.log.Debug("warmed velocity engine",
				zap.String("project", p.ID),
				zap.Int("observations", len(cycles)))
		}
	}
	return nil
}
