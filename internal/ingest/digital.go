package ingest

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sitepulse/sitepulse/internal/config"
	"github.com/sitepulse/sitepulse/internal/progress"
)

// CombinedDigitalSource assembles the full digital snapshot from the
// tracker and, when configured, the code host. The two halves are fetched
// concurrently.
type CombinedDigitalSource struct {
	Tracker  *TrackerClient
	CodeHost *CodeHostClient
}

var _ DigitalSource = (*CombinedDigitalSource)(nil)

// NewDigitalSource creates a combined source with default clients.
func NewDigitalSource() *CombinedDigitalSource {
	return &CombinedDigitalSource{
		Tracker:  NewTrackerClient(nil),
		CodeHost: NewCodeHostClient(nil),
	}
}

// FetchDigital implements DigitalSource. The tracker is mandatory; a
// project without a usable board has no digital view at all. The code host
// only enriches the snapshot, so a project may omit it.
func (s *CombinedDigitalSource) FetchDigital(ctx context.Context, project config.Project) (*progress.Digital, error) {
	var (
		backlog  *Backlog
		activity *RepoActivity
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		backlog, err = s.Tracker.FetchBacklog(gctx, project.Tracker)
		return err
	})
	if project.CodeHost.Configured() {
		g.Go(func() error {
			var err error
			activity, err = s.CodeHost.FetchActivity(gctx, project.CodeHost)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d := &progress.Digital{
		TotalStoryPoints: backlog.TotalStoryPoints,
		CompletedPoints:  backlog.CompletedPoints,
		SprintVelocity:   backlog.SprintVelocity,
		LastUpdated:      time.Now(),
	}
	if activity != nil {
		d.CommitFrequency = activity.CommitFrequency
		d.PRMergeRate = activity.PRMergeRate
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}
