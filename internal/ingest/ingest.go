// Package ingest adapts external progress sources into engine snapshots:
// the issue tracker and code host feed the digital view, vision-model
// verdict files feed the physical view. Sources speak HTTP or the
// filesystem; nothing here computes metrics beyond the snapshot fields.
package ingest

import (
	"context"
	"errors"

	"github.com/sitepulse/sitepulse/internal/config"
	"github.com/sitepulse/sitepulse/internal/progress"
)

// ErrNoDigitalData reports that a digital source had nothing usable this
// cycle. The orchestrator skips the cycle rather than failing it.
var ErrNoDigitalData = errors.New("no digital data available")

// ErrNoPhysicalData is the physical-side counterpart of ErrNoDigitalData.
var ErrNoPhysicalData = errors.New("no physical data available")

// DigitalSource produces the issue-tracker view of a project.
type DigitalSource interface {
	FetchDigital(ctx context.Context, project config.Project) (*progress.Digital, error)
}

// PhysicalSource produces the vision-model view of a project.
type PhysicalSource interface {
	FetchPhysical(ctx context.Context, project config.Project) (*progress.Physical, error)
}

// DigitalSourceFunc adapts a function to the DigitalSource interface.
type DigitalSourceFunc func(ctx context.Context, project config.Project) (*progress.Digital, error)

// FetchDigital implements DigitalSource.
func (f DigitalSourceFunc) FetchDigital(ctx context.Context, project config.Project) (*progress.Digital, error) {
	return f(ctx, project)
}

// PhysicalSourceFunc adapts a function to the PhysicalSource interface.
type PhysicalSourceFunc func(ctx context.Context, project config.Project) (*progress.Physical, error)

// FetchPhysical implements PhysicalSource.
func (f PhysicalSourceFunc) FetchPhysical(ctx context.Context, project config.Project) (*progress.Physical, error) {
	return f(ctx, project)
}
