// Package storage defines the persistence boundary for analysis cycles.
// The engines themselves never persist anything; the orchestrator records
// each completed cycle here so history survives restarts and the CLI can
// answer questions without re-fetching sources.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/sitepulse/sitepulse/internal/progress"
)

// ErrNotFound reports that no stored cycle matched the query. Callers
// distinguish it from operational failures with errors.Is.
var ErrNotFound = errors.New("not found")

// Cycle is one completed analysis cycle: the two input snapshots and the
// fused result, stamped with identity and time.
type Cycle struct {
	// ID is a generated UUID, assigned on save if empty
	ID string `json:"id"`
	// ProjectID names the tracked project
	ProjectID string `json:"project_id"`
	// RunAt is when the cycle completed
	RunAt time.Time `json:"run_at"`

	Digital  progress.Digital  `json:"digital"`
	Physical progress.Physical `json:"physical"`
	Fused    progress.Fused    `json:"fused"`
}

// Store is the interface analysis-cycle backends implement.
type Store interface {
	// SaveCycle persists one completed cycle
	SaveCycle(ctx context.Context, cycle *Cycle) error
	// LatestCycle returns the most recent cycle for a project, or
	// ErrNotFound if none exist
	LatestCycle(ctx context.Context, projectID string) (*Cycle, error)
	// ListCycles returns cycles for a project, newest first. A
	// non-positive limit returns all of them.
	ListCycles(ctx context.Context, projectID string, limit int) ([]*Cycle, error)
	// CycleCount returns the number of stored cycles for a project
	CycleCount(ctx context.Context, projectID string) (int, error)
	// PruneCycles deletes cycles recorded before the cutoff, across all
	// projects, and returns how many were removed
	PruneCycles(ctx context.Context, olderThan time.Time) (int, error)
	// Close releases the backend
	Close() error
}
