// Package engine assembles the per-project analysis engines behind a common
// capability interface and keys them by project in a registry. The analysis
// loop reaches engines only through this package, so adding an engine kind
// means implementing Engine and extending the Set.
package engine

import (
	"fmt"

	"github.com/sitepulse/sitepulse/internal/fusion"
	"github.com/sitepulse/sitepulse/internal/progress"
	"github.com/sitepulse/sitepulse/internal/velocity"
)

// Engine is the capability surface every analysis engine implements.
// Implementations must be safe for concurrent use.
type Engine interface {
	// Name identifies the engine in health output and logs
	Name() string
	// Validate reports whether the engine is in a usable state
	Validate() error
	// HealthMetrics reports the engine's self-assessed calibration state
	HealthMetrics() map[string]float64
}

// Set bundles the engines serving one tracked project. Engines hold
// process-lifetime state, so a Set lives as long as the process tracks the
// project.
type Set struct {
	projectID string
	velocity  *velocity.Engine
	fusion    *fusion.Engine
}

// NewSet builds the engine pair for one project. Nil configs take engine
// defaults.
func NewSet(projectID string, vcfg *velocity.Config, fcfg *fusion.Config) (*Set, error) {
	if projectID == "" {
		return nil, &progress.ValidationError{Field: "project_id", Reason: "must not be empty"}
	}

	vel, err := velocity.New(vcfg)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", projectID, err)
	}
	fus, err := fusion.New(fcfg)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", projectID, err)
	}

	return &Set{
		projectID: projectID,
		velocity:  vel,
		fusion:    fus,
	}, nil
}

// ProjectID returns the project this set serves.
func (s *Set) ProjectID() string {
	return s.projectID
}

// Velocity returns the digital velocity engine.
func (s *Set) Velocity() *velocity.Engine {
	return s.velocity
}

// Fusion returns the fusion engine.
func (s *Set) Fusion() *fusion.Engine {
	return s.fusion
}

// Engines returns the set's members behind the capability interface.
func (s *Set) Engines() []Engine {
	return []Engine{s.velocity, s.fusion}
}

// Validate checks every engine in the set, returning the first failure.
func (s *Set) Validate() error {
	for _, eng := range s.Engines() {
		if err := eng.Validate(); err != nil {
			return fmt.Errorf("engine %s: %w", eng.Name(), err)
		}
	}
	return nil
}

// HealthReport collects health metrics from every engine, keyed by engine
// name.
func (s *Set) HealthReport() map[string]map[string]float64 {
	report := make(map[string]map[string]float64, 2)
	for _, eng := range s.Engines() {
		report[eng.Name()] = eng.HealthMetrics()
	}
	return report
}
