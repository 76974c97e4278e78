// Package velocity implements the digital velocity engine: it turns a stream
// of timestamped progress observations from the issue tracker into velocity
// samples, completion forecasts, sprint metrics, and risk factors.
//
// The engine is compute-only. It performs no I/O and holds no references to
// collaborators; ingestion happens elsewhere and hands snapshots in.
package velocity

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sitepulse/sitepulse/internal/progress"
)

// Config holds velocity engine tuning.
type Config struct {
	// WindowSize is the number of recent observations considered per
	// velocity sample. Default: 10
	WindowSize int
	// MinVelocity floors the adjusted velocity in forecasts so a stalled
	// project yields a far-future date instead of a division blowup.
	// Default: 0.1
	MinVelocity float64
	// ExpectedCommitsPerDay is the staffing baseline commit rate used for
	// resource risk. Default: 5.0
	ExpectedCommitsPerDay float64
	// ExpectedMergeRate is the baseline fraction of pull requests expected
	// to merge. Default: 0.8
	ExpectedMergeRate float64
	// PlannedScheduleDays is the nominal full-project schedule length used
	// to derive the planned velocity for completion risk. Default: 100
	PlannedScheduleDays float64
	// HistoryCap bounds the observation and velocity histories. Default: 500
	HistoryCap int
}

// DefaultConfig returns default velocity engine configuration
func DefaultConfig() *Config {
	return &Config{
		WindowSize:            10,
		MinVelocity:           0.1,
		ExpectedCommitsPerDay: 5.0,
		ExpectedMergeRate:     0.8,
		PlannedScheduleDays:   100,
		HistoryCap:            500,
	}
}

// Validate checks if the configuration has valid field values
func (c *Config) Validate() error {
	if c.WindowSize < 2 {
		return &progress.ValidationError{
			Field:  "window_size",
			Reason: fmt.Sprintf("must be at least 2 (got %d)", c.WindowSize),
		}
	}
	if c.MinVelocity <= 0 {
		return &progress.ValidationError{
			Field:  "min_velocity",
			Reason: fmt.Sprintf("must be positive (got %.3f)", c.MinVelocity),
		}
	}
	if c.ExpectedCommitsPerDay <= 0 {
		return &progress.ValidationError{
			Field:  "expected_commits_per_day",
			Reason: fmt.Sprintf("must be positive (got %.3f)", c.ExpectedCommitsPerDay),
		}
	}
	if c.ExpectedMergeRate <= 0 || c.ExpectedMergeRate > 1 {
		return &progress.ValidationError{
			Field:  "expected_merge_rate",
			Reason: fmt.Sprintf("must be in (0, 1] (got %.3f)", c.ExpectedMergeRate),
		}
	}
	if c.PlannedScheduleDays <= 0 {
		return &progress.ValidationError{
			Field:  "planned_schedule_days",
			Reason: fmt.Sprintf("must be positive (got %.3f)", c.PlannedScheduleDays),
		}
	}
	if c.HistoryCap < c.WindowSize {
		return &progress.ValidationError{
			Field:  "history_cap",
			Reason: fmt.Sprintf("must be at least window_size (got %d, window %d)", c.HistoryCap, c.WindowSize),
		}
	}
	return nil
}

// Observation is one timestamped digital-progress reading.
type Observation struct {
	At       time.Time `json:"at"`
	Fraction float64   `json:"fraction"`
}

// Engine derives velocity from progress observations. One instance serves
// one project; writes are serialized by the engine's own mutex while reads
// may run concurrently.
type Engine struct {
	mu sync.RWMutex

	cfg Config

	// observations stores progress readings (bounded by cfg.HistoryCap)
	observations []Observation
	// velocities stores derived samples, progress fraction per day
	velocities []float64
}

// New creates a velocity engine. A nil config uses defaults.
func New(cfg *Config) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid velocity config: %w", err)
	}

	return &Engine{
		cfg:          *cfg,
		observations: make([]Observation, 0, cfg.HistoryCap),
		velocities:   make([]float64, 0, cfg.HistoryCap),
	}, nil
}

// Name identifies the engine in registries and health output.
func (e *Engine) Name() string {
	return "digital-velocity"
}

// Validate reports whether the engine is in a usable state.
func (e *Engine) Validate() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg.Validate()
}

// RecordObservation appends a progress reading and recomputes the velocity
// series. The fraction is completed work over total scope, 0..1. Nothing is
// appended when validation fails.
func (e *Engine) RecordObservation(at time.Time, fraction float64) error {
	if at.IsZero() {
		return &progress.ValidationError{Field: "timestamp", Reason: "must not be zero"}
	}
	if fraction < 0 || fraction > 1 {
		return &progress.ValidationError{
			Field:  "fraction",
			Reason: fmt.Sprintf("must be between 0 and 1 (got %.3f)", fraction),
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.observations = append(e.observations, Observation{At: at, Fraction: fraction})
	if len(e.observations) > e.cfg.HistoryCap {
		copy(e.observations, e.observations[len(e.observations)-e.cfg.HistoryCap:])
		e.observations = e.observations[:e.cfg.HistoryCap]
	}

	e.updateVelocityLocked()
	return nil
}

// updateVelocityLocked derives a new velocity sample from the recent
// observation window. Must be called with mu held.
func (e *Engine) updateVelocityLocked() {
	if len(e.observations) < 2 {
		return
	}

	// Work on a sorted copy of the recent window; observations may arrive
	// out of order when ingestion backfills.
	start := len(e.observations) - e.cfg.WindowSize
	if start < 0 {
		start = 0
	}
	recent := make([]Observation, len(e.observations)-start)
	copy(recent, e.observations[start:])
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].At.Before(recent[j].At)
	})

	// Velocity is summed progress change over summed whole-day intervals.
	// Pairs closer than a day apart contribute nothing, so duplicate or
	// same-day readings never produce a sample on their own.
	progressSum := 0.0
	daySum := 0
	for i := 1; i < len(recent); i++ {
		days := int(recent[i].At.Sub(recent[i-1].At).Hours() / 24)
		if days > 0 {
			progressSum += recent[i].Fraction - recent[i-1].Fraction
			daySum += days
		}
	}

	if daySum > 0 {
		e.velocities = append(e.velocities, progressSum/float64(daySum))
		if len(e.velocities) > e.cfg.HistoryCap {
			copy(e.velocities, e.velocities[len(e.velocities)-e.cfg.HistoryCap:])
			e.velocities = e.velocities[:e.cfg.HistoryCap]
		}
	}
}

// History returns a copy of the derived velocity series, oldest first.
func (e *Engine) History() []float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]float64, len(e.velocities))
	copy(out, e.velocities)
	return out
}

// ObservationCount returns the number of stored progress observations.
func (e *Engine) ObservationCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.observations)
}

// HealthMetrics reports the engine's internal state for monitoring:
// avg_velocity, velocity_stability (population standard deviation), and
// data_points. All zeros before the first velocity sample.
func (e *Engine) HealthMetrics() map[string]float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.velocities) == 0 {
		return map[string]float64{
			"avg_velocity":       0,
			"velocity_stability": 0,
			"data_points":        0,
		}
	}

	return map[string]float64{
		"avg_velocity":       mean(e.velocities),
		"velocity_stability": stdDev(e.velocities),
		"data_points":        float64(len(e.velocities)),
	}
}
