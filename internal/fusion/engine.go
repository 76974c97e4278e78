// Package fusion implements the fusion engine: the single authoritative
// combination of one digital and one physical progress snapshot into fused
// metrics. The physical view acts as a hard ceiling: no amount of tracker
// bookkeeping can make a project more complete than what is physically built.
//
// Like the velocity engine, fusion is compute-only: no I/O, no blocking
// calls. One instance serves one project.
package fusion

import (
	"fmt"
	"sync"
	"time"

	"github.com/sitepulse/sitepulse/internal/progress"
)

// Config holds fusion engine tuning.
type Config struct {
	// PhaseWeights maps each construction phase to its schedule weight.
	// Heavier phases dominate the physical velocity estimate.
	PhaseWeights map[string]float64
	// DefaultPhaseWeight applies to phases missing from PhaseWeights.
	// Default: 0.2
	DefaultPhaseWeight float64
	// YellowThreshold is the variance that raises a YELLOW alert. Default: 0.15
	YellowThreshold float64
	// RedThreshold is the variance that raises a RED alert. Default: 0.25
	RedThreshold float64
	// SprintLengthDays normalizes sprint velocity to a daily rate. Default: 10
	SprintLengthDays float64
	// ExpectedCommitsPerDay is the baseline commit rate used by the
	// confidence chain. Default: 5.0
	ExpectedCommitsPerDay float64
	// HistoryCap bounds the calibration history ring. Default: 500
	HistoryCap int
}

// DefaultConfig returns default fusion engine configuration
func DefaultConfig() *Config {
	return &Config{
		PhaseWeights: map[string]float64{
			"foundation": 0.2,
			"framing":    0.3,
			"exterior":   0.2,
			"interior":   0.2,
			"finishing":  0.1,
		},
		DefaultPhaseWeight:    0.2,
		YellowThreshold:       0.15,
		RedThreshold:          0.25,
		SprintLengthDays:      10,
		ExpectedCommitsPerDay: 5.0,
		HistoryCap:            500,
	}
}

// Validate checks if the configuration has valid field values
func (c *Config) Validate() error {
	if c.DefaultPhaseWeight <= 0 {
		return &progress.ValidationError{
			Field:  "default_phase_weight",
			Reason: fmt.Sprintf("must be positive (got %.3f)", c.DefaultPhaseWeight),
		}
	}
	for phase, w := range c.PhaseWeights {
		if w <= 0 {
			return &progress.ValidationError{
				Field:  "phase_weights." + phase,
				Reason: fmt.Sprintf("must be positive (got %.3f)", w),
			}
		}
	}
	if c.YellowThreshold <= 0 || c.YellowThreshold >= 1 {
		return &progress.ValidationError{
			Field:  "yellow_threshold",
			Reason: fmt.Sprintf("must be in (0, 1) (got %.3f)", c.YellowThreshold),
		}
	}
	if c.RedThreshold <= c.YellowThreshold || c.RedThreshold >= 1 {
		return &progress.ValidationError{
			Field:  "red_threshold",
			Reason: fmt.Sprintf("must be above yellow_threshold and below 1 (got %.3f)", c.RedThreshold),
		}
	}
	if c.SprintLengthDays <= 0 {
		return &progress.ValidationError{
			Field:  "sprint_length_days",
			Reason: fmt.Sprintf("must be positive (got %.3f)", c.SprintLengthDays),
		}
	}
	if c.ExpectedCommitsPerDay <= 0 {
		return &progress.ValidationError{
			Field:  "expected_commits_per_day",
			Reason: fmt.Sprintf("must be positive (got %.3f)", c.ExpectedCommitsPerDay),
		}
	}
	if c.HistoryCap <= 0 {
		return &progress.ValidationError{
			Field:  "history_cap",
			Reason: fmt.Sprintf("must be positive (got %d)", c.HistoryCap),
		}
	}
	return nil
}

// Budget carries the cost inputs for one fusion pass.
type Budget struct {
	// Total is the full project budget
	Total float64 `json:"total"`
	// ActualCost is spend to date
	ActualCost float64 `json:"actual_cost"`
}

// Validate checks if the budget has valid field values
func (b *Budget) Validate() error {
	if b.Total <= 0 {
		return &progress.ValidationError{
			Field:  "budget",
			Reason: fmt.Sprintf("must be positive (got %.2f)", b.Total),
		}
	}
	if b.ActualCost < 0 {
		return &progress.ValidationError{
			Field:  "actual_cost",
			Reason: fmt.Sprintf("must not be negative (got %.2f)", b.ActualCost),
		}
	}
	return nil
}

// Record is one fusion pass retained for calibration and health reporting.
type Record struct {
	At                   time.Time `json:"at"`
	DigitalFraction      float64   `json:"digital_fraction"`
	PhysicalCompleteness float64   `json:"physical_completeness"`
	Variance             float64   `json:"variance"`
	PredictedProgress    float64   `json:"predicted_progress"`
	ActualProgress       float64   `json:"actual_progress"`
}

// ecdOutcome pairs a past completion forecast with what actually happened,
// feeding the historical bias correction.
type ecdOutcome struct {
	predicted time.Time
	actual    time.Time
}

// Engine fuses digital and physical progress. Writes are serialized by the
// engine's own mutex; health reads may run concurrently.
type Engine struct {
	mu sync.RWMutex

	cfg Config

	// history stores past fusion records (bounded by cfg.HistoryCap)
	history []Record
	// ecdOutcomes stores (predicted, actual) completion pairs
	ecdOutcomes []ecdOutcome
}

// New creates a fusion engine. A nil config uses defaults.
func New(cfg *Config) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fusion config: %w", err)
	}

	// Copy the weight table so later caller mutation cannot skew results
	weights := make(map[string]float64, len(cfg.PhaseWeights))
	for phase, w := range cfg.PhaseWeights {
		weights[phase] = w
	}
	c := *cfg
	c.PhaseWeights = weights

	return &Engine{
		cfg:     c,
		history: make([]Record, 0, c.HistoryCap),
	}, nil
}

// Name identifies the engine in registries and health output.
func (e *Engine) Name() string {
	return "fusion"
}

// Validate reports whether the engine is in a usable state.
func (e *Engine) Validate() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg.Validate()
}

// Snapshot returns a copy of the calibration history, oldest first.
func (e *Engine) Snapshot() []Record {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Record, len(e.history))
	copy(out, e.history)
	return out
}

// RecordECDOutcome feeds a completed forecast back into the engine: predicted
// is the completion date a past fusion pass reported, actual is when that
// milestone really finished (or was re-baselined). Once three or more pairs
// exist, future forecasts are corrected by the observed mean shift.
func (e *Engine) RecordECDOutcome(predicted, actual time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ecdOutcomes = append(e.ecdOutcomes, ecdOutcome{predicted: predicted, actual: actual})
	if len(e.ecdOutcomes) > e.cfg.HistoryCap {
		copy(e.ecdOutcomes, e.ecdOutcomes[len(e.ecdOutcomes)-e.cfg.HistoryCap:])
		e.ecdOutcomes = e.ecdOutcomes[:e.cfg.HistoryCap]
	}
}

// ECDOutcomeCount returns the number of recorded forecast outcomes.
func (e *Engine) ECDOutcomeCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.ecdOutcomes)
}

// HealthMetrics reports the engine's calibration state: data_points,
// avg_variance across history, and model_confidence. Confidence scales
// linearly with history volume until ten records exist, then switches to
// measured prediction accuracy over the last ten.
func (e *Engine) HealthMetrics() map[string]float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	metrics := map[string]float64{
		"data_points":      float64(len(e.history)),
		"avg_variance":     0,
		"model_confidence": e.modelConfidenceLocked(),
	}
	if len(e.history) > 0 {
		sum := 0.0
		for _, r := range e.history {
			sum += r.Variance
		}
		metrics["avg_variance"] = sum / float64(len(e.history))
	}
	return metrics
}

// modelConfidenceLocked computes the model confidence score. Must be called
// with mu held (read or write).
func (e *Engine) modelConfidenceLocked() float64 {
	if len(e.history) < 10 {
		return float64(len(e.history)) / 10
	}

	sum := 0.0
	count := 0
	for _, r := range e.history[len(e.history)-10:] {
		if r.ActualProgress > 0 {
			sum += 1 - abs(r.PredictedProgress-r.ActualProgress)/r.ActualProgress
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
