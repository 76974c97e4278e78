package fusion

import (
	"math"
	"time"

	"github.com/sitepulse/sitepulse/internal/progress"
)

// Fuse reconciles one digital and one physical snapshot into fused metrics.
//
// The pipeline: validate inputs, take the physical ceiling as true progress,
// classify the divergence between the two views, run the bottleneck
// completion estimate, then derive CPI. Fuse never touches the calibration
// history; callers accept the pass with RecordFusion once the result has
// been persisted, so a failed save leaves the history aligned with the
// store.
func (e *Engine) Fuse(d progress.Digital, p progress.Physical, targetDate time.Time, budget Budget) (progress.Fused, error) {
	if err := d.Validate(); err != nil {
		return progress.Fused{}, err
	}
	if err := p.Validate(); err != nil {
		return progress.Fused{}, err
	}
	if err := budget.Validate(); err != nil {
		return progress.Fused{}, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	digitalFraction := d.Fraction()

	// Physical progress is a hard ceiling on the trustworthy figure
	trueProgress := math.Min(digitalFraction, p.Completeness)

	_, alert := e.classifyVariance(digitalFraction, p.Completeness)
	predictedDate, confidence := e.estimateCompletionLocked(d, p, targetDate)
	cpi := costPerformanceIndex(budget.Total*trueProgress, budget.ActualCost)

	return progress.Fused{
		TrueProgressPercent:  trueProgress * 100,
		PredictedCompletion:  predictedDate,
		VarianceAlert:        alert,
		ConfidenceScore:      confidence,
		CostPerformanceIndex: cpi,
	}, nil
}

// RecordFusion appends the calibration record for an accepted fusion pass.
// Kept separate from Fuse so the orchestrator can hold the record back
// until the cycle is durable; a retried cycle then cannot double-count the
// same pass.
func (e *Engine) RecordFusion(d progress.Digital, p progress.Physical) {
	e.mu.Lock()
	defer e.mu.Unlock()

	digitalFraction := d.Fraction()
	trueProgress := math.Min(digitalFraction, p.Completeness)
	variance, _ := e.classifyVariance(digitalFraction, p.Completeness)

	e.appendRecordLocked(Record{
		At:                   time.Now(),
		DigitalFraction:      digitalFraction,
		PhysicalCompleteness: p.Completeness,
		Variance:             variance,
		PredictedProgress:    trueProgress,
		ActualProgress:       trueProgress,
	})
}

// classifyVariance measures the divergence between the digital and physical
// progress fractions and maps it onto the alert scale.
func (e *Engine) classifyVariance(digitalFraction, completeness float64) (float64, progress.Status) {
	variance := abs(digitalFraction - completeness)

	switch {
	case variance >= e.cfg.RedThreshold:
		return variance, progress.StatusRed
	case variance >= e.cfg.YellowThreshold:
		return variance, progress.StatusYellow
	default:
		return variance, progress.StatusGreen
	}
}

// costPerformanceIndex is earned value over actual cost. Zero spend means
// nothing has been paid for yet, which reads as exactly on budget.
func costPerformanceIndex(earnedValue, actualCost float64) float64 {
	if actualCost == 0 {
		return 1.0
	}
	return earnedValue / actualCost
}

// appendRecordLocked adds a calibration record, evicting the oldest entries
// once the ring is full. Must be called with mu held.
func (e *Engine) appendRecordLocked(r Record) {
	e.history = append(e.history, r)
	if len(e.history) > e.cfg.HistoryCap {
		copy(e.history, e.history[len(e.history)-e.cfg.HistoryCap:])
		e.history = e.history[:e.cfg.HistoryCap]
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// clamp01 bounds v to the [0, 1] interval.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
