package velocity

import (
	"github.com/sitepulse/sitepulse/internal/progress"
)

// Sprint is one completed sprint as reported by the tracker.
type Sprint struct {
	CompletedPoints int     `json:"completed_points"`
	PlannedPoints   int     `json:"planned_points"`
	DurationDays    float64 `json:"duration_days"`
}

// SprintSummary aggregates completed sprints into delivery metrics.
type SprintSummary struct {
	// AvgVelocity is mean points per day across sprints
	AvgVelocity float64 `json:"avg_velocity"`
	// CompletionRate is mean completed/planned across sprints with a plan
	CompletionRate float64 `json:"completion_rate"`
	// Predictability is 1 minus the spread of completion rates
	Predictability float64 `json:"predictability"`
}

// SprintMetrics computes delivery metrics over completed sprints. Empty
// input yields zeros. Sprints with a non-positive duration contribute no
// velocity; sprints without planned points contribute no completion rate.
func (e *Engine) SprintMetrics(sprints []Sprint) SprintSummary {
	if len(sprints) == 0 {
		return SprintSummary{}
	}

	velocities := make([]float64, 0, len(sprints))
	rates := make([]float64, 0, len(sprints))
	for _, s := range sprints {
		if s.DurationDays > 0 {
			velocities = append(velocities, float64(s.CompletedPoints)/s.DurationDays)
		}
		if s.PlannedPoints > 0 {
			rates = append(rates, float64(s.CompletedPoints)/float64(s.PlannedPoints))
		}
	}

	summary := SprintSummary{AvgVelocity: mean(velocities)}
	if len(rates) > 0 {
		summary.CompletionRate = mean(rates)
		summary.Predictability = 1 - stdDev(rates)
	}
	return summary
}

// TrendSummary describes how the velocity series has been moving.
type TrendSummary struct {
	// VelocityTrend is the mean change between consecutive samples
	VelocityTrend float64 `json:"velocity_trend"`
	// Acceleration is the trend normalized by the window size
	Acceleration float64 `json:"acceleration"`
	// StabilityScore is 1/(1+spread), 1 for a perfectly steady series
	StabilityScore float64 `json:"stability_score"`
}

// Trends analyzes the recent velocity series over the last windowSize
// samples. A non-positive windowSize falls back to 5. When the series is
// shorter than the window the summary is all zeros: a partial window would
// overstate whatever little signal exists.
func (e *Engine) Trends(windowSize int) TrendSummary {
	if windowSize <= 0 {
		windowSize = 5
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.velocities) < windowSize {
		return TrendSummary{}
	}

	recent := e.velocities[len(e.velocities)-windowSize:]
	changes := make([]float64, 0, len(recent)-1)
	for i := 1; i < len(recent); i++ {
		changes = append(changes, recent[i]-recent[i-1])
	}

	summary := TrendSummary{
		StabilityScore: 1 / (1 + stdDev(recent)),
	}
	if len(changes) > 0 {
		summary.VelocityTrend = mean(changes)
		summary.Acceleration = summary.VelocityTrend / float64(windowSize)
	}
	return summary
}

// RiskSummary scores delivery risks, each in [0, 1] with 1 worst.
type RiskSummary struct {
	// VelocityInstability is the velocity spread relative to its mean
	VelocityInstability float64 `json:"velocity_instability"`
	// CompletionRateRisk is the shortfall of actual vs planned velocity
	CompletionRateRisk float64 `json:"completion_rate_risk"`
	// ResourceUtilizationRisk blends commit and merge activity shortfalls
	ResourceUtilizationRisk float64 `json:"resource_utilization_risk"`
}

// RiskFactors scores the current snapshot against the configured baselines:
// the planned schedule length, the expected commit rate, and the expected
// merge rate. Risks degrade gracefully: with no velocity history the
// instability risk is simply 0.
func (e *Engine) RiskFactors(cur progress.Digital) (RiskSummary, error) {
	if err := cur.Validate(); err != nil {
		return RiskSummary{}, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	var summary RiskSummary

	if m := mean(e.velocities); len(e.velocities) > 0 && m > 0 {
		instability := stdDev(e.velocities) / m
		if instability > 1 {
			instability = 1
		}
		summary.VelocityInstability = instability
	}

	// Planned velocity assumes the full backlog spread over the nominal
	// schedule; falling behind it raises the completion risk.
	plannedVelocity := float64(cur.TotalStoryPoints) / e.cfg.PlannedScheduleDays
	if plannedVelocity > 0 {
		summary.CompletionRateRisk = clamp01((plannedVelocity - cur.SprintVelocity) / plannedVelocity)
	}

	commitRisk := clamp01((e.cfg.ExpectedCommitsPerDay - cur.CommitFrequency) / e.cfg.ExpectedCommitsPerDay)
	mergeRisk := clamp01((e.cfg.ExpectedMergeRate - cur.PRMergeRate) / e.cfg.ExpectedMergeRate)
	summary.ResourceUtilizationRisk = (commitRisk + mergeRisk) / 2

	return summary, nil
}
