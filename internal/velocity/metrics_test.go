package velocity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitepulse/sitepulse/internal/progress"
)

func TestSprintMetricsEmpty(t *testing.T) {
	eng := newTestEngine(t)
	assert.Equal(t, SprintSummary{}, eng.SprintMetrics(nil))
	assert.Equal(t, SprintSummary{}, eng.SprintMetrics([]Sprint{}))
}

func TestSprintMetrics(t *testing.T) {
	eng := newTestEngine(t)

	summary := eng.SprintMetrics([]Sprint{
		{CompletedPoints: 30, PlannedPoints: 30, DurationDays: 10},
		{CompletedPoints: 25, PlannedPoints: 30, DurationDays: 10},
		{CompletedPoints: 35, PlannedPoints: 30, DurationDays: 10},
	})

	assert.InDelta(t, 3.0, summary.AvgVelocity, 1e-9)
	assert.InDelta(t, 1.0, summary.CompletionRate, 1e-3)
	assert.InDelta(t, 0.8639, summary.Predictability, 1e-3)
}

func TestSprintMetricsDegenerateSprints(t *testing.T) {
	eng := newTestEngine(t)

	// Zero duration contributes no velocity; the single completion rate
	// has no spread
	summary := eng.SprintMetrics([]Sprint{
		{CompletedPoints: 10, PlannedPoints: 10, DurationDays: 0},
	})
	assert.Equal(t, 0.0, summary.AvgVelocity)
	assert.InDelta(t, 1.0, summary.CompletionRate, 1e-9)
	assert.InDelta(t, 1.0, summary.Predictability, 1e-9)

	// No planned points anywhere leaves the completion metrics at zero
	summary = eng.SprintMetrics([]Sprint{
		{CompletedPoints: 10, PlannedPoints: 0, DurationDays: 5},
	})
	assert.InDelta(t, 2.0, summary.AvgVelocity, 1e-9)
	assert.Equal(t, 0.0, summary.CompletionRate)
	assert.Equal(t, 0.0, summary.Predictability)
}

func TestTrendsRequiresFullWindow(t *testing.T) {
	eng := newTestEngine(t)
	eng.velocities = []float64{0.1, 0.2, 0.3}

	assert.Equal(t, TrendSummary{}, eng.Trends(5))
}

func TestTrends(t *testing.T) {
	eng := newTestEngine(t)
	eng.velocities = []float64{1, 2, 3, 4, 5}

	summary := eng.Trends(5)
	assert.InDelta(t, 1.0, summary.VelocityTrend, 1e-9)
	assert.InDelta(t, 0.2, summary.Acceleration, 1e-9)
	// stability = 1 / (1 + populationStd([1..5])) = 1 / (1 + sqrt(2))
	assert.InDelta(t, 0.41421, summary.StabilityScore, 1e-4)
}

func TestTrendsUsesRecentWindow(t *testing.T) {
	eng := newTestEngine(t)
	eng.velocities = []float64{100, 100, 0.1, 0.1, 0.1, 0.1, 0.1}

	// Only the last five samples matter; the steady tail scores as stable
	summary := eng.Trends(5)
	assert.InDelta(t, 0.0, summary.VelocityTrend, 1e-9)
	assert.InDelta(t, 1.0, summary.StabilityScore, 1e-9)
}

func TestTrendsDefaultWindow(t *testing.T) {
	eng := newTestEngine(t)
	eng.velocities = []float64{1, 1, 1, 1, 1}

	// Non-positive window falls back to 5
	summary := eng.Trends(0)
	assert.InDelta(t, 1.0, summary.StabilityScore, 1e-9)
}

func TestRiskFactors(t *testing.T) {
	eng := newTestEngine(t)
	eng.velocities = []float64{0.1, 0.2}

	cur := progress.Digital{
		TotalStoryPoints: 100,
		CompletedPoints:  40,
		SprintVelocity:   0.5,
		CommitFrequency:  2.5,
		PRMergeRate:      0.4,
		LastUpdated:      baseTime,
	}

	risks, err := eng.RiskFactors(cur)
	require.NoError(t, err)

	// std/mean = 0.05/0.15
	assert.InDelta(t, 0.3333, risks.VelocityInstability, 1e-3)
	// planned velocity 100/100 = 1.0; shortfall (1-0.5)/1
	assert.InDelta(t, 0.5, risks.CompletionRateRisk, 1e-9)
	// commit shortfall (5-2.5)/5 and merge shortfall (0.8-0.4)/0.8, averaged
	assert.InDelta(t, 0.5, risks.ResourceUtilizationRisk, 1e-9)
}

func TestRiskFactorsClampToZeroWhenAhead(t *testing.T) {
	eng := newTestEngine(t)

	cur := progress.Digital{
		TotalStoryPoints: 100,
		CompletedPoints:  90,
		SprintVelocity:   5,
		CommitFrequency:  12,
		PRMergeRate:      1.0,
		LastUpdated:      baseTime,
	}

	risks, err := eng.RiskFactors(cur)
	require.NoError(t, err)

	assert.Equal(t, 0.0, risks.VelocityInstability)
	assert.Equal(t, 0.0, risks.CompletionRateRisk)
	assert.Equal(t, 0.0, risks.ResourceUtilizationRisk)
}

func TestRiskFactorsInstabilityCapped(t *testing.T) {
	eng := newTestEngine(t)
	// Regressions swing the series negative: spread far exceeds the mean
	eng.velocities = []float64{-1.0, 2.0}

	risks, err := eng.RiskFactors(validDigital())
	require.NoError(t, err)
	assert.Equal(t, 1.0, risks.VelocityInstability)
}

func TestRiskFactorsValidation(t *testing.T) {
	eng := newTestEngine(t)

	bad := validDigital()
	bad.PRMergeRate = 2.0

	_, err := eng.RiskFactors(bad)
	require.Error(t, err)

	var verr *progress.ValidationError
	assert.True(t, errors.As(err, &verr))
}
