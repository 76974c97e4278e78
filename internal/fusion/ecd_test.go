package fusion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimatePhysicalTrackGates(t *testing.T) {
	eng := newTestEngine(t)

	// Digital clears its 0.5 backlog in half a day at velocity 10; the
	// physical track needs 0.5 / (0.5*0.3*1.0) = 3.33 days and wins
	fused, err := eng.Fuse(mkDigital(50, 100), mkPhysical("framing", 0.5, 1.0), targetIn(60), Budget{Total: 1000})
	require.NoError(t, err)

	want := time.Now().Add(time.Duration((0.5 / 0.15) * 24 * float64(time.Hour)))
	assert.WithinDuration(t, want, fused.PredictedCompletion, time.Minute)
}

func TestEstimateDigitalTrackGates(t *testing.T) {
	eng := newTestEngine(t)

	d := mkDigital(50, 100)
	d.SprintVelocity = 0.5

	// At 0.05 points of backlog per day the digital track needs 10 days,
	// far past the physical track's 3.33
	fused, err := eng.Fuse(d, mkPhysical("framing", 0.5, 1.0), targetIn(60), Budget{Total: 1000})
	require.NoError(t, err)

	want := time.Now().AddDate(0, 0, 10)
	assert.WithinDuration(t, want, fused.PredictedCompletion, time.Minute)
}

func TestEstimateStalledProjectCapped(t *testing.T) {
	eng := newTestEngine(t)

	d := mkDigital(0, 100)
	d.SprintVelocity = 0

	fused, err := eng.Fuse(d, mkPhysical("foundation", 0, 0.9), targetIn(30), Budget{Total: 1000})
	require.NoError(t, err)

	// Neither track moves: the forecast pins at the ten-year horizon and
	// the confidence collapses under infinite time pressure
	want := time.Now().Add(time.Duration(maxForecastDays) * 24 * time.Hour)
	assert.WithinDuration(t, want, fused.PredictedCompletion, time.Minute)
	assert.Equal(t, 0.0, fused.ConfidenceScore)
}

func TestEstimateSlowProjectKeepsDistantDate(t *testing.T) {
	eng := newTestEngine(t)

	// Both tracks crawl but neither is stalled. The digital track needs
	// 0.99 / (0.001/10) = 9900 days and gates; the estimate reports that
	// date as-is rather than pinning to the stalled-project horizon.
	d := mkDigital(1, 100)
	d.SprintVelocity = 0.001

	fused, err := eng.Fuse(d, mkPhysical("framing", 0.01, 1.0), targetIn(60), Budget{Total: 1000})
	require.NoError(t, err)

	want := time.Now().Add(time.Duration(9900 * 24 * float64(time.Hour)))
	assert.WithinDuration(t, want, fused.PredictedCompletion, time.Minute)
}

func TestEstimateUnknownPhaseUsesDefaultWeight(t *testing.T) {
	eng := newTestEngine(t)

	// "landscaping" is not in the weight table; the 0.2 default applies,
	// so the physical track needs 0.5 / (0.5*0.2*1.0) = 5 days
	fused, err := eng.Fuse(mkDigital(50, 100), mkPhysical("landscaping", 0.5, 1.0), targetIn(60), Budget{Total: 1000})
	require.NoError(t, err)

	want := time.Now().AddDate(0, 0, 5)
	assert.WithinDuration(t, want, fused.PredictedCompletion, time.Minute)
}

func TestEstimateTimePressureDampsConfidence(t *testing.T) {
	d := mkDigital(50, 100)
	d.CommitFrequency = 6.25 // 0.8 merge rate * 6.25 = baseline, stability 1

	// A comfortable target leaves the vision confidence untouched
	eng := newTestEngine(t)
	relaxed, err := eng.Fuse(d, mkPhysical("framing", 0.5, 1.0), targetIn(300), Budget{Total: 1000})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, relaxed.ConfidenceScore, 1e-9)

	// Two days to target against a 3.33-day estimate damps by 1/pressure
	eng = newTestEngine(t)
	tight, err := eng.Fuse(d, mkPhysical("framing", 0.5, 1.0), targetIn(2), Budget{Total: 1000})
	require.NoError(t, err)
	assert.InDelta(t, 0.3, tight.ConfidenceScore, 1e-3)
}

func TestEstimateAppliesHistoricalShift(t *testing.T) {
	// Zero commit activity zeroes the confidence chain, so the correction
	// term applies at full weight
	d := mkDigital(50, 100)
	d.CommitFrequency = 0

	p := mkPhysical("framing", 0.5, 0.9)

	uncorrected := newTestEngine(t)
	base, err := uncorrected.Fuse(d, p, targetIn(60), Budget{Total: 1000})
	require.NoError(t, err)

	corrected := newTestEngine(t)
	for i := 0; i < 3; i++ {
		predicted := time.Now().AddDate(0, 0, 30+i)
		corrected.RecordECDOutcome(predicted, predicted.AddDate(0, 0, 10))
	}
	shifted, err := corrected.Fuse(d, p, targetIn(60), Budget{Total: 1000})
	require.NoError(t, err)

	// Past forecasts ran ten days late on average; the new one absorbs that
	assert.WithinDuration(t, base.PredictedCompletion.AddDate(0, 0, 10), shifted.PredictedCompletion, time.Minute)
}

func TestEstimateShiftNeedsThreeOutcomes(t *testing.T) {
	d := mkDigital(50, 100)
	d.CommitFrequency = 0

	p := mkPhysical("framing", 0.5, 0.9)

	plain := newTestEngine(t)
	base, err := plain.Fuse(d, p, targetIn(60), Budget{Total: 1000})
	require.NoError(t, err)

	sparse := newTestEngine(t)
	for i := 0; i < 2; i++ {
		predicted := time.Now().AddDate(0, 0, 30)
		sparse.RecordECDOutcome(predicted, predicted.AddDate(0, 0, 10))
	}
	fused, err := sparse.Fuse(d, p, targetIn(60), Budget{Total: 1000})
	require.NoError(t, err)

	assert.WithinDuration(t, base.PredictedCompletion, fused.PredictedCompletion, time.Minute)
}
