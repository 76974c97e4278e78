package fusion

import (
	"math"
	"time"

	"github.com/sitepulse/sitepulse/internal/progress"
)

// maxForecastDays stands in for a forecast with no finite date. A project
// stalled on both tracks has nothing to extrapolate from; ten years reads
// as "not finishing" without breaking date arithmetic.
const maxForecastDays = 3650

// estimateCompletionLocked runs the bottleneck completion estimate: whichever
// of the physical or digital track is slower gates the forecast. A project
// cannot be done digitally while physically unbuilt, or vice versa.
// Must be called with mu held.
func (e *Engine) estimateCompletionLocked(d progress.Digital, p progress.Physical, targetDate time.Time) (time.Time, float64) {
	physVelocity := e.physicalVelocity(p)

	physicalRemaining := 1.0 - p.Completeness
	digitalRemaining := 1.0 - d.Fraction()

	daysNeededPhysical := math.Inf(1)
	if physVelocity > 0 {
		daysNeededPhysical = physicalRemaining / physVelocity
	}

	daysNeededDigital := math.Inf(1)
	if d.SprintVelocity > 0 {
		daysNeededDigital = digitalRemaining / (d.SprintVelocity / e.cfg.SprintLengthDays)
	}

	daysNeeded := math.Max(daysNeededPhysical, daysNeededDigital)

	confidence := e.completionConfidence(d, p, daysNeeded, targetDate)

	// Correct for observed forecast bias once enough outcomes exist. Low
	// confidence in the current estimate leans harder on the correction.
	if len(e.ecdOutcomes) >= 3 {
		shiftSum := 0.0
		for _, o := range e.ecdOutcomes {
			shiftSum += o.actual.Sub(o.predicted).Hours() / 24
		}
		meanShift := shiftSum / float64(len(e.ecdOutcomes))
		daysNeeded += meanShift * (1 - confidence)
	}

	// The sentinel covers only estimates with no representable date: a
	// stalled track, or a span past what time.Duration holds. A slow but
	// moving project keeps its real forecast, however distant.
	if math.IsInf(daysNeeded, 1) || daysNeeded > float64(math.MaxInt64/(24*time.Hour)) {
		daysNeeded = maxForecastDays
	}

	return time.Now().Add(time.Duration(daysNeeded * 24 * float64(time.Hour))), confidence
}

// physicalVelocity estimates daily physical progress: completeness weighted
// by the phase's schedule share, discounted by the vision model's own
// confidence. An unrecognized phase takes the default weight.
func (e *Engine) physicalVelocity(p progress.Physical) float64 {
	weight, ok := e.cfg.PhaseWeights[p.Phase]
	if !ok {
		weight = e.cfg.DefaultPhaseWeight
	}
	return p.Completeness * weight * p.Confidence
}

// completionConfidence scores how much to trust the completion estimate,
// starting from the vision model's confidence and eroding it for track
// disagreement, time pressure, and a weak delivery pipeline.
func (e *Engine) completionConfidence(d progress.Digital, p progress.Physical, daysNeeded float64, targetDate time.Time) float64 {
	confidence := p.Confidence

	// Disagreement between the two tracks erodes trust in either
	confidence *= 1 - abs(d.Fraction()-p.Completeness)

	// Forecasts blowing past the target date get damped in proportion
	daysToTarget := int(time.Until(targetDate).Hours() / 24)
	if daysToTarget > 0 {
		pressure := daysNeeded / float64(daysToTarget)
		confidence *= 1 / (1 + math.Max(0, pressure-1))
	}

	// A healthy merge pipeline at the baseline commit rate scores 1
	if d.SprintVelocity > 0 {
		stability := math.Min(1.0, d.PRMergeRate*d.CommitFrequency/e.cfg.ExpectedCommitsPerDay)
		confidence *= stability
	}

	return clamp01(confidence)
}
