package velocity

import (
	"fmt"
	"time"

	"github.com/sitepulse/sitepulse/internal/progress"
)

// Forecast is the outcome of a completion prediction.
type Forecast struct {
	// PredictedDate is nil when no velocity data exists yet
	PredictedDate *time.Time `json:"predicted_date,omitempty"`
	// Confidence combines velocity stability with data volume, higher is better
	Confidence float64 `json:"confidence"`
	// RemainingPoints is target minus completed work
	RemainingPoints int `json:"remaining_points"`
	// AdjustedVelocity is the confidence-discounted velocity, before flooring
	AdjustedVelocity float64 `json:"adjusted_velocity,omitempty"`
}

// PredictCompletion forecasts when the project reaches targetPoints given the
// current digital snapshot. confidenceLevel in [0, 1] controls how far the
// velocity is discounted toward its pessimistic bound: 1 trusts the mean
// velocity outright, lower values subtract a larger share of the spread.
//
// With no velocity samples yet the forecast carries a nil date and zero
// confidence rather than an error; the caller decides whether that is worth
// reporting.
func (e *Engine) PredictCompletion(cur progress.Digital, targetPoints int, confidenceLevel float64) (Forecast, error) {
	if err := cur.Validate(); err != nil {
		return Forecast{}, err
	}
	if confidenceLevel < 0 || confidenceLevel > 1 {
		return Forecast{}, &progress.ValidationError{
			Field:  "confidence_level",
			Reason: fmt.Sprintf("must be between 0 and 1 (got %.3f)", confidenceLevel),
		}
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	remaining := targetPoints - cur.CompletedPoints
	if len(e.velocities) == 0 {
		return Forecast{RemainingPoints: remaining}, nil
	}

	meanVel := mean(e.velocities)
	stdVel := stdDev(e.velocities)

	// Discount the mean by the unconfident share of the spread. The raw
	// adjusted value is reported as-is; only the day estimate is floored.
	adjusted := meanVel - stdVel*(1-confidenceLevel)
	floored := adjusted
	if floored < e.cfg.MinVelocity {
		floored = e.cfg.MinVelocity
	}
	predictedDays := float64(remaining) / floored
	date := time.Now().Add(time.Duration(predictedDays * 24 * float64(time.Hour)))

	// Stability degrades as the spread grows relative to the mean. A
	// non-positive mean gives no stability signal at all.
	stability := 0.0
	if meanVel > 0 {
		stability = clamp01(1 - stdVel/meanVel)
	}
	dataConfidence := float64(len(e.velocities)) / 10
	if dataConfidence > 1 {
		dataConfidence = 1
	}

	return Forecast{
		PredictedDate:    &date,
		Confidence:       stability * dataConfidence * confidenceLevel,
		RemainingPoints:  remaining,
		AdjustedVelocity: adjusted,
	}, nil
}
