// Package progress defines the shared value types exchanged between the
// velocity engine, the fusion engine, and their callers: snapshots of the
// digital and physical views of a project, the fused result, and the
// validation rules that keep bad snapshots out of the engines.
package progress

import (
	"fmt"
	"time"
)

// Status classifies how far the digital and physical views of a project
// have diverged. It is a terminal classification: recomputed fresh on every
// fusion pass, never carried forward as state.
type Status int

const (
	// StatusGreen indicates the two views agree within tolerance
	StatusGreen Status = iota
	// StatusYellow indicates moderate divergence worth watching
	StatusYellow
	// StatusRed indicates severe divergence requiring intervention
	StatusRed
)

// String returns a human-readable string representation of the status
func (s Status) String() string {
	switch s {
	case StatusGreen:
		return "GREEN"
	case StatusYellow:
		return "YELLOW"
	case StatusRed:
		return "RED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// IsValid checks if the status value is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusGreen, StatusYellow, StatusRed:
		return true
	}
	return false
}

// ParseStatus converts a stored string form back into a Status.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "GREEN":
		return StatusGreen, nil
	case "YELLOW":
		return StatusYellow, nil
	case "RED":
		return StatusRed, nil
	default:
		return StatusGreen, fmt.Errorf("unknown status: %q", s)
	}
}

// ValidationError reports a snapshot or configuration field that failed
// validation. Callers can unwrap it with errors.As to distinguish bad input
// from operational failures.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Physical is a point-in-time estimate of on-site progress produced by an
// external vision model. The engine consumes the model's verdict and never
// inspects imagery itself.
type Physical struct {
	// Phase names the construction phase the site is currently in
	Phase string `json:"phase"`
	// Completeness estimates how finished the current phase looks, 0..1
	Completeness float64 `json:"completeness"`
	// Confidence is the vision model's self-reported certainty, 0..1
	Confidence float64 `json:"confidence"`
	// LastUpdated is when the verdict was produced
	LastUpdated time.Time `json:"last_updated"`
	// RawMetrics carries any auxiliary model outputs, keyed by metric name
	RawMetrics map[string]float64 `json:"raw_metrics,omitempty"`
}

// Validate checks if the physical snapshot has valid field values
func (p *Physical) Validate() error {
	if p.Phase == "" {
		return &ValidationError{Field: "phase", Reason: "must not be empty"}
	}
	if p.Completeness < 0 || p.Completeness > 1 {
		return &ValidationError{
			Field:  "completeness",
			Reason: fmt.Sprintf("must be between 0 and 1 (got %.3f)", p.Completeness),
		}
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return &ValidationError{
			Field:  "confidence",
			Reason: fmt.Sprintf("must be between 0 and 1 (got %.3f)", p.Confidence),
		}
	}
	return nil
}

// Digital is a point-in-time snapshot of the project's issue-tracker and
// repository activity.
type Digital struct {
	// TotalStoryPoints is the full scope in the tracker's estimation unit
	TotalStoryPoints int `json:"total_story_points"`
	// CompletedPoints counts points in a done state
	CompletedPoints int `json:"completed_points"`
	// SprintVelocity is points completed per sprint
	SprintVelocity float64 `json:"sprint_velocity"`
	// CommitFrequency is commits per day over the recent window
	CommitFrequency float64 `json:"commit_frequency"`
	// PRMergeRate is the fraction of pull requests that merged, 0..1
	PRMergeRate float64 `json:"pr_merge_rate"`
	// LastUpdated is when the snapshot was assembled
	LastUpdated time.Time `json:"last_updated"`
}

// Validate checks if the digital snapshot has valid field values
func (d *Digital) Validate() error {
	if d.TotalStoryPoints <= 0 {
		return &ValidationError{
			Field:  "total_story_points",
			Reason: fmt.Sprintf("must be positive (got %d)", d.TotalStoryPoints),
		}
	}
	if d.CompletedPoints < 0 || d.CompletedPoints > d.TotalStoryPoints {
		return &ValidationError{
			Field:  "completed_points",
			Reason: fmt.Sprintf("must be between 0 and total_story_points (got %d of %d)", d.CompletedPoints, d.TotalStoryPoints),
		}
	}
	if d.SprintVelocity < 0 {
		return &ValidationError{
			Field:  "sprint_velocity",
			Reason: fmt.Sprintf("must not be negative (got %.3f)", d.SprintVelocity),
		}
	}
	if d.CommitFrequency < 0 {
		return &ValidationError{
			Field:  "commit_frequency",
			Reason: fmt.Sprintf("must not be negative (got %.3f)", d.CommitFrequency),
		}
	}
	if d.PRMergeRate < 0 || d.PRMergeRate > 1 {
		return &ValidationError{
			Field:  "pr_merge_rate",
			Reason: fmt.Sprintf("must be between 0 and 1 (got %.3f)", d.PRMergeRate),
		}
	}
	return nil
}

// Fraction returns completed work as a fraction of the total backlog, 0..1.
// A non-positive total yields 0 rather than dividing by zero; Validate
// rejects such snapshots before they reach the engines.
func (d Digital) Fraction() float64 {
	if d.TotalStoryPoints <= 0 {
		return 0
	}
	return float64(d.CompletedPoints) / float64(d.TotalStoryPoints)
}

// Fused is the reconciled output of one fusion pass. It is immutable once
// returned and never partially populated: a failed pass yields an error, not
// a half-filled Fused.
type Fused struct {
	// TrueProgressPercent is the trustworthy progress figure, 0..100
	TrueProgressPercent float64 `json:"true_progress_percent"`
	// PredictedCompletion is the estimated completion date
	PredictedCompletion time.Time `json:"predicted_completion"`
	// VarianceAlert classifies digital/physical divergence
	VarianceAlert Status `json:"variance_alert"`
	// ConfidenceScore is the engine's trust in its own prediction, 0..1
	ConfidenceScore float64 `json:"confidence_score"`
	// CostPerformanceIndex is earned value over actual cost (>1 under budget)
	CostPerformanceIndex float64 `json:"cost_performance_index"`
}

// Phases returns the canonical construction phases in sequence order.
// Config defaults and verdict validation both key off this list.
func Phases() []string {
	return []string{"foundation", "framing", "exterior", "interior", "finishing"}
}
