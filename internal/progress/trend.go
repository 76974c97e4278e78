package progress

import "sync"

// Metric identifies a numeric series tracked by TrendTracker.
type Metric string

const (
	// MetricTrueProgress is the reconciled progress percentage series
	MetricTrueProgress Metric = "true_progress_percent"
	// MetricConfidence is the confidence score series
	MetricConfidence Metric = "confidence_score"
	// MetricCPI is the cost performance index series
	MetricCPI Metric = "cost_performance_index"
)

// DefaultTrendWindow is the number of recent entries a trend spans when the
// caller does not ask for a specific window.
const DefaultTrendWindow = 10

// TrendTracker maintains a sliding window of fused results so callers can
// inspect how the reconciled metrics are moving over time. It is safe for
// concurrent use.
type TrendTracker struct {
	mu sync.RWMutex

	// history stores recent fused results (bounded by windowSize)
	history []Fused
	// windowSize is the maximum number of results to keep
	windowSize int
}

// NewTrendTracker creates a tracker keeping at most capacity entries.
// A non-positive capacity falls back to 100.
func NewTrendTracker(capacity int) *TrendTracker {
	if capacity <= 0 {
		capacity = 100
	}
	return &TrendTracker{
		history:    make([]Fused, 0, capacity),
		windowSize: capacity,
	}
}

// Add appends a fused result to the history, evicting the oldest entries
// once the window is full.
func (t *TrendTracker) Add(f Fused) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.history = append(t.history, f)

	// Enforce sliding window
	if len(t.history) > t.windowSize {
		copy(t.history, t.history[len(t.history)-t.windowSize:])
		t.history = t.history[:t.windowSize]
	}
}

// Latest returns the most recent fused result, or false when the tracker
// is empty.
func (t *TrendTracker) Latest() (Fused, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.history) == 0 {
		return Fused{}, false
	}
	return t.history[len(t.history)-1], true
}

// Len returns the number of tracked results.
func (t *TrendTracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.history)
}

// Trend returns the recent series for one metric, oldest first, spanning at
// most window entries. An unknown metric yields nil.
func (t *TrendTracker) Trend(metric Metric, window int) []float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if window <= 0 {
		window = DefaultTrendWindow
	}

	start := len(t.history) - window
	if start < 0 {
		start = 0
	}

	values := make([]float64, 0, len(t.history)-start)
	for _, f := range t.history[start:] {
		switch metric {
		case MetricTrueProgress:
			values = append(values, f.TrueProgressPercent)
		case MetricConfidence:
			values = append(values, f.ConfidenceScore)
		case MetricCPI:
			values = append(values, f.CostPerformanceIndex)
		default:
			return nil
		}
	}
	return values
}

// ProgressTrend returns the mean of consecutive true-progress deltas over
// the default window: positive when the reconciled figure is climbing,
// negative when it is slipping, 0 with fewer than two entries.
func (t *TrendTracker) ProgressTrend() float64 {
	series := t.Trend(MetricTrueProgress, DefaultTrendWindow)
	if len(series) < 2 {
		return 0
	}

	sum := 0.0
	for i := 1; i < len(series); i++ {
		sum += series[i] - series[i-1]
	}
	return sum / float64(len(series)-1)
}
