package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitepulse/sitepulse/internal/progress"
	"github.com/sitepulse/sitepulse/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "cycles.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func mkCycle(projectID string, at time.Time, truePct float64) *storage.Cycle {
	return &storage.Cycle{
		ProjectID: projectID,
		RunAt:     at,
		Digital: progress.Digital{
			TotalStoryPoints: 100,
			CompletedPoints:  60,
			SprintVelocity:   8,
			CommitFrequency:  3.5,
			PRMergeRate:      0.75,
			LastUpdated:      at,
		},
		Physical: progress.Physical{
			Phase:        "framing",
			Completeness: 0.55,
			Confidence:   0.9,
			LastUpdated:  at,
			RawMetrics:   map[string]float64{"beams_detected": 42},
		},
		Fused: progress.Fused{
			TrueProgressPercent:  truePct,
			PredictedCompletion:  at.AddDate(0, 0, 45),
			VarianceAlert:        progress.StatusYellow,
			ConfidenceScore:      0.62,
			CostPerformanceIndex: 1.05,
		},
	}
}

func TestSaveCycleAssignsID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cycle := mkCycle("site-a", time.Now().UTC(), 55)
	require.NoError(t, store.SaveCycle(ctx, cycle))

	require.NotEmpty(t, cycle.ID)
	_, err := uuid.Parse(cycle.ID)
	assert.NoError(t, err)
}

func TestSaveCycleRejectsEmptyProject(t *testing.T) {
	store := newTestStore(t)

	err := store.SaveCycle(context.Background(), mkCycle("", time.Now(), 10))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project_id")
}

func TestLatestCycleRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveCycle(ctx, mkCycle("site-a", base, 40)))
	want := mkCycle("site-a", base.Add(time.Hour), 42)
	require.NoError(t, store.SaveCycle(ctx, want))

	got, err := store.LatestCycle(ctx, "site-a")
	require.NoError(t, err)

	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, "site-a", got.ProjectID)
	assert.WithinDuration(t, want.RunAt, got.RunAt, time.Second)

	assert.Equal(t, 100, got.Digital.TotalStoryPoints)
	assert.Equal(t, 60, got.Digital.CompletedPoints)
	assert.InDelta(t, 8, got.Digital.SprintVelocity, 1e-9)
	assert.InDelta(t, 0.75, got.Digital.PRMergeRate, 1e-9)
	assert.WithinDuration(t, want.Digital.LastUpdated, got.Digital.LastUpdated, time.Second)

	assert.Equal(t, "framing", got.Physical.Phase)
	assert.InDelta(t, 0.55, got.Physical.Completeness, 1e-9)
	assert.InDelta(t, 0.9, got.Physical.Confidence, 1e-9)
	assert.InDelta(t, 42, got.Physical.RawMetrics["beams_detected"], 1e-9)

	assert.InDelta(t, 42, got.Fused.TrueProgressPercent, 1e-9)
	assert.Equal(t, progress.StatusYellow, got.Fused.VarianceAlert)
	assert.InDelta(t, 0.62, got.Fused.ConfidenceScore, 1e-9)
	assert.InDelta(t, 1.05, got.Fused.CostPerformanceIndex, 1e-9)
	assert.WithinDuration(t, want.Fused.PredictedCompletion, got.Fused.PredictedCompletion, time.Second)
}

func TestLatestCycleNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.LatestCycle(context.Background(), "site-missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestEmptyRawMetricsStayNil(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cycle := mkCycle("site-a", time.Now().UTC(), 10)
	cycle.Physical.RawMetrics = nil
	require.NoError(t, store.SaveCycle(ctx, cycle))

	got, err := store.LatestCycle(ctx, "site-a")
	require.NoError(t, err)
	assert.Nil(t, got.Physical.RawMetrics)
}

func TestListCyclesOrderAndLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.SaveCycle(ctx, mkCycle("site-a", base.Add(time.Duration(i)*time.Hour), float64(10*(i+1)))))
	}

	cycles, err := store.ListCycles(ctx, "site-a", 2)
	require.NoError(t, err)
	require.Len(t, cycles, 2)
	assert.InDelta(t, 30, cycles[0].Fused.TrueProgressPercent, 1e-9)
	assert.InDelta(t, 20, cycles[1].Fused.TrueProgressPercent, 1e-9)

	all, err := store.ListCycles(ctx, "site-a", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := store.ListCycles(ctx, "site-other", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCycleCountPerProject(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, store.SaveCycle(ctx, mkCycle("site-a", now, 10)))
	require.NoError(t, store.SaveCycle(ctx, mkCycle("site-a", now.Add(time.Minute), 11)))
	require.NoError(t, store.SaveCycle(ctx, mkCycle("site-b", now, 12)))

	count, err := store.CycleCount(ctx, "site-a")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = store.CycleCount(ctx, "site-b")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPruneCycles(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cutoff := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveCycle(ctx, mkCycle("site-a", cutoff.AddDate(0, 0, -30), 10)))
	require.NoError(t, store.SaveCycle(ctx, mkCycle("site-b", cutoff.AddDate(0, 0, -10), 11)))
	require.NoError(t, store.SaveCycle(ctx, mkCycle("site-a", cutoff.Add(time.Hour), 12)))

	pruned, err := store.PruneCycles(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, 2, pruned)

	count, err := store.CycleCount(ctx, "site-a")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = store.CycleCount(ctx, "site-b")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestReopenKeepsCycles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cycles.db")
	ctx := context.Background()

	store, err := New(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveCycle(ctx, mkCycle("site-a", time.Now().UTC(), 33)))
	require.NoError(t, store.Close())

	reopened, err := New(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.LatestCycle(ctx, "site-a")
	require.NoError(t, err)
	assert.InDelta(t, 33, got.Fused.TrueProgressPercent, 1e-9)
}
