package ingest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitepulse/sitepulse/internal/config"
	"github.com/sitepulse/sitepulse/internal/progress"
)

var testPhases = []string{"foundation", "framing", "finishing"}

func writeVerdictFile(t *testing.T, dir, name string, verdict Verdict) {
	t.Helper()
	data, err := json.Marshal(verdict)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
}

func verdictProject(dir string) config.Project {
	return config.Project{ID: "site-a", VerdictDir: dir}
}

func TestFetchPhysicalNewestWins(t *testing.T) {
	dir := t.TempDir()
	writeVerdictFile(t, dir, "old.json", Verdict{
		Phase:        "foundation",
		Completeness: 0.9,
		Confidence:   0.8,
		CapturedAt:   time.Now().Add(-6 * time.Hour),
	})
	writeVerdictFile(t, dir, "new.json", Verdict{
		Phase:        "framing",
		Completeness: 0.35,
		Confidence:   0.9,
		CapturedAt:   time.Now().Add(-1 * time.Hour),
		RawMetrics:   map[string]float64{"beams_detected": 42},
	})

	source := NewVerdictDir(24*time.Hour, testPhases, nil)
	physical, err := source.FetchPhysical(context.Background(), verdictProject(dir))
	require.NoError(t, err)

	assert.Equal(t, "framing", physical.Phase)
	assert.InDelta(t, 0.35, physical.Completeness, 1e-9)
	assert.InDelta(t, 0.9, physical.Confidence, 1e-9)
	assert.Equal(t, 42.0, physical.RawMetrics["beams_detected"])
}

func TestFetchPhysicalStaleVerdict(t *testing.T) {
	dir := t.TempDir()
	writeVerdictFile(t, dir, "stale.json", Verdict{
		Phase:        "framing",
		Completeness: 0.5,
		Confidence:   0.9,
		CapturedAt:   time.Now().Add(-48 * time.Hour),
	})

	source := NewVerdictDir(24*time.Hour, testPhases, nil)
	_, err := source.FetchPhysical(context.Background(), verdictProject(dir))
	assert.ErrorIs(t, err, ErrNoPhysicalData)
}

func TestFetchPhysicalUnknownPhase(t *testing.T) {
	dir := t.TempDir()
	writeVerdictFile(t, dir, "v.json", Verdict{
		Phase:        "terraforming",
		Completeness: 0.5,
		Confidence:   0.9,
		CapturedAt:   time.Now(),
	})

	source := NewVerdictDir(24*time.Hour, testPhases, nil)
	_, err := source.FetchPhysical(context.Background(), verdictProject(dir))

	var verr *progress.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "phase", verr.Field)
}

func TestFetchPhysicalNilPhasesAcceptsAny(t *testing.T) {
	dir := t.TempDir()
	writeVerdictFile(t, dir, "v.json", Verdict{
		Phase:        "terraforming",
		Completeness: 0.5,
		Confidence:   0.9,
		CapturedAt:   time.Now(),
	})

	source := NewVerdictDir(24*time.Hour, nil, nil)
	physical, err := source.FetchPhysical(context.Background(), verdictProject(dir))
	require.NoError(t, err)
	assert.Equal(t, "terraforming", physical.Phase)
}

func TestFetchPhysicalFiltersByProject(t *testing.T) {
	dir := t.TempDir()
	writeVerdictFile(t, dir, "other.json", Verdict{
		ProjectID:    "site-b",
		Phase:        "finishing",
		Completeness: 0.95,
		Confidence:   0.9,
		CapturedAt:   time.Now(),
	})
	writeVerdictFile(t, dir, "mine.json", Verdict{
		ProjectID:    "site-a",
		Phase:        "foundation",
		Completeness: 0.2,
		Confidence:   0.7,
		CapturedAt:   time.Now().Add(-2 * time.Hour),
	})

	source := NewVerdictDir(24*time.Hour, testPhases, nil)
	physical, err := source.FetchPhysical(context.Background(), verdictProject(dir))
	require.NoError(t, err)

	// site-b's newer verdict must not leak into site-a
	assert.Equal(t, "foundation", physical.Phase)
}

func TestFetchPhysicalModTimeFallback(t *testing.T) {
	dir := t.TempDir()
	// No captured_at in the payload; the file's mtime stands in
	raw := `{"phase": "framing", "completeness": 0.4, "confidence": 0.85}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "v.json"), []byte(raw), 0644))

	source := NewVerdictDir(24*time.Hour, testPhases, nil)
	physical, err := source.FetchPhysical(context.Background(), verdictProject(dir))
	require.NoError(t, err)

	assert.Equal(t, "framing", physical.Phase)
	assert.WithinDuration(t, time.Now(), physical.LastUpdated, time.Minute)
}

func TestFetchPhysicalSkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{nope"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0644))
	writeVerdictFile(t, dir, "good.json", Verdict{
		Phase:        "finishing",
		Completeness: 0.9,
		Confidence:   0.95,
		CapturedAt:   time.Now(),
	})

	source := NewVerdictDir(24*time.Hour, testPhases, nil)
	physical, err := source.FetchPhysical(context.Background(), verdictProject(dir))
	require.NoError(t, err)
	assert.Equal(t, "finishing", physical.Phase)
}

func TestFetchPhysicalEmptyDir(t *testing.T) {
	source := NewVerdictDir(24*time.Hour, testPhases, nil)
	_, err := source.FetchPhysical(context.Background(), verdictProject(t.TempDir()))
	assert.ErrorIs(t, err, ErrNoPhysicalData)
}

func TestFetchPhysicalMissingDir(t *testing.T) {
	source := NewVerdictDir(24*time.Hour, testPhases, nil)
	project := verdictProject(filepath.Join(t.TempDir(), "does-not-exist"))
	_, err := source.FetchPhysical(context.Background(), project)
	assert.ErrorIs(t, err, ErrNoPhysicalData)
}

func TestFetchPhysicalNoDirConfigured(t *testing.T) {
	source := NewVerdictDir(24*time.Hour, testPhases, nil)
	_, err := source.FetchPhysical(context.Background(), config.Project{ID: "site-a"})
	assert.ErrorIs(t, err, ErrNoPhysicalData)
}

func TestFetchPhysicalInvalidCompleteness(t *testing.T) {
	dir := t.TempDir()
	writeVerdictFile(t, dir, "v.json", Verdict{
		Phase:        "framing",
		Completeness: 1.4,
		Confidence:   0.9,
		CapturedAt:   time.Now(),
	})

	source := NewVerdictDir(24*time.Hour, testPhases, nil)
	_, err := source.FetchPhysical(context.Background(), verdictProject(dir))

	var verr *progress.ValidationError
	assert.ErrorAs(t, err, &verr)
}
