package shell

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitepulse/sitepulse/internal/config"
	"github.com/sitepulse/sitepulse/internal/ingest"
	"github.com/sitepulse/sitepulse/internal/orchestrator"
	"github.com/sitepulse/sitepulse/internal/progress"
	"github.com/sitepulse/sitepulse/internal/storage/sqlite"
)

func newTestShell(t *testing.T) *Shell {
	t.Helper()

	cfg := config.Default()
	cfg.StoragePath = filepath.Join(t.TempDir(), "sitepulse.db")
	cfg.Projects = []config.Project{{
		ID:         "site-a",
		Name:       "Tower A",
		TargetDate: time.Now().AddDate(0, 0, 60),
		Budget:     250000,
		ActualCost: 80000,
	}}

	store, err := sqlite.New(cfg.StoragePath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	digital := ingest.DigitalSourceFunc(func(ctx context.Context, project config.Project) (*progress.Digital, error) {
		return &progress.Digital{
			TotalStoryPoints: 100,
			CompletedPoints:  40,
			SprintVelocity:   2.0,
			CommitFrequency:  1.0,
			PRMergeRate:      0.8,
			LastUpdated:      time.Now(),
		}, nil
	})
	physical := ingest.PhysicalSourceFunc(func(ctx context.Context, project config.Project) (*progress.Physical, error) {
		return &progress.Physical{
			Phase:        "framing",
			Completeness: 0.5,
			Confidence:   0.9,
			LastUpdated:  time.Now(),
		}, nil
	})

	analyzer, err := orchestrator.New(cfg, digital, physical, store, nil)
	require.NoError(t, err)

	sh, err := New(&Config{Cfg: cfg, Store: store, Analyzer: analyzer})
	require.NoError(t, err)
	sh.ctx = context.Background()
	return sh
}

func TestNewRequiresDependencies(t *testing.T) {
	sh := newTestShell(t)

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing config", Config{Store: sh.store, Analyzer: sh.analyzer}},
		{"missing store", Config{Cfg: sh.cfg, Analyzer: sh.analyzer}},
		{"missing analyzer", Config{Cfg: sh.cfg, Store: sh.store}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(&tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestProcessInputDispatch(t *testing.T) {
	sh := newTestShell(t)

	// analyze first so the store-backed commands have a cycle to show
	commands := []string{
		"analyze site-a",
		"status",
		"status site-a",
		"history site-a",
		"history site-a 5",
		"forecast site-a",
		"velocity site-a",
		"risks site-a",
		"health",
		"help",
	}
	for _, cmd := range commands {
		assert.NoError(t, sh.processInput(cmd), "command %q", cmd)
	}
}

func TestProcessInputUnknownCommand(t *testing.T) {
	sh := newTestShell(t)
	assert.NoError(t, sh.processInput("launch-rockets"))
	assert.NoError(t, sh.processInput("   "))
}

func TestProcessInputBadArguments(t *testing.T) {
	sh := newTestShell(t)

	tests := []struct {
		name string
		line string
	}{
		{"history without project", "history"},
		{"history unknown project", "history nope"},
		{"history bad limit", "history site-a abc"},
		{"forecast without project", "forecast"},
		{"velocity unknown project", "velocity nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, sh.processInput(tt.line))
		})
	}
}

func TestStatusBeforeFirstCycle(t *testing.T) {
	sh := newTestShell(t)

	// Nothing stored yet; status reports instead of erroring
	assert.NoError(t, sh.processInput("status"))

	// Store-backed detail commands explain what to do instead
	err := sh.processInput("forecast site-a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no cycles recorded")
}

func TestExitSignalsEOF(t *testing.T) {
	sh := newTestShell(t)
	assert.ErrorIs(t, sh.processInput("exit"), io.EOF)
	assert.ErrorIs(t, sh.processInput("quit"), io.EOF)
}
