package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sitepulse/sitepulse/internal/fusion"
	"github.com/sitepulse/sitepulse/internal/progress"
	"github.com/sitepulse/sitepulse/internal/velocity"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sitepulse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const minimalProject = `
projects:
  - id: site-a
    name: Site A
    target_date: 2027-06-30T00:00:00Z
    budget: 100000
    actual_cost: 45000
    tracker:
      base_url: https://tracker.example.com
      board: SA
    code_host:
      base_url: https://api.github.com
      repo: acme/site-a
    verdict_dir: verdicts/site-a
`

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestDefaultTracksEngineDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, velocity.DefaultConfig(), cfg.VelocityConfig())
	assert.Equal(t, fusion.DefaultConfig(), cfg.FusionConfig())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
storage_path: /tmp/custom.db
poll_interval: 5m
variance_thresholds:
  yellow: 0.10
  red: 0.30
phase_weights:
  framing: 0.5
`+minimalProject)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/custom.db", cfg.StoragePath)
	assert.Equal(t, 5*time.Minute, cfg.PollInterval.Std())
	assert.InDelta(t, 0.10, cfg.Variance.Yellow, 1e-9)
	assert.InDelta(t, 0.30, cfg.Variance.Red, 1e-9)

	// File weights override key by key, defaults stay for the rest
	assert.InDelta(t, 0.5, cfg.PhaseWeights["framing"], 1e-9)
	assert.InDelta(t, 0.2, cfg.PhaseWeights["foundation"], 1e-9)

	require.Len(t, cfg.Projects, 1)
	p, ok := cfg.Project("site-a")
	require.True(t, ok)
	assert.Equal(t, "Site A", p.Name)
	assert.Equal(t, time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC), p.TargetDate.UTC())
	assert.InDelta(t, 100000, p.Budget, 1e-9)
	assert.True(t, p.Tracker.Configured())
	assert.True(t, p.CodeHost.Configured())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "poll_interval: 5m\nstorage_path: from-file.db\n"+minimalProject)

	t.Setenv("SITEPULSE_POLL_INTERVAL", "90s")
	t.Setenv("SITEPULSE_DB_PATH", "from-env.db")
	t.Setenv("SITEPULSE_VARIANCE_YELLOW", "0.12")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, cfg.PollInterval.Std())
	assert.Equal(t, "from-env.db", cfg.StoragePath)
	assert.InDelta(t, 0.12, cfg.Variance.Yellow, 1e-9)
}

func TestLoadTokenFallback(t *testing.T) {
	path := writeConfig(t, minimalProject)

	t.Setenv("SITEPULSE_TRACKER_TOKEN", "tracker-secret")
	t.Setenv("SITEPULSE_CODEHOST_TOKEN", "host-secret")

	cfg, err := Load(path)
	require.NoError(t, err)

	p, ok := cfg.Project("site-a")
	require.True(t, ok)
	assert.Equal(t, "tracker-secret", p.Tracker.Token)
	assert.Equal(t, "host-secret", p.CodeHost.Token)
}

func TestLoadKeepsExplicitTokens(t *testing.T) {
	path := writeConfig(t, `
projects:
  - id: site-a
    target_date: 2027-06-30T00:00:00Z
    budget: 1000
    tracker:
      base_url: https://tracker.example.com
      board: SA
      token: per-project
`)

	t.Setenv("SITEPULSE_TRACKER_TOKEN", "global")

	cfg, err := Load(path)
	require.NoError(t, err)

	p, _ := cfg.Project("site-a")
	assert.Equal(t, "per-project", p.Tracker.Token)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadMissingDefaultFile(t *testing.T) {
	// Package directory has no sitepulse.yaml: defaults apply
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sitepulse.db", cfg.StoragePath)
	assert.Empty(t, cfg.Projects)
}

func TestLoadRejectsInvalidThresholds(t *testing.T) {
	path := writeConfig(t, `
variance_thresholds:
  yellow: 0.9
  red: 0.5
`+minimalProject)

	_, err := Load(path)
	require.Error(t, err)

	var verr *progress.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "red_threshold", verr.Field)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "projects: [whoops")
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidateProjects(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Projects = []Project{
			{ID: "a", TargetDate: time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), Budget: 1000},
			{ID: "b", TargetDate: time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), Budget: 1000},
		}
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"empty id", func(c *Config) { c.Projects[0].ID = "" }, "projects[0].id"},
		{"duplicate id", func(c *Config) { c.Projects[1].ID = "a" }, "projects[1].id"},
		{"zero target date", func(c *Config) { c.Projects[0].TargetDate = time.Time{} }, "projects.a.target_date"},
		{"zero budget", func(c *Config) { c.Projects[0].Budget = 0 }, "projects.a.budget"},
		{"negative cost", func(c *Config) { c.Projects[0].ActualCost = -5 }, "projects.a.actual_cost"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var verr *progress.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestDurationYAML(t *testing.T) {
	var d Duration
	require.NoError(t, yaml.Unmarshal([]byte(`"1h30m"`), &d))
	assert.Equal(t, 90*time.Minute, d.Std())

	require.Error(t, yaml.Unmarshal([]byte(`"not-a-duration"`), &d))

	out, err := yaml.Marshal(Duration(15 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "15m0s\n", string(out))
}

func TestWriteStarter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sitepulse.yaml")
	require.NoError(t, WriteStarter(path))

	// The starter must load cleanly as-is
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Projects, 1)
	assert.Equal(t, "site-demo", cfg.Projects[0].ID)

	// Never clobber an existing config
	require.Error(t, WriteStarter(path))
}
