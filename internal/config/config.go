// Package config loads and validates sitepulse configuration: engine tuning,
// ingestion endpoints, and the tracked project portfolio. Values resolve in
// three layers: built-in defaults, then the YAML file, then SITEPULSE_*
// environment variables.
package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/sitepulse/sitepulse/internal/fusion"
	"github.com/sitepulse/sitepulse/internal/progress"
	"github.com/sitepulse/sitepulse/internal/velocity"
)

// Thresholds holds the variance levels that raise alerts.
type Thresholds struct {
	// Yellow is the digital/physical divergence that warrants watching
	// Default: 0.15
	Yellow float64 `yaml:"yellow" env:"SITEPULSE_VARIANCE_YELLOW"`
	// Red is the divergence that requires intervention
	// Default: 0.25
	Red float64 `yaml:"red" env:"SITEPULSE_VARIANCE_RED"`
}

// Baselines holds the healthy-project reference rates the engines score
// observed activity against.
type Baselines struct {
	// ExpectedCommitsPerDay is the commit rate of a healthy project
	// Default: 5.0
	ExpectedCommitsPerDay float64 `yaml:"expected_commits_per_day" env:"SITEPULSE_EXPECTED_COMMITS_PER_DAY"`
	// ExpectedMergeRate is the PR merge fraction of a healthy project
	// Default: 0.8
	ExpectedMergeRate float64 `yaml:"expected_merge_rate" env:"SITEPULSE_EXPECTED_MERGE_RATE"`
	// PlannedScheduleDays is the nominal schedule length used to derive
	// the planned completion rate
	// Default: 100
	PlannedScheduleDays float64 `yaml:"planned_schedule_days" env:"SITEPULSE_PLANNED_SCHEDULE_DAYS"`
	// SprintLengthDays normalizes sprint velocity to a daily rate
	// Default: 10
	SprintLengthDays float64 `yaml:"sprint_length_days" env:"SITEPULSE_SPRINT_LENGTH_DAYS"`
}

// Tracker points at one project's issue-tracker board.
type Tracker struct {
	BaseURL string `yaml:"base_url"`
	Board   string `yaml:"board"`
	// Username pairs with Token for basic auth. Leave empty for
	// bearer-token hosts.
	Username string `yaml:"username"`
	// Token is the API credential. Usually left out of the file and
	// supplied via SITEPULSE_TRACKER_TOKEN instead.
	Token string `yaml:"token"`
}

// Configured reports whether the tracker endpoint is usable.
func (t Tracker) Configured() bool {
	return t.BaseURL != "" && t.Board != ""
}

// CodeHost points at one project's repository on a code host.
type CodeHost struct {
	BaseURL string `yaml:"base_url"`
	// Repo is the owner/name pair, e.g. "acme/warehouse-retrofit"
	Repo string `yaml:"repo"`
	// Token is the API credential. Usually left out of the file and
	// supplied via SITEPULSE_CODEHOST_TOKEN instead.
	Token string `yaml:"token"`
}

// Configured reports whether the code host endpoint is usable.
func (h CodeHost) Configured() bool {
	return h.BaseURL != "" && h.Repo != ""
}

// Project describes one tracked construction project: where its digital and
// physical progress come from, and the schedule and budget it is judged
// against.
type Project struct {
	// ID is the stable identifier used in storage and engine registries
	ID string `yaml:"id"`
	// Name is the human-readable label shown in output
	Name string `yaml:"name"`
	// TargetDate is the contractual completion date
	TargetDate time.Time `yaml:"target_date"`
	// Budget is the full project budget
	Budget float64 `yaml:"budget"`
	// ActualCost is spend to date
	ActualCost float64 `yaml:"actual_cost"`
	// Tracker is the issue-tracker source for the digital view
	Tracker Tracker `yaml:"tracker"`
	// CodeHost is the repository source for the digital view
	CodeHost CodeHost `yaml:"code_host"`
	// VerdictDir is the directory vision-model verdicts land in
	VerdictDir string `yaml:"verdict_dir"`
}

// DisplayName returns the name, falling back to the ID.
func (p Project) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

// Config is the full sitepulse configuration.
type Config struct {
	// PhaseWeights maps construction phases to schedule weights. File
	// entries override the defaults key by key.
	PhaseWeights map[string]float64 `yaml:"phase_weights"`
	// DefaultPhaseWeight applies to phases missing from PhaseWeights
	// Default: 0.2
	DefaultPhaseWeight float64 `yaml:"default_phase_weight" env:"SITEPULSE_DEFAULT_PHASE_WEIGHT"`
	// Variance holds the alert thresholds
	Variance Thresholds `yaml:"variance_thresholds"`
	// Baselines holds the healthy-project reference rates
	Baselines Baselines `yaml:"baselines"`
	// VelocityWindow is the number of recent observations per velocity
	// derivation
	// Default: 10
	VelocityWindow int `yaml:"velocity_window" env:"SITEPULSE_VELOCITY_WINDOW"`
	// MinVelocity floors the adjusted velocity in forecasts
	// Default: 0.1
	MinVelocity float64 `yaml:"min_velocity" env:"SITEPULSE_MIN_VELOCITY"`
	// HistoryCap bounds every engine's in-memory history ring
	// Default: 500
	HistoryCap int `yaml:"history_cap" env:"SITEPULSE_HISTORY_CAP"`
	// PollInterval is how often the daemon runs an analysis cycle
	// Default: 15m
	PollInterval Duration `yaml:"poll_interval" env:"SITEPULSE_POLL_INTERVAL"`
	// MaxVerdictAge is how old a vision verdict may be before it is
	// treated as missing
	// Default: 24h
	MaxVerdictAge Duration `yaml:"max_verdict_age" env:"SITEPULSE_MAX_VERDICT_AGE"`
	// StoragePath is the SQLite database location
	// Default: sitepulse.db
	StoragePath string `yaml:"storage_path" env:"SITEPULSE_DB_PATH"`

	// TrackerToken and CodeHostToken fill in for projects whose
	// per-project tokens are empty, keeping secrets out of the file
	TrackerToken  string `yaml:"-" env:"SITEPULSE_TRACKER_TOKEN"`
	CodeHostToken string `yaml:"-" env:"SITEPULSE_CODEHOST_TOKEN"`

	// Projects is the tracked portfolio
	Projects []Project `yaml:"projects"`
}

// Default returns the built-in configuration. Engine defaults are the
// single source of truth for the numeric values.
func Default() *Config {
	vc := velocity.DefaultConfig()
	fc := fusion.DefaultConfig()

	return &Config{
		PhaseWeights:       fc.PhaseWeights,
		DefaultPhaseWeight: fc.DefaultPhaseWeight,
		Variance: Thresholds{
			Yellow: fc.YellowThreshold,
			Red:    fc.RedThreshold,
		},
		Baselines: Baselines{
			ExpectedCommitsPerDay: vc.ExpectedCommitsPerDay,
			ExpectedMergeRate:     vc.ExpectedMergeRate,
			PlannedScheduleDays:   vc.PlannedScheduleDays,
			SprintLengthDays:      fc.SprintLengthDays,
		},
		VelocityWindow: vc.WindowSize,
		MinVelocity:    vc.MinVelocity,
		HistoryCap:     vc.HistoryCap,
		PollInterval:   Duration(15 * time.Minute),
		MaxVerdictAge:  Duration(24 * time.Hour),
		StoragePath:    "sitepulse.db",
	}
}

// Validate checks if the configuration has valid field values. Engine
// tuning is validated by building the engine configs it maps onto.
func (c *Config) Validate() error {
	if err := c.VelocityConfig().Validate(); err != nil {
		return err
	}
	if err := c.FusionConfig().Validate(); err != nil {
		return err
	}
	if c.PollInterval <= 0 {
		return &progress.ValidationError{
			Field:  "poll_interval",
			Reason: fmt.Sprintf("must be positive (got %s)", c.PollInterval.Std()),
		}
	}
	if c.MaxVerdictAge <= 0 {
		return &progress.ValidationError{
			Field:  "max_verdict_age",
			Reason: fmt.Sprintf("must be positive (got %s)", c.MaxVerdictAge.Std()),
		}
	}
	if c.StoragePath == "" {
		return &progress.ValidationError{Field: "storage_path", Reason: "must not be empty"}
	}

	seen := make(map[string]bool, len(c.Projects))
	for i, p := range c.Projects {
		if p.ID == "" {
			return &progress.ValidationError{
				Field:  fmt.Sprintf("projects[%d].id", i),
				Reason: "must not be empty",
			}
		}
		if seen[p.ID] {
			return &progress.ValidationError{
				Field:  fmt.Sprintf("projects[%d].id", i),
				Reason: fmt.Sprintf("duplicate project id %q", p.ID),
			}
		}
		seen[p.ID] = true

		if p.TargetDate.IsZero() {
			return &progress.ValidationError{
				Field:  "projects." + p.ID + ".target_date",
				Reason: "must be set",
			}
		}
		if p.Budget <= 0 {
			return &progress.ValidationError{
				Field:  "projects." + p.ID + ".budget",
				Reason: fmt.Sprintf("must be positive (got %.2f)", p.Budget),
			}
		}
		if p.ActualCost < 0 {
			return &progress.ValidationError{
				Field:  "projects." + p.ID + ".actual_cost",
				Reason: fmt.Sprintf("must not be negative (got %.2f)", p.ActualCost),
			}
		}
	}
	return nil
}

// Project returns the tracked project with the given ID.
func (c *Config) Project(id string) (*Project, bool) {
	for i := range c.Projects {
		if c.Projects[i].ID == id {
			return &c.Projects[i], true
		}
	}
	return nil, false
}

// KnownPhases lists the phases carrying a configured weight, sorted. The
// verdict ingester uses it to reject phases the model should not emit.
func (c *Config) KnownPhases() []string {
	phases := make([]string, 0, len(c.PhaseWeights))
	for phase := range c.PhaseWeights {
		phases = append(phases, phase)
	}
	sort.Strings(phases)
	return phases
}

// VelocityConfig maps the central configuration onto velocity engine tuning.
func (c *Config) VelocityConfig() *velocity.Config {
	return &velocity.Config{
		WindowSize:            c.VelocityWindow,
		MinVelocity:           c.MinVelocity,
		ExpectedCommitsPerDay: c.Baselines.ExpectedCommitsPerDay,
		ExpectedMergeRate:     c.Baselines.ExpectedMergeRate,
		PlannedScheduleDays:   c.Baselines.PlannedScheduleDays,
		HistoryCap:            c.HistoryCap,
	}
}

// FusionConfig maps the central configuration onto fusion engine tuning.
func (c *Config) FusionConfig() *fusion.Config {
	weights := make(map[string]float64, len(c.PhaseWeights))
	for phase, w := range c.PhaseWeights {
		weights[phase] = w
	}
	return &fusion.Config{
		PhaseWeights:          weights,
		DefaultPhaseWeight:    c.DefaultPhaseWeight,
		YellowThreshold:       c.Variance.Yellow,
		RedThreshold:          c.Variance.Red,
		SprintLengthDays:      c.Baselines.SprintLengthDays,
		ExpectedCommitsPerDay: c.Baselines.ExpectedCommitsPerDay,
		HistoryCap:            c.HistoryCap,
	}
}
