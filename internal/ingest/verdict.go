package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sitepulse/sitepulse/internal/config"
	"github.com/sitepulse/sitepulse/internal/progress"
)

// Verdict is the JSON sidecar a vision pipeline writes next to analyzed
// site imagery. sitepulse never touches the imagery itself.
type Verdict struct {
	// ProjectID scopes the verdict; empty means "whatever project owns
	// this directory"
	ProjectID string `json:"project_id"`
	// Phase names the construction phase the model recognized
	Phase string `json:"phase"`
	// Completeness is the model's phase completion estimate, 0..1
	Completeness float64 `json:"completeness"`
	// Confidence is the model's self-reported certainty, 0..1
	Confidence float64 `json:"confidence"`
	// CapturedAt is when the imagery was taken. Falls back to the file's
	// modification time when absent.
	CapturedAt time.Time `json:"captured_at"`
	// RawMetrics carries auxiliary model outputs
	RawMetrics map[string]float64 `json:"raw_metrics,omitempty"`
}

// VerdictDir reads vision verdicts from a project's drop directory.
// The newest verdict wins; one older than maxAge counts as missing.
type VerdictDir struct {
	maxAge time.Duration
	// phases restricts accepted phase names; empty accepts any
	phases map[string]bool
	log    *zap.Logger
}

var _ PhysicalSource = (*VerdictDir)(nil)

// NewVerdictDir creates a physical source over verdict drop directories.
// knownPhases usually comes from the configured phase weight table; nil
// disables the phase gate. A nil logger is replaced with a no-op one.
func NewVerdictDir(maxAge time.Duration, knownPhases []string, log *zap.Logger) *VerdictDir {
	if log == nil {
		log = zap.NewNop()
	}
	var phases map[string]bool
	if len(knownPhases) > 0 {
		phases = make(map[string]bool, len(knownPhases))
		for _, phase := range knownPhases {
			phases[phase] = true
		}
	}
	return &VerdictDir{
		maxAge: maxAge,
		phases: phases,
		log:    log,
	}
}

// FetchPhysical implements PhysicalSource: scan the project's drop
// directory, pick the newest parseable verdict for this project, and
// convert it to a snapshot. Unreadable files are skipped; a semantically
// invalid newest verdict is an error, not a reason to fall back to an
// older one.
func (v *VerdictDir) FetchPhysical(ctx context.Context, project config.Project) (*progress.Physical, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if project.VerdictDir == "" {
		return nil, fmt.Errorf("project %s has no verdict directory: %w", project.ID, ErrNoPhysicalData)
	}

	entries, err := os.ReadDir(project.VerdictDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("verdict directory %s: %w", project.VerdictDir, ErrNoPhysicalData)
		}
		return nil, fmt.Errorf("reading verdict directory: %w", err)
	}

	var newest *Verdict
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		path := filepath.Join(project.VerdictDir, entry.Name())
		verdict, err := readVerdict(path)
		if err != nil {
			v.log.Debug("skipping unreadable verdict",
				zap.String("file", path),
				zap.Error(err))
			continue
		}
		if verdict.ProjectID != "" && verdict.ProjectID != project.ID {
			continue
		}
		if newest == nil || verdict.CapturedAt.After(newest.CapturedAt) {
			newest = verdict
		}
	}

	if newest == nil {
		return nil, fmt.Errorf("no verdicts for project %s in %s: %w", project.ID, project.VerdictDir, ErrNoPhysicalData)
	}
	if v.maxAge > 0 && time.Since(newest.CapturedAt) > v.maxAge {
		return nil, fmt.Errorf("newest verdict for project %s is %s old: %w",
			project.ID, time.Since(newest.CapturedAt).Round(time.Minute), ErrNoPhysicalData)
	}
	if v.phases != nil && !v.phases[newest.Phase] {
		return nil, &progress.ValidationError{
			Field:  "phase",
			Reason: fmt.Sprintf("%q is not a configured phase", newest.Phase),
		}
	}

	p := &progress.Physical{
		Phase:        newest.Phase,
		Completeness: newest.Completeness,
		Confidence:   newest.Confidence,
		LastUpdated:  newest.CapturedAt,
		RawMetrics:   newest.RawMetrics,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// readVerdict parses one verdict file, stamping it with the file's
// modification time when the payload carries no capture time.
func readVerdict(path string) (*Verdict, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var verdict Verdict
	if err := json.Unmarshal(data, &verdict); err != nil {
		return nil, err
	}

	if verdict.CapturedAt.IsZero() {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		verdict.CapturedAt = info.ModTime()
	}
	return &verdict, nil
}
