package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sitepulse/sitepulse/internal/progress"
	"github.com/sitepulse/sitepulse/internal/storage"
)

const cycleColumns = `id, project_id, run_at,
	total_story_points, completed_points, sprint_velocity, commit_frequency, pr_merge_rate, digital_updated,
	phase, completeness, physical_confidence, physical_updated, raw_metrics,
	true_progress_percent, predicted_completion, variance_alert, confidence_score, cost_performance_index`

// SaveCycle persists one completed cycle, assigning a UUID when the caller
// left the ID empty.
func (s *SQLiteStore) SaveCycle(ctx context.Context, cycle *storage.Cycle) error {
	if cycle.ProjectID == "" {
		return fmt.Errorf("cycle project_id must not be empty")
	}
	if cycle.ID == "" {
		cycle.ID = uuid.NewString()
	}
	if cycle.RunAt.IsZero() {
		cycle.RunAt = time.Now().UTC()
	}

	rawMetrics := "{}"
	if len(cycle.Physical.RawMetrics) > 0 {
		data, err := json.Marshal(cycle.Physical.RawMetrics)
		if err != nil {
			return fmt.Errorf("failed to marshal raw metrics: %w", err)
		}
		rawMetrics = string(data)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cycles (`+cycleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cycle.ID, cycle.ProjectID, cycle.RunAt,
		cycle.Digital.TotalStoryPoints, cycle.Digital.CompletedPoints,
		cycle.Digital.SprintVelocity, cycle.Digital.CommitFrequency,
		cycle.Digital.PRMergeRate, cycle.Digital.LastUpdated,
		cycle.Physical.Phase, cycle.Physical.Completeness,
		cycle.Physical.Confidence, cycle.Physical.LastUpdated, rawMetrics,
		cycle.Fused.TrueProgressPercent, cycle.Fused.PredictedCompletion,
		cycle.Fused.VarianceAlert.String(), cycle.Fused.ConfidenceScore,
		cycle.Fused.CostPerformanceIndex,
	)
	if err != nil {
		return fmt.Errorf("failed to save cycle: %w", err)
	}
	return nil
}

// LatestCycle returns the most recent cycle for a project.
func (s *SQLiteStore) LatestCycle(ctx context.Context, projectID string) (*storage.Cycle, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+cycleColumns+`
		FROM cycles
		WHERE project_id = ?
		ORDER BY run_at DESC, id DESC
		LIMIT 1`, projectID)

	cycle, err := scanCycle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", projectID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest cycle: %w", err)
	}
	return cycle, nil
}

// ListCycles returns cycles for a project, newest first. A non-positive
// limit returns all of them.
func (s *SQLiteStore) ListCycles(ctx context.Context, projectID string, limit int) ([]*storage.Cycle, error) {
	if limit <= 0 {
		// SQLite treats a negative LIMIT as "no limit"
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+cycleColumns+`
		FROM cycles
		WHERE project_id = ?
		ORDER BY run_at DESC, id DESC
		LIMIT ?`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycles: %w", err)
	}
	defer rows.Close()

	var cycles []*storage.Cycle
	for rows.Next() {
		cycle, err := scanCycle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cycle: %w", err)
		}
		cycles = append(cycles, cycle)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cycles: %w", err)
	}
	return cycles, nil
}

// CycleCount returns the number of stored cycles for a project.
func (s *SQLiteStore) CycleCount(ctx context.Context, projectID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cycles WHERE project_id = ?`, projectID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count cycles: %w", err)
	}
	return count, nil
}

// PruneCycles deletes cycles recorded before the cutoff, across all
// projects.
func (s *SQLiteStore) PruneCycles(ctx context.Context, olderThan time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM cycles WHERE run_at < ?`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to prune cycles: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned cycles: %w", err)
	}
	return int(affected), nil
}

// scanCycle reads one row into a Cycle. Works for both sql.Row and sql.Rows.
func scanCycle(row interface{ Scan(dest ...interface{}) error }) (*storage.Cycle, error) {
	var (
		c     storage.Cycle
		raw   string
		alert string
	)
	if err := row.Scan(
		&c.ID, &c.ProjectID, &c.RunAt,
		&c.Digital.TotalStoryPoints, &c.Digital.CompletedPoints,
		&c.Digital.SprintVelocity, &c.Digital.CommitFrequency,
		&c.Digital.PRMergeRate, &c.Digital.LastUpdated,
		&c.Physical.Phase, &c.Physical.Completeness,
		&c.Physical.Confidence, &c.Physical.LastUpdated, &raw,
		&c.Fused.TrueProgressPercent, &c.Fused.PredictedCompletion,
		&alert, &c.Fused.ConfidenceScore, &c.Fused.CostPerformanceIndex,
	); err != nil {
		return nil, err
	}

	if raw != "" && raw != "{}" {
		if err := json.Unmarshal([]byte(raw), &c.Physical.RawMetrics); err != nil {
			return nil, fmt.Errorf("failed to parse raw metrics: %w", err)
		}
	}

	status, err := progress.ParseStatus(alert)
	if err != nil {
		return nil, fmt.Errorf("failed to parse variance alert: %w", err)
	}
	c.Fused.VarianceAlert = status

	return &c, nil
}
