package sqlite

const schema = `
-- Analysis cycles: one row per completed fusion pass
CREATE TABLE IF NOT EXISTS cycles (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    run_at DATETIME NOT NULL,

    -- Digital snapshot
    total_story_points INTEGER NOT NULL,
    completed_points INTEGER NOT NULL,
    sprint_velocity REAL NOT NULL,
    commit_frequency REAL NOT NULL,
    pr_merge_rate REAL NOT NULL,
    digital_updated DATETIME NOT NULL,

    -- Physical snapshot
    phase TEXT NOT NULL,
    completeness REAL NOT NULL,
    physical_confidence REAL NOT NULL,
    physical_updated DATETIME NOT NULL,
    raw_metrics TEXT NOT NULL DEFAULT '{}',

    -- Fused result
    true_progress_percent REAL NOT NULL,
    predicted_completion DATETIME NOT NULL,
    variance_alert TEXT NOT NULL,
    confidence_score REAL NOT NULL,
    cost_performance_index REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cycles_project_run ON cycles(project_id, run_at);
CREATE INDEX IF NOT EXISTS idx_cycles_run_at ON cycles(run_at);
`
