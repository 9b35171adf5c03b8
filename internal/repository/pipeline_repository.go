package repository

import (
	"database/sql"
	"fmt"
	"time"
)

// RunStatus tracks a video through the pipeline state machine.
type RunStatus string

const (
	RunIngested   RunStatus = "ingested"
	RunAnalyzing  RunStatus = "analyzing"
	RunClipping   RunStatus = "clipping"
	RunPublishing RunStatus = "publishing"
	RunDone       RunStatus = "done"
	RunFailed     RunStatus = "failed"
)

type PipelineRun struct {
	VideoID      string
	Status       RunStatus
	Stage        string
	ErrorMessage *string
	StartedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

// PipelineRepository records per-video pipeline progression so operational
// tooling can see stuck or failed videos. It is the audit trail, not the
// coordination mechanism: the queue owns delivery.
type PipelineRepository struct {
	db *sql.DB
}

func NewPipelineRepository(db *sql.DB) *PipelineRepository {
	return &PipelineRepository{db: db}
}

// StartRun inserts or resets the audit row for a video. Re-running ingest for
// the same video (queue redelivery) reuses the row.
func (r *PipelineRepository) StartRun(videoID string) error {
	query := `INSERT INTO pipeline_runs (video_id, status, stage)
		VALUES ($1, $2, 'ingest')
		ON CONFLICT (video_id) DO UPDATE
		SET status = $2, stage = 'ingest', error_message = NULL,
			completed_at = NULL, updated_at = CURRENT_TIMESTAMP`
	_, err := r.db.Exec(query, videoID, RunIngested)
	return err
}

// AdvanceStage moves a run to the given stage/status.
func (r *PipelineRepository) AdvanceStage(videoID, stage string, status RunStatus) error {
	query := `UPDATE pipeline_runs
		SET status = $1, stage = $2, updated_at = CURRENT_TIMESTAMP
		WHERE video_id = $3`
	_, err := r.db.Exec(query, status, stage, videoID)
	return err
}

// Complete marks a run done.
func (r *PipelineRepository) Complete(videoID string) error {
	query := `UPDATE pipeline_runs
		SET status = $1, completed_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE video_id = $2`
	_, err := r.db.Exec(query, RunDone, videoID)
	return err
}

// MarkFailed records retry exhaustion at a stage.
func (r *PipelineRepository) MarkFailed(videoID, stage, errMsg string) error {
	query := `UPDATE pipeline_runs
		SET status = $1, stage = $2, error_message = $3,
			completed_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE video_id = $4`
	_, err := r.db.Exec(query, RunFailed, stage, errMsg, videoID)
	return err
}

// GetRun fetches one audit row.
func (r *PipelineRepository) GetRun(videoID string) (*PipelineRun, error) {
	run := &PipelineRun{}
	query := `SELECT video_id, status, stage, error_message, started_at, updated_at, completed_at
		FROM pipeline_runs WHERE video_id = $1`
	err := r.db.QueryRow(query, videoID).Scan(&run.VideoID, &run.Status, &run.Stage,
		&run.ErrorMessage, &run.StartedAt, &run.UpdatedAt, &run.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("pipeline run not found")
	}
	return run, err
}

// ListStale returns unfinished runs idle longer than cutoff, for the
// maintenance sweep to flag.
func (r *PipelineRepository) ListStale(cutoff time.Time) ([]*PipelineRun, error) {
	query := `SELECT video_id, status, stage, error_message, started_at, updated_at, completed_at
		FROM pipeline_runs
		WHERE status NOT IN ($1, $2) AND updated_at < $3
		ORDER BY updated_at ASC`
	rows, err := r.db.Query(query, RunDone, RunFailed, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*PipelineRun
	for rows.Next() {
		run := &PipelineRun{}
		if err := rows.Scan(&run.VideoID, &run.Status, &run.Stage,
			&run.ErrorMessage, &run.StartedAt, &run.UpdatedAt, &run.CompletedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
