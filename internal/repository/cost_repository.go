package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
)

// Per-unit prices for the external collaborators, in USD.
const (
	costTrackingPerMinute    = 0.10
	costTranscriptionPer15s  = 0.006
	costScoringInputPer1KTok = 0.00125
	costScoringOutputPer1K   = 0.005
)

// CostRepository is the API cost ledger. Recording a cost must never fail a
// pipeline job, so Record logs and swallows storage errors.
type CostRepository struct {
	db *sql.DB
}

func NewCostRepository(db *sql.DB) *CostRepository {
	return &CostRepository{db: db}
}

func (r *CostRepository) Record(userID, videoID, service string, costUSD float64, details map[string]interface{}) {
	payload, err := json.Marshal(details)
	if err != nil {
		payload = []byte("{}")
	}
	query := `INSERT INTO api_costs (user_id, video_id, service, cost_usd, details)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.Exec(query, userID, videoID, service, fmt.Sprintf("%.6f", costUSD), payload); err != nil {
		log.Printf("Costs: failed to record %s cost for %s: %v", service, videoID, err)
	}
}

// RecordTracking charges person-tracking time.
func (r *CostRepository) RecordTracking(userID, videoID string, durationMinutes float64) {
	r.Record(userID, videoID, "person_tracking", durationMinutes*costTrackingPerMinute,
		map[string]interface{}{"duration_minutes": durationMinutes})
}

// RecordTranscription charges speech-to-text time.
func (r *CostRepository) RecordTranscription(userID, videoID string, durationSeconds float64) {
	units := durationSeconds / 15
	r.Record(userID, videoID, "transcription", units*costTranscriptionPer15s,
		map[string]interface{}{"duration_seconds": durationSeconds})
}

// RecordScoring charges scene-scoring token usage.
func (r *CostRepository) RecordScoring(userID, videoID string, inputTokens, outputTokens int) {
	cost := float64(inputTokens)/1000*costScoringInputPer1KTok +
		float64(outputTokens)/1000*costScoringOutputPer1K
	r.Record(userID, videoID, "scene_scoring", cost,
		map[string]interface{}{"input_tokens": inputTokens, "output_tokens": outputTokens})
}

// TotalForUser sums a user's spend.
func (r *CostRepository) TotalForUser(userID string) (float64, error) {
	var total sql.NullFloat64
	query := `SELECT SUM(cost_usd) FROM api_costs WHERE user_id = $1`
	if err := r.db.QueryRow(query, userID).Scan(&total); err != nil {
		return 0, err
	}
	return total.Float64, nil
}
