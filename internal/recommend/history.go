package recommend

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// RunRecord is one persisted recommendation run.
type RunRecord struct {
	ID             string    `json:"id"`
	PlaylistID     string    `json:"playlist_id"`
	SeedIDs        []string  `json:"seed_ids"`
	ReferenceCount int       `json:"reference_count"`
	CandidateCount int       `json:"candidate_count"`
	ReturnedCount  int       `json:"returned_count"`
	Reason         string    `json:"reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewRunRecord builds a record from a run's result.
func NewRunRecord(playlistID string, refCount int, result *Result) *RunRecord {
	seeds := make([]string, 0, len(result.Seeds))
	candidates := 0
	for _, s := range result.Seeds {
		seeds = append(seeds, s.SeedID)
		candidates += s.Candidates
	}

	return &RunRecord{
		ID:             result.RunID,
		PlaylistID:     playlistID,
		SeedIDs:        seeds,
		ReferenceCount: refCount,
		CandidateCount: candidates,
		ReturnedCount:  len(result.Candidates),
		Reason:         result.Reason,
		CreatedAt:      time.Now(),
	}
}

// History persists recommendation runs for later inspection.
type History struct {
	db *sql.DB
}

// NewHistory creates a new [History] backed by the given database.
func NewHistory(db *sql.DB) *History {
	return &History{db: db}
}

// Record inserts one run record.
func (h *History) Record(ctx context.Context, rec *RunRecord) error {
	query := `
		INSERT INTO recommendation_runs
			(id, playlist_id, seed_ids, reference_count, candidate_count, returned_count, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := h.db.ExecContext(ctx, query,
		rec.ID, rec.PlaylistID, strings.Join(rec.SeedIDs, ","),
		rec.ReferenceCount, rec.CandidateCount, rec.ReturnedCount,
		rec.Reason, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert run record: %w", err)
	}

	return nil
}

// Recent returns the most recent runs, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, playlist_id, seed_ids, reference_count, candidate_count, returned_count, reason, created_at
		FROM recommendation_runs
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := h.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query run records: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var seeds string
		var reason sql.NullString
		if err := rows.Scan(&rec.ID, &rec.PlaylistID, &seeds, &rec.ReferenceCount,
			&rec.CandidateCount, &rec.ReturnedCount, &reason, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run record: %w", err)
		}
		if seeds != "" {
			rec.SeedIDs = strings.Split(seeds, ",")
		}
		rec.Reason = reason.String
		records = append(records, rec)
	}

	return records, rows.Err()
}
