package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SaveResult persists an immutable extraction result. Results are
// namespaced by (scope, fact_type, extracted_at); a later save supersedes
// earlier ones without deleting them.
func (s *SQLiteStore) SaveResult(ctx context.Context, r *ExtractionResult) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.ExtractedAt.IsZero() {
		r.ExtractedAt = time.Now().UTC()
	}

	chunkIDs, err := json.Marshal(r.ChunkIDs)
	if err != nil {
		return fmt.Errorf("marshaling chunk ids: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO extraction_results (id, scope, fact_type, payload, model, attempts, chunk_ids, extracted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Scope, r.FactType, string(r.Payload), r.Model, r.Attempts, string(chunkIDs), r.ExtractedAt)
	if err != nil {
		return fmt.Errorf("saving result for (%s, %s): %w", r.Scope, r.FactType, err)
	}
	return nil
}

// LatestResult returns the most recent result for (scope, fact_type),
// nil when none exists.
func (s *SQLiteStore) LatestResult(ctx context.Context, scope, factType string) (*ExtractionResult, error) {
	r := &ExtractionResult{}
	var payload, chunkIDs string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, scope, fact_type, payload, model, attempts, chunk_ids, extracted_at
		 FROM extraction_results
		 WHERE scope = ? AND fact_type = ?
		 ORDER BY extracted_at DESC, id DESC LIMIT 1`,
		scope, factType,
	).Scan(&r.ID, &r.Scope, &r.FactType, &payload, &r.Model, &r.Attempts, &chunkIDs, &r.ExtractedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting result for (%s, %s): %w", scope, factType, err)
	}

	r.Payload = []byte(payload)
	if err := json.Unmarshal([]byte(chunkIDs), &r.ChunkIDs); err != nil {
		return nil, fmt.Errorf("parsing chunk ids of result %s: %w", r.ID, err)
	}
	return r, nil
}
