package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// UpsertDocument ingests a document and its chunks atomically, keyed by
// (document_id, content_hash). Identical content is a no-op. Changed
// content tombstones the prior document and chunks and writes new rows in
// the same transaction, so concurrent ingests of the same key perform at
// most one effective write.
func (s *SQLiteStore) UpsertDocument(ctx context.Context, doc *Document, chunks []*Chunk) (bool, error) {
	if doc.DocumentID == "" {
		return false, fmt.Errorf("document_id is required")
	}
	if err := s.checkChunkDims(ctx, chunks); err != nil {
		return false, err
	}

	existing, err := s.GetDocument(ctx, doc.DocumentID)
	if err != nil {
		return false, err
	}
	if existing != nil && existing.ContentHash == doc.ContentHash {
		return false, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if existing != nil {
		if _, err := tx.ExecContext(ctx,
			`UPDATE documents SET superseded_at = CURRENT_TIMESTAMP
			 WHERE document_id = ? AND superseded_at IS NULL`, doc.DocumentID); err != nil {
			return false, fmt.Errorf("superseding document %s: %w", doc.DocumentID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE chunks SET superseded_at = CURRENT_TIMESTAMP
			 WHERE document_id = ? AND superseded_at IS NULL`, doc.DocumentID); err != nil {
			return false, fmt.Errorf("superseding chunks of %s: %w", doc.DocumentID, err)
		}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO documents (document_id, domain, path, content_hash) VALUES (?, ?, ?, ?)`,
		doc.DocumentID, doc.Domain, doc.Path, doc.ContentHash)
	if err != nil {
		// A concurrent ingest of the same content won the race; the live
		// row now carries our hash and there is nothing left to write.
		if isUniqueViolation(err) {
			if live, lookupErr := s.GetDocument(ctx, doc.DocumentID); lookupErr == nil &&
				live != nil && live.ContentHash == doc.ContentHash {
				return false, nil
			}
		}
		return false, fmt.Errorf("inserting document %s: %w", doc.DocumentID, err)
	}
	doc.ID, _ = res.LastInsertId()

	for _, c := range chunks {
		flags, err := json.Marshal(c.Flags)
		if err != nil {
			return false, fmt.Errorf("marshaling chunk flags: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO chunks (document_id, domain, chunk_index, text, start_offset, end_offset, flags, vector, dims)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			doc.DocumentID, doc.Domain, c.Index, c.Text, c.StartOffset, c.EndOffset,
			string(flags), float32ToBytes(c.Vector), len(c.Vector))
		if err != nil {
			return false, fmt.Errorf("inserting chunk %d of %s: %w", c.Index, doc.DocumentID, err)
		}
		c.ID, _ = res.LastInsertId()
		c.DocumentID = doc.DocumentID
		c.Domain = doc.Domain
		c.Dims = len(c.Vector)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing ingest of %s: %w", doc.DocumentID, err)
	}
	return true, nil
}

// GetDocument returns the live document for an external id, nil if none.
func (s *SQLiteStore) GetDocument(ctx context.Context, documentID string) (*Document, error) {
	d := &Document{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, document_id, domain, path, content_hash, ingested_at
		 FROM documents WHERE document_id = ? AND superseded_at IS NULL`,
		documentID,
	).Scan(&d.ID, &d.DocumentID, &d.Domain, &d.Path, &d.ContentHash, &d.IngestedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting document %s: %w", documentID, err)
	}
	return d, nil
}

// LiveChunkCount returns the number of non-superseded chunks for a document.
func (s *SQLiteStore) LiveChunkCount(ctx context.Context, documentID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chunks WHERE document_id = ? AND superseded_at IS NULL`,
		documentID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting chunks of %s: %w", documentID, err)
	}
	return n, nil
}

// checkChunkDims rejects mixed dimensions within the batch and against
// the existing live index.
func (s *SQLiteStore) checkChunkDims(ctx context.Context, chunks []*Chunk) error {
	batchDims := 0
	for _, c := range chunks {
		if len(c.Vector) == 0 {
			return fmt.Errorf("chunk %d has no embedding", c.Index)
		}
		if batchDims == 0 {
			batchDims = len(c.Vector)
		} else if len(c.Vector) != batchDims {
			return fmt.Errorf("%w: chunk %d has %d dims, batch has %d",
				ErrDimensionMismatch, c.Index, len(c.Vector), batchDims)
		}
	}
	if batchDims == 0 {
		return nil
	}

	stored, err := s.Dimensions(ctx)
	if err != nil {
		return err
	}
	if stored != 0 && stored != batchDims {
		return fmt.Errorf("%w: index has %d dims, ingest has %d", ErrDimensionMismatch, stored, batchDims)
	}
	return nil
}

// Dimensions returns the dimensionality of the live index, 0 when empty.
// A mixed-dimension index is itself an error.
func (s *SQLiteStore) Dimensions(ctx context.Context) (int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT dims FROM chunks WHERE superseded_at IS NULL AND dims > 0`)
	if err != nil {
		return 0, fmt.Errorf("querying index dimensions: %w", err)
	}
	defer rows.Close()

	var dims []int
	for rows.Next() {
		var d int
		if err := rows.Scan(&d); err != nil {
			return 0, fmt.Errorf("scanning dims: %w", err)
		}
		dims = append(dims, d)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	switch len(dims) {
	case 0:
		return 0, nil
	case 1:
		return dims[0], nil
	default:
		return 0, fmt.Errorf("%w: index contains %d distinct dimensionalities", ErrDimensionMismatch, len(dims))
	}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
