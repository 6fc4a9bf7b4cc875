package store

import (
	"context"
	"database/sql"
	"fmt"
)

// UpdateStats recomputes per-domain statistics from the live chunks.
// Called as an explicit pipeline step after ingestion so the invariant
// "statistics reflect exactly the ingested chunks" holds outside the
// database engine.
func (s *SQLiteStore) UpdateStats(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning stats transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM corpus_stats`); err != nil {
		return fmt.Errorf("clearing stats: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO corpus_stats (domain, document_count, chunk_count, address_chunks, contact_chunks, money_chunks, updated_at)
		SELECT
			c.domain,
			(SELECT COUNT(*) FROM documents d WHERE d.domain = c.domain AND d.superseded_at IS NULL),
			COUNT(*),
			SUM(CASE WHEN json_extract(c.flags, '$.address_count') > 0 THEN 1 ELSE 0 END),
			SUM(CASE WHEN json_extract(c.flags, '$.email_count') > 0
			       OR json_extract(c.flags, '$.phone_count') > 0 THEN 1 ELSE 0 END),
			SUM(CASE WHEN json_extract(c.flags, '$.money_count') > 0 THEN 1 ELSE 0 END),
			CURRENT_TIMESTAMP
		FROM chunks c
		WHERE c.superseded_at IS NULL
		GROUP BY c.domain`)
	if err != nil {
		return fmt.Errorf("recomputing stats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing stats: %w", err)
	}
	return nil
}

// Stats returns statistics for one domain, nil when the domain has no
// live chunks.
func (s *SQLiteStore) Stats(ctx context.Context, domain string) (*DomainStats, error) {
	st := &DomainStats{}
	err := s.db.QueryRowContext(ctx,
		`SELECT domain, document_count, chunk_count, address_chunks, contact_chunks, money_chunks, updated_at
		 FROM corpus_stats WHERE domain = ?`, domain,
	).Scan(&st.Domain, &st.DocumentCount, &st.ChunkCount,
		&st.AddressChunks, &st.ContactChunks, &st.MoneyChunks, &st.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting stats for %s: %w", domain, err)
	}
	return st, nil
}
