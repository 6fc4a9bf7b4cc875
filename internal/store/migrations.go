package store

import "fmt"

// migrate creates all tables if they don't exist. Schema changes append
// new idempotent steps after the bootstrap DDL.
func (s *SQLiteStore) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			document_id   TEXT NOT NULL,
			domain        TEXT NOT NULL DEFAULT '',
			path          TEXT NOT NULL DEFAULT '',
			content_hash  TEXT NOT NULL,
			ingested_at   DATETIME DEFAULT CURRENT_TIMESTAMP,
			superseded_at DATETIME
		)`,

		// One live row per external document id; re-ingestion tombstones
		// the old row inside the same transaction that inserts the new one.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_live
			ON documents(document_id) WHERE superseded_at IS NULL`,

		`CREATE TABLE IF NOT EXISTS chunks (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			document_id   TEXT NOT NULL,
			domain        TEXT NOT NULL DEFAULT '',
			chunk_index   INTEGER NOT NULL,
			text          TEXT NOT NULL,
			start_offset  INTEGER NOT NULL,
			end_offset    INTEGER NOT NULL,
			flags         TEXT NOT NULL DEFAULT '{}',
			vector        BLOB,
			dims          INTEGER NOT NULL DEFAULT 0,
			ingested_at   DATETIME DEFAULT CURRENT_TIMESTAMP,
			superseded_at DATETIME
		)`,

		`CREATE INDEX IF NOT EXISTS idx_chunks_document
			ON chunks(document_id) WHERE superseded_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_domain
			ON chunks(domain) WHERE superseded_at IS NULL`,

		`CREATE TABLE IF NOT EXISTS extraction_results (
			id           TEXT PRIMARY KEY,
			scope        TEXT NOT NULL,
			fact_type    TEXT NOT NULL,
			payload      TEXT NOT NULL,
			model        TEXT NOT NULL DEFAULT '',
			attempts     INTEGER NOT NULL DEFAULT 1,
			chunk_ids    TEXT NOT NULL DEFAULT '[]',
			extracted_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_results_scope
			ON extraction_results(scope, fact_type, extracted_at)`,

		`CREATE TABLE IF NOT EXISTS corpus_stats (
			domain         TEXT PRIMARY KEY,
			document_count INTEGER NOT NULL DEFAULT 0,
			chunk_count    INTEGER NOT NULL DEFAULT 0,
			address_chunks INTEGER NOT NULL DEFAULT 0,
			contact_chunks INTEGER NOT NULL DEFAULT 0,
			money_chunks   INTEGER NOT NULL DEFAULT 0,
			updated_at     DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing DDL: %w", err)
		}
	}
	return nil
}
