// Package store provides the SQLite storage layer for the extraction
// pipeline: documents with content-hash provenance, chunks with embedding
// vectors and pattern flags, extraction results namespaced by scope and
// fact type, and corpus statistics.
//
// Chunks are immutable once written. Re-ingesting a changed document
// writes new chunks and tombstones the old ones; unchanged documents are
// skipped entirely.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hurttlocker/distill/internal/pattern"
)

// ErrDimensionMismatch reports disagreement between an embedding vector
// and the dimensionality of the stored index. Fatal, never auto-corrected:
// mixed-dimension indices are rejected at both ingest and query time.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// DefaultDBPath is the default database location.
const DefaultDBPath = "~/.distill/distill.db"

// Document is one ingested source document. Immutable once written;
// re-ingestion supersedes it wholesale.
type Document struct {
	ID          int64
	DocumentID  string // stable external identifier, e.g. "137law.com/index.md"
	Domain      string
	Path        string
	ContentHash string
	IngestedAt  time.Time
}

// Chunk is one overlap-aware slice of a document with its embedding.
type Chunk struct {
	ID          int64
	DocumentID  string
	Domain      string
	Index       int
	Text        string
	StartOffset int
	EndOffset   int
	Flags       pattern.Flags
	Vector      []float32
	Dims        int
	IngestedAt  time.Time
}

// ChunkHit is a search result with its cosine similarity to the query.
type ChunkHit struct {
	Chunk      Chunk
	Similarity float64
}

// Filter narrows a search by metadata. Non-empty fields are ANDed.
type Filter struct {
	Domain     string
	DocumentID string
}

// ExtractionResult is one immutable extraction outcome. Later results for
// the same (scope, fact type) supersede earlier ones by extracted_at
// without deleting history.
type ExtractionResult struct {
	ID          string // uuid
	Scope       string // domain or single document id
	FactType    string
	Payload     []byte // schema-conformant JSON
	Model       string
	Attempts    int
	ChunkIDs    []int64
	ExtractedAt time.Time
}

// DomainStats reflects exactly the live (non-superseded) chunks of a
// domain. Maintained by an explicit post-ingest step, not triggers.
type DomainStats struct {
	Domain        string
	DocumentCount int64
	ChunkCount    int64
	AddressChunks int64
	ContactChunks int64
	MoneyChunks   int64
	UpdatedAt     time.Time
}

// Config holds configuration for Open.
type Config struct {
	DBPath string
}

// Store is the persistence contract the pipeline depends on.
type Store interface {
	// Documents and chunks
	UpsertDocument(ctx context.Context, doc *Document, chunks []*Chunk) (changed bool, err error)
	GetDocument(ctx context.Context, documentID string) (*Document, error)
	LiveChunkCount(ctx context.Context, documentID string) (int64, error)

	// Search
	Search(ctx context.Context, vector []float32, k int, filter Filter) ([]ChunkHit, error)
	Dimensions(ctx context.Context) (int, error)

	// Extraction results
	SaveResult(ctx context.Context, r *ExtractionResult) error
	LatestResult(ctx context.Context, scope, factType string) (*ExtractionResult, error)

	// Statistics
	UpdateStats(ctx context.Context) error
	Stats(ctx context.Context, domain string) (*DomainStats, error)

	Close() error
}

// SQLiteStore implements Store on modernc.org/sqlite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// Open creates a SQLite-backed Store. Pass ":memory:" for tests.
func Open(cfg Config) (*SQLiteStore, error) {
	if cfg.DBPath == "" {
		cfg.DBPath = expandPath(DefaultDBPath)
	}

	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, dbPath: cfg.DBPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func expandPath(path string) string {
	if len(path) > 1 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
