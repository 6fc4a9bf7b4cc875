// Package ingest turns raw website text into searchable corpus entries:
// each document is chunked, scanned for lexical patterns, embedded, and
// written to the store in one atomic upsert. Unchanged documents are
// detected by content hash and skipped without touching the embedder.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/hurttlocker/distill/internal/chunk"
	"github.com/hurttlocker/distill/internal/embed"
	"github.com/hurttlocker/distill/internal/pattern"
	"github.com/hurttlocker/distill/internal/store"
)

// embedBatchSize caps texts per embedding API call.
const embedBatchSize = 50

// Document is one unit of ingestable text. DocumentID is the stable
// external identifier, e.g. "137law.com/about.md"; the domain is derived
// from its first path segment unless set explicitly.
type Document struct {
	DocumentID string
	Domain     string
	Path       string
	Text       string
}

// Outcome describes what ingesting one document did.
type Outcome struct {
	DocumentID string
	Skipped    bool // content hash matched the live version
	Chunks     int
}

// Report summarizes a batch ingest.
type Report struct {
	Documents int
	Skipped   int
	Chunks    int
	Failures  []Failure
}

// Failure records one document that could not be ingested.
type Failure struct {
	DocumentID string
	Err        error
}

// Engine coordinates chunking, pattern scanning, embedding, and storage.
type Engine struct {
	store       store.Store
	embedder    embed.Embedder
	chunker     *chunk.Chunker
	concurrency int

	// Progress, when set, is called after each document in a batch
	// ingest completes. Calls are serialized.
	Progress func(Outcome)
}

// New creates an ingest engine. concurrency bounds how many documents are
// processed in parallel; values below 1 mean serial.
func New(s store.Store, e embed.Embedder, c *chunk.Chunker, concurrency int) *Engine {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Engine{store: s, embedder: e, chunker: c, concurrency: concurrency}
}

// IngestDocument chunks, embeds, and stores one document. When the
// content hash matches the live version the document is skipped and no
// embedding calls are made.
func (e *Engine) IngestDocument(ctx context.Context, doc Document) (*Outcome, error) {
	if strings.TrimSpace(doc.DocumentID) == "" {
		return nil, fmt.Errorf("document id is required")
	}
	if doc.Domain == "" {
		doc.Domain = DomainOf(doc.DocumentID)
	}

	hash := contentHash(doc.Text)

	// Hash check before any embedding work.
	existing, err := e.store.GetDocument(ctx, doc.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("checking existing document: %w", err)
	}
	if existing != nil && existing.ContentHash == hash {
		return &Outcome{DocumentID: doc.DocumentID, Skipped: true}, nil
	}

	spans := e.chunker.Split(doc.Text)
	chunks := make([]*store.Chunk, len(spans))
	texts := make([]string, len(spans))
	for i, sp := range spans {
		chunks[i] = &store.Chunk{
			DocumentID:  doc.DocumentID,
			Domain:      doc.Domain,
			Index:       sp.Index,
			Text:        sp.Text,
			StartOffset: sp.Start,
			EndOffset:   sp.End,
			Flags:       pattern.Scan(sp.Text),
		}
		texts[i] = sp.Text
	}

	if err := e.embedChunks(ctx, chunks, texts); err != nil {
		return nil, err
	}

	record := &store.Document{
		DocumentID:  doc.DocumentID,
		Domain:      doc.Domain,
		Path:        doc.Path,
		ContentHash: hash,
	}
	changed, err := e.store.UpsertDocument(ctx, record, chunks)
	if err != nil {
		return nil, fmt.Errorf("storing document %s: %w", doc.DocumentID, err)
	}
	if !changed {
		// A concurrent ingest landed the same content first.
		return &Outcome{DocumentID: doc.DocumentID, Skipped: true}, nil
	}
	return &Outcome{DocumentID: doc.DocumentID, Chunks: len(chunks)}, nil
}

func (e *Engine) embedChunks(ctx context.Context, chunks []*store.Chunk, texts []string) error {
	for i := 0; i < len(texts); i += embedBatchSize {
		end := i + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := e.embedder.EmbedBatch(ctx, texts[i:end])
		if err != nil {
			return fmt.Errorf("embedding chunks %d-%d: %w", i, end-1, err)
		}
		if len(vectors) != end-i {
			return fmt.Errorf("embedding count mismatch: got %d, expected %d", len(vectors), end-i)
		}
		for j, vec := range vectors {
			chunks[i+j].Vector = vec
			chunks[i+j].Dims = len(vec)
		}
	}
	return nil
}

// IngestAll processes documents with bounded parallelism, isolating
// per-document failures, then refreshes corpus statistics once at the
// end.
func (e *Engine) IngestAll(ctx context.Context, docs []Document) (*Report, error) {
	report := &Report{Documents: len(docs)}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, e.concurrency)

	for _, doc := range docs {
		select {
		case <-ctx.Done():
			mu.Lock()
			report.Failures = append(report.Failures, Failure{DocumentID: doc.DocumentID, Err: ctx.Err()})
			mu.Unlock()
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(doc Document) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome, err := e.IngestDocument(ctx, doc)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failures = append(report.Failures, Failure{DocumentID: doc.DocumentID, Err: err})
				return
			}
			if outcome.Skipped {
				report.Skipped++
			}
			report.Chunks += outcome.Chunks
			if e.Progress != nil {
				e.Progress(*outcome)
			}
		}(doc)
	}
	wg.Wait()

	if err := e.store.UpdateStats(ctx); err != nil {
		return report, fmt.Errorf("updating corpus stats: %w", err)
	}
	return report, nil
}

// DomainOf derives the domain scope from a document identifier: the part
// before the first slash, e.g. "137law.com" from "137law.com/about.md".
func DomainOf(documentID string) string {
	if i := strings.IndexByte(documentID, '/'); i > 0 {
		return documentID[:i]
	}
	return documentID
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
