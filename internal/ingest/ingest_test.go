package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hurttlocker/distill/internal/chunk"
	"github.com/hurttlocker/distill/internal/store"
)

// fakeEmbedder produces deterministic vectors and counts calls.
type fakeEmbedder struct {
	batches int
	texts   int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, _ := f.EmbedBatch(ctx, []string{text})
	return vecs[0], nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.batches++
	f.texts += len(texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1, 0}
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return 3 }

func testEngine(t *testing.T) (*Engine, *store.SQLiteStore, *fakeEmbedder) {
	t.Helper()
	s, err := store.Open(store.Config{DBPath: ":memory:"})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })

	c, err := chunk.New(100, 10)
	if err != nil {
		t.Fatal(err)
	}
	emb := &fakeEmbedder{}
	return New(s, emb, c, 2), s, emb
}

func TestIngestDocument(t *testing.T) {
	engine, s, _ := testEngine(t)
	ctx := context.Background()

	text := strings.Repeat("The firm has served Springfield since 1987. ", 10)
	outcome, err := engine.IngestDocument(ctx, Document{
		DocumentID: "137law.com/about.md",
		Text:       text,
	})
	if err != nil {
		t.Fatalf("IngestDocument: %v", err)
	}
	if outcome.Skipped {
		t.Error("first ingest must not be skipped")
	}
	if outcome.Chunks == 0 {
		t.Error("no chunks stored")
	}

	doc, err := s.GetDocument(ctx, "137law.com/about.md")
	if err != nil {
		t.Fatal(err)
	}
	if doc == nil {
		t.Fatal("document not stored")
	}
	if doc.Domain != "137law.com" {
		t.Errorf("derived domain = %q, want 137law.com", doc.Domain)
	}

	n, _ := s.LiveChunkCount(ctx, "137law.com/about.md")
	if int(n) != outcome.Chunks {
		t.Errorf("live chunks = %d, outcome says %d", n, outcome.Chunks)
	}
}

func TestIngestUnchangedSkipsEmbedding(t *testing.T) {
	engine, _, emb := testEngine(t)
	ctx := context.Background()

	doc := Document{DocumentID: "137law.com/index.md", Text: "some website text"}
	if _, err := engine.IngestDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	batchesAfterFirst := emb.batches

	outcome, err := engine.IngestDocument(ctx, doc)
	if err != nil {
		t.Fatal(err)
	}
	if !outcome.Skipped {
		t.Error("identical content must be skipped")
	}
	if emb.batches != batchesAfterFirst {
		t.Error("skipped ingest must not call the embedder")
	}
}

func TestIngestChangedContentSupersedes(t *testing.T) {
	engine, s, _ := testEngine(t)
	ctx := context.Background()

	if _, err := engine.IngestDocument(ctx, Document{DocumentID: "a.com/p.md", Text: "version one"}); err != nil {
		t.Fatal(err)
	}
	outcome, err := engine.IngestDocument(ctx, Document{DocumentID: "a.com/p.md", Text: "version two, now longer"})
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Skipped {
		t.Error("changed content must be written")
	}

	doc, _ := s.GetDocument(ctx, "a.com/p.md")
	n, _ := s.LiveChunkCount(ctx, "a.com/p.md")
	if doc == nil || int(n) != outcome.Chunks {
		t.Errorf("live state inconsistent: doc=%v chunks=%d", doc, n)
	}
}

func TestIngestAll(t *testing.T) {
	engine, s, _ := testEngine(t)
	ctx := context.Background()

	docs := []Document{
		{DocumentID: "a.com/1.md", Text: "first document text"},
		{DocumentID: "a.com/2.md", Text: "second document text"},
		{DocumentID: "", Text: "missing id"}, // must fail in isolation
	}

	var progress int
	engine.Progress = func(Outcome) { progress++ }

	report, err := engine.IngestAll(ctx, docs)
	if err != nil {
		t.Fatalf("IngestAll: %v", err)
	}
	if report.Documents != 3 {
		t.Errorf("documents = %d", report.Documents)
	}
	if len(report.Failures) != 1 {
		t.Fatalf("failures = %d, want 1", len(report.Failures))
	}
	if report.Chunks < 2 {
		t.Errorf("chunks = %d", report.Chunks)
	}
	if progress != 2 {
		t.Errorf("progress callbacks = %d, want 2", progress)
	}

	// Stats refreshed as part of the batch.
	stats, err := s.Stats(ctx, "a.com")
	if err != nil {
		t.Fatal(err)
	}
	if stats == nil || stats.DocumentCount != 2 {
		t.Errorf("stats = %+v, want 2 documents", stats)
	}
}

func TestDomainOf(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"137law.com/index.md", "137law.com"},
		{"137law.com/sub/page.md", "137law.com"},
		{"bare-id", "bare-id"},
	}
	for _, tt := range tests {
		if got := DomainOf(tt.id); got != tt.want {
			t.Errorf("DomainOf(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestLoadDir(t *testing.T) {
	root := t.TempDir()
	site := filepath.Join(root, "137law.com")
	if err := os.MkdirAll(site, 0755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"index.md":    "home page",
		"about.txt":   "about page",
		"image.png":   "binary noise",
		"contact.htm": "<p>contact</p>",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(site, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	docs, err := LoadDir(root)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("loaded %d docs, want 3 (png skipped): %+v", len(docs), docs)
	}
	for _, d := range docs {
		if !strings.HasPrefix(d.DocumentID, "137law.com/") {
			t.Errorf("document id %q should be rooted at the site directory", d.DocumentID)
		}
		if DomainOf(d.DocumentID) != "137law.com" {
			t.Errorf("domain of %q = %q", d.DocumentID, DomainOf(d.DocumentID))
		}
	}
}

func TestEmbedBatching(t *testing.T) {
	engine, _, emb := testEngine(t)
	ctx := context.Background()

	// Force enough chunks to span several embed batches.
	var b strings.Builder
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&b, "Paragraph %d about the firm and its history.\n\n", i)
	}
	outcome, err := engine.IngestDocument(ctx, Document{DocumentID: "big.com/all.md", Text: b.String()})
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Chunks <= embedBatchSize {
		t.Skipf("only %d chunks, not enough to exercise batching", outcome.Chunks)
	}
	if emb.texts != outcome.Chunks {
		t.Errorf("embedded %d texts for %d chunks", emb.texts, outcome.Chunks)
	}
	if emb.batches < 2 {
		t.Errorf("batches = %d, want several", emb.batches)
	}
}
