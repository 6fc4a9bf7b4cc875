package retrieve

import (
	"context"
	"math"
	"testing"

	"github.com/hurttlocker/distill/internal/pattern"
	"github.com/hurttlocker/distill/internal/store"
)

// fakeStore implements store.Store over an in-memory slice with the same
// ordering contract as the SQLite search.
type fakeStore struct {
	chunks []store.Chunk
}

func (f *fakeStore) Search(ctx context.Context, vector []float32, k int, filter store.Filter) ([]store.ChunkHit, error) {
	var hits []store.ChunkHit
	for _, c := range f.chunks {
		if filter.Domain != "" && c.Domain != filter.Domain {
			continue
		}
		if filter.DocumentID != "" && c.DocumentID != filter.DocumentID {
			continue
		}
		hits = append(hits, store.ChunkHit{Chunk: c, Similarity: cosine(vector, c.Vector)})
	}
	for i := 0; i < len(hits); i++ {
		for j := i + 1; j < len(hits); j++ {
			if hits[j].Similarity > hits[i].Similarity {
				hits[i], hits[j] = hits[j], hits[i]
			}
		}
	}
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (f *fakeStore) UpsertDocument(ctx context.Context, doc *store.Document, chunks []*store.Chunk) (bool, error) {
	return false, nil
}
func (f *fakeStore) GetDocument(ctx context.Context, documentID string) (*store.Document, error) {
	return nil, nil
}
func (f *fakeStore) LiveChunkCount(ctx context.Context, documentID string) (int64, error) {
	return 0, nil
}
func (f *fakeStore) Dimensions(ctx context.Context) (int, error) { return 0, nil }
func (f *fakeStore) SaveResult(ctx context.Context, r *store.ExtractionResult) error {
	return nil
}
func (f *fakeStore) LatestResult(ctx context.Context, scope, factType string) (*store.ExtractionResult, error) {
	return nil, nil
}
func (f *fakeStore) UpdateStats(ctx context.Context) error { return nil }
func (f *fakeStore) Stats(ctx context.Context, domain string) (*store.DomainStats, error) {
	return nil, nil
}
func (f *fakeStore) Close() error { return nil }

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// fakeEmbedder returns a fixed vector for any text.
type fakeEmbedder struct {
	vec []float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vec, nil
}
func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}
func (f *fakeEmbedder) Dimensions() int { return len(f.vec) }

func addressChunk(id int64, text string, vec []float32) store.Chunk {
	return store.Chunk{ID: id, Domain: "137law.com", Text: text, Flags: pattern.Scan(text), Vector: vec}
}

func TestRetrieveZeroBoostWeightIsPureCosine(t *testing.T) {
	// The boosted chunk has a full address; the plain one is closer in
	// embedding space. With boost_weight 0 similarity alone must decide.
	st := &fakeStore{chunks: []store.Chunk{
		addressChunk(1, "Our office is at 123 Main Street, Springfield, IL 62701", []float32{0.7, 0.3}),
		addressChunk(2, "We are a dedicated personal injury law office", []float32{1, 0}),
	}}
	r := New(st, &fakeEmbedder{vec: []float32{1, 0}}, 0)

	ranked, err := r.Retrieve(context.Background(), Scope{Domain: "137law.com"}, "office_locations", 2)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("got %d results", len(ranked))
	}
	if ranked[0].Chunk.ID != 2 {
		t.Errorf("top chunk = %d, want the cosine winner", ranked[0].Chunk.ID)
	}
	for _, rk := range ranked {
		if rk.Score != rk.Similarity {
			t.Errorf("chunk %d: score %v != similarity %v with zero boost weight", rk.Chunk.ID, rk.Score, rk.Similarity)
		}
	}
}

func TestRetrieveBoostPromotesPatternChunk(t *testing.T) {
	// Same chunks, but with a real boost weight the address chunk should
	// overtake the semantically closer one.
	st := &fakeStore{chunks: []store.Chunk{
		addressChunk(1, "Our office is at 123 Main Street, Springfield, IL 62701", []float32{0.7, 0.3}),
		addressChunk(2, "We are a dedicated personal injury law office", []float32{1, 0}),
	}}
	r := New(st, &fakeEmbedder{vec: []float32{1, 0}}, 0.3)

	ranked, err := r.Retrieve(context.Background(), Scope{Domain: "137law.com"}, "office_locations", 2)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if ranked[0].Chunk.ID != 1 {
		t.Errorf("top chunk = %d, want the boosted address chunk", ranked[0].Chunk.ID)
	}
	if ranked[0].Boost == 0 {
		t.Error("address chunk should carry a positive boost")
	}
	want := ranked[0].Boost*0.3 + ranked[0].Similarity
	if math.Abs(ranked[0].Score-want) > 1e-9 {
		t.Errorf("score = %v, want boost*weight+similarity = %v", ranked[0].Score, want)
	}
}

func TestRetrieveHonorsK(t *testing.T) {
	chunks := make([]store.Chunk, 10)
	for i := range chunks {
		chunks[i] = addressChunk(int64(i+1), "plain text", []float32{1, float32(i) * 0.01})
	}
	st := &fakeStore{chunks: chunks}
	r := New(st, &fakeEmbedder{vec: []float32{1, 0}}, 0.3)

	ranked, err := r.Retrieve(context.Background(), Scope{Domain: "137law.com"}, "office_locations", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(ranked) != 3 {
		t.Errorf("got %d results, want 3", len(ranked))
	}
}

func TestRetrieveUnknownFactType(t *testing.T) {
	r := New(&fakeStore{}, &fakeEmbedder{vec: []float32{1, 0}}, 0.3)
	if _, err := r.Retrieve(context.Background(), Scope{}, "bogus", 3); err == nil {
		t.Fatal("expected error for unknown fact type")
	}
}
