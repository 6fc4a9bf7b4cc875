// Package retrieve ranks chunks for a (document scope, fact type) query
// by combining semantic similarity with lexical pattern boosts. Purely
// semantic ranking under-ranks chunks whose decisive tokens are
// semantically boring (zip codes, dollar amounts); the boost compensates
// without abandoning semantic recall for fact types that have no strong
// lexical signal.
package retrieve

import (
	"context"
	"fmt"
	"sort"

	"github.com/hurttlocker/distill/internal/embed"
	"github.com/hurttlocker/distill/internal/facttype"
	"github.com/hurttlocker/distill/internal/pattern"
	"github.com/hurttlocker/distill/internal/store"
)

// poolFactor oversizes the candidate pool fetched from the store before
// re-ranking, so boosting can promote chunks from outside the raw top-k.
const poolFactor = 3

// Scope restricts retrieval to one domain or one document.
type Scope struct {
	Domain     string
	DocumentID string
}

// Ranked is one retrieved chunk with its score breakdown.
type Ranked struct {
	Chunk      store.Chunk
	Similarity float64
	Boost      float64
	Score      float64
}

// Retriever scores and ranks chunks for fact extraction.
type Retriever struct {
	store       store.Store
	embedder    embed.Embedder
	boostWeight float64
}

// New creates a Retriever. boostWeight scales pattern boosts against
// cosine similarity; 0 reproduces pure similarity ranking exactly.
func New(s store.Store, e embed.Embedder, boostWeight float64) *Retriever {
	return &Retriever{store: s, embedder: e, boostWeight: boostWeight}
}

// Retrieve returns the top k chunks for the fact type within the scope,
// ordered by combined score. Ties carry over the store's ordering:
// ingest recency, then chunk id.
func (r *Retriever) Retrieve(ctx context.Context, scope Scope, ft facttype.FactType, k int) ([]Ranked, error) {
	spec, err := facttype.Lookup(ft)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		k = spec.K
	}

	queryVec, err := r.embedder.Embed(ctx, spec.Query)
	if err != nil {
		return nil, fmt.Errorf("embedding query for %s: %w", ft, err)
	}

	hits, err := r.store.Search(ctx, queryVec, k*poolFactor, store.Filter{
		Domain:     scope.Domain,
		DocumentID: scope.DocumentID,
	})
	if err != nil {
		return nil, fmt.Errorf("searching chunks for %s: %w", ft, err)
	}

	ranked := make([]Ranked, len(hits))
	for i, h := range hits {
		boost := pattern.Boost(h.Chunk.Flags, spec.Boost)
		ranked[i] = Ranked{
			Chunk:      h.Chunk,
			Similarity: h.Similarity,
			Boost:      boost,
			Score:      boost*r.boostWeight + h.Similarity,
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked, nil
}
