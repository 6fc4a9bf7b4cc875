package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

// Search performs brute-force cosine similarity search over live chunks,
// optionally narrowed by metadata filter. Ties are broken by ingest
// recency (most recent wins) then by chunk id for determinism.
func (s *SQLiteStore) Search(ctx context.Context, vector []float32, k int, filter Filter) ([]ChunkHit, error) {
	if k <= 0 {
		k = 10
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}

	stored, err := s.Dimensions(ctx)
	if err != nil {
		return nil, err
	}
	if stored != 0 && stored != len(vector) {
		return nil, fmt.Errorf("%w: query has %d dims, index has %d", ErrDimensionMismatch, len(vector), stored)
	}

	query := `SELECT id, document_id, domain, chunk_index, text, start_offset, end_offset, flags, vector, dims, ingested_at
	          FROM chunks WHERE superseded_at IS NULL`
	var args []any
	if filter.Domain != "" {
		query += ` AND domain = ?`
		args = append(args, filter.Domain)
	}
	if filter.DocumentID != "" {
		query += ` AND document_id = ?`
		args = append(args, filter.DocumentID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var hits []ChunkHit
	for rows.Next() {
		c, err := scanChunk(rows.Scan)
		if err != nil {
			return nil, err
		}
		hits = append(hits, ChunkHit{
			Chunk:      *c,
			Similarity: cosineSimilarity(vector, c.Vector),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		if !hits[i].Chunk.IngestedAt.Equal(hits[j].Chunk.IngestedAt) {
			return hits[i].Chunk.IngestedAt.After(hits[j].Chunk.IngestedAt)
		}
		return hits[i].Chunk.ID < hits[j].Chunk.ID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

type scanFn func(dest ...any) error

func scanChunk(scan scanFn) (*Chunk, error) {
	c := &Chunk{}
	var flags string
	var blob []byte
	var ingested time.Time
	if err := scan(&c.ID, &c.DocumentID, &c.Domain, &c.Index, &c.Text,
		&c.StartOffset, &c.EndOffset, &flags, &blob, &c.Dims, &ingested); err != nil {
		return nil, fmt.Errorf("scanning chunk row: %w", err)
	}
	if err := json.Unmarshal([]byte(flags), &c.Flags); err != nil {
		return nil, fmt.Errorf("parsing chunk %d flags: %w", c.ID, err)
	}
	c.Vector = bytesToFloat32(blob)
	c.IngestedAt = ingested
	return c, nil
}

// cosineSimilarity computes cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// float32ToBytes converts a float32 slice to little-endian bytes.
func float32ToBytes(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// bytesToFloat32 converts little-endian bytes back to float32s.
func bytesToFloat32(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}
