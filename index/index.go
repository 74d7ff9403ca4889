// Package index stores chunk embeddings and serves nearest-neighbor
// queries by cosine similarity. Two implementations share the Index
// interface: an in-memory snapshot index and a durable Postgres/pgvector
// store.
package index

import (
	"context"
	"math"
)

// Chunk is the unit of retrieval: a bounded piece of a source document.
// Start is the chunk's rune offset into the document text.
type Chunk struct {
	ID       string
	Document string
	Title    string
	Text     string
	Start    int
	Page     int
}

// Entry pairs a chunk with its embedding vector.
type Entry struct {
	Chunk  Chunk
	Vector []float32
}

// Result is a retrieved chunk with its similarity to the query vector.
type Result struct {
	Chunk Chunk
	Score float64
}

// Index is the vector store contract. Query returns at most k results
// ordered by descending similarity, ties broken by insertion order; an
// empty index yields an empty slice, not an error. Rebuild atomically
// replaces the whole index: a concurrent Query sees either the old or
// the new contents, never a mix.
type Index interface {
	Upsert(ctx context.Context, entries []Entry) error
	Query(ctx context.Context, vector []float32, k int) ([]Result, error)
	Rebuild(ctx context.Context, entries []Entry) error
	Count(ctx context.Context) (int, error)
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0
// when either vector is empty or zero.
func CosineSimilarity(a, b []float32) float64 {
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
