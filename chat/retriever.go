package chat

import (
	"context"
	"fmt"

	"github.com/devkaluri/rag-chat/embeddings"
	"github.com/devkaluri/rag-chat/index"
)

const defaultTopK = 4

// Retriever embeds a question and fetches the top-k most similar chunks
// from the vector index. An empty index is not an error: it yields an
// empty result set.
type Retriever struct {
	embedder embeddings.Embedder
	idx      index.Index
	k        int
}

func NewRetriever(embedder embeddings.Embedder, idx index.Index, k int) *Retriever {
	if k <= 0 {
		k = defaultTopK
	}
	return &Retriever{embedder: embedder, idx: idx, k: k}
}

func (r *Retriever) Retrieve(ctx context.Context, question string) ([]index.Result, error) {
	vectors, err := r.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vectors")
	}

	results, err := r.idx.Query(ctx, vectors[0], r.k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return results, nil
}
