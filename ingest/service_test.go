package ingest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/devkaluri/rag-chat/embeddings"
	"github.com/devkaluri/rag-chat/index"
)

type countingEmbedder struct {
	texts []string
	err   error
}

func (c *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.texts = append(c.texts, texts...)
	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = []float32{1, 0}
	}
	return vectors, nil
}

var _ embeddings.Embedder = (*countingEmbedder)(nil)

func TestRebuildIndexesDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "handbook.md", "# Handbook\n\n"+strings.Repeat("vacation policy details ", 20))
	writeFile(t, dir, "notes.txt", "short note")

	idx, err := index.NewMemory(2)
	if err != nil {
		t.Fatalf("new index: %v", err)
	}
	embedder := &countingEmbedder{}
	svc := NewService(embedder, idx, nil, 100, 20)

	count, err := svc.Rebuild(context.Background(), dir)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if count < 3 {
		t.Fatalf("expected at least 3 chunks across both documents, got %d", count)
	}

	stored, err := idx.Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if stored != count {
		t.Fatalf("index holds %d entries, Rebuild reported %d", stored, count)
	}
	if len(embedder.texts) != count {
		t.Fatalf("embedded %d texts for %d chunks", len(embedder.texts), count)
	}

	results, err := idx.Query(context.Background(), []float32{1, 0}, count)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	for _, r := range results {
		if r.Chunk.ID == "" || r.Chunk.Document == "" || r.Chunk.Title == "" {
			t.Fatalf("entry missing metadata: %+v", r.Chunk)
		}
		if r.Chunk.Page != 1 {
			t.Fatalf("text chunks should map to page 1, got %d", r.Chunk.Page)
		}
	}
}

func TestRebuildReplacesPreviousContents(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "doc.txt", "fresh content")

	idx, err := index.NewMemory(2)
	if err != nil {
		t.Fatalf("new index: %v", err)
	}
	seed := index.Entry{Chunk: index.Chunk{ID: "stale"}, Vector: []float32{0, 1}}
	if err := idx.Upsert(context.Background(), []index.Entry{seed}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	svc := NewService(&countingEmbedder{}, idx, nil, 100, 20)
	if _, err := svc.Rebuild(context.Background(), dir); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	results, err := idx.Query(context.Background(), []float32{0, 1}, 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	for _, r := range results {
		if r.Chunk.ID == "stale" {
			t.Fatalf("stale entry survived rebuild")
		}
	}
}

func TestRebuildSkipsWhitespaceOnlyDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "blank.txt", "   \n\n\t\n")
	writeFile(t, dir, "real.txt", "actual content")

	idx, err := index.NewMemory(2)
	if err != nil {
		t.Fatalf("new index: %v", err)
	}
	svc := NewService(&countingEmbedder{}, idx, nil, 100, 20)

	count, err := svc.Rebuild(context.Background(), dir)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 chunk from the non-blank document, got %d", count)
	}
}

func TestRebuildEmbeddingFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "doc.txt", "content")

	idx, err := index.NewMemory(2)
	if err != nil {
		t.Fatalf("new index: %v", err)
	}
	svc := NewService(&countingEmbedder{err: fmt.Errorf("provider down")}, idx, nil, 100, 20)

	if _, err := svc.Rebuild(context.Background(), dir); err == nil {
		t.Fatalf("expected embedding failure to surface")
	}
	if n, _ := idx.Count(context.Background()); n != 0 {
		t.Fatalf("failed rebuild must not touch the index, found %d entries", n)
	}
}

func TestRebuildEmptyDirectory(t *testing.T) {
	idx, err := index.NewMemory(2)
	if err != nil {
		t.Fatalf("new index: %v", err)
	}
	svc := NewService(&countingEmbedder{}, idx, nil, 100, 20)

	count, err := svc.Rebuild(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("rebuild of empty directory: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 chunks, got %d", count)
	}
}
