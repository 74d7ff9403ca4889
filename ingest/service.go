package ingest

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/devkaluri/rag-chat/embeddings"
	"github.com/devkaluri/rag-chat/index"
)

// Service builds the vector index from a directory of source documents.
type Service struct {
	embedder     embeddings.Embedder
	idx          index.Index
	logger       *log.Logger
	chunkSize    int
	chunkOverlap int
}

func NewService(embedder embeddings.Embedder, idx index.Index, logger *log.Logger, chunkSize, chunkOverlap int) *Service {
	if logger == nil {
		logger = log.Default()
	}

	return &Service{
		embedder:     embedder,
		idx:          idx,
		logger:       logger,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Rebuild loads every supported document under dir, chunks and embeds
// them, and atomically replaces the index contents. It returns the
// number of indexed chunks.
func (s *Service) Rebuild(ctx context.Context, dir string) (int, error) {
	if s.embedder == nil {
		return 0, fmt.Errorf("embedder not configured")
	}
	if s.idx == nil {
		return 0, fmt.Errorf("index not configured")
	}

	docs, err := LoadDirectory(dir)
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		s.logger.Printf("no documents found in %s", dir)
	}

	var entries []index.Entry
	for _, doc := range docs {
		docEntries, err := s.prepare(ctx, doc)
		if err != nil {
			return 0, fmt.Errorf("ingest %s: %w", doc.Path, err)
		}
		entries = append(entries, docEntries...)
	}

	if err := s.idx.Rebuild(ctx, entries); err != nil {
		return 0, fmt.Errorf("rebuild index: %w", err)
	}

	s.logger.Printf("indexed %d chunks from %d documents", len(entries), len(docs))
	return len(entries), nil
}

func (s *Service) prepare(ctx context.Context, doc *Document) ([]index.Entry, error) {
	chunks, err := Split(doc.Text, s.chunkSize, s.chunkOverlap)
	if err != nil {
		return nil, err
	}

	// Whitespace-only chunks cannot be embedded and carry no content.
	kept := chunks[:0]
	for _, chunk := range chunks {
		if strings.TrimSpace(chunk.Text) != "" {
			kept = append(kept, chunk)
		}
	}
	chunks = kept
	if len(chunks) == 0 {
		s.logger.Printf("skip empty document %s", doc.Path)
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("generate embeddings: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: have %d chunks, %d embeddings", len(chunks), len(vectors))
	}

	entries := make([]index.Entry, len(chunks))
	for i, chunk := range chunks {
		entries[i] = index.Entry{
			Chunk: index.Chunk{
				ID:       uuid.New().String(),
				Document: doc.Path,
				Title:    doc.Title,
				Text:     chunk.Text,
				Start:    chunk.Start,
				Page:     doc.Page(chunk.Start),
			},
			Vector: vectors[i],
		}
	}

	s.logger.Printf("ingested %s (%d chunks)", doc.Path, len(entries))
	return entries, nil
}
