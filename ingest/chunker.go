package ingest

import (
	"github.com/devkaluri/rag-chat/errs"
)

// Chunk is a window of document text with its rune start offset.
type Chunk struct {
	Text  string
	Start int
}

// Split cuts text into fixed-size rune windows where consecutive chunks
// share overlap runes of context. Windows advance by size-overlap, so
// concatenating each chunk's non-overlapping tail onto the first chunk
// reconstructs the original text. The final chunk may be shorter than
// size and is never dropped.
func Split(text string, size, overlap int) ([]Chunk, error) {
	if size <= 0 {
		return nil, errs.Configf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, errs.Configf("chunk overlap must not be negative, got %d", overlap)
	}
	if overlap >= size {
		return nil, errs.Configf("chunk overlap %d must be smaller than chunk size %d", overlap, size)
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	step := size - overlap
	chunks := make([]Chunk, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{Text: string(runes[start:end]), Start: start})
		if end == len(runes) {
			break
		}
	}

	return chunks, nil
}
