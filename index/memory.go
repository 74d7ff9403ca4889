package index

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/devkaluri/rag-chat/errs"
)

// Memory is an in-memory index built on immutable snapshots. Readers
// load the current snapshot without locking; writers build a fresh
// snapshot and swap it in, so a query running concurrently with Rebuild
// sees either the old or the new contents in full.
type Memory struct {
	dimension int

	mu   sync.Mutex // serializes writers
	snap atomic.Pointer[snapshot]
}

type snapshot struct {
	entries []Entry
}

func NewMemory(dimension int) (*Memory, error) {
	if dimension <= 0 {
		return nil, errs.Configf("embedding dimension must be positive, got %d", dimension)
	}
	m := &Memory{dimension: dimension}
	m.snap.Store(&snapshot{})
	return m, nil
}

func (m *Memory) Dimension() int { return m.dimension }

func (m *Memory) Upsert(_ context.Context, entries []Entry) error {
	if err := m.validate(entries); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	old := m.snap.Load()
	next := make([]Entry, 0, len(old.entries)+len(entries))
	next = append(next, old.entries...)
	next = append(next, entries...)
	m.snap.Store(&snapshot{entries: next})
	return nil
}

func (m *Memory) Rebuild(_ context.Context, entries []Entry) error {
	if err := m.validate(entries); err != nil {
		return err
	}

	next := make([]Entry, len(entries))
	copy(next, entries)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.Store(&snapshot{entries: next})
	return nil
}

func (m *Memory) Query(_ context.Context, vector []float32, k int) ([]Result, error) {
	if len(vector) != m.dimension {
		return nil, errs.Configf("query vector dimension mismatch: index expects %d, got %d", m.dimension, len(vector))
	}
	if k <= 0 {
		return []Result{}, nil
	}

	snap := m.snap.Load()
	if len(snap.entries) == 0 {
		return []Result{}, nil
	}

	results := make([]Result, len(snap.entries))
	for i, entry := range snap.entries {
		results[i] = Result{Chunk: entry.Chunk, Score: CosineSimilarity(vector, entry.Vector)}
	}

	// Stable sort keeps insertion order for equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (m *Memory) Count(_ context.Context) (int, error) {
	return len(m.snap.Load().entries), nil
}

func (m *Memory) validate(entries []Entry) error {
	for i, entry := range entries {
		if len(entry.Vector) != m.dimension {
			return errs.Configf("entry %d dimension mismatch: index expects %d, got %d", i, m.dimension, len(entry.Vector))
		}
	}
	return nil
}

var _ Index = (*Memory)(nil)
