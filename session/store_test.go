package session

import (
	"fmt"
	"sync"
	"testing"
)

func TestHistoryPreservesOrder(t *testing.T) {
	store := NewStore(10)
	store.Append("s1", "first question", "first answer")
	store.Append("s1", "second question", "second answer")
	store.Append("s1", "third question", "third answer")

	turns := store.History("s1")
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}
	if turns[0].Question != "first question" || turns[2].Question != "third question" {
		t.Fatalf("turns out of order: %+v", turns)
	}
}

func TestHistoryIsBounded(t *testing.T) {
	store := NewStore(3)
	for i := 1; i <= 5; i++ {
		store.Append("s1", fmt.Sprintf("question %d", i), fmt.Sprintf("answer %d", i))
	}

	turns := store.History("s1")
	if len(turns) != 3 {
		t.Fatalf("expected history bounded to 3 turns, got %d", len(turns))
	}
	if turns[0].Question != "question 3" || turns[2].Question != "question 5" {
		t.Fatalf("expected the most recent turns to survive, got %+v", turns)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	store := NewStore(10)
	store.Append("alice", "alice question", "alice answer")
	store.Append("bob", "bob question", "bob answer")

	if turns := store.History("alice"); len(turns) != 1 || turns[0].Question != "alice question" {
		t.Fatalf("unexpected alice history: %+v", turns)
	}
	if turns := store.History("bob"); len(turns) != 1 || turns[0].Question != "bob question" {
		t.Fatalf("unexpected bob history: %+v", turns)
	}
}

func TestHistoryUnknownSessionDoesNotCreate(t *testing.T) {
	store := NewStore(10)
	if turns := store.History("missing"); turns != nil {
		t.Fatalf("expected nil history for unknown session, got %+v", turns)
	}
	store.mu.Lock()
	n := len(store.sessions)
	store.mu.Unlock()
	if n != 0 {
		t.Fatalf("History created a session, store has %d sessions", n)
	}
}

func TestHistoryReturnsCopy(t *testing.T) {
	store := NewStore(10)
	store.Append("s1", "question", "answer")

	turns := store.History("s1")
	turns[0].Answer = "mutated"

	if got := store.History("s1"); got[0].Answer != "answer" {
		t.Fatalf("caller mutation leaked into store: %q", got[0].Answer)
	}
}

func TestConcurrentAppends(t *testing.T) {
	store := NewStore(1000)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				store.Append("shared", fmt.Sprintf("q-%d-%d", n, j), "a")
				store.Append(fmt.Sprintf("own-%d", n), "q", "a")
			}
		}(i)
	}
	wg.Wait()

	if got := len(store.History("shared")); got != 1000 {
		t.Fatalf("expected 1000 turns in shared session, got %d", got)
	}
	for i := 0; i < 20; i++ {
		if got := len(store.History(fmt.Sprintf("own-%d", i))); got != 50 {
			t.Fatalf("expected 50 turns in own-%d, got %d", i, got)
		}
	}
}
