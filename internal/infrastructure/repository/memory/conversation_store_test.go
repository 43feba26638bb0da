package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/kirillkom/document-qa-bot/internal/core/domain"
)

func TestConversationStoreAppendAndReset(t *testing.T) {
	ctx := context.Background()
	store := NewConversationStore()

	for i := range 3 {
		ok, err := store.Append(ctx, 0, domain.ConversationTurn{Question: fmt.Sprintf("q%d", i), Answer: "a"})
		if err != nil || !ok {
			t.Fatalf("Append() = %v, %v", ok, err)
		}
	}
	snap, _ := store.Snapshot(ctx)
	turns := snap.Turns
	if len(turns) != 3 || turns[0].Question != "q0" || turns[2].Question != "q2" {
		t.Fatalf("unexpected turns %+v", turns)
	}
	if turns[0].CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be set")
	}

	turns[0].Question = "mutated"
	again, _ := store.Snapshot(ctx)
	if again.Turns[0].Question != "q0" {
		t.Fatal("Snapshot must return a copy")
	}

	if err := store.Reset(ctx); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if err := store.Reset(ctx); err != nil {
		t.Fatalf("second Reset() error = %v", err)
	}
	snap, _ = store.Snapshot(ctx)
	if len(snap.Turns) != 0 {
		t.Fatalf("expected empty history, got %d", len(snap.Turns))
	}
	if snap.Generation != 2 {
		t.Fatalf("expected generation 2 after two resets, got %d", snap.Generation)
	}
}

func TestConversationStoreDropsAppendFromPreviousGeneration(t *testing.T) {
	ctx := context.Background()
	store := NewConversationStore()

	before, _ := store.Snapshot(ctx)
	if err := store.Reset(ctx); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	ok, err := store.Append(ctx, before.Generation, domain.ConversationTurn{Question: "stale", Answer: "a"})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if ok {
		t.Fatal("append from a previous generation must be dropped")
	}
	after, _ := store.Snapshot(ctx)
	if len(after.Turns) != 0 {
		t.Fatalf("new session must stay empty, got %+v", after.Turns)
	}

	ok, err = store.Append(ctx, after.Generation, domain.ConversationTurn{Question: "fresh", Answer: "a"})
	if err != nil || !ok {
		t.Fatalf("append in current generation = %v, %v", ok, err)
	}
}

func TestConversationStoreConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	store := NewConversationStore()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Append(ctx, 0, domain.ConversationTurn{Question: fmt.Sprintf("q%d", i)})
		}()
	}
	wg.Wait()

	snap, _ := store.Snapshot(ctx)
	if len(snap.Turns) != 50 {
		t.Fatalf("expected 50 turns, got %d", len(snap.Turns))
	}
}
