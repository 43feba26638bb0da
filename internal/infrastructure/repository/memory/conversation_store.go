// Package memory keeps the conversation transcript in process memory.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/kirillkom/document-qa-bot/internal/core/domain"
)

type ConversationStore struct {
	mu         sync.RWMutex
	generation int64
	turns      []domain.ConversationTurn
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{}
}

// Snapshot returns a copy of the turns, oldest first.
func (s *ConversationStore) Snapshot(_ context.Context) (domain.ConversationSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ConversationTurn, len(s.turns))
	copy(out, s.turns)
	return domain.ConversationSnapshot{Generation: s.generation, Turns: out}, nil
}

// Append drops the turn when a reset happened after generation was read.
func (s *ConversationStore) Append(_ context.Context, generation int64, turn domain.ConversationTurn) (bool, error) {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if generation != s.generation {
		return false, nil
	}
	s.turns = append(s.turns, turn)
	return true, nil
}

func (s *ConversationStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
	s.generation++
	return nil
}
