package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/document-qa-bot/internal/core/domain"
	"github.com/kirillkom/document-qa-bot/internal/core/ports"
)

const defaultTopK = 5

type QueryOptions struct {
	TopK int
	// HistoryWindow caps how many trailing turns go into the prompt; 0 keeps all.
	HistoryWindow int
}

type QueryUseCase struct {
	embedder  ports.Embedder
	index     ports.VectorIndex
	generator ports.AnswerGenerator
	memory    ports.ConversationMemory
	opts      QueryOptions
	now       func() time.Time
}

func NewQueryUseCase(
	embedder ports.Embedder,
	index ports.VectorIndex,
	generator ports.AnswerGenerator,
	memory ports.ConversationMemory,
	opts QueryOptions,
) *QueryUseCase {
	if opts.TopK <= 0 {
		opts.TopK = defaultTopK
	}
	if opts.HistoryWindow < 0 {
		opts.HistoryWindow = 0
	}
	return &QueryUseCase{
		embedder:  embedder,
		index:     index,
		generator: generator,
		memory:    memory,
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (uc *QueryUseCase) Ready() bool { return true }

func (uc *QueryUseCase) Answer(ctx context.Context, question string) (*domain.QueryResponse, error) {
	if err := validateQuestion(question); err != nil {
		return nil, err
	}

	queryVector, err := uc.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, upstream("embed question", err)
	}

	chunks, err := uc.index.Search(ctx, queryVector, uc.opts.TopK)
	if err != nil {
		return nil, upstream("search index", err)
	}

	session, err := uc.memory.Snapshot(ctx)
	if err != nil {
		return nil, upstream("read conversation", err)
	}

	prompt := domain.BuildPrompt(question, chunks, domain.LastTurns(session.Turns, uc.opts.HistoryWindow))
	answer, err := uc.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, upstream("generate answer", err)
	}

	// A reset while the answer was generated wins: the answer still goes
	// back to the caller but is not recorded in the new session.
	if _, err := uc.memory.Append(ctx, session.Generation, domain.ConversationTurn{
		Question:  question,
		Answer:    answer,
		CreatedAt: uc.now(),
	}); err != nil {
		return nil, upstream("append conversation", err)
	}

	sources := make([]domain.SourceRef, 0, len(chunks))
	for _, chunk := range chunks {
		sources = append(sources, domain.SourceRefFor(chunk))
	}

	return &domain.QueryResponse{
		Answer:  answer,
		Sources: sources,
	}, nil
}

func (uc *QueryUseCase) History(ctx context.Context) ([]domain.ConversationTurn, error) {
	session, err := uc.memory.Snapshot(ctx)
	if err != nil {
		return nil, upstream("read conversation", err)
	}
	return session.Turns, nil
}

func (uc *QueryUseCase) ResetConversation(ctx context.Context) error {
	if err := uc.memory.Reset(ctx); err != nil {
		return upstream("reset conversation", err)
	}
	return nil
}

func validateQuestion(question string) error {
	if strings.TrimSpace(question) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "validate question", domain.ErrEmptyQuestion)
	}
	return nil
}

func upstream(operation string, err error) error {
	if domain.IsKind(err, domain.ErrUpstreamFailure) {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return domain.WrapError(domain.ErrUpstreamFailure, operation, err)
}
