package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/document-qa-bot/internal/core/domain"
)

// UnavailableQueryService stands in for the pipeline when startup failed.
// Well-formed requests fail with ErrUnavailable; empty questions are still
// rejected as invalid input.
type UnavailableQueryService struct {
	cause error
}

func NewUnavailableQueryService(cause error) *UnavailableQueryService {
	return &UnavailableQueryService{cause: cause}
}

func (s *UnavailableQueryService) Ready() bool { return false }

func (s *UnavailableQueryService) Answer(_ context.Context, question string) (*domain.QueryResponse, error) {
	if err := validateQuestion(question); err != nil {
		return nil, err
	}
	return nil, s.unavailable("answer")
}

func (s *UnavailableQueryService) History(context.Context) ([]domain.ConversationTurn, error) {
	return nil, s.unavailable("history")
}

func (s *UnavailableQueryService) ResetConversation(context.Context) error {
	return s.unavailable("reset conversation")
}

func (s *UnavailableQueryService) unavailable(operation string) error {
	if s.cause == nil {
		return domain.WrapError(domain.ErrUnavailable, operation, fmt.Errorf("QA chain not initialized"))
	}
	return fmt.Errorf("%s: %w: QA chain not initialized: %v", operation, domain.ErrUnavailable, s.cause)
}
