// Package langchain adapts langchaingo models to the answer generator and
// embedder ports.
package langchain

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/kirillkom/document-qa-bot/internal/core/domain"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Model is a chat model that can also embed text.
type Model interface {
	llms.Model
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

type Settings struct {
	Provider   string
	APIKey     string
	BaseURL    string
	ChatModel  string
	EmbedModel string
}

// NewModel builds the provider client. Missing credentials are configuration
// errors.
func NewModel(ctx context.Context, s Settings) (Model, error) {
	if strings.TrimSpace(s.APIKey) == "" {
		return nil, domain.WrapError(domain.ErrConfiguration, "create llm", fmt.Errorf("api key for provider %q is empty", s.Provider))
	}

	switch s.Provider {
	case ProviderGemini:
		model, err := googleai.New(ctx,
			googleai.WithAPIKey(s.APIKey),
			googleai.WithDefaultModel(s.ChatModel),
			googleai.WithDefaultEmbeddingModel(s.EmbedModel),
		)
		if err != nil {
			return nil, domain.WrapError(domain.ErrConfiguration, "create gemini client", err)
		}
		return model, nil
	case ProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(s.APIKey),
			openai.WithModel(s.ChatModel),
			openai.WithEmbeddingModel(s.EmbedModel),
		}
		if s.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(s.BaseURL))
		}
		model, err := openai.New(opts...)
		if err != nil {
			return nil, domain.WrapError(domain.ErrConfiguration, "create openai client", err)
		}
		return model, nil
	default:
		return nil, domain.WrapError(domain.ErrConfiguration, "create llm", fmt.Errorf("unsupported provider %q", s.Provider))
	}
}
