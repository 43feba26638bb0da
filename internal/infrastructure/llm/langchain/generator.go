package langchain

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/kirillkom/document-qa-bot/internal/core/domain"
	"github.com/kirillkom/document-qa-bot/internal/infrastructure/resilience"
)

type Generator struct {
	model    llms.Model
	executor *resilience.Executor
	timeout  time.Duration
}

type GeneratorOption func(*Generator)

func WithGeneratorExecutor(executor *resilience.Executor) GeneratorOption {
	return func(g *Generator) { g.executor = executor }
}

// WithTimeout bounds each generation call, retries included.
func WithTimeout(timeout time.Duration) GeneratorOption {
	return func(g *Generator) { g.timeout = timeout }
}

func NewGenerator(model llms.Model, opts ...GeneratorOption) *Generator {
	g := &Generator{model: model}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) Generate(ctx context.Context, prompt domain.Prompt) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	messages := messageContents(prompt)
	return resilience.Do(ctx, g.executor, "llm.generate", func(ctx context.Context) (string, error) {
		resp, err := g.model.GenerateContent(ctx, messages)
		if err != nil {
			return "", fmt.Errorf("generate content: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("generate content: empty response")
		}
		return resp.Choices[0].Content, nil
	}, resilience.ClassifyTransport)
}

func messageContents(prompt domain.Prompt) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, 2+2*len(prompt.History))
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, prompt.System))
	for _, turn := range prompt.History {
		messages = append(messages,
			llms.TextParts(llms.ChatMessageTypeHuman, turn.Question),
			llms.TextParts(llms.ChatMessageTypeAI, turn.Answer),
		)
	}
	return append(messages, llms.TextParts(llms.ChatMessageTypeHuman, prompt.Question))
}
