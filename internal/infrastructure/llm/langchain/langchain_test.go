package langchain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/kirillkom/document-qa-bot/internal/core/domain"
	"github.com/kirillkom/document-qa-bot/internal/infrastructure/resilience"
)

type modelFake struct {
	messages []llms.MessageContent
	answers  []string
	errs     []error
	calls    int
}

func (m *modelFake) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	idx := m.calls
	m.calls++
	m.messages = messages
	if idx < len(m.errs) && m.errs[idx] != nil {
		return nil, m.errs[idx]
	}
	if len(m.answers) == 0 {
		return &llms.ContentResponse{}, nil
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.answers[0]}}}, nil
}

func (m *modelFake) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

type embedClientFake struct {
	calls [][]string
	err   error
}

func (e *embedClientFake) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	e.calls = append(e.calls, texts)
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 1}
	}
	return out, nil
}

func textOf(t *testing.T, msg llms.MessageContent) string {
	t.Helper()
	if len(msg.Parts) != 1 {
		t.Fatalf("expected one part, got %d", len(msg.Parts))
	}
	part, ok := msg.Parts[0].(llms.TextContent)
	if !ok {
		t.Fatalf("expected text part, got %T", msg.Parts[0])
	}
	return part.Text
}

func TestGeneratorMapsPromptToMessages(t *testing.T) {
	model := &modelFake{answers: []string{"It lasts two years."}}
	gen := NewGenerator(model)

	prompt := domain.Prompt{
		System:   "system text",
		History:  []domain.ConversationTurn{{Question: "q1", Answer: "a1"}},
		Question: "q2",
	}
	answer, err := gen.Generate(context.Background(), prompt)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if answer != "It lasts two years." {
		t.Fatalf("unexpected answer %q", answer)
	}

	wantRoles := []llms.ChatMessageType{llms.ChatMessageTypeSystem, llms.ChatMessageTypeHuman, llms.ChatMessageTypeAI, llms.ChatMessageTypeHuman}
	wantTexts := []string{"system text", "q1", "a1", "q2"}
	if len(model.messages) != len(wantRoles) {
		t.Fatalf("expected %d messages, got %d", len(wantRoles), len(model.messages))
	}
	for i, msg := range model.messages {
		if msg.Role != wantRoles[i] {
			t.Fatalf("message %d role = %s, want %s", i, msg.Role, wantRoles[i])
		}
		if got := textOf(t, msg); got != wantTexts[i] {
			t.Fatalf("message %d text = %q, want %q", i, got, wantTexts[i])
		}
	}
}

func TestGeneratorEmptyChoicesIsError(t *testing.T) {
	gen := NewGenerator(&modelFake{})
	if _, err := gen.Generate(context.Background(), domain.Prompt{Question: "q"}); err == nil {
		t.Fatal("expected error on empty response")
	}
}

func TestGeneratorRetriesRateLimit(t *testing.T) {
	model := &modelFake{
		answers: []string{"ok"},
		errs:    []error{errors.New("googleapi: Error 429: resource exhausted")},
	}
	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     1,
	})
	gen := NewGenerator(model, WithGeneratorExecutor(executor), WithTimeout(time.Second))

	answer, err := gen.Generate(context.Background(), domain.Prompt{Question: "q"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if answer != "ok" || model.calls != 2 {
		t.Fatalf("expected retry then ok, got answer=%q calls=%d", answer, model.calls)
	}
}

func TestEmbedderDocumentsAndQuery(t *testing.T) {
	client := &embedClientFake{}
	embedder, err := NewEmbedder(client, nil)
	if err != nil {
		t.Fatalf("NewEmbedder() error = %v", err)
	}

	vectors, err := embedder.Embed(context.Background(), []string{"a", "bbb"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 2 || vectors[1][0] != 3 {
		t.Fatalf("unexpected vectors %v", vectors)
	}

	vector, err := embedder.EmbedQuery(context.Background(), "query")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(vector) != 2 || vector[0] != 5 {
		t.Fatalf("unexpected query vector %v", vector)
	}
}

func TestEmbedderNoTextsSkipsClient(t *testing.T) {
	client := &embedClientFake{}
	embedder, err := NewEmbedder(client, nil)
	if err != nil {
		t.Fatalf("NewEmbedder() error = %v", err)
	}
	vectors, err := embedder.Embed(context.Background(), nil)
	if err != nil || vectors != nil {
		t.Fatalf("expected nil result, got %v, %v", vectors, err)
	}
	if len(client.calls) != 0 {
		t.Fatalf("client must not be called, got %d calls", len(client.calls))
	}
}

func TestEmbedderPropagatesClientError(t *testing.T) {
	embedder, err := NewEmbedder(&embedClientFake{err: errors.New("invalid api key")}, nil)
	if err != nil {
		t.Fatalf("NewEmbedder() error = %v", err)
	}
	if _, err := embedder.EmbedQuery(context.Background(), "q"); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewModelRequiresAPIKey(t *testing.T) {
	_, err := NewModel(context.Background(), Settings{Provider: ProviderGemini})
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestNewModelRejectsUnknownProvider(t *testing.T) {
	_, err := NewModel(context.Background(), Settings{Provider: "mystery", APIKey: "k"})
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
