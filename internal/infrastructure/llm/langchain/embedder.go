package langchain

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"

	"github.com/kirillkom/document-qa-bot/internal/infrastructure/resilience"
)

type Embedder struct {
	embedder embeddings.Embedder
	executor *resilience.Executor
}

func NewEmbedder(client embeddings.EmbedderClient, executor *resilience.Executor) (*Embedder, error) {
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(false))
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return &Embedder{embedder: embedder, executor: executor}, nil
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return resilience.Do(ctx, e.executor, "llm.embed_documents", func(ctx context.Context) ([][]float32, error) {
		vectors, err := e.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed documents: %w", err)
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("embed documents: got %d vectors for %d texts", len(vectors), len(texts))
		}
		return vectors, nil
	}, resilience.ClassifyTransport)
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return resilience.Do(ctx, e.executor, "llm.embed_query", func(ctx context.Context) ([]float32, error) {
		vector, err := e.embedder.EmbedQuery(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		if len(vector) == 0 {
			return nil, fmt.Errorf("embed query: empty vector")
		}
		return vector, nil
	}, resilience.ClassifyTransport)
}
