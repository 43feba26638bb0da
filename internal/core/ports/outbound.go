package ports

import (
	"context"
	"io"

	"github.com/kirillkom/document-qa-bot/internal/core/domain"
)

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex performs nearest-neighbour search. Results are in rank order.
type VectorIndex interface {
	Search(ctx context.Context, queryVector []float32, limit int) ([]domain.RetrievedChunk, error)
}

// VectorIndexWriter stores chunk vectors. Re-indexing a chunk with the same
// (source, page, offset) replaces the previous entry.
type VectorIndexWriter interface {
	IndexChunks(ctx context.Context, chunks []domain.DocumentChunk, vectors [][]float32) error
}

// AnswerGenerator makes the single LLM call for a prompt.
type AnswerGenerator interface {
	Generate(ctx context.Context, prompt domain.Prompt) (string, error)
}

// ConversationMemory is the append-only transcript of one session.
// Snapshot reads the turns together with the session generation; Append
// only records a turn while that generation is current and reports whether
// it did. Reset discards every turn and starts a new generation.
type ConversationMemory interface {
	Snapshot(ctx context.Context) (domain.ConversationSnapshot, error)
	Append(ctx context.Context, generation int64, turn domain.ConversationTurn) (bool, error)
	Reset(ctx context.Context) error
}

// DocumentLoader turns a file into raw documents.
type DocumentLoader interface {
	Load(ctx context.Context, path string) ([]domain.RawDocument, error)
}

// Chunker splits raw documents into overlapping chunks.
type Chunker interface {
	Split(doc domain.RawDocument) []domain.DocumentChunk
}

// ObjectStorage stores source documents for the ingestion worker.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Resolve(ctx context.Context, key string) (string, error)
}

// IngestQueue publishes and consumes ingestion requests.
type IngestQueue interface {
	PublishIngest(ctx context.Context, req domain.IngestRequest) error
	SubscribeIngest(ctx context.Context, handler func(context.Context, domain.IngestRequest) error) error
}
