package ports

import (
	"context"
	"io"

	"github.com/kirillkom/document-qa-bot/internal/core/domain"
)

// QueryService is the inbound contract for conversational question answering.
type QueryService interface {
	Ready() bool
	Answer(ctx context.Context, question string) (*domain.QueryResponse, error)
	History(ctx context.Context) ([]domain.ConversationTurn, error)
	ResetConversation(ctx context.Context) error
}

// DocumentIngestor is the inbound contract for loading files into the index.
type DocumentIngestor interface {
	IngestFile(ctx context.Context, path string) (int, error)
	IngestFileAs(ctx context.Context, path, source string) (int, error)
	IngestPaths(ctx context.Context, paths []string) (domain.IngestReport, error)
}

// DocumentEnqueuer hands files to the asynchronous ingestion worker.
type DocumentEnqueuer interface {
	Enqueue(ctx context.Context, filename string, body io.Reader) (string, error)
}

// StoredDocumentIngestor indexes a file handed over through the ingestion
// queue.
type StoredDocumentIngestor interface {
	IngestStored(ctx context.Context, req domain.IngestRequest) (int, error)
}
