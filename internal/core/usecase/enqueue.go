package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/kirillkom/document-qa-bot/internal/core/domain"
	"github.com/kirillkom/document-qa-bot/internal/core/ports"
)

type EnqueueDocumentUseCase struct {
	storage ports.ObjectStorage
	queue   ports.IngestQueue
}

func NewEnqueueDocumentUseCase(storage ports.ObjectStorage, queue ports.IngestQueue) *EnqueueDocumentUseCase {
	return &EnqueueDocumentUseCase{
		storage: storage,
		queue:   queue,
	}
}

// Enqueue copies the file into shared storage and publishes its key for the
// ingestion worker. The storage key keeps the original extension so the
// worker can pick a loader; the unsanitized base name travels with it as the
// chunk source.
func (uc *EnqueueDocumentUseCase) Enqueue(ctx context.Context, filename string, body io.Reader) (string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "enqueue", fmt.Errorf("filename is required"))
	}
	storageKey := fmt.Sprintf("%s_%s", uuid.NewString(), sanitizeFilename(filename))

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return "", fmt.Errorf("save to object storage: %w", err)
	}
	req := domain.IngestRequest{StorageKey: storageKey, Source: filepath.Base(filename)}
	if err := uc.queue.PublishIngest(ctx, req); err != nil {
		return "", fmt.Errorf("publish ingestion request: %w", err)
	}
	return storageKey, nil
}

// SourceFromStorageKey approximates the original file name from a storage
// key, for requests published without a source.
func SourceFromStorageKey(key string) string {
	base := filepath.Base(key)
	if _, rest, ok := strings.Cut(base, "_"); ok && len(base)-len(rest) == 37 {
		return rest
	}
	return base
}

type StoredIngestUseCase struct {
	storage  ports.ObjectStorage
	ingestor ports.DocumentIngestor
}

func NewStoredIngestUseCase(storage ports.ObjectStorage, ingestor ports.DocumentIngestor) *StoredIngestUseCase {
	return &StoredIngestUseCase{
		storage:  storage,
		ingestor: ingestor,
	}
}

// IngestStored resolves the storage key to a local file and indexes it under
// the request's source.
func (uc *StoredIngestUseCase) IngestStored(ctx context.Context, req domain.IngestRequest) (int, error) {
	path, err := uc.storage.Resolve(ctx, req.StorageKey)
	if err != nil {
		return 0, err
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = SourceFromStorageKey(req.StorageKey)
	}
	return uc.ingestor.IngestFileAs(ctx, path, source)
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "document.bin"
	}
	return base
}
