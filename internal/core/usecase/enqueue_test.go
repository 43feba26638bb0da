package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kirillkom/document-qa-bot/internal/core/domain"
)

type storageFake struct {
	saved map[string]string
	err   error
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	body, _ := io.ReadAll(data)
	if f.saved == nil {
		f.saved = map[string]string{}
	}
	f.saved[key] = string(body)
	return nil
}

func (f *storageFake) Resolve(_ context.Context, key string) (string, error) {
	return "/storage/" + key, nil
}

type queueFake struct {
	published []domain.IngestRequest
	err       error
}

func (f *queueFake) PublishIngest(_ context.Context, req domain.IngestRequest) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, req)
	return nil
}

func (f *queueFake) SubscribeIngest(context.Context, func(context.Context, domain.IngestRequest) error) error {
	return nil
}

type fileIngestorFake struct {
	paths   []string
	sources []string
}

func (f *fileIngestorFake) IngestFile(ctx context.Context, path string) (int, error) {
	return f.IngestFileAs(ctx, path, "")
}

func (f *fileIngestorFake) IngestFileAs(_ context.Context, path, source string) (int, error) {
	f.paths = append(f.paths, path)
	f.sources = append(f.sources, source)
	return 1, nil
}

func (f *fileIngestorFake) IngestPaths(context.Context, []string) (domain.IngestReport, error) {
	return domain.IngestReport{}, nil
}

func TestEnqueueSavesThenPublishes(t *testing.T) {
	storage := &storageFake{}
	queue := &queueFake{}
	uc := NewEnqueueDocumentUseCase(storage, queue)

	key, err := uc.Enqueue(context.Background(), "My Report (final).pdf", bytes.NewBufferString("pdf-bytes"))
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if !strings.HasSuffix(key, "_My_Report__final_.pdf") {
		t.Fatalf("unexpected key %q", key)
	}
	if storage.saved[key] != "pdf-bytes" {
		t.Fatalf("expected body stored under key")
	}
	if len(queue.published) != 1 || queue.published[0].StorageKey != key {
		t.Fatalf("expected key published, got %+v", queue.published)
	}
	if got := queue.published[0].Source; got != "My Report (final).pdf" {
		t.Fatalf("expected original file name as source, got %q", got)
	}
}

func TestQueuedIngestUsesSameSourceAsDirectIngest(t *testing.T) {
	storage := &storageFake{}
	queue := &queueFake{}
	path := filepath.Join("docs", "My Policy.pdf")

	if _, err := NewEnqueueDocumentUseCase(storage, queue).Enqueue(context.Background(), path, strings.NewReader("pdf")); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	ingestor := &fileIngestorFake{}
	n, err := NewStoredIngestUseCase(storage, ingestor).IngestStored(context.Background(), queue.published[0])
	if err != nil || n != 1 {
		t.Fatalf("IngestStored() = %d, %v", n, err)
	}
	if ingestor.sources[0] != filepath.Base(path) {
		t.Fatalf("queued source %q differs from direct source %q", ingestor.sources[0], filepath.Base(path))
	}
	if ingestor.paths[0] != "/storage/"+queue.published[0].StorageKey {
		t.Fatalf("unexpected resolved path %q", ingestor.paths[0])
	}
}

func TestIngestStoredFallsBackToStorageKey(t *testing.T) {
	ingestor := &fileIngestorFake{}
	key := "0f8fad5b-d9cb-469f-a165-70867728950e_notes.txt"

	if _, err := NewStoredIngestUseCase(&storageFake{}, ingestor).IngestStored(context.Background(), domain.IngestRequest{StorageKey: key}); err != nil {
		t.Fatalf("IngestStored() error = %v", err)
	}
	if ingestor.sources[0] != "notes.txt" {
		t.Fatalf("unexpected fallback source %q", ingestor.sources[0])
	}
}

func TestEnqueueDoesNotPublishWhenStorageFails(t *testing.T) {
	queue := &queueFake{}
	uc := NewEnqueueDocumentUseCase(&storageFake{err: errors.New("disk full")}, queue)

	if _, err := uc.Enqueue(context.Background(), "a.txt", strings.NewReader("x")); err == nil {
		t.Fatalf("expected error")
	}
	if len(queue.published) != 0 {
		t.Fatalf("expected nothing published")
	}
}

func TestEnqueueRejectsEmptyFilename(t *testing.T) {
	uc := NewEnqueueDocumentUseCase(&storageFake{}, &queueFake{})

	_, err := uc.Enqueue(context.Background(), " ", strings.NewReader("x"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSourceFromStorageKeyWithoutPrefix(t *testing.T) {
	if got := SourceFromStorageKey("plain.txt"); got != "plain.txt" {
		t.Fatalf("unexpected source %q", got)
	}
}
