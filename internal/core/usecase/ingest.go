package usecase

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kirillkom/document-qa-bot/internal/core/domain"
	"github.com/kirillkom/document-qa-bot/internal/core/ports"
)

const defaultEmbedBatchSize = 32

type IngestDocumentUseCase struct {
	loader    ports.DocumentLoader
	chunker   ports.Chunker
	embedder  ports.Embedder
	index     ports.VectorIndexWriter
	batchSize int
	logger    *slog.Logger
}

func NewIngestDocumentUseCase(
	loader ports.DocumentLoader,
	chunker ports.Chunker,
	embedder ports.Embedder,
	index ports.VectorIndexWriter,
	batchSize int,
	logger *slog.Logger,
) *IngestDocumentUseCase {
	if batchSize <= 0 {
		batchSize = defaultEmbedBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestDocumentUseCase{
		loader:    loader,
		chunker:   chunker,
		embedder:  embedder,
		index:     index,
		batchSize: batchSize,
		logger:    logger,
	}
}

// IngestFile loads, chunks, embeds and indexes one file. It returns the
// number of indexed chunks.
func (uc *IngestDocumentUseCase) IngestFile(ctx context.Context, path string) (int, error) {
	return uc.IngestFileAs(ctx, path, "")
}

// IngestFileAs is IngestFile with the chunk source overridden, for files kept
// under a storage key instead of their original name.
func (uc *IngestDocumentUseCase) IngestFileAs(ctx context.Context, path, source string) (int, error) {
	docs, err := uc.load(ctx, path)
	if err != nil {
		return 0, err
	}
	if source != "" {
		for i := range docs {
			docs[i].Source = source
		}
	}

	chunks, err := uc.chunk(docs)
	if err != nil {
		return 0, err
	}

	for start := 0; start < len(chunks); start += uc.batchSize {
		end := min(start+uc.batchSize, len(chunks))
		batch := chunks[start:end]

		vectors, err := uc.embed(ctx, batch)
		if err != nil {
			return start, err
		}
		if err := uc.indexBatch(ctx, batch, vectors); err != nil {
			return start, err
		}
	}
	return len(chunks), nil
}

// IngestPaths ingests files and directories. Per-file failures are logged
// and counted; the run continues with the next file.
func (uc *IngestDocumentUseCase) IngestPaths(ctx context.Context, paths []string) (domain.IngestReport, error) {
	var report domain.IngestReport

	files, err := ExpandPaths(paths)
	if err != nil {
		return report, err
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		n, err := uc.IngestFile(ctx, file)
		if err != nil {
			report.Failed++
			uc.logger.Warn("ingest_file_failed", "path", file, "error", err)
			continue
		}
		report.Files++
		report.Chunks += n
		uc.logger.Info("ingest_file_done", "path", file, "chunks", n)
	}
	return report, nil
}

func (uc *IngestDocumentUseCase) load(ctx context.Context, path string) ([]domain.RawDocument, error) {
	docs, err := uc.loader.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}
	return docs, nil
}

func (uc *IngestDocumentUseCase) chunk(docs []domain.RawDocument) ([]domain.DocumentChunk, error) {
	var chunks []domain.DocumentChunk
	for _, doc := range docs {
		chunks = append(chunks, uc.chunker.Split(doc)...)
	}
	if len(chunks) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("chunking produced zero chunks"))
	}
	return chunks, nil
}

func (uc *IngestDocumentUseCase) embed(ctx context.Context, chunks []domain.DocumentChunk) ([][]float32, error) {
	texts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		texts = append(texts, chunk.Text)
	}

	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, upstream("embed chunks", err)
	}
	if len(vectors) != len(chunks) {
		return nil, domain.WrapError(
			domain.ErrUpstreamFailure,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}
	return vectors, nil
}

func (uc *IngestDocumentUseCase) indexBatch(ctx context.Context, chunks []domain.DocumentChunk, vectors [][]float32) error {
	if err := uc.index.IndexChunks(ctx, chunks, vectors); err != nil {
		return upstream("index chunks", err)
	}
	return nil
}

// ExpandPaths lists the files under paths in lexical order, skipping hidden
// entries inside directories.
func ExpandPaths(paths []string) ([]string, error) {
	var files []string
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "stat path", err)
		}
		if !info.IsDir() {
			files = append(files, root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path != root && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.IsDir() {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	sort.Strings(files)
	return files, nil
}
