// Package chromem stores chunk vectors in an embedded, file-persisted
// chromem-go database.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"

	"github.com/kirillkom/document-qa-bot/internal/core/domain"
	"github.com/kirillkom/document-qa-bot/internal/infrastructure/vector"
)

const (
	metaSource     = "source"
	metaPage       = "page"
	metaChunkIndex = "chunk_index"
	metaOffset     = "offset"
)

type Index struct {
	collection *chromem.Collection
}

// Open loads an existing index and fails when the directory or collection
// is missing.
func Open(dir, collection string, compress bool) (*Index, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.WrapError(domain.ErrConfiguration, "open vector index", fmt.Errorf("index directory %s does not exist; run ingest -init", dir))
	}
	if err != nil {
		return nil, fmt.Errorf("stat index directory: %w", err)
	}
	if !info.IsDir() {
		return nil, domain.WrapError(domain.ErrConfiguration, "open vector index", fmt.Errorf("%s is not a directory", dir))
	}

	db, err := chromem.NewPersistentDB(dir, compress)
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "open vector index", err)
	}
	c := db.GetCollection(collection, nil)
	if c == nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "open vector index", fmt.Errorf("collection %q not found in %s; run ingest -init", collection, dir))
	}
	return &Index{collection: c}, nil
}

// Create opens the index, creating the directory and collection if needed.
func Create(dir, collection string, compress bool) (*Index, error) {
	db, err := chromem.NewPersistentDB(dir, compress)
	if err != nil {
		return nil, fmt.Errorf("create vector index: %w", err)
	}
	c, err := db.GetOrCreateCollection(collection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection %q: %w", collection, err)
	}
	return &Index{collection: c}, nil
}

func (i *Index) Count() int {
	return i.collection.Count()
}

func (i *Index) IndexChunks(ctx context.Context, chunks []domain.DocumentChunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks/vectors mismatch: %d chunks, %d vectors", len(chunks), len(vectors))
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for idx, chunk := range chunks {
		docs = append(docs, chromem.Document{
			ID:        vector.PointID(chunk),
			Content:   chunk.Text,
			Embedding: vectors[idx],
			Metadata: map[string]string{
				metaSource:     chunk.Source,
				metaPage:       strconv.Itoa(chunk.Page),
				metaChunkIndex: strconv.Itoa(chunk.ChunkIndex),
				metaOffset:     strconv.Itoa(chunk.Offset),
			},
		})
	}
	if err := i.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}
	return nil
}

// Search returns up to limit chunks by cosine similarity. Asking for more
// than the stored count returns everything.
func (i *Index) Search(ctx context.Context, queryVector []float32, limit int) ([]domain.RetrievedChunk, error) {
	n := min(limit, i.collection.Count())
	if n <= 0 {
		return []domain.RetrievedChunk{}, nil
	}

	results, err := i.collection.QueryEmbedding(ctx, queryVector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	out := make([]domain.RetrievedChunk, 0, len(results))
	for _, r := range results {
		out = append(out, domain.RetrievedChunk{
			Source:     r.Metadata[metaSource],
			Page:       atoi(r.Metadata[metaPage]),
			ChunkIndex: atoi(r.Metadata[metaChunkIndex]),
			Text:       r.Content,
			Score:      float64(r.Similarity),
		})
	}
	return out, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
