package chromem

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kirillkom/document-qa-bot/internal/core/domain"
)

func sampleChunks() ([]domain.DocumentChunk, [][]float32) {
	chunks := []domain.DocumentChunk{
		{Text: "warranty lasts two years", Source: "manual.pdf", Page: 3, Offset: 0, ChunkIndex: 0},
		{Text: "returns within 30 days", Source: "policy.txt", Offset: 0, ChunkIndex: 0},
		{Text: "warranty excludes water damage", Source: "manual.pdf", Page: 3, Offset: 800, ChunkIndex: 1},
	}
	vectors := [][]float32{{1, 0}, {0, 1}, {0.9, 0.1}}
	return chunks, vectors
}

func TestIndexAndSearchRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "index")

	idx, err := Create(dir, "documents", false)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	chunks, vectors := sampleChunks()
	if err := idx.IndexChunks(ctx, chunks, vectors); err != nil {
		t.Fatalf("IndexChunks() error = %v", err)
	}

	reopened, err := Open(dir, "documents", false)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	got, err := reopened.Search(ctx, []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Text != "warranty lasts two years" || got[0].Source != "manual.pdf" || got[0].Page != 3 {
		t.Fatalf("unexpected top result %+v", got[0])
	}
	if got[1].ChunkIndex != 1 {
		t.Fatalf("expected second result to be chunk 1, got %+v", got[1])
	}
	if got[0].Score < got[1].Score {
		t.Fatalf("results not in rank order: %v then %v", got[0].Score, got[1].Score)
	}
}

func TestSearchClampsLimitToCount(t *testing.T) {
	ctx := context.Background()
	idx, err := Create(t.TempDir(), "documents", false)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := idx.Search(ctx, []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("Search() on empty index error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no results, got %d", len(got))
	}

	chunks, vectors := sampleChunks()
	if err := idx.IndexChunks(ctx, chunks, vectors); err != nil {
		t.Fatalf("IndexChunks() error = %v", err)
	}
	got, err = idx.Search(ctx, []float32{0, 1}, 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected all 3 chunks, got %d", len(got))
	}
}

func TestReindexingSameChunkReplaces(t *testing.T) {
	ctx := context.Background()
	idx, err := Create(t.TempDir(), "documents", false)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	chunks, vectors := sampleChunks()
	for range 2 {
		if err := idx.IndexChunks(ctx, chunks, vectors); err != nil {
			t.Fatalf("IndexChunks() error = %v", err)
		}
	}
	if idx.Count() != 3 {
		t.Fatalf("expected 3 stored chunks, got %d", idx.Count())
	}
}

func TestIndexChunksRejectsMismatch(t *testing.T) {
	idx, err := Create(t.TempDir(), "documents", false)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	chunks, _ := sampleChunks()
	if err := idx.IndexChunks(context.Background(), chunks, [][]float32{{1, 0}}); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestOpenFailsFastWhenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent"), "documents", false)
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error for missing dir, got %v", err)
	}

	_, err = Open(t.TempDir(), "documents", false)
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error for missing collection, got %v", err)
	}
}
