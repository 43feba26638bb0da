package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/kirillkom/document-qa-bot/internal/core/domain"
)

func TestIndexChunksEnsuresCollectionOncePerVectorSize(t *testing.T) {
	var ensureCalls int32
	var ids []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/docs":
			atomic.AddInt32(&ensureCalls, 1)
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/docs/points":
			var body struct {
				Points []struct {
					ID      string         `json:"id"`
					Payload map[string]any `json:"payload"`
				} `json:"points"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode upsert: %v", err)
			}
			for _, p := range body.Points {
				ids = append(ids, p.ID)
				if p.Payload["source"] != "a.txt" {
					t.Errorf("unexpected payload %v", p.Payload)
				}
			}
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, "docs", nil)
	chunks := []domain.DocumentChunk{
		{Text: "a", Source: "a.txt", Offset: 0, ChunkIndex: 0},
		{Text: "b", Source: "a.txt", Offset: 1, ChunkIndex: 1},
	}
	vectors := [][]float32{{0.1, 0.2}, {0.3, 0.4}}

	if err := client.IndexChunks(context.Background(), chunks, vectors); err != nil {
		t.Fatalf("first IndexChunks() error = %v", err)
	}
	if err := client.IndexChunks(context.Background(), chunks, vectors); err != nil {
		t.Fatalf("second IndexChunks() error = %v", err)
	}
	if got := atomic.LoadInt32(&ensureCalls); got != 1 {
		t.Fatalf("expected ensure collection called once, got %d", got)
	}
	if len(ids) != 4 || ids[0] != ids[2] || ids[1] != ids[3] || ids[0] == ids[1] {
		t.Fatalf("expected stable distinct point ids, got %v", ids)
	}
}

func TestEnsureCollectionIncludesResponseBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/collections/docs" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := New(server.URL, "docs", nil)
	err := client.IndexChunks(context.Background(), []domain.DocumentChunk{{Text: "a", Source: "a.txt"}}, [][]float32{{0.1, 0.2}})
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := err.Error(); !strings.Contains(got, "boom") {
		t.Fatalf("expected error to include body, got %v", err)
	}
}

func TestSearchMapsPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/collections/docs/points/search" {
			http.NotFound(w, r)
			return
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode search: %v", err)
		}
		if body["limit"] != float64(5) {
			t.Errorf("unexpected limit %v", body["limit"])
		}
		_, _ = w.Write([]byte(`{"result":[{"score":0.91,"payload":{"source":"manual.pdf","page":4,"chunk_index":2,"text":"two years"}}]}`))
	}))
	defer server.Close()

	got, err := New(server.URL, "docs", nil).Search(context.Background(), []float32{0.1, 0.2}, 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	want := domain.RetrievedChunk{Source: "manual.pdf", Page: 4, ChunkIndex: 2, Text: "two years", Score: 0.91}
	if len(got) != 1 || got[0] != want {
		t.Fatalf("unexpected results %+v", got)
	}
}

func TestCheckCollectionMissingIsConfigurationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":{"error":"Not found"}}`, http.StatusNotFound)
	}))
	defer server.Close()

	err := New(server.URL, "docs", nil).CheckCollection(context.Background())
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
