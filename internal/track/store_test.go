package track

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/coleben/verso/internal/sequence"
)

func TestChunksNormalizesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/books/b1/chapters/c1/chunks" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`[
			{"paragraph_index":0,"chunk_index":0,"total_chunks":2,"status":"GENERATED","audio_url":"audio/0-0.mp3","estimated_duration_seconds":4.5},
			{"paragraph_index":0,"chunk_index":1,"total_chunks":2,"status":"FAILED"},
			{"paragraph_index":1,"chunk_index":0,"total_chunks":1,"status":"PENDING"}
		]`))
	}))
	defer srv.Close()

	chunks, err := NewStore(srv.URL, nil).Chunks(context.Background(), "b1", "c1")
	if err != nil {
		t.Fatalf("Chunks() error: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}

	if chunks[0].Status != sequence.StatusGenerated || chunks[0].AudioPath != "audio/0-0.mp3" {
		t.Errorf("chunk 0 = %+v", chunks[0])
	}
	if chunks[0].EstimatedDuration != 4.5 {
		t.Errorf("chunk 0 duration = %v, want 4.5", chunks[0].EstimatedDuration)
	}
	// FAILED folds back to NOT_GENERATED for retry.
	if chunks[1].Status != sequence.StatusNotGenerated {
		t.Errorf("failed chunk status = %v, want NOT_GENERATED", chunks[1].Status)
	}
	if chunks[2].Status != sequence.StatusPending {
		t.Errorf("chunk 2 status = %v, want PENDING", chunks[2].Status)
	}
}

func TestChunksServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := NewStore(srv.URL, nil).Chunks(context.Background(), "b", "c"); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestSyncTableShapes(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		entries int
	}{
		{"bare array", 200, `[{"paragraph":0,"start":0,"end":2}]`, 1},
		{"wrapped object", 200, `{"paragraphs":[{"paragraph":0,"start":0,"end":2},{"paragraph":1,"start":2,"end":4}]}`, 2},
		{"unexpected shape degrades", 200, `{"version":3}`, 0},
		{"missing resource degrades", 404, `not found`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			table, err := NewStore(srv.URL, nil).SyncTable(context.Background(), "b", "c")
			if err != nil {
				t.Fatalf("SyncTable() error: %v", err)
			}
			if got := len(table.Entries()); got != tt.entries {
				t.Errorf("entries = %d, want %d", got, tt.entries)
			}
		})
	}
}

func TestSubmitGeneration(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		w.Write([]byte(`{"submitted":7}`))
	}))
	defer srv.Close()

	n, err := NewStore(srv.URL, nil).SubmitGeneration(context.Background(), "b", "c", 300)
	if err != nil {
		t.Fatalf("SubmitGeneration() error: %v", err)
	}
	if n != 7 {
		t.Errorf("submitted = %d, want 7", n)
	}
}

func TestURLResolverCachesByPath(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.Write([]byte(`{"url":"https://cdn.example/signed?sig=abc"}`))
	}))
	defer srv.Close()

	resolver := NewURLResolver(NewStore(srv.URL, nil))

	for i := 0; i < 3; i++ {
		got, err := resolver.Resolve("audio/p0/c0.mp3")
		if err != nil {
			t.Fatalf("Resolve() error: %v", err)
		}
		if got != "https://cdn.example/signed?sig=abc" {
			t.Fatalf("Resolve() = %q", got)
		}
	}

	if n := atomic.LoadInt64(&hits); n != 1 {
		t.Errorf("store hit %d times for one path, want 1", n)
	}

	// A different path is its own cache entry.
	if _, err := resolver.Resolve("audio/p0/c1.mp3"); err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if n := atomic.LoadInt64(&hits); n != 2 {
		t.Errorf("store hits = %d, want 2", n)
	}
}

func TestFeedSignalCoalesces(t *testing.T) {
	f := NewFeed("", "book-1")

	f.signal()
	f.signal()
	f.signal()

	select {
	case <-f.Changes():
	default:
		t.Fatal("no signal delivered")
	}
	select {
	case <-f.Changes():
		t.Error("signals were not coalesced")
	default:
	}
}
