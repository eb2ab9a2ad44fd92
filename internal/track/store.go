// Package track talks to the narration backend: the audio chunk store,
// the generation trigger, and the realtime change feed.
package track

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coleben/verso/internal/narrate"
	"github.com/coleben/verso/internal/sequence"
)

const defaultHTTPTimeout = 10 * time.Second

// Row is a chunk record as served by the store.
type Row struct {
	ParagraphIndex           int     `json:"paragraph_index"`
	ChunkIndex               int     `json:"chunk_index"`
	TotalChunks              int     `json:"total_chunks"`
	Status                   string  `json:"status"`
	AudioURL                 string  `json:"audio_url"`
	EstimatedDurationSeconds float64 `json:"estimated_duration_seconds"`
}

// Store is an HTTP client for the chunk store. All persistence belongs
// to the backend; this side only reads rows and submits generation
// requests.
type Store struct {
	baseURL string
	client  *http.Client
}

// NewStore builds a store client. client may be nil.
func NewStore(baseURL string, client *http.Client) *Store {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Store{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// Chunks fetches the full chunk state for one book chapter. Rows whose
// generation job failed come back reset to NOT_GENERATED so a later
// request can retry them.
func (s *Store) Chunks(ctx context.Context, bookID, chapterID string) ([]sequence.Chunk, error) {
	endpoint := fmt.Sprintf("%s/books/%s/chapters/%s/chunks",
		s.baseURL, url.PathEscape(bookID), url.PathEscape(chapterID))

	var rows []Row
	if err := s.getJSON(ctx, endpoint, &rows); err != nil {
		return nil, err
	}

	chunks := make([]sequence.Chunk, 0, len(rows))
	for _, r := range rows {
		chunks = append(chunks, sequence.Chunk{
			Key:               sequence.ChunkKey{Paragraph: r.ParagraphIndex, Chunk: r.ChunkIndex},
			TotalChunks:       r.TotalChunks,
			Status:            normalizeStatus(r.Status),
			AudioPath:         r.AudioURL,
			EstimatedDuration: r.EstimatedDurationSeconds,
		})
	}
	return chunks, nil
}

// SyncTable fetches a chapter's time-to-paragraph table. A missing
// resource or an unexpected shape yields an empty table, not an error:
// such chapters simply play without paragraph highlighting.
func (s *Store) SyncTable(ctx context.Context, bookID, chapterID string) (*narrate.Table, error) {
	endpoint := fmt.Sprintf("%s/books/%s/chapters/%s/sync",
		s.baseURL, url.PathEscape(bookID), url.PathEscape(chapterID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return narrate.NewTable(nil), nil
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("sync table fetch failed: %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return narrate.ParseSyncTable(data), nil
}

// SubmitGeneration asks the backend to enqueue chunk generation for a
// chapter and returns the number of jobs submitted. Completion is
// observed later through the chunk store, not this call.
func (s *Store) SubmitGeneration(ctx context.Context, bookID, chapterID string, targetSeconds float64) (int, error) {
	endpoint := fmt.Sprintf("%s/books/%s/chapters/%s/generate",
		s.baseURL, url.PathEscape(bookID), url.PathEscape(chapterID))

	payload := fmt.Sprintf(`{"target_duration_seconds":%g}`, targetSeconds)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("generation request failed: %s (%s)", resp.Status, string(body))
	}

	var result struct {
		Submitted int `json:"submitted"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, err
	}
	return result.Submitted, nil
}

// SignedURL resolves a storage path to a time-limited playable URL.
func (s *Store) SignedURL(ctx context.Context, path string) (string, error) {
	endpoint := fmt.Sprintf("%s/signed-url?path=%s", s.baseURL, url.QueryEscape(path))

	var result struct {
		URL string `json:"url"`
	}
	if err := s.getJSON(ctx, endpoint, &result); err != nil {
		return "", err
	}
	if result.URL == "" {
		return "", fmt.Errorf("no signed url for %s", path)
	}
	return result.URL, nil
}

func (s *Store) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("chunk store error: %s (%s)", resp.Status, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// normalizeStatus folds unknown and failed statuses back to
// NOT_GENERATED. A failed job is indistinguishable from one never
// submitted: both need a fresh generation request.
func normalizeStatus(status string) sequence.ChunkStatus {
	switch sequence.ChunkStatus(status) {
	case sequence.StatusPending, sequence.StatusGenerating, sequence.StatusGenerated:
		return sequence.ChunkStatus(status)
	default:
		return sequence.StatusNotGenerated
	}
}
