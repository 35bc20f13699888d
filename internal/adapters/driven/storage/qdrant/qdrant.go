// Package qdrant implements the vector index over the Qdrant REST API.
// Each namespace is a Qdrant collection using cosine distance.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Default configuration values.
const (
	DefaultURL     = "http://localhost:6333"
	DefaultTimeout = 15 * time.Second
)

// Config holds configuration for the Qdrant index.
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// Index is a minimal REST client to Qdrant.
type Index struct {
	url    string
	apiKey string
	client *http.Client

	mu    sync.Mutex
	known map[string]bool
}

// statusError is a non-2xx Qdrant response.
type statusError struct {
	method string
	path   string
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant %s %s: status %d: %s", e.method, e.path, e.status, e.body)
}

func isNotFound(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.status == http.StatusNotFound
}

// New creates a Qdrant index client. It does not contact the server.
func New(cfg Config) *Index {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Index{
		url:    strings.TrimRight(cfg.URL, "/"),
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: cfg.Timeout},
		known:  make(map[string]bool),
	}
}

type point struct {
	ID      string       `json:"id"`
	Vector  []float32    `json:"vector"`
	Payload domain.Chunk `json:"payload"`
}

// Upsert writes points, creating the collection sized to the first vector if needed.
func (q *Index) Upsert(ctx context.Context, namespace string, records []driven.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := q.ensureCollection(ctx, namespace, len(records[0].Vector)); err != nil {
		return err
	}

	points := make([]point, len(records))
	for i, r := range records {
		points[i] = point{ID: r.ID, Vector: r.Vector, Payload: r.Chunk}
	}
	return q.do(ctx, http.MethodPut, collectionPath(namespace)+"/points?wait=true",
		map[string]any{"points": points}, nil)
}

func (q *Index) ensureCollection(ctx context.Context, namespace string, dim int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.known[namespace] {
		return nil
	}

	err := q.do(ctx, http.MethodGet, collectionPath(namespace), nil, nil)
	if isNotFound(err) {
		err = q.do(ctx, http.MethodPut, collectionPath(namespace), map[string]any{
			"vectors": map[string]any{"size": dim, "distance": "Cosine"},
		}, nil)
	}
	if err != nil {
		return fmt.Errorf("ensure collection %s: %w", namespace, err)
	}
	q.known[namespace] = true
	return nil
}

// Search returns the k nearest points. A missing collection yields no hits.
func (q *Index) Search(ctx context.Context, namespace string, query []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}

	var resp struct {
		Result []struct {
			ID      any          `json:"id"`
			Score   float64      `json:"score"`
			Payload domain.Chunk `json:"payload"`
		} `json:"result"`
	}
	err := q.do(ctx, http.MethodPost, collectionPath(namespace)+"/points/search", map[string]any{
		"vector":       query,
		"limit":        k,
		"with_payload": true,
	}, &resp)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	hits := make([]driven.VectorHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, driven.VectorHit{
			ID:         fmt.Sprint(r.ID),
			Chunk:      r.Payload,
			Similarity: r.Score,
		})
	}
	return hits, nil
}

// Count returns the exact number of points in a collection.
func (q *Index) Count(ctx context.Context, namespace string) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := q.do(ctx, http.MethodPost, collectionPath(namespace)+"/points/count",
		map[string]any{"exact": true}, &resp)
	if isNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

// DeleteNamespace drops the collection.
func (q *Index) DeleteNamespace(ctx context.Context, namespace string) error {
	q.mu.Lock()
	delete(q.known, namespace)
	q.mu.Unlock()

	err := q.do(ctx, http.MethodDelete, collectionPath(namespace), nil, nil)
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// Ping checks the server is reachable.
func (q *Index) Ping(ctx context.Context) error {
	return q.do(ctx, http.MethodGet, "/collections", nil, nil)
}

// Close releases resources.
func (q *Index) Close() error {
	return nil
}

func collectionPath(namespace string) string {
	return "/collections/" + url.PathEscape(namespace)
}

func (q *Index) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, q.url+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{method: method, path: path, status: resp.StatusCode, body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
