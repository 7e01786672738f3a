package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"pdf-rag-chat/internal/models"
)

// Qdrant is a minimal REST client to a Qdrant collection configured for
// cosine distance. Reset recreates the collection, so a rebuild replaces the
// whole corpus server-side.
type Qdrant struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	client     *http.Client
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// NewQdrant creates a Qdrant-backed index.
func NewQdrant(cfg QdrantConfig) *Qdrant {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collection := cfg.Collection
	if collection == "" {
		collection = "pdf_docs"
	}
	return &Qdrant{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// Reset drops and recreates the collection with the given dimension.
func (s *Qdrant) Reset(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid vector dimension %d", dimension)
	}
	// Best-effort delete; creating over a missing collection is fine.
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		fmt.Sprintf("%s/collections/%s", s.url, s.collection), nil)
	if err != nil {
		return err
	}
	s.setHeaders(req)
	if resp, err := s.client.Do(req); err == nil {
		resp.Body.Close()
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if err := s.doJSON(ctx, http.MethodPut,
		fmt.Sprintf("%s/collections/%s", s.url, s.collection), body, nil); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", s.collection, err)
	}
	s.dimension = dimension
	return nil
}

// Insert upserts chunks as points with fresh uuid ids.
func (s *Qdrant) Insert(ctx context.Context, chunks []models.Chunk) error {
	if s.dimension == 0 {
		return models.ErrNoIndexBuilt
	}
	for i, ch := range chunks {
		if len(ch.Vector) != s.dimension {
			return fmt.Errorf("%w: chunk %d has dimension %d, index expects %d",
				models.ErrDimensionMismatch, i, len(ch.Vector), s.dimension)
		}
	}
	points := make([]map[string]any, len(chunks))
	for i, ch := range chunks {
		points[i] = map[string]any{
			"id":     uuid.NewString(),
			"vector": ch.Vector,
			"payload": map[string]any{
				"text": ch.Text,
			},
		}
	}
	body := map[string]any{"points": points}
	if err := s.doJSON(ctx, http.MethodPut,
		fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, s.collection), body, nil); err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

// Search queries the collection for the topK nearest points.
func (s *Qdrant) Search(ctx context.Context, vector []float32, topK int) ([]models.SearchResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	body := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			ID      string         `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.doJSON(ctx, http.MethodPost,
		fmt.Sprintf("%s/collections/%s/points/search", s.url, s.collection), body, &resp); err != nil {
		// A missing collection means no corpus has ever been built here.
		var statusErr *statusError
		if errors.As(err, &statusErr) && statusErr.code == http.StatusNotFound {
			return nil, models.ErrNoIndexBuilt
		}
		return nil, fmt.Errorf("failed to search points: %w", err)
	}
	results := make([]models.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		rec := models.Record{ID: r.ID}
		if v, ok := r.Payload["text"].(string); ok {
			rec.Text = v
		}
		results = append(results, models.SearchResult{Record: rec, Score: r.Score})
	}
	return results, nil
}

// statusError carries the HTTP status of a failed Qdrant call so callers can
// distinguish a missing collection from transport trouble.
type statusError struct {
	code   int
	method string
	url    string
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant %s %s failed: %s", e.method, e.url, e.status)
}

func (s *Qdrant) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
}

func (s *Qdrant) doJSON(ctx context.Context, method, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	s.setHeaders(req)
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &statusError{code: resp.StatusCode, method: method, url: url, status: resp.Status}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
