package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"

	"pdf-rag-chat/internal/models"
)

// Ollama generates embeddings through the native Ollama API.
type Ollama struct {
	client     *api.Client
	model      string
	maxRetries int
	timeout    time.Duration
}

// NewOllama creates an Ollama embedder. An empty host falls back to the
// OLLAMA_HOST environment variable.
func NewOllama(host, model string) (*Ollama, error) {
	hostURL := envconfig.Host()
	if host != "" {
		parsed, err := normalizeHost(host)
		if err != nil {
			return nil, err
		}
		hostURL = parsed
	}
	client := api.NewClient(hostURL, http.DefaultClient)

	return &Ollama{
		client:     client,
		model:      model,
		maxRetries: 3,
		timeout:    30 * time.Second,
	}, nil
}

// normalizeHost parses the configured host for the native Ollama API, which
// lives at the server root. A trailing /v1, left over from pointing the
// OpenAI-compatible backends at the same server, is stripped.
func normalizeHost(host string) (*url.URL, error) {
	trimmed := strings.TrimSuffix(strings.TrimRight(host, "/"), "/v1")
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	return parsed, nil
}

// Embed generates an embedding for text, retrying transient failures.
func (e *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	for retries := 0; retries <= e.maxRetries; retries++ {
		if retries > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", models.ErrEmbeddingFailed, ctx.Err())
			case <-time.After(time.Duration(retries) * time.Second):
			}
		}

		vec, err := e.createEmbedding(ctx, text)
		if err == nil {
			return vec, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: after %d retries: %v", models.ErrEmbeddingFailed, e.maxRetries, lastErr)
}

func (e *Ollama) createEmbedding(ctx context.Context, text string) ([]float32, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.Embeddings(ctxWithTimeout, &api.EmbeddingRequest{
		Model:  e.model,
		Prompt: text,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("response contained no embedding")
	}

	vec := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}
