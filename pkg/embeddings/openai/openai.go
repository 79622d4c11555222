// Package openai implements pkg/embeddings' Embedder client for
// OpenAI-compatible /embeddings endpoints (OpenAI, OpenRouter, local
// inference servers).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/papercomputeco/docqa/pkg/embeddings"
)

const (
	// DefaultBaseURL is the OpenAI API base URL including the version path.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultEmbeddingModel is used when no model is configured.
	DefaultEmbeddingModel = "text-embedding-3-small"

	// DefaultBatchSize caps how many inputs go into a single request.
	DefaultBatchSize = 64

	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 4
)

// Embedder calls an OpenAI-compatible embeddings endpoint.
type Embedder struct {
	baseURL    string
	apiKey     string
	model      string
	batchSize  int
	maxRetries int
	httpClient *http.Client
}

// EmbedderConfig holds configuration for the OpenAI-compatible embedder.
type EmbedderConfig struct {
	// BaseURL includes the API version, e.g. "https://api.openai.com/v1".
	BaseURL string

	// APIKey is sent as a bearer token. Required.
	APIKey string

	Model     string
	BatchSize int
	Timeout   time.Duration

	// MaxRetries bounds retries on 429 and 5xx responses. Zero uses the default;
	// a negative value disables retries.
	MaxRetries int
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewEmbedder creates an OpenAI-compatible embedder.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai embedder: api key is required")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	maxRetries := cfg.MaxRetries
	switch {
	case maxRetries == 0:
		maxRetries = defaultMaxRetries
	case maxRetries < 0:
		maxRetries = 0
	}

	return &Embedder{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		model:      model,
		batchSize:  batchSize,
		maxRetries: maxRetries,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedMany embeds texts in batches of at most BatchSize inputs.
func (e *Embedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		batch, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", embeddings.ErrEmbedding, err)
	}

	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", embeddings.ErrEmbedding, ctx.Err())
			case <-time.After(retryDelay(attempt - 1)):
			}
		}

		vectors, retry, err := e.do(ctx, body, len(texts))
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		if !retry {
			break
		}
	}

	return nil, lastErr
}

// do performs one request. The bool reports whether the failure is worth
// retrying.
func (e *Embedder) do(ctx context.Context, body []byte, want int) ([][]float32, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("%w: creating request: %v", embeddings.ErrEmbedding, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("%w: sending request: %v", embeddings.ErrEmbedding, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("%w: reading response: %v", embeddings.ErrEmbedding, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("%w: status %d: %s", embeddings.ErrEmbedding, resp.StatusCode, string(payload))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("%w: status %d: %s", embeddings.ErrEmbedding, resp.StatusCode, string(payload))
	}

	var out embedResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, false, fmt.Errorf("%w: decoding response: %v", embeddings.ErrEmbedding, err)
	}
	if out.Error != nil {
		return nil, false, fmt.Errorf("%w: %s", embeddings.ErrEmbedding, out.Error.Message)
	}
	if len(out.Data) != want {
		return nil, false, fmt.Errorf("%w: requested %d embeddings, got %d", embeddings.ErrEmbedding, want, len(out.Data))
	}

	sort.SliceStable(out.Data, func(i, j int) bool { return out.Data[i].Index < out.Data[j].Index })

	vectors := make([][]float32, len(out.Data))
	for i, d := range out.Data {
		if len(d.Embedding) == 0 {
			return nil, false, fmt.Errorf("%w: empty embedding at position %d", embeddings.ErrEmbedding, i)
		}
		vectors[i] = d.Embedding
	}

	return vectors, false, nil
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	return nil
}

// retryDelay is exponential backoff starting at 200ms, capped at 5s.
func retryDelay(attempt int) time.Duration {
	d := 200 * time.Millisecond << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

var _ embeddings.Embedder = (*Embedder)(nil)
