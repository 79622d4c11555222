// Package chroma provides a Chroma vector database driver implementation.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/papercomputeco/docqa/pkg/vector"
)

const (
	// DefaultMaxRetries is the number of connection attempts made by NewDriver.
	DefaultMaxRetries = 5

	// DefaultRetryDelay is the initial delay between connection attempts.
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultMaxRetryDelay caps the exponential backoff.
	DefaultMaxRetryDelay = 5 * time.Second

	collectionsPath = "/api/v2/tenants/default_tenant/databases/default_database/collections"
)

// errNotFound marks a 404 from Chroma.
var errNotFound = errors.New("not found")

// Driver implements vector.Driver using Chroma's REST API.
type Driver struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	mu  sync.Mutex
	ids map[string]string
}

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// MaxRetries is the number of heartbeat attempts before giving up.
	// Defaults to DefaultMaxRetries.
	MaxRetries int

	// RetryDelay is the initial backoff. Defaults to DefaultRetryDelay.
	RetryDelay time.Duration

	// MaxRetryDelay caps the backoff. Defaults to DefaultMaxRetryDelay.
	MaxRetryDelay time.Duration
}

// NewDriver creates a new Chroma vector driver, waiting for the server to
// answer its heartbeat endpoint.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, errors.New("chroma URL is required")
	}

	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	delay := c.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	maxDelay := c.MaxRetryDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxRetryDelay
	}

	d := &Driver{
		baseURL: c.URL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
		ids:    make(map[string]string),
	}

	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err = d.heartbeat(context.Background())
		if err == nil {
			break
		}

		logger.Warn("chroma not ready, retrying",
			"attempt", attempt,
			"max_attempts", maxRetries,
			"error", err,
		)

		if attempt < maxRetries {
			time.Sleep(delay)
			delay = min(delay*2, maxDelay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to chroma after %d attempts: %v",
			vector.ErrIndexUnavailable, maxRetries, err)
	}

	logger.Info("connected to chroma", "url", c.URL)

	return d, nil
}

func (d *Driver) heartbeat(ctx context.Context) error {
	return d.do(ctx, http.MethodGet, "/api/v2/heartbeat", nil, nil)
}

// do sends a JSON request and decodes the JSON response into out.
func (d *Driver) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: sending request: %v", vector.ErrIndexUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode >= http.StatusInternalServerError:
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: status %d: %s", vector.ErrIndexUnavailable, resp.StatusCode, string(respBody))
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated:
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// collectionID resolves a collection name to its Chroma ID. When create is
// set, a cosine collection is created if missing.
func (d *Driver) collectionID(ctx context.Context, name string, create bool) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if id, ok := d.ids[name]; ok {
		return id, nil
	}

	var col chromaCollection
	err := d.do(ctx, http.MethodGet, collectionsPath+"/"+name, nil, &col)
	if errors.Is(err, errNotFound) && create {
		err = d.do(ctx, http.MethodPost, collectionsPath, chromaCreateRequest{
			Name:        name,
			Metadata:    map[string]any{"hnsw:space": "cosine"},
			GetOrCreate: true,
		}, &col)
		if err == nil {
			d.logger.Info("created chroma collection", "collection", name, "id", col.ID)
		}
	}
	if err != nil {
		return "", err
	}

	d.ids[name] = col.ID
	return col.ID, nil
}

// EnsureCollection gets or creates the named collection. Chroma fixes the
// dimension on first insert, so dimensions is not sent.
func (d *Driver) EnsureCollection(ctx context.Context, collection string, _ uint) error {
	if collection == "" {
		return vector.ErrInvalidCollection
	}
	if _, err := d.collectionID(ctx, collection, true); err != nil {
		return fmt.Errorf("getting or creating collection %q: %w", collection, err)
	}
	return nil
}

// Upsert stores records with their text as Chroma documents.
func (d *Driver) Upsert(ctx context.Context, collection string, records []vector.Record) error {
	if collection == "" {
		return vector.ErrInvalidCollection
	}
	if len(records) == 0 {
		return nil
	}
	if err := vector.CheckDimensions(records, len(records[0].Embedding)); err != nil {
		return err
	}

	id, err := d.collectionID(ctx, collection, true)
	if err != nil {
		return fmt.Errorf("getting or creating collection %q: %w", collection, err)
	}

	req := chromaUpsertRequest{
		IDs:        make([]string, len(records)),
		Embeddings: make([][]float32, len(records)),
		Metadatas:  make([]map[string]any, len(records)),
		Documents:  make([]string, len(records)),
	}
	for i, r := range records {
		req.IDs[i] = r.ID
		req.Embeddings[i] = r.Embedding
		req.Documents[i] = r.Text
		req.Metadatas[i] = map[string]any{
			"source": r.Source,
			"index":  r.Index,
		}
	}

	if err := d.do(ctx, http.MethodPost, collectionsPath+"/"+id+"/upsert", req, nil); err != nil {
		return fmt.Errorf("upserting records: %w", err)
	}

	d.logger.Debug("upserted records into chroma",
		"collection", collection,
		"count", len(records),
	)

	return nil
}

// Search finds the k most similar records. Chroma reports cosine distance,
// converted to similarity as 1 - distance.
func (d *Driver) Search(ctx context.Context, collection string, query []float32, k int) ([]vector.Result, error) {
	if k <= 0 {
		return []vector.Result{}, nil
	}

	id, err := d.collectionID(ctx, collection, false)
	if errors.Is(err, errNotFound) {
		return []vector.Result{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolving collection %q: %w", collection, err)
	}

	var resp chromaQueryResponse
	err = d.do(ctx, http.MethodPost, collectionsPath+"/"+id+"/query", chromaQueryRequest{
		QueryEmbeddings: [][]float32{query},
		NResults:        k,
		Include:         []string{"documents", "metadatas", "distances"},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("querying chroma: %w", err)
	}

	results := []vector.Result{}

	// Only one query embedding is sent, so only the first group is read.
	if len(resp.IDs) == 0 {
		return results, nil
	}

	for i, rid := range resp.IDs[0] {
		r := vector.Result{Record: vector.Record{ID: rid}}

		if len(resp.Documents) > 0 && i < len(resp.Documents[0]) {
			r.Text = resp.Documents[0][i]
		}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) && resp.Metadatas[0][i] != nil {
			meta := resp.Metadatas[0][i]
			if source, ok := meta["source"].(string); ok {
				r.Source = source
			}
			// JSON numbers decode as float64
			if index, ok := meta["index"].(float64); ok {
				r.Index = int(index)
			}
		}
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			r.Score = 1 - resp.Distances[0][i]
		}

		results = append(results, r)
	}

	d.logger.Debug("queried chroma",
		"collection", collection,
		"results", len(results),
	)

	return results, nil
}

// Count returns the number of records in the collection.
func (d *Driver) Count(ctx context.Context, collection string) (int, error) {
	id, err := d.collectionID(ctx, collection, false)
	if errors.Is(err, errNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("resolving collection %q: %w", collection, err)
	}

	var n int
	if err := d.do(ctx, http.MethodGet, collectionsPath+"/"+id+"/count", nil, &n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// IDs returns the ID of every record in the collection.
func (d *Driver) IDs(ctx context.Context, collection string) ([]string, error) {
	id, err := d.collectionID(ctx, collection, false)
	if errors.Is(err, errNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolving collection %q: %w", collection, err)
	}

	var resp chromaGetResponse
	if err := d.do(ctx, http.MethodPost, collectionsPath+"/"+id+"/get", chromaGetRequest{
		Include: []string{},
	}, &resp); err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	if resp.IDs == nil {
		return []string{}, nil
	}
	return resp.IDs, nil
}

// Delete removes records by their IDs.
func (d *Driver) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	id, err := d.collectionID(ctx, collection, false)
	if errors.Is(err, errNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolving collection %q: %w", collection, err)
	}

	if err := d.do(ctx, http.MethodPost, collectionsPath+"/"+id+"/delete", chromaDeleteRequest{
		IDs: ids,
	}, nil); err != nil {
		return fmt.Errorf("deleting records: %w", err)
	}

	d.logger.Debug("deleted records from chroma",
		"collection", collection,
		"count", len(ids),
	)
	return nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}
