// Package retriever finds the stored chunks most similar to a query.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/docqa/pkg/chunker"
	"github.com/papercomputeco/docqa/pkg/embeddings"
	"github.com/papercomputeco/docqa/pkg/vector"
)

const (
	// DefaultK is the number of chunks retrieved when k <= 0.
	DefaultK = 10

	// DefaultMaxAttempts bounds retries of transient embedding and index
	// failures.
	DefaultMaxAttempts = 3

	// DefaultBaseDelay is the first backoff delay.
	DefaultBaseDelay = 200 * time.Millisecond

	// DefaultMaxDelay caps the backoff delay.
	DefaultMaxDelay = 2 * time.Second
)

// Config configures a Retriever.
type Config struct {
	// Collection is the vector collection searched.
	Collection string

	// DefaultK replaces k <= 0. Defaults to DefaultK.
	DefaultK int

	// MaxAttempts is the total number of tries per call, including the
	// first. Defaults to DefaultMaxAttempts; 1 disables retry.
	MaxAttempts int

	// BaseDelay and MaxDelay shape the exponential backoff.
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// Retriever embeds queries and searches the vector index.
type Retriever struct {
	embedder embeddings.Embedder
	driver   vector.Driver
	config   Config
	logger   *slog.Logger
}

// New creates a Retriever.
func New(embedder embeddings.Embedder, driver vector.Driver, c Config, logger *slog.Logger) *Retriever {
	if c.DefaultK <= 0 {
		c.DefaultK = DefaultK
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}

	return &Retriever{
		embedder: embedder,
		driver:   driver,
		config:   c,
		logger:   logger,
	}
}

// Collection returns the searched collection name.
func (r *Retriever) Collection() string {
	return r.config.Collection
}

// Retrieve returns up to k chunks, most similar first. Scores are used for
// ordering only and are not returned.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]chunker.Chunk, error) {
	results, err := r.RetrieveScored(ctx, query, k)
	if err != nil {
		return nil, err
	}

	chunks := make([]chunker.Chunk, len(results))
	for i, res := range results {
		chunks[i] = chunker.Chunk{
			Text:   res.Text,
			Index:  res.Index,
			Source: res.Source,
		}
	}
	return chunks, nil
}

// RetrieveScored is Retrieve with similarity scores kept.
func (r *Retriever) RetrieveScored(ctx context.Context, query string, k int) ([]vector.Result, error) {
	if k <= 0 {
		k = r.config.DefaultK
	}

	start := time.Now()
	var results []vector.Result
	err := r.retry(ctx, func() error {
		queryVec, err := r.embedder.Embed(ctx, query)
		if err != nil {
			return fmt.Errorf("embedding query: %w", err)
		}

		results, err = r.driver.Search(ctx, r.config.Collection, queryVec, k)
		if err != nil {
			return fmt.Errorf("searching %q: %w", r.config.Collection, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(results) > k {
		results = results[:k]
	}

	r.logger.Debug("retrieved chunks",
		"collection", r.config.Collection,
		"k", k,
		"results", len(results),
		"duration", time.Since(start),
	)

	return results, nil
}

// retry runs fn until it succeeds, fails with a non-transient error, the
// attempts are spent, or ctx is done.
func (r *Retriever) retry(ctx context.Context, fn func() error) error {
	delay := r.config.BaseDelay

	var err error
	for attempt := 1; ; attempt++ {
		err = fn()
		if err == nil || !transient(err) || attempt >= r.config.MaxAttempts {
			return err
		}

		r.logger.Warn("retrieval failed, retrying",
			"attempt", attempt,
			"max_attempts", r.config.MaxAttempts,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(delay):
		}
		delay = min(delay*2, r.config.MaxDelay)
	}
}

func transient(err error) bool {
	return errors.Is(err, embeddings.ErrEmbedding) || errors.Is(err, vector.ErrIndexUnavailable)
}
