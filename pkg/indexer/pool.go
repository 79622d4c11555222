// Package indexer provides an asynchronous worker pool that embeds batches of
// documentation chunks with the provided embeddings.Embedder and upserts them
// into a collection of the provided vector.Driver.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/papercomputeco/docqa/pkg/chunker"
	"github.com/papercomputeco/docqa/pkg/embeddings"
	"github.com/papercomputeco/docqa/pkg/logger"
	"github.com/papercomputeco/docqa/pkg/vector"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 64
	defaultBatchSize         = 32
)

// Job is a batch of chunks embedded and upserted together.
type Job struct {
	Chunks []chunker.Chunk
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Embedder generates the chunk embeddings.
	Embedder embeddings.Embedder

	// Driver is the vector index the records are upserted into.
	Driver vector.Driver

	// Collection is the target collection name.
	Collection string

	// Dimensions, when non-zero, is the embedding length every vector must
	// have. Zero accepts whatever the embedder returns.
	Dimensions uint

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 64).
	QueueSize uint

	// BatchSize is the number of chunks per job used by Index (defaults to 32).
	BatchSize int

	Logger *slog.Logger
}

// Pool processes indexing jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	ctx    context.Context
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	ensureMu sync.Mutex
	ensured  bool

	errMu sync.Mutex
	errs  []error

	indexed atomic.Int64
}

// NewPool creates a new Pool and starts its worker goroutines. Jobs run under
// ctx; cancelling it fails the remaining jobs.
func NewPool(ctx context.Context, c *Config) (*Pool, error) {
	if c.Embedder == nil {
		return nil, errors.New("indexer requires an embedder")
	}
	if c.Driver == nil {
		return nil, errors.New("indexer requires a vector driver")
	}
	if c.Collection == "" {
		return nil, vector.ErrInvalidCollection
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	p := &Pool{
		config: c,
		ctx:    ctx,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	p.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go p.worker(i)
	}

	return p, nil
}

// Enqueue submits a job, blocking while the queue is full. It returns the
// context error if ctx is done before the job is queued.
func (p *Pool) Enqueue(ctx context.Context, job Job) error {
	if len(job.Chunks) == 0 {
		return nil
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued", "chunks", len(job.Chunks))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close signals workers to stop, waits for in-flight jobs to drain and
// returns every job error joined together.
func (p *Pool) Close() error {
	close(p.queue)
	p.wg.Wait()

	p.errMu.Lock()
	defer p.errMu.Unlock()
	return errors.Join(p.errs...)
}

// Indexed returns the number of records upserted so far.
func (p *Pool) Indexed() int {
	return int(p.indexed.Load())
}

func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("indexing worker started", "worker_id", id)

	for job := range p.queue {
		if err := p.processJob(p.ctx, job); err != nil {
			p.logger.Error("indexing batch failed",
				"collection", p.config.Collection,
				"chunks", len(job.Chunks),
				"error", err,
			)
			p.errMu.Lock()
			p.errs = append(p.errs, err)
			p.errMu.Unlock()
		}
	}

	p.logger.Debug("indexing worker stopped", "worker_id", id)
}

// processJob embeds the batch and upserts one record per chunk.
func (p *Pool) processJob(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	texts := make([]string, len(job.Chunks))
	for i, c := range job.Chunks {
		texts[i] = c.Text
	}

	vectors, err := p.config.Embedder.EmbedMany(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding batch: %w", err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("%w: got %d embeddings for %d chunks", embeddings.ErrEmbedding, len(vectors), len(texts))
	}

	dims := uint(len(vectors[0]))
	if p.config.Dimensions != 0 && dims != p.config.Dimensions {
		return fmt.Errorf("%w: embedder returned %d, configured %d", vector.ErrDimensionMismatch, dims, p.config.Dimensions)
	}

	if err := p.ensureCollection(ctx, dims); err != nil {
		return err
	}

	records := make([]vector.Record, len(job.Chunks))
	for i, c := range job.Chunks {
		records[i] = vector.Record{
			ID:        recordID(p.config.Collection, c),
			Embedding: vectors[i],
			Text:      c.Text,
			Source:    c.Source,
			Index:     c.Index,
		}
	}

	if err := p.config.Driver.Upsert(ctx, p.config.Collection, records); err != nil {
		return fmt.Errorf("upserting batch: %w", err)
	}

	p.indexed.Add(int64(len(records)))
	p.logger.Debug("indexed batch",
		"collection", p.config.Collection,
		"records", len(records),
		"embedding_dim", len(vectors[0]),
	)
	return nil
}

// ensureCollection creates the collection once per pool.
func (p *Pool) ensureCollection(ctx context.Context, dimensions uint) error {
	p.ensureMu.Lock()
	defer p.ensureMu.Unlock()

	if p.ensured {
		return nil
	}
	if err := p.config.Driver.EnsureCollection(ctx, p.config.Collection, dimensions); err != nil {
		return fmt.Errorf("ensuring collection %q: %w", p.config.Collection, err)
	}
	p.ensured = true
	return nil
}

func recordID(collection string, c chunker.Chunk) string {
	return vector.RecordID(collection, c.Source, c.Index, c.Text)
}

// Index runs chunks through a fresh pool in batches of c.BatchSize and
// returns the number of records upserted. Once every batch has been
// upserted, records of the collection that no chunk produced are deleted,
// so the collection mirrors chunks. Nothing is deleted after a failure.
func Index(ctx context.Context, c *Config, chunks []chunker.Chunk) (int, error) {
	p, err := NewPool(ctx, c)
	if err != nil {
		return 0, err
	}

	var enqueueErr error
	for start := 0; start < len(chunks); start += c.BatchSize {
		end := min(start+c.BatchSize, len(chunks))
		if enqueueErr = p.Enqueue(ctx, Job{Chunks: chunks[start:end]}); enqueueErr != nil {
			break
		}
	}

	closeErr := p.Close()
	if err := errors.Join(enqueueErr, closeErr); err != nil {
		return p.Indexed(), err
	}

	keep := make([]string, len(chunks))
	for i, ch := range chunks {
		keep[i] = recordID(c.Collection, ch)
	}
	pruned, err := vector.Prune(ctx, c.Driver, c.Collection, keep)
	if err != nil {
		return p.Indexed(), fmt.Errorf("pruning collection %q: %w", c.Collection, err)
	}
	if pruned > 0 {
		p.logger.Info("removed stale records",
			"collection", c.Collection,
			"records", pruned,
		)
	}

	return p.Indexed(), nil
}
