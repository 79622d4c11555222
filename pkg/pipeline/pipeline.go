// Package pipeline assembles the answering pipeline from configuration.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/papercomputeco/docqa/pkg/composer"
	"github.com/papercomputeco/docqa/pkg/config"
	"github.com/papercomputeco/docqa/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/docqa/pkg/embeddings/utils"
	"github.com/papercomputeco/docqa/pkg/eventstream"
	"github.com/papercomputeco/docqa/pkg/eventstream/kafka"
	"github.com/papercomputeco/docqa/pkg/eventstream/nop"
	"github.com/papercomputeco/docqa/pkg/indexer"
	"github.com/papercomputeco/docqa/pkg/llm"
	"github.com/papercomputeco/docqa/pkg/llm/selector"
	"github.com/papercomputeco/docqa/pkg/retriever"
	"github.com/papercomputeco/docqa/pkg/vector"
	vectorutils "github.com/papercomputeco/docqa/pkg/vector/utils"
)

// Supported event publisher names.
const (
	EventsNop   = "nop"
	EventsKafka = "kafka"
)

// Pipeline holds the components built once per process.
type Pipeline struct {
	Embedder  embeddings.Embedder
	Driver    vector.Driver
	Retriever *retriever.Retriever
	Generator llm.Generator
	Publisher eventstream.Publisher
	Composer  *composer.Composer

	collection string
	dimensions uint
	logger     *slog.Logger
}

// Option configures pipeline construction.
type Option func(*options)

type options struct {
	selectorOpts []selector.Option
}

// WithSelectorOptions passes options to the LLM provider selector.
func WithSelectorOptions(opts ...selector.Option) Option {
	return func(o *options) {
		o.selectorOpts = append(o.selectorOpts, opts...)
	}
}

// NewIndexing builds the embedder and vector driver only.
func NewIndexing(ctx context.Context, v *viper.Viper, logger *slog.Logger) (*Pipeline, error) {
	p := &Pipeline{
		collection: v.GetString("vector_store.collection"),
		dimensions: v.GetUint("embedding.dimensions"),
		logger:     logger,
	}
	if p.collection == "" {
		return nil, vector.ErrInvalidCollection
	}

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: v.GetString("embedding.provider"),
		TargetURL:    v.GetString("embedding.target"),
		Model:        v.GetString("embedding.model"),
		APIKey:       v.GetString("embedding.api_key"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	p.Embedder = embedder

	driver, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: v.GetString("vector_store.provider"),
		TargetURL:    v.GetString("vector_store.target"),
		APIKey:       v.GetString("vector_store.api_key"),
		Logger:       logger,
	})
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("creating vector driver: %w", err)
	}
	p.Driver = driver

	logger.Debug("indexing pipeline ready",
		"embedding_provider", v.GetString("embedding.provider"),
		"embedding_model", v.GetString("embedding.model"),
		"vector_store", v.GetString("vector_store.provider"),
		"collection", p.collection,
	)
	return p, nil
}

// New builds the full answering pipeline. The language model is selected
// first so that a missing credential fails before any connection is made;
// that failure wraps selector.ErrNoProvider.
func New(ctx context.Context, v *viper.Viper, logger *slog.Logger, opts ...Option) (*Pipeline, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	specs, err := config.ProviderSpecs(v)
	if err != nil {
		return nil, err
	}

	generator, err := selector.New(logger, o.selectorOpts...).Select(ctx, specs)
	if err != nil {
		return nil, err
	}

	p, err := NewIndexing(ctx, v, logger)
	if err != nil {
		return nil, err
	}
	p.Generator = generator

	publisher, err := newPublisher(v, logger)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	p.Publisher = publisher

	p.Retriever = retriever.New(p.Embedder, p.Driver, retriever.Config{
		Collection:  p.collection,
		DefaultK:    v.GetInt("retrieval.k"),
		MaxAttempts: v.GetInt("retrieval.max_attempts"),
	}, logger)

	p.Composer = composer.New(p.Retriever, generator, composer.Config{
		K:       v.GetInt("retrieval.k"),
		Product: v.GetString("llm.product"),
		DocsURL: v.GetString("llm.docs_url"),
	}, logger, composer.WithPublisher(publisher))

	return p, nil
}

func newPublisher(v *viper.Viper, logger *slog.Logger) (eventstream.Publisher, error) {
	switch name := v.GetString("events.provider"); name {
	case EventsNop, "":
		return nop.NewPublisher(), nil
	case EventsKafka:
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: config.Brokers(v),
			Topic:   v.GetString("events.topic"),
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported events provider: %s", name)
	}
}

// IndexerConfig returns the indexer configuration for this pipeline's
// embedder, driver and collection.
func (p *Pipeline) IndexerConfig() *indexer.Config {
	return &indexer.Config{
		Embedder:   p.Embedder,
		Driver:     p.Driver,
		Collection: p.collection,
		Dimensions: p.dimensions,
		Logger:     p.logger,
	}
}

// Collection returns the configured vector collection.
func (p *Pipeline) Collection() string {
	return p.collection
}

// Close releases every component that was built.
func (p *Pipeline) Close() error {
	var errs []error
	if p.Publisher != nil {
		errs = append(errs, p.Publisher.Close())
	}
	if p.Driver != nil {
		errs = append(errs, p.Driver.Close())
	}
	if p.Embedder != nil {
		errs = append(errs, p.Embedder.Close())
	}
	return errors.Join(errs...)
}
