// Package composer answers questions from retrieved documentation chunks.
package composer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/papercomputeco/docqa/pkg/chunker"
	"github.com/papercomputeco/docqa/pkg/eventstream"
	"github.com/papercomputeco/docqa/pkg/llm"
)

// publishTimeout bounds event publishing after the answer is ready.
const publishTimeout = 5 * time.Second

// Answer is the composer's result. Sources are the texts of the chunks
// retrieved for the literal question, most relevant first.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// Retriever finds chunks relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]chunker.Chunk, error)
	Collection() string
}

// Config configures a Composer.
type Config struct {
	// K is the number of chunks retrieved. Zero uses the retriever default.
	K int

	// Product names the documentation in the system prompt.
	Product string

	// DocsURL is the canonical link for "don't know" answers.
	DocsURL string
}

// Composer builds grounded prompts and turns every failure into a degraded
// Answer. It is safe for concurrent use.
type Composer struct {
	retriever Retriever
	generator llm.Generator
	publisher eventstream.Publisher
	config    Config
	logger    *slog.Logger
}

// Option configures a Composer.
type Option func(*Composer)

// WithPublisher sets the publisher that receives an event per answer.
func WithPublisher(p eventstream.Publisher) Option {
	return func(c *Composer) {
		c.publisher = p
	}
}

// New creates a Composer.
func New(r Retriever, g llm.Generator, cfg Config, logger *slog.Logger, opts ...Option) *Composer {
	if cfg.Product == "" {
		cfg.Product = DefaultProduct
	}
	if cfg.DocsURL == "" {
		cfg.DocsURL = DefaultDocsURL
	}

	c := &Composer{
		retriever: r,
		generator: g,
		config:    cfg,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Answer answers query with history as conversational grounding. It never
// fails: errors become an Answer carrying the error text and no sources.
func (c *Composer) Answer(ctx context.Context, query string, history []Turn) Answer {
	start := time.Now()

	answer, err := c.answer(ctx, query, history)
	if err != nil {
		c.logger.Error("error during question answering",
			"error", err,
			"history_turns", len(history),
		)
		answer = Answer{
			Answer:  fmt.Sprintf("❌ Error: %v", err),
			Sources: []string{},
		}
	}

	c.logger.Info("answered question",
		"duration", time.Since(start),
		"sources", len(answer.Sources),
		"degraded", err != nil,
	)

	c.publish(ctx, start, query, history, answer, err)
	return answer
}

func (c *Composer) answer(ctx context.Context, query string, history []Turn) (Answer, error) {
	augmented := FoldHistory(history, query)

	chunks, err := c.retriever.Retrieve(ctx, augmented, c.config.K)
	if err != nil {
		return Answer{}, fmt.Errorf("retrieving context: %w", err)
	}

	prompt := llm.Prompt{
		System: SystemPrompt(c.config.Product, c.config.DocsURL, JoinContext(chunks)),
		User:   augmented,
	}

	genStart := time.Now()
	text, err := c.generator.Generate(ctx, prompt)
	if err != nil {
		return Answer{}, fmt.Errorf("generating answer: %w", err)
	}
	c.logger.Debug("generation done",
		"provider", c.generator.Name(),
		"context_chunks", len(chunks),
		"duration", time.Since(genStart),
	)

	// Sources reflect the literal question, not the history-augmented one.
	sourceChunks, err := c.retriever.Retrieve(ctx, query, c.config.K)
	if err != nil {
		return Answer{}, fmt.Errorf("retrieving sources: %w", err)
	}

	sources := make([]string, len(sourceChunks))
	for i, ch := range sourceChunks {
		sources[i] = ch.Text
	}

	return Answer{
		Answer:  strings.TrimSpace(text),
		Sources: sources,
	}, nil
}

func (c *Composer) publish(ctx context.Context, start time.Time, query string, history []Turn, a Answer, answerErr error) {
	if c.publisher == nil {
		return
	}

	payload := eventstream.AnswerPayload{
		Question: query,
		Answer:   a.Answer,
		Sources:  a.Sources,
		Degraded: answerErr != nil,
	}
	if answerErr != nil {
		payload.Error = answerErr.Error()
	}

	event := eventstream.NewAnswerServedEvent(
		eventstream.EventSource{
			Provider:   c.generator.Name(),
			Collection: c.retriever.Collection(),
		},
		start,
		len(history),
		payload,
	)

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := c.publisher.PublishAnswer(pctx, event); err != nil {
		c.logger.Warn("failed to publish answer event", "event_id", event.EventID, "error", err)
	}
}
