// Package selector picks the language-model backend used for the lifetime
// of the process.
package selector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/docqa/pkg/llm"
	"github.com/papercomputeco/docqa/pkg/llm/provider"
	"github.com/papercomputeco/docqa/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/docqa/pkg/llm/provider/gemini"
	"github.com/papercomputeco/docqa/pkg/llm/provider/ollama"
	"github.com/papercomputeco/docqa/pkg/llm/provider/openai"
)

// ErrNoProvider is returned when no configured backend is usable. It is a
// startup-time configuration error.
var ErrNoProvider = errors.New("no valid LLM available, check your API keys")

// Factory constructs a Generator for a spec.
type Factory func(ctx context.Context, spec provider.Spec) (llm.Generator, error)

// Selector walks provider specs in priority order.
type Selector struct {
	factory Factory
	logger  *slog.Logger
}

// Option configures a Selector.
type Option func(*Selector)

// WithFactory replaces the Generator constructor.
func WithFactory(f Factory) Option {
	return func(s *Selector) {
		s.factory = f
	}
}

// New creates a Selector using NewGenerator as its factory.
func New(logger *slog.Logger, opts ...Option) *Selector {
	s := &Selector{
		factory: NewGenerator,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select returns the first spec, in order, that has a credential and whose
// Generator constructs without error.
func (s *Selector) Select(ctx context.Context, specs []provider.Spec) (llm.Generator, error) {
	s.logCredentials(specs)

	for _, spec := range specs {
		if !spec.HasCredential() {
			s.logger.Debug("skipping llm provider without credential", "provider", spec.Kind)
			continue
		}

		gen, err := s.factory(ctx, spec)
		if err != nil {
			s.logger.Error("llm provider failed", "provider", spec.Kind, "error", err)
			continue
		}

		s.logger.Info("using llm provider",
			"provider", gen.Name(),
			"model", spec.WithDefaults().Model,
		)
		return gen, nil
	}

	return nil, ErrNoProvider
}

// Select is a convenience for New(logger).Select(ctx, specs).
func Select(ctx context.Context, specs []provider.Spec, logger *slog.Logger) (llm.Generator, error) {
	return New(logger).Select(ctx, specs)
}

// logCredentials reports which credentials are present, never their values.
func (s *Selector) logCredentials(specs []provider.Spec) {
	attrs := make([]any, 0, len(specs)*2)
	for _, spec := range specs {
		attrs = append(attrs, string(spec.Kind), spec.HasCredential())
	}
	s.logger.Info("llm credentials loaded", attrs...)
}

// NewGenerator constructs the Generator for a spec's kind.
func NewGenerator(ctx context.Context, spec provider.Spec) (llm.Generator, error) {
	switch spec.Kind {
	case provider.KindOpenRouter, provider.KindGroq, provider.KindOpenAI:
		return openai.New(spec)
	case provider.KindAnthropic:
		return anthropic.New(spec)
	case provider.KindGemini:
		return gemini.New(ctx, spec)
	case provider.KindOllama:
		return ollama.New(spec)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", spec.Kind)
	}
}
