package api

import (
	"context"
	"log/slog"

	"github.com/papercomputeco/docqa/api/search"
	"github.com/papercomputeco/docqa/pkg/composer"
	"github.com/papercomputeco/docqa/pkg/llm"
)

// Answerer answers a question given the conversation so far.
type Answerer interface {
	Answer(ctx context.Context, query string, history []composer.Turn) composer.Answer
}

// Deps is the process-wide state built once at startup and shared read-only
// by every request.
type Deps struct {
	// Generator is the language model selected at startup.
	Generator llm.Generator

	// Retriever serves the scored search endpoints.
	Retriever search.Searcher

	// Composer answers /ask requests.
	Composer Answerer

	Logger *slog.Logger
}
