// Package search provides shared search types and logic for scored retrieval
// over the indexed documentation. It is used by both the REST API endpoint
// and the MCP server tool.
package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/docqa/pkg/vector"
)

// DefaultTopK is the number of results returned when none is requested.
const DefaultTopK = 5

// Searcher retrieves scored chunks for a query.
type Searcher interface {
	RetrieveScored(ctx context.Context, query string, k int) ([]vector.Result, error)
	Collection() string
}

// SearchInput represents the input arguments for a search request.
type SearchInput struct {
	Query string `json:"query" validate:"required"`
	TopK  int    `json:"top_k,omitempty" validate:"gte=0,lte=100"`
}

// SearchResult represents a single search result.
type SearchResult struct {
	ID     string  `json:"id"`
	Score  float32 `json:"score"`
	Source string  `json:"source,omitempty"`
	Index  int     `json:"index"`
	Text   string  `json:"text"`
}

// SearchOutput represents the output of a search operation.
type SearchOutput struct {
	Query      string         `json:"query"`
	Collection string         `json:"collection"`
	Results    []SearchResult `json:"results"`
	Count      int            `json:"count"`
}

// Search embeds the query and returns the most similar chunks with their
// similarity scores, most similar first.
func Search(
	ctx context.Context,
	query string,
	topK int,
	searcher Searcher,
	logger *slog.Logger,
) (*SearchOutput, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	logger.Debug("search request",
		"query", query,
		"topK", topK,
	)

	results, err := searcher.RetrieveScored(ctx, query, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search documentation: %w", err)
	}

	searchResults := make([]SearchResult, 0, len(results))
	for _, result := range results {
		searchResults = append(searchResults, BuildSearchResult(result))
	}

	return &SearchOutput{
		Query:      query,
		Collection: searcher.Collection(),
		Results:    searchResults,
		Count:      len(searchResults),
	}, nil
}

// BuildSearchResult converts a vector search result into a SearchResult.
func BuildSearchResult(result vector.Result) SearchResult {
	return SearchResult{
		ID:     result.ID,
		Score:  result.Score,
		Source: result.Source,
		Index:  result.Index,
		Text:   result.Text,
	}
}
