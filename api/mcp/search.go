package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/docqa/api/search"
)

var (
	searchToolName    = "search_docs"
	searchDescription = "Search the indexed documentation using semantic search. Returns the most relevant documentation chunks with similarity scores."
)

// SearchInput represents the input arguments for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query text to find relevant documentation"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"number of results to return (default: 5)"`
}

// handleSearch processes a search request.
func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, search.SearchOutput, error) {
	logger := s.config.Logger

	output, err := search.Search(ctx, input.Query, input.TopK, s.config.Searcher, logger)
	if err != nil {
		logger.Error("search failed", "error", err)
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Search failed: %v", err)},
			},
		}, search.SearchOutput{Results: []search.SearchResult{}}, nil
	}

	// Clients without structured content support read the JSON text block.
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal search output", "error", err)
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to serialize results: %v", err)},
			},
		}, search.SearchOutput{Results: []search.SearchResult{}}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, *output, nil
}
