// Package mcp provides an MCP (Model Context Protocol) server that exposes
// documentation answering and search as tools.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/docqa/api/search"
	"github.com/papercomputeco/docqa/pkg/composer"
	"github.com/papercomputeco/docqa/pkg/utils"
)

// Answerer answers a question given the conversation so far.
type Answerer interface {
	Answer(ctx context.Context, query string, history []composer.Turn) composer.Answer
}

type Config struct {
	// Answerer backs the ask_docs tool.
	Answerer Answerer

	// Searcher backs the search_docs tool.
	Searcher search.Searcher

	// Noop for empty MCP server
	Noop bool

	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the ask and search tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "docqa",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Answerer == nil {
			return nil, errors.New("answerer is required")
		}
		if c.Searcher == nil {
			return nil, errors.New("searcher is required")
		}
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        askToolName,
			Description: askDescription,
		}, s.handleAsk)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        searchToolName,
			Description: searchDescription,
		}, s.handleSearch)
	}

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}
