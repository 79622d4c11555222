package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/docqa/pkg/composer"
)

var (
	askToolName    = "ask_docs"
	askDescription = "Answer a question about the Garden developer documentation. Returns a markdown answer grounded on the documentation and the chunks it was grounded on."
)

// AskInput represents the input arguments for the ask tool.
type AskInput struct {
	Question string          `json:"question" jsonschema:"the question to answer from the documentation"`
	History  []composer.Turn `json:"history,omitempty" jsonschema:"earlier turns of the conversation, oldest first"`
}

// handleAsk answers a question. Pipeline failures are part of the answer
// text and are flagged as tool errors.
func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, composer.Answer, error) {
	s.config.Logger.Debug("MCP ask request",
		"question", input.Question,
		"history_turns", len(input.History),
	)

	if strings.TrimSpace(input.Question) == "" {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: "question is required"},
			},
		}, composer.Answer{Sources: []string{}}, nil
	}

	answer := s.config.Answerer.Answer(ctx, input.Question, input.History)

	return &mcp.CallToolResult{
		IsError: strings.HasPrefix(answer.Answer, "❌"),
		Content: []mcp.Content{
			&mcp.TextContent{Text: answer.Answer},
		},
	}, answer, nil
}
