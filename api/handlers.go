package api

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/docqa/pkg/composer"
)

const (
	invalidJSONAnswer   = "❌ Invalid JSON request."
	missingFieldsAnswer = "❌ Missing 'question' or 'query' field."
)

// ErrorResponse is the body of non-2xx responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AskRequest is the body of POST /ask. Question wins over Query when both
// are set.
type AskRequest struct {
	Question string `json:"question" validate:"required_without=Query"`
	Query    string `json:"query" validate:"required_without=Question"`

	// History is decoded leniently: anything but a list of turns is ignored.
	History json.RawMessage `json:"history,omitempty"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleAsk answers a question. Request problems are reported in the answer
// field with status 200 so that chat frontends can display them.
func (s *Server) handleAsk(c *fiber.Ctx) error {
	var req AskRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		s.logger.Debug("invalid ask request", "error", err)
		return c.JSON(composer.Answer{Answer: invalidJSONAnswer, Sources: []string{}})
	}

	if err := s.validate.Struct(req); err != nil {
		return c.JSON(composer.Answer{Answer: missingFieldsAnswer, Sources: []string{}})
	}

	question := req.Question
	if question == "" {
		question = req.Query
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), s.config.RequestTimeout)
	defer cancel()

	answer := s.deps.Composer.Answer(ctx, question, s.parseHistory(req.History))
	return c.JSON(answer)
}

func (s *Server) parseHistory(raw json.RawMessage) []composer.Turn {
	if len(raw) == 0 {
		return nil
	}

	var history []composer.Turn
	if err := json.Unmarshal(raw, &history); err != nil {
		s.logger.Debug("ignoring malformed history", "error", err)
		return nil
	}
	return history
}
