package api

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	apisearch "github.com/papercomputeco/docqa/api/search"
)

// handleSearchEndpoint handles GET /search requests.
// Query parameters:
//   - query (required): the search query text
//   - top_k (optional, default 5): number of results to return
func (s *Server) handleSearchEndpoint(c *fiber.Ctx) error {
	input := apisearch.SearchInput{Query: c.Query("query")}
	if topKStr := c.Query("top_k"); topKStr != "" {
		parsed, err := strconv.Atoi(topKStr)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "top_k must be an integer",
			})
		}
		input.TopK = parsed
	}

	if err := s.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "query is required and top_k must be between 0 and 100",
		})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), s.config.RequestTimeout)
	defer cancel()

	output, err := apisearch.Search(
		ctx,
		input.Query,
		input.TopK,
		s.deps.Retriever,
		s.logger,
	)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: err.Error(),
		})
	}

	return c.JSON(output)
}
