package api

import (
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/papercomputeco/docqa/api/mcp"
)

// Server is the API server for asking questions about the indexed
// documentation.
type Server struct {
	config   Config
	deps     Deps
	logger   *slog.Logger
	validate *validator.Validate
	app      *fiber.App
}

// NewServer creates a new API server.
func NewServer(config Config, deps Deps) (*Server, error) {
	if deps.Composer == nil {
		return nil, errors.New("composer is required")
	}
	if deps.Retriever == nil {
		return nil, errors.New("retriever is required")
	}
	if deps.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	if config.AllowOrigins == "" {
		config.AllowOrigins = "*"
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:   config,
		deps:     deps,
		logger:   deps.Logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		app:      app,
	}

	mcpServer, err := mcp.NewServer(mcp.Config{
		Answerer: deps.Composer,
		Searcher: deps.Retriever,
		Logger:   deps.Logger,
	})
	if err != nil {
		return nil, err
	}

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{AllowOrigins: config.AllowOrigins}))
	app.Use(s.requestLogger)

	app.Get("/ping", s.handlePing)
	app.Post("/ask", s.handleAsk)
	app.Get("/search", s.handleSearchEndpoint)
	app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	attrs := []any{"listen", s.config.ListenAddr}
	if s.deps.Generator != nil {
		attrs = append(attrs, "llm", s.deps.Generator.Name())
	}
	s.logger.Info("starting API server", attrs...)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
