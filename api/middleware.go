package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// requestLogger logs every request at debug level once it completes.
func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	s.logger.Debug("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"latency", time.Since(start),
	)
	return err
}
