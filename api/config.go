// Package api provides the HTTP API server that answers documentation
// questions.
package api

import (
	"time"
)

// DefaultRequestTimeout bounds one /ask request.
const DefaultRequestTimeout = 120 * time.Second

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8000")
	ListenAddr string

	// RequestTimeout bounds the answering pipeline of one request.
	RequestTimeout time.Duration

	// AllowOrigins is the CORS allow list. Empty allows every origin.
	AllowOrigins string
}
