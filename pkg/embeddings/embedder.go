// Package embeddings defines the text embedding capability used to index
// documentation chunks and to embed questions at query time.
package embeddings

import (
	"context"
	"errors"
)

// ErrEmbedding is returned (wrapped) when the embedding service fails or
// returns an unusable response. Callers must never substitute empty vectors.
var ErrEmbedding = errors.New("embedding failed")

// Embedder provides text embedding capabilities. Implementations are
// deterministic for a fixed model configuration.
type Embedder interface {
	// Embed converts a single text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedMany converts texts into embeddings, preserving input order.
	// The result always has len(texts) entries on success.
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
