// Package embeddingutils is the embeddings utility package
package embeddingutils

import (
	"fmt"
	"time"

	"github.com/papercomputeco/docqa/pkg/embeddings"
	"github.com/papercomputeco/docqa/pkg/embeddings/ollama"
	"github.com/papercomputeco/docqa/pkg/embeddings/openai"
)

// Supported embedding provider names.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKey       string
	Timeout      time.Duration
}

func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	switch o.ProviderType {
	case ProviderOllama:
		return ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL: o.TargetURL,
			Model:   o.Model,
			Timeout: o.Timeout,
		})
	case ProviderOpenAI:
		return openai.NewEmbedder(openai.EmbedderConfig{
			BaseURL: o.TargetURL,
			APIKey:  o.APIKey,
			Model:   o.Model,
			Timeout: o.Timeout,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
}
