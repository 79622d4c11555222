package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/papercomputeco/docqa/pkg/embeddings"
)

// MockEmbedder is a test embedder that returns predictable embeddings
type MockEmbedder struct {
	mu sync.Mutex

	Embeddings map[string][]float32

	// FailOn causes Embed to return an error when the input text matches
	FailOn string

	// Err, when set, is returned by every call.
	Err error

	// Calls counts Embed and EmbedMany invocations.
	Calls int
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
	}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	return m.embed(text)
}

func (m *MockEmbedder) EmbedMany(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++

	out := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := m.embed(text)
		if err != nil {
			return nil, err
		}
		out[i] = emb
	}
	return out, nil
}

func (m *MockEmbedder) embed(text string) ([]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.FailOn != "" && text == m.FailOn {
		return nil, fmt.Errorf("%w: mock embedding failure for: %s", embeddings.ErrEmbedding, text)
	}

	if emb, ok := m.Embeddings[text]; ok {
		return emb, nil
	}

	// Return a default embedding for any text
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *MockEmbedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*MockEmbedder)(nil)
