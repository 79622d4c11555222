package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/docqa/pkg/llm"
)

// MockGenerator is a scripted llm.Generator.
type MockGenerator struct {
	mu sync.Mutex

	name string

	// Response is returned by Generate unless Reply is set.
	Response string

	// Reply, when set, computes the response from the prompt.
	Reply func(llm.Prompt) string

	// Err, when set, is returned by Generate.
	Err error

	// Prompts records every prompt passed to Generate.
	Prompts []llm.Prompt
}

func NewMockGenerator(name string) *MockGenerator {
	return &MockGenerator{name: name}
}

func (m *MockGenerator) Name() string {
	return m.name
}

func (m *MockGenerator) Generate(_ context.Context, p llm.Prompt) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Prompts = append(m.Prompts, p)
	if m.Err != nil {
		return "", m.Err
	}
	if m.Reply != nil {
		return m.Reply(p), nil
	}
	return m.Response, nil
}

var _ llm.Generator = (*MockGenerator)(nil)
