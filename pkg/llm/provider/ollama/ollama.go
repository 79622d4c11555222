// Package ollama provides a Generator backed by a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/papercomputeco/docqa/pkg/llm"
	"github.com/papercomputeco/docqa/pkg/llm/provider"
)

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}

// Generator calls Ollama's /api/chat endpoint without streaming.
type Generator struct {
	spec       provider.Spec
	httpClient *http.Client
}

// New builds an Ollama Generator. The spec's BaseURL is required.
func New(spec provider.Spec) (*Generator, error) {
	if spec.BaseURL == "" {
		return nil, fmt.Errorf("ollama base URL is required")
	}
	spec = spec.WithDefaults()
	spec.BaseURL = strings.TrimRight(spec.BaseURL, "/")

	return &Generator{
		spec:       spec,
		httpClient: &http.Client{},
	}, nil
}

// Name returns "ollama".
func (g *Generator) Name() string {
	return string(provider.KindOllama)
}

// Generate sends the prompt as a system + user message pair.
func (g *Generator) Generate(ctx context.Context, p llm.Prompt) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if p.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: p.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: p.User})

	data, err := json.Marshal(chatRequest{
		Model:    g.spec.Model,
		Messages: messages,
		Stream:   false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.spec.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.spec.BaseURL+"/api/chat", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: ollama request: %v", llm.ErrGeneration, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", llm.ErrGeneration, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: ollama API error (status %d): %s", llm.ErrGeneration, resp.StatusCode, string(body))
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: unmarshal response: %v", llm.ErrGeneration, err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("%w: ollama error: %s", llm.ErrGeneration, result.Error)
	}
	if result.Message.Content == "" {
		return "", fmt.Errorf("%w: ollama returned an empty message", llm.ErrGeneration)
	}

	return result.Message.Content, nil
}

var _ llm.Generator = (*Generator)(nil)
