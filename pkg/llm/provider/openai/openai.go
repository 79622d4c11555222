// Package openai provides a Generator for OpenAI-compatible Chat Completions
// APIs. It serves OpenAI, OpenRouter and Groq, which share the wire format.
package openai

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
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generator calls a Chat Completions endpoint.
type Generator struct {
	name       string
	spec       provider.Spec
	httpClient *http.Client
}

// New builds a Generator for an OpenAI-compatible spec.
func New(spec provider.Spec) (*Generator, error) {
	switch spec.Kind {
	case provider.KindOpenAI, provider.KindOpenRouter, provider.KindGroq:
	default:
		return nil, fmt.Errorf("provider %q is not OpenAI-compatible", spec.Kind)
	}

	spec = spec.WithDefaults()
	if spec.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required", spec.Kind)
	}
	spec.BaseURL = strings.TrimRight(spec.BaseURL, "/")

	return &Generator{
		name:       string(spec.Kind),
		spec:       spec,
		httpClient: &http.Client{},
	}, nil
}

// Name returns the backend kind.
func (g *Generator) Name() string {
	return g.name
}

// Model returns the configured model.
func (g *Generator) Model() string {
	return g.spec.Model
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
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.spec.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.spec.BaseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.spec.APIKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s request: %v", llm.ErrGeneration, g.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", llm.ErrGeneration, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s API error (status %d): %s", llm.ErrGeneration, g.name, resp.StatusCode, string(body))
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: unmarshal response: %v", llm.ErrGeneration, err)
	}

	if result.Error != nil {
		return "", fmt.Errorf("%w: %s error: %s", llm.ErrGeneration, g.name, result.Error.Message)
	}

	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: %s returned no choices", llm.ErrGeneration, g.name)
	}

	return result.Choices[0].Message.Content, nil
}

var _ llm.Generator = (*Generator)(nil)
