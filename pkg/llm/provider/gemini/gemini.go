// Package gemini provides a Generator backed by the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/papercomputeco/docqa/pkg/llm"
	"github.com/papercomputeco/docqa/pkg/llm/provider"
)

// Generator calls GenerateContent through the genai SDK.
type Generator struct {
	client *genai.Client
	spec   provider.Spec
}

// New builds a Gemini Generator.
func New(ctx context.Context, spec provider.Spec) (*Generator, error) {
	if spec.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	spec = spec.WithDefaults()

	cfg := &genai.ClientConfig{
		APIKey:  spec.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if spec.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: spec.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	return &Generator{
		client: client,
		spec:   spec,
	}, nil
}

// Name returns "gemini".
func (g *Generator) Name() string {
	return string(provider.KindGemini)
}

// Generate sends the user text as content and the system text as the system
// instruction.
func (g *Generator) Generate(ctx context.Context, p llm.Prompt) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.spec.Timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{}
	if p.System != "" {
		config.SystemInstruction = genai.NewContentFromText(p.System, genai.RoleUser)
	}

	contents := []*genai.Content{genai.NewContentFromText(p.User, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, g.spec.Model, contents, config)
	if err != nil {
		return "", fmt.Errorf("%w: gemini: %v", llm.ErrGeneration, err)
	}

	// Use the first candidate that carries text.
	var out strings.Builder
	if resp != nil {
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				out.WriteString(part.Text)
			}
			if out.Len() > 0 {
				break
			}
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("%w: gemini returned no text", llm.ErrGeneration)
	}

	return out.String(), nil
}

var _ llm.Generator = (*Generator)(nil)
