// Package anthropic provides a Generator backed by the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/papercomputeco/docqa/pkg/llm"
	"github.com/papercomputeco/docqa/pkg/llm/provider"
)

// DefaultMaxTokens bounds the reply length.
const DefaultMaxTokens = 4096

// Generator calls Claude through the official SDK.
type Generator struct {
	client anthropic.Client
	spec   provider.Spec
}

// New builds an Anthropic Generator.
func New(spec provider.Spec) (*Generator, error) {
	if spec.APIKey == "" {
		return nil, errors.New("anthropic API key is required")
	}
	spec = spec.WithDefaults()

	opts := []option.RequestOption{option.WithAPIKey(spec.APIKey)}
	if spec.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(spec.BaseURL))
	}

	return &Generator{
		client: anthropic.NewClient(opts...),
		spec:   spec,
	}, nil
}

// Name returns "anthropic".
func (g *Generator) Name() string {
	return string(provider.KindAnthropic)
}

// Generate sends the prompt with the system text as the system block.
func (g *Generator) Generate(ctx context.Context, p llm.Prompt) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.spec.Timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.spec.Model),
		MaxTokens: DefaultMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(p.User)),
		},
	}
	if p.System != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: p.System},
		}
	}

	resp, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: anthropic: %v", llm.ErrGeneration, err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("%w: anthropic returned no text", llm.ErrGeneration)
	}

	return out.String(), nil
}

var _ llm.Generator = (*Generator)(nil)
