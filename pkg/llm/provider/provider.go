// Package provider describes the language-model backends docqa can use.
package provider

import (
	"fmt"
	"strings"
	"time"
)

// Kind names a language-model backend.
type Kind string

const (
	KindOpenRouter Kind = "openrouter"
	KindGroq       Kind = "groq"
	KindOpenAI     Kind = "openai"
	KindAnthropic  Kind = "anthropic"
	KindGemini     Kind = "gemini"
	KindOllama     Kind = "ollama"
)

// DefaultTimeout bounds a single generation call.
const DefaultTimeout = 90 * time.Second

// DefaultOrder is the provider priority used when none is configured.
var DefaultOrder = []Kind{
	KindOpenRouter,
	KindGroq,
	KindOpenAI,
	KindAnthropic,
	KindGemini,
	KindOllama,
}

// Spec configures one backend candidate for the selector.
type Spec struct {
	Kind Kind

	// APIKey is the backend credential. Ollama needs none; its BaseURL acts
	// as the credential instead.
	APIKey string

	// Model overrides the backend's default model.
	Model string

	// BaseURL overrides the backend's default endpoint.
	BaseURL string

	// Timeout bounds each Generate call. Defaults to DefaultTimeout.
	Timeout time.Duration
}

// HasCredential reports whether the spec carries what its backend needs to
// authenticate.
func (s Spec) HasCredential() bool {
	if s.Kind == KindOllama {
		return s.BaseURL != ""
	}
	return s.APIKey != ""
}

// WithDefaults fills empty fields with the backend's defaults.
func (s Spec) WithDefaults() Spec {
	d := defaults[s.Kind]
	if s.Model == "" {
		s.Model = d.model
	}
	if s.BaseURL == "" {
		s.BaseURL = d.baseURL
	}
	if s.Timeout <= 0 {
		s.Timeout = DefaultTimeout
	}
	return s
}

type kindDefaults struct {
	model   string
	baseURL string
}

var defaults = map[Kind]kindDefaults{
	KindOpenRouter: {model: "openai/gpt-3.5-turbo", baseURL: "https://openrouter.ai/api/v1"},
	KindGroq:       {model: "llama3-70b-8192", baseURL: "https://api.groq.com/openai/v1"},
	KindOpenAI:     {model: "gpt-4o-mini", baseURL: "https://api.openai.com/v1"},
	KindAnthropic:  {model: "claude-haiku-4-5-20251001"},
	KindGemini:     {model: "gemini-2.5-flash"},
	KindOllama:     {model: "llama3.2"},
}

// ParseKind validates a provider name.
func ParseKind(name string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := defaults[k]; !ok {
		return "", fmt.Errorf("unknown llm provider %q (supported: %s)", name, strings.Join(Names(), ", "))
	}
	return k, nil
}

// ParseOrder turns a list of provider names into kinds, preserving order.
func ParseOrder(names []string) ([]Kind, error) {
	kinds := make([]Kind, 0, len(names))
	for _, n := range names {
		k, err := ParseKind(n)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// Names returns the supported provider names in default priority order.
func Names() []string {
	names := make([]string, len(DefaultOrder))
	for i, k := range DefaultOrder {
		names[i] = string(k)
	}
	return names
}
