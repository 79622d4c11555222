package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent docqa configuration stored as config.toml
// in the .docqa/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Server      ServerConfig      `toml:"server"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Chunking    ChunkingConfig    `toml:"chunking"`
	Retrieval   RetrievalConfig   `toml:"retrieval"`
	LLM         LLMConfig         `toml:"llm"`
	Crawler     CrawlerConfig     `toml:"crawler"`
	Events      EventsConfig      `toml:"events"`
}

// ServerConfig holds query API server settings.
type ServerConfig struct {
	Listen string `toml:"listen,omitempty"`

	// RequestTimeout bounds one /ask or /search request, as a Go duration
	// string.
	RequestTimeout string `toml:"request_timeout,omitempty"`

	// LogFile, when set, receives a JSON copy of the server log.
	LogFile string `toml:"log_file,omitempty"`
}

// VectorStoreConfig holds vector store settings.
type VectorStoreConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
	Collection string `toml:"collection,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
}

// ChunkingConfig holds the chunk command settings.
type ChunkingConfig struct {
	Size    int    `toml:"size,omitempty"`
	Overlap int    `toml:"overlap,omitempty"`
	Input   string `toml:"input,omitempty"`
	Output  string `toml:"output,omitempty"`
}

// RetrievalConfig holds retriever settings.
type RetrievalConfig struct {
	K           int `toml:"k,omitempty"`
	MaxAttempts int `toml:"max_attempts,omitempty"`
}

// LLMConfig holds language model settings. Order lists provider kinds in
// priority order, comma separated.
type LLMConfig struct {
	Order   string `toml:"order,omitempty"`
	Timeout string `toml:"timeout,omitempty"`

	// Product and DocsURL are bound into the system prompt.
	Product string `toml:"product,omitempty"`
	DocsURL string `toml:"docs_url,omitempty"`

	OpenRouter ProviderConfig `toml:"openrouter"`
	Groq       ProviderConfig `toml:"groq"`
	OpenAI     ProviderConfig `toml:"openai"`
	Anthropic  ProviderConfig `toml:"anthropic"`
	Gemini     ProviderConfig `toml:"gemini"`
	Ollama     ProviderConfig `toml:"ollama"`
}

// ProviderConfig holds the settings of one language model backend. Empty
// Model and BaseURL fall back to the backend's defaults.
type ProviderConfig struct {
	APIKey  string `toml:"api_key,omitempty"`
	Model   string `toml:"model,omitempty"`
	BaseURL string `toml:"base_url,omitempty"`
}

// CrawlerConfig holds crawl command settings.
type CrawlerConfig struct {
	Output            string  `toml:"output,omitempty"`
	Concurrency       int     `toml:"concurrency,omitempty"`
	RequestsPerSecond float64 `toml:"requests_per_second,omitempty"`
}

// EventsConfig holds answer event publishing settings.
type EventsConfig struct {
	// Provider is "nop" or "kafka".
	Provider string `toml:"provider,omitempty"`

	// Brokers is a comma separated list of kafka broker addresses.
	Brokers string `toml:"brokers,omitempty"`
	Topic   string `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func intKey(name string, field func(c *Config) *int) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.Itoa(*field(c))
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = n
			return nil
		},
	}
}

func durationKey(name string, field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = v
			return nil
		},
	}
}

func providerKeys(name string, field func(c *Config) *ProviderConfig) map[string]configKeyInfo {
	return map[string]configKeyInfo{
		"llm." + name + ".api_key":  stringKey(func(c *Config) *string { return &field(c).APIKey }),
		"llm." + name + ".model":    stringKey(func(c *Config) *string { return &field(c).Model }),
		"llm." + name + ".base_url": stringKey(func(c *Config) *string { return &field(c).BaseURL }),
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = buildConfigKeys()

func buildConfigKeys() map[string]configKeyInfo {
	keys := map[string]configKeyInfo{
		"server.listen":          stringKey(func(c *Config) *string { return &c.Server.Listen }),
		"server.log_file":        stringKey(func(c *Config) *string { return &c.Server.LogFile }),
		"server.request_timeout": durationKey("server.request_timeout", func(c *Config) *string { return &c.Server.RequestTimeout }),

		"vector_store.provider":   stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
		"vector_store.target":     stringKey(func(c *Config) *string { return &c.VectorStore.Target }),
		"vector_store.api_key":    stringKey(func(c *Config) *string { return &c.VectorStore.APIKey }),
		"vector_store.collection": stringKey(func(c *Config) *string { return &c.VectorStore.Collection }),

		"embedding.provider": stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
		"embedding.target":   stringKey(func(c *Config) *string { return &c.Embedding.Target }),
		"embedding.model":    stringKey(func(c *Config) *string { return &c.Embedding.Model }),
		"embedding.api_key":  stringKey(func(c *Config) *string { return &c.Embedding.APIKey }),
		"embedding.dimensions": {
			get: func(c *Config) string {
				if c.Embedding.Dimensions == 0 {
					return ""
				}
				return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
			},
			set: func(c *Config, v string) error {
				n, err := strconv.ParseUint(v, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid value for embedding.dimensions: %w", err)
				}
				c.Embedding.Dimensions = uint(n)
				return nil
			},
		},

		"chunking.size":    intKey("chunking.size", func(c *Config) *int { return &c.Chunking.Size }),
		"chunking.overlap": intKey("chunking.overlap", func(c *Config) *int { return &c.Chunking.Overlap }),
		"chunking.input":   stringKey(func(c *Config) *string { return &c.Chunking.Input }),
		"chunking.output":  stringKey(func(c *Config) *string { return &c.Chunking.Output }),

		"retrieval.k":            intKey("retrieval.k", func(c *Config) *int { return &c.Retrieval.K }),
		"retrieval.max_attempts": intKey("retrieval.max_attempts", func(c *Config) *int { return &c.Retrieval.MaxAttempts }),

		"llm.order":    stringKey(func(c *Config) *string { return &c.LLM.Order }),
		"llm.timeout":  durationKey("llm.timeout", func(c *Config) *string { return &c.LLM.Timeout }),
		"llm.product":  stringKey(func(c *Config) *string { return &c.LLM.Product }),
		"llm.docs_url": stringKey(func(c *Config) *string { return &c.LLM.DocsURL }),

		"crawler.output":      stringKey(func(c *Config) *string { return &c.Crawler.Output }),
		"crawler.concurrency": intKey("crawler.concurrency", func(c *Config) *int { return &c.Crawler.Concurrency }),
		"crawler.requests_per_second": {
			get: func(c *Config) string {
				if c.Crawler.RequestsPerSecond == 0 {
					return ""
				}
				return strconv.FormatFloat(c.Crawler.RequestsPerSecond, 'f', -1, 64)
			},
			set: func(c *Config, v string) error {
				f, err := strconv.ParseFloat(v, 64)
				if err != nil {
					return fmt.Errorf("invalid value for crawler.requests_per_second: %w", err)
				}
				c.Crawler.RequestsPerSecond = f
				return nil
			},
		},

		"events.provider": stringKey(func(c *Config) *string { return &c.Events.Provider }),
		"events.brokers":  stringKey(func(c *Config) *string { return &c.Events.Brokers }),
		"events.topic":    stringKey(func(c *Config) *string { return &c.Events.Topic }),
	}

	for name, field := range map[string]func(c *Config) *ProviderConfig{
		"openrouter": func(c *Config) *ProviderConfig { return &c.LLM.OpenRouter },
		"groq":       func(c *Config) *ProviderConfig { return &c.LLM.Groq },
		"openai":     func(c *Config) *ProviderConfig { return &c.LLM.OpenAI },
		"anthropic":  func(c *Config) *ProviderConfig { return &c.LLM.Anthropic },
		"gemini":     func(c *Config) *ProviderConfig { return &c.LLM.Gemini },
		"ollama":     func(c *Config) *ProviderConfig { return &c.LLM.Ollama },
	} {
		for k, info := range providerKeys(name, field) {
			keys[k] = info
		}
	}

	return keys
}
