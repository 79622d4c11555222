package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/docqa/pkg/dotdir"
)

// EnvPrefix is the prefix of docqa environment variables.
const EnvPrefix = "DOCQA"

// legacyEnv maps config keys to the unprefixed environment variable names
// the deployment scripts already export.
var legacyEnv = map[string]string{
	"vector_store.target":     "QDRANT_URL",
	"vector_store.api_key":    "QDRANT_API_KEY",
	"llm.openrouter.api_key":  "OPENROUTER_API_KEY",
	"llm.groq.api_key":        "GROQ_API_KEY",
	"llm.openai.api_key":      "OPENAI_API_KEY",
	"llm.anthropic.api_key":   "ANTHROPIC_API_KEY",
	"llm.gemini.api_key":      "GEMINI_API_KEY",
	"llm.ollama.base_url":     "OLLAMA_HOST",
	"events.brokers":          "KAFKA_BROKERS",
	"embedding.api_key":       "EMBEDDING_API_KEY",
	"server.request_timeout":  "REQUEST_TIMEOUT",
	"vector_store.collection": "COLLECTION_NAME",
}

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the DOCQA_ prefix plus the legacy unprefixed names.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (DOCQA_SERVER_LISTEN, QDRANT_URL, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: DOCQA_VECTOR_STORE_TARGET, DOCQA_LLM_GROQ_API_KEY, etc.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Server
	v.SetDefault("server.listen", d.Server.Listen)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout)
	v.SetDefault("server.log_file", d.Server.LogFile)

	// Vector store
	v.SetDefault("vector_store.provider", d.VectorStore.Provider)
	v.SetDefault("vector_store.target", d.VectorStore.Target)
	v.SetDefault("vector_store.api_key", d.VectorStore.APIKey)
	v.SetDefault("vector_store.collection", d.VectorStore.Collection)

	// Embedding
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.api_key", d.Embedding.APIKey)

	// Chunking
	v.SetDefault("chunking.size", d.Chunking.Size)
	v.SetDefault("chunking.overlap", d.Chunking.Overlap)
	v.SetDefault("chunking.input", d.Chunking.Input)
	v.SetDefault("chunking.output", d.Chunking.Output)

	// Retrieval
	v.SetDefault("retrieval.k", d.Retrieval.K)
	v.SetDefault("retrieval.max_attempts", d.Retrieval.MaxAttempts)

	// LLM
	v.SetDefault("llm.order", d.LLM.Order)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.product", d.LLM.Product)
	v.SetDefault("llm.docs_url", d.LLM.DocsURL)
	for name, p := range map[string]ProviderConfig{
		"openrouter": d.LLM.OpenRouter,
		"groq":       d.LLM.Groq,
		"openai":     d.LLM.OpenAI,
		"anthropic":  d.LLM.Anthropic,
		"gemini":     d.LLM.Gemini,
		"ollama":     d.LLM.Ollama,
	} {
		v.SetDefault("llm."+name+".api_key", p.APIKey)
		v.SetDefault("llm."+name+".model", p.Model)
		v.SetDefault("llm."+name+".base_url", p.BaseURL)
	}

	// Crawler
	v.SetDefault("crawler.output", d.Crawler.Output)
	v.SetDefault("crawler.concurrency", d.Crawler.Concurrency)
	v.SetDefault("crawler.requests_per_second", d.Crawler.RequestsPerSecond)

	// Events
	v.SetDefault("events.provider", d.Events.Provider)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)
}
