package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --collection
// on "docqa serve", "docqa index" and "docqa ask").
type Flag struct {
	// Name is the long flag name (e.g. "collection").
	Name string

	// Shorthand is the one-letter short flag (e.g. "c"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "vector_store.collection").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddIntFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagListen          = "listen"
	FlagVectorStoreProv = "vector-store-provider"
	FlagVectorStoreTgt  = "vector-store-target"
	FlagCollection      = "collection"
	FlagEmbeddingProv   = "embedding-provider"
	FlagEmbeddingTgt    = "embedding-target"
	FlagEmbeddingModel  = "embedding-model"
	FlagEmbeddingDims   = "embedding-dimensions"
	FlagChunkSize       = "chunk-size"
	FlagChunkOverlap    = "chunk-overlap"
	FlagChunkInput      = "chunk-input"
	FlagChunkOutput     = "chunk-output"
	FlagTopK            = "top-k"
	FlagLLMOrder        = "llm-order"
	FlagCrawlOutput     = "crawl-output"
	FlagEventsProvider  = "events-provider"
	FlagLogFile         = "log-file"
)

// Flags is the registry shared by every docqa command.
var Flags = FlagSet{
	FlagListen:          {Name: "listen", Shorthand: "l", ViperKey: "server.listen", Description: "Address for the API server to listen on"},
	FlagVectorStoreProv: {Name: "vector-store-provider", ViperKey: "vector_store.provider", Description: "Vector store provider (qdrant, sqlite, postgres, chroma, memory)"},
	FlagVectorStoreTgt:  {Name: "vector-store-target", ViperKey: "vector_store.target", Description: "Vector store URL, DSN or database path"},
	FlagCollection:      {Name: "collection", Shorthand: "c", ViperKey: "vector_store.collection", Description: "Vector collection holding the documentation chunks"},
	FlagEmbeddingProv:   {Name: "embedding-provider", ViperKey: "embedding.provider", Description: "Embedding provider (ollama, openai)"},
	FlagEmbeddingTgt:    {Name: "embedding-target", ViperKey: "embedding.target", Description: "Embedding provider URL"},
	FlagEmbeddingModel:  {Name: "embedding-model", ViperKey: "embedding.model", Description: "Embedding model name"},
	FlagEmbeddingDims:   {Name: "embedding-dimensions", ViperKey: "embedding.dimensions", Description: "Expected embedding dimensions (0 to accept any)"},
	FlagChunkSize:       {Name: "chunk-size", ViperKey: "chunking.size", Description: "Target chunk length in characters"},
	FlagChunkOverlap:    {Name: "chunk-overlap", ViperKey: "chunking.overlap", Description: "Characters shared by adjacent chunks"},
	FlagChunkInput:      {Name: "input", Shorthand: "i", ViperKey: "chunking.input", Description: "Document file to split"},
	FlagChunkOutput:     {Name: "output", Shorthand: "o", ViperKey: "chunking.output", Description: "Chunk file path"},
	FlagTopK:            {Name: "top-k", Shorthand: "k", ViperKey: "retrieval.k", Description: "Number of chunks retrieved per question"},
	FlagLLMOrder:        {Name: "llm-order", ViperKey: "llm.order", Description: "Comma separated LLM provider priority"},
	FlagCrawlOutput:     {Name: "output", Shorthand: "o", ViperKey: "crawler.output", Description: "Document file to write"},
	FlagEventsProvider:  {Name: "events-provider", ViperKey: "events.provider", Description: "Answer event publisher (nop, kafka)"},
	FlagLogFile:         {Name: "log-file", ViperKey: "server.log_file", Description: "Also write JSON logs to this file"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddIntFlag registers an int flag on cmd from the given FlagSet.
func AddIntFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *int) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultInt(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().IntVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().IntVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultInt returns the default int value for a viper key from NewDefaultConfig.
func defaultInt(viperKey string) int {
	v := viper.New()
	setViperDefaults(v)
	return v.GetInt(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}
