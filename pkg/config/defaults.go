package config

const (
	defaultListen         = ":8000"
	defaultRequestTimeout = "120s"

	defaultVectorProvider   = "qdrant"
	defaultVectorTarget     = "http://localhost:6333"
	defaultVectorCollection = "garden_docs"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "all-minilm"
	defaultEmbeddingDimensions = 384

	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
	defaultChunkInput   = "total_docs.md"
	defaultChunkOutput  = "doc_chunks.txt"

	defaultRetrievalK           = 10
	defaultRetrievalMaxAttempts = 3

	defaultLLMOrder   = "openrouter,groq,openai,anthropic,gemini,ollama"
	defaultLLMTimeout = "90s"
	defaultProduct    = "the Garden SDK React Quickstart"
	defaultDocsURL    = "https://docs.garden.finance/"

	defaultCrawlerOutput      = "total_docs.md"
	defaultCrawlerConcurrency = 4
	defaultCrawlerRPS         = 4.0

	defaultEventsProvider = "nop"
	defaultEventsBrokers  = "localhost:9092"
	defaultEventsTopic    = "docqa.answers"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Server: ServerConfig{
			Listen:         defaultListen,
			RequestTimeout: defaultRequestTimeout,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Target:     defaultVectorTarget,
			Collection: defaultVectorCollection,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		Chunking: ChunkingConfig{
			Size:    defaultChunkSize,
			Overlap: defaultChunkOverlap,
			Input:   defaultChunkInput,
			Output:  defaultChunkOutput,
		},
		Retrieval: RetrievalConfig{
			K:           defaultRetrievalK,
			MaxAttempts: defaultRetrievalMaxAttempts,
		},
		LLM: LLMConfig{
			Order:   defaultLLMOrder,
			Timeout: defaultLLMTimeout,
			Product: defaultProduct,
			DocsURL: defaultDocsURL,
		},
		Crawler: CrawlerConfig{
			Output:            defaultCrawlerOutput,
			Concurrency:       defaultCrawlerConcurrency,
			RequestsPerSecond: defaultCrawlerRPS,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Brokers:  defaultEventsBrokers,
			Topic:    defaultEventsTopic,
		},
	}
}
