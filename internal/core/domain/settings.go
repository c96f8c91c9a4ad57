package domain

import "fmt"

const unknownDescription = "Unknown"

// Default settings values.
const (
	DefaultChunkSize      = 1000
	DefaultChunkOverlap   = 200
	DefaultWorkers        = 2
	DefaultMaxUploadBytes = 10 * 1024 * 1024
)

// AIProvider identifies an embedding service provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderVoyage is the Voyage AI cloud API.
	AIProviderVoyage AIProvider = "voyage"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderVoyage, AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderVoyage || p == AIProviderOpenAI
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderVoyage:
		return "Voyage AI (cloud)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// ChunkingSettings holds the chunker window configuration.
type ChunkingSettings struct {
	// Size is the window length in characters.
	Size int

	// Overlap is the number of characters shared by adjacent chunks.
	Overlap int
}

// Validate rejects windows that cannot make forward progress.
func (c ChunkingSettings) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrConfiguration, c.Size)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("%w: chunk overlap must not be negative, got %d", ErrConfiguration, c.Overlap)
	}
	if c.Overlap >= c.Size {
		return fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d",
			ErrConfiguration, c.Overlap, c.Size)
	}
	return nil
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL overrides the API endpoint.
	BaseURL string

	// APIKey is the API key (for Voyage and OpenAI).
	APIKey string

	// Dimensions overrides the model's vector size where supported.
	Dimensions int

	// RequestsPerSecond throttles provider calls. Zero uses the adapter default.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// IngestionSettings holds background processing limits.
type IngestionSettings struct {
	// Workers is the number of documents processed concurrently.
	Workers int

	// MaxUploadBytes rejects uploads larger than this.
	MaxUploadBytes int64
}

// StorageSettings locates persistent data.
type StorageSettings struct {
	// DataDir holds the SQLite database and uploaded files.
	// Empty means ~/.docrag/data.
	DataDir string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Chunking  ChunkingSettings
	Embedding EmbeddingSettings
	Ingestion IngestionSettings
	Storage   StorageSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// The embedding provider is left unconfigured; ingestion and search
// require it to be set explicitly.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Chunking: ChunkingSettings{
			Size:    DefaultChunkSize,
			Overlap: DefaultChunkOverlap,
		},
		Embedding: EmbeddingSettings{},
		Ingestion: IngestionSettings{
			Workers:        DefaultWorkers,
			MaxUploadBytes: DefaultMaxUploadBytes,
		},
	}
}

// Validate checks settings that would otherwise fail at runtime.
func (s AppSettings) Validate() error {
	if err := s.Chunking.Validate(); err != nil {
		return err
	}
	if s.Embedding.Provider != "" && !s.Embedding.Provider.IsValid() {
		return fmt.Errorf("%w: unknown embedding provider %q", ErrConfiguration, s.Embedding.Provider)
	}
	if s.Embedding.Dimensions < 0 {
		return fmt.Errorf("%w: embedding dimensions must not be negative", ErrConfiguration)
	}
	if s.Ingestion.Workers <= 0 {
		return fmt.Errorf("%w: ingestion workers must be positive, got %d", ErrConfiguration, s.Ingestion.Workers)
	}
	if s.Ingestion.MaxUploadBytes <= 0 {
		return fmt.Errorf("%w: max upload bytes must be positive", ErrConfiguration)
	}
	return nil
}
