package services

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyChunkSize       = "chunking.size"
	keyChunkOverlap    = "chunking.overlap"
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedDims       = "embedding.dimensions"
	keyEmbedRPS        = "embedding.requests_per_second"
	keyIngestWorkers   = "ingestion.workers"
	keyIngestMaxUpload = "ingestion.max_upload_bytes"
	keyStorageDataDir  = "storage.data_dir"
)

// Environment variables consulted when no API key is configured.
//
//nolint:gosec // G101: These are variable names, not credentials.
const (
	EnvEmbeddingAPIKey = "DOCRAG_EMBEDDING_API_KEY"
	EnvVoyageAPIKey    = "VOYAGE_API_KEY"
)

// SettingKeys lists every key accepted by Set, in display order.
var SettingKeys = []string{
	keyChunkSize,
	keyChunkOverlap,
	keyEmbedProvider,
	keyEmbedModel,
	keyEmbedBaseURL,
	keyEmbedAPIKey,
	keyEmbedDims,
	keyEmbedRPS,
	keyIngestWorkers,
	keyIngestMaxUpload,
	keyStorageDataDir,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings, filling unset keys with defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Chunking: domain.ChunkingSettings{
			Size:    s.getInt(keyChunkSize, defaults.Chunking.Size),
			Overlap: s.getInt(keyChunkOverlap, defaults.Chunking.Overlap),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:             s.configStore.GetString(keyEmbedModel),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL),
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			Dimensions:        s.configStore.GetInt(keyEmbedDims),
			RequestsPerSecond: s.configStore.GetFloat(keyEmbedRPS),
		},
		Ingestion: domain.IngestionSettings{
			Workers:        s.getInt(keyIngestWorkers, defaults.Ingestion.Workers),
			MaxUploadBytes: int64(s.getInt(keyIngestMaxUpload, int(defaults.Ingestion.MaxUploadBytes))),
		},
		Storage: domain.StorageSettings{
			DataDir: s.configStore.GetString(keyStorageDataDir),
		},
	}

	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = apiKeyFromEnv(settings.Embedding.Provider)
	}

	return settings, nil
}

// Save validates and persists application settings.
// An API key that came from the environment is not written to disk.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	values := []struct {
		key   string
		value any
	}{
		{keyChunkSize, settings.Chunking.Size},
		{keyChunkOverlap, settings.Chunking.Overlap},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDims, settings.Embedding.Dimensions},
		{keyEmbedRPS, settings.Embedding.RequestsPerSecond},
		{keyIngestWorkers, settings.Ingestion.Workers},
		{keyIngestMaxUpload, settings.Ingestion.MaxUploadBytes},
		{keyStorageDataDir, settings.Storage.DataDir},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if key := settings.Embedding.APIKey; key != "" && key != apiKeyFromEnv(settings.Embedding.Provider) {
		if err := s.configStore.Set(keyEmbedAPIKey, key); err != nil {
			return fmt.Errorf("save %s: %w", keyEmbedAPIKey, err)
		}
	}

	return nil
}

// Set parses value for key, validates the resulting settings and persists
// the single key. Unknown keys fail with domain.ErrInvalidInput.
func (s *SettingsService) Set(key, value string) error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	value = strings.TrimSpace(value)
	var stored any

	switch key {
	case keyChunkSize:
		settings.Chunking.Size, err = parseInt(key, value)
		stored = settings.Chunking.Size
	case keyChunkOverlap:
		settings.Chunking.Overlap, err = parseInt(key, value)
		stored = settings.Chunking.Overlap
	case keyEmbedProvider:
		provider := domain.AIProvider(strings.ToLower(value))
		if value != "" && !provider.IsValid() {
			return fmt.Errorf("%w: unknown embedding provider %q", domain.ErrConfiguration, value)
		}
		settings.Embedding.Provider = provider
		stored = provider.String()
	case keyEmbedModel:
		settings.Embedding.Model = value
		stored = value
	case keyEmbedBaseURL:
		settings.Embedding.BaseURL = value
		stored = value
	case keyEmbedAPIKey:
		settings.Embedding.APIKey = value
		stored = value
	case keyEmbedDims:
		settings.Embedding.Dimensions, err = parseInt(key, value)
		stored = settings.Embedding.Dimensions
	case keyEmbedRPS:
		settings.Embedding.RequestsPerSecond, err = strconv.ParseFloat(value, 64)
		if err != nil || settings.Embedding.RequestsPerSecond < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number, got %q", domain.ErrConfiguration, key, value)
		}
		stored = settings.Embedding.RequestsPerSecond
	case keyIngestWorkers:
		settings.Ingestion.Workers, err = parseInt(key, value)
		stored = settings.Ingestion.Workers
	case keyIngestMaxUpload:
		var n int
		n, err = parseInt(key, value)
		settings.Ingestion.MaxUploadBytes = int64(n)
		stored = n
	case keyStorageDataDir:
		settings.Storage.DataDir = value
		stored = value
	default:
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	if err != nil {
		return err
	}

	if err := settings.Validate(); err != nil {
		return err
	}
	return s.configStore.Set(key, stored)
}

// Validate checks the current settings.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return settings.Validate()
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func parseInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", domain.ErrConfiguration, key, value)
	}
	return n, nil
}

// apiKeyFromEnv returns the key for provider from the environment.
func apiKeyFromEnv(provider domain.AIProvider) string {
	if key := os.Getenv(EnvEmbeddingAPIKey); key != "" {
		return key
	}
	if provider == domain.AIProviderVoyage {
		return os.Getenv(EnvVoyageAPIKey)
	}
	return ""
}
