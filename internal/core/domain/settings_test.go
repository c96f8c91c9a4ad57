package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAIProvider_IsValid(t *testing.T) {
	assert.True(t, AIProviderVoyage.IsValid())
	assert.True(t, AIProviderOllama.IsValid())
	assert.True(t, AIProviderOpenAI.IsValid())
	assert.False(t, AIProvider("").IsValid())
	assert.False(t, AIProvider("anthropic").IsValid())
}

func TestAIProvider_RequiresAPIKey(t *testing.T) {
	assert.True(t, AIProviderVoyage.RequiresAPIKey())
	assert.True(t, AIProviderOpenAI.RequiresAPIKey())
	assert.False(t, AIProviderOllama.RequiresAPIKey())
	assert.True(t, AIProviderOllama.IsLocal())
}

func TestAIProvider_Description(t *testing.T) {
	assert.Equal(t, "Voyage AI (cloud)", AIProviderVoyage.Description())
	assert.Equal(t, unknownDescription, AIProvider("other").Description())
}

func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings EmbeddingSettings
		expected bool
	}{
		{"empty", EmbeddingSettings{}, false},
		{"voyage without key", EmbeddingSettings{Provider: AIProviderVoyage}, false},
		{"voyage with key", EmbeddingSettings{Provider: AIProviderVoyage, APIKey: "k"}, true},
		{"ollama without key", EmbeddingSettings{Provider: AIProviderOllama}, true},
		{"unknown provider", EmbeddingSettings{Provider: "x", APIKey: "k"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.settings.IsConfigured())
		})
	}
}

func TestChunkingSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{"defaults", DefaultChunkSize, DefaultChunkOverlap, false},
		{"no overlap", 100, 0, false},
		{"overlap one below size", 100, 99, false},
		{"overlap equals size", 100, 100, true},
		{"overlap exceeds size", 100, 150, true},
		{"negative overlap", 100, -1, true},
		{"zero size", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ChunkingSettings{Size: tt.size, Overlap: tt.overlap}.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrConfiguration))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDefaultAppSettings(t *testing.T) {
	settings := DefaultAppSettings()

	assert.Equal(t, 1000, settings.Chunking.Size)
	assert.Equal(t, 200, settings.Chunking.Overlap)
	assert.Equal(t, DefaultWorkers, settings.Ingestion.Workers)
	assert.Equal(t, int64(10*1024*1024), settings.Ingestion.MaxUploadBytes)
	assert.False(t, settings.Embedding.IsConfigured())
	assert.NoError(t, settings.Validate())
}

func TestAppSettings_Validate(t *testing.T) {
	settings := DefaultAppSettings()
	settings.Embedding.Provider = "bogus"
	assert.ErrorIs(t, settings.Validate(), ErrConfiguration)

	settings = DefaultAppSettings()
	settings.Ingestion.Workers = 0
	assert.ErrorIs(t, settings.Validate(), ErrConfiguration)

	settings = DefaultAppSettings()
	settings.Chunking.Overlap = settings.Chunking.Size
	assert.ErrorIs(t, settings.Validate(), ErrConfiguration)
}
