// Package voyage provides an embedding service adapter using the Voyage AI API.
package voyage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/docrag/internal/adapters/driven/embedding/ratelimit"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBaseURL      = "https://api.voyageai.com/v1"
	DefaultModel        = "voyage-3"
	DefaultTimeout      = 60 * time.Second
	DefaultMaxBatchSize = 128
)

// Input types understood by the API. Voyage prepends a retrieval prompt for
// each, so document and query vectors are not interchangeable.
const (
	inputTypeDocument = "document"
	inputTypeQuery    = "query"
)

// Model dimensions for Voyage embedding models.
var modelDimensions = map[string]int{
	"voyage-3":        1024,
	"voyage-3-large":  1024,
	"voyage-3.5":      1024,
	"voyage-3.5-lite": 1024,
	"voyage-3-lite":   512,
	"voyage-code-3":   1024,
}

// Config holds configuration for the Voyage embedding service.
type Config struct {
	// APIKey is the Voyage API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.voyageai.com/v1).
	BaseURL string

	// Model is the embedding model to use (default: voyage-3).
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// Dimensions requests a specific output size from models that support it.
	Dimensions int

	// MaxBatchSize caps the inputs sent per request (default: 128).
	MaxBatchSize int

	// RequestsPerSecond throttles requests. Zero uses the provider default.
	RequestsPerSecond float64
}

// EmbeddingService generates embeddings using the Voyage API.
type EmbeddingService struct {
	client       *http.Client
	limiter      *ratelimit.Limiter
	baseURL      string
	apiKey       string
	model        string
	dimensions   int
	outputDims   int
	maxBatchSize int
}

// embeddingRequest is the Voyage API request format.
type embeddingRequest struct {
	Input           []string `json:"input"`
	Model           string   `json:"model"`
	InputType       string   `json:"input_type"`
	OutputDimension int      `json:"output_dimension,omitempty"`
}

// embeddingResponse is the Voyage API response format.
type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Detail string `json:"detail,omitempty"`
}

// NewEmbeddingService creates a new Voyage embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: voyage: API key is required", domain.ErrConfiguration)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = DefaultMaxBatchSize
	}

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		var ok bool
		dimensions, ok = modelDimensions[cfg.Model]
		if !ok {
			dimensions = 1024
		}
	}

	return &EmbeddingService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter:      ratelimit.New("voyage", cfg.RequestsPerSecond),
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
		dimensions:   dimensions,
		outputDims:   cfg.Dimensions,
		maxBatchSize: cfg.MaxBatchSize,
	}, nil
}

// EmbedDocument generates a vector for text that will be stored.
func (s *EmbeddingService) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return s.embedOne(ctx, text, inputTypeDocument)
}

// EmbedQuery generates a vector for a search query.
func (s *EmbeddingService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return s.embedOne(ctx, text, inputTypeQuery)
}

// EmbedDocuments generates one vector per input, in input order, splitting
// the inputs across as many requests as the batch limit requires.
func (s *EmbeddingService) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.maxBatchSize {
		end := min(start+s.maxBatchSize, len(texts))

		batch, err := s.embed(ctx, texts[start:end], inputTypeDocument)
		if err != nil {
			return nil, err
		}
		embeddings = append(embeddings, batch...)
	}

	return embeddings, nil
}

func (s *EmbeddingService) embedOne(ctx context.Context, text, inputType string) ([]float32, error) {
	embeddings, err := s.embed(ctx, []string{text}, inputType)
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// embed sends one request and returns exactly len(texts) vectors ordered by
// input position.
func (s *EmbeddingService) embed(ctx context.Context, texts []string, inputType string) ([][]float32, error) {
	reqBody := embeddingRequest{
		Input:           texts,
		Model:           s.model,
		InputType:       inputType,
		OutputDimension: s.outputDims,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: voyage: marshal request: %w", domain.ErrEmbeddingProvider, err)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: voyage: rate limit wait: %w", domain.ErrEmbeddingProvider, err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/embeddings",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: voyage: create request: %w", domain.ErrEmbeddingProvider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	logger.Debug("voyage: embedding %d %s input(s) with %s", len(texts), inputType, s.model)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: voyage: send request: %w", domain.ErrEmbeddingProvider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: voyage: read response: %w", domain.ErrEmbeddingProvider, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		wait := ratelimit.RetryAfter(resp.Header, time.Now())
		s.limiter.Backoff(wait)
		logger.Warn("voyage: rate limited, backing off %s", wait)
	}

	var embedResp embeddingResponse
	if err := json.Unmarshal(body, &embedResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: voyage: status %d: %s", domain.ErrEmbeddingProvider, resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("%w: voyage: decode response: %w", domain.ErrEmbeddingProvider, err)
	}

	if resp.StatusCode != http.StatusOK {
		detail := embedResp.Detail
		if detail == "" {
			detail = string(body)
		}
		return nil, fmt.Errorf("%w: voyage: status %d: %s", domain.ErrEmbeddingProvider, resp.StatusCode, detail)
	}

	if len(embedResp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: voyage: returned %d embeddings for %d inputs",
			domain.ErrEmbeddingProvider, len(embedResp.Data), len(texts))
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range embedResp.Data {
		if data.Index < 0 || data.Index >= len(texts) || embeddings[data.Index] != nil {
			return nil, fmt.Errorf("%w: voyage: unexpected embedding index %d", domain.ErrEmbeddingProvider, data.Index)
		}
		embedding := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			embedding[i] = float32(v)
		}
		embeddings[data.Index] = embedding
	}

	return embeddings, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping validates the API key by embedding a single short query.
// Voyage has no model listing endpoint, so this does run inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if _, err := s.EmbedQuery(ctx, "ping"); err != nil {
		return fmt.Errorf("voyage: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
