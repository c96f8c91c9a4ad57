package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
	"github.com/custodia-labs/docrag/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// SearchService ranks an owner's chunks against a query by brute-force
// cosine similarity. It holds no locks; concurrent searches are independent.
type SearchService struct {
	chunkStore       driven.ChunkStore
	embeddingService driven.EmbeddingService
}

// NewSearchService creates a new search service.
// The embeddingService parameter is optional (can be nil); without it every
// search returns no results.
func NewSearchService(chunkStore driven.ChunkStore, embeddingService driven.EmbeddingService) *SearchService {
	return &SearchService{
		chunkStore:       chunkStore,
		embeddingService: embeddingService,
	}
}

// Search embeds query, scores every embedded chunk ownerID may see and
// returns the best opts.TopK in descending similarity. Equal scores keep
// the store's load order.
func (s *SearchService) Search(
	ctx context.Context, ownerID, query string, opts domain.SearchOptions,
) ([]domain.ScoredChunk, error) {
	logger.Section("Search Execution")
	logger.Debug("Owner: %s, query: %q, top_k: %d", ownerID, query, opts.TopK)

	if opts.TopK <= 0 {
		logger.Debug("Non-positive top_k, returning no results")
		return []domain.ScoredChunk{}, nil
	}
	if strings.TrimSpace(query) == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.ScoredChunk{}, nil
	}
	if s.embeddingService == nil {
		logger.Warn("Search unavailable: no embedding service configured")
		return []domain.ScoredChunk{}, nil
	}

	queryVec, err := s.embeddingService.EmbedQuery(ctx, query)
	if err != nil {
		logger.Warn("Query embedding failed: %v", err)
		if errors.Is(err, domain.ErrEmbeddingProvider) {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		return nil, fmt.Errorf("%w: embed query: %w", domain.ErrEmbeddingProvider, err)
	}
	if err := CheckVector(queryVec); err != nil {
		logger.Warn("Query embedding rejected: %v", err)
		return nil, fmt.Errorf("%w: query embedding: %w", domain.ErrEmbeddingProvider, err)
	}
	logger.Debug("Query embedded: %d dimensions", len(queryVec))

	candidates, err := s.chunkStore.LoadChunksForOwner(ctx, ownerID, opts.DocumentIDs)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	logger.Debug("Candidates: %d chunks", len(candidates))
	if len(candidates) == 0 {
		return []domain.ScoredChunk{}, nil
	}

	results := make([]domain.ScoredChunk, 0, len(candidates))
	skipped := 0
	for i := range candidates {
		sim, err := CosineSimilarity(queryVec, candidates[i].Embedding)
		if err != nil {
			skipped++
			logger.Warn("Skipping chunk %s of document %s: %v",
				candidates[i].ID, candidates[i].DocumentID, err)
			continue
		}
		results = append(results, domain.NewScoredChunk(candidates[i], sim))
	}
	if skipped > 0 {
		logger.Info("Skipped %d of %d candidates", skipped, len(candidates))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if len(results) > opts.TopK {
		results = results[:opts.TopK]
	}
	logger.Info("Final results: %d", len(results))

	return results, nil
}
