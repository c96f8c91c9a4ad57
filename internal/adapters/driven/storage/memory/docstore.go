package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interfaces.
var (
	_ driven.DocumentStore = (*DocumentStore)(nil)
	_ driven.ChunkStore    = (*DocumentStore)(nil)
)

// DocumentStore is an in-memory implementation of driven.DocumentStore and
// driven.ChunkStore.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	chunks    map[string][]domain.Chunk
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string][]domain.Chunk),
	}
}

// CreateDocument stores a new document.
func (s *DocumentStore) CreateDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.documents[doc.ID]; exists {
		return fmt.Errorf("%w: document %s already exists", domain.ErrPersistence, doc.ID)
	}
	s.documents[doc.ID] = copyDocument(*doc)
	return nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	doc = copyDocument(doc)
	return &doc, nil
}

// UpdateDocument overwrites the lifecycle fields of a document.
func (s *DocumentStore) UpdateDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.documents[doc.ID]
	if !ok {
		return domain.ErrNotFound
	}
	existing.Status = doc.Status
	existing.Error = doc.Error
	existing.ProcessedAt = copyTime(doc.ProcessedAt)
	s.documents[doc.ID] = existing
	return nil
}

// ListDocuments returns documents owned by ownerID, oldest first.
func (s *DocumentStore) ListDocuments(_ context.Context, ownerID string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Document
	for _, doc := range s.documents {
		if doc.OwnerID == ownerID {
			result = append(result, copyDocument(doc))
		}
	}
	sortDocuments(result)
	return result, nil
}

// DeleteDocument removes a document and its chunks.
func (s *DocumentStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.documents, id)
	delete(s.chunks, id)
	return nil
}

// SaveChunks replaces the chunks of a document.
func (s *DocumentStore) SaveChunks(_ context.Context, documentID string, chunks []domain.Chunk) ([]domain.Chunk, error) {
	dim, err := domain.EmbeddingDimension(chunks)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[documentID]; !ok {
		return nil, fmt.Errorf("%w: document %s", domain.ErrNotFound, documentID)
	}
	if stored := s.storedDimension(documentID); dim > 0 && stored > 0 && stored != dim {
		return nil, fmt.Errorf("%w: %d-dimensional embeddings cannot join a store of %d-dimensional embeddings",
			domain.ErrConfiguration, dim, stored)
	}

	now := time.Now()
	saved := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		if c.DocumentID != "" && c.DocumentID != documentID {
			return nil, fmt.Errorf("%w: chunk %d belongs to document %s", domain.ErrInvalidInput, c.Index, c.DocumentID)
		}
		c.DocumentID = documentID
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		c.Embedding = copyEmbedding(c.Embedding)
		saved[i] = c
	}
	sort.SliceStable(saved, func(i, j int) bool { return saved[i].Index < saved[j].Index })

	s.chunks[documentID] = saved
	return copyChunks(saved), nil
}

// storedDimension returns the embedding length used by documents other than
// documentID, or 0 when none are embedded. Callers hold s.mu.
func (s *DocumentStore) storedDimension(documentID string) int {
	for id, chunks := range s.chunks {
		if id == documentID {
			continue
		}
		for _, c := range chunks {
			if len(c.Embedding) > 0 {
				return len(c.Embedding)
			}
		}
	}
	return 0
}

// LoadChunksForOwner returns embedded chunks of documents owned by ownerID.
func (s *DocumentStore) LoadChunksForOwner(_ context.Context, ownerID string, documentIDs []string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var filter map[string]bool
	if len(documentIDs) > 0 {
		filter = make(map[string]bool, len(documentIDs))
		for _, id := range documentIDs {
			filter[id] = true
		}
	}

	var docs []domain.Document
	for _, doc := range s.documents {
		if doc.OwnerID != ownerID {
			continue
		}
		if filter != nil && !filter[doc.ID] {
			continue
		}
		docs = append(docs, doc)
	}
	sortDocuments(docs)

	var result []domain.Chunk
	for _, doc := range docs {
		for _, c := range s.chunks[doc.ID] {
			if c.Embedding == nil {
				continue
			}
			c.Embedding = copyEmbedding(c.Embedding)
			result = append(result, c)
		}
	}
	return result, nil
}

// GetChunks returns every chunk of a document ordered by index.
func (s *DocumentStore) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyChunks(s.chunks[documentID]), nil
}

// CountEmbeddedChunks returns how many chunks of a document have an embedding.
func (s *DocumentStore) CountEmbeddedChunks(_ context.Context, documentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.chunks[documentID] {
		if c.Embedding != nil {
			n++
		}
	}
	return n, nil
}

// DeleteChunksForDocument removes all chunks of a document.
func (s *DocumentStore) DeleteChunksForDocument(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chunks, documentID)
	return nil
}

// sortDocuments orders documents by upload time, then ID.
func sortDocuments(docs []domain.Document) {
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].UploadedAt.Equal(docs[j].UploadedAt) {
			return docs[i].UploadedAt.Before(docs[j].UploadedAt)
		}
		return docs[i].ID < docs[j].ID
	})
}

func copyDocument(doc domain.Document) domain.Document {
	doc.ProcessedAt = copyTime(doc.ProcessedAt)
	return doc
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyEmbedding(e []float32) []float32 {
	if e == nil {
		return nil
	}
	return append([]float32(nil), e...)
}

func copyChunks(chunks []domain.Chunk) []domain.Chunk {
	if chunks == nil {
		return nil
	}
	out := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		c.Embedding = copyEmbedding(c.Embedding)
		out[i] = c
	}
	return out
}
