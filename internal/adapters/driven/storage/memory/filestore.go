package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Ensure FileStore implements the interface.
var _ driven.FileStore = (*FileStore)(nil)

// FileStore is an in-memory implementation of driven.FileStore for testing.
type FileStore struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewFileStore creates a new in-memory file store.
func NewFileStore() *FileStore {
	return &FileStore{
		files: make(map[string][]byte),
	}
}

// Save stores content under a generated location.
func (s *FileStore) Save(_ context.Context, ownerID, filename string, content []byte) (string, error) {
	location := fmt.Sprintf("mem://%s/%s%s", ownerID, uuid.New().String(), filepath.Ext(filename))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[location] = append([]byte(nil), content...)
	return location, nil
}

// Read returns the bytes stored at location.
func (s *FileStore) Read(_ context.Context, location string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.files[location]
	if !ok {
		return nil, fmt.Errorf("%w: file %s", domain.ErrNotFound, location)
	}
	return append([]byte(nil), content...), nil
}

// Delete removes the bytes at location.
func (s *FileStore) Delete(_ context.Context, location string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, location)
	return nil
}

// Len returns the number of stored files.
func (s *FileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}
