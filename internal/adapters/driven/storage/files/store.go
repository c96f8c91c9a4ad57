// Package files stores raw uploaded documents on the local filesystem.
package files

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// uploadsDir is the directory under the data directory holding raw files.
const uploadsDir = "uploads"

// Ensure Store implements the interface.
var _ driven.FileStore = (*Store)(nil)

// Store writes uploads to <root>/<owner>/<uuid><ext>.
type Store struct {
	root string
}

// NewStore creates a file store under dataDir/uploads.
func NewStore(dataDir string) (*Store, error) {
	root := filepath.Join(dataDir, uploadsDir)
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, fmt.Errorf("%w: creating uploads directory: %w", domain.ErrPersistence, err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving uploads directory: %w", domain.ErrPersistence, err)
	}
	return &Store{root: abs}, nil
}

// Root returns the uploads directory.
func (s *Store) Root() string {
	return s.root
}

// Save writes content under a generated name and returns its path.
// Only the extension of filename is kept.
func (s *Store) Save(_ context.Context, ownerID, filename string, content []byte) (string, error) {
	owner, err := ownerDir(ownerID)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(s.root, owner)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("%w: creating owner directory: %w", domain.ErrPersistence, err)
	}

	location := filepath.Join(dir, uuid.New().String()+strings.ToLower(filepath.Ext(filename)))
	if err := os.WriteFile(location, content, 0600); err != nil {
		return "", fmt.Errorf("%w: writing upload: %w", domain.ErrPersistence, err)
	}
	return location, nil
}

// Read returns the bytes stored at location.
func (s *Store) Read(_ context.Context, location string) ([]byte, error) {
	if err := s.contains(location); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(location)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: file %s", domain.ErrNotFound, location)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading upload: %w", domain.ErrPersistence, err)
	}
	return content, nil
}

// Delete removes the file at location. Missing files are not an error.
func (s *Store) Delete(_ context.Context, location string) error {
	if err := s.contains(location); err != nil {
		return err
	}
	if err := os.Remove(location); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: deleting upload: %w", domain.ErrPersistence, err)
	}
	return nil
}

// contains rejects locations outside the uploads directory.
func (s *Store) contains(location string) error {
	rel, err := filepath.Rel(s.root, filepath.Clean(location))
	if err != nil || rel == "." || rel == ".." ||
		strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("%w: location %q is outside the file store", domain.ErrInvalidInput, location)
	}
	return nil
}

// ownerDir maps an owner id to a single safe path segment.
func ownerDir(ownerID string) (string, error) {
	if ownerID == "" {
		return "", fmt.Errorf("%w: owner id is required", domain.ErrInvalidInput)
	}
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.', r == '@':
			return r
		default:
			return '_'
		}
	}, ownerID)
	if strings.Trim(clean, ".") == "" {
		return "", fmt.Errorf("%w: owner id %q is not a usable directory name", domain.ErrInvalidInput, ownerID)
	}
	return clean, nil
}
