package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docrag/internal/core/domain"
)

func setupDocumentService(t *testing.T) (*DocumentService, *memory.DocumentStore, *memory.FileStore, string) {
	t.Helper()
	ctx := context.Background()
	docs := memory.NewDocumentStore()
	files := memory.NewFileStore()

	location, err := files.Save(ctx, "alice", "notes.txt", []byte("hello"))
	require.NoError(t, err)
	require.NoError(t, docs.CreateDocument(ctx, &domain.Document{
		ID:               "doc-1",
		OwnerID:          "alice",
		Filename:         "stored.txt",
		OriginalFilename: "notes.txt",
		Location:         location,
		ContentType:      domain.MIMETypePlainText,
		Status:           domain.StatusCompleted,
		UploadedAt:       time.Now(),
	}))
	_, err = docs.SaveChunks(ctx, "doc-1", []domain.Chunk{
		{Index: 0, Text: "hello", CharEnd: 5, TokenCount: 1, Embedding: []float32{1, 0}},
	})
	require.NoError(t, err)

	return NewDocumentService(docs, docs, files), docs, files, location
}

func TestDocumentService_List(t *testing.T) {
	service, _, _, _ := setupDocumentService(t)
	ctx := context.Background()

	docs, err := service.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-1", docs[0].ID)

	docs, err = service.List(ctx, "bob")
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestDocumentService_Get(t *testing.T) {
	service, _, _, _ := setupDocumentService(t)
	ctx := context.Background()

	doc, err := service.Get(ctx, "alice", "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", doc.OriginalFilename)

	_, err = service.Get(ctx, "bob", "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = service.Get(ctx, "alice", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentService_Chunks(t *testing.T) {
	service, _, _, _ := setupDocumentService(t)
	ctx := context.Background()

	chunks, err := service.Chunks(ctx, "alice", "doc-1")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello", chunks[0].Text)

	_, err = service.Chunks(ctx, "bob", "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentService_Delete(t *testing.T) {
	service, docs, files, location := setupDocumentService(t)
	ctx := context.Background()

	// Another owner cannot delete it.
	assert.ErrorIs(t, service.Delete(ctx, "bob", "doc-1"), domain.ErrNotFound)
	assert.Equal(t, 1, files.Len())

	require.NoError(t, service.Delete(ctx, "alice", "doc-1"))

	_, err := docs.GetDocument(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	chunks, err := docs.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, chunks)
	_, err = files.Read(ctx, location)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, service.Delete(ctx, "alice", "doc-1"), domain.ErrNotFound)
}

func TestDocumentService_Delete_WithoutFileStore(t *testing.T) {
	_, docs, files, _ := setupDocumentService(t)
	service := NewDocumentService(docs, docs, nil)

	require.NoError(t, service.Delete(context.Background(), "alice", "doc-1"))
	assert.Equal(t, 1, files.Len())
}
