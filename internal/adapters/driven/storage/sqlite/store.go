package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/logger"
)

// databaseFile is the SQLite file name inside the data directory.
const databaseFile = "docrag.db"

// Store is a SQLite-based storage that provides access to the document
// and chunk store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// DefaultDataDir returns ~/.docrag/data.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".docrag", "data"), nil
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.docrag/data/docrag.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		var err error
		if dataDir, err = DefaultDataDir(); err != nil {
			return nil, err
		}
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, databaseFile)

	// WAL for concurrent readers; foreign keys on every pooled connection.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// ChunkStore returns a ChunkStore interface backed by this store.
func (s *Store) ChunkStore() driven.ChunkStore {
	return &chunkStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys fs.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		logger.Debug("sqlite: applied migration %s", name)
	}

	return nil
}

// SchemaVersion returns the highest applied migration version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("%w: reading schema version: %w", domain.ErrPersistence, err)
	}
	return version, nil
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

const documentColumns = `id, owner_id, filename, original_filename, location, size,
	content_type, status, error, processed_at, uploaded_at`

// CreateDocument stores a new document.
func (s *documentStore) CreateDocument(ctx context.Context, doc *domain.Document) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.OwnerID, doc.Filename, doc.OriginalFilename, doc.Location, doc.Size,
		doc.ContentType, string(doc.Status), doc.Error, nullTime(doc.ProcessedAt), doc.UploadedAt.UTC())

	if err != nil {
		return fmt.Errorf("%w: saving document: %w", domain.ErrPersistence, err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents WHERE id = ?
	`, id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return doc, err
}

// UpdateDocument overwrites the lifecycle fields of a document.
func (s *documentStore) UpdateDocument(ctx context.Context, doc *domain.Document) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE documents SET status = ?, error = ?, processed_at = ?
		WHERE id = ?
	`, string(doc.Status), doc.Error, nullTime(doc.ProcessedAt), doc.ID)
	if err != nil {
		return fmt.Errorf("%w: updating document: %w", domain.ErrPersistence, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: updating document: %w", domain.ErrPersistence, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListDocuments returns documents owned by ownerID, oldest first.
func (s *documentStore) ListDocuments(ctx context.Context, ownerID string) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents WHERE owner_id = ?
		ORDER BY uploaded_at, id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying documents: %w", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating documents: %w", domain.ErrPersistence, err)
	}

	return docs, nil
}

// DeleteDocument removes a document and its chunks.
func (s *documentStore) DeleteDocument(ctx context.Context, id string) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", domain.ErrPersistence, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", id); err != nil {
		return fmt.Errorf("%w: deleting chunks: %w", domain.ErrPersistence, err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("%w: deleting document: %w", domain.ErrPersistence, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %w", domain.ErrPersistence, err)
	}
	return nil
}

// ==================== Chunk Store ====================

// chunkStore implements driven.ChunkStore.
type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

const chunkColumns = `c.id, c.document_id, c.chunk_index, c.text, c.char_start, c.char_end,
	c.token_count, c.embedding, c.created_at`

// SaveChunks replaces the chunks of a document in one transaction.
// Embeddings must share one dimension with each other and with the
// embeddings of every other document in the store.
func (s *chunkStore) SaveChunks(ctx context.Context, documentID string, chunks []domain.Chunk) ([]domain.Chunk, error) {
	dim, err := domain.EmbeddingDimension(chunks)
	if err != nil {
		return nil, err
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: beginning transaction: %w", domain.ErrPersistence, err)
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM documents WHERE id = ?", documentID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: document %s", domain.ErrNotFound, documentID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: checking document: %w", domain.ErrPersistence, err)
	}

	if dim > 0 {
		if err := checkStoredDimension(ctx, tx, documentID, dim); err != nil {
			return nil, err
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID); err != nil {
		return nil, fmt.Errorf("%w: clearing chunks: %w", domain.ErrPersistence, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, chunk_index, text, char_start, char_end,
			token_count, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: preparing statement: %w", domain.ErrPersistence, err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	saved := make([]domain.Chunk, len(chunks))
	for i, chunk := range chunks {
		if chunk.DocumentID != "" && chunk.DocumentID != documentID {
			return nil, fmt.Errorf("%w: chunk %d belongs to document %s",
				domain.ErrInvalidInput, chunk.Index, chunk.DocumentID)
		}
		chunk.DocumentID = documentID
		if chunk.ID == "" {
			chunk.ID = uuid.New().String()
		}
		if chunk.CreatedAt.IsZero() {
			chunk.CreatedAt = now
		}

		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.DocumentID, chunk.Index, chunk.Text,
			chunk.CharStart, chunk.CharEnd, chunk.TokenCount,
			embeddingValue(chunk.Embedding), chunk.CreatedAt.UTC()); err != nil {
			return nil, fmt.Errorf("%w: saving chunk %d: %w", domain.ErrPersistence, chunk.Index, err)
		}
		saved[i] = chunk
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: committing transaction: %w", domain.ErrPersistence, err)
	}

	sort.SliceStable(saved, func(i, j int) bool { return saved[i].Index < saved[j].Index })
	return saved, nil
}

// LoadChunksForOwner returns embedded chunks of documents owned by ownerID.
// The join on documents is the access check: chunks are never selected by
// document id alone.
func (s *chunkStore) LoadChunksForOwner(ctx context.Context, ownerID string, documentIDs []string) ([]domain.Chunk, error) {
	query := `
		SELECT ` + chunkColumns + `
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.owner_id = ? AND c.embedding IS NOT NULL`
	args := []any{ownerID}

	if len(documentIDs) > 0 {
		query += " AND c.document_id IN (" + placeholders(len(documentIDs)) + ")"
		for _, id := range documentIDs {
			args = append(args, id)
		}
	}
	query += " ORDER BY d.uploaded_at, d.id, c.chunk_index"

	return s.queryChunks(ctx, query, args...)
}

// GetChunks returns every chunk of a document ordered by index.
func (s *chunkStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	return s.queryChunks(ctx, `
		SELECT `+chunkColumns+`
		FROM chunks c WHERE c.document_id = ?
		ORDER BY c.chunk_index
	`, documentID)
}

// CountEmbeddedChunks returns how many chunks of a document have an embedding.
func (s *chunkStore) CountEmbeddedChunks(ctx context.Context, documentID string) (int, error) {
	var n int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunks WHERE document_id = ? AND embedding IS NOT NULL", documentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: counting chunks: %w", domain.ErrPersistence, err)
	}
	return n, nil
}

// DeleteChunksForDocument removes all chunks of a document.
func (s *chunkStore) DeleteChunksForDocument(ctx context.Context, documentID string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("%w: deleting chunks: %w", domain.ErrPersistence, err)
	}
	return nil
}

func (s *chunkStore) queryChunks(ctx context.Context, query string, args ...any) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying chunks: %w", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating chunks: %w", domain.ErrPersistence, err)
	}

	return chunks, nil
}

// checkStoredDimension compares dim with one embedding stored for another
// document. Blobs that do not decode are ignored here as they are at
// load time.
func checkStoredDimension(ctx context.Context, tx *sql.Tx, documentID string, dim int) error {
	var size int
	err := tx.QueryRowContext(ctx, `
		SELECT length(embedding) FROM chunks
		WHERE document_id != ? AND embedding IS NOT NULL AND length(embedding) % 4 = 0
		LIMIT 1
	`, documentID).Scan(&size)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return fmt.Errorf("%w: checking embedding dimension: %w", domain.ErrPersistence, err)
	case size/4 != dim:
		return fmt.Errorf("%w: %d-dimensional embeddings cannot join a store of %d-dimensional embeddings",
			domain.ErrConfiguration, dim, size/4)
	}
	return nil
}

// ==================== Helper Functions ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
// A nil slice is stored as NULL.
func float32SliceToBytes(floats []float32) []byte {
	if floats == nil {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// embeddingValue binds a nil embedding as SQL NULL rather than an empty blob.
func embeddingValue(floats []float32) any {
	if floats == nil {
		return nil
	}
	return float32SliceToBytes(floats)
}

// bytesToFloat32Slice converts a byte slice back to []float32.
// It returns false when the blob is not a whole number of float32 values.
func bytesToFloat32Slice(data []byte) ([]float32, bool) {
	if data == nil {
		return nil, true
	}
	if len(data)%4 != 0 {
		return nil, false
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats, true
}

// placeholders returns n comma-separated SQL parameters.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanDocument scans a single document row.
func scanDocument(row scanner) (*domain.Document, error) {
	var doc domain.Document
	var status string
	var processedAt sql.NullTime

	if err := row.Scan(&doc.ID, &doc.OwnerID, &doc.Filename, &doc.OriginalFilename, &doc.Location,
		&doc.Size, &doc.ContentType, &status, &doc.Error, &processedAt, &doc.UploadedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: scanning document: %w", domain.ErrPersistence, err)
	}

	doc.Status = domain.DocumentStatus(status)
	if processedAt.Valid {
		t := processedAt.Time
		doc.ProcessedAt = &t
	}

	return &doc, nil
}

// scanChunk scans a chunk row. An undecodable embedding is logged and
// returned as nil so the chunk is skipped at scoring time.
func scanChunk(row scanner) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var embeddingBlob []byte

	if err := row.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Index, &chunk.Text,
		&chunk.CharStart, &chunk.CharEnd, &chunk.TokenCount, &embeddingBlob, &chunk.CreatedAt); err != nil {
		return nil, fmt.Errorf("%w: scanning chunk: %w", domain.ErrPersistence, err)
	}

	embedding, ok := bytesToFloat32Slice(embeddingBlob)
	if !ok {
		logger.Warn("sqlite: chunk %s has a malformed embedding (%d bytes), ignoring it", chunk.ID, len(embeddingBlob))
	}
	chunk.Embedding = embedding

	return &chunk, nil
}
