package cli

import (
	"bytes"
	"context"
	"time"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
)

const testOwner = "alice"

var testUploaded = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// mockIngestionService records uploads and completes them with procErr.
type mockIngestionService struct {
	uploads    []domain.UploadRequest
	uploadErr  error
	procErr    error
	status     *domain.Document
	statusErr  error
	processErr error
	processed  []string
}

func (m *mockIngestionService) Upload(_ context.Context, req domain.UploadRequest) (*driving.UploadResult, error) {
	if m.uploadErr != nil {
		return nil, m.uploadErr
	}
	m.uploads = append(m.uploads, req)
	done := make(chan error, 1)
	done <- m.procErr
	close(done)
	doc := &domain.Document{
		ID:               "doc-" + req.Filename,
		OwnerID:          req.OwnerID,
		OriginalFilename: req.Filename,
		Status:           domain.StatusPending,
	}
	return &driving.UploadResult{Document: doc, Done: done}, nil
}

func (m *mockIngestionService) Process(_ context.Context, documentID string) error {
	m.processed = append(m.processed, documentID)
	return m.processErr
}

func (m *mockIngestionService) Status(_ context.Context, _, _ string) (*domain.Document, error) {
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	return m.status, nil
}

// mockDocumentService serves fixed documents and chunks.
type mockDocumentService struct {
	documents []domain.Document
	chunks    []domain.Chunk
	err       error
	deleted   []string
	gotOwner  string
}

func (m *mockDocumentService) List(_ context.Context, ownerID string) ([]domain.Document, error) {
	m.gotOwner = ownerID
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, ownerID, documentID string) (*domain.Document, error) {
	m.gotOwner = ownerID
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.documents {
		if m.documents[i].ID == documentID {
			return &m.documents[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocumentService) Chunks(_ context.Context, ownerID, _ string) ([]domain.Chunk, error) {
	m.gotOwner = ownerID
	return m.chunks, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, ownerID, documentID string) error {
	m.gotOwner = ownerID
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, documentID)
	return nil
}

// mockSearchService returns fixed results and records the call.
type mockSearchService struct {
	results  []domain.ScoredChunk
	err      error
	gotOwner string
	gotQuery string
	gotOpts  domain.SearchOptions
}

func (m *mockSearchService) Search(
	_ context.Context, ownerID, query string, opts domain.SearchOptions,
) ([]domain.ScoredChunk, error) {
	m.gotOwner, m.gotQuery, m.gotOpts = ownerID, query, opts
	return m.results, m.err
}

// mockSettingsService keeps settings in memory.
type mockSettingsService struct {
	settings    domain.AppSettings
	setErr      error
	validateErr error
	pingErr     error
	sets        map[string]string
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultAppSettings(), sets: map[string]string{}}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.sets[key] = value
	return nil
}

func (m *mockSettingsService) Validate() error { return m.validateErr }

func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

func (m *mockSettingsService) ValidateEmbeddingConfig() error { return m.pingErr }

// testServices bundles the mocks installed by setupTestServices.
type testServices struct {
	ingestion *mockIngestionService
	documents *mockDocumentService
	search    *mockSearchService
	settings  *mockSettingsService
}

// setupTestServices installs fresh mocks, resets flag state and returns a
// cleanup that restores the previous globals.
func setupTestServices() (*testServices, func()) {
	oldIngestion, oldDocument, oldSearch, oldSettings := ingestionService, documentService, searchService, settingsService
	oldBootstrap := bootstrap

	ts := &testServices{
		ingestion: &mockIngestionService{},
		documents: &mockDocumentService{
			documents: []domain.Document{{
				ID: "doc-1", OwnerID: testOwner, OriginalFilename: "report.pdf",
				ContentType: "application/pdf", Size: 2048, Status: domain.StatusCompleted,
				UploadedAt: testUploaded,
			}},
		},
		search:   &mockSearchService{},
		settings: newMockSettingsService(),
	}
	SetServices(&Services{
		Ingestion: ts.ingestion,
		Document:  ts.documents,
		Search:    ts.search,
		Settings:  ts.settings,
	})
	bootstrap = nil
	resetFlags()
	ownerFlag = testOwner

	return ts, func() {
		ingestionService, documentService, searchService, settingsService = oldIngestion, oldDocument, oldSearch, oldSettings
		bootstrap = oldBootstrap
		resetFlags()
	}
}

func resetFlags() {
	verbose = false
	ownerFlag = ""
	dataDirFlag = ""
	searchTopK = domain.DefaultTopK
	searchDocIDs = nil
	searchJSON = false
	searchFullText = false
	ingestContentType = ""
	ingestNoWait = false
	watchExisting = false
}

// execute runs the root command with args and returns its combined output.
func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(new(bytes.Buffer))
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}
