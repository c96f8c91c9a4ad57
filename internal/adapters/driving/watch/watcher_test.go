package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
)

const testSettle = 20 * time.Millisecond

// fakeIngestion records uploads and completes them immediately.
type fakeIngestion struct {
	mu        sync.Mutex
	uploads   []domain.UploadRequest
	uploadErr error
	procErr   error
}

func (f *fakeIngestion) Upload(_ context.Context, req domain.UploadRequest) (*driving.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.uploads = append(f.uploads, req)
	done := make(chan error, 1)
	done <- f.procErr
	close(done)
	doc := &domain.Document{ID: req.Filename + "-id", OwnerID: req.OwnerID, OriginalFilename: req.Filename}
	return &driving.UploadResult{Document: doc, Done: done}, nil
}

func (f *fakeIngestion) Process(context.Context, string) error { return nil }

func (f *fakeIngestion) Status(context.Context, string, string) (*domain.Document, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeIngestion) uploaded() []domain.UploadRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.UploadRequest(nil), f.uploads...)
}

// startWatcher runs a watcher in the background and returns its results channel.
func startWatcher(t *testing.T, dir string, ingest *fakeIngestion, opts ...Option) (<-chan Result, func()) {
	t.Helper()
	results := make(chan Result, 16)
	opts = append([]Option{
		WithSettleDelay(testSettle),
		WithResultHandler(func(r Result) { results <- r }),
	}, opts...)
	w := New(dir, "alice", ingest, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	// Give fsnotify time to register the directory.
	time.Sleep(50 * time.Millisecond)

	stop := func() {
		cancel()
		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("watcher did not stop")
		}
	}
	return results, stop
}

func waitResult(t *testing.T, results <-chan Result) Result {
	t.Helper()
	select {
	case r := <-results:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for watcher result")
		return Result{}
	}
}

func TestWatcher_UploadsNewFile(t *testing.T) {
	dir := t.TempDir()
	ingest := &fakeIngestion{}
	results, stop := startWatcher(t, dir, ingest)
	defer stop()

	path := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# Notes\n\nhello"), 0o644))

	r := waitResult(t, results)
	require.NoError(t, r.Err)
	assert.Equal(t, path, r.Path)
	require.NotNil(t, r.Document)
	assert.Equal(t, "notes.md-id", r.Document.ID)

	uploads := ingest.uploaded()
	require.Len(t, uploads, 1)
	assert.Equal(t, "alice", uploads[0].OwnerID)
	assert.Equal(t, "notes.md", uploads[0].Filename)
	assert.Equal(t, []byte("# Notes\n\nhello"), uploads[0].Content)
	assert.Empty(t, uploads[0].ContentType)
}

func TestWatcher_CoalescesWrites(t *testing.T) {
	dir := t.TempDir()
	ingest := &fakeIngestion{}
	results, stop := startWatcher(t, dir, ingest)
	defer stop()

	path := filepath.Join(dir, "growing.txt")
	f, err := os.Create(path)
	require.NoError(t, err)
	for range 3 {
		_, err := f.WriteString("more text ")
		require.NoError(t, err)
	}
	require.NoError(t, f.Close())

	waitResult(t, results)
	select {
	case r := <-results:
		t.Fatalf("unexpected second result for %s", r.Path)
	case <-time.After(5 * testSettle):
	}
	assert.Len(t, ingest.uploaded(), 1)
}

func TestWatcher_IgnoresHiddenAndPartialFiles(t *testing.T) {
	dir := t.TempDir()
	ingest := &fakeIngestion{}
	results, stop := startWatcher(t, dir, ingest)
	defer stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".secret.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "download.pdf.part"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))

	select {
	case r := <-results:
		t.Fatalf("unexpected result for %s", r.Path)
	case <-time.After(10 * testSettle):
	}
	assert.Empty(t, ingest.uploaded())
}

func TestWatcher_ExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.txt"), []byte("already here"), 0o644))

	ingest := &fakeIngestion{}
	results, stop := startWatcher(t, dir, ingest, WithExistingFiles(true))
	defer stop()

	r := waitResult(t, results)
	require.NoError(t, r.Err)
	assert.Equal(t, "old.txt", filepath.Base(r.Path))
}

func TestWatcher_ReportsUploadRejection(t *testing.T) {
	dir := t.TempDir()
	ingest := &fakeIngestion{uploadErr: domain.ErrUnsupportedType}
	results, stop := startWatcher(t, dir, ingest)
	defer stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte{0x89, 'P', 'N', 'G'}, 0o644))

	r := waitResult(t, results)
	assert.ErrorIs(t, r.Err, domain.ErrUnsupportedType)
	assert.Nil(t, r.Document)
}

func TestWatcher_ReportsProcessingFailure(t *testing.T) {
	dir := t.TempDir()
	ingest := &fakeIngestion{procErr: domain.ErrExtraction}
	results, stop := startWatcher(t, dir, ingest)
	defer stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.pdf"), []byte("%PDF-"), 0o644))

	r := waitResult(t, results)
	assert.ErrorIs(t, r.Err, domain.ErrExtraction)
	assert.NotNil(t, r.Document)
}

func TestWatcher_Run(t *testing.T) {
	t.Run("returns error for non-existent directory", func(t *testing.T) {
		w := New("/non/existent/path", "alice", &fakeIngestion{})
		err := w.Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "inbox path error")
	})

	t.Run("returns error for a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file.txt")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

		err := New(path, "alice", &fakeIngestion{}).Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a directory")
	})

	t.Run("returns ErrClosed after close", func(t *testing.T) {
		w := New(t.TempDir(), "alice", &fakeIngestion{})
		require.NoError(t, w.Close())
		require.NoError(t, w.Close())

		err := w.Run(context.Background())
		assert.True(t, errors.Is(err, ErrClosed))
	})

	t.Run("close stops a running watcher", func(t *testing.T) {
		w := New(t.TempDir(), "alice", &fakeIngestion{})
		errCh := make(chan error, 1)
		go func() { errCh <- w.Run(context.Background()) }()
		time.Sleep(50 * time.Millisecond)

		require.NoError(t, w.Close())
		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("watcher did not stop after Close")
		}
	})
}

func TestHandleFsEvent(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))

	w := New(dir, "alice", &fakeIngestion{})

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"create file", fsnotify.Event{Name: file, Op: fsnotify.Create}, true},
		{"write file", fsnotify.Event{Name: file, Op: fsnotify.Write}, true},
		{"write and chmod", fsnotify.Event{Name: file, Op: fsnotify.Write | fsnotify.Chmod}, true},
		{"chmod only", fsnotify.Event{Name: file, Op: fsnotify.Chmod}, false},
		{"remove", fsnotify.Event{Name: file, Op: fsnotify.Remove}, false},
		{"rename", fsnotify.Event{Name: file, Op: fsnotify.Rename}, false},
		{"directory", fsnotify.Event{Name: sub, Op: fsnotify.Create}, false},
		{"missing file", fsnotify.Event{Name: filepath.Join(dir, "gone.txt"), Op: fsnotify.Create}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, ok := w.handleFsEvent(tt.event)
			assert.Equal(t, tt.want, ok)
			if tt.want {
				assert.Equal(t, file, path)
			}
		})
	}
}

func TestIsCandidate(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"report.pdf", true},
		{"/inbox/notes.md", true},
		{"file.hidden", true},
		{".hidden", false},
		{"/inbox/.DS_Store", false},
		{"draft.docx~", false},
		{"upload.TMP", false},
		{"video.crdownload", false},
		{".notes.md.swp", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, isCandidate(tt.path))
		})
	}
}

func TestWatcher_SkipsUnchangedContent(t *testing.T) {
	dir := t.TempDir()
	ingest := &fakeIngestion{}
	results, stop := startWatcher(t, dir, ingest)
	defer stop()

	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("first"), 0o644))
	waitResult(t, results)

	// Same bytes again: no new document.
	require.NoError(t, os.WriteFile(path, []byte("first"), 0o644))
	select {
	case r := <-results:
		t.Fatalf("unexpected result for unchanged %s", r.Path)
	case <-time.After(5 * testSettle):
	}

	require.NoError(t, os.WriteFile(path, []byte("second"), 0o644))
	waitResult(t, results)

	uploads := ingest.uploaded()
	require.Len(t, uploads, 2)
	assert.Equal(t, []byte("second"), uploads[1].Content)
}

func TestFingerprint(t *testing.T) {
	a, err := fingerprint([]byte("hello"))
	require.NoError(t, err)
	b, err := fingerprint([]byte("hello"))
	require.NoError(t, err)
	c, err := fingerprint([]byte("hello!"))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
