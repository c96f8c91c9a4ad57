// Package watch uploads files dropped into an inbox directory.
//
// The watcher is a driving adapter: it reacts to filesystem events and
// calls the IngestionService exactly as the CLI's ingest command does.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/minio/highwayhash"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
	"github.com/custodia-labs/docrag/internal/logger"
)

// DefaultSettleDelay is how long a file must stay quiet before it is uploaded.
const DefaultSettleDelay = 500 * time.Millisecond

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("watch: watcher closed")

// partialSuffixes mark files that are still being written by another program.
var partialSuffixes = []string{"~", ".tmp", ".part", ".crdownload", ".swp"}

// Result reports the outcome of one inbox file.
type Result struct {
	// Path is the inbox file.
	Path string

	// Document is the uploaded document; nil if the upload was rejected.
	Document *domain.Document

	// Err is the upload or processing error.
	Err error
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithSettleDelay overrides DefaultSettleDelay.
func WithSettleDelay(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.settle = d
		}
	}
}

// WithExistingFiles uploads files already in the inbox when Run starts.
func WithExistingFiles(enabled bool) Option {
	return func(w *Watcher) {
		w.scanExisting = enabled
	}
}

// WithResultHandler receives every Result. It is called from background
// goroutines and must be safe for concurrent use.
func WithResultHandler(fn func(Result)) Option {
	return func(w *Watcher) {
		if fn != nil {
			w.onResult = fn
		}
	}
}

// hashKey seeds content fingerprints. It only has to be stable per process.
var hashKey = []byte("docrag-inbox-fingerprint-key-256")

// fingerprint hashes file content so that touching a file without changing
// it does not create a new document.
func fingerprint(content []byte) (uint64, error) {
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		return 0, err
	}
	if _, err := h.Write(content); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

// Watcher uploads new and modified files in a single directory on behalf of one owner.
type Watcher struct {
	dir          string
	ownerID      string
	ingestion    driving.IngestionService
	settle       time.Duration
	scanExisting bool
	onResult     func(Result)

	mu       sync.Mutex
	closed   bool
	fsw      *fsnotify.Watcher
	timers   map[string]*time.Timer
	uploaded map[string]uint64

	ready   chan string
	done    chan struct{}
	pending sync.WaitGroup
}

// New creates a watcher for dir. Nothing happens until Run is called.
func New(dir, ownerID string, ingestion driving.IngestionService, opts ...Option) *Watcher {
	w := &Watcher{
		dir:       dir,
		ownerID:   ownerID,
		ingestion: ingestion,
		settle:    DefaultSettleDelay,
		onResult:  logResult,
		timers:    make(map[string]*time.Timer),
		uploaded:  make(map[string]uint64),
		ready:     make(chan string),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches the inbox until ctx is cancelled or Close is called.
// It waits for in-flight documents to finish processing before returning.
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.dir)
	if err != nil {
		return fmt.Errorf("inbox path error: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("inbox path error: %s is not a directory", w.dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		fsw.Close()
		return ErrClosed
	}
	w.fsw = fsw
	w.mu.Unlock()

	defer w.shutdown(fsw)

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	logger.Info("Watching %s for owner %s", w.dir, w.ownerID)

	if w.scanExisting {
		w.scanDir()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case path := <-w.ready:
			w.upload(ctx, path)
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if path, ok := w.handleFsEvent(event); ok {
				w.schedule(path)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch: %v", err)
		}
	}
}

// Close stops a running watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}

func (w *Watcher) shutdown(fsw *fsnotify.Watcher) {
	close(w.done)

	w.mu.Lock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
	w.closed = true
	w.mu.Unlock()

	fsw.Close() //nolint:errcheck
	w.pending.Wait()
}

// handleFsEvent returns the path to upload for event, if any.
func (w *Watcher) handleFsEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}
	if !isCandidate(event.Name) {
		return "", false
	}
	info, err := os.Stat(event.Name)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return event.Name, true
}

// schedule (re)starts the settle timer for path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.timers[path] = time.AfterFunc(w.settle, func() {
		select {
		case w.ready <- path:
		case <-w.done:
		}
	})
}

func (w *Watcher) scanDir() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		logger.Warn("watch: scan %s: %v", w.dir, err)
		return
	}
	for _, entry := range entries {
		path := filepath.Join(w.dir, entry.Name())
		if entry.Type().IsRegular() && isCandidate(path) {
			w.schedule(path)
		}
	}
}

// upload sends path to the ingestion service unless the same content was
// already uploaded from that path. Processing is awaited in the background.
func (w *Watcher) upload(ctx context.Context, path string) {
	w.mu.Lock()
	delete(w.timers, path)
	w.mu.Unlock()

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}

	content, err := os.ReadFile(path)
	if err != nil {
		w.onResult(Result{Path: path, Err: fmt.Errorf("read %s: %w", path, err)})
		return
	}

	fp, err := fingerprint(content)
	if err != nil {
		w.onResult(Result{Path: path, Err: fmt.Errorf("hash %s: %w", path, err)})
		return
	}

	w.mu.Lock()
	prev, seen := w.uploaded[path]
	w.mu.Unlock()
	if seen && prev == fp {
		logger.Debug("watch: %s unchanged, skipping", path)
		return
	}

	result, err := w.ingestion.Upload(ctx, domain.UploadRequest{
		OwnerID:  w.ownerID,
		Filename: filepath.Base(path),
		Content:  content,
	})
	if err != nil {
		w.onResult(Result{Path: path, Err: err})
		return
	}

	w.mu.Lock()
	w.uploaded[path] = fp
	w.mu.Unlock()

	logger.Debug("watch: uploaded %s as %s", path, result.Document.ID)
	w.pending.Add(1)
	go func() {
		defer w.pending.Done()
		w.onResult(Result{Path: path, Document: result.Document, Err: <-result.Done})
	}()
}

func logResult(r Result) {
	switch {
	case r.Err != nil:
		logger.Error("%s: %v", filepath.Base(r.Path), r.Err)
	case r.Document != nil:
		logger.Info("%s: indexed as %s", filepath.Base(r.Path), r.Document.ID)
	}
}

// isCandidate rejects hidden and partially written files.
func isCandidate(path string) bool {
	if isHidden(path) {
		return false
	}
	name := strings.ToLower(filepath.Base(path))
	for _, suffix := range partialSuffixes {
		if strings.HasSuffix(name, suffix) {
			return false
		}
	}
	return true
}

// isHidden reports whether the final path element starts with a dot.
func isHidden(path string) bool {
	name := filepath.Base(path)
	return len(name) > 1 && name != ".." && strings.HasPrefix(name, ".")
}
