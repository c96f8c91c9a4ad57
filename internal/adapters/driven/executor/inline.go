package executor

import (
	"context"
	"errors"
	"sync"

	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/logger"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("executor closed")

// Ensure Inline implements the interface.
var _ driven.TaskExecutor = (*Inline)(nil)

// Inline runs tasks synchronously inside Submit.
type Inline struct {
	mu     sync.Mutex
	closed bool
}

// NewInline creates a synchronous executor.
func NewInline() *Inline {
	return &Inline{}
}

// Submit runs task to completion and returns a channel holding its result.
func (e *Inline) Submit(ctx context.Context, name string, task driven.Task) (<-chan error, error) {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	done := make(chan error, 1)
	logger.Debug("executor: running %s inline", name)
	done <- runTask(context.WithoutCancel(ctx), name, task)
	close(done)
	return done, nil
}

// Close stops accepting tasks.
func (e *Inline) Close(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
