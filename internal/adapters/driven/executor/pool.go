package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/logger"
)

// DefaultQueueSize bounds tasks waiting for a worker.
const DefaultQueueSize = 64

// Ensure Pool implements the interface.
var _ driven.TaskExecutor = (*Pool)(nil)

type job struct {
	ctx  context.Context
	name string
	task driven.Task
	done chan error
}

// Pool runs tasks on a fixed set of worker goroutines.
type Pool struct {
	mu     sync.RWMutex
	closed bool
	jobs   chan job
	quit   chan struct{} // closed when Close starts; wakes blocked submitters
	stopCh chan struct{}

	submitters sync.WaitGroup
	wg         sync.WaitGroup
}

// NewPool starts workers goroutines reading from a queue of queueSize.
// Non-positive values fall back to 1 worker and DefaultQueueSize.
func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	p := &Pool{
		jobs:   make(chan job, queueSize),
		quit:   make(chan struct{}),
		stopCh: make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	return p
}

// Submit queues task. The task runs with ctx's values but not its
// cancellation, so a finished request does not abort its background work.
// Submit blocks while the queue is full, until ctx ends or the pool is
// closed.
func (p *Pool) Submit(ctx context.Context, name string, task driven.Task) (<-chan error, error) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return nil, ErrClosed
	}
	p.submitters.Add(1)
	p.mu.RUnlock()
	defer p.submitters.Done()

	j := job{
		ctx:  context.WithoutCancel(ctx),
		name: name,
		task: task,
		done: make(chan error, 1),
	}

	select {
	case p.jobs <- j:
		logger.Debug("executor: queued %s", name)
		return j.done, nil
	case <-p.quit:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, fmt.Errorf("queueing %s: %w", name, ctx.Err())
	}
}

// Close stops accepting tasks, fails submitters still waiting for queue
// space with ErrClosed, and waits for queued and running tasks to finish. When ctx ends first, the running tasks are told to stop and
// Close returns ctx's error.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.quit)
	p.mu.Unlock()

	// Nothing can send once the blocked submitters have left.
	p.submitters.Wait()
	close(p.jobs)

	finished := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		close(p.stopCh)
		return ctx.Err()
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for j := range p.jobs {
		ctx, cancel := context.WithCancel(j.ctx)
		go func() {
			select {
			case <-p.stopCh:
				cancel()
			case <-ctx.Done():
			}
		}()

		logger.Debug("executor: worker %d running %s", id, j.name)
		j.done <- runTask(ctx, j.name, j.task)
		close(j.done)
		cancel()
	}
}

// runTask executes task, converting a panic into an error.
func runTask(ctx context.Context, name string, task driven.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("executor: task %s panicked: %v", name, r)
			err = fmt.Errorf("task %s panicked: %v", name, r)
		}
	}()
	return task(ctx)
}
