package driven

import "context"

// Task is a unit of background work.
type Task func(ctx context.Context) error

// TaskExecutor runs tasks out-of-band from the request that submitted them.
type TaskExecutor interface {
	// Submit schedules task. The returned channel receives the task's
	// result exactly once and is then closed; it is the completion signal.
	Submit(ctx context.Context, name string, task Task) (<-chan error, error)

	// Close stops accepting tasks and waits for in-flight ones until ctx ends.
	Close(ctx context.Context) error
}
