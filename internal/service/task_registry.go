package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/timmy/quill/internal/logger"
)

// TaskStatus is the liveness of a task as seen by the registry or a handle.
type TaskStatus string

const (
	TaskNotFound  TaskStatus = "not_found"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// TaskFunc is the body of a background task. It must check ctx between
// suspension points and return promptly once ctx is done.
type TaskFunc func(ctx context.Context, h *TaskHandle) error

// Handle states. A task leaves handleRunning exactly once, either through
// Cancel or through Commit.
const (
	handleRunning int32 = iota
	handleCancelled
	handleCommitted
)

// TaskHandle tracks one running task.
type TaskHandle struct {
	ID        string
	StartedAt time.Time

	cancel context.CancelFunc
	done   chan struct{}
	state  atomic.Int32

	mu    sync.RWMutex
	stage string
	err   error
}

// SetStage records the pipeline stage for progress reporting.
func (h *TaskHandle) SetStage(stage string) {
	h.mu.Lock()
	h.stage = stage
	h.mu.Unlock()
}

// Stage returns the current pipeline stage.
func (h *TaskHandle) Stage() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stage
}

// Done is closed when the task returns.
func (h *TaskHandle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the task returns or ctx is done.
func (h *TaskHandle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the task's error once it has finished.
func (h *TaskHandle) Err() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

// CancelRequested reports whether Cancel was called for this task.
func (h *TaskHandle) CancelRequested() bool {
	return h.state.Load() == handleCancelled
}

// Commit marks the point after which the task can no longer be cancelled.
// It returns false when cancellation won the race; the task must then
// record its cancelled state instead of its result.
func (h *TaskHandle) Commit() bool {
	return h.state.CompareAndSwap(handleRunning, handleCommitted)
}

// requestCancel flips a running handle to cancelled. A committed handle
// is left alone.
func (h *TaskHandle) requestCancel() bool {
	if h.state.CompareAndSwap(handleRunning, handleCancelled) {
		return true
	}
	return h.state.Load() == handleCancelled
}

// Status returns running until the task returns, then completed or failed.
func (h *TaskHandle) Status() TaskStatus {
	select {
	case <-h.done:
		if h.Err() != nil {
			return TaskFailed
		}
		return TaskCompleted
	default:
		return TaskRunning
	}
}

// TaskRegistry runs at most one task per article ID and indexes the running
// ones. Finished tasks are removed; the registry keeps no history.
type TaskRegistry struct {
	mu     sync.Mutex
	tasks  map[string]*TaskHandle
	closed bool

	sem        *semaphore.Weighted
	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup
}

// NewTaskRegistry creates a registry running at most maxConcurrent task
// bodies at once. Tasks beyond the limit wait for a slot.
func NewTaskRegistry(maxConcurrent int) *TaskRegistry {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskRegistry{
		tasks:      make(map[string]*TaskHandle),
		sem:        semaphore.NewWeighted(int64(maxConcurrent)),
		baseCtx:    ctx,
		baseCancel: cancel,
	}
}

// Start launches fn for id unless a task for id is still running, in which
// case the existing handle is returned together with ErrAlreadyRunning.
// Parameters:
//   - ctx: carries the logger; the task itself runs detached from ctx.
//   - id: article ID.
//   - fn: task body.
// Returns:
//   - *TaskHandle: the new or the existing handle.
//   - error: ErrAlreadyRunning or ErrRegistryClosed.
func (r *TaskRegistry) Start(ctx context.Context, id string, fn TaskFunc) (*TaskHandle, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRegistryClosed
	}
	if h, ok := r.tasks[id]; ok {
		r.mu.Unlock()
		logger.CtxWarn(ctx, "Task already running, start ignored: article_id=%s", id)
		return h, ErrAlreadyRunning
	}

	taskCtx, cancel := context.WithCancel(r.baseCtx)
	taskCtx = logger.FromContext(ctx).WithContext(taskCtx)
	h := &TaskHandle{
		ID:        id,
		StartedAt: time.Now(),
		cancel:    cancel,
		done:      make(chan struct{}),
		stage:     "queued",
	}
	r.tasks[id] = h
	r.wg.Add(1)
	r.mu.Unlock()

	go r.run(taskCtx, h, fn)
	return h, nil
}

func (r *TaskRegistry) run(ctx context.Context, h *TaskHandle, fn TaskFunc) {
	defer r.wg.Done()
	defer h.cancel()

	// a task cancelled while queued still runs, so it can record its
	// terminal state
	if err := r.sem.Acquire(ctx, 1); err == nil {
		defer r.sem.Release(1)
	}

	err := fn(ctx, h)

	h.mu.Lock()
	h.err = err
	h.mu.Unlock()

	r.mu.Lock()
	if r.tasks[h.ID] == h {
		delete(r.tasks, h.ID)
	}
	r.mu.Unlock()
	close(h.done)

	logger.With(logger.Fields{
		logger.FieldDurationMs: time.Since(h.StartedAt).Milliseconds(),
		logger.FieldStatus:     string(h.Status()),
	}).Debug(ctx, "Task finished: article_id=%s", h.ID)
}

// Cancel requests cooperative cancellation of the task for id.
// Returns false when no task is running for id or when the task has
// already committed its result.
func (r *TaskRegistry) Cancel(id string) bool {
	r.mu.Lock()
	h, ok := r.tasks[id]
	r.mu.Unlock()
	if !ok || !h.requestCancel() {
		return false
	}
	h.cancel()
	return true
}

// StatusOf reports running for a live task, not_found otherwise.
func (r *TaskRegistry) StatusOf(id string) TaskStatus {
	if _, ok := r.Handle(id); ok {
		return TaskRunning
	}
	return TaskNotFound
}

// Handle returns the running task for id.
func (r *TaskRegistry) Handle(id string) (*TaskHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.tasks[id]
	return h, ok
}

// Len returns the number of running tasks.
func (r *TaskRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// Shutdown rejects new tasks, cancels every running task and waits for all
// of them to return or for ctx to expire.
func (r *TaskRegistry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	for _, h := range r.tasks {
		h.requestCancel()
	}
	r.mu.Unlock()
	r.baseCancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
