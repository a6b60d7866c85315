package executor

import (
	"context"
	"sync"
	"time"

	"github.com/psantana5/cmdexec/pkg/command"
	"github.com/psantana5/cmdexec/pkg/task"
)

// Handle tracks one submission. ID is empty for commands that ran inline.
type Handle struct {
	ID   string
	Task *task.Task[any]

	pollInterval time.Duration

	mu      sync.Mutex
	status  int
	settled bool
}

func (h *Handle) setStatus(status int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = status
	h.settled = true
}

// Status returns the exit status once the task has settled
func (h *Handle) Status() (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status, h.settled
}

// Async reports whether the submission is tracked by the executor
func (h *Handle) Async() bool {
	return h.ID != ""
}

// Wait drives the task to completion and returns the exit status the command
// derived from its outcome. If nothing produced a status command.ExitFailure
// is returned.
func (h *Handle) Wait(ctx context.Context) int {
	if ctx == nil {
		ctx = context.Background()
	}
	h.Task.Wait(ctx, h.pollInterval)

	if status, ok := h.Status(); ok {
		return status
	}
	return command.ExitFailure
}
