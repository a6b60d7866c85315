package command

import (
	"context"

	"github.com/psantana5/cmdexec/pkg/task"
)

// Exit statuses shared by the executor and the interceptors
const (
	ExitSuccess          = 0
	ExitFailure          = 1
	ExitPermissionDenied = 77
)

// Command is a unit of work that runs to completion and returns an exit status
type Command interface {
	Name() string
	Execute(ctx context.Context, in *Input, out Output) (int, error)
}

// AsyncCommand can also hand back a task instead of running inline.
// The executor converts the task's outcome into an exit status through
// OnAsyncCompletion and OnAsyncError.
type AsyncCommand interface {
	Command
	WantsAsync(in *Input) bool
	ExecuteAsync(ctx context.Context, in *Input, out Output) (*task.Task[any], error)
	OnAsyncCompletion(result any, out Output) int
	OnAsyncError(err error, out Output) int
}
