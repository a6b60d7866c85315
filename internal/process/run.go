package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/psantana5/cmdexec/pkg/task"
)

// ErrEmptyProgram is returned when no program name is given
var ErrEmptyProgram = errors.New("process: program is required")

// Start launches program and returns a task that fulfills with a *Result
// once the process exits, whatever its exit code. The task rejects if the
// process cannot be waited on. When the task rejects for any other reason,
// for example a timeout or cancellation, the process and its process group
// are killed.
func Start(ctx context.Context, program string, args []string, stdout, stderr io.Writer, timeout time.Duration) (*task.Task[any], error) {
	if program == "" {
		return nil, ErrEmptyProgram
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cmd := exec.CommandContext(ctx, program, args...)
	setProcessGroup(cmd)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", program, err)
	}
	pid := cmd.Process.Pid

	type exit struct {
		result *Result
		err    error
	}
	done := make(chan exit, 1)

	go func() {
		err := cmd.Wait()
		end := time.Now()

		var exitErr *exec.ExitError
		switch {
		case err == nil:
			done <- exit{result: newResult(program, pid, 0, start, end)}
		case errors.As(err, &exitErr):
			done <- exit{result: newResult(program, pid, exitErr.ExitCode(), start, end)}
		default:
			done <- exit{err: fmt.Errorf("failed to wait for %s (pid %d): %w", program, pid, err)}
		}
	}()

	t := task.New(func() (any, bool, error) {
		select {
		case e := <-done:
			if e.err != nil {
				return nil, false, e.err
			}
			return e.result, true, nil
		default:
			return nil, false, nil
		}
	}, timeout)

	t.Catch(func(error) {
		// Fails harmlessly once the group has exited
		_ = killProcessGroup(cmd)
	})
	return t, nil
}
