package demo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/psantana5/cmdexec/internal/process"
	"github.com/psantana5/cmdexec/pkg/command"
	"github.com/psantana5/cmdexec/pkg/task"
)

// Registry maps command names to commands
type Registry struct {
	commands map[string]command.Command
}

// NewRegistry returns a registry with the built-in demo commands. timeout
// applies to every task the async commands create.
func NewRegistry(timeout time.Duration) *Registry {
	r := &Registry{commands: make(map[string]command.Command)}
	r.Register(&Echo{})
	r.Register(&Countdown{Timeout: timeout})
	r.Register(&Fail{Timeout: timeout})
	r.Register(&Secret{})
	r.Register(&Exec{Timeout: timeout})
	return r
}

func (r *Registry) Register(cmd command.Command) {
	r.commands[cmd.Name()] = cmd
}

func (r *Registry) Lookup(name string) (command.Command, error) {
	cmd, ok := r.commands[name]
	if !ok {
		return nil, fmt.Errorf("unknown command %q (available: %s)", name, strings.Join(r.Names(), ", "))
	}
	return cmd, nil
}

// Names returns the registered command names, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns a one-line description of a registered command
func Describe(cmd command.Command) string {
	if d, ok := cmd.(interface{ Description() string }); ok {
		return d.Description()
	}
	return ""
}

// Echo prints its "message" argument inline
type Echo struct{}

func (*Echo) Name() string        { return "echo" }
func (*Echo) Description() string { return "print the message argument (sync)" }

func (*Echo) Execute(_ context.Context, in *command.Input, out command.Output) (int, error) {
	msg := in.Arg("message")
	if msg == "" {
		return command.ExitFailure, errors.New("echo: message argument is required")
	}
	out.Writeln(msg)
	return command.ExitSuccess, nil
}

// Countdown settles after --polls polls, reporting progress on each one.
// --sync runs it inline instead.
type Countdown struct {
	Timeout time.Duration
}

func (*Countdown) Name() string        { return "countdown" }
func (*Countdown) Description() string { return "count down --polls polls, then succeed (async)" }

func (c *Countdown) WantsAsync(in *command.Input) bool {
	return !in.BoolOption("sync")
}

func (c *Countdown) Execute(_ context.Context, in *command.Input, out command.Output) (int, error) {
	polls := in.IntOption("polls", 3)
	out.Writeln(fmt.Sprintf("countdown finished inline after %d steps", polls))
	return command.ExitSuccess, nil
}

func (c *Countdown) ExecuteAsync(_ context.Context, in *command.Input, out command.Output) (*task.Task[any], error) {
	polls := in.IntOption("polls", 3)
	if polls < 1 {
		return nil, fmt.Errorf("countdown: --polls must be at least 1, got %d", polls)
	}

	var t *task.Task[any]
	remaining := polls
	t = task.New(func() (any, bool, error) {
		remaining--
		t.Progress(polls - remaining)
		if remaining > 0 {
			return nil, false, nil
		}
		return fmt.Sprintf("countdown of %d complete", polls), true, nil
	}, c.Timeout)

	if out.IsVerbose() {
		t.OnProgress(func(v any) {
			out.Writeln(fmt.Sprintf("countdown: step %v/%d", v, polls))
		})
	}
	return t, nil
}

func (c *Countdown) OnAsyncCompletion(result any, out command.Output) int {
	out.Info(fmt.Sprint(result))
	return command.ExitSuccess
}

func (c *Countdown) OnAsyncError(err error, out command.Output) int {
	out.Error(fmt.Sprintf("countdown failed: %v", err))
	return command.ExitFailure
}

// Fail rejects on poll --polls with the --message option
type Fail struct {
	Timeout time.Duration
}

func (*Fail) Name() string        { return "fail" }
func (*Fail) Description() string { return "fail after --polls polls (async)" }

func (*Fail) WantsAsync(*command.Input) bool { return true }

func (*Fail) Execute(_ context.Context, in *command.Input, _ command.Output) (int, error) {
	return command.ExitFailure, errors.New(failMessage(in))
}

func (f *Fail) ExecuteAsync(_ context.Context, in *command.Input, _ command.Output) (*task.Task[any], error) {
	polls := in.IntOption("polls", 1)
	msg := failMessage(in)

	count := 0
	return task.New(func() (any, bool, error) {
		count++
		if count < polls {
			return nil, false, nil
		}
		return nil, false, errors.New(msg)
	}, f.Timeout), nil
}

func (*Fail) OnAsyncCompletion(result any, out command.Output) int {
	out.Warning(fmt.Sprintf("fail unexpectedly succeeded: %v", result))
	return command.ExitSuccess
}

func (*Fail) OnAsyncError(err error, out command.Output) int {
	out.Error(err.Error())
	return 2
}

func failMessage(in *command.Input) string {
	if msg := in.StringOption("message"); msg != "" {
		return msg
	}
	return "boom"
}

// Secret prints a fixed value; it is meant to be protected by the auth gate
type Secret struct{}

func (*Secret) Name() string        { return "secret" }
func (*Secret) Description() string { return "print a secret (protected by default)" }

func (*Secret) Execute(_ context.Context, _ *command.Input, out command.Output) (int, error) {
	out.Writeln("the cake is a lie")
	return command.ExitSuccess, nil
}

// Exec runs the "program" argument with the whitespace separated "args"
// argument as an OS process and exits with the process exit code.
type Exec struct {
	Timeout time.Duration

	// Stdout and Stderr default to the output's Write method
	Stdout, Stderr io.Writer
}

func (*Exec) Name() string        { return "exec" }
func (*Exec) Description() string { return "run an OS process and wait for it (async, protected by default)" }

func (*Exec) WantsAsync(*command.Input) bool { return true }

func (e *Exec) Execute(ctx context.Context, in *command.Input, out command.Output) (int, error) {
	t, err := e.ExecuteAsync(ctx, in, out)
	if err != nil {
		return command.ExitFailure, err
	}
	v, err := t.Wait(ctx, task.DefaultPollInterval)
	if err != nil {
		return e.OnAsyncError(err, out), nil
	}
	return e.OnAsyncCompletion(v, out), nil
}

func (e *Exec) ExecuteAsync(ctx context.Context, in *command.Input, out command.Output) (*task.Task[any], error) {
	stdout, stderr := e.Stdout, e.Stderr
	if stdout == nil {
		stdout = outputWriter(out.Write)
	}
	if stderr == nil {
		stderr = outputWriter(out.Write)
	}
	return process.Start(ctx, in.Arg("program"), strings.Fields(in.Arg("args")), stdout, stderr, e.Timeout)
}

func (*Exec) OnAsyncCompletion(result any, out command.Output) int {
	res, ok := result.(*process.Result)
	if !ok {
		out.Error(fmt.Sprintf("exec: unexpected result %T", result))
		return command.ExitFailure
	}
	if out.IsVerbose() {
		out.Info(res.Summary())
	}
	return res.ExitCode
}

func (*Exec) OnAsyncError(err error, out command.Output) int {
	out.Error(fmt.Sprintf("exec failed: %v", err))
	return command.ExitFailure
}

// outputWriter adapts an Output method to io.Writer
type outputWriter func(string)

func (w outputWriter) Write(p []byte) (int, error) {
	w(string(p))
	return len(p), nil
}
