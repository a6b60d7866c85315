package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/psantana5/cmdexec/internal/config"
	"github.com/psantana5/cmdexec/internal/demo"
	"github.com/psantana5/cmdexec/internal/observe"
	"github.com/psantana5/cmdexec/pkg/auth"
	"github.com/psantana5/cmdexec/pkg/command"
	"github.com/psantana5/cmdexec/pkg/executor"
	"github.com/psantana5/cmdexec/pkg/logging"
	"github.com/psantana5/cmdexec/pkg/metrics"
	"github.com/psantana5/cmdexec/pkg/middleware"
	"github.com/psantana5/cmdexec/pkg/shutdown"
	"github.com/psantana5/cmdexec/pkg/task"
)

const shutdownTimeout = 2 * time.Second

// runtime holds everything one CLI invocation needs to run commands
type runtime struct {
	logger   *logging.Logger
	registry *prometheus.Registry
	exec     *executor.Executor
	pipeline *middleware.Pipeline
	commands *demo.Registry
	out      command.Output
}

func newRuntime(c *config.Config) (*runtime, error) {
	logger, err := newLogger(c.Logging)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	exec := executor.New(
		executor.WithMaxConcurrent(c.Executor.MaxConcurrent),
		executor.WithPollInterval(c.Executor.PollInterval),
		executor.WithLogger(logger),
		executor.WithMetrics(collector),
	)

	authCfg := middleware.AuthConfig{
		Protected:      c.Auth.Protected,
		Option:         c.Auth.Option,
		CredentialFile: c.Auth.CredentialFile,
		EnvVar:         c.Auth.EnvVar,
	}
	if len(c.Auth.Keys) > 0 {
		authCfg.Validator = auth.NewKeyStore(c.Auth.Keys...)
	}

	pipeline, err := middleware.NewPipeline(
		middleware.NewAuth(authCfg),
		middleware.NewLogging(logger),
		middleware.NewMetrics(collector),
		middleware.NewTiming(middleware.DefaultTimingOption, observe.ProcessRSS),
	)
	if err != nil {
		logger.Close()
		return nil, err
	}

	return &runtime{
		logger:   logger,
		registry: registry,
		exec:     exec,
		pipeline: pipeline,
		commands: demo.NewRegistry(c.Executor.TaskTimeout),
		out:      command.NewConsole(verbose),
	}, nil
}

func newLogger(c config.LoggingConfig) (*logging.Logger, error) {
	level := logging.ParseLevel(c.Level)
	if verbose {
		level = logging.DEBUG
	}
	if c.File != "" {
		logger, err := logging.NewFileLogger(c.File, level, c.JSON, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		return logger, nil
	}
	return logging.New(os.Stderr, level, c.JSON), nil
}

// run executes one command through the pipeline. Async commands are
// submitted to the executor and waited on, so the pipeline observes the
// final exit status either way.
func (r *runtime) run(ctx context.Context, cmd command.Command, in *command.Input) (int, error) {
	return r.pipeline.Execute(ctx, cmd, in, r.out, func(inv *middleware.Invocation) (int, error) {
		h, err := r.exec.Submit(inv.Ctx, inv.Command, inv.Input, inv.Output)
		if err != nil {
			return command.ExitFailure, err
		}
		return h.Wait(inv.Ctx), nil
	})
}

// submitAll sends every submission through the pipeline. The terminal submits
// to the executor without waiting, so the interceptors gate and observe each
// submission. A submission the pipeline refuses cancels the ones already
// submitted and its status is returned with the error.
func (r *runtime) submitAll(ctx context.Context, subs []executor.Submission) (map[string]*task.Task[any], int, error) {
	for _, s := range subs {
		if _, ok := s.Command.(command.AsyncCommand); !ok {
			return nil, command.ExitFailure, fmt.Errorf("%w: %s (key %q)", executor.ErrNotAsync, s.Command.Name(), s.Key)
		}
	}

	tasks := make(map[string]*task.Task[any], len(subs))
	for _, s := range subs {
		if _, dup := tasks[s.Key]; dup {
			r.exec.CancelAll()
			return nil, command.ExitFailure, fmt.Errorf("%w: %q", executor.ErrDuplicateKey, s.Key)
		}

		var submitted *task.Task[any]
		status, err := r.pipeline.Execute(ctx, s.Command, s.Input, r.out, func(inv *middleware.Invocation) (int, error) {
			h, err := r.exec.Submit(inv.Ctx, inv.Command, inv.Input, inv.Output)
			if err != nil {
				return command.ExitFailure, err
			}
			submitted = h.Task
			return command.ExitSuccess, nil
		})
		if err == nil && submitted == nil {
			err = fmt.Errorf("submission %q refused with status %d", s.Key, status)
		}
		if err != nil {
			if n := r.exec.CancelAll(); n > 0 {
				r.logger.Warn("Cancelled earlier submissions", logging.Fields{"count": n, "key": s.Key})
			}
			if status == command.ExitSuccess {
				status = command.ExitFailure
			}
			return nil, status, err
		}
		tasks[s.Key] = submitted
	}
	return tasks, command.ExitSuccess, nil
}

// listen returns a context cancelled on SIGINT/SIGTERM, after every tracked
// task has been rejected
func (r *runtime) listen(parent context.Context) (context.Context, func()) {
	mgr := shutdown.New(shutdownTimeout, r.logger)
	mgr.Register(func(context.Context) error {
		if n := r.exec.CancelAll(); n > 0 {
			r.logger.Warn("Cancelled running tasks", logging.Fields{"count": n})
		}
		return nil
	})
	return mgr.Listen(parent)
}

// close flushes metrics when requested and releases the logger
func (r *runtime) close() {
	if dumpMetrics {
		if err := metrics.WriteText(os.Stdout, r.registry); err != nil {
			r.logger.Error("Failed to write metrics", logging.Fields{"error": err})
		}
	}
	r.logger.Close()
}
