package executor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/psantana5/cmdexec/pkg/command"
	"github.com/psantana5/cmdexec/pkg/logging"
	"github.com/psantana5/cmdexec/pkg/metrics"
	"github.com/psantana5/cmdexec/pkg/task"
)

const DefaultMaxConcurrent = 10

var (
	ErrConcurrencyLimit = errors.New("concurrency limit reached")
	ErrNotAsync         = errors.New("command does not support async execution")
	ErrInvalidLimit     = errors.New("concurrency limit must be at least 1")
	ErrDuplicateKey     = errors.New("duplicate submission key")
	ErrNilTask          = errors.New("async command returned no task")
)

// Submission is one entry of ExecuteParallel
type Submission struct {
	Key     string
	Command command.Command
	Input   *command.Input
}

// Outcome is the settled result of one tracked task
type Outcome struct {
	Value any
	Err   error
}

// Executor runs commands inline or tracks them as async tasks under a
// concurrency cap. The running-task registry belongs to one Executor and
// entries leave it when their task settles, whatever the outcome.
type Executor struct {
	mu            sync.Mutex
	running       map[string]*task.Task[any]
	reserved      int
	maxConcurrent int

	pollInterval time.Duration
	logger       *logging.Logger
	metrics      *metrics.Collector
}

// Option configures an Executor
type Option func(*Executor)

func WithMaxConcurrent(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxConcurrent = n
		}
	}
}

// WithPollInterval sets the interval WaitAll and Handle.Wait poll with
func WithPollInterval(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.pollInterval = d
		}
	}
}

func WithLogger(l *logging.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithMetrics(c *metrics.Collector) Option {
	return func(e *Executor) {
		e.metrics = c
	}
}

// New creates an executor
func New(opts ...Option) *Executor {
	e := &Executor{
		running:       make(map[string]*task.Task[any]),
		maxConcurrent: DefaultMaxConcurrent,
		pollInterval:  task.DefaultPollInterval,
		logger:        logging.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithField("component", "executor")
	return e
}

// Execute runs cmd and returns its task. Commands that do not want async
// execution run inline and come back as a task already fulfilled with their
// exit status; an error from an inline run is returned as is.
func (e *Executor) Execute(ctx context.Context, cmd command.Command, in *command.Input, out command.Output) (*task.Task[any], error) {
	h, err := e.Submit(ctx, cmd, in, out)
	if err != nil {
		return nil, err
	}
	return h.Task, nil
}

// Submit is Execute returning a Handle, which also carries the registry id
// and the exit status the command derives from its task's outcome.
func (e *Executor) Submit(ctx context.Context, cmd command.Command, in *command.Input, out command.Output) (*Handle, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	ac, ok := cmd.(command.AsyncCommand)
	if !ok || !ac.WantsAsync(in) {
		return e.runInline(ctx, cmd, in, out)
	}

	if err := e.reserve(); err != nil {
		e.metrics.TaskRejected()
		e.logger.Warn("Async submission refused", logging.Fields{
			"command": cmd.Name(),
			"error":   err,
		})
		return nil, err
	}

	t, err := ac.ExecuteAsync(ctx, in, out)
	if err == nil && t == nil {
		err = fmt.Errorf("%w: %s", ErrNilTask, cmd.Name())
	}
	if err != nil {
		e.release()
		return nil, err
	}

	id := uuid.NewString()
	h := &Handle{ID: id, Task: t, pollInterval: e.pollInterval}
	e.register(id, t)
	e.metrics.TaskSubmitted("async")
	e.logger.Debug("Async task registered", logging.Fields{
		"command": cmd.Name(),
		"task_id": id,
	})

	t.Then(func(result any) {
		h.setStatus(ac.OnAsyncCompletion(result, out))
		e.metrics.TaskCompleted("fulfilled")
	})
	t.Catch(func(err error) {
		h.setStatus(ac.OnAsyncError(err, out))
		e.metrics.TaskCompleted("rejected")
		e.logger.Debug("Async task rejected", logging.Fields{
			"command": cmd.Name(),
			"task_id": id,
			"error":   err,
		})
	})
	t.Finally(func() { e.unregister(id) })

	return h, nil
}

func (e *Executor) runInline(ctx context.Context, cmd command.Command, in *command.Input, out command.Output) (*Handle, error) {
	e.metrics.TaskSubmitted("sync")
	status, err := cmd.Execute(ctx, in, out)
	if err != nil {
		return nil, err
	}

	h := &Handle{Task: task.Resolved[any](status), pollInterval: e.pollInterval}
	h.setStatus(status)
	return h, nil
}

// reserve claims a slot under the cap before ExecuteAsync runs, so the lock
// is not held while command code executes
func (e *Executor) reserve() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	inFlight := len(e.running) + e.reserved
	if inFlight >= e.maxConcurrent {
		return fmt.Errorf("%w: %d of %d async tasks running", ErrConcurrencyLimit, inFlight, e.maxConcurrent)
	}
	e.reserved++
	return nil
}

func (e *Executor) release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reserved--
}

func (e *Executor) register(id string, t *task.Task[any]) {
	e.mu.Lock()
	e.reserved--
	e.running[id] = t
	n := len(e.running)
	e.mu.Unlock()
	e.metrics.SetRunning(n)
}

func (e *Executor) unregister(id string) {
	e.mu.Lock()
	delete(e.running, id)
	n := len(e.running)
	e.mu.Unlock()
	e.metrics.SetRunning(n)
}

// ExecuteParallel submits every entry and returns a task that fulfills with
// a key to result map once all of them fulfill, or rejects with the first
// failure. Every command must implement command.AsyncCommand and keys must
// be unique; otherwise nothing is submitted. A submission that fails part way,
// for example on the concurrency cap, leaves the earlier ones tracked.
func (e *Executor) ExecuteParallel(ctx context.Context, subs []Submission, out command.Output) (*task.Task[map[string]any], error) {
	seen := make(map[string]bool, len(subs))
	for _, s := range subs {
		if _, ok := s.Command.(command.AsyncCommand); !ok {
			name := "<nil>"
			if s.Command != nil {
				name = s.Command.Name()
			}
			return nil, fmt.Errorf("%w: %s (key %q)", ErrNotAsync, name, s.Key)
		}
		if seen[s.Key] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, s.Key)
		}
		seen[s.Key] = true
	}

	tasks := make(map[string]*task.Task[any], len(subs))
	for _, s := range subs {
		t, err := e.Execute(ctx, s.Command, s.Input, out)
		if err != nil {
			return nil, fmt.Errorf("failed to submit %q: %w", s.Key, err)
		}
		tasks[s.Key] = t
	}
	return task.All(tasks), nil
}

// WaitAll waits for every tracked task and returns its outcome by registry id.
// It never fails; errors are captured per task.
func (e *Executor) WaitAll(ctx context.Context) map[string]Outcome {
	snapshot := e.snapshot()

	results := make(map[string]Outcome, len(snapshot))
	for _, id := range sortedIDs(snapshot) {
		value, err := snapshot[id].Wait(ctx, e.pollInterval)
		results[id] = Outcome{Value: value, Err: err}
	}
	return results
}

// CancelAll rejects every pending tracked task with task.ErrCancelled and
// clears the registry. Work already running is not interrupted.
func (e *Executor) CancelAll() int {
	snapshot := e.snapshot()

	cancelled := 0
	for _, id := range sortedIDs(snapshot) {
		if snapshot[id].Reject(fmt.Errorf("%w: task %s", task.ErrCancelled, id)) {
			cancelled++
		}
	}

	e.mu.Lock()
	for id := range snapshot {
		delete(e.running, id)
	}
	n := len(e.running)
	e.mu.Unlock()

	e.metrics.TasksCancelled(cancelled)
	e.metrics.SetRunning(n)
	if cancelled > 0 {
		e.logger.Info("Cancelled pending tasks", logging.Fields{"count": cancelled})
	}
	return cancelled
}

func (e *Executor) snapshot() map[string]*task.Task[any] {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]*task.Task[any], len(e.running))
	for id, t := range e.running {
		out[id] = t
	}
	return out
}

// Running returns the number of tracked async tasks
func (e *Executor) Running() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.running)
}

// IDs returns the registry ids of tracked tasks, sorted
func (e *Executor) IDs() []string {
	return sortedIDs(e.snapshot())
}

// Lookup returns a tracked task by registry id
func (e *Executor) Lookup(id string) (*task.Task[any], bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.running[id]
	return t, ok
}

func (e *Executor) MaxConcurrent() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxConcurrent
}

// SetMaxConcurrent changes the cap. Lowering it below the running count does
// not affect tracked tasks; new async submissions fail until enough settle.
func (e *Executor) SetMaxConcurrent(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidLimit, n)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.maxConcurrent = n
	return nil
}

func sortedIDs(m map[string]*task.Task[any]) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
