package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// MaxWait bounds every Wait call, even for tasks created without a timeout
const MaxWait = 10 * time.Second

// DefaultPollInterval is used by Wait when a non-positive interval is given
const DefaultPollInterval = 10 * time.Millisecond

// hardCeiling is MaxWait; tests shorten it
var hardCeiling = MaxWait

var (
	ErrTimeout   = errors.New("task timed out")
	ErrCancelled = errors.New("task cancelled")
)

// TimeoutError is the rejection reason of a task whose Wait ran out of time
type TimeoutError struct {
	Elapsed time.Duration
	Limit   time.Duration
	Ceiling bool // true when the hard ceiling fired rather than the task timeout
}

func (e *TimeoutError) Error() string {
	if e.Ceiling {
		return fmt.Sprintf("task exceeded maximum wait of %s (elapsed %s)", e.Limit, e.Elapsed.Round(time.Millisecond))
	}
	return fmt.Sprintf("task timed out after %s (elapsed %s)", e.Limit, e.Elapsed.Round(time.Millisecond))
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// State of a task
type State int

const (
	StatePending State = iota
	StateFulfilled
	StateRejected
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateFulfilled:
		return "fulfilled"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Work is polled by Wait until it reports done or fails.
// Returning done=false with a nil error means there is no result yet.
type Work[T any] func() (value T, done bool, err error)

// Task is a settable, observable placeholder for a result that may not exist yet.
//
// Then, Catch, Finally and OnProgress return the receiver, so chained calls
// share one callback queue per outcome and fire in registration order.
// The lock is never held while callbacks run; a callback may settle, subscribe
// to or wait on any task, including this one.
type Task[T any] struct {
	mu sync.Mutex

	state State
	value T
	err   error

	work       Work[T]
	onFulfill  []func(T)
	onReject   []func(error)
	onProgress []func(any)

	createdAt time.Time
	timeout   time.Duration
}

// New creates a pending task. work may be nil for tasks settled only from outside.
// A zero timeout leaves only the MaxWait ceiling.
func New[T any](work Work[T], timeout time.Duration) *Task[T] {
	return &Task[T]{
		work:      work,
		createdAt: time.Now(),
		timeout:   timeout,
	}
}

// Resolved returns an already fulfilled task
func Resolved[T any](value T) *Task[T] {
	t := New[T](nil, 0)
	t.Resolve(value)
	return t
}

// Rejected returns an already rejected task
func Rejected[T any](err error) *Task[T] {
	t := New[T](nil, 0)
	t.Reject(err)
	return t
}

// Resolve fulfills a pending task. It reports false, and changes nothing,
// if the task was already settled.
func (t *Task[T]) Resolve(value T) bool {
	t.mu.Lock()
	if t.state != StatePending {
		t.mu.Unlock()
		return false
	}
	t.state = StateFulfilled
	t.value = value
	callbacks := t.onFulfill
	t.clearQueues()
	t.mu.Unlock()

	for _, cb := range callbacks {
		cb(value)
	}
	return true
}

// Reject rejects a pending task. It reports false, and changes nothing,
// if the task was already settled.
func (t *Task[T]) Reject(err error) bool {
	if err == nil {
		err = errors.New("task rejected without reason")
	}

	t.mu.Lock()
	if t.state != StatePending {
		t.mu.Unlock()
		return false
	}
	t.state = StateRejected
	t.err = err
	callbacks := t.onReject
	t.clearQueues()
	t.mu.Unlock()

	for _, cb := range callbacks {
		cb(err)
	}
	return true
}

func (t *Task[T]) clearQueues() {
	t.onFulfill = nil
	t.onReject = nil
	t.onProgress = nil
	t.work = nil
}

// Then registers cb for fulfillment. If the task is already fulfilled cb runs now.
func (t *Task[T]) Then(cb func(T)) *Task[T] {
	t.mu.Lock()
	switch t.state {
	case StatePending:
		t.onFulfill = append(t.onFulfill, cb)
		t.mu.Unlock()
	case StateFulfilled:
		value := t.value
		t.mu.Unlock()
		cb(value)
	default:
		t.mu.Unlock()
	}
	return t
}

// Catch registers cb for rejection. If the task is already rejected cb runs now.
func (t *Task[T]) Catch(cb func(error)) *Task[T] {
	t.mu.Lock()
	switch t.state {
	case StatePending:
		t.onReject = append(t.onReject, cb)
		t.mu.Unlock()
	case StateRejected:
		err := t.err
		t.mu.Unlock()
		cb(err)
	default:
		t.mu.Unlock()
	}
	return t
}

// Finally registers cb for either outcome. The stored value or error is left
// untouched, so a rejected task still reports its original error from Wait.
func (t *Task[T]) Finally(cb func()) *Task[T] {
	t.mu.Lock()
	if t.state == StatePending {
		t.onFulfill = append(t.onFulfill, func(T) { cb() })
		t.onReject = append(t.onReject, func(error) { cb() })
		t.mu.Unlock()
		return t
	}
	t.mu.Unlock()
	cb()
	return t
}

// OnProgress registers cb for Progress notifications
func (t *Task[T]) OnProgress(cb func(any)) *Task[T] {
	t.mu.Lock()
	if t.state == StatePending {
		t.onProgress = append(t.onProgress, cb)
	}
	t.mu.Unlock()
	return t
}

// Progress notifies progress listeners. It never settles the task and is
// ignored once the task is settled.
func (t *Task[T]) Progress(value any) {
	t.mu.Lock()
	if t.state != StatePending {
		t.mu.Unlock()
		return
	}
	callbacks := make([]func(any), len(t.onProgress))
	copy(callbacks, t.onProgress)
	t.mu.Unlock()

	for _, cb := range callbacks {
		cb(value)
	}
}

// Poll invokes the work function once if the task is still pending and
// settles the task from its result. It reports whether the task is settled.
func (t *Task[T]) Poll() bool {
	t.mu.Lock()
	if t.state != StatePending {
		t.mu.Unlock()
		return true
	}
	work := t.work
	t.mu.Unlock()

	if work == nil {
		return false
	}

	value, done, err := work()
	switch {
	case err != nil:
		t.Reject(err)
	case done:
		t.Resolve(value)
	}
	return !t.IsPending()
}

// expire rejects a pending task whose own timeout has passed and reports
// whether it did
func (t *Task[T]) expire() bool {
	if t.timeout <= 0 {
		return false
	}
	elapsed := time.Since(t.createdAt)
	if elapsed <= t.timeout {
		return false
	}
	return t.Reject(&TimeoutError{Elapsed: elapsed, Limit: t.timeout})
}

// Wait polls the task every interval until it settles. The task is rejected
// with a *TimeoutError once its own timeout or MaxWait is exceeded, and with
// ErrCancelled when ctx is done. The sleep between polls is the only point
// where Wait blocks.
func (t *Task[T]) Wait(ctx context.Context, interval time.Duration) (T, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	started := time.Now()

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for t.IsPending() {
		if t.expire() {
			break
		}
		if elapsed := time.Since(started); elapsed > hardCeiling {
			t.Reject(&TimeoutError{Elapsed: elapsed, Limit: hardCeiling, Ceiling: true})
			break
		}

		if t.Poll() {
			break
		}

		timer.Reset(interval)
		select {
		case <-ctx.Done():
			t.Reject(fmt.Errorf("%w: %w", ErrCancelled, ctx.Err()))
		case <-timer.C:
		}
	}

	return t.Result()
}

// Result returns the stored outcome without waiting. A pending task returns
// the zero value and a nil error.
func (t *Task[T]) Result() (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == StateRejected {
		var zero T
		return zero, t.err
	}
	return t.value, nil
}

func (t *Task[T]) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Task[T]) IsPending() bool {
	return t.State() == StatePending
}

func (t *Task[T]) IsFulfilled() bool {
	return t.State() == StateFulfilled
}

func (t *Task[T]) IsRejected() bool {
	return t.State() == StateRejected
}

// Err returns the rejection error, or nil
func (t *Task[T]) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Task[T]) CreatedAt() time.Time {
	return t.createdAt
}

func (t *Task[T]) Timeout() time.Duration {
	return t.timeout
}
