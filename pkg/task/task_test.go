package task

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestResolveIsIdempotent(t *testing.T) {
	tk := New[int](nil, 0)

	if !tk.Resolve(1) {
		t.Fatal("first Resolve should settle the task")
	}
	if tk.Resolve(2) {
		t.Error("second Resolve should be a no-op")
	}
	if tk.Reject(errors.New("late")) {
		t.Error("Reject after Resolve should be a no-op")
	}

	value, err := tk.Result()
	if err != nil || value != 1 {
		t.Errorf("Result() = %d, %v; want 1, nil", value, err)
	}
	if tk.State() != StateFulfilled {
		t.Errorf("State() = %s, want fulfilled", tk.State())
	}
}

func TestRejectIsIdempotent(t *testing.T) {
	first := errors.New("first")
	tk := New[string](nil, 0)

	tk.Reject(first)
	tk.Reject(errors.New("second"))
	tk.Resolve("value")

	if !errors.Is(tk.Err(), first) {
		t.Errorf("Err() = %v, want %v", tk.Err(), first)
	}
	if !tk.IsRejected() {
		t.Errorf("State() = %s, want rejected", tk.State())
	}
}

func TestCallbacksFireInRegistrationOrder(t *testing.T) {
	tk := New[int](nil, 0)

	var order []int
	tk.Then(func(int) { order = append(order, 1) }).
		Then(func(int) { order = append(order, 2) }).
		Then(func(int) { order = append(order, 3) })

	tk.Resolve(7)
	tk.Resolve(8)

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("callback order = %v, want [1 2 3]", order)
	}
}

func TestLateSubscriptionFiresSynchronously(t *testing.T) {
	fulfilled := Resolved(42)
	got := 0
	fulfilled.Then(func(v int) { got = v })
	if got != 42 {
		t.Errorf("late Then got %d, want 42", got)
	}

	boom := errors.New("boom")
	rejected := Rejected[int](boom)
	var caught error
	rejected.Catch(func(err error) { caught = err })
	if !errors.Is(caught, boom) {
		t.Errorf("late Catch got %v, want %v", caught, boom)
	}

	// the non-matching queue never fires
	fired := false
	rejected.Then(func(int) { fired = true })
	fulfilled.Catch(func(error) { fired = true })
	if fired {
		t.Error("callback for the other outcome fired")
	}
}

func TestChainingReturnsSameTask(t *testing.T) {
	tk := New[int](nil, 0)
	if tk.Then(func(int) {}) != tk || tk.Catch(func(error) {}) != tk || tk.Finally(func() {}) != tk {
		t.Error("chaining should return the receiver")
	}
}

func TestFinallyKeepsOutcome(t *testing.T) {
	boom := errors.New("boom")
	tk := New[int](nil, 0)

	calls := 0
	tk.Finally(func() { calls++ })
	tk.Reject(boom)
	tk.Finally(func() { calls++ })

	if calls != 2 {
		t.Errorf("Finally calls = %d, want 2", calls)
	}
	if _, err := tk.Wait(context.Background(), time.Millisecond); !errors.Is(err, boom) {
		t.Errorf("Wait() error = %v, want %v", err, boom)
	}
}

func TestProgressDoesNotSettle(t *testing.T) {
	tk := New[int](nil, 0)

	var seen []any
	tk.OnProgress(func(v any) { seen = append(seen, v) })
	tk.Progress(10)
	tk.Progress(50)

	if !tk.IsPending() {
		t.Fatal("Progress settled the task")
	}
	tk.Resolve(1)
	tk.Progress(100)

	if len(seen) != 2 {
		t.Errorf("progress values = %v, want [10 50]", seen)
	}
}

func TestReentrantSettleFromCallback(t *testing.T) {
	first := New[int](nil, 0)
	second := New[int](nil, 0)

	first.Then(func(v int) {
		second.Resolve(v * 2)
		// subscribing to the settled task from inside its own callback
		first.Then(func(int) {})
	})
	first.Resolve(21)

	if v, _ := second.Result(); v != 42 {
		t.Errorf("second = %d, want 42", v)
	}
}

func TestWaitResolvesFromWork(t *testing.T) {
	polls := 0
	tk := New(func() (int, bool, error) {
		polls++
		if polls < 3 {
			return 0, false, nil
		}
		return 5, true, nil
	}, 0)

	value, err := tk.Wait(context.Background(), time.Millisecond)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if value != 5 || polls != 3 {
		t.Errorf("Wait() = %d after %d polls, want 5 after 3", value, polls)
	}
}

func TestWaitRejectsOnWorkError(t *testing.T) {
	boom := errors.New("boom")
	tk := New(func() (int, bool, error) { return 0, false, boom }, 0)

	if _, err := tk.Wait(context.Background(), time.Millisecond); !errors.Is(err, boom) {
		t.Errorf("Wait() error = %v, want %v", err, boom)
	}
	if !tk.IsRejected() {
		t.Error("task should be rejected")
	}
}

func TestWaitTimeout(t *testing.T) {
	tk := New(func() (int, bool, error) { return 0, false, nil }, 50*time.Millisecond)

	start := time.Now()
	_, err := tk.Wait(context.Background(), time.Millisecond)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Wait() error = %v, want ErrTimeout", err)
	}
	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) || timeoutErr.Ceiling {
		t.Errorf("expected a task timeout, got %#v", err)
	}
	if elapsed > time.Second {
		t.Errorf("Wait took %s, expected to stop near the 50ms timeout", elapsed)
	}
}

func TestWaitHardCeiling(t *testing.T) {
	saved := hardCeiling
	hardCeiling = 30 * time.Millisecond
	defer func() { hardCeiling = saved }()

	tk := New(func() (int, bool, error) { return 0, false, nil }, 0)
	_, err := tk.Wait(context.Background(), time.Millisecond)

	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) || !timeoutErr.Ceiling {
		t.Errorf("Wait() error = %v, want ceiling timeout", err)
	}
}

func TestWaitContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tk := New(func() (int, bool, error) { return 0, false, nil }, 0)

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := tk.Wait(ctx, time.Millisecond)
	if !errors.Is(err, ErrCancelled) || !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() error = %v, want ErrCancelled wrapping context.Canceled", err)
	}
}

func TestWaitWithoutWorkIsSettledExternally(t *testing.T) {
	tk := New[string](nil, 0)
	go func() {
		time.Sleep(10 * time.Millisecond)
		tk.Resolve("done")
	}()

	value, err := tk.Wait(context.Background(), time.Millisecond)
	if err != nil || value != "done" {
		t.Errorf("Wait() = %q, %v; want done, nil", value, err)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StatePending, "pending"},
		{StateFulfilled, "fulfilled"},
		{StateRejected, "rejected"},
		{State(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
