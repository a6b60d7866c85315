package task

import "sync"

// All fulfills with a key to result map once every input fulfills. It rejects
// with the first rejection it observes and does not wait for, or cancel, the
// remaining inputs.
//
// Waiting on the returned task polls every pending input once per iteration
// and enforces each input's own timeout.
func All[K comparable, T any](tasks map[K]*Task[T]) *Task[map[K]T] {
	var agg *Task[map[K]T]
	agg = New(func() (map[K]T, bool, error) {
		for _, t := range tasks {
			if !agg.IsPending() {
				break
			}
			if t.IsPending() && !t.expire() {
				t.Poll()
			}
		}
		// settlement happens through the input callbacks
		return nil, false, nil
	}, 0)

	if len(tasks) == 0 {
		agg.Resolve(map[K]T{})
		return agg
	}

	var (
		mu        sync.Mutex
		results   = make(map[K]T, len(tasks))
		remaining = len(tasks)
	)
	for key, t := range tasks {
		t.Then(func(value T) {
			mu.Lock()
			results[key] = value
			remaining--
			done := remaining == 0
			mu.Unlock()

			if done {
				agg.Resolve(results)
			}
		})
		t.Catch(func(err error) {
			agg.Reject(err)
		})
	}
	return agg
}

// Race settles like whichever input settles first. Later settlements are
// ignored. An empty input never settles on its own.
func Race[T any](tasks []*Task[T]) *Task[T] {
	var agg *Task[T]
	agg = New(func() (T, bool, error) {
		var zero T
		for _, t := range tasks {
			if !agg.IsPending() {
				break
			}
			if t.IsPending() && !t.expire() {
				t.Poll()
			}
		}
		return zero, false, nil
	}, 0)

	for _, t := range tasks {
		t.Then(func(value T) { agg.Resolve(value) })
		t.Catch(func(err error) { agg.Reject(err) })
	}
	return agg
}
