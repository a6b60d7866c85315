package shutdown

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestShutdownRunsHooksLIFOOnce(t *testing.T) {
	m := New(time.Second, nil)

	var order []int
	m.Register(func(context.Context) error { order = append(order, 1); return nil })
	m.Register(func(context.Context) error { order = append(order, 2); return errors.New("ignored") })
	m.Register(func(context.Context) error { order = append(order, 3); return nil })

	m.Shutdown()
	m.Shutdown()

	if want := []int{3, 2, 1}; !reflect.DeepEqual(order, want) {
		t.Errorf("hook order = %v, want %v", order, want)
	}
	select {
	case <-m.Done():
	default:
		t.Error("Done() not closed after Shutdown")
	}
}

func TestListenStopReleasesContext(t *testing.T) {
	m := New(time.Second, nil)
	ctx, stop := m.Listen(context.Background())
	stop()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("stop did not cancel the context")
	}
}
