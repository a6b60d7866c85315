package middleware

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/psantana5/cmdexec/pkg/command"
)

type stubCommand struct {
	name string
}

func (c stubCommand) Name() string { return c.name }

func (c stubCommand) Execute(context.Context, *command.Input, command.Output) (int, error) {
	return command.ExitSuccess, nil
}

// recorder returns a middleware that appends label to trace and calls next
func recorder(prio int, label string, trace *[]string) *Func {
	return &Func{
		Prio: prio,
		HandleFn: func(inv *Invocation, next Handler) (int, error) {
			*trace = append(*trace, label)
			return next(inv)
		},
	}
}

func terminalRecorder(trace *[]string) Handler {
	return func(*Invocation) (int, error) {
		*trace = append(*trace, "T")
		return command.ExitSuccess, nil
	}
}

func TestPipelineOrdersByPriority(t *testing.T) {
	var trace []string
	p, err := NewPipeline(
		recorder(50, "M2", &trace),
		recorder(100, "M1", &trace),
	)
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}

	status, err := p.Execute(context.Background(), stubCommand{"x"}, command.NewInput(), &command.Buffer{}, terminalRecorder(&trace))
	if err != nil || status != command.ExitSuccess {
		t.Fatalf("Execute() = %d, %v", status, err)
	}
	if want := []string{"M1", "M2", "T"}; !reflect.DeepEqual(trace, want) {
		t.Errorf("execution order = %v, want %v", trace, want)
	}
}

func TestPipelineEqualPrioritiesKeepInsertionOrder(t *testing.T) {
	var trace []string
	p := &Pipeline{}
	p.Add(recorder(10, "a", &trace))
	p.Add(recorder(20, "high", &trace))
	p.Add(recorder(10, "b", &trace))
	p.AddMultiple(recorder(10, "c", &trace), recorder(5, "low", &trace))

	p.Execute(context.Background(), stubCommand{"x"}, nil, &command.Buffer{}, terminalRecorder(&trace))

	if want := []string{"high", "a", "b", "c", "low", "T"}; !reflect.DeepEqual(trace, want) {
		t.Errorf("execution order = %v, want %v", trace, want)
	}
}

func TestPipelineShortCircuit(t *testing.T) {
	var trace []string
	p, _ := NewPipeline(
		&Func{Prio: 100, HandleFn: func(*Invocation, Handler) (int, error) {
			trace = append(trace, "M1")
			return 42, nil
		}},
		recorder(50, "M2", &trace),
	)

	status, err := p.Execute(context.Background(), stubCommand{"x"}, nil, &command.Buffer{}, terminalRecorder(&trace))
	if err != nil || status != 42 {
		t.Errorf("Execute() = %d, %v; want 42, nil", status, err)
	}
	if want := []string{"M1"}; !reflect.DeepEqual(trace, want) {
		t.Errorf("trace = %v, want %v", trace, want)
	}
}

func TestPipelineSkipsInapplicable(t *testing.T) {
	var trace []string
	only := recorder(10, "only-deploy", &trace)
	only.AppliesFn = func(inv *Invocation) bool { return inv.Command.Name() == "deploy" }
	p, _ := NewPipeline(only)

	p.Execute(context.Background(), stubCommand{"status"}, nil, &command.Buffer{}, terminalRecorder(&trace))
	p.Execute(context.Background(), stubCommand{"deploy"}, nil, &command.Buffer{}, terminalRecorder(&trace))

	if want := []string{"T", "only-deploy", "T"}; !reflect.DeepEqual(trace, want) {
		t.Errorf("trace = %v, want %v", trace, want)
	}
}

func TestPipelinePropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	p, _ := NewPipeline(&Func{Prio: 1})

	_, err := p.Execute(context.Background(), stubCommand{"x"}, nil, &command.Buffer{}, func(*Invocation) (int, error) {
		return command.ExitFailure, boom
	})
	if err != boom {
		t.Errorf("Execute() error = %v, want the terminal error unchanged", err)
	}
}

func TestPipelineRejectsNil(t *testing.T) {
	p := &Pipeline{}
	if err := p.AddMultiple(&Func{}, nil); !errors.Is(err, ErrInvalidMiddleware) {
		t.Errorf("AddMultiple(nil) error = %v, want ErrInvalidMiddleware", err)
	}
	if p.Len() != 0 {
		t.Errorf("Len() = %d, a failed AddMultiple should add nothing", p.Len())
	}
	if _, err := p.Execute(context.Background(), stubCommand{"x"}, nil, &command.Buffer{}, nil); !errors.Is(err, ErrInvalidMiddleware) {
		t.Errorf("Execute(nil terminal) error = %v", err)
	}
}

func TestRemoveByType(t *testing.T) {
	p, _ := NewPipeline(
		NewLogging(nil),
		&Func{Prio: 1},
		NewLogging(nil),
		NewTiming("", nil),
	)

	if n := Remove[*Logging](p); n != 2 {
		t.Errorf("Remove[*Logging] removed %d, want 2", n)
	}
	for _, m := range p.Middlewares() {
		if _, ok := m.(*Logging); ok {
			t.Error("a *Logging middleware survived Remove")
		}
	}
	if p.Len() != 2 {
		t.Errorf("Len() = %d, want 2", p.Len())
	}
}

func TestPipelineContextDefaults(t *testing.T) {
	p := &Pipeline{}
	p.Execute(nil, stubCommand{"x"}, nil, &command.Buffer{}, func(inv *Invocation) (int, error) {
		if inv.Ctx == nil {
			t.Error("Invocation.Ctx should default to context.Background()")
		}
		return 0, nil
	})
}
