package middleware

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/psantana5/cmdexec/pkg/command"
)

var ErrInvalidMiddleware = errors.New("invalid middleware")

// Invocation is the execution context of one Pipeline.Execute call
type Invocation struct {
	Ctx     context.Context
	Command command.Command
	Input   *command.Input
	Output  command.Output
}

// Handler continues an invocation and returns its exit status
type Handler func(inv *Invocation) (int, error)

// Middleware intercepts command executions. Handle must call next to let the
// invocation proceed; returning without calling it short-circuits every
// lower-priority middleware and the terminal handler.
type Middleware interface {
	Priority() int
	Applies(inv *Invocation) bool
	Handle(inv *Invocation, next Handler) (int, error)
}

// Pipeline runs applicable middleware in descending priority order around a
// terminal handler. Equal priorities keep their insertion order.
type Pipeline struct {
	mu          sync.RWMutex
	middlewares []Middleware
}

// NewPipeline creates a pipeline with the given middleware
func NewPipeline(ms ...Middleware) (*Pipeline, error) {
	p := &Pipeline{}
	if err := p.AddMultiple(ms...); err != nil {
		return nil, err
	}
	return p, nil
}

// Add inserts m and re-sorts the pipeline
func (p *Pipeline) Add(m Middleware) error {
	return p.AddMultiple(m)
}

// AddMultiple inserts every middleware, or none if any is nil
func (p *Pipeline) AddMultiple(ms ...Middleware) error {
	for i, m := range ms {
		if m == nil {
			return fmt.Errorf("%w: entry %d is nil", ErrInvalidMiddleware, i)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.middlewares = append(p.middlewares, ms...)
	sort.SliceStable(p.middlewares, func(i, j int) bool {
		return p.middlewares[i].Priority() > p.middlewares[j].Priority()
	})
	return nil
}

// RemoveFunc drops every middleware for which match returns true and
// reports how many were removed
func (p *Pipeline) RemoveFunc(match func(Middleware) bool) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	kept := p.middlewares[:0]
	removed := 0
	for _, m := range p.middlewares {
		if match(m) {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	// clear the tail so removed middleware can be collected
	for i := len(kept); i < len(p.middlewares); i++ {
		p.middlewares[i] = nil
	}
	p.middlewares = kept
	return removed
}

// Remove drops every middleware of type M from p
func Remove[M Middleware](p *Pipeline) int {
	return p.RemoveFunc(func(m Middleware) bool {
		_, ok := m.(M)
		return ok
	})
}

// Middlewares returns the sorted middleware list
func (p *Pipeline) Middlewares() []Middleware {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Middleware, len(p.middlewares))
	copy(out, p.middlewares)
	return out
}

func (p *Pipeline) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.middlewares)
}

// Execute runs cmd through every applicable middleware and then terminal.
// Errors returned by terminal or by a middleware reach the caller unchanged
// unless a middleware deliberately replaces them.
func (p *Pipeline) Execute(ctx context.Context, cmd command.Command, in *command.Input, out command.Output, terminal Handler) (int, error) {
	if terminal == nil {
		return command.ExitFailure, fmt.Errorf("%w: nil terminal handler", ErrInvalidMiddleware)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	inv := &Invocation{Ctx: ctx, Command: cmd, Input: in, Output: out}

	var applicable []Middleware
	for _, m := range p.Middlewares() {
		if m.Applies(inv) {
			applicable = append(applicable, m)
		}
	}

	chain := terminal
	for i := len(applicable) - 1; i >= 0; i-- {
		m, next := applicable[i], chain
		chain = func(inv *Invocation) (int, error) {
			return m.Handle(inv, next)
		}
	}
	return chain(inv)
}

// Func builds a middleware from closures. A nil AppliesFn applies to every
// invocation.
type Func struct {
	Prio      int
	AppliesFn func(inv *Invocation) bool
	HandleFn  func(inv *Invocation, next Handler) (int, error)
}

func (f *Func) Priority() int {
	return f.Prio
}

func (f *Func) Applies(inv *Invocation) bool {
	if f.AppliesFn == nil {
		return true
	}
	return f.AppliesFn(inv)
}

func (f *Func) Handle(inv *Invocation, next Handler) (int, error) {
	if f.HandleFn == nil {
		return next(inv)
	}
	return f.HandleFn(inv, next)
}
