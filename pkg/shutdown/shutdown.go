package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/psantana5/cmdexec/pkg/logging"
)

// Manager runs registered hooks once, on SIGINT/SIGTERM or on an explicit
// Shutdown call
type Manager struct {
	hooks   []func(context.Context) error
	mu      sync.Mutex
	timeout time.Duration
	logger  *logging.Logger
	once    sync.Once
	done    chan struct{}
}

// New creates a new shutdown manager
func New(timeout time.Duration, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Manager{
		timeout: timeout,
		logger:  logger.WithField("component", "shutdown"),
		done:    make(chan struct{}),
	}
}

// Register adds a hook. Hooks run in reverse registration order (LIFO).
func (m *Manager) Register(fn func(context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, fn)
}

// Done is closed once shutdown has started
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Shutdown runs every hook once. Later calls are no-ops.
func (m *Manager) Shutdown() {
	m.once.Do(func() {
		close(m.done)

		m.mu.Lock()
		hooks := make([]func(context.Context) error, len(m.hooks))
		copy(hooks, m.hooks)
		m.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		for i := len(hooks) - 1; i >= 0; i-- {
			if err := hooks[i](ctx); err != nil {
				m.logger.Error("Shutdown hook failed", logging.Fields{"hook": i, "error": err})
			}
		}
	})
}

// Listen returns a context that is cancelled when a termination signal
// arrives, after the hooks have run. Call stop to release the signal handler.
func (m *Manager) Listen(parent context.Context) (ctx context.Context, stop func()) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		select {
		case sig := <-sigChan:
			m.logger.Warn(fmt.Sprintf("Received signal: %v", sig))
			m.Shutdown()
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
