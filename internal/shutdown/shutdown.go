package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmmcquay/reversi-mcp/internal/logging"
)

// DefaultTimeout is the shutdown budget used on a signal.
const DefaultTimeout = 30 * time.Second

type component struct {
	name string
	fn   func(context.Context) error
}

// Manager stops registered components in reverse registration order.
type Manager struct {
	logger       logging.ContextLogger
	components   []component
	mu           sync.Mutex
	done         chan struct{}
	err          error
	shutdownOnce sync.Once
}

// NewManager creates a new shutdown manager.
func NewManager(logger logging.ContextLogger) *Manager {
	return &Manager{
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Register adds a component. The last one registered is stopped first.
func (m *Manager) Register(name string, fn func(context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append(m.components, component{name: name, fn: fn})
}

// HandleSignals shuts down on SIGINT or SIGTERM, or when ctx ends.
func (m *Manager) HandleSignals(ctx context.Context) {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer stop()
		select {
		case <-sigCtx.Done():
			m.logger.Info("Received shutdown signal", "cause", context.Cause(sigCtx))
			m.Shutdown(DefaultTimeout)
		case <-m.done:
		}
	}()
}

// Shutdown stops every component within timeout. Only the first call does
// any work; later calls return the same error.
func (m *Manager) Shutdown(timeout time.Duration) error {
	m.shutdownOnce.Do(func() {
		defer close(m.done)

		m.mu.Lock()
		components := append([]component(nil), m.components...)
		m.mu.Unlock()

		m.logger.Info("Starting graceful shutdown", "timeout", timeout, "components", len(components))
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		var errs []error
		for i := len(components) - 1; i >= 0; i-- {
			if err := m.stop(ctx, components[i]); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", components[i].name, err))
			}
			if ctx.Err() != nil {
				m.logger.Error("Graceful shutdown timed out", "timeout", timeout)
				errs = append(errs, ctx.Err())
				break
			}
		}

		m.err = errors.Join(errs...)
		if m.err != nil {
			m.logger.Error("Graceful shutdown completed with errors", "error", m.err)
		} else {
			m.logger.Info("Graceful shutdown completed successfully")
		}
	})
	<-m.done
	return m.err
}

func (m *Manager) stop(ctx context.Context, c component) error {
	m.logger.Info("Shutting down component", "component", c.name)
	start := time.Now()

	result := make(chan error, 1)
	go func() { result <- c.fn(ctx) }()

	var err error
	select {
	case err = <-result:
	case <-ctx.Done():
		err = ctx.Err()
	}

	elapsed := time.Since(start)
	if err != nil {
		m.logger.Error("Failed to shutdown component", "component", c.name, "error", err, "elapsed", elapsed)
	} else {
		m.logger.Info("Component shutdown complete", "component", c.name, "elapsed", elapsed)
	}
	return err
}

// Done returns a channel that's closed when shutdown is complete.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// WaitForShutdown blocks until shutdown is complete.
func (m *Manager) WaitForShutdown() {
	<-m.done
}
