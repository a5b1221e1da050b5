package shutdown

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmmcquay/reversi-mcp/internal/logging"
)

func TestShutdownManager(t *testing.T) {
	logger := logging.NewLoggerWithWriter(io.Discard, &logging.Config{
		Level:   "debug",
		Format:  logging.FormatJSON,
		Service: "test",
		Version: "1.0.0",
	})

	t.Run("reverse registration order", func(t *testing.T) {
		manager := NewManager(logger)
		var mu sync.Mutex
		var order []string

		for i := 0; i < 3; i++ {
			name := fmt.Sprintf("component-%d", i)
			manager.Register(name, func(ctx context.Context) error {
				mu.Lock()
				defer mu.Unlock()
				order = append(order, name)
				return nil
			})
		}

		if err := manager.Shutdown(5 * time.Second); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		want := []string{"component-2", "component-1", "component-0"}
		if fmt.Sprint(order) != fmt.Sprint(want) {
			t.Errorf("Expected order %v, got %v", want, order)
		}
	})

	t.Run("errors are joined and later components still stop", func(t *testing.T) {
		manager := NewManager(logger)
		errExpected := errors.New("listener close failed")
		var stopped atomic.Bool

		manager.Register("first", func(ctx context.Context) error {
			stopped.Store(true)
			return nil
		})
		manager.Register("http", func(ctx context.Context) error {
			return errExpected
		})

		err := manager.Shutdown(5 * time.Second)
		if !errors.Is(err, errExpected) {
			t.Errorf("Expected joined error to wrap %v, got %v", errExpected, err)
		}
		if !stopped.Load() {
			t.Error("Expected the remaining component to be stopped")
		}
	})

	t.Run("timeout", func(t *testing.T) {
		manager := NewManager(logger)
		manager.Register("stuck", func(ctx context.Context) error {
			time.Sleep(2 * time.Second)
			return nil
		})

		start := time.Now()
		err := manager.Shutdown(100 * time.Millisecond)
		if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
			t.Errorf("Shutdown took too long: %v", elapsed)
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Expected deadline exceeded, got %v", err)
		}
	})

	t.Run("concurrent shutdown calls", func(t *testing.T) {
		manager := NewManager(logger)
		var counter atomic.Int32

		manager.Register("component", func(ctx context.Context) error {
			counter.Add(1)
			time.Sleep(50 * time.Millisecond)
			return nil
		})

		var wg sync.WaitGroup
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = manager.Shutdown(5 * time.Second)
			}()
		}
		wg.Wait()

		if counter.Load() != 1 {
			t.Errorf("Expected shutdown function to be called once, got %d", counter.Load())
		}
	})

	t.Run("done channel", func(t *testing.T) {
		manager := NewManager(logger)
		done := manager.Done()

		select {
		case <-done:
			t.Error("Done channel closed before shutdown")
		default:
		}

		_ = manager.Shutdown(5 * time.Second)

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Error("Done channel not closed after shutdown")
		}
	})

	t.Run("context cancel triggers shutdown", func(t *testing.T) {
		manager := NewManager(logger)
		var called atomic.Bool
		manager.Register("component", func(ctx context.Context) error {
			called.Store(true)
			return nil
		})

		ctx, cancel := context.WithCancel(context.Background())
		manager.HandleSignals(ctx)
		cancel()

		select {
		case <-manager.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("Shutdown did not run after context cancel")
		}
		if !called.Load() {
			t.Error("Expected component to be stopped")
		}
	})
}
