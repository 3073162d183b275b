package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// TaskManager runs fire-and-forget side effects (blockchain notarization,
// notifications) on background goroutines and drains them at shutdown so
// in-flight work is not lost on SIGTERM.
type TaskManager struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
	active int
}

// NewTaskManager creates a running task manager.
func NewTaskManager() *TaskManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskManager{ctx: ctx, cancel: cancel}
}

// Go schedules fn on a background goroutine. After Shutdown the task is
// dropped with a warning instead of being started. Panics are recovered and
// logged; a task failure is logged, never propagated.
func (m *TaskManager) Go(name string, fn func(ctx context.Context) error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		slog.Warn("Task manager closed, dropping task", "task", name)
		return
	}
	m.wg.Add(1)
	m.active++
	m.mu.Unlock()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Background task panicked", "task", name, "panic", fmt.Sprint(r))
			}
			m.mu.Lock()
			m.active--
			m.mu.Unlock()
			m.wg.Done()
		}()

		if err := fn(m.ctx); err != nil {
			slog.Error("Background task failed", "task", name, "error", err)
		}
	}()
}

// Active returns the number of currently running tasks.
func (m *TaskManager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Shutdown stops accepting new tasks and waits up to timeout for running
// tasks to finish. Tasks still running at the deadline are cancelled via
// their context.
func (m *TaskManager) Shutdown(timeout time.Duration) {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Background tasks drained")
	case <-time.After(timeout):
		slog.Warn("Background task drain timed out, cancelling", "remaining", m.Active())
		m.cancel()
		<-done
	}
	m.cancel()
}
