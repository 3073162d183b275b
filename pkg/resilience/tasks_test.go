package resilience

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTaskManagerDrainsOnShutdown(t *testing.T) {
	m := NewTaskManager()

	var completed atomic.Int32
	for i := 0; i < 5; i++ {
		m.Go("work", func(ctx context.Context) error {
			time.Sleep(10 * time.Millisecond)
			completed.Add(1)
			return nil
		})
	}

	m.Shutdown(time.Second)
	assert.Equal(t, int32(5), completed.Load())
}

func TestTaskManagerDropsTasksAfterShutdown(t *testing.T) {
	m := NewTaskManager()
	m.Shutdown(time.Second)

	ran := false
	m.Go("late", func(ctx context.Context) error { ran = true; return nil })

	time.Sleep(20 * time.Millisecond)
	assert.False(t, ran)
}

func TestTaskManagerCancelsStragglersAtDeadline(t *testing.T) {
	m := NewTaskManager()

	cancelled := make(chan struct{})
	m.Go("slow", func(ctx context.Context) error {
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	})

	m.Shutdown(20 * time.Millisecond)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("straggler was not cancelled")
	}
}

func TestTaskManagerRecoversPanics(t *testing.T) {
	m := NewTaskManager()
	m.Go("panics", func(ctx context.Context) error { panic("kaboom") })
	assert.NotPanics(t, func() { m.Shutdown(time.Second) })
}
