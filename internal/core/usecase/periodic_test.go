package usecase

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestPeriodicTaskLifecycle(t *testing.T) {
	var ticks atomic.Int32
	task := NewPeriodicTask("test", time.Millisecond, true, func(context.Context) bool {
		ticks.Add(1)
		return true
	})

	if !task.Start(context.Background()) {
		t.Fatalf("expected first Start to launch the loop")
	}
	if task.Start(context.Background()) {
		t.Fatalf("expected second Start to be a no-op")
	}
	waitFor(t, func() bool { return ticks.Load() >= 3 })

	task.Stop()
	if task.Running() {
		t.Fatalf("expected stopped task")
	}
	after := ticks.Load()
	time.Sleep(5 * time.Millisecond)
	if ticks.Load() != after {
		t.Fatalf("tick ran after Stop returned")
	}

	if !task.Start(context.Background()) {
		t.Fatalf("expected restart after Stop")
	}
	waitFor(t, func() bool { return ticks.Load() > after })
	task.Stop()
}

func TestPeriodicTaskImmediateTick(t *testing.T) {
	ran := make(chan struct{}, 1)
	task := NewPeriodicTask("immediate", time.Hour, true, func(context.Context) bool {
		ran <- struct{}{}
		return true
	})
	task.Start(context.Background())
	defer task.Stop()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatalf("expected immediate first tick")
	}
}

func TestPeriodicTaskStopsWhenTickReturnsFalse(t *testing.T) {
	var ticks atomic.Int32
	task := NewPeriodicTask("once", time.Millisecond, true, func(context.Context) bool {
		ticks.Add(1)
		return false
	})
	task.Start(context.Background())
	waitFor(t, func() bool { return !task.Running() })
	if ticks.Load() != 1 {
		t.Fatalf("expected exactly one tick, got %d", ticks.Load())
	}
}

func TestPeriodicTaskStopsWithParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	task := NewPeriodicTask("ctx", time.Millisecond, false, func(context.Context) bool { return true })
	task.Start(ctx)
	cancel()
	waitFor(t, func() bool { return !task.Running() })
}
