package usecase

import (
	"context"
	"sync"
	"time"
)

// TickFunc runs once per period. Returning false stops the task.
type TickFunc func(ctx context.Context) bool

// PeriodicTask is a cancellable interval loop with an explicit Start/Stop lifecycle.
type PeriodicTask struct {
	name      string
	interval  time.Duration
	immediate bool
	tick      TickFunc

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPeriodicTask(name string, interval time.Duration, immediate bool, tick TickFunc) *PeriodicTask {
	if interval <= 0 {
		interval = time.Second
	}
	return &PeriodicTask{
		name:      name,
		interval:  interval,
		immediate: immediate,
		tick:      tick,
	}
}

func (p *PeriodicTask) Name() string { return p.name }

// Start launches the loop unless it is already running and reports whether it did.
func (p *PeriodicTask) Start(parent context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != nil {
		return false
	}

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	go p.loop(ctx, done)
	return true
}

func (p *PeriodicTask) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done != nil
}

// Stop cancels the loop and waits for an in-flight tick. It must not be called from the tick itself.
func (p *PeriodicTask) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *PeriodicTask) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer p.release(done)

	if p.immediate && !p.run(ctx) {
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !p.run(ctx) {
				return
			}
		}
	}
}

func (p *PeriodicTask) run(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	return p.tick(ctx)
}

func (p *PeriodicTask) release(done chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != done {
		return
	}
	p.cancel()
	p.cancel = nil
	p.done = nil
}
