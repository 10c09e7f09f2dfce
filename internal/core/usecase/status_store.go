package usecase

import (
	"context"
	"log/slog"
	"sync"

	"github.com/kirillkom/invoice-hub-agent/internal/core/domain"
	"github.com/kirillkom/invoice-hub-agent/internal/core/ports"
)

// StatusStore owns the session GlobalStatus. Writers send patches; readers take snapshots.
type StatusStore struct {
	publisher ports.StatusPublisher
	observer  ports.WorkflowObserver

	mu        sync.Mutex
	status    domain.GlobalStatus
	listeners map[int]func(domain.GlobalStatus)
	nextID    int
}

func NewStatusStore(publisher ports.StatusPublisher, observer ports.WorkflowObserver) *StatusStore {
	if observer == nil {
		observer = noopObserver{}
	}
	return &StatusStore{
		publisher: publisher,
		observer:  observer,
		listeners: make(map[int]func(domain.GlobalStatus)),
	}
}

func (s *StatusStore) Snapshot() domain.GlobalStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Set merges the patch field by field and returns the resulting status.
func (s *StatusStore) Set(ctx context.Context, patch domain.StatusPatch) domain.GlobalStatus {
	if patch.Empty() {
		return s.Snapshot()
	}

	s.mu.Lock()
	s.status = s.status.Apply(patch)
	next := s.status
	listeners := make([]func(domain.GlobalStatus), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	s.notify(ctx, next, listeners)
	return next
}

// Reset zeroes every field, used on logout.
func (s *StatusStore) Reset(ctx context.Context) {
	zero := 0
	no := false
	s.Set(ctx, domain.StatusPatch{
		ReviewCount:     &zero,
		SyncCount:       &zero,
		IsUploading:     &no,
		ProcessingCount: &zero,
		TotalProcessing: &zero,
		IsComplete:      &no,
	})
}

// Subscribe registers fn for every applied patch. The returned func unsubscribes.
func (s *StatusStore) Subscribe(fn func(domain.GlobalStatus)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *StatusStore) notify(ctx context.Context, status domain.GlobalStatus, listeners []func(domain.GlobalStatus)) {
	s.observer.StatusChanged(status)
	for _, fn := range listeners {
		fn(status)
	}
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishStatus(ctx, status); err != nil {
		slog.Warn("status_publish_failed", "error", err)
	}
}
