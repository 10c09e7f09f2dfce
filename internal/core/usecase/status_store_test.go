package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/invoice-hub-agent/internal/core/domain"
)

type publisherFake struct {
	published []domain.GlobalStatus
	err       error
}

func (f *publisherFake) PublishStatus(_ context.Context, status domain.GlobalStatus) error {
	f.published = append(f.published, status)
	return f.err
}

func TestStatusStoreMergesPatches(t *testing.T) {
	pub := &publisherFake{}
	store := NewStatusStore(pub, nil)

	var seen []domain.GlobalStatus
	unsubscribe := store.Subscribe(func(s domain.GlobalStatus) { seen = append(seen, s) })

	store.Set(context.Background(), domain.StatusPatch{ReviewCount: domain.Int(3), SyncCount: domain.Int(1)})
	got := store.Set(context.Background(), domain.StatusPatch{IsUploading: domain.Bool(true)})

	if got.ReviewCount != 3 || got.SyncCount != 1 || !got.IsUploading {
		t.Fatalf("expected merged status, got %+v", got)
	}
	if len(seen) != 2 || len(pub.published) != 2 {
		t.Fatalf("expected 2 notifications, got listeners=%d published=%d", len(seen), len(pub.published))
	}

	store.Set(context.Background(), domain.StatusPatch{})
	if len(seen) != 2 {
		t.Fatalf("empty patch must not notify")
	}

	unsubscribe()
	store.Set(context.Background(), domain.StatusPatch{SyncCount: domain.Int(2)})
	if len(seen) != 2 {
		t.Fatalf("unsubscribed listener was notified")
	}
}

func TestStatusStorePublishErrorIsNotFatal(t *testing.T) {
	store := NewStatusStore(&publisherFake{err: errors.New("nats down")}, nil)
	got := store.Set(context.Background(), domain.StatusPatch{ReviewCount: domain.Int(1)})
	if got.ReviewCount != 1 {
		t.Fatalf("expected status applied despite publish failure")
	}

	store.Reset(context.Background())
	if store.Snapshot() != (domain.GlobalStatus{}) {
		t.Fatalf("expected zero status after reset")
	}
}

func TestCacheRegistryVersions(t *testing.T) {
	reg := NewCacheRegistry()
	var events []string
	reg.OnInvalidate(func(name string, _ uint64) { events = append(events, name) })

	reg.Invalidate(CacheInvoices, CacheReview)
	reg.Invalidate(CacheInvoices)

	if reg.Version(CacheInvoices) != 2 || reg.Version(CacheReview) != 1 {
		t.Fatalf("unexpected versions invoices=%d review=%d", reg.Version(CacheInvoices), reg.Version(CacheReview))
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %v", events)
	}
}
