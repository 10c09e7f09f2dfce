package usecase

import "sync"

// Names of client-side caches that depend on backend invoice data.
const (
	CacheInvoices = "invoices"
	CacheReview   = "review"
)

// CacheRegistry versions named caches so dependent views know when to refetch.
type CacheRegistry struct {
	mu        sync.Mutex
	versions  map[string]uint64
	listeners []func(name string, version uint64)
}

func NewCacheRegistry() *CacheRegistry {
	return &CacheRegistry{versions: make(map[string]uint64)}
}

func (r *CacheRegistry) Invalidate(names ...string) {
	type event struct {
		name    string
		version uint64
	}

	r.mu.Lock()
	events := make([]event, 0, len(names))
	for _, name := range names {
		r.versions[name]++
		events = append(events, event{name: name, version: r.versions[name]})
	}
	listeners := append([]func(string, uint64){}, r.listeners...)
	r.mu.Unlock()

	for _, ev := range events {
		for _, fn := range listeners {
			fn(ev.name, ev.version)
		}
	}
}

func (r *CacheRegistry) Version(name string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.versions[name]
}

func (r *CacheRegistry) OnInvalidate(fn func(name string, version uint64)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}
