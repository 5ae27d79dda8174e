package service

import (
	"sync"
	"sync/atomic"

	"plant_monitor/internal/models"
)

// SnapshotStore holds the latest snapshot. One goroutine publishes;
// any number may read or subscribe.
type SnapshotStore struct {
	cur atomic.Pointer[models.Snapshot]

	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

func NewSnapshotStore() *SnapshotStore {
	s := &SnapshotStore{subs: map[chan struct{}]struct{}{}}
	s.cur.Store(&models.Snapshot{Status: models.StatusStopped})
	return s
}

// Publish replaces the current snapshot and signals every subscriber without
// blocking. The caller must not modify snap's slices afterwards.
func (s *SnapshotStore) Publish(snap models.Snapshot) {
	s.cur.Store(&snap)
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *SnapshotStore) Current() models.Snapshot { return *s.cur.Load() }

// Subscribe returns a channel of its own that fires at least once after one
// or more Publish calls. Signals coalesce; read Current for the state.
// cancel stops delivery and may be called more than once.
func (s *SnapshotStore) Subscribe() (updates <-chan struct{}, cancel func()) {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch, sync.OnceFunc(func() {
		s.mu.Lock()
		delete(s.subs, ch)
		s.mu.Unlock()
	})
}

// Subscribers reports how many subscriptions are active.
func (s *SnapshotStore) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
