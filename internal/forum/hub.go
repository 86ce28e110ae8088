package forum

import (
	"context"
	"sync"

	"github.com/reelclub/moviehub/backend/internal/store"
)

// Hub hands out one live Manager per movie. Managers are created on first
// use and stay subscribed for the life of the process, so REST reads and
// websocket watchers share the same aggregate.
type Hub struct {
	store    store.Store
	profiles ProfileSource

	mu      sync.Mutex
	entries map[string]*hubEntry
}

type hubEntry struct {
	m    *Manager
	once sync.Once
}

func NewHub(st store.Store, profiles ProfileSource) *Hub {
	return &Hub{
		store:    st,
		profiles: profiles,
		entries:  make(map[string]*hubEntry),
	}
}

// Forum returns the manager for movieID, initializing it on first use.
// Concurrent callers for a fresh movie block until the one Initialize
// finishes.
func (h *Hub) Forum(ctx context.Context, movieID string) *Manager {
	h.mu.Lock()
	e, ok := h.entries[movieID]
	if !ok {
		e = &hubEntry{m: NewManager(h.store, h.profiles)}
		h.entries[movieID] = e
	}
	h.mu.Unlock()

	e.once.Do(func() {
		_ = e.m.Initialize(ctx, movieID)
	})
	return e.m
}

func (h *Hub) Close() {
	h.mu.Lock()
	entries := make([]*hubEntry, 0, len(h.entries))
	for id, e := range h.entries {
		entries = append(entries, e)
		delete(h.entries, id)
	}
	h.mu.Unlock()

	for _, e := range entries {
		e.m.Close()
	}
}
