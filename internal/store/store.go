// Package store implements the hierarchical document store the application
// persists into: path-scoped reads and writes, atomic multi-path patches,
// server-assigned child keys and timestamps, and live subscriptions that
// deliver full-replace snapshots of a watched subtree.
package store

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var ErrClosed = errors.New("store: closed")

// serverTimestamp is the write-time placeholder resolved to the store clock
// (Unix milliseconds) at commit.
type serverTimestamp struct{}

var ServerTimestamp any = serverTimestamp{}

// Snapshot is one full-replace delivery for a subscribed path. Value is the
// entire subtree at Path (nil when the subtree no longer exists).
type Snapshot struct {
	Path  string
	Value any
}

type Store interface {
	// Get returns the value at path, nil if nothing is stored there.
	Get(ctx context.Context, path string) (any, error)
	// Set replaces the subtree at path. A nil value removes it.
	Set(ctx context.Context, path string, value any) error
	// Update applies all path->value entries as one atomic patch.
	Update(ctx context.Context, patch map[string]any) error
	// Remove deletes the subtree at path.
	Remove(ctx context.Context, path string) error
	// Push stores value under a new server-assigned child key of path and
	// returns the key. Keys sort chronologically.
	Push(ctx context.Context, path string, value any) (string, error)
	// Subscribe opens a live snapshot stream for path. The current value is
	// delivered first, then the full subtree again after every mutation
	// touching it.
	Subscribe(path string) *Subscription
	Close() error
}

// Subscription is a live stream of full-replace snapshots for one path.
type Subscription struct {
	C chan Snapshot

	path   string
	once   sync.Once
	cancel func(*Subscription)
}

func (s *Subscription) Path() string { return s.path }

// Close stops deliveries. Idempotent. Pending snapshots already in the
// channel may still be read after Close.
func (s *Subscription) Close() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel(s)
		}
	})
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func joinPath(parts []string) string {
	return strings.Join(parts, "/")
}

// pathsOverlap reports whether one path is an ancestor of (or equal to) the
// other, segment-wise. A mutation at either path changes the value visible
// at the other.
func pathsOverlap(a, b []string) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// resolveTimestamps replaces every ServerTimestamp sentinel in value with
// now (Unix milliseconds), returning a copy where replacement happened.
func resolveTimestamps(value any, now int64) any {
	switch v := value.(type) {
	case serverTimestamp:
		return now
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, child := range v {
			out[k] = resolveTimestamps(child, now)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = resolveTimestamps(child, now)
		}
		return out
	default:
		return value
	}
}

// deepClone copies a value tree so snapshots handed to subscribers and
// callers are never aliased to store internals.
func deepClone(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, child := range v {
			out[k] = deepClone(child)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = deepClone(child)
		}
		return out
	default:
		return value
	}
}

// subscribers tracks live subscriptions for a store backend and fans out
// full-replace snapshots after mutations.
type subscribers struct {
	mu   sync.Mutex
	subs map[*Subscription][]string // subscription -> split path
}

func newSubscribers() *subscribers {
	return &subscribers{subs: make(map[*Subscription][]string)}
}

func (s *subscribers) add(path string) *Subscription {
	sub := &Subscription{
		C:      make(chan Snapshot, 16),
		path:   strings.Trim(path, "/"),
		cancel: s.remove,
	}
	s.mu.Lock()
	s.subs[sub] = splitPath(path)
	s.mu.Unlock()
	return sub
}

func (s *subscribers) remove(sub *Subscription) {
	s.mu.Lock()
	delete(s.subs, sub)
	s.mu.Unlock()
}

// affected returns the subscriptions whose watched path overlaps any of the
// changed paths.
func (s *subscribers) affected(changed [][]string) []*Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Subscription
	for sub, path := range s.subs {
		for _, ch := range changed {
			if pathsOverlap(path, ch) {
				out = append(out, sub)
				break
			}
		}
	}
	return out
}

func (s *subscribers) closeAll() {
	s.mu.Lock()
	for sub := range s.subs {
		delete(s.subs, sub)
	}
	s.mu.Unlock()
}

// deliver hands a snapshot to a subscription without blocking the store.
// The stream is full-replace, so when the consumer lags the oldest queued
// snapshot is dropped in favour of the newer one.
func deliver(sub *Subscription, snap Snapshot) {
	for {
		select {
		case sub.C <- snap:
			return
		default:
			select {
			case <-sub.C:
			default:
			}
		}
	}
}
