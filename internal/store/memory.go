package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is the in-process backend: a nested map tree guarded by one
// lock. It backs tests and local development and is the reference
// implementation of the Store contract.
type MemoryStore struct {
	mu     sync.RWMutex
	root   map[string]any
	subs   *subscribers
	ids    *pushIDGenerator
	now    func() time.Time
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		root: make(map[string]any),
		subs: newSubscribers(),
		ids:  newPushIDGenerator(nil),
		now:  time.Now,
	}
}

func (m *MemoryStore) Get(ctx context.Context, path string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	return deepClone(treeGet(m.root, splitPath(path))), nil
}

func (m *MemoryStore) Set(ctx context.Context, path string, value any) error {
	return m.apply(ctx, map[string]any{path: value})
}

func (m *MemoryStore) Update(ctx context.Context, patch map[string]any) error {
	if len(patch) == 0 {
		return nil
	}
	return m.apply(ctx, patch)
}

func (m *MemoryStore) Remove(ctx context.Context, path string) error {
	return m.apply(ctx, map[string]any{path: nil})
}

func (m *MemoryStore) Push(ctx context.Context, path string, value any) (string, error) {
	key := m.ids.next()
	child := joinPath(append(splitPath(path), key))
	if err := m.Set(ctx, child, value); err != nil {
		return "", err
	}
	return key, nil
}

func (m *MemoryStore) Subscribe(path string) *Subscription {
	sub := m.subs.add(path)
	m.mu.RLock()
	snap := Snapshot{Path: sub.Path(), Value: deepClone(treeGet(m.root, splitPath(path)))}
	m.mu.RUnlock()
	deliver(sub, snap)
	return sub
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.subs.closeAll()
	return nil
}

// apply commits every patch entry under one lock, then fans the new values
// out to affected subscriptions. Entries are applied in path order so a
// patch is deterministic regardless of map iteration.
func (m *MemoryStore) apply(ctx context.Context, patch map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	paths := make([]string, 0, len(patch))
	for p := range patch {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	now := m.now().UnixMilli()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}

	changed := make([][]string, 0, len(paths))
	for _, p := range paths {
		parts := splitPath(p)
		treeSet(m.root, parts, resolveTimestamps(patch[p], now))
		changed = append(changed, parts)
	}

	affected := m.subs.affected(changed)
	snaps := make([]Snapshot, len(affected))
	for i, sub := range affected {
		snaps[i] = Snapshot{
			Path:  sub.Path(),
			Value: deepClone(treeGet(m.root, splitPath(sub.Path()))),
		}
	}
	m.mu.Unlock()

	for i, sub := range affected {
		deliver(sub, snaps[i])
	}
	return nil
}

// treeGet descends the tree; nil when any segment is missing.
func treeGet(node map[string]any, parts []string) any {
	if len(parts) == 0 {
		if len(node) == 0 {
			return nil
		}
		return node
	}
	cur := any(node)
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[p]
		if !ok {
			return nil
		}
	}
	return cur
}

// treeSet writes value at parts, creating intermediate nodes. A nil value
// deletes the subtree and prunes parents left empty.
func treeSet(root map[string]any, parts []string, value any) {
	if len(parts) == 0 {
		for k := range root {
			delete(root, k)
		}
		if m, ok := value.(map[string]any); ok {
			for k, v := range m {
				root[k] = v
			}
		}
		return
	}
	if value == nil {
		treeDelete(root, parts)
		return
	}
	node := root
	for _, p := range parts[:len(parts)-1] {
		child, ok := node[p].(map[string]any)
		if !ok {
			child = make(map[string]any)
			node[p] = child
		}
		node = child
	}
	node[parts[len(parts)-1]] = value
}

func treeDelete(node map[string]any, parts []string) bool {
	key := parts[0]
	if len(parts) == 1 {
		delete(node, key)
	} else {
		child, ok := node[key].(map[string]any)
		if !ok {
			return len(node) == 0
		}
		if treeDelete(child, parts[1:]) {
			delete(node, key)
		}
	}
	return len(node) == 0
}
