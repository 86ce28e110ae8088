package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// keyPrefix namespaces document leaves inside the badger keyspace.
const keyPrefix = "doc/"

// BadgerStore is the durable backend. The document tree is stored one leaf
// per key: doc/<path> -> JSON-encoded scalar. Subtree reads rebuild the
// nested value by prefix iteration; every mutation is a single badger
// transaction, which gives Update its multi-path atomicity.
type BadgerStore struct {
	db   *badger.DB
	subs *subscribers
	ids  *pushIDGenerator
	now  func() time.Time
	owns bool
}

// OpenBadger opens (or creates) a badger-backed store at dir.
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	s := NewBadgerStore(db)
	s.owns = true
	return s, nil
}

// NewBadgerStore wraps an already-open badger database.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{
		db:   db,
		subs: newSubscribers(),
		ids:  newPushIDGenerator(nil),
		now:  time.Now,
	}
}

func (s *BadgerStore) Get(ctx context.Context, path string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out any
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		out, err = readSubtree(txn, path)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", path, err)
	}
	return out, nil
}

func (s *BadgerStore) Set(ctx context.Context, path string, value any) error {
	return s.apply(ctx, map[string]any{path: value})
}

func (s *BadgerStore) Update(ctx context.Context, patch map[string]any) error {
	if len(patch) == 0 {
		return nil
	}
	return s.apply(ctx, patch)
}

func (s *BadgerStore) Remove(ctx context.Context, path string) error {
	return s.apply(ctx, map[string]any{path: nil})
}

func (s *BadgerStore) Push(ctx context.Context, path string, value any) (string, error) {
	key := s.ids.next()
	child := joinPath(append(splitPath(path), key))
	if err := s.Set(ctx, child, value); err != nil {
		return "", err
	}
	return key, nil
}

func (s *BadgerStore) Subscribe(path string) *Subscription {
	sub := s.subs.add(path)
	value, err := s.Get(context.Background(), path)
	if err == nil {
		deliver(sub, Snapshot{Path: sub.Path(), Value: value})
	}
	return sub
}

func (s *BadgerStore) Close() error {
	s.subs.closeAll()
	if s.owns {
		return s.db.Close()
	}
	return nil
}

func (s *BadgerStore) apply(ctx context.Context, patch map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	paths := make([]string, 0, len(patch))
	for p := range patch {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	now := s.now().UnixMilli()

	err := s.db.Update(func(txn *badger.Txn) error {
		for _, p := range paths {
			if err := writeSubtree(txn, p, resolveTimestamps(patch[p], now)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("apply patch: %w", err)
	}

	changed := make([][]string, 0, len(paths))
	for _, p := range paths {
		changed = append(changed, splitPath(p))
	}
	for _, sub := range s.subs.affected(changed) {
		value, gerr := s.Get(ctx, sub.Path())
		if gerr != nil {
			continue
		}
		deliver(sub, Snapshot{Path: sub.Path(), Value: value})
	}
	return nil
}

// writeSubtree replaces the subtree at path inside txn: existing leaves
// under the path are deleted, then the new value's leaves are written.
func writeSubtree(txn *badger.Txn, path string, value any) error {
	base := strings.Trim(path, "/")

	// Delete the exact leaf and everything below the path.
	prefixes := [][]byte{[]byte(keyPrefix + base + "/")}
	if base == "" {
		prefixes = [][]byte{[]byte(keyPrefix)}
	} else {
		if err := txn.Delete([]byte(keyPrefix + base)); err != nil {
			return err
		}
	}
	for _, prefix := range prefixes {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		var stale [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()
		for _, k := range stale {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
	}

	if value == nil {
		return nil
	}

	leaves := make(map[string]any)
	flatten(base, value, leaves)
	for leafPath, leaf := range leaves {
		data, err := json.Marshal(leaf)
		if err != nil {
			return err
		}
		if err := txn.Set([]byte(keyPrefix+leafPath), data); err != nil {
			return err
		}
	}
	return nil
}

// flatten expands nested maps into leaf paths. Scalars and slices are
// stored whole.
func flatten(base string, value any, out map[string]any) {
	m, ok := value.(map[string]any)
	if !ok {
		out[base] = value
		return
	}
	for k, child := range m {
		childPath := k
		if base != "" {
			childPath = base + "/" + k
		}
		flatten(childPath, child, out)
	}
}

// readSubtree rebuilds the value at path: an exact leaf wins, otherwise the
// nested map is reassembled from every leaf below the path.
func readSubtree(txn *badger.Txn, path string) (any, error) {
	base := strings.Trim(path, "/")

	if base != "" {
		if item, err := txn.Get([]byte(keyPrefix + base)); err == nil {
			var leaf any
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &leaf)
			}); err != nil {
				return nil, err
			}
			return leaf, nil
		} else if err != badger.ErrKeyNotFound {
			return nil, err
		}
	}

	prefix := keyPrefix
	if base != "" {
		prefix = keyPrefix + base + "/"
	}
	tree := make(map[string]any)
	it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(prefix)})
	defer it.Close()
	found := false
	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		rel := strings.TrimPrefix(string(item.Key()), prefix)
		var leaf any
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &leaf)
		}); err != nil {
			return nil, err
		}
		treeSet(tree, strings.Split(rel, "/"), leaf)
		found = true
	}
	if !found {
		return nil, nil
	}
	return tree, nil
}
