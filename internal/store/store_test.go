package store

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

// The conformance suite runs against every backend: the Store contract is
// what the forum core depends on, so both implementations must agree.

func newMemory(t *testing.T) Store {
	t.Helper()
	s := NewMemoryStore()
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newBadger(t *testing.T) Store {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	s := NewBadgerStore(db)
	t.Cleanup(func() {
		_ = s.Close()
		_ = db.Close()
	})
	return s
}

func backends(t *testing.T) map[string]func(*testing.T) Store {
	t.Helper()
	return map[string]func(*testing.T) Store{
		"memory": newMemory,
		"badger": newBadger,
	}
}

func recv(t *testing.T, sub *Subscription) Snapshot {
	t.Helper()
	select {
	case snap := <-sub.C:
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return Snapshot{}
	}
}

func asMap(t *testing.T, v any) map[string]any {
	t.Helper()
	m, ok := v.(map[string]any)
	require.True(t, ok, "expected map, got %T", v)
	return m
}

func TestSetAndGet(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			require.NoError(t, s.Set(ctx, "forum/tt001/p1", map[string]any{
				"content": "Great film!",
				"edited":  false,
			}))

			v, err := s.Get(ctx, "forum/tt001/p1")
			require.NoError(t, err)
			m := asMap(t, v)
			require.Equal(t, "Great film!", m["content"])
			require.Equal(t, false, m["edited"])

			// Reading an interior node returns the nested subtree.
			v, err = s.Get(ctx, "forum")
			require.NoError(t, err)
			outer := asMap(t, v)
			inner := asMap(t, outer["tt001"])
			require.Contains(t, inner, "p1")

			// An absent path is nil, not an error.
			v, err = s.Get(ctx, "forum/tt999")
			require.NoError(t, err)
			require.Nil(t, v)
		})
	}
}

func TestSetReplacesSubtree(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			require.NoError(t, s.Set(ctx, "forum/tt001/p1", map[string]any{
				"content": "old",
				"replies": map[string]any{"r1": map[string]any{"content": "hi"}},
			}))
			require.NoError(t, s.Set(ctx, "forum/tt001/p1", map[string]any{
				"content": "new",
			}))

			v, err := s.Get(ctx, "forum/tt001/p1")
			require.NoError(t, err)
			m := asMap(t, v)
			require.Equal(t, "new", m["content"])
			require.NotContains(t, m, "replies", "set must replace, not merge")
		})
	}
}

func TestUpdateMultiPath(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			require.NoError(t, s.Set(ctx, "forum/tt001/p1", map[string]any{"authorName": "old"}))
			require.NoError(t, s.Set(ctx, "forum/tt002/p2", map[string]any{"authorName": "old"}))

			require.NoError(t, s.Update(ctx, map[string]any{
				"forum/tt001/p1/authorName": "new",
				"forum/tt002/p2/authorName": "new",
			}))

			for _, path := range []string{"forum/tt001/p1", "forum/tt002/p2"} {
				v, err := s.Get(ctx, path)
				require.NoError(t, err)
				require.Equal(t, "new", asMap(t, v)["authorName"])
			}
		})
	}
}

func TestRemoveCascades(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			require.NoError(t, s.Set(ctx, "forum/tt001/p1", map[string]any{
				"content": "post",
				"replies": map[string]any{
					"r1": map[string]any{"content": "reply one"},
					"r2": map[string]any{"content": "reply two"},
				},
			}))

			require.NoError(t, s.Remove(ctx, "forum/tt001/p1"))

			v, err := s.Get(ctx, "forum/tt001/p1")
			require.NoError(t, err)
			require.Nil(t, v)

			v, err = s.Get(ctx, "forum/tt001/p1/replies/r1")
			require.NoError(t, err)
			require.Nil(t, v, "nested replies must be gone with the post")
		})
	}
}

func TestPushAssignsOrderedKeys(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			var keys []string
			for i := 0; i < 50; i++ {
				key, err := s.Push(ctx, "forum/tt001", map[string]any{"n": i})
				require.NoError(t, err)
				require.Len(t, key, 20)
				keys = append(keys, key)
			}

			for i := 1; i < len(keys); i++ {
				require.Greater(t, keys[i], keys[i-1], "push keys must sort chronologically")
			}

			v, err := s.Get(ctx, "forum/tt001")
			require.NoError(t, err)
			require.Len(t, asMap(t, v), 50)
		})
	}
}

func TestServerTimestampResolved(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			before := time.Now().UnixMilli()
			require.NoError(t, s.Set(ctx, "forum/tt001/p1", map[string]any{
				"createdAt": ServerTimestamp,
			}))
			after := time.Now().UnixMilli()

			v, err := s.Get(ctx, "forum/tt001/p1")
			require.NoError(t, err)
			got := asMap(t, v)["createdAt"]

			var ms int64
			switch n := got.(type) {
			case int64:
				ms = n
			case float64:
				ms = int64(n)
			default:
				t.Fatalf("timestamp came back as %T", got)
			}
			require.GreaterOrEqual(t, ms, before)
			require.LessOrEqual(t, ms, after)
		})
	}
}

func TestSubscribeDeliversFullReplace(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			sub := s.Subscribe("forum/tt001")
			defer sub.Close()

			// Initial snapshot: nothing there yet.
			snap := recv(t, sub)
			require.Nil(t, snap.Value)

			require.NoError(t, s.Set(ctx, "forum/tt001/p1", map[string]any{"content": "one"}))
			snap = recv(t, sub)
			require.Len(t, asMap(t, snap.Value), 1)

			require.NoError(t, s.Set(ctx, "forum/tt001/p2", map[string]any{"content": "two"}))
			snap = recv(t, sub)
			require.Len(t, asMap(t, snap.Value), 2, "each delivery is the whole subtree")

			// A write outside the watched path is not delivered.
			require.NoError(t, s.Set(ctx, "forum/tt002/p9", map[string]any{"content": "other"}))
			select {
			case snap := <-sub.C:
				t.Fatalf("unexpected delivery for foreign path: %+v", snap)
			case <-time.After(50 * time.Millisecond):
			}
		})
	}
}

func TestSubscribeAncestorSeesDescendantWrites(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			sub := s.Subscribe("forum")
			defer sub.Close()
			recv(t, sub) // initial

			require.NoError(t, s.Set(ctx, "forum/tt001/p1/authorName", "Uma"))
			snap := recv(t, sub)
			tree := asMap(t, snap.Value)
			post := asMap(t, asMap(t, tree["tt001"])["p1"])
			require.Equal(t, "Uma", post["authorName"])
		})
	}
}

func TestSubscriptionCloseStopsDeliveries(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			sub := s.Subscribe("forum/tt001")
			recv(t, sub)
			sub.Close()
			sub.Close() // idempotent

			require.NoError(t, s.Set(ctx, "forum/tt001/p1", map[string]any{"content": "late"}))
			select {
			case snap, ok := <-sub.C:
				if ok {
					t.Fatalf("delivery after close: %+v", snap)
				}
			case <-time.After(50 * time.Millisecond):
			}
		})
	}
}

func TestSnapshotsAreDetached(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			require.NoError(t, s.Set(ctx, "forum/tt001/p1", map[string]any{"content": "original"}))

			v, err := s.Get(ctx, "forum/tt001/p1")
			require.NoError(t, err)
			asMap(t, v)["content"] = "mutated by caller"

			v2, err := s.Get(ctx, "forum/tt001/p1")
			require.NoError(t, err)
			require.Equal(t, "original", asMap(t, v2)["content"])
		})
	}
}

func TestMemoryStoreClosed(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Close())

	_, err := s.Get(context.Background(), "forum")
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, s.Set(context.Background(), "x", "y"), ErrClosed)
}
