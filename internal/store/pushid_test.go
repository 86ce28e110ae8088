package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPushIDSameMillisecondStaysOrdered(t *testing.T) {
	frozen := time.UnixMilli(1700000000000)
	g := newPushIDGenerator(func() time.Time { return frozen })

	seen := make(map[string]struct{})
	prev := ""
	for i := 0; i < 1000; i++ {
		id := g.next()
		require.Len(t, id, 20)
		require.Greater(t, id, prev, "ids within one millisecond must still increase")
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %q", id)
		seen[id] = struct{}{}
		prev = id
	}
}

func TestPushIDTimestampPrefixOrders(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	g := newPushIDGenerator(func() time.Time { return now })

	early := g.next()
	now = now.Add(5 * time.Millisecond)
	late := g.next()
	require.Greater(t, late, early)
	require.NotEqual(t, early[:8], late[:8], "timestamp prefix must differ across milliseconds")
}
