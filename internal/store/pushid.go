package store

import (
	"crypto/rand"
	"sync"
	"time"
)

// Push keys are 20 characters: 8 encoding the millisecond timestamp, 12 of
// randomness. The alphabet is byte-ordered so lexicographic order matches
// chronological order, and the random suffix is incremented when two keys
// land in the same millisecond so order stays total.
const pushAlphabet = "-0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ_abcdefghijklmnopqrstuvwxyz"

type pushIDGenerator struct {
	mu       sync.Mutex
	now      func() time.Time
	lastMs   int64
	lastRand [12]int
}

func newPushIDGenerator(now func() time.Time) *pushIDGenerator {
	if now == nil {
		now = time.Now
	}
	return &pushIDGenerator{now: now}
}

func (g *pushIDGenerator) next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms == g.lastMs {
		// Same millisecond: bump the previous random part by one.
		for i := 11; i >= 0; i-- {
			g.lastRand[i]++
			if g.lastRand[i] < 64 {
				break
			}
			g.lastRand[i] = 0
		}
	} else {
		var buf [12]byte
		_, _ = rand.Read(buf[:])
		for i := range g.lastRand {
			g.lastRand[i] = int(buf[i] % 64)
		}
		g.lastMs = ms
	}

	var id [20]byte
	t := ms
	for i := 7; i >= 0; i-- {
		id[i] = pushAlphabet[t%64]
		t /= 64
	}
	for i, r := range g.lastRand {
		id[8+i] = pushAlphabet[r]
	}
	return string(id[:])
}
