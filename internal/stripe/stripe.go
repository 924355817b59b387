// Package stripe serializes work per key with a fixed set of mutexes.
//
// Keys that hash to the same stripe share a lock, so unrelated identities may
// occasionally wait on each other. Two callers with the same key never run
// concurrently.
package stripe

import (
	"hash/maphash"
	"sync"
)

// Count is the number of stripes.
const Count = 256

// Mutex holds Count stripes. The zero value is not usable; call New.
type Mutex struct {
	seed    maphash.Seed
	stripes [Count]sync.Mutex
}

func New() *Mutex {
	return &Mutex{seed: maphash.MakeSeed()}
}

// Lock acquires the stripe for key and returns its release function.
func (m *Mutex) Lock(key string) (unlock func()) {
	mu := &m.stripes[m.index(key)]
	mu.Lock()
	return mu.Unlock
}

func (m *Mutex) index(key string) int {
	if key == "" {
		return 0
	}
	return int(maphash.String(m.seed, key) % Count)
}
