// Package keyguard marks keys as busy so that a second operation on the same
// key is refused instead of interleaved.
package keyguard

import "sync"

type Guard struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

func New() *Guard {
	return &Guard{busy: make(map[string]struct{})}
}

// TryAcquire marks key as busy. It returns false if key is already busy.
func (g *Guard) TryAcquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.busy[key]; ok {
		return false
	}
	g.busy[key] = struct{}{}
	return true
}

func (g *Guard) Release(key string) {
	g.mu.Lock()
	delete(g.busy, key)
	g.mu.Unlock()
}

func (g *Guard) Busy(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	_, ok := g.busy[key]
	return ok
}
