// Package singleflight suppresses duplicate in-flight fetches: when
// several callers miss the cache for the same key at once, only one of
// them runs the fetch and the rest wait for its result.
package singleflight

import "sync"

// Group namespaces units of work by key with duplicate suppression.
type Group[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]*call[V]
}

type call[V any] struct {
	wg sync.WaitGroup

	// Written once before wg.Done, read only after wg.Wait.
	val V
	err error

	dups int
}

// Do executes fn, ensuring only one execution is in flight for key at
// a time. Duplicate callers wait for the original and receive the same
// result; shared reports whether the result was given to more than one
// caller.
func (g *Group[K, V]) Do(key K, fn func() (V, error)) (v V, err error, shared bool) {
	g.mu.Lock()
	if g.m == nil {
		g.m = make(map[K]*call[V])
	}
	if c, ok := g.m[key]; ok {
		c.dups++
		g.mu.Unlock()
		c.wg.Wait()
		return c.val, c.err, true
	}
	c := new(call[V])
	c.wg.Add(1)
	g.m[key] = c
	g.mu.Unlock()

	c.val, c.err = fn()
	c.wg.Done()

	g.mu.Lock()
	delete(g.m, key)
	shared = c.dups > 0
	g.mu.Unlock()

	return c.val, c.err, shared
}

// Forget drops the in-flight record for key so the next Do runs fn
// again instead of waiting.
func (g *Group[K, V]) Forget(key K) {
	g.mu.Lock()
	delete(g.m, key)
	g.mu.Unlock()
}

// InFlight returns the number of keys currently being fetched.
func (g *Group[K, V]) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.m)
}
