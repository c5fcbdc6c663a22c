// Package locks provides process-wide mutual exclusion keyed by an
// arbitrary string, used to serialize the webhook handler and the
// reconciliation sweep when both reach for the same payment.
package locks

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

var (
	mu      sync.Mutex
	entries = make(map[string]*entry)
)

// Acquire blocks until the lock for key is held and returns the release
// function. Release is safe to call exactly once; defer it.
func Acquire(key string) func() {
	mu.Lock()
	e, ok := entries[key]
	if !ok {
		e = &entry{}
		entries[key] = e
	}
	e.refs++
	mu.Unlock()

	e.mu.Lock()
	return func() { release(key, e) }
}

// TryAcquire attempts the lock without blocking. The sweep uses this to
// skip items a webhook is already settling instead of queueing behind it.
func TryAcquire(key string) (func(), bool) {
	mu.Lock()
	e, ok := entries[key]
	if !ok {
		e = &entry{}
		entries[key] = e
	}
	e.refs++
	mu.Unlock()

	if !e.mu.TryLock() {
		mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(entries, key)
		}
		mu.Unlock()
		return nil, false
	}
	return func() { release(key, e) }, true
}

func release(key string, e *entry) {
	e.mu.Unlock()
	mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(entries, key)
	}
	mu.Unlock()
}
