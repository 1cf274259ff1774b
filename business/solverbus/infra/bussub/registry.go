package bussub

import (
	"fmt"
	"sync"

	"github.com/fd1az/intents-agent/internal/apperror"
)

// listenerEntry guards one callback. The entry mutex is held while the
// callback runs, so Remove can wait out an in-flight invocation before the
// listener is discarded.
type listenerEntry[E any] struct {
	mu      sync.Mutex
	fn      func(E)
	removed bool
}

// registry maps correlation keys to at most one listener each.
type registry[E any] struct {
	mu      sync.RWMutex
	entries map[string]*listenerEntry[E]
}

func newRegistry[E any]() *registry[E] {
	return &registry[E]{
		entries: make(map[string]*listenerEntry[E]),
	}
}

// Add registers fn under key. A second registration for a live key fails;
// the existing listener stays in place.
func (r *registry[E]) Add(key string, fn func(E)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[key]; exists {
		return apperror.New(apperror.CodeListenerConflict,
			apperror.WithContext(fmt.Sprintf("listener already registered for %q", key)))
	}

	r.entries[key] = &listenerEntry[E]{fn: fn}
	return nil
}

// Remove drops the listener for key. If the listener is being invoked at the
// time of the call, Remove blocks until that invocation returns; once Remove
// returns, the callback will never fire again.
func (r *registry[E]) Remove(key string) {
	r.mu.Lock()
	entry, ok := r.entries[key]
	if ok {
		delete(r.entries, key)
	}
	r.mu.Unlock()

	if !ok {
		return
	}

	entry.mu.Lock()
	entry.removed = true
	entry.mu.Unlock()
}

// Dispatch invokes the listener for key, if any, and reports whether a
// listener consumed the event. Invocations for the same key are serialized.
func (r *registry[E]) Dispatch(key string, event E) bool {
	r.mu.RLock()
	entry, ok := r.entries[key]
	r.mu.RUnlock()

	if !ok {
		return false
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.removed {
		return false
	}

	entry.fn(event)
	return true
}

// Keys returns a snapshot of the currently registered correlation keys.
func (r *registry[E]) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of live listeners.
func (r *registry[E]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
