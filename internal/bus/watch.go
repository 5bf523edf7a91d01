package bus

import "sync"

// Watch is a single-slot, latest-wins coalescing channel: a producer calls
// Set repeatedly and only the most recent value is ever observed by a
// consumer calling Next. It is this module's stand-in for a Rust-style
// watch channel, which the standard library has no in-process equivalent
// of. Used by the bus command forwarder (pkg/session) so that a burst of
// rapid bus updates for one device collapses into a single device write.
type Watch[T any] struct {
	mu     sync.Mutex
	value  T
	hasNew bool
	wake   chan struct{}
}

// NewWatch returns a ready-to-use Watch with no pending value.
func NewWatch[T any]() *Watch[T] {
	return &Watch[T]{wake: make(chan struct{}, 1)}
}

// Set stores value as the latest one, overwriting any value not yet
// observed. Never blocks.
func (w *Watch[T]) Set(value T) {
	w.mu.Lock()
	w.value = value
	w.hasNew = true
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Changed returns a channel that receives a signal after Set; several Sets
// before the signal is taken collapse into one signal. Next does not clear
// the signal, so it can still fire after Next has already taken the value,
// in which case the following Next reports ok=false. Intended to be used in
// a select alongside other channels; call Next afterward to retrieve (and
// clear) the value.
func (w *Watch[T]) Changed() <-chan struct{} {
	return w.wake
}

// Next returns the latest pending value, if any, clearing the pending
// flag. ok is false if no value has arrived since the last Next.
func (w *Watch[T]) Next() (value T, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.hasNew {
		return value, false
	}
	w.hasNew = false
	return w.value, true
}
