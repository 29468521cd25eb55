package tree

// Subscription identifies a registered listener.
type Subscription uint64

type listenerEntry[T any] struct {
	id Subscription
	fn func(T)
}

// Listeners is an ordered list of callbacks invoked synchronously on the owner goroutine.
// The zero value is ready to use.
type Listeners[T any] struct {
	next    Subscription
	entries []listenerEntry[T]
}

// Add registers fn and returns its subscription.
func (l *Listeners[T]) Add(fn func(T)) Subscription {
	l.next++
	l.entries = append(l.entries, listenerEntry[T]{id: l.next, fn: fn})
	return l.next
}

// Remove unregisters a subscription. It reports false if it was not registered.
func (l *Listeners[T]) Remove(sub Subscription) bool {
	for i, e := range l.entries {
		if e.id == sub {
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of registered listeners.
func (l *Listeners[T]) Len() int {
	return len(l.entries)
}

// Emit calls every listener in registration order. Listeners added or removed during
// emission take effect on the next call.
func (l *Listeners[T]) Emit(v T) {
	entries := l.entries
	for _, e := range entries {
		e.fn(v)
	}
}
