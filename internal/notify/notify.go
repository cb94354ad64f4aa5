// Package notify is a small observer list used to publish state changes
// without the publisher knowing who listens.
package notify

import "sync"

type listener[T any] struct {
	id int
	fn func(T)
}

type Emitter[T any] struct {
	mu        sync.Mutex
	next      int
	listeners []listener[T]
}

// Subscribe registers fn and returns a function removing it. Listeners are
// called synchronously in subscription order.
func (e *Emitter[T]) Subscribe(fn func(T)) func() {
	if e == nil || fn == nil {
		return func() {}
	}
	e.mu.Lock()
	id := e.next
	e.next++
	e.listeners = append(e.listeners, listener[T]{id: id, fn: fn})
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			for i, l := range e.listeners {
				if l.id == id {
					e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Emit calls every listener with value. Listeners may subscribe or
// unsubscribe from inside the callback.
func (e *Emitter[T]) Emit(value T) {
	if e == nil {
		return
	}
	e.mu.Lock()
	snapshot := append([]listener[T](nil), e.listeners...)
	e.mu.Unlock()
	for _, l := range snapshot {
		l.fn(value)
	}
}

func (e *Emitter[T]) Len() int {
	if e == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners)
}
