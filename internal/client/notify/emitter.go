// Package notify carries events between components and transient notices
// to the user.
package notify

import (
	"sync"
)

// Emitter fans a value out to subscribed handlers. Handlers run
// synchronously in subscription order; a panicking handler does not stop the
// others.
type Emitter[T any] struct {
	mu       sync.RWMutex
	next     int
	order    []int
	handlers map[int]func(T)
}

// Subscribe registers h and returns a function that removes it. Calling the
// returned function more than once is harmless.
func (e *Emitter[T]) Subscribe(h func(T)) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handlers == nil {
		e.handlers = map[int]func(T){}
	}
	id := e.next
	e.next++
	e.handlers[id] = h
	e.order = append(e.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			delete(e.handlers, id)
			for i, v := range e.order {
				if v == id {
					e.order = append(e.order[:i], e.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (e *Emitter[T]) Emit(v T) {
	e.mu.RLock()
	hs := make([]func(T), 0, len(e.order))
	for _, id := range e.order {
		hs = append(hs, e.handlers[id])
	}
	e.mu.RUnlock()

	for _, h := range hs {
		func() {
			defer func() { _ = recover() }()
			h(v)
		}()
	}
}

// Len returns the number of subscribed handlers.
func (e *Emitter[T]) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers)
}
