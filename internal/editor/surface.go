package editor

import (
	"sync"

	"github.com/a3tai/mcp-form-overlay/internal/geometry"
)

// Surface is the top-level input surface that pointer move and release
// events are delivered to. Gestures subscribe here rather than on the box
// they started on, so a pointer that leaves the box mid-drag is still
// tracked.
//
// Every Subscribe returns the one function that removes exactly the handlers
// it registered.
type Surface struct {
	mu       sync.RWMutex
	handlers map[int]Listener
	nextID   int
}

// Listener receives surface events. Either field may be nil.
type Listener struct {
	Move func(geometry.Point)
	Up   func()
}

// NewSurface creates an empty surface.
func NewSurface() *Surface {
	return &Surface{handlers: make(map[int]Listener)}
}

// Subscribe registers l and returns its unsubscribe function. Calling the
// returned function more than once is harmless.
func (s *Surface) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.handlers[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.handlers, id)
		s.mu.Unlock()
	}
}

// Move delivers a pointer-move event to every listener.
func (s *Surface) Move(p geometry.Point) {
	for _, l := range s.snapshot() {
		if l.Move != nil {
			l.Move(p)
		}
	}
}

// Up delivers a pointer-up event to every listener.
func (s *Surface) Up() {
	for _, l := range s.snapshot() {
		if l.Up != nil {
			l.Up()
		}
	}
}

// Count returns the number of live listeners.
func (s *Surface) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handlers)
}

// snapshot copies the listeners so handlers may unsubscribe while being called.
func (s *Surface) snapshot() []Listener {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Listener, 0, len(s.handlers))
	for _, l := range s.handlers {
		out = append(out, l)
	}
	return out
}
