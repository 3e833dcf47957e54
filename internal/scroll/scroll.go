// Package scroll provides scroll-signal sources: Native pushes offsets as
// they arrive, Smooth eases towards a target and must be ticked once per
// animation frame.
package scroll

import "sync"

// subscribers is a set of offset callbacks called in registration order.
type subscribers struct {
	mu   sync.Mutex
	fns  map[int]func(float64)
	next int
}

func (s *subscribers) add(fn func(float64)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = make(map[int]func(float64))
	}
	id := s.next
	s.next++
	s.fns[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.fns, id)
		s.mu.Unlock()
	}
}

func (s *subscribers) notify(offset float64) {
	s.mu.Lock()
	fns := make([]func(float64), 0, len(s.fns))
	for i := 0; i < s.next; i++ {
		if fn, ok := s.fns[i]; ok {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(offset)
	}
}

// Native reports every offset immediately, like a page's scroll event.
type Native struct {
	subs subscribers

	mu     sync.Mutex
	offset float64
}

// NewNative returns a Native source at offset 0.
func NewNative() *Native {
	return &Native{}
}

// OnScroll registers fn and returns a function removing it.
func (n *Native) OnScroll(fn func(offset float64)) (cancel func()) {
	return n.subs.add(fn)
}

// ScrollTo moves to offset and notifies subscribers.
func (n *Native) ScrollTo(offset float64) {
	n.mu.Lock()
	n.offset = offset
	n.mu.Unlock()
	n.subs.notify(offset)
}

// ScrollBy moves by delta and notifies subscribers.
func (n *Native) ScrollBy(delta float64) {
	n.mu.Lock()
	n.offset += delta
	offset := n.offset
	n.mu.Unlock()
	n.subs.notify(offset)
}

// Offset returns the current offset.
func (n *Native) Offset() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.offset
}
