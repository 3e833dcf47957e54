package canvas

import (
	"fmt"
	"sync"

	"seehuhn.de/go/geom/rect"
)

// Viewport is the visible area a sequence is drawn into, tracked over a
// taller content region. The scrollable distance is the content height
// minus the viewport height.
type Viewport struct {
	mu            sync.RWMutex
	width, height float64
	contentHeight float64

	listenersMu sync.Mutex
	listeners   map[int]func()
	next        int
}

// NewViewport returns a viewport of the given size over contentHeight.
func NewViewport(width, height, contentHeight float64) (*Viewport, error) {
	if err := validateSize(width, height, contentHeight); err != nil {
		return nil, err
	}
	return &Viewport{
		width:         width,
		height:        height,
		contentHeight: contentHeight,
		listeners:     make(map[int]func()),
	}, nil
}

func validateSize(width, height, contentHeight float64) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("viewport %gx%g: dimensions must be positive", width, height)
	}
	if contentHeight < 0 {
		return fmt.Errorf("content height %g: must not be negative", contentHeight)
	}
	return nil
}

// Rect returns the destination rectangle at the origin.
func (v *Viewport) Rect() rect.Rect {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return rect.Rect{URx: v.width, URy: v.height}
}

// ScrollableDistance returns contentHeight - height. It is zero or
// negative when the content fits in the viewport.
func (v *Viewport) ScrollableDistance() float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.contentHeight - v.height
}

// Size returns the viewport width and height.
func (v *Viewport) Size() (width, height float64) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.width, v.height
}

// OnResize registers fn to run after every successful Resize, in
// registration order.
func (v *Viewport) OnResize(fn func()) (cancel func()) {
	v.listenersMu.Lock()
	defer v.listenersMu.Unlock()
	id := v.next
	v.next++
	v.listeners[id] = fn
	return func() {
		v.listenersMu.Lock()
		delete(v.listeners, id)
		v.listenersMu.Unlock()
	}
}

// Resize changes the geometry and notifies resize listeners.
func (v *Viewport) Resize(width, height, contentHeight float64) error {
	if err := validateSize(width, height, contentHeight); err != nil {
		return err
	}
	v.mu.Lock()
	v.width, v.height, v.contentHeight = width, height, contentHeight
	v.mu.Unlock()

	v.listenersMu.Lock()
	fns := make([]func(), 0, len(v.listeners))
	for i := 0; i < v.next; i++ {
		if fn, ok := v.listeners[i]; ok {
			fns = append(fns, fn)
		}
	}
	v.listenersMu.Unlock()
	for _, fn := range fns {
		fn()
	}
	return nil
}
