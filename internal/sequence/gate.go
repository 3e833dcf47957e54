package sequence

import "sync"

// Gate decides on every progress update or frame arrival whether a redraw
// is warranted and performs it through the Drawer.
//
// While locked only frame 0 is ever drawn. Once unlocked the gate draws the
// frame resolved for the current progress, skipping the draw when it is the
// frame already on screen.
type Gate struct {
	store    *Store
	drawer   Drawer
	viewport Viewport
	recorder Recorder

	mu        sync.Mutex
	unlocked  bool
	progress  float64
	cursor    int
	destroyed bool
}

// NewGate returns a locked gate with nothing drawn.
func NewGate(store *Store, drawer Drawer, viewport Viewport, recorder Recorder) *Gate {
	return &Gate{
		store:    store,
		drawer:   drawer,
		viewport: viewport,
		recorder: recorder,
		cursor:   -1,
	}
}

// SetProgress records p and re-evaluates the target frame.
func (g *Gate) SetProgress(p float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.progress = p
	g.evaluateLocked()
}

// Evaluate re-evaluates the current target, e.g. after a frame arrived.
func (g *Gate) Evaluate() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.evaluateLocked()
}

// Invalidate forgets what is on screen and redraws, e.g. after a resize.
func (g *Gate) Invalidate() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cursor = -1
	g.evaluateLocked()
}

// Unlock switches the gate to scroll-driven rendering and catches up with
// the recorded progress. It reports whether this call made the transition.
func (g *Gate) Unlock() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.unlocked || g.destroyed {
		return false
	}
	g.unlocked = true
	g.evaluateLocked()
	return true
}

// State returns a snapshot of the gate.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return State{
		Locked:   !g.unlocked,
		Cursor:   g.cursor,
		Progress: g.progress,
		Target:   g.targetLocked(),
	}
}

// Destroy stops all further drawing.
func (g *Gate) Destroy() {
	g.mu.Lock()
	g.destroyed = true
	g.mu.Unlock()
}

func (g *Gate) targetLocked() int {
	if !g.unlocked {
		return 0
	}
	return TargetIndex(g.progress, g.store.Total())
}

func (g *Gate) evaluateLocked() {
	if g.destroyed {
		return
	}

	var (
		f  Frame
		ok bool
	)
	if g.unlocked {
		f, ok = Resolve(g.store, g.targetLocked())
	} else {
		f, ok = g.store.Get(0)
	}
	if !ok {
		return
	}
	if f.Index == g.cursor {
		if g.recorder != nil {
			g.recorder.IncRedrawsSuppressed()
		}
		return
	}

	g.drawer.DrawCoverFit(f.Image, g.viewport.Rect())
	g.cursor = f.Index
	if g.recorder != nil {
		g.recorder.IncDraws()
	}
}
