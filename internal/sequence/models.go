package sequence

import (
	"context"
	"image"
	"time"

	"seehuhn.de/go/geom/rect"
)

// FrameState is the load state of a single frame index in the Store.
type FrameState int

// A frame index moves NotRequested -> Pending -> Ready. A failed load puts
// the index back to NotRequested so it can be requested again explicitly.
const (
	NotRequested FrameState = iota
	Pending
	Ready
)

func (s FrameState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	default:
		return "not_requested"
	}
}

// Frame is a decoded frame handle. Image is immutable once the frame is Ready.
type Frame struct {
	Index int
	Image image.Image
}

// LoadingProgress is the answer to Engine.LoadingProgress.
type LoadingProgress struct {
	Loaded     int     `json:"loaded"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// State is a snapshot of the render side of the engine.
type State struct {
	Locked   bool    `json:"locked"`
	Cursor   int     `json:"cursor"`
	Progress float64 `json:"progress"`
	Target   int     `json:"target"`
}

// Fetcher fetches and decodes the resource behind a frame locator.
// Implementations must return a non-nil error on failure and should stop
// work when ctx is cancelled.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) (image.Image, error)
}

// Drawer blits a frame onto a backing surface. DrawCoverFit must clear the
// destination region before drawing img scaled to cover dst.
type Drawer interface {
	DrawCoverFit(img image.Image, dst rect.Rect)
}

// Viewport supplies the geometry the engine renders into and scrolls over.
type Viewport interface {
	// Rect is the destination rectangle for drawing.
	Rect() rect.Rect
	// ScrollableDistance is the total distance the tracked region can be
	// scrolled. It may be zero or negative for degenerate layouts.
	ScrollableDistance() float64
	// OnResize registers fn to be called after every resize and returns a
	// function that removes the registration.
	OnResize(fn func()) (cancel func())
}

// ScrollSource is the passive scroll-signal variant: it pushes scroll
// offsets, relative to the tracked region's origin, to subscribers.
type ScrollSource interface {
	OnScroll(fn func(offset float64)) (cancel func())
}

// AnimationLoop is the driven scroll-signal variant. The engine calls Tick
// once per animation frame for as long as the engine is running.
type AnimationLoop interface {
	ScrollSource
	Tick(now time.Time)
}

// Recorder receives engine measurements. All methods must be safe for
// concurrent use.
type Recorder interface {
	IncFramesLoaded()
	IncLoadFailures()
	SetFramesReady(n int)
	ObserveTier(tier string, d time.Duration)
	IncDraws()
	IncRedrawsSuppressed()
}
