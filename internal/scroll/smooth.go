package scroll

import (
	"sync"
	"time"

	"github.com/fogleman/ease"
)

// DefaultDuration is how long a smooth scroll takes to reach its target.
const DefaultDuration = 1200 * time.Millisecond

// SmoothOptions configures a Smooth source.
type SmoothOptions struct {
	// Duration of one eased scroll. Defaults to DefaultDuration.
	Duration time.Duration
	// Easing maps elapsed fraction [0,1] to travelled fraction. Defaults to
	// ease.OutExpo.
	Easing func(t float64) float64
	// Min and Max bound the target offset when Max > Min.
	Min, Max float64
}

// Smooth eases the reported offset towards the last requested target. It
// only moves when Tick is called.
type Smooth struct {
	subs     subscribers
	duration time.Duration
	easing   func(float64) float64
	min, max float64

	mu        sync.Mutex
	current   float64
	from      float64
	target    float64
	start     time.Time
	animating bool
}

// NewSmooth returns a Smooth source at offset 0.
func NewSmooth(opts SmoothOptions) *Smooth {
	if opts.Duration <= 0 {
		opts.Duration = DefaultDuration
	}
	if opts.Easing == nil {
		opts.Easing = ease.OutExpo
	}
	return &Smooth{
		duration: opts.Duration,
		easing:   opts.Easing,
		min:      opts.Min,
		max:      opts.Max,
	}
}

// OnScroll registers fn and returns a function removing it.
func (s *Smooth) OnScroll(fn func(offset float64)) (cancel func()) {
	return s.subs.add(fn)
}

// ScrollTo starts an eased scroll from the current offset to target. The
// animation clock starts at the next Tick.
func (s *Smooth) ScrollTo(target float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retargetLocked(target)
}

// ScrollBy retargets relative to the current target, so consecutive wheel
// deltas accumulate.
func (s *Smooth) ScrollBy(delta float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retargetLocked(s.target + delta)
}

func (s *Smooth) retargetLocked(target float64) {
	if s.max > s.min {
		target = min(max(target, s.min), s.max)
	}
	s.from = s.current
	s.target = target
	s.start = time.Time{}
	s.animating = true
}

// Tick advances the animation to now and notifies subscribers when the
// offset moved.
func (s *Smooth) Tick(now time.Time) {
	s.mu.Lock()
	if !s.animating {
		s.mu.Unlock()
		return
	}
	if s.start.IsZero() {
		s.start = now
	}
	t := float64(now.Sub(s.start)) / float64(s.duration)
	if t >= 1 {
		t = 1
		s.animating = false
	}
	s.current = s.from + (s.target-s.from)*s.easing(t)
	if !s.animating {
		s.current = s.target
	}
	offset := s.current
	s.mu.Unlock()

	s.subs.notify(offset)
}

// Offset returns the current eased offset.
func (s *Smooth) Offset() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Target returns the offset the animation is heading to.
func (s *Smooth) Target() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// Animating reports whether a scroll is in progress.
func (s *Smooth) Animating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.animating
}
