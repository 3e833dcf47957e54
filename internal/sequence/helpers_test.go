package sequence

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"testing"
	"time"

	"seehuhn.de/go/geom/rect"
)

var errFakeFetch = errors.New("fake fetch failed")

// taggedImage lets test drawers recover which locator they were given.
type taggedImage struct {
	image.Image
	locator string
}

type fakeFetcher struct {
	mu      sync.Mutex
	calls   map[string]int
	order   []string
	fail    map[string]bool
	gates   map[string]chan struct{}
	started chan string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		calls: make(map[string]int),
		fail:  make(map[string]bool),
		gates: make(map[string]chan struct{}),
	}
}

// block makes fetches of locator wait until the returned release is called.
func (f *fakeFetcher) block(locator string) (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[locator] = ch
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (f *fakeFetcher) setFail(locator string, fail bool) {
	f.mu.Lock()
	f.fail[locator] = fail
	f.mu.Unlock()
}

func (f *fakeFetcher) callCount(locator string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[locator]
}

func (f *fakeFetcher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.order)
}

func (f *fakeFetcher) Fetch(ctx context.Context, locator string) (image.Image, error) {
	f.mu.Lock()
	f.calls[locator]++
	f.order = append(f.order, locator)
	gate := f.gates[locator]
	started := f.started
	f.mu.Unlock()

	if started != nil {
		started <- locator
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	fail := f.fail[locator]
	f.mu.Unlock()
	if fail {
		return nil, errFakeFetch
	}
	return taggedImage{Image: image.NewGray(image.Rect(0, 0, 4, 2)), locator: locator}, nil
}

type recordingDrawer struct {
	mu    sync.Mutex
	drawn []string
	dst   []rect.Rect
}

func (d *recordingDrawer) DrawCoverFit(img image.Image, dst rect.Rect) {
	d.mu.Lock()
	defer d.mu.Unlock()
	loc := ""
	if t, ok := img.(taggedImage); ok {
		loc = t.locator
	}
	d.drawn = append(d.drawn, loc)
	d.dst = append(d.dst, dst)
}

func (d *recordingDrawer) draws() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.drawn...)
}

type fakeViewport struct {
	mu       sync.Mutex
	distance float64
	resize   []func()
}

func (v *fakeViewport) Rect() rect.Rect { return rect.Rect{URx: 160, URy: 90} }

func (v *fakeViewport) ScrollableDistance() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.distance
}

func (v *fakeViewport) OnResize(fn func()) func() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.resize = append(v.resize, fn)
	return func() {}
}

func (v *fakeViewport) fireResize() {
	v.mu.Lock()
	fns := append([]func(){}, v.resize...)
	v.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

type fakeScroll struct {
	mu   sync.Mutex
	fns  []func(float64)
	subs int
}

func (s *fakeScroll) OnScroll(fn func(float64)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fns = append(s.fns, fn)
	s.subs++
	return func() {
		s.mu.Lock()
		s.subs--
		s.fns = nil
		s.mu.Unlock()
	}
}

func (s *fakeScroll) scrollTo(offset float64) {
	s.mu.Lock()
	fns := append([]func(float64){}, s.fns...)
	s.mu.Unlock()
	for _, fn := range fns {
		fn(offset)
	}
}

func (s *fakeScroll) subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subs
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) listen(ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) snapshot() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

func (l *eventLog) count(kind EventKind) int {
	n := 0
	for _, ev := range l.snapshot() {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func frameLocators(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("frame-%03d.png", i)
	}
	return out
}

// readyStore returns a store of n frames where exactly the given indices
// are Ready.
func readyStore(t *testing.T, n int, ready ...int) *Store {
	t.Helper()
	s := NewStore(context.Background(), frameLocators(n), newFakeFetcher(), StoreHooks{})
	t.Cleanup(s.Close)
	for _, i := range ready {
		if _, err := s.Request(i).Wait(context.Background()); err != nil {
			t.Fatalf("load frame %d: %v", i, err)
		}
	}
	return s
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func waitDone(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion")
	}
}
