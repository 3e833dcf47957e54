package sequence

import (
	"slices"
	"sync"
	"testing"
	"time"
)

type countingRecorder struct {
	mu                                        sync.Mutex
	loaded, failures, draws, suppressed, tier int
	ready                                     int
}

func (r *countingRecorder) IncFramesLoaded() { r.mu.Lock(); r.loaded++; r.mu.Unlock() }
func (r *countingRecorder) IncLoadFailures() { r.mu.Lock(); r.failures++; r.mu.Unlock() }
func (r *countingRecorder) SetFramesReady(n int) {
	r.mu.Lock()
	r.ready = n
	r.mu.Unlock()
}
func (r *countingRecorder) ObserveTier(string, time.Duration) { r.mu.Lock(); r.tier++; r.mu.Unlock() }
func (r *countingRecorder) IncDraws()                         { r.mu.Lock(); r.draws++; r.mu.Unlock() }
func (r *countingRecorder) IncRedrawsSuppressed()             { r.mu.Lock(); r.suppressed++; r.mu.Unlock() }

func TestGate_locked_draws_only_frame_zero(t *testing.T) {
	s := readyStore(t, 10, 5, 9)
	d := &recordingDrawer{}
	g := NewGate(s, d, &fakeViewport{}, nil)

	g.SetProgress(1)
	g.Evaluate()
	if got := d.draws(); len(got) != 0 {
		t.Fatalf("locked gate without frame 0 drew %v", got)
	}

	if _, err := s.Request(0).Wait(t.Context()); err != nil {
		t.Fatal(err)
	}
	g.Evaluate()
	g.SetProgress(0.7)
	want := []string{"frame-000.png"}
	if got := d.draws(); !slices.Equal(got, want) {
		t.Errorf("draws = %v, want %v", got, want)
	}
	st := g.State()
	if !st.Locked || st.Cursor != 0 || st.Target != 0 {
		t.Errorf("state = %+v", st)
	}
}

func TestGate_Unlock_catches_up_with_progress(t *testing.T) {
	s := readyStore(t, 10, 0, 8)
	d := &recordingDrawer{}
	g := NewGate(s, d, &fakeViewport{}, nil)

	g.Evaluate()
	g.SetProgress(1)
	if !g.Unlock() {
		t.Fatal("first Unlock should report the transition")
	}
	if g.Unlock() {
		t.Error("second Unlock should be a no-op")
	}

	want := []string{"frame-000.png", "frame-008.png"}
	if got := d.draws(); !slices.Equal(got, want) {
		t.Errorf("draws = %v, want %v", got, want)
	}
	if st := g.State(); st.Locked || st.Target != 9 || st.Cursor != 8 {
		t.Errorf("state = %+v, want unlocked target 9 cursor 8", st)
	}
}

func TestGate_suppresses_redraw_of_same_frame(t *testing.T) {
	s := readyStore(t, 100, 0, 8)
	d := &recordingDrawer{}
	rec := &countingRecorder{}
	g := NewGate(s, d, &fakeViewport{}, rec)
	g.Unlock()

	// Targets 1..4 all resolve to frame 0 which is already drawn.
	for _, p := range []float64{0.01, 0.02, 0.03, 0.04} {
		g.SetProgress(p)
	}
	g.SetProgress(0.08)

	want := []string{"frame-000.png", "frame-008.png"}
	if got := d.draws(); !slices.Equal(got, want) {
		t.Errorf("draws = %v, want %v", got, want)
	}
	if rec.draws != 2 || rec.suppressed != 4 {
		t.Errorf("draws=%d suppressed=%d, want 2 and 4", rec.draws, rec.suppressed)
	}
}

func TestGate_better_frame_arrival_redraws(t *testing.T) {
	s := readyStore(t, 100, 0)
	d := &recordingDrawer{}
	g := NewGate(s, d, &fakeViewport{}, nil)
	g.Unlock()
	g.SetProgress(0.5)

	if _, err := s.Request(48).Wait(t.Context()); err != nil {
		t.Fatal(err)
	}
	g.Evaluate()

	want := []string{"frame-000.png", "frame-048.png"}
	if got := d.draws(); !slices.Equal(got, want) {
		t.Errorf("draws = %v, want %v", got, want)
	}
}

func TestGate_Invalidate_redraws_current_frame(t *testing.T) {
	s := readyStore(t, 4, 0)
	d := &recordingDrawer{}
	g := NewGate(s, d, &fakeViewport{}, nil)

	g.Evaluate()
	g.Evaluate()
	g.Invalidate()

	want := []string{"frame-000.png", "frame-000.png"}
	if got := d.draws(); !slices.Equal(got, want) {
		t.Errorf("draws = %v, want %v", got, want)
	}
	if d.dst[1].URx != 160 || d.dst[1].URy != 90 {
		t.Errorf("drawn into %+v, want the viewport rectangle", d.dst[1])
	}
}

func TestGate_Destroy_stops_drawing(t *testing.T) {
	s := readyStore(t, 4, 0, 3)
	d := &recordingDrawer{}
	g := NewGate(s, d, &fakeViewport{}, nil)

	g.Destroy()
	g.Evaluate()
	g.SetProgress(1)
	g.Invalidate()
	if g.Unlock() {
		t.Error("Unlock after Destroy should report false")
	}
	if got := d.draws(); len(got) != 0 {
		t.Errorf("destroyed gate drew %v", got)
	}
}
