package sequence

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var errNoImage = errors.New("fetcher returned no image")

// Load is a reference to a frame request. Every caller that requests an
// index while it is Pending receives the same *Load.
type Load struct {
	index int
	done  chan struct{}
	frame Frame
	err   error
}

func newLoad(index int) *Load {
	return &Load{index: index, done: make(chan struct{})}
}

func settledLoad(index int, f Frame, err error) *Load {
	l := &Load{index: index, done: make(chan struct{}), frame: f, err: err}
	close(l.done)
	return l
}

// Index returns the frame index this load is for.
func (l *Load) Index() int { return l.index }

// Done is closed once the load has settled.
func (l *Load) Done() <-chan struct{} { return l.done }

// Wait blocks until the load settles or ctx is done.
func (l *Load) Wait(ctx context.Context) (Frame, error) {
	select {
	case <-l.done:
		return l.frame, l.err
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

type entry struct {
	state FrameState
	frame Frame
	load  *Load
	err   error
}

// StoreHooks are called outside the store lock once the entry has changed
// state and before waiters on the Load are released. Loads that settle
// after Close do not call them.
type StoreHooks struct {
	OnLoaded func(f Frame, loaded, total int)
	OnFailed func(err *LoadError)
}

// Store maps frame indices to their load state and decoded frames. It
// allows at most one in-flight fetch per index. Ready frames are never
// evicted before Close.
type Store struct {
	fetcher  Fetcher
	locators []string
	hooks    StoreHooks

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	entries []entry
	ready   []int // ready indices in completion order
	closed  bool
}

// NewStore returns a store for the given locators. Fetches run under a
// context derived from ctx and are cancelled by Close.
func NewStore(ctx context.Context, locators []string, fetcher Fetcher, hooks StoreHooks) *Store {
	ctx, cancel := context.WithCancel(ctx)
	return &Store{
		fetcher:  fetcher,
		locators: append([]string(nil), locators...),
		hooks:    hooks,
		ctx:      ctx,
		cancel:   cancel,
		entries:  make([]entry, len(locators)),
	}
}

// Request returns the load for index. A Ready frame yields an already
// settled load without I/O; a Pending index yields the in-flight load;
// otherwise a new fetch is started.
func (s *Store) Request(index int) *Load {
	if index < 0 || index >= len(s.locators) {
		return settledLoad(index, Frame{}, fmt.Errorf("request %d of %d: %w", index, len(s.locators), ErrIndexOutOfRange))
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return settledLoad(index, Frame{}, ErrDestroyed)
	}
	e := &s.entries[index]
	switch e.state {
	case Ready:
		f := e.frame
		s.mu.Unlock()
		return settledLoad(index, f, nil)
	case Pending:
		l := e.load
		s.mu.Unlock()
		return l
	}
	l := newLoad(index)
	e.state = Pending
	e.load = l
	e.err = nil
	s.mu.Unlock()

	go s.fetch(l)
	return l
}

func (s *Store) fetch(l *Load) {
	locator := s.locators[l.index]
	img, err := s.fetcher.Fetch(s.ctx, locator)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		l.err = ErrDestroyed
		close(l.done)
		return
	}
	e := &s.entries[l.index]
	e.load = nil
	if err == nil && img == nil {
		err = errNoImage
	}
	if err != nil {
		loadErr := &LoadError{Index: l.index, Locator: locator, Err: err}
		e.state = NotRequested
		e.err = loadErr
		s.mu.Unlock()

		if s.hooks.OnFailed != nil {
			s.hooks.OnFailed(loadErr)
		}
		l.err = loadErr
		close(l.done)
		return
	}

	f := Frame{Index: l.index, Image: img}
	e.state = Ready
	e.frame = f
	s.ready = append(s.ready, l.index)
	loaded, total := len(s.ready), len(s.entries)
	s.mu.Unlock()

	if s.hooks.OnLoaded != nil {
		s.hooks.OnLoaded(f, loaded, total)
	}
	l.frame = f
	close(l.done)
}

// Get returns the frame at index if it is Ready.
func (s *Store) Get(index int) (Frame, bool) {
	if index < 0 || index >= len(s.locators) {
		return Frame{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e := s.entries[index]
	if e.state != Ready {
		return Frame{}, false
	}
	return e.frame, true
}

// State returns the load state of index. Out-of-range indices report
// NotRequested.
func (s *Store) State(index int) FrameState {
	if index < 0 || index >= len(s.locators) {
		return NotRequested
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[index].state
}

// IsReady reports whether index holds a decoded frame.
func (s *Store) IsReady(index int) bool {
	return s.State(index) == Ready
}

// Err returns the error of the last failed attempt for index, if the
// index has not been requested again since.
func (s *Store) Err(index int) error {
	if index < 0 || index >= len(s.locators) {
		return ErrIndexOutOfRange
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[index].err
}

// ReadyCount returns the number of Ready frames.
func (s *Store) ReadyCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ready)
}

// Total returns the length of the sequence.
func (s *Store) Total() int { return len(s.locators) }

// Locator returns the resource locator of index.
func (s *Store) Locator(index int) string {
	if index < 0 || index >= len(s.locators) {
		return ""
	}
	return s.locators[index]
}

// eachReady calls fn for every Ready frame until fn returns false.
func (s *Store) eachReady(fn func(f Frame) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, i := range s.ready {
		if !fn(s.entries[i].frame) {
			return
		}
	}
}

// Close cancels in-flight fetches and releases every frame. Loads that
// settle afterwards report ErrDestroyed and leave the store untouched.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.entries = make([]entry, len(s.locators))
	s.ready = nil
	s.mu.Unlock()
	s.cancel()
}
