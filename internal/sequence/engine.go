package sequence

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTickInterval is the animation-frame interval used to drive an
// AnimationLoop when Config.TickInterval is unset.
const DefaultTickInterval = 16 * time.Millisecond

// Config holds construction inputs for an Engine.
type Config struct {
	// Frames are the frame locators in playback order. Required, non-empty.
	Frames []string
	// Fetcher fetches and decodes a locator. Required.
	Fetcher Fetcher
	// Drawer draws frames. Required.
	Drawer Drawer
	// Viewport provides geometry and resize notifications. Required.
	Viewport Viewport

	// Scroll is the passive scroll source. Leave nil when SmoothScroll is
	// set; exactly one of the two must be provided.
	Scroll ScrollSource
	// SmoothScroll is the driven scroll source, ticked every TickInterval.
	SmoothScroll AnimationLoop
	TickInterval time.Duration

	// OnError receives every load failure. Defaults to logging at warn.
	OnError func(error)
	// Logger defaults to a text logger on stderr owned by the engine.
	Logger *slog.Logger
	// Recorder is optional.
	Recorder Recorder
	// Concurrency caps in-flight loads within a tier; <= 0 means no cap.
	Concurrency int
}

func (c Config) validate() error {
	switch {
	case len(c.Frames) == 0:
		return &ConfigError{Field: "Frames", Reason: "must not be empty"}
	case c.Fetcher == nil:
		return &ConfigError{Field: "Fetcher", Reason: "is required"}
	case c.Drawer == nil:
		return &ConfigError{Field: "Drawer", Reason: "is required"}
	case c.Viewport == nil:
		return &ConfigError{Field: "Viewport", Reason: "is required"}
	case c.Scroll == nil && c.SmoothScroll == nil:
		return &ConfigError{Field: "Scroll", Reason: "or SmoothScroll is required"}
	case c.Scroll != nil && c.SmoothScroll != nil:
		return &ConfigError{Field: "Scroll", Reason: "and SmoothScroll are mutually exclusive"}
	case c.TickInterval < 0:
		return &ConfigError{Field: "TickInterval", Reason: "must not be negative"}
	}
	for i, f := range c.Frames {
		if f == "" {
			return &ConfigError{Field: "Frames", Reason: "contains an empty locator at index " + strconv.Itoa(i)}
		}
	}
	return nil
}

// Engine plays an image sequence back against a scroll position while
// frames stream in through a tiered loader.
type Engine struct {
	id       string
	cfg      Config
	log      *slog.Logger
	onError  func(error)
	events   *emitter
	store    *Store
	gate     *Gate
	schedule *Scheduler

	mu        sync.Mutex
	started   bool
	destroyed bool
	cancel    context.CancelFunc
	unsubs    []func()
	done      chan struct{}
	doneOnce  sync.Once
}

// New validates cfg and builds an engine. Nothing is subscribed or
// requested until Start.
func New(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.TickInterval == 0 {
		cfg.TickInterval = DefaultTickInterval
	}

	id := uuid.NewString()
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	log = log.With(slog.String("engine_id", id))

	e := &Engine{
		id:     id,
		cfg:    cfg,
		log:    log,
		events: newEmitter(),
		done:   make(chan struct{}),
	}
	e.onError = cfg.OnError
	if e.onError == nil {
		e.onError = func(err error) {
			e.log.Warn("frame load failed", slog.String("error", err.Error()))
		}
	}
	return e, nil
}

// ID returns the engine's instance identifier.
func (e *Engine) ID() string { return e.id }

// Start subscribes to the scroll and resize sources and starts loading.
// It returns immediately; loading continues until it completes, ctx is
// cancelled or Destroy is called.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return ErrDestroyed
	}
	if e.started {
		return ErrAlreadyStarted
	}
	e.started = true

	ctx, e.cancel = context.WithCancel(ctx)
	e.store = NewStore(ctx, e.cfg.Frames, e.cfg.Fetcher, StoreHooks{
		OnLoaded: e.frameLoaded,
		OnFailed: e.frameFailed,
	})
	e.gate = NewGate(e.store, e.cfg.Drawer, e.cfg.Viewport, e.cfg.Recorder)
	e.schedule = NewScheduler(e.store, SchedulerOptions{
		Emit:        e.events.emit,
		OnUnlock:    e.unlock,
		Concurrency: e.cfg.Concurrency,
		Recorder:    e.cfg.Recorder,
		Logger:      e.log,
	})

	e.unsubs = append(e.unsubs, e.cfg.Viewport.OnResize(e.gate.Invalidate))
	if e.cfg.SmoothScroll != nil {
		e.unsubs = append(e.unsubs, e.cfg.SmoothScroll.OnScroll(e.scrolled))
		go e.tick(ctx, e.cfg.SmoothScroll)
	} else {
		e.unsubs = append(e.unsubs, e.cfg.Scroll.OnScroll(e.scrolled))
	}

	e.log.Info("image sequence started",
		slog.Int("frames", len(e.cfg.Frames)),
		slog.Bool("smooth_scroll", e.cfg.SmoothScroll != nil))

	go func() {
		if err := e.schedule.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			e.log.Error("loading stopped", slog.String("error", err.Error()))
		}
		e.doneOnce.Do(func() { close(e.done) })
	}()
	return nil
}

// tick drives the animation loop until ctx is cancelled.
func (e *Engine) tick(ctx context.Context, loop AnimationLoop) {
	t := time.NewTicker(e.cfg.TickInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			loop.Tick(now)
		}
	}
}

func (e *Engine) scrolled(offset float64) {
	e.gate.SetProgress(Progress(offset, e.cfg.Viewport.ScrollableDistance()))
}

func (e *Engine) unlock() {
	if e.gate.Unlock() {
		e.log.Info("ready to scroll",
			slog.Int("loaded", e.store.ReadyCount()),
			slog.Int("total", e.store.Total()))
		e.events.emit(Event{Kind: EventReadyToScroll})
	}
}

func (e *Engine) frameLoaded(f Frame, loaded, total int) {
	if e.cfg.Recorder != nil {
		e.cfg.Recorder.IncFramesLoaded()
		e.cfg.Recorder.SetFramesReady(loaded)
	}
	e.events.emit(Event{Kind: EventImageLoaded, Index: f.Index, Loaded: loaded, Total: total})
	e.gate.Evaluate()
}

func (e *Engine) frameFailed(err *LoadError) {
	if e.cfg.Recorder != nil {
		e.cfg.Recorder.IncLoadFailures()
	}
	e.mu.Lock()
	destroyed := e.destroyed
	e.mu.Unlock()
	if !destroyed {
		e.onError(err)
	}
}

// Subscribe registers l for host events and returns a function removing it.
func (e *Engine) Subscribe(l Listener) (unsubscribe func()) {
	return e.events.subscribe(l)
}

// Done is closed once loadingComplete has been emitted or loading stopped.
func (e *Engine) Done() <-chan struct{} { return e.done }

// LoadingProgress reports how many frames are ready.
func (e *Engine) LoadingProgress() LoadingProgress {
	total := len(e.cfg.Frames)
	loaded := 0
	if st := e.storeIfStarted(); st != nil {
		loaded = st.ReadyCount()
	}
	return LoadingProgress{
		Loaded:     loaded,
		Total:      total,
		Percentage: float64(loaded) / float64(total) * 100,
	}
}

// State reports the render gate state.
func (e *Engine) State() State {
	e.mu.Lock()
	g := e.gate
	e.mu.Unlock()
	if g == nil {
		return State{Locked: true, Cursor: -1}
	}
	return g.State()
}

// Reload requests index again. Nothing retries a failed frame on its own
// schedule; Reload is the explicit re-request. A Ready or Pending index
// returns its existing load.
func (e *Engine) Reload(index int) (*Load, error) {
	st, err := e.startedStore()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= st.Total() {
		return nil, ErrIndexOutOfRange
	}
	return st.Request(index), nil
}

func (e *Engine) storeIfStarted() *Store {
	st, _ := e.startedStore()
	return st
}

func (e *Engine) startedStore() (*Store, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case e.destroyed:
		return nil, ErrDestroyed
	case !e.started:
		return nil, ErrNotStarted
	}
	return e.store, nil
}

// Destroy unsubscribes from every source, cancels loading and releases all
// frames. Completions arriving afterwards are ignored. Safe to call more
// than once.
func (e *Engine) Destroy() {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return
	}
	e.destroyed = true
	unsubs := e.unsubs
	e.unsubs = nil
	gate, store, cancel := e.gate, e.store, e.cancel
	e.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
	e.events.close()
	if gate != nil {
		gate.Destroy()
	}
	if store != nil {
		store.Close()
	}
	if cancel != nil {
		cancel()
	} else {
		e.doneOnce.Do(func() { close(e.done) })
	}
	e.log.Info("image sequence destroyed")
}
