package sequence

import "sync"

// EventKind names an event emitted to the host.
type EventKind string

const (
	EventImageLoaded     EventKind = "imageLoaded"
	EventBatchLoaded     EventKind = "batchLoaded"
	EventReadyToScroll   EventKind = "readyToScroll"
	EventLoadingComplete EventKind = "loadingComplete"
)

// Event is a fire-and-forget notification. Index is only meaningful for
// EventImageLoaded; Loaded and Total are set for imageLoaded and
// batchLoaded.
type Event struct {
	Kind   EventKind `json:"kind"`
	Tier   string    `json:"tier,omitempty"`
	Index  int       `json:"index"`
	Loaded int       `json:"loaded"`
	Total  int       `json:"total"`
}

// Listener receives events. Listeners run on the goroutine that produced
// the event and must not block.
type Listener func(Event)

type emitter struct {
	mu        sync.RWMutex
	listeners map[int]Listener
	next      int
	closed    bool
}

func newEmitter() *emitter {
	return &emitter{listeners: make(map[int]Listener)}
}

func (e *emitter) subscribe(l Listener) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return func() {}
	}
	id := e.next
	e.next++
	e.listeners[id] = l
	return func() {
		e.mu.Lock()
		delete(e.listeners, id)
		e.mu.Unlock()
	}
}

func (e *emitter) emit(ev Event) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return
	}
	ls := make([]Listener, 0, len(e.listeners))
	for i := 0; i < e.next; i++ {
		if l, ok := e.listeners[i]; ok {
			ls = append(ls, l)
		}
	}
	e.mu.RUnlock()

	for _, l := range ls {
		l(ev)
	}
}

func (e *emitter) close() {
	e.mu.Lock()
	e.closed = true
	e.listeners = make(map[int]Listener)
	e.mu.Unlock()
}
