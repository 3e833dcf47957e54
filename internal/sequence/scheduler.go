package sequence

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "image-sequence/sequence"

// Tier names, in execution order.
const (
	TierBootstrap  = "bootstrap"
	TierCoarse     = "coarse"
	TierMedium     = "medium"
	TierCompletion = "completion"
)

const (
	coarseStride = 8
	mediumStride = 4
)

// StrideTier returns every stride-th index in [stride, total) that is not
// yet ready.
func StrideTier(total, stride int, ready func(int) bool) []int {
	if stride <= 0 {
		return nil
	}
	out := make([]int, 0, total/stride)
	for i := stride; i < total; i += stride {
		if !ready(i) {
			out = append(out, i)
		}
	}
	return out
}

// CompletionTier returns every index in [0, total) that is not yet ready.
func CompletionTier(total int, ready func(int) bool) []int {
	out := make([]int, 0, total)
	for i := 0; i < total; i++ {
		if !ready(i) {
			out = append(out, i)
		}
	}
	return out
}

// Scheduler submits frame requests to a Store in four sequential tiers:
// frame 0, every 8th frame, every 4th frame, then everything left. A tier
// is computed only after the previous one settled, so it skips frames that
// are already ready.
type Scheduler struct {
	store       *Store
	emit        func(Event)
	onUnlock    func()
	concurrency int
	recorder    Recorder
	log         *slog.Logger
	tracer      trace.Tracer
}

// SchedulerOptions configures a Scheduler.
type SchedulerOptions struct {
	// Emit receives batchLoaded and loadingComplete events.
	Emit func(Event)
	// OnUnlock is called once bootstrap and coarse tiers have settled.
	OnUnlock func()
	// Concurrency caps in-flight loads within a tier; <= 0 means no cap.
	Concurrency int
	Recorder    Recorder
	Logger      *slog.Logger
}

// NewScheduler returns a scheduler feeding store.
func NewScheduler(store *Store, opts SchedulerOptions) *Scheduler {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	emit := opts.Emit
	if emit == nil {
		emit = func(Event) {}
	}
	onUnlock := opts.OnUnlock
	if onUnlock == nil {
		onUnlock = func() {}
	}
	return &Scheduler{
		store:       store,
		emit:        emit,
		onUnlock:    onUnlock,
		concurrency: opts.Concurrency,
		recorder:    opts.Recorder,
		log:         log,
		tracer:      otel.Tracer(tracerName),
	}
}

// Run executes all tiers and returns nil once loadingComplete has been
// emitted. It returns ctx.Err() if ctx is cancelled first. Individual load
// failures never stop it.
func (s *Scheduler) Run(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "sequence.load",
		trace.WithAttributes(attribute.Int("sequence.total", s.store.Total())))
	defer span.End()

	total := s.store.Total()

	if err := s.runTier(ctx, TierBootstrap, []int{0}); err != nil {
		return err
	}
	if err := s.runTier(ctx, TierCoarse, StrideTier(total, coarseStride, s.store.IsReady)); err != nil {
		return err
	}
	s.onUnlock()

	if err := s.runTier(ctx, TierMedium, StrideTier(total, mediumStride, s.store.IsReady)); err != nil {
		return err
	}
	if err := s.runTier(ctx, TierCompletion, CompletionTier(total, s.store.IsReady)); err != nil {
		return err
	}

	s.log.Info("loading complete",
		slog.Int("loaded", s.store.ReadyCount()),
		slog.Int("total", total))
	s.emit(Event{Kind: EventLoadingComplete, Loaded: s.store.ReadyCount(), Total: total})
	return nil
}

// runTier requests every index and waits until each has settled.
func (s *Scheduler) runTier(ctx context.Context, name string, indices []int) error {
	ctx, span := s.tracer.Start(ctx, "sequence.tier",
		trace.WithAttributes(
			attribute.String("tier.name", name),
			attribute.Int("tier.size", len(indices)),
		))
	defer span.End()

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}
	for _, i := range indices {
		g.Go(func() error {
			// Failures are reported by the store; only cancellation aborts.
			if _, err := s.store.Request(i).Wait(gctx); err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return err
	}

	elapsed := time.Since(start)
	if s.recorder != nil {
		s.recorder.ObserveTier(name, elapsed)
	}
	loaded, total := s.store.ReadyCount(), s.store.Total()
	span.SetAttributes(attribute.Int("sequence.loaded", loaded))
	s.log.Debug("tier settled",
		slog.String("tier", name),
		slog.Int("requested", len(indices)),
		slog.Int("loaded", loaded),
		slog.Int("total", total),
		slog.Int("duration_ms", int(elapsed.Milliseconds())))
	s.emit(Event{Kind: EventBatchLoaded, Tier: name, Loaded: loaded, Total: total})
	return nil
}
