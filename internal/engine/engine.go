package engine

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/livebox/internal/domain/console"
	"github.com/GriffinCanCode/livebox/internal/sandbox"
	"github.com/GriffinCanCode/livebox/internal/shared/types"
)

// Frame is the execution frame the engine drives
type Frame interface {
	Loader
	Messages() <-chan sandbox.Message
}

// Options tunes rebuild scheduling
type Options struct {
	Debounce time.Duration // Quiet period after an edit before rebuilding
	MaxWait  time.Duration // Upper bound on how long edits can postpone a rebuild
}

// Stats is a point-in-time view of the engine
type Stats struct {
	Running  bool               `json:"running"`
	Current  sandbox.Handle     `json:"current"`
	Rebuilds uint64             `json:"rebuilds"`
	Dropped  map[DropReason]int `json:"dropped,omitempty"`
}

// Engine drives the scheduler and the relay from a single goroutine, so the
// console log only ever sees clear-then-append sequences for one handle.
type Engine struct {
	frame   Frame
	sched   *Scheduler
	relay   *Relay
	log     *zap.Logger
	metrics Recorder

	running  atomic.Bool
	current  atomic.Pointer[sandbox.Handle]
	rebuilds atomic.Uint64
	dropped  atomic.Pointer[map[DropReason]int]
}

// New creates an engine writing console events to sink
func New(frame Frame, sink console.Sink, opts Options, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		frame:   frame,
		sched:   NewScheduler(frame, sink, opts.Debounce, opts.MaxWait, log.Named("scheduler")),
		relay:   NewRelay(sink, log.Named("relay")),
		log:     log,
		metrics: nopRecorder{},
	}
}

// WithMetrics adds metrics tracking to the engine
func (e *Engine) WithMetrics(metrics Recorder) *Engine {
	if metrics == nil {
		return e
	}
	e.metrics = metrics
	e.sched.metrics = metrics
	e.relay.WithMetrics(metrics)
	return e
}

// Submit offers the latest bundle for rebuilding
func (e *Engine) Submit(bundle types.SourceBundle) {
	e.sched.Submit(bundle)
}

// Rebuild forces a rebuild of the latest bundle
func (e *Engine) Rebuild() {
	e.sched.Rebuild()
}

// Current returns the handle whose messages reach the log
func (e *Engine) Current() (sandbox.Handle, bool) {
	h := e.current.Load()
	if h == nil {
		return sandbox.Handle{}, false
	}
	return *h, true
}

// Stats returns engine statistics
func (e *Engine) Stats() Stats {
	stats := Stats{
		Running:  e.running.Load(),
		Rebuilds: e.rebuilds.Load(),
	}
	if h, ok := e.Current(); ok {
		stats.Current = h
	}
	if d := e.dropped.Load(); d != nil {
		stats.Dropped = *d
	}
	return stats
}

// Run owns the engine loop until ctx is done
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer e.running.Store(false)
	defer e.sched.stop()

	e.log.Info("Engine started",
		zap.Duration("debounce", e.sched.debounce),
		zap.Duration("max_wait", e.sched.maxWait))

	messages := e.frame.Messages()
	for {
		select {
		case <-ctx.Done():
			e.log.Info("Engine stopped")
			return nil

		case <-e.sched.Wake():
			if e.sched.collect(time.Now()) {
				e.rebuild(ctx)
			}

		case <-e.sched.Due():
			e.sched.fired()
			e.rebuild(ctx)

		case msg := <-messages:
			if _, ok := e.relay.Handle(msg); !ok {
				dropped := e.relay.Dropped()
				e.dropped.Store(&dropped)
			}
		}
	}
}

func (e *Engine) rebuild(ctx context.Context) {
	handle, attempted, err := e.sched.build(ctx)
	if !attempted {
		return
	}
	if err != nil {
		// The failed load already tore the old instance down. Whatever it left
		// in the channel must not reach the cleared log.
		e.relay.Expect(sandbox.Handle{})
		e.current.Store(nil)
		e.metrics.LiveInstances(0)
		return
	}

	// Anything still queued from the previous handle is now stale
	e.relay.Expect(handle)
	e.current.Store(&handle)
	e.rebuilds.Add(1)
	e.metrics.LiveInstances(1)
}
