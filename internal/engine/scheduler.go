package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/livebox/internal/document"
	"github.com/GriffinCanCode/livebox/internal/domain/console"
	"github.com/GriffinCanCode/livebox/internal/sandbox"
	"github.com/GriffinCanCode/livebox/internal/shared/types"
)

// Loader commits an assembled document into the execution frame
type Loader interface {
	Load(ctx context.Context, document string) (sandbox.Handle, error)
}

// Trigger names what caused a rebuild
const (
	TriggerEdit   = "edit"
	TriggerManual = "manual"
)

// Scheduler decides when a bundle is rebuilt. Submit and Rebuild may be
// called from any goroutine; everything else belongs to the engine loop.
type Scheduler struct {
	loader   Loader
	sink     console.Sink
	assemble func(types.SourceBundle) string
	debounce time.Duration
	maxWait  time.Duration
	log      *zap.Logger
	metrics  Recorder

	// Mailbox, latest wins
	mu      sync.Mutex
	next    types.SourceBundle
	hasNext bool
	forced  bool
	wake    chan struct{}

	// Loop state
	pending    types.SourceBundle
	hasPending bool
	force      bool
	since      time.Time
	last       types.SourceBundle
	built      bool
	timer      *time.Timer
	armed      bool
}

// NewScheduler creates a scheduler. A zero debounce rebuilds on every
// collected edit; maxWait bounds how long a stream of edits can postpone a
// rebuild and defaults to four debounce periods.
func NewScheduler(loader Loader, sink console.Sink, debounce, maxWait time.Duration, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if debounce < 0 {
		debounce = 0
	}
	if maxWait <= 0 {
		maxWait = 4 * debounce
	}
	return &Scheduler{
		loader:   loader,
		sink:     sink,
		assemble: document.Assemble,
		debounce: debounce,
		maxWait:  maxWait,
		log:      log,
		metrics:  nopRecorder{},
		wake:     make(chan struct{}, 1),
	}
}

// Submit offers a new bundle. Only the most recent unsubmitted bundle is
// kept.
func (s *Scheduler) Submit(bundle types.SourceBundle) {
	s.mu.Lock()
	s.next = bundle
	s.hasNext = true
	s.mu.Unlock()
	s.notify()
}

// Rebuild forces a rebuild of the latest bundle, even when it is unchanged
func (s *Scheduler) Rebuild() {
	s.mu.Lock()
	s.forced = true
	s.mu.Unlock()
	s.notify()
}

func (s *Scheduler) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Wake fires when the mailbox has something to collect
func (s *Scheduler) Wake() <-chan struct{} {
	return s.wake
}

// Due fires when the debounce timer expires. It is nil while disarmed, so a
// select on it blocks forever.
func (s *Scheduler) Due() <-chan time.Time {
	if !s.armed {
		return nil
	}
	return s.timer.C
}

// collect moves the mailbox into loop state and reports whether a rebuild
// is due right away
func (s *Scheduler) collect(now time.Time) bool {
	s.mu.Lock()
	next, hasNext, forced := s.next, s.hasNext, s.forced
	s.hasNext, s.forced = false, false
	s.mu.Unlock()

	if hasNext {
		if !s.hasPending {
			s.since = now
		}
		s.pending = next
		s.hasPending = true
	}
	if forced {
		s.force = true
		if !s.hasPending {
			s.pending = s.last
			s.hasPending = true
			s.since = now
		}
	}
	if !s.hasPending {
		return false
	}

	if s.force || s.debounce == 0 {
		s.disarm()
		return true
	}

	delay := s.debounce
	if deadline := s.since.Add(s.maxWait); now.Add(delay).After(deadline) {
		delay = deadline.Sub(now)
	}
	if delay <= 0 {
		s.disarm()
		return true
	}
	s.arm(delay)
	return false
}

func (s *Scheduler) arm(d time.Duration) {
	if s.timer == nil {
		s.timer = time.NewTimer(d)
	} else {
		s.timer.Reset(d)
	}
	s.armed = true
}

func (s *Scheduler) disarm() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.armed = false
}

// fired is called by the loop after Due delivered
func (s *Scheduler) fired() {
	s.armed = false
}

// build runs one rebuild cycle: clear the log, assemble, load. attempted
// reports whether a load was tried; a failed load has still torn down the
// previous instance and is returned as err.
func (s *Scheduler) build(ctx context.Context) (handle sandbox.Handle, attempted bool, err error) {
	if !s.hasPending {
		return sandbox.Handle{}, false, nil
	}

	bundle, force := s.pending, s.force
	s.hasPending, s.force = false, false

	if !force && s.built && bundle == s.last {
		s.metrics.RebuildSkipped()
		s.log.Debug("Bundle unchanged, skipping rebuild")
		return sandbox.Handle{}, false, nil
	}

	trigger := TriggerEdit
	if force {
		trigger = TriggerManual
	}
	s.metrics.RebuildStarted(trigger)

	s.sink.Clear()
	doc := s.assemble(bundle)

	start := time.Now()
	handle, err = s.loader.Load(ctx, doc)
	s.metrics.LoadDuration(time.Since(start))

	s.last = bundle
	if err != nil {
		// Fatal to this attempt only; the next submit retries even if equal
		s.built = false
		s.metrics.RebuildFailed("commit")
		s.log.Error("Rebuild failed", zap.String("trigger", trigger), zap.Error(err))
		return sandbox.Handle{}, true, err
	}

	s.built = true
	s.log.Debug("Rebuilt sandbox",
		zap.String("trigger", trigger),
		zap.String("handle", handle.String()),
		zap.Int("bytes", len(doc)),
		zap.Duration("load", time.Since(start)))
	return handle, true, nil
}

// stop releases the debounce timer
func (s *Scheduler) stop() {
	s.disarm()
}
