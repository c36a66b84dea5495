package sandbox

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/GriffinCanCode/livebox/internal/shared/id"
)

// Frame is the sandboxed execution frame. It hosts at most one live
// instance; loading a document always destroys the previous one first.
type Frame struct {
	config   Config
	log      *zap.Logger
	pool     *Pool
	local    *Storage
	session  *Storage
	messages chan Message

	mu         sync.Mutex
	live       *instance
	state      State
	generation uint64
	closed     bool
}

// NewFrame creates an empty frame with a prewarmed runtime pool
func NewFrame(config Config, log *zap.Logger) (*Frame, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if config.MessageBuffer <= 0 {
		config.MessageBuffer = DefaultConfig().MessageBuffer
	}
	if config.HostOrigin == "" {
		config.HostOrigin = DefaultConfig().HostOrigin
	}

	pool, err := NewPool(config, config.PoolSize, log.Named("pool"))
	if err != nil {
		return nil, fmt.Errorf("create runtime pool: %w", err)
	}

	return &Frame{
		config:   config,
		log:      log,
		pool:     pool,
		local:    NewStorage(0),
		session:  NewStorage(0),
		messages: make(chan Message, config.MessageBuffer),
		state:    StateEmpty,
	}, nil
}

// Load commits a document and starts executing it. The previous instance
// is torn down before the new one exists, so two instances are never live
// together. Scripts run asynchronously once Load returns.
func (f *Frame) Load(ctx context.Context, document string) (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return Handle{}, ErrFrameClosed
	}

	f.teardownLocked()

	if f.config.MaxDocumentBytes > 0 && len(document) > f.config.MaxDocumentBytes {
		return Handle{}, fmt.Errorf("%w: %w (%d bytes)", ErrCommit, ErrDocumentTooLarge, len(document))
	}

	f.state = StateLoading
	source := normalizeNewlines(document)

	dom, err := ParseDOM(source)
	if err != nil {
		f.state = StateEmpty
		return Handle{}, fmt.Errorf("%w: %w", ErrCommit, err)
	}

	rt, err := f.pool.Acquire(ctx)
	if err != nil {
		f.state = StateEmpty
		return Handle{}, fmt.Errorf("%w: %w", ErrCommit, err)
	}

	f.generation++
	handle := Handle{
		ID:         id.NewSandboxID().String(),
		Generation: f.generation,
	}

	inst := newInstance(instanceParams{
		handle:  handle,
		config:  f.config,
		runtime: rt,
		dom:     dom,
		source:  source,
		out:     f.messages,
		local:   f.local,
		session: f.session,
		log:     f.log,
	})
	go inst.run()

	f.live = inst
	f.state = StateRunning

	f.log.Debug("Sandbox instance started", zap.String("handle", handle.String()), zap.Int("bytes", len(document)))
	return handle, nil
}

// Destroy tears down the live instance, leaving the frame empty
func (f *Frame) Destroy() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.teardownLocked()
}

func (f *Frame) teardownLocked() {
	inst := f.live
	if inst == nil {
		return
	}

	f.state = StateTornDown
	inst.stop()

	timeout := f.config.TeardownTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().TeardownTimeout
	}
	select {
	case <-inst.exited:
	case <-time.After(timeout):
		f.log.Warn("Sandbox instance did not exit in time", zap.String("handle", inst.handle.String()))
	}

	f.live = nil
	f.state = StateEmpty
}

// Close destroys the live instance and the runtime pool. The message
// channel stays open; late sends from a straggling instance are discarded
// by generation at the relay.
func (f *Frame) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true
	f.teardownLocked()
	return f.pool.Close()
}

// Current returns the live handle, if any
func (f *Frame) Current() (Handle, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.live == nil || f.live.crashed() {
		return Handle{}, false
	}
	return f.live.handle, true
}

// IsCurrent reports whether h is the live handle
func (f *Frame) IsCurrent(h Handle) bool {
	current, ok := f.Current()
	return ok && current == h
}

// State returns the frame lifecycle state
func (f *Frame) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.live != nil && f.live.crashed() {
		return StateTornDown
	}
	return f.state
}

// Messages is the host side of the boundary channel
func (f *Frame) Messages() <-chan Message {
	return f.messages
}

// Capabilities returns the declared allow-list
func (f *Frame) Capabilities() Capabilities {
	return f.config.Capabilities
}

// PoolStats exposes runtime pool statistics
func (f *Frame) PoolStats() PoolStats {
	return f.pool.Stats()
}

// current returns the live instance. A non-nil want pins the caller to one
// instance; anything else is reported as ErrStaleHandle.
func (f *Frame) current(want *Handle) (*instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, ErrFrameClosed
	}
	if f.live == nil || f.live.crashed() {
		if want != nil {
			return nil, fmt.Errorf("%w: %s", ErrStaleHandle, want)
		}
		return nil, ErrFrameEmpty
	}
	if want != nil && *want != f.live.handle {
		return nil, fmt.Errorf("%w: %s", ErrStaleHandle, want)
	}
	return f.live, nil
}

// Inspect queries the live DOM. The host may only read rendered content when
// the frame shares its origin.
func (f *Frame) Inspect(ctx context.Context, q Query) (*Inspection, error) {
	if !f.config.Capabilities.Has(AllowSameOrigin) {
		return nil, ErrNotSameOrigin
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	inst, err := f.current(q.Handle)
	if err != nil {
		return nil, err
	}

	result := &Inspection{Handle: inst.handle}
	var queryErr error
	err = inst.call(ctx, func() {
		result.Matches, queryErr = inspectDOM(inst.dom, q)
		result.Changes = inst.dom.Changes()
	})
	if err != nil {
		return nil, err
	}
	if queryErr != nil {
		return nil, queryErr
	}
	return result, nil
}

// Render returns the live document serialized as HTML
func (f *Frame) Render(ctx context.Context) (string, error) {
	if !f.config.Capabilities.Has(AllowSameOrigin) {
		return "", ErrNotSameOrigin
	}

	inst, err := f.current(nil)
	if err != nil {
		return "", err
	}

	var (
		out       string
		renderErr error
	)
	if err := inst.call(ctx, func() {
		out, renderErr = inst.dom.HTML()
	}); err != nil {
		return "", err
	}
	return out, renderErr
}

// Dispatch delivers a user interaction, such as a click in the preview, to
// the first element matching the selector
func (f *Frame) Dispatch(ctx context.Context, action Interaction) error {
	if strings.TrimSpace(action.Selector) == "" {
		return fmt.Errorf("%w: empty selector", ErrInvalidQuery)
	}
	if action.Event == "" {
		action.Event = "click"
	}

	inst, err := f.current(action.Handle)
	if err != nil {
		return err
	}

	var dispatchErr error
	err = inst.call(ctx, func() {
		nodes, err := inst.dom.Query(nil, action.Selector)
		if err != nil {
			dispatchErr = fmt.Errorf("%w: %v", ErrInvalidQuery, err)
			return
		}
		if len(nodes) == 0 {
			dispatchErr = ErrNoMatch
			return
		}
		inst.interact(nodes[0], action)
	})
	if err != nil {
		return err
	}
	return dispatchErr
}

// interact runs as a macrotask on the instance loop
func (in *instance) interact(n *html.Node, action Interaction) {
	in.exec(func() error {
		if action.Value != nil {
			in.setValue(n, *action.Value)
		}
		switch action.Event {
		case "click":
			in.click(n)
		case "focus":
			in.focus(n)
		case "submit":
			if n.DataAtom == atom.Form {
				in.submit(n, true)
			} else if form := owningForm(n); form != nil {
				in.submit(form, true)
			}
		default:
			in.dispatch(in.wrap(n), in.newEvent(in.rt.event, action.Event, map[string]interface{}{
				"bubbles":    true,
				"cancelable": true,
			}))
		}
		return nil
	})
}

func normalizeNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
