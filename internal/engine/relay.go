package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/livebox/internal/domain/console"
	"github.com/GriffinCanCode/livebox/internal/sandbox"
	"github.com/GriffinCanCode/livebox/internal/shared/types"
)

// MessageType is the only payload type the relay accepts
const MessageType = "console-log"

// DropReason explains why a boundary message produced no console event
type DropReason string

const (
	DropStale     DropReason = "stale"
	DropMalformed DropReason = "malformed"
	DropType      DropReason = "type"
	DropLevel     DropReason = "level"
	DropArgs      DropReason = "args"
)

// Relay turns boundary messages from the live instance into console events.
// It is owned by the engine goroutine and is not safe for concurrent use.
type Relay struct {
	sink    console.Sink
	log     *zap.Logger
	metrics Recorder
	now     func() time.Time
	current sandbox.Handle
	dropped map[DropReason]int
}

// NewRelay creates a relay appending to sink
func NewRelay(sink console.Sink, log *zap.Logger) *Relay {
	if log == nil {
		log = zap.NewNop()
	}
	return &Relay{
		sink:    sink,
		log:     log,
		metrics: nopRecorder{},
		now:     time.Now,
		dropped: make(map[DropReason]int),
	}
}

// WithMetrics adds metrics tracking to the relay
func (r *Relay) WithMetrics(metrics Recorder) *Relay {
	if metrics != nil {
		r.metrics = metrics
	}
	return r
}

// WithClock overrides the receipt clock
func (r *Relay) WithClock(now func() time.Time) *Relay {
	r.now = now
	return r
}

// Expect makes h the only source whose messages are accepted
func (r *Relay) Expect(h sandbox.Handle) {
	r.current = h
}

// Dropped returns drop counts by reason
func (r *Relay) Dropped() map[DropReason]int {
	out := make(map[DropReason]int, len(r.dropped))
	for k, v := range r.dropped {
		out[k] = v
	}
	return out
}

// Handle validates one message and appends the resulting event. It never
// fails; anything that is not a console message from the live instance is
// dropped.
func (r *Relay) Handle(msg sandbox.Message) (types.ConsoleEvent, bool) {
	if r.current.IsZero() || msg.Source != r.current {
		return r.drop(DropStale, msg, nil)
	}

	level, message, reason, err := decode(msg.Data)
	if reason != "" {
		return r.drop(reason, msg, err)
	}

	event := types.NewConsoleEvent(level, message, r.now())
	r.sink.Append(event)
	r.metrics.ConsoleEvent(string(level))
	return event, true
}

func (r *Relay) drop(reason DropReason, msg sandbox.Message, err error) (types.ConsoleEvent, bool) {
	r.dropped[reason]++
	r.metrics.MessageDropped(string(reason))

	fields := []zap.Field{
		zap.String("reason", string(reason)),
		zap.String("source", msg.Source.String()),
		zap.Int("bytes", len(msg.Data)),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	r.log.Debug("Dropped boundary message", fields...)
	return types.ConsoleEvent{}, false
}

// decode checks the console-log shape. The sender is untrusted, so every
// field is checked by type rather than bound to a struct.
func decode(data []byte) (types.Level, string, DropReason, error) {
	var payload interface{}
	if err := sonic.Unmarshal(data, &payload); err != nil {
		return "", "", DropMalformed, err
	}

	obj, ok := payload.(map[string]interface{})
	if !ok {
		return "", "", DropMalformed, fmt.Errorf("payload is %T, not an object", payload)
	}

	if typ, _ := obj["type"].(string); typ != MessageType {
		return "", "", DropType, nil
	}

	name, _ := obj["level"].(string)
	level, ok := types.ParseLevel(name)
	if !ok {
		return "", "", DropLevel, fmt.Errorf("unknown level %q", name)
	}

	args, ok := obj["args"].([]interface{})
	if !ok {
		return "", "", DropArgs, fmt.Errorf("args is %T, not an array", obj["args"])
	}

	parts := make([]string, 0, len(args))
	for _, arg := range args {
		text, err := render(arg)
		if err != nil {
			return "", "", DropArgs, err
		}
		parts = append(parts, text)
	}

	return level, strings.Join(parts, " "), "", nil
}

// render keeps strings as they are and writes anything else as JSON text
func render(arg interface{}) (string, error) {
	if s, ok := arg.(string); ok {
		return s, nil
	}
	return sonic.MarshalString(arg)
}
