package tracing

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/livebox/internal/shared/id"
)

// Header names used for trace propagation
const (
	TraceHeader = "X-Trace-ID"
	SpanHeader  = "X-Span-ID"
)

// maxInboundID bounds ids accepted from request headers
const maxInboundID = 128

const (
	queueSize  = 1024
	recentSize = 256
)

// Record is a finished span
type Record struct {
	TraceID  string            `json:"trace_id"`
	SpanID   string            `json:"span_id"`
	ParentID string            `json:"parent_id,omitempty"`
	Name     string            `json:"name"`
	Start    time.Time         `json:"start"`
	Duration time.Duration     `json:"duration"`
	Status   int               `json:"status,omitempty"`
	Error    string            `json:"error,omitempty"`
	Tags     map[string]string `json:"tags,omitempty"`
}

// Span is an operation in progress. It is not safe for concurrent use.
type Span struct {
	tracer *Tracer
	rec    Record
	ended  bool
}

// Tracer logs finished spans off the request path and keeps the most
// recent ones for inspection
type Tracer struct {
	service string
	log     *zap.Logger
	queue   chan Record

	mu     sync.Mutex
	recent []Record // ring, protected by mu
	next   int
	full   bool

	closeOnce sync.Once
	closing   chan struct{}
	drained   chan struct{}
}

// New creates a tracer and starts its collector
func New(service string, log *zap.Logger) *Tracer {
	if log == nil {
		log = zap.NewNop()
	}
	t := &Tracer{
		service: service,
		log:     log,
		queue:   make(chan Record, queueSize),
		recent:  make([]Record, recentSize),
		closing: make(chan struct{}),
		drained: make(chan struct{}),
	}
	go t.collect()
	return t
}

// Start opens a span under the trace carried by ctx, or a new trace
func (t *Tracer) Start(ctx context.Context, name string) (*Span, context.Context) {
	traceID := TraceIDFrom(ctx)
	if traceID == "" {
		traceID = id.NewRequestID().String()
	}
	s := &Span{
		tracer: t,
		rec: Record{
			TraceID:  traceID,
			SpanID:   id.NewRequestID().String(),
			ParentID: SpanIDFrom(ctx),
			Name:     name,
			Start:    time.Now(),
		},
	}
	return s, context.WithValue(context.WithValue(ctx, traceKey{}, traceID), spanKey{}, s.rec.SpanID)
}

// TraceID returns the span's trace
func (s *Span) TraceID() string { return s.rec.TraceID }

// ID returns the span's own id
func (s *Span) ID() string { return s.rec.SpanID }

// Tag attaches a key/value to the span
func (s *Span) Tag(key, value string) {
	if s.rec.Tags == nil {
		s.rec.Tags = make(map[string]string, 4)
	}
	s.rec.Tags[key] = value
}

// Status records the response status
func (s *Span) Status(code int) {
	s.rec.Status = code
}

// Fail records err; a span without an error status is marked 500
func (s *Span) Fail(err error) {
	if err == nil {
		return
	}
	s.rec.Error = err.Error()
	if s.rec.Status < 400 {
		s.rec.Status = 500
	}
}

// End finishes the span and hands it to the collector. Later calls are
// no-ops.
func (s *Span) End() {
	if s.ended {
		return
	}
	s.ended = true
	s.rec.Duration = time.Since(s.rec.Start)
	s.tracer.submit(s.rec)
}

func (t *Tracer) submit(rec Record) {
	select {
	case <-t.closing:
		return
	default:
	}
	select {
	case t.queue <- rec:
	default:
		t.log.Warn("Span queue full, dropping span",
			zap.String("trace_id", rec.TraceID),
			zap.String("span", rec.Name))
	}
}

func (t *Tracer) collect() {
	defer close(t.drained)
	for {
		select {
		case rec := <-t.queue:
			t.record(rec)
		case <-t.closing:
			for {
				select {
				case rec := <-t.queue:
					t.record(rec)
				default:
					return
				}
			}
		}
	}
}

func (t *Tracer) record(rec Record) {
	t.mu.Lock()
	t.recent[t.next] = rec
	t.next = (t.next + 1) % len(t.recent)
	if t.next == 0 {
		t.full = true
	}
	t.mu.Unlock()

	fields := make([]zap.Field, 0, 7+len(rec.Tags))
	fields = append(fields,
		zap.String("service", t.service),
		zap.String("trace_id", rec.TraceID),
		zap.String("span_id", rec.SpanID),
		zap.String("span", rec.Name),
		zap.Duration("duration", rec.Duration),
		zap.Int("status", rec.Status),
	)
	if rec.ParentID != "" {
		fields = append(fields, zap.String("parent_id", rec.ParentID))
	}
	for k, v := range rec.Tags {
		fields = append(fields, zap.String(k, v))
	}

	if rec.Error != "" {
		t.log.Warn("Span failed", append(fields, zap.String("error", rec.Error))...)
		return
	}
	t.log.Debug("Span finished", fields...)
}

// Recent returns up to n finished spans, newest first
func (t *Tracer) Recent(n int) []Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	size := t.next
	if t.full {
		size = len(t.recent)
	}
	if n <= 0 || n > size {
		n = size
	}

	out := make([]Record, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, t.recent[(t.next-i+len(t.recent))%len(t.recent)])
	}
	return out
}

// Close stops accepting spans and waits for the queued ones to be logged
func (t *Tracer) Close() {
	t.closeOnce.Do(func() { close(t.closing) })
	<-t.drained
}

type (
	traceKey struct{}
	spanKey  struct{}
)

// WithRemote returns ctx continuing a trace received from a caller. Empty
// or oversized ids are ignored.
func WithRemote(ctx context.Context, traceID, parent string) context.Context {
	if traceID != "" && len(traceID) <= maxInboundID {
		ctx = context.WithValue(ctx, traceKey{}, traceID)
	}
	if parent != "" && len(parent) <= maxInboundID {
		ctx = context.WithValue(ctx, spanKey{}, parent)
	}
	return ctx
}

// TraceIDFrom returns the trace carried by ctx
func TraceIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(traceKey{}).(string)
	return v
}

// SpanIDFrom returns the current span carried by ctx
func SpanIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(spanKey{}).(string)
	return v
}
