package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/GriffinCanCode/livebox/internal/sandbox"
	"github.com/GriffinCanCode/livebox/internal/shared/types"
)

type recordingSink struct {
	mu     sync.Mutex
	ops    []string
	events []types.ConsoleEvent
}

func (s *recordingSink) Append(e types.ConsoleEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, "append:"+e.Message)
	s.events = append(s.events, e)
}

func (s *recordingSink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, "clear")
	s.events = nil
}

func (s *recordingSink) record(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, op)
}

func (s *recordingSink) Ops() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.ops...)
}

func (s *recordingSink) Events() []types.ConsoleEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.ConsoleEvent{}, s.events...)
}

// fakeFrame records loads into the shared sink journal so tests can check
// clear-before-load ordering
type fakeFrame struct {
	mu         sync.Mutex
	sink       *recordingSink
	docs       []string
	generation uint64
	fail       bool
	onLoad     func()
	messages   chan sandbox.Message
}

func newFakeFrame(sink *recordingSink) *fakeFrame {
	return &fakeFrame{sink: sink, messages: make(chan sandbox.Message, 16)}
}

func (f *fakeFrame) Load(_ context.Context, doc string) (sandbox.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.docs = append(f.docs, doc)
	if f.onLoad != nil {
		f.onLoad()
	}
	if f.fail {
		f.sink.record("load-failed")
		return sandbox.Handle{}, errors.New("commit failed")
	}
	f.generation++
	f.sink.record(fmt.Sprintf("load:%d", f.generation))
	return sandbox.Handle{ID: "sbx", Generation: f.generation}, nil
}

func (f *fakeFrame) Messages() <-chan sandbox.Message {
	return f.messages
}

func (f *fakeFrame) Docs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.docs...)
}

func (f *fakeFrame) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

// setOnLoad runs fn inside every Load, before it succeeds or fails
func (f *fakeFrame) setOnLoad(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onLoad = fn
}

func consoleMessage(h sandbox.Handle, level string, args ...string) sandbox.Message {
	data := `{"type":"console-log","level":"` + level + `","args":[`
	for i, a := range args {
		if i > 0 {
			data += ","
		}
		data += fmt.Sprintf("%q", a)
	}
	data += "]}"
	return sandbox.Message{Source: h, Origin: "null", Target: "*", Data: []byte(data)}
}
