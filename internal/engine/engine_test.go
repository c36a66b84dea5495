package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/livebox/internal/domain/console"
	"github.com/GriffinCanCode/livebox/internal/sandbox"
	"github.com/GriffinCanCode/livebox/internal/shared/types"
)

func startEngine(t *testing.T, frame Frame, sink console.Sink, opts Options) *Engine {
	t.Helper()
	eng := New(frame, sink, opts, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("engine did not stop")
		}
	})

	require.Eventually(t, func() bool { return eng.Stats().Running }, time.Second, 5*time.Millisecond)
	return eng
}

func waitForHandle(t *testing.T, eng *Engine, generation uint64) sandbox.Handle {
	t.Helper()
	var handle sandbox.Handle
	require.Eventually(t, func() bool {
		h, ok := eng.Current()
		handle = h
		return ok && h.Generation >= generation
	}, 3*time.Second, 5*time.Millisecond)
	return handle
}

func TestEngineDropsStaleMessages(t *testing.T) {
	sink := &recordingSink{}
	frame := newFakeFrame(sink)
	eng := startEngine(t, frame, sink, Options{})

	eng.Submit(types.SourceBundle{Script: "one"})
	first := waitForHandle(t, eng, 1)

	frame.messages <- consoleMessage(first, "log", "from first")
	require.Eventually(t, func() bool { return len(sink.Events()) == 1 }, time.Second, 5*time.Millisecond)

	eng.Submit(types.SourceBundle{Script: "two"})
	second := waitForHandle(t, eng, 2)

	frame.messages <- consoleMessage(first, "log", "late from first")
	frame.messages <- consoleMessage(second, "log", "from second")

	require.Eventually(t, func() bool { return len(sink.Events()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "from second", sink.Events()[0].Message)
	assert.Equal(t, []string{"clear", "load:1", "append:from first", "clear", "load:2", "append:from second"}, sink.Ops())

	require.Eventually(t, func() bool { return eng.Stats().Dropped[DropStale] == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(2), eng.Stats().Rebuilds)
}

func TestEngineFailedRebuildDropsTornDownMessages(t *testing.T) {
	sink := &recordingSink{}
	frame := newFakeFrame(sink)
	eng := startEngine(t, frame, sink, Options{})

	eng.Submit(types.SourceBundle{Script: "one"})
	first := waitForHandle(t, eng, 1)

	// The old instance flushes one last message while the new load fails
	frame.setFail(true)
	frame.setOnLoad(func() {
		frame.messages <- consoleMessage(first, "log", "from torn-down instance")
	})
	eng.Submit(types.SourceBundle{Script: "two"})

	require.Eventually(t, func() bool { return eng.Stats().Dropped[DropStale] == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, sink.Events())
	assert.Equal(t, []string{"clear", "load:1", "clear", "load-failed"}, sink.Ops())

	_, ok := eng.Current()
	assert.False(t, ok, "no handle is live after a failed rebuild")
	assert.Equal(t, uint64(1), eng.Stats().Rebuilds)
}

func TestEngineRunTwice(t *testing.T) {
	sink := &recordingSink{}
	eng := startEngine(t, newFakeFrame(sink), sink, Options{})

	assert.ErrorIs(t, eng.Run(context.Background()), ErrAlreadyRunning)
}

func TestEngineDebounceRebuildsOnce(t *testing.T) {
	sink := &recordingSink{}
	frame := newFakeFrame(sink)
	eng := startEngine(t, frame, sink, Options{Debounce: 40 * time.Millisecond, MaxWait: time.Second})

	for _, s := range []string{"c", "co", "con", "cons"} {
		eng.Submit(types.SourceBundle{Script: s})
		time.Sleep(5 * time.Millisecond)
	}

	waitForHandle(t, eng, 1)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{"cons"}, frame.Docs())
}

// End to end through the real sandbox

func newSandboxEngine(t *testing.T) (*Engine, *console.Log) {
	t.Helper()
	config := sandbox.DefaultConfig()
	config.PoolSize = 1
	frame, err := sandbox.NewFrame(config, nil)
	require.NoError(t, err)
	t.Cleanup(func() { frame.Close() })

	log := console.NewLog(0)
	return startEngine(t, frame, log, Options{}), log
}

func waitForEntries(t *testing.T, log *console.Log, n int) []types.ConsoleEvent {
	t.Helper()
	require.Eventually(t, func() bool { return log.Len() >= n }, 3*time.Second, 5*time.Millisecond)
	// Give stray extra events a chance to show up
	time.Sleep(50 * time.Millisecond)
	return log.Entries()
}

func TestEndToEndHello(t *testing.T) {
	eng, log := newSandboxEngine(t)

	eng.Submit(types.SourceBundle{Markup: "<div id=x></div>", Script: "console.log('hi')"})

	entries := waitForEntries(t, log, 1)
	require.Len(t, entries, 1)
	assert.Equal(t, types.LevelLog, entries[0].Level)
	assert.Equal(t, "hi", entries[0].Message)
	assert.NotEmpty(t, entries[0].Timestamp)
}

func TestEndToEndOrderedLogs(t *testing.T) {
	eng, log := newSandboxEngine(t)

	eng.Submit(types.SourceBundle{Script: "console.log('one'); console.log('two'); console.log('three');"})

	entries := waitForEntries(t, log, 3)
	require.Len(t, entries, 3)
	for i, want := range []string{"one", "two", "three"} {
		assert.Equal(t, types.LevelLog, entries[i].Level)
		assert.Equal(t, want, entries[i].Message)
	}
}

func TestEndToEndSynchronousThrow(t *testing.T) {
	eng, log := newSandboxEngine(t)

	eng.Submit(types.SourceBundle{Script: `throw new Error("x")`})

	entries := waitForEntries(t, log, 1)
	require.Len(t, entries, 1)
	assert.Equal(t, types.LevelError, entries[0].Level)
	assert.Contains(t, entries[0].Message, "JavaScript Error:")
	assert.Contains(t, entries[0].Message, "x")
}

func TestEndToEndRuntimeError(t *testing.T) {
	eng, log := newSandboxEngine(t)

	eng.Submit(types.SourceBundle{Script: "null.y"})

	entries := waitForEntries(t, log, 1)
	require.Len(t, entries, 1)
	assert.Equal(t, types.LevelError, entries[0].Level)
	assert.True(t,
		strings.Contains(entries[0].Message, "at line") || strings.Contains(entries[0].Message, "JavaScript Error:"),
		"unexpected message %q", entries[0].Message)
}

func TestEndToEndAsyncErrorReportsLine(t *testing.T) {
	eng, log := newSandboxEngine(t)

	eng.Submit(types.SourceBundle{Script: "setTimeout(function () { null.y; }, 0);"})

	entries := waitForEntries(t, log, 1)
	require.Len(t, entries, 1)
	assert.Equal(t, types.LevelError, entries[0].Level)
	assert.Contains(t, entries[0].Message, "at line")
}

func TestEndToEndRebuildClearsLog(t *testing.T) {
	eng, log := newSandboxEngine(t)
	updates, cancel := log.Subscribe(4096)
	defer cancel()

	eng.Submit(types.SourceBundle{Script: "console.log('first'); setInterval(function () { console.log('tick'); }, 5);"})
	waitForEntries(t, log, 2)

	eng.Submit(types.SourceBundle{Script: "console.log('second');"})
	waitForHandle(t, eng, 2)

	require.Eventually(t, func() bool {
		entries := log.Entries()
		return len(entries) == 1 && entries[0].Message == "second"
	}, 3*time.Second, 5*time.Millisecond)

	// After the second clear nothing from the first bundle may appear
	time.Sleep(50 * time.Millisecond)
	clears := 0
	var afterRebuild []string
	for {
		select {
		case u := <-updates:
			if u.Kind == console.UpdateClear {
				clears++
				continue
			}
			if clears == 2 {
				afterRebuild = append(afterRebuild, u.Event.Message)
			}
		default:
			assert.Equal(t, 2, clears)
			assert.Equal(t, []string{"second"}, afterRebuild)
			return
		}
	}
}
