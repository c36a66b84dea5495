package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/livebox/internal/shared/types"
)

func newTestScheduler(debounce time.Duration) (*Scheduler, *fakeFrame, *recordingSink) {
	sink := &recordingSink{}
	frame := newFakeFrame(sink)
	sched := NewScheduler(frame, sink, debounce, 0, nil)
	sched.assemble = func(b types.SourceBundle) string { return b.Script }
	return sched, frame, sink
}

// cycle collects the mailbox and builds when due, the way the engine loop does
func cycle(s *Scheduler) bool {
	if !s.collect(time.Now()) {
		return false
	}
	_, attempted, err := s.build(context.Background())
	return attempted && err == nil
}

func TestSchedulerClearsBeforeLoading(t *testing.T) {
	sched, frame, sink := newTestScheduler(0)

	sched.Submit(types.SourceBundle{Script: "a"})
	require.True(t, cycle(sched))

	assert.Equal(t, []string{"clear", "load:1"}, sink.Ops())
	assert.Equal(t, []string{"a"}, frame.Docs())
}

func TestSchedulerSkipsUnchangedBundle(t *testing.T) {
	sched, frame, _ := newTestScheduler(0)

	sched.Submit(types.SourceBundle{Script: "a"})
	require.True(t, cycle(sched))

	sched.Submit(types.SourceBundle{Script: "a"})
	assert.False(t, cycle(sched))

	sched.Submit(types.SourceBundle{Script: "b"})
	assert.True(t, cycle(sched))
	assert.Equal(t, []string{"a", "b"}, frame.Docs())
}

func TestSchedulerLatestSubmitWins(t *testing.T) {
	sched, frame, _ := newTestScheduler(0)

	sched.Submit(types.SourceBundle{Script: "a"})
	sched.Submit(types.SourceBundle{Script: "b"})
	sched.Submit(types.SourceBundle{Script: "c"})

	require.True(t, cycle(sched))
	assert.Equal(t, []string{"c"}, frame.Docs())
}

func TestSchedulerForcedRebuild(t *testing.T) {
	sched, frame, _ := newTestScheduler(time.Hour)

	sched.Rebuild()
	require.True(t, cycle(sched), "forced rebuild ignores debounce")

	sched.Submit(types.SourceBundle{Script: "a"})
	assert.False(t, cycle(sched), "edits wait for the debounce")

	sched.Rebuild()
	require.True(t, cycle(sched))

	sched.Rebuild()
	require.True(t, cycle(sched), "forced rebuild of an unchanged bundle")

	assert.Equal(t, []string{"", "a", "a"}, frame.Docs())
}

func TestSchedulerRetriesAfterCommitFailure(t *testing.T) {
	sched, frame, sink := newTestScheduler(0)

	frame.setFail(true)
	sched.Submit(types.SourceBundle{Script: "a"})
	assert.False(t, cycle(sched))

	frame.setFail(false)
	sched.Submit(types.SourceBundle{Script: "a"})
	assert.True(t, cycle(sched), "an equal bundle is retried after a failure")

	assert.Equal(t, []string{"clear", "load-failed", "clear", "load:1"}, sink.Ops())
}

func TestSchedulerDebounceKeepsLastEdit(t *testing.T) {
	sched, frame, _ := newTestScheduler(30 * time.Millisecond)
	defer sched.stop()

	for _, s := range []string{"a", "ab", "abc"} {
		sched.Submit(types.SourceBundle{Script: s})
		assert.False(t, sched.collect(time.Now()))
		time.Sleep(5 * time.Millisecond)
	}

	require.NotNil(t, sched.Due())
	select {
	case <-sched.Due():
		sched.fired()
	case <-time.After(time.Second):
		t.Fatal("debounce timer never fired")
	}
	assert.Nil(t, sched.Due())

	_, attempted, err := sched.build(context.Background())
	require.True(t, attempted)
	require.NoError(t, err)
	assert.Equal(t, []string{"abc"}, frame.Docs())
}

func TestSchedulerMaxWaitBoundsDebounce(t *testing.T) {
	sched, _, _ := newTestScheduler(time.Second)
	sched.maxWait = 2 * time.Second

	start := time.Now()
	sched.Submit(types.SourceBundle{Script: "a"})
	assert.False(t, sched.collect(start))

	sched.Submit(types.SourceBundle{Script: "b"})
	assert.True(t, sched.collect(start.Add(3*time.Second)), "edits past maxWait rebuild immediately")
}
