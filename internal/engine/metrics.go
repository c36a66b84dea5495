package engine

import "time"

// Recorder receives engine measurements. monitoring.Metrics implements it.
type Recorder interface {
	RebuildStarted(trigger string)
	RebuildFailed(reason string)
	RebuildSkipped()
	LoadDuration(d time.Duration)
	ConsoleEvent(level string)
	MessageDropped(reason string)
	LiveInstances(n int)
}

type nopRecorder struct{}

func (nopRecorder) RebuildStarted(string)      {}
func (nopRecorder) RebuildFailed(string)       {}
func (nopRecorder) RebuildSkipped()            {}
func (nopRecorder) LoadDuration(time.Duration) {}
func (nopRecorder) ConsoleEvent(string)        {}
func (nopRecorder) MessageDropped(string)      {}
func (nopRecorder) LiveInstances(int)          {}
