package types

import "time"

// Level is the severity of a console event
type Level string

const (
	LevelLog   Level = "log"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// TimeOfDayLayout renders receipt time the way the console panel shows it
const TimeOfDayLayout = "3:04:05 PM"

// ParseLevel validates a level name received from the sandbox
func ParseLevel(s string) (Level, bool) {
	switch Level(s) {
	case LevelLog, LevelWarn, LevelError:
		return Level(s), true
	}
	return "", false
}

// ConsoleEvent is one entry of the console log
type ConsoleEvent struct {
	Level      Level     `json:"level"`
	Message    string    `json:"message"`
	Timestamp  string    `json:"timestamp"`
	ReceivedAt time.Time `json:"received_at"`
}

// NewConsoleEvent stamps an event with its receipt time
func NewConsoleEvent(level Level, message string, received time.Time) ConsoleEvent {
	return ConsoleEvent{
		Level:      level,
		Message:    message,
		Timestamp:  received.Format(TimeOfDayLayout),
		ReceivedAt: received,
	}
}
