package console

import (
	"sync"

	"github.com/GriffinCanCode/livebox/internal/shared/types"
)

// Sink receives console events from the engine
type Sink interface {
	Append(event types.ConsoleEvent)
	Clear()
}

// UpdateKind tells subscribers what changed
type UpdateKind string

const (
	UpdateAppend UpdateKind = "append"
	UpdateClear  UpdateKind = "clear"
	// UpdateReset replaces everything a subscriber holds with Entries. It is
	// sent to a subscriber that fell behind instead of the updates it missed.
	UpdateReset UpdateKind = "reset"
)

// Update is one change to the log
type Update struct {
	Kind    UpdateKind           `json:"kind"`
	Event   *types.ConsoleEvent  `json:"event,omitempty"`
	Entries []types.ConsoleEvent `json:"entries,omitempty"`
}

// Log is an in-memory, ordered console log
type Log struct {
	mu       sync.RWMutex
	entries  []types.ConsoleEvent // Protected by mu
	capacity int
	trimmed  int
	subs     map[int]chan Update // Protected by mu
	nextSub  int
	dropped  int
}

// NewLog creates a log. A capacity of zero keeps every entry; otherwise the
// oldest entries are discarded once the cap is reached.
func NewLog(capacity int) *Log {
	if capacity < 0 {
		capacity = 0
	}
	return &Log{
		capacity: capacity,
		subs:     make(map[int]chan Update),
	}
}

// Append adds an event at the end of the log
func (l *Log) Append(event types.ConsoleEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.capacity > 0 && len(l.entries) >= l.capacity {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:len(l.entries)-1]
		l.trimmed++
	}
	l.entries = append(l.entries, event)
	l.publish(Update{Kind: UpdateAppend, Event: &event})
}

// Clear removes every entry
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = nil
	l.trimmed = 0
	l.publish(Update{Kind: UpdateClear})
}

// Entries returns a copy of the log in append order
func (l *Log) Entries() []types.ConsoleEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshot()
}

// snapshot must be called with mu held
func (l *Log) snapshot() []types.ConsoleEvent {
	out := make([]types.ConsoleEvent, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Stats reports entry and subscriber counts
func (l *Log) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return Stats{
		Entries:     len(l.entries),
		Capacity:    l.capacity,
		Trimmed:     l.trimmed,
		Subscribers: len(l.subs),
		Dropped:     l.dropped,
	}
}

// Stats is a point-in-time view of the log
type Stats struct {
	Entries     int `json:"entries"`
	Capacity    int `json:"capacity"`
	Trimmed     int `json:"trimmed"`
	Subscribers int `json:"subscribers"`
	Dropped     int `json:"dropped_updates"`
}

// Subscribe returns a feed of updates and a cancel function. Writers never
// block: a subscriber whose buffer is full has its backlog replaced by a
// single UpdateReset carrying the current entries.
func (l *Log) Subscribe(buffer int) (<-chan Update, func()) {
	ch, _, cancel := l.SubscribeWithBacklog(buffer)
	return ch, cancel
}

// SubscribeWithBacklog is Subscribe plus the entries present at the moment
// of subscribing. Every later change arrives on the feed and none is also
// part of the backlog.
func (l *Log) SubscribeWithBacklog(buffer int) (<-chan Update, []types.ConsoleEvent, func()) {
	if buffer <= 0 {
		buffer = 1
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextSub
	l.nextSub++
	ch := make(chan Update, buffer)
	l.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.subs, id)
			close(ch)
		})
	}
	return ch, l.snapshot(), cancel
}

// publish must be called with mu held, after the change is applied
func (l *Log) publish(u Update) {
	var reset *Update
	for _, ch := range l.subs {
		select {
		case ch <- u:
			continue
		default:
		}

		l.dropped++
		if reset == nil {
			reset = &Update{Kind: UpdateReset, Entries: l.snapshot()}
		}
		// Only publishers send and they hold mu, so once drained the
		// buffer has room for the reset.
	drain:
		for {
			select {
			case <-ch:
			default:
				break drain
			}
		}
		ch <- *reset
	}
}
