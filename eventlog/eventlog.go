package eventlog

import "time"

// Kind ...
type Kind string

// Event kinds
const (
	KindAllocation   Kind = "ALLOCATION"
	KindDeallocation Kind = "DEALLOCATION"
	KindPageFault    Kind = "PAGE_FAULT"
	KindError        Kind = "ERROR"
)

// Event ...
type Event struct {
	Kind      Kind
	ProcessID int
	Detail    string
	Timestamp time.Time
}

// Log is a fixed capacity ring of events, the oldest event is overwritten first
type Log struct {
	events []Event
	next   int // next is the slot the next Append writes to
	size   int
	total  uint64
}

// New ...
func New(capacity int) *Log {
	if capacity <= 0 {
		panic("capacity must > 0")
	}
	return &Log{
		events: make([]Event, capacity),
	}
}

// Append ...
func (l *Log) Append(e Event) {
	l.events[l.next] = e
	l.next = (l.next + 1) % len(l.events)
	if l.size < len(l.events) {
		l.size++
	}
	l.total++
}

// Len returns the number of retained events
func (l *Log) Len() int {
	return l.size
}

// Cap ...
func (l *Log) Cap() int {
	return len(l.events)
}

// Total returns the number of events ever appended
func (l *Log) Total() uint64 {
	return l.total
}

// Recent returns up to limit most recent events, oldest first
func (l *Log) Recent(limit int) []Event {
	if limit > l.size {
		limit = l.size
	}
	if limit <= 0 {
		return nil
	}

	result := make([]Event, 0, limit)
	start := l.next - limit
	if start < 0 {
		start += len(l.events)
	}
	for i := 0; i < limit; i++ {
		result = append(result, l.events[(start+i)%len(l.events)])
	}
	return result
}

// Reset drops every retained event
func (l *Log) Reset() {
	for i := range l.events {
		l.events[i] = Event{}
	}
	l.next = 0
	l.size = 0
	l.total = 0
}
