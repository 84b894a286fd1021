package pipeline

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Event statuses emitted on the progress stream.
const (
	StatusStarted   = "started"
	StatusCompleted = "completed"
	StatusDegraded  = "degraded"
	StatusFailed    = "failed"
	StatusInfo      = "info"
)

// Event is one structured progress entry: the only channel a front-end needs
// to render a live view of a run.
type Event struct {
	Time    time.Time `json:"time"`
	Step    string    `json:"step"`
	Status  string    `json:"status"`
	Message string    `json:"message"`
}

const maxBufferedEvents = 200

// Stream fans events out to the run log, an in-memory ring for pollers, and
// any subscribed channels. Safe for concurrent use.
type Stream struct {
	mu     sync.Mutex
	ring   []Event
	subs   map[int]chan Event
	nextID int
	sink   io.Writer
	closed bool
}

// NewStream creates a stream whose formatted lines are appended to sink
// (typically the run's pipeline.log). sink may be nil.
func NewStream(sink io.Writer) *Stream {
	return &Stream{subs: make(map[int]chan Event), sink: sink}
}

// Emit records the event and delivers it to all subscribers. Slow
// subscribers lose events rather than stalling the pipeline.
func (s *Stream) Emit(step, status, message string) {
	ev := Event{Time: time.Now(), Step: step, Status: status, Message: message}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.ring = append(s.ring, ev)
	if len(s.ring) > maxBufferedEvents {
		s.ring = s.ring[len(s.ring)-maxBufferedEvents:]
	}
	if s.sink != nil {
		fmt.Fprintf(s.sink, "%s [%s] %s %s\n", ev.Time.Format("2006-01-02 15:04:05"), ev.Step, ev.Status, ev.Message)
	}
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe returns a channel receiving future events plus a cancel func.
// The channel is closed on cancel or when the stream closes.
func (s *Stream) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribeLocked()
}

// SubscribeWithSnapshot attaches a subscriber and returns the buffered
// history in the same locked step, so an event emitted around attach time
// lands in exactly one of the two.
func (s *Stream) SubscribeWithSnapshot() ([]Event, <-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := make([]Event, len(s.ring))
	copy(history, s.ring)
	ch, cancel := s.subscribeLocked()
	return history, ch, cancel
}

func (s *Stream) subscribeLocked() (<-chan Event, func()) {
	id := s.nextID
	s.nextID++
	ch := make(chan Event, maxBufferedEvents)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Snapshot copies the buffered events for pollers.
func (s *Stream) Snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.ring))
	copy(out, s.ring)
	return out
}

// Close ends delivery and closes all subscriber channels.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
