package assistanttest

import (
	"sync"

	"github.com/wolfman30/radiology-assistant/internal/assistant"
)

// Recorder is a Sink that keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events []assistant.Event
}

var _ assistant.Sink = (*Recorder)(nil)

// Publish implements assistant.Sink.
func (r *Recorder) Publish(ev assistant.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []assistant.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]assistant.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Kinds returns the recorded event kinds in order.
func (r *Recorder) Kinds() []assistant.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]assistant.EventKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

// Count returns how many events of kind were recorded.
func (r *Recorder) Count(kind assistant.EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

// Last returns the most recent event of kind.
func (r *Recorder) Last(kind assistant.EventKind) (assistant.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind == kind {
			return r.events[i], true
		}
	}
	return assistant.Event{}, false
}

// Reset drops everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// CountingClassifier wraps a classifier and counts calls.
type CountingClassifier struct {
	Inner assistant.IntentClassifier

	mu    sync.Mutex
	calls int
}

// Classify implements assistant.IntentClassifier.
func (c *CountingClassifier) Classify(input string) assistant.Intent {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	inner := c.Inner
	if inner == nil {
		inner = assistant.NewClassifier()
	}
	return inner.Classify(input)
}

// Calls returns how many times Classify ran.
func (c *CountingClassifier) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
