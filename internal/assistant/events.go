package assistant

import (
	"sync"
	"time"
)

// EventKind names a state transition.
type EventKind string

const (
	EventPhaseChanged             EventKind = "phase_changed"
	EventSessionReset             EventKind = "session_reset"
	EventSubmitRejected           EventKind = "submit_rejected"
	EventMessageAppended          EventKind = "message_appended"
	EventMessageUpdated           EventKind = "message_updated"
	EventStatusChanged            EventKind = "message_status_changed"
	EventThinkingStarted          EventKind = "thinking_started"
	EventThinkingStopped          EventKind = "thinking_stopped"
	EventStreamStarted            EventKind = "stream_started"
	EventStreamCompleted          EventKind = "stream_completed"
	EventTurnCompleted            EventKind = "turn_completed"
	EventNotificationAdded        EventKind = "notification_added"
	EventNotificationAcknowledged EventKind = "notification_acknowledged"
	EventReactionChanged          EventKind = "reaction_changed"
	EventInputChanged             EventKind = "input_changed"
	EventDemoStarted              EventKind = "demo_started"
	EventDemoCompleted            EventKind = "demo_completed"
)

// Outcome is how a turn ended.
type Outcome string

const (
	OutcomeServed    Outcome = "served"
	OutcomeDeflected Outcome = "deflected"
	OutcomeFallback  Outcome = "fallback"
	OutcomeAbandoned Outcome = "abandoned"
)

// TurnInfo summarizes a completed turn.
type TurnInfo struct {
	Intent     Intent         `json:"intent"`
	Outcome    Outcome        `json:"outcome"`
	Phase      Phase          `json:"phase"`
	Duration   time.Duration  `json:"duration_ns"`
	Escalation EscalationKind `json:"escalation,omitempty"`
}

// Event is one ordered transition plus the state right after it.
type Event struct {
	Seq            uint64         `json:"seq"`
	Kind           EventKind      `json:"kind"`
	At             time.Time      `json:"at"`
	MessageID      int64          `json:"message_id,omitempty"`
	NotificationID int64          `json:"notification_id,omitempty"`
	Escalation     EscalationKind `json:"escalation,omitempty"`
	Reason         string         `json:"reason,omitempty"`
	Turn           *TurnInfo      `json:"turn,omitempty"`
	Snapshot       Snapshot       `json:"snapshot"`
}

// Sink receives every transition in order. Publish runs with the engine lock
// held: it must return quickly and must not call back into the Engine.
type Sink interface {
	Publish(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// Publish implements Sink.
func (f SinkFunc) Publish(ev Event) { f(ev) }

// Broadcaster fans events out to channel subscribers. A subscriber that falls
// behind loses its oldest buffered events, never the newest.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber. The returned cancel func closes the channel.
func (b *Broadcaster) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Publish implements Sink.
func (b *Broadcaster) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		offer(ch, ev)
	}
}

// Len reports the number of live subscribers.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func offer(ch chan Event, ev Event) {
	for {
		select {
		case ch <- ev:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
