package assistant

import (
	"time"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAgent Sender = "agent"
)

// DeliveryStatus is the read-receipt state of a user message.
type DeliveryStatus string

const (
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusRead      DeliveryStatus = "read"
)

func (s DeliveryStatus) rank() int {
	switch s {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	default:
		return 0
	}
}

// Reaction is the clinician's thumbs up/down on an agent message.
// At most one of Up and Down is set.
type Reaction struct {
	Up   bool `json:"up"`
	Down bool `json:"down"`
}

// ReactionKind selects which thumb was pressed.
type ReactionKind string

const (
	ReactionUp   ReactionKind = "up"
	ReactionDown ReactionKind = "down"
)

// Message is one chat bubble.
type Message struct {
	ID        int64          `json:"id"`
	Sender    Sender         `json:"sender"`
	Text      string         `json:"text"`
	Timestamp time.Time      `json:"timestamp"`
	Status    DeliveryStatus `json:"status,omitempty"`
	Data      *DataCard      `json:"data,omitempty"`
	Reaction  *Reaction      `json:"reaction,omitempty"`
}

// Severity of a dashboard notification. Only urgent is produced.
type Severity string

const SeverityUrgent Severity = "urgent"

// Notification is an escalation shown on the radiologist dashboard.
type Notification struct {
	ID        int64          `json:"id"`
	Severity  Severity       `json:"severity"`
	Kind      EscalationKind `json:"kind"`
	Text      string         `json:"text"`
	Origin    string         `json:"origin"`
	Contact   string         `json:"contact"`
	Timestamp time.Time      `json:"timestamp"`
}

// Stats are the dashboard's shift counters.
type Stats struct {
	Resolved  int `json:"resolved"`
	Escalated int `json:"escalated"`
}

// Baseline counters a fresh shift starts from.
const (
	BaselineResolved  = 47
	BaselineEscalated = 3
)

// BaselineStats returns the counters every reset restores.
func BaselineStats() Stats {
	return Stats{Resolved: BaselineResolved, Escalated: BaselineEscalated}
}

// Features toggles the optional surfaces that used to be separate screen variants.
type Features struct {
	Reactions  bool `json:"reactions"`
	Sidebar    bool `json:"sidebar"`
	VoiceInput bool `json:"voice_input"`
}

// DefaultFeatures enables reactions and the worklist sidebar.
func DefaultFeatures() Features {
	return Features{Reactions: true, Sidebar: true}
}

// Snapshot is the full observable state handed to display sinks.
type Snapshot struct {
	SessionID     string         `json:"session_id"`
	Phase         Phase          `json:"phase"`
	Messages      []Message      `json:"messages"`
	Notifications []Notification `json:"notifications"`
	Thinking      Source         `json:"thinking,omitempty"`
	ThinkingLabel string         `json:"thinking_label,omitempty"`
	Streaming     bool           `json:"streaming"`
	InputText     string         `json:"input_text"`
	InputEnabled  bool           `json:"input_enabled"`
	DemoRunning   bool           `json:"demo_running"`
	Stats         Stats          `json:"stats"`
	Features      Features       `json:"features"`
}

// conversationState is owned by the Engine and only touched under its lock.
type conversationState struct {
	sessionID     string
	phase         Phase
	messages      []Message
	notifications []Notification
	stats         Stats
	thinking      Source
	streaming     bool
	inputText     string
	turnActive    bool
	demoRunning   bool
	pending       []Timer
}

func (s *conversationState) inputEnabled() bool {
	return !s.turnActive && !s.streaming && s.thinking == "" && !s.demoRunning
}

func (s *conversationState) busy() bool {
	return s.turnActive || s.streaming || s.thinking != ""
}

func (s *conversationState) message(id int64) *Message {
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].ID == id {
			return &s.messages[i]
		}
	}
	return nil
}

func (s *conversationState) snapshot(features Features) Snapshot {
	snap := Snapshot{
		SessionID:     s.sessionID,
		Phase:         s.phase,
		Messages:      make([]Message, len(s.messages)),
		Notifications: make([]Notification, len(s.notifications)),
		Thinking:      s.thinking,
		Streaming:     s.streaming,
		InputText:     s.inputText,
		InputEnabled:  s.inputEnabled(),
		DemoRunning:   s.demoRunning,
		Stats:         s.stats,
		Features:      features,
	}
	if s.thinking != "" {
		snap.ThinkingLabel = s.thinking.Label()
	}
	for i, m := range s.messages {
		if m.Reaction != nil {
			r := *m.Reaction
			m.Reaction = &r
		}
		snap.Messages[i] = m
	}
	copy(snap.Notifications, s.notifications)
	return snap
}

// Message returns the message with id from the snapshot.
func (s Snapshot) Message(id int64) (Message, bool) {
	for _, m := range s.Messages {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}

// Count returns how many messages sender authored.
func (s Snapshot) Count(sender Sender) int {
	n := 0
	for _, m := range s.Messages {
		if m.Sender == sender {
			n++
		}
	}
	return n
}
