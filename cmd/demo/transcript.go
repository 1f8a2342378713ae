package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/radiology-assistant/internal/assistant"
)

// transcript prints the conversation as it settles: user messages when sent,
// agent messages once streaming completes, notifications when raised.
type transcript struct {
	mu      sync.Mutex
	out     io.Writer
	started time.Time
	indent  string
}

func newTranscript(out io.Writer) *transcript {
	return &transcript{out: out, indent: "    "}
}

// Publish implements assistant.Sink.
func (t *transcript) Publish(ev assistant.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started.IsZero() {
		t.started = ev.At
	}
	at := ev.At.Sub(t.started).Truncate(100 * time.Millisecond)

	switch ev.Kind {
	case assistant.EventDemoStarted:
		fmt.Fprintf(t.out, "=== Demo: %s ===\n", ev.Snapshot.Phase)
	case assistant.EventPhaseChanged:
		fmt.Fprintf(t.out, "=== %s ===\n", ev.Snapshot.Phase)
	case assistant.EventMessageAppended:
		m, ok := ev.Snapshot.Message(ev.MessageID)
		if ok && m.Sender == assistant.SenderUser {
			fmt.Fprintf(t.out, "[%6s] Clinician: %s\n", at, m.Text)
		}
	case assistant.EventThinkingStarted:
		fmt.Fprintf(t.out, "[%6s] %s%s\n", at, t.indent, ev.Snapshot.ThinkingLabel)
	case assistant.EventStreamCompleted:
		m, ok := ev.Snapshot.Message(ev.MessageID)
		if !ok {
			return
		}
		fmt.Fprintf(t.out, "[%6s] Assistant: %s\n", at, m.Text)
		t.card(m.Data)
	case assistant.EventNotificationAdded:
		for _, n := range ev.Snapshot.Notifications {
			if n.ID == ev.NotificationID {
				fmt.Fprintf(t.out, "[%6s] !! %s\n%s%s | %s\n", at, n.Text, t.indent, n.Origin, n.Contact)
			}
		}
	case assistant.EventSubmitRejected:
		fmt.Fprintf(t.out, "[%6s] (input rejected: %s)\n", at, ev.Reason)
	case assistant.EventDemoCompleted:
		s := ev.Snapshot.Stats
		fmt.Fprintf(t.out, "=== Done: AI Resolved %d | Escalated %d ===\n", s.Resolved, s.Escalated)
	}
}

func (t *transcript) card(d *assistant.DataCard) {
	if d == nil {
		return
	}
	width := 0
	for _, f := range d.Fields {
		if len(f.Key) > width {
			width = len(f.Key)
		}
	}
	fmt.Fprintf(t.out, "%s┌ %s\n", t.indent, d.Source)
	for _, f := range d.Fields {
		fmt.Fprintf(t.out, "%s│ %s%s  %s\n", t.indent, f.Key, strings.Repeat(" ", width-len(f.Key)), f.Value)
	}
}
