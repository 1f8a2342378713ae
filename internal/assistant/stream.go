package assistant

import "strings"

// StreamState is the state of a streaming text reveal.
type StreamState int

const (
	StreamIdle StreamState = iota
	StreamStreaming
)

func (s StreamState) String() string {
	if s == StreamStreaming {
		return "streaming"
	}
	return "idle"
}

// StreamReveal reveals a reply one space-separated word at a time.
// It moves idle -> streaming on Start and back to idle when the last word is
// revealed. There is no cancel transition.
type StreamReveal struct {
	words []string
	next  int
	state StreamState
}

// NewStreamReveal prepares text for word-by-word reveal.
func NewStreamReveal(text string) *StreamReveal {
	return &StreamReveal{words: strings.Split(text, " ")}
}

// Start enters the streaming state. It reports false if already started.
func (r *StreamReveal) Start() bool {
	if r.state == StreamStreaming || r.next > 0 {
		return false
	}
	r.state = StreamStreaming
	return true
}

// State returns the current state.
func (r *StreamReveal) State() StreamState {
	return r.state
}

// Done reports whether every word has been revealed.
func (r *StreamReveal) Done() bool {
	return r.next >= len(r.words)
}

// Next reveals one more word and returns the visible prefix.
func (r *StreamReveal) Next() string {
	if r.state != StreamStreaming {
		return r.Visible()
	}
	if r.next < len(r.words) {
		r.next++
	}
	if r.Done() {
		r.state = StreamIdle
	}
	return r.Visible()
}

// Visible returns the revealed prefix.
func (r *StreamReveal) Visible() string {
	return strings.Join(r.words[:r.next], " ")
}
