// Package assistant implements the scripted radiology assistant: an ordered
// keyword intent classifier, a phase-gated response orchestrator that streams
// canned replies, an urgent-escalation side channel and a demo script runner.
//
// All state lives in one Engine. Every transition is published, in order, to
// the registered Sinks together with a full Snapshot.
package assistant

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/radiology-assistant/pkg/logging"
)

// AlertSink receives urgent notifications once they reach the dashboard.
// Implementations must not block.
type AlertSink interface {
	Escalated(ctx context.Context, n Notification)
}

// Engine owns one conversation session.
type Engine struct {
	clock      Clock
	classifier IntentClassifier
	timing     Timing
	features   Features
	alerts     AlertSink
	logger     *logging.Logger
	tracer     trace.Tracer

	mu         sync.Mutex
	state      conversationState
	sinks      []Sink
	seq        uint64
	epoch      uint64
	sessionCtx context.Context
	cancel     context.CancelFunc
	nextMsgID  int64
	nextNoteID int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the real clock.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithClassifier overrides the default keyword classifier.
func WithClassifier(c IntentClassifier) Option {
	return func(e *Engine) {
		if c != nil {
			e.classifier = c
		}
	}
}

// WithTiming overrides DefaultTiming.
func WithTiming(t Timing) Option {
	return func(e *Engine) {
		e.timing = t
	}
}

// WithFeatures overrides DefaultFeatures.
func WithFeatures(f Features) Option {
	return func(e *Engine) {
		e.features = f
	}
}

// WithAlerts registers the escalation side channel.
func WithAlerts(a AlertSink) Option {
	return func(e *Engine) {
		e.alerts = a
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithSinks registers display sinks at construction.
func WithSinks(sinks ...Sink) Option {
	return func(e *Engine) {
		for _, s := range sinks {
			if s != nil {
				e.sinks = append(e.sinks, s)
			}
		}
	}
}

// WithPhase sets the starting phase. Invalid values are ignored.
func WithPhase(p Phase) Option {
	return func(e *Engine) {
		if p.Valid() {
			e.state.phase = p
		}
	}
}

// NewEngine creates an Engine in a fresh session at phase 3 unless configured otherwise.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		clock:      RealClock{},
		classifier: NewClassifier(),
		timing:     DefaultTiming(),
		features:   DefaultFeatures(),
		logger:     logging.Default(),
		tracer:     otel.Tracer("radassist/assistant"),
		state:      conversationState{phase: PhaseThree},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.sessionCtx, e.cancel = context.WithCancel(context.Background())
	e.state = e.freshState(e.state.phase)
	return e
}

// AddSink registers a display sink. It does not receive past events.
func (e *Engine) AddSink(s Sink) {
	if s == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sinks = append(e.sinks, s)
}

// Snapshot returns the current observable state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.snapshot(e.features)
}

// Phase returns the current phase.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.phase
}

// Features returns the enabled optional surfaces.
func (e *Engine) Features() Features {
	return e.features
}

// Timing returns the engine's delays.
func (e *Engine) Timing() Timing {
	return e.timing
}

// Clock returns the engine's clock.
func (e *Engine) Clock() Clock {
	return e.clock
}

// SetPhase switches the phase and starts a fresh session: messages and
// notifications are cleared and the counters return to baseline. Any turn or
// demo still in flight is abandoned.
func (e *Engine) SetPhase(p Phase) error {
	if !p.Valid() {
		return fmt.Errorf("%w: got %d", ErrInvalidPhase, int(p))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked(p, EventPhaseChanged)
	e.logger.Info("assistant: phase changed", "phase", int(p), "session_id", e.state.sessionID)
	return nil
}

// Reset starts a fresh session at the current phase.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked(e.state.phase, EventSessionReset)
}

// Close cancels any in-flight work.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.epoch++
	e.cancel()
	e.stopPendingLocked()
}

// Acknowledge removes a notification from the dashboard.
func (e *Engine) Acknowledge(id int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, n := range e.state.notifications {
		if n.ID != id {
			continue
		}
		e.state.notifications = append(e.state.notifications[:i:i], e.state.notifications[i+1:]...)
		e.emitLocked(Event{Kind: EventNotificationAcknowledged, NotificationID: id, Escalation: n.Kind})
		return nil
	}
	return ErrNotificationNotFound
}

// React toggles a thumbs up or down on an agent message. Up and down are
// mutually exclusive; pressing the active one clears it.
func (e *Engine) React(messageID int64, kind ReactionKind) error {
	if !e.features.Reactions {
		return fmt.Errorf("%w: reactions", ErrFeatureDisabled)
	}
	if kind != ReactionUp && kind != ReactionDown {
		return fmt.Errorf("assistant: unknown reaction %q", kind)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	msg := e.state.message(messageID)
	if msg == nil {
		return ErrMessageNotFound
	}
	if msg.Sender != SenderAgent {
		return ErrNotReactable
	}
	prev := Reaction{}
	if msg.Reaction != nil {
		prev = *msg.Reaction
	}
	next := Reaction{}
	if kind == ReactionUp {
		next.Up = !prev.Up
	} else {
		next.Down = !prev.Down
	}
	msg.Reaction = &next
	e.emitLocked(Event{Kind: EventReactionChanged, MessageID: messageID})
	return nil
}

// Submit sends clinician input and runs the whole agent turn before returning.
// While another turn is in flight the call is a no-op returning ErrTurnInFlight:
// no message is created and the classifier is not consulted.
func (e *Engine) Submit(ctx context.Context, text string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	t, err := e.begin(ctx, text, 0)
	if err != nil {
		return err
	}
	e.run(t)
	return nil
}

// SubmitAsync accepts or rejects input synchronously and runs the turn in the
// background.
func (e *Engine) SubmitAsync(text string) error {
	t, err := e.begin(context.Background(), text, 0)
	if err != nil {
		return err
	}
	go e.run(t)
	return nil
}

func (e *Engine) freshState(p Phase) conversationState {
	return conversationState{
		sessionID: uuid.NewString(),
		phase:     p,
		stats:     BaselineStats(),
	}
}

// resetLocked abandons the current session and starts a new one. init runs on
// the fresh state before the event is emitted.
func (e *Engine) resetLocked(p Phase, kind EventKind, init ...func(*conversationState)) {
	e.epoch++
	e.cancel()
	e.stopPendingLocked()
	e.sessionCtx, e.cancel = context.WithCancel(context.Background())
	e.state = e.freshState(p)
	for _, fn := range init {
		fn(&e.state)
	}
	e.emitLocked(Event{Kind: kind})
}

func (e *Engine) stopPendingLocked() {
	for _, t := range e.state.pending {
		t.Stop()
	}
	e.state.pending = nil
}

// emitLocked stamps ev and hands it to every sink in registration order.
func (e *Engine) emitLocked(ev Event) {
	e.seq++
	ev.Seq = e.seq
	ev.At = e.clock.Now()
	ev.Snapshot = e.state.snapshot(e.features)
	for _, s := range e.sinks {
		e.publishTo(s, ev)
	}
}

func (e *Engine) publishTo(s Sink, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("assistant: sink panicked", "event", string(ev.Kind), "panic", fmt.Sprint(r))
		}
	}()
	s.Publish(ev)
}

// apply mutates state for the session identified by epoch and publishes the
// resulting event. It reports false, changing nothing, once that session has
// been reset.
func (e *Engine) apply(epoch uint64, kind EventKind, fn func(s *conversationState, ev *Event)) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if epoch != e.epoch {
		return false
	}
	ev := Event{Kind: kind}
	if fn != nil {
		fn(&e.state, &ev)
	}
	e.emitLocked(ev)
	return true
}

// begin validates and registers a submit. demoEpoch is non-zero for demo
// submits, which are only accepted for the demo's own session.
func (e *Engine) begin(ctx context.Context, text string, demoEpoch uint64) (*turn, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	fromDemo := demoEpoch != 0
	switch {
	case fromDemo && demoEpoch != e.epoch:
		return nil, ErrSessionReset
	case !fromDemo && e.state.demoRunning:
		e.rejectLocked("demo_running")
		return nil, ErrDemoRunning
	case e.state.busy():
		e.rejectLocked("turn_in_flight")
		return nil, ErrTurnInFlight
	}

	intent := e.classifier.Classify(text)
	e.nextMsgID++
	msg := Message{
		ID:        e.nextMsgID,
		Sender:    SenderUser,
		Text:      text,
		Timestamp: e.clock.Now(),
		Status:    StatusSent,
	}
	e.state.turnActive = true
	e.state.messages = append(e.state.messages, msg)
	if fromDemo {
		e.state.inputText = ""
	}

	turnCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(e.sessionCtx, cancel)
	t := &turn{
		ctx:       turnCtx,
		cancel:    cancel,
		stop:      stop,
		epoch:     e.epoch,
		sessionID: e.state.sessionID,
		userMsgID: msg.ID,
		text:      text,
		intent:    intent,
		phase:     e.state.phase,
		started:   e.clock.Now(),
	}
	e.emitLocked(Event{Kind: EventMessageAppended, MessageID: msg.ID})
	return t, nil
}

func (e *Engine) rejectLocked(reason string) {
	e.logger.Debug("assistant: submit rejected", "reason", reason, "session_id", e.state.sessionID)
	e.emitLocked(Event{Kind: EventSubmitRejected, Reason: reason})
}

func (e *Engine) dispatchAlert(n Notification) {
	if e.alerts == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Debug("assistant: alert sink panicked", "notification_id", n.ID, "panic", fmt.Sprint(r))
		}
	}()
	e.alerts.Escalated(context.Background(), n)
}
