package assistant

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// turn is one agent response in flight.
type turn struct {
	ctx       context.Context
	cancel    context.CancelFunc
	stop      func() bool
	epoch     uint64
	sessionID string
	userMsgID int64
	text      string
	intent    Intent
	phase     Phase
	started   time.Time
}

// errStale means the turn's session was reset underneath it.
var errStale = errors.New("assistant: stale session")

func (e *Engine) run(t *turn) {
	defer t.cancel()
	defer t.stop()

	ctx, span := e.tracer.Start(t.ctx, "assistant.turn", trace.WithAttributes(
		attribute.String("assistant.intent", string(t.intent)),
		attribute.Int("assistant.phase", int(t.phase)),
		attribute.String("assistant.session_id", t.sessionID),
	))
	defer span.End()

	info, resolved, err := e.respond(ctx, t)
	if err != nil {
		resolved = false
		info.Outcome = OutcomeAbandoned
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.String("assistant.outcome", string(info.Outcome)))
	info.Duration = e.clock.Now().Sub(t.started)

	finished := e.apply(t.epoch, EventTurnCompleted, func(s *conversationState, ev *Event) {
		s.turnActive = false
		s.thinking = ""
		s.streaming = false
		if resolved {
			s.stats.Resolved++
		}
		ev.Turn = &info
	})
	if !finished {
		e.logger.Debug("assistant: turn abandoned by reset", "intent", string(t.intent), "session_id", t.sessionID)
		return
	}
	e.logger.Info("assistant: turn completed",
		"intent", string(t.intent),
		"outcome", string(info.Outcome),
		"phase", int(t.phase),
		"session_id", t.sessionID,
		"duration_ms", info.Duration.Milliseconds(),
	)
}

// respond runs the scripted pipeline: read receipts, phase gate, thinking
// indicator, agent message with optional data card, streamed reply and the
// outcome's side effect. It reports whether the turn counts as resolved.
func (e *Engine) respond(ctx context.Context, t *turn) (TurnInfo, bool, error) {
	info := TurnInfo{Intent: t.intent, Phase: t.phase}

	if err := e.receipts(ctx, t); err != nil {
		return info, false, err
	}

	if !Servable(t.intent, t.phase) {
		info.Outcome = OutcomeDeflected
		msgID, err := e.appendAgent(t, nil)
		if err != nil {
			return info, false, err
		}
		if err := e.stream(ctx, t, msgID, deflectionReply(t.intent, t.phase)); err != nil {
			return info, false, err
		}
		return info, true, nil
	}

	reply := replyFor(t.intent)
	if t.intent == IntentEscalation {
		info.Escalation = ClassifyEscalation(t.text)
		reply.Text = escalationReply(info.Escalation)
	}

	if err := e.think(ctx, t, reply.Source, e.timing.ThinkingFor(t.intent)); err != nil {
		return info, false, err
	}
	msgID, err := e.appendAgent(t, reply.Card)
	if err != nil {
		return info, false, err
	}
	if err := e.stream(ctx, t, msgID, reply.Text); err != nil {
		return info, false, err
	}

	switch {
	case t.intent == IntentEscalation:
		info.Outcome = OutcomeServed
		return info, false, e.scheduleNotification(t, info.Escalation)
	case reply.Resolve:
		info.Outcome = OutcomeServed
		return info, true, nil
	default:
		info.Outcome = OutcomeFallback
		return info, false, nil
	}
}

func (e *Engine) sleep(ctx context.Context, d time.Duration) error {
	return e.clock.Sleep(ctx, d)
}

// receipts walks the user message sent -> delivered -> read.
func (e *Engine) receipts(ctx context.Context, t *turn) error {
	steps := []struct {
		wait   time.Duration
		status DeliveryStatus
	}{
		{e.timing.Delivered, StatusDelivered},
		{e.timing.Read, StatusRead},
	}
	for _, step := range steps {
		if err := e.sleep(ctx, step.wait); err != nil {
			return err
		}
		ok := e.apply(t.epoch, EventStatusChanged, func(s *conversationState, ev *Event) {
			ev.MessageID = t.userMsgID
			if m := s.message(t.userMsgID); m != nil && step.status.rank() > m.Status.rank() {
				m.Status = step.status
			}
		})
		if !ok {
			return errStale
		}
	}
	return nil
}

func (e *Engine) think(ctx context.Context, t *turn, src Source, d time.Duration) error {
	if !e.apply(t.epoch, EventThinkingStarted, func(s *conversationState, _ *Event) { s.thinking = src }) {
		return errStale
	}
	if err := e.sleep(ctx, d); err != nil {
		return err
	}
	if !e.apply(t.epoch, EventThinkingStopped, func(s *conversationState, _ *Event) { s.thinking = "" }) {
		return errStale
	}
	return nil
}

func (e *Engine) appendAgent(t *turn, card *DataCard) (int64, error) {
	var id int64
	ok := e.apply(t.epoch, EventMessageAppended, func(s *conversationState, ev *Event) {
		e.nextMsgID++
		id = e.nextMsgID
		s.messages = append(s.messages, Message{
			ID:        id,
			Sender:    SenderAgent,
			Timestamp: e.clock.Now(),
			Data:      card,
			Reaction:  &Reaction{},
		})
		ev.MessageID = id
	})
	if !ok {
		return 0, errStale
	}
	return id, nil
}

// stream reveals text into message msgID one word per WordDelay.
func (e *Engine) stream(ctx context.Context, t *turn, msgID int64, text string) error {
	reveal := NewStreamReveal(text)
	reveal.Start()
	if !e.apply(t.epoch, EventStreamStarted, func(s *conversationState, ev *Event) {
		s.streaming = true
		ev.MessageID = msgID
	}) {
		return errStale
	}

	for reveal.State() == StreamStreaming {
		if err := e.sleep(ctx, e.timing.WordDelay); err != nil {
			return err
		}
		visible := reveal.Next()
		ok := e.apply(t.epoch, EventMessageUpdated, func(s *conversationState, ev *Event) {
			ev.MessageID = msgID
			if m := s.message(msgID); m != nil {
				m.Text = visible
			}
		})
		if !ok {
			return errStale
		}
	}

	if !e.apply(t.epoch, EventStreamCompleted, func(s *conversationState, ev *Event) {
		s.streaming = false
		ev.MessageID = msgID
	}) {
		return errStale
	}
	return nil
}

// scheduleNotification posts the urgent dashboard notification NotificationDelay
// after the acknowledgement reply. The callback is dropped if the session is
// reset first.
func (e *Engine) scheduleNotification(t *turn, kind EscalationKind) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t.epoch != e.epoch {
		return errStale
	}
	timer := e.clock.AfterFunc(e.timing.NotificationDelay, func() {
		var note Notification
		added := e.apply(t.epoch, EventNotificationAdded, func(s *conversationState, ev *Event) {
			e.nextNoteID++
			note = Notification{
				ID:        e.nextNoteID,
				Severity:  SeverityUrgent,
				Kind:      kind,
				Text:      NotificationText(kind),
				Origin:    escalationOrigin,
				Contact:   escalationContact,
				Timestamp: e.clock.Now(),
			}
			s.notifications = append(s.notifications, note)
			s.stats.Escalated++
			ev.NotificationID = note.ID
			ev.Escalation = kind
		})
		if !added {
			return
		}
		e.logger.Info("assistant: escalation raised",
			"notification_id", note.ID,
			"kind", string(kind),
			"specialist", SpecialistFor(kind).String(),
			"session_id", t.sessionID,
		)
		e.dispatchAlert(note)
	})
	e.state.pending = append(e.state.pending, timer)
	return nil
}
