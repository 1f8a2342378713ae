package assistant

import "time"

// Timing holds the presentation-latency constants of a turn and a demo run.
// None of these are computed costs.
type Timing struct {
	Delivered time.Duration
	Read      time.Duration

	ThinkStatus     time.Duration
	ThinkCriteria   time.Duration
	ThinkEscalation time.Duration
	ThinkContacts   time.Duration
	ThinkProtocol   time.Duration
	ThinkFallback   time.Duration

	WordDelay         time.Duration
	NotificationDelay time.Duration

	CharDelay     time.Duration
	DemoPreSubmit time.Duration
	DemoSettle    time.Duration
	// DemoStepScale multiplies the per-step delays a Script carries.
	DemoStepScale float64
}

// DefaultTiming returns the production delays.
func DefaultTiming() Timing {
	return Timing{
		Delivered: 300 * time.Millisecond,
		Read:      200 * time.Millisecond,

		ThinkStatus:     800 * time.Millisecond,
		ThinkCriteria:   600 * time.Millisecond,
		ThinkEscalation: 400 * time.Millisecond,
		ThinkContacts:   500 * time.Millisecond,
		ThinkProtocol:   600 * time.Millisecond,
		ThinkFallback:   400 * time.Millisecond,

		WordDelay:         18 * time.Millisecond,
		NotificationDelay: 300 * time.Millisecond,

		CharDelay:     10 * time.Millisecond,
		DemoPreSubmit: 300 * time.Millisecond,
		DemoSettle:    600 * time.Millisecond,
		DemoStepScale: 1,
	}
}

// ThinkingFor returns how long the indicator stays up for intent.
func (t Timing) ThinkingFor(intent Intent) time.Duration {
	switch intent {
	case IntentStatus:
		return t.ThinkStatus
	case IntentCriteria:
		return t.ThinkCriteria
	case IntentEscalation:
		return t.ThinkEscalation
	case IntentContacts:
		return t.ThinkContacts
	case IntentProtocol:
		return t.ThinkProtocol
	default:
		return t.ThinkFallback
	}
}

// Scaled multiplies every delay by factor. A factor of 0 disables all pauses;
// negative factors are treated as 1.
func (t Timing) Scaled(factor float64) Timing {
	if factor < 0 || factor == 1 {
		return t
	}
	s := func(d time.Duration) time.Duration {
		return time.Duration(float64(d) * factor)
	}
	return Timing{
		Delivered:         s(t.Delivered),
		Read:              s(t.Read),
		ThinkStatus:       s(t.ThinkStatus),
		ThinkCriteria:     s(t.ThinkCriteria),
		ThinkEscalation:   s(t.ThinkEscalation),
		ThinkContacts:     s(t.ThinkContacts),
		ThinkProtocol:     s(t.ThinkProtocol),
		ThinkFallback:     s(t.ThinkFallback),
		WordDelay:         s(t.WordDelay),
		NotificationDelay: s(t.NotificationDelay),
		CharDelay:         s(t.CharDelay),
		DemoPreSubmit:     s(t.DemoPreSubmit),
		DemoSettle:        s(t.DemoSettle),
		DemoStepScale:     t.stepScale() * factor,
	}
}

// StepDelay applies DemoStepScale to a script step delay.
func (t Timing) StepDelay(d time.Duration) time.Duration {
	return time.Duration(float64(d) * t.stepScale())
}

func (t Timing) stepScale() float64 {
	if t.DemoStepScale < 0 {
		return 1
	}
	return t.DemoStepScale
}
