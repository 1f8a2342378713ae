package assistant

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Step is one canned demo question and the pause before it is typed.
type Step struct {
	Text  string        `json:"text"`
	Delay time.Duration `json:"delay"`
}

// Script is a phase's canned question list.
type Script struct {
	Phase Phase  `json:"phase"`
	Steps []Step `json:"steps"`
}

// ScriptFor returns the demo sequence for p. Earlier phases include one
// question beyond their reach so the deflection path is shown.
func ScriptFor(p Phase) Script {
	switch p {
	case PhaseOne:
		return Script{Phase: p, Steps: []Step{
			{Text: "Who covers neuroradiology today?", Delay: 800 * time.Millisecond},
			{Text: "How do you protocol an MRI brain?", Delay: 1500 * time.Millisecond},
			{Text: "What's the status of the chest CT for the patient in ICU bed 4?", Delay: 1500 * time.Millisecond},
		}}
	case PhaseTwo:
		return Script{Phase: p, Steps: []Step{
			{Text: "What are the ACR appropriateness criteria for suspected PE?", Delay: 800 * time.Millisecond},
			{Text: "Who covers body imaging today?", Delay: 1500 * time.Millisecond},
			{Text: "URGENT: Suspected stroke in ER bay 1", Delay: 1500 * time.Millisecond},
		}}
	default:
		return Script{Phase: PhaseThree, Steps: []Step{
			{Text: "What's the status of the chest CT for the patient in ICU bed 4?", Delay: 800 * time.Millisecond},
			{Text: "What are the ACR appropriateness criteria for suspected PE?", Delay: 1500 * time.Millisecond},
			{Text: "URGENT: Suspected aortic dissection in ER bay 2", Delay: 1500 * time.Millisecond},
			{Text: "Who covers body imaging today?", Delay: 1500 * time.Millisecond},
		}}
	}
}

// demoRun is a script bound to the session it started.
type demoRun struct {
	ctx    context.Context
	cancel context.CancelFunc
	stop   func() bool
	epoch  uint64
	script Script
}

// RunDemo plays the current phase's script and blocks until it finishes.
func (e *Engine) RunDemo(ctx context.Context) error {
	return e.RunScript(ctx, ScriptFor(e.Phase()))
}

// RunScript clears the session and plays script through the normal submit
// path. Manual input is rejected while it runs. Starting another demo, or
// changing phase, abandons this one and RunScript returns ErrSessionReset.
func (e *Engine) RunScript(ctx context.Context, script Script) error {
	if ctx == nil {
		ctx = context.Background()
	}
	run, err := e.prepareDemo(ctx, script)
	if err != nil {
		return err
	}
	return e.play(run)
}

// StartDemo starts the current phase's script in the background.
func (e *Engine) StartDemo() error {
	run, err := e.prepareDemo(context.Background(), ScriptFor(e.Phase()))
	if err != nil {
		return err
	}
	go func() {
		if err := e.play(run); err != nil {
			e.logger.Debug("assistant: demo ended early", "error", err)
		}
	}()
	return nil
}

func (e *Engine) prepareDemo(ctx context.Context, script Script) (*demoRun, error) {
	if len(script.Steps) == 0 {
		return nil, fmt.Errorf("assistant: demo script has no steps")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.demoRunning && e.state.busy() {
		return nil, ErrTurnInFlight
	}
	p := script.Phase
	if !p.Valid() {
		p = e.state.phase
	}
	e.resetLocked(p, EventDemoStarted, func(s *conversationState) {
		s.demoRunning = true
	})

	runCtx, cancel := context.WithCancel(ctx)
	run := &demoRun{
		ctx:    runCtx,
		cancel: cancel,
		stop:   context.AfterFunc(e.sessionCtx, cancel),
		epoch:  e.epoch,
		script: script,
	}
	e.logger.Info("assistant: demo started", "phase", int(p), "steps", len(script.Steps), "session_id", e.state.sessionID)
	return run, nil
}

func (e *Engine) play(run *demoRun) error {
	defer run.cancel()
	defer run.stop()

	ctx, span := e.tracer.Start(run.ctx, "assistant.demo", trace.WithAttributes(
		attribute.Int("assistant.phase", int(run.script.Phase)),
		attribute.Int("assistant.demo.steps", len(run.script.Steps)),
	))
	defer span.End()

	err := e.playSteps(ctx, run)
	completed := e.apply(run.epoch, EventDemoCompleted, func(s *conversationState, _ *Event) {
		s.demoRunning = false
		s.inputText = ""
	})
	if !completed {
		err = ErrSessionReset
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	e.logger.Info("assistant: demo completed", "phase", int(run.script.Phase))
	return nil
}

func (e *Engine) playSteps(ctx context.Context, run *demoRun) error {
	for _, step := range run.script.Steps {
		if err := e.sleep(ctx, e.timing.StepDelay(step.Delay)); err != nil {
			return err
		}
		if err := e.typeInput(ctx, run.epoch, step.Text); err != nil {
			return err
		}
		if err := e.sleep(ctx, e.timing.DemoPreSubmit); err != nil {
			return err
		}
		t, err := e.begin(ctx, step.Text, run.epoch)
		if err != nil {
			return err
		}
		e.run(t)
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.sleep(ctx, e.timing.DemoSettle); err != nil {
			return err
		}
	}
	return nil
}

// typeInput reveals text into the input field one character at a time.
func (e *Engine) typeInput(ctx context.Context, epoch uint64, text string) error {
	runes := []rune(text)
	for i := 0; i <= len(runes); i++ {
		prefix := string(runes[:i])
		if !e.apply(epoch, EventInputChanged, func(s *conversationState, _ *Event) { s.inputText = prefix }) {
			return errStale
		}
		if err := e.sleep(ctx, e.timing.CharDelay); err != nil {
			return err
		}
	}
	return nil
}
