package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/radiology-assistant/internal/assistant"
	appconfig "github.com/wolfman30/radiology-assistant/internal/config"
	"github.com/wolfman30/radiology-assistant/internal/eventbus"
	"github.com/wolfman30/radiology-assistant/pkg/logging"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func demoConfig() *appconfig.Config {
	return &appconfig.Config{
		AssistantPhase:     3,
		TimingScale:        1,
		FeatureReactions:   true,
		AlertEmailProvider: "none",
		EventsChannel:      "radassist:demo-test",
	}
}

func TestRunDemoPrintsTranscript(t *testing.T) {
	out := &syncBuffer{}
	err := runDemo(context.Background(), demoConfig(), options{phase: 3, scale: 0}, out, logging.Discard())
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "=== Demo: Phase III ===")
	assert.Contains(t, text, "Clinician: What's the status of the chest CT for the patient in ICU bed 4?")
	assert.Contains(t, text, "Querying PACS...")
	assert.Contains(t, text, "┌ PACS/RIS Database")
	assert.Contains(t, text, "Assistant: I found the exam status")
	assert.Contains(t, text, "!! URGENT:")
	assert.Contains(t, text, "AI Resolved 50")
	assert.Equal(t, 4, strings.Count(text, "Clinician: "))
}

func TestRunDemoPhaseOneDeflects(t *testing.T) {
	out := &syncBuffer{}
	require.NoError(t, runDemo(context.Background(), demoConfig(), options{phase: 1, scale: 0}, out, logging.Discard()))

	text := out.String()
	assert.Contains(t, text, "=== Demo: Phase I ===")
	assert.Contains(t, text, "Exam status lookups arrive in Phase III")
	assert.NotContains(t, text, "!! URGENT:")
}

func TestRunDemoInvalidPhase(t *testing.T) {
	err := runDemo(context.Background(), demoConfig(), options{phase: 5}, &syncBuffer{}, logging.Discard())
	assert.ErrorIs(t, err, assistant.ErrInvalidPhase)
}

func TestFollowRequiresRedis(t *testing.T) {
	err := follow(context.Background(), demoConfig(), &syncBuffer{}, logging.Discard())
	assert.Error(t, err)
}

func TestFollowPrintsPublishedEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	channel := "radassist:follow-test"
	out := &syncBuffer{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- followWith(ctx, client, channel, out) }()

	payload, err := json.Marshal(eventbus.Envelope{
		ID:   "env-1",
		Seq:  1,
		Kind: string(assistant.EventDemoCompleted),
		At:   time.Now(),
		Event: assistant.Event{
			Seq:      1,
			Kind:     assistant.EventDemoCompleted,
			At:       time.Now(),
			Snapshot: assistant.Snapshot{Phase: assistant.PhaseThree, Stats: assistant.Stats{Resolved: 50, Escalated: 4}},
		},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		client.Publish(context.Background(), channel, payload)
		return strings.Contains(out.String(), "AI Resolved 50 | Escalated 4")
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("follow did not stop")
	}
}
