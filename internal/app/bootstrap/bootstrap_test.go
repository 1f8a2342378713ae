package bootstrap

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/radiology-assistant/internal/alerts"
	"github.com/wolfman30/radiology-assistant/internal/assistant"
	"github.com/wolfman30/radiology-assistant/internal/assistant/assistanttest"
	appconfig "github.com/wolfman30/radiology-assistant/internal/config"
	"github.com/wolfman30/radiology-assistant/internal/eventbus"
	"github.com/wolfman30/radiology-assistant/internal/observability/metrics"
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

func baseConfig() *appconfig.Config {
	return &appconfig.Config{
		AssistantPhase:     3,
		TimingScale:        1,
		FeatureReactions:   true,
		FeatureSidebar:     true,
		EventsChannel:      "radassist:test",
		EventsBuffer:       64,
		AlertToneEnabled:   true,
		AlertEmailProvider: "none",
		AlertTimeout:       time.Second,
	}
}

func TestBuildRedisClientDisabled(t *testing.T) {
	assert.Nil(t, BuildRedisClient(context.Background(), nil, nil, true))
	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{}, nil, true))
}

func TestBuildRedisClientVerify(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{RedisAddr: mr.Addr()}
	client := BuildRedisClient(context.Background(), cfg, logging.Discard(), true)
	require.NotNil(t, client)
	_ = client.Close()

	mr.Close()
	assert.Nil(t, BuildRedisClient(context.Background(), cfg, logging.Discard(), true))
}

func TestBuildEmailSender(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		apiKey   string
		ses      alerts.SESAPI
		wantNil  bool
		reason   string
	}{
		{name: "disabled", provider: "none", wantNil: true, reason: "disabled"},
		{name: "stub", provider: "stub"},
		{name: "sendgrid without key", provider: "sendgrid", wantNil: true, reason: "SENDGRID_API_KEY not set"},
		{name: "sendgrid", provider: "sendgrid", apiKey: "SG.test"},
		{name: "ses without client", provider: "ses", wantNil: true, reason: "SES client unavailable"},
		{name: "unknown", provider: "pigeon", wantNil: true, reason: "unknown provider pigeon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			cfg.AlertEmailProvider = tt.provider
			cfg.SendGridAPIKey = tt.apiKey
			sender, reason := BuildEmailSender(cfg, tt.ses, logging.Discard())
			if tt.wantNil {
				assert.Nil(t, sender)
				assert.Equal(t, tt.reason, reason)
				return
			}
			assert.NotNil(t, sender)
			assert.Empty(t, reason)
		})
	}
}

func TestBuildAlertsPermission(t *testing.T) {
	cfg := baseConfig()
	cfg.SystemNotificationsGranted = true
	a := BuildAlerts(context.Background(), cfg, nil, nil, logging.Discard())
	require.NotNil(t, a.Dispatcher)
	assert.Equal(t, alerts.PermissionGranted, a.Gate.Permission())

	cfg.SystemNotificationsGranted = false
	a = BuildAlerts(context.Background(), cfg, nil, nil, logging.Discard())
	assert.Equal(t, alerts.PermissionDenied, a.Gate.Permission())
}

func TestBuildFeatures(t *testing.T) {
	assert.Equal(t, assistant.DefaultFeatures(), BuildFeatures(nil))
	cfg := baseConfig()
	cfg.FeatureVoiceInput = true
	cfg.FeatureSidebar = false
	assert.Equal(t, assistant.Features{Reactions: true, VoiceInput: true}, BuildFeatures(cfg))
}

func TestBuildRuntimeRejectsInvalidPhase(t *testing.T) {
	_, err := BuildRuntime(context.Background(), nil, Deps{}, logging.Discard())
	require.Error(t, err)

	cfg := baseConfig()
	cfg.AssistantPhase = 7
	_, err = BuildRuntime(context.Background(), cfg, Deps{}, logging.Discard())
	assert.ErrorIs(t, err, assistant.ErrInvalidPhase)
}

func TestBuildRuntimeEscalationReachesEverySink(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := baseConfig()
	cfg.RedisAddr = mr.Addr()
	client := BuildRedisClient(context.Background(), cfg, logging.Discard(), true)
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })

	clock := assistanttest.NewFakeClock(time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC))
	rec := &assistanttest.Recorder{}
	tone := &syncBuffer{}
	rt, err := BuildRuntime(context.Background(), cfg, Deps{
		Redis:   client,
		ToneOut: tone,
		Clock:   clock,
		Sinks:   []assistant.Sink{rec},
	}, logging.Discard())
	require.NoError(t, err)
	require.NotNil(t, rt.Publisher)

	require.NoError(t, rt.Engine.Submit(context.Background(), "URGENT: Suspected aortic dissection in ER bay 2"))
	clock.Advance(rt.Engine.Timing().NotificationDelay)

	snap := rt.Engine.Snapshot()
	require.Len(t, snap.Notifications, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, rt.Close(ctx))

	assert.Equal(t, "\a", tone.String())
	assert.Equal(t, 1, rec.Count(assistant.EventNotificationAdded))
	summary := metrics.Summarize(rt.Registry)
	assert.Equal(t, uint64(1), summary.Turns)
	assert.Equal(t, uint64(1), summary.Escalations)

	stored, err := eventbus.LatestSnapshot(context.Background(), client, cfg.EventsChannel)
	require.NoError(t, err)
	require.Len(t, stored.Notifications, 1)
	assert.Equal(t, assistant.EscalationDissection, stored.Notifications[0].Kind)
	assert.Equal(t, assistant.Stats{Resolved: 47, Escalated: 4}, stored.Stats)
}
