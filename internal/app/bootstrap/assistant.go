package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/radiology-assistant/internal/alerts"
	"github.com/wolfman30/radiology-assistant/internal/assistant"
	appconfig "github.com/wolfman30/radiology-assistant/internal/config"
	"github.com/wolfman30/radiology-assistant/internal/dashboard"
	"github.com/wolfman30/radiology-assistant/internal/eventbus"
	"github.com/wolfman30/radiology-assistant/internal/fixtures"
	"github.com/wolfman30/radiology-assistant/internal/observability/metrics"
	"github.com/wolfman30/radiology-assistant/pkg/logging"
)

// Deps are the optional collaborators the runtime is assembled around.
type Deps struct {
	Redis    redis.UniversalClient
	SES      alerts.SESAPI
	ToneOut  io.Writer
	Clock    assistant.Clock
	Registry *prometheus.Registry
	Sinks    []assistant.Sink
}

// Runtime is a fully wired assistant with its display sinks.
type Runtime struct {
	Engine    *assistant.Engine
	Hub       *dashboard.Hub
	Handler   *dashboard.Handler
	Metrics   *metrics.AssistantMetrics
	Registry  *prometheus.Registry
	Publisher *eventbus.RedisPublisher
	Alerts    Alerts
}

// BuildFeatures maps the feature flags onto assistant.Features.
func BuildFeatures(cfg *appconfig.Config) assistant.Features {
	if cfg == nil {
		return assistant.DefaultFeatures()
	}
	return assistant.Features{
		Reactions:  cfg.FeatureReactions,
		Sidebar:    cfg.FeatureSidebar,
		VoiceInput: cfg.FeatureVoiceInput,
	}
}

// BuildRuntime assembles the engine, metrics, websocket hub, Redis fan-out
// and escalation alerts.
func BuildRuntime(ctx context.Context, cfg *appconfig.Config, deps Deps, logger *logging.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	phase := assistant.Phase(cfg.AssistantPhase)
	if !phase.Valid() {
		return nil, fmt.Errorf("bootstrap: %w: ASSISTANT_PHASE=%d", assistant.ErrInvalidPhase, cfg.AssistantPhase)
	}
	if deps.Clock == nil {
		deps.Clock = assistant.RealClock{}
	}
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}

	rt := &Runtime{Registry: deps.Registry}
	rt.Metrics = metrics.NewAssistantMetrics(deps.Registry)
	rt.Hub = dashboard.NewHub(dashboard.HubConfig{AllowedOrigins: cfg.CORSAllowedOrigins}, rt.Metrics, logger)
	rt.Publisher = BuildEventPublisher(deps.Redis, cfg, rt.Metrics, logger)
	rt.Alerts = BuildAlerts(ctx, cfg, deps.SES, deps.ToneOut, logger)

	sinks := []assistant.Sink{rt.Hub, rt.Metrics}
	if rt.Publisher != nil {
		sinks = append(sinks, rt.Publisher)
	}
	sinks = append(sinks, deps.Sinks...)

	features := BuildFeatures(cfg)
	rt.Engine = assistant.NewEngine(
		assistant.WithClock(deps.Clock),
		assistant.WithPhase(phase),
		assistant.WithTiming(assistant.DefaultTiming().Scaled(cfg.TimingScale)),
		assistant.WithFeatures(features),
		assistant.WithAlerts(rt.Alerts.Dispatcher),
		assistant.WithLogger(logger),
		assistant.WithSinks(sinks...),
	)
	rt.Hub.Attach(rt.Engine)

	var voice *fixtures.VoiceStub
	if features.VoiceInput {
		voice = fixtures.NewVoiceStub(deps.Clock, cfg.VoiceDelay, cfg.VoiceTranscription)
	}
	rt.Handler = dashboard.NewHandler(rt.Engine, features, voice, deps.Registry, logger)

	logger.Info("assistant ready",
		"phase", int(phase),
		"timing_scale", cfg.TimingScale,
		"reactions", features.Reactions,
		"sidebar", features.Sidebar,
		"voice_input", features.VoiceInput,
		"session_id", rt.Engine.Snapshot().SessionID,
	)
	return rt, nil
}

// Close stops the engine, disconnects clients and drains pending alerts and
// queued Redis events.
func (r *Runtime) Close(ctx context.Context) error {
	if r == nil {
		return nil
	}
	r.Engine.Close()
	r.Hub.Close()
	var errs []error
	if r.Publisher != nil {
		if err := r.Publisher.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("bootstrap: close publisher: %w", err))
		}
	}
	done := make(chan struct{})
	go func() {
		r.Alerts.Dispatcher.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("bootstrap: wait for alerts: %w", ctx.Err()))
	}
	return errors.Join(errs...)
}
