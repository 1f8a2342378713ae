package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "ASSISTANT_PHASE", "TIMING_SCALE", "CORS_ALLOWED_ORIGINS", "REDIS_ADDR", "ALERT_EMAIL_PROVIDER"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.AssistantPhase != 3 {
		t.Fatalf("expected phase 3 by default, got %d", cfg.AssistantPhase)
	}
	if cfg.TimingScale != 1 {
		t.Fatalf("expected unscaled timing, got %v", cfg.TimingScale)
	}
	if !cfg.FeatureReactions || !cfg.FeatureSidebar || cfg.FeatureVoiceInput {
		t.Fatalf("unexpected default features: reactions=%v sidebar=%v voice=%v", cfg.FeatureReactions, cfg.FeatureSidebar, cfg.FeatureVoiceInput)
	}
	if cfg.RedisAddr != "" {
		t.Fatalf("expected redis disabled by default, got %s", cfg.RedisAddr)
	}
	if cfg.EventsChannel != "radassist:events" {
		t.Fatalf("expected default channel, got %s", cfg.EventsChannel)
	}
	if cfg.AlertEmailProvider != "none" {
		t.Fatalf("expected email alerts off, got %s", cfg.AlertEmailProvider)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("expected no cors origins, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.VoiceDelay != 1500*time.Millisecond {
		t.Fatalf("expected default voice delay, got %s", cfg.VoiceDelay)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("ASSISTANT_PHASE", "2")
	t.Setenv("TIMING_SCALE", "0.25")
	t.Setenv("FEATURE_VOICE_INPUT", "true")
	t.Setenv("FEATURE_REACTIONS", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("ALERT_EMAIL_PROVIDER", " SendGrid ")
	t.Setenv("ALERT_EMAIL_RECIPIENTS", "oncall@hospital.example")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("EVENTS_SNAPSHOT_TTL", "5m")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected env override, got %s", cfg.Env)
	}
	if cfg.AssistantPhase != 2 {
		t.Fatalf("expected phase override, got %d", cfg.AssistantPhase)
	}
	if cfg.TimingScale != 0.25 {
		t.Fatalf("expected timing scale override, got %v", cfg.TimingScale)
	}
	if !cfg.FeatureVoiceInput || cfg.FeatureReactions {
		t.Fatalf("expected feature overrides, got voice=%v reactions=%v", cfg.FeatureVoiceInput, cfg.FeatureReactions)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("expected two cors origins, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.AlertEmailProvider != "sendgrid" {
		t.Fatalf("expected normalized provider, got %q", cfg.AlertEmailProvider)
	}
	if len(cfg.AlertEmailRecipients) != 1 {
		t.Fatalf("expected one recipient, got %v", cfg.AlertEmailRecipients)
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected rate override, got %v", cfg.RateLimitRPS)
	}
	if cfg.SnapshotTTL != 5*time.Minute {
		t.Fatalf("expected snapshot ttl override, got %s", cfg.SnapshotTTL)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("ASSISTANT_PHASE", "three")
	t.Setenv("TIMING_SCALE", "fast")
	t.Setenv("REDIS_TLS", "maybe")
	t.Setenv("ALERT_TIMEOUT", "soon")
	cfg := Load()
	if cfg.AssistantPhase != 3 || cfg.TimingScale != 1 || cfg.RedisTLS || cfg.AlertTimeout != 10*time.Second {
		t.Fatalf("expected defaults for malformed values, got %+v", cfg)
	}
}
