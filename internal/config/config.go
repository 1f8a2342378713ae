package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	CORSAllowedOrigins []string

	// Assistant behavior
	AssistantPhase     int
	TimingScale        float64
	FeatureReactions   bool
	FeatureSidebar     bool
	FeatureVoiceInput  bool
	VoiceDelay         time.Duration
	VoiceTranscription string

	// Event fan-out
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	EventsChannel string
	EventsBuffer  int
	SnapshotTTL   time.Duration

	// Escalation alerts
	AlertToneEnabled           bool
	SystemNotificationsGranted bool
	AlertTimeout               time.Duration
	AlertEmailProvider         string
	AlertEmailRecipients       []string

	// SendGrid Email Configuration
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	// SES Email Configuration
	SESFromEmail string
	SESFromName  string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	RateLimitRPS   float64
	RateLimitBurst int
	ShutdownGrace  time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),

		AssistantPhase:     getEnvAsInt("ASSISTANT_PHASE", 3),
		TimingScale:        getEnvAsFloat("TIMING_SCALE", 1),
		FeatureReactions:   getEnvAsBool("FEATURE_REACTIONS", true),
		FeatureSidebar:     getEnvAsBool("FEATURE_SIDEBAR", true),
		FeatureVoiceInput:  getEnvAsBool("FEATURE_VOICE_INPUT", false),
		VoiceDelay:         getEnvAsDuration("VOICE_DELAY", 1500*time.Millisecond),
		VoiceTranscription: getEnv("VOICE_TRANSCRIPTION", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		EventsChannel: getEnv("EVENTS_CHANNEL", "radassist:events"),
		EventsBuffer:  getEnvAsInt("EVENTS_BUFFER", 1024),
		SnapshotTTL:   getEnvAsDuration("EVENTS_SNAPSHOT_TTL", time.Hour),

		AlertToneEnabled:           getEnvAsBool("ALERT_TONE_ENABLED", true),
		SystemNotificationsGranted: getEnvAsBool("SYSTEM_NOTIFICATIONS_GRANTED", false),
		AlertTimeout:               getEnvAsDuration("ALERT_TIMEOUT", 10*time.Second),
		AlertEmailProvider:         strings.ToLower(strings.TrimSpace(getEnv("ALERT_EMAIL_PROVIDER", "none"))),
		AlertEmailRecipients:       getEnvAsList("ALERT_EMAIL_RECIPIENTS", nil),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Radiology Assistant"),

		SESFromEmail: getEnv("SES_FROM_EMAIL", ""),
		SESFromName:  getEnv("SES_FROM_NAME", "Radiology Assistant"),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 20),
		ShutdownGrace:  getEnvAsDuration("SHUTDOWN_GRACE", 10*time.Second),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blank entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
