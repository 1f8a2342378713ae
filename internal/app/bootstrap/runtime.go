package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/radiology-assistant/internal/config"
	"github.com/wolfman30/radiology-assistant/internal/eventbus"
	"github.com/wolfman30/radiology-assistant/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available; event fan-out disabled", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildEventPublisher returns the Redis event sink, or nil without a client.
func BuildEventPublisher(client redis.UniversalClient, cfg *appconfig.Config, drops eventbus.DropObserver, logger *logging.Logger) *eventbus.RedisPublisher {
	if client == nil || cfg == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	pub := eventbus.NewRedisPublisher(client, eventbus.Config{
		Channel:     cfg.EventsChannel,
		Buffer:      cfg.EventsBuffer,
		SnapshotTTL: cfg.SnapshotTTL,
	}, drops, logger)
	logger.Info("event fan-out enabled", "channel", cfg.EventsChannel)
	return pub
}
