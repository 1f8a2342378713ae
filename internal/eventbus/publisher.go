// Package eventbus mirrors assistant events onto Redis pub/sub so other
// processes can follow the conversation and the escalation dashboard.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/radiology-assistant/internal/assistant"
	"github.com/wolfman30/radiology-assistant/pkg/logging"
)

// DefaultChannel is used when no channel is configured.
const DefaultChannel = "radassist:events"

// Envelope is the wire form of one event.
type Envelope struct {
	ID        string          `json:"id"`
	Seq       uint64          `json:"seq"`
	Kind      string          `json:"kind"`
	At        time.Time       `json:"at"`
	SessionID string          `json:"session_id"`
	Event     assistant.Event `json:"event"`
}

// DropObserver is told about events discarded on overflow.
type DropObserver interface {
	ObserveDropped(sink string)
}

// Config tunes a RedisPublisher.
type Config struct {
	Channel string
	// Buffer bounds the queue between the engine and Redis.
	Buffer int
	// SnapshotTTL is how long the latest snapshot key lives. Zero keeps it.
	SnapshotTTL time.Duration
	Timeout     time.Duration
}

// RedisPublisher is an asynchronous assistant.Sink. Publish never blocks the
// engine: when the queue is full the event is dropped and logged.
type RedisPublisher struct {
	client  redis.UniversalClient
	cfg     Config
	logger  *logging.Logger
	drops   DropObserver
	tracer  trace.Tracer
	queue   chan assistant.Event
	done    chan struct{}
	once    sync.Once
	closeMu sync.RWMutex
	closed  bool
}

var _ assistant.Sink = (*RedisPublisher)(nil)

// NewRedisPublisher starts the publishing goroutine. Call Close to drain it.
func NewRedisPublisher(client redis.UniversalClient, cfg Config, drops DropObserver, logger *logging.Logger) *RedisPublisher {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	p := &RedisPublisher{
		client: client,
		cfg:    cfg,
		logger: logger,
		drops:  drops,
		tracer: otel.Tracer("radassist/eventbus"),
		queue:  make(chan assistant.Event, cfg.Buffer),
		done:   make(chan struct{}),
	}
	go p.loop()
	return p
}

// SnapshotKey holds the most recent snapshot as JSON.
func (p *RedisPublisher) SnapshotKey() string {
	return p.cfg.Channel + ":snapshot"
}

// Publish implements assistant.Sink.
func (p *RedisPublisher) Publish(ev assistant.Event) {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- ev:
	default:
		p.logger.Warn("eventbus: queue full, dropping event", "kind", string(ev.Kind), "seq", ev.Seq)
		if p.drops != nil {
			p.drops.ObserveDropped("redis")
		}
	}
}

// Close stops accepting events and waits for the queue to drain or ctx to end.
func (p *RedisPublisher) Close(ctx context.Context) error {
	p.once.Do(func() {
		p.closeMu.Lock()
		p.closed = true
		close(p.queue)
		p.closeMu.Unlock()
	})
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *RedisPublisher) loop() {
	defer close(p.done)
	for ev := range p.queue {
		if err := p.send(ev); err != nil {
			p.logger.Warn("eventbus: publish failed", "kind", string(ev.Kind), "seq", ev.Seq, "error", err)
		}
	}
}

func (p *RedisPublisher) send(ev assistant.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.Timeout)
	defer cancel()
	ctx, span := p.tracer.Start(ctx, "eventbus.publish", trace.WithAttributes(
		attribute.String("eventbus.kind", string(ev.Kind)),
		attribute.Int64("eventbus.seq", int64(ev.Seq)),
	))
	defer span.End()

	payload, err := json.Marshal(Envelope{
		ID:        uuid.NewString(),
		Seq:       ev.Seq,
		Kind:      string(ev.Kind),
		At:        ev.At,
		SessionID: ev.Snapshot.SessionID,
		Event:     ev,
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("eventbus: marshal: %w", err)
	}
	snapshot, err := json.Marshal(ev.Snapshot)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("eventbus: marshal snapshot: %w", err)
	}

	pipe := p.client.TxPipeline()
	pipe.Set(ctx, p.SnapshotKey(), snapshot, p.cfg.SnapshotTTL)
	pipe.Publish(ctx, p.cfg.Channel, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("eventbus: redis: %w", err)
	}
	return nil
}

// LatestSnapshot reads the last published snapshot.
func LatestSnapshot(ctx context.Context, client redis.UniversalClient, channel string) (assistant.Snapshot, error) {
	if channel == "" {
		channel = DefaultChannel
	}
	var snap assistant.Snapshot
	raw, err := client.Get(ctx, channel+":snapshot").Bytes()
	if err != nil {
		return snap, fmt.Errorf("eventbus: get snapshot: %w", err)
	}
	if err := json.Unmarshal(raw, &snap); err != nil {
		return snap, fmt.Errorf("eventbus: decode snapshot: %w", err)
	}
	return snap, nil
}

// Follow subscribes to channel and calls fn for each envelope until ctx ends.
// Malformed payloads are skipped.
func Follow(ctx context.Context, client redis.UniversalClient, channel string, fn func(Envelope)) error {
	if channel == "" {
		channel = DefaultChannel
	}
	sub := client.Subscribe(ctx, channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("eventbus: subscribe: %w", err)
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				continue
			}
			fn(env)
		}
	}
}
