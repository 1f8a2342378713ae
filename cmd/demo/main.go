// Command demo plays a phase's scripted conversation against the real engine
// and prints the transcript. With -follow it instead tails the events another
// process publishes to Redis.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/radiology-assistant/internal/app/bootstrap"
	"github.com/wolfman30/radiology-assistant/internal/assistant"
	appconfig "github.com/wolfman30/radiology-assistant/internal/config"
	"github.com/wolfman30/radiology-assistant/internal/eventbus"
	"github.com/wolfman30/radiology-assistant/pkg/logging"
)

type options struct {
	phase  int
	scale  float64
	follow bool
	quiet  bool
}

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	opts := options{}
	flag.IntVar(&opts.phase, "phase", cfg.AssistantPhase, "phase to demo (1-3)")
	flag.Float64Var(&opts.scale, "scale", cfg.TimingScale, "timing multiplier; 0 plays instantly")
	flag.BoolVar(&opts.follow, "follow", false, "tail events published to Redis instead of running a demo")
	flag.BoolVar(&opts.quiet, "quiet", false, "only log errors")
	flag.Parse()

	level := cfg.LogLevel
	if opts.quiet {
		level = "error"
	}
	logger := logging.NewWithWriter(level, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	if opts.follow {
		err = follow(ctx, cfg, os.Stdout, logger)
	} else {
		err = runDemo(ctx, cfg, opts, os.Stdout, logger)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "demo:", err)
		os.Exit(1)
	}
}

func runDemo(ctx context.Context, cfg *appconfig.Config, opts options, out io.Writer, logger *logging.Logger) error {
	runCfg := *cfg
	runCfg.AssistantPhase = opts.phase
	runCfg.TimingScale = opts.scale

	deps := bootstrap.Deps{
		ToneOut: out,
		Sinks:   []assistant.Sink{newTranscript(out)},
	}
	if client := bootstrap.BuildRedisClient(ctx, &runCfg, logger, true); client != nil {
		defer client.Close()
		deps.Redis = client
	}
	rt, err := bootstrap.BuildRuntime(ctx, &runCfg, deps, logger)
	if err != nil {
		return err
	}

	demoErr := rt.Engine.RunDemo(ctx)
	if demoErr == nil {
		// Let a pending escalation notification land before shutting down.
		if err := rt.Engine.Clock().Sleep(ctx, rt.Engine.Timing().NotificationDelay+100*time.Millisecond); err != nil {
			demoErr = err
		}
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return errors.Join(demoErr, rt.Close(closeCtx))
}

func follow(ctx context.Context, cfg *appconfig.Config, out io.Writer, logger *logging.Logger) error {
	client := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if client == nil {
		return fmt.Errorf("follow needs a reachable REDIS_ADDR")
	}
	defer client.Close()
	return followWith(ctx, client, cfg.EventsChannel, out)
}

func followWith(ctx context.Context, client redis.UniversalClient, channel string, out io.Writer) error {
	printer := newTranscript(out)
	if snap, err := eventbus.LatestSnapshot(ctx, client, channel); err == nil {
		fmt.Fprintf(out, "=== Following session %s (%s) ===\n", snap.SessionID, snap.Phase)
	}
	return eventbus.Follow(ctx, client, channel, func(env eventbus.Envelope) {
		printer.Publish(env.Event)
	})
}
