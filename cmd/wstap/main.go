// wstap connects to a WebSocket endpoint, streams received frames to the
// console, and forwards stdin lines as text frames. The connection is kept
// alive across drops by the reconnect engine; with --record, received
// frames are also written to Postgres.
//
// Usage:
//
//	wstap --url wss://example.com/feed
//	wstap --config configs/wstap.yaml --record
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rewsio/rews"
	"github.com/rewsio/rews/internal/config"
	"github.com/rewsio/rews/internal/recorder"
	"github.com/rewsio/rews/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	urlFlag := flag.String("url", "", "endpoint URL (overrides config)")
	record := flag.Bool("record", false, "record received frames to Postgres")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("wstap", version.String())
		return
	}

	cfg, err := loadConfig(*configPath, *urlFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.Log.Level),
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	// Optional frame recorder
	var rec *recorder.Recorder
	if *record || cfg.Recorder.Enabled {
		pool, err := recorder.Connect(ctx, cfg.Recorder.Database)
		if err != nil {
			logger.Error("failed to connect frames database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		rec = recorder.New(cfg.Recorder, pool, logger)
		if err := rec.Start(ctx); err != nil {
			logger.Error("failed to start recorder", "error", err)
			os.Exit(1)
		}
	}

	builder := rews.Dial(cfg.Target.URL).
		Protocols(cfg.Target.Protocols...).
		WithLogger(logger).
		OnOpen(func() {
			logger.Info("connected", "url", cfg.Target.URL)
		}).
		OnMessage(func(msg rews.Message) {
			printFrame(msg)
			if rec != nil {
				rec.Record(msg)
			}
		}).
		OnError(func(err error) {
			logger.Warn("connection error", "error", err)
		}).
		OnClose(func(ev rews.CloseEvent) {
			logger.Info("connection closed",
				"code", ev.Code,
				"reason", ev.Reason,
				"clean", ev.WasClean,
			)
		})

	if cfg.Reconnect.Disabled {
		builder.NoReconnect()
	} else {
		builder.Reconnect(rews.ReconnectConfig{
			InitialInterval:     cfg.Reconnect.InitialInterval,
			Multiplier:          cfg.Reconnect.Multiplier,
			RandomizationFactor: cfg.Reconnect.RandomizationFactor,
			MaxInterval:         cfg.Reconnect.MaxInterval,
		})
	}

	client, err := builder.Build()
	if err != nil {
		logger.Error("failed to open connection", "error", err)
		os.Exit(1)
	}

	// Forward stdin lines as text frames.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			if err := client.Send(rews.TextMessage(line)); err != nil {
				logger.Warn("send failed", "error", err, "status", client.Status())
			}
		}
	}()

	<-ctx.Done()

	if err := client.Close(); err != nil {
		logger.Warn("close failed", "error", err)
	}
	if rec != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		rec.Stop(stopCtx)
		stats := rec.Stats()
		logger.Info("recording summary",
			"session", rec.Session(),
			"frames", stats.Inserts,
			"drops", stats.Drops,
		)
	}
}

// loadConfig merges the config file (if any) with command-line overrides.
func loadConfig(path, urlOverride string) (*config.Config, error) {
	var cfg *config.Config
	if path != "" {
		loaded, err := config.LoadAndValidate(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = &config.Config{}
	}

	if urlOverride != "" {
		cfg.Target.URL = urlOverride
	}
	if cfg.Target.URL == "" {
		return nil, fmt.Errorf("no endpoint: pass --url or a config file with target.url")
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = config.DefaultLogLevel
	}
	return cfg, nil
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// printFrame writes one received frame to stdout.
func printFrame(msg rews.Message) {
	if msg.IsText() {
		fmt.Println(msg.Text())
		return
	}
	fmt.Printf("[binary %d bytes] %x\n", len(msg.Data()), msg.Data())
}
