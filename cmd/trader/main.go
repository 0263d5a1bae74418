// wxarb trades weather-index futures against each other and the
// settlement-linked index future, exploiting guaranteed-profit windows that
// briefly open when a station book and the index book disagree.
//
// Architecture:
//
//	main.go                  — entry point: loads config, starts the engine, waits for SIGINT/SIGTERM
//	internal/replay           — replays recovery snapshot + live feed into per-book ladders
//	internal/book             — per-product ladder, order map, local position/exposure
//	internal/arbitrage        — cursor-walk search for a crossing basket across a bundle
//	internal/dispatcher       — gates books by position limit and pending fills, fires baskets
//	internal/exchange         — recovery/observation/submission REST clients and the live WS reader
//	internal/store            — diagnostic-only snapshot persistence, never read back at startup
//	internal/api              — dashboard HTTP/WebSocket server
//	internal/engine           — orchestrator wiring all of the above
//
// How it makes money:
//
//	Each weather expiry has one future per station plus one index future
//	settling on a formula over the station values. When the station books'
//	combined price and the index book's price disagree by more than the
//	configured epsilon, wxarb can lock in a profit by simultaneously buying
//	the cheap side and selling the expensive side across every leg — a
//	basket that is either entirely risk-free or not fired at all.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"wxarb/internal/config"
	"wxarb/internal/engine"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("WX_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	eng, err := engine.New(*cfg, logger)
	if err != nil {
		logger.Error("failed to create engine", "error", err)
		os.Exit(1)
	}

	if err := eng.Start(); err != nil {
		logger.Error("failed to start engine", "error", err)
		os.Exit(1)
	}

	if cfg.DryRun {
		logger.Warn("DRY-RUN MODE — no real orders will be placed")
	}
	if cfg.Dashboard.Enabled {
		logger.Info("dashboard started", "url", fmt.Sprintf("http://localhost:%d", cfg.Dashboard.Port))
	}

	logger.Info("wxarb started",
		"epsilon_cents", cfg.Dispatcher.EpsilonCents,
		"position_limit", cfg.Dispatcher.PositionLimit,
		"dry_run", cfg.DryRun,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-eng.Fatal():
		logger.Error("fatal feed condition, shutting down", "error", err)
		eng.Stop()
		os.Exit(1)
	}

	eng.Stop()
}

func parseLogLevel(level string) slog.Level {
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
