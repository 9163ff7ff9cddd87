package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"codeberg.org/mutker/pipdrain/internal/config"
	"codeberg.org/mutker/pipdrain/internal/errors"
	"codeberg.org/mutker/pipdrain/internal/logger"
	"codeberg.org/mutker/pipdrain/internal/pid"
)

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	initLogger()
	logger.Debug().Msg("Config loaded")
}

// initLogger sends logs to a file while the terminal display owns the
// screen.
func initLogger() {
	if config.SinkKind(cfg.Sink) != config.SinkTUI {
		logger.Init(cfg.LogLevel, logger.IsService())
		return
	}

	path := filepath.Join(os.TempDir(), "pipdrain.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		fmt.Printf("failed to open log file: %v\n", err)
		os.Exit(1)
	}
	logger.InitWithWriter(f, cfg.LogLevel, true)
}

func main() {
	pidFile := pid.New("", "")
	if err := pidFile.Write(); err != nil {
		fatal(err, "Failed to write PID file")
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if cfg.Duration > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), cfg.Duration)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	go handleSignals(cancel)

	a, err := newApp(cfg, cancel)
	if err != nil {
		cancel()
		_ = pidFile.Remove()
		fatal(err, "Failed to initialize application")
	}

	if err := a.run(ctx); err != nil {
		logger.Error().Err(err).Msg("Error in main loop")
	}
	a.close()
	cancel()

	if err := pidFile.Remove(); err != nil {
		logger.Warn().Err(err).Msg("Failed to remove PID file")
	}
	logger.Info().Msg("Exiting...")
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func fatal(err error, msg string) {
	var coded errors.Error
	if errors.As(err, &coded) {
		logger.FatalWithCode(coded).Msg(msg)
	}
	logger.Fatal().Err(err).Msg(msg)
}
