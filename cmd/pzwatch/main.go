// Command pzwatch watches the Steam Workshop mods of a remote Project Zomboid
// server and restarts the server when one of them updated.
//
// One invocation is one check: fetch current mod timestamps, diff them against
// the local registry snapshot, and when something changed, warn the players
// over RCON, count down, save and quit. A process supervisor outside this tool
// relaunches the server. Meant to be driven by a timer (cron, systemd).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	slogmulti "github.com/samber/slog-multi"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"pzwatch/internal/config"
	"pzwatch/internal/journal"
	"pzwatch/internal/runlock"
	"pzwatch/internal/telemetry"
)

var (
	flagConfig  string
	flagTest    bool
	flagMessage string
	flagRefresh bool
)

var rootCmd = &cobra.Command{
	Use:           "pzwatch",
	Short:         "Restarts a Project Zomboid server when its workshop mods update",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.Flags().BoolVar(&flagTest, "test", false, "dry run: announce and count down, but never kick, save or quit")
	rootCmd.Flags().StringVar(&flagMessage, "msg", "", "send a server message to all players and exit")
	rootCmd.Flags().BoolVar(&flagRefresh, "refresh", false, "rebuild the registry snapshot and discord mod list without restarting")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("run failed", "err", err)
		os.Exit(1)
	}
}

func run(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	runID := makeRunID()
	log, closeLog := setupLogging(cfg, runID)
	defer closeLog()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lock, err := runlock.Acquire(cfg.Paths.Lock)
	if errors.Is(err, runlock.ErrHeld) {
		log.Info("exiting", "reason", err)
		return nil
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			log.Warn("releasing run lock failed", "err", err)
		}
	}()

	var tel *telemetry.Logger
	if cfg.Paths.Telemetry != "" {
		tel, err = telemetry.New(cfg.Paths.Telemetry)
		if err != nil {
			return fmt.Errorf("open telemetry file: %w", err)
		}
		defer func() { _ = tel.Close() }()
		log.Info("ndjson telemetry enabled", "path", cfg.Paths.Telemetry)
	}

	jnl, err := journal.Open(cfg.Paths.Journal)
	if err != nil {
		// The journal is diagnostics, not a dependency; never block a check on it.
		log.Warn("run journal unavailable", "err", err)
		jnl = nil
	}
	defer func() { _ = jnl.Close() }()

	a := &app{
		cfg:   cfg,
		log:   log,
		tel:   tel,
		jnl:   jnl,
		runID: runID,
		start: time.Now(),
	}

	switch {
	case flagMessage != "":
		return a.sendMessage(flagMessage)
	case flagRefresh:
		return a.refresh(ctx)
	default:
		return a.check(ctx, flagTest)
	}
}

func setupLogging(cfg config.Config, runID string) (*slog.Logger, func()) {
	handlers := []slog.Handler{
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}),
	}
	closeFn := func() {}
	if cfg.Paths.LogFile != "" {
		// Warnings and up go to a small rotating file for post-mortems.
		rot := &lumberjack.Logger{Filename: cfg.Paths.LogFile, MaxSize: 2, MaxBackups: 3}
		handlers = append(handlers, slog.NewTextHandler(rot, &slog.HandlerOptions{Level: slog.LevelWarn}))
		closeFn = func() { _ = rot.Close() }
	}
	return slog.New(slogmulti.Fanout(handlers...)).With("run_id", runID), closeFn
}

func makeRunID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return fmt.Sprintf("run-%d", time.Now().UTC().UnixNano())
	}
	return "run-" + id.String()
}
