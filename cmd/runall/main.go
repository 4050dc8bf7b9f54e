// Package main contains the launcher that runs every configured bot, one OS
// process per bot, guarded by a single-instance lock.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/manishindiyaar/bladex-ai/internal/config"
	"github.com/manishindiyaar/bladex-ai/internal/launcher"
	"github.com/manishindiyaar/bladex-ai/internal/logger"
)

// shutdownGrace is how long a bot process gets between SIGTERM and SIGKILL.
const shutdownGrace = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	botBinary := flag.String("bot-binary", "", "Path to the bot binary (defaults to 'bot' next to this executable)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.New(cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)

	lock, err := launcher.Acquire(cfg.Launcher.LockFile)
	if err != nil {
		log.Error("failed to acquire single-instance lock",
			"path", cfg.Launcher.LockFile, "error", err)
		return 1
	}
	defer func() {
		if err := lock.Release(); err != nil {
			log.Warn("failed to release lock", "error", err)
		}
	}()
	log.Info("lock acquired", "path", cfg.Launcher.LockFile, "pid", os.Getpid())

	bin := *botBinary
	if bin == "" {
		bin = cfg.Launcher.BotBinary
	}
	if bin == "" {
		exe, err := os.Executable()
		if err != nil {
			log.Error("failed to locate bot binary", "error", err)
			return 1
		}
		bin = filepath.Join(filepath.Dir(exe), "bot")
	}

	g, gCtx := errgroup.WithContext(ctx)
	started := 0
	for _, botCfg := range cfg.Bots {
		if botCfg.Token() == "" {
			// Fatal for this bot only; the others still start.
			log.Error("no bot token provided, skipping bot",
				"bot", botCfg.Name, "env", botCfg.TokenEnv())
			continue
		}

		botCfg := botCfg
		g.Go(func() error {
			log.Info("starting bot process", "bot", botCfg.Name)

			cmd := exec.CommandContext(gCtx, bin, "-config", *configPath, "-bot", botCfg.Name)
			cmd.Stdout = os.Stdout
			cmd.Stderr = os.Stderr
			cmd.Cancel = func() error {
				return cmd.Process.Signal(syscall.SIGTERM)
			}
			cmd.WaitDelay = shutdownGrace

			if err := cmd.Run(); err != nil && gCtx.Err() == nil {
				// One bot crashing must not take the others down.
				log.Error("bot process exited with error", "bot", botCfg.Name, "error", err)
				return nil
			}
			log.Info("bot process stopped", "bot", botCfg.Name)
			return nil
		})
		started++
	}

	if started == 0 {
		log.Error("no bots started, check token environment variables")
		return 1
	}
	log.Info("all bot processes started", "count", started)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("launcher stopped due to error", "error", err)
		return 1
	}
	log.Info("launcher stopped gracefully")
	return 0
}
