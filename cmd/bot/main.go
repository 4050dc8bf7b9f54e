// Package main contains the entrypoint for a single relay bot process.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tgbot "github.com/go-telegram/bot"

	"github.com/manishindiyaar/bladex-ai/internal/bot"
	"github.com/manishindiyaar/bladex-ai/internal/bot/handlers"
	"github.com/manishindiyaar/bladex-ai/internal/config"
	"github.com/manishindiyaar/bladex-ai/internal/logger"
	"github.com/manishindiyaar/bladex-ai/internal/store"
	"github.com/manishindiyaar/bladex-ai/internal/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes all components for one bot account (config, logger, store
// client, telegram session, poller) and blocks until shutdown. It returns the
// process exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	botName := flag.String("bot", "", "Name of the configured bot to run")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.New(cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)

	botCfg, ok := cfg.Bot(*botName)
	if !ok {
		log.Error("bot is not configured", "bot", *botName)
		return 1
	}
	token := botCfg.Token()
	if token == "" {
		log.Error("no bot token provided", "bot", botCfg.Name, "env", botCfg.TokenEnv())
		return 1
	}
	log = log.With("bot", botCfg.Name)

	client := store.NewClient(cfg.Store.BaseURL, cfg.Store.APIKey, cfg.Contacts.DefaultName, log)
	sessions := bot.NewSessions()

	hDeps := handlers.HandlerDeps{
		Logger:   log,
		BotID:    botCfg.Name,
		Welcome:  cfg.Messages.Welcome,
		Contacts: client,
		Messages: client,
		Sessions: sessions,
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewMessageHandler(hDeps)),
	}
	tg, err := telegram.New(token, log, botOpts...)
	if err != nil {
		log.Error("failed to create telegram bot", "error", err)
		return 1
	}

	sender := telegram.NewSender(tg)
	hDeps.Sender = sender
	if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
		log.Error("failed to register telegram handlers", "error", err)
		return 1
	}

	poller := bot.NewPoller(botCfg.Name, client, client, sessions, sender, log)
	sched, err := bot.NewScheduler(log, cfg.Poller.Interval, poller)
	if err != nil {
		log.Error("failed to create scheduler", "error", err)
		return 1
	}

	app := bot.New(log, tg, sched)

	log.Info("starting bot", "poll_interval", cfg.Poller.Interval)
	runErr := app.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("bot stopped due to error", "error", runErr)
		return 1
	}

	log.Info("bot stopped gracefully")
	return 0
}
