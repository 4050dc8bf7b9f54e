// Package bot implements one bot process: the Telegram listener, the
// process-local session map, and the delivery poller that relays outgoing
// messages queued in the shared datastore.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"
)

// Bot supervises one bot account's components: the Telegram update listener
// and the delivery-poll scheduler.
type Bot struct {
	logger    *slog.Logger
	tgBot     *tgbot.Bot
	scheduler *Scheduler
}

// New creates the supervisor for one bot process.
func New(logger *slog.Logger, tgBot *tgbot.Bot, scheduler *Scheduler) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		logger:    logger.With("component", "supervisor"),
		tgBot:     tgBot,
		scheduler: scheduler,
	}
}

// Run starts the listener and the scheduler and blocks until the context is
// cancelled or a component fails. On cancellation it stops scheduling new
// poll runs, waits for the in-flight run, and releases the Telegram session.
func (b *Bot) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("starting telegram listener")
		b.tgBot.Start(gCtx)
		b.logger.Info("telegram listener stopped")

		if gCtx.Err() == nil {
			return fmt.Errorf("telegram listener stopped unexpectedly")
		}
		return nil
	})

	g.Go(func() error {
		if err := b.scheduler.Start(gCtx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("shutdown signal received, stopping scheduler")

		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("error stopping scheduler", "error", err)
		}
		return nil
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	b.logger.Info("bot stopped gracefully")
	return nil
}
