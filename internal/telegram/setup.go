// Package telegram handles construction of the Telegram bot session,
// registration of handlers, and the sender adapter used by the delivery
// poller.
package telegram

import (
	"context"
	"fmt"
	"log/slog"

	tgbot "github.com/go-telegram/bot"

	"github.com/manishindiyaar/bladex-ai/internal/bot/handlers"
)

// New creates a Telegram bot session using the go-telegram/bot library.
func New(token string, logger *slog.Logger, opts ...tgbot.Option) (*tgbot.Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "telegram")

	b, err := tgbot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	log.Info("telegram bot session created")
	return b, nil
}

// RegisterHandlers registers command handlers with the bot session.
func RegisterHandlers(b *tgbot.Bot, logger *slog.Logger, registered map[string]handlers.RegisteredHandler) error {
	if b == nil {
		return fmt.Errorf("bot instance cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "handler_registry")

	for _, h := range registered {
		if h.Handler == nil {
			log.Warn("skipping registration for nil handler", "pattern", h.Pattern)
			continue
		}
		handler := h.Handler
		for i := len(h.Middleware) - 1; i >= 0; i-- {
			handler = h.Middleware[i](handler)
		}
		b.RegisterHandler(h.HandlerType, h.Pattern, h.MatchType, handler)
		log.Debug("registered handler", "pattern", h.Pattern, "match_type", h.MatchType)
	}

	log.Info("registered telegram handlers", "count", len(registered))
	return nil
}

// Sender adapts the bot session to the poller's dispatch interface. ChatID
// may be an int64 from a live session or the raw user-id string fallback.
type Sender struct {
	bot *tgbot.Bot
}

// NewSender wraps a bot session for message dispatch.
func NewSender(b *tgbot.Bot) *Sender {
	return &Sender{bot: b}
}

// SendText delivers one text message to the given chat.
func (s *Sender) SendText(ctx context.Context, chatID any, text string) error {
	_, err := s.bot.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}
