package handlers

import (
	"log/slog"

	"github.com/manishindiyaar/bladex-ai/internal/bot"
	"github.com/manishindiyaar/bladex-ai/internal/store"
)

// HandlerDeps provides dependencies for the Telegram update handlers.
type HandlerDeps struct {
	Logger   *slog.Logger
	BotID    string
	Welcome  string
	Contacts store.Contacts
	Messages store.Messages
	Sessions *bot.Sessions
	Sender   bot.Sender
}
