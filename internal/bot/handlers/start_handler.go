package handlers

import (
	"context"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewStartHandler returns the handler for the /start command. It greets the
// user immediately and logs the greeting as an already-delivered outgoing
// message so the delivery poller never re-sends it.
func NewStartHandler(deps HandlerDeps) tgbot.HandlerFunc {
	return startHandler{deps}.Handle
}

type startHandler struct {
	deps HandlerDeps
}

func (h startHandler) Handle(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "start")

	msg := update.Message
	if msg == nil || msg.From == nil {
		log.WarnContext(ctx, "start handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	username := msg.From.Username
	if username == "" {
		username = msg.From.FirstName
	}
	h.deps.Sessions.Bind(msg.From.ID, username, msg.Chat.ID)

	log.InfoContext(ctx, "handling /start command", "user_id", msg.From.ID, "chat_id", msg.Chat.ID)

	welcome := strings.ReplaceAll(h.deps.Welcome, "{first_name}", msg.From.FirstName)
	if err := h.deps.Sender.SendText(ctx, msg.Chat.ID, welcome); err != nil {
		log.ErrorContext(ctx, "failed to send welcome message", "error", err, "chat_id", msg.Chat.ID)
		return
	}

	contact, err := h.deps.Contacts.ResolveOrCreate(ctx, msg.From.ID, username, h.deps.BotID)
	if err != nil {
		log.ErrorContext(ctx, "failed to resolve contact", "error", err, "user_id", msg.From.ID)
		return
	}

	if _, err := h.deps.Messages.AppendSent(ctx, contact.ID, welcome); err != nil {
		log.ErrorContext(ctx, "failed to log welcome message", "error", err, "contact_id", contact.ID)
	}
}
