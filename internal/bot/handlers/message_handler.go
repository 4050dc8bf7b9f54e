// Package handlers contains the Telegram update handlers for one relay bot:
// the default text-message handler and the /start command.
package handlers

import (
	"context"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/manishindiyaar/bladex-ai/internal/store"
)

// NewMessageHandler returns the default handler for plain text messages. It
// binds the live chat session, upserts the contact, and appends the message
// to the shared log. No reply is sent: replies come from the agent UI through
// the store and are delivered by the poller.
func NewMessageHandler(deps HandlerDeps) tgbot.HandlerFunc {
	return messageHandler{deps}.Handle
}

type messageHandler struct {
	deps HandlerDeps
}

func (h messageHandler) Handle(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "message")

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Text == "" {
		return
	}
	// Commands are routed to their own handlers; anything unrecognized that
	// still looks like a command is not a customer message.
	if strings.HasPrefix(msg.Text, "/") {
		return
	}

	username := msg.From.Username
	if username == "" {
		username = msg.From.FirstName
	}
	h.deps.Sessions.Bind(msg.From.ID, username, msg.Chat.ID)

	log.InfoContext(ctx, "received message",
		"user_id", msg.From.ID, "chat_id", msg.Chat.ID, "username", username)

	contact, err := h.deps.Contacts.ResolveOrCreate(ctx, msg.From.ID, username, h.deps.BotID)
	if err != nil {
		log.ErrorContext(ctx, "failed to resolve contact", "error", err, "user_id", msg.From.ID)
		return
	}

	saved, err := h.deps.Messages.Append(ctx, contact.ID, msg.Text, store.DirectionIncoming)
	if err != nil {
		log.ErrorContext(ctx, "failed to save message", "error", err, "contact_id", contact.ID)
		return
	}

	log.InfoContext(ctx, "message stored, awaiting reply from UI",
		"message_id", saved.ID, "contact_id", contact.ID)
}
