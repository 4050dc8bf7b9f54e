package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/manishindiyaar/bladex-ai/internal/store"
)

// Sender dispatches a text message to a chat. The chat id is either the
// numeric id of a live session or the raw user-id string fallback; the
// Telegram API accepts both.
type Sender interface {
	SendText(ctx context.Context, chatID any, text string) error
}

// Poller is the recurring delivery job for one bot process. Each run lists
// unsent outgoing messages scoped to this bot's contacts, claims each one
// with a conditional update, and dispatches only the claimed ones. The claim
// is the sole mutual-exclusion mechanism between bot processes racing on the
// shared messages table.
type Poller struct {
	botID    string
	contacts store.Contacts
	messages store.Messages
	sessions *Sessions
	sender   Sender
	logger   *slog.Logger
}

// NewPoller wires a delivery poller for one bot.
func NewPoller(botID string, contacts store.Contacts, messages store.Messages, sessions *Sessions, sender Sender, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		botID:    botID,
		contacts: contacts,
		messages: messages,
		sessions: sessions,
		sender:   sender,
		logger:   logger.With("component", "poller", "bot", botID),
	}
}

// Run executes one delivery cycle. Per-message failures are logged and do not
// abort the cycle; the returned error covers only the discovery queries,
// which retry naturally on the next interval.
func (p *Poller) Run(ctx context.Context) error {
	contactIDs, err := p.contacts.IDsForBot(ctx, p.botID)
	if err != nil {
		return fmt.Errorf("list contacts for bot: %w", err)
	}
	if len(contactIDs) == 0 {
		// No contacts means no candidate messages. Querying messages with
		// an empty filter would return every bot's backlog.
		p.logger.DebugContext(ctx, "no contacts for bot, skipping cycle")
		return nil
	}

	pending, err := p.messages.UnsentOutgoing(ctx, contactIDs)
	if err != nil {
		return fmt.Errorf("list unsent outgoing messages: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}
	p.logger.InfoContext(ctx, "found outgoing messages to deliver", "count", len(pending))

	seen := make(map[string]struct{}, len(pending))
	for _, msg := range pending {
		if _, dup := seen[msg.ID]; dup {
			p.logger.DebugContext(ctx, "duplicate row in result page, skipping", "message_id", msg.ID)
			continue
		}
		seen[msg.ID] = struct{}{}
		p.deliver(ctx, msg)
	}
	return nil
}

// deliver claims one message and, only after the claim is confirmed,
// dispatches it. A dispatch failure does not roll the claim back: the message
// stays marked sent, trading duplicate suppression for possible loss.
func (p *Poller) deliver(ctx context.Context, msg store.Message) {
	log := p.logger.With("message_id", msg.ID, "contact_id", msg.ContactID)

	won, err := p.messages.Claim(ctx, msg.ID)
	if err != nil {
		log.ErrorContext(ctx, "claim failed", "error", err)
		return
	}
	if !won {
		log.DebugContext(ctx, "message already claimed by another process")
		return
	}

	contact, err := p.contacts.ByID(ctx, msg.ContactID)
	if err != nil {
		log.ErrorContext(ctx, "contact lookup failed after claim", "error", err)
		return
	}

	key := contact.Key()
	// The discovery query matches contact_info by string suffix, not an
	// exact field, so re-check ownership before dispatching.
	if key.Bot != "" && key.Bot != p.botID {
		log.WarnContext(ctx, "message belongs to another bot, skipping", "message_bot", key.Bot)
		return
	}

	chatID := p.resolveChat(key)
	if err := p.sender.SendText(ctx, chatID, msg.Content); err != nil {
		log.ErrorContext(ctx, "dispatch failed, message stays claimed",
			"chat_id", chatID, "error", err)
		return
	}
	log.InfoContext(ctx, "message delivered", "chat_id", chatID)
}

// resolveChat prefers the live session captured from a prior inbound update
// in this process's lifetime, then falls back to the raw user-id fragment. A
// non-numeric fragment is used verbatim.
func (p *Poller) resolveChat(key store.ContactKey) any {
	if userID, ok := key.TelegramUserID(); ok {
		if chatID, bound := p.sessions.ChatID(userID); bound {
			return chatID
		}
	}
	return key.UserID
}
