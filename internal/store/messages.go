package store

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Append logs one chat turn against a contact. is_sent follows the direction
// rule: incoming messages are already "delivered" to the store, outgoing ones
// wait for a delivery poller to claim them.
func (c *Client) Append(ctx context.Context, contactID, content string, direction Direction) (Message, error) {
	return c.insertMessage(ctx, Message{
		ContactID:      contactID,
		Content:        content,
		Timestamp:      time.Now().UTC(),
		Direction:      direction,
		IsFromCustomer: direction == DirectionIncoming,
		IsSent:         direction == DirectionIncoming,
	})
}

// AppendSent logs an outgoing message that was delivered synchronously, so it
// is born claimed and no poller will pick it up.
func (c *Client) AppendSent(ctx context.Context, contactID, content string) (Message, error) {
	return c.insertMessage(ctx, Message{
		ContactID: contactID,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Direction: DirectionOutgoing,
		IsSent:    true,
	})
}

func (c *Client) insertMessage(ctx context.Context, msg Message) (Message, error) {
	var out []Message
	if err := c.do(ctx, http.MethodPost, "messages", nil, msg, &out, true); err != nil {
		return Message{}, fmt.Errorf("save message for contact %s: %w", msg.ContactID, err)
	}
	if len(out) == 0 {
		return Message{}, fmt.Errorf("save message for contact %s: store returned no row", msg.ContactID)
	}
	c.logger.DebugContext(ctx, "message saved",
		"message_id", out[0].ID, "contact_id", msg.ContactID, "direction", msg.Direction)
	return out[0], nil
}

// UnsentOutgoing lists outgoing messages not yet claimed for delivery,
// restricted to the given contact ids. An empty id set short-circuits to no
// rows: the unfiltered query would return every bot's backlog.
func (c *Client) UnsentOutgoing(ctx context.Context, contactIDs []string) ([]Message, error) {
	if len(contactIDs) == 0 {
		return nil, nil
	}

	query := url.Values{}
	query.Set("select", "id,contact_id,content,timestamp")
	query.Set("direction", "eq.outgoing")
	query.Set("is_sent", "eq.false")
	query.Set("contact_id", "in.("+strings.Join(contactIDs, ",")+")")

	var rows []Message
	if err := c.do(ctx, http.MethodGet, "messages", query, nil, &rows, false); err != nil {
		return nil, fmt.Errorf("list unsent outgoing messages: %w", err)
	}
	return rows, nil
}

// Claim conditionally flips is_sent on one message, filtered on it still
// being false, and asks for the updated row back. Zero rows returned means
// another process won the race. This conditional update is the only
// cross-process mutual exclusion in the system.
func (c *Client) Claim(ctx context.Context, messageID string) (bool, error) {
	query := url.Values{}
	query.Set("id", "eq."+messageID)
	query.Set("is_sent", "eq.false")

	var rows []Message
	update := map[string]any{"is_sent": true}
	if err := c.do(ctx, http.MethodPatch, "messages", query, update, &rows, true); err != nil {
		return false, fmt.Errorf("claim message %s: %w", messageID, err)
	}
	return len(rows) > 0, nil
}

// Recent returns up to limit messages for a contact, oldest first.
func (c *Client) Recent(ctx context.Context, contactID string, limit int) ([]Message, error) {
	query := url.Values{}
	query.Set("contact_id", "eq."+contactID)
	query.Set("order", "timestamp.desc")
	query.Set("limit", strconv.Itoa(limit))

	var rows []Message
	if err := c.do(ctx, http.MethodGet, "messages", query, nil, &rows, false); err != nil {
		return nil, fmt.Errorf("list recent messages for contact %s: %w", contactID, err)
	}

	// The store returns newest first; callers want chronological order.
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}
