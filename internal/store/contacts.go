package store

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ResolveOrCreate looks a contact up by its composite key. On a miss it
// creates the row with a display name derived from the Telegram username (or
// the configured default prefix plus user id), decorated with the bot
// identifier so multiple bots can share the contacts table. On a hit it only
// bumps last_contact.
//
// Concurrent calls for the same unseen user can race; the store's unique
// constraint on contact_info is the only guard, and a duplicate row is a
// tolerated rare failure mode rather than something this client prevents.
func (c *Client) ResolveOrCreate(ctx context.Context, userID int64, username, bot string) (Contact, error) {
	key := NewContactKey(userID, bot)

	query := url.Values{}
	query.Set("contact_info", "eq."+key.String())

	var rows []Contact
	if err := c.do(ctx, http.MethodGet, "contacts", query, nil, &rows, false); err != nil {
		return Contact{}, fmt.Errorf("lookup contact %s: %w", key, err)
	}

	now := time.Now().UTC()
	if len(rows) > 0 {
		contact := rows[0]

		patch := url.Values{}
		patch.Set("id", "eq."+contact.ID)
		update := map[string]any{"last_contact": now.Format(time.RFC3339)}
		if err := c.do(ctx, http.MethodPatch, "contacts", patch, update, nil, false); err != nil {
			// Stale last_contact only affects UI ordering; the resolved id
			// is still good.
			c.logger.WarnContext(ctx, "failed to update last_contact",
				"contact_id", contact.ID, "error", err)
		} else {
			contact.LastContact = now
		}
		return contact, nil
	}

	created := Contact{
		Name:        c.displayName(userID, username, bot),
		ContactInfo: key.String(),
		LastContact: now,
	}

	var out []Contact
	if err := c.do(ctx, http.MethodPost, "contacts", nil, created, &out, true); err != nil {
		return Contact{}, fmt.Errorf("create contact %s: %w", key, err)
	}
	if len(out) == 0 {
		return Contact{}, fmt.Errorf("create contact %s: store returned no row", key)
	}

	c.logger.InfoContext(ctx, "created contact",
		"name", out[0].Name, "contact_info", key.String())
	return out[0], nil
}

// ByID fetches one contact by its store-assigned id.
func (c *Client) ByID(ctx context.Context, id string) (Contact, error) {
	query := url.Values{}
	query.Set("id", "eq."+id)

	var rows []Contact
	if err := c.do(ctx, http.MethodGet, "contacts", query, nil, &rows, false); err != nil {
		return Contact{}, fmt.Errorf("fetch contact %s: %w", id, err)
	}
	if len(rows) == 0 {
		return Contact{}, fmt.Errorf("contact %s: %w", id, ErrNotFound)
	}
	return rows[0], nil
}

// IDsForBot lists the ids of every contact scoped to the given bot
// identifier, matched by the ":<bot>" suffix of contact_info.
func (c *Client) IDsForBot(ctx context.Context, bot string) ([]string, error) {
	query := url.Values{}
	query.Set("select", "id")
	query.Set("contact_info", "like.%:"+bot)

	var rows []struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodGet, "contacts", query, nil, &rows, false); err != nil {
		return nil, fmt.Errorf("list contacts for bot %s: %w", bot, err)
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}

// displayName derives the UI label for a new contact. A Telegram username is
// kept as-is; generic "botN" slots append the slot in parentheses for
// disambiguation. Only anonymous users of a named bot get labelled with the
// capitalized bot name.
func (c *Client) displayName(userID int64, username, bot string) string {
	name := username
	if name == "" {
		name = fmt.Sprintf("%s_%d", c.defaultName, userID)
	}

	switch {
	case bot == "":
		return name
	case strings.HasPrefix(bot, "bot"):
		return fmt.Sprintf("%s (%s)", name, bot)
	case username == "":
		return strings.ToUpper(bot[:1]) + bot[1:]
	default:
		return name
	}
}
