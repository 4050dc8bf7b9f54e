// Package store implements the client for the shared REST datastore that
// holds contacts and messages. The datastore exposes a PostgREST-style API
// (/rest/v1/<table> with column filters in the query string) and is shared
// with the agent UI, so the wire format is fixed.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound is returned when a lookup by id matches no row.
var ErrNotFound = errors.New("not found")

// Contacts is the contact-table surface used by the inbound handlers and the
// delivery poller.
type Contacts interface {
	// ResolveOrCreate looks a contact up by its composite key, creating it
	// on first sight and bumping last_contact on every later call.
	ResolveOrCreate(ctx context.Context, userID int64, username, bot string) (Contact, error)

	// ByID fetches one contact. Returns ErrNotFound when the row is gone.
	ByID(ctx context.Context, id string) (Contact, error)

	// IDsForBot lists ids of every contact whose key carries the given bot
	// identifier suffix.
	IDsForBot(ctx context.Context, bot string) ([]string, error)
}

// Messages is the message-log surface.
type Messages interface {
	// Append logs one chat turn. Incoming messages are stored already
	// marked sent; outgoing ones start unsent and wait for a poller claim.
	Append(ctx context.Context, contactID, content string, direction Direction) (Message, error)

	// AppendSent logs an outgoing message that was already delivered
	// synchronously (the /start greeting), so no poller should pick it up.
	AppendSent(ctx context.Context, contactID, content string) (Message, error)

	// UnsentOutgoing lists outgoing messages not yet claimed, restricted to
	// the given contacts. An empty id set yields no rows; it never falls
	// back to an unscoped query.
	UnsentOutgoing(ctx context.Context, contactIDs []string) ([]Message, error)

	// Claim conditionally marks one message as sent and reports whether
	// this call won the race. A false result means another process claimed
	// it first.
	Claim(ctx context.Context, messageID string) (bool, error)

	// Recent returns up to limit messages for a contact in chronological
	// order.
	Recent(ctx context.Context, contactID string, limit int) ([]Message, error)
}

// Client talks to the datastore over HTTP. It implements both Contacts and
// Messages.
type Client struct {
	http        *http.Client
	baseURL     string
	apiKey      string
	defaultName string
	logger      *slog.Logger
}

var _ Contacts = (*Client)(nil)
var _ Messages = (*Client)(nil)

// NewClient creates a datastore client. defaultName is the prefix used when
// deriving a display name for users without a Telegram username.
func NewClient(baseURL, apiKey, defaultName string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:        &http.Client{Timeout: 30 * time.Second},
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		defaultName: defaultName,
		logger:      logger.With("component", "store"),
	}
}

// do issues one datastore request. out, when non-nil, receives the decoded
// JSON body; returnRows asks the store to echo affected rows back on writes.
func (c *Client) do(ctx context.Context, method, table string, query url.Values, body, out any, returnRows bool) error {
	endpoint := c.baseURL + "/rest/v1/" + table
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", table, err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, payload)
	if err != nil {
		return fmt.Errorf("build %s request: %w", table, err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if returnRows {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, table, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read response: %w", method, table, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status %d: %s", method, table, resp.StatusCode, truncate(string(raw), 200))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%s %s: decode response: %w", method, table, err)
		}
	}
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
