package store

import (
	"strconv"
	"strings"
)

// ContactKey is the composite external key stored in a contact's
// contact_info column. On the wire it is "<user_id>:<bot>", or just
// "<user_id>" for rows created before bot identifiers existed. Parsing and
// formatting live here so the rest of the code never splits the string
// itself.
type ContactKey struct {
	UserID string
	Bot    string
}

// NewContactKey builds the key for a Telegram user as seen by one bot.
func NewContactKey(userID int64, bot string) ContactKey {
	return ContactKey{UserID: strconv.FormatInt(userID, 10), Bot: bot}
}

// ParseContactKey parses the wire form. It never fails: a string without a
// separator is a bare user id.
func ParseContactKey(s string) ContactKey {
	userID, bot, found := strings.Cut(s, ":")
	if !found {
		return ContactKey{UserID: s}
	}
	return ContactKey{UserID: userID, Bot: bot}
}

// String renders the wire form.
func (k ContactKey) String() string {
	if k.Bot == "" {
		return k.UserID
	}
	return k.UserID + ":" + k.Bot
}

// TelegramUserID returns the numeric user id, or ok=false when the fragment
// is not numeric and must be used verbatim as the chat handle.
func (k ContactKey) TelegramUserID() (int64, bool) {
	id, err := strconv.ParseInt(k.UserID, 10, 64)
	return id, err == nil
}
