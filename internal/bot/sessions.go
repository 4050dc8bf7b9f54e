package bot

import "sync"

// Session is the live chat binding captured from an inbound update.
type Session struct {
	Username string
	ChatID   int64
}

// Sessions maps Telegram user ids to live chat sessions for one bot process.
// It is ephemeral: lost on restart, after which the poller falls back to the
// raw user id as the chat handle. The inbound handlers write it and the
// delivery poller reads it from separate goroutines, hence the lock.
type Sessions struct {
	mu     sync.RWMutex
	byUser map[int64]Session
}

// NewSessions returns an empty, ready-to-use session map.
func NewSessions() *Sessions {
	return &Sessions{byUser: make(map[int64]Session)}
}

// Bind records (or refreshes) the live chat session for a user.
func (s *Sessions) Bind(userID int64, username string, chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[userID] = Session{Username: username, ChatID: chatID}
}

// ChatID returns the bound chat id for a user, if any update from them was
// seen in this process's lifetime.
func (s *Sessions) ChatID(userID int64) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.byUser[userID]
	return sess.ChatID, ok
}
