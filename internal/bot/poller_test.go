package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manishindiyaar/bladex-ai/internal/store"
)

// fakeContacts serves contact lookups from memory.
type fakeContacts struct {
	mu       sync.Mutex
	byID     map[string]store.Contact
	idsCalls int
}

func newFakeContacts(contacts ...store.Contact) *fakeContacts {
	byID := make(map[string]store.Contact, len(contacts))
	for _, c := range contacts {
		byID[c.ID] = c
	}
	return &fakeContacts{byID: byID}
}

func (f *fakeContacts) ResolveOrCreate(ctx context.Context, userID int64, username, bot string) (store.Contact, error) {
	return store.Contact{}, errors.New("not used by the poller")
}

func (f *fakeContacts) ByID(ctx context.Context, id string) (store.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok {
		return store.Contact{}, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeContacts) IDsForBot(ctx context.Context, bot string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.idsCalls++
	var ids []string
	for _, c := range f.byID {
		key := c.Key()
		if key.Bot == bot {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

// fakeMessages holds an outgoing backlog and implements the conditional claim
// under a lock, like the real store does with its filtered update.
type fakeMessages struct {
	mu          sync.Mutex
	backlog     []store.Message
	claimed     map[string]bool
	unsentCalls int
}

func newFakeMessages(backlog ...store.Message) *fakeMessages {
	return &fakeMessages{backlog: backlog, claimed: make(map[string]bool)}
}

func (f *fakeMessages) Append(ctx context.Context, contactID, content string, direction store.Direction) (store.Message, error) {
	return store.Message{}, errors.New("not used by the poller")
}

func (f *fakeMessages) AppendSent(ctx context.Context, contactID, content string) (store.Message, error) {
	return store.Message{}, errors.New("not used by the poller")
}

func (f *fakeMessages) UnsentOutgoing(ctx context.Context, contactIDs []string) ([]store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsentCalls++
	if len(contactIDs) == 0 {
		return nil, nil
	}
	scope := make(map[string]struct{}, len(contactIDs))
	for _, id := range contactIDs {
		scope[id] = struct{}{}
	}
	var rows []store.Message
	for _, m := range f.backlog {
		if f.claimed[m.ID] {
			continue
		}
		if _, ok := scope[m.ContactID]; ok {
			rows = append(rows, m)
		}
	}
	return rows, nil
}

func (f *fakeMessages) Claim(ctx context.Context, messageID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimed[messageID] {
		return false, nil
	}
	f.claimed[messageID] = true
	return true, nil
}

func (f *fakeMessages) Recent(ctx context.Context, contactID string, limit int) ([]store.Message, error) {
	return nil, errors.New("not used by the poller")
}

type sentText struct {
	ChatID any
	Text   string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentText
	err  error
}

func (f *fakeSender) SendText(ctx context.Context, chatID any, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentText{ChatID: chatID, Text: text})
	return nil
}

func (f *fakeSender) sentMessages() []sentText {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentText(nil), f.sent...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPollerDeliversToBoundSession(t *testing.T) {
	contacts := newFakeContacts(store.Contact{ID: "c1", Name: "alice", ContactInfo: "7:Maxo"})
	messages := newFakeMessages(store.Message{ID: "m1", ContactID: "c1", Content: "Hi alice"})
	sessions := NewSessions()
	sessions.Bind(7, "alice", 777)
	sender := &fakeSender{}

	p := NewPoller("Maxo", contacts, messages, sessions, sender, testLogger())
	require.NoError(t, p.Run(context.Background()))

	sent := sender.sentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, int64(777), sent[0].ChatID)
	assert.Equal(t, "Hi alice", sent[0].Text)
	assert.True(t, messages.claimed["m1"])
}

func TestPollerFallsBackToRawUserID(t *testing.T) {
	contacts := newFakeContacts(store.Contact{ID: "c1", ContactInfo: "7:Maxo"})
	messages := newFakeMessages(store.Message{ID: "m1", ContactID: "c1", Content: "Hi"})
	sender := &fakeSender{}

	p := NewPoller("Maxo", contacts, messages, NewSessions(), sender, testLogger())
	require.NoError(t, p.Run(context.Background()))

	sent := sender.sentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "7", sent[0].ChatID)
}

func TestPollerUsesNonNumericFragmentVerbatim(t *testing.T) {
	contacts := newFakeContacts(store.Contact{ID: "c1", ContactInfo: "external-handle:Maxo"})
	messages := newFakeMessages(store.Message{ID: "m1", ContactID: "c1", Content: "Hi"})
	sender := &fakeSender{}

	p := NewPoller("Maxo", contacts, messages, NewSessions(), sender, testLogger())
	require.NoError(t, p.Run(context.Background()))

	sent := sender.sentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "external-handle", sent[0].ChatID)
}

func TestPollerSkipsCycleWithoutContacts(t *testing.T) {
	contacts := newFakeContacts()
	messages := newFakeMessages(store.Message{ID: "m1", ContactID: "c1", Content: "Hi"})
	sender := &fakeSender{}

	p := NewPoller("Maxo", contacts, messages, NewSessions(), sender, testLogger())
	require.NoError(t, p.Run(context.Background()))

	assert.Zero(t, messages.unsentCalls)
	assert.Empty(t, sender.sentMessages())
}

func TestPollerSkipsDuplicateRowsInOneCycle(t *testing.T) {
	contacts := newFakeContacts(store.Contact{ID: "c1", ContactInfo: "7:Maxo"})
	dup := store.Message{ID: "m1", ContactID: "c1", Content: "Hi"}
	messages := newFakeMessages(dup, dup)
	sender := &fakeSender{}

	p := NewPoller("Maxo", contacts, messages, NewSessions(), sender, testLogger())
	require.NoError(t, p.Run(context.Background()))

	assert.Len(t, sender.sentMessages(), 1)
}

func TestPollerSkipsLostClaim(t *testing.T) {
	// The row was discovered before another process claimed it; deliver must
	// lose the claim race and not dispatch.
	contacts := newFakeContacts(store.Contact{ID: "c1", ContactInfo: "7:Maxo"})
	messages := newFakeMessages(store.Message{ID: "m1", ContactID: "c1", Content: "Hi"})
	messages.claimed["m1"] = true
	sender := &fakeSender{}

	p := NewPoller("Maxo", contacts, messages, NewSessions(), sender, testLogger())
	p.deliver(context.Background(), store.Message{ID: "m1", ContactID: "c1", Content: "Hi"})

	assert.Empty(t, sender.sentMessages())
}

func TestPollerSkipsMessageOwnedByAnotherBot(t *testing.T) {
	// A suffix match like "%:ot2" can catch "bot2" rows; the poller re-checks
	// ownership from the parsed key after claiming.
	contacts := newFakeContacts(store.Contact{ID: "c1", ContactInfo: "7:Tilaj"})
	messages := newFakeMessages(store.Message{ID: "m1", ContactID: "c1", Content: "Hi"})
	sender := &fakeSender{}

	p := NewPoller("Maxo", contacts, messages, NewSessions(), sender, testLogger())
	p.deliver(context.Background(), store.Message{ID: "m1", ContactID: "c1", Content: "Hi"})

	assert.Empty(t, sender.sentMessages())
	assert.True(t, messages.claimed["m1"])
}

func TestPollerSkipsMissingContact(t *testing.T) {
	contacts := newFakeContacts(store.Contact{ID: "c1", ContactInfo: "7:Maxo"})
	messages := newFakeMessages(store.Message{ID: "m1", ContactID: "gone", Content: "Hi"})
	sender := &fakeSender{}

	p := NewPoller("Maxo", contacts, messages, NewSessions(), sender, testLogger())
	p.deliver(context.Background(), store.Message{ID: "m1", ContactID: "gone", Content: "Hi"})

	assert.Empty(t, sender.sentMessages())
	assert.True(t, messages.claimed["m1"], "message stays claimed after lookup failure")
}

func TestPollerDispatchFailureKeepsClaim(t *testing.T) {
	contacts := newFakeContacts(store.Contact{ID: "c1", ContactInfo: "7:Maxo"})
	messages := newFakeMessages(store.Message{ID: "m1", ContactID: "c1", Content: "Hi"})
	sender := &fakeSender{err: errors.New("telegram unavailable")}

	p := NewPoller("Maxo", contacts, messages, NewSessions(), sender, testLogger())
	require.NoError(t, p.Run(context.Background()))

	assert.True(t, messages.claimed["m1"])

	// A later cycle must not retry: the claim already suppressed redelivery.
	sender.mu.Lock()
	sender.err = nil
	sender.mu.Unlock()
	require.NoError(t, p.Run(context.Background()))
	assert.Empty(t, sender.sentMessages())
}

func TestPollerOnlyDeliversOwnBotsBacklog(t *testing.T) {
	contacts := newFakeContacts(
		store.Contact{ID: "c1", ContactInfo: "7:Maxo"},
		store.Contact{ID: "c2", ContactInfo: "8:Tilaj"},
	)
	messages := newFakeMessages(
		store.Message{ID: "m1", ContactID: "c1", Content: "for Maxo"},
		store.Message{ID: "m2", ContactID: "c2", Content: "for Tilaj"},
	)
	sender := &fakeSender{}

	p := NewPoller("Maxo", contacts, messages, NewSessions(), sender, testLogger())
	require.NoError(t, p.Run(context.Background()))

	sent := sender.sentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "for Maxo", sent[0].Text)
	assert.False(t, messages.claimed["m2"])
}

func TestPollersRacingOnSharedBacklogDeliverOnce(t *testing.T) {
	contacts := newFakeContacts(store.Contact{ID: "c1", ContactInfo: "7:Maxo"})
	messages := newFakeMessages(store.Message{ID: "m1", ContactID: "c1", Content: "Hi"})
	sender := &fakeSender{}

	first := NewPoller("Maxo", contacts, messages, NewSessions(), sender, testLogger())
	second := NewPoller("Maxo", contacts, messages, NewSessions(), sender, testLogger())

	var wg sync.WaitGroup
	for _, p := range []*Poller{first, second} {
		wg.Add(1)
		go func(p *Poller) {
			defer wg.Done()
			assert.NoError(t, p.Run(context.Background()))
		}(p)
	}
	wg.Wait()

	assert.Len(t, sender.sentMessages(), 1)
}
