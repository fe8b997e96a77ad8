package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/wirechat-live/internal/auth"
	"github.com/vovakirdan/wirechat-live/internal/store"
)

// fakeDirectory is an in-memory Resolver and Gateway.
type fakeDirectory struct {
	mu            sync.Mutex
	users         map[int64]*store.User
	conversations map[int64]map[int64]bool
	messages      []*store.Message
	createErr     error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		users:         make(map[int64]*store.User),
		conversations: make(map[int64]map[int64]bool),
	}
}

func (d *fakeDirectory) addUser(id int64, name string) *store.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	u := &store.User{ID: id, Username: name, PasswordHash: "secret-hash"}
	d.users[id] = u
	return u
}

func (d *fakeDirectory) addConversation(id int64, participants ...int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	members := make(map[int64]bool, len(participants))
	for _, p := range participants {
		members[p] = true
	}
	d.conversations[id] = members
}

func (d *fakeDirectory) failCreate(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.createErr = err
}

func (d *fakeDirectory) storedMessages() []*store.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*store.Message(nil), d.messages...)
}

func (d *fakeDirectory) ResolveUser(_ context.Context, userID int64) (*store.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", userID, store.ErrNotFound)
	}
	return u, nil
}

func (d *fakeDirectory) ResolveConversation(_ context.Context, conversationID int64) (*store.Conversation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.conversations[conversationID]; !ok {
		return nil, fmt.Errorf("conversation %d: %w", conversationID, store.ErrNotFound)
	}
	return &store.Conversation{ID: conversationID}, nil
}

func (d *fakeDirectory) IsParticipant(_ context.Context, conversationID, userID int64) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conversations[conversationID][userID], nil
}

func (d *fakeDirectory) Create(_ context.Context, conversationID, senderID int64, content string) (*store.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.createErr != nil {
		return nil, d.createErr
	}
	msg := &store.Message{
		ID:             int64(len(d.messages) + 1),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
	d.messages = append(d.messages, msg)
	return msg, nil
}

type testEnv struct {
	hub *Hub
	dir *fakeDirectory
	jwt *auth.JWTConfig
}

const testConversation = 42

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	jwtCfg := &auth.JWTConfig{Secret: []byte("core-test-secret"), TTL: time.Hour}
	verifier, err := auth.NewVerifier(jwtCfg)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	dir := newFakeDirectory()
	dir.addUser(1, "alice")
	dir.addUser(2, "bob")
	dir.addUser(3, "carol")
	dir.addConversation(testConversation, 1, 2)

	hub := NewHub(HubConfig{
		Verifier:   verifier,
		Resolver:   dir,
		Gateway:    dir,
		SendBuffer: 16,
	})
	return &testEnv{hub: hub, dir: dir, jwt: jwtCfg}
}

func (e *testEnv) token(t *testing.T, userID int64) string {
	t.Helper()
	token, err := auth.GenerateToken(e.jwt, userID, "")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func (e *testEnv) connect(t *testing.T, userID int64) *Session {
	t.Helper()
	s := e.hub.NewSession()
	if err := e.hub.Connect(context.Background(), s, e.token(t, userID), testConversation); err != nil {
		t.Fatalf("connect user %d: %v", userID, err)
	}
	return s
}

// joinedSession builds a session already bound to a conversation, bypassing the hub.
func joinedSession(t *testing.T, id string, userID, conversationID int64, buffer int) *Session {
	t.Helper()
	s := newSession(id, buffer)
	if err := s.transition(StateConnecting, StateAuthenticating); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if err := s.bind(PublicUser{ID: userID}, conversationID); err != nil {
		t.Fatalf("bind: %v", err)
	}
	return s
}

func mustEventMatching(t *testing.T, s *Session, desc string, match func(*Event) bool) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-s.Events():
			if ev == nil {
				continue
			}
			if match(ev) {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected %s not received by session %s", desc, s.ID())
	return nil
}

func mustEvent(t *testing.T, s *Session, kind EventKind) *Event {
	t.Helper()
	return mustEventMatching(t, s, "event "+kind.String(), func(ev *Event) bool { return ev.Kind == kind })
}

func mustPresence(t *testing.T, s *Session, userID int64, status PresenceStatus) *Event {
	t.Helper()
	return mustEventMatching(t, s, fmt.Sprintf("%s presence of user %d", status, userID), func(ev *Event) bool {
		return ev.Kind == EventPresence && ev.Status == status && ev.User.ID == userID
	})
}

// expectNoEvent fails if an event of kind arrives within wait.
func expectNoEvent(t *testing.T, s *Session, kind EventKind, wait time.Duration) {
	t.Helper()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		select {
		case ev := <-s.Events():
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected %s event: %+v", kind, ev)
			}
		case <-timer.C:
			return
		}
	}
}
