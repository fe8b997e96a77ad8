package http

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wirechat-live/internal/auth"
	"github.com/vovakirdan/wirechat-live/internal/config"
	"github.com/vovakirdan/wirechat-live/internal/core"
	"github.com/vovakirdan/wirechat-live/internal/log"
	"github.com/vovakirdan/wirechat-live/internal/store"
	"github.com/vovakirdan/wirechat-live/internal/store/sqlite"
)

type testServer struct {
	ts    *httptest.Server
	hub   *core.Hub
	store store.Store
	jwt   *auth.JWTConfig
	alice *store.User
	bob   *store.User
	carol *store.User
	conv  *store.Conversation
}

// createTestStore creates an in-memory SQLite store with schema applied.
func createTestStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", nil)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return st
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	st := createTestStore(t)
	mustUser := func(name string) *store.User {
		u, err := st.CreateUser(ctx, name, "hash")
		if err != nil {
			t.Fatalf("create user %s: %v", name, err)
		}
		return u
	}
	alice, bob, carol := mustUser("alice"), mustUser("bob"), mustUser("carol")
	conv, err := st.CreateConversation(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}

	cfg := config.Default()
	cfg.WS.PingInterval = 0
	jwtCfg := &auth.JWTConfig{Secret: []byte("transport-test-secret"), TTL: time.Hour}
	verifier, err := auth.NewVerifier(jwtCfg)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	logger := log.Nop()
	hub := core.NewHub(core.HubConfig{
		Verifier:   verifier,
		Resolver:   core.NewStoreResolver(st),
		Gateway:    core.NewStoreGateway(st),
		SendBuffer: cfg.WS.SendBuffer,
		Logger:     logger,
	})
	hubCtx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.Run(hubCtx) }()

	ts := httptest.NewServer(NewRouter(hub, verifier, &cfg, logger))
	t.Cleanup(func() {
		cancel()
		ts.Close()
	})

	return &testServer{
		ts:    ts,
		hub:   hub,
		store: st,
		jwt:   jwtCfg,
		alice: alice,
		bob:   bob,
		carol: carol,
		conv:  conv,
	}
}

func (s *testServer) token(t *testing.T, u *store.User) string {
	t.Helper()
	token, err := auth.GenerateToken(s.jwt, u.ID, u.Username)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func (s *testServer) wsURL(conversationID int64, token string) string {
	u := strings.Replace(s.ts.URL, "http", "ws", 1) + "/ws/chat/" + itoa(conversationID)
	if token != "" {
		u += "?token=" + token
	}
	return u
}

func (s *testServer) dial(ctx context.Context, t *testing.T, u *store.User) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, s.wsURL(s.conv.ID, s.token(t, u)), nil)
	if err != nil {
		t.Fatalf("dial %s: %v", u.Username, err)
	}
	t.Cleanup(func() { _ = conn.CloseNow() })
	return conn
}

// readUntil reads frames until match accepts one.
func readUntil(ctx context.Context, t *testing.T, conn *websocket.Conn, desc string, match func(map[string]any) bool) map[string]any {
	t.Helper()

	readCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	for {
		var frame map[string]any
		if err := wsjson.Read(readCtx, conn, &frame); err != nil {
			t.Fatalf("waiting for %s: %v", desc, err)
		}
		if match(frame) {
			return frame
		}
	}
}

func isType(typ string) func(map[string]any) bool {
	return func(f map[string]any) bool { return f["type"] == typ }
}

func isPresence(username, status string) func(map[string]any) bool {
	return func(f map[string]any) bool {
		if f["type"] != "online_status" || f["status"] != status {
			return false
		}
		users, _ := f["online_users"].([]any)
		for _, u := range users {
			if m, ok := u.(map[string]any); ok && m["username"] == username {
				return true
			}
		}
		return false
	}
}
