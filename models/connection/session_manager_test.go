package connection

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// Starts a websocket server whose accepted connections are registered
// on bsm and handed back through the returned channel.
func newTestServer(t *testing.T, bsm *BattleshipSessionManager) (*httptest.Server, chan *Session) {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	sessions := make(chan *Session, 4)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		sessions <- bsm.GenerateNewSession(conn)
	}))
	t.Cleanup(server.Close)

	return server, sessions
}

func dial(t *testing.T, server *httptest.Server, sessions chan *Session) (*websocket.Conn, *Session) {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })

	select {
	case session := <-sessions:
		return conn, session
	case <-time.After(time.Second * 2):
		t.Fatal("session was not registered")
	}
	return nil, nil
}

func TestCommunicate(t *testing.T) {
	bsm := NewBattleshipSessionManager()
	server, sessions := newTestServer(t, bsm)

	connA, sessionA := dial(t, server, sessions)
	connB, sessionB := dial(t, server, sessions)

	bsm.BindParticipant(sessionA, "alice")
	bsm.BindParticipant(sessionB, "bob")

	msg := NewMessage[RespQueueJoined](CodeQueueJoined)
	msg.AddPayload(RespQueueJoined{QueueSize: 3})

	if err := bsm.Communicate([]string{"alice", "bob", "nobody"}, msg); err != nil {
		t.Fatal(err)
	}

	for _, conn := range []*websocket.Conn{connA, connB} {
		_ = conn.SetReadDeadline(time.Now().Add(time.Second * 2))

		var got Message[RespQueueJoined]
		if err := conn.ReadJSON(&got); err != nil {
			t.Fatal(err)
		}
		if got.Code != CodeQueueJoined || got.Payload.QueueSize != 3 {
			t.Fatalf("expected code %d with size 3\tgot: %+v", CodeQueueJoined, got)
		}
	}
}

func TestRebindParticipant(t *testing.T) {
	bsm := NewBattleshipSessionManager()
	server, sessions := newTestServer(t, bsm)

	_, first := dial(t, server, sessions)
	_, second := dial(t, server, sessions)

	if found, err := bsm.FindSession(first.Id()); err != nil || found != first {
		t.Fatalf("expected first session to be registered\tgot: %v", err)
	}

	bsm.BindParticipant(first, "alice")
	bsm.BindParticipant(second, "alice")

	if first.ParticipantId() != "" {
		t.Fatalf("old session must lose the binding\tgot: %s", first.ParticipantId())
	}

	bsm.TerminateSession(first)
	found, err := bsm.FindParticipantSession("alice")
	if err != nil {
		t.Fatal(err)
	}
	if found != second {
		t.Fatal("terminating the old session must not unbind the new one")
	}

	bsm.TerminateSession(second)
	if _, err := bsm.FindParticipantSession("alice"); err == nil {
		t.Fatal("expected alice to be unbound")
	}
	if bsm.CountSessions() != 0 {
		t.Fatalf("expected no sessions\tgot: %d", bsm.CountSessions())
	}
	if _, err := bsm.FindSession(second.Id()); err == nil {
		t.Fatal("expected terminated session to be gone")
	}

	// terminating twice is harmless
	bsm.TerminateSession(second)
}

func TestSendAfterClose(t *testing.T) {
	bsm := NewBattleshipSessionManager()
	server, sessions := newTestServer(t, bsm)

	_, session := dial(t, server, sessions)
	bsm.TerminateSession(session)

	err := bsm.WriteToSessionConn(session, NewMessage[NoPayload](CodeQueueLeft), MessageTypeJSON)
	if !errors.Is(err, NewConnErr(ConnSessionClosed)) {
		t.Fatalf("expected closed session error\tgot: %v", err)
	}
	if code, ok := ConnErrCode(fmt.Errorf("wrapped: %w", err)); !ok || code != ConnSessionClosed {
		t.Fatalf("expected code %d through wrapping\tgot: %d", ConnSessionClosed, code)
	}

	select {
	case <-session.Done():
	default:
		t.Fatal("expected done channel to be closed")
	}
}

func TestWriteToSessionConnBytes(t *testing.T) {
	bsm := NewBattleshipSessionManager()
	server, sessions := newTestServer(t, bsm)

	conn, session := dial(t, server, sessions)

	if err := bsm.WriteToSessionConn(session, "not bytes", MessageTypeBytes); err == nil {
		t.Fatal("expected invalid message type error")
	}

	if err := bsm.WriteToSessionConn(session, []byte(`{"code":1}`), MessageTypeBytes); err != nil {
		t.Fatal(err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(time.Second * 2))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if string(payload) != `{"code":1}` {
		t.Fatalf("unexpected payload: %s", payload)
	}
}

func TestCleanupIdle(t *testing.T) {
	bsm := NewBattleshipSessionManager()
	server, sessions := newTestServer(t, bsm)

	_, session := dial(t, server, sessions)
	bsm.BindParticipant(session, "alice")

	bsm.cleanupIdle(time.Now())
	if bsm.CountSessions() != 1 {
		t.Fatal("fresh session must survive cleanup")
	}

	bsm.cleanupIdle(time.Now().Add(bsm.idleTimeout + time.Minute))
	if bsm.CountSessions() != 0 {
		t.Fatalf("expected idle session to be removed\tgot: %d", bsm.CountSessions())
	}
	if _, err := bsm.FindParticipantSession("alice"); err == nil {
		t.Fatal("expected participant binding to be removed")
	}
}

func TestFetchCodeFromMsg(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		expected uint8
		wantErr  bool
	}{
		{name: "valid code", payload: `{"code": 13, "payload": {"x": 1}}`, expected: CodeAttack},
		{name: "zero code", payload: `{"code": 0}`, expected: 0},
		{name: "missing code", payload: `{"payload": {}}`, wantErr: true},
		{name: "not json", payload: `hello`, wantErr: true},
		{name: "code out of range", payload: `{"code": 300}`, wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			code, err := FetchCodeFromMsg([]byte(test.payload))
			if test.wantErr {
				if err == nil {
					t.Fatalf("expected error\tgot code: %d", code)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if code != test.expected {
				t.Fatalf("expected: %d\tgot: %d", test.expected, code)
			}
		})
	}
}
