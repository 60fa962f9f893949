package api

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sqlc-dev/pqtype"

	"github.com/saeidalz13/armada-backend/internal/events"
	mc "github.com/saeidalz13/armada-backend/models/connection"
)

const readTimeout = time.Second * 5

var (
	testTimings = Timings{
		CpuTurnDelay:        time.Millisecond,
		StartDelay:          time.Millisecond * 10,
		PlacementWindow:     time.Second * 2,
		MatchRetention:      time.Millisecond * 50,
		MatchmakingInterval: time.Hour,
	}
	dialer = websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
)

type fakeAnalytics struct {
	mu    sync.Mutex
	count int
}

func (f *fakeAnalytics) IncrementGamesCreatedCount(_ context.Context, _ pqtype.Inet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	return nil
}

func (f *fakeAnalytics) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.MatchFinished
}

func (f *fakePublisher) PublishMatchFinished(_ context.Context, event events.MatchFinished) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublisher) Close() {}

func (f *fakePublisher) Events() []events.MatchFinished {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]events.MatchFinished(nil), f.events...)
}

type testEnv struct {
	server    *Server
	http      *httptest.Server
	wsUrl     string
	analytics *fakeAnalytics
	publisher *fakePublisher
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	env := &testEnv{analytics: &fakeAnalytics{}, publisher: &fakePublisher{}}
	base := []Option{
		WithTimings(testTimings),
		WithRandomizer(rand.New(rand.NewPCG(13, 17))),
		WithAnalytics(env.analytics),
		WithPublisher(env.publisher),
	}
	env.server = NewServer(append(base, opts...)...)
	env.http = httptest.NewServer(env.server.Routes())
	env.wsUrl = "ws" + strings.TrimPrefix(env.http.URL, "http") + RouteWs

	t.Cleanup(env.http.Close)
	return env
}

// dial opens a websocket and consumes the session id greeting.
func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	conn, _, err := dialer.Dial(e.wsUrl, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })

	greeting := readMessage[mc.RespSessionId](t, conn, mc.CodeSessionID)
	if greeting.Payload.SessionID == "" {
		t.Fatal("expected a session id")
	}
	return conn
}

func (e *testEnv) identify(t *testing.T, conn *websocket.Conn, participantId, name string) mc.RespIdentified {
	t.Helper()

	writeMessage(t, conn, mc.CodeIdentify, mc.ReqIdentify{ParticipantId: participantId, DisplayName: name})
	resp := readMessage[mc.RespIdentified](t, conn, mc.CodeIdentified)
	if resp.Error != nil {
		t.Fatalf("identify failed: %+v", resp.Error)
	}
	return resp.Payload
}

func (e *testEnv) joinQueue(t *testing.T, conn *websocket.Conn, fleetTag string) int {
	t.Helper()

	writeMessage(t, conn, mc.CodeJoinQueue, mc.ReqJoinQueue{FleetTag: fleetTag})
	resp := readMessage[mc.RespQueueJoined](t, conn, mc.CodeQueueJoined)
	if resp.Error != nil {
		t.Fatalf("join queue failed: %+v", resp.Error)
	}
	return resp.Payload.QueueSize
}

func writeMessage[T any](t *testing.T, conn *websocket.Conn, code uint8, payload T) {
	t.Helper()

	msg := mc.NewMessage[T](code)
	msg.AddPayload(payload)
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatal(err)
	}
}

// readRaw returns the next frame and its code.
func readRaw(t *testing.T, conn *websocket.Conn) (uint8, []byte) {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		t.Fatal(err)
	}
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	code, err := mc.FetchCodeFromMsg(payload)
	if err != nil {
		t.Fatal(err)
	}
	return code, payload
}

// readMessage skips frames until one with code arrives.
func readMessage[T any](t *testing.T, conn *websocket.Conn, code uint8) mc.Message[T] {
	t.Helper()

	for {
		got, payload := readRaw(t, conn)
		if got != code {
			continue
		}

		var msg mc.Message[T]
		if err := json.Unmarshal(payload, &msg); err != nil {
			t.Fatal(err)
		}
		return msg
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(readTimeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond * 10)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func decode[T any](t *testing.T, payload []byte) mc.Message[T] {
	t.Helper()

	var msg mc.Message[T]
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatal(err)
	}
	return msg
}
