package connection

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	cerr "github.com/saeidalz13/armada-backend/internal/error"
)

const (
	defaultCleanupInterval = time.Minute * 5
	defaultIdleTimeout     = time.Minute * 20
)

type SessionManager interface {
	GenerateNewSession(conn *websocket.Conn) *Session
	CleanupPeriodically(ctx context.Context)

	FindSession(sessionId string) (*Session, error)
	FindParticipantSession(participantId string) (*Session, error)
	BindParticipant(session *Session, participantId string)
	TerminateSession(session *Session)
	CountSessions() int

	WriteToSessionConn(session *Session, msg interface{}, msgType uint8) error
	Communicate(participantIds []string, msg interface{}) error
}

// BattleshipSessionManager tracks live sessions and which participant
// each one speaks for. A participant maps to at most one session; the
// newest identification wins.
type BattleshipSessionManager struct {
	cleanupInterval time.Duration
	idleTimeout     time.Duration
	sessions        map[string]*Session
	participants    map[string]*Session
	mu              sync.RWMutex
}

func NewBattleshipSessionManager() *BattleshipSessionManager {
	initMapSize := 10

	return &BattleshipSessionManager{
		sessions:        make(map[string]*Session, initMapSize),
		participants:    make(map[string]*Session, initMapSize),
		cleanupInterval: defaultCleanupInterval,
		idleTimeout:     defaultIdleTimeout,
	}
}

var _ SessionManager = (*BattleshipSessionManager)(nil)

// Registers a session for conn and starts its write pump.
func (bsm *BattleshipSessionManager) GenerateNewSession(conn *websocket.Conn) *Session {
	sessionId := base64.RawURLEncoding.EncodeToString([]byte(uuid.NewString()))
	session := NewSession(sessionId, conn)

	bsm.mu.Lock()
	bsm.sessions[sessionId] = session
	bsm.mu.Unlock()

	session.start()
	return session
}

func (bsm *BattleshipSessionManager) FindSession(sessionId string) (*Session, error) {
	bsm.mu.RLock()
	defer bsm.mu.RUnlock()

	session, prs := bsm.sessions[sessionId]
	if !prs {
		return nil, cerr.ErrSessionNotFound(sessionId)
	}
	return session, nil
}

func (bsm *BattleshipSessionManager) FindParticipantSession(participantId string) (*Session, error) {
	bsm.mu.RLock()
	defer bsm.mu.RUnlock()

	session, prs := bsm.participants[participantId]
	if !prs {
		return nil, cerr.ErrPlayerNotExist(participantId)
	}
	return session, nil
}

// Points participantId at session, detaching it from any session that
// held it before and dropping the session's previous participant.
func (bsm *BattleshipSessionManager) BindParticipant(session *Session, participantId string) {
	bsm.mu.Lock()
	defer bsm.mu.Unlock()

	if prev := session.ParticipantId(); prev != "" && bsm.participants[prev] == session {
		delete(bsm.participants, prev)
	}
	if old, prs := bsm.participants[participantId]; prs && old != session {
		old.setParticipantId("")
	}

	bsm.participants[participantId] = session
	session.setParticipantId(participantId)
}

// Closes the connection and forgets the session. The participant
// binding is only removed if it still points at this session.
func (bsm *BattleshipSessionManager) TerminateSession(session *Session) {
	bsm.mu.Lock()
	delete(bsm.sessions, session.id)
	if pid := session.ParticipantId(); pid != "" && bsm.participants[pid] == session {
		delete(bsm.participants, pid)
	}
	bsm.mu.Unlock()

	session.Close()
}

func (bsm *BattleshipSessionManager) CountSessions() int {
	bsm.mu.RLock()
	defer bsm.mu.RUnlock()
	return len(bsm.sessions)
}

func (bsm *BattleshipSessionManager) WriteToSessionConn(session *Session, msg interface{}, msgType uint8) error {
	switch msgType {
	case MessageTypeBytes:
		b, ok := msg.([]byte)
		if !ok {
			return NewConnErr(ConnInvalidMsgType).AddDesc("msg type expected: []byte got invalid")
		}
		return session.Send(NewSessionMessageBytes(session.ParticipantId(), b))

	case MessageTypeJSON:
		return session.Send(NewSessionMessageJSON(session.ParticipantId(), msg))

	default:
		return NewConnErr(ConnInvalidMsgType).AddDesc("invalid message type")
	}
}

// Delivers msg to every listed participant that currently has a session.
// Participants without a session are skipped; delivery failures are
// collected and returned together.
func (bsm *BattleshipSessionManager) Communicate(participantIds []string, msg interface{}) error {
	var errs []error

	for _, pid := range participantIds {
		session, err := bsm.FindParticipantSession(pid)
		if err != nil {
			continue
		}
		if err := session.Send(NewSessionMessageJSON(pid, msg)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Sessions that have not read a frame or pong for idleTimeout are
// closed; their read loops then exit and run the normal teardown.
func (bsm *BattleshipSessionManager) CleanupPeriodically(ctx context.Context) {
	ticker := time.NewTicker(bsm.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			bsm.cleanupIdle(time.Now())
		}
	}
}

func (bsm *BattleshipSessionManager) cleanupIdle(now time.Time) {
	bsm.mu.RLock()
	stale := make([]*Session, 0, 10)
	for _, session := range bsm.sessions {
		if now.Sub(session.LastActive()) > bsm.idleTimeout {
			stale = append(stale, session)
		}
	}
	bsm.mu.RUnlock()

	for _, session := range stale {
		log.Printf("removed idle session: %s", session.id)
		bsm.TerminateSession(session)
	}
}

func FetchCodeFromMsg(payload []byte) (uint8, error) {
	var signal struct {
		Code *uint8 `json:"code"`
	}
	if err := json.Unmarshal(payload, &signal); err != nil {
		return 0, err
	}
	if signal.Code == nil {
		return 0, errors.New("incoming msg does not contain 'code'")
	}
	return *signal.Code, nil
}
