package connection

import (
	"errors"
	"log"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	maxWriteWsRetries uint8 = 2
	backOffFactor     uint8 = 2

	sendBufferSize = 64
	maxMessageSize = 8192
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
)

type ConnectionHandler interface {
	handleReadFromConnErr(err error) uint8
	writeToConnWithRetry(msg interface{}, msgType uint8) error
	onConnErr(err error) uint8
}

// Session is one websocket connection. Outbound frames are queued on
// send and written by a single goroutine, so callers never touch the
// connection concurrently.
type Session struct {
	id            string
	conn          *websocket.Conn
	send          chan SessionMessage
	done          chan struct{}
	closeOnce     sync.Once
	mu            sync.RWMutex
	participantId string
	lastActive    time.Time
}

func NewSession(id string, conn *websocket.Conn) *Session {
	return &Session{
		id:         id,
		conn:       conn,
		send:       make(chan SessionMessage, sendBufferSize),
		done:       make(chan struct{}),
		lastActive: time.Now(),
	}
}

func (s *Session) Id() string {
	return s.id
}

func (s *Session) Conn() *websocket.Conn {
	return s.conn
}

// Empty until the connection identifies.
func (s *Session) ParticipantId() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.participantId
}

func (s *Session) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive
}

func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) setParticipantId(participantId string) {
	s.mu.Lock()
	s.participantId = participantId
	s.mu.Unlock()
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// Configures keepalive and launches the write pump.
func (s *Session) start() {
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.touch()
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go s.writePump()
}

// Queues msg without blocking. A slow reader whose buffer is full gets
// an error instead of stalling the caller.
func (s *Session) Send(msg SessionMessage) error {
	select {
	case <-s.done:
		return NewConnErr(ConnSessionClosed).AddDesc("session " + s.id + " is closed")
	default:
	}

	select {
	case s.send <- msg:
		return nil
	case <-s.done:
		return NewConnErr(ConnSessionClosed).AddDesc("session " + s.id + " is closed")
	default:
		return NewConnErr(ConnSendBufferFull).AddDesc("send buffer full for session " + s.id)
	}
}

// Reads the next frame. gorilla connections are unusable after a
// failed read, so the error is only classified and never retried.
func (s *Session) ReadMessage() ([]byte, error) {
	_, payload, err := s.conn.ReadMessage()
	if err != nil {
		return nil, NewConnErr(s.handleReadFromConnErr(err)).AddDesc(err.Error())
	}

	s.touch()
	return payload, nil
}

// Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
	}()

	for {
		select {
		case <-s.done:
			return

		case msg := <-s.send:
			if err := s.writeToConnWithRetry(msg.Payload, msg.PayloadType); err != nil {
				log.Printf("write pump stopped for session %s (participant %q): %v", s.id, msg.ParticipantId, err)
				return
			}

		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Printf("ping failed for session %s: %v", s.id, err)
				return
			}
		}
	}
}

func (s *Session) onConnErr(err error) uint8 {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		log.Println("timeout error:", err)
		return ConnLoopRetry
	}

	if websocket.IsCloseError(err, websocket.CloseTryAgainLater) {
		log.Println("high server load/traffic error:", err)
		return ConnLoopRetry
	}

	if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
		log.Println("close error:", err)
		return ConnLoopBreak
	}

	if websocket.IsCloseError(err, websocket.CloseProtocolError, websocket.CloseInternalServerErr, websocket.CloseTLSHandshake, websocket.CloseMandatoryExtension) {
		log.Println("critical error:", err)
		return ConnLoopBreak
	}

	/*
		Most likely a client that does not speak this protocol, e.g. one
		sending binary frames or malformed UTF-8. Breaking keeps it from
		flooding the server with invalid payloads.
	*/
	if websocket.IsCloseError(err, websocket.CloseInvalidFramePayloadData, websocket.CloseUnsupportedData, websocket.CloseMessageTooBig, websocket.ClosePolicyViolation, websocket.CloseServiceRestart, websocket.CloseNoStatusReceived) {
		log.Println("non-critical error:", err)
		return ConnLoopBreak
	}

	log.Println("unexpected error:", err)
	return ConnLoopBreak
}

// Writes to the connection of that session, retrying with a linear
// back-off on timeouts and try-again-later closures.
func (s *Session) writeToConnWithRetry(msg interface{}, msgType uint8) error {
	var retries uint8

writeLoop:
	for {
		var err error
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))

		switch msgType {
		case MessageTypeJSON:
			err = s.conn.WriteJSON(msg)

		case MessageTypeBytes:
			respBytes, ok := msg.([]byte)
			if !ok {
				return NewConnErr(ConnInvalidMsgType).AddDesc("msg type expected: []byte got invalid")
			}
			err = s.conn.WriteMessage(websocket.TextMessage, respBytes)

		default:
			return NewConnErr(ConnInvalidMsgType).AddDesc("invalid message type to write with retry")
		}

		if err == nil {
			return nil
		}

		switch s.onConnErr(err) {
		case ConnLoopRetry:
			if retries < maxWriteWsRetries {
				retries++
				log.Printf("writing to ws failed [%s]; retrying... (retry no. %d)\n", s.conn.RemoteAddr().String(), retries)
				time.Sleep(time.Duration(retries*backOffFactor) * time.Second)
				continue writeLoop
			}
			log.Printf("max retries reached for writing to ws [%s]: %s", s.conn.RemoteAddr().String(), err)
			return NewConnErr(ConnLoopBreak).AddDesc(err.Error())

		default:
			return NewConnErr(ConnLoopBreak).AddDesc("breaking writeLoop due to: " + err.Error())
		}
	}
}

func (s *Session) handleReadFromConnErr(err error) uint8 {
	s.onConnErr(err)
	log.Printf("break ws conn loop [%s] due to: %s\n", s.conn.RemoteAddr().String(), err)
	return ConnLoopBreak
}

var _ ConnectionHandler = (*Session)(nil)
