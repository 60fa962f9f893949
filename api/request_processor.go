package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/saeidalz13/armada-backend/internal/config"
	cerr "github.com/saeidalz13/armada-backend/internal/error"
	mc "github.com/saeidalz13/armada-backend/models/connection"
)

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		// good average time since this is not a high-latency operation such as video streaming
		HandshakeTimeout: time.Second * 5,

		ReadBufferSize:  2048,
		WriteBufferSize: 2048,
		CheckOrigin:     s.checkOrigin,
	}
}

// Any origin is accepted in dev; prod only accepts ALLOWED_ORIGINS.
func (s *Server) checkOrigin(r *http.Request) bool {
	if s.stage != config.StageProd {
		return true
	}
	return s.allowedOrigins[r.Header.Get("Origin")]
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := s.upgrader()

	// use Upgrade method to make a websocket connection
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	log.Println("a new connection established\tRemote Addr: ", conn.RemoteAddr().String())
	s.processSessionRequests(s.SessionManager.GenerateNewSession(conn))
}

func (s *Server) processSessionRequests(session *mc.Session) {
	defer func() {
		s.leave(session.Id(), session.ParticipantId())
		s.SessionManager.TerminateSession(session)
		log.Printf("session closed: %s", session.Id())
	}()

	resp := mc.NewMessage[mc.RespSessionId](mc.CodeSessionID)
	resp.AddPayload(mc.RespSessionId{SessionID: session.Id()})
	if err := s.SessionManager.WriteToSessionConn(session, resp, mc.MessageTypeJSON); err != nil {
		return
	}

sessionLoop:
	for {
		payload, err := session.ReadMessage()
		if err != nil {
			break sessionLoop
		}

		code, err := mc.FetchCodeFromMsg(payload)
		if err != nil {
			msg := mc.NewMessage[mc.NoPayload](mc.CodeSignalAbsent)
			msg.AddError("incoming req payload must contain 'code' field", "")
			if err = s.SessionManager.WriteToSessionConn(session, msg, mc.MessageTypeJSON); err != nil {
				break sessionLoop
			}
			continue sessionLoop
		}

		var respMsg interface{}

		switch code {
		case mc.CodeIdentify:
			msg := NewRequest(payload).HandleIdentify(s, session)
			if err := s.SessionManager.WriteToSessionConn(session, msg, mc.MessageTypeJSON); err != nil {
				break sessionLoop
			}

			// a participant coming back on a new connection picks up its match
			if msg.Error == nil {
				if m, seated := s.MatchOf(msg.Payload.ParticipantId); seated {
					m.Resync(msg.Payload.ParticipantId)
				}
			}
			continue sessionLoop

		case mc.CodeJoinQueue:
			respMsg = NewRequest(payload).HandleJoinQueue(s, session)

		case mc.CodeLeaveQueue:
			respMsg = NewRequest(payload).HandleLeaveQueue(s, session)

		case mc.CodeSubmitFleet:
			respMsg = NewRequest(payload).HandleSubmitFleet(s, session)

		case mc.CodeAttack:
			msg := NewRequest(payload).HandleAttack(s, session)
			// successful shots reach the attacker through the match broadcast
			if msg.Error == nil {
				continue sessionLoop
			}
			respMsg = msg

		default:
			msg := mc.NewMessage[mc.NoPayload](mc.CodeInvalidSignal)
			msg.AddError("", "invalid code in the incoming payload")
			respMsg = msg
		}

		if err := s.SessionManager.WriteToSessionConn(session, respMsg, mc.MessageTypeJSON); err != nil {
			break sessionLoop
		}
	}
}

func requireParticipant(session *mc.Session) (string, error) {
	pid := session.ParticipantId()
	if pid == "" {
		return "", cerr.ErrNotIdentified()
	}
	return pid, nil
}
