package connection

// How a queued payload is put on the wire.
const (
	MessageTypeBytes uint8 = iota
	MessageTypeJSON
)

// SessionMessage is one outbound frame waiting in a session's send
// buffer. ParticipantId names the addressee for logging; it may be
// empty before the session is identified.
type SessionMessage struct {
	PayloadType   uint8
	ParticipantId string
	Payload       interface{}
}

func NewSessionMessageJSON(participantId string, payload interface{}) SessionMessage {
	return SessionMessage{PayloadType: MessageTypeJSON, ParticipantId: participantId, Payload: payload}
}

// The bytes are written verbatim as a text frame.
func NewSessionMessageBytes(participantId string, payload []byte) SessionMessage {
	return SessionMessage{PayloadType: MessageTypeBytes, ParticipantId: participantId, Payload: payload}
}
