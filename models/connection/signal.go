package connection

const (
	// Sent by the server right after the connection is upgraded
	CodeSessionID uint8 = iota

	// Client binds the connection to a participant id
	CodeIdentify
	CodeIdentified

	CodeJoinQueue
	CodeQueueJoined
	CodeLeaveQueue
	CodeQueueLeft

	CodeMatchFound
	CodeRequestFleet
	CodeSubmitFleet
	CodeFleetAccepted
	CodeRosterUpdate
	CodeStartGame

	CodeAttack
	CodeShotResult
	CodeGameState
	CodeEndGame

	CodeInvalidSignal

	// if the req msg does not contain "code" field
	CodeSignalAbsent

	CodeOtherPlayerDisconnected
)

// Message is the envelope of every frame in both directions. Failures
// travel in Error next to the code of the request they answer.
type Message[T any] struct {
	Code    uint8    `json:"code"`
	Payload T        `json:"payload,omitempty"`
	Error   *RespErr `json:"error,omitempty"`
}

// NoPayload marks messages that carry only a code.
type NoPayload bool

func NewMessage[T any](code uint8) Message[T] {
	return Message[T]{Code: code}
}

func (m *Message[T]) AddPayload(payload T) {
	m.Payload = payload
}

func (m *Message[T]) AddError(errorDetails, message string) {
	m.Error = NewRespErr(errorDetails, message)
}
