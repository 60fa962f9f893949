package connection

import (
	"errors"
	"fmt"
)

// Outcomes of a failed connection operation. The loop codes tell the
// caller what to do next; the rest describe why a frame was refused.
const (
	ConnLoopBreak uint8 = iota
	ConnLoopRetry
	ConnInvalidMsgType
	ConnSendBufferFull
	ConnSessionClosed
)

type ConnErr struct {
	code uint8
	desc string
}

func NewConnErr(code uint8) ConnErr {
	return ConnErr{code: code}
}

func (c ConnErr) AddDesc(desc string) ConnErr {
	c.desc = desc
	return c
}

func (c ConnErr) Error() string {
	return fmt.Sprintf("connection error - code: %d\tdesc: %s", c.code, c.desc)
}

func (c ConnErr) Code() uint8 {
	return c.code
}

// Is matches any ConnErr with the same code, so
// errors.Is(err, NewConnErr(ConnSessionClosed)) works on wrapped errors.
func (c ConnErr) Is(target error) bool {
	var other ConnErr
	if !errors.As(target, &other) {
		return false
	}
	return other.code == c.code
}

// ConnErrCode extracts the code of a ConnErr anywhere in err's chain.
func ConnErrCode(err error) (uint8, bool) {
	var connErr ConnErr
	if !errors.As(err, &connErr) {
		return 0, false
	}
	return connErr.code, true
}
