package error

import (
	"errors"
	"fmt"
)

const (
	ConstErrAttackFailed   = "attack operation failed"
	ConstErrFleetRejected  = "fleet submission failed"
	ConstErrQueueFailed    = "matchmaking queue operation failed"
	ConstErrIdentifyFailed = "failed to identify participant"
)

// Kinds of failures the engine can report. Every constructor
// below wraps one of these so callers can match with errors.Is.
var (
	ErrPlacementRejected    = errors.New("placement rejected")
	ErrPlacementExhausted   = errors.New("placement exhausted")
	ErrOutOfBounds          = errors.New("out of bounds")
	ErrAlreadyTargeted      = errors.New("already targeted")
	ErrTurnViolation        = errors.New("turn violation")
	ErrRosterFull           = errors.New("roster full")
	ErrDuplicateParticipant = errors.New("duplicate participant")
	ErrPhaseViolation       = errors.New("phase violation")
	ErrInvalidFleet         = errors.New("invalid fleet")
	ErrUnknownContestant    = errors.New("unknown contestant")
	ErrUnknownGame          = errors.New("unknown game")
)

func ErrGameNotExists(gameUuid string) error {
	return fmt.Errorf("%w: game with this uuid does not exist, uuid: %s", ErrUnknownGame, gameUuid)
}

func ErrPlayerNotExist(playerUuid string) error {
	return fmt.Errorf("%w: player with this uuid does not exist, uuid: %s", ErrUnknownContestant, playerUuid)
}

func ErrXorYOutOfGridBound(x, y int) error {
	return fmt.Errorf("%w: incoming x or y is out of game grid bound\tx: %d\ty: %d", ErrOutOfBounds, x, y)
}

func ErrDefenceGridPositionAlreadyHit(x, y int) error {
	return fmt.Errorf("%w: this position is already hit by the attacker in previous rounds\tx: %d\ty: %d", ErrAlreadyTargeted, x, y)
}

func ErrVesselCannotBePlaced(name string, x, y int, horizontal bool) error {
	return fmt.Errorf("%w: vessel %q overlaps or leaves the grid\tx: %d\ty: %d\thorizontal: %t", ErrPlacementRejected, name, x, y, horizontal)
}

func ErrPlacementAttemptsExhausted(name string, attempts int) error {
	return fmt.Errorf("%w: failed to place vessel %q after %d attempts", ErrPlacementExhausted, name, attempts)
}

func ErrNotPlayerTurn(playerUuid string) error {
	return fmt.Errorf("%w: it is not the turn of player %s", ErrTurnViolation, playerUuid)
}

func ErrSelfTarget(playerUuid string) error {
	return fmt.Errorf("%w: player %s cannot target their own grid", ErrTurnViolation, playerUuid)
}

func ErrNoTargetLeft(playerUuid string) error {
	return fmt.Errorf("%w: player %s has no target left to shoot", ErrTurnViolation, playerUuid)
}

func ErrTargetNotAlive(playerUuid string) error {
	return fmt.Errorf("%w: target %s is not a live contestant", ErrTurnViolation, playerUuid)
}

func ErrGameRosterFull(gameUuid string, max int) error {
	return fmt.Errorf("%w: game %s already holds %d contestants", ErrRosterFull, gameUuid, max)
}

func ErrPlayerAlreadyInGame(playerUuid string) error {
	return fmt.Errorf("%w: player %s is already in this game", ErrDuplicateParticipant, playerUuid)
}

func ErrInvalidPhase(operation, phase string) error {
	return fmt.Errorf("%w: %s is not allowed while game is %s", ErrPhaseViolation, operation, phase)
}

func ErrGameNotReady(gameUuid, phase string) error {
	return fmt.Errorf("%w: game %s cannot start (phase: %s); needs 2-4 ready contestants", ErrPhaseViolation, gameUuid, phase)
}

func ErrFleetInvalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidFleet, reason)
}

func ErrSessionNotFound(sessionId string) error {
	return fmt.Errorf("session with this id does not exist, id: %s", sessionId)
}

func ErrNotIdentified() error {
	return fmt.Errorf("connection must identify before this request")
}

func ErrNotInGame(playerUuid string) error {
	return fmt.Errorf("%w: player %s is not in an active match", ErrUnknownGame, playerUuid)
}

func ErrAlreadyIdentified(playerUuid string) error {
	return fmt.Errorf("connection is already identified as %s", playerUuid)
}

func ErrDisplayNameInvalid(maxLen int) error {
	return fmt.Errorf("display name must be 1-%d characters", maxLen)
}

func ErrUnknownFleetTag(tag string) error {
	return fmt.Errorf("%w: unknown fleet tag %q", ErrInvalidFleet, tag)
}
