package api

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/saeidalz13/armada-backend/db/sqlc"
	cerr "github.com/saeidalz13/armada-backend/internal/error"
	mb "github.com/saeidalz13/armada-backend/models/battleship"
	mc "github.com/saeidalz13/armada-backend/models/connection"
)

const maxDisplayNameLen = 32

// Every incoming valid request will have this structure.
// Handlers never fail the connection; problems travel in Message.Error.
type Request struct {
	payload []byte
}

func NewRequest(payload ...[]byte) Request {
	var r Request
	if len(payload) != 0 {
		r.payload = payload[0]
	}
	return r
}

// HandleIdentify binds the session to a participant. An empty
// participant id mints a new one; an empty display name reuses the
// stored one.
func (r Request) HandleIdentify(s *Server, session *mc.Session) mc.Message[mc.RespIdentified] {
	resp := mc.NewMessage[mc.RespIdentified](mc.CodeIdentified)

	var req mc.Message[mc.ReqIdentify]
	if err := json.Unmarshal(r.payload, &req); err != nil {
		resp.AddError(err.Error(), cerr.ConstErrIdentifyFailed)
		return resp
	}

	participantId := strings.TrimSpace(req.Payload.ParticipantId)
	displayName := strings.TrimSpace(req.Payload.DisplayName)

	if current := session.ParticipantId(); current != "" && current != participantId {
		resp.AddError(cerr.ErrAlreadyIdentified(current).Error(), cerr.ConstErrIdentifyFailed)
		return resp
	}
	if utf8.RuneCountInString(displayName) > maxDisplayNameLen || (participantId == "" && displayName == "") {
		resp.AddError(cerr.ErrDisplayNameInvalid(maxDisplayNameLen).Error(), cerr.ConstErrIdentifyFailed)
		return resp
	}

	ctx, cancel := context.WithTimeout(context.Background(), sqlc.QuerierCtxTimeout)
	defer cancel()

	var (
		player sqlc.Player
		err    error
	)
	switch {
	case participantId == "":
		player, err = s.identity.RegisterParticipant(ctx, uuid.NewString(), displayName)
	case displayName == "":
		player, err = s.identity.ResolveParticipant(ctx, participantId)
	default:
		player, err = s.identity.RegisterParticipant(ctx, participantId, displayName)
	}
	if err != nil {
		resp.AddError(err.Error(), cerr.ConstErrIdentifyFailed)
		return resp
	}

	s.SessionManager.BindParticipant(session, player.ParticipantID)

	resp.AddPayload(mc.RespIdentified{
		ParticipantId: player.ParticipantID,
		DisplayName:   player.DisplayName,
		Wins:          player.Wins,
		Losses:        player.Losses,
		GamesPlayed:   player.GamesPlayed,
	})
	return resp
}

func (r Request) HandleJoinQueue(s *Server, session *mc.Session) mc.Message[mc.RespQueueJoined] {
	resp := mc.NewMessage[mc.RespQueueJoined](mc.CodeQueueJoined)

	participantId, err := requireParticipant(session)
	if err != nil {
		resp.AddError(err.Error(), cerr.ConstErrQueueFailed)
		return resp
	}
	var req mc.Message[mc.ReqJoinQueue]
	if len(r.payload) != 0 {
		if err := json.Unmarshal(r.payload, &req); err != nil {
			resp.AddError(err.Error(), cerr.ConstErrQueueFailed)
			return resp
		}
	}

	fleetTag := strings.ToUpper(strings.TrimSpace(req.Payload.FleetTag))
	if fleetTag != "" && !mb.IsKnownFleetTag(fleetTag) {
		resp.AddError(cerr.ErrUnknownFleetTag(fleetTag).Error(), cerr.ConstErrQueueFailed)
		return resp
	}

	ctx, cancel := context.WithTimeout(context.Background(), sqlc.QuerierCtxTimeout)
	defer cancel()

	player, err := s.identity.ResolveParticipant(ctx, participantId)
	if err != nil {
		resp.AddError(err.Error(), cerr.ConstErrQueueFailed)
		return resp
	}

	size, err := s.joinPool(participantId, session.Id(), player.DisplayName, fleetTag)
	if err != nil {
		resp.AddError(err.Error(), cerr.ConstErrQueueFailed)
		return resp
	}
	resp.AddPayload(mc.RespQueueJoined{QueueSize: size})
	return resp
}

func (r Request) HandleLeaveQueue(s *Server, session *mc.Session) mc.Message[mc.RespQueueLeft] {
	resp := mc.NewMessage[mc.RespQueueLeft](mc.CodeQueueLeft)

	participantId, err := requireParticipant(session)
	if err != nil {
		resp.AddError(err.Error(), cerr.ConstErrQueueFailed)
		return resp
	}

	resp.AddPayload(mc.RespQueueLeft{Removed: s.Pool.Dequeue(participantId)})
	return resp
}

func (r Request) HandleSubmitFleet(s *Server, session *mc.Session) mc.Message[mc.RespFleetAccepted] {
	resp := mc.NewMessage[mc.RespFleetAccepted](mc.CodeFleetAccepted)

	participantId, m, err := seatedParticipant(s, session)
	if err != nil {
		resp.AddError(err.Error(), cerr.ConstErrFleetRejected)
		return resp
	}

	var req mc.Message[mc.ReqSubmitFleet]
	if err := json.Unmarshal(r.payload, &req); err != nil {
		resp.AddError(err.Error(), cerr.ConstErrFleetRejected)
		return resp
	}

	if err := m.SubmitFleet(participantId, req.Payload.Vessels); err != nil {
		resp.AddError(err.Error(), cerr.ConstErrFleetRejected)
		return resp
	}

	resp.AddPayload(mc.RespFleetAccepted{GameUuid: m.Game().Uuid()})
	return resp
}

func (r Request) HandleAttack(s *Server, session *mc.Session) mc.Message[mc.RespShotResult] {
	resp := mc.NewMessage[mc.RespShotResult](mc.CodeShotResult)

	participantId, m, err := seatedParticipant(s, session)
	if err != nil {
		resp.AddError(err.Error(), cerr.ConstErrAttackFailed)
		return resp
	}

	var req mc.Message[mc.ReqAttack]
	if err := json.Unmarshal(r.payload, &req); err != nil {
		resp.AddError(err.Error(), cerr.ConstErrAttackFailed)
		return resp
	}

	coord := mb.NewCoordinates(req.Payload.X, req.Payload.Y)
	outcome, err := m.HumanShot(participantId, req.Payload.TargetId, coord)
	if err != nil {
		resp.AddError(err.Error(), cerr.ConstErrAttackFailed)
		return resp
	}

	resp.AddPayload(mc.RespShotResult{GameUuid: m.Game().Uuid(), Outcome: outcome})
	return resp
}

func seatedParticipant(s *Server, session *mc.Session) (string, *Match, error) {
	participantId, err := requireParticipant(session)
	if err != nil {
		return "", nil, err
	}

	m, seated := s.MatchOf(participantId)
	if !seated {
		return "", nil, cerr.ErrNotInGame(participantId)
	}
	return participantId, m, nil
}
