package connection

import (
	mb "github.com/saeidalz13/armada-backend/models/battleship"
)

// An empty ParticipantId asks the server to mint a new identity.
type ReqIdentify struct {
	ParticipantId string `json:"participant_id,omitempty"`
	DisplayName   string `json:"display_name"`
}

type ReqJoinQueue struct {
	FleetTag string `json:"fleet_tag"`
}

type ReqSubmitFleet struct {
	Vessels []mb.VesselPlacement `json:"vessels"`
}

type ReqAttack struct {
	TargetId string `json:"target_id"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
}
