package connection

import (
	mb "github.com/saeidalz13/armada-backend/models/battleship"
)

type RespSessionId struct {
	SessionID string `json:"session_id"`
}

type RespIdentified struct {
	ParticipantId string `json:"participant_id"`
	DisplayName   string `json:"display_name"`
	Wins          int64  `json:"wins"`
	Losses        int64  `json:"losses"`
	GamesPlayed   int64  `json:"games_played"`
}

type RespQueueJoined struct {
	QueueSize int `json:"queue_size"`
}

type RespMatchFound struct {
	GameUuid    string              `json:"game_uuid"`
	Contestants []mb.ContestantInfo `json:"contestants"`
}

type RespRequestFleet struct {
	GameUuid          string          `json:"game_uuid"`
	FleetTag          string          `json:"fleet_tag"`
	GridSize          int             `json:"grid_size"`
	Fleet             []mb.VesselSpec `json:"fleet"`
	PlacementWindowMs int64           `json:"placement_window_ms"`
}

type RespRosterUpdate struct {
	GameUuid    string              `json:"game_uuid"`
	Contestants []mb.ContestantInfo `json:"contestants"`
}

type RespStartGame struct {
	GameUuid      string `json:"game_uuid"`
	CurrentTurnId string `json:"current_turn_id"`
}

type RespFleetAccepted struct {
	GameUuid string `json:"game_uuid"`
}

type RespShotResult struct {
	GameUuid string         `json:"game_uuid"`
	Outcome  mb.ShotOutcome `json:"outcome"`
}

type RespGameState struct {
	State mb.GameState `json:"state"`
}

type RespQueueLeft struct {
	Removed bool `json:"removed"`
}

type RespEndGame struct {
	GameUuid string               `json:"game_uuid"`
	WinnerId string               `json:"winner_id,omitempty"`
	Tally    []mb.ContestantTally `json:"tally"`
}

type RespOtherPlayerDisconnected struct {
	ParticipantId string `json:"participant_id"`
	DisplayName   string `json:"display_name"`
}

type RespErr struct {
	ErrorDetails string `json:"error_details,omitempty"`
	Message      string `json:"message,omitempty"`
}

func NewRespErr(errorDetails, message string) *RespErr {
	return &RespErr{
		ErrorDetails: errorDetails,
		Message:      message,
	}
}
