package sqlc

import (
	"context"
	"database/sql"
	"errors"

	cerr "github.com/saeidalz13/armada-backend/internal/error"
)

const (
	DefaultLeaderboardSize = 10
	MaxLeaderboardSize     = 100
)

// PlayerStatsManager is the identity collaborator of the game server:
// it remembers display names and keeps the win/loss record of every
// human participant.
type PlayerStatsManager struct {
	queries Querier
}

func NewPlayerStatsManager(queries Querier) *PlayerStatsManager {
	return &PlayerStatsManager{queries: queries}
}

// RegisterParticipant stores the latest display name of participantId
// and returns its record.
func (p *PlayerStatsManager) RegisterParticipant(ctx context.Context, participantId, displayName string) (Player, error) {
	return p.queries.UpsertPlayer(ctx, UpsertPlayerParams{
		ParticipantID: participantId,
		DisplayName:   displayName,
	})
}

func (p *PlayerStatsManager) ResolveParticipant(ctx context.Context, participantId string) (Player, error) {
	player, err := p.queries.GetPlayer(ctx, participantId)
	if errors.Is(err, sql.ErrNoRows) {
		return Player{}, cerr.ErrPlayerNotExist(participantId)
	}
	return player, err
}

func (p *PlayerStatsManager) ReportOutcome(ctx context.Context, participantId string, won bool) error {
	if won {
		return p.queries.RecordPlayerWin(ctx, participantId)
	}
	return p.queries.RecordPlayerLoss(ctx, participantId)
}

// Leaderboard clamps limit into [1, MaxLeaderboardSize].
func (p *PlayerStatsManager) Leaderboard(ctx context.Context, limit int) ([]Player, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}
	limit = min(limit, MaxLeaderboardSize)

	players, err := p.queries.ListLeaderboard(ctx, int32(limit))
	if err != nil {
		return nil, err
	}
	if players == nil {
		players = []Player{}
	}
	return players, nil
}
