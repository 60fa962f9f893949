package api

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/saeidalz13/armada-backend/db/sqlc"
	cerr "github.com/saeidalz13/armada-backend/internal/error"
	mb "github.com/saeidalz13/armada-backend/models/battleship"
)

// memoryIdentity keeps participant records in process. It backs servers
// started without a database.
type memoryIdentity struct {
	mu      sync.Mutex
	players map[string]sqlc.Player
}

var _ IdentityCollaborator = (*memoryIdentity)(nil)

func newMemoryIdentity() *memoryIdentity {
	return &memoryIdentity{players: make(map[string]sqlc.Player, 10)}
}

func (m *memoryIdentity) RegisterParticipant(_ context.Context, participantId, displayName string) (sqlc.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	player, prs := m.players[participantId]
	if !prs {
		player = sqlc.Player{ParticipantID: participantId, CreatedAt: now}
	}
	player.DisplayName = displayName
	player.UpdatedAt = now
	m.players[participantId] = player
	return player, nil
}

func (m *memoryIdentity) ResolveParticipant(_ context.Context, participantId string) (sqlc.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	player, prs := m.players[participantId]
	if !prs {
		return sqlc.Player{}, cerr.ErrPlayerNotExist(participantId)
	}
	return player, nil
}

func (m *memoryIdentity) ReportOutcome(_ context.Context, participantId string, won bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	player, prs := m.players[participantId]
	if !prs {
		return cerr.ErrPlayerNotExist(participantId)
	}
	if won {
		player.Wins++
	} else {
		player.Losses++
	}
	player.GamesPlayed++
	player.UpdatedAt = time.Now()
	m.players[participantId] = player
	return nil
}

func (m *memoryIdentity) Leaderboard(_ context.Context, limit int) ([]sqlc.Player, error) {
	m.mu.Lock()
	players := make([]sqlc.Player, 0, len(m.players))
	for _, p := range m.players {
		players = append(players, p)
	}
	m.mu.Unlock()

	slices.SortFunc(players, func(a, b sqlc.Player) int {
		switch {
		case a.Wins != b.Wins:
			return int(b.Wins - a.Wins)
		case a.GamesPlayed != b.GamesPlayed:
			return int(a.GamesPlayed - b.GamesPlayed)
		default:
			return strings.Compare(a.ParticipantID, b.ParticipantID)
		}
	})

	if limit <= 0 {
		limit = sqlc.DefaultLeaderboardSize
	}
	limit = min(limit, sqlc.MaxLeaderboardSize, len(players))
	return players[:limit], nil
}

type lockedRandomizer struct {
	mu  sync.Mutex
	rnd mb.Randomizer
}

func (l *lockedRandomizer) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rnd.IntN(n)
}
