package battleship

import (
	"sync"

	"github.com/google/uuid"
	cerr "github.com/saeidalz13/armada-backend/internal/error"
)

type GameManager interface {
	CreateGame() *Game
	FetchGame(gameUuid string) (*Game, error)
	TerminateGame(gameUuid string)
	CountGames() int
}

// BattleshipGameManager is the registry of live games keyed by uuid.
type BattleshipGameManager struct {
	games map[string]*Game
	rnd   Randomizer
	mu    sync.RWMutex
}

var _ GameManager = (*BattleshipGameManager)(nil)

func NewBattleshipGameManager(rnd Randomizer) *BattleshipGameManager {
	if rnd == nil {
		rnd = DefaultRandomizer
	}
	return &BattleshipGameManager{
		games: make(map[string]*Game, 10),
		rnd:   rnd,
	}
}

func (bgm *BattleshipGameManager) CreateGame() *Game {
	game := NewGame(uuid.NewString(), bgm.rnd)

	bgm.mu.Lock()
	bgm.games[game.Uuid()] = game
	bgm.mu.Unlock()

	return game
}

func (bgm *BattleshipGameManager) FetchGame(gameUuid string) (*Game, error) {
	bgm.mu.RLock()
	game, prs := bgm.games[gameUuid]
	bgm.mu.RUnlock()
	if !prs {
		return nil, cerr.ErrGameNotExists(gameUuid)
	}

	return game, nil
}

func (bgm *BattleshipGameManager) TerminateGame(gameUuid string) {
	bgm.mu.Lock()
	delete(bgm.games, gameUuid)
	bgm.mu.Unlock()
}

func (bgm *BattleshipGameManager) CountGames() int {
	bgm.mu.RLock()
	defer bgm.mu.RUnlock()
	return len(bgm.games)
}
