package matchmaking

import (
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/saeidalz13/armada-backend/models/battleship"
)

const (
	// Seats filled by automated contestants when a lone participant is matched.
	AutomatedSeats    = battleship.MaxContestants - 1
	AutomatedIdPrefix = "cpu_"
)

var automatedFleetTags = []string{"UK", "JP", "CN"}

type WaitingEntry struct {
	ParticipantId   string
	TransportHandle string
	DisplayName     string
	FleetTag        string
	EnqueuedAt      time.Time
}

type AutomatedSeat struct {
	Id       string
	Name     string
	FleetTag string
}

type MatchResult struct {
	Game      *battleship.Game
	Humans    []WaitingEntry
	Automated []AutomatedSeat
}

// Pool is the FIFO queue of participants waiting for a match.
type Pool struct {
	mu    sync.Mutex
	queue []WaitingEntry
	games battleship.GameManager
	rnd   battleship.Randomizer
	now   func() time.Time
}

func NewPool(games battleship.GameManager, rnd battleship.Randomizer) *Pool {
	if rnd == nil {
		rnd = battleship.DefaultRandomizer
	}
	return &Pool{
		queue: make([]WaitingEntry, 0, 16),
		games: games,
		rnd:   rnd,
		now:   time.Now,
	}
}

// Enqueue replaces any earlier entry of the participant and returns the
// pool size afterwards.
func (p *Pool) Enqueue(participantId, transportHandle, displayName, fleetTag string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.removeWhere(func(e WaitingEntry) bool { return e.ParticipantId == participantId })
	p.queue = append(p.queue, WaitingEntry{
		ParticipantId:   participantId,
		TransportHandle: transportHandle,
		DisplayName:     displayName,
		FleetTag:        fleetTag,
		EnqueuedAt:      p.now(),
	})
	log.Printf("%s joined matchmaking queue (%d in queue)", displayName, len(p.queue))

	return len(p.queue)
}

func (p *Pool) Dequeue(participantId string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.removeWhere(func(e WaitingEntry) bool { return e.ParticipantId == participantId })
}

func (p *Pool) DequeueByTransport(transportHandle string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.removeWhere(func(e WaitingEntry) bool { return e.TransportHandle == transportHandle })
}

func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

func (p *Pool) Contains(participantId string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.ContainsFunc(p.queue, func(e WaitingEntry) bool { return e.ParticipantId == participantId })
}

// TryForm seats up to MaxContestants of the oldest entries in a new game.
// A lone entry is matched against AutomatedSeats automated contestants.
// Every seat is marked ready and the roster is closed before the entries
// leave the pool; on error the pool is untouched and the game discarded.
func (p *Pool) TryForm() (MatchResult, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.queue) == 0 {
		return MatchResult{}, false, nil
	}

	humans := slices.Clone(p.queue[:min(len(p.queue), battleship.MaxContestants)])

	var automated []AutomatedSeat
	if len(humans) == 1 {
		automated = p.automatedSeats()
	}

	game := p.games.CreateGame()
	if err := populate(game, humans, automated); err != nil {
		p.games.TerminateGame(game.Uuid())
		return MatchResult{}, false, err
	}

	p.queue = slices.Delete(p.queue, 0, len(humans))

	if len(automated) != 0 {
		log.Printf("match created: %s with 1 player + %d cpu", game.Uuid(), len(automated))
	} else {
		log.Printf("match created: %s with %d players", game.Uuid(), len(humans))
	}

	return MatchResult{Game: game, Humans: humans, Automated: automated}, true, nil
}

func (p *Pool) automatedSeats() []AutomatedSeat {
	seats := make([]AutomatedSeat, 0, AutomatedSeats)
	for i := 0; i < AutomatedSeats; i++ {
		seats = append(seats, AutomatedSeat{
			Id:       AutomatedIdPrefix + uuid.NewString(),
			Name:     fmt.Sprintf("AI-Commander-%d", 100+p.rnd.IntN(900)),
			FleetTag: automatedFleetTags[i%len(automatedFleetTags)],
		})
	}
	return seats
}

func populate(game *battleship.Game, humans []WaitingEntry, automated []AutomatedSeat) error {
	for _, h := range humans {
		if err := game.AddContestant(h.ParticipantId, h.DisplayName, h.FleetTag, false); err != nil {
			return err
		}
		if err := game.SetReady(h.ParticipantId, true); err != nil {
			return err
		}
	}

	for _, a := range automated {
		if err := game.AddContestant(a.Id, a.Name, a.FleetTag, true); err != nil {
			return err
		}
		if err := game.SetReady(a.Id, true); err != nil {
			return err
		}
	}

	return game.BeginPlacement()
}

func (p *Pool) removeWhere(match func(WaitingEntry) bool) bool {
	idx := slices.IndexFunc(p.queue, match)
	if idx == -1 {
		return false
	}
	p.queue = slices.Delete(p.queue, idx, idx+1)
	return true
}
