package targeting

import (
	"slices"

	"github.com/saeidalz13/armada-backend/models/battleship"
)

type Decision struct {
	TargetId    string
	Coordinates battleship.Coordinates
}

// Cpu picks shots for one automated contestant. Its hit history and
// hunt queues are keyed by opponent id and never shared.
//
// Cpu is not safe for concurrent use; the owning match serializes calls.
type Cpu struct {
	rnd   battleship.Randomizer
	hits  map[string][]battleship.Coordinates
	queue map[string][]battleship.Coordinates
}

func NewCpu(rnd battleship.Randomizer) *Cpu {
	if rnd == nil {
		rnd = battleship.DefaultRandomizer
	}
	return &Cpu{
		rnd:   rnd,
		hits:  make(map[string][]battleship.Coordinates),
		queue: make(map[string][]battleship.Coordinates),
	}
}

// SelectTarget returns the next shot. Pending hunt candidates are tried
// first, opponent by opponent; otherwise a random untargeted cell of a
// random opponent is chosen. ok is false only when no live opponent has
// an untargeted cell left.
func (c *Cpu) SelectTarget(opponents []battleship.OpponentView, selfId string) (Decision, bool) {
	live := make([]battleship.OpponentView, 0, len(opponents))
	for _, o := range opponents {
		if o.IsEliminated || o.Id == selfId {
			continue
		}
		live = append(live, o)
	}
	if len(live) == 0 {
		return Decision{}, false
	}

	for _, o := range live {
		if coord, ok := c.hunt(o); ok {
			return Decision{TargetId: o.Id, Coordinates: coord}, true
		}
	}

	candidates := make([]battleship.OpponentView, 0, len(live))
	for _, o := range live {
		if len(untargeted(o.Board)) != 0 {
			candidates = append(candidates, o)
		}
	}
	if len(candidates) == 0 {
		return Decision{}, false
	}

	target := candidates[c.rnd.IntN(len(candidates))]
	return Decision{TargetId: target.Id, Coordinates: c.randomCell(target.Board)}, true
}

// RecordShot feeds back the outcome of a shot the engine accepted.
func (c *Cpu) RecordShot(targetId string, coord battleship.Coordinates, hit, sunk bool) {
	if sunk {
		c.ClearTarget(targetId)
		return
	}
	if !hit {
		return
	}

	c.hits[targetId] = append(c.hits[targetId], coord)

	if line, ok := c.extendLine(targetId, coord); ok {
		c.queue[targetId] = line
		return
	}

	queue := c.queue[targetId]
	for _, n := range neighbours(coord) {
		if !slices.Contains(queue, n) {
			queue = append(queue, n)
		}
	}
	c.queue[targetId] = queue
}

func (c *Cpu) ClearTarget(targetId string) {
	delete(c.hits, targetId)
	delete(c.queue, targetId)
}

// Pops queued candidates until one is still untargeted on the board.
func (c *Cpu) hunt(o battleship.OpponentView) (battleship.Coordinates, bool) {
	queue := c.queue[o.Id]
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		if !o.Board.At(next).IsResolved() {
			c.queue[o.Id] = queue
			return next, true
		}
	}
	delete(c.queue, o.Id)
	return battleship.Coordinates{}, false
}

// When the newest hit lines up with an earlier one, the candidates are
// the two cells just past either end of the contiguous run of hits.
func (c *Cpu) extendLine(targetId string, last battleship.Coordinates) ([]battleship.Coordinates, bool) {
	hits := c.hits[targetId]

	horizontal, vertical := false, false
	for _, h := range hits[:len(hits)-1] {
		if h.Y == last.Y && abs(h.X-last.X) == 1 {
			horizontal = true
		}
		if h.X == last.X && abs(h.Y-last.Y) == 1 {
			vertical = true
		}
	}

	var low, high battleship.Coordinates
	switch {
	case horizontal:
		lo, hi := last.X, last.X
		for slices.Contains(hits, battleship.NewCoordinates(lo-1, last.Y)) {
			lo--
		}
		for slices.Contains(hits, battleship.NewCoordinates(hi+1, last.Y)) {
			hi++
		}
		low, high = battleship.NewCoordinates(lo-1, last.Y), battleship.NewCoordinates(hi+1, last.Y)

	case vertical:
		lo, hi := last.Y, last.Y
		for slices.Contains(hits, battleship.NewCoordinates(last.X, lo-1)) {
			lo--
		}
		for slices.Contains(hits, battleship.NewCoordinates(last.X, hi+1)) {
			hi++
		}
		low, high = battleship.NewCoordinates(last.X, lo-1), battleship.NewCoordinates(last.X, hi+1)

	default:
		return nil, false
	}

	line := make([]battleship.Coordinates, 0, 2)
	for _, cand := range []battleship.Coordinates{high, low} {
		if cand.InBounds() {
			line = append(line, cand)
		}
	}
	return line, true
}

func (c *Cpu) randomCell(board battleship.View) battleship.Coordinates {
	pool := untargeted(board)

	parity := make([]battleship.Coordinates, 0, len(pool))
	for _, cell := range pool {
		if (cell.X+cell.Y)%2 == 0 {
			parity = append(parity, cell)
		}
	}
	if len(parity) != 0 {
		pool = parity
	}
	return pool[c.rnd.IntN(len(pool))]
}

func untargeted(board battleship.View) []battleship.Coordinates {
	cells := make([]battleship.Coordinates, 0, battleship.GridSize*battleship.GridSize)
	for y, row := range board {
		for x, cell := range row {
			if !cell.IsResolved() {
				cells = append(cells, battleship.NewCoordinates(x, y))
			}
		}
	}
	return cells
}

func neighbours(c battleship.Coordinates) []battleship.Coordinates {
	out := make([]battleship.Coordinates, 0, 4)
	for _, n := range []battleship.Coordinates{
		battleship.NewCoordinates(c.X+1, c.Y),
		battleship.NewCoordinates(c.X-1, c.Y),
		battleship.NewCoordinates(c.X, c.Y+1),
		battleship.NewCoordinates(c.X, c.Y-1),
	} {
		if n.InBounds() {
			out = append(out, n)
		}
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
