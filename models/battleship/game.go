package battleship

import (
	"fmt"
	"slices"
	"sync"
	"time"

	cerr "github.com/saeidalz13/armada-backend/internal/error"
)

const (
	MinContestants = 2
	MaxContestants = 4
)

type Phase uint8

const (
	PhaseForming Phase = iota
	PhasePlacing
	PhaseActive
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhasePlacing:
		return "placing"
	case PhaseActive:
		return "active"
	case PhaseFinished:
		return "finished"
	default:
		return "forming"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	for _, candidate := range []Phase{PhaseForming, PhasePlacing, PhaseActive, PhaseFinished} {
		if candidate.String() == string(text) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown phase: %s", text)
}

type VesselPlacement struct {
	Name       string `json:"name"`
	Length     int    `json:"length,omitempty"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
	Horizontal bool   `json:"horizontal"`
}

func (vp VesselPlacement) Origin() Coordinates {
	return NewCoordinates(vp.X, vp.Y)
}

type ShotOutcome struct {
	ShooterId      string      `json:"shooter_id"`
	TargetId       string      `json:"target_id"`
	TargetName     string      `json:"target_name"`
	Coordinates    Coordinates `json:"coordinates"`
	Hit            bool        `json:"hit"`
	Sunk           bool        `json:"sunk"`
	SunkVesselId   string      `json:"sunk_vessel_id,omitempty"`
	SunkVesselName string      `json:"sunk_vessel_name,omitempty"`
	Eliminated     bool        `json:"eliminated"`
	Finished       bool        `json:"finished"`
	WinnerId       string      `json:"winner_id,omitempty"`
	NextTurnId     string      `json:"next_turn_id,omitempty"`
}

type ContestantState struct {
	ContestantInfo
	Board View `json:"board"`
}

type GameState struct {
	GameUuid      string            `json:"game_uuid"`
	Phase         Phase             `json:"phase"`
	CurrentTurnId string            `json:"current_turn_id,omitempty"`
	WinnerId      string            `json:"winner_id,omitempty"`
	Contestants   []ContestantState `json:"contestants"`
}

// OpponentView is what one contestant may know about another:
// identity, liveness and the filtered grid.
type OpponentView struct {
	Id           string
	Name         string
	IsEliminated bool
	Board        View
}

// Game is the authoritative state of one match. Every exported method
// holds the game lock for its whole duration, so each operation is
// atomic and a rejected operation leaves no trace.
type Game struct {
	mu         sync.Mutex
	uuid       string
	roster     []*Contestant
	turn       int
	phase      Phase
	winnerId   string
	createdAt  time.Time
	finishedAt time.Time
	rnd        Randomizer
}

func NewGame(uuid string, rnd Randomizer) *Game {
	if rnd == nil {
		rnd = DefaultRandomizer
	}
	return &Game{
		uuid:      uuid,
		roster:    make([]*Contestant, 0, MaxContestants),
		phase:     PhaseForming,
		createdAt: time.Now(),
		rnd:       rnd,
	}
}

func (g *Game) Uuid() string {
	return g.uuid
}

func (g *Game) CreatedAt() time.Time {
	return g.createdAt
}

func (g *Game) Phase() Phase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}

func (g *Game) WinnerId() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.winnerId
}

func (g *Game) FinishedAt() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.finishedAt
}

func (g *Game) AddContestant(id, name, fleetTag string, isAutomated bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase != PhaseForming {
		return cerr.ErrInvalidPhase("adding a contestant", g.phase.String())
	}
	if len(g.roster) >= MaxContestants {
		return cerr.ErrGameRosterFull(g.uuid, MaxContestants)
	}
	if g.indexOf(id) != -1 {
		return cerr.ErrPlayerAlreadyInGame(id)
	}

	g.roster = append(g.roster, newContestant(id, name, fleetTag, isAutomated))
	return nil
}

// Removes the contestant in any phase. Returns false if the id was
// not on the roster, which makes repeated removals harmless.
func (g *Game) RemoveContestant(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	idx := g.indexOf(id)
	if idx == -1 {
		return false
	}
	g.roster = slices.Delete(g.roster, idx, idx+1)

	if g.phase == PhaseActive {
		switch {
		case idx < g.turn:
			g.turn--

		case idx == g.turn:
			// the pointer now names whoever followed the removed contestant
			if g.turn >= len(g.roster) {
				g.turn = 0
			}
			if len(g.roster) != 0 && !g.roster[g.turn].IsAlive() {
				if next, ok := NextLiveIndex(g.roster, g.turn, (*Contestant).IsAlive); ok {
					g.turn = next
				}
			}
		}
		g.evaluateWinCondition()
	}
	return true
}

func (g *Game) SetReady(id string, ready bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.isPreStart() {
		return cerr.ErrInvalidPhase("changing readiness", g.phase.String())
	}

	c := g.find(id)
	if c == nil {
		return cerr.ErrPlayerNotExist(id)
	}
	c.isReady = ready
	return nil
}

// Closes the roster; contestants can only place fleets and ready up afterwards.
func (g *Game) BeginPlacement() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase != PhaseForming {
		return cerr.ErrInvalidPhase("beginning placement", g.phase.String())
	}
	g.phase = PhasePlacing
	return nil
}

// Replaces the contestant's grid with one built from the placements.
// The placements must seat exactly the contestant's fleet template; on
// any violation the previous grid is kept.
func (g *Game) SubmitFleet(id string, placements []VesselPlacement) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.isPreStart() {
		return cerr.ErrInvalidPhase("submitting a fleet", g.phase.String())
	}

	c := g.find(id)
	if c == nil {
		return cerr.ErrPlayerNotExist(id)
	}

	grid, err := BuildFleetGrid(c.Fleet(), placements)
	if err != nil {
		return err
	}
	c.grid = grid
	return nil
}

func (g *Game) CanStart() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.canStart()
}

// Auto-places the fleet of every contestant with an empty grid and
// activates the game. Nothing is committed if any placement fails.
func (g *Game) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.canStart() {
		return cerr.ErrGameNotReady(g.uuid, g.phase.String())
	}

	placed := make(map[int]*Grid, len(g.roster))
	for i, c := range g.roster {
		if len(c.grid.Vessels()) != 0 {
			continue
		}
		grid := NewGrid()
		if err := grid.AutoPlaceFleet(c.Fleet(), g.rnd); err != nil {
			return err
		}
		placed[i] = grid
	}

	for i, grid := range placed {
		g.roster[i].grid = grid
	}
	g.phase = PhaseActive
	g.turn = 0
	return nil
}

func (g *Game) ExecuteShot(shooterId, targetId string, coord Coordinates) (ShotOutcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase != PhaseActive {
		return ShotOutcome{}, cerr.ErrInvalidPhase("attacking", g.phase.String())
	}

	if len(g.roster) == 0 {
		return ShotOutcome{}, cerr.ErrNotPlayerTurn(shooterId)
	}
	shooter := g.roster[g.turn]
	if shooter.id != shooterId {
		return ShotOutcome{}, cerr.ErrNotPlayerTurn(shooterId)
	}

	target := g.find(targetId)
	if target == nil || target.isEliminated {
		return ShotOutcome{}, cerr.ErrTargetNotAlive(targetId)
	}
	if shooterId == targetId {
		return ShotOutcome{}, cerr.ErrSelfTarget(shooterId)
	}

	result, err := target.grid.ResolveShot(coord)
	if err != nil {
		return ShotOutcome{}, err
	}

	shooter.shotsTaken++
	if result.Hit {
		shooter.shotsLanded++
	}

	outcome := ShotOutcome{
		ShooterId:   shooterId,
		TargetId:    targetId,
		TargetName:  target.name,
		Coordinates: coord,
		Hit:         result.Hit,
	}
	if result.SunkVessel != nil {
		outcome.Sunk = true
		outcome.SunkVesselId = result.SunkVessel.Id()
		outcome.SunkVesselName = result.SunkVessel.Name()
	}

	if target.grid.AllSunk() {
		target.isEliminated = true
		outcome.Eliminated = true
	}

	g.evaluateWinCondition()
	g.advanceTurn()

	outcome.Finished = g.phase == PhaseFinished
	outcome.WinnerId = g.winnerId
	if !outcome.Finished {
		outcome.NextTurnId = g.roster[g.turn].id
	}
	return outcome, nil
}

func (g *Game) CurrentTurnId() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.currentTurnId()
}

func (g *Game) ContestantCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.roster)
}

func (g *Game) Roster() []ContestantInfo {
	g.mu.Lock()
	defer g.mu.Unlock()

	infos := make([]ContestantInfo, 0, len(g.roster))
	for _, c := range g.roster {
		infos = append(infos, c.info())
	}
	return infos
}

// Ids of contestants that are not automated, in turn order.
func (g *Game) HumanIds() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ids := make([]string, 0, len(g.roster))
	for _, c := range g.roster {
		if !c.isAutomated {
			ids = append(ids, c.id)
		}
	}
	return ids
}

func (g *Game) IsAutomated(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	c := g.find(id)
	return c != nil && c.isAutomated
}

func (g *Game) HasFleet(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	c := g.find(id)
	return c != nil && len(c.grid.Vessels()) != 0
}

func (g *Game) FleetOf(id string) ([]VesselSpec, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	c := g.find(id)
	if c == nil {
		return nil, cerr.ErrPlayerNotExist(id)
	}
	return c.Fleet(), nil
}

// StateFor builds the snapshot for one viewer: the viewer's own grid
// is revealed, every other grid is filtered.
func (g *Game) StateFor(viewerId string) GameState {
	g.mu.Lock()
	defer g.mu.Unlock()

	state := GameState{
		GameUuid:    g.uuid,
		Phase:       g.phase,
		WinnerId:    g.winnerId,
		Contestants: make([]ContestantState, 0, len(g.roster)),
	}
	state.CurrentTurnId, _ = g.currentTurnId()

	for _, c := range g.roster {
		state.Contestants = append(state.Contestants, ContestantState{
			ContestantInfo: c.info(),
			Board:          c.grid.VisibleView(c.id == viewerId),
		})
	}
	return state
}

// Filtered views of every contestant other than selfId.
func (g *Game) OpponentViews(selfId string) []OpponentView {
	g.mu.Lock()
	defer g.mu.Unlock()

	views := make([]OpponentView, 0, len(g.roster))
	for _, c := range g.roster {
		if c.id == selfId {
			continue
		}
		views = append(views, OpponentView{
			Id:           c.id,
			Name:         c.name,
			IsEliminated: c.isEliminated,
			Board:        c.grid.VisibleView(false),
		})
	}
	return views
}

func (g *Game) Tally() []ContestantTally {
	g.mu.Lock()
	defer g.mu.Unlock()

	tallies := make([]ContestantTally, 0, len(g.roster))
	for _, c := range g.roster {
		tallies = append(tallies, c.tally())
	}
	return tallies
}

// BuildFleetGrid seats the placements on a fresh grid, checking that they
// cover exactly the fleet template, stay in bounds and never overlap.
func BuildFleetGrid(fleet []VesselSpec, placements []VesselPlacement) (*Grid, error) {
	if len(placements) != len(fleet) {
		return nil, cerr.ErrFleetInvalid(fmt.Sprintf("expected %d vessels, got %d", len(fleet), len(placements)))
	}

	used := make([]bool, len(fleet))
	grid := NewGrid()

	for _, p := range placements {
		specIdx := -1
		for i, spec := range fleet {
			if used[i] || spec.Name != p.Name {
				continue
			}
			if p.Length != 0 && p.Length != spec.Length {
				continue
			}
			specIdx = i
			break
		}
		if specIdx == -1 {
			return nil, cerr.ErrFleetInvalid(fmt.Sprintf("vessel %q of length %d is not part of the fleet", p.Name, p.Length))
		}
		used[specIdx] = true

		if _, err := grid.Place(fleet[specIdx], p.Origin(), p.Horizontal); err != nil {
			return nil, cerr.ErrFleetInvalid(err.Error())
		}
	}
	return grid, nil
}

func (g *Game) isPreStart() bool {
	return g.phase == PhaseForming || g.phase == PhasePlacing
}

func (g *Game) canStart() bool {
	if !g.isPreStart() {
		return false
	}
	if len(g.roster) < MinContestants || len(g.roster) > MaxContestants {
		return false
	}
	for _, c := range g.roster {
		if !c.isReady {
			return false
		}
	}
	return true
}

func (g *Game) currentTurnId() (string, bool) {
	if g.phase != PhaseActive || len(g.roster) == 0 {
		return "", false
	}
	return g.roster[g.turn].id, true
}

func (g *Game) advanceTurn() {
	if g.phase != PhaseActive || liveCount(g.roster) <= 1 {
		return
	}
	if next, ok := NextLiveIndex(g.roster, g.turn, (*Contestant).IsAlive); ok {
		g.turn = next
	}
}

// One live contestant wins; none left means the game ends without a winner.
func (g *Game) evaluateWinCondition() {
	if g.phase != PhaseActive {
		return
	}

	switch live := liveCount(g.roster); live {
	case 0:
		g.phase = PhaseFinished
		g.finishedAt = time.Now()

	case 1:
		for _, c := range g.roster {
			if c.IsAlive() {
				g.winnerId = c.id
				break
			}
		}
		g.phase = PhaseFinished
		g.finishedAt = time.Now()
	}
}

func (g *Game) indexOf(id string) int {
	for i, c := range g.roster {
		if c.id == id {
			return i
		}
	}
	return -1
}

func (g *Game) find(id string) *Contestant {
	if idx := g.indexOf(id); idx != -1 {
		return g.roster[idx]
	}
	return nil
}
