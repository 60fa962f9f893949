package battleship

import (
	cerr "github.com/saeidalz13/armada-backend/internal/error"
)

const (
	GridSize        = 10
	MinVesselLength = 2

	// Bound on random origins tried per vessel before a
	// fleet template is declared unsatisfiable.
	AutoPlaceAttempts = 100
)

type CellState uint8

const (
	CellEmpty CellState = iota
	CellOccupied
	CellHit
	CellMiss
)

func (c CellState) String() string {
	switch c {
	case CellOccupied:
		return "occupied"
	case CellHit:
		return "hit"
	case CellMiss:
		return "miss"
	default:
		return "empty"
	}
}

// IsResolved reports whether a shot has already landed on the cell.
func (c CellState) IsResolved() bool {
	return c == CellHit || c == CellMiss
}

type Coordinates struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func NewCoordinates(x, y int) Coordinates {
	return Coordinates{X: x, Y: y}
}

func (c Coordinates) InBounds() bool {
	return c.X >= 0 && c.X < GridSize && c.Y >= 0 && c.Y < GridSize
}

// View is the projection of a grid sent to observers,
// indexed as View[y][x].
type View [][]CellState

func (v View) At(c Coordinates) CellState {
	return v[c.Y][c.X]
}

type ShotResult struct {
	Hit        bool
	SunkVessel *Vessel
}

// Grid holds cell states indexed as cells[y][x] and
// the vessels placed on them.
type Grid struct {
	cells   [GridSize][GridSize]CellState
	vessels []*Vessel
}

// Creates a new grid with every cell empty and no vessels
func NewGrid() *Grid {
	return &Grid{vessels: make([]*Vessel, 0, len(DefaultFleet))}
}

func (g *Grid) Cell(c Coordinates) CellState {
	return g.cells[c.Y][c.X]
}

func (g *Grid) Vessels() []*Vessel {
	return g.vessels
}

func (g *Grid) CanPlace(origin Coordinates, length int, horizontal bool) bool {
	if length < MinVesselLength {
		return false
	}
	for _, c := range vesselCoordinates(origin, length, horizontal) {
		if !c.InBounds() {
			return false
		}
		if g.cells[c.Y][c.X] == CellOccupied {
			return false
		}
	}
	return true
}

func (g *Grid) Place(spec VesselSpec, origin Coordinates, horizontal bool) (*Vessel, error) {
	if !g.CanPlace(origin, spec.Length, horizontal) {
		return nil, cerr.ErrVesselCannotBePlaced(spec.Name, origin.X, origin.Y, horizontal)
	}

	vessel := newVessel(spec, vesselCoordinates(origin, spec.Length, horizontal))
	for _, c := range vessel.coordinates {
		g.cells[c.Y][c.X] = CellOccupied
	}
	g.vessels = append(g.vessels, vessel)
	return vessel, nil
}

// Seats every vessel of the fleet at a random origin and orientation.
// The grid may be left partially populated on error; callers discard it.
func (g *Grid) AutoPlaceFleet(fleet []VesselSpec, rnd Randomizer) error {
	for _, spec := range fleet {
		placed := false
		for attempt := 0; attempt < AutoPlaceAttempts && !placed; attempt++ {
			horizontal := rnd.IntN(2) == 0
			origin := NewCoordinates(rnd.IntN(GridSize), rnd.IntN(GridSize))

			if _, err := g.Place(spec, origin, horizontal); err == nil {
				placed = true
			}
		}

		if !placed {
			return cerr.ErrPlacementAttemptsExhausted(spec.Name, AutoPlaceAttempts)
		}
	}
	return nil
}

// Resolves a shot on the coordinates. Each cell can be
// resolved once for the lifetime of the grid.
func (g *Grid) ResolveShot(c Coordinates) (ShotResult, error) {
	if !c.InBounds() {
		return ShotResult{}, cerr.ErrXorYOutOfGridBound(c.X, c.Y)
	}

	switch g.cells[c.Y][c.X] {
	case CellHit, CellMiss:
		return ShotResult{}, cerr.ErrDefenceGridPositionAlreadyHit(c.X, c.Y)

	case CellOccupied:
		g.cells[c.Y][c.X] = CellHit

		vessel := g.vesselAt(c)
		if vessel == nil {
			return ShotResult{Hit: true}, nil
		}
		vessel.gotHit()
		if vessel.IsSunk() {
			return ShotResult{Hit: true, SunkVessel: vessel}, nil
		}
		return ShotResult{Hit: true}, nil

	default:
		g.cells[c.Y][c.X] = CellMiss
		return ShotResult{Hit: false}, nil
	}
}

// Vacuously true for a grid without vessels.
func (g *Grid) AllSunk() bool {
	for _, v := range g.vessels {
		if !v.IsSunk() {
			return false
		}
	}
	return true
}

// Occupied cells are folded to empty unless revealOccupied is set,
// so observers learn nothing about unshot vessel positions.
func (g *Grid) VisibleView(revealOccupied bool) View {
	view := make(View, GridSize)
	for y := 0; y < GridSize; y++ {
		view[y] = make([]CellState, GridSize)
		for x := 0; x < GridSize; x++ {
			cell := g.cells[y][x]
			if cell == CellOccupied && !revealOccupied {
				cell = CellEmpty
			}
			view[y][x] = cell
		}
	}
	return view
}

func (g *Grid) vesselAt(c Coordinates) *Vessel {
	for _, v := range g.vessels {
		if v.Occupies(c) {
			return v
		}
	}
	return nil
}
