package battleship

import (
	"github.com/shopspring/decimal"
)

// Contestant is one seat of a game. Only the owning Game mutates it.
type Contestant struct {
	id           string
	name         string
	fleetTag     string
	grid         *Grid
	isAutomated  bool
	isReady      bool
	isEliminated bool
	shotsTaken   int
	shotsLanded  int
}

func newContestant(id, name, fleetTag string, isAutomated bool) *Contestant {
	return &Contestant{
		id:          id,
		name:        name,
		fleetTag:    fleetTag,
		grid:        NewGrid(),
		isAutomated: isAutomated,
	}
}

func (c *Contestant) IsAlive() bool {
	return !c.isEliminated
}

func (c *Contestant) Fleet() []VesselSpec {
	return FleetForTag(c.fleetTag)
}

func (c *Contestant) info() ContestantInfo {
	return ContestantInfo{
		Id:           c.id,
		Name:         c.name,
		FleetTag:     c.fleetTag,
		IsAutomated:  c.isAutomated,
		IsReady:      c.isReady,
		IsEliminated: c.isEliminated,
	}
}

func (c *Contestant) tally() ContestantTally {
	return ContestantTally{
		Id:          c.id,
		Name:        c.name,
		IsAutomated: c.isAutomated,
		ShotsTaken:  c.shotsTaken,
		ShotsLanded: c.shotsLanded,
		Accuracy:    Accuracy(c.shotsLanded, c.shotsTaken),
	}
}

// ContestantInfo is the roster entry sent to every participant.
type ContestantInfo struct {
	Id           string `json:"id"`
	Name         string `json:"name"`
	FleetTag     string `json:"fleet_tag"`
	IsAutomated  bool   `json:"is_automated"`
	IsReady      bool   `json:"is_ready"`
	IsEliminated bool   `json:"is_eliminated"`
}

type ContestantTally struct {
	Id          string `json:"id"`
	Name        string `json:"name"`
	IsAutomated bool   `json:"is_automated"`
	ShotsTaken  int    `json:"shots_taken"`
	ShotsLanded int    `json:"shots_landed"`
	Accuracy    string `json:"accuracy"`
}

// Accuracy is the landed/taken percentage with one decimal place,
// "0.0" when nothing was fired.
func Accuracy(landed, taken int) string {
	if taken <= 0 {
		return "0.0"
	}
	return decimal.NewFromInt(int64(landed)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(taken))).
		StringFixed(1)
}
