package battleship

import (
	"math/rand/v2"
	"strings"
)

// Randomizer is the source of randomness for placement and targeting.
// *rand.Rand from math/rand/v2 satisfies it.
type Randomizer interface {
	IntN(n int) int
}

type globalRandomizer struct{}

func (globalRandomizer) IntN(n int) int {
	return rand.IntN(n)
}

// Safe for concurrent use; backed by the math/rand/v2 global source.
var DefaultRandomizer Randomizer = globalRandomizer{}

var DefaultFleet = []VesselSpec{
	{Name: "Aircraft Carrier", Length: 5},
	{Name: "Destroyer", Length: 4},
	{Name: "Frigate", Length: 3},
	{Name: "Submarine", Length: 3},
	{Name: "Patrol Boat", Length: 2},
}

var nationalFleets = map[string][]VesselSpec{
	"US": {
		{Name: "Gerald R. Ford-class Carrier", Length: 5},
		{Name: "Arleigh Burke-class Destroyer", Length: 4},
		{Name: "Independence-class Frigate", Length: 3},
		{Name: "Virginia-class Submarine", Length: 3},
		{Name: "Cyclone-class Patrol Boat", Length: 2},
	},
	"UK": {
		{Name: "Queen Elizabeth-class Carrier", Length: 5},
		{Name: "Type 45 Destroyer", Length: 4},
		{Name: "Type 26 Frigate", Length: 3},
		{Name: "Astute-class Submarine", Length: 3},
		{Name: "Archer-class Patrol Boat", Length: 2},
	},
	"JP": {
		{Name: "Izumo-class Carrier", Length: 5},
		{Name: "Maya-class Destroyer", Length: 4},
		{Name: "Mogami-class Frigate", Length: 3},
		{Name: "Sōryū-class Submarine", Length: 3},
		{Name: "Hayabusa-class Patrol Boat", Length: 2},
	},
	"CN": {
		{Name: "Fujian-class Carrier", Length: 5},
		{Name: "Type 055 Destroyer", Length: 4},
		{Name: "Type 054A Frigate", Length: 3},
		{Name: "Type 093 Submarine", Length: 3},
		{Name: "Type 022 Patrol Boat", Length: 2},
	},
	"RU": {
		{Name: "Admiral Kuznetsov Carrier", Length: 5},
		{Name: "Sovremenny-class Destroyer", Length: 4},
		{Name: "Admiral Gorshkov-class Frigate", Length: 3},
		{Name: "Yasen-class Submarine", Length: 3},
		{Name: "Buyan-class Patrol Boat", Length: 2},
	},
	"FR": {
		{Name: "Charles de Gaulle Carrier", Length: 5},
		{Name: "Horizon-class Destroyer", Length: 4},
		{Name: "FREMM Frigate", Length: 3},
		{Name: "Barracuda-class Submarine", Length: 3},
		{Name: "P400-class Patrol Boat", Length: 2},
	},
	"DE": {
		{Name: "Graf Zeppelin Carrier", Length: 5},
		{Name: "Sachsen-class Destroyer", Length: 4},
		{Name: "Baden-Württemberg Frigate", Length: 3},
		{Name: "Type 212 Submarine", Length: 3},
		{Name: "Braunschweig Patrol Boat", Length: 2},
	},
	"IN": {
		{Name: "INS Vikrant Carrier", Length: 5},
		{Name: "Kolkata-class Destroyer", Length: 4},
		{Name: "Shivalik-class Frigate", Length: 3},
		{Name: "Scorpène-class Submarine", Length: 3},
		{Name: "Veer-class Patrol Boat", Length: 2},
	},
	"KR": {
		{Name: "CVX-class Carrier", Length: 5},
		{Name: "Sejong the Great Destroyer", Length: 4},
		{Name: "Daegu-class Frigate", Length: 3},
		{Name: "KSS-III Submarine", Length: 3},
		{Name: "PKX-B Patrol Boat", Length: 2},
	},
	"IT": {
		{Name: "Cavour Carrier", Length: 5},
		{Name: "Horizon-class Destroyer", Length: 4},
		{Name: "FREMM Frigate", Length: 3},
		{Name: "Todaro-class Submarine", Length: 3},
		{Name: "Comandanti Patrol Boat", Length: 2},
	},
	"AU": {
		{Name: "Canberra-class Carrier", Length: 5},
		{Name: "Hobart-class Destroyer", Length: 4},
		{Name: "Hunter-class Frigate", Length: 3},
		{Name: "Collins-class Submarine", Length: 3},
		{Name: "Armidale Patrol Boat", Length: 2},
	},
	"BR": {
		{Name: "São Paulo Carrier", Length: 5},
		{Name: "Tamandaré Destroyer", Length: 4},
		{Name: "Tamandaré-class Frigate", Length: 3},
		{Name: "Riachuelo-class Submarine", Length: 3},
		{Name: "Macaé Patrol Boat", Length: 2},
	},
}

// FleetForTag resolves a nationality tag to its fleet template.
// Unknown tags fall back to DefaultFleet. The returned slice is a copy.
func FleetForTag(tag string) []VesselSpec {
	fleet, prs := nationalFleets[strings.ToUpper(tag)]
	if !prs {
		fleet = DefaultFleet
	}

	out := make([]VesselSpec, len(fleet))
	copy(out, fleet)
	return out
}

func IsKnownFleetTag(tag string) bool {
	_, prs := nationalFleets[strings.ToUpper(tag)]
	return prs
}
