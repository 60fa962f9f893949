package battleship

import "github.com/google/uuid"

type VesselSpec struct {
	Name   string `json:"name"`
	Length int    `json:"length"`
}

type Vessel struct {
	id          string
	name        string
	length      int
	hits        int
	coordinates []Coordinates
}

func newVessel(spec VesselSpec, coordinates []Coordinates) *Vessel {
	return &Vessel{
		id:          uuid.NewString(),
		name:        spec.Name,
		length:      spec.Length,
		hits:        0,
		coordinates: coordinates,
	}
}

func (v *Vessel) Id() string {
	return v.id
}

func (v *Vessel) Name() string {
	return v.name
}

func (v *Vessel) Length() int {
	return v.length
}

func (v *Vessel) Hits() int {
	return v.hits
}

func (v *Vessel) Coordinates() []Coordinates {
	coords := make([]Coordinates, len(v.coordinates))
	copy(coords, v.coordinates)
	return coords
}

func (v *Vessel) IsSunk() bool {
	return v.hits == v.length
}

func (v *Vessel) Occupies(c Coordinates) bool {
	for _, vc := range v.coordinates {
		if vc == c {
			return true
		}
	}
	return false
}

func (v *Vessel) gotHit() {
	if v.hits < v.length {
		v.hits++
	}
}

// Steps from origin length times along the chosen axis.
func vesselCoordinates(origin Coordinates, length int, horizontal bool) []Coordinates {
	coords := make([]Coordinates, 0, length)
	for i := 0; i < length; i++ {
		if horizontal {
			coords = append(coords, NewCoordinates(origin.X+i, origin.Y))
		} else {
			coords = append(coords, NewCoordinates(origin.X, origin.Y+i))
		}
	}
	return coords
}
