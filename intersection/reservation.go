package intersection

import (
	"aimsim/geom"
	"aimsim/tile"
	"aimsim/vehicle"
)

// Reservation pairs a vehicle with its accepted tile footprint through one
// IntersectionLane: a complete per-timestep map of the tiles its outline
// covers, from front-entry through rear-exit plus IO-buffer tiles.
type Reservation struct {
	key tile.ReservationKey

	Vehicle    *vehicle.Vehicle
	Lane       *Lane
	EntryCoord geom.Coord

	// Tiles maps absolute simulated timestep to the set of tiles occupied at
	// that timestep and the probability this reservation uses each one.
	Tiles map[int64]map[TileID]float64

	// DependentOn lists the VINs of originals earlier in the request
	// sequence this reservation was checked against.
	DependentOn []int
	// Dependency is the VIN of the next accepted original in the sequence, if any.
	Dependency *int

	EntryExit vehicle.ScheduledExit
	ExitExit  vehicle.ScheduledExit
}

// Key returns the reservation's tile-package identity key.
func (r *Reservation) Key() tile.ReservationKey { return r.key }

// AddFootprint merges a timestep's tile-probability map into the
// reservation's accumulated footprint.
func (r *Reservation) AddFootprint(t int64, tiles map[TileID]float64) {
	if r.Tiles == nil {
		r.Tiles = make(map[int64]map[TileID]float64)
	}
	existing, ok := r.Tiles[t]
	if !ok {
		existing = make(map[TileID]float64)
		r.Tiles[t] = existing
	}
	for id, p := range tiles {
		existing[id] = p
	}
}
