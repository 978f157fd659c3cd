package endpoint

import (
	"aimsim/road"
	"aimsim/vehicle"
)

// LogEntry is one vehicle's fetch_log() record: entry/exit timestep and
// whether it reached its declared destination remover (spec §6, carried over
// from the original's in-memory vehicle log per SPEC_FULL §3).
type LogEntry struct {
	VIN                   int
	EntryTimestep         int64
	ExitTimestep          vehicle.OptionalFloat // timestep, stored as a float64 payload
	ArrivedAtDestination  bool
	Exited                bool
}

// Remover retires vehicles whose rear fully exits the road it's attached to,
// recording an exit timestep and whether the vehicle reached this remover's
// declared destination.
type Remover struct {
	ID    int
	Lanes []*road.RoadLane

	log map[int]*LogEntry
}

// NewRemover constructs a Remover. log is the simulator's shared VIN-keyed
// log so entries opened at spawn time can be closed out here.
func NewRemover(id int, lanes []*road.RoadLane, log map[int]*LogEntry) *Remover {
	return &Remover{ID: id, Lanes: lanes, log: log}
}

// Accept records v's exit at timestep now, setting arrived_at_destination
// when v's destination is this remover.
func (r *Remover) Accept(v *vehicle.Vehicle, now int64) {
	entry, ok := r.log[v.VIN()]
	if !ok {
		entry = &LogEntry{VIN: v.VIN(), EntryTimestep: now}
		r.log[v.VIN()] = entry
	}
	entry.ExitTimestep = vehicle.Some(float64(now))
	entry.ArrivedAtDestination = v.DestinationID() == r.ID
	entry.Exited = true
}
