// Package manager implements the intersection's scheduling policies: FCFS,
// Signals, StopSign, Auction, and the FCFSSignals hybrid (spec §4.7). All
// share the same per-timestep contract, invoked once by the simulator's
// update-schedule phase after the tiling has advanced time.
package manager

import (
	"aimsim/intersection"
	"aimsim/road"
)

// Policy is the shared per-timestep contract every manager policy satisfies.
type Policy interface {
	// AdvanceTime runs any policy-owned per-timestep bookkeeping (cycle
	// clocks, etc) before ProcessRequests is called.
	AdvanceTime()
	// ProcessRequests grants permissions or commits reservations for this
	// timestep. now is the simulator's current timestep.
	ProcessRequests(now int64)
}

// IncomingLane pairs one approach RoadLane with the IntersectionLane it
// feeds, the unit of work every policy iterates over.
type IncomingLane struct {
	Road   *road.RoadLane
	Target *intersection.Lane
}
