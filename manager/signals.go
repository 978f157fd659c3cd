package manager

import (
	"math"

	"aimsim/geom"
	"aimsim/road"
	"aimsim/vehicle"
)

// CyclePhase is one entry in a Signals cycle schedule: the set of incoming
// lanes greenlit, held for Duration timesteps.
type CyclePhase struct {
	Green    map[*road.RoadLane]struct{}
	Duration int64
}

// Signals runs a fixed cycle schedule, granting bare permission (not a tile
// reservation) to the earliest eligible vehicle on each greenlit lane.
type Signals struct {
	Lanes []IncomingLane
	Cycle []CyclePhase

	phaseIdx int
	clock    int64
}

// NewSignals constructs a Signals policy starting at phase 0.
func NewSignals(lanes []IncomingLane, cycle []CyclePhase) *Signals {
	s := &Signals{Lanes: lanes, Cycle: cycle}
	if len(cycle) > 0 {
		s.clock = cycle[0].Duration
	}
	return s
}

// AdvanceTime decrements the cycle clock and rotates the greenlit set when
// it elapses.
func (s *Signals) AdvanceTime() {
	if len(s.Cycle) == 0 {
		return
	}
	s.clock--
	if s.clock <= 0 {
		s.phaseIdx = (s.phaseIdx + 1) % len(s.Cycle)
		s.clock = s.Cycle[s.phaseIdx].Duration
	}
}

// ProcessRequests grants permission to the earliest eligible vehicle on each
// greenlit lane, provided the downstream outbound lane has room and the
// vehicle's earliest exit clears the intersection (plus its own length
// downstream) within the remaining cycle time.
func (s *Signals) ProcessRequests(now int64) {
	if len(s.Cycle) == 0 {
		return
	}
	green := s.Cycle[s.phaseIdx].Green
	for _, il := range s.Lanes {
		if _, ok := green[il.Road]; !ok {
			continue
		}
		idx, ok := il.Road.FirstWithoutPermission()
		if !ok {
			continue
		}
		v := il.Road.Vehicles()[idx]

		exitLane := il.Target.ExitLane
		if exitLane.RoomToEnter(false) < v.Length() {
			continue
		}

		exit, err := il.Road.SoonestExit(idx, nil, now)
		if err != nil {
			continue
		}
		clearing := il.Target.Trajectory.Length() + v.Length()
		speed := il.Target.SpeedLimit
		if speed <= 0 {
			speed = exit.Velocity
		}
		clearSteps := int64(0)
		if speed > 0 {
			clearSteps = int64(math.Ceil(clearing / (speed * il.Target.DeltaT)))
		}
		if exit.Timestep-now+clearSteps > s.clock {
			continue
		}

		v.GrantPermission()
		_ = il.Road.RegisterLatestScheduledExit(vehicle.ScheduledExit{
			Vehicle: v, Section: geom.Rear, Timestep: exit.Timestep, Velocity: exit.Velocity,
		})
	}
}
