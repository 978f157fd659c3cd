package simulator

import (
	"sort"

	"aimsim/endpoint"
	"aimsim/geom"
	"aimsim/intersection"
	"aimsim/lane"
	"aimsim/road"
	"aimsim/simcontext"
	"aimsim/vehicle"
)

// Step advances the simulation by one timestep, in the four-phase order
// spec §5 assigns: update-speeds, step-vehicles, process-transfers (folded
// into step-vehicles' transfer routing below), then update-schedule.
func (s *Simulator) Step() error {
	state := simcontext.From(s.ctx)
	now := state.Now()

	for _, lanes := range s.roadLanes {
		for _, rl := range lanes {
			lane.ApplySpeedUpdates(rl.UpdateSpeeds(rl, nil))
		}
	}
	for _, rt := range s.intersections {
		for _, il := range rt.Lanes {
			lane.ApplySpeedUpdates(il.UpdateSpeeds(il, nil))
		}
	}

	for _, lanes := range s.roadLanes {
		for _, rl := range lanes {
			for _, tr := range rl.StepPositions(nil) {
				s.routeRoadTransfer(rl, tr, now)
			}
		}
	}
	for _, rt := range s.intersections {
		for _, il := range rt.Lanes {
			for _, tr := range il.StepPositions(nil) {
				s.routeIntersectionTransfer(il, tr, now)
			}
		}
	}

	rng := state.RNG()
	for _, sp := range s.spawners {
		if err := sp.Step(now, rng); err != nil {
			return err
		}
	}

	// Roads leading straight to a remover have no manager watching them; the
	// virtual stop line every RoadLane otherwise enforces without permission
	// would strand their head vehicle forever, so grant it directly.
	for _, lanes := range s.roadLanes {
		for _, rl := range lanes {
			if !rl.DownstreamIsRemover {
				continue
			}
			if idx, ok := rl.FirstWithoutPermission(); ok {
				rl.Vehicles()[idx].GrantPermission()
			}
		}
	}

	for _, rt := range s.intersections {
		rt.Tiling.AdvanceTime()
		switch {
		case rt.Policy != nil:
			rt.Policy.AdvanceTime()
			rt.Policy.ProcessRequests(now)
		case rt.Auction != nil:
			rt.Auction.Run(rt.Tiling.Empty())
		}
	}

	state.Advance()
	return nil
}

// routeRoadTransfer delivers one transfer produced by a RoadLane's
// StepPositions to whatever sits downstream of it: a Remover (only a REAR
// transfer -- full exit -- closes the vehicle's log entry) or the
// IntersectionLane it feeds, activating that lane's queued reservation the
// moment the vehicle's front arrives.
func (s *Simulator) routeRoadTransfer(rl *road.RoadLane, tr vehicle.Transfer, now int64) {
	if rl.DownstreamIsRemover {
		if tr.Section == geom.Rear {
			if rem, ok := s.removerOfLane[rl]; ok {
				rem.Accept(tr.Vehicle, now)
			}
		}
		return
	}
	target, ok := rl.Downstream().(*intersection.Lane)
	if !ok || target == nil {
		return
	}
	target.AcceptTransfer(tr, s.Config.LengthBufferFactor)
	if tr.Section == geom.Front {
		if tiling, ok := s.tilingOfLane[target]; ok {
			tiling.Activate(tr.Vehicle.VIN())
		}
	}
}

// routeIntersectionTransfer delivers one transfer produced by an
// IntersectionLane's StepPositions to its fixed exit RoadLane, finalizing
// (and thereby clearing) the vehicle's reservation once its rear clears the
// intersection.
func (s *Simulator) routeIntersectionTransfer(il *intersection.Lane, tr vehicle.Transfer, now int64) {
	il.ExitLane.AcceptTransfer(tr, s.Config.LengthBufferFactor)
	if tr.Section == geom.Rear {
		if tiling, ok := s.tilingOfLane[il]; ok {
			tiling.Finalize(tr.Vehicle.VIN())
		}
	}
}

// FetchLog returns every vehicle's log entry (spec §6 fetch_log()), sorted
// by VIN for deterministic output.
func (s *Simulator) FetchLog() []endpoint.LogEntry {
	out := make([]endpoint.LogEntry, 0, len(s.log))
	for _, e := range s.log {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VIN < out[j].VIN })
	return out
}

// Now returns the simulator's current timestep.
func (s *Simulator) Now() int64 { return simcontext.From(s.ctx).Now() }
