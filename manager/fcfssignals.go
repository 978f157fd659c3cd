package manager

import "aimsim/intersection"

// FCFSSignals is the hybrid combinator: green-period arrivals get
// unconditional permission exactly as in Signals; off-green automated
// vehicles fall back to FCFS tile reservations; off-green human-driven
// vehicles are rejected outright (see DESIGN.md for the resolution of the
// open question this split raises).
type FCFSSignals struct {
	Tiling  *intersection.Tiling
	Signals *Signals
	Lanes   []IncomingLane
}

// AdvanceTime delegates to the embedded Signals cycle clock.
func (c *FCFSSignals) AdvanceTime() { c.Signals.AdvanceTime() }

// ProcessRequests implements Policy: run Signals first for the green
// lanes, then an FCFS pass restricted to off-green lanes and automated
// vehicles only.
func (c *FCFSSignals) ProcessRequests(now int64) {
	c.Signals.ProcessRequests(now)

	green := map[*intersection.Lane]struct{}{}
	if len(c.Signals.Cycle) > 0 {
		for _, il := range c.Lanes {
			if _, ok := c.Signals.Cycle[c.Signals.phaseIdx].Green[il.Road]; ok {
				green[il.Target] = struct{}{}
			}
		}
	}

	pending := make([]bool, len(c.Lanes))
	active := 0
	for i, il := range c.Lanes {
		if _, isGreen := green[il.Target]; isGreen {
			continue
		}
		idx, ok := il.Road.FirstWithoutPermission()
		if !ok || !il.Road.Vehicles()[idx].Automated() {
			continue
		}
		pending[i] = true
		active++
	}

	for active > 0 {
		progressed := false
		for i, il := range c.Lanes {
			if !pending[i] {
				continue
			}
			reservations, err := c.Tiling.CheckRequest(il.Road, il.Target, intersection.RequestOptions{Mark: false, Sequence: false})
			if err != nil || len(reservations) == 0 || !reservations[0].Vehicle.Automated() {
				pending[i] = false
				active--
				continue
			}
			c.Tiling.Commit(reservations[0])
			progressed = true
		}
		if !progressed {
			break
		}
	}
}
