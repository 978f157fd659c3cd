package manager

import (
	"math/rand"

	"aimsim/intersection"
)

// Auction runs only when the intersection is completely empty. It collects a
// marked, sequence-aware check_request prefix from every incoming lane, then
// searches for the highest-value combination of those prefixes -- per lane,
// either the full prefix, a shorter leading segment of it, or nothing at all
// -- whose tile footprints never collide, breaking ties toward more vehicles
// served and then by coin flip. Everything outside the winning combination is
// rolled back.
type Auction struct {
	Tiling *intersection.Tiling
	Lanes  []IncomingLane
	RNG    *rand.Rand
}

type footprintKey struct {
	t  int64
	id intersection.TileID
}

// lanePrefix is one candidate truncation of a lane's check_request prefix:
// its first n reservations, their combined tile footprint, and their summed
// value-of-time.
type lanePrefix struct {
	reservations []*intersection.Reservation
	footprint    map[footprintKey]struct{}
	value        float64
}

// prefixesOf builds every leading-segment option of a lane's reservation
// sequence, from "take none of them" through "take all of them". Each
// reservation in the sequence already depends on the one before it, so every
// prefix is internally self-consistent; it's the combination across lanes
// that still needs checking, since a lane's own check_request never
// considers what other lanes have tentatively marked.
func prefixesOf(reservations []*intersection.Reservation) []lanePrefix {
	options := make([]lanePrefix, 0, len(reservations)+1)
	footprint := make(map[footprintKey]struct{})
	value := 0.0
	options = append(options, lanePrefix{footprint: cloneFootprint(footprint), value: value})
	for i, r := range reservations {
		for t, tiles := range r.Tiles {
			for id := range tiles {
				footprint[footprintKey{t: t, id: id}] = struct{}{}
			}
		}
		value += r.Vehicle.VOT()
		options = append(options, lanePrefix{
			reservations: append([]*intersection.Reservation(nil), reservations[:i+1]...),
			footprint:    cloneFootprint(footprint),
			value:        value,
		})
	}
	return options
}

func cloneFootprint(m map[footprintKey]struct{}) map[footprintKey]struct{} {
	clone := make(map[footprintKey]struct{}, len(m))
	for k := range m {
		clone[k] = struct{}{}
	}
	return clone
}

func footprintsCompatible(a, b map[footprintKey]struct{}) bool {
	for k := range b {
		if _, clash := a[k]; clash {
			return false
		}
	}
	return true
}

func mergeFootprints(a, b map[footprintKey]struct{}) map[footprintKey]struct{} {
	merged := make(map[footprintKey]struct{}, len(a)+len(b))
	for k := range a {
		merged[k] = struct{}{}
	}
	for k := range b {
		merged[k] = struct{}{}
	}
	return merged
}

// bestCombination searches, per lane, over every prefix length (including
// zero) for the tile-compatible combination maximizing total value-of-time,
// breaking ties toward more vehicles served and then by coin flip. The
// branching factor is small in practice: one incoming lane per approach, a
// handful of queued vehicles deep.
func (a *Auction) bestCombination(lanes [][]lanePrefix) []lanePrefix {
	var best []lanePrefix
	bestValue := -1.0
	bestCount := -1

	var walk func(i int, footprint map[footprintKey]struct{}, chosen []lanePrefix, value float64, count int)
	walk = func(i int, footprint map[footprintKey]struct{}, chosen []lanePrefix, value float64, count int) {
		if i == len(lanes) {
			switch {
			case value > bestValue:
				bestValue, bestCount = value, count
				best = append([]lanePrefix(nil), chosen...)
			case value == bestValue && count > bestCount:
				bestCount = count
				best = append([]lanePrefix(nil), chosen...)
			case value == bestValue && count == bestCount && a.RNG.Float64() < 0.5:
				best = append([]lanePrefix(nil), chosen...)
			}
			return
		}
		for _, option := range lanes[i] {
			if !footprintsCompatible(footprint, option.footprint) {
				continue
			}
			walk(i+1, mergeFootprints(footprint, option.footprint), append(chosen, option), value+option.value, count+len(option.reservations))
		}
	}
	walk(0, make(map[footprintKey]struct{}), nil, 0, 0)
	return best
}

// AdvanceTime is a no-op; Auction owns no cycle state.
func (a *Auction) AdvanceTime() {}

// Run executes one auction round, given whether the intersection is
// currently empty of traversing vehicles (the caller -- the simulator's
// update-schedule phase -- knows this from the tiling's active reservations).
func (a *Auction) Run(intersectionEmpty bool) {
	if !intersectionEmpty {
		return
	}

	var lanes [][]lanePrefix
	var all []*intersection.Reservation
	for _, il := range a.Lanes {
		reservations, err := a.Tiling.CheckRequest(il.Road, il.Target, intersection.RequestOptions{Mark: true, Sequence: true})
		if err != nil || len(reservations) == 0 {
			continue
		}
		all = append(all, reservations...)
		lanes = append(lanes, prefixesOf(reservations))
	}
	if len(lanes) == 0 {
		return
	}

	best := a.bestCombination(lanes)

	chosen := make(map[*intersection.Reservation]bool, len(all))
	for _, lp := range best {
		for _, r := range lp.reservations {
			chosen[r] = true
		}
	}

	// A prefix shorter than its lane's full sequence leaves the last
	// accepted reservation's dependency pointing at a vehicle that won't be
	// committed this round; clear it so that vehicle doesn't wait forever on
	// a reservation that will never exist.
	byVIN := make(map[int]*intersection.Reservation, len(all))
	for _, r := range all {
		byVIN[r.Vehicle.VIN()] = r
	}
	for r := range chosen {
		if r.Dependency == nil {
			continue
		}
		if next, ok := byVIN[*r.Dependency]; !ok || !chosen[next] {
			r.Dependency = nil
		}
	}

	for _, r := range all {
		if chosen[r] {
			a.Tiling.Commit(r)
		} else {
			a.Tiling.Rollback(r)
		}
	}
}
