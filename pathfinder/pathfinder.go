// Package pathfinder decides, for a vehicle at some coord headed to some
// destination, which outbound coords it may legally move toward next.
package pathfinder

import "aimsim/geom"

// Pathfinder answers a vehicle's next-movement options. atLeastOne forces the
// implementation to return a non-empty result even when the ideal route is
// blocked, falling back to any legal movement, so a vehicle is never stranded
// with no coord to aim for.
type Pathfinder interface {
	Movements(from geom.Coord, destination int, atLeastOne bool) []geom.Coord
}

// AllPairs is the default, topology-agnostic Pathfinder: every road reachable
// from a coord is a legal movement target, regardless of destination. It
// exists so a scenario can be wired up and simulated before a real routing
// layer is built on top.
type AllPairs struct {
	// reachable maps a coord to the set of coords directly reachable from it
	// (the outbound ends of every road/connector leaving that point).
	reachable map[geom.Coord][]geom.Coord
}

// NewAllPairs builds an AllPairs pathfinder from an adjacency map.
func NewAllPairs(reachable map[geom.Coord][]geom.Coord) *AllPairs {
	return &AllPairs{reachable: reachable}
}

// Movements returns every coord directly reachable from from, ignoring
// destination entirely -- the trivial "every road reachable" default.
func (a *AllPairs) Movements(from geom.Coord, destination int, atLeastOne bool) []geom.Coord {
	return a.reachable[from]
}
