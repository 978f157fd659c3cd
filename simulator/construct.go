// Package simulator wires a validated scenario into a runnable Simulator:
// RoadLanes with lateral per-lane offsets, IntersectionLanes and their
// Tiling/manager pair per intersection, and the Spawner/Remover endpoints,
// all sharing one deferred AllPairs pathfinder built only once every
// intersection's connectivity is resolved.
package simulator

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/google/uuid"

	"aimsim/config"
	"aimsim/endpoint"
	"aimsim/geom"
	"aimsim/intersection"
	"aimsim/manager"
	"aimsim/pathfinder"
	"aimsim/road"
	"aimsim/simcontext"
	"aimsim/vehicle"
)

// intersectionRuntime is one constructed intersection's live collaborators.
type intersectionRuntime struct {
	ID       int
	Tiling   *intersection.Tiling
	Lanes    []*intersection.Lane
	Policy   manager.Policy
	Auction  *manager.Auction
	Incoming []manager.IncomingLane
}

// Simulator owns every constructed lane, intersection, and endpoint for one
// scenario, plus the process-wide simcontext.State threaded through a
// context.Context (spec §9: VIN minting is never a free package-level global).
type Simulator struct {
	Config   *config.Config
	Scenario config.Scenario
	// RunID distinguishes this construction's logged entries and reports
	// from any other run over the same scenario, so logs from concurrent or
	// repeated runs can't be confused for one another.
	RunID uuid.UUID
	ctx   context.Context

	roadLanes    map[int][]*road.RoadLane
	roadSpecByID map[int]config.RoadSpec

	intersections []*intersectionRuntime

	spawners      []*endpoint.Spawner
	removers      []*endpoint.Remover
	removerOfLane map[*road.RoadLane]*endpoint.Remover
	tilingOfLane  map[*intersection.Lane]*intersection.Tiling

	finder pathfinder.Pathfinder
	log    map[int]*endpoint.LogEntry
}

// New loads configuration, validates the scenario against it, and builds the
// full lane/intersection/endpoint graph the scenario describes.
// pathfinderOverride, when non-nil, replaces the default AllPairs pathfinder
// built from the resolved connectivity (used by tests pinning exact routes).
func New(scenario config.Scenario, configPath string, pathfinderOverride pathfinder.Pathfinder, rng *rand.Rand) (*Simulator, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := scenario.Validate(cfg); err != nil {
		return nil, err
	}

	state := simcontext.New(rng)
	ctx := simcontext.WithState(context.Background(), state)

	sim := &Simulator{
		Config:        cfg,
		Scenario:      scenario,
		RunID:         uuid.New(),
		ctx:           ctx,
		roadLanes:     make(map[int][]*road.RoadLane),
		roadSpecByID:  make(map[int]config.RoadSpec, len(scenario.Roads)),
		removerOfLane: make(map[*road.RoadLane]*endpoint.Remover),
		tilingOfLane:  make(map[*intersection.Lane]*intersection.Tiling),
		log:           make(map[int]*endpoint.LogEntry),
	}

	// The pathfinder each RoadLane's nextMovement closure consults doesn't
	// exist until every intersection's connectivity is resolved below, but
	// the closures themselves must be created alongside their lanes. Go
	// closures capture finder by reference, so the lanes built now execute
	// correctly once finder is assigned at the end of this function.
	var finder pathfinder.Pathfinder
	reachable := make(map[geom.Coord][]geom.Coord)

	for _, r := range scenario.Roads {
		lanes, err := buildRoadLanes(r, cfg, &finder)
		if err != nil {
			return nil, fmt.Errorf("simulator: road %d: %w", r.ID, err)
		}
		sim.roadLanes[r.ID] = lanes
		sim.roadSpecByID[r.ID] = r
	}

	for _, is := range scenario.Intersections {
		rt, err := buildIntersection(is, sim.roadLanes, cfg, rng, reachable)
		if err != nil {
			return nil, fmt.Errorf("simulator: intersection %d: %w", is.ID, err)
		}
		sim.intersections = append(sim.intersections, rt)
		for _, l := range rt.Lanes {
			sim.tilingOfLane[l] = rt.Tiling
		}
	}

	if pathfinderOverride != nil {
		finder = pathfinderOverride
	} else {
		finder = pathfinder.NewAllPairs(reachable)
	}
	sim.finder = finder

	for _, sp := range scenario.Spawners {
		lanes := sim.roadLanes[sp.RoadID]
		vinFn := func() int { return simcontext.From(sim.ctx).NextVIN() }
		sim.spawners = append(sim.spawners, endpoint.NewSpawner(sp, lanes, finder, cfg, vinFn, sim.log))
	}

	for _, rm := range scenario.Removers {
		lanes := sim.roadLanes[rm.RoadID]
		remover := endpoint.NewRemover(rm.ID, lanes, sim.log)
		sim.removers = append(sim.removers, remover)
		for _, l := range lanes {
			sim.removerOfLane[l] = remover
		}
	}

	return sim, nil
}

// buildRoadLanes constructs one RoadSpec's parallel RoadLanes, offsetting
// each lane's trajectory sideways from the road's nominal centerline by
// lane_width, skewed by lane_offset_angle. The offset is exact for a
// straight road and an approximation for a curved one (the three Bezier
// control points are translated by the same perpendicular vector rather
// than true parallel-curve offsetting).
func buildRoadLanes(r config.RoadSpec, cfg *config.Config, finder *pathfinder.Pathfinder) ([]*road.RoadLane, error) {
	baseTrajectory := geom.NewTrajectory(r.Trajectory.Start, r.Trajectory.Control, r.Trajectory.End)
	baseHeading := baseTrajectory.HeadingAt(0) + r.LaneOffsetAngle

	lanes := make([]*road.RoadLane, 0, r.NumLanes)
	for i := 0; i < r.NumLanes; i++ {
		lateral := (float64(i) - float64(r.NumLanes-1)/2) * r.LaneWidth
		traj := baseTrajectory
		if lateral != 0 {
			traj = geom.NewTrajectory(
				r.Trajectory.Start.Offset(baseHeading, lateral),
				r.Trajectory.Control.Offset(baseHeading, lateral),
				r.Trajectory.End.Offset(baseHeading, lateral),
			)
		}
		rl := road.New(traj, r.LaneWidth, r.SpeedLimit, cfg.DeltaT(), cfg.MaxBraking,
			r.LenEntranceRegion, r.LenApproachRegion, r.UpstreamIsSpawner, r.DownstreamIsRemover, nil)
		rl.SetNextMovement(func(v *vehicle.Vehicle) geom.Coord {
			moves := (*finder).Movements(rl.Trajectory.EndCoord(), v.DestinationID(), true)
			if len(moves) == 0 {
				return rl.Trajectory.EndCoord()
			}
			return moves[0]
		})
		lanes = append(lanes, rl)
	}
	return lanes, nil
}

// connPair is one resolved (incoming lane, outgoing lane) connection.
type connPair struct {
	In  *road.RoadLane
	Out *road.RoadLane
}

// resolveConnectivity pairs incoming and outgoing lanes by proximity between
// an incoming lane's end coord and an outgoing lane's start coord. Without
// fully_connected, only the single globally shortest pair is returned (one
// connection for the whole road pair, regardless of lane count). With it,
// the globally-best remaining (unassigned incoming, any outgoing) pair is
// assigned repeatedly until every incoming lane has one, reusing outgoing
// lanes as needed.
func resolveConnectivity(inLanes, outLanes []*road.RoadLane, fullyConnected bool) []connPair {
	if len(inLanes) == 0 || len(outLanes) == 0 {
		return nil
	}
	if !fullyConnected {
		best := connPair{In: inLanes[0], Out: outLanes[0]}
		bestDist := inLanes[0].Trajectory.EndCoord().DistSquared(outLanes[0].Trajectory.StartCoord())
		for _, in := range inLanes {
			for _, out := range outLanes {
				d := in.Trajectory.EndCoord().DistSquared(out.Trajectory.StartCoord())
				if d < bestDist {
					bestDist = d
					best = connPair{In: in, Out: out}
				}
			}
		}
		return []connPair{best}
	}

	assigned := make(map[*road.RoadLane]bool, len(inLanes))
	var pairs []connPair
	for len(assigned) < len(inLanes) {
		var bestIn, bestOut *road.RoadLane
		bestDist := math.MaxFloat64
		for _, in := range inLanes {
			if assigned[in] {
				continue
			}
			for _, out := range outLanes {
				d := in.Trajectory.EndCoord().DistSquared(out.Trajectory.StartCoord())
				if d < bestDist {
					bestDist = d
					bestIn, bestOut = in, out
				}
			}
		}
		if bestIn == nil {
			break
		}
		assigned[bestIn] = true
		pairs = append(pairs, connPair{In: bestIn, Out: bestOut})
	}
	return pairs
}

// buildIntersection resolves one IntersectionSpec's connectivity table into
// IntersectionLanes, builds its Tiling over their combined endpoints, wires
// each incoming RoadLane downstream to its target IntersectionLane, records
// the coord-to-coord adjacency every paired lane contributes to the shared
// pathfinder reachability map, and constructs the manager policy named by
// manager_type.
func buildIntersection(is config.IntersectionSpec, roadLanes map[int][]*road.RoadLane,
	cfg *config.Config, rng *rand.Rand, reachable map[geom.Coord][]geom.Coord,
) (*intersectionRuntime, error) {
	var lanes []*intersection.Lane
	var incoming []manager.IncomingLane
	var endpoints []geom.Coord

	for _, entry := range is.Connectivity {
		inLanes := roadLanes[entry.InID]
		outLanes := roadLanes[entry.OutID]
		for _, pair := range resolveConnectivity(inLanes, outLanes, entry.FullyConnected) {
			il, err := intersection.New(pair.In, pair.Out, cfg.DeltaT(), cfg.MaxBraking)
			if err != nil {
				return nil, fmt.Errorf("connecting road %d to road %d: %w", entry.InID, entry.OutID, err)
			}
			pair.In.ConnectDownstream(il)

			lanes = append(lanes, il)
			incoming = append(incoming, manager.IncomingLane{Road: pair.In, Target: il})
			endpoints = append(endpoints, il.Trajectory.StartCoord(), il.Trajectory.EndCoord())
			reachable[pair.In.Trajectory.EndCoord()] = append(reachable[pair.In.Trajectory.EndCoord()], pair.Out.Trajectory.StartCoord())
		}
	}

	geometry := intersection.NewSquareGeometry(endpoints, is.TileWidth)
	tiling := intersection.NewSquareTiling(geometry, is.RejectionThreshold, cfg.LengthBufferFactor, is.IOBufferSteps)

	policy, auction, err := buildPolicy(is.ManagerType, is.ManagerSpec, tiling, incoming, roadLanes, rng)
	if err != nil {
		return nil, err
	}

	return &intersectionRuntime{
		ID:       is.ID,
		Tiling:   tiling,
		Lanes:    lanes,
		Policy:   policy,
		Auction:  auction,
		Incoming: incoming,
	}, nil
}
