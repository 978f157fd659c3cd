package simulator

import (
	"fmt"
	"math/rand"

	"github.com/mitchellh/mapstructure"

	"aimsim/intersection"
	"aimsim/manager"
	"aimsim/road"
)

type cyclePhaseSpec struct {
	GreenRoadIDs []int `mapstructure:"green_road_ids"`
	Duration     int64 `mapstructure:"duration"`
}

type signalsSpec struct {
	Cycle []cyclePhaseSpec `mapstructure:"cycle"`
}

// buildPolicy constructs the manager.Policy (or, for "auction", the
// standalone *manager.Auction the update-schedule phase drives specially)
// named by managerType, decoding managerSpec's free-form map into the
// typed spec each policy needs.
func buildPolicy(managerType string, managerSpec map[string]any, tiling *intersection.Tiling,
	lanes []manager.IncomingLane, roadByID map[int][]*road.RoadLane, rng *rand.Rand,
) (manager.Policy, *manager.Auction, error) {
	switch managerType {
	case "fcfs":
		return &manager.FCFS{Tiling: tiling, Lanes: lanes}, nil, nil
	case "stopsign":
		return manager.StopSign{}, nil, nil
	case "signals":
		s, err := buildSignals(managerSpec, lanes, roadByID)
		return s, nil, err
	case "auction":
		return nil, &manager.Auction{Tiling: tiling, Lanes: lanes, RNG: rng}, nil
	case "fcfssignals":
		s, err := buildSignals(managerSpec, lanes, roadByID)
		if err != nil {
			return nil, nil, err
		}
		return &manager.FCFSSignals{Tiling: tiling, Signals: s, Lanes: lanes}, nil, nil
	default:
		return nil, nil, fmt.Errorf("simulator: unknown manager_type %q", managerType)
	}
}

func buildSignals(managerSpec map[string]any, lanes []manager.IncomingLane, roadByID map[int][]*road.RoadLane) (*manager.Signals, error) {
	var spec signalsSpec
	if err := mapstructure.Decode(managerSpec, &spec); err != nil {
		return nil, fmt.Errorf("simulator: decoding signals manager_spec: %w", err)
	}
	cycle := make([]manager.CyclePhase, 0, len(spec.Cycle))
	for _, p := range spec.Cycle {
		green := make(map[*road.RoadLane]struct{})
		for _, rid := range p.GreenRoadIDs {
			rls, ok := roadByID[rid]
			if !ok {
				return nil, fmt.Errorf("simulator: signals cycle references unknown road_id %d", rid)
			}
			for _, rl := range rls {
				green[rl] = struct{}{}
			}
		}
		cycle = append(cycle, manager.CyclePhase{Green: green, Duration: p.Duration})
	}
	return manager.NewSignals(lanes, cycle), nil
}
