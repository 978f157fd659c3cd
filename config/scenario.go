package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"aimsim/geom"
)

// ErrDanglingID is returned when a spec references an id no sibling spec declares.
var ErrDanglingID = errors.New("config: dangling id reference")

// ErrEndpointMismatch is returned when a Road's declared upstream/downstream
// does not match the corresponding endpoint's declared road.
var ErrEndpointMismatch = errors.New("config: road/endpoint mismatch")

// ErrRegionTooLong is returned when a Road's entrance+approach regions exceed
// its trajectory length.
var ErrRegionTooLong = errors.New("config: entrance+approach region exceeds trajectory length")

// ErrProbabilitiesNotNormalized is returned when a set of selection
// probabilities does not sum to 1 (within tolerance).
var ErrProbabilitiesNotNormalized = errors.New("config: probabilities must sum to 1")

// ErrWeakCharacteristics is returned when a factory's vehicle characteristics
// are weaker than the configured global floors.
var ErrWeakCharacteristics = errors.New("config: vehicle characteristics weaker than configured floors")

// BezierSpec is the wire representation of a quadratic Bezier trajectory.
type BezierSpec struct {
	Start   geom.Coord `mapstructure:"start"`
	Control geom.Coord `mapstructure:"control"`
	End     geom.Coord `mapstructure:"end"`
}

// RoadSpec is the scenario schema for one Road (spec §6).
type RoadSpec struct {
	ID                  int        `mapstructure:"id"`
	UpstreamID          int        `mapstructure:"upstream_id"`
	DownstreamID        int        `mapstructure:"downstream_id"`
	Trajectory          BezierSpec `mapstructure:"trajectory"`
	NumLanes            int        `mapstructure:"num_lanes"`
	LaneWidth           float64    `mapstructure:"lane_width"`
	UpstreamIsSpawner   bool       `mapstructure:"upstream_is_spawner"`
	DownstreamIsRemover bool       `mapstructure:"downstream_is_remover"`
	LaneOffsetAngle     float64    `mapstructure:"lane_offset_angle"`
	LenEntranceRegion   float64    `mapstructure:"len_entrance_region"`
	LenApproachRegion   float64    `mapstructure:"len_approach_region"`
	SpeedLimit          float64    `mapstructure:"speed_limit"`
}

func (r RoadSpec) trajectoryLength() float64 {
	return geom.NewTrajectory(r.Trajectory.Start, r.Trajectory.Control, r.Trajectory.End).Length()
}

// Validate checks the per-field invariants spec §6/§7 assign to a RoadSpec
// in isolation (cross-spec checks -- dangling ids, endpoint mismatch -- are
// done by Scenario.Validate, which has the full picture).
func (r RoadSpec) Validate() error {
	if r.NumLanes < 1 {
		return fmt.Errorf("config: road %d: num_lanes must be >= 1", r.ID)
	}
	if r.LaneWidth <= 0 || r.SpeedLimit <= 0 {
		return fmt.Errorf("config: road %d: lane_width and speed_limit must be positive", r.ID)
	}
	if r.LaneOffsetAngle <= -halfPi || r.LaneOffsetAngle >= halfPi {
		return fmt.Errorf("config: road %d: lane_offset_angle must be in (-pi/2, pi/2)", r.ID)
	}
	if r.LenEntranceRegion <= 0 || r.LenApproachRegion <= 0 {
		return fmt.Errorf("config: road %d: region lengths must be positive", r.ID)
	}
	if r.LenEntranceRegion+r.LenApproachRegion > r.trajectoryLength() {
		return fmt.Errorf("%w: road %d", ErrRegionTooLong, r.ID)
	}
	return nil
}

const halfPi = 1.5707963267948966

// ConnectivityEntry is one (in_id, out_id, fully_connected) triple of an
// IntersectionSpec's connectivity table.
type ConnectivityEntry struct {
	InID           int  `mapstructure:"in_id"`
	OutID          int  `mapstructure:"out_id"`
	FullyConnected bool `mapstructure:"fully_connected"`
}

// IntersectionSpec is the scenario schema for one Intersection (spec §6),
// supplemented with the square-grid tiling parameters §4.2 requires a
// concrete number for but the distilled schema leaves implicit.
type IntersectionSpec struct {
	ID                 int                 `mapstructure:"id"`
	IncomingRoadIDs    []int               `mapstructure:"incoming_road_ids"`
	OutgoingRoadIDs    []int               `mapstructure:"outgoing_road_ids"`
	Connectivity       []ConnectivityEntry `mapstructure:"connectivity"`
	ManagerType        string              `mapstructure:"manager_type"`
	ManagerSpec        map[string]any      `mapstructure:"manager_spec"`
	SpeedLimit         float64             `mapstructure:"speed_limit"`
	TileWidth          float64             `mapstructure:"tile_width"`
	RejectionThreshold float64             `mapstructure:"rejection_threshold"`
	IOBufferSteps      int                 `mapstructure:"io_buffer_steps"`
}

// Validate checks per-field invariants in isolation, filling in the tiling
// parameters' defaults when the scenario leaves them at their zero value.
func (i *IntersectionSpec) Validate() error {
	if i.SpeedLimit <= 0 {
		return fmt.Errorf("config: intersection %d: speed_limit must be positive", i.ID)
	}
	if len(i.IncomingRoadIDs) == 0 || len(i.OutgoingRoadIDs) == 0 {
		return fmt.Errorf("config: intersection %d: needs at least one incoming and one outgoing road", i.ID)
	}
	if i.TileWidth <= 0 {
		i.TileWidth = 1.0
	}
	if i.RejectionThreshold < 0 || i.RejectionThreshold >= 1 {
		return fmt.Errorf("config: intersection %d: rejection_threshold must be in [0,1)", i.ID)
	}
	if i.IOBufferSteps <= 0 {
		i.IOBufferSteps = 1
	}
	return nil
}

// FactorySpec is one vehicle factory's generation parameters.
type FactorySpec struct {
	Type            string  `mapstructure:"type"`
	DestinationID   int     `mapstructure:"destination_id"`
	MaxAcceleration float64 `mapstructure:"max_acceleration"`
	MaxBraking      float64 `mapstructure:"max_braking"`
	Length          float64 `mapstructure:"length"`
	Width           float64 `mapstructure:"width"`
	ThrottleScore   float64 `mapstructure:"throttle_score"`
	TrackingScore   float64 `mapstructure:"tracking_score"`
	VOT             float64 `mapstructure:"vot"`
	Automated       bool    `mapstructure:"automated"`
}

// Validate checks a factory's characteristics against the global floors
// (spec §7 "vehicle characteristics weaker than configured floors").
func (f FactorySpec) Validate(cfg *Config) error {
	if f.MaxAcceleration < cfg.MinAcceleration {
		return fmt.Errorf("%w: factory %q max_acceleration", ErrWeakCharacteristics, f.Type)
	}
	if f.MaxBraking > cfg.MaxBraking {
		return fmt.Errorf("%w: factory %q max_braking", ErrWeakCharacteristics, f.Type)
	}
	if f.Length > cfg.MaxVehicleLength {
		return fmt.Errorf("%w: factory %q length exceeds max_vehicle_length", ErrWeakCharacteristics, f.Type)
	}
	return nil
}

// SpawnerSpec is the scenario schema for one Spawner (spec §6).
type SpawnerSpec struct {
	ID                          int           `mapstructure:"id"`
	RoadID                      int           `mapstructure:"road_id"`
	VehiclesPerMinute           float64       `mapstructure:"vehicles_per_minute"`
	FactorySelectionProbabilities []float64   `mapstructure:"factory_selection_probabilities"`
	FactoryTypes                []string      `mapstructure:"factory_types"`
	FactorySpecs                []FactorySpec `mapstructure:"factory_specs"`
	FixedIntervalSpawns         []int64       `mapstructure:"fixed_interval_spawns"`
}

// Validate checks per-field invariants in isolation.
func (s SpawnerSpec) Validate(cfg *Config) error {
	if s.VehiclesPerMinute < 0 {
		return fmt.Errorf("config: spawner %d: vehicles_per_minute must be nonnegative", s.ID)
	}
	if len(s.FactorySelectionProbabilities) != len(s.FactoryTypes) || len(s.FactoryTypes) != len(s.FactorySpecs) {
		return fmt.Errorf("config: spawner %d: factory_selection_probabilities/types/specs must be equal length", s.ID)
	}
	sum := 0.0
	for _, p := range s.FactorySelectionProbabilities {
		sum += p
	}
	if len(s.FactorySelectionProbabilities) > 0 && (sum < 0.999 || sum > 1.001) {
		return fmt.Errorf("%w: spawner %d sums to %v", ErrProbabilitiesNotNormalized, s.ID, sum)
	}
	for _, fs := range s.FactorySpecs {
		if err := fs.Validate(cfg); err != nil {
			return err
		}
	}
	return nil
}

// RemoverSpec is the scenario schema for one Remover (spec §6).
type RemoverSpec struct {
	ID     int `mapstructure:"id"`
	RoadID int `mapstructure:"road_id"`
}

// Scenario is the full set of specs a Simulator is constructed from.
type Scenario struct {
	Roads         []RoadSpec         `mapstructure:"roads"`
	Intersections []IntersectionSpec `mapstructure:"intersections"`
	Spawners      []SpawnerSpec      `mapstructure:"spawners"`
	Removers      []RemoverSpec      `mapstructure:"removers"`
}

// LoadScenario reads a scenario file (YAML) via viper into a Scenario, the
// same mechanism config.Load uses for the tuning-parameter file -- a
// separate, purpose-specific viper.Viper so scenario and config loading never
// share frozen state. It does not validate the result; call Validate with the
// loaded Config once both are in hand.
func LoadScenario(path string) (Scenario, error) {
	var scenario Scenario
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return scenario, fmt.Errorf("config: reading scenario %s: %w", path, err)
	}
	if err := v.Unmarshal(&scenario); err != nil {
		return scenario, fmt.Errorf("config: decoding scenario %s: %w", path, err)
	}
	return scenario, nil
}

// Validate runs every per-spec Validate and the cross-spec checks spec §6/§7
// assign to construction time: dangling ids and upstream/downstream mismatch
// between a Road and the endpoint it names.
func (s Scenario) Validate(cfg *Config) error {
	roadByID := make(map[int]RoadSpec, len(s.Roads))
	for _, r := range s.Roads {
		if err := r.Validate(); err != nil {
			return err
		}
		roadByID[r.ID] = r
	}

	spawnerRoad := make(map[int]int, len(s.Spawners))
	for _, sp := range s.Spawners {
		if err := sp.Validate(cfg); err != nil {
			return err
		}
		if _, ok := roadByID[sp.RoadID]; !ok {
			return fmt.Errorf("%w: spawner %d road_id %d", ErrDanglingID, sp.ID, sp.RoadID)
		}
		spawnerRoad[sp.ID] = sp.RoadID
	}

	removerRoad := make(map[int]int, len(s.Removers))
	for _, rm := range s.Removers {
		if _, ok := roadByID[rm.RoadID]; !ok {
			return fmt.Errorf("%w: remover %d road_id %d", ErrDanglingID, rm.ID, rm.RoadID)
		}
		removerRoad[rm.ID] = rm.RoadID
	}

	intersectionByID := make(map[int]IntersectionSpec, len(s.Intersections))
	for i := range s.Intersections {
		if err := s.Intersections[i].Validate(); err != nil {
			return err
		}
		intersectionByID[s.Intersections[i].ID] = s.Intersections[i]
	}

	for _, r := range s.Roads {
		if r.UpstreamIsSpawner {
			rid, ok := spawnerRoad[r.UpstreamID]
			if !ok {
				return fmt.Errorf("%w: road %d upstream spawner %d", ErrDanglingID, r.ID, r.UpstreamID)
			}
			if rid != r.ID {
				return fmt.Errorf("%w: road %d upstream spawner %d names road %d", ErrEndpointMismatch, r.ID, r.UpstreamID, rid)
			}
		} else if _, ok := intersectionByID[r.UpstreamID]; !ok {
			return fmt.Errorf("%w: road %d upstream intersection %d", ErrDanglingID, r.ID, r.UpstreamID)
		}
		if r.DownstreamIsRemover {
			rid, ok := removerRoad[r.DownstreamID]
			if !ok {
				return fmt.Errorf("%w: road %d downstream remover %d", ErrDanglingID, r.ID, r.DownstreamID)
			}
			if rid != r.ID {
				return fmt.Errorf("%w: road %d downstream remover %d names road %d", ErrEndpointMismatch, r.ID, r.DownstreamID, rid)
			}
		} else if _, ok := intersectionByID[r.DownstreamID]; !ok {
			return fmt.Errorf("%w: road %d downstream intersection %d", ErrDanglingID, r.ID, r.DownstreamID)
		}
	}

	for _, in := range s.Intersections {
		for _, rid := range append(append([]int{}, in.IncomingRoadIDs...), in.OutgoingRoadIDs...) {
			road, ok := roadByID[rid]
			if !ok {
				return fmt.Errorf("%w: intersection %d road %d", ErrDanglingID, in.ID, rid)
			}
			_ = road
		}
		for _, rid := range in.IncomingRoadIDs {
			road := roadByID[rid]
			if road.DownstreamID != in.ID || road.DownstreamIsRemover {
				return fmt.Errorf("%w: road %d does not declare intersection %d as its downstream", ErrEndpointMismatch, rid, in.ID)
			}
		}
		for _, rid := range in.OutgoingRoadIDs {
			road := roadByID[rid]
			if road.UpstreamID != in.ID || road.UpstreamIsSpawner {
				return fmt.Errorf("%w: road %d does not declare intersection %d as its upstream", ErrEndpointMismatch, rid, in.ID)
			}
		}
	}
	return nil
}
