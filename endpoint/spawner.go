// Package endpoint implements the Road-boundary collaborators that aren't
// lanes: Spawner injects vehicles, Remover retires them and records the log
// entry fetch_log() reports (spec §6).
package endpoint

import (
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"aimsim/config"
	"aimsim/pathfinder"
	"aimsim/road"
	"aimsim/vehicle"
)

// Spawner injects vehicles onto one or more lanes of a single road, per the
// spawner protocol in spec §6.
type Spawner struct {
	ID     int
	Lanes  []*road.RoadLane
	Finder pathfinder.Pathfinder

	vpm           float64
	probabilities []float64
	factories     []config.FactorySpec
	fixedSpawns   []int64
	nextFixed     int

	cfg        *config.Config
	vinFn      func() int
	queue      []*vehicle.Vehicle

	log map[int]*LogEntry
}

// NewSpawner constructs a Spawner from its scenario spec. vinFn mints the
// next process-wide VIN (threaded from simcontext.State.NextVIN, never a
// free global per spec §9). log is the simulator's shared VIN-keyed log; the
// spawner opens each vehicle's entry there the moment it is placed.
func NewSpawner(spec config.SpawnerSpec, lanes []*road.RoadLane, finder pathfinder.Pathfinder, cfg *config.Config, vinFn func() int, log map[int]*LogEntry) *Spawner {
	return &Spawner{
		ID:            spec.ID,
		Lanes:         lanes,
		Finder:        finder,
		vpm:           spec.VehiclesPerMinute,
		probabilities: spec.FactorySelectionProbabilities,
		factories:     spec.FactorySpecs,
		fixedSpawns:   spec.FixedIntervalSpawns,
		cfg:           cfg,
		vinFn:         vinFn,
		log:           log,
	}
}

func (s *Spawner) dueFixedSpawn(now int64) bool {
	if s.nextFixed >= len(s.fixedSpawns) {
		return false
	}
	if s.fixedSpawns[s.nextFixed] == now {
		s.nextFixed++
		return true
	}
	return false
}

func (s *Spawner) selectFactory(rng *rand.Rand) config.FactorySpec {
	if len(s.factories) == 0 {
		return config.FactorySpec{}
	}
	roll := rng.Float64()
	cum := 0.0
	for i, p := range s.probabilities {
		cum += p
		if roll <= cum {
			return s.factories[i]
		}
	}
	return s.factories[len(s.factories)-1]
}

func (s *Spawner) spawnVehicle(rng *rand.Rand) (*vehicle.Vehicle, error) {
	factory := s.selectFactory(rng)
	chars := vehicle.Characteristics{
		DestinationID:   factory.DestinationID,
		MaxAcceleration: factory.MaxAcceleration,
		MaxBraking:      factory.MaxBraking,
		Length:          factory.Length,
		Width:           factory.Width,
		ThrottleScore:   factory.ThrottleScore,
		TrackingScore:   factory.TrackingScore,
		VOT:             factory.VOT,
		Automated:       factory.Automated,
	}
	return vehicle.NewVehicle(s.vinFn(), chars, s.cfg.MinAcceleration, s.cfg.MaxBraking)
}

// Step runs one timestep of the spawner protocol: a Bernoulli/fixed-interval
// arrival decision, then a shuffle-and-try placement pass over every queued
// vehicle (including any left over from a previous timestep), preserving
// FIFO order by blocking an eligible-but-unavailable lane for later vehicles
// in the same pass.
func (s *Spawner) Step(now int64, rng *rand.Rand) error {
	due := s.dueFixedSpawn(now)
	if !due && s.vpm > 0 {
		due = rng.Float64() < (s.vpm/60)*s.cfg.DeltaT()
	}
	if due {
		v, err := s.spawnVehicle(rng)
		if err != nil {
			return fmt.Errorf("endpoint: spawner %d: %w", s.ID, err)
		}
		s.queue = append(s.queue, v)
	}

	if len(s.queue) == 0 {
		return nil
	}

	blocked := make(map[*road.RoadLane]struct{})
	var remaining []*vehicle.Vehicle
	for _, v := range s.queue {
		order := rng.Perm(len(s.Lanes))
		placed := false
		for _, idx := range order {
			lane := s.Lanes[idx]
			if _, isBlocked := blocked[lane]; isBlocked {
				continue
			}
			end := lane.Trajectory.EndCoord()
			if len(s.Finder.Movements(end, v.DestinationID(), false)) == 0 {
				continue
			}
			required := v.Length() * (1 + 2*s.cfg.LengthBufferFactor)
			if lane.RoomToEnter(true) < required {
				blocked[lane] = struct{}{}
				continue
			}
			lane.PlaceSpawn(v, v.Length()*(1+s.cfg.LengthBufferFactor))
			if s.log != nil {
				s.log[v.VIN()] = &LogEntry{VIN: v.VIN(), EntryTimestep: now}
			}
			logrus.WithFields(logrus.Fields{"component": "spawner", "timestep": now, "vin": v.VIN()}).Debug("spawned vehicle")
			placed = true
			break
		}
		if !placed {
			remaining = append(remaining, v)
		}
	}
	s.queue = remaining
	return nil
}
