package endpoint

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aimsim/config"
	"aimsim/geom"
	"aimsim/road"
)

type stubFinder struct {
	movements []geom.Coord
}

func (f stubFinder) Movements(from geom.Coord, destination int, atLeastOne bool) []geom.Coord {
	return f.movements
}

func newSpawnerRoad(t *testing.T) *road.RoadLane {
	t.Helper()
	traj := geom.NewTrajectory(geom.Coord{X: 0, Y: 0}, geom.Coord{X: 25, Y: 0}, geom.Coord{X: 50, Y: 0})
	return road.New(traj, 3.5, 15, 1.0, -4.5, 10, 10, true, false, nil)
}

func testSpawnerConfig() *config.Config {
	return &config.Config{
		StepsPerSecond:     60,
		SpeedLimit:         15,
		MaxBraking:         -3.4,
		MinAcceleration:    1,
		MaxVehicleLength:   5.5,
		LengthBufferFactor: 0.1,
	}
}

func newVINSource() func() int {
	next := 0
	return func() int {
		next++
		return next
	}
}

func TestSpawnerStepPlacesVehicleOnFixedSpawn(t *testing.T) {
	lane := newSpawnerRoad(t)
	cfg := testSpawnerConfig()
	logMap := map[int]*LogEntry{}

	spec := config.SpawnerSpec{
		ID:                             1,
		FactorySelectionProbabilities:  []float64{1},
		FactoryTypes:                   []string{"sedan"},
		FactorySpecs:                   []config.FactorySpec{{MaxAcceleration: 3, MaxBraking: -3.4, Length: 4.5, Width: 2, Automated: true}},
		FixedIntervalSpawns:            []int64{0},
	}
	finder := stubFinder{movements: []geom.Coord{{X: 100, Y: 0}}}
	s := NewSpawner(spec, []*road.RoadLane{lane}, finder, cfg, newVINSource(), logMap)

	rng := rand.New(rand.NewSource(1))
	require.NoError(t, s.Step(0, rng))

	assert.Len(t, lane.Vehicles(), 1)
	assert.Empty(t, s.queue)
	assert.Contains(t, logMap, 1)
	assert.Equal(t, int64(0), logMap[1].EntryTimestep)
}

func TestSpawnerStepNoFixedSpawnAndZeroRateIsNoOp(t *testing.T) {
	lane := newSpawnerRoad(t)
	cfg := testSpawnerConfig()

	spec := config.SpawnerSpec{ID: 1}
	finder := stubFinder{movements: []geom.Coord{{X: 100, Y: 0}}}
	s := NewSpawner(spec, []*road.RoadLane{lane}, finder, cfg, newVINSource(), map[int]*LogEntry{})

	rng := rand.New(rand.NewSource(1))
	require.NoError(t, s.Step(5, rng))

	assert.Empty(t, lane.Vehicles())
	assert.Empty(t, s.queue)
}

func TestSpawnerStepLeavesVehicleQueuedWhenNoLaneHasRoom(t *testing.T) {
	lane := newSpawnerRoad(t)
	cfg := testSpawnerConfig()

	spec := config.SpawnerSpec{
		ID:                             1,
		FactorySelectionProbabilities:  []float64{1},
		FactoryTypes:                   []string{"sedan"},
		FactorySpecs:                   []config.FactorySpec{{MaxAcceleration: 3, MaxBraking: -3.4, Length: 50, Width: 2, Automated: true}},
		FixedIntervalSpawns:            []int64{0},
	}
	finder := stubFinder{movements: []geom.Coord{{X: 100, Y: 0}}}
	s := NewSpawner(spec, []*road.RoadLane{lane}, finder, cfg, newVINSource(), map[int]*LogEntry{})

	rng := rand.New(rand.NewSource(1))
	require.NoError(t, s.Step(0, rng))

	assert.Empty(t, lane.Vehicles(), "an oversized vehicle must not be force-placed")
	assert.Len(t, s.queue, 1, "it stays queued for a later attempt instead of being dropped")
}
