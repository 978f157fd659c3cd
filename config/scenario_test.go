package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aimsim/geom"
)

func validRoadSpec(id, upstreamID, downstreamID int, upstreamIsSpawner, downstreamIsRemover bool) RoadSpec {
	return RoadSpec{
		ID:                  id,
		UpstreamID:          upstreamID,
		DownstreamID:        downstreamID,
		Trajectory:          BezierSpec{Start: geom.Coord{X: 0, Y: 0}, Control: geom.Coord{X: 25, Y: 0}, End: geom.Coord{X: 50, Y: 0}},
		NumLanes:            1,
		LaneWidth:           3.5,
		UpstreamIsSpawner:   upstreamIsSpawner,
		DownstreamIsRemover: downstreamIsRemover,
		LenEntranceRegion:   5,
		LenApproachRegion:   5,
		SpeedLimit:          15,
	}
}

func validFactorySpec(cfg *Config) FactorySpec {
	return FactorySpec{
		Type:            "sedan",
		MaxAcceleration: cfg.MinAcceleration,
		MaxBraking:      cfg.MaxBraking,
		Length:          4.5,
		Width:           2,
		VOT:             1,
		Automated:       true,
	}
}

func validScenario(cfg *Config) Scenario {
	in := validRoadSpec(1, 10, 100, true, false)
	out := validRoadSpec(2, 100, 20, false, true)
	return Scenario{
		Roads: []RoadSpec{in, out},
		Intersections: []IntersectionSpec{{
			ID:              100,
			IncomingRoadIDs: []int{1},
			OutgoingRoadIDs: []int{2},
			Connectivity:    []ConnectivityEntry{{InID: 1, OutID: 2, FullyConnected: true}},
			ManagerType:     "fcfs",
			SpeedLimit:      15,
		}},
		Spawners: []SpawnerSpec{{
			ID:                             10,
			RoadID:                         1,
			VehiclesPerMinute:              5,
			FactorySelectionProbabilities:  []float64{1},
			FactoryTypes:                   []string{"sedan"},
			FactorySpecs:                   []FactorySpec{validFactorySpec(cfg)},
		}},
		Removers: []RemoverSpec{{ID: 20, RoadID: 2}},
	}
}

func TestScenarioValidateAcceptsWellFormedScenario(t *testing.T) {
	cfg := defaults()
	s := validScenario(cfg)
	assert.NoError(t, s.Validate(cfg))
}

func TestScenarioValidateCatchesDanglingSpawnerRoad(t *testing.T) {
	cfg := defaults()
	s := validScenario(cfg)
	s.Spawners[0].RoadID = 999
	assert.ErrorIs(t, s.Validate(cfg), ErrDanglingID)
}

func TestScenarioValidateCatchesEndpointMismatch(t *testing.T) {
	cfg := defaults()
	s := validScenario(cfg)
	s.Intersections[0].IncomingRoadIDs = []int{2}
	assert.ErrorIs(t, s.Validate(cfg), ErrEndpointMismatch)
}

func TestRoadSpecValidateRejectsOversizedRegions(t *testing.T) {
	r := validRoadSpec(1, 10, 100, true, false)
	r.LenEntranceRegion = 1000
	assert.ErrorIs(t, r.Validate(), ErrRegionTooLong)
}

func TestSpawnerSpecValidateRejectsUnnormalizedProbabilities(t *testing.T) {
	cfg := defaults()
	sp := SpawnerSpec{
		ID:                            1,
		RoadID:                        1,
		FactorySelectionProbabilities: []float64{0.3, 0.3},
		FactoryTypes:                  []string{"a", "b"},
		FactorySpecs:                  []FactorySpec{validFactorySpec(cfg), validFactorySpec(cfg)},
	}
	assert.ErrorIs(t, sp.Validate(cfg), ErrProbabilitiesNotNormalized)
}

func TestFactorySpecValidateRejectsWeakCharacteristics(t *testing.T) {
	cfg := defaults()
	f := validFactorySpec(cfg)
	f.MaxAcceleration = cfg.MinAcceleration / 2
	assert.ErrorIs(t, f.Validate(cfg), ErrWeakCharacteristics)
}

func TestIntersectionSpecValidateFillsTilingDefaults(t *testing.T) {
	i := &IntersectionSpec{
		ID:              1,
		IncomingRoadIDs: []int{1},
		OutgoingRoadIDs: []int{2},
		SpeedLimit:      15,
	}
	require.NoError(t, i.Validate())
	assert.Equal(t, 1.0, i.TileWidth)
	assert.Equal(t, 1, i.IOBufferSteps)
}

func TestLoadScenarioRoundTripsRoadFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	contents := `
roads:
  - id: 1
    upstream_id: 10
    downstream_id: 100
    num_lanes: 2
    lane_width: 3.5
    upstream_is_spawner: true
    speed_limit: 15
    trajectory:
      start: {x: 0, y: 0}
      control: {x: 25, y: 0}
      end: {x: 50, y: 0}
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	require.Len(t, s.Roads, 1)
	assert.Equal(t, 1, s.Roads[0].ID)
	assert.Equal(t, 2, s.Roads[0].NumLanes)
	assert.True(t, s.Roads[0].UpstreamIsSpawner)
	assert.Equal(t, 50.0, s.Roads[0].Trajectory.End.X)
}
