package manager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aimsim/geom"
	"aimsim/intersection"
	"aimsim/road"
	"aimsim/vehicle"
)

func newFCFSSignalsPair(t *testing.T, yOffset float64) (*road.RoadLane, *intersection.Lane) {
	t.Helper()
	upTraj := geom.NewTrajectory(geom.Coord{X: 0, Y: yOffset}, geom.Coord{X: 5, Y: yOffset}, geom.Coord{X: 10, Y: yOffset})
	downTraj := geom.NewTrajectory(geom.Coord{X: 50, Y: yOffset}, geom.Coord{X: 50, Y: yOffset + 5}, geom.Coord{X: 50, Y: yOffset + 10})
	up := road.New(upTraj, 3.5, 15, 1.0, -4.5, 2, 3, true, false, nil)
	down := road.New(downTraj, 3.5, 15, 1.0, -4.5, 8, 1, false, true, nil)
	il, err := intersection.New(up, down, 1.0, -4.5)
	require.NoError(t, err)
	return up, il
}

func TestFCFSSignalsGreenLaneGetsSignalPermissionOnly(t *testing.T) {
	upA, ilA := newFCFSSignalsPair(t, 0)
	upB, ilB := newFCFSSignalsPair(t, 20)

	geometry := intersection.NewSquareGeometry([]geom.Coord{{X: 0, Y: 0}, {X: 50, Y: 30}}, 2)
	tg := intersection.NewSquareTiling(geometry, 0, 0.1, 1)

	lanes := []IncomingLane{{Road: upA, Target: ilA}, {Road: upB, Target: ilB}}
	sig := NewSignals(lanes, []CyclePhase{{Green: map[*road.RoadLane]struct{}{upA: {}}, Duration: 1000}})
	c := &FCFSSignals{Tiling: tg, Signals: sig, Lanes: lanes}

	va, err := vehicle.NewVehicle(1, vehicle.Characteristics{
		MaxAcceleration: 3, MaxBraking: -3.4, Length: 4.5, Width: 2, Automated: true,
	}, 1, -4)
	require.NoError(t, err)
	placeAtHead(t, upA, va)

	c.ProcessRequests(0)

	assert.True(t, va.PermissionToEnterIntersection())
	assert.False(t, va.HasReservation(), "the green-phase path grants bare permission, never a tile reservation")
}

func TestFCFSSignalsOffGreenAutomatedFallsBackToFCFS(t *testing.T) {
	upA, ilA := newFCFSSignalsPair(t, 0)
	upB, ilB := newFCFSSignalsPair(t, 20)

	geometry := intersection.NewSquareGeometry([]geom.Coord{{X: 0, Y: 0}, {X: 50, Y: 30}}, 2)
	tg := intersection.NewSquareTiling(geometry, 0, 0.1, 1)

	lanes := []IncomingLane{{Road: upA, Target: ilA}, {Road: upB, Target: ilB}}
	sig := NewSignals(lanes, []CyclePhase{{Green: map[*road.RoadLane]struct{}{upA: {}}, Duration: 1000}})
	c := &FCFSSignals{Tiling: tg, Signals: sig, Lanes: lanes}

	vb, err := vehicle.NewVehicle(2, vehicle.Characteristics{
		MaxAcceleration: 3, MaxBraking: -3.4, Length: 4.5, Width: 2, Automated: true,
	}, 1, -4)
	require.NoError(t, err)
	placeAtHead(t, upB, vb)

	c.ProcessRequests(0)

	assert.True(t, vb.HasReservation())
	assert.True(t, vb.PermissionToEnterIntersection())
}

func TestFCFSSignalsOffGreenHumanDrivenNeverServed(t *testing.T) {
	upA, ilA := newFCFSSignalsPair(t, 0)
	upB, ilB := newFCFSSignalsPair(t, 20)

	geometry := intersection.NewSquareGeometry([]geom.Coord{{X: 0, Y: 0}, {X: 50, Y: 30}}, 2)
	tg := intersection.NewSquareTiling(geometry, 0, 0.1, 1)

	lanes := []IncomingLane{{Road: upA, Target: ilA}, {Road: upB, Target: ilB}}
	sig := NewSignals(lanes, []CyclePhase{{Green: map[*road.RoadLane]struct{}{upA: {}}, Duration: 1000}})
	c := &FCFSSignals{Tiling: tg, Signals: sig, Lanes: lanes}

	human, err := vehicle.NewVehicle(3, vehicle.Characteristics{
		MaxAcceleration: 3, MaxBraking: -3.4, Length: 4.5, Width: 2, Automated: false,
	}, 1, -4)
	require.NoError(t, err)
	placeAtHead(t, upB, human)

	c.ProcessRequests(0)

	assert.False(t, human.HasReservation())
	assert.False(t, human.PermissionToEnterIntersection())
}
