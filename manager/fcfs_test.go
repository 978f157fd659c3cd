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

func newFCFSIntersection(t *testing.T) (*road.RoadLane, *intersection.Lane, *intersection.Tiling) {
	t.Helper()
	upTraj := geom.NewTrajectory(geom.Coord{X: 0, Y: 0}, geom.Coord{X: 5, Y: 0}, geom.Coord{X: 10, Y: 0})
	downTraj := geom.NewTrajectory(geom.Coord{X: 50, Y: 0}, geom.Coord{X: 50, Y: 5}, geom.Coord{X: 50, Y: 10})
	up := road.New(upTraj, 3.5, 15, 1.0, -4.5, 2, 3, true, false, nil)
	down := road.New(downTraj, 3.5, 15, 1.0, -4.5, 2, 3, false, true, nil)
	il, err := intersection.New(up, down, 1.0, -4.5)
	require.NoError(t, err)

	geometry := intersection.NewSquareGeometry([]geom.Coord{{X: 0, Y: 0}, {X: 50, Y: 10}}, 2)
	tg := intersection.NewSquareTiling(geometry, 0, 0.1, 1)
	return up, il, tg
}

func newFCFSVehicle(t *testing.T, vin int) *vehicle.Vehicle {
	t.Helper()
	v, err := vehicle.NewVehicle(vin, vehicle.Characteristics{
		MaxAcceleration: 3, MaxBraking: -3.4, Length: 4.5, Width: 2, Automated: true,
	}, 1, -4)
	require.NoError(t, err)
	return v
}

func placeAtHead(t *testing.T, r *road.RoadLane, v *vehicle.Vehicle) {
	t.Helper()
	vp := vehicle.VehicleProgress{}
	vp, _ = vp.Set(geom.Front, vehicle.At(0.9))
	vp, _ = vp.Set(geom.Center, vehicle.At(0.88))
	vp, _ = vp.Set(geom.Rear, vehicle.At(0.85))
	r.SetProgress(v, vp)
}

func TestFCFSCommitsTheOnlyRequester(t *testing.T) {
	up, il, tg := newFCFSIntersection(t)
	v := newFCFSVehicle(t, 1)
	placeAtHead(t, up, v)

	f := &FCFS{Tiling: tg, Lanes: []IncomingLane{{Road: up, Target: il}}}
	f.AdvanceTime()
	f.ProcessRequests(0)

	assert.True(t, v.HasReservation())
	assert.True(t, v.PermissionToEnterIntersection())
}

func TestFCFSNoOpWithNoRequesters(t *testing.T) {
	up, il, tg := newFCFSIntersection(t)
	f := &FCFS{Tiling: tg, Lanes: []IncomingLane{{Road: up, Target: il}}}
	assert.NotPanics(t, func() { f.ProcessRequests(0) })
	_, ok := tg.Activate(1)
	assert.False(t, ok, "no vehicle ever requested, so nothing should be queued")
}
