package road

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aimsim/geom"
	"aimsim/vehicle"
)

func newTestVehicle(t *testing.T, vin int) *vehicle.Vehicle {
	t.Helper()
	v, err := vehicle.NewVehicle(vin, vehicle.Characteristics{
		MaxAcceleration: 3,
		MaxBraking:      -3.4,
		Length:          4.5,
		Width:           2,
		Automated:       true,
	}, 1, -4)
	require.NoError(t, err)
	return v
}

func newTestRoadLane(t *testing.T) *RoadLane {
	t.Helper()
	tr := geom.NewTrajectory(geom.Coord{}, geom.Coord{50, 0}, geom.Coord{100, 0})
	return New(tr, 3.5, 15, 1.0, -4.5, 20, 30, true, false, nil)
}

func TestRoomToEnterEmptyLaneIsFullEntranceRegion(t *testing.T) {
	r := newTestRoadLane(t)
	assert.Equal(t, r.EntranceEnd*r.Trajectory.Length(), r.RoomToEnter(true))
}

func TestRoomToEnterTightBoundedByRearVehicle(t *testing.T) {
	r := newTestRoadLane(t)
	v := newTestVehicle(t, 1)
	vp := vehicle.VehicleProgress{}
	vp, _ = vp.Set(geom.Front, vehicle.At(0.1))
	vp, _ = vp.Set(geom.Center, vehicle.At(0.08))
	vp, _ = vp.Set(geom.Rear, vehicle.At(0.05))
	r.SetProgress(v, vp)

	got := r.RoomToEnter(true)
	assert.InDelta(t, 0.05*r.Trajectory.Length(), got, 1e-9)
}

func TestHeadOfLaneStoppingDistanceForcedWithoutPermission(t *testing.T) {
	r := newTestRoadLane(t)
	v := newTestVehicle(t, 1)
	dist, forced := r.HeadOfLaneStoppingDistance(v, geom.Front)
	assert.True(t, forced)
	assert.Equal(t, 0.0, dist)

	v.GrantPermission()
	_, forced = r.HeadOfLaneStoppingDistance(v, geom.Front)
	assert.False(t, forced)
}

func TestFirstWithoutPermissionSkipsGrantedVehicles(t *testing.T) {
	r := newTestRoadLane(t)
	granted := newTestVehicle(t, 1)
	granted.GrantPermission()
	vp := vehicle.VehicleProgress{}
	vp, _ = vp.Set(geom.Front, vehicle.At(0.95))
	vp, _ = vp.Set(geom.Center, vehicle.At(0.93))
	vp, _ = vp.Set(geom.Rear, vehicle.At(0.9))
	r.SetProgress(granted, vp)

	pending := newTestVehicle(t, 2)
	vp2 := vehicle.VehicleProgress{}
	vp2, _ = vp2.Set(geom.Front, vehicle.At(0.8))
	vp2, _ = vp2.Set(geom.Center, vehicle.At(0.78))
	vp2, _ = vp2.Set(geom.Rear, vehicle.At(0.75))
	r.SetProgress(pending, vp2)

	idx, ok := r.FirstWithoutPermission()
	require.True(t, ok)
	assert.Equal(t, pending, r.Vehicles()[idx])
}

func TestRegisterLatestScheduledExitRejectsNonRear(t *testing.T) {
	r := newTestRoadLane(t)
	err := r.RegisterLatestScheduledExit(vehicle.ScheduledExit{Section: geom.Front, Timestep: 5})
	assert.ErrorIs(t, err, ErrNotRearExit)
}

func TestRegisterLatestScheduledExitKeepsLatest(t *testing.T) {
	r := newTestRoadLane(t)
	require.NoError(t, r.RegisterLatestScheduledExit(vehicle.ScheduledExit{Section: geom.Rear, Timestep: 10}))
	require.NoError(t, r.RegisterLatestScheduledExit(vehicle.ScheduledExit{Section: geom.Rear, Timestep: 5}))
	exit, ok := r.LatestScheduledExit()
	require.True(t, ok)
	assert.EqualValues(t, 10, exit.Timestep)
}

func TestSoonestExitWithNoPriorAssumesUncontestedAcceleration(t *testing.T) {
	r := newTestRoadLane(t)
	v := newTestVehicle(t, 1)
	vp := vehicle.VehicleProgress{}
	vp, _ = vp.Set(geom.Front, vehicle.At(0.99))
	vp, _ = vp.Set(geom.Center, vehicle.At(0.97))
	vp, _ = vp.Set(geom.Rear, vehicle.At(0.95))
	r.SetProgress(v, vp)

	exit, err := r.SoonestExit(0, nil, 100)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, exit.Timestep, int64(100))
}

func TestSoonestExitRespectsPriorExitSpacing(t *testing.T) {
	r := newTestRoadLane(t)
	v := newTestVehicle(t, 1)
	require.NoError(t, v.SetVelocity(15))
	vp := vehicle.VehicleProgress{}
	vp, _ = vp.Set(geom.Front, vehicle.At(0.999))
	vp, _ = vp.Set(geom.Center, vehicle.At(0.98))
	vp, _ = vp.Set(geom.Rear, vehicle.At(0.96))
	r.SetProgress(v, vp)

	prior := vehicle.ScheduledExit{Section: geom.Rear, Timestep: 50}
	exit, err := r.SoonestExit(0, &prior, 1)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, exit.Timestep, int64(51))
}
