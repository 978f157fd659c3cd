package lane

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

func TestAccelUpdateUncontestedAccelerates(t *testing.T) {
	tr := geom.NewTrajectory(geom.Coord{}, geom.Coord{50, 0}, geom.Coord{100, 0})
	l := NewLane(tr, 3.5, 15, 1.0/60, -4.5)
	v := newTestVehicle(t, 1)
	accel := l.AccelUpdateUncontested(v, 0)
	assert.Equal(t, 3.0, accel)
}

func TestAccelUpdateUncontestedBrakesOverLimit(t *testing.T) {
	tr := geom.NewTrajectory(geom.Coord{}, geom.Coord{50, 0}, geom.Coord{100, 0})
	l := NewLane(tr, 3.5, 15, 1.0/60, -4.5)
	v := newTestVehicle(t, 1)
	require.NoError(t, v.SetVelocity(20))
	accel := l.AccelUpdateUncontested(v, 0)
	assert.Equal(t, v.MaxBraking(), accel)
}

func TestSpeedUpdateClipsToLimit(t *testing.T) {
	tr := geom.NewTrajectory(geom.Coord{}, geom.Coord{50, 0}, geom.Coord{100, 0})
	l := NewLane(tr, 3.5, 15, 1.0, -4.5)
	v := newTestVehicle(t, 1)
	require.NoError(t, v.SetVelocity(14))
	newV, accel := l.SpeedUpdate(v, 0, 3)
	assert.Equal(t, 15.0, newV)
	assert.Equal(t, 3.0, accel)
}

func TestSpeedUpdateNeverGoesNegative(t *testing.T) {
	tr := geom.NewTrajectory(geom.Coord{}, geom.Coord{50, 0}, geom.Coord{100, 0})
	l := NewLane(tr, 3.5, 15, 1.0, -4.5)
	v := newTestVehicle(t, 1)
	require.NoError(t, v.SetVelocity(1))
	newV, _ := l.SpeedUpdate(v, 0, -4.5)
	assert.Equal(t, 0.0, newV)
}

func TestStepPositionsProducesTransferOnExit(t *testing.T) {
	tr := geom.NewTrajectory(geom.Coord{}, geom.Coord{5, 0}, geom.Coord{10, 0})
	l := NewLane(tr, 3.5, 15, 1.0, -4.5)
	v := newTestVehicle(t, 1)
	require.NoError(t, v.SetVelocity(0.5))
	vp := vehicle.VehicleProgress{}
	vp, _ = vp.Set(geom.Front, vehicle.At(0.99))
	vp, _ = vp.Set(geom.Center, vehicle.At(0.9))
	vp, _ = vp.Set(geom.Rear, vehicle.At(0.8))
	l.SetProgress(v, vp)

	transfers := l.StepPositions(nil)
	require.Len(t, transfers, 1)
	assert.Equal(t, geom.Front, transfers[0].Section)
	newVP, _ := l.Progress(v)
	assert.False(t, newVP.Front.Present)
	assert.True(t, newVP.Center.Present)
}
