package tile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsNegativeThreshold(t *testing.T) {
	_, err := New(-0.1)
	assert.ErrorIs(t, err, ErrRejectionThresholdNegative)
}

func TestDeterministicTileAcceptsOnlyOneConfirmed(t *testing.T) {
	tl, err := NewDeterministic()
	require.NoError(t, err)
	require.NoError(t, tl.Confirm(1, VehicleKey(1), 1.0, true))
	assert.False(t, tl.Accepts(VehicleKey(2), 1.0))
	assert.True(t, tl.Accepts(VehicleKey(1), 1.0), "same vehicle re-requesting its own tile is always accepted")
}

func TestProbabilisticTileRejectsPastThreshold(t *testing.T) {
	tl, err := New(0.2)
	require.NoError(t, err)
	require.NoError(t, tl.Confirm(1, VehicleKey(1), 0.7, true))
	assert.False(t, tl.Accepts(VehicleKey(2), 0.2))
	assert.True(t, tl.Accepts(VehicleKey(2), 0.1))
}

func TestMarkRejectsIncompatibleReservation(t *testing.T) {
	tl, err := New(0)
	require.NoError(t, err)
	require.NoError(t, tl.Confirm(1, VehicleKey(1), 1.0, true))
	err = tl.Mark(2, VehicleKey(2), 1.0)
	assert.ErrorIs(t, err, ErrIncompatibleReservation)
}

func TestRemoveMarkLeavesTileEmpty(t *testing.T) {
	tl, err := New(0.5)
	require.NoError(t, err)
	require.NoError(t, tl.Mark(1, VehicleKey(1), 0.5))
	assert.False(t, tl.Empty())
	tl.RemoveMark(1)
	assert.True(t, tl.Empty())
}

func TestConfirmPromotesTentativeMark(t *testing.T) {
	tl, err := New(0.3)
	require.NoError(t, err)
	require.NoError(t, tl.Mark(1, VehicleKey(1), 0.5))
	require.NoError(t, tl.Confirm(1, VehicleKey(1), 0.5, false))
	assert.True(t, tl.IsConfirmedBy(1))
	assert.False(t, tl.IsTentativelyMarkedBy(1))
	assert.Equal(t, 0.5, tl.ConfirmedProbabilitySum())
}

func TestRemoveAllMarksOnlyClearsTentative(t *testing.T) {
	tl, err := New(0)
	require.NoError(t, err)
	require.NoError(t, tl.Confirm(1, VehicleKey(1), 1.0, true))
	require.NoError(t, tl.Mark(2, VehicleKey(1), 0))
	tl.RemoveAllMarks()
	assert.True(t, tl.IsConfirmedBy(1))
	assert.False(t, tl.IsTentativelyMarkedBy(2))
}
