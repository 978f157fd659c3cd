package endpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aimsim/vehicle"
)

func newRemoverVehicle(t *testing.T, vin, destinationID int) *vehicle.Vehicle {
	t.Helper()
	v, err := vehicle.NewVehicle(vin, vehicle.Characteristics{
		DestinationID: destinationID, MaxAcceleration: 3, MaxBraking: -3.4, Length: 4.5, Width: 2, Automated: true,
	}, 1, -4)
	require.NoError(t, err)
	return v
}

func TestRemoverAcceptClosesOutExistingLogEntry(t *testing.T) {
	log := map[int]*LogEntry{1: {VIN: 1, EntryTimestep: 5}}
	r := NewRemover(7, nil, log)
	v := newRemoverVehicle(t, 1, 7)

	r.Accept(v, 20)

	entry := log[1]
	require.NotNil(t, entry)
	assert.True(t, entry.Exited)
	assert.True(t, entry.ArrivedAtDestination)
	require.True(t, entry.ExitTimestep.Present)
	assert.Equal(t, 20.0, entry.ExitTimestep.Value)
}

func TestRemoverAcceptMarksWrongDestinationAsNotArrived(t *testing.T) {
	log := map[int]*LogEntry{}
	r := NewRemover(7, nil, log)
	v := newRemoverVehicle(t, 2, 9)

	r.Accept(v, 15)

	entry := log[2]
	require.NotNil(t, entry)
	assert.True(t, entry.Exited)
	assert.False(t, entry.ArrivedAtDestination)
}

func TestRemoverAcceptCreatesEntryWhenSpawnerNeverLogged(t *testing.T) {
	log := map[int]*LogEntry{}
	r := NewRemover(7, nil, log)
	v := newRemoverVehicle(t, 3, 7)

	r.Accept(v, 11)

	entry, ok := log[3]
	require.True(t, ok)
	assert.Equal(t, int64(11), entry.EntryTimestep)
}
