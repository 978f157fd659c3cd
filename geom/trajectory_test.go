package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrajectoryEndpoints(t *testing.T) {
	tr := NewTrajectory(Coord{0, 0}, Coord{5, 5}, Coord{10, 0})
	assert.Equal(t, Coord{0, 0}, tr.PositionAt(0))
	assert.Equal(t, Coord{10, 0}, tr.PositionAt(1))
	assert.Greater(t, tr.Length(), 10.0) // curved, so longer than the chord
}

func TestTrajectoryStraightLineLengthMatchesDistance(t *testing.T) {
	tr := NewTrajectory(Coord{0, 0}, Coord{5, 0}, Coord{10, 0})
	assert.InDelta(t, 10.0, tr.Length(), 1e-6)
	mid := tr.PositionAt(0.5)
	assert.InDelta(t, 5.0, mid.X, 1e-9)
	assert.InDelta(t, 0.0, mid.Y, 1e-9)
}

func TestIntersectionConnectorParallelHeadingsFail(t *testing.T) {
	_, err := NewIntersectionConnector(Coord{0, 0}, 0, Coord{10, 0}, 0)
	require.ErrorIs(t, err, ErrParallelHeadings)
}

func TestIntersectionConnectorAntiParallelHeadingsFail(t *testing.T) {
	_, err := NewIntersectionConnector(Coord{0, 0}, 0, Coord{10, 0}, math.Pi)
	require.ErrorIs(t, err, ErrParallelHeadings)
}

func TestIntersectionConnectorVerticalRay(t *testing.T) {
	// Start heading straight up (pi/2), end heading straight along -x (pi).
	tr, err := NewIntersectionConnector(Coord{0, 0}, math.Pi/2, Coord{10, 10}, math.Pi)
	require.NoError(t, err)
	assert.Equal(t, Coord{0, 0}, tr.StartCoord())
	assert.Equal(t, Coord{10, 10}, tr.EndCoord())
}

func TestHeadingAtMatchesDirectionOfTravel(t *testing.T) {
	tr := NewTrajectory(Coord{0, 0}, Coord{5, 0}, Coord{10, 0})
	h := tr.HeadingAt(0.5)
	assert.InDelta(t, 0.0, h, 1e-9)
}
