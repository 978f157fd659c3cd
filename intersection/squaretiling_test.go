package intersection

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"aimsim/geom"
)

func TestSquareGeometryTilesForCoversCenterTile(t *testing.T) {
	endpoints := []geom.Coord{{X: 0, Y: 0}, {X: 10, Y: 10}}
	g := NewSquareGeometry(endpoints, 2)
	ids := g.TilesFor(geom.Coord{X: 5, Y: 5}, 0, 1, 1)
	assert.NotEmpty(t, ids)
}

func TestSquareGeometryTilesForOutsideGridReturnsEmpty(t *testing.T) {
	endpoints := []geom.Coord{{X: 0, Y: 0}, {X: 10, Y: 10}}
	g := NewSquareGeometry(endpoints, 2)
	ids := g.TilesFor(geom.Coord{X: 1000, Y: 1000}, 0, 1, 1)
	assert.Empty(t, ids)
}

func TestSquareGeometryWithoutEndpointsIsInert(t *testing.T) {
	g := NewSquareGeometry(nil, 2)
	assert.Empty(t, g.TilesFor(geom.Coord{X: 0, Y: 0}, 0, 1, 1))
}

func TestSquareGeometryZeroTileWidthIsInert(t *testing.T) {
	endpoints := []geom.Coord{{X: 0, Y: 0}, {X: 10, Y: 10}}
	g := NewSquareGeometry(endpoints, 0)
	assert.Empty(t, g.TilesFor(geom.Coord{X: 5, Y: 5}, 0, 1, 1))
}
