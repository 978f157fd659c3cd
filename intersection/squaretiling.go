package intersection

import (
	"math"

	"aimsim/geom"
)

// SquareGeometry is the spec's square-grid concretion: a uniform square tile
// of width w covering the axis-aligned bounding box of every IntersectionLane
// endpoint passed to NewSquareGeometry, indexed (x_index, y_index).
type SquareGeometry struct {
	minX, minY   float64
	maxX, maxY   float64
	tileWidth    float64
	xTileCount   int
	yTileCount   int
}

// NewSquareGeometry derives the bounding box from endpoints and builds a grid
// of tileWidth-wide square cells covering it.
func NewSquareGeometry(endpoints []geom.Coord, tileWidth float64) *SquareGeometry {
	if len(endpoints) == 0 || tileWidth <= 0 {
		return &SquareGeometry{tileWidth: tileWidth}
	}
	minX, minY := endpoints[0].X, endpoints[0].Y
	maxX, maxY := endpoints[0].X, endpoints[0].Y
	for _, e := range endpoints[1:] {
		minX, maxX = math.Min(minX, e.X), math.Max(maxX, e.X)
		minY, maxY = math.Min(minY, e.Y), math.Max(maxY, e.Y)
	}
	return &SquareGeometry{
		minX: minX, minY: minY, maxX: maxX, maxY: maxY,
		tileWidth:  tileWidth,
		xTileCount: int(math.Ceil((maxX - minX) / tileWidth)),
		yTileCount: int(math.Ceil((maxY - minY) / tileWidth)),
	}
}

// cellCenter returns the center coord of tile (x,y).
func (g *SquareGeometry) cellCenter(x, y int) geom.Coord {
	return geom.Coord{
		X: g.minX + (float64(x)+0.5)*g.tileWidth,
		Y: g.minY + (float64(y)+0.5)*g.tileWidth,
	}
}

// TilesFor rasterizes a vehicle outline -- a length x width rectangle
// centered at center, rotated by heading -- by (a) clipping the rectangle to
// the grid's bounding box and (b) enumerating every tile whose cell center
// lies inside the clipped polygon, scanning in x over y bands. Clipping is
// exact Sutherland-Hodgman against the AABB, handling vertices on the
// border, edges that graze a corner, a polygon wholly outside the grid, and
// a polygon wholly covering it.
func (g *SquareGeometry) TilesFor(center geom.Coord, heading, length, width float64) []TileID {
	if g.tileWidth <= 0 || g.xTileCount <= 0 || g.yTileCount <= 0 {
		return nil
	}
	rect := geom.Rectangle(center, heading, length, width)
	clipped := geom.ClipToAABB(rect[:], g.minX, g.minY, g.maxX, g.maxY)
	if len(clipped) == 0 {
		return nil
	}

	minX, minY, maxX, maxY := clipped[0].X, clipped[0].Y, clipped[0].X, clipped[0].Y
	for _, c := range clipped[1:] {
		minX, maxX = math.Min(minX, c.X), math.Max(maxX, c.X)
		minY, maxY = math.Min(minY, c.Y), math.Max(maxY, c.Y)
	}
	xStart := g.clampX(int(math.Floor((minX - g.minX) / g.tileWidth)))
	xEnd := g.clampX(int(math.Ceil((maxX - g.minX) / g.tileWidth)))
	yStart := g.clampY(int(math.Floor((minY - g.minY) / g.tileWidth)))
	yEnd := g.clampY(int(math.Ceil((maxY - g.minY) / g.tileWidth)))

	var ids []TileID
	for y := yStart; y <= yEnd; y++ {
		for x := xStart; x <= xEnd; x++ {
			if geom.PointInConvexPolygon(clipped, g.cellCenter(x, y)) {
				ids = append(ids, TileID{X: x, Y: y})
			}
		}
	}
	return ids
}

func (g *SquareGeometry) clampX(x int) int {
	if x < 0 {
		return 0
	}
	if x >= g.xTileCount {
		return g.xTileCount - 1
	}
	return x
}

func (g *SquareGeometry) clampY(y int) int {
	if y < 0 {
		return 0
	}
	if y >= g.yTileCount {
		return g.yTileCount - 1
	}
	return y
}
