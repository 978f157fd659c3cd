package geom

import (
	"errors"
	"math"
)

// ErrParallelHeadings is returned by NewIntersectionConnector when the start
// and end headings lie on parallel lines (same or opposite direction), so no
// control point can be derived from their intersection.
var ErrParallelHeadings = errors.New("geom: intersection-connector headings are parallel")

// lengthSampleDelta is the subdivision step used to approximate curve length
// by chord summation, matching the teacher's "approximate by fixed-step
// sampling" approach to derived quantities it can't get in closed form.
const lengthSampleDelta = 0.001

// Trajectory is an immutable quadratic Bezier curve from start_coord to
// end_coord through one control coord, mapping proportional progress
// p in [0,1] to a position and heading. Length is arc-length-approximated by
// chord subdivision at construction time and cached.
type Trajectory struct {
	start   Coord
	end     Coord
	control Coord
	length  float64
}

// NewTrajectory builds a quadratic Bezier trajectory from three coords.
func NewTrajectory(start, control, end Coord) *Trajectory {
	t := &Trajectory{start: start, control: control, end: end}
	t.length = t.computeLength()
	return t
}

// NewIntersectionConnector derives the control coord as the intersection of
// the two heading rays leaving start_coord and end_coord, special-casing
// vertical rays, and fails if the rays are parallel.
func NewIntersectionConnector(start Coord, startHeading float64, end Coord, endHeading float64) (*Trajectory, error) {
	if headingModPi(startHeading) == headingModPi(endHeading) {
		return nil, ErrParallelHeadings
	}

	const halfPi = math.Pi / 2
	var control Coord
	switch {
	case math.Mod(startHeading, math.Pi) == halfPi:
		control = Coord{
			X: start.X,
			Y: math.Tan(endHeading)*(start.X-end.X) + end.Y,
		}
	case math.Mod(endHeading, math.Pi) == halfPi:
		control = Coord{
			X: end.X,
			Y: math.Tan(startHeading)*(end.X-start.X) + start.Y,
		}
	default:
		m0 := math.Tan(startHeading)
		m1 := math.Tan(endHeading)
		x := ((m0*start.X - m1*end.X) - (start.Y - end.Y)) / (m0 - m1)
		y := m0*(x-start.X) + start.Y
		control = Coord{X: x, Y: y}
	}

	return NewTrajectory(start, control, end), nil
}

func normalizeHeading(h float64) float64 {
	const twoPi = 2 * math.Pi
	h = math.Mod(h, twoPi)
	if h < 0 {
		h += twoPi
	}
	return h
}

// headingModPi collapses a heading to [0, pi): two headings sharing this
// value point along the same line, whether in the same direction or
// opposite (anti-parallel) ones -- both leave NewIntersectionConnector with
// no unique ray intersection to solve for.
func headingModPi(h float64) float64 {
	h = math.Mod(h, math.Pi)
	if h < 0 {
		h += math.Pi
	}
	return h
}

// StartCoord returns the trajectory's start point.
func (t *Trajectory) StartCoord() Coord { return t.start }

// EndCoord returns the trajectory's end point.
func (t *Trajectory) EndCoord() Coord { return t.end }

// ControlCoord returns the single interior control point.
func (t *Trajectory) ControlCoord() Coord { return t.control }

// Length returns the cached arc-length approximation.
func (t *Trajectory) Length() float64 { return t.length }

func quadraticBezier(p, start, control, end float64) float64 {
	return (1-p)*((1-p)*start+p*control) + p*((1-p)*control+p*end)
}

// PositionAt returns the position at proportional progress p in [0,1].
func (t *Trajectory) PositionAt(p float64) Coord {
	return Coord{
		X: quadraticBezier(p, t.start.X, t.control.X, t.end.X),
		Y: quadraticBezier(p, t.start.Y, t.control.Y, t.end.Y),
	}
}

// HeadingAt returns the tangent heading in radians at proportional progress p.
func (t *Trajectory) HeadingAt(p float64) float64 {
	// Derivative of the quadratic Bezier: 2(1-p)(control-start) + 2p(end-control).
	dx := 2*(1-p)*(t.control.X-t.start.X) + 2*p*(t.end.X-t.control.X)
	dy := 2*(1-p)*(t.control.Y-t.start.Y) + 2*p*(t.end.Y-t.control.Y)
	return normalizeHeading(math.Atan2(dy, dx))
}

func (t *Trajectory) computeLength() float64 {
	total := 0.0
	last := t.PositionAt(0)
	steps := int(math.Ceil(1 / lengthSampleDelta))
	for i := 1; i <= steps; i++ {
		p := float64(i) * lengthSampleDelta
		if p > 1 {
			p = 1
		}
		next := t.PositionAt(p)
		total += last.Dist(next)
		last = next
	}
	return total
}
