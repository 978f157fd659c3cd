// Package intersection implements the reservation-bearing heart of the
// simulator: IntersectionLane, the layered Tiling grid and its square-grid
// concretion, and the reservation engine's speculative check_request
// algorithm (spec §4.5/4.6).
package intersection

import (
	"aimsim/geom"
	"aimsim/lane"
	"aimsim/road"
	"aimsim/vehicle"
)

// LateralDeviation is the stochastic-tracking extension point: how far off
// trajectory center a vehicle's outline is displaced at progress p. The
// default (DefaultLateralDeviation) always returns 0.
type LateralDeviation func(v *vehicle.Vehicle, p float64) float64

// DefaultLateralDeviation is the nominal, zero-deviation tracking model.
func DefaultLateralDeviation(v *vehicle.Vehicle, p float64) float64 { return 0 }

// Lane is an IntersectionLane: constructed from its upstream and downstream
// RoadLane endpoints, its trajectory is the intersection-connector curve
// between them. There is no lane-following across a seam into it from
// upstream -- the upstream RoadLane's own kinematics govern that transfer;
// inside the lane it behaves like ordinary lane-following.
type Lane struct {
	*lane.Lane

	Upstream *road.RoadLane
	ExitLane *road.RoadLane

	deviation LateralDeviation
}

// New constructs an IntersectionLane whose trajectory connects upstream's end
// to downstream's start using their headings at those endpoints.
func New(upstream, downstream *road.RoadLane, deltaT, maxBraking float64) (*Lane, error) {
	startHeading := upstream.Trajectory.HeadingAt(1)
	endHeading := downstream.Trajectory.HeadingAt(0)
	traj, err := geom.NewIntersectionConnector(upstream.Trajectory.EndCoord(), startHeading, downstream.Trajectory.StartCoord(), endHeading)
	if err != nil {
		return nil, err
	}
	speedLimit := upstream.SpeedLimit
	if downstream.SpeedLimit < speedLimit {
		speedLimit = downstream.SpeedLimit
	}
	return &Lane{
		Lane:      lane.NewLane(traj, upstream.Width, speedLimit, deltaT, maxBraking),
		Upstream:  upstream,
		ExitLane:  downstream,
		deviation: DefaultLateralDeviation,
	}, nil
}

// SetLateralDeviation overrides the stochastic-tracking extension point.
func (l *Lane) SetLateralDeviation(d LateralDeviation) { l.deviation = d }

// LateralDeviationAt reports the vehicle's current extension-point lateral
// deviation from trajectory center.
func (l *Lane) LateralDeviationAt(v *vehicle.Vehicle, p float64) float64 {
	return l.deviation(v, p)
}

// ControlsThisSpeed implements lane.Controller: an IntersectionLane controls
// a vehicle whenever its front section is present here. Whether the vehicle's
// rear is still on the upstream RoadLane is not checked, so control passes to
// this lane as soon as the front crosses in.
func (l *Lane) ControlsThisSpeed(v *vehicle.Vehicle) (bool, float64, geom.VehicleSection) {
	vp, ok := l.Progress(v)
	if !ok || !vp.Front.Present {
		return false, 0, geom.Front
	}
	return true, vp.Front.Value, geom.Front
}

// HeadOfLaneStoppingDistance implements lane.Controller: an IntersectionLane
// never forces a virtual stop of its own (that is a RoadLane behavior); it
// always defers to Downstream().
func (l *Lane) HeadOfLaneStoppingDistance(v *vehicle.Vehicle, section geom.VehicleSection) (float64, bool) {
	return 0, false
}

// Downstream implements lane.Controller by returning the exit RoadLane.
func (l *Lane) Downstream() lane.Downstream { return l.ExitLane }

// DownstreamStoppingDistance implements lane.Downstream so an upstream
// RoadLane can connect to this IntersectionLane: with no vehicle resident
// (or no rear section of the rearmost vehicle here yet), the intersection is
// clear (ok=false) -- a permitted vehicle never needs to stop for an empty
// intersection lane; otherwise the gap is bounded by the rearmost vehicle's
// rear progress and its own stopping distance, mirroring
// RoadLane.DownstreamStoppingDistance.
func (l *Lane) DownstreamStoppingDistance(v *vehicle.Vehicle, section geom.VehicleSection) (float64, bool) {
	vehicles := l.Vehicles()
	if len(vehicles) == 0 {
		return 0, false
	}
	head := vehicles[len(vehicles)-1]
	vp, ok := l.Progress(head)
	if !ok || !vp.Rear.Present {
		return 0, false
	}
	return vp.Rear.Value*l.Trajectory.Length() + head.StoppingDistance(), true
}

// Clone produces a structural copy with empty vehicles/progress/lateral
// deviation, preserving trajectory, width, speed limit, and deltaT. Required
// by the reservation engine's mock simulation, which must never mutate the
// real lane it clones.
func (l *Lane) Clone() *Lane {
	return &Lane{
		Lane:      lane.NewLane(l.Trajectory, l.Width, l.SpeedLimit, l.DeltaT, l.MaxBraking),
		Upstream:  l.Upstream,
		ExitLane:  l.ExitLane,
		deviation: DefaultLateralDeviation,
	}
}
