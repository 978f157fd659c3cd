// Package lane implements the longitudinal speed/accel and position-update
// kinematics shared by RoadLane and IntersectionLane (spec §4.3): a 1-D
// ordered queue of vehicles over a Trajectory.
package lane

import (
	"errors"
	"sort"

	"aimsim/geom"
	"aimsim/vehicle"
)

// ErrVehicleNotInLane is returned when an operation addresses a vehicle this
// lane has no progress record for.
var ErrVehicleNotInLane = errors.New("lane: vehicle not in lane")

// ErrExitedVehicleStillResident names the invariant violation of a vehicle
// whose rear has progressed past 1 still being tracked by the lane (spec §7
// "Invariant violation"). No function in this package returns it:
// StepPositions drops a vehicle once none of its sections remain.
var ErrExitedVehicleStillResident = errors.New("lane: exited vehicle still resident")

// Downstream is the interface a Lane asks, when it has no preceding vehicle
// in-lane, for the stopping distance required by whatever comes next. A nil
// *float64-like "no answer" is spelled with the ok bool: ok=false means the
// road ahead is clear and the vehicle may accelerate toward the limit.
type Downstream interface {
	// DownstreamStoppingDistance returns the stopping distance (meters) that
	// a vehicle's given section must respect, or ok=false if unconstrained.
	DownstreamStoppingDistance(v *vehicle.Vehicle, section geom.VehicleSection) (distance float64, ok bool)
}

// Lane is the shared state and kinematics for a 1-D ordered queue of vehicles
// traveling a Trajectory. It is meant to be embedded by RoadLane and
// IntersectionLane, which supply the Controls and Downstream hooks specific
// to their seam semantics.
type Lane struct {
	Trajectory  *geom.Trajectory
	Width       float64
	SpeedLimit  float64
	DeltaT      float64 // 1/steps_per_second
	MaxBraking  float64 // global floor, used for virtual-stop and to_slow override

	vehicles []*vehicle.Vehicle
	progress map[*vehicle.Vehicle]vehicle.VehicleProgress
}

// NewLane constructs an empty lane over the given trajectory.
func NewLane(trajectory *geom.Trajectory, width, speedLimit, deltaT, maxBraking float64) *Lane {
	return &Lane{
		Trajectory: trajectory,
		Width:      width,
		SpeedLimit: speedLimit,
		DeltaT:     deltaT,
		MaxBraking: maxBraking,
		progress:   make(map[*vehicle.Vehicle]vehicle.VehicleProgress),
	}
}

// Vehicles returns the lane's vehicles in decreasing-progress order (head of
// queue first).
func (l *Lane) Vehicles() []*vehicle.Vehicle { return l.vehicles }

// Progress returns a vehicle's current per-section progress in this lane.
func (l *Lane) Progress(v *vehicle.Vehicle) (vehicle.VehicleProgress, bool) {
	p, ok := l.progress[v]
	return p, ok
}

// SetProgress installs or updates a vehicle's progress record and keeps
// l.vehicles sorted by decreasing front-or-center-or-rear progress (whichever
// is present, preferring front).
func (l *Lane) SetProgress(v *vehicle.Vehicle, p vehicle.VehicleProgress) {
	if _, existed := l.progress[v]; !existed {
		l.vehicles = append(l.vehicles, v)
	}
	l.progress[v] = p
	l.resort()
}

// RemoveVehicle drops a vehicle from this lane's tracking entirely.
func (l *Lane) RemoveVehicle(v *vehicle.Vehicle) {
	delete(l.progress, v)
	for i, ov := range l.vehicles {
		if ov == v {
			l.vehicles = append(l.vehicles[:i], l.vehicles[i+1:]...)
			break
		}
	}
}

func representativeProgress(vp vehicle.VehicleProgress) float64 {
	switch {
	case vp.Front.Present:
		return vp.Front.Value
	case vp.Center.Present:
		return vp.Center.Value
	case vp.Rear.Present:
		return vp.Rear.Value
	default:
		return -1
	}
}

func (l *Lane) resort() {
	sort.SliceStable(l.vehicles, func(i, j int) bool {
		pi := representativeProgress(l.progress[l.vehicles[i]])
		pj := representativeProgress(l.progress[l.vehicles[j]])
		return pi > pj
	})
}

// EffectiveSpeedLimit returns the minimum of the lane's nominal speed limit
// and any trajectory-curvature-derived limit at progress p. The base Lane
// has no curvature-derived limit, so this is always SpeedLimit; neither
// RoadLane nor IntersectionLane overrides it.
func (l *Lane) EffectiveSpeedLimit(p float64, v *vehicle.Vehicle) float64 {
	return l.SpeedLimit
}

// AccelUpdateUncontested returns the acceleration to use when there is
// nothing ahead to stop for: brake to the limit if over it, hold if at it,
// else accelerate at max.
func (l *Lane) AccelUpdateUncontested(v *vehicle.Vehicle, p float64) float64 {
	limit := l.EffectiveSpeedLimit(p, v)
	switch {
	case v.Velocity() > limit:
		return v.MaxBraking()
	case v.Velocity() == limit:
		return 0
	default:
		return v.MaxAcceleration()
	}
}

// AccelUpdateFollowing returns the acceleration to use when stoppingDistance
// is the effective gap available before a forced stop. If the vehicle's own
// worst-case stopping distance (v^2 / 2|max_braking|, adjusted for the
// current timestep) would exceed that gap, it brakes at max; otherwise it
// uses the uncontested update.
func (l *Lane) AccelUpdateFollowing(v *vehicle.Vehicle, p, stoppingDistance float64) float64 {
	uncontested := l.AccelUpdateUncontested(v, p)
	if uncontested < 0 {
		return uncontested
	}
	worstCase := v.StoppingDistance()
	// Account for the distance covered this timestep before braking engages.
	travelThisStep := v.Velocity() * l.DeltaT
	if worstCase+travelThisStep > stoppingDistance {
		return v.MaxBraking()
	}
	return uncontested
}

// EffectiveStoppingDistance combines the gap to a waypoint (preceding rear
// progress minus this vehicle's progress, scaled by trajectory length) with
// that waypoint's own stopping distance.
func (l *Lane) EffectiveStoppingDistance(precedingRearP, p, precedingStoppingDistance float64) float64 {
	return (precedingRearP-p)*l.Trajectory.Length() + precedingStoppingDistance
}

// SpeedUpdate converts an acceleration into a new (velocity, acceleration)
// pair for one timestep, clipping velocity to [0, effective speed limit].
// The reported acceleration is the value before clipping, per spec §4.3.
func (l *Lane) SpeedUpdate(v *vehicle.Vehicle, p, accel float64) (newVelocity, reportedAccel float64) {
	vNew := v.Velocity() + accel*l.DeltaT
	if vNew < 0 {
		vNew = 0
	}
	limit := l.EffectiveSpeedLimit(p, v)
	if vNew > limit {
		vNew = limit
	}
	return vNew, accel
}
