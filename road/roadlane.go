// Package road implements RoadLane: a Lane bordered by a spawner/remover on
// one end and (usually) an intersection on the other, per spec §4.4.
package road

import (
	"errors"

	"aimsim/geom"
	"aimsim/lane"
	"aimsim/vehicle"
)

// ErrTargetsAndSequenceExclusive enforces, at the type level via two entry
// points (FirstWithoutPermission / FirstWithoutPermissionSequence), the
// spec §9 open question about first_without_permission's mutually exclusive
// targets/sequence arguments. No function in this package returns it; the
// separate entry points are what keep the two modes apart.
var ErrTargetsAndSequenceExclusive = errors.New("road: targets and sequence are mutually exclusive")

// ErrNoVehicleAtIndex is returned when an index-addressed operation is given
// an out-of-range vehicle index.
var ErrNoVehicleAtIndex = errors.New("road: no vehicle at index")

// ErrNotRearExit is returned by RegisterLatestScheduledExit when given a
// non-REAR exit.
var ErrNotRearExit = errors.New("road: latest scheduled exit must be a REAR exit")

// Downstream is what a RoadLane's downstream object (an IntersectionLane, or
// a remover) must answer about room and exits.
type Downstream interface {
	lane.Downstream
}

// RoadLane is a Lane with spawner/remover seam policy, entrance/approach
// region thresholds, and the spacing bookkeeping used by FCFS-style polling.
type RoadLane struct {
	*lane.Lane

	UpstreamIsSpawner   bool
	DownstreamIsRemover bool

	// Proportional thresholds 0 < entranceEnd < lcregionEnd < 1, derived once
	// at construction from len_entrance_region/len_approach_region.
	EntranceEnd  float64
	LCRegionEnd  float64

	downstream Downstream

	latestScheduledExit   *vehicle.ScheduledExit
	nextMovement          func(v *vehicle.Vehicle) geom.Coord
}

// New constructs a RoadLane, deriving EntranceEnd/LCRegionEnd from the
// absolute region lengths and the trajectory length (validated by the caller
// per spec §6: len_entrance_region + len_approach_region <= trajectory.length).
func New(trajectory *geom.Trajectory, width, speedLimit, deltaT, maxBraking float64,
	lenEntranceRegion, lenApproachRegion float64,
	upstreamIsSpawner, downstreamIsRemover bool,
	nextMovement func(v *vehicle.Vehicle) geom.Coord,
) *RoadLane {
	length := trajectory.Length()
	entranceEnd := lenEntranceRegion / length
	lcregionEnd := (lenEntranceRegion + lenApproachRegion) / length
	return &RoadLane{
		Lane:                lane.NewLane(trajectory, width, speedLimit, deltaT, maxBraking),
		UpstreamIsSpawner:   upstreamIsSpawner,
		DownstreamIsRemover: downstreamIsRemover,
		EntranceEnd:         entranceEnd,
		LCRegionEnd:         lcregionEnd,
		nextMovement:        nextMovement,
	}
}

// ConnectDownstream attaches the downstream collaborator (an IntersectionLane
// in practice) this RoadLane asks for stopping distance and exit timing.
func (r *RoadLane) ConnectDownstream(d Downstream) { r.downstream = d }

// SetNextMovement installs the per-vehicle desired-outbound-coord function
// used by first_without_permission's sequence grouping. Exists as a setter,
// rather than a New() parameter, because the closure a constructing caller
// wants to install typically needs to reference the RoadLane being built.
func (r *RoadLane) SetNextMovement(f func(v *vehicle.Vehicle) geom.Coord) { r.nextMovement = f }

// PlaceSpawn installs a freshly-constructed vehicle at rest with all three
// sections present from the start, front offset lengthBuffer from the lane's
// start so it doesn't immediately overlap the entrance line. Unlike
// AcceptTransfer (which absorbs one section at a time as it crosses a seam),
// a spawned vehicle appears fully formed inside the entrance region.
func (r *RoadLane) PlaceSpawn(v *vehicle.Vehicle, lengthBuffer float64) {
	length := r.Trajectory.Length()
	var frontP float64
	if length > 0 {
		frontP = lengthBuffer / length
	}
	halfLen := v.Length() / 2
	var centerP, rearP float64
	if length > 0 {
		centerP = frontP - (halfLen / length)
		rearP = frontP - (v.Length() / length)
	}
	if centerP < 0 {
		centerP = 0
	}
	if rearP < 0 {
		rearP = 0
	}
	vp := vehicle.VehicleProgress{}
	vp, _ = vp.Set(geom.Front, vehicle.At(frontP))
	vp, _ = vp.Set(geom.Center, vehicle.At(centerP))
	vp, _ = vp.Set(geom.Rear, vehicle.At(rearP))
	r.SetProgress(v, vp)
	v.SetPos(r.Trajectory.PositionAt(frontP))
}

// Clone produces a structural copy with an empty vehicle queue (required by
// the reservation engine's mock simulation), preserving trajectory,
// geometry, speed limit, region thresholds, and the latest scheduled exit so
// the clone doesn't grant an overlapping exit.
func (r *RoadLane) Clone() *RoadLane {
	clone := &RoadLane{
		Lane:                lane.NewLane(r.Trajectory, r.Width, r.SpeedLimit, r.DeltaT, r.MaxBraking),
		UpstreamIsSpawner:   r.UpstreamIsSpawner,
		DownstreamIsRemover: r.DownstreamIsRemover,
		EntranceEnd:         r.EntranceEnd,
		LCRegionEnd:         r.LCRegionEnd,
		downstream:          r.downstream,
		nextMovement:        r.nextMovement,
	}
	if r.latestScheduledExit != nil {
		e := *r.latestScheduledExit
		clone.latestScheduledExit = &e
	}
	return clone
}

// ControlsThisSpeed implements lane.Controller: a RoadLane controls a
// vehicle's speed while its front section is here, and also controls a
// vehicle whose front has left into a downstream remover while its rear is
// still here. Whether the rear has left the upstream object is not checked.
func (r *RoadLane) ControlsThisSpeed(v *vehicle.Vehicle) (bool, float64, geom.VehicleSection) {
	vp, ok := r.Progress(v)
	if !ok {
		return false, 0, geom.Front
	}
	if vp.Front.Present {
		return true, vp.Front.Value, geom.Front
	}
	if vp.Rear.Present {
		// Front has already left into the downstream object; this lane still
		// controls if that downstream is a remover (removers can't update
		// kinematics).
		if r.DownstreamIsRemover {
			return true, vp.Rear.Value, geom.Rear
		}
	}
	return false, 0, geom.Front
}

// HeadOfLaneStoppingDistance implements lane.Controller: with no preceding
// vehicle, a RoadLane vehicle lacking intersection permission must stop at
// the line (a virtual preceding vehicle at progress 1, stopping distance 0).
func (r *RoadLane) HeadOfLaneStoppingDistance(v *vehicle.Vehicle, section geom.VehicleSection) (float64, bool) {
	if !v.PermissionToEnterIntersection() {
		return 0, true
	}
	return 0, false
}

// Downstream implements lane.Controller.
func (r *RoadLane) Downstream() lane.Downstream { return r.downstream }

// DownstreamStoppingDistance implements lane.Downstream: an upstream object
// (typically an IntersectionLane) asks what stopping distance a vehicle
// entering this RoadLane must respect. With no vehicle resident (or no rear
// section of the rearmost vehicle here yet), the lane is clear (ok=false);
// otherwise the gap is bounded by the rearmost vehicle's rear progress and
// its own stopping distance.
func (r *RoadLane) DownstreamStoppingDistance(v *vehicle.Vehicle, section geom.VehicleSection) (float64, bool) {
	vehicles := r.Vehicles()
	if len(vehicles) == 0 {
		return 0, false
	}
	head := vehicles[len(vehicles)-1]
	vp, ok := r.Progress(head)
	if !ok || !vp.Rear.Present {
		return 0, false
	}
	return vp.Rear.Value*r.Trajectory.Length() + head.StoppingDistance(), true
}

// RoomToEnter returns free space in the entrance region. With tight=true it
// is the free length immediately behind the rearmost vehicle in the entrance
// region, capped by the entrance region length (used by spawners deciding
// whether to place a new vehicle). With tight=false it is the total free
// entrance-region space assuming every vehicle inside it brakes to a stop --
// approximated here as entrance-region length minus the summed worst-case
// stopping footprint of vehicles resident in it.
func (r *RoadLane) RoomToEnter(tight bool) float64 {
	length := r.Trajectory.Length()
	entranceLen := r.EntranceEnd * length
	vehicles := r.Vehicles()

	if tight {
		if len(vehicles) == 0 {
			return entranceLen
		}
		last := vehicles[len(vehicles)-1]
		vp, ok := r.Progress(last)
		if !ok || !vp.Rear.Present {
			return 0
		}
		room := vp.Rear.Value * length
		if room > entranceLen {
			return entranceLen
		}
		return room
	}

	occupied := 0.0
	for _, v := range vehicles {
		vp, ok := r.Progress(v)
		if !ok || !vp.Rear.Present {
			continue
		}
		if vp.Rear.Value*length > entranceLen {
			continue
		}
		occupied += v.Length() + v.StoppingDistance()
	}
	room := entranceLen - occupied
	if room < 0 {
		return 0
	}
	return room
}

// FirstWithoutPermission walks the lane from the head, skipping vehicles past
// the approach region, and returns the index of the first vehicle lacking
// intersection permission. Returns ok=false if none qualifies.
func (r *RoadLane) FirstWithoutPermission() (index int, ok bool) {
	idx, end := r.firstWithoutPermission(nil, false)
	if end-idx < 1 {
		return 0, false
	}
	return idx, true
}

// FirstWithoutPermissionForTargets is the targets-only entry point: the first
// vehicle lacking permission must have a desired outbound coord in targets,
// or the call reports ok=false.
func (r *RoadLane) FirstWithoutPermissionForTargets(targets map[geom.Coord]struct{}) (index int, ok bool) {
	idx, end, matched := r.firstWithoutPermissionTargeted(targets)
	if !matched || end-idx < 1 {
		return 0, false
	}
	return idx, true
}

// FirstWithoutPermissionSequence is the sequence-only entry point: extends
// end across consecutive followers sharing the first vehicle's desired
// outbound coord. Returns [first, end) as a half-open range suitable for
// range(first, end); ok=false if no vehicle lacks permission.
func (r *RoadLane) FirstWithoutPermissionSequence() (first, end int, ok bool) {
	first, end = r.firstWithoutPermission(nil, true)
	if end-first < 1 {
		return 0, 0, false
	}
	return first, end, true
}

func (r *RoadLane) firstWithoutPermission(targets map[geom.Coord]struct{}, sequence bool) (first, end int) {
	vehicles := r.Vehicles()
	firstIdx := -1
	seriesLen := 0
	var seriesTarget geom.Coord
	haveSeriesTarget := false

	for i, v := range vehicles {
		vp, _ := r.Progress(v)
		if !vp.Front.Present {
			continue
		}
		if vp.Front.Value < r.LCRegionEnd {
			break
		}
		if firstIdx == -1 {
			if v.PermissionToEnterIntersection() {
				continue
			}
			firstIdx = i
			seriesLen = 1
			if sequence && r.nextMovement != nil {
				seriesTarget = r.nextMovement(v)
				haveSeriesTarget = true
			} else {
				break
			}
		} else if haveSeriesTarget && r.nextMovement != nil {
			if r.nextMovement(v) == seriesTarget {
				seriesLen++
			} else {
				break
			}
		} else {
			break
		}
	}
	if firstIdx == -1 {
		return 0, 0
	}
	return firstIdx, firstIdx + seriesLen
}

func (r *RoadLane) firstWithoutPermissionTargeted(targets map[geom.Coord]struct{}) (first, end int, matched bool) {
	vehicles := r.Vehicles()
	for i, v := range vehicles {
		vp, _ := r.Progress(v)
		if !vp.Front.Present {
			continue
		}
		if vp.Front.Value < r.LCRegionEnd {
			break
		}
		if v.PermissionToEnterIntersection() {
			continue
		}
		if r.nextMovement == nil {
			return i, i + 1, true
		}
		target := r.nextMovement(v)
		if _, ok := targets[target]; !ok {
			return 0, 0, false
		}
		return i, i + 1, true
	}
	return 0, 0, false
}

// LatestScheduledExit returns the most recently registered REAR exit, if any.
func (r *RoadLane) LatestScheduledExit() (vehicle.ScheduledExit, bool) {
	if r.latestScheduledExit == nil {
		return vehicle.ScheduledExit{}, false
	}
	return *r.latestScheduledExit, true
}

// RegisterLatestScheduledExit accepts only REAR exits, overwriting the
// stored value only if the new exit's timestep is >= the stored one.
func (r *RoadLane) RegisterLatestScheduledExit(exit vehicle.ScheduledExit) error {
	if exit.Section != geom.Rear {
		return ErrNotRearExit
	}
	if r.latestScheduledExit == nil || r.latestScheduledExit.Timestep <= exit.Timestep {
		e := exit
		r.latestScheduledExit = &e
	}
	return nil
}

// SoonestExit computes the earliest timestep and velocity at which the front
// of vehicles()[idx] can reach progress 1 under pure uncontested
// acceleration, bounded below by the latest scheduled exit (or avoidExit if
// supplied) so the new exit doesn't collide with the tail of the previous
// one. Per spec §9, with no prior exit to avoid this assumes uncontested
// acceleration toward the lane's effective speed limit.
func (r *RoadLane) SoonestExit(idx int, avoidExit *vehicle.ScheduledExit, now int64) (vehicle.ScheduledExit, error) {
	vehicles := r.Vehicles()
	if idx < 0 || idx >= len(vehicles) {
		return vehicle.ScheduledExit{}, ErrNoVehicleAtIndex
	}
	v := vehicles[idx]
	vp, ok := r.Progress(v)
	if !ok || !vp.Front.Present {
		return vehicle.ScheduledExit{}, ErrNoVehicleAtIndex
	}

	var minTimestep int64 = now
	if avoidExit == nil {
		avoidExit = r.latestScheduledExit
	}
	if avoidExit != nil && avoidExit.Timestep+1 > minTimestep {
		minTimestep = avoidExit.Timestep + 1
	}

	length := r.Trajectory.Length()
	remaining := (1 - vp.Front.Value) * length
	velocity := v.Velocity()
	t := now
	for remaining > 0 {
		accel := r.AccelUpdateUncontested(v, vp.Front.Value)
		velocity += accel * r.DeltaT
		if velocity < 0 {
			velocity = 0
		}
		limit := r.EffectiveSpeedLimit(vp.Front.Value, v)
		if velocity > limit {
			velocity = limit
		}
		remaining -= velocity * r.DeltaT
		t++
		if t-now > 100000 {
			break // safety valve against pathological zero-velocity configs
		}
	}
	if t < minTimestep {
		t = minTimestep
	}
	return vehicle.ScheduledExit{Vehicle: v, Section: geom.Front, Timestep: t, Velocity: velocity}, nil
}
