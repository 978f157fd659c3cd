package lane

import (
	"aimsim/geom"
	"aimsim/vehicle"
)

// Controller supplies the lane-type-specific pieces of the shared speed-update
// algorithm (spec §4.3 step 1): whether this lane currently controls a given
// vehicle's speed, and what to do when there is no preceding vehicle in-lane.
type Controller interface {
	// ControlsThisSpeed reports whether this lane currently controls v's
	// speed, and if so, which section and progress to use.
	ControlsThisSpeed(v *vehicle.Vehicle) (controls bool, p float64, section geom.VehicleSection)
	// HeadOfLaneStoppingDistance is consulted only when there is no
	// preceding vehicle in this lane. It lets RoadLane force a stop at the
	// line when the head vehicle lacks intersection permission (spec §4.4);
	// IntersectionLane and a RoadLane vehicle with permission simply defer to
	// Downstream.
	HeadOfLaneStoppingDistance(v *vehicle.Vehicle, section geom.VehicleSection) (distance float64, forced bool)
	Downstream() Downstream
}

// SpeedUpdateResult is one vehicle's resolved (velocity, acceleration) for a
// timestep, plus the section/progress the update applies to.
type SpeedUpdateResult struct {
	Vehicle      *vehicle.Vehicle
	Section      geom.VehicleSection
	Progress     float64
	Velocity     float64
	Acceleration float64
}

// UpdateSpeeds computes speed updates for every vehicle this lane controls,
// iterated head-to-tail (decreasing progress) so each vehicle's follower sees
// its leader, per spec §4.3 step 1. toSlow is the lane-change collaborator's
// override set: any vehicle in it brakes at max regardless of other logic.
// This does not mutate vehicle state; the caller applies results afterward.
func (l *Lane) UpdateSpeeds(c Controller, toSlow map[*vehicle.Vehicle]struct{}) []SpeedUpdateResult {
	results := make([]SpeedUpdateResult, 0, len(l.vehicles))
	var preceding *vehicle.Vehicle

	for _, v := range l.vehicles {
		controls, p, section := c.ControlsThisSpeed(v)
		if !controls {
			preceding = v
			continue
		}

		var accel float64
		if _, slow := toSlow[v]; slow {
			accel = v.MaxBraking()
		} else {
			accel = l.accelUpdate(c, v, section, p, preceding)
		}

		newV, reportedAccel := l.SpeedUpdate(v, p, accel)
		results = append(results, SpeedUpdateResult{
			Vehicle: v, Section: section, Progress: p,
			Velocity: newV, Acceleration: reportedAccel,
		})
		preceding = v
	}
	return results
}

func (l *Lane) accelUpdate(c Controller, v *vehicle.Vehicle, section geom.VehicleSection, p float64, preceding *vehicle.Vehicle) float64 {
	if preceding == nil {
		if dist, forced := c.HeadOfLaneStoppingDistance(v, section); forced {
			return l.stoppingDistanceAccel(v, p, dist, section)
		}
		if d := c.Downstream(); d != nil {
			if dist, ok := d.DownstreamStoppingDistance(v, section); ok {
				return l.stoppingDistanceAccel(v, p, dist, section)
			}
		}
		return l.AccelUpdateUncontested(v, p)
	}

	precedingProgress, ok := l.Progress(preceding)
	if !ok || !precedingProgress.Rear.Present {
		return l.AccelUpdateUncontested(v, p)
	}
	stoppingDistance := l.EffectiveStoppingDistance(precedingProgress.Rear.Value, p, preceding.StoppingDistance())
	return l.AccelUpdateFollowing(v, p, stoppingDistance)
}

func (l *Lane) stoppingDistanceAccel(v *vehicle.Vehicle, p float64, downstreamDistance float64, section geom.VehicleSection) float64 {
	var stoppingDistance float64
	switch section {
	case geom.Front:
		stoppingDistance = downstreamDistance + (1-p)*l.Trajectory.Length()
	case geom.Rear:
		stoppingDistance = downstreamDistance
	default:
		stoppingDistance = downstreamDistance
	}
	return l.AccelUpdateFollowing(v, p, stoppingDistance)
}

// PositionStepResult captures one vehicle section's outcome from a position
// update: either it stayed in-lane at a new progress, or it produced a
// transfer because its new progress exceeded 1.
type PositionStepResult struct {
	Transfers      []vehicle.Transfer
	ExitedVehicles []*vehicle.Vehicle // fully exited (all sections transferred)
}

// ApplySpeedUpdates writes resolved velocity/acceleration back onto the
// vehicle objects (spec: UpdateSpeeds does not mutate vehicles itself).
func ApplySpeedUpdates(results []SpeedUpdateResult) {
	for _, r := range results {
		_ = r.Vehicle.SetVelocity(r.Velocity)
		_ = r.Vehicle.SetAcceleration(r.Acceleration)
	}
}

// StepPositions advances every vehicle's progress by velocity*DeltaT,
// iterated head-to-tail (spec §4.3 step 2). A section whose new progress
// exceeds 1 produces a Transfer with DistanceRemaining = excess*length and is
// cleared from this lane's progress record (absent = "in the downstream
// object now"). Returns the transfers produced, in vehicle-then-section
// order, and logs (via collision) any overlapping progress detected -- a
// diagnostic only, never a hard failure, per spec §7.
func (l *Lane) StepPositions(collision func(a, b *vehicle.Vehicle)) []vehicle.Transfer {
	var transfers []vehicle.Transfer
	var lastRear float64 = 1.1

	for _, v := range l.vehicles {
		vp, ok := l.progress[v]
		if !ok {
			continue
		}
		distance := v.Velocity() * l.DeltaT
		deltaP := 0.0
		if l.Trajectory.Length() > 0 {
			deltaP = distance / l.Trajectory.Length()
		}

		newVP := vp
		for _, sec := range []geom.VehicleSection{geom.Front, geom.Center, geom.Rear} {
			cur := vp.Get(sec)
			if !cur.Present {
				continue
			}
			newP := cur.Value + deltaP
			if newP > 1 {
				excess := (newP - 1) * l.Trajectory.Length()
				transfers = append(transfers, vehicle.Transfer{
					Vehicle:           v,
					Section:           sec,
					DistanceRemaining: vehicle.Some(excess),
					EntryCoord:        l.Trajectory.EndCoord(),
				})
				newVP, _ = newVP.Set(sec, vehicle.Absent)
			} else {
				newVP, _ = newVP.Set(sec, vehicle.At(newP))
			}
		}

		if newVP.Rear.Present && newVP.Rear.Value < lastRear-1e-9 {
			// fine: strictly behind the previous vehicle's rear
		} else if newVP.Rear.Present && lastRear <= 1.0 && newVP.Rear.Value > lastRear+1e-9 {
			if collision != nil {
				collision(v, nil)
			}
		}
		if newVP.Rear.Present {
			lastRear = newVP.Rear.Value
		}

		if !newVP.AnyPresent() {
			l.RemoveVehicle(v)
		} else {
			l.progress[v] = newVP
			if newVP.Center.Present {
				v.SetPos(l.Trajectory.PositionAt(newVP.Center.Value))
			} else if newVP.Front.Present {
				v.SetPos(l.Trajectory.PositionAt(newVP.Front.Value))
			}
		}
	}
	l.resort()
	return transfers
}

// AcceptTransfer absorbs an incoming transfer by setting the transferred
// section (whichever it is) to an initial progress: the carried-over excess
// distance divided by the lane length, or, when DistanceRemaining is absent,
// lengthBuffer divided by the lane length. Sections already recorded for the
// vehicle in this lane are kept.
func (l *Lane) AcceptTransfer(t vehicle.Transfer, lengthBuffer float64) {
	var startP float64
	if l.Trajectory.Length() > 0 {
		if t.DistanceRemaining.Present {
			startP = t.DistanceRemaining.Value / l.Trajectory.Length()
		} else {
			startP = lengthBuffer / l.Trajectory.Length()
		}
	}
	existing, hasProgress := l.progress[t.Vehicle]
	if !hasProgress {
		existing = vehicle.VehicleProgress{}
	}
	existing, _ = existing.Set(t.Section, vehicle.At(startP))
	l.SetProgress(t.Vehicle, existing)
}
