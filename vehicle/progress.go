package vehicle

import (
	"errors"

	"aimsim/geom"
)

// ErrProgressOutOfRange is returned when a section's progress is set outside [0,1].
var ErrProgressOutOfRange = errors.New("vehicle: progress must be in [0,1]")

// ErrSectionsNotMonotonic is returned when setting all three sections would
// violate rear <= center <= front.
var ErrSectionsNotMonotonic = errors.New("vehicle: sections must satisfy rear <= center <= front")

// Progress is a single section's fractional position along a lane's
// trajectory, or absent (the section is outside this lane, in an adjacent
// upstream/downstream object).
type Progress struct {
	Value   float64
	Present bool
}

// Absent is the zero-value "not in this lane" progress.
var Absent = Progress{}

// At constructs a present progress at value p.
func At(p float64) Progress { return Progress{Value: p, Present: true} }

// VehicleProgress is the triple of optional progresses for one vehicle's
// front, center, and rear sections within one owning lane.
type VehicleProgress struct {
	Front, Center, Rear Progress
}

// Get returns the progress of the given section.
func (vp VehicleProgress) Get(s geom.VehicleSection) Progress {
	switch s {
	case geom.Front:
		return vp.Front
	case geom.Center:
		return vp.Center
	case geom.Rear:
		return vp.Rear
	default:
		return Absent
	}
}

// Set returns a copy of vp with the given section updated, validating the
// rear <= center <= front invariant when all three sections present are
// compared pairwise (sections currently absent are not compared).
func (vp VehicleProgress) Set(s geom.VehicleSection, p Progress) (VehicleProgress, error) {
	out := vp
	switch s {
	case geom.Front:
		out.Front = p
	case geom.Center:
		out.Center = p
	case geom.Rear:
		out.Rear = p
	}
	if p.Present && (p.Value < 0 || p.Value > 1) {
		return vp, ErrProgressOutOfRange
	}
	if err := out.validateMonotonic(); err != nil {
		return vp, err
	}
	return out, nil
}

func (vp VehicleProgress) validateMonotonic() error {
	if vp.Rear.Present && vp.Center.Present && vp.Rear.Value > vp.Center.Value {
		return ErrSectionsNotMonotonic
	}
	if vp.Center.Present && vp.Front.Present && vp.Center.Value > vp.Front.Value {
		return ErrSectionsNotMonotonic
	}
	if vp.Rear.Present && vp.Front.Present && vp.Rear.Value > vp.Front.Value {
		return ErrSectionsNotMonotonic
	}
	return nil
}

// AnyPresent reports whether at least one section is present in this lane.
func (vp VehicleProgress) AnyPresent() bool {
	return vp.Front.Present || vp.Center.Present || vp.Rear.Present
}

// AllPresent reports whether all three sections are present in this lane.
func (vp VehicleProgress) AllPresent() bool {
	return vp.Front.Present && vp.Center.Present && vp.Rear.Present
}

// Straddling reports whether this vehicle has a mix of present and absent
// sections within the lane -- i.e., it is currently crossing a seam.
func (vp VehicleProgress) Straddling() bool {
	return vp.AnyPresent() && !vp.AllPresent()
}

// OptionalFloat is a float64 that may be absent (the ⊥ in the spec's data
// model, e.g. a transfer's distance-remaining for a fresh spawn).
type OptionalFloat struct {
	Value   float64
	Present bool
}

// Some wraps a present float value.
func Some(v float64) OptionalFloat { return OptionalFloat{Value: v, Present: true} }

// Transfer is the message an upstream object hands a downstream object's
// buffer when a vehicle section crosses a seam.
type Transfer struct {
	Vehicle *Vehicle
	Section geom.VehicleSection
	// DistanceRemaining is the excess distance past the upstream trajectory's
	// end, in meters. Absent marks a fresh spawn.
	DistanceRemaining OptionalFloat
	EntryCoord        geom.Coord
}

// ScheduledExit is a promise that Section of Vehicle will cross the owning
// lane's downstream seam at Timestep with the given Velocity.
type ScheduledExit struct {
	Vehicle  *Vehicle
	Section  geom.VehicleSection
	Timestep int64
	Velocity float64
}
