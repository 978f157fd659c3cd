// Package vehicle holds the mutable physical vehicle model, its per-lane
// progress bookkeeping, and the messages lanes exchange when a vehicle
// crosses a seam.
package vehicle

import (
	"errors"
	"math"

	"aimsim/geom"
)

// ErrNegativeVelocity is returned when a caller tries to set a negative speed.
var ErrNegativeVelocity = errors.New("vehicle: velocity must be nonnegative")

// ErrBrakingWhileStopped is returned when negative acceleration is applied to
// a vehicle already at rest (spec §3: "if velocity == 0, no negative
// acceleration").
var ErrBrakingWhileStopped = errors.New("vehicle: cannot brake a stopped vehicle")

// ErrInvalidHeading is returned when a heading outside [0, 2*pi) is set.
var ErrInvalidHeading = errors.New("vehicle: heading must be in [0, 2*pi)")

// ErrNonPositiveAcceleration is returned by NewVehicle when max_acceleration
// is not strictly positive or is below the min_acceleration floor.
var ErrNonPositiveAcceleration = errors.New("vehicle: max_acceleration must be positive")

// ErrNonPositiveBraking is returned by NewVehicle when max_braking is not
// strictly negative or is below the max_braking floor it is given.
var ErrNonPositiveBraking = errors.New("vehicle: max_braking must be negative")

// ErrNonPositiveDimension is returned by NewVehicle when length or width is
// not strictly positive.
var ErrNonPositiveDimension = errors.New("vehicle: length and width must be positive")

// Characteristics are the immutable parameters a Vehicle is constructed with.
type Characteristics struct {
	DestinationID   int
	MaxAcceleration float64 // > 0
	MaxBraking      float64 // < 0, bounded by the global min-braking floor
	Length          float64 // > 0
	Width           float64 // > 0
	ThrottleScore   float64
	TrackingScore   float64
	VOT             float64 // value of time, >= 0
	Automated       bool    // false marks a human-driven vehicle (FCFSSignals extension point)
}

// Vehicle is a single simulated vehicle: mutable physical state plus
// immutable characteristics fixed at construction. Identified by a
// process-wide unique VIN.
type Vehicle struct {
	vin   int
	chars Characteristics

	pos          geom.Coord
	velocity     float64
	acceleration float64
	heading      float64

	permissionToEnter bool
	hasReservation    bool
}

// NewVehicle validates characteristics against the supplied floors (the
// global min_acceleration and max_braking config values) and constructs a
// fresh vehicle at rest, facing heading 0, positioned at the origin until a
// lane places it.
func NewVehicle(vin int, chars Characteristics, minAcceleration, maxBrakingFloor float64) (*Vehicle, error) {
	if chars.MaxAcceleration <= 0 {
		return nil, ErrNonPositiveAcceleration
	}
	if chars.MaxAcceleration < minAcceleration {
		return nil, ErrNonPositiveAcceleration
	}
	if chars.MaxBraking >= 0 {
		return nil, ErrNonPositiveBraking
	}
	if chars.MaxBraking < maxBrakingFloor {
		return nil, ErrNonPositiveBraking
	}
	if chars.Length <= 0 || chars.Width <= 0 {
		return nil, ErrNonPositiveDimension
	}
	return &Vehicle{vin: vin, chars: chars}, nil
}

// VIN returns the vehicle's unique identification number.
func (v *Vehicle) VIN() int { return v.vin }

// Pos returns the vehicle's current position.
func (v *Vehicle) Pos() geom.Coord { return v.pos }

// SetPos updates the vehicle's position. Only a lane should call this.
func (v *Vehicle) SetPos(p geom.Coord) { v.pos = p }

// Velocity returns the vehicle's current speed, always nonnegative.
func (v *Vehicle) Velocity() float64 { return v.velocity }

// SetVelocity sets the vehicle's speed; errors if negative.
func (v *Vehicle) SetVelocity(newV float64) error {
	if newV < 0 {
		return ErrNegativeVelocity
	}
	v.velocity = newV
	return nil
}

// Acceleration returns the vehicle's current acceleration (may be negative).
func (v *Vehicle) Acceleration() float64 { return v.acceleration }

// SetAcceleration sets the vehicle's acceleration; errors if the vehicle is
// stopped and the new acceleration is negative (spec §3 invariant).
func (v *Vehicle) SetAcceleration(newA float64) error {
	if v.velocity <= 0 && newA < 0 {
		return ErrBrakingWhileStopped
	}
	v.acceleration = newA
	return nil
}

// Heading returns the vehicle's orientation in radians, in [0, 2*pi).
func (v *Vehicle) Heading() float64 { return v.heading }

// SetHeading sets the vehicle's heading; errors if out of [0, 2*pi).
func (v *Vehicle) SetHeading(h float64) error {
	if h < 0 || h >= 2*math.Pi {
		return ErrInvalidHeading
	}
	v.heading = h
	return nil
}

// DestinationID returns the ID of the VehicleRemover this vehicle is headed to.
func (v *Vehicle) DestinationID() int { return v.chars.DestinationID }

// MaxAcceleration returns the vehicle's maximum acceleration (m/s^2, positive).
func (v *Vehicle) MaxAcceleration() float64 { return v.chars.MaxAcceleration }

// MaxBraking returns the vehicle's maximum braking rate (m/s^2, negative).
func (v *Vehicle) MaxBraking() float64 { return v.chars.MaxBraking }

// Length returns the vehicle's length in meters.
func (v *Vehicle) Length() float64 { return v.chars.Length }

// Width returns the vehicle's width in meters.
func (v *Vehicle) Width() float64 { return v.chars.Width }

// ThrottleScore returns how much the vehicle tends to over/under-accelerate.
func (v *Vehicle) ThrottleScore() float64 { return v.chars.ThrottleScore }

// TrackingScore returns how much the vehicle tends to drift laterally.
func (v *Vehicle) TrackingScore() float64 { return v.chars.TrackingScore }

// VOT returns the vehicle's value of time, used by the auction policy.
func (v *Vehicle) VOT() float64 { return v.chars.VOT }

// Automated reports whether this vehicle is self-driving. Human-driven
// vehicles (Automated() == false) are the FCFSSignals extension point
// flagged in spec §9.
func (v *Vehicle) Automated() bool { return v.chars.Automated }

// PermissionToEnterIntersection reports whether a manager has granted this
// vehicle permission to enter an intersection without (necessarily) holding a
// tile reservation (the Signals/StopSign path).
func (v *Vehicle) PermissionToEnterIntersection() bool { return v.permissionToEnter }

// GrantPermission idempotently marks the vehicle as permitted to enter.
func (v *Vehicle) GrantPermission() { v.permissionToEnter = true }

// ClearPermission resets the permission flag (used once the vehicle has
// fully exited the intersection it was granted entry to).
func (v *Vehicle) ClearPermission() { v.permissionToEnter = false }

// HasReservation reports whether this vehicle holds a confirmed tile
// reservation with an intersection manager.
func (v *Vehicle) HasReservation() bool { return v.hasReservation }

// GrantReservation idempotently marks the vehicle as holding a reservation.
func (v *Vehicle) GrantReservation() { v.hasReservation = true }

// ClearReservation resets the reservation flag.
func (v *Vehicle) ClearReservation() { v.hasReservation = false }

// StoppingDistance returns the worst-case distance this vehicle needs to
// come to a complete stop braking at MaxBraking from its current velocity:
// v^2 / (2*|max_braking|).
func (v *Vehicle) StoppingDistance() float64 {
	if v.chars.MaxBraking >= 0 {
		return 0
	}
	return (v.velocity * v.velocity) / (2 * -v.chars.MaxBraking)
}

// Clone produces a structural copy of the vehicle's current physical state
// and characteristics, sharing no mutable state with the original. Used by
// the reservation engine's mock simulation, which must never mutate the real
// vehicle it clones from.
func (v *Vehicle) Clone() *Vehicle {
	clone := *v
	return &clone
}
