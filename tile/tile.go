// Package tile implements a single spatial cell at one future timestep: a
// Tile records confirmed and tentative reservations and decides whether a
// new reservation may use it.
package tile

import "errors"

// ErrRejectionThresholdNegative is returned by New when threshold < 0.
var ErrRejectionThresholdNegative = errors.New("tile: rejection threshold must be nonnegative")

// ErrIncompatibleReservation is returned by Mark/Confirm when a reservation
// would push the tile's confirmed-probability sum past its rejection
// threshold and force was not set.
var ErrIncompatibleReservation = errors.New("tile: reservation incompatible with tile")

// ErrForceAndMarkExclusive names the rule that force and mark are mutually
// exclusive (spec §4.1). No Tile method returns it, since none takes both a
// mark and a force flag; intersection.ErrForceAndMarkExclusive is the error
// PositionToTiles returns.
var ErrForceAndMarkExclusive = errors.New("tile: force and mark are mutually exclusive")

// VehicleKey identifies the vehicle behind a reservation for the "same
// vehicle already holds this tile" exemption, without this package needing to
// import the vehicle or reservation packages (they sit above tile in the
// dependency graph: reservation references Tile, not the reverse).
type VehicleKey int

// ReservationKey identifies a reservation uniquely for map keys.
type ReservationKey int

// Tile is one cell of space at one future timestep. The sum of confirmed
// probabilities can never exceed 1-rejectionThreshold; a single vehicle may
// appear at most once in confirmed.
type Tile struct {
	rejectionThreshold float64

	confirmed map[ReservationKey]entry
	tentative map[ReservationKey]entry
}

type entry struct {
	vehicle VehicleKey
	p       float64
}

// New constructs an empty tile with the given rejection threshold (must be
// >= 0; 0 means "a single confirmed probability-1 reservation fills the tile").
func New(rejectionThreshold float64) (*Tile, error) {
	if rejectionThreshold < 0 {
		return nil, ErrRejectionThresholdNegative
	}
	return &Tile{
		rejectionThreshold: rejectionThreshold,
		confirmed:          make(map[ReservationKey]entry),
		tentative:          make(map[ReservationKey]entry),
	}, nil
}

// NewDeterministic constructs a tile in the deterministic variant: at most
// one confirmed reservation per tile, probabilities collapsed to {0,1}.
// Implemented as a threshold-0 probabilistic tile plus a single-occupant
// guard enforced in Accepts/Mark/Confirm by passing p=1 always.
func NewDeterministic() (*Tile, error) {
	return New(0)
}

func (t *Tile) confirmedSum(excluding VehicleKey, hasExcluding bool) float64 {
	sum := 0.0
	for _, e := range t.confirmed {
		if hasExcluding && e.vehicle == excluding {
			continue
		}
		sum += e.p
	}
	return sum
}

func (t *Tile) confirmedByVehicle(vehicle VehicleKey) bool {
	for _, e := range t.confirmed {
		if e.vehicle == vehicle {
			return true
		}
	}
	return false
}

// Accepts reports whether this tile has no confirmed reservation, whether
// the proposed reservation's vehicle already holds the tile, or whether
// adding probability p to the confirmed sum keeps it within
// 1-rejectionThreshold.
func (t *Tile) Accepts(vehicle VehicleKey, p float64) bool {
	if len(t.confirmed) == 0 {
		return true
	}
	if t.confirmedByVehicle(vehicle) {
		return true
	}
	return t.confirmedSum(vehicle, true)+p <= 1-t.rejectionThreshold
}

// Mark adds (reservation, p) to tentative marks if Accepts is true;
// otherwise returns ErrIncompatibleReservation and does not mutate the tile.
func (t *Tile) Mark(r ReservationKey, vehicle VehicleKey, p float64) error {
	if !t.Accepts(vehicle, p) {
		return ErrIncompatibleReservation
	}
	t.tentative[r] = entry{vehicle: vehicle, p: p}
	return nil
}

// Confirm promotes a tentative mark (or, with force, an unmarked reservation)
// to confirmed. Fails unless Accepts is true or force is set. Confirm never
// requires the reservation to have been marked first; a tentative mark for r,
// if present, is removed as r is confirmed, with or without force.
// Tiling.Commit confirms every tile with force set, whether or not it was
// marked first.
func (t *Tile) Confirm(r ReservationKey, vehicle VehicleKey, p float64, force bool) error {
	if !force && !t.Accepts(vehicle, p) {
		return ErrIncompatibleReservation
	}
	delete(t.tentative, r)
	t.confirmed[r] = entry{vehicle: vehicle, p: p}
	return nil
}

// RemoveMark deletes a single tentative mark, if present. Removing an absent
// mark is a no-op.
func (t *Tile) RemoveMark(r ReservationKey) {
	delete(t.tentative, r)
}

// RemoveAllMarks clears every tentative mark on this tile, leaving confirmed
// marks untouched.
func (t *Tile) RemoveAllMarks() {
	for k := range t.tentative {
		delete(t.tentative, k)
	}
}

// ConfirmedProbabilitySum returns the sum of confirmed probabilities, for
// invariant testing (spec §8).
func (t *Tile) ConfirmedProbabilitySum() float64 {
	return t.confirmedSum(0, false)
}

// IsConfirmedBy reports whether r currently holds a confirmed mark on this tile.
func (t *Tile) IsConfirmedBy(r ReservationKey) bool {
	_, ok := t.confirmed[r]
	return ok
}

// IsTentativelyMarkedBy reports whether r currently holds a tentative mark on this tile.
func (t *Tile) IsTentativelyMarkedBy(r ReservationKey) bool {
	_, ok := t.tentative[r]
	return ok
}

// Empty reports whether the tile has neither confirmed nor tentative marks --
// used by tests asserting that a rollback returns the tiling to its prior
// byte-identical state.
func (t *Tile) Empty() bool {
	return len(t.confirmed) == 0 && len(t.tentative) == 0
}
