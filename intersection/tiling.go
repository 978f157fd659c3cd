package intersection

import (
	"errors"

	"aimsim/geom"
	"aimsim/tile"
	"aimsim/vehicle"
)

// ErrDownstreamTooShort is the hard configuration-fault error raised when a
// mock simulation's downstream clone runs out of lane before a test vehicle
// finishes exiting (spec §4.6 step 5b).
var ErrDownstreamTooShort = errors.New("intersection: downstream road lane too short for reservation test")

// ErrForceAndMarkExclusive mirrors tile.ErrForceAndMarkExclusive at the
// Tiling API boundary: PositionToTiles callers may set at most one of mark
// or force.
var ErrForceAndMarkExclusive = errors.New("intersection: mark and force are mutually exclusive")

// TileID addresses one cell of the grid, independent of timestep.
type TileID struct{ X, Y int }

// Geometry maps a vehicle's outline at some position to the set of tiles it
// covers. SquareGeometry is the square-grid concretion; other geometries could be
// substituted without touching Tiling's layering/reservation bookkeeping.
type Geometry interface {
	TilesFor(center geom.Coord, heading, length, width float64) []TileID
}

// Tiling owns the layered tile grid -- lazily created per absolute simulated
// timestep and keyed by that absolute timestep -- plus the active/queued
// reservation bookkeeping for one intersection.
type Tiling struct {
	geometry           Geometry
	rejectionThreshold float64
	lengthBufferFactor float64
	ioBufferSteps      int

	now int64 // current simulated timestep

	layers map[int64]map[TileID]*tile.Tile

	activeReservations map[int]*Reservation // by vehicle VIN
	queuedReservations map[int]*Reservation

	nextKey tile.ReservationKey
}

// NewSquareTiling constructs a Tiling using the square-grid concretion.
func NewSquareTiling(geometry Geometry, rejectionThreshold, lengthBufferFactor float64, ioBufferSteps int) *Tiling {
	if ioBufferSteps <= 0 {
		ioBufferSteps = 1
	}
	return &Tiling{
		geometry:           geometry,
		rejectionThreshold: rejectionThreshold,
		lengthBufferFactor: lengthBufferFactor,
		ioBufferSteps:      ioBufferSteps,
		layers:             make(map[int64]map[TileID]*tile.Tile),
		activeReservations: make(map[int]*Reservation),
		queuedReservations: make(map[int]*Reservation),
	}
}

// Now returns the tiling's current simulated timestep.
func (tg *Tiling) Now() int64 { return tg.now }

// Empty reports whether no vehicle currently holds an active (in-progress)
// reservation through this intersection -- the gate Auction.Run uses to
// decide whether a round can run at all.
func (tg *Tiling) Empty() bool { return len(tg.activeReservations) == 0 }

// NewReservation allocates a fresh Reservation bound to this tiling's
// reservation-key space.
func (tg *Tiling) NewReservation(v *vehicle.Vehicle, l *Lane, entry geom.Coord) *Reservation {
	tg.nextKey++
	return &Reservation{key: tg.nextKey, Vehicle: v, Lane: l, EntryCoord: entry}
}

func (tg *Tiling) layer(t int64) map[TileID]*tile.Tile {
	l, ok := tg.layers[t]
	if !ok {
		l = make(map[TileID]*tile.Tile)
		tg.layers[t] = l
	}
	return l
}

func (tg *Tiling) tileAt(t int64, id TileID) *tile.Tile {
	l := tg.layer(t)
	tl, ok := l[id]
	if !ok {
		tl, _ = tile.New(tg.rejectionThreshold)
		l[id] = tl
	}
	return tl
}

// AdvanceTime discards the head layer (every timestep <= now) and advances
// now by one step. Active reservations are left as they are; no position
// reconciliation is performed.
func (tg *Tiling) AdvanceTime() {
	for t := range tg.layers {
		if t <= tg.now {
			delete(tg.layers, t)
		}
	}
	tg.now++
}

// outlineFor returns the center/heading/length/width to rasterize for v at
// proportional progress p along l, inflated by the throttle/tracking
// extension point (defaulted to 1.0, i.e. no inflation).
func outlineFor(l *Lane, v *vehicle.Vehicle, p float64) (geom.Coord, float64, float64, float64) {
	center := l.Trajectory.PositionAt(p)
	heading := l.Trajectory.HeadingAt(p)
	inflate := 1 + v.ThrottleScore() + v.TrackingScore()
	if inflate < 1 {
		inflate = 1
	}
	return center, heading, v.Length() * inflate, v.Width() * inflate
}

// PositionToTiles returns the set of tiles vehicle v's outline covers at
// future timestep t while at proportional progress p in lane l, each mapped
// to the probability this reservation claims it (uniformly 1.0 in the
// deterministic default). If mark is true, tentative marks are written for
// every tile; if force is true, the acceptance check is bypassed and tiles
// are confirmed instead (mark and force are mutually exclusive). Returns
// ok=false if any required tile rejects (and, when mark was set, no partial
// marks are left behind).
func (tg *Tiling) PositionToTiles(l *Lane, t int64, p float64, v *vehicle.Vehicle, r *Reservation, mark, force bool) (map[TileID]float64, bool, error) {
	if mark && force {
		return nil, false, ErrForceAndMarkExclusive
	}
	center, heading, length, width := outlineFor(l, v, p)
	ids := tg.geometry.TilesFor(center, heading, length, width)
	vk := tile.VehicleKey(v.VIN())
	rk := r.Key()

	result := make(map[TileID]float64, len(ids))
	marked := make([]TileID, 0, len(ids))
	for _, id := range ids {
		tl := tg.tileAt(t, id)
		if force {
			if err := tl.Confirm(rk, vk, 1.0, true); err != nil {
				return nil, false, err
			}
			result[id] = 1.0
			continue
		}
		if !tl.Accepts(vk, 1.0) {
			for _, done := range marked {
				tg.tileAt(t, done).RemoveMark(rk)
			}
			return nil, false, nil
		}
		if mark {
			_ = tl.Mark(rk, vk, 1.0)
			marked = append(marked, id)
		}
		result[id] = 1.0
	}
	return result, true, nil
}

// IOTileBuffer requests additional entry-side (prepend) or exit-side tiles
// beyond t itself -- steps of them -- enforcing inter-vehicle spacing at the
// intersection boundary. Postpending (prepend=false) requires steps > 0.
func (tg *Tiling) IOTileBuffer(l *Lane, t int64, v *vehicle.Vehicle, r *Reservation, prepend bool, steps int, mark bool) (map[int64]map[TileID]float64, bool, error) {
	if steps <= 0 {
		steps = 1
	}
	p := 0.0
	if !prepend {
		p = 1.0
	}
	out := make(map[int64]map[TileID]float64, steps)
	for i := 1; i <= steps; i++ {
		var bt int64
		if prepend {
			bt = t - int64(i)
		} else {
			bt = t + int64(i)
		}
		tiles, ok, err := tg.PositionToTiles(l, bt, p, v, r, mark, false)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		out[bt] = tiles
	}
	return out, true, nil
}

// Commit confirms every tentative mark this reservation holds across all
// layers, enqueues it, and records the vehicle's rear exit on the upstream
// RoadLane so later arrivals know when this one finishes exiting.
func (tg *Tiling) Commit(r *Reservation) {
	for t, tiles := range r.Tiles {
		for id := range tiles {
			tl := tg.tileAt(t, id)
			_ = tl.Confirm(r.Key(), tile.VehicleKey(r.Vehicle.VIN()), 1.0, true)
		}
	}
	tg.queuedReservations[r.Vehicle.VIN()] = r
	_ = r.Lane.Upstream.RegisterLatestScheduledExit(r.EntryExit)
	r.Vehicle.GrantReservation()
	r.Vehicle.GrantPermission()
}

// Rollback removes every tentative mark for this reservation across all layers.
func (tg *Tiling) Rollback(r *Reservation) {
	for t, tiles := range r.Tiles {
		for id := range tiles {
			tg.tileAt(t, id).RemoveMark(r.Key())
		}
	}
}

// Activate moves a vehicle's reservation from queued to active once its
// front crosses the entry seam, returning the IntersectionLane it targets.
func (tg *Tiling) Activate(vin int) (*Lane, bool) {
	r, ok := tg.queuedReservations[vin]
	if !ok {
		return nil, false
	}
	delete(tg.queuedReservations, vin)
	tg.activeReservations[vin] = r
	return r.Lane, true
}

// Finalize drops the active reservation when the vehicle's rear crosses the
// exit seam, clearing the vehicle's permission/reservation flags so it
// starts clean at its next intersection.
func (tg *Tiling) Finalize(vin int) {
	if r, ok := tg.activeReservations[vin]; ok {
		r.Vehicle.ClearPermission()
		r.Vehicle.ClearReservation()
	}
	delete(tg.activeReservations, vin)
}
