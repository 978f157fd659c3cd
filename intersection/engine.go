package intersection

import (
	"aimsim/geom"
	"aimsim/lane"
	"aimsim/road"
	"aimsim/vehicle"
)

// RequestOptions are check_request's two switches: mark leaves tentative
// marks behind for later batch arbitration (Auction); sequence considers a
// run of consecutive same-movement vehicles rather than just the head.
type RequestOptions struct {
	Mark     bool
	Sequence bool
}

// CheckRequest answers: what is the longest prefix of upstream's queued,
// permission-less vehicle sequence that can be granted reservations
// compatible with this tiling's existing commitments through l? It runs the
// whole speculative mock simulation entirely against clones; the real
// upstream/l/downstream objects are never mutated.
func (tg *Tiling) CheckRequest(upstream *road.RoadLane, l *Lane, opts RequestOptions) ([]*Reservation, error) {
	var first, end int
	var ok bool
	if opts.Sequence {
		first, end, ok = upstream.FirstWithoutPermissionSequence()
	} else {
		first, ok = upstream.FirstWithoutPermission()
		end = first + 1
	}
	if !ok {
		return nil, nil
	}
	originals := upstream.Vehicles()[first:end]

	firstExit, err := upstream.SoonestExit(first, nil, tg.now)
	if err != nil {
		return nil, err
	}
	testT := firstExit.Timestep

	upClone := upstream.Clone()
	laneClone := l.Clone()
	downClone := l.ExitLane.Clone()

	testReservations := make(map[int]*Reservation)
	var validReservations []*Reservation
	var prevReservation *Reservation

	spawnIdx := 0
	var pendingSpawnExit *vehicle.ScheduledExit
	var lastSpawnedRearExit *vehicle.ScheduledExit

	for {
		if len(laneClone.Vehicles()) == 0 && len(upClone.Vehicles()) == 0 && spawnIdx >= len(originals) {
			break
		}

		lane.ApplySpeedUpdates(laneClone.UpdateSpeeds(laneClone, nil))

		lane.ApplySpeedUpdates(downClone.UpdateSpeeds(downClone, nil))
		downTransfers := downClone.StepPositions(nil)
		for _, tr := range downTransfers {
			if tr.Section == geom.Center {
				return nil, ErrDownstreamTooShort
			}
		}

		intTransfers := laneClone.StepPositions(nil)
		for _, tr := range intTransfers {
			if tr.Section != geom.Rear {
				downClone.AcceptTransfer(tr, tg.lengthBufferFactor)
				continue
			}
			vin := tr.Vehicle.VIN()
			res := testReservations[vin]
			if res == nil {
				continue
			}
			bufTiles, okBuf, err := tg.IOTileBuffer(laneClone, testT, tr.Vehicle, res, false, tg.ioBufferSteps, opts.Mark)
			if err != nil {
				return nil, err
			}
			if okBuf {
				for bt, tiles := range bufTiles {
					res.AddFootprint(bt, tiles)
				}
				res.ExitExit = vehicle.ScheduledExit{Vehicle: tr.Vehicle, Section: geom.Rear, Timestep: testT, Velocity: tr.Vehicle.Velocity()}
				validReservations = append(validReservations, res)
				downClone.RemoveVehicle(tr.Vehicle)
				delete(testReservations, vin)
				continue
			}
			if len(validReservations) > 0 {
				validReservations[len(validReservations)-1].Dependency = nil
			}
			if opts.Mark {
				for _, pending := range testReservations {
					tg.Rollback(pending)
				}
			}
			return validReservations, nil
		}

		upTransfers := upClone.StepPositions(nil)
		for _, tr := range upTransfers {
			laneClone.AcceptTransfer(tr, tg.lengthBufferFactor)
			if tr.Section == geom.Rear {
				if res, ok := testReservations[tr.Vehicle.VIN()]; ok {
					res.EntryExit = vehicle.ScheduledExit{Vehicle: tr.Vehicle, Section: geom.Rear, Timestep: testT, Velocity: tr.Vehicle.Velocity()}
				}
			}
		}

		rejectedIdx := -1
		for i, v := range laneClone.Vehicles() {
			res := testReservations[v.VIN()]
			if res == nil {
				continue
			}
			p := representativeProgress(laneClone, v)
			tiles, okTile, err := tg.PositionToTiles(laneClone, testT, p, v, res, opts.Mark, false)
			if err != nil {
				return nil, err
			}
			if okTile {
				res.AddFootprint(testT, tiles)
				continue
			}
			if i == 0 {
				if opts.Mark {
					for _, pending := range testReservations {
						tg.Rollback(pending)
					}
				}
				if len(validReservations) > 0 {
					validReservations[len(validReservations)-1].Dependency = nil
				}
				return validReservations, nil
			}
			rejectedIdx = i
			break
		}
		if rejectedIdx >= 0 {
			vehicles := laneClone.Vehicles()
			if prior := vehicles[rejectedIdx-1]; prior != nil {
				if res, ok := testReservations[prior.VIN()]; ok {
					res.Dependency = nil
				}
			}
			for _, v := range append([]*vehicle.Vehicle(nil), vehicles[rejectedIdx:]...) {
				if res, ok := testReservations[v.VIN()]; ok {
					if opts.Mark {
						tg.Rollback(res)
					}
					delete(testReservations, v.VIN())
				}
				laneClone.RemoveVehicle(v)
			}
			for _, v := range append([]*vehicle.Vehicle(nil), upClone.Vehicles()...) {
				upClone.RemoveVehicle(v)
			}
			spawnIdx = len(originals)
			pendingSpawnExit = nil
		}

		if len(upClone.Vehicles()) == 0 && spawnIdx < len(originals) {
			if pendingSpawnExit == nil {
				exit, err := upstream.SoonestExit(first+spawnIdx, lastSpawnedRearExit, testT)
				if err != nil {
					return nil, err
				}
				pendingSpawnExit = &exit
			}
			if testT >= pendingSpawnExit.Timestep {
				orig := originals[spawnIdx]
				clone := orig.Clone()
				// The reservation is bound to the real vehicle -- Commit/Finalize
				// must flip the real vehicle's permission/reservation flags, not a
				// clone's -- while the speculative loop above and below continues
				// to step only the clone's position and velocity.
				res := tg.NewReservation(orig, l, l.Trajectory.StartCoord())
				for _, priorOrig := range originals[:spawnIdx] {
					res.DependentOn = append(res.DependentOn, priorOrig.VIN())
				}

				vp := vehicle.VehicleProgress{}
				rearP := 1.0
				if upClone.Trajectory.Length() > 0 {
					rearP = 1 - clone.Length()/upClone.Trajectory.Length()
				}
				vp, _ = vp.Set(geom.Center, vehicle.At(1))
				vp, _ = vp.Set(geom.Rear, vehicle.At(rearP))
				upClone.SetProgress(clone, vp)

				vpI := vehicle.VehicleProgress{}
				vpI, _ = vpI.Set(geom.Front, vehicle.At(0))
				laneClone.SetProgress(clone, vpI)
				testReservations[clone.VIN()] = res

				bufTiles, okBuf, err := tg.IOTileBuffer(laneClone, testT, clone, res, true, tg.ioBufferSteps, opts.Mark)
				if err != nil {
					return nil, err
				}
				posTiles, okPos, err := tg.PositionToTiles(laneClone, testT, 0, clone, res, opts.Mark, false)
				if err != nil {
					return nil, err
				}
				if okBuf && okPos {
					for bt, tiles := range bufTiles {
						res.AddFootprint(bt, tiles)
					}
					res.AddFootprint(testT, posTiles)
					if prevReservation != nil {
						cloneVIN := clone.VIN()
						prevReservation.Dependency = &cloneVIN
					}
					prevReservation = res
					exit := *pendingSpawnExit
					lastSpawnedRearExit = &exit
					spawnIdx++
					pendingSpawnExit = nil
				} else {
					laneClone.RemoveVehicle(clone)
					upClone.RemoveVehicle(clone)
					delete(testReservations, clone.VIN())
					spawnIdx = len(originals)
					if len(laneClone.Vehicles()) == 0 {
						return validReservations, nil
					}
				}
			}
		}

		testT++
	}

	return validReservations, nil
}

func representativeProgress(l *Lane, v *vehicle.Vehicle) float64 {
	vp, ok := l.Progress(v)
	if !ok {
		return 0
	}
	switch {
	case vp.Front.Present:
		return vp.Front.Value
	case vp.Center.Present:
		return vp.Center.Value
	default:
		return vp.Rear.Value
	}
}
