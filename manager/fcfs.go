package manager

import "aimsim/intersection"

// FCFS commits reservations strictly in request order: for each incoming
// lane, repeatedly check_request the head of its queue and commit the first
// accepted reservation, until nothing further can be granted. It never
// leaves tentative marks behind.
type FCFS struct {
	Tiling *intersection.Tiling
	Lanes  []IncomingLane
}

// AdvanceTime is a no-op; FCFS owns no cycle state.
func (f *FCFS) AdvanceTime() {}

// ProcessRequests implements Policy.
func (f *FCFS) ProcessRequests(now int64) {
	pending := make([]bool, len(f.Lanes))
	active := 0
	for i := range pending {
		pending[i] = true
		active++
	}
	for active > 0 {
		for i, il := range f.Lanes {
			if !pending[i] {
				continue
			}
			reservations, err := f.Tiling.CheckRequest(il.Road, il.Target, intersection.RequestOptions{Mark: false, Sequence: false})
			if err != nil || len(reservations) == 0 {
				pending[i] = false
				active--
				continue
			}
			f.Tiling.Commit(reservations[0])
		}
	}
}
