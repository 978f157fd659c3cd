package manager

import "testing"

func TestStopSignIsInert(t *testing.T) {
	var s StopSign
	s.AdvanceTime()
	s.ProcessRequests(42)
}
