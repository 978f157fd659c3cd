package manager

// StopSign is a documented extension point: today it grants nothing and
// runs no bookkeeping, deferring entirely to the default "stop at the line
// without permission" behavior every RoadLane already enforces.
type StopSign struct{}

// AdvanceTime is a no-op.
func (StopSign) AdvanceTime() {}

// ProcessRequests is a no-op.
func (StopSign) ProcessRequests(now int64) {}
