package planner

// Fault says why a cycle could not produce a normal command.
type Fault int

// Faults, in no particular priority; the first one raised in a cycle wins.
const (
	FaultNone Fault = iota
	// FaultOffCourse: outside the corridor beyond tolerance.
	FaultOffCourse
	// FaultObstacle: no path clears terrain and boundaries even after a slower retry.
	FaultObstacle
	// FaultDrivingFault: a geometry or search failure.
	FaultDrivingFault
	// FaultTiltedPath: the path crosses terrain steeper than allowed.
	FaultTiltedPath
	// FaultDone: the mission is complete.
	FaultDone
)

func (f Fault) String() string {
	switch f {
	case FaultNone:
		return "none"
	case FaultOffCourse:
		return "off_course"
	case FaultObstacle:
		return "obstacle"
	case FaultDrivingFault:
		return "driving_fault"
	case FaultTiltedPath:
		return "tilted_path"
	case FaultDone:
		return "done"
	default:
		return "unknown"
	}
}

// faultLatch keeps the first fault raised in a cycle and remembers the previous cycle's.
type faultLatch struct {
	current  Fault
	previous Fault
}

// begin starts a new cycle.
func (l *faultLatch) begin() {
	l.previous = l.current
	l.current = FaultNone
}

// raise latches f unless a fault is already latched this cycle. It reports whether f took.
func (l *faultLatch) raise(f Fault) bool {
	if l.current != FaultNone {
		return false
	}
	l.current = f
	return true
}

func (l *faultLatch) changed() bool {
	return l.current != l.previous
}
