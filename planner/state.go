package planner

import (
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/ugvlab/arcnav/curvedpath"
	"github.com/ugvlab/arcnav/geometry"
)

// Direction is the commanded direction of travel.
type Direction int

// Directions.
const (
	Forward Direction = iota
	Reverse
)

func (d Direction) String() string {
	if d == Reverse {
		return "reverse"
	}
	return "forward"
}

// VehicleState is the vehicle as sensed at the start of a cycle.
type VehicleState struct {
	Pose geometry.Pose
	// Speed is the magnitude in m/s, whatever the direction.
	Speed float64
	// Curvature is the curvature currently steered, in the vehicle frame.
	Curvature float64
	Pitch     float64
	Roll      float64
	Direction Direction
	// Elapsed is the time since the previous cycle.
	Elapsed time.Duration
}

// SpeedLimits are the individual caps the commanded speed was reduced to.
type SpeedLimits struct {
	Waypoint  float64
	Braking   float64
	Ramp      float64
	Curvature float64
	Reverse   float64
}

// Min returns the tightest limit.
func (l SpeedLimits) Min() float64 {
	return lo.Min([]float64{l.Waypoint, l.Braking, l.Ramp, l.Curvature, l.Reverse})
}

// Output is the command produced by one planning cycle.
type Output struct {
	// Curvature to steer, in the vehicle frame.
	Curvature float64
	// Speed to drive in m/s, zero when faulted.
	Speed float64
	// SafeDistance is how far the vehicle may travel along the path and still stop clear.
	SafeDistance float64
	Fault        Fault
	// BrakeHard is set when only a curvature beyond the comfortable window cleared.
	BrakeHard bool
	// Widened is set when the corridor was widened to recover a vehicle just outside it.
	Widened bool
	// Tilted is set when the path crosses terrain steeper than the tilt limit.
	Tilted bool
	Goal   geometry.Pose
	Path   curvedpath.Path
	Limits SpeedLimits
}

// Ok reports whether the cycle produced a normal driving command.
func (o Output) Ok() bool {
	return o.Fault == FaultNone
}

func (o Output) String() string {
	return fmt.Sprintf("curvature=%.4f speed=%.2f safe=%.2f fault=%v", o.Curvature, o.Speed, o.SafeDistance, o.Fault)
}
