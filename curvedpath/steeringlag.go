package curvedpath

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/ugvlab/arcnav/geometry"
)

const (
	// lagBlend is the share of the current curvature in the initial arc.
	lagBlend = 0.8
	// minLag is the lag distance below which no initial arc is added.
	minLag = 1e-3
)

// SteeringLag is a DualArc preceded by a short arc covering the distance the steering needs to
// move from the current curvature to the one the DualArc wants. The correction is two fixed
// passes, not an iterative solve.
type SteeringLag struct {
	start   Start
	initial segment
	dual    *DualArc
	valid   bool
}

// NewSteeringLag returns an empty composite from start.
func NewSteeringLag(start Start) *SteeringLag {
	return &SteeringLag{start: start, dual: NewDualArc(start)}
}

// SetStart replaces the start and invalidates the path.
func (s *SteeringLag) SetStart(start Start) {
	s.start = start
	s.Clear()
}

// Start returns the stored start.
func (s *SteeringLag) Start() Start {
	return s.start
}

// SetEnd builds the composite to pos arriving with the tangent arc heading.
func (s *SteeringLag) SetEnd(pos r2.Point) bool {
	return s.SetEndHeading(pos, arrivalHeading(s.start.Pose, pos))
}

// SetEndHeading builds the composite to pos arriving with heading.
func (s *SteeringLag) SetEndHeading(pos r2.Point, heading float64) bool {
	s.Clear()
	first := NewDualArc(s.start)
	if !first.SetEndHeading(pos, heading) {
		return false
	}
	wanted := first.CurvatureAt(0)
	current := s.start.Curvature

	var lag float64
	if s.start.MaxCurvatureRate > 0 {
		lag = math.Abs(wanted-current) * math.Abs(s.start.Speed) / s.start.MaxCurvatureRate
	}
	if lag < minLag {
		s.dual = first
		s.valid = true
		return true
	}
	if lag >= pos.Sub(s.start.Pose.Pos).Norm() {
		return false
	}

	s.initial = segment{
		start:     s.start.Pose,
		curvature: lagBlend*current + (1-lagBlend)*wanted,
		length:    lag,
	}
	next := s.start
	next.Pose = s.initial.end()
	next.Curvature = s.initial.curvature
	next.SettleDistance = math.Max(0, s.start.SettleDistance-lag)
	second := NewDualArc(next)
	if !second.SetEndHeading(pos, heading) {
		s.initial = segment{}
		return false
	}
	s.dual = second
	s.valid = true
	return true
}

// LagDistance returns the length of the initial arc.
func (s *SteeringLag) LagDistance() float64 {
	return s.initial.length
}

// Valid reports whether the last SetEnd succeeded.
func (s *SteeringLag) Valid() bool {
	return s.valid
}

// Length returns the initial arc plus the dual arc.
func (s *SteeringLag) Length() float64 {
	if !s.valid {
		return 0
	}
	return totalLength(s.segments())
}

// End returns the pose at the end of the dual arc.
func (s *SteeringLag) End() geometry.Pose {
	if !s.valid {
		return s.start.Pose
	}
	return s.dual.End()
}

// PointAlongPath returns the pose dist along the composite.
func (s *SteeringLag) PointAlongPath(dist float64) (geometry.Pose, bool) {
	return pointAlong(s.valid, s.segments(), dist)
}

// CurvatureAt returns the curvature of the piece covering dist.
func (s *SteeringLag) CurvatureAt(dist float64) float64 {
	if !s.valid {
		return s.start.Curvature
	}
	return curvatureAlong(s.segments(), dist)
}

// SteeringCurvature is the curvature the dual arc wants, which is what steering is moving to
// during the lag.
func (s *SteeringLag) SteeringCurvature() float64 {
	if !s.valid {
		return s.start.Curvature
	}
	return s.dual.CurvatureAt(0)
}

// SteerToPath uses the shared steering law.
func (s *SteeringLag) SteerToPath(lookahead float64) float64 {
	return SteerToPath(s, lookahead)
}

// Clear invalidates the composite.
func (s *SteeringLag) Clear() {
	s.valid = false
	s.initial = segment{}
	s.dual = NewDualArc(s.start)
}

// Dump renders the initial arc and both dual arcs as a table.
func (s *SteeringLag) Dump() string {
	return dumpSegments("steering lag", s.start, s.valid, s.segments())
}

func (s *SteeringLag) segments() []segment {
	if s.initial.length <= 0 {
		return s.dual.segs
	}
	return append([]segment{s.initial}, s.dual.segs...)
}
