package curvedpath

import (
	"github.com/golang/geo/r2"

	"github.com/ugvlab/arcnav/geometry"
)

// Arc is a single circular arc leaving the start pose tangent to its heading.
// Its curvature is not checked against the start's limits; callers that search outside the
// dynamic window rely on that.
type Arc struct {
	start Start
	seg   segment
	valid bool
}

// NewArc returns an empty arc from start.
func NewArc(start Start) *Arc {
	return &Arc{start: start, seg: segment{start: start.Pose}}
}

// NewArcWithCurvature returns a valid constant curvature arc of the given length.
func NewArcWithCurvature(start Start, curvature, length float64) *Arc {
	a := NewArc(start)
	if length <= 0 {
		return a
	}
	a.seg = segment{start: start.Pose, curvature: curvature, length: length}
	a.valid = true
	return a
}

// SetStart replaces the start and invalidates the arc.
func (a *Arc) SetStart(start Start) {
	a.start = start
	a.Clear()
}

// Start returns the stored start.
func (a *Arc) Start() Start {
	return a.start
}

// SetEnd fits the tangent arc through pos.
func (a *Arc) SetEnd(pos r2.Point) bool {
	a.Clear()
	p0, h0 := a.start.Pose.Pos, a.start.Pose.Heading
	k, ok := geometry.TangentArcThroughPoints(p0, h0, pos)
	if !ok {
		return false
	}
	length := geometry.ArcLengthFrom(p0, h0, pos, k)
	if length <= 0 {
		return false
	}
	a.seg = segment{start: a.start.Pose, curvature: k, length: length}
	a.valid = true
	return true
}

// SetEndHeading is SetEnd; a single arc cannot also honour an end heading.
func (a *Arc) SetEndHeading(pos r2.Point, _ float64) bool {
	return a.SetEnd(pos)
}

// Valid reports whether the last SetEnd succeeded.
func (a *Arc) Valid() bool {
	return a.valid
}

// Length returns the arc length, 0 when invalid.
func (a *Arc) Length() float64 {
	if !a.valid {
		return 0
	}
	return a.seg.length
}

// End returns the pose at the end of the arc.
func (a *Arc) End() geometry.Pose {
	if !a.valid {
		return a.start.Pose
	}
	return a.seg.end()
}

// PointAlongPath returns the pose dist along the arc.
func (a *Arc) PointAlongPath(dist float64) (geometry.Pose, bool) {
	return pointAlong(a.valid, a.segments(), dist)
}

// CurvatureAt returns the arc's curvature.
func (a *Arc) CurvatureAt(float64) float64 {
	return a.seg.curvature
}

// SteeringCurvature returns the arc's curvature.
func (a *Arc) SteeringCurvature() float64 {
	if !a.valid {
		return a.start.Curvature
	}
	return a.seg.curvature
}

// SteerToPath uses the shared steering law.
func (a *Arc) SteerToPath(lookahead float64) float64 {
	return SteerToPath(a, lookahead)
}

// Clear invalidates the arc.
func (a *Arc) Clear() {
	a.valid = false
	a.seg = segment{start: a.start.Pose}
}

// Dump renders the arc as a table.
func (a *Arc) Dump() string {
	return dumpSegments("arc", a.start, a.valid, a.segments())
}

func (a *Arc) segments() []segment {
	return []segment{a.seg}
}
