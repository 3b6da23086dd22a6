package curvedpath

import (
	"fmt"
	"math"

	"github.com/ugvlab/arcnav/geometry"
)

// Extended wraps a path so that it reaches at least length, continuing straight along the
// end heading. It lets a safety check look past a short path's end.
type Extended struct {
	Path
	length float64
}

// Extend returns p stretched to at least length. p is not modified.
func Extend(p Path, length float64) *Extended {
	return &Extended{Path: p, length: length}
}

// Length returns the longer of the wrapped path's length and the extension.
func (e *Extended) Length() float64 {
	return math.Max(e.Path.Length(), e.length)
}

// End returns the pose at the end of the extension.
func (e *Extended) End() geometry.Pose {
	p, _ := e.PointAlongPath(e.Length())
	return p
}

// PointAlongPath samples the wrapped path, then the straight continuation past its end.
func (e *Extended) PointAlongPath(dist float64) (geometry.Pose, bool) {
	inner := e.Path.Length()
	if dist <= inner || e.length <= inner {
		return e.Path.PointAlongPath(dist)
	}
	if !e.Path.Valid() || dist > Overrun*e.length+1e-9 {
		return geometry.Pose{}, false
	}
	end := e.Path.End()
	return geometry.Pose{Pos: end.Pos.Add(geometry.Direction(end.Heading).Mul(dist - inner)), Heading: end.Heading}, true
}

// CurvatureAt is zero along the extension.
func (e *Extended) CurvatureAt(dist float64) float64 {
	if dist >= e.Path.Length() && e.length > e.Path.Length() {
		return 0
	}
	return e.Path.CurvatureAt(dist)
}

// Dump describes the wrapped path and the extension.
func (e *Extended) Dump() string {
	return fmt.Sprintf("%s\nextended straight to %.3f", e.Path.Dump(), e.Length())
}
