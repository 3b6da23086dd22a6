// Package geometry defines the planar point, segment and arc math the planner is built on.
//
// Headings are radians counter-clockwise from +x. Curvature is positive for a right turn, so
// travelling a distance s along an arc of curvature k changes the heading by -k*s. Lateral
// offsets are positive to the right of the direction of travel.
package geometry

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
)

// StraightCurvature is the curvature magnitude below which an arc is treated as a line.
const StraightCurvature = 0.001

// coincident is the distance under which two points are considered the same.
const coincident = 1e-9

// Pose is a planar position and heading.
type Pose struct {
	Pos     r2.Point
	Heading float64
}

func (p Pose) String() string {
	return fmt.Sprintf("(%.3f, %.3f) @ %.2fdeg", p.Pos.X, p.Pos.Y, p.Heading*180/math.Pi)
}

// Direction returns the unit vector for a heading.
func Direction(heading float64) r2.Point {
	return r2.Point{X: math.Cos(heading), Y: math.Sin(heading)}
}

// RightNormal returns the unit vector pointing to the right of a heading.
func RightNormal(heading float64) r2.Point {
	return r2.Point{X: math.Sin(heading), Y: -math.Cos(heading)}
}

// HeadingOf returns the heading of a vector.
func HeadingOf(v r2.Point) float64 {
	return math.Atan2(v.Y, v.X)
}

// NormalizeAngle wraps an angle into (-pi, pi].
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// AngleDiff returns the signed smallest rotation from a to b.
func AngleDiff(a, b float64) float64 {
	return NormalizeAngle(b - a)
}

// Lateral returns the forward and signed lateral (right positive) components of p relative to a pose.
func Lateral(origin r2.Point, heading float64, p r2.Point) (forward, lateral float64) {
	d := p.Sub(origin)
	return d.Dot(Direction(heading)), d.Dot(RightNormal(heading))
}

// IsStraight reports whether a curvature is small enough to be a straight line.
func IsStraight(curvature float64) bool {
	return math.Abs(curvature) < StraightCurvature
}

// TurnCenter returns the centre of the circle of the given curvature tangent to the pose.
// The result is meaningless for straight curvatures.
func TurnCenter(p r2.Point, heading, curvature float64) r2.Point {
	return p.Add(RightNormal(heading).Mul(1 / curvature))
}

// TangentArcThroughPoints returns the curvature of the arc leaving p0 tangent to heading and
// passing through p1. With chord d and its lateral component y, the half angle of the isosceles
// triangle formed with the centre gives curvature = 2y/|d|^2. It fails when p1 is coincident with
// p0 or lies at or behind p0, which would need a turn of a half circle or more.
func TangentArcThroughPoints(p0 r2.Point, heading float64, p1 r2.Point) (float64, bool) {
	forward, lateral := Lateral(p0, heading, p1)
	chord2 := forward*forward + lateral*lateral
	if chord2 < coincident*coincident || forward <= 0 {
		return math.NaN(), false
	}
	return 2 * lateral / chord2, true
}

// PointAlongArc returns the pose reached after travelling dist along an arc of the given curvature.
// It is exact for nearly straight arcs too.
func PointAlongArc(p r2.Point, heading, curvature, dist float64) (r2.Point, float64) {
	forward, lateral := arcOffsets(curvature, dist)
	pos := p.Add(Direction(heading).Mul(forward)).Add(RightNormal(heading).Mul(lateral))
	return pos, heading - curvature*dist
}

// arcOffsets returns sin(ks)/k and (1-cos(ks))/k, how far an arc carries forward and to the right
// over dist s. Their series take over when ks is too small to divide by.
func arcOffsets(k, s float64) (forward, lateral float64) {
	x := k * s
	if math.Abs(x) < 1e-4 {
		x2 := x * x
		return s * (1 - x2/6), s * x / 2 * (1 - x2/12)
	}
	return math.Sin(x) / k, (1 - math.Cos(x)) / k
}

// ArcLength returns the length of the minor arc of the given curvature joining p0 and p1.
func ArcLength(p0, p1 r2.Point, curvature float64) float64 {
	chord := p1.Sub(p0).Norm()
	half := math.Min(1, chord*math.Abs(curvature)/2)
	if half < 1e-9 {
		return chord
	}
	return 2 * math.Asin(half) / math.Abs(curvature)
}

// ArcLengthFrom returns the distance travelled along the arc leaving p0 with heading and curvature
// until it reaches p1, which is assumed to lie on that arc. Unlike ArcLength this handles sweeps
// beyond a half turn.
func ArcLengthFrom(p0 r2.Point, heading float64, p1 r2.Point, curvature float64) float64 {
	forward, lateral := Lateral(p0, heading, p1)
	sweep := 2 * math.Atan2(math.Abs(lateral), forward)
	if curvature == 0 || sweep < 1e-9 {
		return forward
	}
	return sweep / math.Abs(curvature)
}

// ArcMidpoint returns the point halfway along the arc leaving p0 and reaching p1.
func ArcMidpoint(p0 r2.Point, heading, curvature float64, p1 r2.Point) r2.Point {
	half := ArcLengthFrom(p0, heading, p1, curvature) / 2
	mid, _ := PointAlongArc(p0, heading, curvature, half)
	return mid
}

// PointToSegmentSignedDistance returns the distance from p to the segment a-b, negative when p is
// left of a->b, along with the unclamped fraction of the projection along a->b and the nearest
// point on the segment.
func PointToSegmentSignedDistance(p, a, b r2.Point) (float64, float64, r2.Point) {
	ab := b.Sub(a)
	length2 := ab.Dot(ab)
	if length2 < coincident*coincident {
		return p.Sub(a).Norm(), 0, a
	}
	fraction := p.Sub(a).Dot(ab) / length2
	clamped := math.Max(0, math.Min(1, fraction))
	nearest := a.Add(ab.Mul(clamped))
	dist := p.Sub(nearest).Norm()
	// Cross of a->b with a->p is positive when p is to the left.
	if ab.Cross(p.Sub(a)) > 0 {
		dist = -dist
	}
	return dist, fraction, nearest
}

// LineIntersection intersects the lines p0 + t*d0 and p1 + u*d1. It fails for parallel lines.
func LineIntersection(p0, d0, p1, d1 r2.Point) (r2.Point, bool) {
	denom := d0.Cross(d1)
	if math.Abs(denom) < 1e-12 {
		return r2.Point{}, false
	}
	t := p1.Sub(p0).Cross(d1) / denom
	return p0.Add(d0.Mul(t)), true
}
