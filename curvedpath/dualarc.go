package curvedpath

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/ugvlab/arcnav/geometry"
)

const (
	// straightRadius is the radius beyond which a dual arc is considered a straight line.
	straightRadius = 1 / geometry.StraightCurvature
	// collinear is the lateral and heading tolerance for collapsing to a straight segment.
	collinear   = 0.01
	sweepSlack  = 1e-6
	minEndChord = 1e-3
)

// DualArc is two arcs of equal radius and opposite sense: the first tangent to the start
// heading, the second tangent to the end heading.
type DualArc struct {
	start Start
	segs  []segment
	valid bool
}

// NewDualArc returns an empty dual arc from start.
func NewDualArc(start Start) *DualArc {
	return &DualArc{start: start}
}

// SetStart replaces the start and invalidates the path.
func (d *DualArc) SetStart(start Start) {
	d.start = start
	d.Clear()
}

// Start returns the stored start.
func (d *DualArc) Start() Start {
	return d.start
}

// SetEnd builds the path to pos arriving with the heading a single tangent arc would have,
// which degenerates to that arc.
func (d *DualArc) SetEnd(pos r2.Point) bool {
	return d.SetEndHeading(pos, arrivalHeading(d.start.Pose, pos))
}

// arrivalHeading is the heading a tangent arc from pose reaches pos with, or the chord heading
// when no tangent arc exists.
func arrivalHeading(pose geometry.Pose, pos r2.Point) float64 {
	k, ok := geometry.TangentArcThroughPoints(pose.Pos, pose.Heading, pos)
	if !ok {
		return geometry.HeadingOf(pos.Sub(pose.Pos))
	}
	return pose.Heading - k*geometry.ArcLengthFrom(pose.Pos, pose.Heading, pos, k)
}

// SetEndHeading solves for the shared radius. With start P0, end P1, right normals N0 and N1
// and signed radius r, the first centre is P0 + r*N0 and the second P1 - r*N1; the arcs meet
// tangentially when the centres are 2|r| apart:
//
//	r^2 (|N0+N1|^2 - 4) + 2r (P0-P1).(N0+N1) + |P0-P1|^2 = 0
//
// The root of smaller magnitude is the S-curve; the other loops around.
func (d *DualArc) SetEndHeading(pos r2.Point, heading float64) bool {
	d.Clear()
	p0, h0 := d.start.Pose.Pos, d.start.Pose.Heading
	diff := p0.Sub(pos)
	if diff.Norm() < minEndChord {
		return false
	}
	n0, n1 := geometry.RightNormal(h0), geometry.RightNormal(heading)
	sum := n0.Add(n1)
	a := sum.Dot(sum) - 4
	b := 2 * diff.Dot(sum)
	c := diff.Dot(diff)

	r, ok := smallerRoot(a, b, c)
	if !ok || math.Abs(r) > straightRadius {
		return d.setStraight(pos, heading)
	}

	k1, k2 := 1/r, -1/r
	if !d.start.allows(k1) || !d.start.allows(k2) {
		return false
	}
	c1 := p0.Add(n0.Mul(r))
	c2 := pos.Sub(n1.Mul(r))
	junction := c1.Add(c2).Mul(0.5)

	len1, ok1 := sweepLength(c1, p0, junction, k1)
	len2, ok2 := sweepLength(c2, junction, pos, k2)
	if !ok1 || !ok2 {
		return false
	}
	first := segment{start: d.start.Pose, curvature: k1, length: len1}
	second := segment{start: first.end(), curvature: k2, length: len2}
	d.segs = []segment{first, second}
	d.valid = true
	return true
}

// setStraight accepts an end pose that is effectively dead ahead with the same heading.
func (d *DualArc) setStraight(pos r2.Point, heading float64) bool {
	p0, h0 := d.start.Pose.Pos, d.start.Pose.Heading
	forward, lateral := geometry.Lateral(p0, h0, pos)
	if forward <= 0 || math.Abs(lateral) > collinear || math.Abs(geometry.AngleDiff(h0, heading)) > collinear {
		return false
	}
	if !d.start.allows(0) {
		return false
	}
	d.segs = []segment{{start: d.start.Pose, length: forward}}
	d.valid = true
	return true
}

// smallerRoot returns the root of a*x^2 + b*x + c of smallest magnitude. a is never positive
// here, so with c > 0 the roots have opposite signs.
func smallerRoot(a, b, c float64) (float64, bool) {
	const eps = 1e-12
	if math.Abs(a) < eps {
		if math.Abs(b) < eps {
			return 0, false
		}
		return -c / b, true
	}
	disc := b*b - 4*a*c
	if disc < 0 {
		return 0, false
	}
	sign := 1.0
	if b < 0 {
		sign = -1
	}
	q := -0.5 * (b + sign*math.Sqrt(disc))
	if q == 0 {
		return 0, false
	}
	r1, r2 := q/a, c/q
	r := r1
	if math.Abs(r2) < math.Abs(r1) {
		r = r2
	}
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	return r, true
}

// sweepLength returns how far an arc of curvature k about center travels from one point to
// another. Travel rotates the radius vector by -k per metre. Sweeps beyond a half turn fail.
func sweepLength(center, from, to r2.Point, k float64) (float64, bool) {
	u, v := from.Sub(center), to.Sub(center)
	angle := math.Atan2(u.Cross(v), u.Dot(v))
	s := -angle / k
	if s < 0 {
		if s > -sweepSlack {
			s = 0
		} else {
			s += 2 * math.Pi / math.Abs(k)
		}
	}
	if s*math.Abs(k) > math.Pi+sweepSlack {
		return 0, false
	}
	return s, true
}

// Valid reports whether the last SetEnd succeeded.
func (d *DualArc) Valid() bool {
	return d.valid
}

// Length returns the combined length of both arcs.
func (d *DualArc) Length() float64 {
	return totalLength(d.segs)
}

// End returns the pose at the end of the second arc.
func (d *DualArc) End() geometry.Pose {
	if !d.valid {
		return d.start.Pose
	}
	return d.segs[len(d.segs)-1].end()
}

// Junction returns the pose where the two arcs meet.
func (d *DualArc) Junction() geometry.Pose {
	if !d.valid {
		return d.start.Pose
	}
	return d.segs[0].end()
}

// PointAlongPath returns the pose dist along the path.
func (d *DualArc) PointAlongPath(dist float64) (geometry.Pose, bool) {
	return pointAlong(d.valid, d.segs, dist)
}

// CurvatureAt returns the curvature of the arc covering dist.
func (d *DualArc) CurvatureAt(dist float64) float64 {
	if !d.valid {
		return d.start.Curvature
	}
	return curvatureAlong(d.segs, dist)
}

// SteeringCurvature returns the curvature in effect once the settle distance has passed.
func (d *DualArc) SteeringCurvature() float64 {
	return d.CurvatureAt(d.start.SettleDistance)
}

// SteerToPath uses the shared steering law.
func (d *DualArc) SteerToPath(lookahead float64) float64 {
	return SteerToPath(d, lookahead)
}

// Clear invalidates the path.
func (d *DualArc) Clear() {
	d.valid = false
	d.segs = nil
}

// Dump renders both arcs as a table.
func (d *DualArc) Dump() string {
	return dumpSegments("dual arc", d.start, d.valid, d.segs)
}
