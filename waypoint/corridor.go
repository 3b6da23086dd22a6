package waypoint

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/ugvlab/arcnav/geometry"
)

// minTurn is the heading change below which a junction gets no turn arc.
const minTurn = 0.01

// Side says which side of the centerline a point is on, relative to the direction of travel.
type Side int

// Sides. Right is positive to match lateral offsets.
const (
	SideLeft   Side = -1
	SideCenter Side = 0
	SideRight  Side = 1
)

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	default:
		return "center"
	}
}

// Detail is the result of a detailed corridor query.
type Detail struct {
	// Distance is negative inside the corridor.
	Distance float64
	Side     Side
	// Centerline is the nearest centerline point and Heading the travel direction there.
	Centerline r2.Point
	Heading    float64
	// Boundary is the corridor edge point on the same side as the query point.
	Boundary r2.Point
	// InTurn is set when the answer came from a turn arc.
	InTurn bool
}

// DistanceOutsideSegment returns how far p lies outside the corridor from wp0 to wp1, negative
// when inside. The corridor is a capsule of half width wp0.Width/2.
func DistanceOutsideSegment(p r2.Point, wp0, wp1 Waypoint) float64 {
	dist, _, _ := geometry.PointToSegmentSignedDistance(p, wp0.Pos, wp1.Pos)
	return math.Abs(dist) - wp0.HalfWidth()
}

// DistanceOutsideTriple returns the most inside distance over the triple's segments.
func DistanceOutsideTriple(p r2.Point, t Triple) float64 {
	switch t.Len() {
	case 0:
		return math.Inf(1)
	case 1:
		return p.Sub(t.First().Pos).Norm() - t.First().HalfWidth()
	}
	best := math.Inf(1)
	for i := 0; i < t.Segments(); i++ {
		best = math.Min(best, DistanceOutsideSegment(p, t.Waypoints[i], t.Waypoints[i+1]))
	}
	return best
}

// TurnArc is the circular centerline joining the two segments of a triple. Its centre is the
// intersection of the inside offset edges, so the centerline radius equals the offset.
type TurnArc struct {
	Center r2.Point
	// Radius of the centerline; the outer edge has twice this radius and the inner edge
	// shrinks to the centre.
	Radius float64
	// Tangent points on the incoming and outgoing centerlines.
	In, Out r2.Point
	HeadingIn, HeadingOut float64
	// Turn is +1 for a right turn and -1 for a left turn.
	Turn float64
}

// Curvature returns the signed curvature of the arc's centerline.
func (a TurnArc) Curvature() float64 {
	return a.Turn / a.Radius
}

// Length returns the arc length of the centerline.
func (a TurnArc) Length() float64 {
	return a.Radius * math.Abs(geometry.AngleDiff(a.HeadingIn, a.HeadingOut))
}

// Contains reports whether p is inside the wedge the arc governs.
func (a TurnArc) Contains(p r2.Point) bool {
	return p.Sub(a.In).Dot(geometry.Direction(a.HeadingIn)) >= 0 &&
		p.Sub(a.Out).Dot(geometry.Direction(a.HeadingOut)) <= 0
}

// TurnArcFor returns the turn arc at the junction of a three-waypoint triple. It fails for
// shorter triples, near-straight junctions, and when the tangent points fall off the segments.
func TurnArcFor(t Triple) (TurnArc, bool) {
	if t.Len() < 3 {
		return TurnArc{}, false
	}
	a, b, c := t.Waypoints[0], t.Waypoints[1], t.Waypoints[2]
	inDir, outDir := b.Pos.Sub(a.Pos), c.Pos.Sub(b.Pos)
	if inDir.Norm() < 1e-9 || outDir.Norm() < 1e-9 {
		return TurnArc{}, false
	}
	hIn, hOut := geometry.HeadingOf(inDir), geometry.HeadingOf(outDir)
	turn := geometry.AngleDiff(hIn, hOut)
	if math.Abs(turn) < minTurn || math.Abs(turn) > math.Pi-minTurn {
		return TurnArc{}, false
	}
	side := 1.0
	if turn > 0 {
		side = -1
	}
	h := math.Max(a.HalfWidth(), b.HalfWidth())
	nIn := geometry.RightNormal(hIn).Mul(side * h)
	nOut := geometry.RightNormal(hOut).Mul(side * h)
	center, ok := geometry.LineIntersection(a.Pos.Add(nIn), inDir, b.Pos.Add(nOut), outDir)
	if !ok {
		return TurnArc{}, false
	}
	arc := TurnArc{
		Center:     center,
		Radius:     h,
		In:         center.Sub(nIn),
		Out:        center.Sub(nOut),
		HeadingIn:  hIn,
		HeadingOut: hOut,
		Turn:       side,
	}
	_, fIn, _ := geometry.PointToSegmentSignedDistance(arc.In, a.Pos, b.Pos)
	_, fOut, _ := geometry.PointToSegmentSignedDistance(arc.Out, b.Pos, c.Pos)
	if fIn < 0 || fIn > 1 || fOut < 0 || fOut > 1 {
		return TurnArc{}, false
	}
	return arc, true
}

// detail answers a detailed query against the arc for a point inside its wedge.
func (a TurnArc) detail(p r2.Point) Detail {
	radial := p.Sub(a.Center)
	r := radial.Norm()
	unit := a.In.Sub(a.Center).Mul(1 / a.Radius)
	if r > 1e-9 {
		unit = radial.Mul(1 / r)
	}
	d := Detail{
		Distance:   math.Abs(r-a.Radius) - a.Radius,
		Centerline: a.Center.Add(unit.Mul(a.Radius)),
		Heading:    geometry.NormalizeAngle(geometry.HeadingOf(unit) - a.Turn*math.Pi/2),
		InTurn:     true,
	}
	switch {
	case r < a.Radius:
		d.Side = Side(a.Turn)
		d.Boundary = a.Center
	case r > a.Radius:
		d.Side = Side(-a.Turn)
		d.Boundary = a.Center.Add(unit.Mul(2 * a.Radius))
	default:
		d.Boundary = a.Center.Add(unit.Mul(2 * a.Radius))
	}
	return d
}

// DistanceOutsideTripleDetailed returns the distance outside the triple along with the nearest
// centerline point, the travel heading there and the corridor edge on p's side. Inside the turn
// wedge of the junction the corridor follows the turn arc, letting paths cut the corner.
func DistanceOutsideTripleDetailed(p r2.Point, t Triple) Detail {
	if arc, ok := TurnArcFor(t); ok && arc.Contains(p) {
		return arc.detail(p)
	}
	switch t.Len() {
	case 0:
		return Detail{Distance: math.Inf(1), Centerline: p, Boundary: p}
	case 1:
		wp := t.First()
		return edgeDetail(p, wp.Pos, geometry.HeadingOf(p.Sub(wp.Pos)), wp.HalfWidth())
	}
	best := Detail{Distance: math.Inf(1)}
	for i := 0; i < t.Segments(); i++ {
		a, b := t.Waypoints[i], t.Waypoints[i+1]
		_, _, nearest := geometry.PointToSegmentSignedDistance(p, a.Pos, b.Pos)
		d := edgeDetail(p, nearest, geometry.HeadingOf(b.Pos.Sub(a.Pos)), a.HalfWidth())
		if d.Distance < best.Distance {
			best = d
		}
	}
	return best
}

func edgeDetail(p, nearest r2.Point, heading, half float64) Detail {
	offset := p.Sub(nearest)
	dist := offset.Norm()
	d := Detail{
		Distance:   dist - half,
		Centerline: nearest,
		Heading:    heading,
	}
	_, lateral := geometry.Lateral(nearest, heading, p)
	switch {
	case lateral > 1e-9:
		d.Side = SideRight
	case lateral < -1e-9:
		d.Side = SideLeft
	}
	if dist > 1e-9 {
		d.Boundary = nearest.Add(offset.Mul(half / dist))
	} else {
		d.Boundary = nearest.Add(geometry.RightNormal(heading).Mul(half))
	}
	return d
}
