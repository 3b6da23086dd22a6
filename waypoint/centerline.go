package waypoint

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/ugvlab/arcnav/geometry"
)

// piece is one straight or circular stretch of a centerline.
type piece struct {
	start     geometry.Pose
	curvature float64
	length    float64
	// center is set for arcs.
	center r2.Point
}

func (p piece) poseAt(s float64) geometry.Pose {
	pos, heading := geometry.PointAlongArc(p.start.Pos, p.start.Heading, p.curvature, s)
	return geometry.Pose{Pos: pos, Heading: heading}
}

// project returns the station along the piece closest to q, clamped to the piece.
func (p piece) project(q r2.Point) float64 {
	if p.curvature == 0 {
		forward, _ := geometry.Lateral(p.start.Pos, p.start.Heading, q)
		return math.Max(0, math.Min(p.length, forward))
	}
	u, v := p.start.Pos.Sub(p.center), q.Sub(p.center)
	angle := math.Atan2(u.Cross(v), u.Dot(v))
	s := -angle / p.curvature
	if s < 0 || s > p.length {
		// Pick the nearer end.
		if q.Sub(p.start.Pos).Norm() <= q.Sub(p.poseAt(p.length).Pos).Norm() {
			return 0
		}
		return p.length
	}
	return s
}

// Centerline is the drivable centre of a triple: the incoming segment, the turn arc when the
// junction has one, and the outgoing segment.
type Centerline struct {
	pieces []piece
	length float64
}

// NewCenterline builds the centerline of a triple.
func NewCenterline(t Triple) Centerline {
	var c Centerline
	if t.Len() < 2 {
		return c
	}
	if arc, ok := TurnArcFor(t); ok {
		a, w := t.Waypoints[0], t.Waypoints[2]
		c.addLine(a.Pos, arc.In)
		c.add(piece{
			start:     geometry.Pose{Pos: arc.In, Heading: arc.HeadingIn},
			curvature: arc.Curvature(),
			length:    arc.Length(),
			center:    arc.Center,
		})
		c.addLine(arc.Out, w.Pos)
		return c
	}
	for i := 0; i < t.Segments(); i++ {
		c.addLine(t.Waypoints[i].Pos, t.Waypoints[i+1].Pos)
	}
	return c
}

func (c *Centerline) addLine(from, to r2.Point) {
	d := to.Sub(from)
	if d.Norm() < 1e-9 {
		return
	}
	c.add(piece{start: geometry.Pose{Pos: from, Heading: geometry.HeadingOf(d)}, length: d.Norm()})
}

func (c *Centerline) add(p piece) {
	c.pieces = append(c.pieces, p)
	c.length += p.length
}

// Length returns the total centerline length.
func (c Centerline) Length() float64 {
	return c.length
}

// Empty reports whether the centerline has no extent.
func (c Centerline) Empty() bool {
	return len(c.pieces) == 0
}

// Project returns the station of the centerline point closest to q.
func (c Centerline) Project(q r2.Point) float64 {
	best, bestDist := 0., math.Inf(1)
	var offset float64
	for _, p := range c.pieces {
		s := p.project(q)
		if d := p.poseAt(s).Pos.Sub(q).Norm(); d < bestDist {
			best, bestDist = offset+s, d
		}
		offset += p.length
	}
	return best
}

// PoseAt returns the centerline pose at a station. Stations past the end extend the last
// piece in a straight line; negative stations clamp to the start.
func (c Centerline) PoseAt(station float64) geometry.Pose {
	if len(c.pieces) == 0 {
		return geometry.Pose{}
	}
	station = math.Max(0, station)
	for _, p := range c.pieces {
		if station <= p.length {
			return p.poseAt(station)
		}
		station -= p.length
	}
	last := c.pieces[len(c.pieces)-1]
	end := last.poseAt(last.length)
	end.Pos = end.Pos.Add(geometry.Direction(end.Heading).Mul(station))
	return end
}
