// Package impingement sweeps a candidate path's footprint across the terrain grid and the
// waypoint corridor and reports the nearest obstructions.
package impingement

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"github.com/ugvlab/arcnav/waypoint"
)

// Info is one obstruction or boundary contact along a path.
type Info struct {
	Found bool
	Pos   r2.Point
	// Offset is the signed lateral offset from the path centerline, right positive.
	Offset float64
	// Distance is the arc distance along the path.
	Distance float64
	// Passable, Possible and Unknown describe the terrain at the hit. Unknown is never set
	// together with Passable.
	Passable bool
	Possible bool
	Unknown  bool
	// Boundary is set for corridor contacts.
	Boundary bool
	// Deviation is how far a marginal cell sits from the local terrain plane.
	Deviation float64
	// Heading is the corridor direction at a boundary contact, or the path direction for
	// terrain hits.
	Heading float64
	// Edge is the corridor edge point nearest a boundary contact.
	Edge r2.Point
}

func (i Info) String() string {
	if !i.Found {
		return "none"
	}
	kind := "obstacle"
	switch {
	case i.Unknown:
		kind = "unknown"
	case i.Boundary:
		kind = "boundary"
	case i.Possible:
		kind = "rough"
	}
	return fmt.Sprintf("%s at %.2fm offset %.2fm", kind, i.Distance, i.Offset)
}

// Side returns which side of the path the hit is on.
func (i Info) Side() waypoint.Side {
	switch {
	case i.Offset > 0:
		return waypoint.SideRight
	case i.Offset < 0:
		return waypoint.SideLeft
	default:
		return waypoint.SideCenter
	}
}

// Group is the result of one scan: the nearest hit inside the vehicle's width and the
// shallowest hits in each shoulder.
type Group struct {
	Center Info
	Left   Info
	Right  Info
	// WorstTilt is the unit normal of the most tilted terrain plane crossed before any center
	// hit, zero when no plane was built.
	WorstTilt r3.Vector
}

// Clear reports whether nothing blocks the vehicle's width.
func (g Group) Clear() bool {
	return !g.Center.Found
}

// Touching reports whether anything reached either shoulder.
func (g Group) Touching() bool {
	return g.Left.Found || g.Right.Found
}

// BothSides reports whether both shoulders are impinged.
func (g Group) BothSides() bool {
	return g.Left.Found && g.Right.Found
}

// Tilt returns the angle of WorstTilt from vertical in radians.
func (g Group) Tilt() float64 {
	if g.WorstTilt.Norm() == 0 {
		return 0
	}
	return math.Acos(math.Min(1, math.Abs(g.WorstTilt.Normalize().Z)))
}

// Shoulder returns the shoulder hit on a side.
func (g Group) Shoulder(side waypoint.Side) Info {
	if side == waypoint.SideLeft {
		return g.Left
	}
	return g.Right
}

func (g Group) String() string {
	return fmt.Sprintf("center=%v left=%v right=%v tilt=%.1fdeg", g.Center, g.Left, g.Right, g.Tilt()*180/math.Pi)
}

// offerCenter keeps the nearer of two center hits by arc distance.
func (g *Group) offerCenter(hit Info) {
	if !g.Center.Found || hit.Distance < g.Center.Distance {
		g.Center = hit
	}
}

// offerShoulder keeps the deepest shoulder hit, the one closest to the vehicle body.
func (g *Group) offerShoulder(hit Info) {
	bucket := &g.Right
	if hit.Offset < 0 {
		bucket = &g.Left
	}
	if !bucket.Found || math.Abs(hit.Offset) < math.Abs(bucket.Offset) {
		*bucket = hit
	}
}
