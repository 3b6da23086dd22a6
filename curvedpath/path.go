// Package curvedpath defines the candidate trajectories the planner builds each cycle: a single
// arc, a dual arc (S-curve) and a dual arc corrected for steering lag.
package curvedpath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ugvlab/arcnav/geometry"
	"github.com/ugvlab/arcnav/utils"
)

// Overrun is how far past its length, as a fraction, a path may be sampled.
const Overrun = 1.1

// Start is the vehicle state and steering limits a path is derived from.
type Start struct {
	Pose geometry.Pose
	// Speed in m/s, used to size the steering lag.
	Speed float64
	// Curvature currently steered.
	Curvature float64
	// SettleDistance is travelled before a newly commanded curvature takes mechanical effect.
	SettleDistance float64
	// MinCurvature and MaxCurvature bound the curvature a path may use. Both zero means unbounded.
	MinCurvature float64
	MaxCurvature float64
	// MaxCurvatureRate is the steering rate limit in curvature per second.
	MaxCurvatureRate float64
	// Lookahead is the default distance SteerToPath aims at.
	Lookahead float64
}

func (s Start) bounded() bool {
	return s.MinCurvature != 0 || s.MaxCurvature != 0
}

// allows reports whether a curvature is within the start's limits.
func (s Start) allows(curvature float64) bool {
	const eps = 1e-9
	if !s.bounded() {
		return true
	}
	return curvature >= s.MinCurvature-eps && curvature <= s.MaxCurvature+eps
}

// Clamp limits a curvature to the start's limits.
func (s Start) Clamp(curvature float64) float64 {
	if !s.bounded() {
		return curvature
	}
	return utils.Clamp(curvature, s.MinCurvature, s.MaxCurvature)
}

// Path is a candidate vehicle trajectory. SetEnd may be called repeatedly; each call re-derives
// the whole path from the stored start.
type Path interface {
	SetStart(start Start)
	Start() Start
	// SetEnd derives the path to pos and reports whether it is valid.
	SetEnd(pos r2.Point) bool
	// SetEndHeading derives the path to pos arriving with heading. Arc ignores the heading.
	SetEndHeading(pos r2.Point, heading float64) bool
	Valid() bool
	Length() float64
	End() geometry.Pose
	// PointAlongPath returns the pose dist along the path. It fails outside [0, 1.1*Length()].
	PointAlongPath(dist float64) (geometry.Pose, bool)
	CurvatureAt(dist float64) float64
	// SteeringCurvature is the curvature to command once the settle distance has passed.
	SteeringCurvature() float64
	// SteerToPath returns the clamped curvature of the tangent arc to the point lookahead ahead.
	SteerToPath(lookahead float64) float64
	Clear()
	Dump() string
}

// segment is one constant curvature piece of a path.
type segment struct {
	start     geometry.Pose
	curvature float64
	length    float64
}

func (seg segment) poseAt(dist float64) geometry.Pose {
	pos, heading := geometry.PointAlongArc(seg.start.Pos, seg.start.Heading, seg.curvature, dist)
	return geometry.Pose{Pos: pos, Heading: heading}
}

func (seg segment) end() geometry.Pose {
	return seg.poseAt(seg.length)
}

// poseAlong walks a chain of segments. Distances past the end continue along the last segment.
func poseAlong(segs []segment, dist float64) geometry.Pose {
	for i, seg := range segs {
		if dist <= seg.length || i == len(segs)-1 {
			return seg.poseAt(dist)
		}
		dist -= seg.length
	}
	return geometry.Pose{}
}

func curvatureAlong(segs []segment, dist float64) float64 {
	for i, seg := range segs {
		if dist < seg.length || i == len(segs)-1 {
			return seg.curvature
		}
		dist -= seg.length
	}
	return 0
}

func totalLength(segs []segment) float64 {
	var total float64
	for _, seg := range segs {
		total += seg.length
	}
	return total
}

// pointAlong applies the shared sampling bounds.
func pointAlong(valid bool, segs []segment, dist float64) (geometry.Pose, bool) {
	length := totalLength(segs)
	if !valid || dist < 0 || dist > Overrun*length+1e-9 {
		return geometry.Pose{}, false
	}
	return poseAlong(segs, dist), true
}

func dumpSegments(kind string, start Start, valid bool, segs []segment) string {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("%s from %v (valid=%v)", kind, start.Pose, valid))
	t.AppendHeader(table.Row{"#", "Curvature", "Radius", "Length", "Start", "End"})
	for i, seg := range segs {
		radius := "straight"
		if !geometry.IsStraight(seg.curvature) {
			radius = fmt.Sprintf("%.2f", 1/seg.curvature)
		}
		t.AppendRow(table.Row{
			i,
			fmt.Sprintf("%.4f", seg.curvature),
			radius,
			fmt.Sprintf("%.3f", seg.length),
			seg.start.String(),
			seg.end().String(),
		})
	}
	t.AppendFooter(table.Row{"", "", "total", fmt.Sprintf("%.3f", totalLength(segs)), "", ""})
	return t.Render()
}

// SteerToPath is the steering law every variant shares: aim at the path point lookahead ahead
// (capped at the path end) with a tangent arc from the start pose, then clamp to the limits.
// When no tangent arc exists the path's own steering curvature is clamped instead.
func SteerToPath(p Path, lookahead float64) float64 {
	start := p.Start()
	if !p.Valid() {
		return start.Clamp(start.Curvature)
	}
	dist := math.Min(math.Max(lookahead, 0), p.Length())
	if target, ok := p.PointAlongPath(dist); ok {
		if k, ok := geometry.TangentArcThroughPoints(start.Pose.Pos, start.Pose.Heading, target.Pos); ok {
			return start.Clamp(k)
		}
	}
	return start.Clamp(p.SteeringCurvature())
}

// MaxAbsCurvature returns the largest curvature magnitude a path uses up to dist.
func MaxAbsCurvature(p Path, dist float64) float64 {
	const samples = 8
	var worst float64
	for i := 0; i <= samples; i++ {
		worst = math.Max(worst, math.Abs(p.CurvatureAt(dist*float64(i)/samples)))
	}
	return worst
}
