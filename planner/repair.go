package planner

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/ugvlab/arcnav/curvedpath"
	"github.com/ugvlab/arcnav/geometry"
	"github.com/ugvlab/arcnav/impingement"
	"github.com/ugvlab/arcnav/utils"
	"github.com/ugvlab/arcnav/waypoint"
)

// tightSpotShrink pulls a tight spot's path end towards the vehicle per step.
const tightSpotShrink = 0.9

// alignedHeading is how close a path must already run to a contact's edge to skip the repair.
var alignedHeading = utils.DegToRad(0.5)

// rebuild makes a path from the cycle start to pos arriving with heading, allowing for steering
// lag when it can.
func (p *Planner) rebuild(c *cycle, pos r2.Point, heading float64) (curvedpath.Path, bool) {
	start := c.start(&p.cfg, c.limits())
	lag := curvedpath.NewSteeringLag(start)
	if lag.SetEndHeading(pos, heading) {
		return lag, true
	}
	dual := curvedpath.NewDualArc(start)
	if dual.SetEndHeading(pos, heading) {
		return dual, true
	}
	return nil, false
}

// repair rebuilds a path that stops short of its end, or that brushes a corridor edge at an
// angle, so that it ends running along the obstacle or boundary edge. A blocked path is cut back
// to the contact; a path whose shoulder only brushes the edge keeps its end point. The result
// is an S-curve that comes in tangent instead of cutting across. The original is kept when the
// rebuilt path is not clear.
func (p *Planner) repair(c *cycle, r result) result {
	if !r.path.Valid() {
		return r
	}
	var contact impingement.Info
	var end geometry.Pose
	switch {
	case r.group.Center.Found:
		contact = r.group.Center
		dist := math.Min(r.clear, r.path.Length()) - p.cfg.RepairBackoff
		dist = math.Min(math.Max(dist, p.cfg.VehicleLength/2), r.path.Length())
		var ok bool
		if end, ok = r.path.PointAlongPath(dist); !ok {
			return r
		}
	case r.group.Left.Boundary || r.group.Right.Boundary:
		// A shoulder contact only turns the end onto the edge's heading.
		contact = boundaryContact(r.group)
		end = r.path.End()
	default:
		return r
	}
	heading := contact.Heading
	if math.Abs(geometry.AngleDiff(end.Heading, heading)) > math.Pi/2 {
		heading = end.Heading
	}
	if !r.group.Center.Found {
		at, _ := r.path.PointAlongPath(contact.Distance)
		if math.Abs(geometry.AngleDiff(at.Heading, heading)) < alignedHeading {
			return r
		}
	}

	path, ok := p.rebuild(c, end.Pos, heading)
	if !ok {
		return r
	}
	repaired := p.evaluate(c, path)
	if !repaired.group.Clear() {
		p.logger.Debugw("repair did not clear", "contact", contact, "hit", repaired.group.Center)
		return r
	}
	p.logger.Debugw("path repaired", "contact", contact, "end", geometry.Pose{Pos: end.Pos, Heading: heading})
	return repaired
}

// boundaryContact returns the deeper of the corridor shoulder contacts.
func boundaryContact(g impingement.Group) impingement.Info {
	switch {
	case !g.Right.Boundary:
		return g.Left
	case !g.Left.Boundary:
		return g.Right
	case math.Abs(g.Left.Offset) <= math.Abs(g.Right.Offset):
		return g.Left
	default:
		return g.Right
	}
}

// shoulderPenalty weighs how deep each shoulder is impinged. Contacts on the inside of the turn
// count more, since the body cuts inwards through a curve.
func (p *Planner) shoulderPenalty(r result) float64 {
	half := p.cfg.VehicleWidth/2 + p.cfg.ShoulderWidth
	var total float64
	for _, side := range []waypoint.Side{waypoint.SideLeft, waypoint.SideRight} {
		hit := r.group.Shoulder(side)
		if !hit.Found {
			continue
		}
		depth := half - math.Abs(hit.Offset)
		k := r.path.CurvatureAt(hit.Distance)
		if (k > geometry.StraightCurvature && hit.Offset > 0) || (k < -geometry.StraightCurvature && hit.Offset < 0) {
			depth *= p.cfg.InsideShoulderWeight
		}
		total += depth
	}
	return total
}

// improve nudges the end of a clear path sideways to ease shoulder contacts, and in a tight spot
// pulls the end back towards the vehicle.
func (p *Planner) improve(c *cycle, r result) result {
	if !r.path.Valid() || !r.group.Clear() || !r.group.Touching() {
		return r
	}
	best, bestPenalty := r, p.shoulderPenalty(r)
	offer := func(pos r2.Point, heading float64) bool {
		path, ok := p.rebuild(c, pos, heading)
		if !ok {
			return false
		}
		next := p.evaluate(c, path)
		if !next.group.Clear() {
			return false
		}
		if penalty := p.shoulderPenalty(next); penalty < bestPenalty-1e-9 {
			best, bestPenalty = next, penalty
			return true
		}
		return false
	}

	end := r.path.End()
	if p.cfg.EndOffsetSteps > 0 {
		for i := 1; i <= p.cfg.EndOffsetSteps; i++ {
			for _, side := range []float64{-1, 1} {
				o := side * p.cfg.EndOffsetMargin * float64(i) / float64(p.cfg.EndOffsetSteps)
				offer(end.Pos.Add(geometry.RightNormal(end.Heading).Mul(o)), end.Heading)
			}
		}
	}

	if p.tightSpot(c, best) {
		end = best.path.End()
		from := c.pose.Pos
		for i := 1; i <= p.cfg.TightSpotSteps; i++ {
			scale := math.Pow(tightSpotShrink, float64(i))
			if offer(from.Add(end.Pos.Sub(from).Mul(scale)), end.Heading) {
				break
			}
		}
	}
	if best.path != r.path {
		p.logger.Debugw("path end improved", "penalty", bestPenalty, "end", best.path.End())
	}
	return best
}

// tightSpot reports whether both shoulders are impinged, or one is while turning hard.
func (p *Planner) tightSpot(c *cycle, r result) bool {
	if r.group.BothSides() {
		return true
	}
	return r.group.Touching() && curvedpath.MaxAbsCurvature(r.path, r.path.Length()) >= c.limits().max/2
}
