package planner

import (
	"math"

	"github.com/ugvlab/arcnav/curvedpath"
	"github.com/ugvlab/arcnav/geometry"
	"github.com/ugvlab/arcnav/waypoint"
)

const minGoalDistance = 0.1

// goalDistance is the centerline lookahead, never shorter than a quarter turn at full lock.
func (p *Planner) goalDistance() float64 {
	return math.Max(p.cfg.LookaheadDistance, (math.Pi/2)/p.cfg.MaxCurvature)
}

// goal picks the centerline pose the vehicle aims for. It shrinks the lookahead until a path to
// the goal keeps the vehicle body inside the corridor, returning that path too. When no
// lookahead down to one vehicle length works, it clamps the direct arc to the steering window
// and walks back along it to a point inside the corridor, and returns no path.
func (p *Planner) goal(c *cycle) (geometry.Pose, curvedpath.Path) {
	end := math.Inf(1)
	if c.finalLeg() {
		end = c.centerline.Length()
	}
	at := func(d float64) float64 {
		return math.Min(c.station+d, end)
	}

	dist := p.goalDistance()
	floor := math.Max(math.Min(p.cfg.VehicleLength, at(dist)-c.station), minGoalDistance)
	tried := math.NaN()
	for d := dist; d >= floor; d *= p.cfg.LookaheadShrink {
		station := at(d)
		if station == tried {
			continue
		}
		tried = station
		g := c.centerline.PoseAt(station)
		path := curvedpath.NewSteeringLag(c.start(&p.cfg, c.comfort))
		if path.SetEndHeading(g.Pos, g.Heading) && p.insideCorridor(c, path) {
			return g, path
		}
	}

	g := c.centerline.PoseAt(at(dist))
	if clamped, ok := p.clampedGoal(c, g); ok {
		p.logger.Debugw("goal clamped to steering limits", "goal", g, "clamped", clamped)
		return clamped, nil
	}
	p.logger.Debugw("no reachable goal inside corridor", "goal", g)
	return g, nil
}

// insideCorridor scans a path against the corridor alone with no shoulders.
func (p *Planner) insideCorridor(c *cycle, path curvedpath.Path) bool {
	group, _ := p.scanner.Scan(path, p.cfg.VehicleWidth, 0, path.Length(), p.cfg.ScanSegments, nil, &c.triple)
	return group.Clear()
}

// clampedGoal limits the arc to g to the steering window and shrinks it until its end lies
// inside the corridor.
func (p *Planner) clampedGoal(c *cycle, g geometry.Pose) (geometry.Pose, bool) {
	k, ok := geometry.TangentArcThroughPoints(c.pose.Pos, c.pose.Heading, g.Pos)
	if !ok {
		// Behind or on top of the vehicle: turn as hard as allowed towards it.
		_, lateral := geometry.Lateral(c.pose.Pos, c.pose.Heading, g.Pos)
		k = c.comfort.max
		if lateral < 0 {
			k = c.comfort.min
		}
	}
	k = c.comfort.clamp(k)
	for length := g.Pos.Sub(c.pose.Pos).Norm(); length >= p.cfg.VehicleLength; length *= p.cfg.LookaheadShrink {
		pos, heading := geometry.PointAlongArc(c.pose.Pos, c.pose.Heading, k, length)
		if waypoint.DistanceOutsideTriple(pos, c.triple) < 0 {
			return geometry.Pose{Pos: pos, Heading: heading}, true
		}
	}
	return geometry.Pose{}, false
}

// candidate builds the first path to try: the corridor-checked one from goal, or a fresh one to
// a clamped goal.
func (p *Planner) candidate(c *cycle, goal geometry.Pose, path curvedpath.Path) result {
	if path == nil {
		lag := curvedpath.NewSteeringLag(c.start(&p.cfg, c.comfort))
		if lag.SetEndHeading(goal.Pos, goal.Heading) {
			path = lag
		} else {
			arc := curvedpath.NewArc(c.start(&p.cfg, c.comfort))
			arc.SetEnd(goal.Pos)
			path = arc
		}
	}
	return p.evaluate(c, path)
}
