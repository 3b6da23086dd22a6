package planner

import (
	"math"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"

	"github.com/ugvlab/arcnav/curvedpath"
	"github.com/ugvlab/arcnav/geometry"
)

// ladderSpan is the ratio between the sharpest and the gentlest ladder curvature.
const ladderSpan = 32

// curvatureLadder returns straight ahead followed by log spaced curvatures up to full lock,
// alternating right and left.
func curvatureLadder(cfg Config) []float64 {
	mags := floats.LogSpan(make([]float64, cfg.LadderSteps), cfg.MaxCurvature/ladderSpan, cfg.MaxCurvature)
	ladder := make([]float64, 0, 2*len(mags)+1)
	ladder = append(ladder, 0)
	for _, m := range mags {
		ladder = append(ladder, m, -m)
	}
	return ladder
}

// schedule lists the curvatures to search: the current one, the one aimed straight at the goal,
// then the ladder.
func (p *Planner) schedule(c *cycle, goal geometry.Pose) []float64 {
	ks := []float64{c.curvature}
	if k, ok := geometry.TangentArcThroughPoints(c.pose.Pos, c.pose.Heading, goal.Pos); ok {
		ks = append(ks, k)
	}
	ks = append(ks, p.ladder...)
	ks = lo.UniqBy(ks, func(k float64) int64 {
		return int64(math.Round(k * 1e6))
	})
	if len(ks) > p.cfg.MaxScheduleLength {
		ks = ks[:p.cfg.MaxScheduleLength]
	}
	return ks
}

type candidate struct {
	result
	curvature float64
	score     float64
}

// search tries constant curvature arcs towards the goal and keeps the best scoring one that
// clears at least half a vehicle length. Curvatures inside the comfortable window are tried
// first; only if none clears are the rest of the mechanical range tried, which marks the cycle
// brake-hard.
func (p *Planner) search(c *cycle, goal geometry.Pose) (result, bool) {
	length := goal.Pos.Sub(c.pose.Pos).Norm()
	if length < minGoalDistance {
		return result{}, false
	}
	schedule := p.schedule(c, goal)
	passes := []func(k float64) bool{
		c.comfort.contains,
		func(k float64) bool { return c.mechanical.contains(k) && !c.comfort.contains(k) },
	}
	for pass, allowed := range passes {
		w := c.comfort
		if pass > 0 {
			w = c.mechanical
		}
		cands := lo.FilterMap(schedule, func(k float64, _ int) (candidate, bool) {
			if !allowed(k) {
				return candidate{}, false
			}
			r := p.evaluate(c, curvedpath.NewArcWithCurvature(c.start(&p.cfg, w), k, length))
			if r.clear < p.cfg.VehicleLength/2 {
				return candidate{}, false
			}
			return candidate{result: r, curvature: k, score: p.score(c, r, goal, k)}, true
		})
		if len(cands) == 0 {
			continue
		}
		best := lo.MaxBy(cands, func(a, b candidate) bool {
			return a.score > b.score
		})
		if pass > 0 {
			c.brakeHard = true
			p.logger.Warnw("only a hard turn clears, braking", "curvature", best.curvature, "clear", best.clear)
		}
		p.logger.Debugw("curvature search", "curvature", best.curvature, "clear", best.clear, "score", best.score,
			"tried", len(schedule))
		return best.result, true
	}
	return result{}, false
}

// score rewards progress towards the goal, penalises moving the path end since last cycle and
// follows the road bias when the grid has one.
func (p *Planner) score(c *cycle, r result, goal geometry.Pose, k float64) float64 {
	reach, ok := r.path.PointAlongPath(r.clear)
	if !ok {
		return math.Inf(-1)
	}
	s := goal.Pos.Sub(c.pose.Pos).Norm() - reach.Pos.Sub(goal.Pos).Norm()
	if p.havePrevEnd {
		s -= p.cfg.PathChangeWeight * r.path.End().Pos.Sub(p.prevEnd).Norm()
	}
	if c.grid != nil {
		bias := c.grid.RoadFollowBias()
		if bias.Confidence > 0 {
			want := c.toVehicle(bias.Curvature)
			s += p.cfg.RoadBiasWeight * bias.Confidence * (1 - math.Min(1, math.Abs(k-want)/p.cfg.MaxCurvature))
		}
	}
	return s
}
