package planner

import (
	"math"

	"github.com/ugvlab/arcnav/curvedpath"
	"github.com/ugvlab/arcnav/impingement"
)

// check makes sure the vehicle can stop a vehicle length plus margin short of anything on the
// path, with shoulders widened in proportion to the stopping distance. The path is extended
// straight so the check always reaches the goal distance and the stopping distance. A failure is
// retried once at half speed with half the stop margin. It returns the safe distance, the scan
// and whether either attempt passed.
func (p *Planner) check(c *cycle, r result, goalDist float64) (float64, impingement.Group, bool) {
	stop := p.cfg.stoppingDistance(c.speed)
	reach := p.cfg.VehicleLength + p.cfg.StopMargin
	shoulder := p.cfg.ShoulderWidth + p.cfg.StopShoulderGain*stop
	length := math.Max(math.Max(r.path.Length(), goalDist), stop+reach)
	extended := curvedpath.Extend(r.path, length)
	group, clear := p.scanner.Scan(extended, p.cfg.VehicleWidth, shoulder, length, p.cfg.ScanSegments, c.grid, &c.triple)
	if group.Clear() {
		return clear, group, true
	}

	margin := p.cfg.StopMargin
	for attempt, speed := range []float64{c.speed, c.speed / 2} {
		short := p.cfg.VehicleLength + margin
		if clear >= p.cfg.stoppingDistance(speed)+short {
			c.slowed = attempt > 0
			if c.slowed {
				p.logger.Debugw("passed at reduced speed", "speed", speed, "clear", clear, "margin", margin)
			}
			return math.Max(0, clear-short), group, true
		}
		margin /= 2
	}
	return math.Max(0, clear-reach), group, false
}
