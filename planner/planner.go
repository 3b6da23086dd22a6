// Package planner runs the per-cycle reactive planning loop: it locates the vehicle on the
// waypoint course, picks a goal down the corridor, finds a clear curved path to it and turns
// that path into a curvature and speed command.
package planner

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/samber/lo"

	"github.com/ugvlab/arcnav/curvedpath"
	"github.com/ugvlab/arcnav/geometry"
	"github.com/ugvlab/arcnav/impingement"
	"github.com/ugvlab/arcnav/logging"
	"github.com/ugvlab/arcnav/terrain"
	"github.com/ugvlab/arcnav/utils"
	"github.com/ugvlab/arcnav/waypoint"
)

// Planner produces one command per call to Plan. It keeps a little state between cycles (the
// previous path end, turn group and curvature) and is not safe for concurrent use.
type Planner struct {
	cfg     Config
	logger  logging.Logger
	scanner *impingement.Scanner
	ladder  []float64

	faults        faultLatch
	turnGroupHint int
	lastCurvature float64
	prevEnd       r2.Point
	havePrevEnd   bool
}

// New returns a planner for a validated config.
func New(cfg Config, logger logging.Logger) (*Planner, error) {
	if err := cfg.Validate("planner"); err != nil {
		return nil, err
	}
	return &Planner{
		cfg:           cfg,
		logger:        logger,
		scanner:       impingement.NewScanner(cfg.Scanner, logger.Sublogger("scanner")),
		ladder:        curvatureLadder(cfg),
		turnGroupHint: waypoint.NoTurnGroupHint,
	}, nil
}

// Config returns the planner's config.
func (p *Planner) Config() Config {
	return p.cfg
}

// SetRoughnessThreshold recalibrates the marginal terrain acceptance.
func (p *Planner) SetRoughnessThreshold(threshold float64) {
	p.cfg.Scanner.RoughnessThreshold = threshold
	p.scanner.SetRoughnessThreshold(threshold)
}

// SetRoadBiasWeight recalibrates how strongly road following steers the curvature search.
func (p *Planner) SetRoadBiasWeight(weight float64) {
	p.cfg.RoadBiasWeight = weight
}

// Reset forgets everything carried between cycles.
func (p *Planner) Reset() {
	p.faults = faultLatch{}
	p.turnGroupHint = waypoint.NoTurnGroupHint
	p.lastCurvature = 0
	p.havePrevEnd = false
}

// cycle is the working state of one Plan call. Poses and curvatures are in the travel frame,
// which faces the direction of motion, so reverse driving plans like forward driving.
type cycle struct {
	state     VehicleState
	reverse   bool
	pose      geometry.Pose
	curvature float64
	speed     float64
	dt        float64

	// comfort is the curvature window the lateral acceleration limit allows at speed;
	// mechanical is the steering's full range.
	comfort    window
	mechanical window
	brakeHard  bool
	slowed     bool
	widened    bool

	grid       terrain.Grid
	src        waypoint.Source
	triple     waypoint.Triple
	centerline waypoint.Centerline
	station    float64
}

func (p *Planner) newCycle(state VehicleState, grid terrain.Grid, src waypoint.Source) *cycle {
	c := &cycle{
		state:      state,
		reverse:    state.Direction == Reverse,
		pose:       state.Pose,
		curvature:  state.Curvature,
		speed:      math.Abs(state.Speed),
		dt:         state.Elapsed.Seconds(),
		mechanical: symmetric(p.cfg.MaxCurvature),
		grid:       grid,
		src:        src,
	}
	if c.reverse {
		c.pose.Heading = geometry.NormalizeAngle(c.pose.Heading + math.Pi)
		c.curvature = -c.curvature
	}
	if c.dt <= 0 {
		c.dt = p.cfg.cyclePeriod()
	}
	c.comfort = symmetric(p.cfg.curvatureLimit(c.speed))
	return c
}

// limits is the window paths are built within this cycle.
func (c *cycle) limits() window {
	if c.brakeHard {
		return c.mechanical
	}
	return c.comfort
}

func (c *cycle) start(cfg *Config, w window) curvedpath.Start {
	return curvedpath.Start{
		Pose:             c.pose,
		Speed:            c.speed,
		Curvature:        c.curvature,
		SettleDistance:   cfg.SettleTime * c.speed,
		MinCurvature:     w.min,
		MaxCurvature:     w.max,
		MaxCurvatureRate: cfg.MaxCurvatureRate,
		Lookahead:        cfg.SteerLookahead,
	}
}

// toVehicle converts a travel frame curvature to the vehicle frame.
func (c *cycle) toVehicle(k float64) float64 {
	if c.reverse {
		return -k
	}
	return k
}

// result is a path with its latest scan.
type result struct {
	path  curvedpath.Path
	group impingement.Group
	clear float64
}

func (p *Planner) evaluate(c *cycle, path curvedpath.Path) result {
	group, clear := p.scanner.Scan(path, p.cfg.VehicleWidth, p.cfg.ShoulderWidth, path.Length(), p.cfg.ScanSegments, c.grid, &c.triple)
	return result{path: path, group: group, clear: clear}
}

// Plan runs one cycle. grid may be nil when no terrain is sensed. A faulted cycle commands a
// stop and holds the last good curvature.
func (p *Planner) Plan(state VehicleState, grid terrain.Grid, src waypoint.Source) Output {
	p.faults.begin()
	c := p.newCycle(state, grid, src)
	out := p.plan(c)
	out.Fault = p.faults.current
	if p.faults.changed() {
		p.logger.Infow("fault changed", "from", p.faults.previous, "to", p.faults.current)
	}

	if out.Fault != FaultNone {
		out.Speed = 0
		out.Curvature = p.lastCurvature
		return out
	}
	p.lastCurvature = out.Curvature
	if out.Path != nil {
		p.prevEnd = out.Path.End().Pos
		p.havePrevEnd = true
	}
	p.logger.Debugw("cycle",
		"curvature", out.Curvature,
		"speed", out.Speed,
		"safe", out.SafeDistance,
		"goal", out.Goal,
		"brake_hard", out.BrakeHard,
		"widened", out.Widened,
	)
	return out
}

func (p *Planner) plan(c *cycle) Output {
	var out Output
	if !p.locate(c) {
		return out
	}
	out.Widened = c.widened
	if p.done(c) {
		p.faults.raise(FaultDone)
		p.logger.Infow("mission complete", "pos", c.state.Pose.Pos)
		return out
	}

	goal, path := p.goal(c)
	out.Goal = goal
	r := p.candidate(c, goal, path)
	if !r.group.Clear() {
		if found, ok := p.search(c, goal); ok {
			r = found
		} else {
			p.logger.Debugw("no curvature clears", "blocked_at", r.clear, "hit", r.group.Center)
		}
	}
	out.BrakeHard = c.brakeHard

	r = p.repair(c, r)
	r = p.improve(c, r)
	out.Path = r.path
	if !r.path.Valid() {
		p.faults.raise(FaultDrivingFault)
		p.logger.Warnw("no valid path to goal", "goal", goal, "path", r.path.Dump())
		return out
	}

	goalDist := goal.Pos.Sub(c.pose.Pos).Norm()
	safe, group, ok := p.check(c, r, goalDist)
	out.SafeDistance = safe
	if !ok {
		p.faults.raise(FaultObstacle)
		p.logger.Warnw("obstacle ahead", "hit", group.Center, "safe", safe)
		return out
	}
	if tilt := group.Tilt(); tilt > p.cfg.MaxTilt {
		out.Tilted = true
		p.logger.Warnw("path crosses steep terrain", "tilt", tilt, "max", p.cfg.MaxTilt,
			"pitch", c.state.Pitch, "roll", c.state.Roll)
		if p.cfg.RejectTiltedPaths {
			p.faults.raise(FaultTiltedPath)
			return out
		}
	}

	k := c.limits().clamp(r.path.SteerToPath(p.cfg.SteerLookahead + p.cfg.SettleTime*c.speed))
	out.Curvature = c.toVehicle(k)
	out.Speed, out.Limits = p.speed(c, safe, k)
	return out
}

// locate finds the corridor the vehicle is in, widening it when the vehicle is only slightly
// outside.
func (p *Planner) locate(c *cycle) bool {
	t, ok := waypoint.GetRelevantWaypointTriple(c.src, c.state.Pose.Pos, c.reverse, p.turnGroupHint)
	if !ok {
		p.faults.raise(FaultDrivingFault)
		p.logger.Warnw("no sequential waypoints near vehicle", "pos", c.state.Pose.Pos)
		return false
	}
	if !t.Sequential(c.src) {
		p.faults.raise(FaultDrivingFault)
		p.logger.Warnw("waypoint triple is not sequential", "triple", t)
		return false
	}
	outside := waypoint.DistanceOutsideTriple(c.pose.Pos, t)
	tolerance := p.cfg.OffCourseTolerance
	if startingOut(c.src, t) {
		tolerance = p.cfg.FirstWaypointTolerance
	}
	if outside > tolerance {
		p.faults.raise(FaultOffCourse)
		p.logger.Warnw("off course", "outside", outside, "tolerance", tolerance, "triple", t)
		return false
	}
	// Widen until the whole body fits so the scans can see a way back. Only a centre outside the
	// corridor counts as recovering, which holds the speed down.
	if overhang := outside + p.cfg.VehicleWidth/2; overhang > 0 {
		extra := 2 * (overhang + p.cfg.WidenMargin)
		t = t.Widened(extra)
		c.widened = outside > 0
		if c.widened {
			p.logger.Infow("recovering to corridor", "outside", outside, "extra", extra)
		} else {
			p.logger.Debugw("corridor widened to fit body", "outside", outside, "extra", extra)
		}
	}
	c.triple = t
	c.centerline = waypoint.NewCenterline(t)
	c.station = c.centerline.Project(c.pose.Pos)
	p.turnGroupHint = t.First().TurnGroup
	return true
}

// startingOut reports whether the vehicle is on the course's first segment, where it is allowed
// to start further from the corridor.
func startingOut(src waypoint.Source, t waypoint.Triple) bool {
	current := t.Waypoints[:utils.ClampInt(t.Len(), 0, 2)]
	return lo.ContainsBy(current, func(wp waypoint.Waypoint) bool {
		return wp.Serial == src.FirstSerial()
	})
}

// done reports whether the vehicle has reached the end of an open course.
func (p *Planner) done(c *cycle) bool {
	if c.reverse || c.src.ClosedCourse() || !c.finalLeg() {
		return false
	}
	last := c.triple.Last()
	return c.pose.Pos.Sub(last.Pos).Norm() <= last.HalfWidth() || c.station >= c.centerline.Length()
}

// finalLeg reports whether the triple's last waypoint ends an open course.
func (c *cycle) finalLeg() bool {
	return !c.reverse && !c.src.ClosedCourse() && c.triple.Len() == 2 && c.triple.Last().Serial == c.src.LastSerial()
}

// speed applies every speed limit to the command.
func (p *Planner) speed(c *cycle, safe, curvature float64) (float64, SpeedLimits) {
	limit := c.triple.SpeedLimit()
	if limit <= 0 {
		limit = p.cfg.MaxSpeed
	}
	lim := SpeedLimits{
		Waypoint:  math.Min(limit, p.cfg.MaxSpeed),
		Braking:   p.cfg.brakingSpeed(safe),
		Ramp:      c.speed + p.cfg.MaxAccel*c.dt,
		Curvature: p.cfg.curvatureSpeed(curvature),
		Reverse:   math.Inf(1),
	}
	if c.reverse {
		lim.Reverse = p.cfg.ReverseMaxSpeed
	}
	v := lim.Min()
	if c.widened || c.brakeHard {
		v = math.Min(v, p.cfg.MinSpeed)
	}
	if c.slowed {
		v = math.Min(v, c.speed/2)
	}
	return math.Max(v, p.cfg.MinSpeed), lim
}
