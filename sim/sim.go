package sim

import (
	"context"
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/ugvlab/arcnav/geometry"
	"github.com/ugvlab/arcnav/logging"
	"github.com/ugvlab/arcnav/planner"
)

// Reason is why a run ended.
type Reason string

// Reasons.
const (
	ReasonDone     Reason = "done"
	ReasonMaxTicks Reason = "max_ticks"
	ReasonStuck    Reason = "stuck"
	ReasonCanceled Reason = "canceled"
)

// stationary is the speed below which the vehicle counts as stopped.
const stationary = 1e-3

// Tick is one planning cycle of a run.
type Tick struct {
	Index  int
	Time   float64
	State  planner.VehicleState
	Output planner.Output
	// PlanTime is the wall time Plan took.
	PlanTime time.Duration
}

// Result is the record of a run.
type Result struct {
	ID       string
	Name     string
	Ticks    []Tick
	Reason   Reason
	Odometer float64
}

type runOptions struct {
	clk      clock.Clock
	realtime bool
}

// Option configures Run.
type Option func(*runOptions)

// WithClock times planning cycles, and paces realtime runs, with clk.
func WithClock(clk clock.Clock) Option {
	return func(o *runOptions) { o.clk = clk }
}

// WithRealtime paces the run so each cycle takes at least the scenario period of wall time.
func WithRealtime() Option {
	return func(o *runOptions) { o.realtime = true }
}

// Final returns the last cycle's output.
func (r *Result) Final() planner.Output {
	if len(r.Ticks) == 0 {
		return planner.Output{}
	}
	return r.Ticks[len(r.Ticks)-1].Output
}

// Run plans and drives the scenario until the planner reports the course done, the vehicle
// sits faulted for StuckTicks cycles, MaxTicks elapse or ctx is canceled.
func Run(ctx context.Context, sc *Scenario, logger logging.Logger, opts ...Option) (*Result, error) {
	o := runOptions{clk: clock.New()}
	for _, opt := range opts {
		opt(&o)
	}
	course, err := sc.Course()
	if err != nil {
		return nil, errors.Wrap(err, "cannot build course")
	}
	grid, err := sc.BuildGrid()
	if err != nil {
		return nil, errors.Wrap(err, "cannot build grid")
	}
	p, err := planner.New(sc.Planner, logger.Sublogger("planner"))
	if err != nil {
		return nil, err
	}

	v := NewVehicle(sc.InitialState(), sc.Planner)
	res := &Result{ID: uuid.NewString(), Name: sc.Name, Reason: ReasonMaxTicks}
	logger.Debugw("run starting", "id", res.ID, "scenario", sc.Name, "start", v.State.Pose)
	stuck := 0
	for i := 0; i < sc.MaxTicks; i++ {
		if err := ctx.Err(); err != nil {
			res.Reason = ReasonCanceled
			res.Odometer = v.Odometer
			return res, errors.Wrapf(err, "run stopped at tick %d", i)
		}
		v.State.Pitch, v.State.Roll = sc.attitude(v.State.Pose)
		began := o.clk.Now()
		out := p.Plan(v.State, grid, course)
		took := o.clk.Since(began)
		res.Ticks = append(res.Ticks, Tick{
			Index: i, Time: float64(i) * sc.Period, State: v.State, Output: out, PlanTime: took,
		})
		if out.Fault == planner.FaultDone {
			res.Reason = ReasonDone
			break
		}
		v.Step(out, sc.Period)

		if !out.Ok() && v.State.Speed < stationary {
			stuck++
		} else {
			stuck = 0
		}
		if sc.StuckTicks > 0 && stuck >= sc.StuckTicks {
			res.Reason = ReasonStuck
			logger.Warnw("vehicle stuck", "tick", i, "fault", out.Fault, "pose", v.State.Pose)
			break
		}
		if o.realtime {
			if rest := sc.period() - took; rest > 0 {
				select {
				case <-ctx.Done():
				case <-o.clk.After(rest):
				}
			}
		}
	}
	res.Odometer = v.Odometer
	logger.Infow("run finished", "id", res.ID, "scenario", sc.Name, "reason", res.Reason, "ticks", len(res.Ticks),
		"odometer", res.Odometer)
	return res, nil
}

// attitude returns the pitch and roll of the vehicle on the scenario's sloped ground.
func (sc *Scenario) attitude(pose geometry.Pose) (pitch, roll float64) {
	slope := sc.Grid.Slope
	pitch = math.Atan(slope.Dot(geometry.Direction(pose.Heading)))
	roll = math.Atan(slope.Dot(geometry.RightNormal(pose.Heading)))
	return pitch, roll
}

// RunAll runs scenarios concurrently. Results are in scenario order. The first error cancels
// the remaining runs.
func RunAll(ctx context.Context, scenarios []*Scenario, logger logging.Logger, opts ...Option) ([]*Result, error) {
	results := make([]*Result, len(scenarios))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, sc := range scenarios {
		group.Go(func() error {
			res, err := Run(groupCtx, sc, logger.Sublogger(sc.Name), opts...)
			if err != nil {
				return errors.Wrapf(err, "scenario %q", sc.Name)
			}
			results[i] = res
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
