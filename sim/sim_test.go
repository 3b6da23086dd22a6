package sim

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/ugvlab/arcnav/geometry"
	"github.com/ugvlab/arcnav/logging"
	"github.com/ugvlab/arcnav/planner"
	"github.com/ugvlab/arcnav/terrain"
	"github.com/ugvlab/arcnav/waypoint"
)

func TestLoadScenario(t *testing.T) {
	sc, err := LoadScenario(filepath.Join("testdata", "straight.json5"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sc.Name, test.ShouldEqual, "straight")
	test.That(t, sc.Waypoints, test.ShouldHaveLength, 2)
	test.That(t, sc.Waypoints[1].Pos, test.ShouldResemble, r2.Point{X: 30, Y: 0})
	test.That(t, sc.Waypoints[1].Width, test.ShouldEqual, 6.)
	test.That(t, sc.Grid.Cols, test.ShouldEqual, 120)
	test.That(t, sc.MaxTicks, test.ShouldEqual, 1000)
	// Left out of the file.
	test.That(t, sc.StuckTicks, test.ShouldEqual, 50)
	test.That(t, sc.Planner, test.ShouldResemble, planner.DefaultConfig())

	sc, err = LoadScenario(filepath.Join("testdata", "dogleg.json5"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sc.Planner.MaxSpeed, test.ShouldEqual, 4.)
	test.That(t, sc.Planner.LookaheadDistance, test.ShouldEqual, 14.)
	test.That(t, sc.Planner.VehicleLength, test.ShouldEqual, planner.DefaultConfig().VehicleLength)
	test.That(t, sc.Regions, test.ShouldHaveLength, 2)

	_, err = LoadScenario(filepath.Join("testdata", "missing.json5"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "cannot read scenario")
}

func TestScenarioValidate(t *testing.T) {
	sc := NewScenario()
	sc.Waypoints = []waypoint.Waypoint{{Serial: 1, Width: 4}}
	sc.Regions = []Region{{Class: "lava"}}
	sc.Period = 0
	err := sc.Validate("scenario")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "at least two waypoints")
	test.That(t, err.Error(), test.ShouldContainSubstring, "period")
	test.That(t, err.Error(), test.ShouldContainSubstring, "lava")

	path := filepath.Join(t.TempDir(), "bad.json5")
	test.That(t, os.WriteFile(path, []byte(`{waypoints: [`), 0o600), test.ShouldBeNil)
	_, err = LoadScenario(path)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "cannot parse scenario")
}

func TestBuildGrid(t *testing.T) {
	sc, err := LoadScenario(filepath.Join("testdata", "dogleg.json5"))
	test.That(t, err, test.ShouldBeNil)
	elevated := 2.0
	sc.Regions = append(sc.Regions, Region{Min: r2.Point{X: 0, Y: 0}, Max: r2.Point{X: 1, Y: 1}, Elevation: &elevated})
	g, err := sc.BuildGrid()
	test.That(t, err, test.ShouldBeNil)

	ix, iy := g.CoordToCell(r2.Point{X: 18.75, Y: 1.25})
	test.That(t, g.Class(ix, iy), test.ShouldEqual, terrain.ClassImpassable)
	ix, iy = g.CoordToCell(r2.Point{X: 32.25, Y: -2.25})
	test.That(t, g.Class(ix, iy), test.ShouldEqual, terrain.ClassPossible)

	// The slope sets elevation everywhere, and the region overrides it.
	ix, iy = g.CoordToCell(r2.Point{X: 10.25, Y: 5.25})
	e, ok := g.ElevationAt(ix, iy)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, e, test.ShouldAlmostEqual, 0.1025)
	ix, iy = g.CoordToCell(r2.Point{X: 0.25, Y: 0.25})
	e, _ = g.ElevationAt(ix, iy)
	test.That(t, e, test.ShouldEqual, 2.)
}

func TestVehicleStep(t *testing.T) {
	cfg := planner.DefaultConfig()

	v := NewVehicle(planner.VehicleState{}, cfg)
	v.Step(planner.Output{Speed: 5, Curvature: 0.2}, 0.1)
	test.That(t, v.State.Speed, test.ShouldAlmostEqual, 0.05)
	test.That(t, v.State.Curvature, test.ShouldAlmostEqual, 0.01)
	test.That(t, v.Odometer, test.ShouldAlmostEqual, 0.0025)
	test.That(t, v.State.Pose.Pos.X, test.ShouldAlmostEqual, 0.0025, 1e-6)
	// A right turn lowers the heading.
	test.That(t, v.State.Pose.Heading, test.ShouldBeLessThan, 0)

	v = NewVehicle(planner.VehicleState{Speed: 2}, cfg)
	v.Step(planner.Output{Speed: 0}, 0.1)
	test.That(t, v.State.Speed, test.ShouldAlmostEqual, 1.7)

	v = NewVehicle(planner.VehicleState{Speed: 1, Direction: planner.Reverse}, cfg)
	v.Step(planner.Output{Speed: 1}, 0.1)
	test.That(t, v.State.Pose.Pos.X, test.ShouldAlmostEqual, -0.1)
	test.That(t, v.State.Pose.Heading, test.ShouldAlmostEqual, 0)

	// Reversing with right curvature swings the nose left.
	v = NewVehicle(planner.VehicleState{Speed: 1, Curvature: 0.1, Direction: planner.Reverse}, cfg)
	v.Step(planner.Output{Speed: 1, Curvature: 0.1}, 1)
	test.That(t, v.State.Pose.Heading, test.ShouldBeGreaterThan, 0)
	test.That(t, v.State.Pose.Pos.X, test.ShouldBeLessThan, 0)
}

func TestAttitude(t *testing.T) {
	sc := NewScenario()
	sc.Grid.Slope = r2.Point{X: 0.1}
	pitch, roll := sc.attitude(geometry.Pose{})
	test.That(t, pitch, test.ShouldAlmostEqual, 0.0996686, 1e-6)
	test.That(t, roll, test.ShouldAlmostEqual, 0, 1e-9)
}

func TestRunStraightCourse(t *testing.T) {
	sc, err := LoadScenario(filepath.Join("testdata", "straight.json5"))
	test.That(t, err, test.ShouldBeNil)
	res, err := Run(context.Background(), sc, logging.NewTestLogger(t), WithClock(clock.NewMock()))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.ID, test.ShouldNotBeEmpty)
	test.That(t, res.Reason, test.ShouldEqual, ReasonDone)
	test.That(t, res.Final().Fault, test.ShouldEqual, planner.FaultDone)
	test.That(t, len(res.Ticks), test.ShouldBeLessThan, sc.MaxTicks)

	last := res.Ticks[len(res.Ticks)-1].State.Pose
	test.That(t, last.Pos.X, test.ShouldBeGreaterThanOrEqualTo, 27)
	test.That(t, last.Pos.Y, test.ShouldAlmostEqual, 0, 1e-3)
	test.That(t, res.Odometer, test.ShouldBeGreaterThan, 25)

	summary, err := res.Summarize()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, summary.Faults[planner.FaultDone], test.ShouldEqual, 1)
	test.That(t, summary.Faults[planner.FaultNone], test.ShouldEqual, len(res.Ticks)-1)
	test.That(t, summary.MaxSpeed, test.ShouldBeGreaterThan, 1)
	test.That(t, summary.MaxSpeed, test.ShouldBeLessThanOrEqualTo, 5)
	test.That(t, summary.String(), test.ShouldContainSubstring, "fault done")
	// The mock clock never moves.
	test.That(t, summary.MaxPlanTime, test.ShouldEqual, time.Duration(0))

	var hist bytes.Buffer
	test.That(t, res.SpeedHistogram(&hist, 5), test.ShouldBeNil)
	test.That(t, hist.Len(), test.ShouldBeGreaterThan, 0)

	table := res.Table(10)
	test.That(t, table, test.ShouldContainSubstring, "CMD CURV")
	test.That(t, table, test.ShouldContainSubstring, "done")

	file := filepath.Join(t.TempDir(), "straight.png")
	test.That(t, res.Plot(file, sc), test.ShouldBeNil)
	info, err := os.Stat(file)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Size(), test.ShouldBeGreaterThan, 0)
}

func TestRunStopsAtWall(t *testing.T) {
	sc, err := LoadScenario(filepath.Join("testdata", "wall.json5"))
	test.That(t, err, test.ShouldBeNil)
	res, err := Run(context.Background(), sc, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Reason, test.ShouldEqual, ReasonStuck)
	test.That(t, res.Final().Ok(), test.ShouldBeFalse)
	last := res.Ticks[len(res.Ticks)-1].State
	test.That(t, last.Pose.Pos.X, test.ShouldBeLessThan, 10-planner.DefaultConfig().VehicleLength/2)
	test.That(t, last.Speed, test.ShouldBeLessThan, stationary)
}

func TestRunCanceled(t *testing.T) {
	sc, err := LoadScenario(filepath.Join("testdata", "straight.json5"))
	test.That(t, err, test.ShouldBeNil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := Run(ctx, sc, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	test.That(t, res.Reason, test.ShouldEqual, ReasonCanceled)
	test.That(t, res.Ticks, test.ShouldBeEmpty)
}

func TestRunAll(t *testing.T) {
	var scenarios []*Scenario
	for _, name := range []string{"straight", "wall"} {
		sc, err := LoadScenario(filepath.Join("testdata", name+".json5"))
		test.That(t, err, test.ShouldBeNil)
		scenarios = append(scenarios, sc)
	}
	results, err := RunAll(context.Background(), scenarios, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, results, test.ShouldHaveLength, 2)
	test.That(t, results[0].Name, test.ShouldEqual, "straight")
	test.That(t, results[0].Reason, test.ShouldEqual, ReasonDone)
	test.That(t, results[1].Name, test.ShouldEqual, "wall")
	test.That(t, results[1].Reason, test.ShouldEqual, ReasonStuck)
	test.That(t, results[0].ID, test.ShouldNotEqual, results[1].ID)

	scenarios[1].Waypoints = scenarios[1].Waypoints[:1]
	_, err = RunAll(context.Background(), scenarios, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `scenario "wall"`)
}
