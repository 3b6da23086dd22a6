// Package sim drives the planner in closed loop against a kinematic vehicle, a waypoint course
// and an in-memory terrain grid.
package sim

import (
	"math"
	"os"
	"time"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/ugvlab/arcnav/geometry"
	"github.com/ugvlab/arcnav/planner"
	"github.com/ugvlab/arcnav/terrain"
	"github.com/ugvlab/arcnav/waypoint"
)

// Region marks a rectangle of grid cells.
type Region struct {
	Min   r2.Point `json:"min"`
	Max   r2.Point `json:"max"`
	Class string   `json:"class"`
	// Elevation, when set, is applied to the region's cells.
	Elevation *float64 `json:"elevation,omitempty"`
}

// GridSpec sizes the terrain grid.
type GridSpec struct {
	Origin   r2.Point `json:"origin"`
	CellSize float64  `json:"cell_size"`
	Cols     int      `json:"cols"`
	Rows     int      `json:"rows"`
	// Slope tilts the whole grid: elevation = Slope.X*x + Slope.Y*y.
	Slope    r2.Point         `json:"slope"`
	RoadBias terrain.RoadBias `json:"road_bias"`
}

// StartSpec is the vehicle's initial state.
type StartSpec struct {
	Pos     r2.Point `json:"pos"`
	Heading float64  `json:"heading"`
	Speed   float64  `json:"speed"`
	Reverse bool     `json:"reverse"`
}

// Scenario is one closed-loop run.
type Scenario struct {
	Name      string              `json:"name"`
	Closed    bool                `json:"closed"`
	Waypoints []waypoint.Waypoint `json:"waypoints"`
	Start     StartSpec           `json:"start"`
	Grid      GridSpec            `json:"grid"`
	Regions   []Region            `json:"regions"`
	// Period is the planning cycle in seconds.
	Period   float64 `json:"period"`
	MaxTicks int     `json:"max_ticks"`
	// StuckTicks ends the run after this many consecutive stationary faulted cycles.
	StuckTicks int            `json:"stuck_ticks"`
	Planner    planner.Config `json:"planner"`
}

// NewScenario returns a scenario with default timing and planner tuning.
func NewScenario() *Scenario {
	return &Scenario{
		Period:     0.1,
		MaxTicks:   3000,
		StuckTicks: 50,
		Grid:       GridSpec{Origin: r2.Point{X: -50, Y: -50}, CellSize: 0.5, Cols: 400, Rows: 400},
		Planner:    planner.DefaultConfig(),
	}
}

// LoadScenario reads a JSON5 scenario file. Fields it leaves out keep their defaults.
func LoadScenario(path string) (*Scenario, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read scenario")
	}
	sc := NewScenario()
	if err := json5.Unmarshal(data, sc); err != nil {
		return nil, errors.Wrapf(err, "cannot parse scenario %q", path)
	}
	if err := sc.Validate(path); err != nil {
		return nil, err
	}
	return sc, nil
}

// Validate ensures the scenario can be run.
func (sc *Scenario) Validate(path string) error {
	var err error
	if len(sc.Waypoints) < 2 {
		err = multierr.Append(err, goutils.NewConfigValidationError(path, errors.New("at least two waypoints are required")))
	}
	if sc.Period <= 0 {
		err = multierr.Append(err, goutils.NewConfigValidationFieldRequiredError(path, "period"))
	}
	if sc.MaxTicks <= 0 {
		err = multierr.Append(err, goutils.NewConfigValidationFieldRequiredError(path, "max_ticks"))
	}
	if sc.Grid.CellSize <= 0 || sc.Grid.Cols <= 0 || sc.Grid.Rows <= 0 {
		err = multierr.Append(err, goutils.NewConfigValidationError(path, errors.New("grid needs a positive cell size and dimensions")))
	}
	for i, r := range sc.Regions {
		if _, perr := terrain.ParseClass(r.Class); perr != nil && r.Class != "" {
			err = multierr.Append(err, goutils.NewConfigValidationError(path, errors.Wrapf(perr, "region %d", i)))
		}
	}
	return multierr.Append(err, sc.Planner.Validate(path+".planner"))
}

// Course builds the waypoint course.
func (sc *Scenario) Course() (*waypoint.Course, error) {
	return waypoint.NewCourse(sc.Waypoints, sc.Closed)
}

// BuildGrid rasterises the grid spec and regions. Regions apply in order, so later ones win.
func (sc *Scenario) BuildGrid() (*terrain.MemoryGrid, error) {
	g := terrain.NewMemoryGrid(sc.Grid.Origin, sc.Grid.CellSize, sc.Grid.Cols, sc.Grid.Rows)
	if sc.Grid.Slope != (r2.Point{}) {
		slope := sc.Grid.Slope
		g.SetElevationFunc(func(p r2.Point) float64 { return slope.Dot(p) })
	}
	g.SetRoadBias(sc.Grid.RoadBias)
	for i, r := range sc.Regions {
		if r.Class != "" {
			class, err := terrain.ParseClass(r.Class)
			if err != nil {
				return nil, errors.Wrapf(err, "region %d", i)
			}
			g.FillRect(r.Min, r.Max, class)
		}
		if r.Elevation != nil {
			g.FillElevation(r.Min, r.Max, *r.Elevation)
		}
	}
	return g, nil
}

// InitialState is the vehicle state at tick zero.
func (sc *Scenario) InitialState() planner.VehicleState {
	state := planner.VehicleState{
		Pose:    geometry.Pose{Pos: sc.Start.Pos, Heading: sc.Start.Heading},
		Speed:   math.Abs(sc.Start.Speed),
		Elapsed: sc.period(),
	}
	if sc.Start.Reverse {
		state.Direction = planner.Reverse
	}
	return state
}

func (sc *Scenario) period() time.Duration {
	return time.Duration(sc.Period * float64(time.Second))
}
