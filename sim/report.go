package sim

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"time"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ugvlab/arcnav/planner"
	"github.com/ugvlab/arcnav/utils"
	"github.com/ugvlab/arcnav/waypoint"
)

// Summary aggregates a run.
type Summary struct {
	Ticks        int
	Odometer     float64
	MeanSpeed    float64
	MaxSpeed     float64
	SpeedStdDev  float64
	P10Safe      float64
	MaxCurvature float64
	Widened      int
	BrakeHard    int
	MeanPlanTime time.Duration
	MaxPlanTime  time.Duration
	// Faults counts cycles per fault.
	Faults map[planner.Fault]int
}

// Summarize computes run statistics.
func (r *Result) Summarize() (Summary, error) {
	s := Summary{Ticks: len(r.Ticks), Odometer: r.Odometer, Faults: map[planner.Fault]int{}}
	if len(r.Ticks) == 0 {
		return s, nil
	}
	speeds := make(stats.Float64Data, 0, len(r.Ticks))
	safes := make(stats.Float64Data, 0, len(r.Ticks))
	plans := make(stats.Float64Data, 0, len(r.Ticks))
	for _, t := range r.Ticks {
		speeds = append(speeds, t.Output.Speed)
		safes = append(safes, t.Output.SafeDistance)
		plans = append(plans, float64(t.PlanTime))
		s.Faults[t.Output.Fault]++
		s.MaxCurvature = math.Max(s.MaxCurvature, math.Abs(t.Output.Curvature))
		if t.Output.Widened {
			s.Widened++
		}
		if t.Output.BrakeHard {
			s.BrakeHard++
		}
	}
	var err error
	if s.MeanSpeed, err = speeds.Mean(); err != nil {
		return s, errors.Wrap(err, "mean speed")
	}
	if s.MaxSpeed, err = speeds.Max(); err != nil {
		return s, errors.Wrap(err, "max speed")
	}
	if s.SpeedStdDev, err = speeds.StandardDeviation(); err != nil {
		return s, errors.Wrap(err, "speed deviation")
	}
	if s.P10Safe, err = stats.Percentile(safes, 10); err != nil {
		return s, errors.Wrap(err, "safe distance percentile")
	}
	mean, err := plans.Mean()
	if err != nil {
		return s, errors.Wrap(err, "mean plan time")
	}
	longest, err := plans.Max()
	if err != nil {
		return s, errors.Wrap(err, "max plan time")
	}
	s.MeanPlanTime, s.MaxPlanTime = time.Duration(mean), time.Duration(longest)
	return s, nil
}

// String renders the summary as a table.
func (s Summary) String() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"ticks", s.Ticks},
		{"odometer (m)", fmt.Sprintf("%.2f", s.Odometer)},
		{"mean speed (m/s)", fmt.Sprintf("%.2f", s.MeanSpeed)},
		{"max speed (m/s)", fmt.Sprintf("%.2f", s.MaxSpeed)},
		{"speed std dev", fmt.Sprintf("%.3f", s.SpeedStdDev)},
		{"p10 safe distance (m)", fmt.Sprintf("%.2f", s.P10Safe)},
		{"max |curvature| (1/m)", fmt.Sprintf("%.4f", s.MaxCurvature)},
		{"widened cycles", s.Widened},
		{"brake hard cycles", s.BrakeHard},
		{"mean plan time", s.MeanPlanTime},
		{"max plan time", s.MaxPlanTime},
	})
	for _, f := range []planner.Fault{
		planner.FaultOffCourse, planner.FaultObstacle, planner.FaultDrivingFault,
		planner.FaultTiltedPath, planner.FaultDone,
	} {
		if n := s.Faults[f]; n > 0 {
			t.AppendRow(table.Row{"fault " + f.String(), n})
		}
	}
	return t.Render()
}

// SpeedHistogram prints a text histogram of commanded speeds.
func (r *Result) SpeedHistogram(w io.Writer, bins int) error {
	if len(r.Ticks) == 0 {
		return nil
	}
	speeds := lo.Map(r.Ticks, func(t Tick, _ int) float64 { return t.Output.Speed })
	if lo.Min(speeds) == lo.Max(speeds) {
		_, err := fmt.Fprintf(w, "all %d cycles at %.2f m/s\n", len(speeds), speeds[0])
		return err
	}
	h := histogram.Hist(utils.ClampInt(bins, 1, len(speeds)), speeds)
	return histogram.Fprint(w, h, histogram.Linear(40))
}

// Table renders every nth tick, plus the last.
func (r *Result) Table(every int) string {
	if every < 1 {
		every = 1
	}
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Time", "X", "Y", "Heading", "Speed", "Cmd Curv", "Cmd Speed", "Safe", "Fault"})
	for i, tick := range r.Ticks {
		if i%every != 0 && i != len(r.Ticks)-1 {
			continue
		}
		pose, out := tick.State.Pose, tick.Output
		t.AppendRow(table.Row{
			tick.Index,
			fmt.Sprintf("%.1f", tick.Time),
			fmt.Sprintf("%.2f", pose.Pos.X),
			fmt.Sprintf("%.2f", pose.Pos.Y),
			fmt.Sprintf("%.1f", utils.RadToDeg(pose.Heading)),
			fmt.Sprintf("%.2f", tick.State.Speed),
			fmt.Sprintf("%.4f", out.Curvature),
			fmt.Sprintf("%.2f", out.Speed),
			fmt.Sprintf("%.2f", out.SafeDistance),
			out.Fault.String(),
		})
	}
	return t.Render()
}

// Plot writes a PNG of the driven track over the course corridor.
func (r *Result) Plot(file string, sc *Scenario) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("arcnav: %s (%s)", sc.Name, r.Reason)
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "y (m)"

	center := lo.Map(sc.Waypoints, func(wp waypoint.Waypoint, _ int) plotter.XY {
		return plotter.XY{X: wp.Pos.X, Y: wp.Pos.Y}
	})
	if sc.Closed && len(center) > 0 {
		center = append(center, center[0])
	}
	courseLine, err := plotter.NewLine(plotter.XYs(center))
	if err != nil {
		return errors.Wrap(err, "course line")
	}
	courseLine.Color = color.RGBA{R: 128, G: 128, B: 128, A: 255}
	courseLine.Width = vg.Points(1)
	courseLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(courseLine)
	p.Legend.Add("course", courseLine)

	if len(r.Ticks) > 0 {
		track := lo.Map(r.Ticks, func(t Tick, _ int) plotter.XY {
			return plotter.XY{X: t.State.Pose.Pos.X, Y: t.State.Pose.Pos.Y}
		})
		trackLine, err := plotter.NewLine(plotter.XYs(track))
		if err != nil {
			return errors.Wrap(err, "track line")
		}
		trackLine.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
		trackLine.Width = vg.Points(1.5)
		p.Add(trackLine)
		p.Legend.Add("track", trackLine)
	}

	for _, rg := range sc.Regions {
		if rg.Class == "" {
			continue
		}
		box, err := plotter.NewLine(plotter.XYs{
			{X: rg.Min.X, Y: rg.Min.Y}, {X: rg.Max.X, Y: rg.Min.Y},
			{X: rg.Max.X, Y: rg.Max.Y}, {X: rg.Min.X, Y: rg.Max.Y}, {X: rg.Min.X, Y: rg.Min.Y},
		})
		if err != nil {
			return errors.Wrap(err, "region outline")
		}
		box.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}
		box.Width = vg.Points(1)
		p.Add(box)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	if err := p.Save(10*vg.Inch, 8*vg.Inch, file); err != nil {
		return errors.Wrapf(err, "cannot save plot %q", file)
	}
	return nil
}
