package planner

import (
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"

	"github.com/ugvlab/arcnav/curvedpath"
	"github.com/ugvlab/arcnav/impingement"
	"github.com/ugvlab/arcnav/terrain"
)

func hitAt(offset float64) impingement.Info {
	return impingement.Info{Found: true, Boundary: true, Offset: offset, Distance: 2}
}

func TestRepairKeepsReachOnShoulderContact(t *testing.T) {
	course := straightCourse(t, 3, 100, 4)
	p := newPlanner(t)
	c := p.newCycle(at(20, 0.9, 1), nil, course)
	test.That(t, p.locate(c), test.ShouldBeTrue)

	goal, path := p.goal(c)
	brushing := p.candidate(c, goal, path)
	test.That(t, brushing.group.Clear(), test.ShouldBeTrue)
	test.That(t, brushing.group.Left.Boundary, test.ShouldBeTrue)

	repaired := p.repair(c, brushing)
	test.That(t, repaired.group.Clear(), test.ShouldBeTrue)
	test.That(t, repaired.path.End().Pos.Sub(brushing.path.End().Pos).Norm(), test.ShouldBeLessThan, 0.01)
	test.That(t, repaired.path.Length(), test.ShouldBeGreaterThan, brushing.path.Length()-0.5)

	out := newPlanner(t).Plan(at(20, 0.9, 1), nil, course)
	test.That(t, out.Fault, test.ShouldEqual, FaultNone)
	test.That(t, out.Path.Length(), test.ShouldBeGreaterThan, p.cfg.LookaheadDistance/2)
}

func TestImproveOffsetsEnd(t *testing.T) {
	p := newPlanner(t)
	c := p.newCycle(at(0, 0.8, 0), nil, straightCourse(t, 3, 100, 4))
	test.That(t, p.locate(c), test.ShouldBeTrue)

	arc := curvedpath.NewArc(c.start(&p.cfg, c.comfort))
	test.That(t, arc.SetEnd(r2.Point{X: 12, Y: 0.8}), test.ShouldBeTrue)
	hugging := p.evaluate(c, arc)
	test.That(t, hugging.group.Clear(), test.ShouldBeTrue)
	test.That(t, hugging.group.Left.Boundary, test.ShouldBeTrue)
	test.That(t, hugging.group.Right.Found, test.ShouldBeFalse)

	improved := p.improve(c, hugging)
	test.That(t, improved.path, test.ShouldNotEqual, hugging.path)
	test.That(t, improved.group.Clear(), test.ShouldBeTrue)
	test.That(t, p.shoulderPenalty(improved), test.ShouldBeLessThan, p.shoulderPenalty(hugging))
	// The end slides right, away from the left edge, and keeps its reach.
	end := improved.path.End().Pos
	test.That(t, end.Y, test.ShouldBeLessThan, 0.8)
	test.That(t, end.X, test.ShouldAlmostEqual, 12, 0.01)
}

func TestImproveTightSpotPullsIn(t *testing.T) {
	g := flatGrid()
	g.FillRect(r2.Point{X: 10, Y: 1.1}, r2.Point{X: 13, Y: 1.4}, terrain.ClassImpassable)
	g.FillRect(r2.Point{X: 10, Y: -1.4}, r2.Point{X: 13, Y: -1.1}, terrain.ClassImpassable)
	p := newPlanner(t)
	c := p.newCycle(at(0, 0, 0), g, straightCourse(t, 3, 100, 20))
	test.That(t, p.locate(c), test.ShouldBeTrue)

	arc := curvedpath.NewArc(c.start(&p.cfg, c.comfort))
	test.That(t, arc.SetEnd(r2.Point{X: 12}), test.ShouldBeTrue)
	squeezed := p.evaluate(c, arc)
	test.That(t, squeezed.group.Clear(), test.ShouldBeTrue)
	test.That(t, squeezed.group.BothSides(), test.ShouldBeTrue)
	test.That(t, p.tightSpot(c, squeezed), test.ShouldBeTrue)

	// Sideways offsets run the body into a rock; the second pull-in stops short of both.
	improved := p.improve(c, squeezed)
	test.That(t, improved.group.Clear(), test.ShouldBeTrue)
	test.That(t, improved.group.Touching(), test.ShouldBeFalse)
	test.That(t, improved.path.End().Pos.X, test.ShouldAlmostEqual, 12*tightSpotShrink*tightSpotShrink, 0.01)
	test.That(t, improved.path.End().Pos.Y, test.ShouldAlmostEqual, 0, 0.01)
}

func TestShoulderPenaltyWeighsInsideOfTurn(t *testing.T) {
	p := newPlanner(t)
	c := p.newCycle(at(0, 0, 0), nil, straightCourse(t, 3, 100, 4))
	// A right turn: the right shoulder is on the inside.
	arc := curvedpath.NewArcWithCurvature(c.start(&p.cfg, c.mechanical), 0.05, 10)
	half := p.cfg.VehicleWidth/2 + p.cfg.ShoulderWidth

	for _, tc := range []struct {
		name   string
		offset float64
		want   float64
	}{
		{"outside shoulder", -1.3, half - 1.3},
		{"inside shoulder", 1.3, (half - 1.3) * p.cfg.InsideShoulderWeight},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := result{path: arc}
			if tc.offset < 0 {
				r.group.Left = hitAt(tc.offset)
			} else {
				r.group.Right = hitAt(tc.offset)
			}
			test.That(t, p.shoulderPenalty(r), test.ShouldAlmostEqual, tc.want)
		})
	}
}
