package planner

import (
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"

	"github.com/ugvlab/arcnav/curvedpath"
	"github.com/ugvlab/arcnav/geometry"
	"github.com/ugvlab/arcnav/terrain"
)

func TestSearchFallsBackToMechanicalWindow(t *testing.T) {
	g := flatGrid()
	g.FillRect(r2.Point{X: 3, Y: -3}, r2.Point{X: 6, Y: -0.5}, terrain.ClassImpassable)
	p := newPlanner(t)
	// A long vehicle needs 8m clear, which only a hard left turn gets past the rock.
	p.cfg.VehicleLength = 16
	c := p.newCycle(at(0, 0, 9), g, straightCourse(t, 3, 100, 60))
	test.That(t, p.locate(c), test.ShouldBeTrue)
	test.That(t, c.comfort.max, test.ShouldBeLessThan, 0.02)

	found, ok := p.search(c, geometry.Pose{Pos: r2.Point{X: 12}})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, c.brakeHard, test.ShouldBeTrue)
	test.That(t, c.limits(), test.ShouldResemble, c.mechanical)
	test.That(t, found.clear, test.ShouldBeGreaterThanOrEqualTo, p.cfg.VehicleLength/2)

	k := found.path.CurvatureAt(0)
	test.That(t, k, test.ShouldBeLessThan, 0)
	test.That(t, c.comfort.contains(k), test.ShouldBeFalse)
	test.That(t, c.mechanical.contains(k), test.ShouldBeTrue)
}

func TestSearchPrefersComfortWindow(t *testing.T) {
	g := flatGrid()
	g.FillRect(r2.Point{X: 10, Y: -2}, r2.Point{X: 11, Y: 2}, terrain.ClassImpassable)
	p := newPlanner(t)
	c := p.newCycle(at(0, 0, 4), g, straightCourse(t, 3, 100, 20))
	test.That(t, p.locate(c), test.ShouldBeTrue)
	test.That(t, c.comfort.max, test.ShouldBeLessThan, c.mechanical.max)

	found, ok := p.search(c, geometry.Pose{Pos: r2.Point{X: 12}})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, c.brakeHard, test.ShouldBeFalse)
	test.That(t, c.comfort.contains(found.path.CurvatureAt(0)), test.ShouldBeTrue)
}

func TestScoreFollowsRoadBias(t *testing.T) {
	goal := geometry.Pose{Pos: r2.Point{X: 12}}
	for _, tc := range []struct {
		name    string
		bias    terrain.RoadBias
		reverse bool
		k       float64
		bonus   float64
	}{
		{"no confidence", terrain.RoadBias{Curvature: 0.1}, false, 0.1, 0},
		{"on the road", terrain.RoadBias{Confidence: 1, Curvature: 0.1}, false, 0.1, 0.5},
		{"half way off", terrain.RoadBias{Confidence: 1, Curvature: 0.1}, false, 0, 0.25},
		{"far off", terrain.RoadBias{Confidence: 0.5, Curvature: 0.1}, false, -0.2, 0},
		{"weak confidence", terrain.RoadBias{Confidence: 0.5, Curvature: 0.1}, false, 0.1, 0.25},
		{"reversing flips the road", terrain.RoadBias{Confidence: 1, Curvature: 0.1}, true, -0.1, 0.5},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := newPlanner(t)
			g := flatGrid()
			g.SetRoadBias(tc.bias)
			state := at(0, 0, 1)
			if tc.reverse {
				state.Direction = Reverse
			}
			c := p.newCycle(state, g, straightCourse(t, 3, 100, 4))
			arc := curvedpath.NewArcWithCurvature(c.start(&p.cfg, c.mechanical), tc.k, 12)
			r := result{path: arc, clear: arc.Length()}

			biased := p.score(c, r, goal, tc.k)
			c.grid = nil
			test.That(t, biased-p.score(c, r, goal, tc.k), test.ShouldAlmostEqual, tc.bonus, 1e-9)
		})
	}
}

func TestScorePenalisesPathChange(t *testing.T) {
	p := newPlanner(t)
	c := p.newCycle(at(0, 0, 1), nil, straightCourse(t, 3, 100, 4))
	goal := geometry.Pose{Pos: r2.Point{X: 12}}
	arc := curvedpath.NewArcWithCurvature(c.start(&p.cfg, c.mechanical), 0, 12)
	r := result{path: arc, clear: arc.Length()}
	test.That(t, p.score(c, r, goal, 0), test.ShouldAlmostEqual, 12, 1e-9)

	p.prevEnd, p.havePrevEnd = r2.Point{X: 12, Y: 3}, true
	test.That(t, p.score(c, r, goal, 0), test.ShouldAlmostEqual, 12-3*p.cfg.PathChangeWeight, 1e-9)
}
