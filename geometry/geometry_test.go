package geometry

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestTangentArcThroughPoints(t *testing.T) {
	t.Run("straight ahead", func(t *testing.T) {
		k, ok := TangentArcThroughPoints(r2.Point{}, 0, r2.Point{X: 10})
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, k, test.ShouldAlmostEqual, 0.)
	})
	t.Run("quarter turn right", func(t *testing.T) {
		// (10, -10) sits a quarter turn along a right-hand circle of radius 10.
		k, ok := TangentArcThroughPoints(r2.Point{}, 0, r2.Point{X: 10, Y: -10})
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, k, test.ShouldAlmostEqual, 0.1)
	})
	t.Run("left turn is negative", func(t *testing.T) {
		k, ok := TangentArcThroughPoints(r2.Point{}, 0, r2.Point{X: 10, Y: 10})
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, k, test.ShouldAlmostEqual, -0.1)
	})
	t.Run("behind fails", func(t *testing.T) {
		_, ok := TangentArcThroughPoints(r2.Point{}, 0, r2.Point{X: -1, Y: 3})
		test.That(t, ok, test.ShouldBeFalse)
		_, ok = TangentArcThroughPoints(r2.Point{X: 1, Y: 1}, 0, r2.Point{X: 1, Y: 1})
		test.That(t, ok, test.ShouldBeFalse)
	})
}

func TestPointAlongArc(t *testing.T) {
	pos, heading := PointAlongArc(r2.Point{}, 0, 0.1, math.Pi*5)
	test.That(t, pos.X, test.ShouldAlmostEqual, 10., 1e-9)
	test.That(t, pos.Y, test.ShouldAlmostEqual, -10., 1e-9)
	test.That(t, heading, test.ShouldAlmostEqual, -math.Pi/2)

	// Nearly straight arcs still drift right.
	pos, heading = PointAlongArc(r2.Point{X: 1, Y: 2}, math.Pi/2, 0.0005, 3)
	test.That(t, pos.X, test.ShouldAlmostEqual, 1.00225, 1e-8)
	test.That(t, pos.Y, test.ShouldAlmostEqual, 2+math.Sin(0.0015)/0.0005, 1e-9)
	test.That(t, heading, test.ShouldAlmostEqual, math.Pi/2-0.0015)

	pos, heading = PointAlongArc(r2.Point{}, 0, 0, 7)
	test.That(t, pos, test.ShouldResemble, r2.Point{X: 7})
	test.That(t, heading, test.ShouldEqual, 0.)

	for _, k := range []float64{0.99e-5, 1.01e-5, -3e-5} {
		pos, _ := PointAlongArc(r2.Point{}, 0, k, 10)
		test.That(t, pos.X, test.ShouldAlmostEqual, math.Sin(10*k)/k, 1e-9)
		test.That(t, pos.Y, test.ShouldAlmostEqual, -(1-math.Cos(10*k))/k, 1e-9)
	}

	// Round trip with the tangent arc.
	start := r2.Point{X: 3, Y: -2}
	target := r2.Point{X: 9, Y: 4}
	k, ok := TangentArcThroughPoints(start, 0.3, target)
	test.That(t, ok, test.ShouldBeTrue)
	length := ArcLengthFrom(start, 0.3, target, k)
	end, _ := PointAlongArc(start, 0.3, k, length)
	test.That(t, end.Sub(target).Norm(), test.ShouldBeLessThan, 1e-9)

	for _, far := range []r2.Point{{X: 30, Y: 0.4}, {X: 50, Y: -1}, {X: 80, Y: 0.05}} {
		k, ok := TangentArcThroughPoints(r2.Point{}, 0, far)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, IsStraight(k), test.ShouldBeTrue)
		end, _ := PointAlongArc(r2.Point{}, 0, k, ArcLengthFrom(r2.Point{}, 0, far, k))
		test.That(t, end.Sub(far).Norm(), test.ShouldBeLessThan, 1e-9)
	}
}

func TestArcLengths(t *testing.T) {
	test.That(t, ArcLength(r2.Point{}, r2.Point{X: 10, Y: -10}, 0.1), test.ShouldAlmostEqual, math.Pi*5)
	test.That(t, ArcLength(r2.Point{}, r2.Point{X: 3, Y: 4}, 0), test.ShouldAlmostEqual, 5.)

	// Three quarters of a circle is longer than the minor arc through the same points.
	far, _ := PointAlongArc(r2.Point{}, 0, 0.1, 1.5*math.Pi*10)
	test.That(t, ArcLengthFrom(r2.Point{}, 0, far, 0.1), test.ShouldAlmostEqual, 1.5*math.Pi*10, 1e-6)

	mid := ArcMidpoint(r2.Point{}, 0, 0.1, r2.Point{X: 10, Y: -10})
	want, _ := PointAlongArc(r2.Point{}, 0, 0.1, math.Pi*2.5)
	test.That(t, mid.Sub(want).Norm(), test.ShouldBeLessThan, 1e-9)
}

func TestPointToSegmentSignedDistance(t *testing.T) {
	a, b := r2.Point{}, r2.Point{X: 10}

	dist, fraction, nearest := PointToSegmentSignedDistance(r2.Point{X: 5, Y: 2}, a, b)
	test.That(t, dist, test.ShouldAlmostEqual, -2.)
	test.That(t, fraction, test.ShouldAlmostEqual, 0.5)
	test.That(t, nearest, test.ShouldResemble, r2.Point{X: 5})

	dist, _, _ = PointToSegmentSignedDistance(r2.Point{X: 5, Y: -3}, a, b)
	test.That(t, dist, test.ShouldAlmostEqual, 3.)

	dist, fraction, nearest = PointToSegmentSignedDistance(r2.Point{X: 13, Y: -4}, a, b)
	test.That(t, dist, test.ShouldAlmostEqual, 5.)
	test.That(t, fraction, test.ShouldAlmostEqual, 1.3)
	test.That(t, nearest, test.ShouldResemble, b)

	dist, fraction, _ = PointToSegmentSignedDistance(r2.Point{X: 1, Y: 1}, a, a)
	test.That(t, dist, test.ShouldAlmostEqual, math.Sqrt2)
	test.That(t, fraction, test.ShouldEqual, 0.)
}

func TestLineIntersection(t *testing.T) {
	p, ok := LineIntersection(r2.Point{}, r2.Point{X: 1}, r2.Point{X: 4, Y: -3}, r2.Point{Y: 1})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, p.X, test.ShouldAlmostEqual, 4.)
	test.That(t, p.Y, test.ShouldAlmostEqual, 0.)

	_, ok = LineIntersection(r2.Point{}, r2.Point{X: 1}, r2.Point{Y: 1}, r2.Point{X: 2})
	test.That(t, ok, test.ShouldBeFalse)
}

func TestAngles(t *testing.T) {
	test.That(t, NormalizeAngle(3*math.Pi), test.ShouldAlmostEqual, math.Pi)
	test.That(t, NormalizeAngle(-3*math.Pi/2), test.ShouldAlmostEqual, math.Pi/2)
	test.That(t, AngleDiff(math.Pi-0.1, -math.Pi+0.1), test.ShouldAlmostEqual, 0.2)
	test.That(t, RightNormal(0).Y, test.ShouldAlmostEqual, -1.)
	test.That(t, HeadingOf(Direction(1.2)), test.ShouldAlmostEqual, 1.2)
}
