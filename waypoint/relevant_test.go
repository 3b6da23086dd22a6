package waypoint

import (
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func serials(t Triple) []int {
	out := make([]int, 0, t.Len())
	for _, w := range t.Waypoints {
		out = append(out, w.Serial)
	}
	return out
}

func TestNewCourse(t *testing.T) {
	_, err := NewCourse([]Waypoint{wp(1, 0, 0, 4, 0)}, false)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewCourse([]Waypoint{wp(2, 0, 0, 4, 0), wp(1, 10, 0, 4, 0)}, false)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewCourse([]Waypoint{wp(1, 0, 0, 0, 0), wp(2, 10, 0, 4, 0)}, false)
	test.That(t, err, test.ShouldNotBeNil)

	c, err := NewCourse([]Waypoint{wp(1, 0, 0, 4, 0), wp(2, 10, 0, 4, 1)}, true)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.FirstSerial(), test.ShouldEqual, 1)
	test.That(t, c.LastSerial(), test.ShouldEqual, 2)
	test.That(t, c.LastTurnGroup(), test.ShouldEqual, 1)
	test.That(t, c.ClosedCourse(), test.ShouldBeTrue)
}

func TestRelevantTripleStraightCourse(t *testing.T) {
	course, err := NewCourse([]Waypoint{
		wp(1, 0, 0, 4, 0), wp(2, 20, 0, 6, 0), wp(3, 40, 0, 8, 0), wp(4, 60, 0, 4, 0), wp(5, 80, 0, 4, 0),
	}, false)
	test.That(t, err, test.ShouldBeNil)

	tr, ok := GetRelevantWaypointTriple(course, r2.Point{X: 25, Y: 0.5}, false, NoTurnGroupHint)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, serials(tr), test.ShouldResemble, []int{2, 3, 4})
	test.That(t, tr.Sequential(course), test.ShouldBeTrue)

	t.Run("last pair has no third waypoint", func(t *testing.T) {
		tr, ok := GetRelevantWaypointTriple(course, r2.Point{X: 75}, false, NoTurnGroupHint)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, serials(tr), test.ShouldResemble, []int{4, 5})
	})
	t.Run("off course still returns the nearest pair", func(t *testing.T) {
		tr, ok := GetRelevantWaypointTriple(course, r2.Point{X: 50, Y: 30}, false, NoTurnGroupHint)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, serials(tr), test.ShouldResemble, []int{3, 4, 5})
		test.That(t, DistanceOutsideTriple(r2.Point{X: 50, Y: 30}, tr), test.ShouldBeGreaterThan, 0)
	})
	t.Run("reverse walks back", func(t *testing.T) {
		tr, ok := GetRelevantWaypointTriple(course, r2.Point{X: 25, Y: 0.5}, true, NoTurnGroupHint)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, serials(tr), test.ShouldResemble, []int{3, 2, 1})
		// Each reversed segment keeps the width of the forward segment it retraces.
		test.That(t, tr.Waypoints[0].Width, test.ShouldEqual, 6.)
		test.That(t, tr.Waypoints[1].Width, test.ShouldEqual, 4.)
		test.That(t, tr.Sequential(course), test.ShouldBeTrue)
	})
}

func TestRelevantTripleClosedCourse(t *testing.T) {
	course, err := NewCourse([]Waypoint{
		wp(1, 0, 0, 4, 0), wp(2, 40, 0, 4, 0), wp(3, 40, 40, 4, 0), wp(4, 0, 40, 4, 0),
	}, true)
	test.That(t, err, test.ShouldBeNil)

	tr, ok := GetRelevantWaypointTriple(course, r2.Point{X: 0.5, Y: 20}, false, NoTurnGroupHint)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, serials(tr), test.ShouldResemble, []int{4, 1, 2})
	test.That(t, tr.Sequential(course), test.ShouldBeTrue)

	tr, ok = GetRelevantWaypointTriple(course, r2.Point{X: 40.5, Y: 20}, false, NoTurnGroupHint)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, serials(tr), test.ShouldResemble, []int{2, 3, 4})

	open, err := NewCourse(course.Waypoints(), false)
	test.That(t, err, test.ShouldBeNil)
	tr, ok = GetRelevantWaypointTriple(open, r2.Point{X: 0.5, Y: 25}, false, NoTurnGroupHint)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, serials(tr), test.ShouldResemble, []int{3, 4})
}

func TestRelevantTripleTurnGroups(t *testing.T) {
	// The fourth leg crosses the first at (25, 0).
	course, err := NewCourse([]Waypoint{
		wp(1, 0, 0, 4, 0), wp(2, 50, 0, 4, 0), wp(3, 50, 20, 4, 1), wp(4, 25, -20, 4, 2), wp(5, 25, 40, 4, 3),
	}, false)
	test.That(t, err, test.ShouldBeNil)
	pos := r2.Point{X: 25, Y: 0.2}

	tr, ok := GetRelevantWaypointTriple(course, pos, false, NoTurnGroupHint)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, serials(tr), test.ShouldResemble, []int{4, 5})

	tr, ok = GetRelevantWaypointTriple(course, pos, false, 0)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, serials(tr), test.ShouldResemble, []int{1, 2, 3})

	tr, ok = GetRelevantWaypointTriple(course, pos, false, 3)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, serials(tr), test.ShouldResemble, []int{4, 5})
}

type window struct {
	wps []Waypoint
}

func (w window) Waypoints() []Waypoint { return w.wps }
func (w window) ClosedCourse() bool    { return false }
func (w window) FirstSerial() int      { return 1 }
func (w window) LastSerial() int       { return 20 }
func (w window) LastTurnGroup() int    { return 0 }

func TestRelevantTripleNeedsSequentialPair(t *testing.T) {
	_, ok := GetRelevantWaypointTriple(window{wps: []Waypoint{wp(2, 0, 0, 4, 0), wp(5, 10, 0, 4, 0)}}, r2.Point{}, false, NoTurnGroupHint)
	test.That(t, ok, test.ShouldBeFalse)

	_, ok = GetRelevantWaypointTriple(window{wps: []Waypoint{wp(2, 0, 0, 4, 0)}}, r2.Point{}, false, NoTurnGroupHint)
	test.That(t, ok, test.ShouldBeFalse)

	// A gap across turn groups is still a valid step.
	tr, ok := GetRelevantWaypointTriple(window{wps: []Waypoint{wp(2, 0, 0, 4, 0), wp(5, 10, 0, 4, 1)}}, r2.Point{}, false, NoTurnGroupHint)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, serials(tr), test.ShouldResemble, []int{2, 5})

	widened := tr.Widened(1)
	test.That(t, widened.First().Width, test.ShouldEqual, 5.)
	test.That(t, tr.First().Width, test.ShouldEqual, 4.)
}
