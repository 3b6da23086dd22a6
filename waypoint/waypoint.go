// Package waypoint holds the course definition the planner drives along and the corridor
// geometry queried against it.
package waypoint

import (
	"fmt"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// Waypoint is one course landmark. The corridor from this waypoint to the next uses its Width
// and SpeedLimit.
type Waypoint struct {
	Serial     int      `json:"serial"`
	Pos        r2.Point `json:"pos"`
	Width      float64  `json:"width"`
	SpeedLimit float64  `json:"speed_limit"`
	TurnGroup  int      `json:"turn_group"`
}

// HalfWidth is the distance from the centerline to the corridor edge.
func (w Waypoint) HalfWidth() float64 {
	return w.Width / 2
}

func (w Waypoint) String() string {
	return fmt.Sprintf("wp%d(%.2f, %.2f) w=%.2f tg=%d", w.Serial, w.Pos.X, w.Pos.Y, w.Width, w.TurnGroup)
}

// Source is the active waypoint window. Implementations may change between cycles but must not
// change during one.
type Source interface {
	// Waypoints returns the active window ordered by serial.
	Waypoints() []Waypoint
	ClosedCourse() bool
	FirstSerial() int
	LastSerial() int
	LastTurnGroup() int
}

// Course is an in-memory Source holding a whole course.
type Course struct {
	waypoints []Waypoint
	closed    bool
}

// NewCourse validates and wraps an ordered list of waypoints.
func NewCourse(waypoints []Waypoint, closed bool) (*Course, error) {
	if len(waypoints) < 2 {
		return nil, errors.Errorf("a course needs at least two waypoints, got %d", len(waypoints))
	}
	for i, wp := range waypoints {
		if wp.Width <= 0 {
			return nil, errors.Errorf("waypoint %d has non-positive width %v", wp.Serial, wp.Width)
		}
		if i == 0 {
			continue
		}
		prev := waypoints[i-1]
		if wp.Serial <= prev.Serial {
			return nil, errors.Errorf("waypoint serials must increase: %d follows %d", wp.Serial, prev.Serial)
		}
		if wp.TurnGroup < prev.TurnGroup {
			return nil, errors.Errorf("turn group of waypoint %d decreases", wp.Serial)
		}
	}
	return &Course{waypoints: append([]Waypoint(nil), waypoints...), closed: closed}, nil
}

// Waypoints returns the whole course.
func (c *Course) Waypoints() []Waypoint {
	return c.waypoints
}

// ClosedCourse reports whether the last waypoint connects back to the first.
func (c *Course) ClosedCourse() bool {
	return c.closed
}

// FirstSerial returns the serial of the first waypoint.
func (c *Course) FirstSerial() int {
	return c.waypoints[0].Serial
}

// LastSerial returns the serial of the last waypoint.
func (c *Course) LastSerial() int {
	return c.waypoints[len(c.waypoints)-1].Serial
}

// LastTurnGroup returns the turn group of the last waypoint.
func (c *Course) LastTurnGroup() int {
	return c.waypoints[len(c.waypoints)-1].TurnGroup
}

// Last returns the final waypoint.
func (c *Course) Last() Waypoint {
	return c.waypoints[len(c.waypoints)-1]
}

// Triple is the up to three waypoints relevant to the vehicle, ordered in the direction of
// travel.
type Triple struct {
	Waypoints []Waypoint
}

// Len returns how many waypoints the triple holds.
func (t Triple) Len() int {
	return len(t.Waypoints)
}

// Segments returns the number of corridor segments.
func (t Triple) Segments() int {
	if len(t.Waypoints) < 2 {
		return 0
	}
	return len(t.Waypoints) - 1
}

// First returns the first waypoint. The triple must not be empty.
func (t Triple) First() Waypoint {
	return t.Waypoints[0]
}

// Last returns the last waypoint. The triple must not be empty.
func (t Triple) Last() Waypoint {
	return t.Waypoints[len(t.Waypoints)-1]
}

// Widened returns a copy with every corridor width increased by extra.
func (t Triple) Widened(extra float64) Triple {
	out := Triple{Waypoints: make([]Waypoint, len(t.Waypoints))}
	for i, wp := range t.Waypoints {
		wp.Width += extra
		out.Waypoints[i] = wp
	}
	return out
}

// SpeedLimit returns the limit of the segment the vehicle is on.
func (t Triple) SpeedLimit() float64 {
	if len(t.Waypoints) == 0 {
		return 0
	}
	return t.Waypoints[0].SpeedLimit
}

// Sequential reports whether every consecutive pair of the triple is a valid course step
// in either direction.
func (t Triple) Sequential(src Source) bool {
	for i := 0; i+1 < len(t.Waypoints); i++ {
		a, b := t.Waypoints[i], t.Waypoints[i+1]
		if !sequentialPair(src, a, b) && !sequentialPair(src, b, a) {
			return false
		}
	}
	return true
}

func (t Triple) String() string {
	s := "["
	for i, wp := range t.Waypoints {
		if i > 0 {
			s += " -> "
		}
		s += wp.String()
	}
	return s + "]"
}

// sequentialPair reports whether b directly follows a: consecutive serials, adjacent turn
// groups, or the closing pair of a closed course.
func sequentialPair(src Source, a, b Waypoint) bool {
	if b.Serial == a.Serial+1 {
		return true
	}
	if b.Serial > a.Serial && b.TurnGroup == a.TurnGroup+1 {
		return true
	}
	return src.ClosedCourse() && a.Serial == src.LastSerial() && b.Serial == src.FirstSerial()
}
