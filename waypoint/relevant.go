package waypoint

import (
	"math"

	"github.com/golang/geo/r2"
)

// NoTurnGroupHint disables the turn group restriction of GetRelevantWaypointTriple.
const NoTurnGroupHint = -1

// GetRelevantWaypointTriple picks the sequential waypoint pair whose corridor pos is most inside
// of, then extends it with the next segment in the direction of travel. With a non-negative
// hint only pairs starting in the turn groups hint-1 through hint+1 are considered, which keeps
// self-crossing courses from jumping to a later pass. A vehicle outside every corridor still
// gets the nearest pair; it fails only when no sequential pair exists.
func GetRelevantWaypointTriple(src Source, pos r2.Point, reverse bool, turnGroupHint int) (Triple, bool) {
	wps := src.Waypoints()
	n := len(wps)
	if n < 2 {
		return Triple{}, false
	}

	pairs := make([][2]int, 0, n)
	for i := 0; i+1 < n; i++ {
		pairs = append(pairs, [2]int{i, i + 1})
	}
	if src.ClosedCourse() && n > 2 {
		pairs = append(pairs, [2]int{n - 1, 0})
	}

	best, bestDist := -1, math.Inf(1)
	for idx, pr := range pairs {
		a, b := wps[pr[0]], wps[pr[1]]
		if !sequentialPair(src, a, b) || !inTurnGroupWindow(src, a.TurnGroup, turnGroupHint) {
			continue
		}
		if d := DistanceOutsideSegment(pos, a, b); d < bestDist {
			best, bestDist = idx, d
		}
	}
	if best < 0 {
		return Triple{}, false
	}

	i, j := pairs[best][0], pairs[best][1]
	if !reverse {
		t := Triple{Waypoints: []Waypoint{wps[i], wps[j]}}
		if k, ok := step(src, j, 1); ok {
			t.Waypoints = append(t.Waypoints, wps[k])
		}
		return t, true
	}

	// Travelling backwards the triple runs j -> i -> previous, and each reversed segment keeps
	// the width and speed limit of the forward segment it retraces.
	t := Triple{Waypoints: []Waypoint{retrace(wps[j], wps[i]), wps[i]}}
	if k, ok := step(src, i, -1); ok {
		t.Waypoints[1] = retrace(wps[i], wps[k])
		t.Waypoints = append(t.Waypoints, wps[k])
	}
	return t, true
}

// retrace returns wp carrying the corridor attributes of owner's forward segment.
func retrace(wp, owner Waypoint) Waypoint {
	wp.Width = owner.Width
	wp.SpeedLimit = owner.SpeedLimit
	return wp
}

// step returns the window index one waypoint forward or backward of i, if it is sequential.
func step(src Source, i, dir int) (int, bool) {
	wps := src.Waypoints()
	n := len(wps)
	k := i + dir
	if k < 0 || k >= n {
		if !src.ClosedCourse() || n < 3 {
			return 0, false
		}
		k = (k + n) % n
	}
	a, b := wps[i], wps[k]
	if dir < 0 {
		a, b = b, a
	}
	if !sequentialPair(src, a, b) {
		return 0, false
	}
	return k, true
}

func inTurnGroupWindow(src Source, group, hint int) bool {
	if hint < 0 {
		return true
	}
	diff := group - hint
	if diff >= -1 && diff <= 1 {
		return true
	}
	if !src.ClosedCourse() {
		return false
	}
	// Groups wrap around on a closed course.
	groups := src.LastTurnGroup() + 1
	diff = ((diff % groups) + groups) % groups
	return diff == 1 || diff == groups-1
}
