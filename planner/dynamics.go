package planner

import (
	"math"

	"github.com/ugvlab/arcnav/utils"
)

// window is a signed curvature range.
type window struct {
	min, max float64
}

func symmetric(limit float64) window {
	return window{min: -limit, max: limit}
}

func (w window) contains(k float64) bool {
	return k >= w.min-1e-9 && k <= w.max+1e-9
}

func (w window) clamp(k float64) float64 {
	return utils.Clamp(k, w.min, w.max)
}

// curvatureLimit is the sharpest curvature that keeps lateral acceleration, padded by the
// safety factor, under the rollover limit at speed.
func (c *Config) curvatureLimit(speed float64) float64 {
	v2 := utils.Square(speed)
	if v2 < 1e-9 {
		return c.MaxCurvature
	}
	return math.Min(c.MaxCurvature, c.MaxLateralAccel/(c.SafetyFactor*v2))
}

// stoppingDistance covers the reaction time and braking from speed, padded by the safety factor.
func (c *Config) stoppingDistance(speed float64) float64 {
	speed = math.Abs(speed)
	return c.SafetyFactor * (speed*c.ReactionTime + utils.Square(speed)/(2*c.BrakingDecel))
}

// brakingSpeed inverts stoppingDistance: the fastest speed that can still stop within dist.
func (c *Config) brakingSpeed(dist float64) float64 {
	if dist <= 0 {
		return 0
	}
	a, tr := c.BrakingDecel, c.ReactionTime
	return a * (-tr + math.Sqrt(utils.Square(tr)+2*dist/(c.SafetyFactor*a)))
}

// curvatureSpeed is the fastest speed at which curvature stays inside the lateral limit.
func (c *Config) curvatureSpeed(curvature float64) float64 {
	k := math.Abs(curvature)
	if k < 1e-9 {
		return math.Inf(1)
	}
	return math.Sqrt(c.MaxLateralAccel / (c.SafetyFactor * k))
}
