package sim

import (
	"math"

	"github.com/ugvlab/arcnav/geometry"
	"github.com/ugvlab/arcnav/planner"
	"github.com/ugvlab/arcnav/utils"
)

// Vehicle is a kinematic point vehicle that steers by curvature. Steering moves towards the
// command at a limited rate and speed follows the command within acceleration and braking
// limits.
type Vehicle struct {
	State planner.VehicleState

	MaxCurvature     float64
	MaxCurvatureRate float64
	MaxAccel         float64
	BrakingDecel     float64
	// Odometer is the total distance driven.
	Odometer float64
}

// NewVehicle returns a vehicle with the limits of a planner config.
func NewVehicle(state planner.VehicleState, cfg planner.Config) *Vehicle {
	return &Vehicle{
		State:            state,
		MaxCurvature:     cfg.MaxCurvature,
		MaxCurvatureRate: cfg.MaxCurvatureRate,
		MaxAccel:         cfg.MaxAccel,
		BrakingDecel:     cfg.BrakingDecel,
	}
}

// Step applies a command for dt seconds.
func (v *Vehicle) Step(cmd planner.Output, dt float64) {
	s := &v.State

	dk := utils.Clamp(cmd.Curvature-s.Curvature, -v.MaxCurvatureRate*dt, v.MaxCurvatureRate*dt)
	s.Curvature = utils.Clamp(s.Curvature+dk, -v.MaxCurvature, v.MaxCurvature)

	dv := utils.Clamp(cmd.Speed-s.Speed, -v.BrakingDecel*dt, v.MaxAccel*dt)
	speed := math.Max(0, s.Speed+dv)
	dist := (s.Speed + speed) / 2 * dt
	s.Speed = speed

	heading, k := s.Pose.Heading, s.Curvature
	if s.Direction == planner.Reverse {
		heading, k = heading+math.Pi, -k
	}
	pos, heading := geometry.PointAlongArc(s.Pose.Pos, heading, k, dist)
	if s.Direction == planner.Reverse {
		heading -= math.Pi
	}
	s.Pose = geometry.Pose{Pos: pos, Heading: geometry.NormalizeAngle(heading)}
	v.Odometer += dist
}
