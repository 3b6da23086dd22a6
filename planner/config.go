package planner

import (
	"math"
	"os"

	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/ugvlab/arcnav/impingement"
)

// Config holds the vehicle model and the planner's tuning. The roughness threshold (in Scanner)
// and RoadBiasWeight are calibration data rather than fixed behaviour.
type Config struct {
	// Vehicle footprint in metres.
	VehicleLength float64 `json:"vehicle_length"`
	VehicleWidth  float64 `json:"vehicle_width"`
	ShoulderWidth float64 `json:"shoulder_width"`

	// Speeds in m/s, accelerations in m/s^2.
	MaxSpeed        float64 `json:"max_speed"`
	MinSpeed        float64 `json:"min_speed"`
	MaxAccel        float64 `json:"max_accel"`
	ReverseMaxSpeed float64 `json:"reverse_max_speed"`
	MaxLateralAccel float64 `json:"max_lateral_accel"`
	BrakingDecel    float64 `json:"braking_decel"`
	ReactionTime    float64 `json:"reaction_time"`
	// SafetyFactor scales both the rollover and the stopping distance models.
	SafetyFactor float64 `json:"safety_factor"`

	// Steering: mechanical curvature limit, rate limit per second, and the time a new command
	// takes to settle.
	MaxCurvature     float64 `json:"max_curvature"`
	MaxCurvatureRate float64 `json:"max_curvature_rate"`
	SettleTime       float64 `json:"settle_time"`

	LookaheadDistance float64 `json:"lookahead_distance"`
	SteerLookahead    float64 `json:"steer_lookahead"`
	// LookaheadShrink is the factor the goal distance shrinks by per retry.
	LookaheadShrink float64 `json:"lookahead_shrink"`

	OffCourseTolerance     float64 `json:"off_course_tolerance"`
	FirstWaypointTolerance float64 `json:"first_waypoint_tolerance"`
	WidenMargin            float64 `json:"widen_margin"`

	ScanSegments      int     `json:"scan_segments"`
	LadderSteps       int     `json:"ladder_steps"`
	MaxScheduleLength int     `json:"max_schedule_length"`
	PathChangeWeight  float64 `json:"path_change_weight"`
	RoadBiasWeight    float64 `json:"road_bias_weight"`

	RepairBackoff        float64 `json:"repair_backoff"`
	EndOffsetMargin      float64 `json:"end_offset_margin"`
	EndOffsetSteps       int     `json:"end_offset_steps"`
	InsideShoulderWeight float64 `json:"inside_shoulder_weight"`
	TightSpotSteps       int     `json:"tight_spot_steps"`

	StopMargin       float64 `json:"stop_margin"`
	StopShoulderGain float64 `json:"stop_shoulder_gain"`
	MaxTilt          float64 `json:"max_tilt"`
	// RejectTiltedPaths turns the tilt check from a warning into a fault. Elevation noise makes
	// it raise false alarms, so it is off by default.
	RejectTiltedPaths bool `json:"reject_tilted_paths"`

	// CyclePeriod in seconds is assumed when the vehicle state carries no elapsed time.
	CyclePeriod float64 `json:"cycle_period"`

	Scanner impingement.Config `json:"scanner"`
}

// DefaultConfig returns the configuration for a small ground vehicle.
func DefaultConfig() Config {
	return Config{
		VehicleLength:          4,
		VehicleWidth:           2,
		ShoulderWidth:          0.5,
		MaxSpeed:               5,
		MinSpeed:               0.5,
		MaxAccel:               0.5,
		ReverseMaxSpeed:        1.5,
		MaxLateralAccel:        2,
		BrakingDecel:           3,
		ReactionTime:           0.5,
		SafetyFactor:           1.25,
		MaxCurvature:           0.2,
		MaxCurvatureRate:       0.1,
		SettleTime:             0.2,
		LookaheadDistance:      12,
		SteerLookahead:         3,
		LookaheadShrink:        0.95,
		OffCourseTolerance:     0.25,
		FirstWaypointTolerance: 1,
		WidenMargin:            0.25,
		ScanSegments:           10,
		LadderSteps:            8,
		MaxScheduleLength:      20,
		PathChangeWeight:       0.1,
		RoadBiasWeight:         0.5,
		RepairBackoff:          1,
		EndOffsetMargin:        1,
		EndOffsetSteps:         2,
		InsideShoulderWeight:   2,
		TightSpotSteps:         3,
		StopMargin:             1,
		StopShoulderGain:       0.05,
		MaxTilt:                0.35,
		CyclePeriod:            0.1,
		Scanner:                impingement.DefaultConfig(),
	}
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate(path string) error {
	var err error
	positive := map[string]float64{
		"vehicle_length":     c.VehicleLength,
		"vehicle_width":      c.VehicleWidth,
		"max_speed":          c.MaxSpeed,
		"max_accel":          c.MaxAccel,
		"max_lateral_accel":  c.MaxLateralAccel,
		"braking_decel":      c.BrakingDecel,
		"safety_factor":      c.SafetyFactor,
		"max_curvature":      c.MaxCurvature,
		"max_curvature_rate": c.MaxCurvatureRate,
		"lookahead_distance": c.LookaheadDistance,
		"steer_lookahead":    c.SteerLookahead,
		"cycle_period":       c.CyclePeriod,
	}
	for field, v := range positive {
		if v == 0 {
			err = multierr.Append(err, goutils.NewConfigValidationFieldRequiredError(path, field))
		} else if v < 0 || math.IsNaN(v) {
			err = multierr.Append(err, goutils.NewConfigValidationError(path, errors.Errorf("%s must be positive", field)))
		}
	}
	if c.MinSpeed < 0 || c.MinSpeed > c.MaxSpeed {
		err = multierr.Append(err, goutils.NewConfigValidationError(path, errors.New("min_speed must be between 0 and max_speed")))
	}
	if c.ShoulderWidth < 0 || c.ReactionTime < 0 || c.SettleTime < 0 || c.StopMargin < 0 || c.ReverseMaxSpeed < 0 {
		err = multierr.Append(err, goutils.NewConfigValidationError(path, errors.New("widths, times, margins and speeds cannot be negative")))
	}
	if c.LookaheadShrink <= 0 || c.LookaheadShrink >= 1 {
		err = multierr.Append(err, goutils.NewConfigValidationError(path, errors.New("lookahead_shrink must be in (0, 1)")))
	}
	if c.ScanSegments < 2 || c.LadderSteps < 2 || c.MaxScheduleLength < 2 {
		err = multierr.Append(err, goutils.NewConfigValidationError(path,
			errors.New("scan_segments, ladder_steps and max_schedule_length must be at least 2")))
	}
	if c.FirstWaypointTolerance < c.OffCourseTolerance {
		err = multierr.Append(err, goutils.NewConfigValidationError(path,
			errors.New("first_waypoint_tolerance cannot be tighter than off_course_tolerance")))
	}
	return multierr.Append(err, c.Scanner.Validate(path+".scanner"))
}

// LoadConfig reads a JSON (or JSON5) tuning file over the defaults; fields the file leaves out
// keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "cannot read planner config")
	}
	if err := json5.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "cannot parse planner config %q", path)
	}
	if err := cfg.Validate("planner"); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// cyclePeriod returns the assumed cycle length in seconds.
func (c *Config) cyclePeriod() float64 {
	return c.CyclePeriod
}
