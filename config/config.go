// Package config defines the structures to configure the robot.
package config

import (
	"fmt"
	"time"

	"github.com/golang/geo/s1"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/fieldnav/components/arm"
	"go.viam.com/fieldnav/components/base/kinematicbase"
	"go.viam.com/fieldnav/control"
	"go.viam.com/fieldnav/field"
	"go.viam.com/fieldnav/input"
	"go.viam.com/fieldnav/logging"
	"go.viam.com/fieldnav/services/baseremotecontrol"
)

// A Config describes the configuration of a robot.
type Config struct {
	ConfigFilePath string `json:"-"`

	Alliance        string           `json:"alliance"`
	LoopFrequencyHz float64          `json:"loop_frequency_hz"`
	Trajectory      TrajectoryConfig `json:"trajectory"`
	Tracking        TrackingConfig   `json:"tracking"`
	Input           InputConfig      `json:"input"`
	Arm             arm.Angles       `json:"arm"`
	LogLevel        string           `json:"log_level,omitempty"`
}

// TrajectoryConfig limits generated trajectories.
type TrajectoryConfig struct {
	MaxVelocityMPS     float64 `json:"max_velocity_mps"`
	MaxAccelerationMPS float64 `json:"max_acceleration_mps2"`
}

// TrackingConfig configures how trajectories are followed.
type TrackingConfig struct {
	Translation         control.PIDConfig `json:"translation"`
	Rotation            control.PIDConfig `json:"rotation"`
	PositionToleranceM  float64           `json:"position_tolerance_m"`
	HeadingToleranceDeg float64           `json:"heading_tolerance_deg"`
	SettleTimeSec       float64           `json:"settle_time_sec"`
}

// InputConfig configures the operator gamepad.
type InputConfig struct {
	IdleDeadband float64 `json:"idle_deadband"`
	// Drive is how fast full stick deflection moves the base when the operator drives.
	Drive baseremotecontrol.Config `json:"drive"`
}

// Default returns the configuration the competition robot runs with.
func Default() *Config {
	opts := kinematicbase.NewDefaultOptions()
	return &Config{
		Alliance:        field.Blue.String(),
		LoopFrequencyHz: 50,
		Trajectory: TrajectoryConfig{
			MaxVelocityMPS:     3,
			MaxAccelerationMPS: 2,
		},
		Tracking: TrackingConfig{
			Translation:         opts.Translation,
			Rotation:            opts.Rotation,
			PositionToleranceM:  opts.PositionTolerance,
			HeadingToleranceDeg: opts.HeadingTolerance.Degrees(),
			SettleTimeSec:       opts.SettleTime.Seconds(),
		},
		Input: InputConfig{
			IdleDeadband: input.IdleDeadband,
			Drive:        baseremotecontrol.Config{MaxSpeedMPS: 3, MaxAngularDegsPerSec: 360},
		},
		Arm: arm.DefaultAngles,
	}
}

// Validate returns an error if the config is not usable.
func (c *Config) Validate(path string) error {
	if c.Alliance == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "alliance")
	}
	if _, err := field.AllianceFromString(c.Alliance); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if c.LoopFrequencyHz <= 0 {
		return utils.NewConfigValidationError(path, errors.New("loop_frequency_hz must be positive"))
	}
	if err := c.Trajectory.Validate(fmt.Sprintf("%s.%s", path, "trajectory")); err != nil {
		return err
	}
	if err := c.Tracking.Validate(fmt.Sprintf("%s.%s", path, "tracking")); err != nil {
		return err
	}
	if err := c.Input.Validate(fmt.Sprintf("%s.%s", path, "input")); err != nil {
		return err
	}
	if c.Arm.Cone <= 0 || c.Arm.Cube <= 0 {
		return utils.NewConfigValidationError(fmt.Sprintf("%s.%s", path, "arm"), errors.New("arm angles must be positive"))
	}
	if c.LogLevel != "" {
		if _, err := logging.LevelFromString(c.LogLevel); err != nil {
			return utils.NewConfigValidationError(path, err)
		}
	}
	return nil
}

// Validate ensures all parts of the config are valid.
func (c *TrajectoryConfig) Validate(path string) error {
	if c.MaxVelocityMPS <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "max_velocity_mps")
	}
	if c.MaxAccelerationMPS <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "max_acceleration_mps2")
	}
	return nil
}

// Validate ensures all parts of the config are valid.
func (c *TrackingConfig) Validate(path string) error {
	if _, err := control.NewPID(c.Translation); err != nil {
		return utils.NewConfigValidationError(fmt.Sprintf("%s.%s", path, "translation"), err)
	}
	if _, err := control.NewPID(c.Rotation); err != nil {
		return utils.NewConfigValidationError(fmt.Sprintf("%s.%s", path, "rotation"), err)
	}
	if c.PositionToleranceM <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "position_tolerance_m")
	}
	if c.HeadingToleranceDeg <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "heading_tolerance_deg")
	}
	if c.SettleTimeSec < 0 {
		return utils.NewConfigValidationError(path, errors.New("settle_time_sec cannot be negative"))
	}
	return nil
}

// Validate ensures all parts of the config are valid.
func (c *InputConfig) Validate(path string) error {
	if c.IdleDeadband <= 0 || c.IdleDeadband >= 1 {
		return utils.NewConfigValidationError(path, errors.Errorf("idle_deadband must be in (0, 1), got %f", c.IdleDeadband))
	}
	if c.Drive.MaxSpeedMPS <= 0 {
		return utils.NewConfigValidationFieldRequiredError(fmt.Sprintf("%s.%s", path, "drive"), "max_speed_mps")
	}
	if c.Drive.MaxAngularDegsPerSec <= 0 {
		return utils.NewConfigValidationFieldRequiredError(fmt.Sprintf("%s.%s", path, "drive"), "max_angular_degs_per_sec")
	}
	return nil
}

// AllianceValue returns the configured alliance. The config must be valid.
func (c *Config) AllianceValue() field.Alliance {
	a, _ := field.AllianceFromString(c.Alliance)
	return a
}

// LoopPeriod returns the time between two control ticks.
func (c *Config) LoopPeriod() time.Duration {
	return time.Duration(float64(time.Second) / c.LoopFrequencyHz)
}

// Level returns the configured log level, INFO when unset.
func (c *Config) Level() logging.Level {
	if c.LogLevel == "" {
		return logging.INFO
	}
	level, err := logging.LevelFromString(c.LogLevel)
	if err != nil {
		return logging.INFO
	}
	return level
}

// FollowerOptions returns the tracking options for a kinematicbase follower.
func (c *Config) FollowerOptions() kinematicbase.Options {
	return kinematicbase.Options{
		Translation:       c.Tracking.Translation,
		Rotation:          c.Tracking.Rotation,
		PositionTolerance: c.Tracking.PositionToleranceM,
		HeadingTolerance:  s1.Angle(c.Tracking.HeadingToleranceDeg) * s1.Degree,
		SettleTime:        time.Duration(c.Tracking.SettleTimeSec * float64(time.Second)),
	}
}
