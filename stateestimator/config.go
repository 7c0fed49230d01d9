package stateestimator

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/stateestimator/localization"
	"go.viam.com/stateestimator/logging"
	"go.viam.com/stateestimator/referenceframe"
)

const (
	defaultRateHz = 100.0

	// DriftApproximate subtracts translations directly when reconciling drift.
	DriftApproximate = "approximate"
	// DriftRigid computes the exact map -> odom transform.
	DriftRigid = "rigid"

	// StartingPoseFixed places the map at a configured offset from the global frame.
	StartingPoseFixed = "fixed"
	// StartingPoseGeodetic derives the map offset from a geodetic origin and start point.
	StartingPoseGeodetic = "geodetic"
)

// Vector3Config is a configured 3D vector.
type Vector3Config struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// GeoPointConfig is a configured latitude/longitude/altitude.
type GeoPointConfig struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
	Alt float64 `json:"alt"`
}

// StartingPoseConfig describes where the map frame sits in the global frame.
type StartingPoseConfig struct {
	Type        string          `json:"type"`
	Translation Vector3Config   `json:"translation"`
	YawDegrees  float64         `json:"yaw_degrees"`
	Origin      *GeoPointConfig `json:"origin"`
	Start       *GeoPointConfig `json:"start"`
}

// Validate ensures the starting pose is usable.
func (cfg *StartingPoseConfig) Validate(path string) error {
	switch cfg.Type {
	case "", StartingPoseFixed:
		return nil
	case StartingPoseGeodetic:
		if cfg.Origin == nil {
			return goutils.NewConfigValidationFieldRequiredError(path, "origin")
		}
		if cfg.Start == nil {
			return goutils.NewConfigValidationFieldRequiredError(path, "start")
		}
		for name, pt := range map[string]*GeoPointConfig{"origin": cfg.Origin, "start": cfg.Start} {
			if pt.Lat < -90 || pt.Lat > 90 || pt.Lng < -180 || pt.Lng > 180 {
				return goutils.NewConfigValidationError(path,
					errors.Errorf("%s (%v, %v) is not a valid latitude/longitude", name, pt.Lat, pt.Lng))
			}
		}
		return nil
	default:
		return goutils.NewConfigValidationError(path,
			errors.Errorf("unknown starting pose type %q, expected %q or %q", cfg.Type, StartingPoseFixed, StartingPoseGeodetic))
	}
}

// LogConfig configures the estimator's logger.
type LogConfig struct {
	Level      string `json:"level"`
	File       string `json:"file"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
}

// FileConfig returns the rotating file settings, or false if no file is configured.
func (cfg LogConfig) FileConfig() (logging.FileConfig, bool) {
	if cfg.File == "" {
		return logging.FileConfig{}, false
	}
	return logging.FileConfig{Filename: cfg.File, MaxSizeMB: cfg.MaxSizeMB, MaxBackups: cfg.MaxBackups}, true
}

// Config is the attribute configuration of the state estimator.
type Config struct {
	Namespace       string              `json:"namespace"`
	OdomOnly        bool                `json:"odom_only"`
	GroundTruth     bool                `json:"ground_truth"`
	SensorFusion    bool                `json:"sensor_fusion"`
	BaseFrame       *string             `json:"base_frame"`
	RateHz          float64             `json:"rate_hz"`
	DriftCorrection string              `json:"drift_correction"`
	StartingPose    *StartingPoseConfig `json:"starting_pose"`
	Log             LogConfig           `json:"log"`
}

// DecodeConfig decodes an attribute map. Booleans may be given as strings such as "True".
func DecodeConfig(attributes map[string]interface{}) (*Config, error) {
	var conf Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &conf,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, errors.Wrap(err, "decoding state estimator attributes")
	}
	return &conf, nil
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	var errs error
	if cfg.RateHz < 0 {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(path,
			errors.Errorf("rate_hz must be positive, got %v", cfg.RateHz)))
	}
	switch cfg.DriftCorrection {
	case "", DriftApproximate, DriftRigid:
	default:
		errs = multierr.Append(errs, goutils.NewConfigValidationError(path,
			errors.Errorf("unknown drift_correction %q, expected %q or %q", cfg.DriftCorrection, DriftApproximate, DriftRigid)))
	}
	if cfg.StartingPose != nil {
		errs = multierr.Append(errs, cfg.StartingPose.Validate(fmt.Sprintf("%s.%s", path, "starting_pose")))
	}
	if cfg.Log.Level != "" {
		if _, err := logging.LevelFromString(cfg.Log.Level); err != nil {
			errs = multierr.Append(errs, goutils.NewConfigValidationError(path, err))
		}
	}
	return errs
}

// ModeFlags returns the estimation mode flags.
func (cfg *Config) ModeFlags() localization.ModeFlags {
	return localization.ModeFlags{
		OdomOnly:     cfg.OdomOnly,
		GroundTruth:  cfg.GroundTruth,
		SensorFusion: cfg.SensorFusion,
	}
}

// Frame returns the configured base frame, defaulting to "base_link" when unset. An explicitly
// empty base frame is kept so the body falls back to the namespace.
func (cfg *Config) Frame() string {
	if cfg.BaseFrame == nil {
		return referenceframe.DefaultBaseFrame
	}
	return *cfg.BaseFrame
}

// Period returns the tick period.
func (cfg *Config) Period() time.Duration {
	rate := cfg.RateHz
	if rate <= 0 {
		rate = defaultRateHz
	}
	return time.Duration(float64(time.Second) / rate)
}

// Rigid reports whether the exact drift correction is selected.
func (cfg *Config) Rigid() bool {
	return cfg.DriftCorrection == DriftRigid
}
