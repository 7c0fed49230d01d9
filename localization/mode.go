// Package localization chooses, once per tick, which source is authoritative for the map -> body
// transform and the global twist.
package localization

import (
	"context"
	"strings"

	"go.viam.com/stateestimator/logging"
	"go.viam.com/stateestimator/referenceframe"
	"go.viam.com/stateestimator/spatialmath"
)

// Mode is the estimation mode. It is a closed set: OdomOnly, GroundTruth or SensorFusion.
type Mode interface {
	String() string
	isMode()
}

// OdomOnly trusts integrated odometry; the map -> odom drift stays at identity.
type OdomOnly struct{}

// GroundTruth trusts an external ground-truth pose and twist already expressed in the global frame.
type GroundTruth struct{}

// SensorFusion delegates the estimate to an injected FusionSource.
type SensorFusion struct {
	Source FusionSource
}

func (OdomOnly) String() string     { return "odom_only" }
func (GroundTruth) String() string  { return "ground_truth" }
func (SensorFusion) String() string { return "sensor_fusion" }

func (OdomOnly) isMode()     {}
func (GroundTruth) isMode()  {}
func (SensorFusion) isMode() {}

// FusionSource supplies a fused map -> body pose and a global twist. No implementation ships with
// this module; hosts that fuse sensors inject one.
type FusionSource interface {
	Estimate(ctx context.Context, odometry Odometry) (spatialmath.Pose, TwistStamped, error)
}

// ModeFlags are the configuration booleans selecting a mode.
type ModeFlags struct {
	OdomOnly     bool
	GroundTruth  bool
	SensorFusion bool
}

func (mf ModeFlags) enabled() []string {
	var names []string
	if mf.SensorFusion {
		names = append(names, SensorFusion{}.String())
	}
	if mf.GroundTruth {
		names = append(names, GroundTruth{}.String())
	}
	if mf.OdomOnly {
		names = append(names, OdomOnly{}.String())
	}
	return names
}

// Resolution is the outcome of ResolveMode.
type Resolution struct {
	Mode Mode
	// Defaulted is set when no flag was enabled and OdomOnly was chosen.
	Defaulted bool
	// Ignored lists enabled flags that lost to a higher precedence mode.
	Ignored []string
}

// ResolveMode reduces the flags to one mode with precedence SensorFusion > GroundTruth > OdomOnly.
// No flag falls back to OdomOnly with an error-level diagnostic. Requesting sensor fusion without a
// FusionSource is a configuration error rather than a silent no-op.
func ResolveMode(flags ModeFlags, fusion FusionSource, logger logging.Logger) (Resolution, error) {
	enabled := flags.enabled()
	if len(enabled) == 0 {
		logger.Errorw("no estimation mode enabled, defaulting", "mode", OdomOnly{}.String())
		return Resolution{Mode: OdomOnly{}, Defaulted: true}, nil
	}

	var res Resolution
	switch {
	case flags.SensorFusion:
		if fusion == nil {
			return Resolution{}, referenceframe.NewConfigurationError(
				"sensor_fusion requested but no fusion source is available")
		}
		res.Mode = SensorFusion{Source: fusion}
	case flags.GroundTruth:
		res.Mode = GroundTruth{}
	default:
		res.Mode = OdomOnly{}
	}
	res.Ignored = enabled[1:]
	if len(res.Ignored) > 0 {
		logger.Warnw("several estimation modes enabled, using the highest precedence one",
			"mode", res.Mode.String(), "ignored", strings.Join(res.Ignored, ","))
	}
	logger.Infow("estimation mode", "mode", res.Mode.String())
	return res, nil
}
