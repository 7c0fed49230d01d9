package localization

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/stateestimator/spatialmath"
)

var (
	// ErrNoOdometry is returned when an estimate is requested before any odometry was latched.
	ErrNoOdometry = errors.New("no odometry received")
	// ErrNoGroundTruth is returned in ground-truth mode before any ground-truth pose was latched.
	ErrNoGroundTruth = errors.New("no ground-truth pose received")
)

// Estimate is the single authoritative localization for one tick.
type Estimate struct {
	// MapToBody is the pose of the body in the map frame.
	MapToBody spatialmath.Pose
	// Odometry is the sample the estimate was made against.
	Odometry Odometry
	// Twist is the body velocity, in the frame named by Twist.FrameID.
	Twist TwistStamped
}

// Selector produces one Estimate per tick from the latched inputs, according to a mode fixed at
// construction. There is never any blending between sources.
type Selector struct {
	mode        Mode
	inputs      *Inputs
	globalToMap spatialmath.Pose
	globalFrame string
}

// NewSelector returns a selector for mode. globalToMap is the fixed offset of the map frame, used
// to express odometry velocities in the global frame.
func NewSelector(mode Mode, inputs *Inputs, globalToMap spatialmath.Pose, globalFrame string) *Selector {
	return &Selector{
		mode:        mode,
		inputs:      inputs,
		globalToMap: globalToMap,
		globalFrame: globalFrame,
	}
}

// Mode returns the mode the selector was built with.
func (s *Selector) Mode() Mode {
	return s.mode
}

// CurrentEstimate reads the latched inputs and returns the map -> body estimate and global twist.
func (s *Selector) CurrentEstimate(ctx context.Context) (Estimate, error) {
	odom, ok := s.inputs.Odometry.Load()
	if !ok {
		return Estimate{}, ErrNoOdometry
	}

	switch mode := s.mode.(type) {
	case OdomOnly:
		// drift is taken as identity at estimate time, so map -> body is odom -> body
		globalOrientation := spatialmath.Compose(s.globalToMap, odom.Pose).Orientation
		return Estimate{
			MapToBody: odom.Pose,
			Odometry:  odom,
			Twist: TwistStamped{
				Time:    odom.Time,
				FrameID: s.globalFrame,
				Twist: spatialmath.Twist{
					Linear:  spatialmath.RotateFLUToENU(globalOrientation, odom.Twist.Linear),
					Angular: odom.Twist.Angular,
				},
			},
		}, nil
	case GroundTruth:
		gtPose, ok := s.inputs.GroundTruthPose.Load()
		if !ok {
			return Estimate{}, ErrNoGroundTruth
		}
		gtTwist, ok := s.inputs.GroundTruthTwist.Load()
		if !ok || gtTwist.FrameID == "" {
			gtTwist.FrameID = s.globalFrame
		}
		return Estimate{
			MapToBody: spatialmath.NewPose(gtPose.Pose.Point, gtPose.Pose.Orientation),
			Odometry:  odom,
			Twist:     gtTwist,
		}, nil
	case SensorFusion:
		pose, twist, err := mode.Source.Estimate(ctx, odom)
		if err != nil {
			return Estimate{}, errors.Wrap(err, "sensor fusion estimate")
		}
		return Estimate{MapToBody: pose, Odometry: odom, Twist: twist}, nil
	default:
		return Estimate{}, errors.Errorf("unsupported estimation mode %v", s.mode)
	}
}
