package localization

import (
	"time"

	"go.viam.com/stateestimator/spatialmath"
)

// Odometry is a pre-integrated odometry sample: the pose of ChildFrameID in FrameID and the twist
// of the body in its own forward-left-up frame.
type Odometry struct {
	Time         time.Time
	FrameID      string
	ChildFrameID string
	Pose         spatialmath.Pose
	Twist        spatialmath.Twist
}

// PoseStamped is a pose expressed in FrameID.
type PoseStamped struct {
	Time    time.Time
	FrameID string
	Pose    spatialmath.Pose
}

// TwistStamped is a twist expressed in FrameID.
type TwistStamped struct {
	Time    time.Time
	FrameID string
	Twist   spatialmath.Twist
}
