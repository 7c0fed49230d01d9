package ros

import (
	"time"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/stateestimator/localization"
	"go.viam.com/stateestimator/referenceframe"
	"go.viam.com/stateestimator/spatialmath"
)

// Time is a ROS time stamp.
type Time struct {
	Secs  int64 `json:"secs"`
	Nsecs int64 `json:"nsecs"`
}

// NewTime converts t to a ROS time stamp.
func NewTime(t time.Time) Time {
	if t.IsZero() {
		return Time{}
	}
	return Time{Secs: t.Unix(), Nsecs: int64(t.Nanosecond())}
}

// Time converts the stamp to a time.Time. The zero stamp is the zero time.
func (t Time) Time() time.Time {
	if t.Secs == 0 && t.Nsecs == 0 {
		return time.Time{}
	}
	return time.Unix(t.Secs, t.Nsecs).UTC()
}

// Header is std_msgs/Header.
type Header struct {
	Seq     uint32 `json:"seq"`
	Stamp   Time   `json:"stamp"`
	FrameID string `json:"frame_id"`
}

// Vector3 is geometry_msgs/Vector3 and geometry_msgs/Point.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quaternion is geometry_msgs/Quaternion.
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// Pose is geometry_msgs/Pose.
type Pose struct {
	Position    Vector3    `json:"position"`
	Orientation Quaternion `json:"orientation"`
}

// Twist is geometry_msgs/Twist.
type Twist struct {
	Linear  Vector3 `json:"linear"`
	Angular Vector3 `json:"angular"`
}

// PoseWithCovariance is geometry_msgs/PoseWithCovariance.
type PoseWithCovariance struct {
	Pose       Pose        `json:"pose"`
	Covariance [36]float64 `json:"covariance"`
}

// TwistWithCovariance is geometry_msgs/TwistWithCovariance.
type TwistWithCovariance struct {
	Twist      Twist       `json:"twist"`
	Covariance [36]float64 `json:"covariance"`
}

// OdometryMessage is nav_msgs/Odometry.
type OdometryMessage struct {
	Header       Header              `json:"header"`
	ChildFrameID string              `json:"child_frame_id"`
	Pose         PoseWithCovariance  `json:"pose"`
	Twist        TwistWithCovariance `json:"twist"`
}

// PoseStampedMessage is geometry_msgs/PoseStamped.
type PoseStampedMessage struct {
	Header Header `json:"header"`
	Pose   Pose   `json:"pose"`
}

// TwistStampedMessage is geometry_msgs/TwistStamped.
type TwistStampedMessage struct {
	Header Header `json:"header"`
	Twist  Twist  `json:"twist"`
}

// Transform is geometry_msgs/Transform.
type Transform struct {
	Translation Vector3    `json:"translation"`
	Rotation    Quaternion `json:"rotation"`
}

// TransformStampedMessage is geometry_msgs/TransformStamped.
type TransformStampedMessage struct {
	Header       Header    `json:"header"`
	ChildFrameID string    `json:"child_frame_id"`
	Transform    Transform `json:"transform"`
}

// TFMessage is tf2_msgs/TFMessage.
type TFMessage struct {
	Transforms []TransformStampedMessage `json:"transforms"`
}

func vectorFromROS(v Vector3) r3.Vector {
	return r3.Vector{X: v.X, Y: v.Y, Z: v.Z}
}

func vectorToROS(v r3.Vector) Vector3 {
	return Vector3{X: v.X, Y: v.Y, Z: v.Z}
}

func quaternionFromROS(q Quaternion) quat.Number {
	return quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z}
}

func quaternionToROS(q quat.Number) Quaternion {
	return Quaternion{X: q.Imag, Y: q.Jmag, Z: q.Kmag, W: q.Real}
}

// PoseFromROS converts a ROS pose. The orientation is normalized; an all-zero quaternion becomes
// the identity.
func PoseFromROS(p Pose) spatialmath.Pose {
	return spatialmath.NewPose(vectorFromROS(p.Position), quaternionFromROS(p.Orientation))
}

// PoseToROS converts a pose to its ROS form.
func PoseToROS(p spatialmath.Pose) Pose {
	return Pose{Position: vectorToROS(p.Point), Orientation: quaternionToROS(p.Orientation)}
}

// TwistFromROS converts a ROS twist.
func TwistFromROS(t Twist) spatialmath.Twist {
	return spatialmath.Twist{Linear: vectorFromROS(t.Linear), Angular: vectorFromROS(t.Angular)}
}

// TwistToROS converts a twist to its ROS form.
func TwistToROS(t spatialmath.Twist) Twist {
	return Twist{Linear: vectorToROS(t.Linear), Angular: vectorToROS(t.Angular)}
}

// Odometry converts the message for the estimator.
func (m OdometryMessage) Odometry() localization.Odometry {
	return localization.Odometry{
		Time:         m.Header.Stamp.Time(),
		FrameID:      m.Header.FrameID,
		ChildFrameID: m.ChildFrameID,
		Pose:         PoseFromROS(m.Pose.Pose),
		Twist:        TwistFromROS(m.Twist.Twist),
	}
}

// PoseStamped converts the message for the estimator.
func (m PoseStampedMessage) PoseStamped() localization.PoseStamped {
	return localization.PoseStamped{
		Time:    m.Header.Stamp.Time(),
		FrameID: m.Header.FrameID,
		Pose:    PoseFromROS(m.Pose),
	}
}

// TwistStamped converts the message for the estimator.
func (m TwistStampedMessage) TwistStamped() localization.TwistStamped {
	return localization.TwistStamped{
		Time:    m.Header.Stamp.Time(),
		FrameID: m.Header.FrameID,
		Twist:   TwistFromROS(m.Twist),
	}
}

// NewPoseStampedMessage converts an estimator pose to its ROS message.
func NewPoseStampedMessage(p localization.PoseStamped) PoseStampedMessage {
	return PoseStampedMessage{
		Header: Header{Stamp: NewTime(p.Time), FrameID: p.FrameID},
		Pose:   PoseToROS(p.Pose),
	}
}

// NewTwistStampedMessage converts an estimator twist to its ROS message.
func NewTwistStampedMessage(t localization.TwistStamped) TwistStampedMessage {
	return TwistStampedMessage{
		Header: Header{Stamp: NewTime(t.Time), FrameID: t.FrameID},
		Twist:  TwistToROS(t.Twist),
	}
}

// NewTransformStampedMessage converts a stamped transform to its ROS message.
func NewTransformStampedMessage(st referenceframe.StampedTransform) TransformStampedMessage {
	return TransformStampedMessage{
		Header:       Header{Stamp: NewTime(st.Time), FrameID: st.Parent},
		ChildFrameID: st.Child,
		Transform: Transform{
			Translation: vectorToROS(st.Pose.Point),
			Rotation:    quaternionToROS(st.Pose.Orientation),
		},
	}
}
