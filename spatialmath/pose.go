// Package spatialmath defines the rigid body math used to maintain a chain of coordinate frames.
//
// A Pose is always "child relative to parent" for an ordered pair of frames. Translations are
// expressed in the parent frame and orientations are unit quaternions.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose is a rigid transform: a translation followed by a rotation.
type Pose struct {
	Point       r3.Vector
	Orientation quat.Number
}

// NewZeroPose returns the identity transform.
func NewZeroPose() Pose {
	return Pose{Orientation: quat.Number{Real: 1}}
}

// NewPose returns a pose with a normalized copy of the given orientation.
func NewPose(point r3.Vector, orientation quat.Number) Pose {
	return Pose{Point: point, Orientation: Normalize(orientation)}
}

// NewPoseFromPoint returns a pose with the given translation and no rotation.
func NewPoseFromPoint(point r3.Vector) Pose {
	return Pose{Point: point, Orientation: quat.Number{Real: 1}}
}

// NewPoseFromYaw returns a pose translated by point and rotated by yaw radians around +Z.
func NewPoseFromYaw(point r3.Vector, yaw float64) Pose {
	return Pose{Point: point, Orientation: QuatFromYaw(yaw)}
}

func (p Pose) String() string {
	return fmt.Sprintf("{X:%.4f Y:%.4f Z:%.4f | W:%.4f X:%.4f Y:%.4f Z:%.4f}",
		p.Point.X, p.Point.Y, p.Point.Z,
		p.Orientation.Real, p.Orientation.Imag, p.Orientation.Jmag, p.Orientation.Kmag)
}

// Compose chains parentToMid and midToChild into parentToChild. The translation of midToChild is
// rotated into the parent frame before being added, and the result is renormalized so repeated
// composition does not accumulate drift in the quaternion norm.
func Compose(parentToMid, midToChild Pose) Pose {
	return Pose{
		Point:       parentToMid.Point.Add(RotatePoint(parentToMid.Orientation, midToChild.Point)),
		Orientation: Normalize(quat.Mul(parentToMid.Orientation, midToChild.Orientation)),
	}
}

// Invert returns the transform from child back to parent.
func Invert(p Pose) Pose {
	conj := quat.Conj(Normalize(p.Orientation))
	return Pose{
		Point:       RotatePoint(conj, p.Point).Mul(-1),
		Orientation: conj,
	}
}

// DriftBetween returns the map->odom correction that makes odom->body line up with a trusted
// map->body estimate.
//
// The translation is a plain subtraction of the two translations. That is only a rigid correction
// when odom and map share an orientation; under yaw drift the result is an approximation and
// Compose(DriftBetween(o, m), o) misses m's translation by (R(drift)-I)*o.Point. The rotation
// part is exact. RigidDriftBetween is the exact alternative.
func DriftBetween(odomToBody, mapToBody Pose) Pose {
	return Pose{
		Point:       mapToBody.Point.Sub(odomToBody.Point),
		Orientation: Normalize(quat.Mul(mapToBody.Orientation, quat.Conj(odomToBody.Orientation))),
	}
}

// RigidDriftBetween returns the exact map->odom transform, mapToBody * inverse(odomToBody).
func RigidDriftBetween(odomToBody, mapToBody Pose) Pose {
	return Compose(mapToBody, Invert(odomToBody))
}

// RotatePoint rotates v by the unit quaternion q.
func RotatePoint(q quat.Number, v r3.Vector) r3.Vector {
	rotated := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return r3.Vector{X: rotated.Imag, Y: rotated.Jmag, Z: rotated.Kmag}
}

// PoseAlmostEqual reports whether two poses agree within tol on every translation axis and represent
// the same rotation within tol.
func PoseAlmostEqual(a, b Pose, tol float64) bool {
	if math.Abs(a.Point.X-b.Point.X) > tol ||
		math.Abs(a.Point.Y-b.Point.Y) > tol ||
		math.Abs(a.Point.Z-b.Point.Z) > tol {
		return false
	}
	return QuaternionAlmostEqual(a.Orientation, b.Orientation, tol)
}
