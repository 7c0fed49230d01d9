package spatialmath

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// Normalize returns q scaled to unit length. The zero quaternion maps to the identity.
func Normalize(q quat.Number) quat.Number {
	norm := quat.Abs(q)
	if norm == 0 {
		return quat.Number{Real: 1}
	}
	if norm == 1 {
		return q
	}
	return quat.Scale(1/norm, q)
}

// QuatFromYaw returns the unit quaternion for a rotation of yaw radians around +Z.
func QuatFromYaw(yaw float64) quat.Number {
	return quat.Number{Real: math.Cos(yaw / 2), Kmag: math.Sin(yaw / 2)}
}

// Yaw returns the rotation around +Z in radians, in [-pi, pi].
// See https://en.wikipedia.org/wiki/Conversion_between_quaternions_and_Euler_angles
func Yaw(q quat.Number) float64 {
	return math.Atan2(2*(q.Real*q.Kmag+q.Imag*q.Jmag), 1-2*(q.Jmag*q.Jmag+q.Kmag*q.Kmag))
}

// QuaternionAlmostEqual reports whether a and b represent the same rotation within tol. A
// quaternion and its negation are the same rotation.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	return quatWithin(a, b, tol) || quatWithin(a, Flip(b), tol)
}

func quatWithin(a, b quat.Number, tol float64) bool {
	return math.Abs(a.Real-b.Real) <= tol &&
		math.Abs(a.Imag-b.Imag) <= tol &&
		math.Abs(a.Jmag-b.Jmag) <= tol &&
		math.Abs(a.Kmag-b.Kmag) <= tol
}

// Flip will multiply a quaternion by -1, returning a quaternion representing the same orientation but in the opposing octant.
func Flip(q quat.Number) quat.Number {
	return quat.Number{Real: -q.Real, Imag: -q.Imag, Jmag: -q.Jmag, Kmag: -q.Kmag}
}
