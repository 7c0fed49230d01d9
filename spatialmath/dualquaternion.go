package spatialmath

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/dualquat"
	"gonum.org/v1/gonum/num/quat"
)

// DualQuaternion is a unit dual quaternion encoding a rigid transform. Products of dual quaternions
// compose transforms in the same order as Compose.
type DualQuaternion struct {
	Number dualquat.Number
}

// NewDualQuaternion returns the identity dual quaternion. Since the real part of a dual quaternion
// should be a unit quaternion, not all zeroes, this should be used instead of DualQuaternion{}.
func NewDualQuaternion() DualQuaternion {
	return DualQuaternion{dualquat.Number{Real: quat.Number{Real: 1}}}
}

// NewDualQuaternionFromPose encodes p, with the dual part set to 0.5 * t * q.
func NewDualQuaternionFromPose(p Pose) DualQuaternion {
	rot := Normalize(p.Orientation)
	t := quat.Number{Imag: p.Point.X / 2, Jmag: p.Point.Y / 2, Kmag: p.Point.Z / 2}
	return DualQuaternion{dualquat.Number{Real: rot, Dual: quat.Mul(t, rot)}}
}

// Transformation returns q * by, the transform q followed by the transform by.
func (q DualQuaternion) Transformation(by DualQuaternion) DualQuaternion {
	// Ensure we are multiplying by a unit dual quaternion
	if vecLen := quat.Abs(by.Number.Real); vecLen != 1 {
		by.Number.Real = quat.Scale(1/vecLen, by.Number.Real)
	}
	return DualQuaternion{dualquat.Mul(q.Number, by.Number)}
}

// Pose decodes the rigid transform; the translation is 2 * dual * conj(real).
func (q DualQuaternion) Pose() Pose {
	rot := Normalize(q.Number.Real)
	t := quat.Scale(2, quat.Mul(q.Number.Dual, quat.Conj(rot)))
	return Pose{Point: r3.Vector{X: t.Imag, Y: t.Jmag, Z: t.Kmag}, Orientation: rot}
}

// ComposeChain composes poses left to right, so ComposeChain(a, b, c) is the transform a then b then c.
// No poses yields the identity.
func ComposeChain(poses ...Pose) Pose {
	acc := NewDualQuaternion()
	for _, p := range poses {
		acc = acc.Transformation(NewDualQuaternionFromPose(p))
	}
	return acc.Pose()
}
