package spatialmath

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Twist is a linear and angular velocity pair. The frame it is expressed in is carried by whoever
// holds it.
type Twist struct {
	Linear  r3.Vector
	Angular r3.Vector
}

// RotateFLUToENU re-expresses a forward-left-up body vector in the east-north-up frame the body's
// orientation is given in.
func RotateFLUToENU(orientation quat.Number, v r3.Vector) r3.Vector {
	q := Normalize(orientation)
	rotated := mgl64.Quat{W: q.Real, V: mgl64.Vec3{q.Imag, q.Jmag, q.Kmag}}.Rotate(mgl64.Vec3{v.X, v.Y, v.Z})
	return r3.Vector{X: rotated[0], Y: rotated[1], Z: rotated[2]}
}
