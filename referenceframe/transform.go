package referenceframe

import (
	"context"
	"fmt"
	"time"

	"go.viam.com/stateestimator/spatialmath"
)

// StampedTransform is the pose of Child relative to Parent at Time.
type StampedTransform struct {
	Time   time.Time
	Parent string
	Child  string
	Pose   spatialmath.Pose
	// Static links are fixed for the lifetime of an activation.
	Static bool
}

func (st StampedTransform) String() string {
	return fmt.Sprintf("%s -> %s %v", st.Parent, st.Child, st.Pose)
}

// A Broadcaster sends a consistent set of transforms that share one timestamp.
type Broadcaster interface {
	SendTransforms(ctx context.Context, transforms []StampedTransform) error
}
