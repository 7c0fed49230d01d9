package stateestimator

import (
	"context"
	"sync"

	"go.uber.org/multierr"

	"go.viam.com/stateestimator/localization"
	"go.viam.com/stateestimator/referenceframe"
)

// A Publisher delivers the outputs of a tick to external collaborators. Within a tick transforms
// are sent first, then the pose, then the twist, all with the same timestamp.
type Publisher interface {
	referenceframe.Broadcaster
	PublishPose(ctx context.Context, pose localization.PoseStamped) error
	PublishTwist(ctx context.Context, twist localization.TwistStamped) error
}

// Recorder is an in-memory Publisher.
type Recorder struct {
	mu         sync.Mutex
	transforms [][]referenceframe.StampedTransform
	poses      []localization.PoseStamped
	twists     []localization.TwistStamped
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// SendTransforms records one batch of transforms.
func (r *Recorder) SendTransforms(ctx context.Context, transforms []referenceframe.StampedTransform) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transforms = append(r.transforms, append([]referenceframe.StampedTransform{}, transforms...))
	return nil
}

// PublishPose records pose.
func (r *Recorder) PublishPose(ctx context.Context, pose localization.PoseStamped) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.poses = append(r.poses, pose)
	return nil
}

// PublishTwist records twist.
func (r *Recorder) PublishTwist(ctx context.Context, twist localization.TwistStamped) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.twists = append(r.twists, twist)
	return nil
}

// Transforms returns every recorded batch.
func (r *Recorder) Transforms() [][]referenceframe.StampedTransform {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]referenceframe.StampedTransform{}, r.transforms...)
}

// Poses returns every recorded pose.
func (r *Recorder) Poses() []localization.PoseStamped {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]localization.PoseStamped{}, r.poses...)
}

// Twists returns every recorded twist.
func (r *Recorder) Twists() []localization.TwistStamped {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]localization.TwistStamped{}, r.twists...)
}

// MultiPublisher fans every message out to each of its publishers. Every publisher is called even
// if an earlier one fails.
type MultiPublisher []Publisher

// SendTransforms sends transforms to every publisher.
func (mp MultiPublisher) SendTransforms(ctx context.Context, transforms []referenceframe.StampedTransform) error {
	var errs error
	for _, p := range mp {
		errs = multierr.Append(errs, p.SendTransforms(ctx, transforms))
	}
	return errs
}

// PublishPose sends pose to every publisher.
func (mp MultiPublisher) PublishPose(ctx context.Context, pose localization.PoseStamped) error {
	var errs error
	for _, p := range mp {
		errs = multierr.Append(errs, p.PublishPose(ctx, pose))
	}
	return errs
}

// PublishTwist sends twist to every publisher.
func (mp MultiPublisher) PublishTwist(ctx context.Context, twist localization.TwistStamped) error {
	var errs error
	for _, p := range mp {
		errs = multierr.Append(errs, p.PublishTwist(ctx, twist))
	}
	return errs
}
