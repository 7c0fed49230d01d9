package referenceframe

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"
	"go.viam.com/test"

	"go.viam.com/stateestimator/spatialmath"
)

type captureBroadcaster struct {
	batches [][]StampedTransform
	err     error
}

func (cb *captureBroadcaster) SendTransforms(ctx context.Context, transforms []StampedTransform) error {
	if cb.err != nil {
		return cb.err
	}
	cb.batches = append(cb.batches, transforms)
	return nil
}

func newTestGraph(t *testing.T) (*FrameGraph, FrameNames) {
	t.Helper()
	names, _ := NewFrameNames("/drone0", DefaultBaseFrame)
	fg, err := NewFrameGraph(names)
	test.That(t, err, test.ShouldBeNil)
	return fg, names
}

func TestFrameNames(t *testing.T) {
	names, usedNamespace := NewFrameNames("/drone0", "base_link")
	test.That(t, usedNamespace, test.ShouldBeFalse)
	test.That(t, names.Chain(), test.ShouldResemble, []string{"earth", "drone0/map", "drone0/odom", "drone0/base_link"})

	names, usedNamespace = NewFrameNames("/drone0", "")
	test.That(t, usedNamespace, test.ShouldBeTrue)
	test.That(t, names.Body, test.ShouldEqual, "drone0")

	names, _ = NewFrameNames("", "base_link")
	test.That(t, names.Map, test.ShouldEqual, "map")
	test.That(t, GenerateFrameName("/drone0", "/camera"), test.ShouldEqual, "camera")
}

func TestNewFrameGraphRejectsBadNames(t *testing.T) {
	_, err := NewFrameGraph(FrameNames{Global: "earth", Map: "map", Odom: "odom"})
	test.That(t, IsConfigurationError(err), test.ShouldBeTrue)

	// an empty namespace and base frame leave the body unnamed
	names, _ := NewFrameNames("", "")
	_, err = NewFrameGraph(names)
	test.That(t, IsConfigurationError(err), test.ShouldBeTrue)

	_, err = NewFrameGraph(FrameNames{Global: "earth", Map: "map", Odom: "map", Body: "base"})
	test.That(t, IsConfigurationError(err), test.ShouldBeTrue)
}

func TestStaticOffsets(t *testing.T) {
	fg, names := newTestGraph(t)

	// not frozen until the map is connected to the global frame
	test.That(t, IsConfigurationError(fg.Freeze()), test.ShouldBeTrue)

	err := fg.SetStaticOffset(names.Global, names.Odom, spatialmath.NewZeroPose())
	test.That(t, IsConfigurationError(err), test.ShouldBeTrue)
	err = fg.SetStaticOffset(names.Map, names.Global, spatialmath.NewZeroPose())
	test.That(t, IsConfigurationError(err), test.ShouldBeTrue)

	// two static links: earth -> origin -> map
	test.That(t, fg.SetStaticOffset(names.Global, "origin", spatialmath.NewPoseFromPoint(r3.Vector{X: 10})), test.ShouldBeNil)
	test.That(t, fg.SetStaticOffset("origin", names.Map, spatialmath.NewPoseFromPoint(r3.Vector{Y: 5})), test.ShouldBeNil)
	err = fg.SetStaticOffset(names.Global, names.Map, spatialmath.NewZeroPose())
	test.That(t, IsConfigurationError(err), test.ShouldBeTrue)

	test.That(t, fg.Freeze(), test.ShouldBeNil)
	test.That(t, fg.Frozen(), test.ShouldBeTrue)

	err = fg.SetStaticOffset(names.Global, "late", spatialmath.NewZeroPose())
	test.That(t, IsConfigurationError(err), test.ShouldBeTrue)

	pose, err := fg.Compose(names.Global, names.Map)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pose.Point.X, test.ShouldAlmostEqual, 10)
	test.That(t, pose.Point.Y, test.ShouldAlmostEqual, 5)
}

func TestSetDynamicTransform(t *testing.T) {
	fg, names := newTestGraph(t)

	err := fg.SetDynamicTransform(names.Global, names.Odom, spatialmath.NewZeroPose())
	test.That(t, IsConfigurationError(err), test.ShouldBeTrue)
	err = fg.SetDynamicTransform(names.Map, names.Body, spatialmath.NewZeroPose())
	test.That(t, IsConfigurationError(err), test.ShouldBeTrue)

	test.That(t, fg.Dirty(names.Map, names.Odom), test.ShouldBeFalse)
	test.That(t, fg.SetDynamicTransform(names.Map, names.Odom, spatialmath.NewZeroPose()), test.ShouldBeNil)
	test.That(t, fg.Dirty(names.Map, names.Odom), test.ShouldBeTrue)
	test.That(t, fg.Dirty(names.Odom, names.Body), test.ShouldBeFalse)
}

func TestComposeChain(t *testing.T) {
	fg, names := newTestGraph(t)
	test.That(t, fg.SetStaticOffset(names.Global, names.Map, spatialmath.NewZeroPose()), test.ShouldBeNil)
	test.That(t, fg.Freeze(), test.ShouldBeNil)

	// body requested before odometry ever set the dynamic links
	_, err := fg.Compose(names.Global, names.Body)
	test.That(t, IsLookupError(err), test.ShouldBeTrue)

	mapToOdom := spatialmath.NewPoseFromYaw(r3.Vector{X: 1}, math.Pi/2)
	odomToBody := spatialmath.NewPoseFromPoint(r3.Vector{X: 2})
	test.That(t, fg.SetDynamicTransform(names.Map, names.Odom, mapToOdom), test.ShouldBeNil)
	test.That(t, fg.SetDynamicTransform(names.Odom, names.Body, odomToBody), test.ShouldBeNil)

	globalToBody, err := fg.Compose(names.Global, names.Body)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, globalToBody.Point.X, test.ShouldAlmostEqual, 1)
	test.That(t, globalToBody.Point.Y, test.ShouldAlmostEqual, 2)
	test.That(t, spatialmath.Yaw(globalToBody.Orientation), test.ShouldAlmostEqual, math.Pi/2)

	bodyToGlobal, err := fg.Compose(names.Body, names.Global)
	test.That(t, err, test.ShouldBeNil)
	roundTrip := spatialmath.Compose(globalToBody, bodyToGlobal)
	test.That(t, spatialmath.PoseAlmostEqual(roundTrip, spatialmath.NewZeroPose(), 1e-9), test.ShouldBeTrue)

	self, err := fg.Compose(names.Odom, names.Odom)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, self, test.ShouldResemble, spatialmath.NewZeroPose())

	_, err = fg.Compose(names.Global, "nowhere")
	test.That(t, IsLookupError(err), test.ShouldBeTrue)
}

func TestPublishAllOrderAndDirty(t *testing.T) {
	fg, names := newTestGraph(t)
	test.That(t, fg.SetStaticOffset(names.Global, names.Map, spatialmath.NewZeroPose()), test.ShouldBeNil)
	test.That(t, fg.Freeze(), test.ShouldBeNil)

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cb := &captureBroadcaster{}
	err := fg.PublishAll(context.Background(), ts, cb)
	test.That(t, IsLookupError(err), test.ShouldBeTrue)
	test.That(t, cb.batches, test.ShouldBeEmpty)

	test.That(t, fg.SetDynamicTransform(names.Map, names.Odom, spatialmath.NewZeroPose()), test.ShouldBeNil)
	test.That(t, fg.SetDynamicTransform(names.Odom, names.Body, spatialmath.NewZeroPose()), test.ShouldBeNil)

	// a rejected batch keeps the links dirty
	cb.err = errors.New("transport down")
	test.That(t, fg.PublishAll(context.Background(), ts, cb), test.ShouldNotBeNil)
	test.That(t, fg.Dirty(names.Map, names.Odom), test.ShouldBeTrue)

	cb.err = nil
	test.That(t, fg.PublishAll(context.Background(), ts, cb), test.ShouldBeNil)
	test.That(t, cb.batches, test.ShouldHaveLength, 1)

	type pair struct{ Parent, Child string }
	var got []pair
	for _, tf := range cb.batches[0] {
		test.That(t, tf.Time, test.ShouldEqual, ts)
		got = append(got, pair{tf.Parent, tf.Child})
	}
	want := []pair{{names.Global, names.Map}, {names.Map, names.Odom}, {names.Odom, names.Body}}
	test.That(t, cmp.Diff(want, got), test.ShouldBeEmpty)
	test.That(t, cb.batches[0][0].Static, test.ShouldBeTrue)
	test.That(t, cb.batches[0][1].Static, test.ShouldBeFalse)

	test.That(t, fg.Dirty(names.Map, names.Odom), test.ShouldBeFalse)
	test.That(t, fg.Dirty(names.Odom, names.Body), test.ShouldBeFalse)
}

func TestLinks(t *testing.T) {
	fg, names := newTestGraph(t)
	test.That(t, fg.SetStaticOffset(names.Global, names.Map, spatialmath.NewZeroPose()), test.ShouldBeNil)
	test.That(t, fg.Links(), test.ShouldHaveLength, 1)

	test.That(t, fg.SetDynamicTransform(names.Map, names.Odom, spatialmath.NewPoseFromPoint(r3.Vector{X: 3})), test.ShouldBeNil)
	links := fg.Links()
	test.That(t, links, test.ShouldHaveLength, 2)
	test.That(t, links[1].Child, test.ShouldEqual, names.Odom)
	test.That(t, links[1].Pose.Point.X, test.ShouldEqual, 3.0)
}
