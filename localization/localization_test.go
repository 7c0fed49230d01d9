package localization

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/stateestimator/logging"
	"go.viam.com/stateestimator/referenceframe"
	"go.viam.com/stateestimator/spatialmath"
)

type fakeFusion struct {
	pose spatialmath.Pose
	err  error
}

func (ff *fakeFusion) Estimate(ctx context.Context, odometry Odometry) (spatialmath.Pose, TwistStamped, error) {
	return ff.pose, TwistStamped{FrameID: "earth", Twist: spatialmath.Twist{Linear: r3.Vector{Z: 1}}}, ff.err
}

func TestResolveModePrecedence(t *testing.T) {
	fusion := &fakeFusion{}
	for _, tc := range []struct {
		flags     ModeFlags
		expected  Mode
		ignored   int
		defaulted bool
	}{
		{ModeFlags{}, OdomOnly{}, 0, true},
		{ModeFlags{OdomOnly: true}, OdomOnly{}, 0, false},
		{ModeFlags{GroundTruth: true}, GroundTruth{}, 0, false},
		{ModeFlags{SensorFusion: true}, SensorFusion{Source: fusion}, 0, false},
		{ModeFlags{OdomOnly: true, GroundTruth: true}, GroundTruth{}, 1, false},
		{ModeFlags{OdomOnly: true, SensorFusion: true}, SensorFusion{Source: fusion}, 1, false},
		{ModeFlags{GroundTruth: true, SensorFusion: true}, SensorFusion{Source: fusion}, 1, false},
		{ModeFlags{OdomOnly: true, GroundTruth: true, SensorFusion: true}, SensorFusion{Source: fusion}, 2, false},
	} {
		res, err := ResolveMode(tc.flags, fusion, logging.NewTestLogger(t))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Mode, test.ShouldResemble, tc.expected)
		test.That(t, res.Ignored, test.ShouldHaveLength, tc.ignored)
		test.That(t, res.Defaulted, test.ShouldEqual, tc.defaulted)
	}
}

func TestResolveModeDiagnostics(t *testing.T) {
	logger, observed := logging.NewObservedTestLogger(t)
	res, err := ResolveMode(ModeFlags{}, nil, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Mode, test.ShouldResemble, OdomOnly{})
	test.That(t, observed.FilterMessage("no estimation mode enabled, defaulting").Len(), test.ShouldEqual, 1)

	logger, observed = logging.NewObservedTestLogger(t)
	_, err = ResolveMode(ModeFlags{OdomOnly: true, GroundTruth: true}, nil, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, observed.FilterMessageSnippet("several estimation modes").Len(), test.ShouldEqual, 1)
}

func TestResolveModeFusionWithoutSource(t *testing.T) {
	_, err := ResolveMode(ModeFlags{SensorFusion: true, OdomOnly: true}, nil, logging.NewTestLogger(t))
	test.That(t, referenceframe.IsConfigurationError(err), test.ShouldBeTrue)
}

func TestLatch(t *testing.T) {
	var latch Latch[Odometry]
	_, ok := latch.Load()
	test.That(t, ok, test.ShouldBeFalse)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 100; i++ {
			latch.Store(Odometry{Pose: spatialmath.NewPoseFromPoint(r3.Vector{X: float64(i)})})
		}
	}()
	wg.Wait()

	odom, ok := latch.Load()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, odom.Pose.Point.X, test.ShouldEqual, 100.0)
	test.That(t, latch.Writes(), test.ShouldEqual, uint64(100))
}

func TestSelectorOdomOnly(t *testing.T) {
	inputs := &Inputs{}
	selector := NewSelector(OdomOnly{}, inputs, spatialmath.NewZeroPose(), "earth")

	_, err := selector.CurrentEstimate(context.Background())
	test.That(t, errors.Is(err, ErrNoOdometry), test.ShouldBeTrue)

	// facing +Y, moving forward at 1 m/s, turning at 0.5 rad/s
	inputs.Odometry.Store(Odometry{
		Time: time.Unix(10, 0),
		Pose: spatialmath.NewPoseFromYaw(r3.Vector{X: 1}, math.Pi/2),
		Twist: spatialmath.Twist{
			Linear:  r3.Vector{X: 1},
			Angular: r3.Vector{Z: 0.5},
		},
	})
	est, err := selector.CurrentEstimate(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, est.MapToBody.Point, test.ShouldResemble, r3.Vector{X: 1})
	test.That(t, est.Twist.FrameID, test.ShouldEqual, "earth")
	test.That(t, est.Twist.Twist.Linear.X, test.ShouldAlmostEqual, 0)
	test.That(t, est.Twist.Twist.Linear.Y, test.ShouldAlmostEqual, 1)
	test.That(t, est.Twist.Twist.Angular, test.ShouldResemble, r3.Vector{Z: 0.5})

	// ground truth is ignored in this mode
	inputs.GroundTruthPose.Store(PoseStamped{Pose: spatialmath.NewPoseFromPoint(r3.Vector{X: 50})})
	est, err = selector.CurrentEstimate(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, est.MapToBody.Point, test.ShouldResemble, r3.Vector{X: 1})
}

func TestSelectorOdomOnlyUsesMapOffsetForTwist(t *testing.T) {
	inputs := &Inputs{}
	globalToMap := spatialmath.NewPoseFromYaw(r3.Vector{X: 100}, math.Pi)
	selector := NewSelector(OdomOnly{}, inputs, globalToMap, "earth")
	inputs.Odometry.Store(Odometry{
		Pose:  spatialmath.NewZeroPose(),
		Twist: spatialmath.Twist{Linear: r3.Vector{X: 2}},
	})
	est, err := selector.CurrentEstimate(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, est.Twist.Twist.Linear.X, test.ShouldAlmostEqual, -2)
}

func TestSelectorGroundTruth(t *testing.T) {
	inputs := &Inputs{}
	selector := NewSelector(GroundTruth{}, inputs, spatialmath.NewZeroPose(), "earth")
	inputs.Odometry.Store(Odometry{Pose: spatialmath.NewPoseFromPoint(r3.Vector{X: 1})})

	_, err := selector.CurrentEstimate(context.Background())
	test.That(t, errors.Is(err, ErrNoGroundTruth), test.ShouldBeTrue)

	gt := spatialmath.NewPoseFromYaw(r3.Vector{X: 2, Y: 3}, math.Pi/2)
	inputs.GroundTruthPose.Store(PoseStamped{FrameID: "earth", Pose: gt})
	est, err := selector.CurrentEstimate(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.PoseAlmostEqual(est.MapToBody, gt, 1e-12), test.ShouldBeTrue)
	test.That(t, est.Twist.FrameID, test.ShouldEqual, "earth")

	inputs.GroundTruthTwist.Store(TwistStamped{
		FrameID: "drone0/odom",
		Twist:   spatialmath.Twist{Linear: r3.Vector{X: 3}, Angular: r3.Vector{Z: 1}},
	})
	est, err = selector.CurrentEstimate(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, est.Twist.FrameID, test.ShouldEqual, "drone0/odom")
	test.That(t, est.Twist.Twist.Linear, test.ShouldResemble, r3.Vector{X: 3})
}

func TestSelectorSensorFusion(t *testing.T) {
	inputs := &Inputs{}
	fusion := &fakeFusion{pose: spatialmath.NewPoseFromPoint(r3.Vector{Y: 7})}
	selector := NewSelector(SensorFusion{Source: fusion}, inputs, spatialmath.NewZeroPose(), "earth")
	inputs.Odometry.Store(Odometry{Pose: spatialmath.NewZeroPose()})

	est, err := selector.CurrentEstimate(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, est.MapToBody.Point, test.ShouldResemble, r3.Vector{Y: 7})
	test.That(t, est.Twist.Twist.Linear, test.ShouldResemble, r3.Vector{Z: 1})

	fusion.err = errors.New("diverged")
	_, err = selector.CurrentEstimate(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "diverged")
}
