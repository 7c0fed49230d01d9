// Package stateestimator estimates an agent's pose and twist in the global frame. It keeps the frame
// chain global -> map -> odom -> body, picks one localization source per tick, folds the difference
// between that source and odometry into the map -> odom drift, and publishes the result.
package stateestimator

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"go.viam.com/stateestimator/localization"
	"go.viam.com/stateestimator/logging"
	"go.viam.com/stateestimator/referenceframe"
	"go.viam.com/stateestimator/spatialmath"
)

// State is the committed result of the last successful tick.
type State struct {
	Time       time.Time
	Mode       string
	Pose       localization.PoseStamped
	Twist      localization.TwistStamped
	Transforms []referenceframe.StampedTransform
	Ticks      uint64
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithClock sets the clock used to stamp published messages.
func WithClock(c clock.Clock) Option {
	return func(e *Estimator) {
		e.clock = c
	}
}

// WithFusionSource sets the source used in sensor fusion mode.
func WithFusionSource(fusion localization.FusionSource) Option {
	return func(e *Estimator) {
		e.fusion = fusion
	}
}

// WithStartingPoseProvider overrides the starting pose described by the configuration.
func WithStartingPoseProvider(provider StartingPoseProvider) Option {
	return func(e *Estimator) {
		e.startingPose = provider
	}
}

// Estimator is the state estimation cycle. Lifecycle transitions and ticks are serialized; input
// callbacks only write latched slots and may be called from any goroutine.
type Estimator struct {
	id     uuid.UUID
	logger logging.Logger
	clock  clock.Clock

	fusion       localization.FusionSource
	startingPose StartingPoseProvider

	mu        sync.Mutex
	conf      *Config
	publisher Publisher
	bound     Publisher
	selector  *localization.Selector
	graph     *referenceframe.FrameGraph
	ticks     uint64
	// set while ticks are skipped for lack of ground truth, so the wait is logged once
	awaitingGroundTruth bool

	lifecycle atomic.Int32
	ready     atomic.Bool
	inputs    localization.Inputs
	committed atomic.Pointer[State]
}

// NewEstimator returns an unconfigured estimator.
func NewEstimator(logger logging.Logger, opts ...Option) *Estimator {
	e := &Estimator{
		id:     uuid.New(),
		logger: logger,
		clock:  clock.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithFields("estimator", e.id.String()[:8])
	e.logger.Debugw("state estimator created", "id", e.id.String())
	return e
}

// ID identifies this estimator instance in logs.
func (e *Estimator) ID() uuid.UUID {
	return e.id
}

// LifecycleState returns the current lifecycle state.
func (e *Estimator) LifecycleState() LifecycleState {
	return LifecycleState(e.lifecycle.Load())
}

// Configure validates conf and binds the publisher. No frame math happens yet.
func (e *Estimator) Configure(ctx context.Context, conf *Config, publisher Publisher) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := checkTransition(transitionConfigure, e.LifecycleState()); err != nil {
		return err
	}
	if publisher == nil {
		return errors.New("a publisher is required")
	}
	if err := e.setConfig(conf); err != nil {
		return err
	}
	e.publisher = publisher
	e.lifecycle.Store(int32(Configured))
	e.logger.Infow("configured", "namespace", conf.Namespace)
	return nil
}

// Reconfigure replaces the configuration of a configured or inactive estimator. It takes effect on
// the next Activate.
func (e *Estimator) Reconfigure(ctx context.Context, conf *Config) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := checkTransition(transitionReconfigure, e.LifecycleState()); err != nil {
		return err
	}
	return e.setConfig(conf)
}

// ApplyConfig installs conf. An active estimator is deactivated, reconfigured and activated again,
// which rebuilds the frame chain and waits for new odometry; otherwise conf is stored for the next
// activation. If re-activation fails the estimator is left inactive.
func (e *Estimator) ApplyConfig(ctx context.Context, conf *Config) error {
	if e.LifecycleState() != Active {
		return e.Reconfigure(ctx, conf)
	}
	if err := e.Deactivate(ctx); err != nil {
		return err
	}
	if err := e.Reconfigure(ctx, conf); err != nil {
		return multierr.Combine(err, e.Activate(ctx))
	}
	return e.Activate(ctx)
}

func (e *Estimator) setConfig(conf *Config) error {
	if conf == nil {
		return errors.New("a config is required")
	}
	if err := conf.Validate("state_estimator"); err != nil {
		return err
	}
	if conf.Log.Level != "" {
		level, err := logging.LevelFromString(conf.Log.Level)
		if err != nil {
			return err
		}
		e.logger.SetLevel(level)
	}
	e.conf = conf
	return nil
}

// Activate resolves the estimation mode, builds the frame chain and installs the starting pose.
// Re-activating an inactive estimator rebuilds everything and closes the readiness gate until new
// odometry arrives.
func (e *Estimator) Activate(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := checkTransition(transitionActivate, e.LifecycleState()); err != nil {
		return err
	}

	res, err := localization.ResolveMode(e.conf.ModeFlags(), e.fusion, e.logger)
	if err != nil {
		return err
	}

	names, usedNamespace := referenceframe.NewFrameNames(e.conf.Namespace, e.conf.Frame())
	if usedNamespace {
		e.logger.Warnw("no base frame specified, using the namespace", "frame", names.Body)
	}
	graph, err := referenceframe.NewFrameGraph(names)
	if err != nil {
		return err
	}

	provider := e.startingPose
	if provider == nil {
		provider = newStartingPoseProvider(e.conf.StartingPose)
	}
	offsets, err := provider.StaticOffsets(ctx, names)
	if err != nil {
		return errors.Wrap(err, "getting starting pose")
	}
	for _, offset := range offsets {
		if err := graph.SetStaticOffset(offset.Parent, offset.Child, offset.Pose); err != nil {
			return err
		}
	}
	if err := graph.Freeze(); err != nil {
		return err
	}
	if err := multierr.Combine(
		graph.SetDynamicTransform(names.Map, names.Odom, spatialmath.NewZeroPose()),
		graph.SetDynamicTransform(names.Odom, names.Body, spatialmath.NewZeroPose()),
	); err != nil {
		return err
	}
	globalToMap, err := graph.Compose(names.Global, names.Map)
	if err != nil {
		return err
	}

	for _, l := range graph.Links() {
		e.logger.Infof("%s -> %s", l.Parent, l.Child)
	}

	e.graph = graph
	e.selector = localization.NewSelector(res.Mode, &e.inputs, globalToMap, names.Global)
	e.bound = e.publisher
	e.awaitingGroundTruth = false
	if e.LifecycleState() == Inactive {
		e.ready.Store(false)
	}
	e.lifecycle.Store(int32(Active))
	return nil
}

// Deactivate stops publishing. The frame chain keeps its last values and stays queryable.
func (e *Estimator) Deactivate(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := checkTransition(transitionDeactivate, e.LifecycleState()); err != nil {
		return err
	}
	e.bound = nil
	e.lifecycle.Store(int32(Inactive))
	e.logger.Info("deactivated")
	return nil
}

// Shutdown is terminal. Transform state is left as it is.
func (e *Estimator) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := checkTransition(transitionShutdown, e.LifecycleState()); err != nil {
		return err
	}
	e.bound = nil
	e.lifecycle.Store(int32(ShutDown))
	e.logger.Info("shut down")
	return nil
}

func (e *Estimator) acceptingInputs() bool {
	switch e.LifecycleState() {
	case Configured, Active:
		return true
	case Unconfigured, Inactive, ShutDown:
		return false
	default:
		return false
	}
}

// OnOdometry latches an odometry sample and opens the readiness gate.
func (e *Estimator) OnOdometry(odometry localization.Odometry) {
	if !e.acceptingInputs() {
		return
	}
	e.inputs.Odometry.Store(odometry)
	e.ready.Store(true)
}

// OnGroundTruthPose latches a ground-truth pose.
func (e *Estimator) OnGroundTruthPose(pose localization.PoseStamped) {
	if !e.acceptingInputs() {
		return
	}
	e.inputs.GroundTruthPose.Store(pose)
}

// OnGroundTruthTwist latches a ground-truth twist.
func (e *Estimator) OnGroundTruthTwist(twist localization.TwistStamped) {
	if !e.acceptingInputs() {
		return
	}
	e.inputs.GroundTruthTwist.Store(twist)
}

// skippedTick reports whether err only means the tick had nothing to publish yet.
func skippedTick(err error) bool {
	return referenceframe.IsLookupError(err) || errors.Is(err, localization.ErrNoGroundTruth)
}

// Ready reports whether odometry has been received.
func (e *Estimator) Ready() bool {
	return e.ready.Load()
}

// Tick runs one estimation cycle. It does nothing unless the estimator is active and has received
// odometry. When the estimate or the global -> body lookup fails nothing is published and the error
// is returned; the next tick retries.
func (e *Estimator) Tick(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.LifecycleState() != Active || !e.ready.Load() {
		return nil
	}
	names := e.graph.Names()

	est, err := e.selector.CurrentEstimate(ctx)
	switch {
	case errors.Is(err, localization.ErrNoGroundTruth):
		if !e.awaitingGroundTruth {
			e.logger.Warn("waiting for ground truth, skipping ticks until it arrives")
			e.awaitingGroundTruth = true
		}
		return err
	case err != nil:
		e.logger.Warnw("skipping tick", "error", err)
		return err
	case e.awaitingGroundTruth:
		e.logger.Info("ground truth received, resuming ticks")
		e.awaitingGroundTruth = false
	}

	odomToBody := est.Odometry.Pose
	if _, odomOnly := e.selector.Mode().(localization.OdomOnly); !odomOnly {
		// a trusted source replaces integrated odometry; drift collapses to identity
		odomToBody = est.MapToBody
	}
	var drift spatialmath.Pose
	if e.conf.Rigid() {
		drift = spatialmath.RigidDriftBetween(odomToBody, est.MapToBody)
	} else {
		drift = spatialmath.DriftBetween(odomToBody, est.MapToBody)
	}
	if err := multierr.Combine(
		e.graph.SetDynamicTransform(names.Map, names.Odom, drift),
		e.graph.SetDynamicTransform(names.Odom, names.Body, odomToBody),
	); err != nil {
		return err
	}

	globalToBody, err := e.graph.Compose(names.Global, names.Body)
	if err != nil {
		e.logger.Warnw("transform failure, skipping tick", "error", err)
		return err
	}

	now := e.clock.Now()
	if err := e.graph.PublishAll(ctx, now, e.bound); err != nil {
		return errors.Wrap(err, "publishing transforms")
	}
	pose := localization.PoseStamped{Time: now, FrameID: names.Global, Pose: globalToBody}
	twist := localization.TwistStamped{Time: now, FrameID: est.Twist.FrameID, Twist: est.Twist.Twist}
	publishErr := multierr.Combine(
		errors.Wrap(e.bound.PublishPose(ctx, pose), "publishing pose"),
		errors.Wrap(e.bound.PublishTwist(ctx, twist), "publishing twist"),
	)

	transforms, err := e.graph.Transforms(now)
	if err != nil {
		return multierr.Combine(publishErr, err)
	}
	e.ticks++
	e.committed.Store(&State{
		Time:       now,
		Mode:       e.selector.Mode().String(),
		Pose:       pose,
		Twist:      twist,
		Transforms: transforms,
		Ticks:      e.ticks,
	})
	return publishErr
}

// Snapshot returns the state committed by the last successful tick, if any.
func (e *Estimator) Snapshot() (State, bool) {
	if s := e.committed.Load(); s != nil {
		return *s, true
	}
	return State{}, false
}

// Lookup returns the transform of to relative to from using the current frame chain. It works in
// any state after the first activation.
func (e *Estimator) Lookup(from, to string) (spatialmath.Pose, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.graph == nil {
		return spatialmath.Pose{}, referenceframe.NewLookupError(from, to, "the frame chain has not been built")
	}
	return e.graph.Compose(from, to)
}

// FrameNames returns the names of the active frame chain.
func (e *Estimator) FrameNames() (referenceframe.FrameNames, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.graph == nil {
		return referenceframe.FrameNames{}, false
	}
	return e.graph.Names(), true
}
