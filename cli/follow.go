package cli

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/stateestimator/config"
	"go.viam.com/stateestimator/logging"
	"go.viam.com/stateestimator/ros"
	"go.viam.com/stateestimator/stateestimator"
)

// FollowAction is the corresponding Action for 'follow'.
func FollowAction(c *cli.Context) error {
	conf, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, closeLogger := newLogger(c, conf)
	defer closeLogger()

	period := conf.Period()
	if c.IsSet(rateFlag) {
		rate := c.Float64(rateFlag)
		if rate <= 0 {
			return errors.Errorf("--%s must be positive, got %v", rateFlag, rate)
		}
		period = time.Duration(float64(time.Second) / rate)
	}

	topics := ros.NewTopics(conf.Namespace)
	est := stateestimator.NewEstimator(logger.Sublogger("estimator"))
	if err := est.Configure(c.Context, conf, ros.NewJSONPublisher(c.App.Writer, topics)); err != nil {
		return err
	}
	if err := est.Activate(c.Context); err != nil {
		return err
	}

	runner, err := stateestimator.NewRunner(est, period, logger)
	if err != nil {
		return err
	}
	runner.Start()

	workers := goutils.NewBackgroundStoppableWorkers()
	if c.Bool(watchFlag) {
		watcher, err := config.NewWatcher(c.String(configFlag), c.Duration(debounceFlag), logger)
		if err != nil {
			return multierr.Combine(err, runner.Stop(), est.Shutdown(c.Context))
		}
		defer func() {
			goutils.UncheckedError(watcher.Close())
		}()
		workers.Add(func(ctx context.Context) {
			applyConfigs(ctx, est, conf, runner.Period(), watcher.Config(), logger)
		})
	}

	readErr := make(chan error, 1)
	goutils.PanicCapturingGo(func() {
		readErr <- ros.ReadRecords(c.App.Reader, func(rec ros.Record) error {
			ev, ok, err := ros.DecodeRecord(topics, rec)
			if err != nil {
				logger.Warnw("skipping record", "error", err)
				return nil
			}
			if ok {
				ev.Deliver(est)
			}
			return nil
		})
	})

	select {
	case <-c.Context.Done():
		// the reader may stay blocked on stdin; it ends with the process
		err = c.Context.Err()
	case err = <-readErr:
		logger.Info("input closed")
	}
	workers.Stop()
	if snapshot, ok := est.Snapshot(); ok {
		logger.Infow("stopping", "published", snapshot.Ticks, "final_pose", snapshot.Pose.Pose.String())
	}
	return multierr.Combine(err, runner.Stop(), est.Shutdown(context.Background()))
}

// applyConfigs applies every config delivered on configs until ctx is done. Topic names and the
// tick rate are fixed for the life of the command, so edits that change them are only partly applied.
func applyConfigs(
	ctx context.Context,
	est *stateestimator.Estimator,
	initial *stateestimator.Config,
	period time.Duration,
	configs <-chan *stateestimator.Config,
	logger logging.Logger,
) {
	for {
		select {
		case <-ctx.Done():
			return
		case conf := <-configs:
			if conf.Namespace != initial.Namespace {
				logger.Errorw("the namespace cannot change while following, restart to apply it",
					"namespace", initial.Namespace, "requested", conf.Namespace)
				continue
			}
			if conf.Period() != period {
				logger.Warnw("the tick rate cannot change while following, keeping the current one", "period", period)
			}
			if err := est.ApplyConfig(ctx, conf); err != nil {
				logger.Errorw("failed to apply config", "error", err)
				continue
			}
			logger.Info("applied new config")
		}
	}
}
