package stateestimator

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"go.viam.com/stateestimator/logging"
)

// A Ticker is driven at a fixed rate by a Runner.
type Ticker interface {
	Tick(ctx context.Context) error
}

// Runner drives a Ticker at a fixed period. A tick that overruns the period delays the next one
// rather than overlapping it.
type Runner struct {
	scheduler gocron.Scheduler
	ticker    Ticker
	period    time.Duration
	logger    logging.Logger
	jobID     uuid.UUID

	cancelCtx  context.Context
	cancelFunc context.CancelFunc
}

// NewRunner returns a runner that ticks every period once started.
func NewRunner(ticker Ticker, period time.Duration, logger logging.Logger) (*Runner, error) {
	if period <= 0 {
		return nil, errors.Errorf("tick period must be positive, got %v", period)
	}
	runnerLogger := logger.Sublogger("runner")
	scheduler, err := gocron.NewScheduler(
		gocron.WithLogger(schedulerLogger{runnerLogger}),
		gocron.WithStopTimeout(time.Second),
	)
	if err != nil {
		return nil, err
	}

	cancelCtx, cancelFunc := context.WithCancel(context.Background())
	r := &Runner{
		scheduler:  scheduler,
		ticker:     ticker,
		period:     period,
		logger:     runnerLogger,
		cancelCtx:  cancelCtx,
		cancelFunc: cancelFunc,
	}
	j, err := scheduler.NewJob(
		gocron.DurationJob(period),
		gocron.NewTask(r.tick),
		gocron.WithName("state_estimation"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		cancelFunc()
		return nil, multiErrShutdown(err, scheduler)
	}
	r.jobID = j.ID()
	runnerLogger.Debugw("created tick job", "id", r.jobID.String(), "period", period.String())
	return r, nil
}

func multiErrShutdown(err error, scheduler gocron.Scheduler) error {
	if shutdownErr := scheduler.Shutdown(); shutdownErr != nil {
		return errors.Wrapf(err, "also failed to shut down scheduler: %v", shutdownErr)
	}
	return err
}

func (r *Runner) tick() {
	err := r.ticker.Tick(r.cancelCtx)
	switch {
	case err == nil:
	case skippedTick(err):
		r.logger.Debugw("tick skipped", "error", err)
	default:
		r.logger.Warnw("tick failed", "error", err)
	}
}

// Start begins ticking.
func (r *Runner) Start() {
	r.scheduler.Start()
}

// Period returns the tick period.
func (r *Runner) Period() time.Duration {
	return r.period
}

// Stop stops ticking and waits for a running tick to finish.
func (r *Runner) Stop() error {
	r.logger.Info("Shutting down gracefully")
	r.cancelFunc()
	return r.scheduler.Shutdown()
}

// schedulerLogger adapts a Logger to the scheduler's logging interface.
type schedulerLogger struct {
	logger logging.Logger
}

func (sl schedulerLogger) Debug(msg string, args ...any) { sl.logger.Debugw(msg, kv(args)...) }
func (sl schedulerLogger) Info(msg string, args ...any)  { sl.logger.Infow(msg, kv(args)...) }
func (sl schedulerLogger) Warn(msg string, args ...any)  { sl.logger.Warnw(msg, kv(args)...) }
func (sl schedulerLogger) Error(msg string, args ...any) { sl.logger.Errorw(msg, kv(args)...) }

// kv stringifies keys and pads a trailing key with an empty value.
func kv(args []any) []any {
	out := make([]any, 0, len(args)+1)
	for i := 0; i < len(args); i += 2 {
		out = append(out, fmt.Sprint(args[i]))
		if i+1 < len(args) {
			out = append(out, args[i+1])
		} else {
			out = append(out, "")
		}
	}
	return out
}
