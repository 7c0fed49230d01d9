package cli

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/stateestimator/evaluation"
	"go.viam.com/stateestimator/localization"
	"go.viam.com/stateestimator/logging"
	"go.viam.com/stateestimator/ros"
	"go.viam.com/stateestimator/stateestimator"
)

// inputs are the decoded events to replay and the poses to evaluate against.
type inputs struct {
	events    []ros.Event
	reference []localization.PoseStamped
}

// RunAction is the corresponding Action for 'run'.
func RunAction(c *cli.Context) error {
	conf, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, closeLogger := newLogger(c, conf)
	defer closeLogger()

	topics := ros.NewTopics(conf.Namespace)
	referenceTopic := c.String(referenceFlag)
	if referenceTopic == "" {
		referenceTopic = topics.GroundTruthPose
	}

	var in inputs
	switch bagPath, inputPath := c.Path(bagFlag), c.Path(inputFlag); {
	case bagPath != "" && inputPath != "":
		return errors.Errorf("only one of --%s and --%s may be given", bagFlag, inputFlag)
	case bagPath != "":
		in, err = loadBag(bagPath, topics, referenceTopic)
	case inputPath != "":
		in, err = loadRecordFile(inputPath, topics, referenceTopic)
	default:
		return errors.Errorf("one of --%s or --%s is required", bagFlag, inputFlag)
	}
	if err != nil {
		return err
	}
	logger.Infow("loaded inputs", "events", len(in.events), "reference_poses", len(in.reference))

	outPath := c.String(outFlag)
	out, closeOut, err := openOutput(c, outPath)
	if err != nil {
		return err
	}
	recorder := stateestimator.NewRecorder()
	if err := replay(c, conf, logger, in.events, stateestimator.MultiPublisher{ros.NewJSONPublisher(out, topics), recorder}); err != nil {
		return multierr.Combine(err, closeOut())
	}
	if err := closeOut(); err != nil {
		return err
	}

	if plotPath := c.Path(plotFlag); plotPath != "" {
		if err := evaluation.SaveTrajectoryPlot(plotPath, conf.Namespace, recorder.Poses(), in.reference); err != nil {
			return err
		}
		logger.Infow("saved trajectory plot", "path", plotPath)
	}
	if c.Bool(quietFlag) {
		return nil
	}
	summaryOut := c.App.Writer
	if outPath == stdoutOutputPath {
		summaryOut = c.App.ErrWriter
	}
	summary, err := evaluation.Summarize(evaluation.Match(recorder.Poses(), in.reference, c.Duration(maxAgeFlag)))
	if errors.Is(err, evaluation.ErrNoPairs) {
		warningf(summaryOut, "nothing to evaluate: %d estimated poses, %d poses on %s",
			len(recorder.Poses()), len(in.reference), referenceTopic)
		return nil
	}
	if err != nil {
		return err
	}
	printf(summaryOut, "%s", summary.String())
	return nil
}

// replay drives an estimator over events on a mock clock so every published message carries the
// time of the input that produced it.
func replay(
	c *cli.Context,
	conf *stateestimator.Config,
	logger logging.Logger,
	events []ros.Event,
	publisher stateestimator.Publisher,
) error {
	if unstamped := lo.CountBy(events, func(ev ros.Event) bool { return ev.Time.IsZero() }); unstamped > 0 {
		logger.Warnw("inputs without a header stamp or record time are delivered on the first tick", "count", unstamped)
	}
	mockClock := clock.NewMock()
	mockClock.Set(ros.ReplayStart(events))
	est := stateestimator.NewEstimator(logger.Sublogger("estimator"), stateestimator.WithClock(mockClock))
	if err := est.Configure(c.Context, conf, publisher); err != nil {
		return err
	}
	if err := est.Activate(c.Context); err != nil {
		return err
	}
	defer func() {
		goutils.UncheckedError(est.Shutdown(c.Context))
	}()

	var ticks, failed int
	err := ros.Replay(c.Context, events, est, mockClock, conf.Period(), func(tickTime time.Time, err error) {
		ticks++
		if err != nil {
			failed++
			logger.Debugw("tick failed", "time", tickTime, "error", err)
		}
	})
	if err != nil {
		return err
	}
	snapshot, ok := est.Snapshot()
	if !ok {
		logger.Warnw("no state was published, was there any odometry?", "topic", ros.NewTopics(conf.Namespace).Odometry)
		return nil
	}
	logger.Infow("replay finished",
		"id", est.ID().String(),
		"ticks", ticks,
		"failed", failed,
		"published", snapshot.Ticks,
		"mode", snapshot.Mode,
		"final_pose", snapshot.Pose.Pose.String(),
	)
	return nil
}

func loadBag(path string, topics ros.Topics, referenceTopic string) (inputs, error) {
	rb, err := ros.ReadBag(path)
	if err != nil {
		return inputs{}, err
	}
	events, err := ros.LoadEvents(rb, topics)
	if err != nil {
		return inputs{}, err
	}
	if referenceTopic == topics.GroundTruthPose {
		return inputs{events: events, reference: groundTruthPoses(events)}, nil
	}
	lines, err := ros.AllMessagesForTopic(rb, referenceTopic)
	if err != nil {
		return inputs{}, err
	}
	var reference []localization.PoseStamped
	for _, line := range lines {
		rec := ros.Record{}
		if err := json.Unmarshal(line, &rec); err != nil {
			return inputs{}, errors.Wrapf(err, "decoding %s record", referenceTopic)
		}
		rec.Topic = referenceTopic
		pose, ok, err := decodeReference(referenceTopic, rec)
		if err != nil {
			return inputs{}, err
		}
		if ok {
			reference = append(reference, pose)
		}
	}
	return inputs{events: events, reference: reference}, nil
}

func loadRecordFile(path string, topics ros.Topics, referenceTopic string) (in inputs, err error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return inputs{}, err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return readRecords(f, topics, referenceTopic)
}

func readRecords(r io.Reader, topics ros.Topics, referenceTopic string) (inputs, error) {
	var in inputs
	err := ros.ReadRecords(r, func(rec ros.Record) error {
		if strings.TrimSpace(rec.Topic) == "" {
			return errors.New("input records must name their topic")
		}
		ev, ok, err := ros.DecodeRecord(topics, rec)
		if err != nil {
			return err
		}
		if ok {
			in.events = append(in.events, ev)
		}
		if rec.Topic != referenceTopic {
			return nil
		}
		pose, ok, err := decodeReference(referenceTopic, rec)
		if err != nil {
			return err
		}
		if ok {
			in.reference = append(in.reference, pose)
		}
		return nil
	})
	if err != nil {
		return inputs{}, err
	}
	ros.SortEvents(in.events)
	return in, nil
}

// decodeReference decodes a PoseStamped on an arbitrary topic.
func decodeReference(topic string, rec ros.Record) (localization.PoseStamped, bool, error) {
	ev, ok, err := ros.DecodeRecord(ros.Topics{GroundTruthPose: topic}, rec)
	if err != nil || !ok {
		return localization.PoseStamped{}, ok, err
	}
	pose := *ev.GroundTruthPose
	pose.Time = ev.Time
	return pose, true, nil
}

func groundTruthPoses(events []ros.Event) []localization.PoseStamped {
	return lo.FilterMap(events, func(ev ros.Event, _ int) (localization.PoseStamped, bool) {
		if ev.GroundTruthPose == nil {
			return localization.PoseStamped{}, false
		}
		pose := *ev.GroundTruthPose
		pose.Time = ev.Time
		return pose, true
	})
}
