package ros

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"slices"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/gobag/rosbag"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/stateestimator/localization"
)

// A Sink receives decoded input messages.
type Sink interface {
	OnOdometry(odometry localization.Odometry)
	OnGroundTruthPose(pose localization.PoseStamped)
	OnGroundTruthTwist(twist localization.TwistStamped)
}

// A Target is a Sink that is also ticked.
type Target interface {
	Sink
	Tick(ctx context.Context) error
}

// Event is one decoded input message.
type Event struct {
	Time  time.Time
	Topic string

	Odometry         *localization.Odometry
	GroundTruthPose  *localization.PoseStamped
	GroundTruthTwist *localization.TwistStamped
}

// Deliver hands the message to sink.
func (ev Event) Deliver(sink Sink) {
	switch {
	case ev.Odometry != nil:
		sink.OnOdometry(*ev.Odometry)
	case ev.GroundTruthPose != nil:
		sink.OnGroundTruthPose(*ev.GroundTruthPose)
	case ev.GroundTruthTwist != nil:
		sink.OnGroundTruthTwist(*ev.GroundTruthTwist)
	}
}

// DecodeRecord decodes a record on one of the input topics. The message header stamp is used as
// the event time, falling back to the record time when the header is not stamped. Records on other
// topics return false.
func DecodeRecord(topics Topics, rec Record) (Event, bool, error) {
	ev := Event{Topic: rec.Topic}
	var stamp Time
	switch rec.Topic {
	case topics.Odometry:
		var msg OdometryMessage
		if err := json.Unmarshal(rec.Data, &msg); err != nil {
			return Event{}, false, errors.Wrapf(err, "decoding %s", rec.Topic)
		}
		odom := msg.Odometry()
		ev.Odometry, stamp = &odom, msg.Header.Stamp
	case topics.GroundTruthPose:
		var msg PoseStampedMessage
		if err := json.Unmarshal(rec.Data, &msg); err != nil {
			return Event{}, false, errors.Wrapf(err, "decoding %s", rec.Topic)
		}
		pose := msg.PoseStamped()
		ev.GroundTruthPose, stamp = &pose, msg.Header.Stamp
	case topics.GroundTruthTwist:
		var msg TwistStampedMessage
		if err := json.Unmarshal(rec.Data, &msg); err != nil {
			return Event{}, false, errors.Wrapf(err, "decoding %s", rec.Topic)
		}
		twist := msg.TwistStamped()
		ev.GroundTruthTwist, stamp = &twist, msg.Header.Stamp
	default:
		return Event{}, false, nil
	}
	if stamp == (Time{}) {
		stamp = rec.Meta
	}
	ev.Time = stamp.Time()
	return ev, true, nil
}

// SortEvents orders events by time. Events with equal times keep their order.
func SortEvents(events []Event) {
	slices.SortStableFunc(events, func(a, b Event) int {
		return a.Time.Compare(b.Time)
	})
}

// LoadEvents decodes every input message in the bag and returns them in time order.
func LoadEvents(rb *rosbag.RosBag, topics Topics) ([]Event, error) {
	var events []Event
	for _, topic := range topics.Inputs() {
		lines, err := AllMessagesForTopic(rb, topic)
		if err != nil {
			return nil, err
		}
		for _, line := range lines {
			rec := Record{Topic: topic}
			if err := json.Unmarshal(line, &rec); err != nil {
				return nil, errors.Wrapf(err, "decoding %s record", topic)
			}
			rec.Topic = topic
			ev, _, err := DecodeRecord(topics, rec)
			if err != nil {
				return nil, err
			}
			events = append(events, ev)
		}
	}
	SortEvents(events)
	return events, nil
}

// ReadRecords reads JSON lines records from r until EOF, calling fn for each. Blank lines are
// skipped.
func ReadRecords(r io.Reader, fn func(Record) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return errors.Wrap(err, "decoding record")
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// ReplayStart returns the time of the first stamped event. Unstamped events carry the zero time
// and sort first; they are delivered on the first tick instead of stretching replay back to year 1.
func ReplayStart(events []Event) time.Time {
	if ev, ok := lo.Find(events, func(ev Event) bool { return !ev.Time.IsZero() }); ok {
		return ev.Time
	}
	return time.Time{}
}

// Replay feeds events to target in time order and ticks it every period of event time from
// ReplayStart, moving clk to each tick time first so published messages carry bag time. onTick, if set, sees the
// result of every tick.
func Replay(
	ctx context.Context,
	events []Event,
	target Target,
	clk *clock.Mock,
	period time.Duration,
	onTick func(tickTime time.Time, err error),
) error {
	if period <= 0 {
		return errors.Errorf("replay period must be positive, got %v", period)
	}
	if len(events) == 0 {
		return nil
	}
	next := 0
	end := events[len(events)-1].Time
	for tickTime := ReplayStart(events); !tickTime.After(end.Add(period)); tickTime = tickTime.Add(period) {
		if err := ctx.Err(); err != nil {
			return err
		}
		for next < len(events) && !events[next].Time.After(tickTime) {
			events[next].Deliver(target)
			next++
		}
		clk.Set(tickTime)
		err := target.Tick(ctx)
		if onTick != nil {
			onTick(tickTime, err)
		}
	}
	return nil
}
