package ros

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/stateestimator/localization"
	"go.viam.com/stateestimator/referenceframe"
)

// Record is one message on a topic. Bags yield records without a topic; JSON lines streams carry
// it. Meta is the time the message was recorded or sent.
type Record struct {
	Topic string          `json:"topic,omitempty"`
	Meta  Time            `json:"meta"`
	Data  json.RawMessage `json:"data"`
}

// JSONPublisher writes every published message as one JSON Record per line. Static transforms go
// to the static transform topic and the rest to the transform topic.
type JSONPublisher struct {
	mu     sync.Mutex
	enc    *json.Encoder
	topics Topics
}

// NewJSONPublisher returns a publisher writing to w.
func NewJSONPublisher(w io.Writer, topics Topics) *JSONPublisher {
	return &JSONPublisher{enc: json.NewEncoder(w), topics: topics}
}

func (jp *JSONPublisher) write(topic string, stamp Time, msg interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	jp.mu.Lock()
	defer jp.mu.Unlock()
	return errors.Wrapf(jp.enc.Encode(Record{Topic: topic, Meta: stamp, Data: data}), "writing %s", topic)
}

// SendTransforms writes the static and dynamic transforms as two TF messages.
func (jp *JSONPublisher) SendTransforms(ctx context.Context, transforms []referenceframe.StampedTransform) error {
	if len(transforms) == 0 {
		return nil
	}
	static, dynamic := lo.FilterReject(transforms, func(st referenceframe.StampedTransform, _ int) bool {
		return st.Static
	})
	stamp := NewTime(transforms[0].Time)
	for _, batch := range []struct {
		topic      string
		transforms []referenceframe.StampedTransform
	}{
		{jp.topics.TFStatic, static},
		{jp.topics.TF, dynamic},
	} {
		if len(batch.transforms) == 0 {
			continue
		}
		msg := TFMessage{Transforms: lo.Map(batch.transforms, func(st referenceframe.StampedTransform, _ int) TransformStampedMessage {
			return NewTransformStampedMessage(st)
		})}
		if err := jp.write(batch.topic, stamp, msg); err != nil {
			return err
		}
	}
	return nil
}

// PublishPose writes pose.
func (jp *JSONPublisher) PublishPose(ctx context.Context, pose localization.PoseStamped) error {
	return jp.write(jp.topics.Pose, NewTime(pose.Time), NewPoseStampedMessage(pose))
}

// PublishTwist writes twist.
func (jp *JSONPublisher) PublishTwist(ctx context.Context, twist localization.TwistStamped) error {
	return jp.write(jp.topics.Twist, NewTime(twist.Time), NewTwistStampedMessage(twist))
}
