package ros

import (
	"strings"
)

// Topic names relative to an agent namespace.
const (
	OdometryTopic         = "sensor_measurements/odom"
	GroundTruthPoseTopic  = "ground_truth/pose"
	GroundTruthTwistTopic = "ground_truth/twist"
	PoseTopic             = "self_localization/pose"
	TwistTopic            = "self_localization/twist"
	TFTopic               = "/tf"
	TFStaticTopic         = "/tf_static"
)

// Topics are the resolved topic names the estimator reads and writes.
type Topics struct {
	Odometry         string
	GroundTruthPose  string
	GroundTruthTwist string
	Pose             string
	Twist            string
	TF               string
	TFStatic         string
}

// GlobalName resolves name inside namespace, e.g. ("/drone0", "ground_truth/pose") ->
// "/drone0/ground_truth/pose". Names starting with "/" are already global.
func GlobalName(namespace, name string) string {
	if strings.HasPrefix(name, "/") {
		return name
	}
	ns := strings.Trim(namespace, "/")
	if ns == "" {
		return "/" + name
	}
	return "/" + ns + "/" + name
}

// NewTopics returns the topics of the agent in namespace.
func NewTopics(namespace string) Topics {
	return Topics{
		Odometry:         GlobalName(namespace, OdometryTopic),
		GroundTruthPose:  GlobalName(namespace, GroundTruthPoseTopic),
		GroundTruthTwist: GlobalName(namespace, GroundTruthTwistTopic),
		Pose:             GlobalName(namespace, PoseTopic),
		Twist:            GlobalName(namespace, TwistTopic),
		TF:               TFTopic,
		TFStatic:         TFStaticTopic,
	}
}

// Inputs returns the topics the estimator subscribes to.
func (t Topics) Inputs() []string {
	return []string{t.Odometry, t.GroundTruthPose, t.GroundTruthTwist}
}
