package cli

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"

	"go.viam.com/stateestimator/localization"
	"go.viam.com/stateestimator/referenceframe"
	"go.viam.com/stateestimator/ros"
	"go.viam.com/stateestimator/stateestimator"
)

// ValidateAction is the corresponding Action for 'validate'.
func ValidateAction(c *cli.Context) error {
	conf, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, closeLogger := newLogger(c, conf)
	defer closeLogger()

	mode := "sensor_fusion (requires a fusion source)"
	if res, err := localization.ResolveMode(conf.ModeFlags(), nil, logger); err == nil {
		mode = res.Mode.String()
	}
	printf(c.App.Writer, "%s", settingsTable(conf, mode))
	return nil
}

func settingsTable(conf *stateestimator.Config, mode string) string {
	names, usedNamespace := referenceframe.NewFrameNames(conf.Namespace, conf.Frame())
	body := names.Body
	if usedNamespace {
		body += " (namespace fallback)"
	}
	topics := ros.NewTopics(conf.Namespace)

	startingPose := "identity"
	if sp := conf.StartingPose; sp != nil {
		switch sp.Type {
		case stateestimator.StartingPoseGeodetic:
			startingPose = fmt.Sprintf("geodetic origin (%.6f, %.6f) start (%.6f, %.6f) yaw %.1f°",
				sp.Origin.Lat, sp.Origin.Lng, sp.Start.Lat, sp.Start.Lng, sp.YawDegrees)
		default:
			startingPose = fmt.Sprintf("fixed X:%.2f, Y:%.2f, Z:%.2f yaw %.1f°",
				sp.Translation.X, sp.Translation.Y, sp.Translation.Z, sp.YawDegrees)
		}
	}
	driftCorrection := stateestimator.DriftApproximate
	if conf.Rigid() {
		driftCorrection = stateestimator.DriftRigid
	}
	logFile := conf.Log.File
	if logFile == "" {
		logFile = "none"
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Setting", "Value"})
	t.AppendRows([]table.Row{
		{"Namespace", conf.Namespace},
		{"Mode", mode},
		{"Frames", fmt.Sprintf("%s -> %s -> %s -> %s", names.Global, names.Map, names.Odom, body)},
		{"Rate", fmt.Sprintf("%.4g Hz (%v)", float64(time.Second)/float64(conf.Period()), conf.Period())},
		{"Drift correction", driftCorrection},
		{"Starting pose", startingPose},
		{"Odometry topic", topics.Odometry},
		{"Ground truth topics", fmt.Sprintf("%s, %s", topics.GroundTruthPose, topics.GroundTruthTwist)},
		{"Output topics", fmt.Sprintf("%s, %s, %s, %s", topics.Pose, topics.Twist, topics.TF, topics.TFStatic)},
		{"Log file", logFile},
	})
	return t.Render()
}
