package stateestimator

import (
	"testing"
	"time"

	"go.viam.com/test"
)

func TestDecodeConfig(t *testing.T) {
	conf, err := DecodeConfig(map[string]interface{}{
		"namespace":     "/drone0",
		"odom_only":     "False",
		"ground_truth":  "True",
		"sensor_fusion": false,
		"rate_hz":       "50",
		"log":           map[string]interface{}{"level": "debug", "file": "/tmp/estimator.log", "max_size_mb": 5},
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.Validate("path"), test.ShouldBeNil)
	test.That(t, conf.OdomOnly, test.ShouldBeFalse)
	test.That(t, conf.GroundTruth, test.ShouldBeTrue)
	test.That(t, conf.Frame(), test.ShouldEqual, "base_link")
	test.That(t, conf.Period(), test.ShouldEqual, 20*time.Millisecond)
	test.That(t, conf.Rigid(), test.ShouldBeFalse)

	fileConf, ok := conf.Log.FileConfig()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, fileConf.Filename, test.ShouldEqual, "/tmp/estimator.log")
	test.That(t, fileConf.MaxSizeMB, test.ShouldEqual, 5)
}

func TestConfigDefaults(t *testing.T) {
	conf, err := DecodeConfig(map[string]interface{}{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.Validate("path"), test.ShouldBeNil)
	test.That(t, conf.Period(), test.ShouldEqual, 10*time.Millisecond)
	test.That(t, conf.Frame(), test.ShouldEqual, "base_link")
	_, ok := conf.Log.FileConfig()
	test.That(t, ok, test.ShouldBeFalse)
}

func TestDecodeConfigRejectsUnknownAttributes(t *testing.T) {
	_, err := DecodeConfig(map[string]interface{}{"odom_onyl": true})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "odom_onyl")

	_, err = DecodeConfig(map[string]interface{}{"odom_only": "maybe"})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestConfigValidate(t *testing.T) {
	for _, tc := range []struct {
		name       string
		attributes map[string]interface{}
		contains   string
	}{
		{"negative rate", map[string]interface{}{"rate_hz": -1}, "rate_hz"},
		{"drift", map[string]interface{}{"drift_correction": "exact"}, "drift_correction"},
		{"log level", map[string]interface{}{"log": map[string]interface{}{"level": "loud"}}, "loud"},
		{"pose type", map[string]interface{}{"starting_pose": map[string]interface{}{"type": "gps"}}, "gps"},
		{
			"geodetic origin",
			map[string]interface{}{"starting_pose": map[string]interface{}{"type": "geodetic"}},
			"origin",
		},
		{
			"geodetic range",
			map[string]interface{}{"starting_pose": map[string]interface{}{
				"type":   "geodetic",
				"origin": map[string]interface{}{"lat": 95, "lng": 0},
				"start":  map[string]interface{}{"lat": 0, "lng": 0},
			}},
			"latitude",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			conf, err := DecodeConfig(tc.attributes)
			test.That(t, err, test.ShouldBeNil)
			err = conf.Validate("path")
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.contains)
		})
	}
}
