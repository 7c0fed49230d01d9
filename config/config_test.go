package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/stateestimator/logging"
	"go.viam.com/stateestimator/stateestimator"
)

func TestFromReaderValidate(t *testing.T) {
	_, err := FromReader("somepath", strings.NewReader(""), FormatJSON)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "EOF")

	_, err = FromReader("somepath", strings.NewReader(`{"rate_hz": -3}`), FormatJSON)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "rate_hz")

	_, err = FromReader("somepath", strings.NewReader(`{"namespace": 1, "unknown": true}`), FormatJSON)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown")

	conf, err := FromReader("somepath", strings.NewReader(`{"namespace": "/drone0", "ground_truth": "True"}`), FormatJSON)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf, test.ShouldResemble, &stateestimator.Config{Namespace: "/drone0", GroundTruth: true})

	conf, err = FromReader("somepath", strings.NewReader(""), FormatYAML)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf, test.ShouldResemble, &stateestimator.Config{})
}

func TestReadYAMLWithEnv(t *testing.T) {
	t.Setenv("DRONE_NAMESPACE", "/drone7")
	dir := t.TempDir()
	path := filepath.Join(dir, "estimator.yaml")
	err := os.WriteFile(path, []byte(`
namespace: ${DRONE_NAMESPACE}
odom_only: False
ground_truth: True
base_frame: base_link
starting_pose:
  type: fixed
  translation: {x: 1.5, y: 2}
  yaw_degrees: 45
`), 0o600)
	test.That(t, err, test.ShouldBeNil)

	conf, err := Read(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.Namespace, test.ShouldEqual, "/drone7")
	test.That(t, conf.GroundTruth, test.ShouldBeTrue)
	test.That(t, conf.OdomOnly, test.ShouldBeFalse)
	test.That(t, conf.StartingPose, test.ShouldNotBeNil)
	test.That(t, conf.StartingPose.Translation.X, test.ShouldEqual, 1.5)
	test.That(t, conf.StartingPose.YawDegrees, test.ShouldEqual, 45.0)

	_, err = Read(filepath.Join(dir, "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFormatFromPath(t *testing.T) {
	test.That(t, FormatFromPath("a/b.YML"), test.ShouldEqual, FormatYAML)
	test.That(t, FormatFromPath("a/b.yaml"), test.ShouldEqual, FormatYAML)
	test.That(t, FormatFromPath("a/b.json"), test.ShouldEqual, FormatJSON)
	test.That(t, FormatFromPath("a/b"), test.ShouldEqual, FormatJSON)
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "estimator.json")
	test.That(t, os.WriteFile(path, []byte(`{"namespace": "/drone0"}`), 0o600), test.ShouldBeNil)

	w, err := NewWatcher(path, 10*time.Millisecond, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, w.Close(), test.ShouldBeNil)
	}()

	// an invalid edit is skipped
	test.That(t, os.WriteFile(path, []byte(`{"drift_correction": "exact"}`), 0o600), test.ShouldBeNil)
	select {
	case conf := <-w.Config():
		t.Fatalf("unexpected config %+v", conf)
	case <-time.After(200 * time.Millisecond):
	}

	test.That(t, os.WriteFile(path, []byte(`{"namespace": "/drone1", "odom_only": true}`), 0o600), test.ShouldBeNil)
	select {
	case conf := <-w.Config():
		test.That(t, conf.Namespace, test.ShouldEqual, "/drone1")
		test.That(t, conf.OdomOnly, test.ShouldBeTrue)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config change")
	}

	// other files in the directory are ignored
	test.That(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{}`), 0o600), test.ShouldBeNil)
	select {
	case conf := <-w.Config():
		t.Fatalf("unexpected config %+v", conf)
	case <-time.After(100 * time.Millisecond):
	}
}
