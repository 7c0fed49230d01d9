// Package ros bridges the state estimator and ROS: topic naming, ROS-shaped JSON messages, rosbag
// replay and a JSON lines publisher.
package ros

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/edaniels/gobag/rosbag"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// ReadBag reads the contents of a rosbag into a gobag data structure.
func ReadBag(filename string) (*rosbag.RosBag, error) {
	//nolint:gosec
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open input file")
	}
	defer utils.UncheckedErrorFunc(f.Close)

	rb := rosbag.NewRosBag()

	if err := rb.Read(f); err != nil {
		return nil, errors.Wrapf(err, "unable to create ros bag, error")
	}

	return rb, nil
}

// bagTopicKey is the key gobag files parsed messages under: no leading slash, other slashes
// replaced by underscores, lower case.
func bagTopicKey(topic string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(topic, "/"), "/", "_"))
}

// AllMessagesForTopic returns all messages for a specific topic in the ros bag, one JSON record
// per message. Each record has a "meta" object with the record time and a "data" object with the
// message itself. A topic with no messages is not an error.
func AllMessagesForTopic(rb *rosbag.RosBag, topic string) ([][]byte, error) {
	key := bagTopicKey(topic)
	// parsed messages accumulate across calls
	delete(rb.TopicsAsJSON, key)
	if err := rb.ParseTopicsToJSON(
		"",
		func(int64) bool { return true },
		func(t string) bool { return t == topic },
		false,
	); err != nil {
		return nil, errors.Wrapf(err, "error while parsing bag to JSON")
	}

	msgs := rb.TopicsAsJSON[key]
	if msgs == nil {
		return nil, nil
	}
	defer delete(rb.TopicsAsJSON, key)
	return splitLines(msgs)
}

func splitLines(r io.Reader) ([][]byte, error) {
	var all [][]byte
	reader := bufio.NewReader(r)
	for {
		data, err := reader.ReadBytes('\n')
		if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 {
			all = append(all, trimmed)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
	}
	return all, nil
}
