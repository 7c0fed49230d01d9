// Package config reads state estimator configuration files and watches them for changes.
package config

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"go.viam.com/stateestimator/stateestimator"
)

// Format is the encoding of a configuration file.
type Format int

// The supported configuration encodings.
const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatFromPath picks the format from the file extension. Anything that is not .yaml or .yml is
// read as JSON.
func FormatFromPath(filePath string) Format {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Read reads a config from the given file. Environment variables in the file are substituted
// before decoding.
func Read(filePath string) (*stateestimator.Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return FromReader(filePath, bytes.NewReader(buf), FormatFromPath(filePath))
}

// FromReader reads a config from the given reader and specifies where, if applicable, the file the
// reader originated from.
func FromReader(originalPath string, r io.Reader, format Format) (*stateestimator.Config, error) {
	attributes := map[string]interface{}{}
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&attributes); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Wrapf(err, "failed to decode config %q from yaml", originalPath)
		}
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&attributes); err != nil {
			return nil, errors.Wrapf(err, "failed to decode config %q from json", originalPath)
		}
	default:
		return nil, errors.Errorf("unknown config format %d", format)
	}

	conf, err := stateestimator.DecodeConfig(attributes)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to process config %q", originalPath)
	}
	if err := conf.Validate(originalPath); err != nil {
		return nil, err
	}
	return conf, nil
}
