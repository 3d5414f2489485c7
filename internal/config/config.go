// Package config loads the josh-filter CLI's YAML configuration, for
// settings that are more comfortably kept in a file than on the command
// line: the memoization db location, the default ref namespace and the
// ref-race retry bound. Workspace resolution is not configurable here.
package config

import "github.com/goccy/go-yaml"

// Config is josh-filter's on-disk configuration.
type Config struct {
	// MemoDBPath is where the bbolt-backed memoization store lives. Empty
	// uses a process-private temp file.
	MemoDBPath string `yaml:"memoDbPath"`

	// DefaultRefNamespace is prefixed onto a bare target ref name given to
	// --update, e.g. "refs/josh/".
	DefaultRefNamespace string `yaml:"defaultRefNamespace"`

	// RefRaceRetries bounds how many times a ref update retries after
	// losing a compare-and-set race before giving up.
	RefRaceRetries int `yaml:"refRaceRetries"`
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	return &Config{
		DefaultRefNamespace: "refs/josh/",
		RefRaceRetries:      5,
	}
}

// Parse parses a YAML config file, applying [Default] for any field left
// unset in data.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, err
	}
	return c, nil
}
