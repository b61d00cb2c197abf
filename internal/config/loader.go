package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the file name written by "bizscan init". It is
// only read when passed explicitly with --config.
const DefaultConfigFile = ".bizscan"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the .bizscan configuration file.
// Zero values mean "keep the built-in default".
type File struct {
	// Timeout overrides the per-request timeout (e.g. "15s").
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"user_agent,omitempty"`

	// MaxBodySize overrides the response body limit in bytes.
	MaxBodySize int64 `yaml:"max_body_size,omitempty"`

	// Paths replaces the priority path list.
	Paths []string `yaml:"paths,omitempty"`

	// Keywords replaces the trust-signal vocabulary.
	Keywords []string `yaml:"keywords,omitempty"`
}

// LoadConfigFile loads a configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	return &cf, nil
}
