// Package config loads the optional YAML configuration carrying the
// recipe override surface and multiprocessing knobs. There is no ambient
// singleton; the entry point loads once and passes the value down.
package config

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/m-mizutani/logsherpa/internal"
	"github.com/m-mizutani/logsherpa/pkg/parser"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

const configFileName = "config.yaml"

// Config is the external configuration surface.
type Config struct {
	// LogRegex is a literal named-capture pattern override (highest
	// priority).
	LogRegex string `yaml:"log_regex"`
	// ApacheLogFormat is a LogFormat directive string override.
	ApacheLogFormat string `yaml:"apache_log_format"`

	Multiprocessing Multiprocessing `yaml:"multiprocessing"`
}

// Multiprocessing controls the parse worker pool.
type Multiprocessing struct {
	Enabled    *bool `yaml:"enabled"`
	NumWorkers int   `yaml:"num_workers"`
	ChunkSize  int   `yaml:"chunk_size"`
}

// ParserOptions converts the knobs to parser options; unset fields keep
// the parser defaults.
func (x Multiprocessing) ParserOptions() parser.Options {
	opts := parser.Options{
		Workers:   x.NumWorkers,
		ChunkSize: x.ChunkSize,
	}
	if x.Enabled != nil && !*x.Enabled {
		opts.Sequential = true
	}
	return opts
}

// Load reads one YAML config file.
func Load(path string) (*Config, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read config file: %s", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrapf(err, "Failed to unmarshal config file: %s", path)
	}

	return &cfg, nil
}

// LoadNearInput searches for config.yaml next to the input file, in its
// parent directory, then in the working directory. Returns an empty
// config when none is found.
func LoadNearInput(inputFile string) (*Config, string) {
	var candidates []string
	if inputFile != "" {
		dir := filepath.Dir(inputFile)
		candidates = append(candidates,
			filepath.Join(dir, configFileName),
			filepath.Join(dir, "..", configFileName),
		)
	}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, configFileName))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		cfg, err := Load(path)
		if err != nil {
			internal.Logger.WithError(err).WithField("path", path).Warn("Failed to load config, trying next location")
			continue
		}
		internal.Logger.WithField("path", path).Info("Loaded config")
		return cfg, path
	}

	return &Config{}, ""
}
