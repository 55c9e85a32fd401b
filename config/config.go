// Package config holds the settings of a benchmark run, read from YAML and overridden from the
// command line.
package config

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	openpb "github.com/dakatk/OpenPB"
	"github.com/dakatk/OpenPB/harness"
	"github.com/dakatk/OpenPB/hyperparams"
)

// Defaults applied by Validate
const (
	DefaultRepetitions  = 1
	DefaultMaxEpochs    = 100
	DefaultLearningRate = 0.1
	DefaultOutputDir    = "results"
)

// Config captures the runtime knobs for a benchmark run.
type Config struct {
	NetworksDir string `yaml:"networks"`
	TrainDir    string `yaml:"train"`
	TestDir     string `yaml:"test"`

	Concurrency int `yaml:"concurrency"`
	Repetitions int `yaml:"repetitions"`

	MaxEpochs       int     `yaml:"max_epochs"`
	EarlyStopWindow int     `yaml:"early_stop_window"`
	TargetAccuracy  float64 `yaml:"target_accuracy"`
	SnapshotEvery   int     `yaml:"snapshot_every"`

	LearningRate float64 `yaml:"learning_rate"`
	// LRSteps maps a 0-indexed epoch to the learning rate from that epoch onwards
	LRSteps   map[int]float64 `yaml:"lr_steps"`
	Optimizer string          `yaml:"optimizer"`
	BatchSize int             `yaml:"batch_size"`
	Shuffle   bool            `yaml:"shuffle"`

	Seed       int64  `yaml:"seed"`
	SeedPolicy string `yaml:"seed_policy"`

	OutputDir string `yaml:"output_dir"`
}

// Overrides captures CLI supplied values. Zero values leave the Config unchanged.
type Overrides struct {
	NetworksDir     string
	TrainDir        string
	TestDir         string
	Concurrency     int
	Repetitions     int
	MaxEpochs       int
	EarlyStopWindow int
	TargetAccuracy  float64
	SnapshotEvery   int
	LearningRate    float64
	Optimizer       string
	BatchSize       int
	Shuffle         bool
	Seed            int64
	SeedPolicy      string
	OutputDir       string
}

// Load reads a Config from YAML. Unknown keys are an error. The Config is not validated, so that
// overrides may still be applied.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config")
	}

	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

// ApplyOverrides updates c using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.NetworksDir != "" {
		c.NetworksDir = o.NetworksDir
	}
	if o.TrainDir != "" {
		c.TrainDir = o.TrainDir
	}
	if o.TestDir != "" {
		c.TestDir = o.TestDir
	}
	if o.Concurrency > 0 {
		c.Concurrency = o.Concurrency
	}
	if o.Repetitions > 0 {
		c.Repetitions = o.Repetitions
	}
	if o.MaxEpochs > 0 {
		c.MaxEpochs = o.MaxEpochs
	}
	if o.EarlyStopWindow > 0 {
		c.EarlyStopWindow = o.EarlyStopWindow
	}
	if o.TargetAccuracy > 0 {
		c.TargetAccuracy = o.TargetAccuracy
	}
	if o.SnapshotEvery > 0 {
		c.SnapshotEvery = o.SnapshotEvery
	}
	if o.LearningRate > 0 {
		c.LearningRate = o.LearningRate
	}
	if o.Optimizer != "" {
		c.Optimizer = o.Optimizer
	}
	if o.BatchSize > 0 {
		c.BatchSize = o.BatchSize
	}
	if o.Shuffle {
		c.Shuffle = true
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if o.SeedPolicy != "" {
		c.SeedPolicy = o.SeedPolicy
	}
	if o.OutputDir != "" {
		c.OutputDir = o.OutputDir
	}
}

// Validate verifies the config is runnable, filling in defaults for unset values.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.NetworksDir == "" || c.TrainDir == "" || c.TestDir == "" {
		return errors.New("networks, train, and test directories must all be set")
	}

	if c.Concurrency < 0 {
		return errors.Errorf("concurrency must be ≥ 0 (got %d)", c.Concurrency)
	}
	if c.Repetitions == 0 {
		c.Repetitions = DefaultRepetitions
	} else if c.Repetitions < 0 {
		return errors.Errorf("repetitions must be > 0 (got %d)", c.Repetitions)
	}
	if c.MaxEpochs == 0 {
		c.MaxEpochs = DefaultMaxEpochs
	} else if c.MaxEpochs < 0 {
		return errors.Errorf("max_epochs must be > 0 (got %d)", c.MaxEpochs)
	}
	if c.EarlyStopWindow < 0 {
		return errors.Errorf("early_stop_window must be ≥ 0 (got %d)", c.EarlyStopWindow)
	}
	if c.TargetAccuracy < 0 || c.TargetAccuracy > 1 {
		return errors.Errorf("target_accuracy must be in [0, 1] (got %v)", c.TargetAccuracy)
	}
	if c.SnapshotEvery < 0 {
		return errors.Errorf("snapshot_every must be ≥ 0 (got %d)", c.SnapshotEvery)
	}
	if c.LearningRate == 0 {
		c.LearningRate = DefaultLearningRate
	}
	if _, err := c.Schedule(); err != nil {
		return err
	}
	if c.BatchSize < 0 {
		return errors.Errorf("batch_size must be ≥ 0 (got %d)", c.BatchSize)
	}
	if _, err := c.Seeder(); err != nil {
		return err
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	return nil
}

// Schedule returns the learning rate schedule.
func (c *Config) Schedule() (openpb.HyperParameter, error) {
	s, err := hyperparams.FromSteps(c.LearningRate, c.LRSteps)
	if err != nil {
		return nil, errors.Wrapf(err, "learning rate")
	}
	return s, nil
}

// Seeder returns the harness.Seeder for the configured seed and policy.
func (c *Config) Seeder() (harness.Seeder, error) {
	p, err := harness.ParseSeedPolicy(c.SeedPolicy)
	if err != nil {
		return harness.Seeder{}, err
	}
	return harness.Seeder{Policy: p, Base: c.Seed}, nil
}

// SnapshotDir returns the directory snapshots are written to.
func (c *Config) SnapshotDir() string {
	return filepath.Join(c.OutputDir, "snapshots")
}
