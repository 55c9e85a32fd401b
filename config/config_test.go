package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dakatk/OpenPB/harness"
)

func write(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAndOverride(t *testing.T) {
	path := write(t, `
networks: nets
train: data/train
test: data/test
repetitions: 5
max_epochs: 40
learning_rate: 0.05
lr_steps:
  10: 0.01
  20: 0.001
seed_policy: shared
shuffle: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg.ApplyOverrides(Overrides{Repetitions: 2, OutputDir: "out"})
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	if cfg.Repetitions != 2 || cfg.MaxEpochs != 40 || cfg.OutputDir != "out" || !cfg.Shuffle {
		t.Fatalf("unexpected config %+v", cfg)
	}

	s, err := cfg.Schedule()
	if err != nil {
		t.Fatal(err)
	}
	if s.Value(0) != 0.05 || s.Value(15) != 0.01 || s.Value(25) != 0.001 {
		t.Fatalf("unexpected schedule values %v, %v, %v", s.Value(0), s.Value(15), s.Value(25))
	}
	if cfg.SnapshotDir() != filepath.Join("out", "snapshots") {
		t.Fatalf("unexpected snapshot dir %s", cfg.SnapshotDir())
	}
}

func TestDefaults(t *testing.T) {
	cfg := &Config{NetworksDir: "n", TrainDir: "tr", TestDir: "te"}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Repetitions != DefaultRepetitions || cfg.MaxEpochs != DefaultMaxEpochs ||
		cfg.LearningRate != DefaultLearningRate || cfg.OutputDir != DefaultOutputDir {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	s, err := cfg.Schedule()
	if err != nil {
		t.Fatal(err)
	}
	if v := s.Value(1000); v != DefaultLearningRate || s.TypeString() != "constant" {
		t.Fatalf("expected constant schedule, got %s at %v", s.TypeString(), v)
	}
}

func TestUnvalidatedAccessors(t *testing.T) {
	cfg := &Config{LRSteps: map[int]float64{3: 0.1}, SeedPolicy: "sometimes"}
	if s, err := cfg.Schedule(); err == nil || s != nil {
		t.Fatalf("expected error for steps without a base learning rate, got %v", s)
	}
	if _, err := cfg.Seeder(); err == nil {
		t.Fatalf("expected error for unknown seed policy")
	}

	cfg = &Config{LearningRate: 0.2, SeedPolicy: "shared", Seed: 4}
	s, err := cfg.Schedule()
	if err != nil || s.Value(0) != 0.2 {
		t.Fatalf("unexpected schedule %v, %v", s, err)
	}
	seeder, err := cfg.Seeder()
	if err != nil || seeder.Policy != harness.Shared || seeder.Base != 4 {
		t.Fatalf("unexpected seeder %+v, %v", seeder, err)
	}
}

func TestUnknownKey(t *testing.T) {
	if _, err := Load(write(t, "networks: n\nepochz: 3\n")); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

func TestInvalid(t *testing.T) {
	base := func() *Config { return &Config{NetworksDir: "n", TrainDir: "tr", TestDir: "te"} }

	bad := []func(c *Config){
		func(c *Config) { c.NetworksDir = "" },
		func(c *Config) { c.Repetitions = -1 },
		func(c *Config) { c.MaxEpochs = -3 },
		func(c *Config) { c.TargetAccuracy = 1.5 },
		func(c *Config) { c.SnapshotEvery = -1 },
		func(c *Config) { c.LearningRate = -0.1 },
		func(c *Config) { c.LRSteps = map[int]float64{-2: 0.1} },
		func(c *Config) { c.SeedPolicy = "whenever" },
		func(c *Config) { c.BatchSize = -4 },
	}

	for i, f := range bad {
		c := base()
		f(c)
		if err := c.Validate(); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}
