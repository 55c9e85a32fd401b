package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/google/uuid"
	"github.com/klauspost/cpuid/v2"

	openpb "github.com/dakatk/OpenPB"
	"github.com/dakatk/OpenPB/config"
	_ "github.com/dakatk/OpenPB/costfuncs"
	"github.com/dakatk/OpenPB/harness"
	_ "github.com/dakatk/OpenPB/optimizers"
	_ "github.com/dakatk/OpenPB/penalties"
	"github.com/dakatk/OpenPB/report"
	"github.com/dakatk/OpenPB/snapshot"
	"github.com/dakatk/OpenPB/specfile"
	"github.com/dakatk/OpenPB/stats"
)

func main() {
	cfgPath := flag.String("config", "", "Path to YAML config (optional)")
	networks := flag.String("networks", "", "Directory of network spec files")
	train := flag.String("train", "", "Directory of training set files")
	test := flag.String("test", "", "Directory of testing set files")
	concurrency := flag.Int("concurrency", 0, "Maximum number of jobs run at once (default: logical cores)")
	reps := flag.Int("repetitions", 0, "Number of runs of each network on each dataset")
	maxEpochs := flag.Int("max-epochs", 0, "Maximum number of epochs per run")
	earlyStop := flag.Int("early-stop-window", 0, "Stop a run after this many epochs without improvement")
	target := flag.Float64("target-accuracy", 0, "Stop a run once test accuracy reaches this value")
	snapEvery := flag.Int("snapshot-every", 0, "Write a snapshot of every network every N epochs")
	lr := flag.Float64("learning-rate", 0, "Learning rate, unless set by the network")
	optimizer := flag.String("optimizer", "", "Optimizer, unless set by the network")
	batchSize := flag.Int("batch-size", 0, "Examples per update (default: the entire training set)")
	shuffle := flag.Bool("shuffle", false, "Shuffle the training set before every epoch")
	seed := flag.Int64("seed", 0, "Base seed")
	seedPolicy := flag.String("seed-policy", "", "One of per_repetition, shared, random")
	output := flag.String("output", "", "Directory results are written to")
	quiet := flag.Bool("quiet", false, "Don't log every epoch")

	flag.Parse()

	cfg := &config.Config{}
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	cfg.ApplyOverrides(config.Overrides{
		NetworksDir:     *networks,
		TrainDir:        *train,
		TestDir:         *test,
		Concurrency:     *concurrency,
		Repetitions:     *reps,
		MaxEpochs:       *maxEpochs,
		EarlyStopWindow: *earlyStop,
		TargetAccuracy:  *target,
		SnapshotEvery:   *snapEvery,
		LearningRate:    *lr,
		Optimizer:       *optimizer,
		BatchSize:       *batchSize,
		Shuffle:         *shuffle,
		Seed:            *seed,
		SeedPolicy:      *seedPolicy,
		OutputDir:       *output,
	})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	if _, err := openpb.NewOptimizer(openpb.OptimizerSpec{Name: cfg.Optimizer}); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	runID := uuid.New().String()
	log.Printf("run_id=%s cpu=%q logical_cores=%d", runID, cpuid.CPU.BrandName, harness.DefaultConcurrency())

	specs, err := specfile.LoadNetworks(cfg.NetworksDir)
	if err != nil {
		log.Fatalf("load networks: %v", err)
	}
	datasets, err := specfile.LoadDatasets(cfg.TrainDir, cfg.TestDir)
	if err != nil {
		log.Fatalf("load datasets: %v", err)
	}
	log.Printf("networks=%d datasets=%d repetitions=%d", len(specs), len(datasets), cfg.Repetitions)

	seeder, err := cfg.Seeder()
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	schedule, err := cfg.Schedule()
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	jobs, err := harness.Enumerate(specs, datasets, cfg.Repetitions, seeder)
	if err != nil {
		log.Fatalf("enumerate jobs: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.Default()

	args := openpb.TrainArgs{
		MaxEpochs:       cfg.MaxEpochs,
		BatchSize:       cfg.BatchSize,
		Shuffle:         cfg.Shuffle,
		LearningRate:    schedule,
		EarlyStopWindow: cfg.EarlyStopWindow,
		TargetAccuracy:  cfg.TargetAccuracy,
		SnapshotEvery:   cfg.SnapshotEvery,
	}
	if !*quiet {
		args.Logger = logger
	}

	var snaps *snapshot.Async
	if cfg.SnapshotEvery > 0 {
		snaps = snapshot.NewAsync(snapshot.DirSink{Root: cfg.SnapshotDir()}, 64, logger)
		args.Sink = snaps
	}

	h := &harness.Harness{
		Concurrency: cfg.Concurrency,
		Args:        args,
		Build:       openpb.BuildOptions{Optimizer: openpb.OptimizerSpec{Name: cfg.Optimizer, LearningRate: cfg.LearningRate}},
		Logger:      logger,
	}

	agg := stats.NewAggregator()
	h.OnResult(agg.Record)

	var finished int64
	h.OnResult(func(openpb.RunResult) {
		n := atomic.AddInt64(&finished, 1)
		log.Printf("progress=%d/%d", n, len(jobs))
	})

	results, err := h.Run(ctx, jobs)
	if err != nil {
		log.Fatalf("benchmark failed: %v", err)
	}

	if snaps != nil {
		snaps.Close()
	}

	aggs := agg.Results()
	for _, a := range aggs {
		log.Printf("spec=%s dataset=%s runs=%d acc_mean=%.4f acc_stddev=%.4f epochs_mean=%.1f failed=%d",
			a.Spec, a.Dataset, a.Runs, a.Accuracy.Mean(), a.Accuracy.StdDev(), a.Epochs.Mean(), a.Failed)
	}

	if err := report.WriteDir(cfg.OutputDir, runID, results, aggs); err != nil {
		log.Fatalf("write report: %v", err)
	}
	log.Printf("results written to %s", cfg.OutputDir)

	if ctx.Err() != nil {
		stop()
		os.Exit(1)
	}
}
