package harness_test

import (
	"context"
	"math"
	"sync/atomic"
	"testing"

	openpb "github.com/dakatk/OpenPB"
	"github.com/dakatk/OpenPB/activation"
	_ "github.com/dakatk/OpenPB/costfuncs"
	"github.com/dakatk/OpenPB/harness"
	"github.com/dakatk/OpenPB/hyperparams"
	"github.com/dakatk/OpenPB/layer"
	_ "github.com/dakatk/OpenPB/optimizers"
	"github.com/dakatk/OpenPB/stats"
)

func xor() *openpb.Dataset {
	ex := []openpb.Example{
		{Input: []float64{0, 0}, Output: []float64{0}},
		{Input: []float64{0, 1}, Output: []float64{1}},
		{Input: []float64{1, 0}, Output: []float64{1}},
		{Input: []float64{1, 1}, Output: []float64{0}},
	}
	return &openpb.Dataset{ID: "xor", Train: ex, Test: ex}
}

func and() *openpb.Dataset {
	ex := []openpb.Example{
		{Input: []float64{0, 0}, Output: []float64{0}},
		{Input: []float64{0, 1}, Output: []float64{0}},
		{Input: []float64{1, 0}, Output: []float64{0}},
		{Input: []float64{1, 1}, Output: []float64{1}},
	}
	return &openpb.Dataset{ID: "and", Train: ex, Test: ex}
}

func spec(id string, hidden int) *openpb.NetworkSpec {
	return &openpb.NetworkSpec{
		ID:         id,
		InputShape: []int{2},
		Layers: []openpb.LayerSpec{
			{Kind: layer.Dense, Units: hidden, Activation: activation.Tanh},
			{Kind: layer.Dense, Units: 1, Activation: activation.Sigmoid},
		},
		Cost: "mse",
	}
}

func TestEnumerateOrder(t *testing.T) {
	specs := []*openpb.NetworkSpec{spec("s1", 2), spec("s2", 3)}
	datasets := []*openpb.Dataset{xor(), and()}

	jobs, err := harness.Enumerate(specs, datasets, 3, harness.Seeder{})
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 12 {
		t.Fatalf("expected 12 jobs, got %d", len(jobs))
	}

	i := 0
	for _, s := range []string{"s1", "s2"} {
		for _, d := range []string{"xor", "and"} {
			for r := 1; r <= 3; r++ {
				want := openpb.JobID{Spec: s, Dataset: d, Repetition: r}
				if jobs[i].ID != want || jobs[i].Index != i {
					t.Fatalf("job %d: expected %v, got %v (index %d)", i, want, jobs[i].ID, jobs[i].Index)
				}
				i++
			}
		}
	}
}

func TestEnumerateErrors(t *testing.T) {
	specs := []*openpb.NetworkSpec{spec("s", 2)}
	datasets := []*openpb.Dataset{xor()}

	if _, err := harness.Enumerate(nil, datasets, 1, harness.Seeder{}); err == nil {
		t.Fatalf("expected error for no specs")
	}
	if _, err := harness.Enumerate(specs, nil, 1, harness.Seeder{}); err == nil {
		t.Fatalf("expected error for no datasets")
	}
	if _, err := harness.Enumerate(specs, datasets, 0, harness.Seeder{}); err == nil {
		t.Fatalf("expected error for zero repetitions")
	}
}

func TestSeedPolicies(t *testing.T) {
	s := spec("s", 2)
	id1 := openpb.JobID{Spec: "s", Dataset: "d", Repetition: 1}
	id2 := openpb.JobID{Spec: "s", Dataset: "d", Repetition: 2}

	per := harness.Seeder{Policy: harness.PerRepetition, Base: 7}
	if per.Seed(s, id1) != per.Seed(s, id1) {
		t.Fatalf("per-repetition seeds are not reproducible")
	}
	if per.Seed(s, id1) == per.Seed(s, id2) {
		t.Fatalf("per-repetition seeds should differ between repetitions")
	}
	if per.Seed(s, id1) == (harness.Seeder{Policy: harness.PerRepetition, Base: 8}).Seed(s, id1) {
		t.Fatalf("per-repetition seeds should depend on the base seed")
	}

	shared := harness.Seeder{Policy: harness.Shared, Base: 7}
	if shared.Seed(s, id1) != shared.Seed(s, id2) {
		t.Fatalf("shared seeds should not differ between repetitions")
	}

	random := harness.Seeder{Policy: harness.Random}
	if random.Seed(s, id1) == random.Seed(s, id1) {
		t.Fatalf("random seeds repeated")
	}

	pinned := int64(99)
	s.Seed = &pinned
	for _, sd := range []harness.Seeder{per, shared, random} {
		if got := sd.Seed(s, id2); got != 99 {
			t.Fatalf("%v: pinned seed ignored, got %d", sd.Policy, got)
		}
	}
}

func TestParseSeedPolicy(t *testing.T) {
	for _, p := range []harness.SeedPolicy{harness.PerRepetition, harness.Shared, harness.Random} {
		got, err := harness.ParseSeedPolicy(p.String())
		if err != nil || got != p {
			t.Fatalf("%v: got %v (%v)", p, got, err)
		}
	}
	if _, err := harness.ParseSeedPolicy("sometimes"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}

func benchmark(t *testing.T) []harness.Job {
	specs := []*openpb.NetworkSpec{spec("small", 2), spec("large", 6)}
	datasets := []*openpb.Dataset{xor(), and()}

	jobs, err := harness.Enumerate(specs, datasets, 3, harness.Seeder{Base: 1})
	if err != nil {
		t.Fatal(err)
	}
	return jobs
}

func TestPoolSizesAgree(t *testing.T) {
	jobs := benchmark(t)
	args := openpb.TrainArgs{MaxEpochs: 15, BatchSize: 2, Shuffle: true, LearningRate: hyperparams.Constant(0.5)}

	var first []openpb.RunResult
	var firstAgg []stats.Aggregate

	for _, n := range []int{1, 2, 8} {
		agg := stats.NewAggregator()
		var seen int32

		h := &harness.Harness{Concurrency: n, Args: args}
		h.OnResult(agg.Record)
		h.OnResult(func(openpb.RunResult) { atomic.AddInt32(&seen, 1) })

		results, err := h.Run(context.Background(), jobs)
		if err != nil {
			t.Fatal(err)
		}
		if int(seen) != len(jobs) {
			t.Fatalf("concurrency %d: observers saw %d of %d results", n, seen, len(jobs))
		}

		for i, r := range results {
			if r.ID != jobs[i].ID || r.Status != openpb.Completed {
				t.Fatalf("concurrency %d: result %d is %v with status %v (%s)", n, i, r.ID, r.Status, r.Err)
			}
		}

		aggs := agg.Results()
		if first == nil {
			first, firstAgg = results, aggs
			continue
		}

		for i, r := range results {
			f := first[i]
			if r.Accuracy != f.Accuracy || r.Loss != f.Loss || r.Epochs != f.Epochs || r.Seed != f.Seed {
				t.Fatalf("concurrency %d: job %v differs from concurrency 1", n, r.ID)
			}
		}

		if len(aggs) != len(firstAgg) {
			t.Fatalf("concurrency %d: %d groups, expected %d", n, len(aggs), len(firstAgg))
		}
		for i := range aggs {
			a, b := aggs[i], firstAgg[i]
			if a.Group != b.Group || a.Runs != b.Runs ||
				math.Abs(a.Accuracy.Mean()-b.Accuracy.Mean()) > 1e-12 ||
				math.Abs(a.Accuracy.Variance()-b.Accuracy.Variance()) > 1e-12 {
				t.Fatalf("concurrency %d: aggregate for %v differs", n, a.Group)
			}
		}
	}
}

func TestPanicsAreRecovered(t *testing.T) {
	jobs := benchmark(t)

	h := &harness.Harness{
		Concurrency: 4,
		Runner: func(ctx context.Context, j harness.Job) openpb.RunResult {
			if j.Index == 5 {
				panic("boom")
			}
			return openpb.RunResult{ID: j.ID, Status: openpb.Completed, Accuracy: 1}
		},
	}

	results, err := h.Run(context.Background(), jobs)
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range results {
		if i == 5 {
			if r.Status != openpb.Failed || r.Reason != openpb.ReasonPanic || r.ID != jobs[5].ID {
				t.Fatalf("expected recovered panic, got %+v", r)
			}
		} else if r.Status != openpb.Completed {
			t.Fatalf("job %d: unexpected status %v", i, r.Status)
		}
	}
}

func TestIncompatiblePairFails(t *testing.T) {
	wide := spec("wide", 2)
	wide.InputShape = []int{3}

	jobs, err := harness.Enumerate([]*openpb.NetworkSpec{spec("ok", 2), wide}, []*openpb.Dataset{xor()}, 1, harness.Seeder{})
	if err != nil {
		t.Fatal(err)
	}

	h := &harness.Harness{Concurrency: 2, Args: openpb.TrainArgs{MaxEpochs: 2, LearningRate: hyperparams.Constant(0.1)}}
	results, err := h.Run(context.Background(), jobs)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Status != openpb.Completed {
		t.Fatalf("compatible pair: %v (%s)", results[0].Status, results[0].Err)
	}
	if results[1].Status != openpb.Failed || results[1].Reason != openpb.ReasonInvalidSpec {
		t.Fatalf("incompatible pair: %v (%s)", results[1].Status, results[1].Reason)
	}
}

func TestCancelledBeforeStart(t *testing.T) {
	jobs := benchmark(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := &harness.Harness{Concurrency: 3, Args: openpb.TrainArgs{MaxEpochs: 100, LearningRate: hyperparams.Constant(0.1)}}
	results, err := h.Run(ctx, jobs)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.Status != openpb.Failed || r.Reason != openpb.ReasonCancelled || r.Epochs != 0 {
			t.Fatalf("%v: expected cancellation before the first epoch, got %v (%s) after %d",
				r.ID, r.Status, r.Reason, r.Epochs)
		}
	}
}

func TestNoJobs(t *testing.T) {
	if _, err := (&harness.Harness{}).Run(context.Background(), nil); err == nil {
		t.Fatalf("expected error for no jobs")
	}
}
