// Package harness runs every combination of network spec and dataset, with any number of
// repetitions, on a bounded pool of goroutines.
package harness

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	openpb "github.com/dakatk/OpenPB"
)

// Job is a single training run. Spec and Data are shared read-only with every other Job that uses
// them.
type Job struct {
	// Index is the position of the Job in the result of Enumerate
	Index int
	ID    openpb.JobID
	Spec  *openpb.NetworkSpec
	Data  *openpb.Dataset
	Seed  int64
}

// SeedPolicy decides how the seed of each Job is chosen.
type SeedPolicy int8

const (
	// PerRepetition derives each seed from the full JobID and the base seed, so that repetitions
	// differ but a rerun with the same base seed is identical.
	PerRepetition SeedPolicy = iota
	// Shared gives every repetition of a (spec, dataset) pair the same seed.
	Shared
	// Random draws every seed from a fresh random UUID.
	Random
)

func (p SeedPolicy) String() string {
	switch p {
	case Shared:
		return "shared"
	case Random:
		return "random"
	}
	return "per_repetition"
}

// ParseSeedPolicy accepts the names returned by SeedPolicy.String. The empty string is
// PerRepetition.
func ParseSeedPolicy(s string) (SeedPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "per_repetition", "per-repetition", "repetition":
		return PerRepetition, nil
	case "shared", "fixed":
		return Shared, nil
	case "random":
		return Random, nil
	}
	return PerRepetition, errors.Errorf("unknown seed policy %q", s)
}

// Seeder chooses the seed of each Job.
type Seeder struct {
	Policy SeedPolicy
	Base   int64
}

func seedFrom(u uuid.UUID) int64 {
	return int64(binary.BigEndian.Uint64(u[:8]))
}

// Seed returns the seed for a job with the given ID. A seed pinned by the spec always wins.
func (s Seeder) Seed(spec *openpb.NetworkSpec, id openpb.JobID) int64 {
	if spec != nil && spec.Seed != nil {
		return *spec.Seed
	}

	base := []byte(strconv.FormatInt(s.Base, 10))
	switch s.Policy {
	case Shared:
		pair := openpb.JobID{Spec: id.Spec, Dataset: id.Dataset}
		return seedFrom(uuid.NewSHA1(pair.UUID(), base))
	case Random:
		return seedFrom(uuid.New())
	}
	return seedFrom(uuid.NewSHA1(id.UUID(), base))
}

// Enumerate returns one Job for every repetition of every pair of spec and dataset, ordered by
// spec, then dataset, then repetition. Repetitions are numbered from 1.
//
// Pairs that can't be built together are still enumerated; their Jobs fail when run.
func Enumerate(specs []*openpb.NetworkSpec, datasets []*openpb.Dataset, reps int, seeder Seeder) ([]Job, error) {
	if len(specs) == 0 {
		return nil, errors.Errorf("no network specs")
	} else if len(datasets) == 0 {
		return nil, errors.Errorf("no datasets")
	} else if reps < 1 {
		return nil, errors.Errorf("repetitions must be ≥ 1, got %d", reps)
	}

	jobs := make([]Job, 0, len(specs)*len(datasets)*reps)
	for _, s := range specs {
		for _, d := range datasets {
			for r := 1; r <= reps; r++ {
				id := openpb.JobID{Spec: s.ID, Dataset: d.ID, Repetition: r}
				jobs = append(jobs, Job{
					Index: len(jobs),
					ID:    id,
					Spec:  s,
					Data:  d,
					Seed:  seeder.Seed(s, id),
				})
			}
		}
	}
	return jobs, nil
}
