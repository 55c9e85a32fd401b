// Package report writes the results of a benchmark as CSV tables.
package report

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	openpb "github.com/dakatk/OpenPB"
	"github.com/dakatk/OpenPB/stats"
)

// File names used by WriteDir
const (
	ResultsFile    = "results.csv"
	AggregatesFile = "aggregates.csv"
)

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// WriteResults writes one row per job, in the order given.
func WriteResults(w io.Writer, runID string, results []openpb.RunResult) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{
		"run_id", "job_uuid", "spec", "dataset", "repetition", "seed", "status", "reason",
		"accuracy", "loss", "epochs", "duration_ms", "error",
	})

	for _, r := range results {
		cw.Write([]string{
			runID,
			r.ID.UUID().String(),
			r.ID.Spec,
			r.ID.Dataset,
			strconv.Itoa(r.ID.Repetition),
			strconv.FormatInt(r.Seed, 10),
			r.Status.String(),
			r.Reason,
			ftoa(r.Accuracy),
			ftoa(r.Loss),
			strconv.Itoa(r.Epochs),
			strconv.FormatInt(r.Duration.Milliseconds(), 10),
			r.Err,
		})
	}

	cw.Flush()
	return errors.Wrapf(cw.Error(), "write results")
}

// failures formats a failure breakdown as "reason=count" pairs, sorted by reason
func failures(m map[string]int) string {
	reasons := make([]string, 0, len(m))
	for r := range m {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)

	parts := make([]string, len(reasons))
	for i, r := range reasons {
		parts[i] = r + "=" + strconv.Itoa(m[r])
	}
	return strings.Join(parts, ";")
}

// WriteAggregates writes one row per group, in the order given.
func WriteAggregates(w io.Writer, aggs []stats.Aggregate) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{
		"spec", "dataset", "runs", "completed", "accuracy_mean", "accuracy_variance",
		"accuracy_stddev", "epochs_mean", "epochs_variance", "failed", "failures",
	})

	for _, a := range aggs {
		cw.Write([]string{
			a.Spec,
			a.Dataset,
			strconv.Itoa(a.Runs),
			strconv.Itoa(a.Accuracy.Count()),
			ftoa(a.Accuracy.Mean()),
			ftoa(a.Accuracy.Variance()),
			ftoa(a.Accuracy.StdDev()),
			ftoa(a.Epochs.Mean()),
			ftoa(a.Epochs.Variance()),
			strconv.Itoa(a.Failed),
			failures(a.Failures),
		})
	}

	cw.Flush()
	return errors.Wrapf(cw.Error(), "write aggregates")
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}

	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}

// WriteDir writes ResultsFile and AggregatesFile into dir, creating it if necessary.
func WriteDir(dir, runID string, results []openpb.RunResult, aggs []stats.Aggregate) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create output directory")
	}

	err := writeFile(filepath.Join(dir, ResultsFile), func(w io.Writer) error {
		return WriteResults(w, runID, results)
	})
	if err != nil {
		return err
	}

	return writeFile(filepath.Join(dir, AggregatesFile), func(w io.Writer) error {
		return WriteAggregates(w, aggs)
	})
}
