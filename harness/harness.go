package harness

import (
	"context"
	"io"
	"log"
	"runtime"
	"sync"

	"github.com/klauspost/cpuid/v2"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	openpb "github.com/dakatk/OpenPB"
)

// DefaultConcurrency returns the number of logical cores, falling back to runtime.NumCPU if they
// can't be detected.
func DefaultConcurrency() int {
	if n := cpuid.CPU.LogicalCores; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// Harness runs Jobs. Its fields must not be changed while Run is in progress.
type Harness struct {
	// Concurrency is the maximum number of jobs run at once. If ≤ 0, DefaultConcurrency is used.
	Concurrency int

	// Args and Build are passed to openpb.RunJob for every job
	Args  openpb.TrainArgs
	Build openpb.BuildOptions

	Logger *log.Logger

	// Runner runs a single job. If nil, the job is run with openpb.RunJob.
	Runner func(ctx context.Context, j Job) openpb.RunResult

	obsMux    sync.Mutex
	observers []func(openpb.RunResult)
}

// OnResult adds a function to be called with each result as soon as its job finishes. Observers
// are called from many goroutines at once, and must be safe for concurrent use.
func (h *Harness) OnResult(f func(openpb.RunResult)) {
	h.obsMux.Lock()
	defer h.obsMux.Unlock()
	h.observers = append(h.observers, f)
}

func (h *Harness) logger() *log.Logger {
	if h.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return h.Logger
}

// Run runs every job, returning only once each has a terminal result. The result of jobs[i] is at
// index i. If ctx is cancelled, jobs that haven't finished fail with reason "cancelled".
//
// The only errors returned are for jobs that can't be run at all.
func (h *Harness) Run(ctx context.Context, jobs []Job) ([]openpb.RunResult, error) {
	if len(jobs) == 0 {
		return nil, errors.Errorf("no jobs to run")
	}
	for i, j := range jobs {
		if j.Spec == nil || j.Data == nil {
			return nil, errors.Errorf("job #%d (%v) has no spec or dataset", i, j.ID)
		}
	}

	n := h.Concurrency
	if n <= 0 {
		n = DefaultConcurrency()
	}

	h.obsMux.Lock()
	observers := make([]func(openpb.RunResult), len(h.observers))
	copy(observers, h.observers)
	h.obsMux.Unlock()

	logger := h.logger()
	logger.Printf("jobs=%d concurrency=%d", len(jobs), n)

	results := make([]openpb.RunResult, len(jobs))

	// no job returns an error, so the group's context is never cancelled by a sibling
	var g errgroup.Group
	g.SetLimit(n)

	for i := range jobs {
		i := i
		g.Go(func() error {
			res := h.runOne(ctx, jobs[i])
			results[i] = res

			logger.Printf("job=%s status=%v reason=%q acc=%.4f epochs=%d loss=%.6f duration=%s",
				res.ID, res.Status, res.Reason, res.Accuracy, res.Epochs, res.Loss, res.Duration)
			for _, f := range observers {
				f(res)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// runOne runs a single job, turning a panic into a failed result
func (h *Harness) runOne(ctx context.Context, j Job) (res openpb.RunResult) {
	defer func() {
		if r := recover(); r != nil {
			res = openpb.RunResult{
				ID:     j.ID,
				Seed:   j.Seed,
				Status: openpb.Failed,
				Reason: openpb.ReasonPanic,
				Err:    errors.Errorf("panic: %v", r).Error(),
			}
		}
	}()

	if h.Runner != nil {
		res = h.Runner(ctx, j)
	} else {
		args := h.Args
		if args.Logger == nil {
			args.Logger = h.Logger
		}
		res = openpb.RunJob(ctx, j.ID, j.Spec, j.Data, j.Seed, args, h.Build)
	}

	if !res.Status.Terminal() {
		res.Status, res.Reason = openpb.Failed, openpb.ReasonError
	}
	return res
}
