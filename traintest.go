package openpb

import (
	"context"
	"io"
	"log"
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/dakatk/OpenPB/hyperparams"
	"github.com/dakatk/OpenPB/tensor"
)

// plateauEpsilon is the smallest increase in test accuracy that counts as an improvement
const plateauEpsilon = 1e-9

// TrainArgs controls a single training run. The zero value is not usable: MaxEpochs must be at
// least 1 and LearningRate must be set.
type TrainArgs struct {
	MaxEpochs int

	// BatchSize is the number of examples per update. Zero uses the entire training set.
	BatchSize int
	// Shuffle reorders the training set before every epoch, using the run's own RNG.
	Shuffle bool

	// LearningRate gives the learning rate for each 0-indexed epoch
	LearningRate HyperParameter

	// EarlyStopWindow ends the run once test accuracy hasn't improved for this many epochs. Zero
	// disables it.
	EarlyStopWindow int
	// TargetAccuracy ends the run once test accuracy reaches it. Zero disables it.
	TargetAccuracy float64

	// SnapshotEvery sends a Snapshot to Sink after every N epochs. Zero, or a nil Sink, disables
	// snapshots.
	SnapshotEvery int
	Sink          Sink

	// Logger receives one line per epoch. It may be nil.
	Logger *log.Logger

	// OnEpoch, if not nil, is called after each epoch is evaluated. It is called from the goroutine
	// running the Trainer.
	OnEpoch func(EpochStats)
}

func (args TrainArgs) check() error {
	if args.MaxEpochs < 1 {
		return errors.Errorf("max epochs must be ≥ 1, got %d", args.MaxEpochs)
	} else if args.BatchSize < 0 {
		return errors.Errorf("batch size must be ≥ 0, got %d", args.BatchSize)
	} else if args.LearningRate == nil {
		return errors.Errorf("no learning rate given")
	} else if args.EarlyStopWindow < 0 {
		return errors.Errorf("early stop window must be ≥ 0, got %d", args.EarlyStopWindow)
	} else if args.SnapshotEvery < 0 {
		return errors.Errorf("snapshot interval must be ≥ 0, got %d", args.SnapshotEvery)
	}
	return nil
}

// Trainer runs the training loop for a single Network on a single Dataset. A Trainer is used once:
// Run moves it from Initialized to Running, and from there to exactly one terminal State.
type Trainer struct {
	ID   JobID
	Net  *Network
	Data *Dataset
	Args TrainArgs

	rng   *rand.Rand
	state State
	log   *log.Logger
}

// NewTrainer returns a Trainer in the Initialized state. rng must not be shared with any other
// goroutine.
func NewTrainer(id JobID, net *Network, data *Dataset, rng *rand.Rand, args TrainArgs) *Trainer {
	logger := args.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &Trainer{ID: id, Net: net, Data: data, Args: args, rng: rng, state: Initialized, log: logger}
}

// State returns the current state of the Trainer. It must not be called concurrently with Run.
func (t *Trainer) State() State {
	return t.state
}

// Run trains until a stopping condition is met or ctx is cancelled, which is checked before every
// epoch. The returned RunResult always has a terminal Status.
func (t *Trainer) Run(ctx context.Context) RunResult {
	start := time.Now()
	res := RunResult{ID: t.ID}
	var hist History

	finish := func(err error) RunResult {
		res.History = hist.Entries()
		if err == nil {
			t.state = Completed
		} else {
			t.state, res.Reason = Classify(err)
			res.Err = err.Error()
		}
		res.Status = t.state
		res.Duration = time.Since(start)
		return res
	}

	if t.state != Initialized {
		return finish(errors.Errorf("trainer already run (state %v)", t.state))
	}
	t.state = Running

	if err := t.Args.check(); err != nil {
		return finish(err)
	}
	t.log.Printf("job=%s state=%v lr_schedule=%s max_epochs=%d batch_size=%d",
		t.ID, t.state, t.Args.LearningRate.TypeString(), t.Args.MaxEpochs, t.Args.BatchSize)

	x, y, err := t.Net.Encode(t.Data.Train)
	if err != nil {
		return finish(invalidDataset(t.Data.ID, "training set: %v", err))
	}
	tx, ty, err := t.Net.Encode(t.Data.Test)
	if err != nil {
		return finish(invalidDataset(t.Data.ID, "testing set: %v", err))
	}

	best := -1.0
	var since int

	for epoch := 1; epoch <= t.Args.MaxEpochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return finish(errors.Wrapf(ErrCancelled, "before epoch %d: %v", epoch, err))
		}

		lr := t.Args.LearningRate.Value(epoch - 1)
		trainLoss, err := t.epoch(x, y, lr)
		if err != nil {
			return finish(errors.Wrapf(err, "epoch %d", epoch))
		}

		testLoss, acc, err := t.Net.Evaluate(tx, ty)
		if err != nil {
			return finish(errors.Wrapf(err, "evaluate after epoch %d", epoch))
		}

		stats := EpochStats{Epoch: epoch, TrainLoss: trainLoss, TestLoss: testLoss, Accuracy: acc}
		hist.Add(stats)
		res.Epochs, res.Accuracy, res.Loss = epoch, acc, testLoss

		t.log.Printf("job=%s epoch=%d lr=%g train_loss=%.6f test_loss=%.6f acc=%.4f",
			t.ID, epoch, lr, trainLoss, testLoss, acc)
		if t.Args.OnEpoch != nil {
			t.Args.OnEpoch(stats)
		}

		if t.Args.SnapshotEvery > 0 && t.Args.Sink != nil && epoch%t.Args.SnapshotEvery == 0 {
			snap := &Snapshot{Job: t.ID, Epoch: epoch, Layers: t.Net.Snapshot()}
			if err := t.Args.Sink.Write(snap); err != nil {
				t.log.Printf("job=%s epoch=%d snapshot_error=%q", t.ID, epoch, err)
			}
		}

		if t.Args.TargetAccuracy > 0 && acc >= t.Args.TargetAccuracy {
			t.log.Printf("job=%s epoch=%d stop=target_accuracy", t.ID, epoch)
			break
		}

		if acc > best+plateauEpsilon {
			best, since = acc, 0
		} else {
			since++
		}
		if t.Args.EarlyStopWindow > 0 && since >= t.Args.EarlyStopWindow {
			t.log.Printf("job=%s epoch=%d stop=plateau window=%d", t.ID, epoch, t.Args.EarlyStopWindow)
			break
		}
	}

	return finish(nil)
}

// epoch runs a single pass over the training set, returning the mean loss over its batches
func (t *Trainer) epoch(x, y *tensor.Tensor, lr float64) (float64, error) {
	n := x.Dim(0)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if t.Args.Shuffle {
		t.rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	size := t.Args.BatchSize
	if size == 0 || size > n {
		size = n
	}

	var total float64
	var batches int
	for lo := 0; lo < n; lo += size {
		hi := lo + size
		if hi > n {
			hi = n
		}

		bx, by := gather(x, order[lo:hi]), gather(y, order[lo:hi])

		preds, err := t.Net.Forward(bx, true)
		if err != nil {
			return 0, err
		}
		loss, err := t.Net.Backward(preds, by, lr)
		if err != nil {
			return 0, err
		}

		total += loss
		batches++
	}

	return total / float64(batches), nil
}

// gather returns the given rows of a 2D tensor, in order
func gather(m *tensor.Tensor, rows []int) *tensor.Tensor {
	w := m.Dim(1)
	out := tensor.New(len(rows), w)
	for i, r := range rows {
		copy(out.Data()[i*w:(i+1)*w], m.Data()[r*w:(r+1)*w])
	}
	return out
}

// RunJob validates data and spec, builds a Network from spec seeded with seed, and trains it. Every
// failure, including a panic, is reported in the returned RunResult.
//
// If the spec sets its own learning rate, it replaces args.LearningRate with a constant schedule.
// A target accuracy set by the spec likewise replaces args.TargetAccuracy.
func RunJob(ctx context.Context, id JobID, spec *NetworkSpec, data *Dataset, seed int64, args TrainArgs, opts BuildOptions) (res RunResult) {
	start := time.Now()
	fail := func(err error) RunResult {
		status, reason := Classify(err)
		return RunResult{ID: id, Seed: seed, Status: status, Reason: reason, Err: err.Error(), Duration: time.Since(start)}
	}

	defer func() {
		if r := recover(); r != nil {
			res = fail(errors.Errorf("panic: %v", r))
			res.Reason = ReasonPanic
		}
	}()

	if err := data.Validate(); err != nil {
		return fail(err)
	}

	rng := rand.New(rand.NewSource(seed))
	net, err := Build(spec, data.InputWidth(), data.OutputWidth(), rng, opts)
	if err != nil {
		return fail(err)
	}

	if spec.Optimizer != nil && spec.Optimizer.LearningRate > 0 {
		args.LearningRate = hyperparams.Constant(spec.Optimizer.LearningRate)
	}
	if spec.TargetAccuracy > 0 {
		args.TargetAccuracy = spec.TargetAccuracy
	}

	res = NewTrainer(id, net, data, rng, args).Run(ctx)
	res.Seed = seed
	return res
}
