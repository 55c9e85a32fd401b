// Package openpb trains and evaluates neural networks described by NetworkSpecs, for benchmarking
// many configurations against many datasets.
//
// # Building Networks
//
// A NetworkSpec lists the layers of a network along with its cost function, optimizer, and
// (optionally) a weight penalty and a target encoder. Cost functions, optimizers, and penalties are
// looked up by name in registries that are filled by their subpackages, so those must be imported
// for their side effects:
//
//	import (
//		_ "github.com/dakatk/OpenPB/costfuncs"
//		_ "github.com/dakatk/OpenPB/optimizers"
//		_ "github.com/dakatk/OpenPB/penalties"
//	)
//
// A Network is built for a particular pair of input and output widths:
//
//	net, err := openpb.Build(spec, data.InputWidth(), data.OutputWidth(), rng, openpb.BuildOptions{})
//
// Every layer's input shape is inferred from the output of the layer before it, and anything that
// doesn't fit is reported as an *InvalidSpecError. All randomness, from initial weights to dropout
// to shuffling, comes from the *rand.Rand given here, so two Networks built with equal seeds train
// identically.
//
// # Training
//
// A Trainer runs the training loop for a single Network and Dataset. Its TrainArgs set the number
// of epochs, the batch size, the learning rate schedule (see the subpackage hyperparams), and the
// conditions for stopping early:
//
//	res := openpb.NewTrainer(id, net, data, rng, args).Run(ctx)
//
// Run always returns a RunResult with a terminal State: Completed, Diverged if any parameter became
// NaN or infinite, or Failed. For most uses, RunJob does all of the above in one call.
//
// Running many jobs at once is the job of the subpackage harness.
package openpb
