package openpb

import (
	"github.com/dakatk/OpenPB/layer"
	"github.com/dakatk/OpenPB/tensor"
)

// CostFunction measures the error of a batch of predictions. Both arguments always have the same
// shape, [examples×outputs].
type CostFunction interface {
	TypeString() string

	// Cost returns the loss, averaged over the examples in the batch.
	Cost(outs, targets *tensor.Tensor) (float64, error)

	// Deriv returns the gradient of Cost with respect to outs.
	Deriv(outs, targets *tensor.Tensor) (*tensor.Tensor, error)
}

// Optimizer updates the parameters of a layer from the gradients left in them by Backward.
//
// Any per-parameter state (momentum, moment estimates, step counts) is created on first use and
// belongs to the Optimizer, which belongs to a single Network. Optimizers are not shared.
type Optimizer interface {
	TypeString() string
	Update(l *layer.Layer, learningRate float64) error
}

// Penalty adds a regularization term to the gradient of a weight parameter. It is applied before
// the Optimizer sees the gradient, and never to biases.
type Penalty interface {
	TypeString() string
	Penalize(p *layer.Param) error
}

// HyperParameter is a value that may change over the course of training, given the 0-indexed
// epoch.
type HyperParameter interface {
	TypeString() string
	Value(epoch int) float64
}

// Sink receives periodic snapshots of a network's parameters. Sinks may be called from many jobs at
// once, and must be safe for concurrent use.
type Sink interface {
	Write(s *Snapshot) error
}
