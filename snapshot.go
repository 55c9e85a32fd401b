package openpb

import (
	"github.com/dakatk/OpenPB/layer"
	"github.com/dakatk/OpenPB/tensor"
)

// LayerSnapshot holds copies of the parameters of one layer, at index Index in the network.
type LayerSnapshot struct {
	Index  int
	Kind   layer.Kind
	Params map[string]*tensor.Tensor
}

// Snapshot is a copy of every trainable layer of a network after the given epoch. Nothing in a
// Snapshot is shared with the network it came from.
type Snapshot struct {
	Job    JobID
	Epoch  int
	Layers []LayerSnapshot
}
