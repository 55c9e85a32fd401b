// Package specfile loads network specs and datasets from directories of JSON files.
package specfile

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	openpb "github.com/dakatk/OpenPB"
	"github.com/dakatk/OpenPB/activation"
	"github.com/dakatk/OpenPB/layer"
	"github.com/dakatk/OpenPB/tensor"
)

// pair is a [2]int that may also be given in JSON as a single number, for both dimensions
type pair [2]int

func (p *pair) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*p = pair{n, n}
		return nil
	}

	var a []int
	if err := json.Unmarshal(data, &a); err != nil {
		return errors.Errorf("expected a number or a pair of numbers, got %s", data)
	} else if len(a) != 2 {
		return errors.Errorf("expected a pair of numbers, got %d", len(a))
	}
	*p = pair{a[0], a[1]}
	return nil
}

type layerJSON struct {
	Type       string  `json:"type"`
	Neurons    int     `json:"neurons"`
	Units      int     `json:"units"`
	Outputs    int     `json:"outputs"`
	Filters    int     `json:"filters"`
	Kernel     pair    `json:"kernel"`
	Stride     int     `json:"stride"`
	Padding    string  `json:"padding"`
	Window     pair    `json:"window"`
	Mode       string  `json:"mode"`
	Activation string  `json:"activation"`
	Init       string  `json:"init"`
	Dropout    float64 `json:"dropout_rate"`
	Truncate   int     `json:"truncate"`
	Sequences  bool    `json:"sequences"`
}

type optimizerJSON struct {
	Name         string   `json:"name"`
	LearningRate float64  `json:"learning_rate"`
	Beta1        *float64 `json:"beta1"`
	Beta2        *float64 `json:"beta2"`
}

type penaltyJSON struct {
	Name   string  `json:"name"`
	Lambda float64 `json:"lambda"`
	Alpha  float64 `json:"alpha"`
}

type encoderJSON struct {
	Name string `json:"name"`
	Args struct {
		Max int `json:"max"`
	} `json:"args"`
}

type metricJSON struct {
	Name string `json:"name"`
	Args struct {
		Min *float64 `json:"min"`
	} `json:"args"`
}

// defaultMetricMin is the target accuracy of a metric that doesn't give one
const defaultMetricMin = 1.0

func (m metricJSON) target() (float64, error) {
	switch strings.ToLower(strings.TrimSpace(m.Name)) {
	case "accuracy", "acc":
	default:
		return 0, errors.Errorf("unknown metric %q", m.Name)
	}

	if m.Args.Min == nil {
		return defaultMetricMin, nil
	}
	return *m.Args.Min, nil
}

type networkJSON struct {
	ID           string         `json:"id"`
	Architecture string         `json:"architecture"`
	InputShape   []int          `json:"input_shape"`
	Layers       []layerJSON    `json:"layers"`
	Cost         string         `json:"cost"`
	Optimizer    *optimizerJSON `json:"optimizer"`
	Penalty      *penaltyJSON   `json:"penalty"`
	Encoder      *encoderJSON   `json:"encoder"`
	Metric       *metricJSON    `json:"metric"`
	Seed         *int64         `json:"seed"`
}

func (l layerJSON) spec() (openpb.LayerSpec, error) {
	kind, err := layer.ParseKind(l.Type)
	if err != nil {
		return openpb.LayerSpec{}, err
	}
	act, err := activation.Parse(l.Activation)
	if err != nil {
		return openpb.LayerSpec{}, err
	}
	padding, err := tensor.ParsePadding(l.Padding)
	if err != nil {
		return openpb.LayerSpec{}, err
	}
	mode, err := layer.ParsePoolMode(l.Mode)
	if err != nil {
		return openpb.LayerSpec{}, err
	}

	units := l.Units
	if units == 0 {
		units = l.Neurons
	}

	return openpb.LayerSpec{
		Kind:       kind,
		Units:      units,
		Outputs:    l.Outputs,
		Filters:    l.Filters,
		Kernel:     l.Kernel,
		Stride:     l.Stride,
		Padding:    padding,
		Window:     l.Window,
		Pool:       mode,
		Activation: act,
		Init:       l.Init,
		Dropout:    l.Dropout,
		Truncate:   l.Truncate,
		Sequences:  l.Sequences,
	}, nil
}

// ParseNetwork decodes a single network spec. If the JSON doesn't give an id, defaultID is used.
//
// Only malformed JSON and unknown names are errors here. Whether the spec can actually be built is
// left to openpb.
func ParseNetwork(data []byte, defaultID string) (*openpb.NetworkSpec, error) {
	var nj networkJSON
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&nj); err != nil {
		return nil, errors.Wrapf(err, "decode network")
	}

	arch, err := openpb.ParseArchitecture(nj.Architecture)
	if err != nil {
		return nil, err
	}

	spec := &openpb.NetworkSpec{
		ID:           nj.ID,
		Architecture: arch,
		InputShape:   nj.InputShape,
		Cost:         nj.Cost,
		Seed:         nj.Seed,
	}
	if spec.ID == "" {
		spec.ID = defaultID
	}

	for i, lj := range nj.Layers {
		ls, err := lj.spec()
		if err != nil {
			return nil, errors.Wrapf(err, "layer #%d", i)
		}
		spec.Layers = append(spec.Layers, ls)
	}

	if o := nj.Optimizer; o != nil {
		spec.Optimizer = &openpb.OptimizerSpec{Name: o.Name, LearningRate: o.LearningRate, Beta1: o.Beta1, Beta2: o.Beta2}
	}
	if p := nj.Penalty; p != nil {
		spec.Penalty = &openpb.PenaltySpec{Name: p.Name, Lambda: p.Lambda, Alpha: p.Alpha}
	}
	if e := nj.Encoder; e != nil {
		spec.Encoder = &openpb.EncoderSpec{Name: e.Name, Classes: e.Args.Max}
	}
	if m := nj.Metric; m != nil {
		if spec.TargetAccuracy, err = m.target(); err != nil {
			return nil, err
		}
	}

	return spec, nil
}

// stem returns the file name without its directory or extension
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// jsonFiles returns the paths of every .json file directly inside dir, sorted
func jsonFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read directory %s", dir)
	}

	var paths []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// LoadNetworks loads every network spec in dir, in order of file name. Each spec's id defaults to
// its file's stem. Two specs with the same id are an error.
func LoadNetworks(dir string) ([]*openpb.NetworkSpec, error) {
	paths, err := jsonFiles(dir)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]string)
	var specs []*openpb.NetworkSpec
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", p)
		}

		spec, err := ParseNetwork(data, stem(p))
		if err != nil {
			return nil, errors.Wrapf(err, "%s", p)
		}

		if other, ok := seen[spec.ID]; ok {
			return nil, errors.Errorf("%s: network id %q already used by %s", p, spec.ID, other)
		}
		seen[spec.ID] = p
		specs = append(specs, spec)
	}
	return specs, nil
}
