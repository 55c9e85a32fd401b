package specfile

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	openpb "github.com/dakatk/OpenPB"
)

type setJSON struct {
	Inputs  [][]float64 `json:"inputs"`
	Outputs [][]float64 `json:"outputs"`
}

// ParseSet decodes a list of examples. The number of inputs must equal the number of outputs.
func ParseSet(data []byte) ([]openpb.Example, error) {
	var sj setJSON
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&sj); err != nil {
		return nil, errors.Wrapf(err, "decode dataset")
	}

	if len(sj.Inputs) != len(sj.Outputs) {
		return nil, errors.Errorf("%d inputs but %d outputs", len(sj.Inputs), len(sj.Outputs))
	}

	ex := make([]openpb.Example, len(sj.Inputs))
	for i := range ex {
		ex[i] = openpb.Example{Input: sj.Inputs[i], Output: sj.Outputs[i]}
	}
	return ex, nil
}

func loadSet(path string) ([]openpb.Example, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	ex, err := ParseSet(data)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return ex, nil
}

// LoadDatasets pairs every file in trainDir with the file of the same stem in testDir, giving one
// Dataset for each, with the stem as its id. A file without its pair is an error.
//
// The Datasets are not validated; an invalid Dataset fails the jobs that use it.
func LoadDatasets(trainDir, testDir string) ([]*openpb.Dataset, error) {
	trainPaths, err := jsonFiles(trainDir)
	if err != nil {
		return nil, err
	}
	testPaths, err := jsonFiles(testDir)
	if err != nil {
		return nil, err
	}

	tests := make(map[string]string, len(testPaths))
	for _, p := range testPaths {
		tests[stem(p)] = p
	}

	var datasets []*openpb.Dataset
	for _, p := range trainPaths {
		id := stem(p)
		testPath, ok := tests[id]
		if !ok {
			return nil, errors.Errorf("training set %s has no testing set in %s", p, testDir)
		}
		delete(tests, id)

		d := &openpb.Dataset{ID: id}
		if d.Train, err = loadSet(p); err != nil {
			return nil, err
		}
		if d.Test, err = loadSet(testPath); err != nil {
			return nil, err
		}
		datasets = append(datasets, d)
	}

	for _, p := range testPaths {
		if _, ok := tests[stem(p)]; ok {
			return nil, errors.Errorf("testing set %s has no training set in %s", p, trainDir)
		}
	}

	return datasets, nil
}
