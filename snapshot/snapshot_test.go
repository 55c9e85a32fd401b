package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pkg/errors"

	openpb "github.com/dakatk/OpenPB"
	"github.com/dakatk/OpenPB/layer"
	"github.com/dakatk/OpenPB/tensor"
)

func snap(rep, epoch int) *openpb.Snapshot {
	return &openpb.Snapshot{
		Job:   openpb.JobID{Spec: "net", Dataset: "xor", Repetition: rep},
		Epoch: epoch,
		Layers: []openpb.LayerSnapshot{{
			Index: 0,
			Kind:  layer.Dense,
			Params: map[string]*tensor.Tensor{
				"W": tensor.MustFromSlice([]float64{1, 2, 3, 4}, 2, 2),
				"b": tensor.MustFromSlice([]float64{0.5, -0.5}, 2),
			},
		}},
	}
}

func TestDirSink(t *testing.T) {
	sink := DirSink{Root: t.TempDir()}
	s := snap(2, 10)
	if err := sink.Write(s); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(sink.Root, "net", "xor", "2", "epoch-10.json")
	if sink.Path(s) != path {
		t.Fatalf("expected path %s, got %s", path, sink.Path(s))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var sj snapshotJSON
	if err := json.Unmarshal(data, &sj); err != nil {
		t.Fatal(err)
	}
	if sj.Epoch != 10 || sj.Repetition != 2 || sj.JobUUID != s.Job.UUID().String() || len(sj.Layers) != 1 {
		t.Fatalf("unexpected snapshot %+v", sj)
	}
	w := sj.Layers[0].Params["W"]
	if sj.Layers[0].Kind != "dense" || len(w.Shape) != 2 || w.Data[3] != 4 {
		t.Fatalf("unexpected layer %+v", sj.Layers[0])
	}
}

func TestComponent(t *testing.T) {
	for in, want := range map[string]string{"a/b": "a_b", "..": "_..", "": "_", "ok": "ok"} {
		if got := component(in); got != want {
			t.Fatalf("component(%q) = %q, expected %q", in, got, want)
		}
	}
}

type countSink struct {
	mux  sync.Mutex
	seen map[int]bool
}

func (c *countSink) Write(s *openpb.Snapshot) error {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.seen[s.Epoch] = true
	if s.Epoch%2 == 0 {
		return errors.New("even epochs fail")
	}
	return nil
}

func TestAsync(t *testing.T) {
	c := &countSink{seen: make(map[int]bool)}
	a := NewAsync(c, 4, nil)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for e := 0; e < 25; e++ {
				a.Write(snap(1, g*25+e))
			}
		}(g)
	}
	wg.Wait()

	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	a.Close()

	if len(c.seen) != 100 {
		t.Fatalf("expected 100 snapshots written, got %d", len(c.seen))
	}
}
