// Package snapshot writes network snapshots to disk, as one JSON file per snapshot.
package snapshot

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"

	openpb "github.com/dakatk/OpenPB"
)

type tensorJSON struct {
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

type layerJSON struct {
	Index  int                   `json:"index"`
	Kind   string                `json:"kind"`
	Params map[string]tensorJSON `json:"params"`
}

type snapshotJSON struct {
	Spec       string      `json:"spec"`
	Dataset    string      `json:"dataset"`
	Repetition int         `json:"repetition"`
	JobUUID    string      `json:"job_uuid"`
	Epoch      int         `json:"epoch"`
	Layers     []layerJSON `json:"layers"`
}

func encode(s *openpb.Snapshot) snapshotJSON {
	sj := snapshotJSON{
		Spec:       s.Job.Spec,
		Dataset:    s.Job.Dataset,
		Repetition: s.Job.Repetition,
		JobUUID:    s.Job.UUID().String(),
		Epoch:      s.Epoch,
	}

	for _, l := range s.Layers {
		lj := layerJSON{Index: l.Index, Kind: l.Kind.String(), Params: make(map[string]tensorJSON)}
		for name, t := range l.Params {
			lj.Params[name] = tensorJSON{Shape: t.Shape(), Data: t.Data()}
		}
		sj.Layers = append(sj.Layers, lj)
	}
	return sj
}

// component makes an id usable as a single path element
func component(id string) string {
	id = strings.NewReplacer("/", "_", "\\", "_").Replace(id)
	if id == "" || id == "." || id == ".." {
		return "_" + id
	}
	return id
}

// DirSink writes each snapshot to Root/<spec>/<dataset>/<repetition>/epoch-<N>.json. It is safe for
// concurrent use.
type DirSink struct {
	Root string
}

// Path returns the file a snapshot is written to.
func (d DirSink) Path(s *openpb.Snapshot) string {
	return filepath.Join(d.Root, component(s.Job.Spec), component(s.Job.Dataset),
		strconv.Itoa(s.Job.Repetition), "epoch-"+strconv.Itoa(s.Epoch)+".json")
}

func (d DirSink) Write(s *openpb.Snapshot) error {
	path := d.Path(s)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create snapshot directory")
	}

	data, err := json.Marshal(encode(s))
	if err != nil {
		return errors.Wrapf(err, "encode snapshot")
	}

	// a partial file is never left at path
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrapf(err, "write snapshot")
	}
	return errors.Wrapf(os.Rename(tmp, path), "write snapshot")
}

// Async passes snapshots to another Sink from a single background goroutine, so that training
// only waits on disk when the buffer is full. Errors from the underlying Sink are logged.
type Async struct {
	sink openpb.Sink
	log  *log.Logger

	queue chan *openpb.Snapshot
	done  chan struct{}

	closeOnce sync.Once
}

// NewAsync starts the goroutine writing to sink, with room for buffer snapshots in flight. logger
// may be nil.
func NewAsync(sink openpb.Sink, buffer int, logger *log.Logger) *Async {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if buffer < 0 {
		buffer = 0
	}

	a := &Async{
		sink:  sink,
		log:   logger,
		queue: make(chan *openpb.Snapshot, buffer),
		done:  make(chan struct{}),
	}

	go func() {
		defer close(a.done)
		for s := range a.queue {
			if err := a.sink.Write(s); err != nil {
				a.log.Printf("job=%s epoch=%d snapshot_error=%q", s.Job, s.Epoch, err)
			}
		}
	}()
	return a
}

// Write queues s. It must not be called after Close.
func (a *Async) Write(s *openpb.Snapshot) error {
	a.queue <- s
	return nil
}

// Close waits for every queued snapshot to be written.
func (a *Async) Close() error {
	a.closeOnce.Do(func() { close(a.queue) })
	<-a.done
	return nil
}
