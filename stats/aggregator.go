package stats

import (
	"sort"
	"sync"

	openpb "github.com/dakatk/OpenPB"
)

// Group identifies the runs that are aggregated together: every repetition of one spec on one
// dataset.
type Group struct {
	Spec    string
	Dataset string
}

// Aggregate is the summary of a Group at some point in time.
type Aggregate struct {
	Group

	// Runs is the total number of results recorded, including failures
	Runs int

	// Accuracy and Epochs only include completed runs
	Accuracy Welford
	Epochs   Welford

	// Failed counts the runs that did not complete. Failures breaks them down by reason.
	Failed   int
	Failures map[string]int
}

type group struct {
	mux sync.Mutex
	agg Aggregate
}

// Aggregator collects RunResults into Aggregates. It is safe for concurrent use: recording into one
// group never waits on another.
type Aggregator struct {
	mux    sync.RWMutex
	groups map[Group]*group
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{groups: make(map[Group]*group)}
}

func (a *Aggregator) get(key Group) *group {
	a.mux.RLock()
	g, ok := a.groups[key]
	a.mux.RUnlock()
	if ok {
		return g
	}

	a.mux.Lock()
	defer a.mux.Unlock()

	if g, ok = a.groups[key]; !ok {
		g = &group{agg: Aggregate{Group: key, Failures: make(map[string]int)}}
		a.groups[key] = g
	}
	return g
}

// Record adds a single result to its group. Completed runs contribute their accuracy and epoch
// count; any other result is counted as a failure under its reason, or its status if it has none.
func (a *Aggregator) Record(r openpb.RunResult) {
	g := a.get(Group{Spec: r.ID.Spec, Dataset: r.ID.Dataset})

	g.mux.Lock()
	defer g.mux.Unlock()

	g.agg.Runs++
	if r.Status == openpb.Completed {
		g.agg.Accuracy.Add(r.Accuracy)
		g.agg.Epochs.Add(float64(r.Epochs))
		return
	}

	reason := r.Reason
	if reason == "" {
		reason = r.Status.String()
	}
	g.agg.Failed++
	g.agg.Failures[reason]++
}

// Results returns a copy of every Aggregate, sorted by spec and then dataset.
func (a *Aggregator) Results() []Aggregate {
	a.mux.RLock()
	gs := make([]*group, 0, len(a.groups))
	for _, g := range a.groups {
		gs = append(gs, g)
	}
	a.mux.RUnlock()

	out := make([]Aggregate, len(gs))
	for i, g := range gs {
		g.mux.Lock()
		out[i] = g.agg
		out[i].Failures = make(map[string]int, len(g.agg.Failures))
		for k, v := range g.agg.Failures {
			out[i].Failures[k] = v
		}
		g.mux.Unlock()
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Spec != out[j].Spec {
			return out[i].Spec < out[j].Spec
		}
		return out[i].Dataset < out[j].Dataset
	})
	return out
}
