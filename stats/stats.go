// Package stats implements the per-category counters and end-of-run
// reduction CODES models keep locally on every LP and fold together at
// teardown (torus.c's mn_stats / torus_report_stats), plus an optional
// Prometheus exposition of the same numbers.
package stats

// Counters is one category's running statistics - a direct port of CODES's
// mn_stats struct.
type Counters struct {
	SendCount   int64
	SendBytes   int64
	SendTime    float64
	RecvCount   int64
	RecvBytes   int64
	RecvTime    float64
	MaxEventSize int
}

// Table tracks Counters per communication category, lazily creating an
// entry on first use - mirroring model_net_find_stats, which is handed a
// fixed-size CATEGORY_MAX array in CODES but is naturally a map in Go.
type Table struct {
	byCategory map[string]*Counters
}

// NewTable creates an empty stats table.
func NewTable() *Table {
	return &Table{byCategory: make(map[string]*Counters)}
}

// Find returns the Counters for category, creating a zero-valued entry if
// this is the first reference to it.
func (t *Table) Find(category string) *Counters {
	c, ok := t.byCategory[category]
	if !ok {
		c = &Counters{}
		t.byCategory[category] = c
	}
	return c
}

// Report is one LP's contribution to the end-of-run reduction: finished
// packet count, total hops traversed, summed latency, and the maximum
// single-packet latency observed.
type Report struct {
	FinishedPackets int64
	TotalHops       int64
	TotalLatency    float64
	MaxLatency      float64
}

// GlobalReduce folds many per-LP Reports into one, the in-process
// equivalent of torus_report_stats's MPI_Reduce calls (sum for
// finished-packets/hops/latency, max for max-latency) - the parent
// distributed kernel that would run this reduction across MPI ranks is out
// of scope, so this module performs the identical fold locally over
// whatever Reports it is given.
func GlobalReduce(reports []Report) Report {
	var out Report
	for _, r := range reports {
		out.FinishedPackets += r.FinishedPackets
		out.TotalHops += r.TotalHops
		out.TotalLatency += r.TotalLatency
		if r.MaxLatency > out.MaxLatency {
			out.MaxLatency = r.MaxLatency
		}
	}
	return out
}

// AverageHops returns the mean hop count across finished packets, 0 if none
// finished.
func (r Report) AverageHops() float64 {
	if r.FinishedPackets == 0 {
		return 0
	}
	return float64(r.TotalHops) / float64(r.FinishedPackets)
}

// AverageLatency returns the mean packet latency across finished packets, 0
// if none finished.
func (r Report) AverageLatency() float64 {
	if r.FinishedPackets == 0 {
		return 0
	}
	return r.TotalLatency / float64(r.FinishedPackets)
}
