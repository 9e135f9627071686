package kernel

import "container/heap"

// scheduled is one entry in the engine's priority queue: a payload destined
// for an LP at a future timestamp. Seq breaks timestamp ties in FIFO
// submission order, giving the reference engine deterministic tie-breaking
// since tie-breaking is otherwise left to the host engine; FIFO-by-submission
// is the simplest deterministic choice for a serial reference kernel.
type scheduled struct {
	dest    LPID
	time    float64
	seq     uint64
	payload any
}

// eventQueue is a container/heap priority queue ordered by (time, seq),
// with Len/Less/Swap/Push/Pop satisfying heap.Interface.
type eventQueue []*scheduled

func (q eventQueue) Len() int { return len(q) }
func (q eventQueue) Less(i, j int) bool {
	if q[i].time != q[j].time {
		return q[i].time < q[j].time
	}
	return q[i].seq < q[j].seq
}
func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *eventQueue) Push(x any)   { *q = append(*q, x.(*scheduled)) }
func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// dispatched records one processed entry so Rollback can replay reverse
// handlers in exact reverse order of forward execution.
type dispatched struct {
	dest    LPID
	time    float64
	seq     uint64
	bf      ReverseBits
	payload any
}

// Engine is a single-process, single-goroutine reference Host. It is a
// conformance and test harness for handlers written against kernel.Host,
// not a redesign of a distributed PDES kernel: there is no MPI, no
// optimistic parallel execution, and GVT is simply "current engine time".
type Engine struct {
	actors map[LPID]Actor
	queue  eventQueue
	seq    uint64
	now    float64

	history []dispatched

	localLatency map[LPID]*RandStream
	localMean    float64
}

// NewEngine creates an empty reference engine. localLatencyMean sets the
// mean of the exponential draw used for LocalLatency; CODES models use
// small constants like 0.01, so any caller wanting that exact flavor
// should pass a similarly small value.
func NewEngine(localLatencyMean float64) *Engine {
	return &Engine{
		actors:       make(map[LPID]Actor),
		localLatency: make(map[LPID]*RandStream),
		localMean:    localLatencyMean,
	}
}

// Register adds an actor the engine can deliver events to. Each actor's GID
// must be unique.
func (e *Engine) Register(a Actor) {
	e.actors[a.GID()] = a
	e.localLatency[a.GID()] = NewRandStream(int64(a.GID())*2 + 1)
}

func (e *Engine) Now(_ LP) float64 { return e.now }

func (e *Engine) Send(_ LP, dest LPID, offset float64, payload any) {
	if offset < 0 {
		Fatal(nil, "negative event offset %f scheduled for lp %d", offset, dest)
	}
	e.seq++
	heap.Push(&e.queue, &scheduled{dest: dest, time: e.now + offset, seq: e.seq, payload: payload})
}

func (e *Engine) SendSelf(lp LP, offset float64, payload any) {
	e.Send(lp, lp.GID(), offset, payload)
}

func (e *Engine) LocalLatency(lp LP) float64 {
	rs := e.localLatency[lp.GID()]
	return rs.Exponential(e.localMean)
}

func (e *Engine) LocalLatencyReverse(lp LP) {
	e.localLatency[lp.GID()].ReverseUnif()
}

// Step dispatches the single earliest-timestamp event, if any, returning
// false when the queue is empty.
func (e *Engine) Step() bool {
	if e.queue.Len() == 0 {
		return false
	}
	item := heap.Pop(&e.queue).(*scheduled)
	actor, ok := e.actors[item.dest]
	if !ok {
		Fatal(nil, "event delivered to unregistered lp %d", item.dest)
		return true
	}
	e.now = item.time

	var bf ReverseBits
	actor.Forward(&bf, item.payload, actor, e)
	e.history = append(e.history, dispatched{
		dest: item.dest, time: item.time, seq: item.seq, bf: bf, payload: item.payload,
	})
	return true
}

// Run drains the queue, dispatching events in timestamp order until empty.
func (e *Engine) Run() {
	for e.Step() {
	}
}

// RunUntil drains the queue until it is empty or GVT would exceed horizon.
func (e *Engine) RunUntil(horizon float64) {
	for e.queue.Len() > 0 && e.queue[0].time <= horizon {
		e.Step()
	}
}

// GVT returns the engine's current global virtual time.
func (e *Engine) GVT() float64 { return e.now }

// Processed returns the number of events dispatched so far.
func (e *Engine) Processed() int { return len(e.history) }

// Rollback replays reverse handlers for every dispatched event strictly
// after toGVT, in exact reverse order of forward dispatch, and restores
// engine time to toGVT. This is what makes the "drive N events then reverse
// them" reverse-computation property testable without a real
// conservative/optimistic rollback driver.
func (e *Engine) Rollback(toGVT float64) {
	for len(e.history) > 0 {
		last := e.history[len(e.history)-1]
		if last.time <= toGVT {
			break
		}
		e.history = e.history[:len(e.history)-1]
		actor := e.actors[last.dest]
		e.now = last.time
		bf := last.bf
		actor.Reverse(&bf, last.payload, actor, e)
	}
	e.now = toGVT
}

// RollbackAll reverses every event this engine has dispatched, restoring
// it to its state at time zero.
func (e *Engine) RollbackAll() {
	e.Rollback(0)
}
