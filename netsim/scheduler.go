package netsim

import (
	"fmt"

	"github.com/modelnet-sim/modelnet/config"
	"github.com/modelnet-sim/modelnet/kernel"
)

// SchedAddRC is the scheduler-private reverse-state slot for one Add call.
// Add always appends to the FIFO tail, so reversing it is just popping the
// tail - no scalar beyond "an add happened" needs saving.
type SchedAddRC struct {
	added bool
}

// queuedRequest is one outstanding request plus how much of it has already
// been turned into dispatched packets.
type queuedRequest struct {
	req    *Request
	remote any
	self   any
	sent   uint64
}

// SchedNextRC is the scheduler-private reverse-state slot for one Next
// call: the request a packet was carved from, how much of it was already
// sent before this call, and whether this call drained the request off the
// queue (its last packet). A nil head records that the forward call found
// the queue empty and produced nothing, so there is nothing to undo.
type SchedNextRC struct {
	head       *queuedRequest
	sentBefore uint64
	removed    bool
}

// Scheduler orders outstanding requests and produces the next packet to
// dispatch: add(request) enqueues, next() returns either a scheduled
// timestamp or an end-of-queue signal. Ordering is strict FIFO across adds;
// fairness across categories is not required. A Scheduler is owned
// exclusively by one base LP and is never accessed concurrently.
type Scheduler interface {
	Add(req *Request, remote, self any, rc *SchedAddRC)
	AddRC(rc *SchedAddRC)
	// Next carves the next packet off the head-of-line request and hands
	// it to the registered fabric's PacketEvent, returning the fabric's
	// scheduled timestamp. ok is false when the queue is empty.
	Next(lp kernel.LP, host kernel.Host, rc *SchedNextRC) (offset float64, ok bool)
	NextRC(lp kernel.LP, host kernel.Host, rc *SchedNextRC)
}

// FCFS is the only Scheduler implementation: strict FIFO ordering,
// chunking each request into PacketSize-sized packets one Next() call at a
// time. FCFS_FULL is not a separate implementation - base_read_config
// already forces PacketSize to an effectively unbounded value for that
// scheduler kind (config.hugePacketSize), so the very first Next() call for
// a request consumes it whole and marks it the last packet; the dequeue
// logic is identical either way.
type FCFS struct {
	methods FabricMethods
	queue   []*queuedRequest
}

// NewFCFS creates an empty FCFS scheduler bound to the fabric it will
// dispatch packets into.
func NewFCFS(methods FabricMethods) *FCFS {
	return &FCFS{methods: methods}
}

func (s *FCFS) Add(req *Request, remote, self any, rc *SchedAddRC) {
	s.queue = append(s.queue, &queuedRequest{req: req, remote: remote, self: self})
	rc.added = true
}

func (s *FCFS) AddRC(rc *SchedAddRC) {
	if rc.added && len(s.queue) > 0 {
		s.queue = s.queue[:len(s.queue)-1]
	}
	rc.added = false
}

func (s *FCFS) Next(lp kernel.LP, host kernel.Host, rc *SchedNextRC) (float64, bool) {
	if len(s.queue) == 0 {
		*rc = SchedNextRC{}
		return 0, false
	}
	head := s.queue[0]

	remaining := head.req.MsgSize - head.sent
	packetLen := head.req.PacketSize
	if packetLen > remaining {
		packetLen = remaining
	}
	isLast := head.sent+packetLen >= head.req.MsgSize

	rc.head = head
	rc.sentBefore = head.sent
	head.sent += packetLen

	var remote, self any
	if isLast {
		remote, self = head.remote, head.self
	}

	ts := s.methods.PacketEvent(PacketEventArgs{
		Category:     head.req.Category,
		FinalDest:    head.req.FinalDest,
		PacketSize:   packetLen,
		IsPull:       head.req.IsPull,
		PullSize:     head.req.PullSize,
		RemoteSize:   head.req.RemoteEventSize,
		Remote:       remote,
		SelfSize:     head.req.SelfEventSize,
		Self:         self,
		Sender:       lp,
		IsLastPacket: isLast,
	}, host)

	rc.removed = isLast
	if isLast {
		s.queue = s.queue[1:]
	}
	return ts, true
}

func (s *FCFS) NextRC(lp kernel.LP, host kernel.Host, rc *SchedNextRC) {
	if rc.head == nil {
		// The forward call hit an empty queue: no packet, no PacketEvent.
		return
	}
	s.methods.PacketEventRC(lp, host)
	if rc.removed {
		s.queue = append([]*queuedRequest{rc.head}, s.queue...)
	}
	rc.head.sent = rc.sentBefore
}

// NewScheduler creates a Scheduler for the given kind, bound to methods.
func NewScheduler(kind config.Scheduler, methods FabricMethods) (Scheduler, error) {
	switch kind {
	case config.SchedFCFS, config.SchedFCFSFull:
		return NewFCFS(methods), nil
	default:
		return nil, fmt.Errorf("netsim: unknown scheduler kind %v", kind)
	}
}
