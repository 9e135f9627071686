package netsim

import (
	"fmt"

	"github.com/modelnet-sim/modelnet/config"
	"github.com/modelnet-sim/modelnet/kernel"
)

// BaseState is the ModelNet base LP's per-instance state: which fabric it
// demultiplexes to, whether its self-driven dispatch loop is currently
// running, its owned scheduler, the resolved parameter block, and the
// fabric's own opaque sub-LP state.
type BaseState struct {
	gid kernel.LPID
	rng *kernel.RandStream

	NetID       string
	InSchedLoop bool
	Sched       Scheduler
	Params      config.BaseParams
	Methods     FabricMethods
	SubState    any
}

// NewBaseLP resolves the fabric named netID from Registry, builds the
// scheduler and parameter block for annotation anno, allocates and
// initializes the fabric's zero-valued sub-LP state, and returns a ready
// BaseState - the Go shape of model_net_base_lp_init. The sub-LP state
// always comes from the fabric's first LP-type descriptor; further
// descriptors (such as dragonfly's router) are not selected here.
func NewBaseLP(gid kernel.LPID, seed int64, netID, anno string, loader *config.Loader) (*BaseState, error) {
	methods, ok := Registry[netID]
	if !ok {
		return nil, fmt.Errorf("netsim: no fabric registered under net id %q", netID)
	}
	params, err := loader.ResolveBaseParams(anno)
	if err != nil {
		return nil, err
	}
	sched, err := NewScheduler(params.SchedulerKind, methods)
	if err != nil {
		return nil, err
	}
	types := methods.LPTypes()
	if len(types) == 0 {
		return nil, fmt.Errorf("netsim: fabric %q declares no LP types", netID)
	}

	bs := &BaseState{
		gid:     gid,
		rng:     kernel.NewRandStream(seed),
		NetID:   netID,
		Sched:   sched,
		Params:  params,
		Methods: methods,
	}
	// NOTE: some fabrics rely on their state arriving zero-initialized
	// (e.g. stats tables keyed lazily) - NewState() must return a zero
	// value, never a pre-populated one.
	bs.SubState = types[0].NewState()
	if err := methods.Init(bs.SubState, bs); err != nil {
		return nil, fmt.Errorf("netsim: initializing fabric %q: %w", netID, err)
	}
	return bs, nil
}

func (s *BaseState) GID() kernel.LPID        { return s.gid }
func (s *BaseState) RNG() *kernel.RandStream { return s.rng }

// Forward dispatches a delivered WrappedMessage by tag. bitfield c0 marks "we initiated a SCHED_NEXT event" on a NEW_MSG arrival,
// or "scheduler loop is finished" on a SCHED_NEXT arrival - mutually
// exclusive uses of the same bit, since NEW_MSG and SCHED_NEXT are never
// dispatched through the same ReverseBits.
func (s *BaseState) Forward(bf *kernel.ReverseBits, payload any, lp kernel.LP, host kernel.Host) {
	m, ok := payload.(*WrappedMessage)
	if !ok {
		kernel.Fatal(lp, "netsim: base LP received non-WrappedMessage payload %T", payload)
		return
	}
	if m.Magic != baseMagic {
		kernel.Fatal(lp, "netsim: bad magic on delivered message (tag %v)", m.Tag)
		return
	}

	switch m.Tag {
	case TagNewMsg:
		s.handleNewMsg(bf, m, lp, host)
	case TagSchedNext:
		s.handleSchedNext(bf, m, lp, host)
	case TagPass:
		s.Methods.Forward(s.SubState, bf, m.Body, lp, host)
	default:
		kernel.Fatal(lp, "netsim: base LP event type not known: %v", m.Tag)
	}
}

// Reverse mirrors Forward exactly, then zeroes the bitfield: the kernel may
// reuse the ReverseBits slot on replay.
func (s *BaseState) Reverse(bf *kernel.ReverseBits, payload any, lp kernel.LP, host kernel.Host) {
	m, ok := payload.(*WrappedMessage)
	if !ok {
		kernel.Fatal(lp, "netsim: base LP received non-WrappedMessage payload %T", payload)
		return
	}

	switch m.Tag {
	case TagNewMsg:
		s.handleNewMsgRC(bf, m, lp, host)
	case TagSchedNext:
		s.handleSchedNextRC(bf, m, lp, host)
	case TagPass:
		s.Methods.Reverse(s.SubState, bf, m.Body, lp, host)
	default:
		kernel.Fatal(lp, "netsim: base LP event type not known: %v", m.Tag)
	}

	bf.Reset()
}

// handleNewMsg enqueues the incoming request into the scheduler and, if the
// dispatch loop is idle, kicks it off with a self-targeted SCHED_NEXT.
//
// bitfield used: c0 - we initiated a SCHED_NEXT event.
func (s *BaseState) handleNewMsg(bf *kernel.ReverseBits, m *WrappedMessage, lp kernel.LP, host kernel.Host) {
	req := m.Req
	req.PacketSize = s.Params.PacketSize

	s.Sched.Add(req, m.Remote, m.Self, &m.SchedAddRC)

	if !s.InSchedLoop {
		bf.C0 = true
		latency := host.LocalLatency(lp)
		host.SendSelf(lp, latency, &WrappedMessage{Tag: TagSchedNext, Magic: baseMagic, NetID: s.NetID})
		s.InSchedLoop = true
	}
}

func (s *BaseState) handleNewMsgRC(bf *kernel.ReverseBits, m *WrappedMessage, lp kernel.LP, host kernel.Host) {
	s.Sched.AddRC(&m.SchedAddRC)
	if bf.C0 {
		host.LocalLatencyReverse(lp)
		s.InSchedLoop = false
	}
}

// handleSchedNext asks the scheduler for the next packet. If the queue is
// drained, the loop stops; otherwise it re-chains itself.
//
// bitfield used: c0 - scheduler loop is finished (queue drained).
func (s *BaseState) handleSchedNext(bf *kernel.ReverseBits, m *WrappedMessage, lp kernel.LP, host kernel.Host) {
	offset, ok := s.Sched.Next(lp, host, &m.SchedNextRC)
	if !ok {
		bf.C0 = true
		s.InSchedLoop = false
		return
	}
	latency := host.LocalLatency(lp)
	host.SendSelf(lp, offset+latency, &WrappedMessage{Tag: TagSchedNext, Magic: baseMagic, NetID: s.NetID})
}

func (s *BaseState) handleSchedNextRC(bf *kernel.ReverseBits, m *WrappedMessage, lp kernel.LP, host kernel.Host) {
	s.Sched.NextRC(lp, host, &m.SchedNextRC)
	if bf.C0 {
		s.InSchedLoop = true
	} else {
		host.LocalLatencyReverse(lp)
	}
}
