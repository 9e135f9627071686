// Package netsim implements the ModelNet base LP: the demultiplexing and
// scheduling shim every fabric model sits behind, its wrapped-message
// framing, and the fabric method registry concrete fabrics register into.
package netsim

import (
	"github.com/modelnet-sim/modelnet/kernel"
)

// Tag discriminates a WrappedMessage the way model_net_wrap_msg.event_type
// does: NewMsg is a workload-side request entering the scheduler, SchedNext
// drives the base LP's self-scheduling loop, Pass forwards an already-routed
// fabric message straight to the underlying fabric LP.
type Tag int

const (
	TagNewMsg Tag = iota
	TagSchedNext
	TagPass
)

func (t Tag) String() string {
	switch t {
	case TagNewMsg:
		return "NEW_MSG"
	case TagSchedNext:
		return "SCHED_NEXT"
	case TagPass:
		return "PASS"
	default:
		return "UNKNOWN"
	}
}

// baseMagic identifies every wrapped message this module produces, the
// analog of model_net_base_magic := jenkins_hash("model_net_base").
var baseMagic = jenkinsOneAtATime("model_net_base")

// jenkinsOneAtATime is Bob Jenkins' one-at-a-time hash - simpler than the
// lookup3 hash CODES uses (bj_hashlittle2) but the same family, and all
// that matters here is a stable integrity tag.
func jenkinsOneAtATime(s string) uint32 {
	var h uint32
	for i := 0; i < len(s); i++ {
		h += uint32(s[i])
		h += h << 10
		h ^= h >> 6
	}
	h += h << 3
	h ^= h >> 11
	h += h << 15
	return h
}

// Request is the workload-side description of a message to send.
// PacketSize is filled in by the base LP from its configured parameter
// block, not by the caller.
type Request struct {
	Dest            kernel.LPID
	FinalDest       kernel.LPID
	Sender          kernel.LPID
	Category        string
	MsgSize         uint64
	PacketSize      uint64
	IsPull          bool
	PullSize        uint64
	RemoteEventSize int
	SelfEventSize   int
}

// WrappedMessage is the sole on-wire event payload the base LP and its
// fabrics exchange. Go's type system replaces the C union-plus-offset
// trick: Body holds the fabric-specific message, selected by NetID, instead
// of living at a byte offset inside a union.
type WrappedMessage struct {
	Tag   Tag
	Magic uint32
	NetID string

	// Req is populated for TagNewMsg.
	Req *Request

	// Body is populated for TagPass: the fabric-specific message, e.g.
	// *torus.Message.
	Body any

	// SchedAddRC / SchedNextRC are the scheduler's private reverse-state
	// slots, filled in by the base LP before delegating to the scheduler
	// and read back on reverse dispatch.
	SchedAddRC  SchedAddRC
	SchedNextRC SchedNextRC

	// Remote and Self are the trailing opaque payload carried only by the
	// last chunk of the last packet of a message. The C source lays these
	// out as a byte tail at a fixed offset past the message header; Go has
	// no equivalent memory-layout trick worth reproducing, so they travel
	// as opaque values instead, sized for latency accounting by
	// Request.RemoteEventSize/SelfEventSize.
	Remote any
	Self   any
}

// NewPassMessage builds a TagPass wrapped message addressed to a fabric LP,
// the Go analog of model_net_method_event_new.
func NewPassMessage(netID string, body any) *WrappedMessage {
	return &WrappedMessage{Tag: TagPass, Magic: baseMagic, NetID: netID, Body: body}
}

// NewRequestMessage builds a TagNewMsg wrapped message carrying req plus its
// trailing remote/self payloads.
func NewRequestMessage(netID string, req *Request, remote, self any) *WrappedMessage {
	return &WrappedMessage{Tag: TagNewMsg, Magic: baseMagic, NetID: netID, Req: req, Remote: remote, Self: self}
}
