package torus

import "github.com/modelnet-sim/modelnet/kernel"

// ChunkEvent discriminates a torus Message the way nodes_message.type does.
type ChunkEvent int

const (
	Generate ChunkEvent = iota
	Send
	Arrival
	Credit
)

func (e ChunkEvent) String() string {
	switch e {
	case Generate:
		return "GENERATE"
	case Send:
		return "SEND"
	case Arrival:
		return "ARRIVAL"
	case Credit:
		return "CREDIT"
	default:
		return "UNKNOWN"
	}
}

// Message is the torus fabric's wire body, carried as the Body of a
// netsim.WrappedMessage tagged PASS.
type Message struct {
	Type ChunkEvent

	Category        string
	PacketID        uint64
	ChunkID         int
	NumChunks       int
	HopCount        int
	PacketSize      uint64
	TravelStartTime float64

	IsPull   bool
	PullSize uint64

	// DestLP is the final torus-level hop (the destination node's
	// co-located modelnet_torus LP), fixed for the packet's whole
	// journey. FinalDestGID is where remote/self payloads are ultimately
	// delivered, which may be a different LP entirely (e.g. a server LP
	// co-located with DestLP).
	DestLP       kernel.LPID
	FinalDestGID kernel.LPID
	// SenderLP is "whoever handed me this chunk last": the original
	// producer at the first hop, then overwritten to the sending node's
	// own gid on every subsequent SEND, so credit_send always has the
	// right upstream target.
	SenderLP kernel.LPID

	// SourceDim/SourceDirection name the link this chunk is traveling (or
	// just arrived) on; NextStop is the hop a SEND is routing toward.
	SourceDim       int
	SourceDirection int
	NextStop        kernel.LPID

	// SavedSrcDim/SavedSrcDir/SavedAvailableTime are reverse-handler
	// scratch, filled in by the forward handler that needs them undone.
	// SavedMaxLatency is kept separate from SavedAvailableTime: the C
	// source reuses one scratch field for both credit_send's saved
	// availability time and the finishing-hop's saved max latency, and
	// since credit_send always runs first within ARRIVAL, the later
	// max-latency save overwrites credit_send's snapshot, so the reverse
	// would restore the credit link's availability time from the old max
	// latency. A dedicated field is what an exact reverse actually requires.
	SavedSrcDim        int
	SavedSrcDir        int
	SavedAvailableTime float64
	SavedMaxLatency    float64

	RemoteEventSize int
	Remote          any
	SelfEventSize   int
	Self            any
}

// dirIndex packs (dim, dir) into the flat 2*n_dims index torus.c uses to
// index buffer/next_link_available_time/next_credit_available_time: dir +
// dim*2.
func dirIndex(dim, dir int) int {
	return dir + dim*2
}
