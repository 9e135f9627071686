package netsim

import (
	"github.com/modelnet-sim/modelnet/kernel"
	"github.com/modelnet-sim/modelnet/mapping"
	"github.com/modelnet-sim/modelnet/stats"
)

// PacketEventArgs is the fabric registry's packet-event entry signature;
// the torus fabric is the reference shape every fabric conforms to.
type PacketEventArgs struct {
	Category     string
	FinalDest    kernel.LPID
	PacketSize   uint64
	IsPull       bool
	PullSize     uint64
	Offset       float64
	RemoteSize   int
	Remote       any
	SelfSize     int
	Self         any
	Sender       kernel.LP
	IsLastPacket bool
}

// LPTypeDescriptor names one LP type a fabric registers and how to
// allocate its zero-initialized state. Fabrics with more than one LP type
// (e.g. dragonfly's terminal + router) return more than one descriptor
// instead of the base LP special-casing a second type.
type LPTypeDescriptor struct {
	Name     string
	NewState func() any
}

// FabricMethods is the registry row a concrete fabric implementation
// provides: setup, per-LP-type descriptors, forward/reverse packet-event
// entry points, message size, local-device lookup, and a stats reporter.
type FabricMethods interface {
	Setup(params any) error
	LPTypes() []LPTypeDescriptor
	// Init performs the fabric's own per-LP initialization against a
	// freshly (zero-value) allocated state, the way model_net_base_lp_init
	// calloc's sub_state and delegates to ns->sub_type->init.
	Init(state any, lp kernel.LP) error
	Forward(state any, bf *kernel.ReverseBits, body any, lp kernel.LP, host kernel.Host)
	Reverse(state any, bf *kernel.ReverseBits, body any, lp kernel.LP, host kernel.Host)
	MsgSize() int
	FindLocalDevice(m mapping.Service, sender kernel.LPID) (kernel.LPID, error)
	ReportStats(state any) stats.Report
	PacketEvent(args PacketEventArgs, host kernel.Host) float64
	PacketEventRC(lp kernel.LP, host kernel.Host)
}

// Registry is the fabric method table, keyed by net-id. Concrete fabric
// packages populate it from an init() function.
var Registry = map[string]FabricMethods{}

// Register adds a fabric's method table under name. Called from fabric
// packages' init() functions.
func Register(name string, methods FabricMethods) {
	Registry[name] = methods
}

// unimplementedFabric is an opaque-handle stub for fabrics other than
// torus: registering a descriptor keeps the registry open to the full
// variant set (simplenet, simplewan, dragonfly, loggp) without a model
// behind each name.
type unimplementedFabric struct {
	name    string
	lpNames []string
}

func (u *unimplementedFabric) Setup(any) error { return nil }

func (u *unimplementedFabric) LPTypes() []LPTypeDescriptor {
	descs := make([]LPTypeDescriptor, len(u.lpNames))
	for i, n := range u.lpNames {
		descs[i] = LPTypeDescriptor{Name: n, NewState: func() any { return struct{}{} }}
	}
	return descs
}

func (u *unimplementedFabric) Init(_ any, _ kernel.LP) error { return nil }

func (u *unimplementedFabric) Forward(_ any, _ *kernel.ReverseBits, _ any, lp kernel.LP, _ kernel.Host) {
	kernel.Fatal(lp, "fabric %q is registered as an opaque handle only and has no implementation", u.name)
}

func (u *unimplementedFabric) Reverse(_ any, _ *kernel.ReverseBits, _ any, lp kernel.LP, _ kernel.Host) {
	kernel.Fatal(lp, "fabric %q is registered as an opaque handle only and has no implementation", u.name)
}

func (u *unimplementedFabric) MsgSize() int { return 0 }

func (u *unimplementedFabric) FindLocalDevice(_ mapping.Service, _ kernel.LPID) (kernel.LPID, error) {
	return 0, nil
}

func (u *unimplementedFabric) ReportStats(any) stats.Report { return stats.Report{} }

func (u *unimplementedFabric) PacketEvent(_ PacketEventArgs, _ kernel.Host) float64 { return 0 }

func (u *unimplementedFabric) PacketEventRC(_ kernel.LP, _ kernel.Host) {}

// RegisterOpaque registers a fabric name from the closed variant set for
// which this module provides only method-table shape, not behavior.
func RegisterOpaque(name string, lpTypeNames ...string) {
	Register(name, &unimplementedFabric{name: name, lpNames: lpTypeNames})
}
