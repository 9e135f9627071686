package netsim

import (
	"github.com/modelnet-sim/modelnet/kernel"
	"github.com/modelnet-sim/modelnet/mapping"
	"github.com/modelnet-sim/modelnet/stats"
)

// fakeFabric is a minimal FabricMethods used across netsim's own tests so
// base LP / scheduler behavior can be exercised without depending on the
// torus package.
type fakeFabric struct {
	packetEvents  []PacketEventArgs
	packetEventRC int
	offset        float64
}

type fakeSubState struct{}

func (f *fakeFabric) Setup(any) error { return nil }

func (f *fakeFabric) LPTypes() []LPTypeDescriptor {
	return []LPTypeDescriptor{{Name: "fake_lp", NewState: func() any { return &fakeSubState{} }}}
}

func (f *fakeFabric) Init(any, kernel.LP) error { return nil }

func (f *fakeFabric) Forward(state any, bf *kernel.ReverseBits, body any, lp kernel.LP, host kernel.Host) {
}

func (f *fakeFabric) Reverse(state any, bf *kernel.ReverseBits, body any, lp kernel.LP, host kernel.Host) {
}

func (f *fakeFabric) MsgSize() int { return 64 }

func (f *fakeFabric) FindLocalDevice(m mapping.Service, sender kernel.LPID) (kernel.LPID, error) {
	return sender, nil
}

func (f *fakeFabric) ReportStats(any) stats.Report { return stats.Report{} }

func (f *fakeFabric) PacketEvent(args PacketEventArgs, host kernel.Host) float64 {
	f.packetEvents = append(f.packetEvents, args)
	return f.offset
}

func (f *fakeFabric) PacketEventRC(lp kernel.LP, host kernel.Host) {
	f.packetEventRC++
}
