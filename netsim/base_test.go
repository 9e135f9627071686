package netsim

import (
	"testing"

	"github.com/modelnet-sim/modelnet/config"
	"github.com/modelnet-sim/modelnet/internal/testutil"
	"github.com/modelnet-sim/modelnet/kernel"
)

func TestBaseMagic_WrappedMessageCarriesIt(t *testing.T) {
	m := NewPassMessage("x", nil)
	if m.Magic != baseMagic {
		t.Fatalf("Magic = %d, want baseMagic %d", m.Magic, baseMagic)
	}
	if m.Tag != TagPass {
		t.Fatalf("Tag = %v, want TagPass", m.Tag)
	}

	req := NewRequestMessage("x", &Request{}, "r", "s")
	if req.Tag != TagNewMsg || req.Magic != baseMagic {
		t.Fatalf("NewRequestMessage did not stamp TagNewMsg/baseMagic: %+v", req)
	}
}

func TestTag_String(t *testing.T) {
	cases := map[Tag]string{TagNewMsg: "NEW_MSG", TagSchedNext: "SCHED_NEXT", TagPass: "PASS"}
	for tag, want := range cases {
		if got := tag.String(); got != want {
			t.Errorf("Tag(%d).String() = %q, want %q", tag, got, want)
		}
	}
}

func TestBaseState_Forward_BadMagic_IsFatal(t *testing.T) {
	captured := testutil.CaptureFatal(t)

	Registry["fake-magic-test"] = &fakeFabric{}
	bs, err := NewBaseLP(1, 1, "fake-magic-test", "", config.Empty())
	if err != nil {
		t.Fatalf("NewBaseLP: %v", err)
	}

	e := kernel.NewEngine(0.01)
	e.Register(bs)
	var bf kernel.ReverseBits
	bs.Forward(&bf, &WrappedMessage{Tag: TagPass, Magic: 0xDEAD}, bs, e)

	if len(*captured) != 1 {
		t.Fatalf("expected one fatal message for bad magic, got %v", *captured)
	}
}

func TestBaseState_SchedulerLoop_OneSchedNextPerBatchThenDrains(t *testing.T) {
	fab := &fakeFabric{offset: 1.0}
	Registry["fake-sched-loop"] = fab

	bs, err := NewBaseLP(10, 1, "fake-sched-loop", "", config.Empty())
	if err != nil {
		t.Fatalf("NewBaseLP: %v", err)
	}

	e := kernel.NewEngine(0.01)
	e.Register(bs)

	for i := 0; i < 3; i++ {
		req := &Request{Dest: 10, FinalDest: 10, Sender: 10, Category: "cat", MsgSize: 8}
		e.Send(bs, bs.GID(), 0, NewRequestMessage("fake-sched-loop", req, nil, nil))
	}
	if bs.InSchedLoop {
		t.Fatal("InSchedLoop should start false")
	}

	e.Run()

	if bs.InSchedLoop {
		t.Fatal("InSchedLoop should return to false once the queue drains")
	}
	if len(fab.packetEvents) != 3 {
		t.Fatalf("PacketEvent called %d times, want 3 (one per submitted request)", len(fab.packetEvents))
	}
}

func TestBaseState_ForwardThenReverse_NewMsg_IsIdentity(t *testing.T) {
	fab := &fakeFabric{offset: 1.0}
	Registry["fake-rc-newmsg"] = fab

	bs, err := NewBaseLP(20, 1, "fake-rc-newmsg", "", config.Empty())
	if err != nil {
		t.Fatalf("NewBaseLP: %v", err)
	}
	e := kernel.NewEngine(0.01)
	e.Register(bs)

	req := &Request{Dest: 20, FinalDest: 20, Sender: 20, Category: "cat", MsgSize: 8}
	m := NewRequestMessage("fake-rc-newmsg", req, nil, nil)

	var bf kernel.ReverseBits
	bs.Forward(&bf, m, bs, e)
	if !bs.InSchedLoop {
		t.Fatal("InSchedLoop should be true after the first NEW_MSG")
	}

	bs.Reverse(&bf, m, bs, e)
	if bs.InSchedLoop {
		t.Fatal("InSchedLoop should be restored to false after reversing the only NEW_MSG")
	}
	if bf.C0 || bf.C1 || bf.C2 || bf.C3 {
		t.Fatalf("bitfield not reset after Reverse: %+v", bf)
	}
}
