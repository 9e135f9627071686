package netsim

import (
	"testing"

	"github.com/modelnet-sim/modelnet/kernel"
)

func TestFCFS_AddThenNext_PacketHeaderMatchesRequest(t *testing.T) {
	fab := &fakeFabric{offset: 1.5}
	s := NewFCFS(fab)

	req := &Request{
		Dest: 2, FinalDest: 2, Sender: 1, Category: "cat-a",
		MsgSize: 100, PacketSize: 512, RemoteEventSize: 10, SelfEventSize: 20,
	}
	var addRC SchedAddRC
	s.Add(req, "remote-payload", "self-payload", &addRC)
	if !addRC.added {
		t.Fatal("addRC.added = false, want true")
	}

	e := kernel.NewEngine(0.01)
	var nextRC SchedNextRC
	offset, ok := s.Next(nil, e, &nextRC)
	if !ok {
		t.Fatal("Next returned ok=false for a non-empty queue")
	}
	if offset != 1.5 {
		t.Fatalf("offset = %v, want fabric's returned 1.5", offset)
	}
	if len(fab.packetEvents) != 1 {
		t.Fatalf("PacketEvent called %d times, want 1", len(fab.packetEvents))
	}

	got := fab.packetEvents[0]
	if got.Category != req.Category || got.FinalDest != req.FinalDest {
		t.Fatalf("packet args = %+v, want category/dest to match request %+v", got, req)
	}
	if got.PacketSize != req.MsgSize {
		t.Fatalf("packet size = %d, want whole message %d (message smaller than packet size)", got.PacketSize, req.MsgSize)
	}
	if !got.IsLastPacket {
		t.Fatal("IsLastPacket = false, want true for a single-packet message")
	}
	if got.Remote != "remote-payload" || got.Self != "self-payload" {
		t.Fatalf("trailing payloads = (%v,%v), want (remote-payload,self-payload) on the last packet", got.Remote, got.Self)
	}
}

func TestFCFS_MultiPacketMessage_OnlyLastPacketCarriesPayload(t *testing.T) {
	fab := &fakeFabric{}
	s := NewFCFS(fab)

	req := &Request{Category: "x", MsgSize: 1000, PacketSize: 400, RemoteEventSize: 8, SelfEventSize: 8}
	var addRC SchedAddRC
	s.Add(req, "remote", "self", &addRC)

	e := kernel.NewEngine(0.01)
	for i := 0; i < 3; i++ {
		var rc SchedNextRC
		_, ok := s.Next(nil, e, &rc)
		if !ok {
			t.Fatalf("Next() #%d returned ok=false, expected 3 packets for a 1000-byte message at 400-byte packets", i)
		}
	}
	var drained SchedNextRC
	if _, ok := s.Next(nil, e, &drained); ok {
		t.Fatal("Next() after draining the request should return ok=false")
	}

	if len(fab.packetEvents) != 3 {
		t.Fatalf("packet count = %d, want 3 (ceil(1000/400))", len(fab.packetEvents))
	}
	for i, pe := range fab.packetEvents {
		wantLast := i == 2
		if pe.IsLastPacket != wantLast {
			t.Errorf("packet %d IsLastPacket = %v, want %v", i, pe.IsLastPacket, wantLast)
		}
		if !wantLast && (pe.Remote != nil || pe.Self != nil) {
			t.Errorf("packet %d carries trailing payload %v/%v, want nil on non-final packets", i, pe.Remote, pe.Self)
		}
	}
	total := fab.packetEvents[0].PacketSize + fab.packetEvents[1].PacketSize + fab.packetEvents[2].PacketSize
	if total != req.MsgSize {
		t.Fatalf("summed packet sizes = %d, want message size %d", total, req.MsgSize)
	}
}

func TestFCFS_AddRC_UndoesAdd(t *testing.T) {
	fab := &fakeFabric{}
	s := NewFCFS(fab)
	req := &Request{Category: "x", MsgSize: 10, PacketSize: 10}

	var rc SchedAddRC
	s.Add(req, nil, nil, &rc)
	if len(s.queue) != 1 {
		t.Fatalf("queue len = %d, want 1 after add", len(s.queue))
	}
	s.AddRC(&rc)
	if len(s.queue) != 0 {
		t.Fatalf("queue len = %d, want 0 after AddRC", len(s.queue))
	}
}

func TestFCFS_NextRC_RestoresQueueAndSentState(t *testing.T) {
	fab := &fakeFabric{}
	s := NewFCFS(fab)
	req := &Request{Category: "x", MsgSize: 1000, PacketSize: 400}
	var addRC SchedAddRC
	s.Add(req, nil, nil, &addRC)

	e := kernel.NewEngine(0.01)
	var rc SchedNextRC
	if _, ok := s.Next(nil, e, &rc); !ok {
		t.Fatal("Next failed")
	}
	if s.queue[0].sent != 400 {
		t.Fatalf("sent = %d, want 400 after first Next", s.queue[0].sent)
	}

	s.NextRC(nil, e, &rc)
	if s.queue[0].sent != 0 {
		t.Fatalf("sent after NextRC = %d, want 0 (fully undone)", s.queue[0].sent)
	}
	if fab.packetEventRC != 1 {
		t.Fatalf("PacketEventRC called %d times, want 1", fab.packetEventRC)
	}
}

func TestFCFS_NextRC_AfterEmptyQueueNext_IsNoOp(t *testing.T) {
	fab := &fakeFabric{}
	s := NewFCFS(fab)

	e := kernel.NewEngine(0.01)
	var rc SchedNextRC
	if _, ok := s.Next(nil, e, &rc); ok {
		t.Fatal("Next on an empty queue returned ok=true")
	}

	// Reversing the drain signal must not touch the fabric or the queue:
	// nothing happened forward, so nothing may happen in reverse.
	s.NextRC(nil, e, &rc)
	if fab.packetEventRC != 0 {
		t.Fatalf("PacketEventRC called %d times reversing an empty-queue Next, want 0", fab.packetEventRC)
	}
	if len(s.queue) != 0 {
		t.Fatalf("queue len = %d after reversing an empty-queue Next, want 0", len(s.queue))
	}
}

func TestFCFS_NextRC_AfterLastPacket_ReinsertsRequestAtHead(t *testing.T) {
	fab := &fakeFabric{}
	s := NewFCFS(fab)
	req := &Request{Category: "x", MsgSize: 10, PacketSize: 400}
	var addRC SchedAddRC
	s.Add(req, nil, nil, &addRC)

	e := kernel.NewEngine(0.01)
	var rc SchedNextRC
	if _, ok := s.Next(nil, e, &rc); !ok {
		t.Fatal("Next failed")
	}
	if len(s.queue) != 0 {
		t.Fatalf("queue len = %d, want 0 (last packet dequeues the request)", len(s.queue))
	}

	s.NextRC(nil, e, &rc)
	if len(s.queue) != 1 {
		t.Fatalf("queue len after NextRC = %d, want 1 (request restored)", len(s.queue))
	}
	if s.queue[0].req != req {
		t.Fatal("NextRC restored a different request than the one removed")
	}
}
