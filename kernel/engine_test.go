package kernel

import "testing"

// fakeLP is a minimal Actor whose Forward/Reverse record received calls, used
// to exercise Engine's dispatch order and rollback without any netsim/torus
// dependency.
type fakeLP struct {
	gid   LPID
	rng   *RandStream
	log   *[]string
	delta float64 // state mutated by Forward, undone by Reverse
}

func newFakeLP(gid LPID, log *[]string) *fakeLP {
	return &fakeLP{gid: gid, rng: NewRandStream(int64(gid)), log: log}
}

func (f *fakeLP) GID() LPID        { return f.gid }
func (f *fakeLP) RNG() *RandStream { return f.rng }

func (f *fakeLP) Forward(bf *ReverseBits, payload any, lp LP, host Host) {
	amount := payload.(float64)
	f.delta += amount
	bf.C0 = true
	*f.log = append(*f.log, "fwd")
}

func (f *fakeLP) Reverse(bf *ReverseBits, payload any, lp LP, host Host) {
	amount := payload.(float64)
	f.delta -= amount
	*f.log = append(*f.log, "rev")
}

func TestEngine_StepDispatchesInTimestampOrder(t *testing.T) {
	e := NewEngine(0.01)
	var log []string
	a := newFakeLP(1, &log)
	e.Register(a)

	e.Send(a, 1, 5, 1.0)
	e.Send(a, 1, 1, 2.0)
	e.Run()

	if a.delta != 3.0 {
		t.Fatalf("delta = %v, want 3.0", a.delta)
	}
	if e.GVT() != 5 {
		t.Fatalf("GVT = %v, want 5", e.GVT())
	}
}

func TestEngine_RollbackUndoesEventsInReverseOrder(t *testing.T) {
	e := NewEngine(0.01)
	var log []string
	a := newFakeLP(1, &log)
	e.Register(a)

	e.Send(a, 1, 1, 10.0)
	e.Send(a, 1, 2, 20.0)
	e.Send(a, 1, 3, 30.0)
	e.Run()

	if a.delta != 60.0 {
		t.Fatalf("delta after forward = %v, want 60", a.delta)
	}

	e.RollbackAll()

	if a.delta != 0 {
		t.Fatalf("delta after full rollback = %v, want 0", a.delta)
	}
	want := []string{"fwd", "fwd", "fwd", "rev", "rev", "rev"}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("log[%d] = %q, want %q (full log %v)", i, log[i], want[i], log)
		}
	}
}

func TestEngine_RollbackToIntermediateGVT(t *testing.T) {
	e := NewEngine(0.01)
	var log []string
	a := newFakeLP(1, &log)
	e.Register(a)

	e.Send(a, 1, 1, 10.0)
	e.Send(a, 1, 2, 20.0)
	e.Run()

	e.Rollback(1)

	if a.delta != 10.0 {
		t.Fatalf("delta after partial rollback = %v, want 10", a.delta)
	}
	if e.GVT() != 1 {
		t.Fatalf("GVT after partial rollback = %v, want 1", e.GVT())
	}
}

func TestRandStream_ReverseUnifRestoresExactPosition(t *testing.T) {
	rs := NewRandStream(42)
	first := rs.Exponential(5)
	second := rs.Exponential(5)
	if rs.Position() != 2 {
		t.Fatalf("position = %d, want 2", rs.Position())
	}

	rs.ReverseUnif()
	rs.ReverseUnif()
	if rs.Position() != 0 {
		t.Fatalf("position after two reversals = %d, want 0", rs.Position())
	}

	gotFirst := rs.Exponential(5)
	gotSecond := rs.Exponential(5)
	if gotFirst != first || gotSecond != second {
		t.Fatalf("replay mismatch: got (%v,%v), want (%v,%v)", gotFirst, gotSecond, first, second)
	}
}

func TestRandStream_ReverseUnifPanicsWithNoDraws(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic reversing an empty stream")
		}
	}()
	NewRandStream(1).ReverseUnif()
}

func TestReverseBits_ResetClearsAllFlags(t *testing.T) {
	bf := ReverseBits{C0: true, C1: true, C2: true, C3: true}
	bf.Reset()
	if bf.C0 || bf.C1 || bf.C2 || bf.C3 {
		t.Fatalf("bits not cleared: %+v", bf)
	}
}

func TestEngine_NegativeOffsetIsFatal(t *testing.T) {
	var captured []string
	prev := FatalHandler
	FatalHandler = func(msg string) { captured = append(captured, msg) }
	defer func() { FatalHandler = prev }()

	e := NewEngine(0.01)
	var log []string
	a := newFakeLP(1, &log)
	e.Register(a)

	e.Send(a, 1, -1, 1.0)

	if len(captured) != 1 {
		t.Fatalf("expected one fatal message, got %v", captured)
	}
}
