package torus

import (
	"testing"

	"github.com/modelnet-sim/modelnet/kernel"
	"github.com/modelnet-sim/modelnet/mapping"
)

type testLP struct {
	gid kernel.LPID
	rng *kernel.RandStream
}

func newTestLP(gid kernel.LPID) *testLP {
	return &testLP{gid: gid, rng: kernel.NewRandStream(int64(gid))}
}

func (l *testLP) GID() kernel.LPID        { return l.gid }
func (l *testLP) RNG() *kernel.RandStream { return l.rng }

func gridBlock(typeName string, reps int) []struct {
	TypeName string
	Count    int
	Reps     int
} {
	return []struct {
		TypeName string
		Count    int
		Reps     int
	}{{TypeName: typeName, Count: 1, Reps: reps}}
}

// buildTorus2D4x4 wires a full 16-node 2D torus mapping and returns every
// node's initialized NodeState indexed by flat gid, with LP(x,y) at gid
// y*4+x.
func buildTorus2D4x4(t *testing.T) (*Params, []*NodeState) {
	t.Helper()
	p, err := Setup(RawParams{NDims: 2, DimLength: []int{4, 4}, LinkBandwidth: 1, BufferSize: 8, NumVC: 1, ChunkSize: 32})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	grid := mapping.NewGrid()
	grid.AddGroup("torus_net", gridBlock(lpTypeName, int(p.NLP)))

	states := make([]*NodeState, p.NLP)
	for gid := uint64(0); gid < p.NLP; gid++ {
		s := newNodeState()
		if err := s.init(p, grid, newTestLP(gid)); err != nil {
			t.Fatalf("init(gid=%d): %v", gid, err)
		}
		states[gid] = s
	}
	return p, states
}

func TestNodeState_Init_DecodesOwnCoordinates(t *testing.T) {
	_, states := buildTorus2D4x4(t)
	// gid 10 = encodeCoords([2,2]) = 1*2 + 4*2 = 10
	s := states[10]
	if s.dimPosition[0] != 2 || s.dimPosition[1] != 2 {
		t.Fatalf("dimPosition = %v, want [2,2]", s.dimPosition)
	}
}

func TestNodeState_Init_NeighborsWrapAround(t *testing.T) {
	_, states := buildTorus2D4x4(t)
	// gid 0 = (0,0): minus-neighbor in dim0 wraps to (3,0) = gid 3.
	s := states[0]
	if s.neighborMinusLPID[0] != 3 {
		t.Fatalf("neighborMinusLPID[0] = %d, want 3 (wraparound)", s.neighborMinusLPID[0])
	}
	if s.neighborPlusLPID[0] != 1 {
		t.Fatalf("neighborPlusLPID[0] = %d, want 1", s.neighborPlusLPID[0])
	}
	// dim1 minus-neighbor of (0,0) wraps to (0,3) = gid 12.
	if s.neighborMinusLPID[1] != 12 {
		t.Fatalf("neighborMinusLPID[1] = %d, want 12 (wraparound)", s.neighborMinusLPID[1])
	}
}

func TestNodeState_Route_DimensionOrderTowardFartherNode(t *testing.T) {
	_, states := buildTorus2D4x4(t)
	src := states[0]   // (0,0)
	dest := uint64(10) // (2,2)

	nextHop, dim, dir, err := src.route(dest)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if dim != 0 {
		t.Fatalf("dim = %d, want 0 (dimension-order routing starts at dim 0)", dim)
	}
	if dir != 1 {
		t.Fatalf("dir = %d, want 1 (plus direction toward (2,2) from (0,0))", dir)
	}
	if nextHop != src.neighborPlusLPID[0] {
		t.Fatalf("nextHop = %d, want plus-neighbor in dim 0 (%d)", nextHop, src.neighborPlusLPID[0])
	}
}

func TestNodeState_Route_SelfDestination_ReturnsOwnGID(t *testing.T) {
	_, states := buildTorus2D4x4(t)
	s := states[5]
	nextHop, _, _, err := s.route(5)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if nextHop != s.selfGID() {
		t.Fatalf("nextHop = %d, want own gid %d for a coincident destination", nextHop, s.selfGID())
	}
}

func TestNodeState_Route_FullPathHopCount(t *testing.T) {
	_, states := buildTorus2D4x4(t)
	cur := uint64(0)
	dest := uint64(10)
	hops := 0
	for cur != dest && hops < 20 {
		nextHop, _, _, err := states[cur].route(dest)
		if err != nil {
			t.Fatalf("route at gid %d: %v", cur, err)
		}
		cur = nextHop
		hops++
	}
	if cur != dest {
		t.Fatalf("routing from 0 to 10 did not converge within 20 hops")
	}
	if hops != 4 {
		t.Fatalf("hop count = %d, want 4 (2 hops per dimension, (0,0)->(2,2))", hops)
	}
}
