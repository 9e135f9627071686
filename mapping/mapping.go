// Package mapping provides the LP-to-GID resolution contract codes_mapping
// gives CODES models: given a global LP id, look up which configuration
// group/type/repetition/offset produced it, and the inverse lookup used to
// find neighbors and destinations.
package mapping

import "fmt"

// Info is everything codes_mapping_get_lp_info returns about one LP.
type Info struct {
	Group    string
	GroupID  int
	TypeID   int
	TypeName string
	Rep      int
	Offset   int
}

// Service is the codes_mapping contract. Implementations are built once at
// configure time and are read-only afterward, so they are safe to share
// across every LP without locking.
type Service interface {
	// LPInfo resolves a global LP id to its group/type/repetition/offset.
	LPInfo(gid LPID) (Info, error)
	// LPID resolves (group, type name, repetition, offset) to a global LP
	// id - the inverse of LPInfo, used to find neighbors and destinations.
	LPID(group, typeName string, rep, offset int) (LPID, error)
}

// LPID matches kernel.LPID without importing the kernel package, since
// mapping has no other dependency on it.
type LPID = uint64

// entry is one (group, typeName) block of repeated LPs in a Grid.
type entry struct {
	typeName string
	count    int // LPs per repetition (i.e. "offset" ranges over [0,count))
	reps     int
}

// Grid is the reference Service implementation: a flat list of named
// groups, each containing one or more named LP-type blocks repeated `reps`
// times with `count` LPs per repetition - the shape codes_mapping's
// configuration-driven group/repetition/offset addressing takes for a
// single, uniform torus allocation.
type Grid struct {
	groupOrder []string
	groups     map[string][]entry
	// flat index: gid -> Info, and the reverse (group,type,rep,offset) -> gid
	byGID  map[LPID]Info
	byName map[string]LPID
}

// NewGrid builds an empty Grid.
func NewGrid() *Grid {
	return &Grid{
		groups: make(map[string][]entry),
		byGID:  make(map[LPID]Info),
		byName: make(map[string]LPID),
	}
}

// AddGroup registers a named group with repeated LP-type blocks and
// allocates global ids for every (rep, offset) pair in the order they were
// added - group order, then type order within the group, then rep, then
// offset, mirroring how CODES assigns gids from the configuration file's
// group/LP ordering.
func (g *Grid) AddGroup(group string, blocks []struct {
	TypeName string
	Count    int
	Reps     int
}) {
	if _, exists := g.groups[group]; !exists {
		g.groupOrder = append(g.groupOrder, group)
	}
	var gid LPID
	for _, b := range g.groups {
		for _, e := range b {
			gid += LPID(e.count * e.reps)
		}
	}
	es := make([]entry, 0, len(blocks))
	for _, b := range blocks {
		es = append(es, entry{typeName: b.TypeName, count: b.Count, reps: b.Reps})
		for rep := 0; rep < b.Reps; rep++ {
			for off := 0; off < b.Count; off++ {
				info := Info{
					Group:    group,
					GroupID:  len(g.groupOrder) - 1,
					TypeID:   len(es) - 1,
					TypeName: b.TypeName,
					Rep:      rep,
					Offset:   off,
				}
				g.byGID[gid] = info
				g.byName[key(group, b.TypeName, rep, off)] = gid
				gid++
			}
		}
	}
	g.groups[group] = es
}

func key(group, typeName string, rep, offset int) string {
	return fmt.Sprintf("%s/%s/%d/%d", group, typeName, rep, offset)
}

func (g *Grid) LPInfo(gid LPID) (Info, error) {
	info, ok := g.byGID[gid]
	if !ok {
		return Info{}, fmt.Errorf("mapping: no LP registered with gid %d", gid)
	}
	return info, nil
}

func (g *Grid) LPID(group, typeName string, rep, offset int) (LPID, error) {
	gid, ok := g.byName[key(group, typeName, rep, offset)]
	if !ok {
		return 0, fmt.Errorf("mapping: no LP for group=%s type=%s rep=%d offset=%d", group, typeName, rep, offset)
	}
	return gid, nil
}
