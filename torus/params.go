// Package torus implements the torus fabric LP: global setup, per-LP
// coordinate and neighbor computation, dimension-order routing, and the
// GENERATE/SEND/ARRIVAL/CREDIT forward and reverse handlers, registered
// into netsim.Registry under net-id "torus".
package torus

import "fmt"

// meanInterval and defaultChunkSize are torus.c's MEAN_INTERVAL and
// CHUNK_SIZE constants.
const (
	meanInterval      = 100
	defaultChunkSize  = 32
	defaultDimLength  = 8
	creditMessageSize = 8 // bytes; credit_delay = creditMessageSize / bandwidth
)

// RawParams is the per-fabric parameter block torus.c reads out of its
// configuration section: dimension count and lengths (a zero length
// defaults to 8), link bandwidth in GB/s, buffer depth in slots, virtual
// channel count, and chunk size in bytes.
type RawParams struct {
	NDims         int     `yaml:"n_dims"`
	DimLength     []int   `yaml:"dim_length"`
	LinkBandwidth float64 `yaml:"link_bandwidth"`
	BufferSize    int     `yaml:"buffer_size"`
	NumVC         int     `yaml:"num_vc"`
	ChunkSize     int     `yaml:"chunk_size"`
	// TraceID optionally names one packet id to log at Debug level across
	// its whole journey - the Go rendering of torus.c's TRACE macro
	// (normally -1, disabled) as a runtime-configurable value instead of a
	// recompiled constant.
	TraceID uint64 `yaml:"trace_id"`
}

// Params is the derived, immutable global state torus_setup computes once
// and every torus LP shares read-only afterward.
type Params struct {
	NDims         int
	DimLength     []int
	LinkBandwidth float64
	BufferSize    int
	NumVC         int
	ChunkSize     int
	TraceID       uint64

	HalfLength []int
	Factor     []int
	NLP        uint64

	HeadDelay   float64
	CreditDelay float64
}

// Setup derives Params from a raw configuration block (torus.c's
// torus_setup): defaulting zero dimension lengths to 8, deriving
// head_delay/credit_delay from the configured bandwidth, and precomputing
// the factor table used to encode/decode flat node indices.
func Setup(raw RawParams) (*Params, error) {
	if raw.NDims <= 0 {
		return nil, fmt.Errorf("torus: n_dims must be positive, got %d", raw.NDims)
	}
	if raw.LinkBandwidth <= 0 {
		return nil, fmt.Errorf("torus: link_bandwidth must be positive, got %f", raw.LinkBandwidth)
	}
	if raw.BufferSize <= 0 {
		return nil, fmt.Errorf("torus: buffer_size must be positive, got %d", raw.BufferSize)
	}
	if raw.NumVC <= 0 {
		return nil, fmt.Errorf("torus: num_vc must be positive, got %d", raw.NumVC)
	}
	chunkSize := raw.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	p := &Params{
		NDims:         raw.NDims,
		LinkBandwidth: raw.LinkBandwidth,
		BufferSize:    raw.BufferSize,
		NumVC:         raw.NumVC,
		ChunkSize:     chunkSize,
		TraceID:       raw.TraceID,
		DimLength:     make([]int, raw.NDims),
		HalfLength:    make([]int, raw.NDims),
		Factor:        make([]int, raw.NDims),
	}

	for i := 0; i < raw.NDims; i++ {
		l := 0
		if i < len(raw.DimLength) {
			l = raw.DimLength[i]
		}
		if l == 0 {
			l = defaultDimLength
		}
		p.DimLength[i] = l
		p.HalfLength[i] = l / 2
	}

	p.Factor[0] = 1
	for i := 1; i < raw.NDims; i++ {
		f := 1
		for j := 0; j < i; j++ {
			f *= p.DimLength[j]
		}
		p.Factor[i] = f
	}

	p.HeadDelay = chunkSizeToDelay(chunkSize, raw.LinkBandwidth)
	p.CreditDelay = chunkSizeToDelay(creditMessageSize, raw.LinkBandwidth)

	nlp := uint64(1)
	for _, l := range p.DimLength {
		nlp *= uint64(l)
	}
	p.NLP = nlp

	return p, nil
}

func chunkSizeToDelay(bytes int, bandwidth float64) float64 {
	return (1 / bandwidth) * float64(bytes)
}

// decodeCoords turns a flat node index (rep+offset, in torus.c's addressing
// convention) into a coordinate vector, the inverse of encodeCoords.
func decodeCoords(p *Params, flat int) []int {
	coords := make([]int, p.NDims)
	cur := flat
	for i := 0; i < p.NDims; i++ {
		coords[i] = cur % p.DimLength[i]
		cur = (cur - coords[i]) / p.DimLength[i]
	}
	return coords
}

// encodeCoords packs a coordinate vector back into a flat node index via
// the precomputed factor table.
func encodeCoords(p *Params, coords []int) int {
	flat := 0
	for i := 0; i < p.NDims; i++ {
		flat += p.Factor[i] * coords[i]
	}
	return flat
}
