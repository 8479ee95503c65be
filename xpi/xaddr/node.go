// Package xaddr implements the addressing primitives of the xpi protocol:
// node identifiers, request ids, priority, resource Uris, UriMasks for bulk
// selection and MultiUri sets with depth-first flattening.
package xaddr

import (
	"errors"

	"github.com/vhrdtech/xpigo/xpi/nibble"
)

// ErrInvalidNodeId is returned for node ids outside 1..=127 (0 is reserved).
var ErrInvalidNodeId = errors.New("xaddr: node id must be in 1..=127")

// ErrInvalidPriorityLevel is returned for priority levels outside 1..=4.
var ErrInvalidPriorityLevel = errors.New("xaddr: priority level must be in 1..=4")

// NodeId is a bounded 7-bit node identifier, 1..=127; 0 is reserved.
type NodeId uint8

// NewNodeId validates v and returns a NodeId.
func NewNodeId(v uint8) (NodeId, error) {
	if v == 0 || v > 127 {
		return 0, ErrInvalidNodeId
	}
	return NodeId(v), nil
}

// PutBits writes the 7-bit node id into an open bit window (callers use
// this from within an AsBitBuf closure over the packed header).
func (n NodeId) PutBits(bw *nibble.BitWriter) error {
	return bw.PutBits(uint32(n), 7)
}

// GetNodeId reads a 7-bit node id from an open bit window.
func GetNodeId(br *nibble.BitReader) (NodeId, error) {
	v, err := br.GetBits(7)
	if err != nil {
		return 0, err
	}
	return NodeId(v), nil
}

// RequestId correlates replies with the request that caused them. Wrapping
// is allowed; avoiding collisions with outstanding non-subscription
// requests is the originator's responsibility.
type RequestId uint16

// PutNibbles encodes the request id as vlu4.
func (r RequestId) PutNibbles(w *nibble.Writer) error {
	return w.PutVluU32(uint32(r))
}

// GetRequestId decodes a vlu4-encoded request id.
func GetRequestId(r *nibble.Reader) (RequestId, error) {
	v, err := r.GetVluU32()
	if err != nil {
		return 0, err
	}
	return RequestId(v), nil
}

// Priority selects lossy or lossless delivery at one of four levels. Higher
// level means a higher chance of delivery. The wire layout packs level and
// the lossy/lossless flag into 3 header bits (§6.1): levels 1..=4, not the
// 8-level extension DATA MODEL mentions as a future option.
type Priority struct {
	Lossless bool
	Level    uint8 // 1..=4
}

// NewPriority validates level and returns a Priority.
func NewPriority(lossless bool, level uint8) (Priority, error) {
	if level < 1 || level > 4 {
		return Priority{}, ErrInvalidPriorityLevel
	}
	return Priority{Lossless: lossless, Level: level}, nil
}

// Bits3 packs the priority into the 3-bit field used by the event header:
// 000..011 Lossy(1..4), 100..111 Lossless(1..4).
func (p Priority) Bits3() uint32 {
	v := uint32(p.Level - 1)
	if p.Lossless {
		v |= 0x4
	}
	return v
}

// PriorityFromBits3 decodes the 3-bit header field back into a Priority.
func PriorityFromBits3(bits uint32) Priority {
	return Priority{
		Lossless: bits&0x4 != 0,
		Level:    uint8(bits&0x3) + 1,
	}
}

// NodeSetKind tags which variant a NodeSet holds.
type NodeSetKind uint8

const (
	NodeSetUnicast NodeSetKind = iota
	NodeSetMulticast
	NodeSetBroadcast
)

// NodeSet selects the destination(s) of an event: one specific node, nodes
// implementing a common set of traits, or everyone.
type NodeSet struct {
	Kind    NodeSetKind
	Unicast NodeId
	// Traits identifies the xpi traits all addressed nodes must implement,
	// valid when Kind == NodeSetMulticast. Simplified from the registry's
	// full GlobalTypeIdBound (unique id + semver bound) down to the
	// 32-bit global type id: the dispatcher only needs to pass traits
	// through to the link/resource-table layer, never compare semver
	// ranges itself.
	Traits []uint32
}
