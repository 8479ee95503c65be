package xevent

import (
	"errors"

	"github.com/vhrdtech/xpigo/xpi/nibble"
	"github.com/vhrdtech/xpigo/xpi/xaddr"
)

// HeaderNibbles is the fixed width of the packed header: 32 bits == 8
// nibbles (§6.1).
const HeaderNibbles = 8

// ErrReservedDiscriminant is returned when a 2- or 3-bit discriminant field
// decodes to a value the wire format marks reserved.
var ErrReservedDiscriminant = errors.New("xevent: reserved discriminant in header")

// ErrInconsistentHeader is returned when the redundant unicast flag (bit
// 25) disagrees with the node-set discriminant (bits 15..14) it duplicates
// for cheap hardware filtering.
var ErrInconsistentHeader = errors.New("xevent: unicast flag disagrees with node-set discriminant")

// ErrTruncatedHeader is returned in place of any nibble-level error
// encountered while decoding the fixed 32-bit header.
var ErrTruncatedHeader = errors.New("xevent: truncated header")

type header struct {
	priority       xaddr.Priority
	unicast        bool
	direction      Direction
	source         xaddr.NodeId
	nodeSetDisc    uint32
	nodeSetPayload uint32
	resourceDisc   uint32
	kindTag        uint8
}

func (h header) serNibbles(w *nibble.Writer) error {
	return w.AsBitBuf(HeaderNibbles, func(bw *nibble.BitWriter) error {
		if err := bw.PutBits(0, 3); err != nil { // bits 31..29 reserved
			return err
		}
		if err := bw.PutBits(h.priority.Bits3(), 3); err != nil {
			return err
		}
		if err := bw.PutBit(h.unicast); err != nil {
			return err
		}
		if err := bw.PutBit(bool(h.direction)); err != nil {
			return err
		}
		if err := bw.PutBit(false); err != nil { // bit 23 reserved
			return err
		}
		if err := bw.PutBits(uint32(h.source), 7); err != nil {
			return err
		}
		if err := bw.PutBits(h.nodeSetDisc, 2); err != nil {
			return err
		}
		if err := bw.PutBits(h.nodeSetPayload, 7); err != nil {
			return err
		}
		if err := bw.PutBits(h.resourceDisc, 3); err != nil {
			return err
		}
		return bw.PutBits(uint32(h.kindTag), 4)
	})
}

// HeaderFields is the exported view of a packed event header, for callers
// outside this package (xbuilder's staged event builder) that need to
// patch the header after a reserved placeholder has already been written.
type HeaderFields struct {
	Priority       xaddr.Priority
	Unicast        bool
	Direction      Direction
	Source         xaddr.NodeId
	NodeSetDisc    uint32
	NodeSetPayload uint32
	ResourceDisc   uint32
	KindTag        uint8
}

// EncodeHeaderAt rewinds w to a nibble position previously returned by
// w.Reserve(HeaderNibbles) and writes the packed header fields there,
// restoring w's write cursor to where it was before the call.
func EncodeHeaderAt(w *nibble.Writer, pos int, f HeaderFields) error {
	h := header{
		priority:       f.Priority,
		unicast:        f.Unicast,
		direction:      f.Direction,
		source:         f.Source,
		nodeSetDisc:    f.NodeSetDisc,
		nodeSetPayload: f.NodeSetPayload,
		resourceDisc:   f.ResourceDisc,
		kindTag:        f.KindTag,
	}
	return w.Rewind(pos, func(w *nibble.Writer) error {
		return h.serNibbles(w)
	})
}

func decodeHeader(r *nibble.Reader) (h header, kindTag uint8, err error) {
	berr := r.AsBitBuf(HeaderNibbles, func(br *nibble.BitReader) error {
		if _, e := br.GetBits(3); e != nil { // reserved
			return e
		}
		prioBits, e := br.GetBits(3)
		if e != nil {
			return e
		}
		h.priority = xaddr.PriorityFromBits3(prioBits)
		unicast, e := br.GetBit()
		if e != nil {
			return e
		}
		h.unicast = unicast
		dir, e := br.GetBit()
		if e != nil {
			return e
		}
		h.direction = Direction(dir)
		if _, e := br.GetBit(); e != nil { // reserved
			return e
		}
		src, e := br.GetBits(7)
		if e != nil {
			return e
		}
		h.source = xaddr.NodeId(src)
		nsDisc, e := br.GetBits(2)
		if e != nil {
			return e
		}
		h.nodeSetDisc = nsDisc
		nsPayload, e := br.GetBits(7)
		if e != nil {
			return e
		}
		h.nodeSetPayload = nsPayload
		rsDisc, e := br.GetBits(3)
		if e != nil {
			return e
		}
		h.resourceDisc = rsDisc
		tag, e := br.GetBits(4)
		if e != nil {
			return e
		}
		kindTag = uint8(tag)
		return nil
	})
	if berr != nil {
		return header{}, 0, ErrTruncatedHeader
	}
	if h.nodeSetDisc == 3 {
		return header{}, 0, ErrReservedDiscriminant
	}
	if h.resourceDisc >= 6 {
		return header{}, 0, ErrReservedDiscriminant
	}
	if h.unicast != (h.nodeSetDisc == 0) {
		return header{}, 0, ErrInconsistentHeader
	}
	return h, kindTag, nil
}
