package xaddr

import (
	"errors"

	"github.com/vhrdtech/xpigo/xpi/nibble"
)

// ErrUnknownUriMaskFormat is returned for a UriMask tag nibble this package
// doesn't recognize.
var ErrUnknownUriMaskFormat = errors.New("xaddr: unknown uri mask format")

// UriMaskKind tags a UriMask's wire form. DATA MODEL leaves the on-wire
// discriminant unspecified; this ordering mirrors original_source's
// UriMask enum (ByBitfield8/16/32, ByIndices, All), dropping the 64/128-bit
// bitfield widths it also defines since those never fit the vlu4/nibble
// compactness goal for a resource tree addressed a handful of levels deep.
type UriMaskKind uint8

const (
	MaskByBitfield8 UriMaskKind = iota
	MaskByBitfield16
	MaskByBitfield32
	MaskByIndices
	MaskAll
)

// UriMask selects a subset of children at one resource-tree level.
type UriMask struct {
	Kind    UriMaskKind
	Bits    uint32   // valid for MaskByBitfield{8,16,32}
	Indices []uint32 // valid for MaskByIndices
	Count   uint32   // valid for MaskAll
}

// FlatIter yields the child indices selected by m, in the order the wire
// format specifies: bitfields MSB-first (bit 0 of the field, the most
// significant, selects child 0), ByIndices in on-wire order, All as 0..Count.
func (m UriMask) FlatIter() []uint32 {
	switch m.Kind {
	case MaskByBitfield8:
		return bitfieldIndices(m.Bits, 8)
	case MaskByBitfield16:
		return bitfieldIndices(m.Bits, 16)
	case MaskByBitfield32:
		return bitfieldIndices(m.Bits, 32)
	case MaskByIndices:
		return m.Indices
	case MaskAll:
		out := make([]uint32, m.Count)
		for i := range out {
			out[i] = uint32(i)
		}
		return out
	default:
		return nil
	}
}

func bitfieldIndices(bits uint32, width int) []uint32 {
	var out []uint32
	for i := 0; i < width; i++ {
		// MSB corresponds to child 0.
		shift := width - 1 - i
		if bits&(1<<uint(shift)) != 0 {
			out = append(out, uint32(i))
		}
	}
	return out
}

// SerNibbles writes the 3-bit kind tag (as one nibble) followed by the body.
func (m UriMask) SerNibbles(w *nibble.Writer) error {
	if err := w.PutNibble(byte(m.Kind)); err != nil {
		return err
	}
	switch m.Kind {
	case MaskByBitfield8:
		return w.PutU8(byte(m.Bits))
	case MaskByBitfield16:
		if err := w.PutU8(byte(m.Bits >> 8)); err != nil {
			return err
		}
		return w.PutU8(byte(m.Bits))
	case MaskByBitfield32:
		for shift := 24; shift >= 0; shift -= 8 {
			if err := w.PutU8(byte(m.Bits >> uint(shift))); err != nil {
				return err
			}
		}
		return nil
	case MaskByIndices:
		if err := w.PutVluU32(uint32(len(m.Indices))); err != nil {
			return err
		}
		for _, idx := range m.Indices {
			if err := w.PutVluU32(idx); err != nil {
				return err
			}
		}
		return nil
	case MaskAll:
		return w.PutVluU32(m.Count)
	default:
		return ErrUnknownUriMaskFormat
	}
}

// DecodeUriMask reads a tagged UriMask.
func DecodeUriMask(r *nibble.Reader) (UriMask, error) {
	tag, err := r.GetNibble()
	if err != nil {
		return UriMask{}, err
	}
	kind := UriMaskKind(tag)
	switch kind {
	case MaskByBitfield8:
		v, err := r.GetU8()
		if err != nil {
			return UriMask{}, err
		}
		return UriMask{Kind: kind, Bits: uint32(v)}, nil
	case MaskByBitfield16:
		hi, err := r.GetU8()
		if err != nil {
			return UriMask{}, err
		}
		lo, err := r.GetU8()
		if err != nil {
			return UriMask{}, err
		}
		return UriMask{Kind: kind, Bits: uint32(hi)<<8 | uint32(lo)}, nil
	case MaskByBitfield32:
		var v uint32
		for i := 0; i < 4; i++ {
			b, err := r.GetU8()
			if err != nil {
				return UriMask{}, err
			}
			v = v<<8 | uint32(b)
		}
		return UriMask{Kind: kind, Bits: v}, nil
	case MaskByIndices:
		n, err := r.GetVluU32()
		if err != nil {
			return UriMask{}, err
		}
		idx := make([]uint32, n)
		for i := range idx {
			v, err := r.GetVluU32()
			if err != nil {
				return UriMask{}, err
			}
			idx[i] = v
		}
		return UriMask{Kind: kind, Indices: idx}, nil
	case MaskAll:
		n, err := r.GetVluU32()
		if err != nil {
			return UriMask{}, err
		}
		return UriMask{Kind: kind, Count: n}, nil
	default:
		return UriMask{}, ErrUnknownUriMaskFormat
	}
}
