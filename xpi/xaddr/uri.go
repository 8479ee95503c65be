package xaddr

import (
	"errors"

	"github.com/vhrdtech/xpigo/xpi/nibble"
)

// ErrUnknownUriFormat is returned when a uri kind discriminant outside the
// ones this package knows about is encountered.
var ErrUnknownUriFormat = errors.New("xaddr: unknown uri format")

// UriKind tags which fixed-width packing (or the general fallback) a Uri
// uses on the wire. These values are exactly the resource-set discriminant
// codes from §6.1's packed header (000..100); the general FiveBit664 form
// original_source names alongside the others (Epsilon: 6,6,4 bits) has no
// reserved slot in the normative header table, so it's never emitted as a
// distinct wire form here — a uri that would want it instead falls back to
// UriMultiPart.
type UriKind uint8

const (
	UriOnePart4 UriKind = iota
	UriTwoPart44
	UriThreePart444
	UriFourPart633 // 3 parts, widths 6/3/3 (named for the header's historical tag, not the part count)
	UriMultiPart
)

// Uri is an ordered sequence of small nonnegative integers naming resource
// levels, e.g. /a/3/x is represented the same way regardless of which wire
// form ends up encoding it.
type Uri struct {
	Kind  UriKind
	Parts []uint32
}

// NewUri picks the smallest fixed-width wire form that fits parts,
// preferring an earlier (more specific) form on ties and falling back to
// UriMultiPart when none of the fixed forms fit.
func NewUri(parts ...uint32) Uri {
	p := append([]uint32(nil), parts...)
	switch {
	case len(p) == 1 && p[0] < 16:
		return Uri{Kind: UriOnePart4, Parts: p}
	case len(p) == 2 && p[0] < 16 && p[1] < 16:
		return Uri{Kind: UriTwoPart44, Parts: p}
	case len(p) == 3 && p[0] < 16 && p[1] < 16 && p[2] < 16:
		return Uri{Kind: UriThreePart444, Parts: p}
	case len(p) == 3 && p[0] < 64 && p[1] < 8 && p[2] < 8:
		return Uri{Kind: UriFourPart633, Parts: p}
	default:
		return Uri{Kind: UriMultiPart, Parts: p}
	}
}

// FlatIter yields the uri's path components in order. Every Uri kind
// resolves to the same flattened integer sequence; only the wire packing
// differs.
func (u Uri) FlatIter() []uint32 { return u.Parts }

// SerNibbles writes the uri's body per its Kind. The kind itself is not
// repeated here when u is a top-level resource_set (the header already
// carries it); TaggedSerNibbles is used instead when self-description is
// required (nested inside a MultiUri pair).
func (u Uri) SerNibbles(w *nibble.Writer) error {
	switch u.Kind {
	case UriOnePart4:
		return w.PutNibble(byte(u.Parts[0]))
	case UriTwoPart44:
		if err := w.PutNibble(byte(u.Parts[0])); err != nil {
			return err
		}
		return w.PutNibble(byte(u.Parts[1]))
	case UriThreePart444:
		for _, p := range u.Parts {
			if err := w.PutNibble(byte(p)); err != nil {
				return err
			}
		}
		return nil
	case UriFourPart633:
		return w.AsBitBuf(3, func(bw *nibble.BitWriter) error {
			if err := bw.PutBits(u.Parts[0], 6); err != nil {
				return err
			}
			if err := bw.PutBits(u.Parts[1], 3); err != nil {
				return err
			}
			return bw.PutBits(u.Parts[2], 3)
		})
	case UriMultiPart:
		if err := w.PutVluU32(uint32(len(u.Parts))); err != nil {
			return err
		}
		for _, p := range u.Parts {
			if err := w.PutVluU32(p); err != nil {
				return err
			}
		}
		return nil
	default:
		return ErrUnknownUriFormat
	}
}

// DecodeUri reads a uri's body given its Kind, as decoded from an external
// discriminant field (the packed header's resource-set discriminant, or an
// embedded TaggedSerNibbles tag).
func DecodeUri(kind UriKind, r *nibble.Reader) (Uri, error) {
	switch kind {
	case UriOnePart4:
		n, err := r.GetNibble()
		if err != nil {
			return Uri{}, err
		}
		return Uri{Kind: kind, Parts: []uint32{uint32(n)}}, nil
	case UriTwoPart44:
		a, err := r.GetNibble()
		if err != nil {
			return Uri{}, err
		}
		b, err := r.GetNibble()
		if err != nil {
			return Uri{}, err
		}
		return Uri{Kind: kind, Parts: []uint32{uint32(a), uint32(b)}}, nil
	case UriThreePart444:
		parts := make([]uint32, 3)
		for i := range parts {
			n, err := r.GetNibble()
			if err != nil {
				return Uri{}, err
			}
			parts[i] = uint32(n)
		}
		return Uri{Kind: kind, Parts: parts}, nil
	case UriFourPart633:
		parts := make([]uint32, 3)
		err := r.AsBitBuf(3, func(br *nibble.BitReader) error {
			var e error
			if parts[0], e = br.GetBits(6); e != nil {
				return e
			}
			if parts[1], e = br.GetBits(3); e != nil {
				return e
			}
			parts[2], e = br.GetBits(3)
			return e
		})
		if err != nil {
			return Uri{}, err
		}
		return Uri{Kind: kind, Parts: parts}, nil
	case UriMultiPart:
		n, err := r.GetVluU32()
		if err != nil {
			return Uri{}, err
		}
		parts := make([]uint32, n)
		for i := range parts {
			v, err := r.GetVluU32()
			if err != nil {
				return Uri{}, err
			}
			parts[i] = v
		}
		return Uri{Kind: kind, Parts: parts}, nil
	default:
		return Uri{}, ErrUnknownUriFormat
	}
}

// TaggedSerNibbles writes an explicit 3-bit kind tag nibble followed by the
// body. Used when a Uri appears without a dedicated header field to carry
// its discriminant — currently only inside MultiUri pairs.
func (u Uri) TaggedSerNibbles(w *nibble.Writer) error {
	if err := w.PutNibble(byte(u.Kind)); err != nil {
		return err
	}
	return u.SerNibbles(w)
}

// DecodeTaggedUri reads a self-tagged uri (see TaggedSerNibbles).
func DecodeTaggedUri(r *nibble.Reader) (Uri, error) {
	tag, err := r.GetNibble()
	if err != nil {
		return Uri{}, err
	}
	kind := UriKind(tag)
	if kind > UriMultiPart {
		return Uri{}, ErrUnknownUriFormat
	}
	return DecodeUri(kind, r)
}
