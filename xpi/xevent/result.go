package xevent

import (
	"github.com/vhrdtech/xpigo/xpi/nibble"
	"github.com/vhrdtech/xpigo/xpi/xaddr"
	"github.com/vhrdtech/xpigo/xpi/xerr"
)

// ByteResult is a per-resource Result<nibble_buffer, XpiError> slot, used
// by CallResults and ReadResults: each entry starts with an error tag
// nibble, then the byte-aligned body if Ok (§6.1).
type ByteResult struct {
	Err   xerr.Code
	Ok    bool
	Value []byte // borrowed, valid only while Ok
}

func (r ByteResult) serNibbles(w *nibble.Writer) error {
	if !r.Ok {
		return r.Err.PutNibbles(w)
	}
	if err := w.PutNibble(0); err != nil {
		return err
	}
	if err := w.PutVluU32(uint32(len(r.Value))); err != nil {
		return err
	}
	return w.PutAlignedWith(len(r.Value), func(w *nibble.Writer) error {
		return w.PutSlice(r.Value)
	})
}

func decodeByteResult(r *nibble.Reader) (ByteResult, error) {
	tag, err := r.GetNibble()
	if err != nil {
		return ByteResult{}, err
	}
	if tag != 0 {
		// The error code may continue past this nibble (vlu4); carry the
		// already-consumed nibble's bits into decodeContinuedCode, which
		// reads any remaining nibbles from r.
		code, err := decodeContinuedCode(tag, r)
		if err != nil {
			return ByteResult{}, err
		}
		return ByteResult{Err: code}, nil
	}
	n, err := r.GetVluU32()
	if err != nil {
		return ByteResult{}, err
	}
	if err := r.AlignToByte(); err != nil {
		return ByteResult{}, err
	}
	val, err := r.GetSlice(int(n))
	if err != nil {
		return ByteResult{}, err
	}
	return ByteResult{Ok: true, Value: val}, nil
}

// decodeContinuedCode reconstructs a vlu4 value whose first nibble (with
// its continuation bit already inspected by the caller) was `first`.
func decodeContinuedCode(first byte, r *nibble.Reader) (xerr.Code, error) {
	v := uint64(first & 0x7)
	if first&0x8 == 0 {
		return xerr.Code(v), nil
	}
	for n := 1; ; n++ {
		if n >= 11 {
			return 0, nibble.ErrMalformedVlu
		}
		nib, err := r.GetNibble()
		if err != nil {
			return 0, err
		}
		v = v<<3 | uint64(nib&0x7)
		if nib&0x8 == 0 {
			break
		}
	}
	return xerr.Code(v), nil
}

// UnitResult is a per-resource Result<(), XpiError> slot: one error-code
// nibble sequence, zero meaning Ok.
type UnitResult struct {
	Err xerr.Code
	Ok  bool
}

func (r UnitResult) serNibbles(w *nibble.Writer) error {
	if r.Ok {
		return w.PutNibble(0)
	}
	return r.Err.PutNibbles(w)
}

func decodeUnitResult(r *nibble.Reader) (UnitResult, error) {
	tag, err := r.GetNibble()
	if err != nil {
		return UnitResult{}, err
	}
	if tag == 0 {
		return UnitResult{Ok: true}, nil
	}
	code, err := decodeContinuedCode(tag, r)
	if err != nil {
		return UnitResult{}, err
	}
	return UnitResult{Err: code}, nil
}

// ResourceInfoKind tags the shape of a GetInfo reply. Simplified from
// original_source's ResourceInfo (which also tracks subscriber lists and
// observed/requested/maximum rates per stream) down to the fields the
// dispatcher itself can produce without a full rate-shaping subsystem;
// richer per-stream telemetry is left to the resource table adapter to
// expose through its own xpi, same as any other property.
type ResourceInfoKind uint8

const (
	InfoFree ResourceInfoKind = iota
	InfoBorrowed
	InfoClosedStream
	InfoOpenStream
	InfoArray
)

// ResourceInfo is the payload of a successful GetInfo reply entry.
type ResourceInfo struct {
	Kind       ResourceInfoKind
	BorrowedBy xaddr.NodeId // valid for InfoBorrowed, InfoOpenStream
	ArraySize  uint32       // valid for InfoArray
}

func (ri ResourceInfo) serNibbles(w *nibble.Writer) error {
	if err := w.PutNibble(byte(ri.Kind)); err != nil {
		return err
	}
	switch ri.Kind {
	case InfoBorrowed, InfoOpenStream:
		return w.PutU8(byte(ri.BorrowedBy))
	case InfoArray:
		return w.PutVluU32(ri.ArraySize)
	default:
		return nil
	}
}

func decodeResourceInfo(r *nibble.Reader) (ResourceInfo, error) {
	tag, err := r.GetNibble()
	if err != nil {
		return ResourceInfo{}, err
	}
	kind := ResourceInfoKind(tag)
	ri := ResourceInfo{Kind: kind}
	switch kind {
	case InfoBorrowed, InfoOpenStream:
		v, err := r.GetU8()
		if err != nil {
			return ResourceInfo{}, err
		}
		ri.BorrowedBy = xaddr.NodeId(v)
	case InfoArray:
		v, err := r.GetVluU32()
		if err != nil {
			return ResourceInfo{}, err
		}
		ri.ArraySize = v
	}
	return ri, nil
}

// InfoResult is a per-resource Result<ResourceInfo, XpiError> slot.
type InfoResult struct {
	Err  xerr.Code
	Ok   bool
	Info ResourceInfo
}

func (r InfoResult) serNibbles(w *nibble.Writer) error {
	if !r.Ok {
		return r.Err.PutNibbles(w)
	}
	if err := w.PutNibble(0); err != nil {
		return err
	}
	return r.Info.serNibbles(w)
}

func decodeInfoResult(r *nibble.Reader) (InfoResult, error) {
	tag, err := r.GetNibble()
	if err != nil {
		return InfoResult{}, err
	}
	if tag != 0 {
		code, err := decodeContinuedCode(tag, r)
		if err != nil {
			return InfoResult{}, err
		}
		return InfoResult{Err: code}, nil
	}
	info, err := decodeResourceInfo(r)
	if err != nil {
		return InfoResult{}, err
	}
	return InfoResult{Ok: true, Info: info}, nil
}

// Rate is an observing/publishing rate descriptor attached to each
// resolved resource in a Subscribe request. Simplified from
// original_source's fixed-point UQ24.8 Hz unit down to a plain integer Hz
// count — the dispatcher never interprets the value itself, only passes
// it through to the resource table adapter's subscribe handler.
type Rate struct {
	Hz uint32
}

func (r Rate) serNibbles(w *nibble.Writer) error { return w.PutVluU32(r.Hz) }

func decodeRate(r *nibble.Reader) (Rate, error) {
	v, err := r.GetVluU32()
	if err != nil {
		return Rate{}, err
	}
	return Rate{Hz: v}, nil
}
