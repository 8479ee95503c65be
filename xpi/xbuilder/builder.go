// Package xbuilder implements staged event construction (C4): a chain of
// distinct Go types — Initial, HeaderWritten, NodeSetWritten,
// ResourceSetWritten, KindWritten, Done — each exposing only the one
// BuildXWith method legal at that point, so an out-of-order call (writing
// a kind payload before a resource set, say) is a compile error rather
// than a wire-format bug caught at runtime.
//
// The packed 32-bit header can't be written up front: its node-set and
// resource-set discriminant bits depend on values only known once those
// bodies have themselves been written. BuildHeaderWith reserves the
// header's nibble span with nibble.Writer.Reserve and carries the header
// fields gathered at each later stage forward; KindWritten.Finish's
// EncodeHeaderAt call rewinds to that span and patches it in, once every
// field is known.
package xbuilder

import (
	"github.com/vhrdtech/xpigo/xpi/nibble"
	"github.com/vhrdtech/xpigo/xpi/xaddr"
	"github.com/vhrdtech/xpigo/xpi/xevent"
)

// Initial is the entry point: a writer with nothing built yet.
type Initial struct {
	w *nibble.Writer
}

// Begin starts building one event into w.
func Begin(w *nibble.Writer) Initial {
	return Initial{w: w}
}

// HeaderWritten holds a reserved (zero-filled) header span and the header
// fields known so far; Source/Priority/Direction never depend on later
// stages, so they're captured immediately.
type HeaderWritten struct {
	w         *nibble.Writer
	headerPos int
	fields    xevent.HeaderFields
}

// BuildHeaderWith reserves the header's nibble span and records the
// fields known at this point in construction.
func (b Initial) BuildHeaderWith(source xaddr.NodeId, priority xaddr.Priority, dir xevent.Direction) (HeaderWritten, error) {
	pos, err := b.w.Reserve(xevent.HeaderNibbles)
	if err != nil {
		return HeaderWritten{}, err
	}
	return HeaderWritten{
		w:         b.w,
		headerPos: pos,
		fields: xevent.HeaderFields{
			Source:    source,
			Priority:  priority,
			Direction: dir,
		},
	}, nil
}

// NodeSetWritten holds everything HeaderWritten did, plus the node-set
// discriminant bits now known.
type NodeSetWritten struct {
	w         *nibble.Writer
	headerPos int
	fields    xevent.HeaderFields
}

// BuildNodeSetWith writes ns's variable-length body (multicast trait ids;
// unicast and broadcast have none) and records its discriminant/payload
// bits for the eventual header patch.
func (b HeaderWritten) BuildNodeSetWith(ns xaddr.NodeSet) (NodeSetWritten, error) {
	b.fields.Unicast = ns.Kind == xaddr.NodeSetUnicast
	b.fields.NodeSetDisc = uint32(ns.Kind)
	switch ns.Kind {
	case xaddr.NodeSetUnicast:
		b.fields.NodeSetPayload = uint32(ns.Unicast)
	case xaddr.NodeSetMulticast:
		b.fields.NodeSetPayload = uint32(len(ns.Traits))
		for _, tr := range ns.Traits {
			if err := b.w.PutVluU32(tr); err != nil {
				return NodeSetWritten{}, err
			}
		}
	}
	return NodeSetWritten{w: b.w, headerPos: b.headerPos, fields: b.fields}, nil
}

// ResourceSetWritten holds everything NodeSetWritten did, plus the
// resource-set discriminant now known.
type ResourceSetWritten struct {
	w         *nibble.Writer
	headerPos int
	fields    xevent.HeaderFields
}

// BuildResourceSetWith writes rs's body (a single Uri, or a MultiUri's
// pair list) and records its discriminant for the header patch.
func (b NodeSetWritten) BuildResourceSetWith(rs xaddr.ResourceSet) (ResourceSetWritten, error) {
	b.fields.ResourceDisc = rs.ResourceSetDiscriminant()
	var err error
	if rs.Kind == xaddr.ResourceSetMultiUri {
		err = rs.MultiUri.SerNibbles(b.w)
	} else {
		err = rs.Uri.SerNibbles(b.w)
	}
	if err != nil {
		return ResourceSetWritten{}, err
	}
	return ResourceSetWritten{w: b.w, headerPos: b.headerPos, fields: b.fields}, nil
}

// KindWritten holds everything ResourceSetWritten did, plus the kind
// discriminant now known.
type KindWritten struct {
	w         *nibble.Writer
	headerPos int
	fields    xevent.HeaderFields
}

// BuildKindWith writes the vlu4 request id and 4-bit ttl that precede
// every kind payload, then kind's payload itself, and records kind's
// discriminant for the header patch. kind.Dir must agree with the
// direction passed to BuildHeaderWith; callers that mix them up get a
// header whose direction bit doesn't match its kind table, which
// DecodeEvent will catch ambiguously (a wrong-table tag, not a dedicated
// error) — so xbuilder doesn't re-validate it here and trusts the caller.
func (b ResourceSetWritten) BuildKindWith(reqID xaddr.RequestId, ttl uint8, kind xevent.Kind) (KindWritten, error) {
	if err := reqID.PutNibbles(b.w); err != nil {
		return KindWritten{}, err
	}
	if err := b.w.PutNibble(ttl); err != nil {
		return KindWritten{}, err
	}
	if err := kind.SerNibbles(b.w); err != nil {
		return KindWritten{}, err
	}
	if kind.Dir == xevent.Request {
		b.fields.KindTag = uint8(kind.ReqTag)
	} else {
		b.fields.KindTag = uint8(kind.RepTag)
	}
	return KindWritten{w: b.w, headerPos: b.headerPos, fields: b.fields}, nil
}

// Done is the terminal stage: the header has been patched in and the
// event's wire image is complete.
type Done struct {
	w *nibble.Writer
}

// Finish patches the reserved header span with the now-complete field
// set and returns the finished byte image, same as nibble.Writer.Finish.
func (b KindWritten) Finish() (Done, []byte, int, error) {
	if err := xevent.EncodeHeaderAt(b.w, b.headerPos, b.fields); err != nil {
		return Done{}, nil, 0, err
	}
	data, nibbleLen := b.w.Finish()
	return Done{w: b.w}, data, nibbleLen, nil
}
