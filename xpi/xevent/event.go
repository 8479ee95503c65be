// Package xevent implements the xpi event model (C3): the header, resource
// set, request id, ttl and kind-specific payload that together make up one
// request or reply message, plus their nibble-buffer (de)serialization.
package xevent

import (
	"errors"

	"github.com/vhrdtech/xpigo/xpi/nibble"
	"github.com/vhrdtech/xpigo/xpi/xaddr"
)

// ErrUnknownKind is returned when a kind discriminant (combined with the
// header's direction bit) doesn't name a known request or reply kind.
var ErrUnknownKind = errors.New("xevent: unknown kind discriminant")

// Kind holds the decoded payload for whichever request or reply
// discriminant the event carries; exactly one field group is meaningful,
// selected by (Direction, RequestTag|ReplyTag). A flat struct rather than
// an interface-per-variant keeps serialization generic: one switch in
// SerNibbles/decodeKind rather than a method set on 24 distinct types.
type Kind struct {
	Dir        Direction
	ReqTag     RequestTag
	RepTag     ReplyTag
	ArgsSet    [][]byte // Call.args_set, Write.values
	ChainArgs  []byte   // ChainCall.args
	Rates      []Rate   // Subscribe.rates
	ByteResult []ByteResult
	UnitResult []UnitResult
	InfoResult []InfoResult
	StreamUpd  [][]byte
}

// Event is one xpi message: a request flowing toward a node, or a reply
// flowing back toward its originator.
type Event struct {
	Source      xaddr.NodeId
	NodeSet     xaddr.NodeSet
	ResourceSet xaddr.ResourceSet
	RequestId   xaddr.RequestId
	Priority    xaddr.Priority
	TTL         uint8
	Kind        Kind
}

func nodeSetDiscriminant(ns xaddr.NodeSet) uint32 { return uint32(ns.Kind) }

// SerNibbles writes the full event: header, resource set body, request id,
// ttl, then the kind-specific payload.
func (e Event) SerNibbles(w *nibble.Writer) error {
	h := header{
		priority:     e.Priority,
		unicast:      e.NodeSet.Kind == xaddr.NodeSetUnicast,
		direction:    e.Kind.Dir,
		source:       e.Source,
		nodeSetDisc:  nodeSetDiscriminant(e.NodeSet),
		resourceDisc: e.ResourceSet.ResourceSetDiscriminant(),
	}
	if e.NodeSet.Kind == xaddr.NodeSetUnicast {
		h.nodeSetPayload = uint32(e.NodeSet.Unicast)
	} else if e.NodeSet.Kind == xaddr.NodeSetMulticast {
		h.nodeSetPayload = uint32(len(e.NodeSet.Traits))
	}
	if e.Kind.Dir == Request {
		h.kindTag = uint8(e.Kind.ReqTag)
	} else {
		h.kindTag = uint8(e.Kind.RepTag)
	}
	if err := h.serNibbles(w); err != nil {
		return err
	}
	if e.NodeSet.Kind == xaddr.NodeSetMulticast {
		for _, tr := range e.NodeSet.Traits {
			if err := w.PutVluU32(tr); err != nil {
				return err
			}
		}
	}
	if e.ResourceSet.Kind == xaddr.ResourceSetMultiUri {
		if err := e.ResourceSet.MultiUri.SerNibbles(w); err != nil {
			return err
		}
	} else if err := e.ResourceSet.Uri.SerNibbles(w); err != nil {
		return err
	}
	if err := e.RequestId.PutNibbles(w); err != nil {
		return err
	}
	if err := w.PutNibble(e.TTL); err != nil {
		return err
	}
	return e.Kind.SerNibbles(w)
}

// DecodeEvent reads an event previously written by SerNibbles. The
// returned Event borrows slices from buf's backing array (ArgsSet,
// ByteResult.Value, StreamUpd entries and so on); callers must not reuse
// buf while the Event is live.
func DecodeEvent(r *nibble.Reader) (Event, error) {
	h, tag, err := decodeHeader(r)
	if err != nil {
		return Event{}, err
	}
	var e Event
	e.Priority = h.priority
	e.Source = h.source
	switch h.nodeSetDisc {
	case 0:
		e.NodeSet = xaddr.NodeSet{Kind: xaddr.NodeSetUnicast, Unicast: xaddr.NodeId(h.nodeSetPayload)}
	case 1:
		traits := make([]uint32, h.nodeSetPayload)
		for i := range traits {
			v, err := r.GetVluU32()
			if err != nil {
				return Event{}, err
			}
			traits[i] = v
		}
		e.NodeSet = xaddr.NodeSet{Kind: xaddr.NodeSetMulticast, Traits: traits}
	case 2:
		e.NodeSet = xaddr.NodeSet{Kind: xaddr.NodeSetBroadcast}
	}
	if h.resourceDisc == 5 {
		mu, err := xaddr.DecodeMultiUri(r)
		if err != nil {
			return Event{}, err
		}
		e.ResourceSet = xaddr.ResourceSet{Kind: xaddr.ResourceSetMultiUri, MultiUri: mu}
	} else {
		u, err := xaddr.DecodeUri(xaddr.UriKind(h.resourceDisc), r)
		if err != nil {
			return Event{}, err
		}
		e.ResourceSet = xaddr.ResourceSet{Kind: xaddr.ResourceSetUri, Uri: u}
	}
	reqID, err := xaddr.GetRequestId(r)
	if err != nil {
		return Event{}, err
	}
	e.RequestId = reqID
	ttl, err := r.GetNibble()
	if err != nil {
		return Event{}, err
	}
	e.TTL = ttl
	kind, err := decodeKind(h.direction, tag, r)
	if err != nil {
		return Event{}, err
	}
	e.Kind = kind
	return e, nil
}
