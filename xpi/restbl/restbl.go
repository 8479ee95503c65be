// Package restbl defines the narrow contract (C6) between the dispatcher
// and a concrete resource tree. A resource table adapter knows how to
// resolve a URI to a method, property or stream and carry out one
// operation against it; the dispatcher knows nothing about what's behind
// a URI beyond this interface.
package restbl

import (
	"github.com/vhrdtech/xpigo/xpi/nibble"
	"github.com/vhrdtech/xpigo/xpi/xaddr"
	"github.com/vhrdtech/xpigo/xpi/xerr"
	"github.com/vhrdtech/xpigo/xpi/xevent"
)

// ClaimToken correlates a deferred reply with the request that spawned
// it. The dispatcher hands one to SpawnCall and its kin; the handler
// eventually uses it (via xbuilder, targeting Unicast(token.Source)) to
// emit its own reply event carrying token.RequestId and token.Priority.
type ClaimToken struct {
	Source    xaddr.NodeId
	RequestId xaddr.RequestId
	Priority  xaddr.Priority
}

// Preliminary is a Result<(), XpiError> decided before any call into the
// table proper — e.g. a URI that doesn't resolve, or resolves to a
// non-method being Called. When Ok is false the dispatcher serializes
// Err directly and never invokes Call/Read/Write for that resource.
type Preliminary struct {
	Ok  bool
	Err xerr.Code
}

// OK is the zero-cost "no preliminary objection" value.
var OK = Preliminary{Ok: true}

// Fail builds a preliminary rejection carrying code.
func Fail(code xerr.Code) Preliminary { return Preliminary{Err: code} }

// SizeHint is the dispatcher's budgeting input for one resource, per
// §4.5's Immediate/Deferred split. MaxSize is the nibble reservation the
// dispatcher subtracts from its per-batch budget (the worst case of the
// Ok and Err encodings); RawSize is the nibble length of the raw value an
// Ok result writes, which the dispatcher uses to size the scratch buffer
// it hands to Call or Read.
type SizeHint struct {
	Deferred    bool
	MaxSize     int
	RawSize     int
	Preliminary Preliminary
}

// Immediate builds a SizeHint the dispatcher can fit into the current
// batch if the budget allows it.
func Immediate(maxSize, rawSize int, prelim Preliminary) SizeHint {
	return SizeHint{MaxSize: maxSize, RawSize: rawSize, Preliminary: prelim}
}

// DeferredHint builds a SizeHint for a resource whose reply will be
// produced later by a spawned handler; it never consumes batch budget.
func DeferredHint() SizeHint { return SizeHint{Deferred: true} }

// Table is the resource-table adapter contract. Every method receives
// the already-resolved Uri (the dispatcher has walked resource_set's
// FlatIter for it); shared is opaque host state passed through
// unexamined, exactly as spec.md's dispatcher threads it.
type Table interface {
	// ReplySizeHint is a pure function: it must not mutate state, and
	// its prediction must not later disagree with Call/Read/Write/Spawn
	// except by downgrading an Ok prediction to an error.
	ReplySizeHint(uri xaddr.Uri, kindDisc uint8, shared any) SizeHint

	// Call invokes uri synchronously with argsReader positioned at the
	// start of the argument bundle, writing the nibble-serialized
	// result through resultWriter.
	Call(uri xaddr.Uri, argsReader *nibble.Reader, resultWriter *nibble.Writer, shared any) xerr.Code
	// SpawnCall schedules uri for asynchronous invocation; args has
	// already been copied out of the inbound buffer by the caller, since
	// the handler may run after the inbound event is freed.
	SpawnCall(uri xaddr.Uri, args []byte, token ClaimToken, shared any) xerr.Code

	Read(uri xaddr.Uri, valueWriter *nibble.Writer, shared any) xerr.Code
	Write(uri xaddr.Uri, valueReader *nibble.Reader, shared any) xerr.Code

	Borrow(uri xaddr.Uri, shared any) xerr.Code
	Release(uri xaddr.Uri, shared any) xerr.Code
	Subscribe(uri xaddr.Uri, rate xevent.Rate, shared any) xerr.Code
	Unsubscribe(uri xaddr.Uri, shared any) xerr.Code
	OpenStream(uri xaddr.Uri, shared any) xerr.Code
	CloseStream(uri xaddr.Uri, shared any) xerr.Code

	GetInfo(uri xaddr.Uri, shared any) (xevent.ResourceInfo, xerr.Code)
}
