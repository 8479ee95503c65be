// Package xerr defines the shared error code enum carried inside xpi reply
// vectors: CallResults, ReadResults, WriteResults and friends each slot a
// Code per resource rather than aborting the whole batch.
package xerr

import "github.com/vhrdtech/xpigo/xpi/nibble"

// Code is a vlu4-encoded error, carried as the tag nibble (or nibbles, for
// values above 7) of a per-resource result slot. 0 always means success and
// is never represented by a Code value on the wire; callers test for it via
// the tag nibble itself before decoding a Code.
type Code uint32

const (
	// Timeout: no response was received in time. Only the originator ever
	// produces this; the dispatcher never emits it.
	Timeout Code = 1
	// DeviceRebooted: a node reboot was detected before it answered.
	DeviceRebooted Code = 2
	// PriorityLoss: the request or response didn't fit into memory because
	// higher-priority data needed the space.
	PriorityLoss Code = 3
	// ShaperReject: rejected by rate shaping even though space was free.
	ShaperReject Code = 4
	// ResourceIsAlreadyBorrowed: the resource is held by another node.
	ResourceIsAlreadyBorrowed Code = 5
	// AlreadyUnsubscribed: unsubscribe was attempted twice.
	AlreadyUnsubscribed Code = 6
	// StreamIsAlreadyOpen: open was attempted on an already-open stream.
	StreamIsAlreadyOpen Code = 7
	// StreamIsAlreadyClosed: close was attempted on an already-closed stream.
	StreamIsAlreadyClosed Code = 8
	// OperationNotSupported: e.g. write into a const/ro property.
	OperationNotSupported Code = 9
	// BadUri: the uri does not resolve to any resource in the tree.
	BadUri Code = 10
	// NotAMethod: Call targeted a resource that isn't callable.
	NotAMethod Code = 11
	// NoArgumentsProvided: args_set ran out before resource_set did.
	NoArgumentsProvided Code = 12
	// Internal: implementation bug or unexpected condition in user code.
	Internal Code = 13
	// InternalQueueError: the outbound queue could not supply or accept a
	// buffer; the dispatcher surfaces this to the host rather than a peer.
	InternalQueueError Code = 14
)

var names = map[Code]string{
	Timeout:                   "Timeout",
	DeviceRebooted:            "DeviceRebooted",
	PriorityLoss:              "PriorityLoss",
	ShaperReject:              "ShaperReject",
	ResourceIsAlreadyBorrowed: "ResourceIsAlreadyBorrowed",
	AlreadyUnsubscribed:       "AlreadyUnsubscribed",
	StreamIsAlreadyOpen:       "StreamIsAlreadyOpen",
	StreamIsAlreadyClosed:     "StreamIsAlreadyClosed",
	OperationNotSupported:     "OperationNotSupported",
	BadUri:                    "BadUri",
	NotAMethod:                "NotAMethod",
	NoArgumentsProvided:       "NoArgumentsProvided",
	Internal:                  "Internal",
	InternalQueueError:        "InternalQueueError",
}

func (c Code) String() string {
	if s, ok := names[c]; ok {
		return s
	}
	return "Unknown"
}

// Error implements the standard error interface so a Code can be returned
// directly from resource table callbacks.
func (c Code) Error() string { return c.String() }

// PutNibbles writes the error code as a vlu4 integer.
func (c Code) PutNibbles(w *nibble.Writer) error {
	return w.PutVluU32(uint32(c))
}

// GetCode reads a vlu4-encoded error code.
func GetCode(r *nibble.Reader) (Code, error) {
	v, err := r.GetVluU32()
	if err != nil {
		return 0, err
	}
	return Code(v), nil
}

// LenNibbles reports how many nibbles c occupies on the wire, used by
// reply_size_hint to compute worst-case slot sizes without actually
// encoding.
func (c Code) LenNibbles() int {
	v := uint32(c)
	n := 1
	v >>= 3
	for v != 0 {
		n++
		v >>= 3
	}
	return n
}

// MaxLenNibbles is the widest any Code defined in this package can ever be;
// callers sizing a worst-case error slot (ReplySizeHint.max_size) without
// knowing the exact code yet can use this as an upper bound.
const MaxLenNibbles = 2 // covers every code up to 63
