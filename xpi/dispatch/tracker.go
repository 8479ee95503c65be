package dispatch

import (
	"encoding/binary"

	cuckoo "github.com/seiflotfy/cuckoofilter"

	"github.com/vhrdtech/xpigo/xpi/xaddr"
)

// OutstandingRequests probabilistically tracks (source, request_id) pairs
// the dispatcher has spawned deferred work for, so a claim token handed
// out for one inbound event can be cheaply checked against requests
// already outstanding for the same originator — catching the collision
// spec.md §3 warns the originator (not the dispatcher) is nominally
// responsible for avoiding, without paying for an exact set. False
// positives only cause an extra logged warning, never a dropped request.
type OutstandingRequests struct {
	filter *cuckoo.Filter
}

// NewOutstandingRequests builds a tracker sized for capacity concurrent
// claim tokens.
func NewOutstandingRequests(capacity uint) *OutstandingRequests {
	return &OutstandingRequests{filter: cuckoo.NewFilter(capacity)}
}

func trackerKey(source xaddr.NodeId, reqID xaddr.RequestId) []byte {
	var b [3]byte
	b[0] = byte(source)
	binary.BigEndian.PutUint16(b[1:], uint16(reqID))
	return b[:]
}

// Track records that a claim token now exists for (source, reqID),
// reporting whether one was already believed to be outstanding.
func (t *OutstandingRequests) Track(source xaddr.NodeId, reqID xaddr.RequestId) (alreadyOutstanding bool) {
	key := trackerKey(source, reqID)
	if t.filter.Lookup(key) {
		return true
	}
	t.filter.InsertUnique(key)
	return false
}

// Forget releases (source, reqID) once its deferred reply has been sent.
func (t *OutstandingRequests) Forget(source xaddr.NodeId, reqID xaddr.RequestId) {
	t.filter.Delete(trackerKey(source, reqID))
}
