package hk

import (
	"time"

	"github.com/vhrdtech/xpigo/xpi/nibble"
	"github.com/vhrdtech/xpigo/xpi/xaddr"
	"github.com/vhrdtech/xpigo/xpi/xbuilder"
	"github.com/vhrdtech/xpigo/xpi/xevent"
)

// HeartbeatSink receives one encoded broadcast frame per tick; typically
// a queue.Queue's Reserve/Commit pair adapted to a single []byte call.
type HeartbeatSink func(frame []byte) error

// RegisterHeartbeat schedules a TagHeartbeat broadcast every interval,
// carrying selfID's current sequence number as its ChainArgs payload.
// The broadcast bypasses xpi/dispatch entirely — a peer's own heartbeat
// listener (not its resource table) consumes it.
func (h *Housekeeper) RegisterHeartbeat(interval time.Duration, selfID xaddr.NodeId, mtu int, sink HeartbeatSink) {
	var seq uint32
	h.Register("heartbeat", interval, func() time.Duration {
		frame, err := buildHeartbeat(selfID, mtu, seq)
		seq++
		if err == nil {
			_ = sink(frame)
		}
		return interval
	})
}

func buildHeartbeat(selfID xaddr.NodeId, mtu int, seq uint32) ([]byte, error) {
	buf := make([]byte, mtu)
	w := nibble.NewWriter(buf)
	priority, err := xaddr.NewPriority(false, 1)
	if err != nil {
		return nil, err
	}
	b, err := xbuilder.Begin(w).BuildHeaderWith(selfID, priority, xevent.Request)
	if err != nil {
		return nil, err
	}
	bn, err := b.BuildNodeSetWith(xaddr.NodeSet{Kind: xaddr.NodeSetBroadcast})
	if err != nil {
		return nil, err
	}
	br, err := bn.BuildResourceSetWith(xaddr.ResourceSet{Kind: xaddr.ResourceSetUri, Uri: xaddr.NewUri(0)})
	if err != nil {
		return nil, err
	}
	payload := []byte{byte(seq >> 24), byte(seq >> 16), byte(seq >> 8), byte(seq)}
	bk, err := br.BuildKindWith(0, 1, xevent.Kind{Dir: xevent.Request, ReqTag: xevent.TagHeartbeat, ChainArgs: payload})
	if err != nil {
		return nil, err
	}
	_, data, _, err := bk.Finish()
	return data, err
}
