package hk

import (
	"time"

	"github.com/vhrdtech/xpigo/xpi/xaddr"
)

// ClaimTracker is the subset of dispatch.OutstandingRequests a sweeper
// needs: forgetting a claim once it has aged out, so a later deferred
// reply for the same (source, request_id) doesn't trip the collision
// warning forever.
type ClaimTracker interface {
	Forget(source xaddr.NodeId, reqID xaddr.RequestId)
}

// StaleClaim is one deferred claim a host's own bookkeeping believes has
// outlived any reasonable handler runtime.
type StaleClaim struct {
	Source    xaddr.NodeId
	RequestId xaddr.RequestId
}

// RegisterClaimSweep schedules a periodic sweep of stale deferred claim
// tokens: listStale is called once per interval and every claim it
// returns is forgotten by tracker, so the dispatcher's probabilistic
// collision check doesn't keep warning about work that was abandoned
// rather than completed.
func (h *Housekeeper) RegisterClaimSweep(interval time.Duration, tracker ClaimTracker, listStale func() []StaleClaim) {
	h.Register("claim-sweep", interval, func() time.Duration {
		for _, c := range listStale() {
			tracker.Forget(c.Source, c.RequestId)
		}
		return interval
	})
}
