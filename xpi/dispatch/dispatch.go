// Package dispatch implements the node-side event dispatcher (C5): the
// two-pass lookahead/execute batching loop that turns one inbound
// request event into one or more reply events, each bounded by the
// configured reply MTU.
package dispatch

import (
	"errors"

	"github.com/vhrdtech/xpigo/cmn/debug"
	"github.com/vhrdtech/xpigo/cmn/mono"
	"github.com/vhrdtech/xpigo/cmn/nlog"
	"github.com/vhrdtech/xpigo/xpi/nibble"
	"github.com/vhrdtech/xpigo/xpi/restbl"
	"github.com/vhrdtech/xpigo/xpi/xaddr"
	"github.com/vhrdtech/xpigo/xpi/xbuilder"
	"github.com/vhrdtech/xpigo/xpi/xerr"
	"github.com/vhrdtech/xpigo/xpi/xevent"
)

// ErrBadEventFormat is returned for an inbound event that fails basic
// structural invariants (§4.5, "malformed inbound event: drop").
var ErrBadEventFormat = errors.New("dispatch: malformed inbound event")

// Dispatcher runs the C5 algorithm against one resource table and one
// outbound reply queue. It holds no per-event state between calls to
// Dispatch; claim tokens for deferred work outlive a single call but the
// Dispatcher itself has nothing to suspend (§5).
type Dispatcher struct {
	Config     Config
	SelfNodeID xaddr.NodeId
	Table      restbl.Table
	Outbound   OutboundProducer
	Shared     any

	tracker    *OutstandingRequests
	clock      mono.Source
	lastNanos  int64
}

// New builds a Dispatcher. tracker may be nil to skip outstanding-request
// collision probing; clock may be nil to use the default mono source.
func New(cfg Config, selfID xaddr.NodeId, table restbl.Table, outbound OutboundProducer, shared any, tracker *OutstandingRequests, clock mono.Source) *Dispatcher {
	if clock == nil {
		clock = mono.Default()
	}
	return &Dispatcher{
		Config:     cfg,
		SelfNodeID: selfID,
		Table:      table,
		Outbound:   outbound,
		Shared:     shared,
		tracker:    tracker,
		clock:      clock,
	}
}

// LastDispatchNanos reports the clock reading at the start of the most
// recent Dispatch call, for host-side staleness/heartbeat monitoring.
func (d *Dispatcher) LastDispatchNanos() int64 { return d.lastNanos }

// cursor tracks the vector indices Call/Write/Subscribe requests consume
// from, advancing across the whole inbound event (not reset per batch)
// since a batch boundary can split a logical resource list arbitrarily.
type cursor struct {
	args  int // ev.Kind.ArgsSet (Call) or values (Write)
	rates int // ev.Kind.Rates (Subscribe)
}

// Dispatch runs the full two-pass algorithm for one inbound event,
// emitting zero or more reply events to d.Outbound.
func (d *Dispatcher) Dispatch(ev xevent.Event) error {
	d.lastNanos = d.clock.NanoTime()
	if ev.Source == 0 {
		return ErrBadEventFormat
	}
	if ev.Kind.Dir != xevent.Request {
		return ErrBadEventFormat
	}

	flat := ev.ResourceSet.FlatIter()
	kindDisc := uint8(ev.Kind.ReqTag)
	var cur cursor
	pos := 0
	budgetConst := d.Config.BudgetNibbles()

	for batches := 0; batches < d.Config.MaxReplyBatches; batches++ {
		if pos >= len(flat) {
			break
		}
		budget := budgetConst
		batchStart := pos
		var hints []restbl.SizeHint
		for len(hints) < d.Config.MaxReplyBatchLen && pos < len(flat) {
			uri := flat[pos]
			hint := d.Table.ReplySizeHint(uri, kindDisc, d.Shared)
			if !hint.Deferred && hint.MaxSize > budget {
				break
			}
			if !hint.Deferred {
				budget -= hint.MaxSize
			}
			hints = append(hints, hint)
			pos++
		}
		if len(hints) == 0 {
			break
		}
		if err := d.dispatchBatch(ev, flat[batchStart:pos], hints, &cur); err != nil {
			return err
		}
	}

	if pos < len(flat) {
		nlog.Warningf("dispatch: saturation for request_id=%d source=%d, dropping %d of %d resources",
			ev.RequestId, ev.Source, len(flat)-pos, len(flat))
	}
	return nil
}

// dispatchBatch builds and commits one reply event covering the given
// slice of resolved URIs and their precomputed hints.
func (d *Dispatcher) dispatchBatch(ev xevent.Event, uris []xaddr.Uri, hints []restbl.SizeHint, cur *cursor) error {
	debug.Assert(len(uris) == len(hints), "dispatch: uri/hint length mismatch")

	buf, err := d.Outbound.Reserve(d.Config.ReplyMTU)
	if err != nil {
		nlog.Errorf("dispatch: outbound queue exhausted building reply for request_id=%d: %v", ev.RequestId, err)
		return xerr.InternalQueueError
	}

	w := nibble.NewWriter(buf)
	b, err := xbuilder.Begin(w).BuildHeaderWith(d.SelfNodeID, ev.Priority, xevent.Reply)
	if err != nil {
		d.Outbound.Discard()
		return err
	}
	bn, err := b.BuildNodeSetWith(xaddr.NodeSet{Kind: xaddr.NodeSetUnicast, Unicast: ev.Source})
	if err != nil {
		d.Outbound.Discard()
		return err
	}
	br, err := bn.BuildResourceSetWith(ev.ResourceSet)
	if err != nil {
		d.Outbound.Discard()
		return err
	}

	kind, immediateCount, err := d.buildReplyKind(ev, uris, hints, cur)
	if err != nil {
		d.Outbound.Discard()
		return err
	}
	if immediateCount == 0 {
		// every resource in this batch was deferred; the handlers will
		// emit their own replies independently (§4.5.f).
		d.Outbound.Discard()
		return nil
	}

	bk, err := br.BuildKindWith(ev.RequestId, 15, kind)
	if err != nil {
		d.Outbound.Discard()
		return err
	}
	_, data, _, err := bk.Finish()
	if err != nil {
		d.Outbound.Discard()
		return err
	}
	return d.Outbound.Commit(len(data))
}

// buildReplyKind dispatches kind-specific per-resource handling (§4.5.e)
// and returns the reply Kind plus how many immediate (non-deferred)
// entries it carries.
func (d *Dispatcher) buildReplyKind(ev xevent.Event, uris []xaddr.Uri, hints []restbl.SizeHint, cur *cursor) (xevent.Kind, int, error) {
	reqTag := ev.Kind.ReqTag
	switch reqTag {
	case xevent.TagCall:
		return d.buildCallReply(ev, uris, hints, cur)
	case xevent.TagWrite:
		return d.buildWriteReply(uris, hints, ev.Kind, cur)
	case xevent.TagRead:
		return d.buildReadReply(uris, hints)
	case xevent.TagSubscribe:
		return d.buildSubscribeReply(ev, uris, hints, cur)
	case xevent.TagUnsubscribe:
		return d.buildUnitReply(ev, xevent.TagSubscribeResults, uris, hints, func(uri xaddr.Uri) xerr.Code {
			return d.Table.Unsubscribe(uri, d.Shared)
		})
	case xevent.TagBorrow:
		return d.buildUnitReply(ev, xevent.TagBorrowResults, uris, hints, func(uri xaddr.Uri) xerr.Code {
			return d.Table.Borrow(uri, d.Shared)
		})
	case xevent.TagRelease:
		return d.buildUnitReply(ev, xevent.TagReleaseResults, uris, hints, func(uri xaddr.Uri) xerr.Code {
			return d.Table.Release(uri, d.Shared)
		})
	case xevent.TagOpenStreams:
		return d.buildUnitReply(ev, xevent.TagOpenStreamResults, uris, hints, func(uri xaddr.Uri) xerr.Code {
			return d.Table.OpenStream(uri, d.Shared)
		})
	case xevent.TagCloseStreams:
		return d.buildUnitReply(ev, xevent.TagCloseStreamResults, uris, hints, func(uri xaddr.Uri) xerr.Code {
			return d.Table.CloseStream(uri, d.Shared)
		})
	case xevent.TagGetInfo:
		return d.buildInfoReply(uris, hints)
	default:
		// ChainCall and any other request kind the algorithm doesn't name
		// a result shape for: reply OperationNotSupported for every
		// resource (§4.5.e, "Other kinds"). The original firmware left
		// ChainCall's handler empty too.
		results := make([]xevent.ByteResult, 0, len(uris))
		for range uris {
			results = append(results, xevent.ByteResult{Err: xerr.OperationNotSupported})
		}
		return xevent.Kind{Dir: xevent.Reply, RepTag: xevent.TagCallResults, ByteResult: results}, len(results), nil
	}
}

func (d *Dispatcher) buildCallReply(ev xevent.Event, uris []xaddr.Uri, hints []restbl.SizeHint, cur *cursor) (xevent.Kind, int, error) {
	reqKind := ev.Kind
	var results []xevent.ByteResult
	immediate := 0
	for i, uri := range uris {
		hint := hints[i]
		if hint.Deferred {
			if cur.args >= len(reqKind.ArgsSet) {
				continue
			}
			args := reqKind.ArgsSet[cur.args]
			cur.args++

			token := restbl.ClaimToken{Source: ev.Source, RequestId: ev.RequestId, Priority: ev.Priority}
			if d.tracker != nil {
				if already := d.tracker.Track(ev.Source, ev.RequestId); already {
					nlog.Warningf("dispatch: request_id=%d from source=%d already has outstanding deferred work", ev.RequestId, ev.Source)
				}
			}
			argsCopy := append([]byte(nil), args...)
			code := d.Table.SpawnCall(uri, argsCopy, token, d.Shared)
			if code != 0 {
				nlog.Warningf("dispatch: spawn_call rejected uri=%+v: %v", uri, code)
			}
			continue
		}
		if !hint.Preliminary.Ok {
			results = append(results, xevent.ByteResult{Err: hint.Preliminary.Err})
			immediate++
			continue
		}
		if cur.args >= len(reqKind.ArgsSet) {
			results = append(results, xevent.ByteResult{Err: xerr.NoArgumentsProvided})
			immediate++
			continue
		}
		args := reqKind.ArgsSet[cur.args]
		cur.args++

		scratch := make([]byte, scratchBytesForNibbles(hint.RawSize))
		sw := nibble.NewWriter(scratch)
		argsReader := nibble.NewReader(args)
		code := d.Table.Call(uri, argsReader, sw, d.Shared)
		if code != 0 {
			results = append(results, xevent.ByteResult{Err: code})
		} else {
			value, _ := sw.Finish()
			results = append(results, xevent.ByteResult{Ok: true, Value: value})
		}
		immediate++
	}
	return xevent.Kind{Dir: xevent.Reply, RepTag: xevent.TagCallResults, ByteResult: results}, immediate, nil
}

func (d *Dispatcher) buildWriteReply(uris []xaddr.Uri, hints []restbl.SizeHint, reqKind xevent.Kind, cur *cursor) (xevent.Kind, int, error) {
	var results []xevent.UnitResult
	for i, uri := range uris {
		hint := hints[i]
		if !hint.Preliminary.Ok {
			results = append(results, xevent.UnitResult{Err: hint.Preliminary.Err})
			continue
		}
		if cur.args >= len(reqKind.ArgsSet) {
			results = append(results, xevent.UnitResult{Err: xerr.NoArgumentsProvided})
			continue
		}
		value := reqKind.ArgsSet[cur.args]
		cur.args++
		code := d.Table.Write(uri, nibble.NewReader(value), d.Shared)
		results = append(results, xevent.UnitResult{Ok: code == 0, Err: code})
	}
	return xevent.Kind{Dir: xevent.Reply, RepTag: xevent.TagWriteResults, UnitResult: results}, len(results), nil
}

func (d *Dispatcher) buildReadReply(uris []xaddr.Uri, hints []restbl.SizeHint) (xevent.Kind, int, error) {
	var results []xevent.ByteResult
	for i, uri := range uris {
		hint := hints[i]
		if !hint.Preliminary.Ok {
			results = append(results, xevent.ByteResult{Err: hint.Preliminary.Err})
			continue
		}
		scratch := make([]byte, scratchBytesForNibbles(hint.RawSize))
		sw := nibble.NewWriter(scratch)
		code := d.Table.Read(uri, sw, d.Shared)
		if code != 0 {
			results = append(results, xevent.ByteResult{Err: code})
			continue
		}
		value, _ := sw.Finish()
		results = append(results, xevent.ByteResult{Ok: true, Value: value})
	}
	return xevent.Kind{Dir: xevent.Reply, RepTag: xevent.TagReadResults, ByteResult: results}, len(results), nil
}

func (d *Dispatcher) buildSubscribeReply(ev xevent.Event, uris []xaddr.Uri, hints []restbl.SizeHint, cur *cursor) (xevent.Kind, int, error) {
	reqKind := ev.Kind
	var results []xevent.UnitResult
	for i, uri := range uris {
		hint := hints[i]
		var rate xevent.Rate
		if cur.rates < len(reqKind.Rates) {
			rate = reqKind.Rates[cur.rates]
		}
		cur.rates++
		if hint.Deferred {
			token := restbl.ClaimToken{Source: ev.Source, RequestId: ev.RequestId, Priority: ev.Priority}
			code := d.Table.SpawnCall(uri, nil, token, d.Shared)
			if code != 0 {
				nlog.Warningf("dispatch: spawn subscribe rejected uri=%+v: %v", uri, code)
			}
			continue
		}
		if !hint.Preliminary.Ok {
			results = append(results, xevent.UnitResult{Err: hint.Preliminary.Err})
			continue
		}
		code := d.Table.Subscribe(uri, rate, d.Shared)
		results = append(results, xevent.UnitResult{Ok: code == 0, Err: code})
	}
	return xevent.Kind{Dir: xevent.Reply, RepTag: xevent.TagSubscribeResults, UnitResult: results}, len(results), nil
}

// buildUnitReply handles Unsubscribe/Borrow/Release/OpenStreams/CloseStreams,
// whose results are all a bare Result<(), XpiError> per resource. A Deferred
// hint reuses the same spawn_call hook Call and Subscribe defer through
// (restbl.Table has no separate spawn entry point per kind); the spawned
// handler is expected to emit its own reply via the claim token and this
// resource gets no immediate entry.
func (d *Dispatcher) buildUnitReply(ev xevent.Event, repTag xevent.ReplyTag, uris []xaddr.Uri, hints []restbl.SizeHint, call func(xaddr.Uri) xerr.Code) (xevent.Kind, int, error) {
	var results []xevent.UnitResult
	for i, uri := range uris {
		hint := hints[i]
		if hint.Deferred {
			token := restbl.ClaimToken{Source: ev.Source, RequestId: ev.RequestId, Priority: ev.Priority}
			code := d.Table.SpawnCall(uri, nil, token, d.Shared)
			if code != 0 {
				nlog.Warningf("dispatch: spawn rejected uri=%+v: %v", uri, code)
			}
			continue
		}
		if !hint.Preliminary.Ok {
			results = append(results, xevent.UnitResult{Err: hint.Preliminary.Err})
			continue
		}
		code := call(uri)
		results = append(results, xevent.UnitResult{Ok: code == 0, Err: code})
	}
	return xevent.Kind{Dir: xevent.Reply, RepTag: repTag, UnitResult: results}, len(results), nil
}

func (d *Dispatcher) buildInfoReply(uris []xaddr.Uri, hints []restbl.SizeHint) (xevent.Kind, int, error) {
	var results []xevent.InfoResult
	for i, uri := range uris {
		hint := hints[i]
		if !hint.Preliminary.Ok {
			results = append(results, xevent.InfoResult{Err: hint.Preliminary.Err})
			continue
		}
		info, code := d.Table.GetInfo(uri, d.Shared)
		results = append(results, xevent.InfoResult{Ok: code == 0, Err: code, Info: info})
	}
	return xevent.Kind{Dir: xevent.Reply, RepTag: xevent.TagInfoResults, InfoResult: results}, len(results), nil
}

func scratchBytesForNibbles(nibbles int) int {
	if nibbles <= 0 {
		return 1
	}
	return (nibbles + 1) / 2
}
