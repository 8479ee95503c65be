package dispatch_test

import (
	"testing"

	"github.com/vhrdtech/xpigo/xpi/dispatch"
	"github.com/vhrdtech/xpigo/xpi/nibble"
	"github.com/vhrdtech/xpigo/xpi/restbl"
	"github.com/vhrdtech/xpigo/xpi/xaddr"
	"github.com/vhrdtech/xpigo/xpi/xerr"
	"github.com/vhrdtech/xpigo/xpi/xevent"
)

// memQueue is a minimal OutboundProducer backed by a slice of committed
// byte slices, for deterministic test assertions; the production
// implementation lives in package queue.
type memQueue struct {
	pending   []byte
	reserved  bool
	committed [][]byte
}

func (q *memQueue) Reserve(n int) ([]byte, error) {
	q.pending = make([]byte, n)
	q.reserved = true
	return q.pending, nil
}

func (q *memQueue) Commit(n int) error {
	out := make([]byte, n)
	copy(out, q.pending[:n])
	q.committed = append(q.committed, out)
	q.reserved = false
	return nil
}

func (q *memQueue) Discard() { q.reserved = false }

// pointTable answers reply_size_hint/call for a single /5 "add two
// points" method (S1-S3, S6) and treats every other URI as BadUri; /6 is
// wired as an always-deferred method (S5). spawnCalls records every
// SpawnCall invocation so tests can assert the dispatcher actually
// reaches the deferred path rather than silently dropping it.
type pointTable struct {
	spawnCalls []spawnCallRecord
}

type spawnCallRecord struct {
	uri   xaddr.Uri
	args  []byte
	token restbl.ClaimToken
}

func uriIsMethod5(u xaddr.Uri) bool {
	return len(u.Parts) == 1 && u.Parts[0] == 5
}

func (t *pointTable) ReplySizeHint(uri xaddr.Uri, kindDisc uint8, _ any) restbl.SizeHint {
	switch {
	case len(uri.Parts) == 1 && uri.Parts[0] == 6:
		return restbl.DeferredHint()
	case uriIsMethod5(uri):
		if kindDisc != uint8(xevent.TagCall) {
			return restbl.Immediate(xerr.MaxLenNibbles, xerr.MaxLenNibbles, restbl.Fail(xerr.NotAMethod))
		}
		return restbl.Immediate(10, 4, restbl.OK)
	case len(uri.Parts) == 1 && uri.Parts[0] == 1:
		if kindDisc == uint8(xevent.TagCall) {
			return restbl.Immediate(xerr.MaxLenNibbles, xerr.MaxLenNibbles, restbl.Fail(xerr.NotAMethod))
		}
		return restbl.Immediate(4, 2, restbl.OK)
	default:
		return restbl.Immediate(xerr.MaxLenNibbles, xerr.MaxLenNibbles, restbl.Fail(xerr.BadUri))
	}
}

func (t *pointTable) Call(uri xaddr.Uri, args *nibble.Reader, result *nibble.Writer, _ any) xerr.Code {
	if !uriIsMethod5(uri) {
		return xerr.NotAMethod
	}
	var x1, y1, x2, y2 byte
	var err error
	if x1, err = args.GetU8(); err != nil {
		return xerr.Internal
	}
	if y1, err = args.GetU8(); err != nil {
		return xerr.Internal
	}
	if x2, err = args.GetU8(); err != nil {
		return xerr.Internal
	}
	if y2, err = args.GetU8(); err != nil {
		return xerr.Internal
	}
	if err := result.PutU8(x1 + x2); err != nil {
		return xerr.Internal
	}
	if err := result.PutU8(y1 + y2); err != nil {
		return xerr.Internal
	}
	return 0
}

func (t *pointTable) SpawnCall(uri xaddr.Uri, args []byte, token restbl.ClaimToken, _ any) xerr.Code {
	t.spawnCalls = append(t.spawnCalls, spawnCallRecord{uri: uri, args: args, token: token})
	return 0
}
func (*pointTable) Read(xaddr.Uri, *nibble.Writer, any) xerr.Code             { return xerr.NotAMethod }
func (*pointTable) Write(xaddr.Uri, *nibble.Reader, any) xerr.Code            { return xerr.NotAMethod }
func (*pointTable) Borrow(xaddr.Uri, any) xerr.Code                          { return xerr.NotAMethod }
func (*pointTable) Release(xaddr.Uri, any) xerr.Code                         { return xerr.NotAMethod }
func (*pointTable) Subscribe(xaddr.Uri, xevent.Rate, any) xerr.Code          { return xerr.NotAMethod }
func (*pointTable) Unsubscribe(xaddr.Uri, any) xerr.Code                     { return xerr.NotAMethod }
func (*pointTable) OpenStream(xaddr.Uri, any) xerr.Code                      { return xerr.NotAMethod }
func (*pointTable) CloseStream(xaddr.Uri, any) xerr.Code                     { return xerr.NotAMethod }
func (*pointTable) GetInfo(xaddr.Uri, any) (xevent.ResourceInfo, xerr.Code)  { return xevent.ResourceInfo{}, xerr.NotAMethod }

func packPoint(x1, y1, x2, y2 byte) []byte { return []byte{x1, y1, x2, y2} }

func newDispatcher(t *testing.T, q *memQueue) (*dispatch.Dispatcher, *pointTable) {
	t.Helper()
	table := &pointTable{}
	return dispatch.New(dispatch.DefaultConfig(), 44, table, q, nil, nil, nil), table
}

func mustPriority(t *testing.T) xaddr.Priority {
	t.Helper()
	p, err := xaddr.NewPriority(false, 1)
	if err != nil {
		t.Fatalf("NewPriority: %v", err)
	}
	return p
}

func TestDispatchSingleCallHappyPath(t *testing.T) {
	q := &memQueue{}
	d, _ := newDispatcher(t, q)
	ev := xevent.Event{
		Source:      33,
		NodeSet:     xaddr.NodeSet{Kind: xaddr.NodeSetUnicast, Unicast: 44},
		ResourceSet: xaddr.ResourceSet{Kind: xaddr.ResourceSetUri, Uri: xaddr.NewUri(5)},
		RequestId:   27,
		Priority:    mustPriority(t),
		TTL:         15,
		Kind: xevent.Kind{
			Dir:     xevent.Request,
			ReqTag:  xevent.TagCall,
			ArgsSet: [][]byte{packPoint(10, 20, 5, 7)},
		},
	}
	if err := d.Dispatch(ev); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(q.committed) != 1 {
		t.Fatalf("expected exactly 1 reply, got %d", len(q.committed))
	}
	got, err := xevent.DecodeEvent(nibble.NewReader(q.committed[0]))
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	if got.Source != 44 || got.NodeSet.Unicast != 33 || got.RequestId != 27 {
		t.Fatalf("correlation invariant violated: %+v", got)
	}
	if got.Kind.RepTag != xevent.TagCallResults || len(got.Kind.ByteResult) != 1 {
		t.Fatalf("kind: %+v", got.Kind)
	}
	r := got.Kind.ByteResult[0]
	if !r.Ok || len(r.Value) != 2 || r.Value[0] != 15 || r.Value[1] != 27 {
		t.Fatalf("result: %+v", r)
	}
}

func TestDispatchBadUri(t *testing.T) {
	q := &memQueue{}
	d, _ := newDispatcher(t, q)
	ev := xevent.Event{
		Source:      33,
		NodeSet:     xaddr.NodeSet{Kind: xaddr.NodeSetUnicast, Unicast: 44},
		ResourceSet: xaddr.ResourceSet{Kind: xaddr.ResourceSetUri, Uri: xaddr.NewUri(99)},
		RequestId:   28,
		Priority:    mustPriority(t),
		TTL:         15,
		Kind:        xevent.Kind{Dir: xevent.Request, ReqTag: xevent.TagCall, ArgsSet: [][]byte{{0, 0, 0, 0}}},
	}
	if err := d.Dispatch(ev); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	got, err := xevent.DecodeEvent(nibble.NewReader(q.committed[0]))
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	if len(got.Kind.ByteResult) != 1 || got.Kind.ByteResult[0].Ok || got.Kind.ByteResult[0].Err != xerr.BadUri {
		t.Fatalf("expected BadUri, got %+v", got.Kind.ByteResult)
	}
}

func TestDispatchDeferredProducesNoImmediateReply(t *testing.T) {
	q := &memQueue{}
	d, table := newDispatcher(t, q)
	ev := xevent.Event{
		Source:      33,
		NodeSet:     xaddr.NodeSet{Kind: xaddr.NodeSetUnicast, Unicast: 44},
		ResourceSet: xaddr.ResourceSet{Kind: xaddr.ResourceSetUri, Uri: xaddr.NewUri(6)},
		RequestId:   29,
		Priority:    mustPriority(t),
		TTL:         15,
		Kind:        xevent.Kind{Dir: xevent.Request, ReqTag: xevent.TagCall, ArgsSet: [][]byte{{1, 2, 3, 4}}},
	}
	if err := d.Dispatch(ev); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(q.committed) != 0 {
		t.Fatalf("expected zero immediate replies for a fully-deferred batch, got %d", len(q.committed))
	}
	if len(table.spawnCalls) != 1 {
		t.Fatalf("expected SpawnCall to be invoked exactly once for the deferred resource, got %d", len(table.spawnCalls))
	}
	spawned := table.spawnCalls[0]
	if spawned.uri != xaddr.NewUri(6) {
		t.Fatalf("SpawnCall uri = %+v, want /6", spawned.uri)
	}
	if string(spawned.args) != "\x01\x02\x03\x04" {
		t.Fatalf("SpawnCall args = %v, want the request's own arg bundle", spawned.args)
	}
	if spawned.token.Source != 33 || spawned.token.RequestId != 29 {
		t.Fatalf("SpawnCall token = %+v, want to correlate with the original request", spawned.token)
	}
}

func TestDispatchDeferredSubscribeProducesNoFalsePositiveReply(t *testing.T) {
	q := &memQueue{}
	d, table := newDispatcher(t, q)
	ev := xevent.Event{
		Source:      33,
		NodeSet:     xaddr.NodeSet{Kind: xaddr.NodeSetUnicast, Unicast: 44},
		ResourceSet: xaddr.ResourceSet{Kind: xaddr.ResourceSetUri, Uri: xaddr.NewUri(6)},
		RequestId:   31,
		Priority:    mustPriority(t),
		TTL:         15,
		Kind:        xevent.Kind{Dir: xevent.Request, ReqTag: xevent.TagSubscribe, Rates: []xevent.Rate{{Hz: 10}}},
	}
	if err := d.Dispatch(ev); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(q.committed) != 0 {
		t.Fatalf("expected no immediate reply for a deferred subscribe, got %d committed batches", len(q.committed))
	}
	if len(table.spawnCalls) != 1 {
		t.Fatalf("expected SpawnCall to be invoked exactly once for the deferred subscribe, got %d", len(table.spawnCalls))
	}
	if table.spawnCalls[0].token.Source != 33 || table.spawnCalls[0].token.RequestId != 31 {
		t.Fatalf("SpawnCall token = %+v, want to correlate with the original request", table.spawnCalls[0].token)
	}
}

func TestDispatchMTUSaturationSplitsIntoTwoBatches(t *testing.T) {
	q := &memQueue{}
	d, _ := newDispatcher(t, q)
	items := make([]xaddr.MultiUriItem, 32)
	for i := range items {
		items[i] = xaddr.MultiUriItem{Base: xaddr.NewUri(), Mask: xaddr.UriMask{Kind: xaddr.MaskByIndices, Indices: []uint32{5}}}
	}
	ev := xevent.Event{
		Source:      33,
		NodeSet:     xaddr.NodeSet{Kind: xaddr.NodeSetUnicast, Unicast: 44},
		ResourceSet: xaddr.ResourceSet{Kind: xaddr.ResourceSetMultiUri, MultiUri: xaddr.MultiUri{Items: items}},
		RequestId:   30,
		Priority:    mustPriority(t),
		TTL:         15,
	}
	argsSet := make([][]byte, 32)
	for i := range argsSet {
		argsSet[i] = packPoint(1, 1, 1, 1)
	}
	ev.Kind = xevent.Kind{Dir: xevent.Request, ReqTag: xevent.TagCall, ArgsSet: argsSet}

	if err := d.Dispatch(ev); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(q.committed) != 2 {
		t.Fatalf("expected 2 reply batches for 32 results at MaxReplyBatchLen=16, got %d", len(q.committed))
	}
	total := 0
	for _, data := range q.committed {
		got, err := xevent.DecodeEvent(nibble.NewReader(data))
		if err != nil {
			t.Fatalf("DecodeEvent: %v", err)
		}
		if got.RequestId != 30 {
			t.Errorf("request_id mismatch across batches: %d", got.RequestId)
		}
		for _, r := range got.Kind.ByteResult {
			if !r.Ok {
				t.Errorf("unexpected error result: %+v", r)
			}
		}
		total += len(got.Kind.ByteResult)
	}
	if total != 32 {
		t.Fatalf("expected 32 total results across batches, got %d", total)
	}
}
