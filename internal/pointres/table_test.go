package pointres_test

import (
	"testing"

	"github.com/vhrdtech/xpigo/internal/pointres"
	"github.com/vhrdtech/xpigo/xpi/dispatch"
	"github.com/vhrdtech/xpigo/xpi/nibble"
	"github.com/vhrdtech/xpigo/xpi/xaddr"
	"github.com/vhrdtech/xpigo/xpi/xerr"
	"github.com/vhrdtech/xpigo/xpi/xevent"
)

type memQueue struct {
	pending   []byte
	committed [][]byte
}

func (q *memQueue) Reserve(n int) ([]byte, error) {
	q.pending = make([]byte, n)
	return q.pending, nil
}

func (q *memQueue) Commit(n int) error {
	out := make([]byte, n)
	copy(out, q.pending[:n])
	q.committed = append(q.committed, out)
	return nil
}

func (q *memQueue) Discard() {}

func mustPriority(t *testing.T) xaddr.Priority {
	t.Helper()
	p, err := xaddr.NewPriority(false, 1)
	if err != nil {
		t.Fatalf("NewPriority: %v", err)
	}
	return p
}

func newTable(t *testing.T) *pointres.Table {
	t.Helper()
	tbl, err := pointres.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { tbl.Close() })
	return tbl
}

// TestTableAddMethodMatchesScenarioS1 exercises the dispatcher end to end
// against a real table instead of the dispatch package's own stub: two
// points in at /5, their sum out, exactly S1's {15,27} answer.
func TestTableAddMethodMatchesScenarioS1(t *testing.T) {
	tbl := newTable(t)
	q := &memQueue{}
	d := dispatch.New(dispatch.DefaultConfig(), 44, tbl, q, nil, nil, nil)

	ev := xevent.Event{
		Source:      33,
		NodeSet:     xaddr.NodeSet{Kind: xaddr.NodeSetUnicast, Unicast: 44},
		ResourceSet: xaddr.ResourceSet{Kind: xaddr.ResourceSetUri, Uri: xaddr.NewUri(5)},
		RequestId:   1,
		Priority:    mustPriority(t),
		TTL:         15,
		Kind:        xevent.Kind{Dir: xevent.Request, ReqTag: xevent.TagCall, ArgsSet: [][]byte{{10, 0, 20, 0, 5, 0, 7, 0}}},
	}
	if err := d.Dispatch(ev); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(q.committed) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(q.committed))
	}
	got, err := xevent.DecodeEvent(nibble.NewReader(q.committed[0]))
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	r := got.Kind.ByteResult[0]
	if !r.Ok || len(r.Value) != 4 {
		t.Fatalf("result: %+v", r)
	}
	x := uint16(r.Value[0]) | uint16(r.Value[1])<<8
	y := uint16(r.Value[2]) | uint16(r.Value[3])<<8
	if x != 15 || y != 27 {
		t.Fatalf("expected Point{15,27}, got {%d,%d}", x, y)
	}
}

// TestTableWriteReadRoundTripsScenarioS4 exercises the /1 digit property's
// Write then Read round trip through the real buntdb-backed store.
func TestTableWriteReadRoundTripsScenarioS4(t *testing.T) {
	tbl := newTable(t)
	q := &memQueue{}
	d := dispatch.New(dispatch.DefaultConfig(), 44, tbl, q, nil, nil, nil)

	write := xevent.Event{
		Source:      33,
		NodeSet:     xaddr.NodeSet{Kind: xaddr.NodeSetUnicast, Unicast: 44},
		ResourceSet: xaddr.ResourceSet{Kind: xaddr.ResourceSetUri, Uri: xaddr.NewUri(1)},
		RequestId:   2,
		Priority:    mustPriority(t),
		TTL:         15,
		Kind:        xevent.Kind{Dir: xevent.Request, ReqTag: xevent.TagWrite, ArgsSet: [][]byte{{7}}},
	}
	if err := d.Dispatch(write); err != nil {
		t.Fatalf("Dispatch write: %v", err)
	}

	read := write
	read.RequestId = 3
	read.Kind = xevent.Kind{Dir: xevent.Request, ReqTag: xevent.TagRead}
	if err := d.Dispatch(read); err != nil {
		t.Fatalf("Dispatch read: %v", err)
	}

	if len(q.committed) != 2 {
		t.Fatalf("expected 2 replies, got %d", len(q.committed))
	}
	got, err := xevent.DecodeEvent(nibble.NewReader(q.committed[1]))
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	r := got.Kind.ByteResult[0]
	if !r.Ok || len(r.Value) != 1 || r.Value[0] != 7 {
		t.Fatalf("expected written digit 7 back, got %+v", r)
	}
}

// TestTableWriteToMethodIsNotAMethod exercises S4's companion case: a
// Write targeted at the callable /5 resource is rejected rather than
// silently accepted.
func TestTableWriteToMethodIsNotAMethod(t *testing.T) {
	tbl := newTable(t)
	q := &memQueue{}
	d := dispatch.New(dispatch.DefaultConfig(), 44, tbl, q, nil, nil, nil)

	ev := xevent.Event{
		Source:      33,
		NodeSet:     xaddr.NodeSet{Kind: xaddr.NodeSetUnicast, Unicast: 44},
		ResourceSet: xaddr.ResourceSet{Kind: xaddr.ResourceSetUri, Uri: xaddr.NewUri(5)},
		RequestId:   4,
		Priority:    mustPriority(t),
		TTL:         15,
		Kind:        xevent.Kind{Dir: xevent.Request, ReqTag: xevent.TagWrite, ArgsSet: [][]byte{{1}}},
	}
	if err := d.Dispatch(ev); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	got, err := xevent.DecodeEvent(nibble.NewReader(q.committed[0]))
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	r := got.Kind.UnitResult[0]
	if r.Ok || r.Err != xerr.NotAMethod {
		t.Fatalf("expected NotAMethod, got %+v", r)
	}
}
