package dispatch_test

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/vhrdtech/xpigo/xpi/dispatch"
	"github.com/vhrdtech/xpigo/xpi/nibble"
	"github.com/vhrdtech/xpigo/xpi/xaddr"
	"github.com/vhrdtech/xpigo/xpi/xerr"
	"github.com/vhrdtech/xpigo/xpi/xevent"
)

func TestDispatch(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Dispatcher Suite")
}

func decodeAll(datas [][]byte) []xevent.Event {
	out := make([]xevent.Event, 0, len(datas))
	for _, d := range datas {
		ev, err := xevent.DecodeEvent(nibble.NewReader(d))
		Expect(err).NotTo(HaveOccurred())
		out = append(out, ev)
	}
	return out
}

func multiUriOf(n int, part uint32) xaddr.ResourceSet {
	items := make([]xaddr.MultiUriItem, n)
	for i := range items {
		items[i] = xaddr.MultiUriItem{Base: xaddr.NewUri(), Mask: xaddr.UriMask{Kind: xaddr.MaskByIndices, Indices: []uint32{part}}}
	}
	return xaddr.ResourceSet{Kind: xaddr.ResourceSetMultiUri, MultiUri: xaddr.MultiUri{Items: items}}
}

var _ = Describe("Dispatch", func() {
	var (
		q     *memQueue
		d     *dispatch.Dispatcher
		table *pointTable
		p     xaddr.Priority
	)

	BeforeEach(func() {
		q = &memQueue{}
		table = &pointTable{}
		d = dispatch.New(dispatch.DefaultConfig(), 44, table, q, nil, nil, nil)
		var err error
		p, err = xaddr.NewPriority(false, 1)
		Expect(err).NotTo(HaveOccurred())
	})

	// S1 - single Call, /5, happy path.
	It("replies with exactly one Ok result for a single fast-path call", func() {
		ev := xevent.Event{
			Source:      33,
			NodeSet:     xaddr.NodeSet{Kind: xaddr.NodeSetUnicast, Unicast: 44},
			ResourceSet: xaddr.ResourceSet{Kind: xaddr.ResourceSetUri, Uri: xaddr.NewUri(5)},
			RequestId:   1,
			Priority:    p,
			TTL:         15,
			Kind:        xevent.Kind{Dir: xevent.Request, ReqTag: xevent.TagCall, ArgsSet: [][]byte{packPoint(15, 12, 0, 15)}},
		}
		Expect(d.Dispatch(ev)).To(Succeed())

		replies := decodeAll(q.committed)
		Expect(replies).To(HaveLen(1))
		r := replies[0]
		Expect(r.Source).To(Equal(xaddr.NodeId(44)))
		Expect(r.NodeSet.Unicast).To(Equal(xaddr.NodeId(33)))
		Expect(r.Kind.RepTag).To(Equal(xevent.TagCallResults))
		Expect(r.Kind.ByteResult).To(HaveLen(1))
		Expect(r.Kind.ByteResult[0].Ok).To(BeTrue())
		Expect(r.Kind.ByteResult[0].Value).To(Equal([]byte{15, 27}))
	})

	// S2 - single Call against a non-existent uri: BadUri, no table call made.
	It("replies BadUri for an unresolvable uri without invoking the table", func() {
		ev := xevent.Event{
			Source:      33,
			NodeSet:     xaddr.NodeSet{Kind: xaddr.NodeSetUnicast, Unicast: 44},
			ResourceSet: xaddr.ResourceSet{Kind: xaddr.ResourceSetUri, Uri: xaddr.NewUri(200)},
			RequestId:   2,
			Priority:    p,
			TTL:         15,
			Kind:        xevent.Kind{Dir: xevent.Request, ReqTag: xevent.TagCall, ArgsSet: [][]byte{{0, 0, 0, 0}}},
		}
		Expect(d.Dispatch(ev)).To(Succeed())

		replies := decodeAll(q.committed)
		Expect(replies).To(HaveLen(1))
		Expect(replies[0].Kind.ByteResult[0].Ok).To(BeFalse())
		Expect(replies[0].Kind.ByteResult[0].Err).To(Equal(xerr.BadUri))
	})

	// S3 - mixed batch: one happy Call, one BadUri, both immediate, single reply batch.
	It("packs a mixed Ok/error batch into one reply event, preserving order", func() {
		ev := xevent.Event{
			Source:      33,
			NodeSet:     xaddr.NodeSet{Kind: xaddr.NodeSetUnicast, Unicast: 44},
			ResourceSet: multiUriOf(2, 0),
			RequestId:   3,
			Priority:    p,
			TTL:         15,
		}
		ev.ResourceSet.MultiUri.Items[0].Mask.Indices = []uint32{5}
		ev.ResourceSet.MultiUri.Items[1].Mask.Indices = []uint32{200}
		ev.Kind = xevent.Kind{Dir: xevent.Request, ReqTag: xevent.TagCall, ArgsSet: [][]byte{packPoint(1, 1, 1, 1), {0, 0, 0, 0}}}

		Expect(d.Dispatch(ev)).To(Succeed())

		replies := decodeAll(q.committed)
		Expect(replies).To(HaveLen(1))
		results := replies[0].Kind.ByteResult
		Expect(results).To(HaveLen(2))
		Expect(results[0].Ok).To(BeTrue())
		Expect(results[1].Ok).To(BeFalse())
		Expect(results[1].Err).To(Equal(xerr.BadUri))
	})

	// S4 - Write to a read-only/non-writable resource: NotAMethod, UnitResult.
	It("replies NotAMethod for a Write targeting a non-writable resource", func() {
		ev := xevent.Event{
			Source:      33,
			NodeSet:     xaddr.NodeSet{Kind: xaddr.NodeSetUnicast, Unicast: 44},
			ResourceSet: xaddr.ResourceSet{Kind: xaddr.ResourceSetUri, Uri: xaddr.NewUri(5)},
			RequestId:   4,
			Priority:    p,
			TTL:         15,
			Kind:        xevent.Kind{Dir: xevent.Request, ReqTag: xevent.TagWrite, ArgsSet: [][]byte{{9}}},
		}
		Expect(d.Dispatch(ev)).To(Succeed())

		replies := decodeAll(q.committed)
		Expect(replies).To(HaveLen(1))
		Expect(replies[0].Kind.RepTag).To(Equal(xevent.TagWriteResults))
		Expect(replies[0].Kind.UnitResult).To(HaveLen(1))
		Expect(replies[0].Kind.UnitResult[0].Err).To(Equal(xerr.NotAMethod))
	})

	// S5 - deferred Call produces zero immediate replies; the batch is discarded.
	It("discards a batch that resolves entirely to deferred work", func() {
		ev := xevent.Event{
			Source:      33,
			NodeSet:     xaddr.NodeSet{Kind: xaddr.NodeSetUnicast, Unicast: 44},
			ResourceSet: xaddr.ResourceSet{Kind: xaddr.ResourceSetUri, Uri: xaddr.NewUri(6)},
			RequestId:   5,
			Priority:    p,
			TTL:         15,
			Kind:        xevent.Kind{Dir: xevent.Request, ReqTag: xevent.TagCall, ArgsSet: [][]byte{{1, 2, 3, 4}}},
		}
		Expect(d.Dispatch(ev)).To(Succeed())
		Expect(q.committed).To(BeEmpty())
		Expect(table.spawnCalls).To(HaveLen(1))
		Expect(table.spawnCalls[0].uri).To(Equal(xaddr.NewUri(6)))
		Expect(table.spawnCalls[0].token.Source).To(Equal(ev.Source))
		Expect(table.spawnCalls[0].token.RequestId).To(Equal(ev.RequestId))
	})

	// S6 - MTU saturation: 32 immediate /5 calls split across exactly two
	// MaxReplyBatchLen=16 batches, same request id, all Ok.
	It("splits a 32-resource selection into two 16-result batches", func() {
		argsSet := make([][]byte, 32)
		for i := range argsSet {
			argsSet[i] = packPoint(1, 1, 1, 1)
		}
		ev := xevent.Event{
			Source:      33,
			NodeSet:     xaddr.NodeSet{Kind: xaddr.NodeSetUnicast, Unicast: 44},
			ResourceSet: multiUriOf(32, 5),
			RequestId:   6,
			Priority:    p,
			TTL:         15,
			Kind:        xevent.Kind{Dir: xevent.Request, ReqTag: xevent.TagCall, ArgsSet: argsSet},
		}
		Expect(d.Dispatch(ev)).To(Succeed())

		replies := decodeAll(q.committed)
		Expect(replies).To(HaveLen(2))
		total := 0
		for _, r := range replies {
			Expect(r.RequestId).To(Equal(ev.RequestId))
			Expect(r.Kind.ByteResult).To(HaveLen(16))
			for _, res := range r.Kind.ByteResult {
				Expect(res.Ok).To(BeTrue())
			}
			total += len(r.Kind.ByteResult)
		}
		Expect(total).To(Equal(32))
	})
})
