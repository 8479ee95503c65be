// Command xpictl is a minimal CLI client: it builds one xpi request,
// sends it over a TCP link, and prints the decoded reply. It stands in
// for rustyclient's `main.rs`, generalized from that program's one fixed
// three-byte payload to the three operations the demo node exposes.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/vhrdtech/xpigo/cmn/cos"
	"github.com/vhrdtech/xpigo/link/tcp"
	"github.com/vhrdtech/xpigo/xpi/nibble"
	"github.com/vhrdtech/xpigo/xpi/xaddr"
	"github.com/vhrdtech/xpigo/xpi/xbuilder"
	"github.com/vhrdtech/xpigo/xpi/xevent"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:7790", "node address to connect to")
	op := flag.String("op", "call", "operation: call, read or write")
	uriFlag := flag.String("uri", "5", "dot-separated resource uri, e.g. 5 or 1.2")
	argsFlag := flag.String("args", "", "hex-encoded argument bytes for call/write")
	reqID := flag.Uint("request-id", 1, "request id to echo in the reply")
	timeout := flag.Duration("timeout", 3*time.Second, "reply wait timeout")
	flag.Parse()

	uri, err := parseUri(*uriFlag)
	if err != nil {
		cos.Exitf("xpictl: %v", err)
	}
	args, err := hex.DecodeString(*argsFlag)
	if err != nil {
		cos.Exitf("xpictl: decoding -args: %v", err)
	}

	conn, err := net.DialTimeout("tcp", *addr, *timeout)
	if err != nil {
		cos.Exitf("%v", cos.Wrapf(err, "xpictl: dial %s", *addr))
	}
	defer conn.Close()

	frame, err := buildRequest(uri, xaddr.RequestId(*reqID), *op, args)
	if err != nil {
		cos.Exitf("xpictl: %v", err)
	}
	if err := tcp.WriteFrame(conn, frame, false); err != nil {
		cos.Exitf("xpictl: write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(*timeout))
	payload, err := tcp.ReadFrame(conn, 4096)
	if err != nil {
		cos.Exitf("xpictl: read reply: %v", err)
	}
	reply, err := xevent.DecodeEvent(nibble.NewReader(payload))
	if err != nil {
		cos.Exitf("xpictl: decoding reply: %v", err)
	}
	printReply(reply)
}

func parseUri(s string) (xaddr.Uri, error) {
	fields := strings.Split(s, ".")
	parts := make([]uint32, len(fields))
	for i, f := range fields {
		n, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return xaddr.Uri{}, fmt.Errorf("parsing uri part %q: %w", f, err)
		}
		parts[i] = uint32(n)
	}
	return xaddr.NewUri(parts...), nil
}

// clientNodeID is the source node id stamped on every request; node id 0
// is reserved and the dispatcher rejects requests that carry it.
const clientNodeID xaddr.NodeId = 33

func buildRequest(uri xaddr.Uri, reqID xaddr.RequestId, op string, args []byte) ([]byte, error) {
	priority, err := xaddr.NewPriority(false, 1)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 256)
	w := nibble.NewWriter(buf)
	b, err := xbuilder.Begin(w).BuildHeaderWith(clientNodeID, priority, xevent.Request)
	if err != nil {
		return nil, err
	}
	bn, err := b.BuildNodeSetWith(xaddr.NodeSet{Kind: xaddr.NodeSetUnicast, Unicast: 44})
	if err != nil {
		return nil, err
	}
	br, err := bn.BuildResourceSetWith(xaddr.ResourceSet{Kind: xaddr.ResourceSetUri, Uri: uri})
	if err != nil {
		return nil, err
	}

	var kind xevent.Kind
	switch op {
	case "call":
		kind = xevent.Kind{Dir: xevent.Request, ReqTag: xevent.TagCall, ArgsSet: [][]byte{args}}
	case "read":
		kind = xevent.Kind{Dir: xevent.Request, ReqTag: xevent.TagRead}
	case "write":
		kind = xevent.Kind{Dir: xevent.Request, ReqTag: xevent.TagWrite, ArgsSet: [][]byte{args}}
	default:
		return nil, fmt.Errorf("unknown -op %q (want call, read or write)", op)
	}

	bk, err := br.BuildKindWith(reqID, 15, kind)
	if err != nil {
		return nil, err
	}
	_, data, _, err := bk.Finish()
	return data, err
}

func printReply(ev xevent.Event) {
	fmt.Printf("reply from node %d, request_id=%d\n", ev.Source, ev.RequestId)
	switch ev.Kind.RepTag {
	case xevent.TagCallResults, xevent.TagReadResults:
		for i, r := range ev.Kind.ByteResult {
			if r.Ok {
				fmt.Printf("  [%d] ok: %s\n", i, hex.EncodeToString(r.Value))
			} else {
				fmt.Printf("  [%d] error: %s\n", i, r.Err)
			}
		}
	case xevent.TagWriteResults:
		for i, r := range ev.Kind.UnitResult {
			if r.Ok {
				fmt.Printf("  [%d] ok\n", i)
			} else {
				fmt.Printf("  [%d] error: %s\n", i, r.Err)
			}
		}
	default:
		fmt.Printf("  reply kind %d\n", ev.Kind.RepTag)
	}
}

