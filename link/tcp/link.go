// Package tcp is a TCP-socket link layer carrying xpi events between
// nodes: a 5-byte frame header (4-byte big-endian length, 1 flags byte)
// around each nibble-encoded event, with optional per-frame lz4
// compression for the low end of the mixed-bandwidth links spec.md §1
// describes. It is not a PHY/peripheral driver — just the socket
// read/write loop a dispatcher's host wires its OutboundProducer and
// inbound events through.
package tcp

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/pierrec/lz4/v3"
	"golang.org/x/sync/errgroup"

	"github.com/vhrdtech/xpigo/cmn/cos"
	"github.com/vhrdtech/xpigo/cmn/nlog"
	"github.com/vhrdtech/xpigo/xpi/nibble"
	"github.com/vhrdtech/xpigo/xpi/xevent"
)

// frameHeaderLen matches dispatch.Config.FrameOverhead (5 bytes): a
// 4-byte length prefix plus a 1-byte flags field.
const frameHeaderLen = 5

const flagCompressed = 1 << 0

// Dispatcher is the subset of *dispatch.Dispatcher a Link depends on; an
// interface here avoids a dependency cycle (xpi/dispatch doesn't, and
// shouldn't, know about any particular link implementation).
type Dispatcher interface {
	Dispatch(ev xevent.Event) error
}

// Outbound is the subset of *queue.Queue a Link drains replies from.
type Outbound interface {
	Drain() <-chan []byte
}

// Config controls one Link's framing behavior.
type Config struct {
	// Compress enables lz4 compression of every outbound frame whose
	// compressed form is smaller than its raw form.
	Compress bool
}

// Link runs the read and write loops for one long-lived TCP connection.
type Link struct {
	conn   net.Conn
	cfg    Config
	disp   Dispatcher
	out    Outbound
	readSz int

	// dropErrs accumulates the distinct errors behind dropped inbound
	// frames (malformed decode, dispatch failure), bounded the same way
	// a link's counters are in the original firmware.
	dropErrs cos.Errs
}

// New wraps an established connection. readBufSize bounds the largest
// frame payload the read loop will accept.
func New(conn net.Conn, cfg Config, disp Dispatcher, out Outbound, readBufSize int) *Link {
	return &Link{conn: conn, cfg: cfg, disp: disp, out: out, readSz: readBufSize}
}

// Run drives the read and write loops until ctx is canceled or either
// loop hits a non-recoverable connection error.
func (l *Link) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return l.readLoop(ctx) })
	g.Go(func() error { return l.writeLoop(ctx) })
	return g.Wait()
}

// DroppedFrames reports how many distinct malformed-frame/dispatch errors
// this link has observed and discarded, for host-side monitoring.
func (l *Link) DroppedFrames() int { return l.dropErrs.Cnt() }

func (l *Link) readLoop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		payload, err := readFrame(l.conn, l.readSz)
		if err != nil {
			return cos.Wrapf(err, "tcp: read frame")
		}
		ev, err := xevent.DecodeEvent(nibble.NewReader(payload))
		if err != nil {
			l.dropErrs.Add(err)
			nlog.Warningf("tcp: dropping malformed frame (%d distinct drop errors so far): %v", l.dropErrs.Cnt(), err)
			continue
		}
		if err := l.disp.Dispatch(ev); err != nil {
			l.dropErrs.Add(err)
			nlog.Warningf("tcp: dispatch error (%d distinct drop errors so far): %v", l.dropErrs.Cnt(), err)
		}
	}
}

func (l *Link) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload := <-l.out.Drain():
			if err := writeFrame(l.conn, payload, l.cfg.Compress); err != nil {
				return cos.Wrapf(err, "tcp: write frame")
			}
		}
	}
}

// WriteFrame frames and writes one event payload, for callers (such as a
// CLI client) that send requests without running a full Link.
func WriteFrame(w io.Writer, payload []byte, compress bool) error {
	return writeFrame(w, payload, compress)
}

// ReadFrame reads and unframes one event payload, for callers that read
// replies without running a full Link.
func ReadFrame(r io.Reader, maxLen int) ([]byte, error) {
	return readFrame(r, maxLen)
}

func writeFrame(w io.Writer, payload []byte, compress bool) error {
	body := payload
	flags := byte(0)
	if compress {
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(payload); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}
		if buf.Len() < len(payload) {
			body = buf.Bytes()
			flags |= flagCompressed
		}
	}
	header := make([]byte, frameHeaderLen)
	binary.BigEndian.PutUint32(header, uint32(len(body)))
	header[4] = flags
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

func readFrame(r io.Reader, maxLen int) ([]byte, error) {
	header := make([]byte, frameHeaderLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(header)
	if maxLen > 0 && int(n) > maxLen {
		return nil, fmt.Errorf("tcp: frame length %d exceeds max %d", n, maxLen)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	if header[4]&flagCompressed != 0 {
		zr := lz4.NewReader(bytes.NewReader(body))
		raw, err := io.ReadAll(zr)
		if err != nil {
			return nil, err
		}
		return raw, nil
	}
	return body, nil
}
