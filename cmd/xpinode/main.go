// Command xpinode runs a single xpi node: a dispatcher backed by the
// demo Point/digit resource table, reachable over TCP, broadcasting a
// heartbeat on a fixed interval. It stands in for ecbridge_fw's `main.rs`
// (sans the STM32 peripherals) as the reference node a client can Call,
// Read and Write against.
package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"time"

	"github.com/vhrdtech/xpigo/cmn"
	"github.com/vhrdtech/xpigo/cmn/cos"
	"github.com/vhrdtech/xpigo/cmn/nlog"
	"github.com/vhrdtech/xpigo/hk"
	"github.com/vhrdtech/xpigo/internal/pointres"
	"github.com/vhrdtech/xpigo/link/tcp"
	"github.com/vhrdtech/xpigo/queue"
	"github.com/vhrdtech/xpigo/xpi/dispatch"
	"github.com/vhrdtech/xpigo/xpi/xaddr"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON config file (optional, defaults apply otherwise)")
	nodeID := flag.Uint("node-id", 44, "this node's xpi node id (1-127)")
	listen := flag.String("listen", ":7790", "address to accept link connections on")
	heartbeat := flag.Duration("heartbeat", 2*time.Second, "broadcast heartbeat interval")
	flag.Parse()

	cfg := cmn.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = cmn.LoadConfig(*configPath)
		if err != nil {
			cos.Exitf("xpinode: %v", err)
		}
	}
	cfg.NodeID = xaddr.NodeId(*nodeID)
	cfg.Listen = *listen

	table, err := pointres.New()
	if err != nil {
		cos.Exitf("xpinode: opening resource table: %v", err)
	}
	defer table.Close()

	out := queue.New("xpinode-outbound", 64, cfg.Dispatch.ReplyMTU)
	d := dispatch.New(cfg.Dispatch, cfg.NodeID, table, out, nil, nil, nil)

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		cos.Exitf("xpinode: listen %s: %v", cfg.Listen, err)
	}
	nlog.Infof("xpinode: node %d listening on %s", cfg.NodeID, cfg.Listen)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	housekeeper := hk.New()
	defer housekeeper.Stop()
	housekeeper.RegisterHeartbeat(*heartbeat, cfg.NodeID, cfg.Dispatch.ReplyMTU, func(frame []byte) error {
		_, err := queueRawFrame(out, frame)
		return err
	})

	go acceptLoop(ctx, ln, d, out, cfg.Dispatch.ReplyMTU)

	<-ctx.Done()
	nlog.Infof("xpinode: shutting down")
	ln.Close()
}

// queueRawFrame copies a pre-built heartbeat frame into the outbound
// queue the same way a dispatcher reply would, since the heartbeat
// bypasses Dispatch entirely.
func queueRawFrame(out *queue.Queue, frame []byte) (int, error) {
	buf, err := out.Reserve(len(frame))
	if err != nil {
		return 0, err
	}
	copy(buf, frame)
	if err := out.Commit(len(frame)); err != nil {
		return 0, err
	}
	return len(frame), nil
}

// acceptLoop serves one link at a time: like the embedded node this
// stands in for, xpinode is a point-to-point bridge, not a multi-client
// broker, so there's exactly one outbound queue and exactly one
// connection draining it at any moment.
func acceptLoop(ctx context.Context, ln net.Listener, d *dispatch.Dispatcher, out *queue.Queue, mtu int) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			nlog.Warningf("xpinode: accept: %v", err)
			continue
		}
		link := tcp.New(conn, tcp.Config{Compress: true}, d, out, mtu*4)
		if err := link.Run(ctx); err != nil && ctx.Err() == nil {
			nlog.Warningf("xpinode: link closed: %v", err)
		}
		conn.Close()
	}
}
