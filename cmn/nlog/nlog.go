// Package nlog is the xpigo logger: leveled, timestamped, buffered lines
// flushed on a ticker or on demand. Trimmed from aistore's cmn/nlog down to
// the parts that apply to a library/firmware-style target: no log-file
// rotation, no -logtostderr flags, just a severity-gated io.Writer sink.
/*
 * Copyright (c) 2023, NVIDIA CORPORATION. All rights reserved.
 */
package nlog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// flushInterval matches how often the background flusher syncs the
// buffered writer to its sink; Flush() forces one out of band.
const flushInterval = 2 * time.Second

type severity int

const (
	sevInfo severity = iota
	sevWarn
	sevErr
)

func (s severity) String() string {
	switch s {
	case sevWarn:
		return "W"
	case sevErr:
		return "E"
	default:
		return "I"
	}
}

var (
	mu      sync.Mutex
	out     = bufio.NewWriter(io.Writer(os.Stderr))
	level   severity = sevInfo
	titles  string
	flusher sync.Once
)

// SetOutput redirects all log output; nil resets to os.Stderr. Any lines
// buffered for the previous sink are flushed first.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out.Flush()
	if w == nil {
		w = os.Stderr
	}
	out = bufio.NewWriter(w)
}

// startFlusher launches the background ticker that periodically syncs
// buffered lines to the sink, once per process.
func startFlusher() {
	flusher.Do(func() {
		go func() {
			t := time.NewTicker(flushInterval)
			for range t.C {
				Flush()
			}
		}()
	})
}

// SetTitle prefixes every line, e.g. with a node ID.
func SetTitle(s string) {
	mu.Lock()
	titles = s
	mu.Unlock()
}

func log(sev severity, format string, args ...any) {
	startFlusher()
	mu.Lock()
	defer mu.Unlock()
	if sev < level {
		return
	}
	ts := time.Now().Format("15:04:05.000000")
	prefix := ""
	if titles != "" {
		prefix = titles + " "
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	fmt.Fprintf(out, "%s%s %s %s\n", prefix, sev, ts, msg)
	if sev >= sevErr {
		out.Flush()
	}
}

func Infof(format string, args ...any)    { log(sevInfo, format, args...) }
func Warningf(format string, args ...any) { log(sevWarn, format, args...) }
func Errorf(format string, args ...any)   { log(sevErr, format, args...) }

func Infoln(args ...any)    { log(sevInfo, "%s", fmt.Sprint(args...)) }
func Warningln(args ...any) { log(sevWarn, "%s", fmt.Sprint(args...)) }
func Errorln(args ...any)   { log(sevErr, "%s", fmt.Sprint(args...)) }

// Flush syncs any buffered lines to the current sink immediately, rather
// than waiting for the background flusher's next tick.
func Flush(...bool) {
	mu.Lock()
	defer mu.Unlock()
	out.Flush()
}
