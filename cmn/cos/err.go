// Package cos provides common low-level types and utilities shared by the
// xpigo packages (wire codec, addressing, dispatcher, link layer).
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package cos

import (
	"errors"
	"fmt"
	"os"
	"sync"
	ratomic "sync/atomic"

	pkgerrors "github.com/pkg/errors"
	"github.com/vhrdtech/xpigo/cmn/debug"
)

type (
	// ErrNotFound is returned when a resource, node, or stream lookup misses.
	ErrNotFound struct {
		what string
	}
	// Errs accumulates a bounded number of distinct errors observed while
	// processing a batch (e.g. dropped inbound frames on a link), without
	// allocating per-occurrence.
	Errs struct {
		errs []error
		cnt  int64
		mu   sync.Mutex
	}
)

const maxErrs = 4

func NewErrNotFound(format string, a ...any) *ErrNotFound {
	return &ErrNotFound{fmt.Sprintf(format, a...)}
}

func (e *ErrNotFound) Error() string { return e.what + " does not exist" }

func IsErrNotFound(err error) bool {
	_, ok := err.(*ErrNotFound)
	return ok
}

func (e *Errs) Add(err error) {
	debug.Assert(err != nil)
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, added := range e.errs {
		if added.Error() == err.Error() {
			return
		}
	}
	if len(e.errs) < maxErrs {
		e.errs = append(e.errs, err)
		ratomic.StoreInt64(&e.cnt, int64(len(e.errs)))
	}
}

func (e *Errs) Cnt() int { return int(ratomic.LoadInt64(&e.cnt)) }

func (e *Errs) JoinErr() (cnt int, err error) {
	if cnt = e.Cnt(); cnt > 0 {
		e.mu.Lock()
		err = errors.Join(e.errs...) // up to maxErrs
		e.mu.Unlock()
	}
	return
}

// Error renders the first accumulated error plus a count of the rest.
func (e *Errs) Error() (s string) {
	var (
		err error
		cnt = e.Cnt()
	)
	if cnt == 0 {
		return
	}
	e.mu.Lock()
	if cnt = len(e.errs); cnt > 0 {
		err = e.errs[0]
	}
	e.mu.Unlock()
	if err == nil {
		return
	}
	if cnt > 1 {
		err = fmt.Errorf("%v (and %d more error%s)", err, cnt-1, plural(cnt-1))
	}
	s = err.Error()
	return
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

const fatalPrefix = "FATAL ERROR: "

// Exitf prints a fatal message and terminates the process; used by command
// binaries (cmd/xpinode, cmd/xpictl) on unrecoverable startup errors.
func Exitf(f string, a ...any) {
	fmt.Fprintln(os.Stderr, fmt.Sprintf(fatalPrefix+f, a...))
	os.Exit(1)
}

// Wrapf adds stack context to an internal (non-protocol) error.
func Wrapf(err error, format string, a ...any) error {
	return pkgerrors.Wrapf(err, format, a...)
}
