//go:build mono

// Package mono provides the monotonic clock source the dispatcher's host
// is expected to supply (spec §1: "a monotonic clock source"). This file
// is the aistore-style `go:linkname` fast path, built only with `-tags
// mono`; the default build (see source.go) uses a portable time.Now()
// based implementation so the module builds out of the box without it.
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package mono

import (
	_ "unsafe" // for go:linkname
)

// https://golang.org/pkg/runtime/?m=all#nanotime
//
//go:linkname NanoTime runtime.nanotime
func NanoTime() int64
