//go:build !mono

// Package mono: portable fallback clock source, used unless the module is
// built with `-tags mono` (see fast_nanotime.go).
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package mono

import "time"

var start = time.Now()

func NanoTime() int64 { return time.Since(start).Nanoseconds() }
