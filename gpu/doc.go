// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gpu implements the optional GPU execution path for render-graph
// evaluation.
//
// The Proxy owns one GPU context plus four caches: a shader-program cache
// (WGSL compiled to SPIR-V via naga, keyed by node computation shape), a
// texture cache (keyed by frame identity), a pixel-transfer scratch
// buffer, and a still-image cache keyed by stream identity and tagged with
// colorspace, alpha association and resolution divider.
//
// Thread affinity: the proxy's caches are only ever touched from the
// proxy's own dedicated goroutine. Construction and Init happen on the
// goroutine that owns the sharing context; Start then hands the proxy off
// to its execution goroutine, which finishes initialization and signals
// readiness back. This two-phase handoff exists because context-sharing
// rules on some platforms forbid creating a shared context while the
// source context is current elsewhere: create on the owning thread, only
// then migrate ownership.
//
// All entry points are safe to call when no GPU backend is available; they
// return ErrFallbackToCPU and the worker's CPU-computed table is left
// untouched.
package gpu
