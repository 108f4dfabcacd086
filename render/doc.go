// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render evaluates render-graph requests on a fixed pool of
// workers.
//
// A Backend dispatches (node, time-range, job) requests to idle workers.
// Each worker is single-threaded: it recursively resolves the node's
// input graph within its own goroutine, consulting the shared decoder
// cache for footage inputs and the optional GPU accelerator for
// accelerated computation. Results propagate back as value tables; a
// completion signal carries the final table plus the originating job id
// to the caller.
//
// Only independent top-level requests are parallelized; the graph walk
// itself is synchronous within one worker. Cancellation is cooperative:
// workers poll the request's token at each recursion step and per-input
// iteration, and a cancelled pass yields an empty table.
package render
