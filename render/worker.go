// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"

	"github.com/gogpu/reel"
	"github.com/gogpu/reel/decoder"
	"github.com/gogpu/reel/gpu"
)

// Accelerator offloads parts of a worker's evaluation to the GPU. Both
// methods may return gpu.ErrFallbackToCPU to decline the work, in which
// case the worker silently falls back to its CPU path; any other error
// is logged and also falls back.
//
// *gpu.Proxy satisfies this interface.
type Accelerator interface {
	// FrameToValue retrieves a frame for a footage input through the
	// accelerator, reusing any still-image cache it maintains, and
	// pushes the result onto table.
	FrameToValue(dec decoder.Decoder, stream *reel.Stream, r reel.TimeRange, divider int, table *reel.NodeValueTable) error

	// RunNodeAccelerated evaluates node on the GPU from the resolved
	// input database, pushing the result onto table.
	RunNodeAccelerated(node reel.Node, r reel.TimeRange, db *reel.NodeValueDatabase, table *reel.NodeValueTable) error
}

// FootageUnavailable is emitted when a footage input cannot deliver
// pixels for a requested range: the stream's decoder reported a
// non-ready state. Exactly one notification is emitted per failing
// footage input per pass; the pass itself continues with a gap.
type FootageUnavailable struct {
	Stream *reel.Stream
	State  decoder.RetrieveState
	Range  reel.TimeRange
	Time   reel.Rational
}

// Worker evaluates one render request at a time. It owns no goroutine of
// its own; the backend calls Render from the goroutine it dedicates to
// the worker. All per-pass state lives on the worker, which is why a
// worker must never be shared between concurrent requests.
type Worker struct {
	id       int
	decoders *DecoderCache
	accel    Accelerator
	divider  int

	started bool

	// per-pass state, valid only inside Render
	path    reel.NodeDependency
	cancel  *reel.CancelToken
	onStack map[reel.Node]struct{}
	notify  func(FootageUnavailable)
}

// NewWorker creates a worker sharing the given decoder cache. accel and
// notify may be nil.
func NewWorker(id int, decoders *DecoderCache, accel Accelerator, divider int, notify func(FootageUnavailable)) *Worker {
	if divider < 1 {
		divider = 1
	}
	return &Worker{
		id:       id,
		decoders: decoders,
		accel:    accel,
		divider:  divider,
		notify:   notify,
	}
}

// Init prepares the worker for rendering. It is idempotent; only the
// first call does any work.
func (w *Worker) Init() error {
	if w.started {
		return nil
	}
	w.started = true
	reel.Logger().Debug("render worker started", "worker", w.id)
	return nil
}

// IsStarted reports whether Init has run.
func (w *Worker) IsStarted() bool { return w.started }

// Close releases the worker. The shared decoder cache is owned by the
// backend and is not touched here.
func (w *Worker) Close() {
	if !w.started {
		return
	}
	w.started = false
	reel.Logger().Debug("render worker stopped", "worker", w.id)
}

// Render evaluates dep's node over dep's range and returns the
// resulting table. cancel may be nil. A cancelled pass returns an
// empty table.
func (w *Worker) Render(dep reel.NodeDependency, cancel *reel.CancelToken) reel.NodeValueTable {
	w.path = dep
	w.cancel = cancel
	w.onStack = make(map[reel.Node]struct{})
	defer func() {
		w.onStack = nil
		w.cancel = nil
	}()
	return w.processNode(dep)
}

// processNode evaluates one node over one range, recursing through its
// input graph.
func (w *Worker) processNode(dep reel.NodeDependency) reel.NodeValueTable {
	var table reel.NodeValueTable

	if dep.Node == nil || w.cancel.IsCancelled() {
		return table
	}

	// The graph is required to be acyclic; a node already on the
	// recursion stack means the caller violated that, so break the loop
	// and degrade to an empty result rather than recurse forever.
	if _, ok := w.onStack[dep.Node]; ok {
		reel.Logger().Warn("cycle detected in render graph", "worker", w.id)
		return table
	}
	w.onStack[dep.Node] = struct{}{}
	defer delete(w.onStack, dep.Node)

	if track, ok := dep.Node.(reel.Track); ok {
		return w.renderTrack(track, dep.Range)
	}

	db := w.generateDatabase(dep.Node, dep.Range)
	if w.cancel.IsCancelled() {
		return table
	}

	table = dep.Node.Value(db)
	w.runAccelerated(dep.Node, dep.Range, db, &table)
	return table
}

// renderTrack splits the requested range across the blocks overlapping
// it and merges the per-block partial tables with the track's own rule.
// Times outside every block contribute nothing.
func (w *Worker) renderTrack(track reel.Track, r reel.TimeRange) reel.NodeValueTable {
	blocks := track.BlocksIn(r)
	partials := make([]reel.NodeValueTable, 0, len(blocks))
	for _, b := range blocks {
		if w.cancel.IsCancelled() {
			return reel.NodeValueTable{}
		}
		sub := r.Intersect(b.Range())
		if sub.IsEmpty() {
			continue
		}
		partials = append(partials, w.processNode(reel.NodeDependency{
			Node:  b.Node(),
			Range: sub,
		}))
	}
	return track.MergeBlocks(partials)
}

// generateDatabase resolves every input of node over the (per-input
// adjusted) range into a value table.
func (w *Worker) generateDatabase(node reel.Node, r reel.TimeRange) *reel.NodeValueDatabase {
	db := reel.NewNodeValueDatabase()

	for _, in := range node.Inputs() {
		if w.cancel.IsCancelled() {
			return db
		}

		inputTime := node.InputTimeAdjustment(in, r)
		table := w.processInput(in, inputTime)

		if in.Type() == reel.DataTypeFootage {
			w.resolveFootage(in, inputTime, &table)
		}

		db.Insert(in, table)
	}
	return db
}

// processInput produces the base table for one input: the upstream
// node's table when connected, otherwise the input's own value.
func (w *Worker) processInput(in *reel.Input, r reel.TimeRange) reel.NodeValueTable {
	if in.IsConnected() {
		return w.processNode(reel.NodeDependency{Node: in.ConnectedNode(), Range: r})
	}
	var table reel.NodeValueTable
	if v := in.ValueAt(r.In()); v != nil {
		table.Push(in.Type(), v)
	}
	return table
}

// resolveFootage turns a footage input's stream binding into decoded
// pixels. Failures degrade to a gap: the table is left without a frame
// entry and, for non-ready decoder states, exactly one notification is
// emitted.
func (w *Worker) resolveFootage(in *reel.Input, r reel.TimeRange, table *reel.NodeValueTable) {
	stream := w.streamFromInput(in)
	if stream == nil {
		return
	}

	if w.cancel.IsCancelled() {
		return
	}

	dec := w.decoders.ResolveOrOpen(stream)
	if dec == nil || !dec.SupportsVideo() {
		return
	}

	// Readiness is judged at the end of the requested range: a stream
	// still indexing up to the range's last instant cannot serve it.
	state := dec.GetRetrieveState(r.Out())
	if state != decoder.StateReady {
		w.reportUnavailable(stream, state, r)
		return
	}

	w.frameToValue(dec, stream, r, table)
}

// streamFromInput samples the input's stream binding. Stream bindings
// are not time-varying, so they are sampled at time zero.
func (w *Worker) streamFromInput(in *reel.Input) *reel.Stream {
	v := in.ValueAt(reel.Rational{})
	stream, _ := v.(*reel.Stream)
	return stream
}

// frameToValue retrieves pixels for one footage input, preferring the
// accelerator's path (which may serve a cached still without touching
// the decoder) and falling back to a direct decode.
func (w *Worker) frameToValue(dec decoder.Decoder, stream *reel.Stream, r reel.TimeRange, table *reel.NodeValueTable) {
	if w.accel != nil {
		err := w.accel.FrameToValue(dec, stream, r, w.divider, table)
		if err == nil {
			return
		}
		if !errors.Is(err, gpu.ErrFallbackToCPU) {
			reel.Logger().Warn("accelerated frame retrieval failed",
				"worker", w.id, "err", err)
		}
	}

	frame, err := dec.RetrieveVideo(r.In(), w.divider)
	if err != nil {
		reel.Logger().Warn("frame retrieval failed",
			"worker", w.id, "decoder", dec.ID(), "err", err)
		return
	}
	table.Push(reel.DataTypeFrame, frame)
}

// runAccelerated offers the evaluated node to the accelerator. The CPU
// result already in table stands if the accelerator declines or fails.
func (w *Worker) runAccelerated(node reel.Node, r reel.TimeRange, db *reel.NodeValueDatabase, table *reel.NodeValueTable) {
	if w.accel == nil {
		return
	}
	err := w.accel.RunNodeAccelerated(node, r, db, table)
	if err == nil || errors.Is(err, gpu.ErrFallbackToCPU) {
		return
	}
	reel.Logger().Warn("accelerated node evaluation failed",
		"worker", w.id, "err", err)
}

func (w *Worker) reportUnavailable(stream *reel.Stream, state decoder.RetrieveState, r reel.TimeRange) {
	reel.Logger().Info("footage unavailable",
		"worker", w.id, "state", state, "at", r.Out())
	if w.notify != nil {
		w.notify(FootageUnavailable{
			Stream: stream,
			State:  state,
			Range:  w.path.Range,
			Time:   r.Out(),
		})
	}
}
