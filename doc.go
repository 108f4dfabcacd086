// Package reel implements the render-graph evaluation engine of a
// non-linear video editor.
//
// Given a point (or range) in timeline time, the engine walks a directed
// acyclic graph of processing nodes, resolves each node's time-varying
// inputs, pulls decoded media frames from a shared decoder cache, and
// produces a composited output value. Evaluation can optionally be
// accelerated by a GPU execution path (see the gpu sub-package); when no
// GPU backend is available, rendering transparently stays on the CPU.
//
// The root package defines the data model shared by the sub-packages:
// rational timeline time and half-open time ranges, pixel formats and
// frames, footage/stream identities, the node and input contracts, and
// the transient value containers produced during evaluation.
//
// Sub-packages:
//
//   - render: worker pool, recursive graph walk, decoder cache
//   - decoder: pluggable decoder contract and registry
//   - decoder/stillimage: still-image decoder (png/jpeg/bmp/tiff/webp)
//   - decoder/videofile: video-container decoder (OpenCV VideoCapture)
//   - gpu: GPU proxy with shader, texture and still-image caches
//   - cache: generic LRU render cache
//   - indexstore: persisted probe metadata and seek indexes
//
// By default reel produces no log output. Call [SetLogger] to enable
// logging across all sub-packages.
package reel
