// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package decoder defines the pluggable decoder contract and the registry
// that maps decoder ids to constructors.
//
// A decoder is a stateful adapter bound to exactly one stream for its
// lifetime: it turns the stream plus a timestamp into a decoded frame.
// Concrete decoders (decoder/stillimage, decoder/videofile) register
// themselves on import:
//
//	import (
//	    _ "github.com/gogpu/reel/decoder/stillimage"
//	    _ "github.com/gogpu/reel/decoder/videofile"
//	)
package decoder

import (
	"errors"

	"github.com/gogpu/reel"
)

// Decoder errors.
var (
	// ErrUnknownDecoder is returned when no decoder is registered under
	// the requested id.
	ErrUnknownDecoder = errors.New("decoder: unknown decoder id")

	// ErrNotOpen is returned when retrieval is attempted on a decoder that
	// has not been opened successfully.
	ErrNotOpen = errors.New("decoder: decoder is not open")

	// ErrNoStream is returned when a decoder is opened without a bound
	// stream.
	ErrNoStream = errors.New("decoder: no stream bound")

	// ErrUnsupportedFormat is returned by Open when the file's format
	// cannot be handled. Callers log it and treat the stream as
	// unavailable; it never aborts an evaluation.
	ErrUnsupportedFormat = errors.New("decoder: unsupported format")
)

// RetrieveState describes whether a decoder can serve a retrieval at a
// given time. It is queried before every retrieval; a non-Ready state means
// the caller must not retrieve and instead reports the footage as
// unavailable for that moment.
type RetrieveState uint8

const (
	// StateUnknown means the decoder has not been asked to open yet.
	StateUnknown RetrieveState = iota

	// StateReady means a retrieval at the queried time will succeed.
	StateReady

	// StateFailedToOpen means the underlying handle could not be acquired;
	// the stream is unavailable for this session.
	StateFailedToOpen

	// StateIndexing means the decoder is still building its seek index and
	// cannot serve the queried time yet.
	StateIndexing
)

// String returns a human-readable name for the state.
func (s RetrieveState) String() string {
	switch s {
	case StateReady:
		return "Ready"
	case StateFailedToOpen:
		return "FailedToOpen"
	case StateIndexing:
		return "Indexing"
	default:
		return "Unknown"
	}
}

// Decoder is the capability contract every pluggable decoder implements.
//
// Lifecycle: Closed -> (Probe, transient) -> Open -> Closed. Probe never
// retains an open handle; Open performs the real, possibly expensive,
// format handshake. A decoder is opened at most once before being closed,
// and Close is idempotent.
//
// All methods serialize on an internal mutex. A single decoder is not
// expected to be called from more than one worker at a time, but the
// locking prevents corruption if it ever is.
type Decoder interface {
	// ID returns the decoder's registry id (e.g. "stillimage").
	ID() string

	// Probe is a lightweight format sniff against the footage's file.
	// Implementations must reject fast on a file-extension whitelist
	// before attempting any deeper format-specific open: some underlying
	// format libraries crash on mismatched input, so the extension gate is
	// a safety requirement, not an optimization.
	//
	// On success, Probe adds streams to the footage and populates their
	// metadata (dimensions, index, alpha association) without keeping any
	// handle open. Probe polls cancel and returns false when cancelled.
	Probe(f *reel.Footage, cancel *reel.CancelToken) bool

	// SetStream binds the decoder to the stream it will serve. Must be
	// called before Open.
	SetStream(s *reel.Stream)

	// Stream returns the bound stream, or nil.
	Stream() *reel.Stream

	// Open acquires the underlying format handle. Failure is not fatal:
	// the caller logs it and treats the stream as unavailable.
	Open() error

	// GetRetrieveState reports whether RetrieveVideo can serve time t.
	GetRetrieveState(t reel.Rational) RetrieveState

	// RetrieveVideo decodes the frame at time t, scaled down by the
	// integer divider (resized, not subsampled, to preserve fidelity at
	// proxy resolutions). divider <= 1 means native resolution.
	RetrieveVideo(t reel.Rational, divider int) (*reel.Frame, error)

	// SupportsVideo reports whether the decoder produces video frames.
	SupportsVideo() bool

	// IndexFilename returns the path of the decoder's seek-index file, or
	// "" if the format needs no index.
	IndexFilename() string

	// Close releases all underlying resources. Idempotent.
	Close()
}

// EffectiveDivider clamps a retrieval divider to a sane value.
// Dividers below 1 behave as native resolution.
func EffectiveDivider(divider int) int {
	if divider < 1 {
		return 1
	}
	return divider
}
