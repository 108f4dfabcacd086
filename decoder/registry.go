// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package decoder

import (
	"sync"

	"github.com/gogpu/reel"
	"github.com/gogpu/reel/indexstore"
)

// registry maps decoder ids to constructors. Probe order follows
// registration order, so packages that should win ties (still-image before
// video containers, which also sniff single images) register first.
var (
	registryMu sync.RWMutex
	registry   []registration
)

type registration struct {
	id   string
	ctor func() Decoder
}

// Register adds a decoder constructor under the given id. Registering an
// existing id replaces the previous constructor but keeps its probe
// position. Typically called from a concrete decoder package's init.
func Register(id string, ctor func() Decoder) {
	registryMu.Lock()
	defer registryMu.Unlock()

	for i, r := range registry {
		if r.id == id {
			registry[i].ctor = ctor
			return
		}
	}
	registry = append(registry, registration{id: id, ctor: ctor})
}

// CreateFromID constructs a fresh decoder instance for the given id.
func CreateFromID(id string) (Decoder, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, r := range registry {
		if r.id == id {
			return r.ctor(), nil
		}
	}
	return nil, ErrUnknownDecoder
}

// IDs returns the registered decoder ids in probe order.
func IDs() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	ids := make([]string, len(registry))
	for i, r := range registry {
		ids[i] = r.id
	}
	return ids
}

// Probe runs each registered decoder's probe against the footage in
// registration order until one claims it. On success the footage's decoder
// id is set and its streams are populated. Returns false if no decoder
// claims the footage or the probe was cancelled.
func Probe(f *reel.Footage, cancel *reel.CancelToken) bool {
	registryMu.RLock()
	regs := make([]registration, len(registry))
	copy(regs, registry)
	registryMu.RUnlock()

	for _, r := range regs {
		if cancel.IsCancelled() {
			return false
		}

		f.ClearStreams()
		d := r.ctor()
		if d.Probe(f, cancel) {
			f.SetDecoderID(r.id)
			return true
		}
	}

	// Leave no trace of an earlier successful probe behind.
	f.SetDecoderID("")
	f.ClearStreams()
	return false
}

// ProbeCached is Probe with a persisted metadata cache in front. If the
// store holds a record for the footage's file that is still current
// (size and mtime match), the streams are restored from it without
// touching any format library. A successful fresh probe is written back to
// the store; store write failures only log, they never fail the probe.
func ProbeCached(f *reel.Footage, cancel *reel.CancelToken, store *indexstore.Store) bool {
	if store == nil {
		return Probe(f, cancel)
	}

	if rec, ok := store.GetProbe(f.Fs(), f.Filename()); ok {
		f.ClearStreams()
		f.SetDecoderID(rec.DecoderID)
		for _, sr := range rec.Streams {
			s := f.AddStream(sr.Index)
			s.SetDimensions(sr.Width, sr.Height)
			s.SetPremultipliedAlpha(sr.PremultipliedAlpha)
			s.SetStill(sr.Still)
		}
		reel.Logger().Debug("probe served from index store",
			"filename", f.Filename(), "decoder", rec.DecoderID)
		return true
	}

	if !Probe(f, cancel) {
		return false
	}

	rec := indexstore.ProbeRecord{DecoderID: f.DecoderID()}
	for _, s := range f.Streams() {
		rec.Streams = append(rec.Streams, indexstore.StreamRecord{
			Index:              s.Index(),
			Width:              s.Width(),
			Height:             s.Height(),
			PremultipliedAlpha: s.PremultipliedAlpha(),
			Still:              s.IsStill(),
		})
	}
	if err := store.PutProbe(f.Fs(), f.Filename(), rec); err != nil {
		reel.Logger().Warn("failed to persist probe record",
			"filename", f.Filename(), "err", err)
	}
	return true
}
