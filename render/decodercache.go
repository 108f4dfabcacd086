// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"sync"

	"github.com/gogpu/reel"
	"github.com/gogpu/reel/decoder"
)

// DecoderCache maps streams to their open decoder instances. It is
// shared by every worker in a backend so that concurrent requests for
// the same stream converge on a single open decoder.
//
// Streams are keyed by pointer identity: two distinct Stream values
// describing the same file are deliberately treated as different
// entries.
type DecoderCache struct {
	mu       sync.Mutex
	decoders map[*reel.Stream]decoder.Decoder
}

// NewDecoderCache returns an empty decoder cache.
func NewDecoderCache() *DecoderCache {
	return &DecoderCache{
		decoders: make(map[*reel.Stream]decoder.Decoder),
	}
}

// Get returns the cached decoder for stream, if any.
func (c *DecoderCache) Get(stream *reel.Stream) (decoder.Decoder, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.decoders[stream]
	return d, ok
}

// Add inserts a decoder for stream, replacing any existing entry.
func (c *DecoderCache) Add(stream *reel.Stream, d decoder.Decoder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decoders[stream] = d
}

// ResolveOrOpen returns the open decoder for stream, creating and
// opening one if the cache has no entry. The whole check-create-open-
// insert sequence runs under the cache lock, so concurrent callers for
// the same stream block until the first one has opened the decoder and
// then share it. Returns nil when no decoder can serve the stream.
func (c *DecoderCache) ResolveOrOpen(stream *reel.Stream) decoder.Decoder {
	if stream == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if d, ok := c.decoders[stream]; ok {
		return d
	}

	footage := stream.Footage()
	if footage == nil {
		return nil
	}
	d, err := decoder.CreateFromID(footage.DecoderID())
	if err != nil {
		reel.Logger().Warn("no decoder for stream",
			"decoder", footage.DecoderID(), "file", footage.Filename())
		return nil
	}
	d.SetStream(stream)
	if err := d.Open(); err != nil {
		reel.Logger().Warn("decoder open failed",
			"decoder", d.ID(), "file", footage.Filename(), "err", err)
		return nil
	}
	c.decoders[stream] = d
	return d
}

// Len returns the number of cached decoders.
func (c *DecoderCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.decoders)
}

// CloseAll closes every cached decoder and empties the cache.
func (c *DecoderCache) CloseAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.decoders {
		d.Close()
	}
	c.decoders = make(map[*reel.Stream]decoder.Decoder)
}
