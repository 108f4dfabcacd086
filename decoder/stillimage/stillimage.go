// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package stillimage provides a decoder for still-image footage
// (PNG, JPEG, GIF, BMP, TIFF, WebP).
//
// Still images decode once on Open into a native-resolution buffer;
// every retrieval resizes from that buffer, so seeking is free and the
// image file is only read once per decoder lifetime.
package stillimage

import (
	"image"
	"image/draw"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gogpu/reel"
	"github.com/gogpu/reel/decoder"

	// Registered image formats. The video-container decoder also sniffs
	// single images on some platforms; stillimage registers first so these
	// win the probe.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	xdraw "golang.org/x/image/draw"
)

// ID is the registry id of the still-image decoder.
const ID = "stillimage"

func init() {
	decoder.Register(ID, func() decoder.Decoder { return New() })
}

// supportedExtensions is the probe whitelist. Extension pre-filtering is a
// safety gate: handing arbitrary container data to an image parser must be
// avoided before the format is plausible.
var supportedExtensions = sync.OnceValue(func() map[string]struct{} {
	exts := []string{"png", "jpg", "jpeg", "gif", "bmp", "tif", "tiff", "webp"}
	m := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		m[e] = struct{}{}
	}
	return m
})

// StillImage decodes still-image footage. One instance serves one stream.
type StillImage struct {
	mu sync.Mutex

	stream *reel.Stream
	open   bool

	// Native-resolution pixels, decoded once on Open.
	native *image.RGBA
	width  int
	height int
}

// New creates a closed still-image decoder.
func New() *StillImage {
	return &StillImage{}
}

// ID returns the decoder's registry id.
func (d *StillImage) ID() string { return ID }

// SupportsVideo reports that still images produce video frames.
func (d *StillImage) SupportsVideo() bool { return true }

// IndexFilename returns "" because still images need no seek index.
func (d *StillImage) IndexFilename() string { return "" }

// Probe sniffs the footage file as a still image. On success it adds a
// single stream with the image's dimensions.
func (d *StillImage) Probe(f *reel.Footage, cancel *reel.CancelToken) bool {
	if cancel.IsCancelled() {
		return false
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(f.Filename())), ".")
	if _, ok := supportedExtensions()[ext]; !ok {
		return false
	}

	file, err := f.Fs().Open(f.Filename())
	if err != nil {
		return false
	}
	defer file.Close()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return false
	}

	// Images always carry exactly one stream.
	s := f.AddStream(0)
	s.SetDimensions(cfg.Width, cfg.Height)
	s.SetStill(true)

	// Decoded stills are stored premultiplied. Known approximation: for
	// 8-bit sources with alpha, premultiplying quantizes the color
	// channels slightly; the alternative (straight alpha end to end) is a
	// larger change tracked separately.
	s.SetPremultipliedAlpha(true)

	return true
}

// SetStream binds the decoder to the stream it will serve.
func (d *StillImage) SetStream(s *reel.Stream) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stream = s
}

// Stream returns the bound stream.
func (d *StillImage) Stream() *reel.Stream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stream
}

// Open decodes the image into the native-resolution buffer.
func (d *StillImage) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.open {
		return nil
	}
	if d.stream == nil {
		return decoder.ErrNoStream
	}

	footage := d.stream.Footage()

	file, err := footage.Fs().Open(footage.Filename())
	if err != nil {
		return err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return decoder.ErrUnsupportedFormat
	}

	// Normalize to premultiplied RGBA regardless of the source model.
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	d.native = rgba
	d.width = bounds.Dx()
	d.height = bounds.Dy()
	d.open = true

	return nil
}

// GetRetrieveState reports Ready once the decoder is open. Still images
// serve any timestamp, so the time argument is ignored.
func (d *StillImage) GetRetrieveState(reel.Rational) decoder.RetrieveState {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return decoder.StateFailedToOpen
	}
	return decoder.StateReady
}

// RetrieveVideo returns the image resized by the integer divider.
// Resizing (not subsampling) preserves visual fidelity at proxy
// resolutions.
func (d *StillImage) RetrieveVideo(t reel.Rational, divider int) (*reel.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return nil, decoder.ErrNotOpen
	}

	divider = decoder.EffectiveDivider(divider)
	w := d.width / divider
	h := d.height / divider
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	frame, err := reel.NewFrame(w, h, reel.FormatRGBA8)
	if err != nil {
		return nil, err
	}
	frame.Timestamp = t

	if divider == 1 {
		copyRGBA(frame, d.native)
		return frame, nil
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), d.native, d.native.Bounds(), xdraw.Src, nil)
	copyRGBA(frame, dst)

	return frame, nil
}

// Close releases the decoded buffer. Idempotent.
func (d *StillImage) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.native = nil
	d.open = false
}

// copyRGBA copies src pixels into the frame row by row, collapsing any
// source stride padding.
func copyRGBA(frame *reel.Frame, src *image.RGBA) {
	stride := frame.Stride()
	data := frame.Data()
	for y := 0; y < frame.Height(); y++ {
		copy(data[y*stride:(y+1)*stride], src.Pix[y*src.Stride:y*src.Stride+stride])
	}
}
