// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package videofile provides a decoder for video-container footage
// (MP4, MOV, MKV, AVI, WebM and friends) backed by OpenCV's VideoCapture.
//
// Retrieval seeks the container to the requested timestamp and decodes one
// frame. When an index store is configured (see SetIndexStore), the
// container's frame rate and frame count are persisted so reopening a file
// skips re-reading them.
package videofile

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"

	"github.com/gogpu/reel"
	"github.com/gogpu/reel/decoder"
	"github.com/gogpu/reel/indexstore"
)

// ID is the registry id of the video-container decoder.
const ID = "videofile"

func init() {
	decoder.Register(ID, func() decoder.Decoder { return New() })
}

// ErrDecodeFailed is returned when the container yields no frame for the
// requested time.
var ErrDecodeFailed = errors.New("videofile: decode failed")

// supportedExtensions is the probe whitelist. OpenCV's capture backends
// will happily chew on arbitrary data, so the extension gate keeps random
// files away from them.
var supportedExtensions = sync.OnceValue(func() map[string]struct{} {
	exts := []string{
		"mp4", "m4v", "mov", "mkv", "avi", "webm",
		"mpg", "mpeg", "wmv", "flv", "ts", "mts",
	}
	m := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		m[e] = struct{}{}
	}
	return m
})

// Package-level index store configuration shared by all instances.
// Decoders are constructed by the registry, so per-instance wiring is not
// an option here.
var (
	storePtr atomic.Pointer[indexstore.Store]
	indexDir atomic.Pointer[string]
)

// SetIndexStore configures the store and directory used for seek indexes.
// Pass a nil store to disable persistence.
func SetIndexStore(store *indexstore.Store, dir string) {
	storePtr.Store(store)
	indexDir.Store(&dir)
}

// VideoFile decodes video-container footage. One instance serves one
// stream and owns one capture handle.
type VideoFile struct {
	mu sync.Mutex

	stream *reel.Stream
	open   bool

	capture    *gocv.VideoCapture
	fps        float64
	frameCount int64
	width      int
	height     int
}

// New creates a closed video-container decoder.
func New() *VideoFile {
	return &VideoFile{}
}

// ID returns the decoder's registry id.
func (d *VideoFile) ID() string { return ID }

// SupportsVideo reports that the decoder produces video frames.
func (d *VideoFile) SupportsVideo() bool { return true }

// IndexFilename returns the per-file index path, or "" when no index
// directory is configured.
func (d *VideoFile) IndexFilename() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	dir := indexDir.Load()
	if dir == nil || *dir == "" || d.stream == nil {
		return ""
	}
	return indexstore.IndexPath(*dir, d.stream.Footage().Filename())
}

// Probe sniffs the footage file as a video container. On success it adds a
// single video stream with the container's native dimensions.
func (d *VideoFile) Probe(f *reel.Footage, cancel *reel.CancelToken) bool {
	if cancel.IsCancelled() {
		return false
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(f.Filename())), ".")
	if _, ok := supportedExtensions()[ext]; !ok {
		return false
	}

	// VideoCapture opens through the OS, not the footage filesystem; stat
	// first so probing a missing file never reaches OpenCV.
	if _, err := f.Fs().Stat(f.Filename()); err != nil {
		return false
	}

	vc, err := gocv.OpenVideoCapture(f.Filename())
	if err != nil {
		return false
	}
	defer vc.Close()

	if !vc.IsOpened() {
		return false
	}

	width := int(vc.Get(gocv.VideoCaptureFrameWidth))
	height := int(vc.Get(gocv.VideoCaptureFrameHeight))
	if width <= 0 || height <= 0 {
		return false
	}

	s := f.AddStream(0)
	s.SetDimensions(width, height)
	s.SetPremultipliedAlpha(false)

	return true
}

// SetStream binds the decoder to the stream it will serve.
func (d *VideoFile) SetStream(s *reel.Stream) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stream = s
}

// Stream returns the bound stream.
func (d *VideoFile) Stream() *reel.Stream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stream
}

// Open acquires the capture handle and loads or builds the seek index.
func (d *VideoFile) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.open {
		return nil
	}
	if d.stream == nil {
		return decoder.ErrNoStream
	}

	footage := d.stream.Footage()
	filename := footage.Filename()

	vc, err := gocv.OpenVideoCapture(filename)
	if err != nil {
		return fmt.Errorf("videofile: open %s: %w", filename, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return decoder.ErrUnsupportedFormat
	}

	d.capture = vc
	d.width = int(vc.Get(gocv.VideoCaptureFrameWidth))
	d.height = int(vc.Get(gocv.VideoCaptureFrameHeight))

	if store := storePtr.Load(); store != nil {
		if idx, ok := store.GetSeekIndex(footage.Fs(), filename); ok {
			d.fps = idx.FPS
			d.frameCount = idx.FrameCount
			d.open = true
			return nil
		}
	}

	d.fps = vc.Get(gocv.VideoCaptureFPS)
	d.frameCount = int64(vc.Get(gocv.VideoCaptureFrameCount))

	if store := storePtr.Load(); store != nil {
		idx := indexstore.SeekIndex{FPS: d.fps, FrameCount: d.frameCount}
		if err := store.PutSeekIndex(footage.Fs(), filename, idx); err != nil {
			reel.Logger().Warn("failed to persist seek index",
				"filename", filename, "err", err)
		}
	}

	d.open = true
	return nil
}

// GetRetrieveState reports Ready for any time once the capture is open;
// out-of-range times clamp to the container's last frame on retrieval.
func (d *VideoFile) GetRetrieveState(reel.Rational) decoder.RetrieveState {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return decoder.StateFailedToOpen
	}
	return decoder.StateReady
}

// RetrieveVideo seeks to time t, decodes one frame and returns it resized
// by the integer divider.
func (d *VideoFile) RetrieveVideo(t reel.Rational, divider int) (*reel.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return nil, decoder.ErrNotOpen
	}

	d.capture.Set(gocv.VideoCapturePosMsec, t.Float64()*1000)

	mat := gocv.NewMat()
	defer mat.Close()

	if !d.capture.Read(&mat) || mat.Empty() {
		return nil, ErrDecodeFailed
	}

	// OpenCV decodes to BGR.
	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(mat, &rgb, gocv.ColorBGRToRGB)

	divider = decoder.EffectiveDivider(divider)
	w := d.width / divider
	h := d.height / divider
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	src := rgb
	if divider > 1 {
		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(rgb, &resized, image.Pt(w, h), 0, 0, gocv.InterpolationArea)
		src = resized
	}

	data, err := src.DataPtrUint8()
	if err != nil {
		return nil, fmt.Errorf("videofile: read frame data: %w", err)
	}

	frame, err := reel.NewFrame(w, h, reel.FormatRGB8)
	if err != nil {
		return nil, err
	}
	frame.Timestamp = t
	copy(frame.Data(), data)

	return frame, nil
}

// Close releases the capture handle. Idempotent.
func (d *VideoFile) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.capture != nil {
		d.capture.Close()
		d.capture = nil
	}
	d.open = false
}
