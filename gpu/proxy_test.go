// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"bytes"
	"errors"
	"runtime"
	"testing"

	"github.com/gogpu/reel"
	"github.com/gogpu/reel/decoder"
)

// stubDecoder serves a fixed RGBA frame and counts retrievals.
type stubDecoder struct {
	retrieves int
	pixels    []byte
	width     int
	height    int
}

func newStubDecoder(w, h int) *stubDecoder {
	px := make([]byte, w*h*4)
	for i := range px {
		px[i] = byte(i)
	}
	return &stubDecoder{pixels: px, width: w, height: h}
}

func (d *stubDecoder) ID() string                                  { return "stub" }
func (d *stubDecoder) Probe(*reel.Footage, *reel.CancelToken) bool { return true }
func (d *stubDecoder) SetStream(*reel.Stream)                      {}
func (d *stubDecoder) Stream() *reel.Stream                        { return nil }
func (d *stubDecoder) Open() error                                 { return nil }
func (d *stubDecoder) SupportsVideo() bool                         { return true }
func (d *stubDecoder) IndexFilename() string                       { return "" }
func (d *stubDecoder) Close()                                      {}

func (d *stubDecoder) GetRetrieveState(reel.Rational) decoder.RetrieveState {
	return decoder.StateReady
}

func (d *stubDecoder) RetrieveVideo(t reel.Rational, divider int) (*reel.Frame, error) {
	d.retrieves++
	frame, err := reel.NewFrame(d.width, d.height, reel.FormatRGBA8)
	if err != nil {
		return nil, err
	}
	frame.Timestamp = t
	copy(frame.Data(), d.pixels)
	return frame, nil
}

// plainNode has no GPU path.
type plainNode struct{}

func (plainNode) Inputs() []*reel.Input { return nil }
func (plainNode) Value(*reel.NodeValueDatabase) reel.NodeValueTable {
	return reel.NodeValueTable{}
}
func (plainNode) InputTimeAdjustment(in *reel.Input, r reel.TimeRange) reel.TimeRange {
	return r
}

func startedProxy(t *testing.T, opts ...ProxyOption) *Proxy {
	t.Helper()
	p := NewProxy(opts...)
	if err := p.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(p.Close)
	return p
}

func stillStream() *reel.Stream {
	f := reel.NewFootage("/media/still.png")
	s := f.AddStream(0)
	s.SetDimensions(4, 2)
	s.SetStill(true)
	s.SetPremultipliedAlpha(true)
	return s
}

func singleFrameRange() reel.TimeRange {
	return reel.NewTimeRange(reel.Rational{}, reel.NewRational(1, 30))
}

func TestProxyLifecycle(t *testing.T) {
	p := NewProxy()

	if err := p.Start(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Start before Init: err = %v, want ErrNotInitialized", err)
	}
	if err := p.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start: err = %v, want ErrAlreadyStarted", err)
	}

	p.Close()
	p.Close() // idempotent

	var table reel.NodeValueTable
	err := p.FrameToValue(newStubDecoder(4, 2), stillStream(), singleFrameRange(), 1, &table)
	if !errors.Is(err, ErrClosed) {
		t.Errorf("FrameToValue after Close: err = %v, want ErrClosed", err)
	}
}

// failingExecutor refuses to initialize.
type failingExecutor struct{}

func (failingExecutor) Init(DeviceHandle) error { return errors.New("no device") }
func (failingExecutor) CreateTexture(*Texture) error { return nil }
func (failingExecutor) UploadTexture(*Texture, []byte) error { return nil }
func (failingExecutor) RunProgram(*Program, []*Texture, *Texture) error { return nil }
func (failingExecutor) DownloadTexture(*Texture, []byte) error { return nil }
func (failingExecutor) DestroyTexture(*Texture) {}
func (failingExecutor) Close() {}

func TestStartBackendInitFailure(t *testing.T) {
	before := runtime.NumGoroutine()

	for i := 0; i < 10; i++ {
		p := NewProxy(WithExecutor(failingExecutor{}))
		if err := p.Init(); err != nil {
			t.Fatalf("Init: %v", err)
		}
		if err := p.Start(); err == nil {
			t.Fatal("Start should surface the backend init error")
		}

		// The proxy never entered its request loop, so operations
		// report the unstarted state rather than hanging.
		var table reel.NodeValueTable
		err := p.FrameToValue(newStubDecoder(4, 2), stillStream(), singleFrameRange(), 1, &table)
		if !errors.Is(err, ErrNotInitialized) {
			t.Fatalf("FrameToValue after failed Start: err = %v, want ErrNotInitialized", err)
		}
		p.Close()
	}

	// Start waits out its goroutine before reporting the error, so
	// repeated failed starts leave nothing running.
	if after := runtime.NumGoroutine(); after > before {
		t.Errorf("goroutines = %d after failed starts, want <= %d", after, before)
	}
}

// countingExecutor records texture lifecycle calls.
type countingExecutor struct {
	created   int
	destroyed int
}

func (e *countingExecutor) Init(DeviceHandle) error { return nil }
func (e *countingExecutor) CreateTexture(*Texture) error { e.created++; return nil }
func (e *countingExecutor) UploadTexture(*Texture, []byte) error { return nil }
func (e *countingExecutor) RunProgram(*Program, []*Texture, *Texture) error { return nil }
func (e *countingExecutor) DownloadTexture(*Texture, []byte) error { return nil }
func (e *countingExecutor) DestroyTexture(*Texture) { e.destroyed++ }
func (e *countingExecutor) Close() {}

func TestCloseDestroysCachedTextures(t *testing.T) {
	ex := &countingExecutor{}
	p := NewProxy(WithExecutor(ex))
	if err := p.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	dec := newStubDecoder(4, 2)
	var table reel.NodeValueTable
	if err := p.FrameToValue(dec, stillStream(), singleFrameRange(), 1, &table); err != nil {
		t.Fatalf("FrameToValue: %v", err)
	}
	if ex.created == 0 {
		t.Fatal("expected a device texture to be created")
	}

	p.Close()
	if ex.destroyed != ex.created {
		t.Errorf("destroyed = %d, created = %d; every cached texture must be released on Close",
			ex.destroyed, ex.created)
	}
}

func TestStillTagChangeReleasesOldTexture(t *testing.T) {
	p := startedProxy(t, WithParams(Params{Colorspace: "srgb", Divider: 1}))
	dec := newStubDecoder(4, 2)
	stream := stillStream()
	r := singleFrameRange()

	var first reel.NodeValueTable
	if err := p.FrameToValue(dec, stream, r, 1, &first); err != nil {
		t.Fatalf("FrameToValue: %v", err)
	}
	v, _ := first.Get(reel.DataTypeTexture)
	old := v.(*Texture)

	if err := p.SetParameters(Params{Colorspace: "linear", Divider: 1}); err != nil {
		t.Fatalf("SetParameters: %v", err)
	}

	var second reel.NodeValueTable
	if err := p.FrameToValue(dec, stream, r, 1, &second); err != nil {
		t.Fatalf("FrameToValue: %v", err)
	}
	v, _ = second.Get(reel.DataTypeTexture)
	if v.(*Texture) == old {
		t.Fatal("tag change should produce a fresh texture")
	}
	if !old.IsReleased() {
		t.Error("replaced still texture should have been released")
	}
}

func TestFrameToValueCachesStills(t *testing.T) {
	p := startedProxy(t)
	dec := newStubDecoder(4, 2)
	stream := stillStream()
	r := singleFrameRange()

	var first reel.NodeValueTable
	if err := p.FrameToValue(dec, stream, r, 1, &first); err != nil {
		t.Fatalf("FrameToValue: %v", err)
	}
	if dec.retrieves != 1 {
		t.Fatalf("retrieves = %d, want 1", dec.retrieves)
	}
	v, ok := first.Get(reel.DataTypeTexture)
	if !ok {
		t.Fatal("table should carry a texture")
	}
	tex := v.(*Texture)

	// Same tags: served from the still cache without touching the decoder.
	var second reel.NodeValueTable
	if err := p.FrameToValue(dec, stream, r, 1, &second); err != nil {
		t.Fatalf("FrameToValue: %v", err)
	}
	if dec.retrieves != 1 {
		t.Errorf("cached still re-decoded: retrieves = %d, want 1", dec.retrieves)
	}
	if v, _ := second.Get(reel.DataTypeTexture); v.(*Texture) != tex {
		t.Error("cached still should reuse the same texture")
	}
}

func TestStillCacheInvalidatesOnTagChange(t *testing.T) {
	p := startedProxy(t, WithParams(Params{Colorspace: "srgb", Divider: 1}))
	dec := newStubDecoder(4, 2)
	stream := stillStream()
	r := singleFrameRange()

	var table reel.NodeValueTable
	if err := p.FrameToValue(dec, stream, r, 1, &table); err != nil {
		t.Fatalf("FrameToValue: %v", err)
	}

	// A colorspace change invalidates the cached entry.
	if err := p.SetParameters(Params{Colorspace: "linear", Divider: 1}); err != nil {
		t.Fatalf("SetParameters: %v", err)
	}
	if err := p.FrameToValue(dec, stream, r, 1, &table); err != nil {
		t.Fatalf("FrameToValue: %v", err)
	}
	if dec.retrieves != 2 {
		t.Errorf("retrieves after colorspace change = %d, want 2", dec.retrieves)
	}

	// A divider change does too.
	if err := p.FrameToValue(dec, stream, r, 2, &table); err != nil {
		t.Fatalf("FrameToValue: %v", err)
	}
	if dec.retrieves != 3 {
		t.Errorf("retrieves after divider change = %d, want 3", dec.retrieves)
	}

	// Matching tags again: cached.
	if err := p.FrameToValue(dec, stream, r, 2, &table); err != nil {
		t.Fatalf("FrameToValue: %v", err)
	}
	if dec.retrieves != 3 {
		t.Errorf("retrieves with matching tags = %d, want 3", dec.retrieves)
	}
}

func TestFrameToValueNonStill(t *testing.T) {
	p := startedProxy(t)
	dec := newStubDecoder(4, 2)

	f := reel.NewFootage("/media/clip.mp4")
	stream := f.AddStream(0)
	stream.SetDimensions(4, 2)

	r := singleFrameRange()
	var table reel.NodeValueTable
	for i := 0; i < 2; i++ {
		if err := p.FrameToValue(dec, stream, r, 1, &table); err != nil {
			t.Fatalf("FrameToValue: %v", err)
		}
	}
	if dec.retrieves != 2 {
		t.Errorf("non-still retrieves = %d, want 2 (no still caching)", dec.retrieves)
	}
}

func TestTextureToBuffer(t *testing.T) {
	p := startedProxy(t)
	dec := newStubDecoder(4, 2)

	var table reel.NodeValueTable
	if err := p.FrameToValue(dec, stillStream(), singleFrameRange(), 1, &table); err != nil {
		t.Fatalf("FrameToValue: %v", err)
	}
	v, _ := table.Get(reel.DataTypeTexture)
	tex := v.(*Texture)

	buf := make([]byte, tex.SizeBytes())
	if err := p.TextureToBuffer(tex, buf); err != nil {
		t.Fatalf("TextureToBuffer: %v", err)
	}
	if !bytes.Equal(buf, dec.pixels) {
		t.Error("readback should round-trip the decoded pixels")
	}

	if err := p.TextureToBuffer(tex, make([]byte, 3)); !errors.Is(err, ErrBufferSize) {
		t.Errorf("short buffer: err = %v, want ErrBufferSize", err)
	}
	if err := p.TextureToBuffer(nil, buf); !errors.Is(err, ErrNilTexture) {
		t.Errorf("nil texture: err = %v, want ErrNilTexture", err)
	}
}

func TestRunNodeAcceleratedFallsBack(t *testing.T) {
	p := startedProxy(t)
	db := reel.NewNodeValueDatabase()
	var table reel.NodeValueTable

	// Nodes without a GPU path fall back before reaching the proxy
	// goroutine.
	err := p.RunNodeAccelerated(plainNode{}, singleFrameRange(), db, &table)
	if !errors.Is(err, ErrFallbackToCPU) {
		t.Errorf("plain node: err = %v, want ErrFallbackToCPU", err)
	}

	// Shadable nodes fall back when no backend is attached.
	err = p.RunNodeAccelerated(&shaderNode{id: "noop", code: testShaderWGSL}, singleFrameRange(), db, &table)
	if !errors.Is(err, ErrFallbackToCPU) {
		t.Errorf("no backend: err = %v, want ErrFallbackToCPU", err)
	}
	if !table.IsEmpty() {
		t.Error("fallback must leave the table untouched")
	}
}

func TestCacheStats(t *testing.T) {
	p := startedProxy(t)
	dec := newStubDecoder(4, 2)
	stream := stillStream()

	var table reel.NodeValueTable
	for i := 0; i < 2; i++ {
		if err := p.FrameToValue(dec, stream, singleFrameRange(), 1, &table); err != nil {
			t.Fatalf("FrameToValue: %v", err)
		}
	}

	s, err := p.CacheStats()
	if err != nil {
		t.Fatalf("CacheStats: %v", err)
	}
	if s.Stills.Hits != 1 || s.Stills.Misses != 1 {
		t.Errorf("still cache stats = %d hits / %d misses, want 1 / 1",
			s.Stills.Hits, s.Stills.Misses)
	}
}
