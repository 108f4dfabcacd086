// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"sync"
	"sync/atomic"

	"github.com/gogpu/reel"
	"github.com/gogpu/reel/cache"
	"github.com/gogpu/reel/decoder"
)

// Params are the rendering parameters the proxy evaluates under. They tag
// cached still images; changing any of them invalidates those entries.
type Params struct {
	// Colorspace is the working colorspace rendered frames are converted
	// into.
	Colorspace string

	// Divider is the proxy-resolution downscale factor.
	Divider int
}

// Executor is the pluggable GPU backend contract. The proxy does not
// prescribe a GPU API; any backend satisfying this interface (and the
// thread-affinity rule that every call happens on the proxy goroutine)
// can serve it.
type Executor interface {
	// Init acquires backend resources. Called once, on the proxy
	// goroutine, during the second phase of the handoff protocol.
	Init(device DeviceHandle) error

	// CreateTexture allocates device storage for t and records the
	// resulting handles via t.SetHandles.
	CreateTexture(t *Texture) error

	// UploadTexture transfers data into t's device storage.
	UploadTexture(t *Texture, data []byte) error

	// RunProgram executes a compiled program over the input textures,
	// writing into output.
	RunProgram(p *Program, inputs []*Texture, output *Texture) error

	// DownloadTexture copies t's device storage into dst, rows padded to
	// the backend's readback alignment (256 bytes for WebGPU-family
	// backends). Blocks until the transfer completes.
	DownloadTexture(t *Texture, dst []byte) error

	// DestroyTexture releases t's device storage.
	DestroyTexture(t *Texture)

	// Close releases all backend resources.
	Close()
}

// readbackAlign is the row alignment of texture readbacks.
const readbackAlign = 256

// CachedStill is a GPU-resident decoded still image. The entry is valid
// only while all three tags match the requesting context; any mismatch
// forces recomputation and replacement.
type CachedStill struct {
	Texture         *Texture
	Colorspace      string
	AlphaAssociated bool
	Divider         int
}

// proxyRequest is one operation marshaled onto the proxy goroutine.
type proxyRequest struct {
	fn   func()
	done chan struct{}
}

// Proxy owns one GPU context and the caches built over it, and converts
// node computation requests into GPU-executed operations when a backend
// is available.
//
// Lifecycle: NewProxy and Init on the goroutine that owns the sharing
// context, then Start to hand the proxy to its dedicated execution
// goroutine. Start blocks until the second initialization phase completes
// there. See the package documentation for why the handoff is two-phase.
type Proxy struct {
	device   DeviceHandle
	executor Executor
	params   Params

	// Caches. Only the proxy goroutine touches these after Start.
	shaders  *ShaderCache
	textures *cache.Cache[*reel.Frame, *Texture]
	stills   *cache.Cache[*reel.Stream, CachedStill]

	// scratch is the pixel-transfer staging buffer, reused across
	// readbacks to hold alignment-padded rows. Proxy goroutine only.
	scratch []byte

	requests chan proxyRequest
	stop     chan struct{}
	wg       sync.WaitGroup

	initialized bool
	started     atomic.Bool
	closed      atomic.Bool
}

// ProxyOption configures a Proxy during creation.
type ProxyOption func(*Proxy)

// WithDevice sets the shared device handle the proxy builds its context
// from. Defaults to NullDeviceHandle.
func WithDevice(d DeviceHandle) ProxyOption {
	return func(p *Proxy) { p.device = d }
}

// WithExecutor sets the GPU backend. Without one, frame retrieval and
// caching still work host-side (textures keep staging memory, which
// backs TextureToBuffer), while accelerated node execution reports
// ErrFallbackToCPU.
func WithExecutor(e Executor) ProxyOption {
	return func(p *Proxy) { p.executor = e }
}

// WithParams sets the initial rendering parameters.
func WithParams(params Params) ProxyOption {
	return func(p *Proxy) { p.params = params }
}

// Cache soft limits. Stills are small in count but large in bytes;
// per-frame textures churn with every evaluated range.
const (
	shaderCacheLimit  = 128
	textureCacheLimit = 64
	stillCacheLimit   = 32
)

// NewProxy creates an unstarted proxy.
func NewProxy(opts ...ProxyOption) *Proxy {
	p := &Proxy{
		device:   NullDeviceHandle{},
		params:   Params{Divider: 1},
		requests: make(chan proxyRequest),
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Init performs the first initialization phase. It must run on the
// goroutine that owns the main sharing context, BEFORE Start: creating a
// shared context while the source context is current on another thread is
// forbidden on some platforms, so context-adjacent resources are created
// here and only then migrated.
func (p *Proxy) Init() error {
	if p.closed.Load() {
		return ErrClosed
	}

	p.shaders = NewShaderCache(shaderCacheLimit)
	p.textures = cache.New[*reel.Frame, *Texture](textureCacheLimit)
	p.stills = cache.New[*reel.Stream, CachedStill](stillCacheLimit)

	// Evicted entries release their device storage immediately. All
	// cache access happens on the proxy goroutine after Start, so the
	// hooks run there too.
	p.textures.SetOnEvict(func(_ *reel.Frame, tex *Texture) { p.destroyTexture(tex) })
	p.stills.SetOnEvict(func(_ *reel.Stream, cs CachedStill) { p.destroyTexture(cs.Texture) })

	p.initialized = true
	return nil
}

// destroyTexture releases a texture's device storage and staging memory.
// Proxy goroutine only.
func (p *Proxy) destroyTexture(tex *Texture) {
	if tex == nil || tex.IsReleased() {
		return
	}
	if p.executor != nil {
		p.executor.DestroyTexture(tex)
	}
	tex.Destroy()
}

// Start hands the proxy off to its dedicated execution goroutine and
// blocks until that goroutine finishes initialization (the backend's own
// Init) and signals back. After Start returns, the caller must not touch
// the proxy's caches directly; all access goes through the proxy methods.
func (p *Proxy) Start() error {
	if !p.initialized {
		return ErrNotInitialized
	}
	if !p.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	ready := make(chan error, 1)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.finishInit(); err != nil {
			ready <- err
			return
		}
		ready <- nil
		p.serve()
	}()

	if err := <-ready; err != nil {
		// The goroutine has already exited; wait for it so a retried
		// Start never overlaps with it.
		p.wg.Wait()
		p.started.Store(false)
		return err
	}
	return nil
}

// finishInit is the second initialization phase, on the proxy goroutine.
func (p *Proxy) finishInit() error {
	if p.executor == nil {
		reel.Logger().Info("gpu proxy running without backend, CPU fallback active")
		return nil
	}
	if err := p.executor.Init(p.device); err != nil {
		return err
	}
	reel.Logger().Info("gpu proxy initialized")
	return nil
}

// serve runs the proxy goroutine's request loop.
func (p *Proxy) serve() {
	for {
		select {
		case <-p.stop:
			p.cleanup()
			return
		case req := <-p.requests:
			req.fn()
			close(req.done)
		}
	}
}

// cleanup releases all caches and the backend. Proxy goroutine only.
func (p *Proxy) cleanup() {
	if p.stills != nil {
		p.stills.Clear()
	}
	if p.textures != nil {
		p.textures.Clear()
	}
	if p.shaders != nil {
		p.shaders.Clear()
	}
	if p.executor != nil {
		p.executor.Close()
	}
}

// Close stops the proxy goroutine and releases all resources.
// Safe to call more than once.
func (p *Proxy) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	if p.started.Load() {
		close(p.stop)
		p.wg.Wait()
	}
}

// do marshals fn onto the proxy goroutine and waits for it.
func (p *Proxy) do(fn func()) error {
	if !p.started.Load() {
		return ErrNotInitialized
	}

	req := proxyRequest{fn: fn, done: make(chan struct{})}
	select {
	case p.requests <- req:
	case <-p.stop:
		return ErrClosed
	}
	select {
	case <-req.done:
		return nil
	case <-p.stop:
		return ErrClosed
	}
}

// SetParameters updates the rendering parameters. Entries in the still
// cache tagged with the previous parameters invalidate lazily on their
// next lookup.
func (p *Proxy) SetParameters(params Params) error {
	return p.do(func() { p.params = params })
}

// FrameToValue retrieves the frame for the given range from the decoder,
// makes it GPU-resident and pushes the resulting texture onto the table.
//
// Still-image streams hit the still cache first: a cached texture whose
// colorspace, alpha-association and divider tags match the current
// context is reused verbatim, with no decoder call.
func (p *Proxy) FrameToValue(dec decoder.Decoder, stream *reel.Stream, r reel.TimeRange, divider int, table *reel.NodeValueTable) error {
	var opErr error
	err := p.do(func() { opErr = p.frameToValue(dec, stream, r, divider, table) })
	if err != nil {
		return err
	}
	return opErr
}

func (p *Proxy) frameToValue(dec decoder.Decoder, stream *reel.Stream, r reel.TimeRange, divider int, table *reel.NodeValueTable) error {
	still := stream.IsStill()

	if still {
		if cs, ok := p.stills.Get(stream); ok {
			if cs.Colorspace == p.params.Colorspace &&
				cs.AlphaAssociated == stream.PremultipliedAlpha() &&
				cs.Divider == divider {
				table.Push(reel.DataTypeTexture, cs.Texture)
				return nil
			}
			// Tags changed; the entry can never be served again, so
			// release its texture now rather than waiting for churn.
			p.stills.Delete(stream)
		}
	}

	frame, err := dec.RetrieveVideo(r.In(), divider)
	if err != nil {
		return err
	}

	// Still textures are owned by the still cache alone; caching them
	// per-frame as well would let one cache destroy a texture the other
	// still serves.
	var tex *Texture
	if still {
		tex, err = p.createTexture(frame)
	} else {
		tex, err = p.textureFromFrame(frame)
	}
	if err != nil {
		return err
	}

	if still {
		p.stills.Set(stream, CachedStill{
			Texture:         tex,
			Colorspace:      p.params.Colorspace,
			AlphaAssociated: stream.PremultipliedAlpha(),
			Divider:         divider,
		})
	}

	table.Push(reel.DataTypeTexture, tex)
	return nil
}

// textureFromFrame returns the GPU texture for a decoded frame, creating
// and uploading it on first sight. Proxy goroutine only.
func (p *Proxy) textureFromFrame(frame *reel.Frame) (*Texture, error) {
	if tex, ok := p.textures.Get(frame); ok {
		return tex, nil
	}

	tex, err := p.createTexture(frame)
	if err != nil {
		return nil, err
	}

	p.textures.Set(frame, tex)
	return tex, nil
}

// createTexture builds an uploaded texture for a decoded frame without
// caching it. Proxy goroutine only.
func (p *Proxy) createTexture(frame *reel.Frame) (*Texture, error) {
	format := textureFormatFor(frame.Format())
	tex := newTexture(frame.Width(), frame.Height(), format, bytesPerTexturePixel(format))
	tex.uploadFrame(frame)

	if p.executor != nil {
		if err := p.executor.CreateTexture(tex); err != nil {
			return nil, err
		}
		if err := p.executor.UploadTexture(tex, tex.staging); err != nil {
			p.executor.DestroyTexture(tex)
			return nil, err
		}
	}
	return tex, nil
}

// RunNodeAccelerated executes the node's GPU path over the resolved
// inputs, pushing the result texture onto the output table. Safe to call
// when no backend is available: it reports ErrFallbackToCPU and leaves
// the CPU-computed table untouched.
func (p *Proxy) RunNodeAccelerated(node reel.Node, r reel.TimeRange, db *reel.NodeValueDatabase, table *reel.NodeValueTable) error {
	sh, ok := node.(Shadable)
	if !ok {
		return ErrFallbackToCPU
	}

	var opErr error
	err := p.do(func() { opErr = p.runNodeAccelerated(sh, r, db, table) })
	if err != nil {
		return err
	}
	return opErr
}

func (p *Proxy) runNodeAccelerated(node Shadable, _ reel.TimeRange, db *reel.NodeValueDatabase, table *reel.NodeValueTable) error {
	if p.executor == nil {
		return ErrFallbackToCPU
	}

	prog, err := p.shaders.Get(node)
	if err != nil {
		return err
	}

	// Gather GPU-resident inputs, promoting frames that are still
	// host-only.
	var inputs []*Texture
	for _, in := range node.Inputs() {
		tbl := db.Table(in)
		if v, ok := tbl.Get(reel.DataTypeTexture); ok {
			if tex, ok := v.(*Texture); ok {
				inputs = append(inputs, tex)
			}
			continue
		}
		if v, ok := tbl.Get(reel.DataTypeFrame); ok {
			if frame, ok := v.(*reel.Frame); ok {
				tex, err := p.textureFromFrame(frame)
				if err != nil {
					return err
				}
				inputs = append(inputs, tex)
			}
		}
	}

	if len(inputs) == 0 {
		return ErrFallbackToCPU
	}

	first := inputs[0]
	out := newTexture(first.Width(), first.Height(), first.Format(),
		bytesPerTexturePixel(first.Format()))
	if err := p.executor.CreateTexture(out); err != nil {
		return err
	}
	if err := p.executor.RunProgram(prog, inputs, out); err != nil {
		p.executor.DestroyTexture(out)
		return err
	}

	table.Push(reel.DataTypeTexture, out)
	return nil
}

// TextureToBuffer copies a GPU-resident result back into host memory,
// blocking the calling goroutine until the transfer completes. This is an
// intentional synchronization point, not an async operation.
//
// The buffer must be exactly the texture's tight byte size; readback
// row-alignment padding is stripped through the proxy's scratch buffer.
func (p *Proxy) TextureToBuffer(texture any, buf []byte) error {
	tex, ok := texture.(*Texture)
	if !ok || tex == nil {
		return ErrNilTexture
	}
	if uint64(len(buf)) != tex.SizeBytes() {
		return ErrBufferSize
	}

	var opErr error
	err := p.do(func() { opErr = p.textureToBuffer(tex, buf) })
	if err != nil {
		return err
	}
	return opErr
}

func (p *Proxy) textureToBuffer(tex *Texture, buf []byte) error {
	if p.executor == nil {
		// Host-side staging is authoritative without a backend.
		copy(buf, tex.staging)
		return nil
	}

	bpp := bytesPerTexturePixel(tex.Format())
	tight := tex.Width() * bpp
	padded := (tight + readbackAlign - 1) / readbackAlign * readbackAlign

	if need := padded * tex.Height(); cap(p.scratch) < need {
		p.scratch = make([]byte, need)
	}
	scratch := p.scratch[:padded*tex.Height()]

	if err := p.executor.DownloadTexture(tex, scratch); err != nil {
		return err
	}

	for y := 0; y < tex.Height(); y++ {
		copy(buf[y*tight:(y+1)*tight], scratch[y*padded:y*padded+tight])
	}
	return nil
}

// Stats exposes cache statistics for diagnostics.
type Stats struct {
	Shaders  cache.Stats
	Textures cache.Stats
	Stills   cache.Stats
}

// CacheStats returns hit/miss statistics for the proxy's caches.
func (p *Proxy) CacheStats() (Stats, error) {
	var s Stats
	err := p.do(func() {
		s = Stats{
			Shaders:  p.shaders.Stats(),
			Textures: p.textures.Stats(),
			Stills:   p.stills.Stats(),
		}
	})
	return s, err
}

