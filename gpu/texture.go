// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"math"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/core"

	"github.com/gogpu/reel"
)

// DefaultTextureUsage is the usage for textures the proxy creates: they
// are sampled by node shaders, rendered to, and read back to host memory.
const DefaultTextureUsage = gputypes.TextureUsageCopySrc |
	gputypes.TextureUsageCopyDst |
	gputypes.TextureUsageTextureBinding |
	gputypes.TextureUsageRenderAttachment

// Texture is a GPU-resident image owned by the proxy.
//
// The wgpu handles identify the device-side resource; the staging slice
// holds the host-side copy used for upload and synchronous readback.
// Textures are created, filled and destroyed only on the proxy goroutine;
// the opaque *Texture value itself may travel through value tables to any
// thread, which must hand it back to the proxy (TextureToBuffer) to see
// its pixels.
type Texture struct {
	textureID core.TextureID
	viewID    core.TextureViewID

	width  int
	height int
	format gputypes.TextureFormat

	staging   []byte
	sizeBytes uint64
	released  atomic.Bool
}

// newTexture creates a texture sized for the given frame dimensions.
func newTexture(width, height int, format gputypes.TextureFormat, bytesPerPixel int) *Texture {
	size := uint64(width) * uint64(height) * uint64(bytesPerPixel)
	return &Texture{
		width:     width,
		height:    height,
		format:    format,
		staging:   make([]byte, size),
		sizeBytes: size,
	}
}

// Width returns the texture width in pixels.
func (t *Texture) Width() int { return t.width }

// Height returns the texture height in pixels.
func (t *Texture) Height() int { return t.height }

// Format returns the wgpu texture format.
func (t *Texture) Format() gputypes.TextureFormat { return t.format }

// SizeBytes returns the texture's byte size.
func (t *Texture) SizeBytes() uint64 { return t.sizeBytes }

// TextureID returns the underlying wgpu texture handle. Zero when the
// proxy runs without a device.
func (t *Texture) TextureID() core.TextureID { return t.textureID }

// ViewID returns the wgpu texture view handle. Zero when the proxy runs
// without a device.
func (t *Texture) ViewID() core.TextureViewID { return t.viewID }

// IsReleased reports whether Destroy has run.
func (t *Texture) IsReleased() bool { return t.released.Load() }

// SetHandles records the backend's device-side handles for the texture.
// Called by Executor.CreateTexture implementations.
func (t *Texture) SetHandles(textureID core.TextureID, viewID core.TextureViewID) {
	t.textureID = textureID
	t.viewID = viewID
}

// Descriptor returns the WebGPU-style descriptor for creating the
// texture's device storage.
func (t *Texture) Descriptor(label string) gputypes.TextureDescriptor {
	return gputypes.TextureDescriptor{
		Label: label,
		Size: gputypes.Extent3D{
			Width:              uint32(t.width),
			Height:             uint32(t.height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        t.format,
		Usage:         DefaultTextureUsage,
	}
}

// Destroy releases the texture's resources. Idempotent; only the proxy
// goroutine calls it.
func (t *Texture) Destroy() {
	if !t.released.CompareAndSwap(false, true) {
		return
	}
	t.staging = nil
}

// uploadFrame fills the staging buffer from a decoded frame, expanding
// 3-channel sources to the 4-channel texture layout with opaque alpha.
// 16-bit integer channels are re-encoded as half floats so the staging
// bytes match the RGBA16Float layout they are declared as.
func (t *Texture) uploadFrame(frame *reel.Frame) {
	src := frame.Data()

	switch format := frame.Format(); format {
	case reel.FormatRGBA8, reel.FormatRGBA32F:
		copy(t.staging, src)
	case reel.FormatRGB8:
		for i, j := 0, 0; i+3 <= len(src) && j+4 <= len(t.staging); i, j = i+3, j+4 {
			copy(t.staging[j:j+3], src[i:i+3])
			t.staging[j+3] = 0xFF
		}
	case reel.FormatRGB16, reel.FormatRGBA16:
		t.uploadHalf(src, format.ChannelCount())
	}
}

// uploadHalf converts little-endian 16-bit unsigned channels into
// half-float staging pixels, expanding 3-channel sources with an opaque
// alpha of 1.0.
func (t *Texture) uploadHalf(src []byte, channels int) {
	const opaque = 0x3C00 // half-float 1.0
	srcPx := channels * 2
	for i, j := 0, 0; i+srcPx <= len(src) && j+8 <= len(t.staging); i, j = i+srcPx, j+8 {
		for c := 0; c < channels; c++ {
			v := uint16(src[i+2*c]) | uint16(src[i+2*c+1])<<8
			h := halfFromUnorm16(v)
			t.staging[j+2*c] = byte(h)
			t.staging[j+2*c+1] = byte(h >> 8)
		}
		if channels == 3 {
			t.staging[j+6] = byte(opaque & 0xFF)
			t.staging[j+7] = byte(opaque >> 8)
		}
	}
}

// halfFromUnorm16 maps a 16-bit unsigned normalized channel value onto
// [0, 1] and encodes it as an IEEE 754 half-precision float.
func halfFromUnorm16(v uint16) uint16 {
	return halfFromFloat32(float32(v) / 65535)
}

// halfFromFloat32 encodes f as IEEE 754 binary16, truncating excess
// mantissa bits. Values beyond the half range saturate to infinity.
func halfFromFloat32(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16(bits>>16) & 0x8000
	exp := int32(bits>>23&0xFF) - 127 + 15
	mant := bits & 0x7FFFFF

	switch {
	case exp <= 0:
		if exp < -10 {
			return sign
		}
		mant |= 0x800000
		return sign | uint16(mant>>uint32(14-exp))
	case exp >= 0x1F:
		return sign | 0x7C00
	default:
		return sign | uint16(exp)<<10 | uint16(mant>>13)
	}
}

// bytesPerTexturePixel returns the byte width of one pixel for the
// texture formats the proxy creates.
func bytesPerTexturePixel(f gputypes.TextureFormat) int {
	switch f {
	case gputypes.TextureFormatRGBA16Float:
		return 8
	case gputypes.TextureFormatRGBA32Float:
		return 16
	default:
		return 4
	}
}
