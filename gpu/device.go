// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/reel"
)

// DeviceHandle provides GPU device access from the host application.
//
// The proxy RECEIVES its device from the host, it does not create one:
// the editor's preview surface already owns a context, and sharing it is
// what makes zero-copy handoff of rendered textures possible.
//
// DeviceHandle is an alias for gpucontext.DeviceProvider, giving the
// interface a proxy-local name while staying compatible with the
// gpucontext ecosystem.
type DeviceHandle = gpucontext.DeviceProvider

// NullDeviceHandle is a DeviceHandle with no underlying device. A proxy
// built on it accepts all calls but reports ErrFallbackToCPU from
// accelerated operations, so CPU-only deployments need no special casing.
type NullDeviceHandle struct{}

// Device returns nil for the null device.
func (NullDeviceHandle) Device() gpucontext.Device { return nil }

// Queue returns nil for the null device.
func (NullDeviceHandle) Queue() gpucontext.Queue { return nil }

// Adapter returns nil for the null device.
func (NullDeviceHandle) Adapter() gpucontext.Adapter { return nil }

// AdapterInfo returns an empty description for the null device.
func (NullDeviceHandle) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{}
}

// SurfaceFormat returns undefined format for the null device.
func (NullDeviceHandle) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// Ensure NullDeviceHandle implements DeviceHandle.
var _ DeviceHandle = NullDeviceHandle{}

// textureFormatFor maps a frame pixel format to the wgpu texture format
// used for its GPU-resident copy. 16-bit and float sources upload as
// float textures so grading filters keep their headroom.
func textureFormatFor(f reel.PixelFormat) gputypes.TextureFormat {
	switch f {
	case reel.FormatRGB8, reel.FormatRGBA8:
		return gputypes.TextureFormatRGBA8Unorm
	case reel.FormatRGB16, reel.FormatRGBA16:
		return gputypes.TextureFormatRGBA16Float
	case reel.FormatRGBA32F:
		return gputypes.TextureFormatRGBA32Float
	default:
		return gputypes.TextureFormatRGBA8Unorm
	}
}
