// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import "errors"

// GPU proxy errors.
var (
	// ErrFallbackToCPU indicates the GPU path cannot handle this operation.
	// The caller should transparently stay on the CPU-computed result.
	ErrFallbackToCPU = errors.New("gpu: falling back to CPU evaluation")

	// ErrNotInitialized is returned when the proxy is used before Init.
	ErrNotInitialized = errors.New("gpu: proxy not initialized")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("gpu: proxy already started")

	// ErrClosed is returned when operating on a closed proxy.
	ErrClosed = errors.New("gpu: proxy is closed")

	// ErrNilTexture is returned when a texture operation receives nil.
	ErrNilTexture = errors.New("gpu: texture is nil")

	// ErrBufferSize is returned when a transfer buffer does not match the
	// texture's byte size.
	ErrBufferSize = errors.New("gpu: buffer size does not match texture")

	// ErrShaderCompile wraps naga compilation failures.
	ErrShaderCompile = errors.New("gpu: shader compilation failed")
)
