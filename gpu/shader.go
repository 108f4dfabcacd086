// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"

	"github.com/gogpu/naga"

	"github.com/gogpu/reel"
	"github.com/gogpu/reel/cache"
)

// Shadable is implemented by nodes that offer a GPU path. The shader must
// mirror the CPU path's numeric result: acceleration replaces equal work,
// it never changes the answer.
type Shadable interface {
	reel.Node

	// ShaderID identifies the node's computation shape. Nodes sharing a
	// shape share one compiled program, so the id must capture everything
	// the WGSL source depends on.
	ShaderID() string

	// ShaderCode returns the node's WGSL source.
	ShaderCode() string
}

// Program is a compiled shader program resident in the cache.
type Program struct {
	// ID is the computation-shape key the program was compiled for.
	ID string

	// SPIRV is the compiled shader as little-endian 32-bit words.
	SPIRV []uint32
}

// ShaderCache caches compiled programs keyed by computation shape.
// Compilation is expensive (WGSL parse, validation, SPIR-V emission), so
// each shape compiles exactly once per proxy lifetime.
//
// Only the proxy goroutine touches the cache.
type ShaderCache struct {
	programs *cache.Cache[string, *Program]
}

// NewShaderCache creates a shader cache with the given soft entry limit.
func NewShaderCache(softLimit int) *ShaderCache {
	return &ShaderCache{programs: cache.New[string, *Program](softLimit)}
}

// Get returns the compiled program for the node, compiling on first use.
func (c *ShaderCache) Get(node Shadable) (*Program, error) {
	id := node.ShaderID()
	if p, ok := c.programs.Get(id); ok {
		return p, nil
	}

	spirv, err := compileWGSL(node.ShaderCode())
	if err != nil {
		return nil, fmt.Errorf("%w: shape %q: %v", ErrShaderCompile, id, err)
	}

	p := &Program{ID: id, SPIRV: spirv}
	c.programs.Set(id, p)
	reel.Logger().Debug("compiled node shader", "shape", id, "words", len(spirv))
	return p, nil
}

// Len returns the number of cached programs.
func (c *ShaderCache) Len() int { return c.programs.Len() }

// Stats returns hit/miss statistics for the cache.
func (c *ShaderCache) Stats() cache.Stats { return c.programs.Stats() }

// Clear drops all compiled programs.
func (c *ShaderCache) Clear() { c.programs.Clear() }

// compileWGSL compiles WGSL source to SPIR-V words.
func compileWGSL(wgslSource string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgslSource)
	if err != nil {
		return nil, err
	}

	// SPIR-V is little-endian 32-bit words.
	spirvCode := make([]uint32, len(spirvBytes)/4)
	for i := range spirvCode {
		spirvCode[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}

	return spirvCode, nil
}
