// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"errors"
	"testing"

	"github.com/gogpu/reel"
)

// shaderNode is a minimal Shadable node for cache tests.
type shaderNode struct {
	id   string
	code string
}

func (n *shaderNode) Inputs() []*reel.Input { return nil }

func (n *shaderNode) Value(db *reel.NodeValueDatabase) reel.NodeValueTable {
	return reel.NodeValueTable{}
}

func (n *shaderNode) InputTimeAdjustment(in *reel.Input, r reel.TimeRange) reel.TimeRange {
	return r
}

func (n *shaderNode) ShaderID() string   { return n.id }
func (n *shaderNode) ShaderCode() string { return n.code }

const testShaderWGSL = `
@compute @workgroup_size(1)
fn main() {
}
`

func TestShaderCacheCompilesOnce(t *testing.T) {
	c := NewShaderCache(8)
	node := &shaderNode{id: "noop", code: testShaderWGSL}

	first, err := c.Get(node)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(first.SPIRV) == 0 {
		t.Fatal("compiled program should have SPIR-V words")
	}
	if first.SPIRV[0] != 0x07230203 {
		t.Errorf("SPIRV[0] = %#x, want SPIR-V magic 0x07230203", first.SPIRV[0])
	}

	second, err := c.Get(node)
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if first != second {
		t.Error("same shader shape should return the cached program")
	}

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 {
		t.Errorf("Stats = %d hits / %d misses, want 1 / 1", s.Hits, s.Misses)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestShaderCacheCompileError(t *testing.T) {
	c := NewShaderCache(8)
	node := &shaderNode{id: "broken", code: "this is not wgsl"}

	if _, err := c.Get(node); !errors.Is(err, ErrShaderCompile) {
		t.Errorf("Get err = %v, want ErrShaderCompile", err)
	}
}

func TestShaderCacheClear(t *testing.T) {
	c := NewShaderCache(8)
	if _, err := c.Get(&shaderNode{id: "noop", code: testShaderWGSL}); err != nil {
		t.Fatalf("Get: %v", err)
	}
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", c.Len())
	}
}
