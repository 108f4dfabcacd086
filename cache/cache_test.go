// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cache

import (
	"fmt"
	"sync"
	"testing"
)

func TestCacheGetSet(t *testing.T) {
	c := New[string, int](0)

	if _, ok := c.Get("missing"); ok {
		t.Error("Get on empty cache should miss")
	}

	c.Set("a", 1)
	v, ok := c.Get("a")
	if !ok || v != 1 {
		t.Errorf("Get(a) = (%d, %v), want (1, true)", v, ok)
	}

	c.Set("a", 2)
	if v, _ := c.Get("a"); v != 2 {
		t.Errorf("Get(a) after overwrite = %d, want 2", v)
	}
}

func TestCacheEvictsLRU(t *testing.T) {
	c := New[int, string](4)

	for i := 0; i < 4; i++ {
		c.Set(i, fmt.Sprintf("v%d", i))
	}
	// Touch 0 so it is the most recently used.
	c.Get(0)

	// Exceed the soft limit; eviction trims to 75% (3 entries).
	c.Set(4, "v4")

	if c.Len() != 3 {
		t.Fatalf("Len after eviction = %d, want 3", c.Len())
	}
	if _, ok := c.Get(0); !ok {
		t.Error("recently-used entry 0 should survive eviction")
	}
	if _, ok := c.Get(4); !ok {
		t.Error("newly-inserted entry 4 should survive eviction")
	}
	if _, ok := c.Get(1); ok {
		t.Error("oldest entry 1 should have been evicted")
	}
}

func TestCacheGetOrCreate(t *testing.T) {
	c := New[string, int](0)

	calls := 0
	create := func() int {
		calls++
		return 42
	}

	if v := c.GetOrCreate("k", create); v != 42 {
		t.Errorf("GetOrCreate = %d, want 42", v)
	}
	if v := c.GetOrCreate("k", create); v != 42 {
		t.Errorf("GetOrCreate = %d, want 42", v)
	}
	if calls != 1 {
		t.Errorf("create ran %d times, want 1", calls)
	}
}

func TestCacheGetOrCreateConcurrent(t *testing.T) {
	c := New[string, int](0)

	var calls int
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.GetOrCreate("shared", func() int {
				calls++ // under the cache lock
				return 7
			})
		}()
	}
	wg.Wait()

	if calls != 1 {
		t.Errorf("create ran %d times under contention, want 1", calls)
	}
}

func TestCacheDeleteClear(t *testing.T) {
	c := New[string, int](0)
	c.Set("a", 1)
	c.Set("b", 2)

	if !c.Delete("a") {
		t.Error("Delete(a) should report removal")
	}
	if c.Delete("a") {
		t.Error("second Delete(a) should report nothing to remove")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", c.Len())
	}
}

func TestCacheOnEvict(t *testing.T) {
	c := New[string, int](4)
	evicted := make(map[string]int)
	c.SetOnEvict(func(k string, v int) { evicted[k] = v })

	// Exceeding the soft limit trims back to 75%, reporting each
	// removed entry with its value.
	for i, k := range []string{"a", "b", "c", "d", "e"} {
		c.Set(k, i)
	}
	if len(evicted) != 2 {
		t.Fatalf("evicted %d entries, want 2", len(evicted))
	}
	if v, ok := evicted["a"]; !ok || v != 0 {
		t.Errorf("oldest entry a should be evicted with its value, got %v/%v", v, ok)
	}

	// Delete and Clear report removals too.
	clear(evicted)
	c.Delete("e")
	if v, ok := evicted["e"]; !ok || v != 4 {
		t.Errorf("Delete should report the removed entry, got %v/%v", v, ok)
	}

	clear(evicted)
	remaining := c.Len()
	c.Clear()
	if len(evicted) != remaining {
		t.Errorf("Clear reported %d entries, want %d", len(evicted), remaining)
	}
}

func TestCacheStats(t *testing.T) {
	c := New[string, int](8)
	c.Set("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("missing")

	s := c.Stats()
	if s.Hits != 2 || s.Misses != 1 {
		t.Errorf("Stats = %d hits / %d misses, want 2 / 1", s.Hits, s.Misses)
	}
	if s.Capacity != 8 {
		t.Errorf("Capacity = %d, want 8", s.Capacity)
	}
	if want := 2.0 / 3.0; s.HitRate != want {
		t.Errorf("HitRate = %f, want %f", s.HitRate, want)
	}
}
