// Package cache provides the generic render cache used across reel:
// a thread-safe LRU keyed cache with a soft entry limit.
//
// The engine uses it for previously computed results that are expensive to
// reproduce: decoded still images, compiled shader programs, and GPU
// textures. Eviction is by least-recent access and only triggers past the
// soft limit, so short render bursts never cycle the cache.
package cache
