// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/gogpu/reel"
)

// ErrBackendClosed is returned by Render after Close.
var ErrBackendClosed = errors.New("render: backend closed")

// CompletedRender is delivered on the backend's completion channel once
// a submitted request finishes. JobID ties it back to the Render call
// that produced it; JobTime is the caller-supplied monotonic stamp used
// to discard stale results.
type CompletedRender struct {
	Dep     reel.NodeDependency
	Table   reel.NodeValueTable
	JobTime int64
	JobID   uuid.UUID
}

type renderJob struct {
	dep     reel.NodeDependency
	jobTime int64
	id      uuid.UUID
	cancel  *reel.CancelToken
}

// Backend schedules render requests across a fixed pool of workers.
// Workers share one decoder cache; the backend owns the cache and
// closes every open decoder on Close.
type Backend struct {
	workers  []*Worker
	decoders *DecoderCache

	queue chan renderJob
	done  chan struct{}
	wg    sync.WaitGroup

	completed   chan CompletedRender
	unavailable chan FootageUnavailable

	closed atomic.Bool
}

// BackendOption configures a Backend.
type BackendOption func(*backendConfig)

type backendConfig struct {
	workers int
	queue   int
	divider int
	accel   Accelerator
}

// WithWorkers sets the pool size. Defaults to GOMAXPROCS.
func WithWorkers(n int) BackendOption {
	return func(c *backendConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithQueueSize sets the pending-job queue depth. Defaults to twice the
// worker count.
func WithQueueSize(n int) BackendOption {
	return func(c *backendConfig) {
		if n > 0 {
			c.queue = n
		}
	}
}

// WithDivider sets the preview resolution divider applied to every
// frame retrieval. Defaults to 1 (full resolution).
func WithDivider(d int) BackendOption {
	return func(c *backendConfig) {
		if d >= 1 {
			c.divider = d
		}
	}
}

// WithAccelerator attaches a GPU accelerator shared by all workers.
func WithAccelerator(a Accelerator) BackendOption {
	return func(c *backendConfig) { c.accel = a }
}

// NewBackend creates a backend and starts its worker goroutines.
func NewBackend(opts ...BackendOption) *Backend {
	cfg := backendConfig{
		workers: runtime.GOMAXPROCS(0),
		divider: 1,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.queue == 0 {
		cfg.queue = cfg.workers * 2
	}

	b := &Backend{
		decoders:    NewDecoderCache(),
		queue:       make(chan renderJob, cfg.queue),
		done:        make(chan struct{}),
		completed:   make(chan CompletedRender, cfg.queue),
		unavailable: make(chan FootageUnavailable, 64),
	}

	b.workers = make([]*Worker, cfg.workers)
	for i := range b.workers {
		w := NewWorker(i, b.decoders, cfg.accel, cfg.divider, b.notifyUnavailable)
		b.workers[i] = w
		b.wg.Add(1)
		go b.run(w)
	}

	reel.Logger().Debug("render backend started",
		"workers", cfg.workers, "divider", cfg.divider)
	return b
}

func (b *Backend) run(w *Worker) {
	defer b.wg.Done()
	if err := w.Init(); err != nil {
		reel.Logger().Warn("worker init failed", "worker", w.id, "err", err)
		return
	}
	defer w.Close()

	for {
		select {
		case <-b.done:
			return
		case job := <-b.queue:
			b.process(w, job)
		}
	}
}

func (b *Backend) process(w *Worker, job renderJob) {
	table := w.Render(job.dep, job.cancel)
	result := CompletedRender{
		Dep:     job.dep,
		Table:   table,
		JobTime: job.jobTime,
		JobID:   job.id,
	}
	select {
	case b.completed <- result:
	case <-b.done:
	}
}

// Render submits a request and returns its job id. jobTime is an opaque
// caller stamp echoed back on the completion; cancel may be nil.
// Blocks while the queue is full.
func (b *Backend) Render(dep reel.NodeDependency, jobTime int64, cancel *reel.CancelToken) (uuid.UUID, error) {
	if b.closed.Load() {
		return uuid.Nil, ErrBackendClosed
	}
	id := uuid.New()
	job := renderJob{dep: dep, jobTime: jobTime, id: id, cancel: cancel}
	select {
	case b.queue <- job:
		return id, nil
	case <-b.done:
		return uuid.Nil, ErrBackendClosed
	}
}

// Completed returns the channel delivering finished renders.
func (b *Backend) Completed() <-chan CompletedRender { return b.completed }

// Unavailable returns the channel delivering footage-unavailable
// notifications. The channel is buffered; notifications are dropped
// when no one drains it.
func (b *Backend) Unavailable() <-chan FootageUnavailable { return b.unavailable }

// DecoderCache returns the backend's shared decoder cache.
func (b *Backend) DecoderCache() *DecoderCache { return b.decoders }

// Workers returns the pool size.
func (b *Backend) Workers() int { return len(b.workers) }

// Close stops the pool, waits for in-flight renders to finish, and
// closes every cached decoder. Safe to call more than once.
func (b *Backend) Close() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}
	close(b.done)
	b.wg.Wait()
	b.decoders.CloseAll()
	reel.Logger().Debug("render backend stopped")
}

func (b *Backend) notifyUnavailable(n FootageUnavailable) {
	select {
	case b.unavailable <- n:
	default:
		reel.Logger().Debug("unavailable notification dropped")
	}
}
