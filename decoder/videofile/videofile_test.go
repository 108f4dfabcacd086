// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package videofile

import (
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/gogpu/reel"
	"github.com/gogpu/reel/decoder"
)

func TestProbeRejectsWrongExtension(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/media/notes.txt", []byte("not a container"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	f := reel.NewFootage("/media/notes.txt")
	f.SetFs(fs)

	// The extension gate rejects before any capture backend is touched.
	if New().Probe(f, nil) {
		t.Error("Probe should reject .txt footage")
	}
}

func TestProbeRejectsMissingFile(t *testing.T) {
	f := reel.NewFootage("/media/missing.mp4")
	f.SetFs(afero.NewMemMapFs())

	if New().Probe(f, nil) {
		t.Error("Probe should reject a missing file")
	}
}

func TestProbeCancelled(t *testing.T) {
	cancel := &reel.CancelToken{}
	cancel.Cancel()

	f := reel.NewFootage("/media/clip.mp4")
	if New().Probe(f, cancel) {
		t.Error("cancelled probe should not claim footage")
	}
}

func TestLifecycleWithoutOpen(t *testing.T) {
	d := New()

	if got := d.GetRetrieveState(reel.Rational{}); got != decoder.StateFailedToOpen {
		t.Errorf("state before open = %v, want FailedToOpen", got)
	}
	if _, err := d.RetrieveVideo(reel.Rational{}, 1); err != decoder.ErrNotOpen {
		t.Errorf("retrieve before open: err = %v, want ErrNotOpen", err)
	}
	if err := d.Open(); err != decoder.ErrNoStream {
		t.Errorf("open without stream: err = %v, want ErrNoStream", err)
	}

	d.Close()
	d.Close() // idempotent
}

func TestIndexFilename(t *testing.T) {
	f := reel.NewFootage("/media/clip.mp4")
	f.AddStream(0)

	d := New()
	d.SetStream(f.Stream(0))

	SetIndexStore(nil, "")
	if got := d.IndexFilename(); got != "" {
		t.Errorf("IndexFilename without index dir = %q, want empty", got)
	}

	SetIndexStore(nil, "/cache")
	defer SetIndexStore(nil, "")
	got := d.IndexFilename()
	if !strings.HasPrefix(got, "/cache") || !strings.HasSuffix(got, ".reelidx") {
		t.Errorf("IndexFilename = %q, want a .reelidx path under /cache", got)
	}
}
