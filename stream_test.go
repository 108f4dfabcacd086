package reel

import "testing"

func TestFootageStreams(t *testing.T) {
	f := NewFootage("/media/clip.mov")

	if f.Filename() != "/media/clip.mov" {
		t.Errorf("Filename = %q", f.Filename())
	}
	if f.Fs() == nil {
		t.Fatal("footage should default to a filesystem")
	}

	s0 := f.AddStream(0)
	s0.SetDimensions(1920, 1080)
	s1 := f.AddStream(1)

	if len(f.Streams()) != 2 {
		t.Fatalf("Streams = %d, want 2", len(f.Streams()))
	}
	if f.Stream(0) != s0 || f.Stream(1) != s1 {
		t.Error("Stream should return streams by index")
	}
	if f.Stream(7) != nil {
		t.Error("Stream with unknown index should be nil")
	}
	if s0.Footage() != f {
		t.Error("stream should point back to its footage")
	}
	if s0.Width() != 1920 || s0.Height() != 1080 {
		t.Errorf("dimensions = %dx%d, want 1920x1080", s0.Width(), s0.Height())
	}

	f.ClearStreams()
	if len(f.Streams()) != 0 {
		t.Error("ClearStreams should drop all streams")
	}
}

func TestStreamFlags(t *testing.T) {
	f := NewFootage("/media/still.png")
	s := f.AddStream(0)

	if s.IsStill() || s.PremultipliedAlpha() {
		t.Error("fresh stream carries no flags")
	}
	s.SetStill(true)
	s.SetPremultipliedAlpha(true)
	if !s.IsStill() || !s.PremultipliedAlpha() {
		t.Error("flags should stick")
	}
}
