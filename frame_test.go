package reel

import (
	"errors"
	"testing"
)

func TestNewFrame(t *testing.T) {
	f, err := NewFrame(4, 2, FormatRGBA8)
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	if got, want := len(f.Data()), 4*2*4; got != want {
		t.Errorf("buffer size = %d, want %d", got, want)
	}
	if got, want := f.Stride(), 16; got != want {
		t.Errorf("Stride = %d, want %d", got, want)
	}
}

func TestNewFrameErrors(t *testing.T) {
	if _, err := NewFrame(0, 2, FormatRGBA8); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("zero width: err = %v, want ErrInvalidDimensions", err)
	}
	if _, err := NewFrame(2, -1, FormatRGBA8); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("negative height: err = %v, want ErrInvalidDimensions", err)
	}
	if _, err := NewFrame(2, 2, FormatInvalid); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("invalid format: err = %v, want ErrInvalidFormat", err)
	}
}

func TestPixelFormatProperties(t *testing.T) {
	tests := []struct {
		format   PixelFormat
		channels int
		perChan  int
		alpha    bool
	}{
		{FormatRGB8, 3, 1, false},
		{FormatRGBA8, 4, 1, true},
		{FormatRGB16, 3, 2, false},
		{FormatRGBA16, 4, 2, true},
		{FormatRGBA32F, 4, 4, true},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			if got := tt.format.ChannelCount(); got != tt.channels {
				t.Errorf("ChannelCount = %d, want %d", got, tt.channels)
			}
			if got := tt.format.BytesPerChannel(); got != tt.perChan {
				t.Errorf("BytesPerChannel = %d, want %d", got, tt.perChan)
			}
			if got := tt.format.BytesPerPixel(); got != tt.channels*tt.perChan {
				t.Errorf("BytesPerPixel = %d, want %d", got, tt.channels*tt.perChan)
			}
			if got := tt.format.HasAlpha(); got != tt.alpha {
				t.Errorf("HasAlpha = %v, want %v", got, tt.alpha)
			}
		})
	}
}
