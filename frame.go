package reel

import "errors"

// Frame-related errors.
var (
	// ErrInvalidDimensions is returned when a frame is created or allocated
	// with a non-positive width or height.
	ErrInvalidDimensions = errors.New("reel: invalid frame dimensions")

	// ErrInvalidFormat is returned when a frame has no usable pixel format.
	ErrInvalidFormat = errors.New("reel: invalid pixel format")
)

// Frame is a decoded pixel buffer with explicit dimensions and format.
//
// A Frame is produced by a decoder and consumed by node evaluation. It is
// treated as immutable once filled: holders share the same *Frame and the
// buffer is reclaimed by the garbage collector when the last holder drops
// it. The declared width, height and format always match the buffer's
// actual byte layout; Allocate enforces this.
type Frame struct {
	width  int
	height int
	format PixelFormat
	data   []byte

	// Timestamp is the timeline time this frame was decoded for.
	Timestamp Rational
}

// NewFrame creates a frame with an allocated buffer matching the given
// dimensions and format.
func NewFrame(width, height int, format PixelFormat) (*Frame, error) {
	f := &Frame{width: width, height: height, format: format}
	if err := f.Allocate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Allocate sizes the pixel buffer to exactly width*height*BytesPerPixel.
// Any previous buffer contents are discarded.
func (f *Frame) Allocate() error {
	if f.width <= 0 || f.height <= 0 {
		return ErrInvalidDimensions
	}
	bpp := f.format.BytesPerPixel()
	if bpp == 0 {
		return ErrInvalidFormat
	}
	f.data = make([]byte, f.width*f.height*bpp)
	return nil
}

// Width returns the frame width in pixels.
func (f *Frame) Width() int { return f.width }

// Height returns the frame height in pixels.
func (f *Frame) Height() int { return f.height }

// Format returns the frame's pixel format.
func (f *Frame) Format() PixelFormat { return f.format }

// Stride returns the number of bytes per row.
func (f *Frame) Stride() int { return f.width * f.format.BytesPerPixel() }

// Data returns the pixel buffer. Callers must not mutate a frame after it
// has been handed to node evaluation.
func (f *Frame) Data() []byte { return f.data }
