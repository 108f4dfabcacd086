package reel

import "fmt"

// PixelFormat describes the channel layout and depth of a Frame's buffer.
type PixelFormat uint8

const (
	// FormatInvalid is the zero value and never describes real pixels.
	FormatInvalid PixelFormat = iota

	// FormatRGB8 is 3 channels, 8 bits each.
	FormatRGB8

	// FormatRGBA8 is 4 channels, 8 bits each.
	FormatRGBA8

	// FormatRGB16 is 3 channels, 16 bits each.
	FormatRGB16

	// FormatRGBA16 is 4 channels, 16 bits each.
	FormatRGBA16

	// FormatRGBA32F is 4 channels, 32-bit float each.
	FormatRGBA32F
)

// String returns a human-readable name for the format.
func (f PixelFormat) String() string {
	switch f {
	case FormatRGB8:
		return "RGB8"
	case FormatRGBA8:
		return "RGBA8"
	case FormatRGB16:
		return "RGB16"
	case FormatRGBA16:
		return "RGBA16"
	case FormatRGBA32F:
		return "RGBA32F"
	default:
		return fmt.Sprintf("Invalid(%d)", uint8(f))
	}
}

// ChannelCount returns the number of channels per pixel.
func (f PixelFormat) ChannelCount() int {
	switch f {
	case FormatRGB8, FormatRGB16:
		return 3
	case FormatRGBA8, FormatRGBA16, FormatRGBA32F:
		return 4
	default:
		return 0
	}
}

// BytesPerChannel returns the byte width of a single channel.
func (f PixelFormat) BytesPerChannel() int {
	switch f {
	case FormatRGB8, FormatRGBA8:
		return 1
	case FormatRGB16, FormatRGBA16:
		return 2
	case FormatRGBA32F:
		return 4
	default:
		return 0
	}
}

// BytesPerPixel returns the byte width of one pixel.
func (f PixelFormat) BytesPerPixel() int {
	return f.ChannelCount() * f.BytesPerChannel()
}

// HasAlpha reports whether the format carries an alpha channel.
func (f PixelFormat) HasAlpha() bool {
	return f.ChannelCount() == 4
}
