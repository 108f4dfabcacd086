package reel

import "github.com/spf13/afero"

// Stream identifies one media channel within a Footage item.
//
// Stream metadata is populated during probing and immutable afterwards
// except for an explicit metadata refresh (a re-probe). The *Stream pointer
// itself is the identity other components key on: the decoder cache and the
// GPU still-image cache both use it as their map key.
type Stream struct {
	footage *Footage

	index              int
	width              int
	height             int
	premultipliedAlpha bool
	still              bool
}

// Footage returns the footage item this stream belongs to.
func (s *Stream) Footage() *Footage { return s.footage }

// Index returns the stream's position within its footage item.
func (s *Stream) Index() int { return s.index }

// Width returns the stream's native width in pixels.
func (s *Stream) Width() int { return s.width }

// Height returns the stream's native height in pixels.
func (s *Stream) Height() int { return s.height }

// PremultipliedAlpha reports whether decoded pixels carry alpha already
// multiplied into the color channels.
func (s *Stream) PremultipliedAlpha() bool { return s.premultipliedAlpha }

// SetDimensions records the stream's native dimensions. Called by decoders
// during probing.
func (s *Stream) SetDimensions(width, height int) {
	s.width = width
	s.height = height
}

// SetPremultipliedAlpha records the stream's alpha association. Called by
// decoders during probing.
func (s *Stream) SetPremultipliedAlpha(premultiplied bool) {
	s.premultipliedAlpha = premultiplied
}

// IsStill reports whether every timestamp of this stream decodes to the
// same image. Still streams are eligible for the GPU still-image cache.
func (s *Stream) IsStill() bool { return s.still }

// SetStill marks the stream as a still image. Called by decoders during
// probing.
func (s *Stream) SetStill(still bool) { s.still = still }

// Footage is a file-backed media source owning zero or more streams.
// It is identified by its filename and the id of the decoder that probed it.
type Footage struct {
	filename  string
	decoderID string
	streams   []*Stream
	fs        afero.Fs
}

// NewFootage creates a footage item for the given file. The footage reads
// through the OS filesystem; use SetFs to substitute another (tests use
// afero.MemMapFs).
func NewFootage(filename string) *Footage {
	return &Footage{
		filename: filename,
		fs:       afero.NewOsFs(),
	}
}

// Filename returns the path of the backing media file.
func (f *Footage) Filename() string { return f.filename }

// DecoderID returns the id of the decoder that successfully probed this
// footage, or "" if it has not been probed.
func (f *Footage) DecoderID() string { return f.decoderID }

// SetDecoderID records the decoder that owns this footage's format.
func (f *Footage) SetDecoderID(id string) { f.decoderID = id }

// Fs returns the filesystem this footage reads through.
func (f *Footage) Fs() afero.Fs { return f.fs }

// SetFs substitutes the filesystem this footage reads through.
func (f *Footage) SetFs(fs afero.Fs) { f.fs = fs }

// Streams returns the probed streams of this footage.
func (f *Footage) Streams() []*Stream { return f.streams }

// Stream returns the stream at the given index, or nil.
func (f *Footage) Stream(index int) *Stream {
	for _, s := range f.streams {
		if s.index == index {
			return s
		}
	}
	return nil
}

// AddStream appends a new stream with the given index and returns it.
// Called by decoders during probing.
func (f *Footage) AddStream(index int) *Stream {
	s := &Stream{footage: f, index: index}
	f.streams = append(f.streams, s)
	return s
}

// ClearStreams drops all probed streams, ready for a metadata refresh.
func (f *Footage) ClearStreams() { f.streams = nil }
