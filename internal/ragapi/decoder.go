package ragapi

import (
	"errors"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ChunkDecoder turns arbitrary byte fragments into UTF-8 text.
// A multi-byte character split across fragments is held back until
// the rest of it arrives.
type ChunkDecoder struct {
	t       transform.Transformer
	pending []byte
}

// NewChunkDecoder returns a decoder with no buffered bytes
func NewChunkDecoder() *ChunkDecoder {
	return &ChunkDecoder{t: unicode.UTF8.NewDecoder()}
}

// Decode converts p, prefixed by any bytes held back from earlier calls.
// With final set, an incomplete trailing sequence is flushed as U+FFFD.
func (d *ChunkDecoder) Decode(p []byte, final bool) (string, error) {
	src := make([]byte, 0, len(d.pending)+len(p))
	src = append(src, d.pending...)
	src = append(src, p...)
	d.pending = nil
	if len(src) == 0 {
		return "", nil
	}

	// invalid bytes become 3-byte replacement characters
	dst := make([]byte, 3*len(src)+4)
	nDst, nSrc, err := d.t.Transform(dst, src, final)
	if err != nil && !errors.Is(err, transform.ErrShortSrc) {
		return "", err
	}
	if nSrc < len(src) {
		d.pending = append([]byte{}, src[nSrc:]...)
	}
	if final {
		d.t.Reset()
	}
	return string(dst[:nDst]), nil
}

// Pending reports how many bytes are waiting for the rest of a character
func (d *ChunkDecoder) Pending() int {
	return len(d.pending)
}
